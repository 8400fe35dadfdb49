package sign

import (
	"fmt"

	"github.com/taurusgroup/frost-coordinator/pkg/hash"
	"github.com/taurusgroup/frost-coordinator/pkg/math/curve"
	"github.com/taurusgroup/frost-coordinator/pkg/math/polynomial"
	"github.com/taurusgroup/frost-coordinator/pkg/math/sample"
	"github.com/taurusgroup/frost-coordinator/pkg/party"
	"github.com/taurusgroup/frost-coordinator/pkg/taproot"
	"github.com/taurusgroup/frost-coordinator/protocols/frost/keygen"
)

// groupCommitment holds the values every signer and the aggregator derive from a SigningPackage.
type groupCommitment struct {
	signers party.IDSlice
	// R is the group commitment, with even y.
	R *curve.Point
	// RShares[l] = Dₗ + ρₗ⋅Eₗ, negated if the sum had odd y.
	RShares map[party.ID]*curve.Point
	// Rho[l] = ρₗ.
	Rho map[party.ID]*curve.Scalar
	// negated is set when the nonces must be negated.
	negated bool
	// C is the challenge.
	C *curve.Scalar
}

// Validate checks the shape of the package against a key's participant set.
func (p *SigningPackage) Validate(public *keygen.PublicKeyPackage) error {
	if p == nil {
		return fmt.Errorf("sign: missing signing package")
	}
	if len(p.Commitments) < public.Threshold {
		return fmt.Errorf("sign: %d commitments for a threshold of %d", len(p.Commitments), public.Threshold)
	}
	for id, c := range p.Commitments {
		if _, ok := public.VerificationShares[id]; !ok {
			return fmt.Errorf("sign: %s is not a key holder", id)
		}
		if err := c.validate(id); err != nil {
			return err
		}
	}
	return nil
}

// commit computes the group commitment and challenge, as in step 4 of Figure 3.
//
// Y is the x-only key the signature will verify under.
func (p *SigningPackage) commit(Y taproot.PublicKey) *groupCommitment {
	signers := p.Signers()

	// 4. "Each Pᵢ then computes the set of binding values ρₗ = H₁(l, m, B).
	// Each Pᵢ then derives the group commitment R = ∑ₗ Dₗ + ρₗ * Eₗ and
	// the challenge c = H₂(R, Y, m)."
	//
	// It's easier to calculate H(m, B, l), that way we can simply clone the hash
	// state after H(m, B), instead of rehashing them each time.
	rhoPreHash := hash.New(protocolID + "/rho")
	_ = rhoPreHash.WriteAny(p.Message, []byte(Y))
	for _, l := range signers {
		_ = rhoPreHash.WriteAny(l, p.Commitments[l].Hiding, p.Commitments[l].Binding)
	}
	rho := make(map[party.ID]*curve.Scalar, len(signers))
	for _, l := range signers {
		rhoHash := rhoPreHash.Clone()
		_ = rhoHash.WriteAny(l)
		rho[l] = sample.Scalar(rhoHash.Digest())
	}

	R := curve.NewIdentityPoint()
	RShares := make(map[party.ID]*curve.Point, len(signers))
	for _, l := range signers {
		RShares[l] = curve.NewIdentityPoint().ScalarMult(rho[l], p.Commitments[l].Binding)
		RShares[l].Add(RShares[l], p.Commitments[l].Hiding)
		R.Add(R, RShares[l])
	}

	// BIP-340 adjustment: We need R to have an even y coordinate. This means
	// conditionally negating k = ∑ᵢ (dᵢ + (eᵢ ρᵢ)), which we can accomplish
	// by negating our dᵢ, eᵢ, if necessary. This entails negating the RShares
	// as well.
	negated := !R.HasEvenY()
	if negated {
		R.Negate(R)
		for _, l := range signers {
			RShares[l].Negate(RShares[l])
		}
	}

	// BIP-340 adjustment: we need to calculate our hash as specified in:
	// https://github.com/bitcoin/bips/blob/master/bip-0340.mediawiki#default-signing
	c := taproot.Challenge(R.XBytes(), Y, p.Message)

	return &groupCommitment{
		signers: signers,
		R:       R,
		RShares: RShares,
		Rho:     rho,
		negated: negated,
		C:       c,
	}
}

// Sign computes this signer's response zᵢ to a signing package.
//
// key is the untweaked key package, the tweak of the package is applied here.
// The nonces must be the ones whose commitments appear in the package under
// key.ID. The caller must discard the nonces afterwards.
func Sign(pkg *SigningPackage, nonces *Nonces, key *keygen.KeyPackage) (*SignatureShare, error) {
	if nonces == nil || nonces.Hiding == nil || nonces.Binding == nil {
		return nil, fmt.Errorf("sign: missing nonces")
	}
	if err := pkg.Validate(key.Public()); err != nil {
		return nil, err
	}
	mine, ok := pkg.Commitments[key.ID]
	if !ok {
		return nil, fmt.Errorf("sign: %s is not part of the signing set", key.ID)
	}
	if !curve.NewIdentityPoint().ScalarBaseMult(nonces.Hiding).Equal(mine.Hiding) ||
		!curve.NewIdentityPoint().ScalarBaseMult(nonces.Binding).Equal(mine.Binding) {
		return nil, fmt.Errorf("sign: commitments of %s don't match our nonces", key.ID)
	}

	tweaked, err := key.Tweak(pkg.Tweak)
	if err != nil {
		return nil, err
	}
	g := pkg.commit(tweaked.PublicKey)

	d_i := curve.NewScalar().Set(nonces.Hiding)
	e_i := curve.NewScalar().Set(nonces.Binding)
	if g.negated {
		d_i.Negate(d_i)
		e_i.Negate(e_i)
	}

	// Lambda = λᵢ
	lambda := polynomial.LagrangeSingle(g.signers, key.ID)
	// 5. "Each Pᵢ computes their response using their long-lived secret share sᵢ
	// by computing zᵢ = dᵢ + (eᵢ ρᵢ) + λᵢ sᵢ c, using S to determine
	// the ith lagrange coefficient λᵢ"
	z_i := curve.NewScalar().Multiply(lambda, tweaked.PrivateShare)
	z_i.Multiply(z_i, g.C)
	z_i.Add(z_i, d_i)
	z_i.MultiplyAdd(e_i, g.Rho[key.ID], z_i)

	d_i.Zero()
	e_i.Zero()
	if tweaked != key {
		tweaked.PrivateShare.Zero()
	}

	// 6. "Each Pᵢ securely deletes ((dᵢ, Dᵢ), (eᵢ, Eᵢ)) from their local storage,
	// and returns zᵢ to SA."
	return &SignatureShare{ID: key.ID, Z: z_i}, nil
}
