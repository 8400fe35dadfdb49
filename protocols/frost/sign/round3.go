package sign

import (
	"fmt"

	"github.com/taurusgroup/frost-coordinator/pkg/math/curve"
	"github.com/taurusgroup/frost-coordinator/pkg/math/polynomial"
	"github.com/taurusgroup/frost-coordinator/pkg/party"
	"github.com/taurusgroup/frost-coordinator/pkg/taproot"
	"github.com/taurusgroup/frost-coordinator/protocols/frost/keygen"
)

// InvalidShareError is returned when a signer's response fails verification.
type InvalidShareError struct {
	ID party.ID
}

func (e *InvalidShareError) Error() string {
	return fmt.Sprintf("sign: invalid signature share from %s", e.ID)
}

// verifyShare checks zᵢ • G = Rᵢ + c * λᵢ * Yᵢ.
func verifyShare(g *groupCommitment, share *SignatureShare, Y_i *curve.Point) bool {
	if share == nil || share.Z == nil || Y_i == nil {
		return false
	}
	lambda := polynomial.LagrangeSingle(g.signers, share.ID)
	expected := curve.NewIdentityPoint().ScalarMult(curve.NewScalar().Multiply(g.C, lambda), Y_i)
	expected.Add(expected, g.RShares[share.ID])
	actual := curve.NewIdentityPoint().ScalarBaseMult(share.Z)
	return actual.Equal(expected)
}

// VerifyShare checks a single signature share against the untweaked public key package.
func VerifyShare(pkg *SigningPackage, share *SignatureShare, public *keygen.PublicKeyPackage) error {
	if err := pkg.Validate(public); err != nil {
		return err
	}
	if share == nil {
		return fmt.Errorf("sign: missing signature share")
	}
	if _, ok := pkg.Commitments[share.ID]; !ok {
		return fmt.Errorf("sign: %s is not part of the signing set", share.ID)
	}
	tweaked, err := public.Tweak(pkg.Tweak)
	if err != nil {
		return err
	}
	g := pkg.commit(tweaked.PublicKey)
	if !verifyShare(g, share, tweaked.VerificationShares[share.ID]) {
		return &InvalidShareError{ID: share.ID}
	}
	return nil
}

// Aggregate combines the shares of every signer in the package into a signature.
//
// This follows step 7 of Figure 3, where the aggregator checks each share
// before summing them.
//
// public is the untweaked public key package, the tweak of the package is applied here.
func Aggregate(pkg *SigningPackage, shares map[party.ID]*SignatureShare, public *keygen.PublicKeyPackage) (taproot.Signature, error) {
	if err := pkg.Validate(public); err != nil {
		return nil, err
	}
	signers := pkg.Signers()
	if err := party.MatchKeys(signers, shares); err != nil {
		return nil, fmt.Errorf("sign: signature shares: %w", err)
	}
	tweaked, err := public.Tweak(pkg.Tweak)
	if err != nil {
		return nil, err
	}
	g := pkg.commit(tweaked.PublicKey)

	// 7.b "SA then computes zᵢ • G =? Rᵢ + c * λᵢ * Yᵢ [...] if the equality
	// does not hold, identify and report the misbehaving participant, and then abort."
	z := curve.NewScalar()
	for _, l := range signers {
		share := shares[l]
		if share == nil || share.ID != l || !verifyShare(g, share, tweaked.VerificationShares[l]) {
			return nil, &InvalidShareError{ID: l}
		}
		// 7.c "Compute z = ∑ᵢ zᵢ"
		z.Add(z, share.Z)
	}

	sig := make([]byte, 0, taproot.SignatureLen)
	sig = append(sig, g.R.XBytes()...)
	sig = append(sig, z.Bytes()...)

	// Sanity check against the tweaked key.
	if !tweaked.PublicKey.Verify(sig, pkg.Message) {
		return nil, fmt.Errorf("sign: aggregated signature failed to verify")
	}
	return sig, nil
}
