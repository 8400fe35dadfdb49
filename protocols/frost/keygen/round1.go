package keygen

import (
	"io"

	"github.com/taurusgroup/frost-coordinator/pkg/hash"
	"github.com/taurusgroup/frost-coordinator/pkg/math/curve"
	"github.com/taurusgroup/frost-coordinator/pkg/math/polynomial"
	"github.com/taurusgroup/frost-coordinator/pkg/math/sample"
	"github.com/taurusgroup/frost-coordinator/pkg/party"
)

// Round1 corresponds with steps 1-4 of Round 1, Figure 1 in the Frost paper.
//
// The overall goal of this round is to generate a secret value, create a polynomial
// sharing of that value, and then send commitments to these values.
//
// ctx identifies the ceremony. It is hashed into the proof of knowledge, so
// that a package from one ceremony is rejected in any other.
func Round1(rand io.Reader, ctx []byte, selfID party.ID, participants []party.ID, threshold int) (*Round1Secret, *Round1Package, error) {
	ids := party.NewIDSlice(participants)
	if err := validateParameters(selfID, ids, threshold); err != nil {
		return nil, nil, err
	}

	// 1. "Every participant P_i samples t + 1 random values (aᵢ₀, ..., aᵢₜ)) <-$ Z/(q)
	// and uses these values as coefficients to define a degree t polynomial
	// fᵢ(x) = ∑ⱼ₌₀ᵗ⁻¹ aᵢⱼ xʲ"
	//
	// Note: our threshold counts the signers, so the degree is threshold - 1.
	a_i0, a_i0_times_G := sample.ScalarPointPair(rand)
	f_i := polynomial.NewPolynomial(rand, threshold-1, a_i0)

	// 2. "Every Pᵢ computes a proof of knowledge to the corresponding secret aᵢ₀
	// by calculating σᵢ = (Rᵢ, μᵢ), such that:
	//
	//   k <-$ Z/(q)
	//   Rᵢ = k * G
	//   cᵢ = H(i, ctx, aᵢ₀ • G, Rᵢ)
	//   μᵢ = k + aᵢ₀ cᵢ
	//
	// with ctx being a context string to prevent replay attacks"
	k, R := sample.ScalarPointPair(rand)
	c, err := proofChallenge(ctx, selfID, a_i0_times_G, R)
	if err != nil {
		return nil, nil, err
	}
	mu := curve.NewScalar().MultiplyAdd(a_i0, c, k)
	k.Zero()

	// 3. "Every participant Pᵢ computes a public comment Φᵢ = <ϕᵢ₀, ..., ϕᵢₜ>
	// where ϕᵢⱼ = aᵢⱼ * G."
	Phi_i := polynomial.NewPolynomialExponent(f_i)

	// The shares sent in round 2 travel through the coordinator, so each
	// participant also publishes a fresh key they can be encrypted to.
	e_i, E_i := sample.ScalarPointPair(rand)

	// 4. "Every Pᵢ broadcasts Φᵢ, σᵢ to all other participants"
	secret := &Round1Secret{
		ID:            selfID,
		Participants:  ids,
		Threshold:     threshold,
		Context:       append([]byte(nil), ctx...),
		Polynomial:    f_i,
		EncryptionKey: e_i,
	}
	pkg := &Round1Package{
		ID:            selfID,
		Commitment:    Phi_i,
		Proof:         &Proof{R: R, Mu: mu},
		EncryptionKey: E_i,
	}
	return secret, pkg, nil
}

// proofChallenge computes cᵢ = H(i, ctx, aᵢ₀ • G, Rᵢ).
func proofChallenge(ctx []byte, id party.ID, public, R *curve.Point) (*curve.Scalar, error) {
	h := hash.New(protocolID + "/proof")
	if err := h.WriteAny(ctx, id, public, R); err != nil {
		return nil, err
	}
	return sample.Scalar(h.Digest()), nil
}

// verify checks σₗ = (Rₗ, μₗ), by checking Rₗ = μₗ * G - cₗ * ϕₗ₀.
func (p *Proof) verify(ctx []byte, id party.ID, public *curve.Point) bool {
	if p == nil || p.R == nil || p.Mu == nil || p.R.IsIdentity() || public.IsIdentity() {
		return false
	}
	c, err := proofChallenge(ctx, id, public, p.R)
	if err != nil {
		return false
	}
	expected := curve.NewIdentityPoint().ScalarBaseMult(p.Mu)
	expected.Subtract(expected, curve.NewIdentityPoint().ScalarMult(c, public))
	return expected.Equal(p.R)
}
