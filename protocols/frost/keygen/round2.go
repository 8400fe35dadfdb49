package keygen

import (
	"fmt"

	"github.com/taurusgroup/frost-coordinator/pkg/math/curve"
	"github.com/taurusgroup/frost-coordinator/pkg/math/polynomial"
	"github.com/taurusgroup/frost-coordinator/pkg/party"
	"github.com/taurusgroup/frost-coordinator/pkg/pool"
)

// Round2 corresponds with step 5 of Round 1, and step 1 of Round 2, Figure 1
// in the Frost paper.
//
// round1 must contain the package of every participant, ourselves included.
// The result contains one encrypted share per other participant, indexed by recipient.
//
// pl may be nil, in which case the proofs are verified on the calling goroutine.
func Round2(secret *Round1Secret, round1 map[party.ID]*Round1Package, pl *pool.Pool) (*Round2Secret, map[party.ID]*Round2Package, error) {
	if secret == nil || secret.Polynomial == nil {
		return nil, nil, fmt.Errorf("keygen: missing round 1 secret")
	}
	if err := checkRound1Packages(secret.Participants, secret.Threshold, round1); err != nil {
		return nil, nil, err
	}

	// 5. "Upon receiving ϕₗ, σₗ from participants 1 ⩽ l ⩽ n, participant
	// Pᵢ verifies σₗ = (Rₗ, μₗ), aborting on failure, by checking
	// Rₗ = μₗ * G - cₗ * ϕₗ₀, where cₗ = H(l, ctx, ϕₗ₀, Rₗ).
	//
	// Upon success, participants delete { σₗ | 1 ⩽ l ⩽ n }"
	ids := secret.Participants
	valid := pool.Parallelize(pl, len(ids), func(i int) bool {
		pkg := round1[ids[i]]
		return pkg.Proof.verify(secret.Context, pkg.ID, pkg.Commitment.Constant())
	})
	for i, ok := range valid {
		if !ok {
			return nil, nil, fmt.Errorf("keygen: failed to verify Schnorr proof for party %s", ids[i])
		}
	}

	commitments := make(map[party.ID]*polynomial.Exponent, len(ids))
	encryptionKeys := make(map[party.ID]*curve.Point, len(ids))
	for _, l := range ids {
		commitments[l] = round1[l].Commitment
		encryptionKeys[l] = round1[l].EncryptionKey
	}

	// Our own package must be the one we produced, otherwise someone is
	// impersonating us.
	if !commitments[secret.ID].Equal(polynomial.NewPolynomialExponent(secret.Polynomial)) {
		return nil, nil, fmt.Errorf("keygen: package for %s does not match our own commitment", secret.ID)
	}

	// 1. "Each P_i securely sends to each other participant Pₗ a secret share
	// (l, fᵢ(l)), deleting f_i and each share afterward except for (i, fᵢ(i)),
	// which they keep for themselves."
	out := make(map[party.ID]*Round2Package, len(ids)-1)
	for _, l := range ids {
		if l == secret.ID {
			continue
		}
		share := secret.Polynomial.Evaluate(l.Scalar())
		ciphertext, err := encryptShare(secret.EncryptionKey, encryptionKeys[l], secret.Context, secret.ID, l, share)
		share.Zero()
		if err != nil {
			return nil, nil, err
		}
		out[l] = &Round2Package{From: secret.ID, To: l, Ciphertext: ciphertext}
	}

	next := &Round2Secret{
		ID:             secret.ID,
		Participants:   ids,
		Threshold:      secret.Threshold,
		Context:        secret.Context,
		SelfShare:      secret.Polynomial.Evaluate(secret.ID.Scalar()),
		EncryptionKey:  curve.NewScalar().Set(secret.EncryptionKey),
		Commitments:    commitments,
		EncryptionKeys: encryptionKeys,
	}
	return next, out, nil
}

// checkRound1Packages validates the shape of the round 1 packages, without checking proofs.
func checkRound1Packages(ids party.IDSlice, threshold int, round1 map[party.ID]*Round1Package) error {
	if err := party.MatchKeys(ids, round1); err != nil {
		return fmt.Errorf("keygen: round 1 packages: %w", err)
	}
	for _, l := range ids {
		pkg := round1[l]
		switch {
		case pkg == nil || pkg.Commitment == nil || pkg.EncryptionKey == nil:
			return fmt.Errorf("keygen: party %s sent an incomplete package", l)
		case pkg.ID != l:
			return fmt.Errorf("keygen: package indexed by %s was sent by %s", l, pkg.ID)
		case pkg.Commitment.Degree() != threshold-1:
			return fmt.Errorf("keygen: party %s committed to a polynomial of degree %d", l, pkg.Commitment.Degree())
		case pkg.EncryptionKey.IsIdentity():
			return fmt.Errorf("keygen: party %s sent an identity encryption key", l)
		}
	}
	return nil
}
