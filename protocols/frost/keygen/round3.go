package keygen

import (
	"fmt"

	"github.com/taurusgroup/frost-coordinator/pkg/math/curve"
	"github.com/taurusgroup/frost-coordinator/pkg/math/polynomial"
	"github.com/taurusgroup/frost-coordinator/pkg/party"
)

// Finalize corresponds with steps 2-4 of Round 2, Figure 1 in the Frost paper.
//
// round1 must be the same set of packages given to Round2, and round2ForMe
// must contain the share sent to us by every other participant, indexed by sender.
func Finalize(secret *Round2Secret, round1 map[party.ID]*Round1Package, round2ForMe map[party.ID]*Round2Package) (*KeyPackage, *PublicKeyPackage, error) {
	if secret == nil || secret.SelfShare == nil {
		return nil, nil, fmt.Errorf("keygen: missing round 2 secret")
	}
	if err := party.MatchKeys(secret.Participants, round1); err != nil {
		return nil, nil, fmt.Errorf("keygen: round 1 packages: %w", err)
	}
	// The coordinator must not be able to swap commitments between our
	// rounds, since the shares we sent were computed against these.
	for _, l := range secret.Participants {
		pkg := round1[l]
		if pkg == nil || !secret.Commitments[l].Equal(pkg.Commitment) {
			return nil, nil, fmt.Errorf("keygen: round 1 package of %s changed since round 2", l)
		}
	}
	others := secret.Participants.Remove(secret.ID)
	if err := party.MatchKeys(others, round2ForMe); err != nil {
		return nil, nil, fmt.Errorf("keygen: round 2 packages: %w", err)
	}

	// 2. "Each Pᵢ verifies their shares by calculating
	//
	//   fₗ(i) * G =? ∑ₖ₌₀ᵗ (iᵏ mod q) * ϕₗₖ
	//
	// aborting if the check fails."
	//
	// 3. "Each P_i calculates their long-lived private signing share by computing
	// sᵢ = ∑ₗ₌₁ⁿ fₗ(i), stores sᵢ securely, and deletes each fₗ(i)"
	s_i := curve.NewScalar().Set(secret.SelfShare)
	for _, l := range others {
		msg := round2ForMe[l]
		if msg == nil || msg.From != l || msg.To != secret.ID {
			return nil, nil, fmt.Errorf("keygen: misaddressed share indexed by %s", l)
		}
		f_li, err := decryptShare(secret.EncryptionKey, secret.EncryptionKeys[l], secret.Context, l, secret.ID, msg.Ciphertext)
		if err != nil {
			return nil, nil, err
		}
		expected := secret.Commitments[l].Evaluate(secret.ID.Scalar())
		actual := curve.NewIdentityPoint().ScalarBaseMult(f_li)
		if !expected.Equal(actual) {
			return nil, nil, fmt.Errorf("keygen: VSS failed to validate share from %s", l)
		}
		s_i.Add(s_i, f_li)
		f_li.Zero()
	}

	// 4. "Each Pᵢ calculates their public verification share Yᵢ = sᵢ • G,
	// and the public verification share of every other participant."
	public, negated, err := publicFromCommitments(secret.Threshold, secret.Commitments)
	if err != nil {
		return nil, nil, err
	}
	if negated {
		s_i.Negate(s_i)
	}
	if !curve.NewIdentityPoint().ScalarBaseMult(s_i).Equal(public.VerificationShares[secret.ID]) {
		return nil, nil, fmt.Errorf("keygen: private share does not match verification share")
	}

	key := &KeyPackage{
		ID:                 secret.ID,
		Threshold:          public.Threshold,
		PrivateShare:       s_i,
		PublicKey:          public.PublicKey,
		VerificationShares: public.VerificationShares,
	}
	return key, public, nil
}

// PublicKeyPackageFromCommitments computes the public outcome of a ceremony
// from the Feldman commitments of every participant.
//
// Anyone holding the round 1 packages can compute this, which lets the
// coordinator cross check what each participant reports.
func PublicKeyPackageFromCommitments(threshold int, commitments map[party.ID]*polynomial.Exponent) (*PublicKeyPackage, error) {
	public, _, err := publicFromCommitments(threshold, commitments)
	return public, err
}

// publicFromCommitments also reports whether the shares had to be negated.
func publicFromCommitments(threshold int, commitments map[party.ID]*polynomial.Exponent) (*PublicKeyPackage, bool, error) {
	ids := party.FromKeys(commitments)
	if err := ids.Valid(); err != nil {
		return nil, false, err
	}
	if threshold < 1 || threshold > len(ids) {
		return nil, false, fmt.Errorf("keygen: invalid threshold %d for %d participants", threshold, len(ids))
	}
	all := make([]*polynomial.Exponent, 0, len(ids))
	for _, l := range ids {
		if commitments[l] == nil {
			return nil, false, fmt.Errorf("keygen: missing commitment for %s", l)
		}
		all = append(all, commitments[l])
	}
	summed, err := polynomial.Sum(all)
	if err != nil {
		return nil, false, err
	}

	Y := summed.Constant()
	if Y.IsIdentity() {
		return nil, false, fmt.Errorf("keygen: group public key is the identity")
	}
	// BIP-340 keys are x-only, with an implicitly even y coordinate. If our
	// key has odd y, every share gets negated, so that the shares of -s are used.
	negated := !Y.HasEvenY()
	shares := make(map[party.ID]*curve.Point, len(ids))
	for _, j := range ids {
		Y_j := summed.Evaluate(j.Scalar())
		if negated {
			Y_j.Negate(Y_j)
		}
		shares[j] = Y_j
	}
	return &PublicKeyPackage{
		Threshold:          threshold,
		PublicKey:          Y.XBytes(),
		VerificationShares: shares,
	}, negated, nil
}

// PublicKeyPackageFromRound1 is PublicKeyPackageFromCommitments applied to round 1 packages.
func PublicKeyPackageFromRound1(threshold int, round1 map[party.ID]*Round1Package) (*PublicKeyPackage, error) {
	commitments := make(map[party.ID]*polynomial.Exponent, len(round1))
	for id, pkg := range round1 {
		if pkg == nil {
			return nil, fmt.Errorf("keygen: missing package for %s", id)
		}
		commitments[id] = pkg.Commitment
	}
	return PublicKeyPackageFromCommitments(threshold, commitments)
}
