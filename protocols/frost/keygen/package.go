package keygen

import (
	"bytes"
	"fmt"

	"github.com/taurusgroup/frost-coordinator/pkg/math/curve"
	"github.com/taurusgroup/frost-coordinator/pkg/party"
	"github.com/taurusgroup/frost-coordinator/pkg/taproot"
)

// KeyPackage is the long-lived output of keygen held by a single signer.
type KeyPackage struct {
	// ID is the identifier for this participant.
	ID party.ID
	// Threshold is the number of participants needed to produce a signature.
	Threshold int
	// PrivateShare is the fraction of the secret key owned by this participant.
	PrivateShare *curve.Scalar
	// PublicKey is the shared public key for this consortium of signers.
	//
	// This key can be used to verify signatures produced by the consortium.
	PublicKey taproot.PublicKey
	// VerificationShares is a map between parties and a commitment to their private share.
	//
	// This will later be used to verify the integrity of the signing protocol.
	VerificationShares map[party.ID]*curve.Point
}

// PublicKeyPackage is the part of a ceremony's outcome that anyone may know.
type PublicKeyPackage struct {
	Threshold          int
	PublicKey          taproot.PublicKey
	VerificationShares map[party.ID]*curve.Point
}

// Public returns the public part of the key package.
func (k *KeyPackage) Public() *PublicKeyPackage {
	shares := make(map[party.ID]*curve.Point, len(k.VerificationShares))
	for id, Y := range k.VerificationShares {
		shares[id] = curve.NewIdentityPoint().Set(Y)
	}
	return &PublicKeyPackage{
		Threshold:          k.Threshold,
		PublicKey:          append(taproot.PublicKey(nil), k.PublicKey...),
		VerificationShares: shares,
	}
}

// Validate checks that the key package is internally consistent.
func (k *KeyPackage) Validate() error {
	if k == nil || k.PrivateShare == nil {
		return fmt.Errorf("keygen: incomplete key package")
	}
	if len(k.PublicKey) != taproot.PublicKeyLength {
		return fmt.Errorf("keygen: invalid public key length %d", len(k.PublicKey))
	}
	Y_i, ok := k.VerificationShares[k.ID]
	if !ok || Y_i == nil {
		return fmt.Errorf("keygen: missing verification share for %s", k.ID)
	}
	if !curve.NewIdentityPoint().ScalarBaseMult(k.PrivateShare).Equal(Y_i) {
		return fmt.Errorf("keygen: private share does not match verification share")
	}
	return nil
}

// Participants returns the sorted identifiers of every key holder.
func (p *PublicKeyPackage) Participants() party.IDSlice {
	return party.FromKeys(p.VerificationShares)
}

// Equal checks that both packages describe the same key.
func (p *PublicKeyPackage) Equal(other *PublicKeyPackage) bool {
	if p == nil || other == nil {
		return p == other
	}
	if p.Threshold != other.Threshold || !bytes.Equal(p.PublicKey, other.PublicKey) {
		return false
	}
	if len(p.VerificationShares) != len(other.VerificationShares) {
		return false
	}
	for id, Y := range p.VerificationShares {
		Y2, ok := other.VerificationShares[id]
		if !ok || Y == nil || Y2 == nil || !Y.Equal(Y2) {
			return false
		}
	}
	return true
}

// tweakedKey computes Q = P + t⋅G, returning t⋅G and whether Q has odd y.
func tweakedKey(pk taproot.PublicKey, tweak []byte) (*curve.Scalar, *curve.Point, bool, error) {
	P, err := pk.Point()
	if err != nil {
		return nil, nil, false, err
	}
	t := taproot.TweakScalar(pk, tweak)
	Q := curve.NewIdentityPoint().Add(P, curve.NewIdentityPoint().ScalarBaseMult(t))
	if Q.IsIdentity() {
		return nil, nil, false, fmt.Errorf("keygen: tweaked key is the identity")
	}
	return t, Q, !Q.HasEvenY(), nil
}

// Tweak returns the package of the key tweaked with hash_TapTweak(P ∥ tweak).
//
// Since the Lagrange coefficients of any signing set sum to 1, adding t to
// every share adds t to the shared secret.
// If the tweaked key has odd y, all shares are negated, as in keygen.
//
// A nil or empty tweak returns the package unchanged.
func (p *PublicKeyPackage) Tweak(tweak []byte) (*PublicKeyPackage, error) {
	if len(tweak) == 0 {
		return p, nil
	}
	t, Q, negate, err := tweakedKey(p.PublicKey, tweak)
	if err != nil {
		return nil, err
	}
	tG := curve.NewIdentityPoint().ScalarBaseMult(t)
	shares := make(map[party.ID]*curve.Point, len(p.VerificationShares))
	for id, Y := range p.VerificationShares {
		Y2 := curve.NewIdentityPoint().Add(Y, tG)
		if negate {
			Y2.Negate(Y2)
		}
		shares[id] = Y2
	}
	return &PublicKeyPackage{
		Threshold:          p.Threshold,
		PublicKey:          Q.XBytes(),
		VerificationShares: shares,
	}, nil
}

// Tweak returns the key package tweaked in the same way as PublicKeyPackage.Tweak.
func (k *KeyPackage) Tweak(tweak []byte) (*KeyPackage, error) {
	if len(tweak) == 0 {
		return k, nil
	}
	t, _, negate, err := tweakedKey(k.PublicKey, tweak)
	if err != nil {
		return nil, err
	}
	public, err := k.Public().Tweak(tweak)
	if err != nil {
		return nil, err
	}
	s_i := curve.NewScalar().Add(k.PrivateShare, t)
	if negate {
		s_i.Negate(s_i)
	}
	return &KeyPackage{
		ID:                 k.ID,
		Threshold:          k.Threshold,
		PrivateShare:       s_i,
		PublicKey:          public.PublicKey,
		VerificationShares: public.VerificationShares,
	}, nil
}
