package taproot

import (
	"github.com/taurusgroup/frost-coordinator/pkg/math/curve"
)

// TweakScalar returns t = hash_TapTweak(P ∥ tweak) mod n.
//
// See: https://github.com/bitcoin/bips/blob/master/bip-0341.mediawiki#constructing-and-spending-taproot-outputs
func TweakScalar(pk PublicKey, tweak []byte) *curve.Scalar {
	return curve.NewScalar().SetBytes(TaggedHash("TapTweak", pk, tweak))
}

// Tweak returns the x-only key of Q = P + t⋅G, with t = TweakScalar(pk, tweak).
//
// A nil or empty tweak returns pk unchanged.
func (pk PublicKey) Tweak(tweak []byte) (PublicKey, error) {
	if len(tweak) == 0 {
		return pk, nil
	}
	P, err := curve.LiftX(pk)
	if err != nil {
		return nil, err
	}
	tG := curve.NewIdentityPoint().ScalarBaseMult(TweakScalar(pk, tweak))
	return PublicKey(curve.NewIdentityPoint().Add(P, tG).XBytes()), nil
}
