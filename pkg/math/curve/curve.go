// Package curve implements arithmetic over the secp256k1 group.
//
// Scalars and Points follow the edwards25519 calling convention: the receiver
// is set to the result of the operation, and returned, so that calls can be
// chained.
package curve

import (
	"encoding/hex"

	"github.com/cronokirby/saferith"
)

const (
	// BytesScalar is the size of a marshalled Scalar.
	BytesScalar = 32
	// BytesPoint is the size of a compressed Point.
	BytesPoint = 33
	// BytesXOnly is the size of the x coordinate of a Point.
	BytesXOnly = 32
)

// order is n, the number of points in the group.
var order *saferith.Modulus

func init() {
	n, _ := hex.DecodeString("fffffffffffffffffffffffffffffffebaaedce6af48a03bbfd25e8cd0364141")
	order = saferith.ModulusFromBytes(n)
}

// Order returns the order of the group as a saferith.Modulus.
func Order() *saferith.Modulus {
	return order
}
