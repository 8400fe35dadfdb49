// Package sample draws uniformly random secp256k1 scalars.
package sample

import (
	"fmt"
	"io"

	"github.com/taurusgroup/frost-coordinator/pkg/math/curve"
)

const maxIterations = 255

// securityBytes is the number of random bytes drawn per scalar. Reducing 512
// bits modulo n gives a distribution statistically close to uniform.
const securityBytes = 64

var ErrMaxIterations = fmt.Errorf("sample: failed to generate after %d iterations", maxIterations)

func mustReadBits(rand io.Reader, buf []byte) {
	for i := 0; i < maxIterations; i++ {
		if _, err := io.ReadFull(rand, buf); err == nil {
			return
		}
	}
	panic(ErrMaxIterations)
}

// Scalar returns a new *curve.Scalar by reading bytes from rand.
//
// The result is never zero.
func Scalar(rand io.Reader) *curve.Scalar {
	buf := make([]byte, securityBytes)
	s := curve.NewScalar()
	for i := 0; i < maxIterations; i++ {
		mustReadBits(rand, buf)
		if !s.SetHash(buf).IsZero() {
			return s
		}
	}
	panic(ErrMaxIterations)
}

// ScalarPointPair returns a new *curve.Scalar/*curve.Point tuple (x,X) by reading bytes from rand.
// The tuple satisfies X = x⋅G where G is the base point of the curve.
func ScalarPointPair(rand io.Reader) (*curve.Scalar, *curve.Point) {
	s := Scalar(rand)
	return s, curve.NewIdentityPoint().ScalarBaseMult(s)
}
