package sample

import (
	"bytes"
	"crypto/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/taurusgroup/frost-coordinator/pkg/math/curve"
)

func TestScalar(t *testing.T) {
	a, b := Scalar(rand.Reader), Scalar(rand.Reader)
	assert.False(t, a.IsZero())
	assert.False(t, a.Equal(b))
}

func TestScalarDeterministic(t *testing.T) {
	seed := bytes.Repeat([]byte{0x42}, 2*securityBytes)
	a := Scalar(bytes.NewReader(seed))
	b := Scalar(bytes.NewReader(seed))
	assert.True(t, a.Equal(b))
}

func TestScalarPointPair(t *testing.T) {
	x, X := ScalarPointPair(rand.Reader)
	assert.True(t, curve.NewIdentityPoint().ScalarBaseMult(x).Equal(X))
}

func TestScalarPanicsOnEmptyReader(t *testing.T) {
	assert.Panics(t, func() { Scalar(bytes.NewReader(nil)) })
}

// This exists to save the results of functions we want to benchmark, to avoid
// having them optimized away.
var resultScalar *curve.Scalar

func BenchmarkScalar(b *testing.B) {
	for i := 0; i < b.N; i++ {
		resultScalar = Scalar(rand.Reader)
	}
}
