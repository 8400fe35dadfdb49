package hash

import (
	"crypto/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/taurusgroup/frost-coordinator/pkg/math/curve"
	"github.com/taurusgroup/frost-coordinator/pkg/math/sample"
	"github.com/taurusgroup/frost-coordinator/pkg/party"
)

func TestHash_WriteAny(t *testing.T) {
	testFunc := func(vs ...interface{}) error {
		return New("test").WriteAny(vs...)
	}
	x, X := sample.ScalarPointPair(rand.Reader)
	assert.NoError(t, testFunc(x))
	assert.NoError(t, testFunc(X))
	assert.NoError(t, testFunc(party.ID(3), party.IDSlice{1, 2}))
	assert.NoError(t, testFunc([]byte{1, 4, 6}, "entity"))
	assert.Error(t, testFunc(curve.NewIdentityPoint()))
	assert.Panics(t, func() { _ = testFunc(42) })
}

func TestHash_WriteAny_Collision(t *testing.T) {
	testFunc := func(vs ...interface{}) []byte {
		h := New("test")
		require.NoError(t, h.WriteAny(vs...))
		return h.Sum()
	}
	h1 := testFunc([]byte("ab"), []byte("c"))
	h2 := testFunc([]byte("a"), []byte("bc"))
	assert.NotEqual(t, h1, h2)

	h3 := testFunc("ab")
	h4 := testFunc([]byte("ab"))
	assert.NotEqual(t, h3, h4)
}

func TestHash_Tag(t *testing.T) {
	a, b := New("a"), New("b")
	require.NoError(t, a.WriteAny([]byte("x")))
	require.NoError(t, b.WriteAny([]byte("x")))
	assert.NotEqual(t, a.Sum(), b.Sum())
}

func TestHash_Clone(t *testing.T) {
	h := New("test")
	require.NoError(t, h.WriteAny([]byte("prefix")))
	c1, c2 := h.Clone(), h.Clone()
	require.NoError(t, c1.WriteAny(party.ID(1)))
	require.NoError(t, c2.WriteAny(party.ID(2)))
	assert.NotEqual(t, c1.Sum(), c2.Sum())
	assert.Equal(t, h.Sum(), h.Clone().Sum())
}
