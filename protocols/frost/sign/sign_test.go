package sign

import (
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/taurusgroup/frost-coordinator/pkg/math/curve"
	"github.com/taurusgroup/frost-coordinator/pkg/math/sample"
	"github.com/taurusgroup/frost-coordinator/pkg/party"
	"github.com/taurusgroup/frost-coordinator/protocols/frost/keygen"
)

var testContext = []byte("sign-test")

func runKeygen(t *testing.T, n, threshold int) (map[party.ID]*keygen.KeyPackage, *keygen.PublicKeyPackage) {
	ids := make(party.IDSlice, n)
	for i := range ids {
		ids[i] = party.ID(i + 1)
	}
	secrets := make(map[party.ID]*keygen.Round1Secret, n)
	round1 := make(map[party.ID]*keygen.Round1Package, n)
	for _, id := range ids {
		s, pkg, err := keygen.Round1(rand.Reader, testContext, id, ids, threshold)
		require.NoError(t, err)
		secrets[id], round1[id] = s, pkg
	}
	round2Secrets := make(map[party.ID]*keygen.Round2Secret, n)
	inbox := make(map[party.ID]map[party.ID]*keygen.Round2Package, n)
	for _, id := range ids {
		inbox[id] = make(map[party.ID]*keygen.Round2Package)
	}
	for _, id := range ids {
		s, out, err := keygen.Round2(secrets[id], round1, nil)
		require.NoError(t, err)
		round2Secrets[id] = s
		for to, pkg := range out {
			inbox[to][id] = pkg
		}
	}
	keys := make(map[party.ID]*keygen.KeyPackage, n)
	var public *keygen.PublicKeyPackage
	for _, id := range ids {
		key, p, err := keygen.Finalize(round2Secrets[id], round1, inbox[id])
		require.NoError(t, err)
		keys[id] = key
		public = p
	}
	return keys, public
}

type signingRun struct {
	pkg    *SigningPackage
	nonces map[party.ID]*Nonces
}

func prepare(signers party.IDSlice, message, tweak []byte) *signingRun {
	run := &signingRun{
		pkg: &SigningPackage{
			Message:     message,
			Commitments: make(map[party.ID]*Commitments, len(signers)),
			Tweak:       tweak,
		},
		nonces: make(map[party.ID]*Nonces, len(signers)),
	}
	for _, id := range signers {
		run.nonces[id], run.pkg.Commitments[id] = Commit(rand.Reader, id)
	}
	return run
}

func (run *signingRun) shares(t *testing.T, keys map[party.ID]*keygen.KeyPackage) map[party.ID]*SignatureShare {
	shares := make(map[party.ID]*SignatureShare, len(run.nonces))
	for id, nonces := range run.nonces {
		share, err := Sign(run.pkg, nonces, keys[id])
		require.NoError(t, err)
		shares[id] = share
	}
	return shares
}

func testMessage(s string) []byte {
	m := sha256.Sum256([]byte(s))
	return m[:]
}

func TestSign(t *testing.T) {
	keys, public := runKeygen(t, 5, 3)
	for _, signers := range []party.IDSlice{{1, 2, 3}, {2, 4, 5}, {1, 2, 3, 4, 5}} {
		message := testMessage("hello")
		run := prepare(signers, message, nil)
		sig, err := Aggregate(run.pkg, run.shares(t, keys), public)
		require.NoError(t, err)
		assert.True(t, public.PublicKey.Verify(sig, message))
	}
}

func TestSignManyRuns(t *testing.T) {
	// Exercises both parities of R.
	keys, public := runKeygen(t, 3, 2)
	for i := 0; i < 8; i++ {
		message := testMessage(string(rune('a' + i)))
		run := prepare(party.IDSlice{1, 3}, message, nil)
		sig, err := Aggregate(run.pkg, run.shares(t, keys), public)
		require.NoError(t, err)
		assert.True(t, public.PublicKey.Verify(sig, message))
	}
}

func TestSignTweaked(t *testing.T) {
	keys, public := runKeygen(t, 4, 3)
	for _, tweak := range [][]byte{{0xAB}, make([]byte, 32), []byte("script tree root")} {
		message := testMessage("tweaked")
		run := prepare(party.IDSlice{1, 2, 4}, message, tweak)
		sig, err := Aggregate(run.pkg, run.shares(t, keys), public)
		require.NoError(t, err)

		tweakedKey, err := public.PublicKey.Tweak(tweak)
		require.NoError(t, err)
		assert.True(t, tweakedKey.Verify(sig, message))
		assert.False(t, public.PublicKey.Verify(sig, message))
	}
}

func TestSignRawMessage(t *testing.T) {
	keys, public := runKeygen(t, 3, 2)
	for _, message := range [][]byte{[]byte("hello"), nil, make([]byte, 100)} {
		run := prepare(party.IDSlice{2, 3}, message, nil)
		sig, err := Aggregate(run.pkg, run.shares(t, keys), public)
		require.NoError(t, err)
		assert.True(t, public.PublicKey.Verify(sig, message))
	}
}

func TestSingleSigner(t *testing.T) {
	keys, public := runKeygen(t, 1, 1)
	message := testMessage("alone")
	run := prepare(party.IDSlice{1}, message, nil)
	sig, err := Aggregate(run.pkg, run.shares(t, keys), public)
	require.NoError(t, err)
	assert.True(t, public.PublicKey.Verify(sig, message))
}

func TestAggregateIdentifiesBadShare(t *testing.T) {
	keys, public := runKeygen(t, 3, 2)
	run := prepare(party.IDSlice{1, 2}, testMessage("bad share"), nil)
	shares := run.shares(t, keys)
	shares[2] = &SignatureShare{ID: 2, Z: sample.Scalar(rand.Reader)}

	_, err := Aggregate(run.pkg, shares, public)
	var invalid *InvalidShareError
	require.True(t, errors.As(err, &invalid))
	assert.Equal(t, party.ID(2), invalid.ID)

	assert.NoError(t, VerifyShare(run.pkg, shares[1], public))
	assert.Error(t, VerifyShare(run.pkg, shares[2], public))
}

func TestAggregateRequiresAllShares(t *testing.T) {
	keys, public := runKeygen(t, 3, 2)
	run := prepare(party.IDSlice{1, 2}, testMessage("missing"), nil)
	shares := run.shares(t, keys)
	delete(shares, 1)
	_, err := Aggregate(run.pkg, shares, public)
	assert.Error(t, err)
}

func TestSignRejectsInvalidPackages(t *testing.T) {
	keys, _ := runKeygen(t, 3, 2)

	run := prepare(party.IDSlice{1}, testMessage("too few"), nil)
	_, err := Sign(run.pkg, run.nonces[1], keys[1])
	assert.Error(t, err, "below threshold")

	run = prepare(party.IDSlice{1, 2}, testMessage("other nonces"), nil)
	otherNonces, _ := Commit(rand.Reader, 1)
	_, err = Sign(run.pkg, otherNonces, keys[1])
	assert.Error(t, err, "nonces don't match commitments")

	run = prepare(party.IDSlice{1, 2}, testMessage("not included"), nil)
	_, err = Sign(run.pkg, run.nonces[1], keys[3])
	assert.Error(t, err, "signer not in set")

	run = prepare(party.IDSlice{1, 2}, testMessage("identity"), nil)
	run.pkg.Commitments[2].Binding = curve.NewIdentityPoint()
	_, err = Sign(run.pkg, run.nonces[1], keys[1])
	assert.Error(t, err, "identity commitment")

	run = prepare(party.IDSlice{1, 2, 7}, testMessage("unknown"), nil)
	_, err = Sign(run.pkg, run.nonces[1], keys[1])
	assert.Error(t, err, "unknown signer")
}

func TestPackageDigest(t *testing.T) {
	run := prepare(party.IDSlice{1, 2}, testMessage("m"), nil)
	same := &SigningPackage{
		Message:     append([]byte(nil), run.pkg.Message...),
		Commitments: map[party.ID]*Commitments{2: run.pkg.Commitments[2], 1: run.pkg.Commitments[1]},
	}
	assert.Equal(t, run.pkg.Digest(), same.Digest())

	tweaked := *run.pkg
	tweaked.Tweak = []byte("tweak")
	assert.NotEqual(t, run.pkg.Digest(), tweaked.Digest())

	other := *run.pkg
	other.Message = testMessage("other")
	assert.NotEqual(t, run.pkg.Digest(), other.Digest())

	_, commitments := Commit(rand.Reader, 2)
	swapped := *run.pkg
	swapped.Commitments = map[party.ID]*Commitments{1: run.pkg.Commitments[1], 2: commitments}
	assert.NotEqual(t, run.pkg.Digest(), swapped.Digest())

	incomplete := *run.pkg
	incomplete.Commitments = map[party.ID]*Commitments{1: run.pkg.Commitments[1], 2: nil}
	assert.NotPanics(t, func() { incomplete.Digest() })
}
