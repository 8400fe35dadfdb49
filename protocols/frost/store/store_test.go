package store

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/taurusgroup/frost-coordinator/pkg/party"
	"github.com/taurusgroup/frost-coordinator/pkg/storage"
	"github.com/taurusgroup/frost-coordinator/protocols/frost"
	"github.com/taurusgroup/frost-coordinator/protocols/frost/keygen"
	"github.com/taurusgroup/frost-coordinator/protocols/frost/sign"
)

func TestMissingRecordsAreNil(t *testing.T) {
	ctx := context.Background()
	b := storage.NewMemory()

	keyState, err := NewSignerKeyStore(b).Get(ctx, "nope")
	require.NoError(t, err)
	assert.Nil(t, keyState)

	session, err := NewSignerSessionStore(b).Get(ctx, "nope", "s")
	require.NoError(t, err)
	assert.Nil(t, session)

	aggState, err := NewAggregatorKeyStore(b).Get(ctx, "nope")
	require.NoError(t, err)
	assert.Nil(t, aggState)

	aggSession, err := NewAggregatorSessionStore(b).Get(ctx, "nope", "s")
	require.NoError(t, err)
	assert.Nil(t, aggSession)

	assert.NoError(t, NewSignerSessionStore(b).Delete(ctx, "nope", "s"))
}

func TestBackendFailureIsStorageUnavailable(t *testing.T) {
	ctx := context.Background()
	b := storage.NewMemory()
	require.NoError(t, b.Close())

	_, err := NewSignerKeyStore(b).Get(ctx, "e")
	assert.ErrorIs(t, err, frost.ErrStorageUnavailable)
	assert.ErrorIs(t, err, storage.ErrClosed)

	err = NewAggregatorKeyStore(b).Set(ctx, "e", &frost.AggregatorDkgState{})
	assert.ErrorIs(t, err, frost.ErrStorageUnavailable)

	_, err = NewEntityPool(b).CountUnused(ctx)
	assert.ErrorIs(t, err, frost.ErrStorageUnavailable)
}

func TestCorruptedRecordIsStorageUnavailable(t *testing.T) {
	ctx := context.Background()
	b := storage.NewMemory()
	require.NoError(t, b.Put(entityKey(signerKeyPrefix, "e"), []byte{0xff, 0x00}))
	_, err := NewSignerKeyStore(b).Get(ctx, "e")
	assert.ErrorIs(t, err, frost.ErrStorageUnavailable)
}

func TestEmptyIdsRejected(t *testing.T) {
	ctx := context.Background()
	b := storage.NewMemory()
	assert.Error(t, NewSignerKeyStore(b).Set(ctx, "", &frost.SignerDkgState{}))
	assert.Error(t, NewSignerSessionStore(b).Set(ctx, "e", "", &frost.SignerSession{}))
}

// A signer's finalized state must survive a round trip and remain usable for signing.
func TestSignerStateRoundTrip(t *testing.T) {
	ctx := context.Background()
	file, err := storage.NewFile(t.TempDir())
	require.NoError(t, err)
	keys := NewSignerKeyStore(file)

	ids := party.IDSlice{1}
	secret, pkg, err := keygen.Round1(rand.Reader, []byte("e"), 1, ids, 1)
	require.NoError(t, err)

	require.NoError(t, keys.Set(ctx, "e", &frost.SignerDkgState{
		Phase:  frost.DkgRound1,
		Round1: &frost.SignerDkgRound1{Secret: secret, Package: pkg},
	}))
	loaded, err := keys.Get(ctx, "e")
	require.NoError(t, err)
	require.Equal(t, frost.DkgRound1, loaded.Phase)
	assert.True(t, pkg.Commitment.Equal(loaded.Round1Package().Commitment))

	round1 := map[party.ID]*keygen.Round1Package{1: loaded.Round1.Package}
	r2, out, err := keygen.Round2(loaded.Round1.Secret, round1, nil)
	require.NoError(t, err)
	key, public, err := keygen.Finalize(r2, round1, nil)
	require.NoError(t, err)

	require.NoError(t, keys.Set(ctx, "e", &frost.SignerDkgState{
		Phase: frost.DkgFinalized,
		Finalized: &frost.SignerDkgFinalized{
			KeyPackage:       key,
			PublicKeyPackage: public,
			Round1Package:    pkg,
			Round2Packages:   out,
		},
	}))
	loaded, err = keys.Get(ctx, "e")
	require.NoError(t, err)
	require.Equal(t, frost.DkgFinalized, loaded.Phase)
	require.NoError(t, loaded.Finalized.KeyPackage.Validate())
	assert.True(t, public.Equal(loaded.Finalized.PublicKeyPackage))

	nonces, commitments := sign.Commit(rand.Reader, 1)
	sessions := NewSignerSessionStore(file)
	created := time.Now().UTC()
	require.NoError(t, sessions.Set(ctx, "e", "s/1", &frost.SignerSession{
		Nonces:      nonces,
		Commitments: commitments,
		Tweak:       []byte{1},
		Metadata:    frost.Metadata{"purpose": "test"},
		CreatedAt:   created,
	}))
	session, err := sessions.Get(ctx, "e", "s/1")
	require.NoError(t, err)
	assert.True(t, created.Equal(session.CreatedAt))
	assert.Equal(t, "test", session.Metadata["purpose"])

	msg := sha256.Sum256([]byte("m"))
	signingPackage := &sign.SigningPackage{
		Message:     msg[:],
		Commitments: map[party.ID]*sign.Commitments{1: session.Commitments},
		Tweak:       session.Tweak,
	}
	share, err := sign.Sign(signingPackage, session.Nonces, loaded.Finalized.KeyPackage)
	require.NoError(t, err)
	_, err = sign.Aggregate(signingPackage, map[party.ID]*sign.SignatureShare{1: share}, public)
	assert.NoError(t, err)
}

func TestSessionList(t *testing.T) {
	ctx := context.Background()
	sessions := NewSignerSessionStore(storage.NewMemory())
	require.NoError(t, sessions.Set(ctx, "a", "1", &frost.SignerSession{}))
	require.NoError(t, sessions.Set(ctx, "a/b", "2", &frost.SignerSession{}))

	keys, err := sessions.List(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []frost.SessionKey{
		{Entity: "a", Session: "1"},
		{Entity: "a/b", Session: "2"},
	}, keys)

	require.NoError(t, sessions.Delete(ctx, "a", "1"))
	keys, err = sessions.List(ctx)
	require.NoError(t, err)
	assert.Len(t, keys, 1)
}

func TestEntityPoolClaimOnce(t *testing.T) {
	ctx := context.Background()
	pool := NewEntityPool(storage.NewMemory())

	const n = 10
	for i := 0; i < n; i++ {
		require.NoError(t, pool.Add(ctx, frost.NewEntityID()))
	}
	count, err := pool.CountUnused(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(n), count)

	var mu sync.Mutex
	claimed := make(map[frost.EntityID]int)
	var wg sync.WaitGroup
	for i := 0; i < 2*n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			entity, ok, err := pool.Claim(ctx)
			assert.NoError(t, err)
			if ok {
				mu.Lock()
				claimed[entity]++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Len(t, claimed, n)
	for entity, times := range claimed {
		assert.Equal(t, 1, times, "entity %s claimed twice", entity)
	}
	count, err = pool.CountUnused(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)

	_, ok, err := pool.Claim(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
}

// rejectingBackend refuses every key, as a backend does for keys it cannot map.
type rejectingBackend struct {
	storage.Backend
}

func (rejectingBackend) Get(string) ([]byte, error) { return nil, storage.ErrInvalidKey }

func (rejectingBackend) Put(string, []byte) error { return storage.ErrInvalidKey }

func TestInvalidKeyIsNotStorageUnavailable(t *testing.T) {
	ctx := context.Background()
	b := rejectingBackend{storage.NewMemory()}

	_, err := NewSignerKeyStore(b).Get(ctx, "e")
	assert.ErrorIs(t, err, storage.ErrInvalidKey)
	assert.NotErrorIs(t, err, frost.ErrStorageUnavailable)

	err = NewAggregatorSessionStore(b).Set(ctx, "e", "s", &frost.AggregatorSession{})
	assert.ErrorIs(t, err, storage.ErrInvalidKey)
	assert.NotErrorIs(t, err, frost.ErrStorageUnavailable)
}

func TestOpaqueIdsOnFileBackend(t *testing.T) {
	ctx := context.Background()
	file, err := storage.NewFile(t.TempDir())
	require.NoError(t, err)

	ids := []frost.EntityID{".", "..", "x.tmp", ".tmp", "weird/entity", "a b%2F", "-_", "\u00e9t\u00e9"}
	keys := NewSignerKeyStore(file)
	sessions := NewSignerSessionStore(file)
	aggKeys := NewAggregatorKeyStore(file)
	aggSessions := NewAggregatorSessionStore(file)
	pool := NewEntityPool(file)

	var expected []frost.SessionKey
	for _, entity := range ids {
		session := frost.SessionID(entity) + ".tmp"
		require.NoError(t, keys.Set(ctx, entity, &frost.SignerDkgState{Phase: frost.DkgRound1}), entity)
		state, err := keys.Get(ctx, entity)
		require.NoError(t, err, entity)
		require.NotNil(t, state, entity)
		assert.Equal(t, frost.DkgRound1, state.Phase)

		require.NoError(t, sessions.Set(ctx, entity, session, &frost.SignerSession{Tweak: []byte(entity)}), entity)
		stored, err := sessions.Get(ctx, entity, session)
		require.NoError(t, err, entity)
		require.NotNil(t, stored, entity)
		assert.Equal(t, []byte(entity), stored.Tweak)
		expected = append(expected, frost.SessionKey{Entity: entity, Session: session})

		require.NoError(t, aggKeys.Set(ctx, entity, &frost.AggregatorDkgState{Phase: frost.DkgRound2}), entity)
		aggState, err := aggKeys.Get(ctx, entity)
		require.NoError(t, err, entity)
		require.NotNil(t, aggState, entity)
		assert.Equal(t, frost.DkgRound2, aggState.Phase)

		require.NoError(t, aggSessions.Set(ctx, entity, session, &frost.AggregatorSession{Message: []byte(entity)}), entity)
		aggSession, err := aggSessions.Get(ctx, entity, session)
		require.NoError(t, err, entity)
		require.NotNil(t, aggSession, entity)
		assert.Equal(t, []byte(entity), aggSession.Message)

		require.NoError(t, pool.Add(ctx, entity), entity)
	}

	listed, err := sessions.List(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, expected, listed)

	claimed := make(map[frost.EntityID]bool)
	for range ids {
		entity, ok, err := pool.Claim(ctx)
		require.NoError(t, err)
		require.True(t, ok)
		claimed[entity] = true
	}
	for _, entity := range ids {
		assert.True(t, claimed[entity], "entity %q not claimed", entity)
	}
}
