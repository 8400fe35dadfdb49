package aggregator_test

import (
	"bytes"
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/taurusgroup/frost-coordinator/internal/test"
	"github.com/taurusgroup/frost-coordinator/pkg/math/curve"
	"github.com/taurusgroup/frost-coordinator/pkg/party"
	"github.com/taurusgroup/frost-coordinator/pkg/taproot"
	"github.com/taurusgroup/frost-coordinator/protocols/frost"
	"github.com/taurusgroup/frost-coordinator/protocols/frost/aggregator"
	"github.com/taurusgroup/frost-coordinator/protocols/frost/keygen"
	"github.com/taurusgroup/frost-coordinator/protocols/frost/sign"
	"github.com/taurusgroup/frost-coordinator/protocols/frost/store"
)

const entity frost.EntityID = "entity-1"

var errFault = errors.New("disk on fire")

// faultyKeys fails the n-th write whenever fail(n) holds, counting from 1.
type faultyKeys struct {
	frost.AggregatorKeyStore
	mu     sync.Mutex
	writes int
	fail   func(n int) bool
}

func (f *faultyKeys) Set(ctx context.Context, e frost.EntityID, state *frost.AggregatorDkgState) error {
	f.mu.Lock()
	f.writes++
	n := f.writes
	f.mu.Unlock()
	if f.fail != nil && f.fail(n) {
		return frost.StorageError("set "+string(e), errFault)
	}
	return f.AggregatorKeyStore.Set(ctx, e, state)
}

// faultySessions fails writes like faultyKeys, and remembers the last session written.
type faultySessions struct {
	frost.AggregatorSessionStore
	mu      sync.Mutex
	writes  int
	fail    func(n int) bool
	session frost.SessionID
}

func (f *faultySessions) Set(ctx context.Context, e frost.EntityID, session frost.SessionID, record *frost.AggregatorSession) error {
	f.mu.Lock()
	f.writes++
	n := f.writes
	f.session = session
	f.mu.Unlock()
	if f.fail != nil && f.fail(n) {
		return frost.StorageError("set "+string(session), errFault)
	}
	return f.AggregatorSessionStore.Set(ctx, e, session, record)
}

func (f *faultySessions) last() frost.SessionID {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.session
}

func TestNewRejectsInvalidParameters(t *testing.T) {
	c := test.NewCluster(t, 3, 2)
	keys, sessions := store.NewAggregatorKeyStore(c.Backend), store.NewAggregatorSessionStore(c.Backend)

	_, err := aggregator.New(4, c.Clients, keys, sessions)
	assert.Error(t, err)
	_, err = aggregator.New(0, c.Clients, keys, sessions)
	assert.Error(t, err)
	_, err = aggregator.New(1, map[party.ID]frost.SignerClient{0: c.Clients[1]}, keys, sessions)
	assert.Error(t, err)
	_, err = aggregator.New(1, map[party.ID]frost.SignerClient{1: nil}, keys, sessions)
	assert.Error(t, err)
}

func TestDkgAgreement(t *testing.T) {
	ctx := context.Background()
	c := test.NewCluster(t, 5, 3)
	agg := c.NewAggregator(t)

	public, err := agg.RunDkgFlow(ctx, entity)
	require.NoError(t, err)
	assert.Equal(t, 3, public.Threshold)
	assert.Equal(t, c.IDs, public.Participants())

	// Every signer holds a share of the same key.
	for _, id := range c.IDs {
		mine, err := c.Signers[id].DkgFinalize(ctx, entity, nil, nil)
		require.NoError(t, err)
		assert.True(t, public.Equal(mine), "participant %s disagrees", id)
	}

	cached, err := agg.GetPublicKeyPackage(ctx, entity, nil)
	require.NoError(t, err)
	assert.True(t, public.Equal(cached))

	// A finalized entity is served from storage, without contacting signers.
	offline := make(map[party.ID]frost.SignerClient, len(c.IDs))
	for _, id := range c.IDs {
		offline[id] = test.Unreachable{ID: id}
	}
	c.Clients = offline
	again, err := c.NewAggregator(t).RunDkgFlow(ctx, entity)
	require.NoError(t, err)
	assert.True(t, public.Equal(again))
}

func TestDkgDistinctEntities(t *testing.T) {
	ctx := context.Background()
	c := test.NewCluster(t, 3, 2)
	agg := c.NewAggregator(t)

	a, err := agg.RunDkgFlow(ctx, "a")
	require.NoError(t, err)
	b, err := agg.RunDkgFlow(ctx, "b")
	require.NoError(t, err)
	assert.NotEqual(t, a.PublicKey, b.PublicKey)
}

func TestDkgParticipantFailure(t *testing.T) {
	ctx := context.Background()
	c := test.NewCluster(t, 3, 2)
	c.Clients[2] = test.Unreachable{ID: 2}
	agg := c.NewAggregator(t)

	_, err := agg.RunDkgFlow(ctx, entity)
	require.ErrorIs(t, err, frost.ErrDkgParticipantFailed)
	require.ErrorIs(t, err, frost.ErrSignerUnreachable)
	var failed *frost.DkgParticipantFailedError
	require.True(t, errors.As(err, &failed))
	assert.Equal(t, party.ID(2), failed.Participant)
	assert.Equal(t, frost.DkgRound1, failed.Phase)

	state, err := store.NewAggregatorKeyStore(c.Backend).Get(ctx, entity)
	require.NoError(t, err)
	assert.Nil(t, state, "failed round 1 was persisted")

	_, err = agg.GetPublicKeyPackage(ctx, entity, nil)
	assert.ErrorIs(t, err, frost.ErrSecretPackageMissing)
}

func TestDkgResumesAfterLostResponses(t *testing.T) {
	ctx := context.Background()
	c := test.NewCluster(t, 3, 2)
	flaky := test.NewFlaky(c.Signers[3], true)
	flaky.FailNext(test.MethodDkgRound2, 1)
	flaky.FailNext(test.MethodDkgFinalize, 1)
	c.Clients[3] = flaky
	agg := c.NewAggregator(t)

	_, err := agg.RunDkgFlow(ctx, entity)
	var failed *frost.DkgParticipantFailedError
	require.True(t, errors.As(err, &failed))
	assert.Equal(t, frost.DkgRound2, failed.Phase)

	_, err = agg.RunDkgFlow(ctx, entity)
	require.True(t, errors.As(err, &failed))
	assert.Equal(t, frost.DkgFinalized, failed.Phase)

	public, err := agg.RunDkgFlow(ctx, entity)
	require.NoError(t, err)

	result, err := agg.RunSigningFlow(ctx, entity, []byte("resumed"), nil, nil)
	require.NoError(t, err)
	assert.True(t, public.PublicKey.Verify(result.Signature, []byte("resumed")))
}

func TestDkgInconsistentResult(t *testing.T) {
	ctx := context.Background()
	c := test.NewCluster(t, 3, 2)
	c.Clients[1] = &test.Tampering{
		SignerClient: c.Signers[1],
		Finalize: func(p *keygen.PublicKeyPackage) *keygen.PublicKeyPackage {
			shares := make(map[party.ID]*curve.Point, len(p.VerificationShares))
			for id, Y := range p.VerificationShares {
				shares[id] = Y
			}
			shares[1] = curve.NewBasePoint()
			return &keygen.PublicKeyPackage{Threshold: p.Threshold, PublicKey: p.PublicKey, VerificationShares: shares}
		},
	}
	agg := c.NewAggregator(t)

	_, err := agg.RunDkgFlow(ctx, entity)
	assert.ErrorIs(t, err, frost.ErrDkgInconsistentResult)
}

func TestSigning(t *testing.T) {
	ctx := context.Background()
	c := test.NewCluster(t, 3, 2)
	agg := c.NewAggregator(t)
	public, err := agg.RunDkgFlow(ctx, entity)
	require.NoError(t, err)

	tweak := make([]byte, 32)
	_, _ = rand.Read(tweak)
	for _, tw := range [][]byte{nil, tweak} {
		message := []byte("message")
		result, err := agg.RunSigningFlow(ctx, entity, message, frost.Metadata{"purpose": "test"}, tw)
		require.NoError(t, err)
		assert.Len(t, result.Signers, 2)

		expected, err := public.PublicKey.Tweak(tw)
		require.NoError(t, err)
		assert.Equal(t, expected, result.PublicKey)
		assert.True(t, expected.Verify(result.Signature, message))
		assert.False(t, expected.Verify(result.Signature, []byte("other message")))

		tweaked, err := agg.GetPublicKeyPackage(ctx, entity, tw)
		require.NoError(t, err)
		assert.Equal(t, expected, tweaked.PublicKey)

		record, err := agg.GetSession(ctx, entity, result.Session)
		require.NoError(t, err)
		assert.Equal(t, frost.SigningCompleted, record.Phase)
		assert.Equal(t, result.Signature, record.Signature)
		assert.Equal(t, "test", record.Metadata["purpose"])
		assert.Len(t, record.Commitments, 2)
		assert.Len(t, record.Shares, 2)
	}

	_, err = agg.GetSession(ctx, entity, "unknown")
	assert.ErrorIs(t, err, frost.ErrSessionNotFound)
}

func TestSigningRequiresDkg(t *testing.T) {
	c := test.NewCluster(t, 3, 2)
	agg := c.NewAggregator(t)
	_, err := agg.RunSigningFlow(context.Background(), entity, []byte("m"), nil, nil)
	assert.ErrorIs(t, err, frost.ErrSecretPackageMissing)
}

func TestConcurrentSessions(t *testing.T) {
	ctx := context.Background()
	c := test.NewCluster(t, 3, 2)
	agg := c.NewAggregator(t)
	public, err := agg.RunDkgFlow(ctx, entity)
	require.NoError(t, err)

	const sessions = 8
	results := make([]*aggregator.SigningResult, sessions)
	var wg sync.WaitGroup
	for i := 0; i < sessions; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			r, err := agg.RunSigningFlow(ctx, entity, []byte{byte(i)}, nil, nil)
			assert.NoError(t, err)
			results[i] = r
		}(i)
	}
	wg.Wait()

	seenSessions := make(map[frost.SessionID]bool)
	seenNonces := make(map[string]bool)
	for i, r := range results {
		require.NotNil(t, r)
		assert.True(t, public.PublicKey.Verify(r.Signature, []byte{byte(i)}))
		assert.False(t, seenSessions[r.Session])
		seenSessions[r.Session] = true

		record, err := agg.GetSession(ctx, entity, r.Session)
		require.NoError(t, err)
		for _, commitment := range record.Commitments {
			key := commitment.Hiding.String()
			assert.False(t, seenNonces[key], "nonce reused across sessions")
			seenNonces[key] = true
		}
		// R is the x-only nonce, distinct for every session.
		for j := 0; j < i; j++ {
			assert.False(t, bytes.Equal(r.Signature[:32], results[j].Signature[:32]))
		}
	}
}

func TestThresholdTolerance(t *testing.T) {
	ctx := context.Background()
	c := test.NewCluster(t, 3, 2)
	public, err := c.NewAggregator(t).RunDkgFlow(ctx, entity)
	require.NoError(t, err)

	// One signer down: the other two are enough.
	c.Clients[2] = test.Unreachable{ID: 2}
	agg := c.NewAggregator(t)
	result, err := agg.RunSigningFlow(ctx, entity, []byte("one down"), nil, nil)
	require.NoError(t, err)
	assert.True(t, public.PublicKey.Verify(result.Signature, []byte("one down")))
	assert.Equal(t, party.IDSlice{1, 3}, result.Signers)

	// Two signers down: not enough.
	c.Clients[3] = test.Unreachable{ID: 3}
	agg = c.NewAggregator(t)
	_, err = agg.RunSigningFlow(ctx, entity, []byte("two down"), nil, nil)
	require.ErrorIs(t, err, frost.ErrInsufficientSigners)
	var insufficient *frost.InsufficientSignersError
	require.True(t, errors.As(err, &insufficient))
	assert.Equal(t, frost.SigningRound1, insufficient.Phase)
	assert.Equal(t, 2, insufficient.Needed)
	// The collector stops as soon as success is out of reach.
	assert.LessOrEqual(t, insufficient.Got, 1)
	assert.Len(t, insufficient.Failures, 2)
	assert.ErrorIs(t, insufficient.Failures[2], frost.ErrSignerUnreachable)
}

func TestSigningRound2Failure(t *testing.T) {
	ctx := context.Background()
	c := test.NewCluster(t, 3, 3)
	flaky := test.NewFlaky(c.Signers[2], false)
	c.Clients[2] = flaky
	agg := c.NewAggregator(t)
	_, err := agg.RunDkgFlow(ctx, entity)
	require.NoError(t, err)

	flaky.FailNext(test.MethodSignRound2, 1)
	_, err = agg.RunSigningFlow(ctx, entity, []byte("m"), nil, nil)
	var insufficient *frost.InsufficientSignersError
	require.True(t, errors.As(err, &insufficient))
	assert.Equal(t, frost.SigningRound2, insufficient.Phase)
	assert.Equal(t, 2, insufficient.Got)
	assert.Contains(t, insufficient.Failures, party.ID(2))

	// No automatic retry, a new flow succeeds.
	_, err = agg.RunSigningFlow(ctx, entity, []byte("m"), nil, nil)
	assert.NoError(t, err)
	assert.Equal(t, 2, flaky.Calls(test.MethodSignRound2))
}

func TestEndToEnd(t *testing.T) {
	ctx := context.Background()
	c := test.NewCluster(t, 3, 2)
	agg := c.NewAggregator(t)

	public, err := agg.RunDkgFlow(ctx, "entity-1")
	require.NoError(t, err)
	P := public.PublicKey

	message := []byte("hello")
	metadata := frost.Metadata{"request": "e2e"}
	S, err := agg.RunSigningFlow(ctx, "entity-1", message, metadata, nil)
	require.NoError(t, err)
	assert.True(t, P.Verify(S.Signature, message))

	tau := make([]byte, 32)
	_, err = rand.Read(tau)
	require.NoError(t, err)
	S2, err := agg.RunSigningFlow(ctx, "entity-1", message, metadata, tau)
	require.NoError(t, err)

	tweaked, err := P.Tweak(tau)
	require.NoError(t, err)
	assert.True(t, tweaked.Verify(S2.Signature, message))
	assert.NotEqual(t, S.Signature, S2.Signature)
	assert.Len(t, []byte(S2.Signature), taproot.SignatureLen)
}

func TestDkgStorageFailure(t *testing.T) {
	ctx := context.Background()
	// The n-th write persists round 1, round 2, then the finalized key.
	for i, persisted := range []frost.DkgPhase{frost.DkgUninitialized, frost.DkgRound1, frost.DkgRound2} {
		failAt := i + 1
		t.Run(fmt.Sprintf("write %d", failAt), func(t *testing.T) {
			c := test.NewCluster(t, 3, 2)
			keys := &faultyKeys{
				AggregatorKeyStore: store.NewAggregatorKeyStore(c.Backend),
				fail:               func(n int) bool { return n == failAt },
			}
			agg, err := aggregator.New(2, c.Clients, keys, store.NewAggregatorSessionStore(c.Backend))
			require.NoError(t, err)

			_, err = agg.RunDkgFlow(ctx, entity)
			require.ErrorIs(t, err, frost.ErrStorageUnavailable)
			assert.ErrorIs(t, err, errFault)

			state, err := store.NewAggregatorKeyStore(c.Backend).Get(ctx, entity)
			require.NoError(t, err)
			if persisted == frost.DkgUninitialized {
				assert.Nil(t, state)
			} else {
				require.NotNil(t, state)
				assert.Equal(t, persisted, state.Phase)
			}
			_, err = agg.GetPublicKeyPackage(ctx, entity, nil)
			assert.ErrorIs(t, err, frost.ErrSecretPackageMissing)

			// Once storage is back, the ceremony resumes where the signers are.
			public, err := agg.RunDkgFlow(ctx, entity)
			require.NoError(t, err)
			result, err := agg.RunSigningFlow(ctx, entity, []byte("recovered"), nil, nil)
			require.NoError(t, err)
			assert.True(t, public.PublicKey.Verify(result.Signature, []byte("recovered")))
		})
	}
}

func TestSigningStorageFailure(t *testing.T) {
	ctx := context.Background()
	c := test.NewCluster(t, 3, 2)
	_, err := c.NewAggregator(t).RunDkgFlow(ctx, entity)
	require.NoError(t, err)

	// The n-th write creates the session, then records commitments, shares
	// and the signature.
	for _, tt := range []struct {
		name   string
		failAt int
	}{
		{"session", 1},
		{"commitments", 2},
		{"shares", 3},
		{"signature", 4},
	} {
		t.Run(tt.name, func(t *testing.T) {
			sessions := &faultySessions{
				AggregatorSessionStore: store.NewAggregatorSessionStore(c.Backend),
				fail:                   func(n int) bool { return n == tt.failAt },
			}
			agg, err := aggregator.New(2, c.Clients, store.NewAggregatorKeyStore(c.Backend), sessions)
			require.NoError(t, err)

			_, err = agg.RunSigningFlow(ctx, entity, []byte("m"), nil, nil)
			require.ErrorIs(t, err, frost.ErrStorageUnavailable)

			record, err := agg.GetSession(ctx, entity, sessions.last())
			if tt.failAt == 1 {
				assert.ErrorIs(t, err, frost.ErrSessionNotFound)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, frost.SigningFailed, record.Phase)
			assert.Contains(t, record.Failure, errFault.Error())
		})
	}
}

func TestSigningBlamesInvalidShare(t *testing.T) {
	ctx := context.Background()
	c := test.NewCluster(t, 2, 2)
	_, err := c.NewAggregator(t).RunDkgFlow(ctx, entity)
	require.NoError(t, err)

	c.Clients[2] = &test.Tampering{
		SignerClient: c.Signers[2],
		Share: func(s *sign.SignatureShare) *sign.SignatureShare {
			return &sign.SignatureShare{ID: s.ID, Z: curve.NewScalar().Add(s.Z, s.Z)}
		},
	}
	sessions := &faultySessions{AggregatorSessionStore: store.NewAggregatorSessionStore(c.Backend)}
	agg, err := aggregator.New(2, c.Clients, store.NewAggregatorKeyStore(c.Backend), sessions)
	require.NoError(t, err)

	_, err = agg.RunSigningFlow(ctx, entity, []byte("m"), nil, nil)
	var insufficient *frost.InsufficientSignersError
	require.True(t, errors.As(err, &insufficient))
	assert.Equal(t, frost.SigningRound2, insufficient.Phase)
	assert.NotContains(t, insufficient.Failures, party.ID(1))
	require.Contains(t, insufficient.Failures, party.ID(2))
	assert.ErrorIs(t, insufficient.Failures[2], frost.ErrSignerProtocolError)
	var invalid *sign.InvalidShareError
	require.True(t, errors.As(insufficient.Failures[2], &invalid))
	assert.Equal(t, party.ID(2), invalid.ID)

	record, err := agg.GetSession(ctx, entity, sessions.last())
	require.NoError(t, err)
	assert.Equal(t, frost.SigningFailed, record.Phase)
}
