// Package signer implements the participant side of the FROST coordinator.
//
// A Signer owns the secret state of one participant: its key share for every
// entity, and its nonces for every open signing session. Every call is
// idempotent under replay, so that the aggregator can safely repeat requests.
package signer

import (
	"context"
	"crypto/rand"
	"fmt"
	"io"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/taurusgroup/frost-coordinator/pkg/party"
	"github.com/taurusgroup/frost-coordinator/pkg/pool"
	"github.com/taurusgroup/frost-coordinator/protocols/frost"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// DefaultSessionTTL is how long nonces of an unfinished session are kept.
const DefaultSessionTTL = 5 * time.Minute

// Signer is one FROST participant.
type Signer struct {
	id           party.ID
	participants party.IDSlice
	threshold    int

	keys     frost.SignerKeyStore
	sessions frost.SignerSessionStore

	rand       io.Reader
	clock      clock.Clock
	logger     *zap.Logger
	pool       *pool.Pool
	sessionTTL time.Duration

	// flights collapses concurrent calls for the same entity and round, or
	// the same session and signing package.
	flights singleflight.Group
}

var _ frost.SignerClient = (*Signer)(nil)

// Option configures a Signer.
type Option func(*Signer)

// WithLogger sets the logger, zap.NewNop() by default.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Signer) { s.logger = logger }
}

// WithClock sets the clock used to date and expire sessions.
func WithClock(c clock.Clock) Option {
	return func(s *Signer) { s.clock = c }
}

// WithRand sets the source of randomness, crypto/rand by default.
func WithRand(r io.Reader) Option {
	return func(s *Signer) { s.rand = r }
}

// WithSessionTTL sets how long unfinished sessions are kept, DefaultSessionTTL by default.
func WithSessionTTL(ttl time.Duration) Option {
	return func(s *Signer) { s.sessionTTL = ttl }
}

// WithPool sets the worker pool used to verify DKG proofs.
func WithPool(pl *pool.Pool) Option {
	return func(s *Signer) { s.pool = pl }
}

// New creates the signer id, among participants, holding keys which need
// threshold signers to sign.
func New(id party.ID, participants []party.ID, threshold int, keys frost.SignerKeyStore, sessions frost.SignerSessionStore, opts ...Option) (*Signer, error) {
	ids := party.NewIDSlice(participants)
	if err := ids.Valid(); err != nil {
		return nil, fmt.Errorf("signer: %w", err)
	}
	if !ids.Contains(id) {
		return nil, fmt.Errorf("signer: %s is not a participant", id)
	}
	if threshold < 1 || threshold > len(ids) {
		return nil, fmt.Errorf("signer: invalid threshold %d for %d participants", threshold, len(ids))
	}
	if keys == nil || sessions == nil {
		return nil, fmt.Errorf("signer: missing store")
	}
	s := &Signer{
		id:           id,
		participants: ids,
		threshold:    threshold,
		keys:         keys,
		sessions:     sessions,
		rand:         rand.Reader,
		clock:        clock.New(),
		logger:       zap.NewNop(),
		sessionTTL:   DefaultSessionTTL,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With(zap.Uint16("self", uint16(id)))
	return s, nil
}

// ID returns the identifier of this participant.
func (s *Signer) ID() party.ID { return s.id }

// do runs fn once for all the concurrent callers sharing key.
//
// fn runs detached from the callers' cancellation, and each caller stops
// waiting as soon as its own ctx is done.
func (s *Signer) do(ctx context.Context, key string, fn func(context.Context) (interface{}, error)) (interface{}, error) {
	detached := context.WithoutCancel(ctx)
	ch := s.flights.DoChan(key, func() (interface{}, error) {
		return fn(detached)
	})
	select {
	case r := <-ch:
		return r.Val, r.Err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func protocolError(err error) error {
	return fmt.Errorf("%w: %w", frost.ErrSignerProtocolError, err)
}
