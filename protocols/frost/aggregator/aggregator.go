// Package aggregator implements the coordinator side of the FROST protocols.
//
// The Aggregator drives DKG ceremonies and signing sessions by calling every
// participant through a frost.SignerClient. It only ever sees public data:
// commitments, encrypted shares, signature shares and public key packages.
package aggregator

import (
	"context"
	"fmt"

	"github.com/benbjohnson/clock"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/taurusgroup/frost-coordinator/internal/log"
	"github.com/taurusgroup/frost-coordinator/pkg/party"
	"github.com/taurusgroup/frost-coordinator/protocols/frost"
	"github.com/taurusgroup/frost-coordinator/protocols/frost/keygen"
	"go.uber.org/zap"
)

// DefaultCacheSize is the number of public key packages kept in memory.
const DefaultCacheSize = 1024

// Aggregator coordinates a fixed set of participants.
type Aggregator struct {
	threshold    int
	participants party.IDSlice
	// clients is read-only after New.
	clients map[party.ID]frost.SignerClient

	keys     frost.AggregatorKeyStore
	sessions frost.AggregatorSessionStore
	cache    *lru.Cache[frost.EntityID, *keygen.PublicKeyPackage]

	cacheSize int
	clock     clock.Clock
	logger    *zap.Logger
}

// Option configures an Aggregator.
type Option func(*Aggregator)

// WithLogger sets the logger, zap.NewNop() by default.
func WithLogger(logger *zap.Logger) Option {
	return func(a *Aggregator) { a.logger = logger }
}

// WithCacheSize sets the number of cached public key packages.
func WithCacheSize(size int) Option {
	return func(a *Aggregator) { a.cacheSize = size }
}

// WithClock sets the clock used to date sessions.
func WithClock(c clock.Clock) Option {
	return func(a *Aggregator) { a.clock = c }
}

// New creates an Aggregator for the participants in clients, threshold of
// which are needed to sign.
func New(threshold int, clients map[party.ID]frost.SignerClient, keys frost.AggregatorKeyStore, sessions frost.AggregatorSessionStore, opts ...Option) (*Aggregator, error) {
	participants := party.FromKeys(clients)
	if err := participants.Valid(); err != nil {
		return nil, fmt.Errorf("aggregator: %w", err)
	}
	if threshold < 1 || threshold > len(participants) {
		return nil, fmt.Errorf("aggregator: invalid threshold %d for %d participants", threshold, len(participants))
	}
	for id, c := range clients {
		if c == nil {
			return nil, fmt.Errorf("aggregator: nil client for %s", id)
		}
	}
	if keys == nil || sessions == nil {
		return nil, fmt.Errorf("aggregator: missing store")
	}

	a := &Aggregator{
		threshold:    threshold,
		participants: participants,
		clients:      make(map[party.ID]frost.SignerClient, len(clients)),
		keys:         keys,
		sessions:     sessions,
		cacheSize:    DefaultCacheSize,
		clock:        clock.New(),
		logger:       zap.NewNop(),
	}
	for id, c := range clients {
		a.clients[id] = c
	}
	for _, opt := range opts {
		opt(a)
	}
	cache, err := lru.New[frost.EntityID, *keygen.PublicKeyPackage](a.cacheSize)
	if err != nil {
		return nil, fmt.Errorf("aggregator: %w", err)
	}
	a.cache = cache
	return a, nil
}

// Threshold returns the number of signers needed to sign.
func (a *Aggregator) Threshold() int { return a.threshold }

// Participants returns the sorted identifiers of every participant.
func (a *Aggregator) Participants() party.IDSlice {
	return append(party.IDSlice(nil), a.participants...)
}

// finalized returns the public key package of entity, or nil if its DKG hasn't completed.
func (a *Aggregator) finalized(ctx context.Context, entity frost.EntityID) (*keygen.PublicKeyPackage, error) {
	if public, ok := a.cache.Get(entity); ok {
		return public, nil
	}
	state, err := a.keys.Get(ctx, entity)
	if err != nil {
		a.logger.Error("failed to load key state", log.Entity(entity), log.Err(err))
		return nil, err
	}
	if state == nil || state.Phase != frost.DkgFinalized || state.Finalized == nil {
		return nil, nil
	}
	a.cache.Add(entity, state.Finalized.PublicKeyPackage)
	return state.Finalized.PublicKeyPackage, nil
}

// GetPublicKeyPackage returns the public key package of entity, tweaked with tweak.
//
// This never contacts the signers.
func (a *Aggregator) GetPublicKeyPackage(ctx context.Context, entity frost.EntityID, tweak []byte) (*keygen.PublicKeyPackage, error) {
	if err := entity.Validate(); err != nil {
		return nil, err
	}
	public, err := a.finalized(ctx, entity)
	if err != nil {
		return nil, err
	}
	if public == nil {
		return nil, fmt.Errorf("%w: dkg for %s is not finalized", frost.ErrSecretPackageMissing, entity)
	}
	return public.Tweak(tweak)
}

// GetSession returns the audit record of a signing session.
func (a *Aggregator) GetSession(ctx context.Context, entity frost.EntityID, session frost.SessionID) (*frost.AggregatorSession, error) {
	record, err := a.sessions.Get(ctx, entity, session)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, fmt.Errorf("%w: %s/%s", frost.ErrSessionNotFound, entity, session)
	}
	return record, nil
}
