package store

import (
	"context"

	"github.com/taurusgroup/frost-coordinator/pkg/storage"
	"github.com/taurusgroup/frost-coordinator/protocols/frost"
)

// AggregatorKeyStore implements frost.AggregatorKeyStore.
type AggregatorKeyStore struct {
	backend storage.Backend
}

var _ frost.AggregatorKeyStore = (*AggregatorKeyStore)(nil)

// NewAggregatorKeyStore returns a key store writing to b.
func NewAggregatorKeyStore(b storage.Backend) *AggregatorKeyStore {
	return &AggregatorKeyStore{backend: b}
}

// Get implements frost.AggregatorKeyStore.
func (s *AggregatorKeyStore) Get(ctx context.Context, entity frost.EntityID) (*frost.AggregatorDkgState, error) {
	if err := validateEntity(entity); err != nil {
		return nil, err
	}
	return get[frost.AggregatorDkgState](ctx, s.backend, entityKey(aggregatorKeyPrefix, entity))
}

// Set implements frost.AggregatorKeyStore.
func (s *AggregatorKeyStore) Set(ctx context.Context, entity frost.EntityID, state *frost.AggregatorDkgState) error {
	if err := validateEntity(entity); err != nil {
		return err
	}
	return put(ctx, s.backend, entityKey(aggregatorKeyPrefix, entity), state)
}

// AggregatorSessionStore implements frost.AggregatorSessionStore.
type AggregatorSessionStore struct {
	backend storage.Backend
}

var _ frost.AggregatorSessionStore = (*AggregatorSessionStore)(nil)

// NewAggregatorSessionStore returns a session store writing to b.
func NewAggregatorSessionStore(b storage.Backend) *AggregatorSessionStore {
	return &AggregatorSessionStore{backend: b}
}

// Get implements frost.AggregatorSessionStore.
func (s *AggregatorSessionStore) Get(ctx context.Context, entity frost.EntityID, session frost.SessionID) (*frost.AggregatorSession, error) {
	if err := validateSession(entity, session); err != nil {
		return nil, err
	}
	return get[frost.AggregatorSession](ctx, s.backend, sessionKey(aggregatorSessionPrefix, entity, session))
}

// Set implements frost.AggregatorSessionStore.
func (s *AggregatorSessionStore) Set(ctx context.Context, entity frost.EntityID, session frost.SessionID, state *frost.AggregatorSession) error {
	if err := validateSession(entity, session); err != nil {
		return err
	}
	return put(ctx, s.backend, sessionKey(aggregatorSessionPrefix, entity, session), state)
}
