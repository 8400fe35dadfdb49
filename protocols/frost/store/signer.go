package store

import (
	"context"
	"errors"

	"github.com/taurusgroup/frost-coordinator/pkg/storage"
	"github.com/taurusgroup/frost-coordinator/protocols/frost"
)

// SignerKeyStore implements frost.SignerKeyStore.
type SignerKeyStore struct {
	backend storage.Backend
}

var _ frost.SignerKeyStore = (*SignerKeyStore)(nil)

// NewSignerKeyStore returns a key store writing to b.
func NewSignerKeyStore(b storage.Backend) *SignerKeyStore {
	return &SignerKeyStore{backend: b}
}

// Get implements frost.SignerKeyStore.
func (s *SignerKeyStore) Get(ctx context.Context, entity frost.EntityID) (*frost.SignerDkgState, error) {
	if err := validateEntity(entity); err != nil {
		return nil, err
	}
	return get[frost.SignerDkgState](ctx, s.backend, entityKey(signerKeyPrefix, entity))
}

// Set implements frost.SignerKeyStore.
func (s *SignerKeyStore) Set(ctx context.Context, entity frost.EntityID, state *frost.SignerDkgState) error {
	if err := validateEntity(entity); err != nil {
		return err
	}
	return put(ctx, s.backend, entityKey(signerKeyPrefix, entity), state)
}

// SignerSessionStore implements frost.SignerSessionStore.
type SignerSessionStore struct {
	backend storage.Backend
}

var _ frost.SignerSessionStore = (*SignerSessionStore)(nil)

// NewSignerSessionStore returns a session store writing to b.
func NewSignerSessionStore(b storage.Backend) *SignerSessionStore {
	return &SignerSessionStore{backend: b}
}

// Get implements frost.SignerSessionStore.
func (s *SignerSessionStore) Get(ctx context.Context, entity frost.EntityID, session frost.SessionID) (*frost.SignerSession, error) {
	if err := validateSession(entity, session); err != nil {
		return nil, err
	}
	return get[frost.SignerSession](ctx, s.backend, sessionKey(signerSessionPrefix, entity, session))
}

// Set implements frost.SignerSessionStore.
func (s *SignerSessionStore) Set(ctx context.Context, entity frost.EntityID, session frost.SessionID, state *frost.SignerSession) error {
	if err := validateSession(entity, session); err != nil {
		return err
	}
	return put(ctx, s.backend, sessionKey(signerSessionPrefix, entity, session), state)
}

// Delete implements frost.SignerSessionStore.
func (s *SignerSessionStore) Delete(ctx context.Context, entity frost.EntityID, session frost.SessionID) error {
	if err := validateSession(entity, session); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	key := sessionKey(signerSessionPrefix, entity, session)
	if err := s.backend.Delete(key); err != nil && !errors.Is(err, storage.ErrNotFound) {
		return backendError("delete "+key, err)
	}
	return nil
}

// List implements frost.SignerSessionStore.
func (s *SignerSessionStore) List(ctx context.Context) ([]frost.SessionKey, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	keys, err := s.backend.List(signerSessionPrefix)
	if err != nil {
		return nil, frost.StorageError("list "+signerSessionPrefix, err)
	}
	out := make([]frost.SessionKey, 0, len(keys))
	for _, key := range keys {
		if k, ok := parseSessionKey(signerSessionPrefix, key); ok {
			out = append(out, k)
		}
	}
	return out, nil
}
