package frost

import "context"

// SignerKeyStore persists the DKG state of a signer.
//
// For every store in this package, Get returns (nil, nil) for a missing key,
// Set overwrites, and backend failures match ErrStorageUnavailable.
type SignerKeyStore interface {
	Get(ctx context.Context, entity EntityID) (*SignerDkgState, error)
	Set(ctx context.Context, entity EntityID, state *SignerDkgState) error
}

// SessionKey identifies a signing session.
type SessionKey struct {
	Entity  EntityID
	Session SessionID
}

// SignerSessionStore persists the nonces of a signer between both signing rounds.
type SignerSessionStore interface {
	Get(ctx context.Context, entity EntityID, session SessionID) (*SignerSession, error)
	Set(ctx context.Context, entity EntityID, session SessionID, state *SignerSession) error
	// Delete erases a session. Deleting a missing session is not an error.
	Delete(ctx context.Context, entity EntityID, session SessionID) error
	// List returns the keys of every stored session.
	List(ctx context.Context) ([]SessionKey, error)
}

// AggregatorKeyStore persists the DKG state of the aggregator.
type AggregatorKeyStore interface {
	Get(ctx context.Context, entity EntityID) (*AggregatorDkgState, error)
	Set(ctx context.Context, entity EntityID, state *AggregatorDkgState) error
}

// AggregatorSessionStore persists the audit record of every signing attempt.
type AggregatorSessionStore interface {
	Get(ctx context.Context, entity EntityID, session SessionID) (*AggregatorSession, error)
	Set(ctx context.Context, entity EntityID, session SessionID, state *AggregatorSession) error
}

// EntityPool tracks entities whose DKG completed but which no caller claimed yet.
type EntityPool interface {
	// CountUnused returns the number of unclaimed entities.
	CountUnused(ctx context.Context) (uint64, error)
	// Add marks entity as available.
	Add(ctx context.Context, entity EntityID) error
	// Claim removes and returns an available entity.
	//
	// ok is false when the pool is empty. No entity is returned twice.
	Claim(ctx context.Context) (entity EntityID, ok bool, err error)
}
