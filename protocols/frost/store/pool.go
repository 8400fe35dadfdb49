package store

import (
	"context"
	"errors"

	"github.com/taurusgroup/frost-coordinator/pkg/storage"
	"github.com/taurusgroup/frost-coordinator/protocols/frost"
)

// EntityPool implements frost.EntityPool with one marker key per unused entity.
type EntityPool struct {
	backend storage.Backend
}

var _ frost.EntityPool = (*EntityPool)(nil)

// NewEntityPool returns a pool writing its markers to b.
func NewEntityPool(b storage.Backend) *EntityPool {
	return &EntityPool{backend: b}
}

// CountUnused implements frost.EntityPool.
func (p *EntityPool) CountUnused(ctx context.Context) (uint64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	keys, err := p.backend.List(poolUnusedPrefix)
	if err != nil {
		return 0, frost.StorageError("list "+poolUnusedPrefix, err)
	}
	return uint64(len(keys)), nil
}

// Add implements frost.EntityPool.
func (p *EntityPool) Add(ctx context.Context, entity frost.EntityID) error {
	if err := validateEntity(entity); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	key := entityKey(poolUnusedPrefix, entity)
	if err := p.backend.Put(key, []byte(entity)); err != nil {
		return backendError("put "+key, err)
	}
	return nil
}

// Claim implements frost.EntityPool.
//
// Whoever deletes an entity's marker owns it. Losing a race moves on to the
// next candidate.
func (p *EntityPool) Claim(ctx context.Context) (frost.EntityID, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}
	keys, err := p.backend.List(poolUnusedPrefix)
	if err != nil {
		return "", false, frost.StorageError("list "+poolUnusedPrefix, err)
	}
	for _, key := range keys {
		entity, ok := parseEntityKey(poolUnusedPrefix, key)
		if !ok {
			continue
		}
		err := p.backend.Delete(key)
		if errors.Is(err, storage.ErrNotFound) {
			continue
		}
		if err != nil {
			return "", false, backendError("delete "+key, err)
		}
		return entity, true, nil
	}
	return "", false, nil
}
