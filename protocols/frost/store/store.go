// Package store implements the frost storage contracts over a storage.Backend,
// encoding every record with cbor.
package store

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/fxamacker/cbor/v2"
	"github.com/taurusgroup/frost-coordinator/pkg/storage"
	"github.com/taurusgroup/frost-coordinator/protocols/frost"
)

const (
	signerKeyPrefix         = "signer/key/"
	signerSessionPrefix     = "signer/session/"
	aggregatorKeyPrefix     = "aggregator/key/"
	aggregatorSessionPrefix = "aggregator/session/"
	poolUnusedPrefix        = "pool/unused/"
)

// encMode sorts map keys, so that a record always encodes to the same bytes.
var encMode cbor.EncMode

func init() {
	var err error
	encMode, err = cbor.EncOptions{
		Sort: cbor.SortCanonical,
		Time: cbor.TimeRFC3339Nano,
	}.EncMode()
	if err != nil {
		panic(err)
	}
}

// segment encodes an id as one key segment. The unpadded base64url alphabet
// has no '.' or '/', so any id maps to a segment every backend accepts.
func segment(id string) string {
	return base64.RawURLEncoding.EncodeToString([]byte(id))
}

func parseSegment(s string) (string, bool) {
	id, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil || len(id) == 0 {
		return "", false
	}
	return string(id), true
}

func entityKey(prefix string, entity frost.EntityID) string {
	return prefix + segment(string(entity))
}

func sessionKey(prefix string, entity frost.EntityID, session frost.SessionID) string {
	return prefix + segment(string(entity)) + "/" + segment(string(session))
}

func parseEntityKey(prefix, key string) (frost.EntityID, bool) {
	entity, ok := parseSegment(strings.TrimPrefix(key, prefix))
	return frost.EntityID(entity), ok
}

func parseSessionKey(prefix, key string) (frost.SessionKey, bool) {
	rest := strings.TrimPrefix(key, prefix)
	entity, session, ok := strings.Cut(rest, "/")
	if !ok {
		return frost.SessionKey{}, false
	}
	e, ok1 := parseSegment(entity)
	s, ok2 := parseSegment(session)
	if !ok1 || !ok2 {
		return frost.SessionKey{}, false
	}
	return frost.SessionKey{Entity: frost.EntityID(e), Session: frost.SessionID(s)}, true
}

// backendError wraps a backend failure. A rejected key is a caller error, not
// an outage, so it doesn't match frost.ErrStorageUnavailable.
func backendError(op string, err error) error {
	if errors.Is(err, storage.ErrInvalidKey) {
		return fmt.Errorf("store: %s: %w", op, err)
	}
	return frost.StorageError(op, err)
}

// get decodes the record at key, returning nil if it doesn't exist.
func get[T any](ctx context.Context, b storage.Backend, key string) (*T, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := b.Get(key)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, backendError("get "+key, err)
	}
	var v T
	if err := cbor.Unmarshal(data, &v); err != nil {
		return nil, frost.StorageError("decode "+key, err)
	}
	return &v, nil
}

func put(ctx context.Context, b storage.Backend, key string, v interface{}) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := encMode.Marshal(v)
	if err != nil {
		return frost.StorageError("encode "+key, err)
	}
	if err := b.Put(key, data); err != nil {
		return backendError("put "+key, err)
	}
	return nil
}

func validateEntity(entity frost.EntityID) error {
	return entity.Validate()
}

func validateSession(entity frost.EntityID, session frost.SessionID) error {
	if err := entity.Validate(); err != nil {
		return err
	}
	return session.Validate()
}
