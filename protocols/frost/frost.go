// Package frost holds the domain types shared by the FROST coordinator and
// its signers: identifiers, the SignerClient capability, the persisted state
// of ceremonies, the storage contracts and the error taxonomy.
//
// The cryptography lives in the keygen and sign subpackages. The state
// machines driving it live in signer and aggregator.
package frost

import (
	"fmt"

	"github.com/google/uuid"
)

// EntityID names one long-lived threshold key, and the DKG ceremony producing it.
type EntityID string

// NewEntityID returns a fresh random entity identifier.
func NewEntityID() EntityID {
	return EntityID(uuid.NewString())
}

// Validate checks that the id is usable as a storage key.
func (e EntityID) Validate() error {
	if e == "" {
		return fmt.Errorf("frost: empty entity id")
	}
	return nil
}

func (e EntityID) String() string { return string(e) }

// SessionID names a single signing attempt.
//
// A retry of the same message uses a new SessionID.
type SessionID string

// NewSessionID returns a fresh random session identifier.
func NewSessionID() SessionID {
	return SessionID(uuid.NewString())
}

// Validate checks that the id is usable as a storage key.
func (s SessionID) Validate() error {
	if s == "" {
		return fmt.Errorf("frost: empty session id")
	}
	return nil
}

func (s SessionID) String() string { return string(s) }

// Metadata is opaque caller intent, carried to signers and persisted with each session.
type Metadata map[string]string

// Clone returns a copy of m.
func (m Metadata) Clone() Metadata {
	if m == nil {
		return nil
	}
	out := make(Metadata, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
