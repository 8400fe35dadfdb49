package frost

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/taurusgroup/frost-coordinator/pkg/party"
)

var (
	// ErrSignerUnreachable means a signer could not be contacted, or timed out.
	ErrSignerUnreachable = errors.New("frost: signer unreachable")
	// ErrSignerProtocolError means a signer rejected its input, or sent back something invalid.
	ErrSignerProtocolError = errors.New("frost: signer protocol error")
	// ErrSecretPackageMissing means the signer lacks the secret state a call requires.
	ErrSecretPackageMissing = errors.New("frost: secret package missing")
	// ErrSessionNotFound means the signer has no nonces for a session.
	ErrSessionNotFound = errors.New("frost: session not found")
	// ErrDkgParticipantFailed means a participant failed during a DKG ceremony.
	ErrDkgParticipantFailed = errors.New("frost: dkg participant failed")
	// ErrDkgInconsistentResult means participants disagree on the outcome of a DKG ceremony.
	ErrDkgInconsistentResult = errors.New("frost: dkg inconsistent result")
	// ErrInsufficientSigners means fewer than threshold signers could take part in a signature.
	ErrInsufficientSigners = errors.New("frost: insufficient signers")
	// ErrStorageUnavailable means a storage backend failed.
	ErrStorageUnavailable = errors.New("frost: storage unavailable")
)

// DkgParticipantFailedError identifies which participant made a DKG ceremony fail.
type DkgParticipantFailedError struct {
	Participant party.ID
	Phase       DkgPhase
	Err         error
}

func (e *DkgParticipantFailedError) Error() string {
	return fmt.Sprintf("frost: dkg participant %s failed in %s: %v", e.Participant, e.Phase, e.Err)
}

func (e *DkgParticipantFailedError) Unwrap() error { return e.Err }

// Is makes the error match ErrDkgParticipantFailed.
func (e *DkgParticipantFailedError) Is(target error) bool {
	return target == ErrDkgParticipantFailed
}

// InsufficientSignersError reports why a signing flow could not gather enough signers.
type InsufficientSignersError struct {
	Phase    SigningPhase
	Needed   int
	Got      int
	Failures map[party.ID]error
}

func (e *InsufficientSignersError) Error() string {
	ids := make(party.IDSlice, 0, len(e.Failures))
	for id := range e.Failures {
		ids = append(ids, id)
	}
	sort.Sort(ids)
	var b strings.Builder
	fmt.Fprintf(&b, "frost: insufficient signers in %s: needed %d, got %d", e.Phase, e.Needed, e.Got)
	for _, id := range ids {
		fmt.Fprintf(&b, "; %s: %v", id, e.Failures[id])
	}
	return b.String()
}

// Is makes the error match ErrInsufficientSigners.
func (e *InsufficientSignersError) Is(target error) bool {
	return target == ErrInsufficientSigners
}

// StorageError wraps a backend failure so that it matches ErrStorageUnavailable.
func StorageError(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrStorageUnavailable) {
		return err
	}
	return fmt.Errorf("%w: %s: %w", ErrStorageUnavailable, op, err)
}
