package frost

import (
	"time"

	"github.com/taurusgroup/frost-coordinator/pkg/party"
	"github.com/taurusgroup/frost-coordinator/pkg/taproot"
	"github.com/taurusgroup/frost-coordinator/protocols/frost/keygen"
	"github.com/taurusgroup/frost-coordinator/protocols/frost/sign"
)

// DkgPhase is the progress of a DKG ceremony for one entity.
type DkgPhase uint8

const (
	DkgUninitialized DkgPhase = iota
	DkgRound1
	DkgRound2
	DkgFinalized
)

func (p DkgPhase) String() string {
	switch p {
	case DkgUninitialized:
		return "uninitialized"
	case DkgRound1:
		return "round1"
	case DkgRound2:
		return "round2"
	case DkgFinalized:
		return "finalized"
	default:
		return "unknown"
	}
}

// SignerDkgRound1 is what a signer keeps after round 1.
type SignerDkgRound1 struct {
	Secret  *keygen.Round1Secret
	Package *keygen.Round1Package
}

// SignerDkgRound2 is what a signer keeps after round 2.
//
// The round 1 polynomial is gone, only the public outputs of round 1 remain.
type SignerDkgRound2 struct {
	Secret         *keygen.Round2Secret
	Round1Package  *keygen.Round1Package
	Round2Packages map[party.ID]*keygen.Round2Package
}

// SignerDkgFinalized is what a signer keeps once the ceremony completed.
type SignerDkgFinalized struct {
	KeyPackage       *keygen.KeyPackage
	PublicKeyPackage *keygen.PublicKeyPackage
	Round1Package    *keygen.Round1Package
	Round2Packages   map[party.ID]*keygen.Round2Package
}

// SignerDkgState is the secret, per entity state of a signer.
//
// Exactly one of the variants is set, matching Phase.
type SignerDkgState struct {
	Phase     DkgPhase
	Round1    *SignerDkgRound1    `cbor:",omitempty"`
	Round2    *SignerDkgRound2    `cbor:",omitempty"`
	Finalized *SignerDkgFinalized `cbor:",omitempty"`
}

// Round1Package returns the package this signer published in round 1, if any.
func (s *SignerDkgState) Round1Package() *keygen.Round1Package {
	switch {
	case s == nil:
		return nil
	case s.Phase == DkgRound1 && s.Round1 != nil:
		return s.Round1.Package
	case s.Phase == DkgRound2 && s.Round2 != nil:
		return s.Round2.Round1Package
	case s.Phase == DkgFinalized && s.Finalized != nil:
		return s.Finalized.Round1Package
	}
	return nil
}

// Round2Packages returns the packages this signer produced in round 2, if any.
func (s *SignerDkgState) Round2Packages() map[party.ID]*keygen.Round2Package {
	switch {
	case s == nil:
		return nil
	case s.Phase == DkgRound2 && s.Round2 != nil:
		return s.Round2.Round2Packages
	case s.Phase == DkgFinalized && s.Finalized != nil:
		return s.Finalized.Round2Packages
	}
	return nil
}

// AggregatorDkgRound1 holds the round 1 packages of every participant.
type AggregatorDkgRound1 struct {
	Round1Packages map[party.ID]*keygen.Round1Package
}

// AggregatorDkgRound2 also holds the round 2 packages, indexed by sender then recipient.
type AggregatorDkgRound2 struct {
	Round1Packages map[party.ID]*keygen.Round1Package
	Round2Packages map[party.ID]map[party.ID]*keygen.Round2Package
}

// AggregatorDkgFinalized holds the outcome of the ceremony.
type AggregatorDkgFinalized struct {
	PublicKeyPackage *keygen.PublicKeyPackage
}

// AggregatorDkgState is the public, per entity state of the aggregator.
//
// Exactly one of the variants is set, matching Phase.
type AggregatorDkgState struct {
	Phase     DkgPhase
	Round1    *AggregatorDkgRound1    `cbor:",omitempty"`
	Round2    *AggregatorDkgRound2    `cbor:",omitempty"`
	Finalized *AggregatorDkgFinalized `cbor:",omitempty"`
}

// SignerSession is the secret state of a signer between both signing rounds.
type SignerSession struct {
	Nonces      *sign.Nonces
	Commitments *sign.Commitments
	Tweak       []byte
	Metadata    Metadata
	CreatedAt   time.Time
}

// SigningPhase is the progress of a signing session on the aggregator.
type SigningPhase uint8

const (
	SigningRound1 SigningPhase = iota + 1
	SigningRound2
	SigningCompleted
	SigningFailed
)

func (p SigningPhase) String() string {
	switch p {
	case SigningRound1:
		return "round1"
	case SigningRound2:
		return "round2"
	case SigningCompleted:
		return "completed"
	case SigningFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// AggregatorSession is the audit record of one signing attempt.
type AggregatorSession struct {
	Phase       SigningPhase
	Message     []byte
	Tweak       []byte
	Metadata    Metadata
	Commitments map[party.ID]*sign.Commitments     `cbor:",omitempty"`
	Shares      map[party.ID]*sign.SignatureShare `cbor:",omitempty"`
	Signature   taproot.Signature                 `cbor:",omitempty"`
	Failure     string                            `cbor:",omitempty"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
