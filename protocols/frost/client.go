package frost

import (
	"context"

	"github.com/taurusgroup/frost-coordinator/pkg/party"
	"github.com/taurusgroup/frost-coordinator/protocols/frost/keygen"
	"github.com/taurusgroup/frost-coordinator/protocols/frost/sign"
)

// SignerClient is what the aggregator needs from one remote participant.
//
// Every call is idempotent under replay of the same round's inputs, so a
// caller may safely repeat a call whose outcome it didn't observe.
//
// Failures surface as ErrSignerUnreachable or ErrSignerProtocolError, or as
// the signer's own ErrSecretPackageMissing and ErrSessionNotFound.
type SignerClient interface {
	// DkgRound1 returns the participant's round 1 package for entity.
	DkgRound1(ctx context.Context, entity EntityID) (*keygen.Round1Package, error)
	// DkgRound2 returns the participant's encrypted shares, indexed by recipient.
	//
	// round1 must contain the package of every participant.
	DkgRound2(ctx context.Context, entity EntityID, round1 map[party.ID]*keygen.Round1Package) (map[party.ID]*keygen.Round2Package, error)
	// DkgFinalize completes the ceremony.
	//
	// round2 contains the packages addressed to this participant, indexed by sender.
	DkgFinalize(ctx context.Context, entity EntityID, round1 map[party.ID]*keygen.Round1Package, round2 map[party.ID]*keygen.Round2Package) (*keygen.PublicKeyPackage, error)
	// SignRound1 creates fresh nonces for session and returns their commitments.
	SignRound1(ctx context.Context, entity EntityID, session SessionID, tweak []byte, metadata Metadata) (*sign.Commitments, error)
	// SignRound2 returns the participant's signature share for pkg.
	SignRound2(ctx context.Context, entity EntityID, session SessionID, pkg *sign.SigningPackage) (*sign.SignatureShare, error)
}
