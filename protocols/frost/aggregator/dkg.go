package aggregator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/taurusgroup/frost-coordinator/internal/log"
	"github.com/taurusgroup/frost-coordinator/internal/metrics"
	"github.com/taurusgroup/frost-coordinator/pkg/party"
	"github.com/taurusgroup/frost-coordinator/protocols/frost"
	"github.com/taurusgroup/frost-coordinator/protocols/frost/keygen"
	"golang.org/x/sync/errgroup"
)

// fanOut calls f for every participant concurrently, and requires all of them to succeed.
//
// The first failure cancels the other calls, and is returned as a
// *frost.DkgParticipantFailedError.
func fanOut[T any](ctx context.Context, a *Aggregator, phase frost.DkgPhase, method string, f func(context.Context, party.ID, frost.SignerClient) (T, error)) (map[party.ID]T, error) {
	g, gctx := errgroup.WithContext(ctx)
	var mu sync.Mutex
	results := make(map[party.ID]T, len(a.participants))
	for _, id := range a.participants {
		client := a.clients[id]
		g.Go(func() error {
			res, err := f(gctx, id, client)
			metrics.RecordSignerRequest(id.String(), method, err)
			if err != nil {
				return &frost.DkgParticipantFailedError{Participant: id, Phase: phase, Err: err}
			}
			mu.Lock()
			results[id] = res
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func invalidResponse(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", frost.ErrSignerProtocolError, fmt.Sprintf(format, args...))
}

// RunDkgFlow runs the DKG ceremony for entity, returning its public key package.
//
// Calling it again for a finalized entity returns the stored package without
// contacting the signers. A failed ceremony can be run again, each signer
// replaying the rounds it already completed.
func (a *Aggregator) RunDkgFlow(ctx context.Context, entity frost.EntityID) (_ *keygen.PublicKeyPackage, err error) {
	if err := entity.Validate(); err != nil {
		return nil, err
	}
	public, err := a.finalized(ctx, entity)
	if err != nil || public != nil {
		return public, err
	}

	start := time.Now()
	defer func() {
		metrics.RecordDkg(start, err)
		if err != nil {
			a.logger.Warn("dkg failed", log.Entity(entity), log.Err(err))
		}
	}()

	// Round 1: collect commitments and proofs.
	round1, err := fanOut(ctx, a, frost.DkgRound1, "DkgRound1", func(ctx context.Context, id party.ID, c frost.SignerClient) (*keygen.Round1Package, error) {
		pkg, err := c.DkgRound1(ctx, entity)
		if err != nil {
			return nil, err
		}
		if pkg == nil || pkg.ID != id {
			return nil, invalidResponse("round 1 package not from %s", id)
		}
		return pkg, nil
	})
	if err != nil {
		return nil, err
	}
	if err := a.keys.Set(ctx, entity, &frost.AggregatorDkgState{
		Phase:  frost.DkgRound1,
		Round1: &frost.AggregatorDkgRound1{Round1Packages: round1},
	}); err != nil {
		a.logger.Error("failed to persist dkg state", log.Entity(entity), log.Phase(frost.DkgRound1), log.Err(err))
		return nil, err
	}
	a.logger.Debug("completed dkg round 1", log.Entity(entity))

	// Round 2: collect the encrypted shares, indexed by sender then recipient.
	round2, err := fanOut(ctx, a, frost.DkgRound2, "DkgRound2", func(ctx context.Context, id party.ID, c frost.SignerClient) (map[party.ID]*keygen.Round2Package, error) {
		out, err := c.DkgRound2(ctx, entity, round1)
		if err != nil {
			return nil, err
		}
		if err := party.MatchKeys(a.participants.Remove(id), out); err != nil {
			return nil, invalidResponse("round 2 packages from %s: %v", id, err)
		}
		for to, pkg := range out {
			if pkg == nil || pkg.From != id || pkg.To != to {
				return nil, invalidResponse("misaddressed round 2 package from %s", id)
			}
		}
		return out, nil
	})
	if err != nil {
		return nil, err
	}
	if err := a.keys.Set(ctx, entity, &frost.AggregatorDkgState{
		Phase: frost.DkgRound2,
		Round2: &frost.AggregatorDkgRound2{
			Round1Packages: round1,
			Round2Packages: round2,
		},
	}); err != nil {
		a.logger.Error("failed to persist dkg state", log.Entity(entity), log.Phase(frost.DkgRound2), log.Err(err))
		return nil, err
	}
	a.logger.Debug("completed dkg round 2", log.Entity(entity))

	inbox := make(map[party.ID]map[party.ID]*keygen.Round2Package, len(a.participants))
	for _, id := range a.participants {
		inbox[id] = make(map[party.ID]*keygen.Round2Package, len(a.participants)-1)
	}
	for from, out := range round2 {
		for to, pkg := range out {
			inbox[to][from] = pkg
		}
	}

	// Finalize: every participant must agree with the outcome computed from the commitments.
	expected, err := keygen.PublicKeyPackageFromRound1(a.threshold, round1)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", frost.ErrDkgInconsistentResult, err)
	}
	results, err := fanOut(ctx, a, frost.DkgFinalized, "DkgFinalize", func(ctx context.Context, id party.ID, c frost.SignerClient) (*keygen.PublicKeyPackage, error) {
		return c.DkgFinalize(ctx, entity, round1, inbox[id])
	})
	if err != nil {
		return nil, err
	}
	for _, id := range a.participants {
		if !expected.Equal(results[id]) {
			return nil, fmt.Errorf("%w: participant %s disagrees on the public key package", frost.ErrDkgInconsistentResult, id)
		}
	}

	if err := a.keys.Set(ctx, entity, &frost.AggregatorDkgState{
		Phase:     frost.DkgFinalized,
		Finalized: &frost.AggregatorDkgFinalized{PublicKeyPackage: expected},
	}); err != nil {
		a.logger.Error("failed to persist dkg state", log.Entity(entity), log.Phase(frost.DkgFinalized), log.Err(err))
		return nil, err
	}
	a.cache.Add(entity, expected)
	a.logger.Info("completed dkg", log.Entity(entity))
	return expected, nil
}
