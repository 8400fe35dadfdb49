package aggregator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/taurusgroup/frost-coordinator/internal/log"
	"github.com/taurusgroup/frost-coordinator/internal/metrics"
	"github.com/taurusgroup/frost-coordinator/pkg/party"
	"github.com/taurusgroup/frost-coordinator/pkg/taproot"
	"github.com/taurusgroup/frost-coordinator/protocols/frost"
	"github.com/taurusgroup/frost-coordinator/protocols/frost/keygen"
	"github.com/taurusgroup/frost-coordinator/protocols/frost/sign"
	"go.uber.org/zap"
)

// SigningResult is the outcome of a successful signing flow.
type SigningResult struct {
	Session   frost.SessionID
	Signature taproot.Signature
	// PublicKey is the key the signature verifies under, tweaked if a tweak was given.
	PublicKey taproot.PublicKey
	Signers   party.IDSlice
}

type commitmentResult struct {
	id          party.ID
	commitments *sign.Commitments
	err         error
}

// RunSigningFlow signs message with the key of entity.
//
// A nil tweak signs with the untweaked key. Every call uses a new session,
// there is no automatic retry.
func (a *Aggregator) RunSigningFlow(ctx context.Context, entity frost.EntityID, message []byte, metadata frost.Metadata, tweak []byte) (_ *SigningResult, err error) {
	if err := entity.Validate(); err != nil {
		return nil, err
	}
	public, err := a.finalized(ctx, entity)
	if err != nil {
		return nil, err
	}
	if public == nil {
		return nil, fmt.Errorf("%w: dkg for %s is not finalized", frost.ErrSecretPackageMissing, entity)
	}
	tweaked, err := public.Tweak(tweak)
	if err != nil {
		return nil, err
	}

	session := frost.NewSessionID()
	logger := a.logger.With(log.Entity(entity), log.Session(session))
	start := time.Now()
	defer func() { metrics.RecordSigning(start, err) }()

	now := a.clock.Now().UTC()
	record := &frost.AggregatorSession{
		Phase:     frost.SigningRound1,
		Message:   append([]byte(nil), message...),
		Tweak:     append([]byte(nil), tweak...),
		Metadata:  metadata.Clone(),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := a.saveSession(ctx, entity, session, record, logger); err != nil {
		return nil, err
	}

	commitments, err := a.collectCommitments(ctx, entity, session, tweak, metadata, logger)
	if err != nil {
		a.fail(ctx, entity, session, record, err, logger)
		return nil, err
	}
	record.Commitments = commitments
	if err := a.saveSession(ctx, entity, session, record, logger); err != nil {
		a.fail(ctx, entity, session, record, err, logger)
		return nil, err
	}
	logger.Debug("completed sign round 1", log.Phase(frost.SigningRound1))

	pkg := &sign.SigningPackage{
		Message:     record.Message,
		Commitments: commitments,
		Tweak:       record.Tweak,
	}
	record.Phase = frost.SigningRound2
	shares, err := a.collectShares(ctx, entity, session, pkg, public, logger)
	if err != nil {
		a.fail(ctx, entity, session, record, err, logger)
		return nil, err
	}
	record.Shares = shares
	if err := a.saveSession(ctx, entity, session, record, logger); err != nil {
		a.fail(ctx, entity, session, record, err, logger)
		return nil, err
	}
	logger.Debug("completed sign round 2", log.Phase(frost.SigningRound2))

	sig, err := sign.Aggregate(pkg, shares, public)
	if err != nil {
		err = fmt.Errorf("%w: %w", frost.ErrSignerProtocolError, err)
		a.fail(ctx, entity, session, record, err, logger)
		return nil, err
	}

	record.Phase = frost.SigningCompleted
	record.Signature = sig
	if err := a.saveSession(ctx, entity, session, record, logger); err != nil {
		a.fail(ctx, entity, session, record, err, logger)
		return nil, err
	}
	logger.Info("completed signing")
	return &SigningResult{
		Session:   session,
		Signature: sig,
		PublicKey: tweaked.PublicKey,
		Signers:   pkg.Signers(),
	}, nil
}

// collectCommitments asks every participant for commitments, and keeps the
// first threshold to answer.
//
// The remaining calls are cancelled as soon as the outcome is known.
func (a *Aggregator) collectCommitments(ctx context.Context, entity frost.EntityID, session frost.SessionID, tweak []byte, metadata frost.Metadata, logger *zap.Logger) (map[party.ID]*sign.Commitments, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	results := make(chan commitmentResult, len(a.participants))
	for _, id := range a.participants {
		client := a.clients[id]
		go func(id party.ID) {
			c, err := client.SignRound1(ctx, entity, session, tweak, metadata.Clone())
			if err == nil && (c == nil || c.ID != id) {
				err = invalidResponse("commitments not from %s", id)
			}
			metrics.RecordSignerRequest(id.String(), "SignRound1", err)
			results <- commitmentResult{id: id, commitments: c, err: err}
		}(id)
	}

	chosen := make(map[party.ID]*sign.Commitments, a.threshold)
	failures := make(map[party.ID]error)
	for pending := len(a.participants); pending > 0; pending-- {
		// Stop once we have enough, or once enough is out of reach.
		if len(chosen) == a.threshold || len(chosen)+pending < a.threshold {
			break
		}
		var r commitmentResult
		select {
		case r = <-results:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		if r.err != nil {
			failures[r.id] = r.err
			logger.Warn("signer failed", log.Participant(r.id), log.Phase(frost.SigningRound1), log.Err(r.err))
			continue
		}
		chosen[r.id] = r.commitments
	}
	if len(chosen) < a.threshold {
		return nil, &frost.InsufficientSignersError{
			Phase:    frost.SigningRound1,
			Needed:   a.threshold,
			Got:      len(chosen),
			Failures: failures,
		}
	}
	return chosen, nil
}

// collectShares asks every chosen signer for its share. All of them must
// answer with a share that verifies, so that a bad share is blamed on its signer.
func (a *Aggregator) collectShares(ctx context.Context, entity frost.EntityID, session frost.SessionID, pkg *sign.SigningPackage, public *keygen.PublicKeyPackage, logger *zap.Logger) (map[party.ID]*sign.SignatureShare, error) {
	signers := pkg.Signers()
	var (
		mu       sync.Mutex
		wg       sync.WaitGroup
		shares   = make(map[party.ID]*sign.SignatureShare, len(signers))
		failures = make(map[party.ID]error)
	)
	for _, id := range signers {
		client := a.clients[id]
		wg.Add(1)
		go func(id party.ID) {
			defer wg.Done()
			share, err := client.SignRound2(ctx, entity, session, pkg)
			if err == nil && (share == nil || share.ID != id || share.Z == nil) {
				err = invalidResponse("signature share not from %s", id)
			}
			if err == nil {
				if verr := sign.VerifyShare(pkg, share, public); verr != nil {
					err = fmt.Errorf("%w: %w", frost.ErrSignerProtocolError, verr)
				}
			}
			metrics.RecordSignerRequest(id.String(), "SignRound2", err)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				failures[id] = err
				logger.Warn("signer failed", log.Participant(id), log.Phase(frost.SigningRound2), log.Err(err))
				return
			}
			shares[id] = share
		}(id)
	}
	wg.Wait()
	if len(failures) > 0 {
		return nil, &frost.InsufficientSignersError{
			Phase:    frost.SigningRound2,
			Needed:   len(signers),
			Got:      len(shares),
			Failures: failures,
		}
	}
	return shares, nil
}

func (a *Aggregator) saveSession(ctx context.Context, entity frost.EntityID, session frost.SessionID, record *frost.AggregatorSession, logger *zap.Logger) error {
	record.UpdatedAt = a.clock.Now().UTC()
	if err := a.sessions.Set(ctx, entity, session, record); err != nil {
		logger.Error("failed to persist session", log.Phase(record.Phase), log.Err(err))
		return err
	}
	return nil
}

// fail records the failure of a session. The original error is what the caller returns.
func (a *Aggregator) fail(ctx context.Context, entity frost.EntityID, session frost.SessionID, record *frost.AggregatorSession, cause error, logger *zap.Logger) {
	logger.Warn("signing failed", log.Phase(record.Phase), log.Err(cause))
	record.Phase = frost.SigningFailed
	record.Failure = cause.Error()
	// The flow's context may be what failed.
	_ = a.saveSession(context.WithoutCancel(ctx), entity, session, record, logger)
}
