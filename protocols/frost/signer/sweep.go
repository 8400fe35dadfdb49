package signer

import (
	"context"
	"time"

	"github.com/taurusgroup/frost-coordinator/internal/log"
	"github.com/taurusgroup/frost-coordinator/internal/metrics"
	"go.uber.org/zap"
)

// SweepExpiredSessions deletes the sessions older than the session TTL, and
// returns how many were deleted.
func (s *Signer) SweepExpiredSessions(ctx context.Context) (int, error) {
	keys, err := s.sessions.List(ctx)
	if err != nil {
		return 0, err
	}
	now := s.clock.Now()
	swept := 0
	for _, k := range keys {
		state, err := s.sessions.Get(ctx, k.Entity, k.Session)
		if err != nil {
			return swept, err
		}
		if state == nil || now.Sub(state.CreatedAt) < s.sessionTTL {
			continue
		}
		if err := s.sessions.Delete(ctx, k.Entity, k.Session); err != nil {
			return swept, err
		}
		swept++
		s.logger.Debug("swept expired session", log.Entity(k.Entity), log.Session(k.Session))
	}
	if swept > 0 {
		metrics.SignerSessionsSweptTotal.Add(float64(swept))
		s.logger.Info("swept expired sessions", zap.Int("count", swept))
	}
	return swept, nil
}

// RunSweeper calls SweepExpiredSessions every interval, until ctx is cancelled.
func (s *Signer) RunSweeper(ctx context.Context, interval time.Duration) {
	ticker := s.clock.Ticker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.SweepExpiredSessions(ctx); err != nil && ctx.Err() == nil {
				s.logger.Warn("session sweep failed", log.Err(err))
			}
		}
	}
}
