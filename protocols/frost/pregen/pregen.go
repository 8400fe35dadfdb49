// Package pregen keeps a warm pool of entities whose DKG already completed,
// so that callers needing a new key can claim one without waiting for a ceremony.
package pregen

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/taurusgroup/frost-coordinator/internal/log"
	"github.com/taurusgroup/frost-coordinator/internal/metrics"
	"github.com/taurusgroup/frost-coordinator/protocols/frost"
	"github.com/taurusgroup/frost-coordinator/protocols/frost/keygen"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Runner runs DKG ceremonies. *aggregator.Aggregator implements it.
type Runner interface {
	RunDkgFlow(ctx context.Context, entity frost.EntityID) (*keygen.PublicKeyPackage, error)
}

// Config controls the size of the pool, and how fast it is refilled.
type Config struct {
	// Interval between two refills.
	Interval time.Duration
	// MinThreshold is the number of unused entities to maintain.
	MinThreshold uint64
	// ShutdownGraceIntervals is how many intervals Run waits for in-flight
	// ceremonies on shutdown, before cancelling them.
	ShutdownGraceIntervals int
	// LaunchRate limits how many ceremonies are started per second. Zero means no limit.
	LaunchRate float64
}

// Validate checks the configuration.
func (c Config) Validate() error {
	switch {
	case c.Interval <= 0:
		return fmt.Errorf("pregen: interval must be positive")
	case c.ShutdownGraceIntervals < 0:
		return fmt.Errorf("pregen: negative shutdown grace")
	case c.LaunchRate < 0:
		return fmt.Errorf("pregen: negative launch rate")
	}
	return nil
}

// Batch reports what one refill did.
type Batch struct {
	// Epoch numbers the refills of one Thread, starting at 1.
	Epoch    uint64
	Unused   uint64
	InFlight uint64
	Launched uint64
}

// Thread refills an entity pool.
type Thread struct {
	runner  Runner
	pool    frost.EntityPool
	cfg     Config
	limiter *rate.Limiter
	clock   clock.Clock
	logger  *zap.Logger

	epoch    atomic.Uint64
	inFlight atomic.Int64

	// ceremonies outlive the refill that launched them, and are only
	// cancelled on shutdown.
	ceremonies     context.Context
	stopCeremonies context.CancelFunc
	wg             sync.WaitGroup
}

// Option configures a Thread.
type Option func(*Thread)

// WithLogger sets the logger, zap.NewNop() by default.
func WithLogger(logger *zap.Logger) Option {
	return func(t *Thread) { t.logger = logger }
}

// WithClock sets the clock driving Run.
func WithClock(c clock.Clock) Option {
	return func(t *Thread) { t.clock = c }
}

// New creates a Thread filling pool with entities created by runner.
func New(runner Runner, pool frost.EntityPool, cfg Config, opts ...Option) (*Thread, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if runner == nil || pool == nil {
		return nil, fmt.Errorf("pregen: missing runner or pool")
	}
	limit := rate.Inf
	if cfg.LaunchRate > 0 {
		limit = rate.Limit(cfg.LaunchRate)
	}
	t := &Thread{
		runner:  runner,
		pool:    pool,
		cfg:     cfg,
		limiter: rate.NewLimiter(limit, 1),
		clock:   clock.New(),
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(t)
	}
	t.ceremonies, t.stopCeremonies = context.WithCancel(context.Background())
	return t, nil
}

// InFlight returns the number of ceremonies currently running.
func (t *Thread) InFlight() uint64 {
	return uint64(t.inFlight.Load())
}

// RunOnce launches enough ceremonies for the pool to reach MinThreshold,
// counting the ones still running.
//
// It returns once the ceremonies are launched, not completed.
func (t *Thread) RunOnce(ctx context.Context) (Batch, error) {
	batch := Batch{Epoch: t.epoch.Add(1)}
	logger := t.logger.With(log.Epoch(batch.Epoch))

	unused, err := t.pool.CountUnused(ctx)
	if err != nil {
		logger.Error("failed to count unused entities", log.Err(err))
		return batch, err
	}
	metrics.PregenUnusedEntities.Set(float64(unused))
	batch.Unused = unused
	batch.InFlight = t.InFlight()

	if have := batch.Unused + batch.InFlight; have < t.cfg.MinThreshold {
		missing := t.cfg.MinThreshold - have
		for ; batch.Launched < missing; batch.Launched++ {
			if err := t.limiter.Wait(ctx); err != nil {
				logger.Debug("stopped launching ceremonies", log.Err(err))
				break
			}
			if t.ceremonies.Err() != nil {
				break
			}
			t.launch(logger)
		}
	}
	if batch.Launched > 0 {
		logger.Info("launched ceremonies",
			zap.Uint64("unused", batch.Unused),
			zap.Uint64("in_flight", batch.InFlight),
			zap.Uint64("launched", batch.Launched))
	}
	return batch, nil
}

func (t *Thread) launch(logger *zap.Logger) {
	entity := frost.NewEntityID()
	t.inFlight.Add(1)
	t.wg.Add(1)
	metrics.PregenLaunchedTotal.Inc()
	go func() {
		defer t.wg.Done()
		defer t.inFlight.Add(-1)

		if _, err := t.runner.RunDkgFlow(t.ceremonies, entity); err != nil {
			logger.Warn("pregen ceremony failed", log.Entity(entity), log.Err(err))
			return
		}
		if err := t.pool.Add(t.ceremonies, entity); err != nil {
			logger.Error("failed to add entity to pool", log.Entity(entity), log.Err(err))
			return
		}
		logger.Debug("pregen ceremony completed", log.Entity(entity))
	}()
}

// Run calls RunOnce on every interval until ctx is cancelled.
//
// It then waits up to ShutdownGraceIntervals intervals for in-flight
// ceremonies, cancels the remaining ones and waits for them to return.
func (t *Thread) Run(ctx context.Context) {
	ticker := t.clock.Ticker(t.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			t.shutdown()
			return
		case <-ticker.C:
			if _, err := t.RunOnce(ctx); err != nil && ctx.Err() == nil {
				t.logger.Warn("pregen refill failed", log.Err(err))
			}
		}
	}
}

func (t *Thread) shutdown() {
	done := make(chan struct{})
	go func() {
		t.wg.Wait()
		close(done)
	}()

	grace := time.Duration(t.cfg.ShutdownGraceIntervals) * t.cfg.Interval
	t.logger.Info("pregen shutting down", zap.Uint64("in_flight", t.InFlight()), zap.Duration("grace", grace))
	timer := t.clock.Timer(grace)
	defer timer.Stop()
	select {
	case <-done:
		t.stopCeremonies()
		return
	case <-timer.C:
	}
	t.logger.Warn("cancelling in-flight ceremonies", zap.Uint64("in_flight", t.InFlight()))
	t.stopCeremonies()
	<-done
}
