package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"github.com/taurusgroup/frost-coordinator/pkg/party"
	"github.com/taurusgroup/frost-coordinator/pkg/storage"
	"github.com/taurusgroup/frost-coordinator/protocols/frost"
	"github.com/taurusgroup/frost-coordinator/protocols/frost/aggregator"
	"github.com/taurusgroup/frost-coordinator/protocols/frost/pregen"
	"github.com/taurusgroup/frost-coordinator/protocols/frost/store"
	"github.com/taurusgroup/frost-coordinator/protocols/frost/transport"
	"go.uber.org/zap"
)

// coordinator is an aggregator connected to every configured signer.
type coordinator struct {
	*aggregator.Aggregator
	pool    *store.EntityPool
	backend *storage.FileBackend
	clients []*transport.Client
}

func (a *app) openCoordinator() (*coordinator, error) {
	cfg := a.cfg
	if err := cfg.ValidateCoordinator(); err != nil {
		return nil, err
	}
	backend, err := storage.NewFile(cfg.Coordinator.DataDir)
	if err != nil {
		return nil, err
	}
	c := &coordinator{
		pool:    store.NewEntityPool(backend),
		backend: backend,
	}

	clients := make(map[party.ID]frost.SignerClient, len(cfg.Coordinator.Participants))
	for _, p := range cfg.Coordinator.Participants {
		client, err := transport.NewClient(p.ID, p.Endpoints,
			transport.WithTimeout(cfg.Coordinator.RPCTimeout),
			transport.WithRetries(cfg.Coordinator.RPCRetries),
			transport.WithClientLogger(a.logger))
		if err != nil {
			_ = c.Close()
			return nil, err
		}
		c.clients = append(c.clients, client)
		clients[p.ID] = client
	}

	c.Aggregator, err = aggregator.New(cfg.Coordinator.Threshold, clients,
		store.NewAggregatorKeyStore(backend), store.NewAggregatorSessionStore(backend),
		aggregator.WithLogger(a.logger))
	if err != nil {
		_ = c.Close()
		return nil, err
	}
	return c, nil
}

func (c *coordinator) Close() error {
	errs := make([]error, 0, len(c.clients)+1)
	for _, client := range c.clients {
		errs = append(errs, client.Close())
	}
	errs = append(errs, c.backend.Close())
	return errors.Join(errs...)
}

func newCoordinatorCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "coordinator",
		Short: "Keep the pool of pregenerated keys full, and serve metrics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runCoordinator(ctx, a)
		},
	}
	flags := cmd.Flags()
	flags.String("metrics-listen", ":9090", "address serving /metrics, empty to disable")
	flags.Uint64("pregen-min", 0, "number of unused pregenerated keys to maintain")
	_ = a.v.BindPFlag("coordinator.metrics_listen", flags.Lookup("metrics-listen"))
	_ = a.v.BindPFlag("pregen.min_threshold", flags.Lookup("pregen-min"))
	return cmd
}

func runCoordinator(ctx context.Context, a *app) error {
	cfg := a.cfg
	c, err := a.openCoordinator()
	if err != nil {
		return err
	}
	defer c.Close()

	var server *http.Server
	if addr := cfg.Coordinator.MetricsListen; addr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		server = &http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			a.logger.Info("serving metrics", zap.String("addr", addr))
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				a.logger.Error("metrics server failed", zap.Error(err))
			}
		}()
	}

	if cfg.Pregen.MinThreshold > 0 {
		thread, err := pregen.New(c, c.pool, pregen.Config{
			Interval:               cfg.Pregen.Interval,
			MinThreshold:           cfg.Pregen.MinThreshold,
			ShutdownGraceIntervals: cfg.Pregen.ShutdownGraceIntervals,
			LaunchRate:             cfg.Pregen.LaunchRate,
		}, pregen.WithLogger(a.logger))
		if err != nil {
			return err
		}
		a.logger.Info("starting pregen", zap.Uint64("min_threshold", cfg.Pregen.MinThreshold))
		thread.Run(ctx)
	} else {
		<-ctx.Done()
	}

	if server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("metrics server shutdown: %w", err)
		}
	}
	return nil
}
