package main

import (
	"context"
	"fmt"
	"net"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/taurusgroup/frost-coordinator/internal/log"
	"github.com/taurusgroup/frost-coordinator/pkg/pool"
	"github.com/taurusgroup/frost-coordinator/pkg/storage"
	"github.com/taurusgroup/frost-coordinator/protocols/frost/signer"
	"github.com/taurusgroup/frost-coordinator/protocols/frost/store"
	"github.com/taurusgroup/frost-coordinator/protocols/frost/transport"
	"go.uber.org/zap"
	"google.golang.org/grpc"
)

func newSignerCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "signer",
		Short: "Serve one participant's key shares over gRPC",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runSigner(ctx, a)
		},
	}
	flags := cmd.Flags()
	flags.Uint16("id", 0, "id of this participant")
	flags.String("listen", ":7070", "gRPC listen address")
	flags.String("data-dir", "data/signer", "directory holding key shares and sessions")
	_ = a.v.BindPFlag("signer.id", flags.Lookup("id"))
	_ = a.v.BindPFlag("signer.listen", flags.Lookup("listen"))
	_ = a.v.BindPFlag("signer.data_dir", flags.Lookup("data-dir"))
	return cmd
}

func runSigner(ctx context.Context, a *app) error {
	cfg := a.cfg
	if err := cfg.ValidateSigner(); err != nil {
		return err
	}
	logger := a.logger.With(log.Participant(cfg.Signer.ID))

	backend, err := storage.NewFile(cfg.Signer.DataDir)
	if err != nil {
		return err
	}
	defer backend.Close()

	pl := pool.NewPool(0)
	defer pl.TearDown()

	s, err := signer.New(cfg.Signer.ID, cfg.ParticipantIDs(), cfg.Coordinator.Threshold,
		store.NewSignerKeyStore(backend), store.NewSignerSessionStore(backend),
		signer.WithLogger(logger),
		signer.WithSessionTTL(cfg.Signer.SessionTTL),
		signer.WithPool(pl))
	if err != nil {
		return err
	}

	lis, err := net.Listen("tcp", cfg.Signer.Listen)
	if err != nil {
		return fmt.Errorf("listen %s: %w", cfg.Signer.Listen, err)
	}
	server := grpc.NewServer()
	transport.NewServer(s, transport.WithServerLogger(logger)).Register(server)

	go s.RunSweeper(ctx, cfg.Signer.SweepInterval)
	go func() {
		<-ctx.Done()
		logger.Info("stopping signer")
		server.GracefulStop()
	}()

	logger.Info("signer listening", zap.Stringer("addr", lis.Addr()))
	return server.Serve(lis)
}
