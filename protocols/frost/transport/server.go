// Package transport exposes a signer over gRPC, and lets an aggregator reach
// it through a frost.SignerClient.
//
// Messages are the protocol types themselves, encoded with cbor.
package transport

import (
	"context"
	"errors"

	"github.com/taurusgroup/frost-coordinator/internal/log"
	"github.com/taurusgroup/frost-coordinator/protocols/frost"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Server serves the frost.Signer service on behalf of a local signer.
type Server struct {
	signer frost.SignerClient
	logger *zap.Logger
}

var _ signerService = (*Server)(nil)

// ServerOption configures a Server.
type ServerOption func(*Server)

// WithServerLogger sets the logger, zap.NewNop() by default.
func WithServerLogger(logger *zap.Logger) ServerOption {
	return func(s *Server) { s.logger = logger }
}

// NewServer returns a Server forwarding requests to signer.
func NewServer(signer frost.SignerClient, opts ...ServerOption) *Server {
	s := &Server{
		signer: signer,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register adds the service to r.
func (s *Server) Register(r grpc.ServiceRegistrar) {
	r.RegisterService(&serviceDesc, s)
}

// statusError maps a signer error to a gRPC status.
func statusError(err error) error {
	if err == nil {
		return nil
	}
	var code codes.Code
	switch {
	case errors.Is(err, frost.ErrSecretPackageMissing):
		code = codes.FailedPrecondition
	case errors.Is(err, frost.ErrSessionNotFound):
		code = codes.NotFound
	case errors.Is(err, frost.ErrSignerProtocolError):
		code = codes.InvalidArgument
	case errors.Is(err, frost.ErrStorageUnavailable):
		code = codes.Unavailable
	case errors.Is(err, context.Canceled):
		code = codes.Canceled
	case errors.Is(err, context.DeadlineExceeded):
		code = codes.DeadlineExceeded
	default:
		code = codes.Internal
	}
	return status.Error(code, err.Error())
}

func (s *Server) fail(method string, entity frost.EntityID, err error) error {
	st := statusError(err)
	s.logger.Debug("request failed",
		zap.String("method", method),
		log.Entity(entity),
		zap.Stringer("code", status.Code(st)),
		log.Err(err))
	return st
}

func (s *Server) DkgRound1(ctx context.Context, req *DkgRound1Request) (*DkgRound1Response, error) {
	pkg, err := s.signer.DkgRound1(ctx, req.Entity)
	if err != nil {
		return nil, s.fail(methodDkgRound1, req.Entity, err)
	}
	return &DkgRound1Response{Package: pkg}, nil
}

func (s *Server) DkgRound2(ctx context.Context, req *DkgRound2Request) (*DkgRound2Response, error) {
	packages, err := s.signer.DkgRound2(ctx, req.Entity, req.Round1)
	if err != nil {
		return nil, s.fail(methodDkgRound2, req.Entity, err)
	}
	return &DkgRound2Response{Packages: packages}, nil
}

func (s *Server) DkgFinalize(ctx context.Context, req *DkgFinalizeRequest) (*DkgFinalizeResponse, error) {
	public, err := s.signer.DkgFinalize(ctx, req.Entity, req.Round1, req.Round2)
	if err != nil {
		return nil, s.fail(methodDkgFinalize, req.Entity, err)
	}
	return &DkgFinalizeResponse{PublicKeyPackage: public}, nil
}

func (s *Server) SignRound1(ctx context.Context, req *SignRound1Request) (*SignRound1Response, error) {
	commitments, err := s.signer.SignRound1(ctx, req.Entity, req.Session, req.Tweak, req.Metadata)
	if err != nil {
		return nil, s.fail(methodSignRound1, req.Entity, err)
	}
	return &SignRound1Response{Commitments: commitments}, nil
}

func (s *Server) SignRound2(ctx context.Context, req *SignRound2Request) (*SignRound2Response, error) {
	share, err := s.signer.SignRound2(ctx, req.Entity, req.Session, req.Package)
	if err != nil {
		return nil, s.fail(methodSignRound2, req.Entity, err)
	}
	return &SignRound2Response{Share: share}, nil
}
