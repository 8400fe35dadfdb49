package transport

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/taurusgroup/frost-coordinator/internal/log"
	"github.com/taurusgroup/frost-coordinator/pkg/party"
	"github.com/taurusgroup/frost-coordinator/protocols/frost"
	"github.com/taurusgroup/frost-coordinator/protocols/frost/keygen"
	"github.com/taurusgroup/frost-coordinator/protocols/frost/sign"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
)

const (
	// DefaultTimeout bounds a single call to one endpoint.
	DefaultTimeout = 4 * time.Second
	// DefaultRetries is how many times an unavailable endpoint is retried
	// before failing over to the next one.
	DefaultRetries = 3
)

// Client reaches one participant through any of its endpoints.
//
// It implements frost.SignerClient.
type Client struct {
	participant party.ID
	endpoints   []string
	conns       []*grpc.ClientConn
	// current is the endpoint that answered last.
	current atomic.Int32

	timeout     time.Duration
	retries     uint64
	newBackOff  func() backoff.BackOff
	dialOptions []grpc.DialOption
	logger      *zap.Logger
}

var _ frost.SignerClient = (*Client)(nil)

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithTimeout sets the timeout of a single call, DefaultTimeout by default.
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) { c.timeout = timeout }
}

// WithRetries sets how many times an unavailable endpoint is retried.
func WithRetries(retries uint64) ClientOption {
	return func(c *Client) { c.retries = retries }
}

// WithBackOff sets the policy spacing out retries on one endpoint.
func WithBackOff(newBackOff func() backoff.BackOff) ClientOption {
	return func(c *Client) { c.newBackOff = newBackOff }
}

// WithDialOptions adds options used to create every connection.
func WithDialOptions(opts ...grpc.DialOption) ClientOption {
	return func(c *Client) { c.dialOptions = append(c.dialOptions, opts...) }
}

// WithClientLogger sets the logger, zap.NewNop() by default.
func WithClientLogger(logger *zap.Logger) ClientOption {
	return func(c *Client) { c.logger = logger }
}

func defaultBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 50 * time.Millisecond
	b.MaxInterval = time.Second
	b.MaxElapsedTime = 0
	return b
}

// NewClient creates a client for participant, served at every one of endpoints.
//
// Connections are established lazily.
func NewClient(participant party.ID, endpoints []string, opts ...ClientOption) (*Client, error) {
	if err := participant.Validate(); err != nil {
		return nil, err
	}
	if len(endpoints) == 0 {
		return nil, fmt.Errorf("transport: no endpoint for participant %s", participant)
	}
	c := &Client{
		participant: participant,
		endpoints:   endpoints,
		timeout:     DefaultTimeout,
		retries:     DefaultRetries,
		newBackOff:  defaultBackOff,
		dialOptions: []grpc.DialOption{
			grpc.WithTransportCredentials(insecure.NewCredentials()),
		},
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.dialOptions = append(c.dialOptions, grpc.WithDefaultCallOptions(grpc.CallContentSubtype(CodecName)))

	c.conns = make([]*grpc.ClientConn, 0, len(endpoints))
	for _, endpoint := range endpoints {
		conn, err := grpc.NewClient(endpoint, c.dialOptions...)
		if err != nil {
			_ = c.Close()
			return nil, fmt.Errorf("transport: endpoint %s: %w", endpoint, err)
		}
		c.conns = append(c.conns, conn)
	}
	return c, nil
}

// Close closes every connection.
func (c *Client) Close() error {
	var errs []error
	for _, conn := range c.conns {
		errs = append(errs, conn.Close())
	}
	return errors.Join(errs...)
}

// Participant returns the id of the participant this client reaches.
func (c *Client) Participant() party.ID { return c.participant }

func unreachable(code codes.Code) bool {
	return code == codes.Unavailable || code == codes.DeadlineExceeded
}

// invoke calls method, starting with the endpoint that answered last and
// failing over to the next one while endpoints are unreachable.
func (c *Client) invoke(ctx context.Context, method string, req, resp any) error {
	n := int32(len(c.conns))
	start := c.current.Load()
	var err error
	for i := int32(0); i < n; i++ {
		idx := (start + i) % n
		if err = c.invokeEndpoint(ctx, c.conns[idx], method, req, resp); err == nil {
			c.current.Store(idx)
			return nil
		}
		if ctx.Err() != nil || !unreachable(status.Code(err)) {
			break
		}
		c.logger.Warn("signer endpoint unreachable",
			log.Participant(c.participant),
			zap.String("endpoint", c.endpoints[idx]),
			zap.String("method", method),
			log.Err(err))
	}
	return sentinel(err)
}

func (c *Client) invokeEndpoint(ctx context.Context, conn *grpc.ClientConn, method string, req, resp any) error {
	b := backoff.WithContext(backoff.WithMaxRetries(c.newBackOff(), c.retries), ctx)
	return backoff.Retry(func() error {
		callCtx, cancel := context.WithTimeout(ctx, c.timeout)
		defer cancel()
		err := conn.Invoke(callCtx, fullMethod(method), req, resp)
		if err != nil && status.Code(err) != codes.Unavailable {
			return backoff.Permanent(err)
		}
		return err
	}, b)
}

// sentinel maps a gRPC status back to the frost errors.
func sentinel(err error) error {
	st, ok := status.FromError(err)
	if !ok {
		return fmt.Errorf("%w: %w", frost.ErrSignerUnreachable, err)
	}
	switch st.Code() {
	case codes.Unavailable, codes.DeadlineExceeded, codes.Canceled:
		return fmt.Errorf("%w: %s", frost.ErrSignerUnreachable, st.Message())
	case codes.FailedPrecondition:
		return fmt.Errorf("%w: %s", frost.ErrSecretPackageMissing, st.Message())
	case codes.NotFound:
		return fmt.Errorf("%w: %s", frost.ErrSessionNotFound, st.Message())
	default:
		return fmt.Errorf("%w: %s: %s", frost.ErrSignerProtocolError, st.Code(), st.Message())
	}
}

func emptyResponse(method string) error {
	return fmt.Errorf("%w: empty %s response", frost.ErrSignerProtocolError, method)
}

// DkgRound1 implements frost.SignerClient.
func (c *Client) DkgRound1(ctx context.Context, entity frost.EntityID) (*keygen.Round1Package, error) {
	var resp DkgRound1Response
	if err := c.invoke(ctx, methodDkgRound1, &DkgRound1Request{Entity: entity}, &resp); err != nil {
		return nil, err
	}
	if resp.Package == nil {
		return nil, emptyResponse(methodDkgRound1)
	}
	return resp.Package, nil
}

// DkgRound2 implements frost.SignerClient.
func (c *Client) DkgRound2(ctx context.Context, entity frost.EntityID, round1 map[party.ID]*keygen.Round1Package) (map[party.ID]*keygen.Round2Package, error) {
	var resp DkgRound2Response
	req := &DkgRound2Request{Entity: entity, Round1: round1}
	if err := c.invoke(ctx, methodDkgRound2, req, &resp); err != nil {
		return nil, err
	}
	if resp.Packages == nil {
		return nil, emptyResponse(methodDkgRound2)
	}
	return resp.Packages, nil
}

// DkgFinalize implements frost.SignerClient.
func (c *Client) DkgFinalize(ctx context.Context, entity frost.EntityID, round1 map[party.ID]*keygen.Round1Package, round2 map[party.ID]*keygen.Round2Package) (*keygen.PublicKeyPackage, error) {
	var resp DkgFinalizeResponse
	req := &DkgFinalizeRequest{Entity: entity, Round1: round1, Round2: round2}
	if err := c.invoke(ctx, methodDkgFinalize, req, &resp); err != nil {
		return nil, err
	}
	if resp.PublicKeyPackage == nil {
		return nil, emptyResponse(methodDkgFinalize)
	}
	return resp.PublicKeyPackage, nil
}

// SignRound1 implements frost.SignerClient.
func (c *Client) SignRound1(ctx context.Context, entity frost.EntityID, session frost.SessionID, tweak []byte, metadata frost.Metadata) (*sign.Commitments, error) {
	var resp SignRound1Response
	req := &SignRound1Request{Entity: entity, Session: session, Tweak: tweak, Metadata: metadata}
	if err := c.invoke(ctx, methodSignRound1, req, &resp); err != nil {
		return nil, err
	}
	if resp.Commitments == nil {
		return nil, emptyResponse(methodSignRound1)
	}
	return resp.Commitments, nil
}

// SignRound2 implements frost.SignerClient.
func (c *Client) SignRound2(ctx context.Context, entity frost.EntityID, session frost.SessionID, pkg *sign.SigningPackage) (*sign.SignatureShare, error) {
	var resp SignRound2Response
	req := &SignRound2Request{Entity: entity, Session: session, Package: pkg}
	if err := c.invoke(ctx, methodSignRound2, req, &resp); err != nil {
		return nil, err
	}
	if resp.Share == nil {
		return nil, emptyResponse(methodSignRound2)
	}
	return resp.Share, nil
}
