package test

import (
	"context"
	"fmt"
	"sync"

	"github.com/taurusgroup/frost-coordinator/pkg/party"
	"github.com/taurusgroup/frost-coordinator/protocols/frost"
	"github.com/taurusgroup/frost-coordinator/protocols/frost/keygen"
	"github.com/taurusgroup/frost-coordinator/protocols/frost/sign"
)

// Unreachable is a SignerClient whose every call fails with frost.ErrSignerUnreachable.
type Unreachable struct {
	ID party.ID
}

var _ frost.SignerClient = Unreachable{}

func (u Unreachable) err() error {
	return fmt.Errorf("%w: participant %s is down", frost.ErrSignerUnreachable, u.ID)
}

func (u Unreachable) DkgRound1(context.Context, frost.EntityID) (*keygen.Round1Package, error) {
	return nil, u.err()
}

func (u Unreachable) DkgRound2(context.Context, frost.EntityID, map[party.ID]*keygen.Round1Package) (map[party.ID]*keygen.Round2Package, error) {
	return nil, u.err()
}

func (u Unreachable) DkgFinalize(context.Context, frost.EntityID, map[party.ID]*keygen.Round1Package, map[party.ID]*keygen.Round2Package) (*keygen.PublicKeyPackage, error) {
	return nil, u.err()
}

func (u Unreachable) SignRound1(context.Context, frost.EntityID, frost.SessionID, []byte, frost.Metadata) (*sign.Commitments, error) {
	return nil, u.err()
}

func (u Unreachable) SignRound2(context.Context, frost.EntityID, frost.SessionID, *sign.SigningPackage) (*sign.SignatureShare, error) {
	return nil, u.err()
}

// Method names a SignerClient call.
type Method string

const (
	MethodDkgRound1   Method = "DkgRound1"
	MethodDkgRound2   Method = "DkgRound2"
	MethodDkgFinalize Method = "DkgFinalize"
	MethodSignRound1  Method = "SignRound1"
	MethodSignRound2  Method = "SignRound2"
)

// Flaky wraps a SignerClient, failing the calls to chosen methods with
// frost.ErrSignerUnreachable, either before or after forwarding them.
//
// Failing after forwarding simulates a response lost on the way back.
type Flaky struct {
	Client frost.SignerClient

	mu sync.Mutex
	// remaining[m] is how many calls to m still fail. A negative count fails forever.
	remaining map[Method]int
	after     bool
	calls     map[Method]int
}

var _ frost.SignerClient = (*Flaky)(nil)

// NewFlaky wraps client.
//
// If afterForward is set, failing calls are still delivered to client.
func NewFlaky(client frost.SignerClient, afterForward bool) *Flaky {
	return &Flaky{
		Client:    client,
		remaining: make(map[Method]int),
		after:     afterForward,
		calls:     make(map[Method]int),
	}
}

// FailNext makes the next n calls to m fail. A negative n fails every call.
func (f *Flaky) FailNext(m Method, n int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.remaining[m] = n
}

// Calls returns how many times m was called.
func (f *Flaky) Calls(m Method) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[m]
}

func (f *Flaky) shouldFail(m Method) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[m]++
	switch n := f.remaining[m]; {
	case n < 0:
		return true
	case n > 0:
		f.remaining[m] = n - 1
		return true
	}
	return false
}

func call[T any](f *Flaky, m Method, forward func() (T, error)) (T, error) {
	var zero T
	if !f.shouldFail(m) {
		return forward()
	}
	if f.after {
		_, _ = forward()
	}
	return zero, fmt.Errorf("%w: injected failure in %s", frost.ErrSignerUnreachable, m)
}

func (f *Flaky) DkgRound1(ctx context.Context, entity frost.EntityID) (*keygen.Round1Package, error) {
	return call(f, MethodDkgRound1, func() (*keygen.Round1Package, error) {
		return f.Client.DkgRound1(ctx, entity)
	})
}

func (f *Flaky) DkgRound2(ctx context.Context, entity frost.EntityID, round1 map[party.ID]*keygen.Round1Package) (map[party.ID]*keygen.Round2Package, error) {
	return call(f, MethodDkgRound2, func() (map[party.ID]*keygen.Round2Package, error) {
		return f.Client.DkgRound2(ctx, entity, round1)
	})
}

func (f *Flaky) DkgFinalize(ctx context.Context, entity frost.EntityID, round1 map[party.ID]*keygen.Round1Package, round2 map[party.ID]*keygen.Round2Package) (*keygen.PublicKeyPackage, error) {
	return call(f, MethodDkgFinalize, func() (*keygen.PublicKeyPackage, error) {
		return f.Client.DkgFinalize(ctx, entity, round1, round2)
	})
}

func (f *Flaky) SignRound1(ctx context.Context, entity frost.EntityID, session frost.SessionID, tweak []byte, metadata frost.Metadata) (*sign.Commitments, error) {
	return call(f, MethodSignRound1, func() (*sign.Commitments, error) {
		return f.Client.SignRound1(ctx, entity, session, tweak, metadata)
	})
}

func (f *Flaky) SignRound2(ctx context.Context, entity frost.EntityID, session frost.SessionID, pkg *sign.SigningPackage) (*sign.SignatureShare, error) {
	return call(f, MethodSignRound2, func() (*sign.SignatureShare, error) {
		return f.Client.SignRound2(ctx, entity, session, pkg)
	})
}

// Tampering wraps a SignerClient and lets a test rewrite its finalize result
// or its signature shares.
type Tampering struct {
	frost.SignerClient
	Finalize func(*keygen.PublicKeyPackage) *keygen.PublicKeyPackage
	Share    func(*sign.SignatureShare) *sign.SignatureShare
}

func (t *Tampering) SignRound2(ctx context.Context, entity frost.EntityID, session frost.SessionID, pkg *sign.SigningPackage) (*sign.SignatureShare, error) {
	share, err := t.SignerClient.SignRound2(ctx, entity, session, pkg)
	if err != nil || t.Share == nil {
		return share, err
	}
	return t.Share(share), nil
}

func (t *Tampering) DkgFinalize(ctx context.Context, entity frost.EntityID, round1 map[party.ID]*keygen.Round1Package, round2 map[party.ID]*keygen.Round2Package) (*keygen.PublicKeyPackage, error) {
	p, err := t.SignerClient.DkgFinalize(ctx, entity, round1, round2)
	if err != nil || t.Finalize == nil {
		return p, err
	}
	return t.Finalize(p), nil
}
