package signer

import (
	"context"
	"fmt"

	"github.com/taurusgroup/frost-coordinator/internal/log"
	"github.com/taurusgroup/frost-coordinator/pkg/party"
	"github.com/taurusgroup/frost-coordinator/protocols/frost"
	"github.com/taurusgroup/frost-coordinator/protocols/frost/keygen"
)

// loadKey returns the DKG state of entity, Uninitialized if there is none.
func (s *Signer) loadKey(ctx context.Context, entity frost.EntityID) (*frost.SignerDkgState, error) {
	if err := entity.Validate(); err != nil {
		return nil, protocolError(err)
	}
	state, err := s.keys.Get(ctx, entity)
	if err != nil {
		s.logger.Error("failed to load key state", log.Entity(entity), log.Err(err))
		return nil, err
	}
	if state == nil {
		state = &frost.SignerDkgState{Phase: frost.DkgUninitialized}
	}
	return state, nil
}

func (s *Signer) saveKey(ctx context.Context, entity frost.EntityID, state *frost.SignerDkgState) error {
	if err := s.keys.Set(ctx, entity, state); err != nil {
		s.logger.Error("failed to persist key state", log.Entity(entity), log.Phase(state.Phase), log.Err(err))
		return err
	}
	return nil
}

// DkgRound1 implements frost.SignerClient.
//
// Concurrent first calls generate a single secret.
func (s *Signer) DkgRound1(ctx context.Context, entity frost.EntityID) (*keygen.Round1Package, error) {
	v, err := s.do(ctx, "dkg1/"+string(entity), func(ctx context.Context) (interface{}, error) {
		state, err := s.loadKey(ctx, entity)
		if err != nil {
			return nil, err
		}
		if pkg := state.Round1Package(); pkg != nil {
			s.logger.Debug("replaying dkg round 1", log.Entity(entity), log.Phase(state.Phase))
			return pkg, nil
		}

		secret, pkg, err := keygen.Round1(s.rand, []byte(entity), s.id, s.participants, s.threshold)
		if err != nil {
			return nil, protocolError(err)
		}
		next := &frost.SignerDkgState{
			Phase:  frost.DkgRound1,
			Round1: &frost.SignerDkgRound1{Secret: secret, Package: pkg},
		}
		if err := s.saveKey(ctx, entity, next); err != nil {
			return nil, err
		}
		s.logger.Debug("completed dkg round 1", log.Entity(entity))
		return pkg, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*keygen.Round1Package), nil
}

// DkgRound2 implements frost.SignerClient.
func (s *Signer) DkgRound2(ctx context.Context, entity frost.EntityID, round1 map[party.ID]*keygen.Round1Package) (map[party.ID]*keygen.Round2Package, error) {
	v, err := s.do(ctx, "dkg2/"+string(entity), func(ctx context.Context) (interface{}, error) {
		state, err := s.loadKey(ctx, entity)
		if err != nil {
			return nil, err
		}
		if state.Phase >= frost.DkgRound2 {
			s.logger.Debug("replaying dkg round 2", log.Entity(entity), log.Phase(state.Phase))
			return state.Round2Packages(), nil
		}
		if state.Phase != frost.DkgRound1 || state.Round1 == nil {
			return nil, fmt.Errorf("%w: no round 1 secret for %s", frost.ErrSecretPackageMissing, entity)
		}

		secret, out, err := keygen.Round2(state.Round1.Secret, round1, s.pool)
		if err != nil {
			s.logger.Warn("rejected dkg round 2 input", log.Entity(entity), log.Err(err))
			return nil, protocolError(err)
		}
		next := &frost.SignerDkgState{
			Phase: frost.DkgRound2,
			Round2: &frost.SignerDkgRound2{
				Secret:         secret,
				Round1Package:  state.Round1.Package,
				Round2Packages: out,
			},
		}
		if err := s.saveKey(ctx, entity, next); err != nil {
			return nil, err
		}
		state.Round1.Secret.Polynomial.Erase()
		s.logger.Debug("completed dkg round 2", log.Entity(entity))
		return out, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(map[party.ID]*keygen.Round2Package), nil
}

// DkgFinalize implements frost.SignerClient.
func (s *Signer) DkgFinalize(ctx context.Context, entity frost.EntityID, round1 map[party.ID]*keygen.Round1Package, round2 map[party.ID]*keygen.Round2Package) (*keygen.PublicKeyPackage, error) {
	v, err := s.do(ctx, "dkg3/"+string(entity), func(ctx context.Context) (interface{}, error) {
		state, err := s.loadKey(ctx, entity)
		if err != nil {
			return nil, err
		}
		if state.Phase == frost.DkgFinalized && state.Finalized != nil {
			s.logger.Debug("replaying dkg finalize", log.Entity(entity))
			return state.Finalized.PublicKeyPackage, nil
		}
		if state.Phase != frost.DkgRound2 || state.Round2 == nil {
			return nil, fmt.Errorf("%w: no round 2 secret for %s", frost.ErrSecretPackageMissing, entity)
		}

		key, public, err := keygen.Finalize(state.Round2.Secret, round1, round2)
		if err != nil {
			s.logger.Warn("rejected dkg finalize input", log.Entity(entity), log.Err(err))
			return nil, protocolError(err)
		}
		next := &frost.SignerDkgState{
			Phase: frost.DkgFinalized,
			Finalized: &frost.SignerDkgFinalized{
				KeyPackage:       key,
				PublicKeyPackage: public,
				Round1Package:    state.Round2.Round1Package,
				Round2Packages:   state.Round2.Round2Packages,
			},
		}
		if err := s.saveKey(ctx, entity, next); err != nil {
			return nil, err
		}
		s.logger.Info("completed dkg", log.Entity(entity))
		return public, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*keygen.PublicKeyPackage), nil
}

// finalizedKey returns the key package of entity.
func (s *Signer) finalizedKey(ctx context.Context, entity frost.EntityID) (*keygen.KeyPackage, error) {
	state, err := s.loadKey(ctx, entity)
	if err != nil {
		return nil, err
	}
	if state.Phase != frost.DkgFinalized || state.Finalized == nil || state.Finalized.KeyPackage == nil {
		return nil, fmt.Errorf("%w: dkg for %s is not finalized", frost.ErrSecretPackageMissing, entity)
	}
	key := state.Finalized.KeyPackage
	err = key.Validate()
	if err == nil && key.ID != s.id {
		err = fmt.Errorf("key package belongs to %s", key.ID)
	}
	if err != nil {
		s.logger.Error("stored key package is corrupted", log.Entity(entity), log.Err(err))
		return nil, frost.StorageError("load key "+string(entity), err)
	}
	return key, nil
}
