package signer

import (
	"bytes"
	"context"
	"encoding/hex"
	"fmt"

	"github.com/taurusgroup/frost-coordinator/internal/log"
	"github.com/taurusgroup/frost-coordinator/protocols/frost"
	"github.com/taurusgroup/frost-coordinator/protocols/frost/sign"
)

func sessionFlight(prefix string, entity frost.EntityID, session frost.SessionID) string {
	return prefix + string(entity) + "\x00" + string(session)
}

// SignRound1 implements frost.SignerClient.
//
// The nonces are persisted along with the tweak and metadata, only the
// commitments leave the signer.
func (s *Signer) SignRound1(ctx context.Context, entity frost.EntityID, session frost.SessionID, tweak []byte, metadata frost.Metadata) (*sign.Commitments, error) {
	if err := session.Validate(); err != nil {
		return nil, protocolError(err)
	}
	v, err := s.do(ctx, sessionFlight("sign1/", entity, session), func(ctx context.Context) (interface{}, error) {
		key, err := s.finalizedKey(ctx, entity)
		if err != nil {
			return nil, err
		}
		existing, err := s.sessions.Get(ctx, entity, session)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			s.logger.Debug("replaying sign round 1", log.Entity(entity), log.Session(session))
			return existing.Commitments, nil
		}
		if _, err := key.Public().Tweak(tweak); err != nil {
			return nil, protocolError(err)
		}

		nonces, commitments := sign.Commit(s.rand, s.id)
		state := &frost.SignerSession{
			Nonces:      nonces,
			Commitments: commitments,
			Tweak:       append([]byte(nil), tweak...),
			Metadata:    metadata.Clone(),
			CreatedAt:   s.clock.Now().UTC(),
		}
		if err := s.sessions.Set(ctx, entity, session, state); err != nil {
			s.logger.Error("failed to persist session", log.Entity(entity), log.Session(session), log.Err(err))
			return nil, err
		}
		s.logger.Debug("completed sign round 1", log.Entity(entity), log.Session(session))
		return commitments, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*sign.Commitments), nil
}

// SignRound2 implements frost.SignerClient.
//
// The session is deleted before the share is returned, so the nonces are
// never used twice.
func (s *Signer) SignRound2(ctx context.Context, entity frost.EntityID, session frost.SessionID, pkg *sign.SigningPackage) (*sign.SignatureShare, error) {
	if err := session.Validate(); err != nil {
		return nil, protocolError(err)
	}
	if pkg == nil {
		return nil, protocolError(fmt.Errorf("missing signing package"))
	}
	// Only calls carrying the same package share a share.
	flight := sessionFlight("sign2/", entity, session) + "\x00" + hex.EncodeToString(pkg.Digest())
	v, err := s.do(ctx, flight, func(ctx context.Context) (interface{}, error) {
		state, err := s.sessions.Get(ctx, entity, session)
		if err != nil {
			return nil, err
		}
		if state == nil {
			return nil, fmt.Errorf("%w: %s/%s", frost.ErrSessionNotFound, entity, session)
		}
		key, err := s.finalizedKey(ctx, entity)
		if err != nil {
			return nil, err
		}

		mine, ok := pkg.Commitments[s.id]
		if !ok || mine == nil || mine.Hiding == nil || mine.Binding == nil ||
			!mine.Hiding.Equal(state.Commitments.Hiding) || !mine.Binding.Equal(state.Commitments.Binding) {
			return nil, protocolError(fmt.Errorf("signing package doesn't carry our commitments"))
		}
		if !bytes.Equal(pkg.Tweak, state.Tweak) {
			return nil, protocolError(fmt.Errorf("signing package tweak differs from round 1"))
		}

		share, err := sign.Sign(pkg, state.Nonces, key)
		if err != nil {
			s.logger.Warn("rejected signing package", log.Entity(entity), log.Session(session), log.Err(err))
			return nil, protocolError(err)
		}
		if err := s.sessions.Delete(ctx, entity, session); err != nil {
			s.logger.Error("failed to delete session", log.Entity(entity), log.Session(session), log.Err(err))
			return nil, err
		}
		state.Nonces.Zero()
		s.logger.Debug("completed sign round 2", log.Entity(entity), log.Session(session))
		return share, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*sign.SignatureShare), nil
}
