package main

import (
	"bytes"
	"context"
	"errors"

	"github.com/taurusgroup/frost-coordinator/internal/log"
	"github.com/taurusgroup/frost-coordinator/protocols/frost"
	"github.com/taurusgroup/frost-coordinator/protocols/frost/aggregator"
	"github.com/taurusgroup/frost-coordinator/protocols/frost/keygen"
	"go.uber.org/zap"
)

func FrostKeygen(ctx context.Context, agg *aggregator.Aggregator, entity frost.EntityID, logger *zap.Logger) (*keygen.PublicKeyPackage, error) {
	public, err := agg.RunDkgFlow(ctx, entity)
	if err != nil {
		return nil, err
	}
	logger.Info("generated key",
		log.Entity(entity),
		zap.Binary("public_key", public.PublicKey),
		zap.Stringers("participants", public.Participants()))
	return public, nil
}

func FrostSign(ctx context.Context, agg *aggregator.Aggregator, entity frost.EntityID, m, tweak []byte, logger *zap.Logger) error {
	result, err := agg.RunSigningFlow(ctx, entity, m, frost.Metadata{"origin": "example"}, tweak)
	if err != nil {
		return err
	}
	if !result.PublicKey.Verify(result.Signature, m) {
		return errors.New("failed to verify frost signature")
	}
	logger.Info("signed",
		log.Entity(entity),
		log.Session(result.Session),
		zap.Binary("signature", result.Signature),
		zap.Stringers("signers", result.Signers))
	return nil
}

// FrostSignTweaked signs m under the key tweaked with a taproot merkle root,
// and checks that only the tweaked key accepts the signature.
func FrostSignTweaked(ctx context.Context, agg *aggregator.Aggregator, entity frost.EntityID, m, tweak []byte, logger *zap.Logger) error {
	if err := FrostSign(ctx, agg, entity, m, tweak, logger); err != nil {
		return err
	}
	untweaked, err := agg.GetPublicKeyPackage(ctx, entity, nil)
	if err != nil {
		return err
	}
	tweaked, err := agg.GetPublicKeyPackage(ctx, entity, tweak)
	if err != nil {
		return err
	}
	if bytes.Equal(untweaked.PublicKey, tweaked.PublicKey) {
		return errors.New("tweak left the key unchanged")
	}
	return nil
}
