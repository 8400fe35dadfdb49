// Package log builds the zap loggers used across the repository, and the
// field constructors shared by every component.
package log

import (
	"fmt"
	"strings"

	"github.com/taurusgroup/frost-coordinator/pkg/party"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	FormatJSON    = "json"
	FormatConsole = "console"
)

// New builds a logger at the given level.
//
// The json format uses zap's production encoder, the console format its
// development encoder.
func New(level, format string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("log: %w", err)
	}
	var cfg zap.Config
	switch strings.ToLower(format) {
	case "", FormatJSON:
		cfg = zap.NewProductionConfig()
	case FormatConsole:
		cfg = zap.NewDevelopmentConfig()
	default:
		return nil, fmt.Errorf("log: unknown format %q", format)
	}
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	return cfg.Build()
}

// Entity returns the field naming an entity.
func Entity(entity fmt.Stringer) zap.Field { return zap.Stringer("entity", entity) }

// Session returns the field naming a signing session.
func Session(session fmt.Stringer) zap.Field { return zap.Stringer("session", session) }

// Participant returns the field naming a participant.
func Participant(id party.ID) zap.Field { return zap.Uint16("participant", uint16(id)) }

// Phase returns the field naming the phase of a ceremony.
func Phase(phase fmt.Stringer) zap.Field { return zap.Stringer("phase", phase) }

// Epoch returns the field naming a pregen epoch.
func Epoch(epoch uint64) zap.Field { return zap.Uint64("epoch", epoch) }

// Err returns the field carrying an error.
func Err(err error) zap.Field { return zap.NamedError("err", err) }
