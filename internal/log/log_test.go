package log

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestNew(t *testing.T) {
	logger, err := New("debug", FormatConsole)
	require.NoError(t, err)
	assert.True(t, logger.Core().Enabled(zapcore.DebugLevel))

	logger, err = New("warn", FormatJSON)
	require.NoError(t, err)
	assert.False(t, logger.Core().Enabled(zapcore.InfoLevel))

	_, err = New("loud", FormatJSON)
	assert.Error(t, err)
	_, err = New("info", "xml")
	assert.Error(t, err)
}

type name string

func (n name) String() string { return string(n) }

func TestFields(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	logger := zap.New(core)
	logger.Warn("participant failed", Entity(name("e")), Participant(3), Err(errors.New("boom")))

	require.Equal(t, 1, logs.Len())
	fields := logs.All()[0].ContextMap()
	assert.Equal(t, "e", fields["entity"])
	assert.Equal(t, uint16(3), fields["participant"])
	assert.Equal(t, "boom", fields["err"])
}
