package config

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/taurusgroup/frost-coordinator/pkg/party"
	"gopkg.in/yaml.v3"
)

const sample = `
signer:
  id: 2
  listen: 127.0.0.1:7002
  session_ttl: 2m
coordinator:
  threshold: 2
  participants:
    - id: 1
      endpoints: [signer-1a:7070, signer-1b:7070]
    - id: 2
      endpoints: [signer-2:7070]
    - id: 3
      endpoints: [signer-3:7070]
pregen:
  min_threshold: 10
  launch_rate: 2.5
`

func writeConfig(t *testing.T, content string) string {
	path := filepath.Join(t.TempDir(), "frost.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestDefaults(t *testing.T) {
	c, err := Load(viper.New(), "")
	require.NoError(t, err)
	assert.Equal(t, 5*time.Minute, c.Signer.SessionTTL)
	assert.Equal(t, time.Minute, c.Signer.SweepInterval)
	assert.Equal(t, 4*time.Second, c.Coordinator.RPCTimeout)
	assert.Equal(t, uint64(3), c.Coordinator.RPCRetries)
	assert.Equal(t, 3, c.Pregen.ShutdownGraceIntervals)
	assert.Equal(t, "info", c.Log.Level)
	assert.Equal(t, "json", c.Log.Format)

	assert.Error(t, c.ValidateSigner(), "no participants")
	assert.Error(t, c.ValidateCoordinator(), "no participants")
}

func TestLoadFile(t *testing.T) {
	c, err := Load(viper.New(), writeConfig(t, sample))
	require.NoError(t, err)

	assert.Equal(t, party.ID(2), c.Signer.ID)
	assert.Equal(t, "127.0.0.1:7002", c.Signer.Listen)
	assert.Equal(t, 2*time.Minute, c.Signer.SessionTTL)
	assert.Equal(t, "data/signer", c.Signer.DataDir)
	assert.Equal(t, 2, c.Coordinator.Threshold)
	require.Len(t, c.Coordinator.Participants, 3)
	assert.Equal(t, []string{"signer-1a:7070", "signer-1b:7070"}, c.Coordinator.Participants[0].Endpoints)
	assert.Equal(t, party.IDSlice{1, 2, 3}, c.ParticipantIDs())
	assert.Equal(t, uint64(10), c.Pregen.MinThreshold)
	assert.Equal(t, 2.5, c.Pregen.LaunchRate)

	assert.NoError(t, c.ValidateSigner())
	assert.NoError(t, c.ValidateCoordinator())
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(viper.New(), filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestEnvironmentOverrides(t *testing.T) {
	t.Setenv("FROST_LOG_LEVEL", "debug")
	t.Setenv("FROST_SIGNER_ID", "3")
	t.Setenv("FROST_PREGEN_INTERVAL", "30s")

	c, err := Load(viper.New(), writeConfig(t, sample))
	require.NoError(t, err)
	assert.Equal(t, "debug", c.Log.Level)
	assert.Equal(t, party.ID(3), c.Signer.ID)
	assert.Equal(t, 30*time.Second, c.Pregen.Interval)
}

func TestEnvironmentRejectsInvalidIds(t *testing.T) {
	for _, id := range []string{"0", "70000", "two", "-1"} {
		t.Setenv("FROST_SIGNER_ID", id)
		_, err := Load(viper.New(), writeConfig(t, sample))
		assert.Error(t, err, "signer id %q", id)
	}

	t.Setenv("FROST_SIGNER_ID", " 1 ")
	c, err := Load(viper.New(), writeConfig(t, sample))
	require.NoError(t, err)
	assert.Equal(t, party.ID(1), c.Signer.ID)
}

func TestValidate(t *testing.T) {
	load := func(t *testing.T) *Config {
		c, err := Load(viper.New(), writeConfig(t, sample))
		require.NoError(t, err)
		return c
	}

	c := load(t)
	c.Signer.ID = 4
	assert.Error(t, c.ValidateSigner(), "unknown signer")

	c = load(t)
	c.Coordinator.Threshold = 4
	assert.Error(t, c.ValidateCoordinator())
	c.Coordinator.Threshold = 0
	assert.Error(t, c.ValidateSigner())

	c = load(t)
	c.Coordinator.Participants = append(c.Coordinator.Participants, Participant{ID: 2, Endpoints: []string{"x"}})
	assert.Error(t, c.ValidateCoordinator(), "duplicate participant")

	c = load(t)
	c.Coordinator.Participants[1].Endpoints = nil
	assert.Error(t, c.ValidateCoordinator())
	assert.NoError(t, c.ValidateSigner(), "signers don't dial each other")

	c = load(t)
	c.Signer.SessionTTL = 0
	assert.Error(t, c.ValidateSigner())
}

func TestDumpRoundTrip(t *testing.T) {
	c, err := Load(viper.New(), writeConfig(t, sample))
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, c.Dump(&buf))

	var raw map[string]map[string]any
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &raw))
	assert.Equal(t, "2m0s", raw["signer"]["session_ttl"])
	assert.Equal(t, "json", raw["log"]["format"])

	again, err := Load(viper.New(), writeConfig(t, buf.String()))
	require.NoError(t, err)
	assert.Equal(t, c, again)
}
