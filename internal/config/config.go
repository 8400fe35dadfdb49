// Package config loads the daemon configuration from a YAML file, FROST_*
// environment variables and command line flags, through viper.
package config

import (
	"fmt"
	"io"
	"reflect"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
	"github.com/taurusgroup/frost-coordinator/pkg/party"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment variable, FROST_LOG_LEVEL overrides log.level.
const EnvPrefix = "FROST"

// Participant is a signer as seen by the coordinator.
type Participant struct {
	ID party.ID `mapstructure:"id"`
	// Endpoints are equivalent addresses of the same signer, tried in order.
	Endpoints []string `mapstructure:"endpoints"`
}

type Signer struct {
	ID            party.ID      `mapstructure:"id"`
	Listen        string        `mapstructure:"listen"`
	DataDir       string        `mapstructure:"data_dir"`
	SessionTTL    time.Duration `mapstructure:"session_ttl"`
	SweepInterval time.Duration `mapstructure:"sweep_interval"`
}

type Coordinator struct {
	Threshold     int           `mapstructure:"threshold"`
	Participants  []Participant `mapstructure:"participants"`
	DataDir       string        `mapstructure:"data_dir"`
	MetricsListen string        `mapstructure:"metrics_listen"`
	RPCTimeout    time.Duration `mapstructure:"rpc_timeout"`
	RPCRetries    uint64        `mapstructure:"rpc_retries"`
}

type Pregen struct {
	Interval               time.Duration `mapstructure:"interval"`
	MinThreshold           uint64        `mapstructure:"min_threshold"`
	ShutdownGraceIntervals int           `mapstructure:"shutdown_grace_intervals"`
	LaunchRate             float64       `mapstructure:"launch_rate"`
}

type Log struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Config is the whole configuration of frostd.
type Config struct {
	Signer      Signer      `mapstructure:"signer"`
	Coordinator Coordinator `mapstructure:"coordinator"`
	Pregen      Pregen      `mapstructure:"pregen"`
	Log         Log         `mapstructure:"log"`
}

// SetDefaults registers the default value of every key in v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("signer.id", 0)
	v.SetDefault("signer.listen", ":7070")
	v.SetDefault("signer.data_dir", "data/signer")
	v.SetDefault("signer.session_ttl", 5*time.Minute)
	v.SetDefault("signer.sweep_interval", time.Minute)

	v.SetDefault("coordinator.threshold", 0)
	v.SetDefault("coordinator.data_dir", "data/coordinator")
	v.SetDefault("coordinator.metrics_listen", ":9090")
	v.SetDefault("coordinator.rpc_timeout", 4*time.Second)
	v.SetDefault("coordinator.rpc_retries", 3)

	v.SetDefault("pregen.interval", 10*time.Second)
	v.SetDefault("pregen.min_threshold", 0)
	v.SetDefault("pregen.shutdown_grace_intervals", 3)
	v.SetDefault("pregen.launch_rate", 0)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
}

// Load reads file, if not empty, and the environment into v, and decodes the result.
//
// Flags should be bound to v beforehand.
func Load(v *viper.Viper, file string) (*Config, error) {
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: read %s: %w", file, err)
		}
	}

	var c Config
	hooks := mapstructure.ComposeDecodeHookFunc(
		idHook,
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	)
	if err := v.Unmarshal(&c, viper.DecodeHook(hooks)); err != nil {
		return nil, fmt.Errorf("config: decode: %w", err)
	}
	return &c, nil
}

// idHook parses participant ids given as strings, as environment variables are.
func idHook(from, to reflect.Type, data any) (any, error) {
	if from.Kind() != reflect.String || to != reflect.TypeOf(party.ID(0)) {
		return data, nil
	}
	return party.IDFromString(strings.TrimSpace(data.(string)))
}

// ValidateSigner checks the settings needed to run a signer.
func (c *Config) ValidateSigner() error {
	if err := c.Signer.ID.Validate(); err != nil {
		return fmt.Errorf("config: signer.id: %w", err)
	}
	if !c.ParticipantIDs().Contains(c.Signer.ID) {
		return fmt.Errorf("config: signer.id %s is not in coordinator.participants", c.Signer.ID)
	}
	switch {
	case c.Signer.Listen == "":
		return fmt.Errorf("config: signer.listen is empty")
	case c.Signer.DataDir == "":
		return fmt.Errorf("config: signer.data_dir is empty")
	case c.Signer.SessionTTL <= 0:
		return fmt.Errorf("config: signer.session_ttl must be positive")
	case c.Signer.SweepInterval <= 0:
		return fmt.Errorf("config: signer.sweep_interval must be positive")
	}
	return c.validateGroup()
}

// ValidateCoordinator checks the settings needed to run a coordinator.
func (c *Config) ValidateCoordinator() error {
	if err := c.validateGroup(); err != nil {
		return err
	}
	for _, p := range c.Coordinator.Participants {
		if len(p.Endpoints) == 0 {
			return fmt.Errorf("config: participant %s has no endpoint", p.ID)
		}
	}
	switch {
	case c.Coordinator.DataDir == "":
		return fmt.Errorf("config: coordinator.data_dir is empty")
	case c.Coordinator.RPCTimeout <= 0:
		return fmt.Errorf("config: coordinator.rpc_timeout must be positive")
	case c.Pregen.Interval <= 0:
		return fmt.Errorf("config: pregen.interval must be positive")
	case c.Pregen.ShutdownGraceIntervals < 0:
		return fmt.Errorf("config: pregen.shutdown_grace_intervals is negative")
	case c.Pregen.LaunchRate < 0:
		return fmt.Errorf("config: pregen.launch_rate is negative")
	}
	return nil
}

// validateGroup checks the participant set and the threshold, which signers and coordinator share.
func (c *Config) validateGroup() error {
	ids := c.ParticipantIDs()
	if len(ids) == 0 {
		return fmt.Errorf("config: coordinator.participants is empty")
	}
	if err := ids.Valid(); err != nil {
		return fmt.Errorf("config: coordinator.participants: %w", err)
	}
	if t := c.Coordinator.Threshold; t < 1 || t > len(ids) {
		return fmt.Errorf("config: coordinator.threshold %d must be in [1, %d]", t, len(ids))
	}
	return nil
}

// ParticipantIDs returns the sorted ids of the configured participants.
func (c *Config) ParticipantIDs() party.IDSlice {
	ids := make([]party.ID, 0, len(c.Coordinator.Participants))
	for _, p := range c.Coordinator.Participants {
		ids = append(ids, p.ID)
	}
	return party.NewIDSlice(ids)
}

// Dump writes c as YAML, with the same keys a configuration file uses.
func (c *Config) Dump(w io.Writer) error {
	participants := make([]map[string]any, 0, len(c.Coordinator.Participants))
	for _, p := range c.Coordinator.Participants {
		participants = append(participants, map[string]any{
			"id":        uint16(p.ID),
			"endpoints": p.Endpoints,
		})
	}
	settings := map[string]any{
		"signer": map[string]any{
			"id":             uint16(c.Signer.ID),
			"listen":         c.Signer.Listen,
			"data_dir":       c.Signer.DataDir,
			"session_ttl":    c.Signer.SessionTTL.String(),
			"sweep_interval": c.Signer.SweepInterval.String(),
		},
		"coordinator": map[string]any{
			"threshold":      c.Coordinator.Threshold,
			"participants":   participants,
			"data_dir":       c.Coordinator.DataDir,
			"metrics_listen": c.Coordinator.MetricsListen,
			"rpc_timeout":    c.Coordinator.RPCTimeout.String(),
			"rpc_retries":    c.Coordinator.RPCRetries,
		},
		"pregen": map[string]any{
			"interval":                 c.Pregen.Interval.String(),
			"min_threshold":            c.Pregen.MinThreshold,
			"shutdown_grace_intervals": c.Pregen.ShutdownGraceIntervals,
			"launch_rate":              c.Pregen.LaunchRate,
		},
		"log": map[string]any{
			"level":  c.Log.Level,
			"format": c.Log.Format,
		},
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(settings); err != nil {
		return err
	}
	return enc.Close()
}
