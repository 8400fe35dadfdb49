package main

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/taurusgroup/frost-coordinator/internal/config"
	"github.com/taurusgroup/frost-coordinator/internal/log"
	"go.uber.org/zap"
)

// app is shared by every command. It is filled in before any command runs.
type app struct {
	v          *viper.Viper
	configFile string
	cfg        *config.Config
	logger     *zap.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{v: viper.New()}
	root := &cobra.Command{
		Use:   "frostd",
		Short: "FROST threshold Schnorr signing over secp256k1",
		Long: `frostd runs the participants of a t-of-n FROST group, and the coordinator
that drives distributed key generation and BIP-340 signing across them.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.load()
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.configFile, "config", "", "path to a YAML configuration file")
	flags.String("log-level", "info", "log level (debug, info, warn, error)")
	flags.String("log-format", log.FormatJSON, "log format (json, console)")
	_ = a.v.BindPFlag("log.level", flags.Lookup("log-level"))
	_ = a.v.BindPFlag("log.format", flags.Lookup("log-format"))

	root.AddCommand(
		newSignerCmd(a),
		newCoordinatorCmd(a),
		newDkgCmd(a),
		newSignCmd(a),
		newConfigCmd(a),
	)
	return root
}

func (a *app) load() error {
	cfg, err := config.Load(a.v, a.configFile)
	if err != nil {
		return err
	}
	logger, err := log.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.logger = logger
	return nil
}
