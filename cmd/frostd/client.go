package main

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/taurusgroup/frost-coordinator/protocols/frost"
)

func newDkgCmd(a *app) *cobra.Command {
	var fromPool bool
	cmd := &cobra.Command{
		Use:   "dkg [entity]",
		Short: "Run a DKG ceremony, or claim a pregenerated key",
		Long: `dkg creates the key of an entity by running a ceremony across the signers.
Without an entity a new one is created. With --from-pool an unused
pregenerated entity is claimed instead.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.openCoordinator()
			if err != nil {
				return err
			}
			defer c.Close()

			ctx := cmd.Context()
			var entity frost.EntityID
			switch {
			case fromPool && len(args) > 0:
				return fmt.Errorf("--from-pool takes no entity")
			case fromPool:
				claimed, ok, err := c.pool.Claim(ctx)
				if err != nil {
					return err
				}
				if !ok {
					return fmt.Errorf("no pregenerated entity available")
				}
				entity = claimed
			case len(args) > 0:
				entity = frost.EntityID(args[0])
			default:
				entity = frost.NewEntityID()
			}

			public, err := c.RunDkgFlow(ctx, entity)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "entity:     %s\n", entity)
			fmt.Fprintf(out, "public key: %x\n", []byte(public.PublicKey))
			fmt.Fprintf(out, "signers:    %v\n", public.Participants())
			return nil
		},
	}
	cmd.Flags().BoolVar(&fromPool, "from-pool", false, "claim a pregenerated entity")
	return cmd
}

func newSignCmd(a *app) *cobra.Command {
	var (
		entity   string
		message  string
		hexInput bool
		tweak    string
		metadata map[string]string
	)
	cmd := &cobra.Command{
		Use:   "sign",
		Short: "Sign a message with the key of an entity",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			m := []byte(message)
			if hexInput {
				decoded, err := hex.DecodeString(strings.TrimPrefix(message, "0x"))
				if err != nil {
					return fmt.Errorf("message: %w", err)
				}
				m = decoded
			}
			var t []byte
			if tweak != "" {
				decoded, err := hex.DecodeString(strings.TrimPrefix(tweak, "0x"))
				if err != nil {
					return fmt.Errorf("tweak: %w", err)
				}
				t = decoded
			}

			c, err := a.openCoordinator()
			if err != nil {
				return err
			}
			defer c.Close()

			result, err := c.RunSigningFlow(cmd.Context(), frost.EntityID(entity), m, frost.Metadata(metadata), t)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "session:    %s\n", result.Session)
			fmt.Fprintf(out, "signers:    %v\n", result.Signers)
			fmt.Fprintf(out, "public key: %x\n", []byte(result.PublicKey))
			fmt.Fprintf(out, "signature:  %x\n", []byte(result.Signature))
			return nil
		},
	}
	flags := cmd.Flags()
	flags.StringVar(&entity, "entity", "", "entity whose key signs")
	flags.StringVar(&message, "message", "", "message to sign")
	flags.BoolVar(&hexInput, "hex", false, "decode --message from hex")
	flags.StringVar(&tweak, "tweak", "", "hex encoded taproot tweak")
	flags.StringToStringVar(&metadata, "metadata", nil, "key=value pairs recorded with the session")
	_ = cmd.MarkFlagRequired("entity")
	return cmd
}
