package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"solana-token-radar/internal/address"
	"solana-token-radar/internal/config"
	"solana-token-radar/internal/filter"
)

func validateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <address>...",
		Short: "Check token addresses for the Solana address format",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			bad := 0
			for _, a := range args {
				status := "ok"
				if !address.IsValid(a) {
					status = "invalid"
					bad++
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", a, status)
			}
			if bad > 0 {
				return fmt.Errorf("%d of %d addresses invalid", bad, len(args))
			}
			return nil
		},
	}
}

func presetsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "presets",
		Short: "Print the built-in acceptance criteria presets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := make(map[string]filter.AcceptanceCriteria)
			for _, name := range filter.PresetNames() {
				crit, err := filter.Preset(name)
				if err != nil {
					return err
				}
				out[name] = crit
			}
			data, err := yaml.Marshal(out)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}
}

func configCmd(path *string) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(*path)
			if err != nil {
				return err
			}
			data, err := cfg.Marshal()
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}
}
