package main

import (
	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:           "radar",
		Short:         "Solana new token radar",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to YAML config (defaults when empty)")

	root.AddCommand(runCmd(&configPath))
	root.AddCommand(validateCmd())
	root.AddCommand(presetsCmd())
	root.AddCommand(configCmd(&configPath))
	return root
}
