// Package cli implements the propsearch command line client.
package cli

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/stwalsh4118/propsearch/internal/config"
)

// NewRootCmd builds the command tree. Each call returns fresh commands so
// flag state never leaks between invocations.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "propsearch",
		Short: "Property search client",
		Long: `propsearch - run property searches against the search service

Searches go to the upstream service when --api is set and are answered
from the bundled fixture otherwise. Credentials and endpoint settings are
read from the environment and an optional .env file.`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().String("env-file", ".env", "dotenv file loaded before the environment")

	rootCmd.AddCommand(newSearchCmd())
	rootCmd.AddCommand(newEndpointCmd())
	rootCmd.AddCommand(newVersionCmd())

	return rootCmd
}

// Execute runs the root command and exits non-zero on failure.
// This is called by main.main().
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// loadConfig reads configuration using the --env-file flag.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	envFile, _ := cmd.Flags().GetString("env-file")
	return config.Load(envFile)
}
