package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newEndpointCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "endpoint",
		Short: "Print the resolved search service address",
		Long: `Print the base URL searches are sent to, together with the platform
facts it was resolved from. UPSTREAM_BASE_URL overrides resolution.`,
		Args: cobra.NoArgs,
		RunE: runEndpoint,
	}
}

func runEndpoint(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Base URL:     %s\n", cfg.BaseURL())
	if cfg.Upstream.BaseURL != "" {
		fmt.Fprintln(out, "Source:       UPSTREAM_BASE_URL")
		return nil
	}
	fmt.Fprintln(out, "Source:       platform")
	fmt.Fprintf(out, "Platform:     %s\n", cfg.Platform.OS)
	fmt.Fprintf(out, "Emulator:     %t\n", cfg.Platform.IsEmulator)
	if cfg.Platform.DevHost != "" {
		fmt.Fprintf(out, "Dev Host:     %s\n", cfg.Platform.DevHost)
	}
	return nil
}
