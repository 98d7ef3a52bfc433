package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jpalmerr/aquaboard"
	"github.com/jpalmerr/aquaboard/config"
)

// validateCmd validates a config file without starting the server.
var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a config file",
	Long: `Validate an AquaBoard configuration file without starting the server.

This command parses the YAML, expands environment variables, and validates
all fields. It's useful for CI/CD pipelines or pre-deployment checks.

Missing influx settings are reported but do not fail validation: the
server starts without them and shows the dashboard as not configured.

Exit codes:
  0 - Config is valid
  1 - Config is invalid (error details printed to stderr)

Example:
  aquaboard validate -c config.yaml
  aquaboard validate --config /etc/aquaboard/config.yaml`,
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)

	validateCmd.Flags().StringP("config", "c", "", "path to config file (required)")
	_ = validateCmd.MarkFlagRequired("config")
}

func runValidate(cmd *cobra.Command, args []string) error {
	configFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	fields := len(cfg.Fields)
	if fields == 0 {
		fields = len(aquaboard.DefaultFields())
	}

	connection := "ok"
	if err := cfg.Connection().Validate(); err != nil {
		connection = err.Error()
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Config is valid!\n")
	fmt.Fprintf(out, "  Port:          %d\n", cfg.Port)
	fmt.Fprintf(out, "  Poll interval: %s\n", cfg.PollInterval.Duration())
	fmt.Fprintf(out, "  Lookback:      %s\n", cfg.Lookback.Duration())
	fmt.Fprintf(out, "  Fields:        %d\n", fields)
	fmt.Fprintf(out, "  Connection:    %s\n", connection)

	return nil
}
