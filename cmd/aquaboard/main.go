// Package main is the entry point for the aquaboard CLI.
//
// AquaBoard can be run either as a library (SDK) or as a standalone binary
// with YAML configuration. This CLI provides the standalone binary approach.
//
// Usage:
//
//	aquaboard serve -c config.yaml          # Start the dashboard
//	aquaboard serve -c config.yaml --watch  # Reload the connection on edits
//	aquaboard fetch -c config.yaml          # Run one fetch and print it
//	aquaboard validate -c config.yaml       # Validate configuration
//	aquaboard version                       # Show version info
package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

// Version information - set by GoReleaser at build time via ldflags.
// Example: go build -ldflags "-X main.version=1.0.0"
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// rootCmd is the base command when called without subcommands.
// It just displays help - actual functionality is in subcommands.
var rootCmd = &cobra.Command{
	Use:   "aquaboard",
	Short: "A real-time water quality dashboard for InfluxDB",
	Long: `AquaBoard is a real-time water quality dashboard.

It queries an InfluxDB bucket at a configurable interval, keeps a bounded
window of readings and shows them in a web UI with Server-Sent Events for
live updates.

Quick start:
  1. Create a config file (aquaboard.yaml)
  2. Export INFLUX_TOKEN (or set influx.token in the file)
  3. Run: aquaboard serve -c aquaboard.yaml
  4. Open http://localhost:8080 in your browser

Example config:
  port: 8080
  poll_interval: 60s
  lookback: 7d
  influx:
    url: http://localhost:8086
    org: aqua
    bucket: sensors`,
	SilenceUsage: true,
	// No Run/RunE means this just shows help when called without subcommands
}

// Execute runs the root command.
// This is the main entry point called from main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		// Cobra already prints the error, just exit with code 1
		os.Exit(1)
	}
}

func main() {
	Execute()
}

// newLogger creates a JSON logger for CLI use at the level named by the
// --log-level flag.
func newLogger(cmd *cobra.Command, w io.Writer) (*slog.Logger, error) {
	name, _ := cmd.Flags().GetString("log-level")

	var level slog.Level
	if err := level.UnmarshalText([]byte(name)); err != nil {
		return nil, fmt.Errorf("invalid --log-level %q: expected debug, info, warn or error", name)
	}

	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: level,
	})), nil
}

// versionCmd prints version information.
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long:  `Print the version, commit hash, and build date of this aquaboard binary.`,
	Run: func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "aquaboard %s\n", version)
		fmt.Fprintf(out, "  commit: %s\n", commit)
		fmt.Fprintf(out, "  built:  %s\n", date)
	},
}

func init() {
	rootCmd.PersistentFlags().String("log-level", "info", "log level: debug, info, warn or error")

	// Register subcommands with root
	rootCmd.AddCommand(versionCmd)
}
