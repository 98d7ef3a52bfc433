package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/jpalmerr/aquaboard"
	"github.com/jpalmerr/aquaboard/config"
	"github.com/jpalmerr/aquaboard/series"
)

// fetchCmd runs a single fetch cycle and prints the result.
var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Run one fetch and print the readings",
	Long: `Run a single fetch against the configured bucket and print the result.

No server is started. The readings are printed as a table, or as JSON with
--format json.

Exit codes:
  0 - The fetch succeeded (possibly with no records)
  1 - The connection is not configured or the query failed

Example:
  aquaboard fetch -c config.yaml
  aquaboard fetch -c config.yaml --format json`,
	RunE: runFetch,
}

func init() {
	rootCmd.AddCommand(fetchCmd)

	fetchCmd.Flags().StringP("config", "c", "", "path to config file (required)")
	fetchCmd.Flags().StringP("format", "f", "table", "output format: table or json")
	_ = fetchCmd.MarkFlagRequired("config")
}

// fetchReport is the JSON form of one fetch.
type fetchReport struct {
	Status    aquaboard.Status `json:"status"`
	Message   string           `json:"message"`
	FetchID   string           `json:"fetch_id,omitempty"`
	FetchedAt *time.Time       `json:"fetched_at"`
	Duration  string           `json:"duration"`
	Error     *string          `json:"error"`
	Window    series.Window    `json:"window"`
}

func runFetch(cmd *cobra.Command, args []string) error {
	format, _ := cmd.Flags().GetString("format")
	if format != "table" && format != "json" {
		return fmt.Errorf("invalid --format %q: expected table or json", format)
	}

	logger, err := newLogger(cmd, cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	configFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	opts, err := config.BuildOptions(cfg)
	if err != nil {
		return fmt.Errorf("failed to build options: %w", err)
	}
	opts = append(opts, aquaboard.WithLogger(logger))

	ab, err := aquaboard.New(opts...)
	if err != nil {
		return fmt.Errorf("failed to create AquaBoard: %w", err)
	}
	defer ab.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return printFetch(ctx, cmd.OutOrStdout(), ab, format)
}

// printFetch runs one fetch on ab and writes it to w. It returns an error
// for the error statuses so the process exits non-zero.
func printFetch(ctx context.Context, w io.Writer, ab *aquaboard.AquaBoard, format string) error {
	res := ab.FetchOnce(ctx)

	switch format {
	case "json":
		report := fetchReport{
			Status:   res.Status,
			Message:  res.Message,
			FetchID:  res.FetchID,
			Duration: res.Duration.String(),
			Window:   res.Window,
		}
		if !res.FetchedAt.IsZero() {
			at := res.FetchedAt
			report.FetchedAt = &at
		}
		if res.Err != nil {
			msg := res.Err.Error()
			report.Error = &msg
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(report); err != nil {
			return fmt.Errorf("failed to encode result: %w", err)
		}
	default:
		fmt.Fprintln(w, statusStyle(res.Status).Render(res.Message))
		if res.Window.Len() > 0 {
			fmt.Fprintln(w)
			fmt.Fprint(w, renderTable(res.Window.Table(), ab.Fields()))
		}
	}

	if res.Status.IsError() {
		return fmt.Errorf("fetch failed (%s): %w", res.Status, res.Err)
	}
	return nil
}
