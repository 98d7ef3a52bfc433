package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/jpalmerr/aquaboard"
	"github.com/jpalmerr/aquaboard/config"
	"github.com/jpalmerr/aquaboard/source"
)

const (
	shutdownTimeout = 10 * time.Second
)

// serveCmd starts the AquaBoard dashboard server.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the dashboard server",
	Long: `Start the AquaBoard dashboard server.

The server will:
  - Load configuration from the specified YAML file
  - Query the configured bucket immediately, then every poll_interval
  - Serve the dashboard UI on the configured port

Missing connection settings do not stop the server: the dashboard reports
them until the configuration is fixed. With --watch, edits to the influx
block are applied without a restart.

The server runs until interrupted (Ctrl+C) or receives SIGTERM.

Example:
  aquaboard serve -c config.yaml
  aquaboard serve --config /etc/aquaboard/config.yaml --watch`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringP("config", "c", "", "path to config file (required)")
	serveCmd.Flags().Bool("watch", false, "reload the influx connection when the config file changes")
	_ = serveCmd.MarkFlagRequired("config")
}

func runServe(cmd *cobra.Command, args []string) error {
	logger, err := newLogger(cmd, os.Stderr)
	if err != nil {
		return err
	}

	configFile, _ := cmd.Flags().GetString("config")
	watch, _ := cmd.Flags().GetBool("watch")

	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	conn := cfg.Connection()
	logger.Info("config loaded",
		"connection", conn,
		"fields", len(cfg.Fields),
	)
	logger.Info("starting server",
		"port", cfg.Port,
		"poll_interval", cfg.PollInterval.Duration().String(),
		"lookback", cfg.Lookback.Duration().String(),
	)

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

	// set up context with signal handling - cancel on SIGINT/SIGTERM
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := ab.Start(gctx); err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	if watch {
		watcher, err := newConfigWatcher(configFile, logger)
		if err != nil {
			return err
		}
		defer watcher.Close()

		g.Go(func() error {
			return watcher.Run(gctx, func(next *config.Config) {
				conn = applyConnection(ab, conn, next.Connection(), logger)
			})
		})
		logger.Info("watching config file", "path", configFile)
	}

	done := make(chan error, 1)
	go func() {
		done <- g.Wait()
	}()

	// wait for server to finish
	select {
	case err := <-done:
		if err != nil {
			return err
		}
		logger.Info("shutdown complete")
		return nil

	case <-ctx.Done():
		// signal received, wait for graceful shutdown with timeout
		select {
		case err := <-done:
			if err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			logger.Info("shutdown complete")
			return nil
		case <-time.After(shutdownTimeout):
			logger.Warn("shutdown timed out",
				"timeout", shutdownTimeout.String(),
				"action", "forcing exit",
			)
			return nil
		}
	}
}

// applyConnection reconfigures ab if next differs from current and returns
// the connection now in effect.
func applyConnection(ab *aquaboard.AquaBoard, current, next source.Connection, logger *slog.Logger) source.Connection {
	if next == current {
		logger.Debug("config changed, connection unchanged")
		return current
	}
	ab.Reconfigure(next)
	logger.Info("connection reloaded", "connection", next)
	return next
}
