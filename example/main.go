package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jpalmerr/aquaboard"
	"github.com/jpalmerr/aquaboard/source"
)

func main() {
	// readings come from the simulator (see simulator.go); the connection
	// only has to be complete to pass validation
	conn := source.Connection{
		URL:    "http://simulator.local:8086",
		Token:  "demo",
		Org:    "aqua",
		Bucket: "planta-norte",
	}

	oxygen, err := aquaboard.NewField("oxigeno",
		aquaboard.WithLabel("Oxígeno disuelto"),
		aquaboard.WithUnit("mg/L"),
	)
	if err != nil {
		slog.Error("failed to create field", "error", err)
		os.Exit(1)
	}
	fields := append(aquaboard.DefaultFields(), oxygen)

	ab, err := aquaboard.New(
		aquaboard.WithConnection(conn),
		aquaboard.WithSource(simulator{step: 30 * time.Second}),
		aquaboard.WithFields(fields...),
		aquaboard.WithLookback(2*time.Hour),
		aquaboard.WithPollingInterval(10*time.Second),
		aquaboard.WithRetainCount(240),
		aquaboard.WithTitle("Planta Norte (demo)"),
		aquaboard.WithPort(8080),
		aquaboard.WithOutcomeCallback(func(res aquaboard.Result) {
			if res.Status.IsError() {
				slog.Warn("fetch failed", "status", res.Status, "error", res.Err)
			}
		}),
	)
	if err != nil {
		slog.Error("failed to create aquaboard", "error", err)
		os.Exit(1)
	}
	defer ab.Close()

	fmt.Println()
	fmt.Println("  ╔═══════════════════════════════════════════════════════╗")
	fmt.Println("  ║                                                       ║")
	fmt.Println("  ║   AquaBoard Demo                                      ║")
	fmt.Println("  ║                                                       ║")
	fmt.Println("  ║   Open http://localhost:8080 in your browser          ║")
	fmt.Println("  ║                                                       ║")
	fmt.Println("  ║   Fields:                                             ║")
	fmt.Println("  ║   • pH, turbidez, conductividad (simulated)           ║")
	fmt.Println("  ║   • oxígeno (configured, never reported)              ║")
	fmt.Println("  ║                                                       ║")
	fmt.Println("  ║   Press Ctrl+C to stop                                ║")
	fmt.Println("  ║                                                       ║")
	fmt.Println("  ╚═══════════════════════════════════════════════════════╝")
	fmt.Println()

	// set up context with signal handling for graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := ab.Start(ctx); err != nil {
		slog.Error("aquaboard error", "error", err)
		os.Exit(1)
	}
}
