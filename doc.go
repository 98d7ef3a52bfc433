// Package aquaboard provides an embeddable water quality dashboard backed by
// an InfluxDB bucket.
//
// AquaBoard is designed as an SDK-first library: it periodically runs a
// range query against a time-series store, reshapes the raw
// (timestamp, field, value) rows into one sample per instant, keeps a
// bounded history of samples and serves it to a real-time dashboard.
//
// # Quick Start
//
//	ab, _ := aquaboard.New(aquaboard.WithConnection(source.Connection{
//	    URL:    "https://us-east-1-1.aws.cloud2.influxdata.com",
//	    Token:  os.Getenv("INFLUX_TOKEN"),
//	    Org:    "aqua",
//	    Bucket: "sensors",
//	}))
//	defer ab.Close()
//
//	// Set up graceful shutdown on SIGINT/SIGTERM
//	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
//	defer stop()
//
//	ab.Start(ctx) // blocks until context is cancelled
//
// # Configuration
//
// AquaBoard uses the functional options pattern for configuration:
//
//	ab, err := aquaboard.New(
//	    aquaboard.WithConnection(conn),
//	    aquaboard.WithLookback(24 * time.Hour),
//	    aquaboard.WithPollingInterval(30 * time.Second),
//	    aquaboard.WithRetainCount(500),
//	    aquaboard.WithPort(9090),
//	)
//
// Fields describe which readings are shown and how:
//
//	temp, err := aquaboard.NewField("temperatura",
//	    aquaboard.WithLabel("Temperatura"),
//	    aquaboard.WithUnit("°C"),
//	    aquaboard.WithRange(0, 40),
//	)
//
// # Statuses
//
// Every fetch ends in one of four outcomes, shown on the dashboard as a
// [Status]: [StatusReady] when data was returned, [StatusEmpty] when the
// store answered without usable records, [StatusConfigError] when the
// connection settings are missing or invalid (polling halts until
// [AquaBoard.Reconfigure]) and [StatusQueryError] when the query failed or
// timed out (retried on the next interval). Rows with unknown fields or
// values that are not numbers are skipped and never fail a fetch.
//
// # Architecture
//
//   - series: samples, the pivot from rows to samples, windows and views
//   - source: the store contract and the InfluxDB implementation
//   - internal/poller: scheduling, the stale-result guard and publication
//   - internal/store: latest snapshot with pub/sub for real-time updates
//   - internal/server: HTTP server with REST API and Server-Sent Events
//   - internal/metrics: Prometheus metrics for fetch cycles
//   - dashboard: Embedded web UI assets
//
// The internal packages are not part of the public API and may change
// without notice.
package aquaboard
