package aquaboard

import (
	"errors"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/jpalmerr/aquaboard/series"
	"github.com/jpalmerr/aquaboard/source"
)

// abConfig holds mutable state during AquaBoard construction.
type abConfig struct {
	title           string
	connection      source.Connection
	lookback        time.Duration
	pollingInterval time.Duration
	fetchTimeout    time.Duration
	fields          []Field
	capacity        series.Capacity
	location        *time.Location
	port            int
	logger          *slog.Logger
	callbacks       []func(Result)
	source          source.Source
	registry        *prometheus.Registry
}

// Option is a function that configures an [AquaBoard] instance during construction.
//
// Option implements the functional options pattern, allowing optional
// configuration to be passed to [New] in a type-safe, extensible way.
// Options return an error if validation fails.
type Option func(*abConfig) error

// WithConnection sets the InfluxDB connection.
//
// The connection is not validated here: missing or invalid settings are
// reported as [StatusConfigError] by the first fetch, so a dashboard can be
// started before it is configured and fixed later with
// [AquaBoard.Reconfigure].
//
// Example:
//
//	ab, err := aquaboard.New(
//	    aquaboard.WithConnection(source.Connection{
//	        URL:    "https://us-east-1-1.aws.cloud2.influxdata.com",
//	        Token:  os.Getenv("INFLUX_TOKEN"),
//	        Org:    "aqua",
//	        Bucket: "sensors",
//	    }),
//	)
func WithConnection(conn source.Connection) Option {
	return func(cfg *abConfig) error {
		cfg.connection = conn
		return nil
	}
}

// WithLookback sets how far back each range query reaches.
// Defaults to 7 days.
//
// Returns an error if the duration is zero or negative.
func WithLookback(d time.Duration) Option {
	return func(cfg *abConfig) error {
		if d <= 0 {
			return errors.New("lookback must be positive")
		}
		cfg.lookback = d
		return nil
	}
}

// WithPollingInterval sets how often the bucket is queried.
// Defaults to 60 seconds.
//
// Returns an error if the duration is zero or negative.
func WithPollingInterval(d time.Duration) Option {
	return func(cfg *abConfig) error {
		if d <= 0 {
			return errors.New("polling interval must be positive")
		}
		cfg.pollingInterval = d
		return nil
	}
}

// WithFetchTimeout bounds a single fetch. A fetch that runs longer is
// reported as [StatusQueryError] and retried on the next interval.
//
// Defaults to half the polling interval, capped at 30 seconds. [New] returns
// an error if the timeout is not shorter than the polling interval.
func WithFetchTimeout(d time.Duration) Option {
	return func(cfg *abConfig) error {
		if d <= 0 {
			return errors.New("fetch timeout must be positive")
		}
		cfg.fetchTimeout = d
		return nil
	}
}

// WithFields sets the readings to show, in display order. Rows for any
// other field are ignored. Defaults to [DefaultFields].
//
// Returns an error if no fields are given.
func WithFields(fields ...Field) Option {
	return func(cfg *abConfig) error {
		if len(fields) == 0 {
			return errors.New("at least one field is required")
		}
		cfg.fields = append([]Field(nil), fields...)
		return nil
	}
}

// WithRetainCount keeps only the n most recent samples in the window.
//
// By default the window keeps every sample inside the lookback. The last of
// [WithRetainCount] and [WithRetainAge] wins.
//
// Returns an error if n is zero or negative.
func WithRetainCount(n int) Option {
	return func(cfg *abConfig) error {
		if n <= 0 {
			return errors.New("retain count must be positive")
		}
		cfg.capacity = series.CountBounded(n)
		return nil
	}
}

// WithRetainAge keeps only samples newer than d, measured from each fetch.
//
// Returns an error if d is zero or negative.
func WithRetainAge(d time.Duration) Option {
	return func(cfg *abConfig) error {
		if d <= 0 {
			return errors.New("retain age must be positive")
		}
		cfg.capacity = series.TimeBounded(d)
		return nil
	}
}

// WithLocation sets the time zone timestamps are displayed in.
// Defaults to UTC.
//
// Returns an error if loc is nil.
func WithLocation(loc *time.Location) Option {
	return func(cfg *abConfig) error {
		if loc == nil {
			return errors.New("location cannot be nil")
		}
		cfg.location = loc
		return nil
	}
}

// WithPort sets the HTTP port for the dashboard server.
// Defaults to 8080.
//
// Returns an error if the port is outside the valid range (1-65535).
func WithPort(port int) Option {
	return func(cfg *abConfig) error {
		if port < 1 || port > 65535 {
			return errors.New("port must be between 1 and 65535")
		}
		cfg.port = port
		return nil
	}
}

// WithTitle sets the dashboard title displayed in the browser tab and header.
//
// If not specified, defaults to "AquaBoard".
func WithTitle(title string) Option {
	return func(cfg *abConfig) error {
		cfg.title = title
		return nil
	}
}

// WithLogger sets a custom [slog.Logger] for the AquaBoard instance.
//
// If not specified, [slog.Default] is used.
//
// Returns an error if the logger is nil.
func WithLogger(logger *slog.Logger) Option {
	return func(cfg *abConfig) error {
		if logger == nil {
			return errors.New("logger cannot be nil")
		}
		cfg.logger = logger
		return nil
	}
}

// WithOutcomeCallback registers a function to be called after every fetch.
//
// Callbacks run after the dashboard state has been updated, in registration
// order, on the polling goroutine. They must not block and must not call
// [AquaBoard.Reconfigure]. Panics are recovered and logged. Stale results
// are never delivered.
//
// Example:
//
//	ab, err := aquaboard.New(
//	    aquaboard.WithOutcomeCallback(func(r aquaboard.Result) {
//	        if r.Status.IsError() {
//	            alerts.Notify(r.Message)
//	        }
//	    }),
//	)
//
// Nil callbacks are silently ignored.
func WithOutcomeCallback(cb func(Result)) Option {
	return func(cfg *abConfig) error {
		if cb == nil {
			return nil
		}
		cfg.callbacks = append(cfg.callbacks, cb)
		return nil
	}
}

// WithSource replaces the InfluxDB source. The caller keeps ownership: the
// source is not closed by [AquaBoard.Close].
//
// Returns an error if src is nil.
func WithSource(src source.Source) Option {
	return func(cfg *abConfig) error {
		if src == nil {
			return errors.New("source cannot be nil")
		}
		cfg.source = src
		return nil
	}
}

// WithRegistry registers the fetch metrics with reg and serves reg at
// /metrics. By default each instance gets its own registry with the Go and
// process collectors. Instances sharing reg add to the same series.
//
// Returns an error if reg is nil.
func WithRegistry(reg *prometheus.Registry) Option {
	return func(cfg *abConfig) error {
		if reg == nil {
			return errors.New("registry cannot be nil")
		}
		cfg.registry = reg
		return nil
	}
}
