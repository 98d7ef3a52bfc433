package aquaboard

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/jpalmerr/aquaboard/series"
	"github.com/jpalmerr/aquaboard/source"
)

func TestNew_Defaults(t *testing.T) {
	ab, err := New()
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer func() { _ = ab.Close() }()

	if ab.Port() != 8080 {
		t.Errorf("Port() = %d, want 8080", ab.Port())
	}
	if ab.PollingInterval() != 60*time.Second {
		t.Errorf("PollingInterval() = %v, want 60s", ab.PollingInterval())
	}
	if ab.Lookback() != 7*24*time.Hour {
		t.Errorf("Lookback() = %v, want 168h", ab.Lookback())
	}
	if got := fieldNames(ab.Fields()); strings.Join(got, ",") != "ph,turbidez,conductividad" {
		t.Errorf("Fields() = %v, want ph, turbidez, conductividad", got)
	}

	cfg := ab.poller.Config()
	if cfg.Timeout != 30*time.Second {
		t.Errorf("timeout = %v, want 30s", cfg.Timeout)
	}
	if cfg.Capacity != series.TimeBounded(7*24*time.Hour) {
		t.Errorf("capacity = %v, want last 168h0m0s", cfg.Capacity)
	}
	if !ab.ownsSource {
		t.Error("default source should be owned by the instance")
	}

	status, msg := ab.Status()
	if status != StatusLoading || msg == "" {
		t.Errorf("Status() = %q %q, want loading with a message", status, msg)
	}
}

func TestNew_AppliesOptions(t *testing.T) {
	temp, err := NewField("temperatura", WithUnit("°C"))
	if err != nil {
		t.Fatalf("NewField() error = %v", err)
	}
	src := source.Func(func(context.Context, source.Request) (source.Rows, error) {
		return source.NewRows(nil), nil
	})
	loc := time.FixedZone("CST", -6*3600)

	ab, err := New(
		WithConnection(validConn),
		WithLookback(24*time.Hour),
		WithPollingInterval(10*time.Second),
		WithFetchTimeout(2*time.Second),
		WithFields(temp),
		WithRetainCount(50),
		WithLocation(loc),
		WithPort(9090),
		WithTitle("Planta Norte"),
		WithSource(src),
		WithRegistry(prometheus.NewRegistry()),
	)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	cfg := ab.poller.Config()
	if cfg.Connection != validConn {
		t.Errorf("connection = %+v, want %+v", cfg.Connection, validConn)
	}
	if cfg.Lookback != 24*time.Hour || cfg.Interval != 10*time.Second || cfg.Timeout != 2*time.Second {
		t.Errorf("lookback/interval/timeout = %v/%v/%v", cfg.Lookback, cfg.Interval, cfg.Timeout)
	}
	if len(cfg.Fields) != 1 || cfg.Fields[0] != "temperatura" {
		t.Errorf("fields = %v, want [temperatura]", cfg.Fields)
	}
	if cfg.Capacity != series.CountBounded(50) {
		t.Errorf("capacity = %v, want last 50 samples", cfg.Capacity)
	}
	if cfg.Display.Location != loc {
		t.Errorf("display location = %v, want CST", cfg.Display.Location)
	}
	if ab.Port() != 9090 || ab.title != "Planta Norte" {
		t.Errorf("port/title = %d/%q", ab.Port(), ab.title)
	}
	if ab.ownsSource {
		t.Error("a source passed with WithSource must not be owned")
	}
}

func TestNew_InvalidOptions(t *testing.T) {
	ph, _ := NewField("ph")
	ph2, _ := NewField("ph", WithLabel("pH again"))

	tests := []struct {
		name    string
		opts    []Option
		wantErr string
	}{
		{"zero lookback", []Option{WithLookback(0)}, "lookback must be positive"},
		{"negative interval", []Option{WithPollingInterval(-time.Second)}, "polling interval must be positive"},
		{"zero timeout", []Option{WithFetchTimeout(0)}, "fetch timeout must be positive"},
		{"timeout not below interval", []Option{WithPollingInterval(5 * time.Second), WithFetchTimeout(5 * time.Second)}, "must be shorter"},
		{"no fields", []Option{WithFields()}, "at least one field"},
		{"duplicate fields", []Option{WithFields(ph, ph2)}, "duplicate field name"},
		{"zero retain count", []Option{WithRetainCount(0)}, "retain count must be positive"},
		{"zero retain age", []Option{WithRetainAge(0)}, "retain age must be positive"},
		{"nil location", []Option{WithLocation(nil)}, "location cannot be nil"},
		{"port zero", []Option{WithPort(0)}, "port must be between"},
		{"port too high", []Option{WithPort(65536)}, "port must be between"},
		{"nil logger", []Option{WithLogger(nil)}, "logger cannot be nil"},
		{"nil source", []Option{WithSource(nil)}, "source cannot be nil"},
		{"nil registry", []Option{WithRegistry(nil)}, "registry cannot be nil"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.opts...)
			if err == nil {
				t.Fatalf("New() error = nil, want %q", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("New() error = %v, want error containing %q", err, tt.wantErr)
			}
		})
	}
}

// TestWithRetain_LastWins verifies that the last retain option replaces
// earlier ones.
func TestWithRetain_LastWins(t *testing.T) {
	ab, err := New(WithRetainCount(10), WithRetainAge(time.Hour), WithSource(emptySource()))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if got := ab.poller.Config().Capacity; got != series.TimeBounded(time.Hour) {
		t.Errorf("capacity = %v, want last 1h0m0s", got)
	}
}

func TestWithOutcomeCallback_NilIgnored(t *testing.T) {
	ab, err := New(WithOutcomeCallback(nil), WithSource(emptySource()))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if len(ab.callbacks) != 0 {
		t.Errorf("len(callbacks) = %d, want 0", len(ab.callbacks))
	}
}

func TestWithLogger_UsedForFetchLogs(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	ab, err := New(WithLogger(logger), WithConnection(validConn), WithSource(emptySource()))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	ab.FetchOnce(context.Background())

	if !strings.Contains(buf.String(), "fetch returned no data") {
		t.Errorf("expected fetch log in custom logger, got: %s", buf.String())
	}
}
