package aquaboard

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/jpalmerr/aquaboard/dashboard"
	"github.com/jpalmerr/aquaboard/internal/metrics"
	"github.com/jpalmerr/aquaboard/internal/poller"
	"github.com/jpalmerr/aquaboard/internal/server"
	"github.com/jpalmerr/aquaboard/internal/store"
	"github.com/jpalmerr/aquaboard/series"
	"github.com/jpalmerr/aquaboard/source"
)

const (
	defaultPort = 8080
)

// ErrAlreadyRunning is returned by [AquaBoard.Start] when the instance is
// already started.
var ErrAlreadyRunning = errors.New("aquaboard is already running")

// AquaBoard is the main orchestrator for polling the bucket and serving the
// dashboard.
//
// AquaBoard queries the configured InfluxDB bucket on a fixed interval,
// reshapes the rows into a bounded window of samples and serves it to a
// real-time dashboard via HTTP. It is created using [New] with functional
// options and started with [AquaBoard.Start].
//
// The typical lifecycle is:
//
//	ab, err := aquaboard.New(aquaboard.WithConnection(conn))
//	if err != nil {
//	    slog.Error("failed to create aquaboard", "error", err)
//	    os.Exit(1)
//	}
//	defer ab.Close()
//
//	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
//	defer cancel()
//
//	ab.Start(ctx) // blocks until context cancelled
type AquaBoard struct {
	title           string
	port            int
	fields          []Field
	lookback        time.Duration
	pollingInterval time.Duration
	logger          *slog.Logger
	callbacks       []func(Result)

	source     source.Source
	ownsSource bool
	registry   *prometheus.Registry
	poller     *poller.Poller
	store      *store.MemoryStore

	// mu guards runCtx, which is set while Start is running so that
	// Reconfigure can restart polling under the same context.
	mu     sync.Mutex
	runCtx context.Context
}

// New creates a new [AquaBoard] instance with the given options.
//
// Defaults:
//   - Fields: pH, turbidity and conductivity ([DefaultFields])
//   - Lookback: 7 days
//   - Polling interval: 60 seconds
//   - Fetch timeout: half the polling interval, at most 30 seconds
//   - Window: every sample inside the lookback
//   - Port: 8080
//
// New does not contact the store. Returns an error if any option is
// invalid, field names are duplicated or the metrics cannot be registered.
func New(opts ...Option) (*AquaBoard, error) {
	cfg := &abConfig{
		fields:          DefaultFields(),
		lookback:        poller.DefaultLookback,
		pollingInterval: poller.DefaultInterval,
		port:            defaultPort,
	}

	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, err
		}
	}

	seen := make(map[string]bool, len(cfg.fields))
	for _, f := range cfg.fields {
		if seen[f.name] {
			return nil, fmt.Errorf("duplicate field name: %q", f.name)
		}
		seen[f.name] = true
	}

	if cfg.fetchTimeout > 0 && cfg.fetchTimeout >= cfg.pollingInterval {
		return nil, fmt.Errorf("fetch timeout %s must be shorter than the polling interval %s",
			cfg.fetchTimeout, cfg.pollingInterval)
	}

	logger := cfg.logger
	if logger == nil {
		logger = slog.Default()
	}

	ab := &AquaBoard{
		title:           cfg.title,
		port:            cfg.port,
		fields:          cfg.fields,
		lookback:        cfg.lookback,
		pollingInterval: cfg.pollingInterval,
		logger:          logger,
		callbacks:       cfg.callbacks,
		source:          cfg.source,
		registry:        cfg.registry,
	}
	if ab.registry == nil {
		ab.registry = metrics.NewRegistry()
	}
	recorder, err := metrics.New(ab.registry)
	if err != nil {
		return nil, fmt.Errorf("failed to register metrics: %w", err)
	}
	if ab.source == nil {
		ab.source = source.NewInflux(logger)
		ab.ownsSource = true
	}

	display := series.Display{Location: cfg.location}
	ab.poller = poller.New(poller.Config{
		Connection: cfg.connection,
		Lookback:   cfg.lookback,
		Interval:   cfg.pollingInterval,
		Timeout:    cfg.fetchTimeout,
		Fields:     fieldNames(cfg.fields),
		Capacity:   cfg.capacity,
		Display:    display,
	}, ab.source, logger, recorder)

	ab.store = store.NewMemoryStore(ab.loadingSnapshot())
	ab.poller.Subscribe(ab.handleOutcome)

	return ab, nil
}

// Start begins polling and serving the dashboard.
//
// Start is a blocking call that runs until the provided context is cancelled.
// During execution:
//
//   - The HTTP server starts on the configured port
//   - The bucket is queried immediately, then at the configured interval
//   - Fetch outcomes update the dashboard, then reach the outcome callbacks
//   - The dashboard is available at http://localhost:<port>
//
// A missing or invalid connection does not make Start fail: the dashboard
// shows [StatusConfigError] and polling waits for [AquaBoard.Reconfigure].
//
// Returns nil on graceful shutdown. Returns an error if the HTTP server fails
// to start or Start is already running.
func (ab *AquaBoard) Start(ctx context.Context) error {
	// check if context already cancelled
	if ctx.Err() != nil {
		return nil
	}

	ab.mu.Lock()
	if ab.runCtx != nil {
		ab.mu.Unlock()
		return ErrAlreadyRunning
	}
	ab.runCtx = ctx
	ab.mu.Unlock()

	cfg := ab.poller.Config()
	ab.logger.Info("aquaboard starting", "connection", cfg.Connection, "fields", cfg.Fields)
	ab.logger.Info("polling configured",
		"interval", cfg.Interval.String(),
		"lookback", cfg.Lookback.String(),
		"timeout", cfg.Timeout.String(),
		"retain", cfg.Capacity.String(),
	)

	httpServer := server.NewServer(ab.store, server.Config{
		Port:    ab.port,
		Assets:  dashboard.Assets,
		Title:   ab.title,
		Fields:  ab.fieldInfo(),
		Metrics: metrics.Handler(ab.registry),
		Refresh: ab.refresh,
	}, ab.logger)
	if err := httpServer.Start(ctx); err != nil {
		ab.mu.Lock()
		ab.runCtx = nil
		ab.mu.Unlock()
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}
	ab.logger.Info("dashboard available", "url", fmt.Sprintf("http://localhost:%d", ab.port))

	ab.store.Update(ab.loadingSnapshot())
	ab.poller.Start(ctx)

	<-ctx.Done()

	ab.mu.Lock()
	ab.runCtx = nil
	ab.mu.Unlock()
	ab.poller.Stop()

	ab.logger.Info("aquaboard stopped")
	return nil
}

// Reconfigure replaces the connection. If Start is running, polling
// restarts straight away with an empty window; otherwise the new connection
// is used by the next [AquaBoard.Start] or [AquaBoard.FetchOnce].
func (ab *AquaBoard) Reconfigure(conn source.Connection) {
	ab.poller.SetConnection(conn)

	ab.mu.Lock()
	defer ab.mu.Unlock()
	if ab.runCtx == nil || ab.runCtx.Err() != nil {
		return
	}

	ab.logger.Info("connection reconfigured, restarting polling", "connection", conn)
	ab.poller.Stop()
	ab.store.Update(ab.loadingSnapshot())
	ab.poller.Start(ab.runCtx)
}

// FetchOnce queries the bucket now and returns the result.
//
// If a fetch is already in flight FetchOnce waits for it instead of
// starting another. The result also updates the dashboard and reaches the
// outcome callbacks unless it is stale. FetchOnce works whether or not
// Start is running.
func (ab *AquaBoard) FetchOnce(ctx context.Context) Result {
	return resultOf(ab.poller.FetchOnce(ctx), ab.pollingInterval, ab.lookback)
}

// Status returns the current dashboard status and its message.
func (ab *AquaBoard) Status() (Status, string) {
	snapshot := ab.store.Get()
	return Status(snapshot.Status), snapshot.Message
}

// Window returns the current series window.
func (ab *AquaBoard) Window() series.Window {
	return ab.poller.Window()
}

// Combined returns every field aligned to one label axis.
func (ab *AquaBoard) Combined() series.Chart {
	return ab.poller.Window().Combined()
}

// Single returns one field's dataset. An unknown field yields an empty
// dataset.
func (ab *AquaBoard) Single(field string) series.Dataset {
	return ab.poller.Window().Single(field)
}

// Table returns the window in display form.
func (ab *AquaBoard) Table() series.Table {
	return ab.poller.Window().Table()
}

// Fields returns a copy of the configured fields.
func (ab *AquaBoard) Fields() []Field {
	cp := make([]Field, len(ab.fields))
	copy(cp, ab.fields)
	return cp
}

// Port returns the configured HTTP port for the dashboard server.
func (ab *AquaBoard) Port() int {
	return ab.port
}

// PollingInterval returns the configured interval between fetches.
func (ab *AquaBoard) PollingInterval() time.Duration {
	return ab.pollingInterval
}

// Lookback returns the configured query range.
func (ab *AquaBoard) Lookback() time.Duration {
	return ab.lookback
}

// Close releases the InfluxDB clients. Sources passed with [WithSource] are
// left open. Close does not stop a running Start; cancel its context first.
func (ab *AquaBoard) Close() error {
	if !ab.ownsSource {
		return nil
	}
	return ab.source.Close()
}

// refresh serves POST /api/refresh.
func (ab *AquaBoard) refresh(ctx context.Context) store.Snapshot {
	ab.FetchOnce(ctx)
	return ab.store.Get()
}

// handleOutcome is the poller subscriber: store update first, then
// callbacks, then the log line.
func (ab *AquaBoard) handleOutcome(out poller.Outcome) {
	res := resultOf(out, ab.pollingInterval, ab.lookback)

	ab.store.Update(snapshotOf(res))

	for _, cb := range ab.callbacks {
		invokeCallbackSafe(cb, res, ab.logger)
	}

	logAttrs := []any{
		"status", res.Status,
		"fetch_id", res.FetchID,
		"samples", res.Window.Len(),
		"skipped", res.Skipped,
		"duration_ms", res.Duration.Milliseconds(),
	}
	switch {
	case res.Err != nil:
		ab.logger.Warn("fetch completed with error", append(logAttrs, "error", res.Err.Error())...)
	case res.Status == StatusEmpty:
		ab.logger.Info("fetch returned no data", logAttrs...)
	default:
		ab.logger.Debug("fetch completed", logAttrs...)
	}
}

// loadingSnapshot is shown from Start until the first fetch completes.
func (ab *AquaBoard) loadingSnapshot() store.Snapshot {
	cfg := ab.poller.Config()
	return store.Snapshot{
		Status:    string(StatusLoading),
		Message:   loadingMessage,
		Window:    series.EmptyWindow(cfg.Fields, cfg.Display),
		UpdatedAt: time.Now(),
	}
}

// fieldInfo converts the fields to the server's presentation type, filling
// in palette colours.
func (ab *AquaBoard) fieldInfo() []server.FieldInfo {
	info := make([]server.FieldInfo, len(ab.fields))
	for i, f := range ab.fields {
		color := f.color
		if color == "" {
			color = palette[i%len(palette)]
		}
		info[i] = server.FieldInfo{
			Name:  f.name,
			Label: f.label,
			Unit:  f.unit,
			Color: color,
		}
		if lo, hi, ok := f.Range(); ok {
			info[i].Min, info[i].Max = &lo, &hi
		}
	}
	return info
}

// snapshotOf converts a result to the store representation.
func snapshotOf(res Result) store.Snapshot {
	snapshot := store.Snapshot{
		Status:    string(res.Status),
		Message:   res.Message,
		Retryable: res.Status.Retryable(),
		Window:    res.Window,
		Samples:   res.Window.Len(),
		UpdatedAt: time.Now(),
		FetchID:   res.FetchID,
	}
	if latest, ok := res.Window.Latest(); ok {
		snapshot.Latest = &latest
	}
	if !res.FetchedAt.IsZero() {
		fetchedAt := res.FetchedAt
		snapshot.FetchedAt = &fetchedAt
	}
	if res.Err != nil {
		errStr := res.Err.Error()
		snapshot.Error = &errStr
	}
	return snapshot
}

// invokeCallbackSafe calls an outcome callback with panic recovery.
// Panics are logged but do not propagate.
func invokeCallbackSafe(cb func(Result), res Result, logger *slog.Logger) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("outcome callback panicked",
				"panic", r,
				"fetch_id", res.FetchID,
			)
		}
	}()
	cb(res)
}
