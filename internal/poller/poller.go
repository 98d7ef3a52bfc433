package poller

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/jpalmerr/aquaboard/series"
	"github.com/jpalmerr/aquaboard/source"
)

const (
	// DefaultLookback is how far back each range query reaches.
	DefaultLookback = 7 * 24 * time.Hour

	// DefaultInterval is the time between automatic fetches.
	DefaultInterval = 60 * time.Second

	// maxDefaultTimeout caps the derived per-fetch timeout.
	maxDefaultTimeout = 30 * time.Second
)

// flightKey is the single singleflight key: a poller has one fetch at a time.
const flightKey = "fetch"

// DefaultFields are the water quality readings recognised when no fields are
// configured.
var DefaultFields = []string{"ph", "turbidez", "conductividad"}

// Config configures a [Poller]. Zero values are replaced by defaults.
type Config struct {
	// Connection identifies the store. Every setting is required.
	Connection source.Connection

	// Lookback is the query range behind now. Default 7 days.
	Lookback time.Duration

	// Interval is the time between automatic fetches. Default 60s.
	Interval time.Duration

	// Timeout bounds a single fetch. Default half the interval, capped at
	// 30s. Values not shorter than Interval are replaced by the default.
	Timeout time.Duration

	// Fields are the recognised field names in display order.
	Fields []string

	// Capacity bounds the window. Default: time-bounded to Lookback.
	Capacity series.Capacity

	// Display controls timestamp formatting of the derived views.
	Display series.Display
}

// withDefaults returns a copy of c with zero values filled in.
func (c Config) withDefaults() Config {
	if c.Lookback <= 0 {
		c.Lookback = DefaultLookback
	}
	if c.Interval <= 0 {
		c.Interval = DefaultInterval
	}
	if c.Timeout <= 0 || c.Timeout >= c.Interval {
		c.Timeout = min(c.Interval/2, maxDefaultTimeout)
	}
	if len(c.Fields) == 0 {
		c.Fields = DefaultFields
	}
	c.Fields = append([]string(nil), c.Fields...)
	if c.Capacity.IsZero() {
		c.Capacity = series.TimeBounded(c.Lookback)
	}
	return c
}

// Poller fetches a series window on a fixed interval and publishes every
// outcome to its subscribers.
//
// All methods are safe for concurrent use. Subscribers are called
// synchronously from the fetching goroutine and must not call Start, Stop,
// Reset or FetchOnce on the same poller.
type Poller struct {
	cfg    Config // immutable apart from cfg.Connection, guarded by mu
	source source.Source
	logger *slog.Logger
	rec    Recorder
	now    func() time.Time

	window atomic.Pointer[series.Window]
	flight singleflight.Group

	mu      sync.Mutex
	running bool
	runCtx  context.Context
	cancel  context.CancelFunc
	done    chan struct{}

	// pubMu orders publication against Start, Stop and Reset. Publishers
	// hold the read lock while checking gen and delivering; lifecycle
	// changes take the write lock to bump gen.
	pubMu sync.RWMutex
	gen   uint64

	subMu  sync.Mutex
	subs   []subscriber
	nextID int
}

type subscriber struct {
	id int
	fn func(Outcome)
}

// New creates a poller. It does not fetch until [Poller.Start] or
// [Poller.FetchOnce] is called. A nil logger uses slog.Default(); a nil
// recorder discards measurements.
func New(cfg Config, src source.Source, logger *slog.Logger, rec Recorder) *Poller {
	if logger == nil {
		logger = slog.Default()
	}
	if rec == nil {
		rec = nopRecorder{}
	}
	p := &Poller{
		cfg:    cfg.withDefaults(),
		source: src,
		logger: logger,
		rec:    rec,
		now:    time.Now,
	}
	empty := series.EmptyWindow(p.cfg.Fields, p.cfg.Display)
	p.window.Store(&empty)
	return p
}

// Config returns the effective configuration.
func (p *Poller) Config() Config {
	p.mu.Lock()
	defer p.mu.Unlock()
	cfg := p.cfg
	cfg.Fields = append([]string(nil), p.cfg.Fields...)
	return cfg
}

// SetConnection replaces the connection used by subsequent fetches. A fetch
// already in flight keeps the connection it started with.
func (p *Poller) SetConnection(conn source.Connection) {
	p.mu.Lock()
	p.cfg.Connection = conn
	p.mu.Unlock()
}

// Running reports whether the polling loop is active.
func (p *Poller) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

// Window returns the current window. The window is immutable and remains
// valid after later fetches replace it.
func (p *Poller) Window() series.Window {
	return *p.window.Load()
}

// Subscribe registers fn to receive every published outcome, in
// registration order. It returns a function that removes the subscription.
func (p *Poller) Subscribe(fn func(Outcome)) (unsubscribe func()) {
	p.subMu.Lock()
	p.nextID++
	id := p.nextID
	p.subs = append(p.subs, subscriber{id: id, fn: fn})
	p.subMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			p.subMu.Lock()
			defer p.subMu.Unlock()
			for i, s := range p.subs {
				if s.id == id {
					p.subs = append(p.subs[:i:i], p.subs[i+1:]...)
					return
				}
			}
		})
	}
}

// Start begins polling in a background goroutine and returns immediately.
//
// The window is cleared, a fetch runs straight away and then once per
// interval until [Poller.Stop] is called or ctx is cancelled. If the
// connection is incomplete the ConfigError outcome is published and the
// loop ends without scheduling further fetches; call [Poller.SetConnection]
// and Start again to resume. Start is a no-op while the loop is running.
func (p *Poller) Start(ctx context.Context) {
	if ctx == nil {
		ctx = context.Background()
	}

	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return
	}
	p.running = true
	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	p.runCtx, p.cancel, p.done = runCtx, cancel, done
	p.mu.Unlock()

	p.pubMu.Lock()
	p.gen++
	empty := series.EmptyWindow(p.cfg.Fields, p.cfg.Display)
	p.window.Store(&empty)
	p.pubMu.Unlock()
	p.rec.SetWindowSize(0)

	go p.run(runCtx, done)
}

// Stop halts the polling loop and waits for it to exit.
//
// A fetch in flight is cancelled and its outcome discarded: once Stop
// returns no further outcome is delivered. The window is kept. Stop is
// idempotent and a no-op when the loop is not running.
func (p *Poller) Stop() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	p.running = false
	cancel, done := p.cancel, p.done
	p.runCtx, p.cancel = nil, nil
	p.mu.Unlock()

	// both under the write lock: a fetch that read the old generation is
	// discarded on publish, one that reads the new generation sees its
	// session cancelled and never runs
	p.pubMu.Lock()
	p.gen++
	cancel()
	p.pubMu.Unlock()

	<-done
}

// Reset replaces the window with an empty one. A fetch in flight is
// discarded; the polling loop, if running, carries on.
func (p *Poller) Reset() {
	p.pubMu.Lock()
	p.gen++
	empty := series.EmptyWindow(p.cfg.Fields, p.cfg.Display)
	p.window.Store(&empty)
	p.pubMu.Unlock()
	p.rec.SetWindowSize(0)
}

// FetchOnce fetches immediately and returns the outcome.
//
// If a fetch is already in flight FetchOnce waits for it and returns its
// outcome instead of starting another. If ctx ends first a stale
// QueryError is returned; the shared fetch carries on and still publishes.
// FetchOnce never panics and never returns an error separately.
func (p *Poller) FetchOnce(ctx context.Context) Outcome {
	if ctx == nil {
		ctx = context.Background()
	}
	session := p.session()

	ch := p.flight.DoChan(flightKey, func() (any, error) {
		return p.fetch(session), nil
	})
	select {
	case res := <-ch:
		return res.Val.(Outcome)
	case <-ctx.Done():
		return Outcome{
			Kind:   KindQueryError,
			Window: p.Window(),
			Err:    &QueryError{Err: ctx.Err()},
			Stale:  true,
		}
	}
}

// session returns the context fetches run under: the loop context while
// running, otherwise a background context.
func (p *Poller) session() context.Context {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.running && p.runCtx != nil {
		return p.runCtx
	}
	return context.Background()
}

func (p *Poller) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	out := p.cycle(ctx)
	if out.Stale && ctx.Err() == nil {
		// joined a fetch left over from before Start
		out = p.cycle(ctx)
	}
	if p.halt(out, done) {
		return
	}

	ticker := time.NewTicker(p.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if p.halt(p.cycle(ctx), done) {
				return
			}
		}
	}
}

// cycle runs one scheduled fetch, joining any fetch already in flight.
func (p *Poller) cycle(ctx context.Context) Outcome {
	v, _, _ := p.flight.Do(flightKey, func() (any, error) {
		return p.fetch(ctx), nil
	})
	return v.(Outcome)
}

// halt ends the loop after a published ConfigError. It reports whether the
// loop should exit.
func (p *Poller) halt(out Outcome, done chan struct{}) bool {
	if out.Kind != KindConfigError || out.Stale {
		return false
	}

	p.mu.Lock()
	if p.done == done && p.running {
		p.running = false
		p.cancel()
		p.runCtx, p.cancel = nil, nil
	}
	p.mu.Unlock()

	p.logger.Warn("polling halted until the connection is reconfigured",
		"fetch_id", out.FetchID,
		"error", out.Err,
	)
	return true
}

// fetch runs one fetch under session and publishes the outcome unless the
// session ended or the generation moved on in the meantime.
func (p *Poller) fetch(session context.Context) Outcome {
	p.pubMu.RLock()
	gen := p.gen
	cancelled := session.Err() != nil
	p.pubMu.RUnlock()

	if cancelled {
		return Outcome{
			Kind:   KindQueryError,
			Window: p.Window(),
			Err:    &QueryError{Err: session.Err()},
			Stale:  true,
		}
	}

	p.mu.Lock()
	conn := p.cfg.Connection
	p.mu.Unlock()

	out := p.execute(session, conn)
	return p.publish(gen, out)
}

// execute validates the connection, runs the range query and pivots the rows.
func (p *Poller) execute(session context.Context, conn source.Connection) (out Outcome) {
	fetchID := uuid.NewString()
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			correlationID := uuid.NewString()
			p.logger.Error("fetch panic",
				"correlation_id", correlationID,
				"fetch_id", fetchID,
				"panic", fmt.Sprintf("%v", r),
				"stack", string(debug.Stack()),
			)
			out = Outcome{
				Kind: KindQueryError,
				Err:  &QueryError{Err: fmt.Errorf("source panic (correlation_id: %s)", correlationID)},
			}
		}
		out.FetchID = fetchID
		out.Duration = time.Since(start)
		p.rec.ObserveFetch(string(out.Kind), out.Duration)
	}()

	if err := conn.Validate(); err != nil {
		return Outcome{Kind: KindConfigError, Err: err}
	}

	now := p.now().UTC()
	ctx, cancel := context.WithTimeout(session, p.cfg.Timeout)
	defer cancel()

	rows, err := p.source.Query(ctx, source.Request{
		Connection: conn,
		Start:      now.Add(-p.cfg.Lookback),
		Stop:       now,
	})
	if err != nil {
		return p.failure(ctx, now, err)
	}
	defer func() { _ = rows.Close() }()

	var iterErr error
	samples, stats := series.Pivot(source.Collect(rows, &iterErr), p.cfg.Fields)
	p.rec.ObservePivot(stats)

	if iterErr != nil {
		// a partial pivot is never published
		out = p.failure(ctx, now, iterErr)
		out.Stats = stats
		return out
	}

	if stats.Skipped() > 0 {
		p.logger.Debug("skipped unusable rows",
			"fetch_id", fetchID,
			"rows", stats.Rows,
			"missing_time", stats.MissingTime,
			"unknown_field", stats.UnknownField,
			"absent_value", stats.AbsentValue,
			"unparseable", stats.Unparseable,
		)
	}

	if len(samples) == 0 {
		return Outcome{Kind: KindEmpty, FetchedAt: now, Stats: stats}
	}
	return Outcome{Kind: KindSuccess, FetchedAt: now, Stats: stats, fresh: samples}
}

// failure classifies a query error.
func (p *Poller) failure(ctx context.Context, fetchedAt time.Time, err error) Outcome {
	var cerr *source.ConfigError
	if errors.As(err, &cerr) {
		return Outcome{Kind: KindConfigError, Err: cerr}
	}

	qerr := &QueryError{Err: err}
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		qerr.timeout = p.cfg.Timeout
	}
	return Outcome{Kind: KindQueryError, FetchedAt: fetchedAt, Err: qerr}
}

// publish merges a successful fetch into the window and delivers the outcome,
// unless gen is no longer current.
func (p *Poller) publish(gen uint64, out Outcome) Outcome {
	p.pubMu.RLock()
	defer p.pubMu.RUnlock()

	fresh := out.fresh
	out.fresh = nil

	if gen != p.gen {
		out.Stale = true
		out.Window = p.Window()
		p.logger.Debug("discarding stale fetch result",
			"fetch_id", out.FetchID,
			"outcome", string(out.Kind),
		)
		return out
	}

	if out.Kind == KindSuccess {
		merged := series.Merge(p.Window(), fresh, p.cfg.Capacity, out.FetchedAt)
		p.window.Store(&merged)
		p.rec.SetWindowSize(merged.Len())
		p.rec.MarkSuccess(out.FetchedAt)
	}
	out.Window = p.Window()

	p.deliver(out)
	return out
}

// deliver calls every subscriber in order. A panicking subscriber is logged
// and does not stop delivery to the others.
func (p *Poller) deliver(out Outcome) {
	p.subMu.Lock()
	subs := append([]subscriber(nil), p.subs...)
	p.subMu.Unlock()

	for _, s := range subs {
		p.invokeSafe(s.fn, out)
	}
}

func (p *Poller) invokeSafe(fn func(Outcome), out Outcome) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("subscriber panic",
				"correlation_id", uuid.NewString(),
				"fetch_id", out.FetchID,
				"panic", fmt.Sprintf("%v", r),
				"stack", string(debug.Stack()),
			)
		}
	}()
	fn(out)
}
