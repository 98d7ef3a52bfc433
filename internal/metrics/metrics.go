// Package metrics exposes AquaBoard's fetch cycles as Prometheus metrics.
package metrics

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jpalmerr/aquaboard/series"
)

const namespace = "aquaboard"

// Collector records poller measurements. It satisfies poller.Recorder.
//
// A nil *Collector is valid and records nothing.
type Collector struct {
	fetches     *prometheus.CounterVec
	duration    prometheus.Histogram
	rows        *prometheus.CounterVec
	windowSize  prometheus.Gauge
	lastSuccess prometheus.Gauge
}

// New creates a Collector and registers it with reg.
//
// Metrics already registered with reg by an earlier Collector are reused,
// so instances sharing a registry add to the same series. Any other
// registration failure is returned.
func New(reg prometheus.Registerer) (*Collector, error) {
	c := &Collector{
		fetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fetches_total",
			Help:      "Total fetch cycles by outcome.",
		}, []string{"outcome"}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "fetch_duration_seconds",
			Help:      "Duration of fetch cycles, query and pivot included.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12),
		}),
		rows: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_total",
			Help:      "Rows read from the store by result: kept, or the reason they were skipped.",
		}, []string{"result"}),
		windowSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "window_samples",
			Help:      "Samples currently retained in the window.",
		}),
		lastSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix time of the latest successful fetch.",
		}),
	}

	var err error
	if c.fetches, err = register(reg, c.fetches); err != nil {
		return nil, err
	}
	if c.duration, err = register(reg, c.duration); err != nil {
		return nil, err
	}
	if c.rows, err = register(reg, c.rows); err != nil {
		return nil, err
	}
	if c.windowSize, err = register(reg, c.windowSize); err != nil {
		return nil, err
	}
	if c.lastSuccess, err = register(reg, c.lastSuccess); err != nil {
		return nil, err
	}

	// expose zero counts before the first fetch
	for _, outcome := range []string{"success", "empty", "config_error", "query_error"} {
		c.fetches.WithLabelValues(outcome)
	}
	for _, result := range rowResults {
		c.rows.WithLabelValues(result)
	}

	return c, nil
}

// register adds col to reg, or returns the equivalent collector reg already
// holds.
func register[T prometheus.Collector](reg prometheus.Registerer, col T) (T, error) {
	err := reg.Register(col)
	if err == nil {
		return col, nil
	}

	var are prometheus.AlreadyRegisteredError
	if !errors.As(err, &are) {
		return col, fmt.Errorf("failed to register metric: %w", err)
	}
	existing, ok := are.ExistingCollector.(T)
	if !ok {
		return col, fmt.Errorf("metric registered with unexpected type %T", are.ExistingCollector)
	}
	return existing, nil
}

var rowResults = []string{"kept", "missing_time", "unknown_field", "absent_value", "unparseable"}

// ObserveFetch records one executed fetch.
func (c *Collector) ObserveFetch(outcome string, d time.Duration) {
	if c == nil {
		return
	}
	c.fetches.WithLabelValues(outcome).Inc()
	c.duration.Observe(d.Seconds())
}

// ObservePivot records the row counts of one pivot.
func (c *Collector) ObservePivot(stats series.PivotStats) {
	if c == nil {
		return
	}
	c.rows.WithLabelValues("kept").Add(float64(stats.Kept))
	c.rows.WithLabelValues("missing_time").Add(float64(stats.MissingTime))
	c.rows.WithLabelValues("unknown_field").Add(float64(stats.UnknownField))
	c.rows.WithLabelValues("absent_value").Add(float64(stats.AbsentValue))
	c.rows.WithLabelValues("unparseable").Add(float64(stats.Unparseable))
}

// SetWindowSize records the number of retained samples.
func (c *Collector) SetWindowSize(samples int) {
	if c == nil {
		return
	}
	c.windowSize.Set(float64(samples))
}

// MarkSuccess records the time of the latest successful fetch.
func (c *Collector) MarkSuccess(at time.Time) {
	if c == nil {
		return
	}
	c.lastSuccess.Set(float64(at.UnixNano()) / 1e9)
}

// NewRegistry returns a registry with the Go runtime and process collectors
// already registered.
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// Handler serves the metrics gathered by g in the Prometheus exposition
// format.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
