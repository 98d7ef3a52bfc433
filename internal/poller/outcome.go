package poller

import (
	"fmt"
	"time"

	"github.com/jpalmerr/aquaboard/series"
)

// Kind classifies the result of one fetch.
type Kind string

const (
	// KindSuccess means at least one sample was kept and a new window was built.
	KindSuccess Kind = "success"

	// KindEmpty means the query succeeded but produced no usable samples.
	KindEmpty Kind = "empty"

	// KindConfigError means the connection is incomplete or invalid. Not retried.
	KindConfigError Kind = "config_error"

	// KindQueryError means the query failed, timed out or the response could
	// not be read. Retried on the next tick.
	KindQueryError Kind = "query_error"
)

// IsError reports whether k is one of the error kinds.
func (k Kind) IsError() bool {
	return k == KindConfigError || k == KindQueryError
}

// Outcome is the result of one fetch cycle.
type Outcome struct {
	// Kind classifies the fetch.
	Kind Kind

	// Window is the poller's window after the fetch: the merged window on
	// success, otherwise the unchanged previous window.
	Window series.Window

	// FetchedAt is when the query was issued. Zero for config errors.
	FetchedAt time.Time

	// Err is a [*source.ConfigError] or [*QueryError] for the error kinds.
	Err error

	// Stats counts kept and skipped rows.
	Stats series.PivotStats

	// Duration is how long the fetch took.
	Duration time.Duration

	// FetchID identifies the fetch in logs. Callers sharing one in-flight
	// fetch see the same FetchID.
	FetchID string

	// Stale is set when the result was discarded because the poller was
	// stopped, restarted or reset while the fetch was in flight, or because
	// the caller gave up waiting. Stale outcomes are never delivered to
	// subscribers.
	Stale bool

	// fresh holds the pivoted samples until they are merged on publish.
	fresh []series.Sample
}

// QueryError wraps a failed range query.
type QueryError struct {
	Err     error
	timeout time.Duration
}

func (e *QueryError) Error() string {
	if e.timeout > 0 {
		return fmt.Sprintf("query timed out after %s: %v", e.timeout, e.Err)
	}
	return fmt.Sprintf("query failed: %v", e.Err)
}

func (e *QueryError) Unwrap() error {
	return e.Err
}

// Timeout reports whether the query was abandoned because it exceeded the
// fetch timeout.
func (e *QueryError) Timeout() bool {
	return e.timeout > 0
}

// Recorder receives fetch measurements. Implementations must be safe for
// concurrent use.
type Recorder interface {
	// ObserveFetch records one executed fetch and how long it took.
	ObserveFetch(kind string, d time.Duration)

	// ObservePivot records the row counts of one pivot.
	ObservePivot(stats series.PivotStats)

	// SetWindowSize records the number of samples currently retained.
	SetWindowSize(samples int)

	// MarkSuccess records the time of the latest successful fetch.
	MarkSuccess(at time.Time)
}

type nopRecorder struct{}

func (nopRecorder) ObserveFetch(string, time.Duration) {}
func (nopRecorder) ObservePivot(series.PivotStats)     {}
func (nopRecorder) SetWindowSize(int)                  {}
func (nopRecorder) MarkSuccess(time.Time)              {}
