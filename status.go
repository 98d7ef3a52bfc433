package aquaboard

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jpalmerr/aquaboard/internal/poller"
	"github.com/jpalmerr/aquaboard/series"
	"github.com/jpalmerr/aquaboard/source"
)

// Status is the presentation state of the dashboard.
//
// Status is a string type so it serialises and logs readably. It holds one
// of [StatusLoading], [StatusReady], [StatusEmpty], [StatusConfigError] or
// [StatusQueryError].
type Status string

const (
	// StatusLoading is shown until the first fetch after a start completes.
	StatusLoading Status = "loading"

	// StatusReady means the last fetch returned data.
	StatusReady Status = "ready"

	// StatusEmpty means the store answered but held no usable records in
	// the lookback range.
	StatusEmpty Status = "empty"

	// StatusConfigError means the connection settings are missing or
	// invalid. Polling stays halted until the connection is reconfigured.
	StatusConfigError Status = "config_error"

	// StatusQueryError means the last fetch failed. The next scheduled
	// fetch retries automatically.
	StatusQueryError Status = "query_error"
)

// String returns the string representation of the status.
func (s Status) String() string {
	return string(s)
}

// IsError reports whether s is one of the error statuses.
func (s Status) IsError() bool {
	return s == StatusConfigError || s == StatusQueryError
}

// Retryable reports whether polling recovers from s on its own.
func (s Status) Retryable() bool {
	return s == StatusQueryError
}

// Result is the outcome of one fetch as seen by SDK consumers.
//
// Result is passed to callbacks registered with [WithOutcomeCallback] and
// returned by [AquaBoard.FetchOnce]. The Window is immutable and may be
// retained.
type Result struct {
	// Status classifies the fetch.
	Status Status

	// Message is a human-readable description of Status.
	Message string

	// Window is the series window after the fetch. Error and empty results
	// carry the unchanged previous window.
	Window series.Window

	// FetchedAt is when the query was issued. Zero for config errors.
	FetchedAt time.Time

	// Err is a *source.ConfigError or *poller.QueryError for the error
	// statuses, nil otherwise.
	Err error

	// FetchID identifies the fetch in logs.
	FetchID string

	// Duration is how long the fetch took.
	Duration time.Duration

	// Skipped counts rows that could not be used: unknown fields, absent
	// or unparseable values.
	Skipped int

	// Stale is set when the result was discarded because polling was
	// stopped or restarted while the fetch was in flight, or because the
	// caller stopped waiting. Stale results never reach callbacks.
	Stale bool
}

// resultOf converts a poller outcome to the public result type.
func resultOf(out poller.Outcome, interval, lookback time.Duration) Result {
	res := Result{
		Window:    out.Window,
		FetchedAt: out.FetchedAt,
		Err:       out.Err,
		FetchID:   out.FetchID,
		Duration:  out.Duration,
		Skipped:   out.Stats.Skipped(),
		Stale:     out.Stale,
	}

	switch out.Kind {
	case poller.KindSuccess:
		res.Status = StatusReady
		res.Message = readyMessage(out.Window.Len())
	case poller.KindEmpty:
		res.Status = StatusEmpty
		res.Message = emptyMessage(lookback)
	case poller.KindConfigError:
		res.Status = StatusConfigError
		res.Message = configErrorMessage(out.Err)
	default:
		res.Status = StatusQueryError
		res.Message = queryErrorMessage(out.Err, interval)
	}
	return res
}

const loadingMessage = "Loading water quality data..."

func readyMessage(samples int) string {
	if samples == 1 {
		return "Showing 1 sample."
	}
	return fmt.Sprintf("Showing %d samples.", samples)
}

func emptyMessage(lookback time.Duration) string {
	return fmt.Sprintf("Connected, but no records were found in the last %s.", humanDuration(lookback))
}

func configErrorMessage(err error) string {
	var cerr *source.ConfigError
	if errors.As(err, &cerr) && len(cerr.Missing) > 0 {
		return fmt.Sprintf("Connection is not configured: missing %s. Update the settings to start polling.",
			joinSettings(cerr.Missing))
	}
	if err != nil {
		return fmt.Sprintf("Connection settings are invalid (%v). Update the settings to start polling.", err)
	}
	return "Connection settings are invalid. Update the settings to start polling."
}

func queryErrorMessage(err error, interval time.Duration) string {
	var qerr *poller.QueryError
	if errors.As(err, &qerr) && qerr.Timeout() {
		return fmt.Sprintf("The query timed out. Retrying automatically in %s.", humanDuration(interval))
	}
	return fmt.Sprintf("Could not load data. Retrying automatically in %s.", humanDuration(interval))
}

// joinSettings renders setting names as "url, token and org".
func joinSettings(names []string) string {
	switch len(names) {
	case 0:
		return ""
	case 1:
		return names[0]
	}
	return strings.Join(names[:len(names)-1], ", ") + " and " + names[len(names)-1]
}

// humanDuration formats whole days as "7 days" and everything else the way
// time.Duration does.
func humanDuration(d time.Duration) string {
	const day = 24 * time.Hour
	if d >= day && d%day == 0 {
		n := int(d / day)
		if n == 1 {
			return "1 day"
		}
		return strconv.Itoa(n) + " days"
	}
	return d.String()
}
