package source

import (
	"context"
	"fmt"
	"iter"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/jpalmerr/aquaboard/series"
)

// Setting names reported by [ConfigError.Missing].
const (
	SettingURL    = "url"
	SettingToken  = "token"
	SettingOrg    = "org"
	SettingBucket = "bucket"
)

// Connection holds everything needed to reach a time-series store.
type Connection struct {
	// URL is the base URL of the store, e.g. "https://eu-central-1-1.aws.cloud2.influxdata.com".
	URL string

	// Token is the API token sent with every query.
	Token string

	// Org is the organisation the bucket belongs to.
	Org string

	// Bucket is the bucket queried for readings.
	Bucket string
}

// Validate reports missing or malformed settings.
//
// Blank values (after trimming spaces) count as missing. The returned error
// is always a [*ConfigError].
func (c Connection) Validate() error {
	var missing []string
	for _, s := range []struct{ name, value string }{
		{SettingURL, c.URL},
		{SettingToken, c.Token},
		{SettingOrg, c.Org},
		{SettingBucket, c.Bucket},
	} {
		if strings.TrimSpace(s.value) == "" {
			missing = append(missing, s.name)
		}
	}
	if len(missing) > 0 {
		return &ConfigError{Missing: missing}
	}

	u, err := url.Parse(strings.TrimSpace(c.URL))
	if err != nil {
		return &ConfigError{Reason: fmt.Sprintf("invalid url %q: %v", c.URL, err)}
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return &ConfigError{Reason: fmt.Sprintf("invalid url %q: scheme must be http or https", c.URL)}
	}
	if u.Host == "" {
		return &ConfigError{Reason: fmt.Sprintf("invalid url %q: missing host", c.URL)}
	}
	return nil
}

// LogValue implements slog.LogValuer. The token is never logged.
func (c Connection) LogValue() slog.Value {
	token := ""
	if c.Token != "" {
		token = "[redacted]"
	}
	return slog.GroupValue(
		slog.String("url", c.URL),
		slog.String("org", c.Org),
		slog.String("bucket", c.Bucket),
		slog.String("token", token),
	)
}

// ConfigError reports a connection that cannot be used.
//
// Either Missing lists the settings that were not provided, or Reason
// explains why a provided setting is invalid. A ConfigError is not
// retryable: the same connection fails the same way until it is changed.
type ConfigError struct {
	Missing []string
	Reason  string
}

func (e *ConfigError) Error() string {
	if len(e.Missing) > 0 {
		return "missing connection settings: " + strings.Join(e.Missing, ", ")
	}
	return "invalid connection: " + e.Reason
}

// Request is one range query.
type Request struct {
	Connection Connection

	// Start is the inclusive lower bound of the range.
	Start time.Time

	// Stop is the exclusive upper bound of the range.
	Stop time.Time
}

// Rows is a forward-only stream of raw readings.
//
// Callers loop with Next, read each reading with Row, check Err once Next
// returns false, and always Close.
type Rows interface {
	// Next advances to the next reading. It returns false when the stream
	// is exhausted or an error occurred.
	Next() bool

	// Row returns the current reading.
	Row() series.Row

	// Err returns the error that stopped iteration, if any.
	Err() error

	// Close releases the stream. It is safe to call more than once.
	Close() error
}

// Source runs range queries against a time-series store.
//
// Implementations must be safe for concurrent use.
type Source interface {
	// Query starts a range query. A returned error means the query could
	// not be run at all; errors while streaming are reported by Rows.Err.
	Query(ctx context.Context, req Request) (Rows, error)

	// Close releases any connections held by the source.
	Close() error
}

// Collect adapts rows to an iterator for [series.Pivot].
//
// The first streaming error is stored in *errp once iteration ends. Collect
// does not close rows.
func Collect(rows Rows, errp *error) iter.Seq[series.Row] {
	return func(yield func(series.Row) bool) {
		for rows.Next() {
			if !yield(rows.Row()) {
				return
			}
		}
		if err := rows.Err(); err != nil && errp != nil && *errp == nil {
			*errp = err
		}
	}
}

// Func adapts a function to the [Source] interface. Close is a no-op.
type Func func(ctx context.Context, req Request) (Rows, error)

// Query calls f(ctx, req).
func (f Func) Query(ctx context.Context, req Request) (Rows, error) {
	return f(ctx, req)
}

// Close implements [Source].
func (f Func) Close() error {
	return nil
}

// NewRows returns a [Rows] over an in-memory slice.
func NewRows(rows []series.Row) Rows {
	return &sliceRows{rows: rows, pos: -1}
}

// ErrRows returns a [Rows] that yields the given readings and then fails
// with err.
func ErrRows(rows []series.Row, err error) Rows {
	return &sliceRows{rows: rows, pos: -1, err: err}
}

type sliceRows struct {
	rows   []series.Row
	pos    int
	err    error
	closed bool
}

func (r *sliceRows) Next() bool {
	if r.closed || r.pos+1 >= len(r.rows) {
		r.pos = len(r.rows)
		return false
	}
	r.pos++
	return true
}

func (r *sliceRows) Row() series.Row {
	if r.pos < 0 || r.pos >= len(r.rows) {
		return series.Row{}
	}
	return r.rows[r.pos]
}

func (r *sliceRows) Err() error {
	if r.pos >= len(r.rows) {
		return r.err
	}
	return nil
}

func (r *sliceRows) Close() error {
	r.closed = true
	return nil
}
