package source

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	influxhttp "github.com/influxdata/influxdb-client-go/v2/api/http"

	"github.com/jpalmerr/aquaboard/series"
)

// connection pooling limits shared by every client the adapter creates
const (
	defaultMaxIdleConns        = 100
	defaultMaxIdleConnsPerHost = 10
	defaultMaxConnsPerHost     = 10
	defaultIdleConnTimeout     = 60 * time.Second // conservative: matches common ALB defaults
)

// applicationName is reported to InfluxDB in the User-Agent header.
const applicationName = "aquaboard"

// Influx queries InfluxDB 2.x or InfluxDB Cloud with Flux.
//
// One client is kept per (URL, token) pair, so a poller that is
// reconfigured with a new connection gets a fresh client while repeated
// fetches reuse pooled connections. Timeouts are applied per query through
// the context passed to [Influx.Query], not as a global client timeout.
type Influx struct {
	httpClient *http.Client
	logger     *slog.Logger

	mu      sync.Mutex
	clients map[clientKey]influxdb2.Client
	closed  bool
}

type clientKey struct {
	url   string
	token string
}

// NewInflux creates an InfluxDB source. A nil logger uses slog.Default().
func NewInflux(logger *slog.Logger) *Influx {
	if logger == nil {
		logger = slog.Default()
	}
	return &Influx{
		httpClient: &http.Client{
			// no default timeout - we use per-request timeouts via context
			Transport: &http.Transport{
				Proxy:               http.ProxyFromEnvironment,
				MaxIdleConns:        defaultMaxIdleConns,
				MaxIdleConnsPerHost: defaultMaxIdleConnsPerHost,
				MaxConnsPerHost:     defaultMaxConnsPerHost,
				IdleConnTimeout:     defaultIdleConnTimeout,
			},
		},
		logger:  logger,
		clients: make(map[clientKey]influxdb2.Client),
	}
}

// ErrClosed is returned by [Influx.Query] after [Influx.Close].
var ErrClosed = errors.New("source closed")

// Query runs a Flux range query for every reading in the bucket between
// req.Start and req.Stop.
//
// Non-2xx responses, transport failures and context expiry are returned as
// errors wrapping the underlying cause. The returned Rows stream the
// annotated CSV response as it is read.
func (s *Influx) Query(ctx context.Context, req Request) (Rows, error) {
	if err := req.Connection.Validate(); err != nil {
		return nil, err
	}

	client, err := s.client(req.Connection)
	if err != nil {
		return nil, err
	}

	flux := FluxQuery(req.Connection.Bucket, req.Start, req.Stop)
	s.logger.Debug("running flux query",
		"connection", req.Connection,
		"query", flux,
	)

	result, err := client.QueryAPI(req.Connection.Org).Query(ctx, flux)
	if err != nil {
		return nil, fmt.Errorf("influx query: %w", describe(err))
	}
	return &influxRows{result: result}, nil
}

// client returns the cached client for conn, creating it on first use.
func (s *Influx) client(conn Connection) (influxdb2.Client, error) {
	key := clientKey{url: strings.TrimSpace(conn.URL), token: conn.Token}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, ErrClosed
	}
	if c, ok := s.clients[key]; ok {
		return c, nil
	}

	opts := influxdb2.DefaultOptions().
		SetHTTPClient(s.httpClient).
		SetApplicationName(applicationName).
		SetLogLevel(0) // errors only, our own logging covers the rest
	c := influxdb2.NewClientWithOptions(key.url, key.token, opts)
	s.clients[key] = c
	return c, nil
}

// Close closes every cached client and idle connection. Safe to call
// multiple times.
func (s *Influx) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	for key, c := range s.clients {
		c.Close()
		delete(s.clients, key)
	}
	if transport, ok := s.httpClient.Transport.(*http.Transport); ok {
		transport.CloseIdleConnections()
	}
	return nil
}

// FluxQuery builds the range query for bucket. No measurement or field
// filter is applied; unknown fields are dropped when rows are pivoted.
func FluxQuery(bucket string, start, stop time.Time) string {
	return fmt.Sprintf("from(bucket: %s)\n  |> range(start: %s, stop: %s)",
		strconv.Quote(bucket),
		start.UTC().Format(time.RFC3339Nano),
		stop.UTC().Format(time.RFC3339Nano),
	)
}

// describe adds the HTTP status to errors reported by the server.
func describe(err error) error {
	var herr *influxhttp.Error
	if errors.As(err, &herr) && herr.StatusCode != 0 {
		return fmt.Errorf("status %d: %w", herr.StatusCode, err)
	}
	return err
}

// influxRows adapts a Flux query result to [Rows].
type influxRows struct {
	result *api.QueryTableResult
	closed bool
}

func (r *influxRows) Next() bool {
	if r.closed {
		return false
	}
	return r.result.Next()
}

func (r *influxRows) Row() series.Row {
	rec := r.result.Record()
	if rec == nil {
		return series.Row{}
	}
	return series.Row{
		Time:  rec.Time(),
		Field: rec.Field(),
		Value: rec.Value(),
	}
}

func (r *influxRows) Err() error {
	if err := r.result.Err(); err != nil {
		return fmt.Errorf("influx response: %w", err)
	}
	return nil
}

func (r *influxRows) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true
	return r.result.Close()
}
