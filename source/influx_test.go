package source

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/jpalmerr/aquaboard/series"
)

// annotatedCSV is a Flux response with two tables: doubles for ph and
// turbidez, and longs for conductividad.
const annotatedCSV = `#datatype,string,long,dateTime:RFC3339,dateTime:RFC3339,dateTime:RFC3339,double,string,string
#group,false,false,true,true,false,false,true,true
#default,_result,,,,,,,
,result,table,_start,_stop,_time,_value,_field,_measurement
,,0,2024-05-01T00:00:00Z,2024-05-02T00:00:00Z,2024-05-01T10:00:00Z,7.2,ph,water
,,0,2024-05-01T00:00:00Z,2024-05-02T00:00:00Z,2024-05-01T10:01:00Z,7.1,ph,water
,,1,2024-05-01T00:00:00Z,2024-05-02T00:00:00Z,2024-05-01T10:00:00Z,3.5,turbidez,water

#datatype,string,long,dateTime:RFC3339,dateTime:RFC3339,dateTime:RFC3339,long,string,string
#group,false,false,true,true,false,false,true,true
#default,_result,,,,,,,
,result,table,_start,_stop,_time,_value,_field,_measurement
,,2,2024-05-01T00:00:00Z,2024-05-02T00:00:00Z,2024-05-01T10:01:00Z,250,conductividad,water

`

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type capturedQuery struct {
	Path   string
	Org    string
	Auth   string
	Query  string
	Method string
}

func newInfluxServer(t *testing.T, status int, body string) (*httptest.Server, func() []capturedQuery) {
	t.Helper()

	var mu sync.Mutex
	var captured []capturedQuery

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var payload struct {
			Query string `json:"query"`
		}
		_ = json.NewDecoder(r.Body).Decode(&payload)

		mu.Lock()
		captured = append(captured, capturedQuery{
			Path:   r.URL.Path,
			Org:    r.URL.Query().Get("org"),
			Auth:   r.Header.Get("Authorization"),
			Query:  payload.Query,
			Method: r.Method,
		})
		mu.Unlock()

		if status != http.StatusOK {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(status)
			_, _ = w.Write([]byte(body))
			return
		}
		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)

	return server, func() []capturedQuery {
		mu.Lock()
		defer mu.Unlock()
		return append([]capturedQuery(nil), captured...)
	}
}

func TestInflux_Query(t *testing.T) {
	server, captured := newInfluxServer(t, http.StatusOK, annotatedCSV)

	src := NewInflux(testLogger())
	defer func() { _ = src.Close() }()

	start := time.Date(2024, time.April, 24, 12, 0, 0, 0, time.UTC)
	stop := start.Add(7 * 24 * time.Hour)
	conn := Connection{URL: server.URL, Token: "tok", Org: "acme", Bucket: "water"}

	rows, err := src.Query(context.Background(), Request{Connection: conn, Start: start, Stop: stop})
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}
	defer func() { _ = rows.Close() }()

	var iterErr error
	var got []series.Row
	for row := range Collect(rows, &iterErr) {
		got = append(got, row)
	}
	if iterErr != nil {
		t.Fatalf("iteration error = %v", iterErr)
	}

	at := func(m int) time.Time { return time.Date(2024, time.May, 1, 10, m, 0, 0, time.UTC) }
	want := []series.Row{
		{Time: at(0), Field: "ph", Value: 7.2},
		{Time: at(1), Field: "ph", Value: 7.1},
		{Time: at(0), Field: "turbidez", Value: 3.5},
		{Time: at(1), Field: "conductividad", Value: int64(250)},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("rows mismatch (-want +got):\n%s", diff)
	}

	reqs := captured()
	if len(reqs) != 1 {
		t.Fatalf("server saw %d requests, want 1", len(reqs))
	}
	req := reqs[0]
	if req.Method != http.MethodPost || req.Path != "/api/v2/query" {
		t.Errorf("request = %s %s, want POST /api/v2/query", req.Method, req.Path)
	}
	if req.Org != "acme" {
		t.Errorf("org = %q, want acme", req.Org)
	}
	if req.Auth != "Token tok" {
		t.Errorf("Authorization = %q, want %q", req.Auth, "Token tok")
	}
	if req.Query != FluxQuery("water", start, stop) {
		t.Errorf("query = %q", req.Query)
	}
}

// TestInflux_QueryPivots verifies the adapter feeds the pivot end to end.
func TestInflux_QueryPivots(t *testing.T) {
	server, _ := newInfluxServer(t, http.StatusOK, annotatedCSV)

	src := NewInflux(testLogger())
	defer func() { _ = src.Close() }()

	conn := Connection{URL: server.URL, Token: "tok", Org: "acme", Bucket: "water"}
	rows, err := src.Query(context.Background(), Request{Connection: conn, Start: time.Unix(0, 0), Stop: time.Now()})
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}
	defer func() { _ = rows.Close() }()

	var iterErr error
	samples, stats := series.Pivot(Collect(rows, &iterErr), []string{"ph", "turbidez", "conductividad"})
	if iterErr != nil {
		t.Fatalf("iteration error = %v", iterErr)
	}
	if len(samples) != 2 || stats.Kept != 4 {
		t.Fatalf("got %d samples, %d kept rows; want 2, 4", len(samples), stats.Kept)
	}
	if v, _ := samples[1].Value("conductividad").Float(); v != 250 {
		t.Errorf("conductividad = %v, want 250", v)
	}
}

func TestInflux_QueryErrorStatus(t *testing.T) {
	server, _ := newInfluxServer(t, http.StatusUnauthorized, `{"code":"unauthorized","message":"unauthorized access"}`)

	src := NewInflux(testLogger())
	defer func() { _ = src.Close() }()

	conn := Connection{URL: server.URL, Token: "bad", Org: "acme", Bucket: "water"}
	_, err := src.Query(context.Background(), Request{Connection: conn, Start: time.Unix(0, 0), Stop: time.Now()})
	if err == nil {
		t.Fatal("Query() error = nil, want error")
	}
	if !strings.Contains(err.Error(), "status 401") || !strings.Contains(err.Error(), "unauthorized access") {
		t.Errorf("error = %q, want status and server message", err)
	}
}

func TestInflux_QueryTimeout(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	src := NewInflux(testLogger())
	defer func() { _ = src.Close() }()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	conn := Connection{URL: server.URL, Token: "tok", Org: "acme", Bucket: "water"}
	_, err := src.Query(ctx, Request{Connection: conn, Start: time.Unix(0, 0), Stop: time.Now()})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Query() error = %v, want context.DeadlineExceeded", err)
	}
}

func TestInflux_MalformedResponse(t *testing.T) {
	server, _ := newInfluxServer(t, http.StatusOK, ",,0,2024-05-01T10:00:00Z,7.2,ph\n")

	src := NewInflux(testLogger())
	defer func() { _ = src.Close() }()

	conn := Connection{URL: server.URL, Token: "tok", Org: "acme", Bucket: "water"}
	rows, err := src.Query(context.Background(), Request{Connection: conn, Start: time.Unix(0, 0), Stop: time.Now()})
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}
	defer func() { _ = rows.Close() }()

	if rows.Next() {
		t.Fatal("Next() = true on malformed response")
	}
	if rows.Err() == nil {
		t.Error("Err() = nil, want parsing error")
	}
}

func TestInflux_InvalidConnection(t *testing.T) {
	src := NewInflux(testLogger())
	defer func() { _ = src.Close() }()

	_, err := src.Query(context.Background(), Request{Connection: Connection{URL: "http://localhost:8086"}})

	var cerr *ConfigError
	if !errors.As(err, &cerr) {
		t.Fatalf("Query() error = %v, want *ConfigError", err)
	}
}

func TestInflux_ReusesClientPerConnection(t *testing.T) {
	server, captured := newInfluxServer(t, http.StatusOK, annotatedCSV)

	src := NewInflux(testLogger())
	defer func() { _ = src.Close() }()

	conn := Connection{URL: server.URL, Token: "tok", Org: "acme", Bucket: "water"}
	for i := 0; i < 3; i++ {
		rows, err := src.Query(context.Background(), Request{Connection: conn, Start: time.Unix(0, 0), Stop: time.Now()})
		if err != nil {
			t.Fatalf("Query() %d error = %v", i, err)
		}
		_ = rows.Close()
	}

	rotated := conn
	rotated.Token = "rotated"
	rows, err := src.Query(context.Background(), Request{Connection: rotated, Start: time.Unix(0, 0), Stop: time.Now()})
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}
	_ = rows.Close()

	src.mu.Lock()
	clients := len(src.clients)
	src.mu.Unlock()
	if clients != 2 {
		t.Errorf("cached clients = %d, want 2", clients)
	}
	if reqs := captured(); reqs[len(reqs)-1].Auth != "Token rotated" {
		t.Errorf("last Authorization = %q, want rotated token", reqs[len(reqs)-1].Auth)
	}
}

func TestInflux_Close(t *testing.T) {
	src := NewInflux(testLogger())

	if err := src.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	// idempotent
	if err := src.Close(); err != nil {
		t.Fatalf("second Close() error = %v", err)
	}

	_, err := src.Query(context.Background(), Request{Connection: validConnection()})
	if !errors.Is(err, ErrClosed) {
		t.Errorf("Query() after Close error = %v, want ErrClosed", err)
	}
}

func TestFluxQuery(t *testing.T) {
	start := time.Date(2024, time.May, 1, 10, 0, 0, 0, time.FixedZone("CST", -6*3600))
	stop := start.Add(time.Hour)

	got := FluxQuery(`water "quality"`, start, stop)
	want := "from(bucket: \"water \\\"quality\\\"\")\n  |> range(start: 2024-05-01T16:00:00Z, stop: 2024-05-01T17:00:00Z)"
	if got != want {
		t.Errorf("FluxQuery() =\n%s\nwant\n%s", got, want)
	}
}
