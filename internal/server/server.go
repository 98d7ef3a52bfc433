package server

import (
	"context"
	"encoding/json"
	"fmt"
	"html"
	"io"
	"io/fs"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	"github.com/jpalmerr/aquaboard/internal/store"
	"github.com/jpalmerr/aquaboard/series"
)

const (
	// sseWriteTimeout is the maximum time allowed for a single SSE write operation.
	// This prevents goroutine leaks when clients are slow or disconnected.
	// Must be <= shutdown timeout to ensure clean shutdown.
	sseWriteTimeout = 5 * time.Second

	// shutdownTimeout bounds graceful shutdown once the context is cancelled.
	shutdownTimeout = 5 * time.Second

	// defaultTitle is used when no custom title is configured.
	defaultTitle = "AquaBoard"

	// titlePlaceholder is the marker in HTML that gets replaced with the actual title.
	titlePlaceholder = "{{.Title}}"
)

// FieldInfo describes how the dashboard presents one field.
type FieldInfo struct {
	Name  string   `json:"name"`
	Label string   `json:"label"`
	Unit  string   `json:"unit,omitempty"`
	Color string   `json:"color"`
	Min   *float64 `json:"min,omitempty"`
	Max   *float64 `json:"max,omitempty"`
}

// Config configures a [Server].
type Config struct {
	// Port is the TCP port to listen on. 0 picks a free port.
	Port int

	// Assets contains assets/index.html. nil disables the dashboard.
	Assets fs.FS

	// Title is the dashboard title. Defaults to "AquaBoard".
	Title string

	// Fields is served at /api/fields.
	Fields []FieldInfo

	// Metrics is served at /metrics when set.
	Metrics http.Handler

	// Refresh runs a fetch for POST /api/refresh and returns the resulting
	// snapshot. nil disables the route.
	Refresh func(ctx context.Context) store.Snapshot
}

// Server handles HTTP requests for the AquaBoard dashboard and API.
//
// Routes:
//   - GET /: the embedded dashboard
//   - GET /api/status: the current snapshot summary
//   - GET /api/window: every sample in the window
//   - GET /api/series: all fields on a shared label axis
//   - GET /api/series/{field}: one field
//   - GET /api/table: the window in display form
//   - GET /api/fields: field presentation metadata
//   - GET /api/sse: Server-Sent Events stream of snapshot summaries
//   - POST /api/refresh: fetch now
//   - GET /healthz and GET /metrics
//
// The server is designed for graceful shutdown via context cancellation.
type Server struct {
	store      store.Store
	cfg        Config
	logger     *slog.Logger
	httpServer *http.Server

	mu   sync.Mutex
	addr net.Addr
}

// NewServer creates a new HTTP [Server]. The server is not started until
// [Server.Start] is called.
func NewServer(st store.Store, cfg Config, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		store:  st,
		cfg:    cfg,
		logger: logger,
	}
}

// Handler returns the router with its middleware: panic recovery, request
// logging at debug level and CORS on the API routes.
func (s *Server) Handler() http.Handler {
	api := mux.NewRouter()
	api.HandleFunc("/api/status", s.handleStatus).Methods(http.MethodGet)
	api.HandleFunc("/api/window", s.handleWindow).Methods(http.MethodGet)
	api.HandleFunc("/api/series", s.handleSeries).Methods(http.MethodGet)
	api.HandleFunc("/api/series/{field}", s.handleSingle).Methods(http.MethodGet)
	api.HandleFunc("/api/table", s.handleTable).Methods(http.MethodGet)
	api.HandleFunc("/api/fields", s.handleFields).Methods(http.MethodGet)
	api.HandleFunc("/api/sse", s.handleSSE).Methods(http.MethodGet)
	if s.cfg.Refresh != nil {
		api.HandleFunc("/api/refresh", s.handleRefresh).Methods(http.MethodPost)
	}

	cors := handlers.CORS(
		handlers.AllowedOrigins([]string{"*"}),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodOptions}),
		handlers.AllowedHeaders([]string{"Content-Type"}),
	)

	r := mux.NewRouter()
	r.PathPrefix("/api/").Handler(cors(api))
	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	if s.cfg.Metrics != nil {
		r.Handle("/metrics", s.cfg.Metrics).Methods(http.MethodGet)
	}
	if s.cfg.Assets != nil {
		r.HandleFunc("/", s.handleDashboard).Methods(http.MethodGet)
	}

	logged := handlers.CustomLoggingHandler(io.Discard, r, s.logRequest)
	return handlers.RecoveryHandler(
		handlers.RecoveryLogger(recoveryLogger{s.logger}),
		handlers.PrintRecoveryStack(true),
	)(logged)
}

// Start begins serving HTTP requests in a background goroutine.
//
// Start is non-blocking and returns immediately after confirming the server
// is listening. The server will continue running until the context is
// cancelled, at which point it initiates a graceful shutdown with a 5-second
// timeout.
//
// Returns an error if the server fails to bind to the configured port.
func (s *Server) Start(ctx context.Context) error {
	// create listener first to verify port availability synchronously
	addr := fmt.Sprintf(":%d", s.cfg.Port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to bind to port %d: %w", s.cfg.Port, err)
	}

	s.mu.Lock()
	s.addr = ln.Addr()
	s.mu.Unlock()

	s.httpServer = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		// BaseContext derives all request contexts from the server context.
		// When ctx is cancelled, all request contexts are also cancelled,
		// enabling graceful shutdown of long-running handlers like SSE.
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
	}

	go func() {
		if err := s.httpServer.Serve(ln); err != nil && err != http.ErrServerClosed {
			s.logger.Error("http server error", "error", err)
		}
	}()

	// shutdown on context cancellation
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("http server shutdown error", "error", err)
		}
	}()

	return nil
}

// Addr returns the address the server listens on, or nil before Start.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addr
}

// handleDashboard serves the main dashboard page.
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	if s.cfg.Assets == nil {
		http.Error(w, "Dashboard not found", http.StatusInternalServerError)
		return
	}

	// read index.html from embedded assets
	content, err := fs.ReadFile(s.cfg.Assets, "assets/index.html")
	if err != nil {
		http.Error(w, "Dashboard not found", http.StatusInternalServerError)
		return
	}

	// apply title substitution with HTML escaping to prevent XSS
	title := s.cfg.Title
	if title == "" {
		title = defaultTitle
	}
	safeTitle := html.EscapeString(title)
	rendered := strings.ReplaceAll(string(content), titlePlaceholder, safeTitle)

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if _, err = w.Write([]byte(rendered)); err != nil {
		s.logger.Error("failed to write dashboard response", "error", err)
	}
}

// handleStatus returns the current snapshot summary.
func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, s.store.Get())
}

// handleWindow returns every sample in the current window.
func (s *Server) handleWindow(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, s.store.Get().Window)
}

// handleSeries returns every field aligned to one label axis.
func (s *Server) handleSeries(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, s.store.Get().Window.Combined())
}

// handleSingle returns one field. An unrecognised field yields an empty
// dataset, not an error.
func (s *Server) handleSingle(w http.ResponseWriter, r *http.Request) {
	field := mux.Vars(r)["field"]
	window := s.store.Get().Window

	dataset := window.Single(field)
	labels := []string{}
	if len(dataset.Data) > 0 {
		labels = window.Labels()
	}
	s.writeJSON(w, http.StatusOK, series.Chart{
		Labels:   labels,
		Datasets: []series.Dataset{dataset},
	})
}

// handleTable returns the window in display form.
func (s *Server) handleTable(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, s.store.Get().Window.Table())
}

// handleFields returns the field presentation metadata.
func (s *Server) handleFields(w http.ResponseWriter, _ *http.Request) {
	fields := s.cfg.Fields
	if fields == nil {
		fields = []FieldInfo{}
	}
	s.writeJSON(w, http.StatusOK, fields)
}

// handleRefresh runs a fetch and returns the resulting snapshot.
func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.cfg.Refresh(r.Context()))
}

// handleHealth reports that the process is serving.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("failed to encode response", "error", err)
	}
}

// handleSSE streams snapshot summaries via Server-Sent Events.
//
// The handler uses write deadlines to prevent goroutine leaks when clients are
// slow or disconnected. Without deadlines, a blocked Fprintf call would prevent
// the handler from detecting context cancellation or channel closure.
func (s *Server) handleSSE(w http.ResponseWriter, r *http.Request) {
	// check if flushing is supported
	if _, ok := w.(http.Flusher); !ok {
		http.Error(w, "SSE not supported", http.StatusInternalServerError)
		return
	}

	// ResponseController provides deadline-aware write and flush operations.
	rc := http.NewResponseController(w)

	// track if write deadlines are supported (may not be for some ResponseWriter impls)
	deadlinesSupported := true

	// writeAndFlush writes SSE data with a deadline to prevent blocking forever.
	writeAndFlush := func(data []byte) error {
		if deadlinesSupported {
			if err := rc.SetWriteDeadline(time.Now().Add(sseWriteTimeout)); err != nil {
				// deadline not supported by underlying connection, continue without
				s.logger.Warn("sse write deadlines not supported", "error", err)
				deadlinesSupported = false
			}
		}

		if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
			return err
		}

		// ResponseController.Flush respects the write deadline
		return rc.Flush()
	}

	// set SSE headers
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	// subscribe to store updates
	ch := s.store.Subscribe()
	defer s.store.Unsubscribe(ch)

	// send the current snapshot first (also protected by write deadline)
	if data, err := json.Marshal(s.store.Get()); err == nil {
		if err := writeAndFlush(data); err != nil {
			return
		}
	}

	// stream updates
	for {
		select {
		case snapshot, ok := <-ch:
			if !ok {
				return
			}
			data, err := json.Marshal(snapshot)
			if err != nil {
				continue
			}
			if err := writeAndFlush(data); err != nil {
				return
			}

		case <-r.Context().Done():
			// request context is derived from server context via BaseContext,
			// so this fires on both client disconnect AND server shutdown
			return
		}
	}
}

// logRequest is the gorilla/handlers log formatter; requests go to slog at
// debug level instead of the access log writer.
func (s *Server) logRequest(_ io.Writer, params handlers.LogFormatterParams) {
	s.logger.Debug("http request",
		"method", params.Request.Method,
		"path", params.URL.Path,
		"status", params.StatusCode,
		"size", params.Size,
		"duration_ms", time.Since(params.TimeStamp).Milliseconds(),
	)
}

// recoveryLogger adapts slog to handlers.RecoveryHandlerLogger.
type recoveryLogger struct {
	logger *slog.Logger
}

func (l recoveryLogger) Println(v ...any) {
	l.logger.Error("http handler panic", "panic", fmt.Sprint(v...))
}
