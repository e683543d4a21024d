package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"
	"strconv"
	"strings"
	"time"

	"github.com/example/go-wordpiece/internal/config"
	"github.com/example/go-wordpiece/internal/text"
	"github.com/example/go-wordpiece/internal/tokenizer"
	"github.com/google/uuid"
)

// RequestIDHeader carries the per-request id in both directions.
const RequestIDHeader = "X-Request-ID"

// ParseLogLevel converts a case-insensitive level string to slog.Level.
// An empty string returns slog.LevelInfo. Unknown strings return an error.
func ParseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "", "info":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level %q (want debug|info|warn|error)", s)
	}
}

// Segmenter splits text into per-word unit lists.
type Segmenter interface {
	TokenizeWords(text string) [][]string
}

// UnitLister describes the loaded unit table.
type UnitLister interface {
	NIters() int
	MaxLength() int
	Len() int
	TopUnits(n int) []tokenizer.Unit
}

// Model is what the handler serves.
type Model interface {
	Segmenter
	UnitLister
}

// ---------------------------------------------------------------------------
// Functional options
// ---------------------------------------------------------------------------

type options struct {
	maxTextBytes   int
	workers        int
	requestTimeout time.Duration
	form           text.Form
	logger         *slog.Logger
}

func defaultOptions() options {
	return options{
		maxTextBytes:   65536,
		workers:        4,
		requestTimeout: 30 * time.Second,
		form:           text.FormNone,
		logger:         slog.Default(),
	}
}

// Option configures the HTTP handler.
type Option func(*options)

// WithMaxTextBytes sets the maximum allowed text length in bytes for POST /tokenize.
func WithMaxTextBytes(n int) Option {
	return func(o *options) { o.maxTextBytes = n }
}

// WithWorkers sets the maximum number of concurrent tokenize calls.
// Zero disables the limit.
func WithWorkers(n int) Option {
	return func(o *options) { o.workers = n }
}

// WithRequestTimeout sets the per-request deadline.
func WithRequestTimeout(d time.Duration) Option {
	return func(o *options) { o.requestTimeout = d }
}

// WithForm sets the Unicode normalization applied to request text.
func WithForm(f text.Form) Option {
	return func(o *options) { o.form = f }
}

// WithLogger sets the slog.Logger used for request logging.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// ---------------------------------------------------------------------------
// handler
// ---------------------------------------------------------------------------

// handler holds the dependencies needed to serve HTTP requests.
type handler struct {
	model Model
	opts  options
	sem   chan struct{} // semaphore for worker pool
	log   *slog.Logger
}

// NewHandler returns an http.Handler that serves /health, /units, and POST /tokenize.
func NewHandler(model Model, optFns ...Option) http.Handler {
	opts := defaultOptions()
	for _, fn := range optFns {
		fn(&opts)
	}

	h := &handler{
		model: model,
		opts:  opts,
		log:   opts.logger,
	}
	if opts.workers > 0 {
		h.sem = make(chan struct{}, opts.workers)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/health", h.handleHealth)
	mux.HandleFunc("/units", h.handleUnits)
	mux.HandleFunc("/tokenize", h.handleTokenize)
	return withRequestID(mux)
}

// withRequestID propagates or assigns a request id.
func withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
			r.Header.Set(RequestIDHeader, id)
		}
		w.Header().Set(RequestIDHeader, id)
		next.ServeHTTP(w, r)
	})
}

func buildVersion() string {
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
		return info.Main.Version
	}
	return "dev"
}

func (h *handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"version": buildVersion(),
	})
}

// UnitsResponse is the body of GET /units.
type UnitsResponse struct {
	NIters    int              `json:"n_iters"`
	MaxLength int              `json:"max_length"`
	Size      int              `json:"size"`
	Units     []tokenizer.Unit `json:"units"`
}

func (h *handler) handleUnits(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	top := 100
	if raw := r.URL.Query().Get("top"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "top must be a non-negative integer")
			return
		}
		top = n
	}

	units := h.model.TopUnits(top)
	if units == nil {
		units = []tokenizer.Unit{}
	}

	writeJSON(w, http.StatusOK, UnitsResponse{
		NIters:    h.model.NIters(),
		MaxLength: h.model.MaxLength(),
		Size:      h.model.Len(),
		Units:     units,
	})
}

type tokenizeRequest struct {
	Text string `json:"text"`
}

// TokenizeResponse is the body of a successful POST /tokenize.
type TokenizeResponse struct {
	Tokens   string     `json:"tokens"`
	Segments [][]string `json:"segments"`
}

func (h *handler) handleTokenize(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	if r.Body == nil {
		writeError(w, http.StatusBadRequest, "request body is required")
		return
	}

	var req tokenizeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}

	if req.Text == "" {
		writeError(w, http.StatusBadRequest, "text field is required")
		return
	}

	if h.opts.maxTextBytes > 0 && len(req.Text) > h.opts.maxTextBytes {
		writeError(w, http.StatusRequestEntityTooLarge,
			fmt.Sprintf("text exceeds maximum size of %d bytes", h.opts.maxTextBytes))
		return
	}

	requestID := r.Header.Get(RequestIDHeader)

	// Acquire a worker slot; honour context cancellation while waiting.
	if h.sem != nil {
		select {
		case h.sem <- struct{}{}:
			// slot acquired
		case <-r.Context().Done():
			writeError(w, http.StatusServiceUnavailable, "request cancelled while waiting for worker")
			return
		}
		defer func() { <-h.sem }()
	}

	var (
		ctx    context.Context
		cancel context.CancelFunc
	)
	if h.opts.requestTimeout > 0 {
		ctx, cancel = context.WithTimeout(r.Context(), h.opts.requestTimeout)
	} else {
		ctx, cancel = context.WithCancel(r.Context())
	}
	defer cancel()

	start := time.Now()
	segments, err := h.segment(ctx, h.opts.form.Apply(req.Text))
	durationMS := time.Since(start).Milliseconds()

	if err != nil {
		h.log.WarnContext(r.Context(), "tokenize timed out",
			slog.String("request_id", requestID),
			slog.Int("text_len", len(req.Text)),
			slog.Int64("duration_ms", durationMS),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusGatewayTimeout, "tokenize timed out")
		return
	}

	words := make([]string, len(segments))
	for i, segs := range segments {
		words[i] = strings.Join(segs, " ")
	}

	h.log.InfoContext(r.Context(), "tokenize complete",
		slog.String("request_id", requestID),
		slog.Int("text_len", len(req.Text)),
		slog.Int("words", len(segments)),
		slog.Int64("duration_ms", durationMS),
	)

	writeJSON(w, http.StatusOK, TokenizeResponse{
		Tokens:   strings.Join(words, " "),
		Segments: segments,
	})
}

// segment runs the segmenter and gives up when ctx ends first. The
// segmenter itself is not interruptible; an abandoned call finishes in the
// background.
func (h *handler) segment(ctx context.Context, s string) ([][]string, error) {
	done := make(chan [][]string, 1)
	go func() { done <- h.model.TokenizeWords(s) }()

	select {
	case segs := <-done:
		if segs == nil {
			segs = [][]string{}
		}
		return segs, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// ---------------------------------------------------------------------------
// Server
// ---------------------------------------------------------------------------

// Server wires the HTTP handler into a net/http.Server with graceful shutdown.
type Server struct {
	cfg             config.Config
	model           Model
	shutdownTimeout time.Duration
}

func New(cfg config.Config, model Model) *Server {
	return &Server{
		cfg:             cfg,
		model:           model,
		shutdownTimeout: 10 * time.Second,
	}
}

// WithShutdownTimeout overrides the graceful-shutdown drain period.
func (s *Server) WithShutdownTimeout(d time.Duration) *Server {
	s.shutdownTimeout = d
	return s
}

func (s *Server) Start(ctx context.Context) error {
	if s.model == nil {
		return errors.New("server: no model loaded")
	}

	h := NewHandler(s.model,
		WithWorkers(s.cfg.Server.Workers),
		WithMaxTextBytes(s.cfg.Server.MaxTextBytes),
		WithRequestTimeout(time.Duration(s.cfg.Server.RequestTimeout)*time.Second),
		WithForm(s.cfg.NormalizeForm()),
	)

	httpServer := &http.Server{
		Addr:              s.cfg.Server.ListenAddr,
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- httpServer.ListenAndServe()
	}()

	slog.Info("server listening",
		slog.String("addr", s.cfg.Server.ListenAddr),
		slog.Int("units", s.model.Len()),
	)

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("http shutdown: %w", err)
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("http listen: %w", err)
	}
}

func ProbeHTTP(addr string) error {
	resp, err := http.Get("http://" + addr + "/health") //nolint:noctx
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected health status: %s", resp.Status)
	}
	return nil
}
