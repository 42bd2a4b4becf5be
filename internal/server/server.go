package server

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ppiankov/findorigin/internal/pipeline"
)

// Runner analyzes one input
type Runner interface {
	Run(ctx context.Context, raw string) (*pipeline.Result, error)
}

// Sender delivers a reply to a chat
type Sender interface {
	SendMessage(ctx context.Context, chatID string, text string) error
}

// Config controls the inbound HTTP surface
type Config struct {
	Addr              string
	WebhookSecret     string
	MaxBodyBytes      int64
	MiniAppEnabled    bool
	ReadHeaderTimeout time.Duration
	ShutdownTimeout   time.Duration
	// SendTimeout bounds reply delivery, which outlives the inbound request
	SendTimeout time.Duration
}

// Server serves the Telegram webhook, the mini-app API and a health probe
type Server struct {
	cfg    Config
	runner Runner
	sender Sender
	logger *zap.Logger
	mux    *http.ServeMux
}

// New creates a Server. logger may be nil.
func New(cfg Config, runner Runner, sender Sender, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = 2_000_000
	}
	if cfg.ReadHeaderTimeout <= 0 {
		cfg.ReadHeaderTimeout = 5 * time.Second
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = 10 * time.Second
	}
	if cfg.SendTimeout <= 0 {
		cfg.SendTimeout = 30 * time.Second
	}

	s := &Server{
		cfg:    cfg,
		runner: runner,
		sender: sender,
		logger: logger,
		mux:    http.NewServeMux(),
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	})
	s.mux.HandleFunc("POST /api/webhook", s.handleWebhook)
	if s.cfg.MiniAppEnabled {
		s.mux.HandleFunc("POST /api/miniapp/analyze", s.handleMiniApp)
	}
}

// Handler returns the routed handler wrapped with request logging
func (s *Server) Handler() http.Handler {
	return s.withRequestLog(s.mux)
}

// Serve listens on cfg.Addr until ctx is done, then drains in-flight
// requests for up to cfg.ShutdownTimeout
func (s *Server) Serve(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return err
	}
	return s.ServeListener(ctx, ln)
}

// ServeListener is Serve on an existing listener
func (s *Server) ServeListener(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: s.cfg.ReadHeaderTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.logger.Info("http server listening", zap.String("addr", ln.Addr().String()))
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
		defer cancel()
		s.logger.Info("http server shutting down")
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

type ctxKey struct{}

// loggerFrom returns the request-scoped logger
func (s *Server) loggerFrom(ctx context.Context) *zap.Logger {
	if l, ok := ctx.Value(ctxKey{}).(*zap.Logger); ok {
		return l
	}
	return s.logger
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) withRequestLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		id := uuid.NewString()
		logger := s.logger.With(zap.String("request_id", id))

		w.Header().Set("X-Request-Id", id)
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r.WithContext(context.WithValue(r.Context(), ctxKey{}, logger)))

		logger.Info("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.status),
			zap.Duration("duration", time.Since(start)))
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
