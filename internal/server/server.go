// File: internal/server/server.go
// Package server exposes the form actions and workflow runs over HTTP for the
// browser extension popup, and streams status announcements over a websocket.
package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/andybalholm/brotli"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/xkilldash9x/repairfill/internal/config"
	"github.com/xkilldash9x/repairfill/internal/protocol"
	"github.com/xkilldash9x/repairfill/internal/store"
	"github.com/xkilldash9x/repairfill/internal/workflow"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const (
	shutdownTimeout  = 10 * time.Second
	compressionLevel = 5
)

// Runner executes single form actions.
type Runner interface {
	Dispatch(ctx context.Context, req protocol.StepRequest) protocol.StepResponse
	Actions() []protocol.Action
}

// Orchestrator executes whole runs.
type Orchestrator interface {
	Run(ctx context.Context, in workflow.Input) (*workflow.Report, error)
	RunPartsAndSerial(ctx context.Context, partNumber string) (*workflow.Report, error)
}

// Server is the HTTP command server for one browser tab.
type Server struct {
	cfg     config.ServerConfig
	logger  *zap.Logger
	runner  Runner
	orch    Orchestrator
	hub     *Hub
	history store.Store
	limiter *rate.Limiter

	// tab serializes everything that touches the page.
	tab sync.Mutex

	httpServer *http.Server
}

// New wires a server. history may be nil, in which case runs are not
// recorded and the runs endpoint answers 503.
func New(logger *zap.Logger, cfg config.ServerConfig, runner Runner, orch Orchestrator, hub *Hub, history store.Store) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if hub == nil {
		hub = NewHub(logger)
	}
	limit := rate.Inf
	if cfg.RateLimit > 0 {
		limit = rate.Limit(cfg.RateLimit)
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}
	return &Server{
		cfg:     cfg,
		logger:  logger.Named("server"),
		runner:  runner,
		orch:    orch,
		hub:     hub,
		history: history,
		limiter: rate.NewLimiter(limit, burst),
	}
}

// Hub returns the status hub, which doubles as a workflow reporter.
func (s *Server) Hub() *Hub { return s.hub }

// Router builds the route tree.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(corsMiddleware)

	r.Get("/healthz", s.handleHealthCheck)

	r.Group(func(r chi.Router) {
		if s.cfg.AuthSecret != "" {
			r.Use(s.authenticate)
		}
		// The status stream is long-lived and must not pass through the timeout.
		r.Get("/ws/v1/status", s.hub.ServeHTTP)

		r.Group(func(r chi.Router) {
			r.Use(s.requestLogger)
			r.Use(newCompressor().Handler)
			if s.cfg.RequestTimeout > 0 {
				r.Use(middleware.Timeout(s.cfg.RequestTimeout))
			}
			s.registerRoutes(r)
		})
	})
	return r
}

// newCompressor compresses JSON responses with brotli when the client accepts
// it and falls back to gzip or deflate.
func newCompressor() *middleware.Compressor {
	c := middleware.NewCompressor(compressionLevel, "application/json")
	c.SetEncoder("br", func(w io.Writer, level int) io.Writer {
		return brotli.NewWriterLevel(w, level)
	})
	return c
}

// Start serves on the configured address until ctx is canceled. The listener,
// the status hub and the shutdown watcher run in one errgroup.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.ListenAddr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.cfg.ListenAddr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve is Start over an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.httpServer = &http.Server{
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.hub.Run(gctx)
		return nil
	})
	g.Go(func() error {
		s.logger.Info("Command server listening.", zap.String("address", ln.Addr().String()))
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("command server failed: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		s.logger.Info("Shutting down command server.")
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("Command server shutdown error.", zap.Error(err))
		}
		return nil
	})

	err := g.Wait()
	s.logger.Info("Command server stopped.")
	return err
}

// corsMiddleware lets the extension popup call the API.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// requestLogger logs one debug line per API request.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		started := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("Handled request.",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.Duration("elapsed", time.Since(started)))
	})
}

// rateLimit rejects requests beyond the configured rate with 429.
func (s *Server) rateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.limiter.Allow() {
			s.logger.Warn("Rate limit exceeded.", zap.String("path", r.URL.Path))
			s.respond(w, http.StatusTooManyRequests, protocol.Failure(errRateLimited))
			return
		}
		next.ServeHTTP(w, r)
	})
}
