// Package api provides the HTTP surface of the sales agent.
//
// It exposes the provider webhook receiver plus operational endpoints for
// triggering single and batch call runs and inspecting system status. All
// call state flows through the outcome aggregator; handlers never hold
// state of their own.
package api

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/Kushal-Kongara/hackerday-sf/internal/orchestrator"
)

// DefaultAddr is the listen address used when none is configured.
const DefaultAddr = ":8080"

// DefaultRequestTimeout bounds a single pipeline run triggered over HTTP.
const DefaultRequestTimeout = 2 * time.Minute

// Opts holds configuration options for the API server.
type Opts struct {
	Addr string
}

// Option defines a configuration option for the API server.
type Option func(*Opts)

// WithAddr overrides the listen address.
func WithAddr(addr string) Option {
	return func(o *Opts) { o.Addr = addr }
}

// Server wires HTTP handlers to the orchestrator and its outcome tracker.
type Server struct {
	orch *orchestrator.Orchestrator
	addr string
}

// NewServer builds a server around an orchestrator, falling back to
// API_ADDR for the listen address.
func NewServer(orch *orchestrator.Orchestrator, opts ...Option) *Server {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.Addr == "" {
		cfg.Addr = os.Getenv("API_ADDR")
	}
	if cfg.Addr == "" {
		cfg.Addr = DefaultAddr
	}
	return &Server{orch: orch, addr: cfg.Addr}
}

// Handler returns the routed handler, exported so tests and the serve
// command can mount it without opening a listener.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/events", s.eventsHandler)
	mux.HandleFunc("/calls", s.callsHandler)
	mux.HandleFunc("/calls/batch", s.batchHandler)
	mux.HandleFunc("/status", s.statusHandler)
	mux.HandleFunc("/health", s.healthHandler)
	return mux
}

// Run serves until the context is canceled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("Server.Run: listening", "addr", s.addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		slog.Info("Server.Run: shutting down")
		return srv.Shutdown(shutdownCtx)
	}
}
