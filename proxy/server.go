// Package proxy serves remote mod files from the local origin so downloads
// blocked by the browser or the CDN can be retried through it. It fetches any
// http(s) URL it is given and is meant to listen on a local address only.
package proxy

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"mod-updater/logger"
)

// FilePath is the proxy endpoint; the target goes in the url query parameter.
const FilePath = "/api/proxy-file"

// Options configures the router.
type Options struct {
	// Client fetches upstream files. Defaults to a client with a two minute
	// timeout.
	Client *http.Client
	Logger *zap.SugaredLogger
	// MaxFileSize bounds each proxied body; 0 means DefaultMaxFileSize.
	MaxFileSize int64
}

// DefaultMaxFileSize caps a single proxied file.
const DefaultMaxFileSize int64 = 512 << 20

// NewRouter builds the proxy routes: the file endpoint, /metrics and
// /healthz.
func NewRouter(opts Options) http.Handler {
	log := opts.Logger
	if log == nil {
		log = logger.Log
	}
	client := opts.Client
	if client == nil {
		client = &http.Client{Timeout: 2 * time.Minute}
	}

	router := chi.NewRouter()
	router.Use(Instrument(log))

	maxSize := opts.MaxFileSize
	if maxSize <= 0 {
		maxSize = DefaultMaxFileSize
	}

	router.Method(http.MethodGet, FilePath, &fileHandler{client: client, log: log, maxSize: maxSize})
	router.Handle("/metrics", promhttp.Handler())
	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok"))
	})
	return router
}

// Server runs the router until its context is cancelled.
type Server struct {
	httpServer      *http.Server
	log             *zap.SugaredLogger
	shutdownTimeout time.Duration
}

// NewServer creates a server listening on addr.
func NewServer(addr string, opts Options) *Server {
	log := opts.Logger
	if log == nil {
		log = logger.Log
	}
	return &Server{
		httpServer: &http.Server{
			Addr:              addr,
			Handler:           NewRouter(opts),
			ReadHeaderTimeout: 10 * time.Second,
			IdleTimeout:       time.Minute,
		},
		log:             log,
		shutdownTimeout: 10 * time.Second,
	}
}

// Run serves until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.log.Infow("Proxy server started", zap.String("addr", s.httpServer.Addr))
		err := s.httpServer.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		s.log.Infow("Shutting down proxy server")
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("proxy server failed: %w", err)
		}
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	defer cancel()
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("proxy shutdown failed: %w", err)
	}
	s.log.Infow("Proxy server stopped")
	return nil
}
