package httpserver

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"threadscraper/pkg/logger"
)

// Server wraps the HTTP server of the threads API
type Server struct {
	HTTP   *http.Server
	logger logger.Logger
}

// Options configure a Server
type Options struct {
	Addr   string
	Logger logger.Logger
	Router chi.Router
}

// New creates a Server. A nil router serves nothing but 404s.
func New(opts Options) *Server {
	if opts.Router == nil {
		opts.Router = chi.NewRouter()
	}
	if opts.Logger == nil {
		opts.Logger = logger.GetLogger()
	}

	srv := &http.Server{
		Addr:              opts.Addr,
		Handler:           opts.Router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return &Server{HTTP: srv, logger: opts.Logger.WithField("component", "httpserver")}
}

// Run serves until ctx is cancelled, then shuts down gracefully
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		logger.LogComponentStart(s.logger, "http server", map[string]interface{}{"addr": s.HTTP.Addr})
		errCh <- s.HTTP.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		s.logger.Info("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	err := s.Shutdown(shutdownCtx)
	logger.LogComponentStop(s.logger, "http server", "shutdown")
	return err
}

// Shutdown stops the server, waiting for in-flight requests
func (s *Server) Shutdown(ctx context.Context) error {
	return s.HTTP.Shutdown(ctx)
}
