// Package server exposes the bridge over HTTP for local development and simulator builds.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Alias1177/coinbridge/internal/bridge"
)

// Options configures Server
type Options struct {
	Addr            string
	ShutdownTimeout time.Duration
	// DefaultAPIKey is used when a request carries no key of its own.
	DefaultAPIKey string
	// Gatherer backs /metrics. Nil disables the route.
	Gatherer prometheus.Gatherer
}

// Server wraps an Echo HTTP server.
type Server struct {
	echo   *echo.Echo
	opts   Options
	logger zerolog.Logger
}

// New creates a server answering through svc.
func New(svc *bridge.Service, opts Options) *Server {
	if opts.Addr == "" {
		opts.Addr = ":8080"
	}
	if opts.ShutdownTimeout == 0 {
		opts.ShutdownTimeout = 10 * time.Second
	}

	logger := log.With().Str("component", "http_server").Logger()

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(Recover(logger))
	e.Use(RequestLogging(logger))

	h := &handler{svc: svc, defaultKey: opts.DefaultAPIKey}
	e.GET("/health", h.health)
	e.GET("/api/historical/:symbol", h.historical)
	e.GET("/api/crypto-prices", h.cryptoPrices)

	if opts.Gatherer != nil {
		e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{})))
	}

	return &Server{echo: e, opts: opts, logger: logger}
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", s.opts.Addr).Msg("HTTP server listening")
		if err := s.echo.Start(s.opts.Addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.opts.ShutdownTimeout)
	defer cancel()
	if err := s.echo.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown error: %w", err)
	}
	s.logger.Info().Msg("HTTP server stopped gracefully")
	return nil
}

// Handler returns the underlying router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.echo
}
