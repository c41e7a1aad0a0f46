package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog/log"

	"github.com/Alias1177/coinbridge/internal/bridge"
	"github.com/Alias1177/coinbridge/internal/config"
	"github.com/Alias1177/coinbridge/internal/logging"
	"github.com/Alias1177/coinbridge/internal/metrics"
	"github.com/Alias1177/coinbridge/internal/server"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 1. Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	// 2. Configure logging
	closer, err := logging.Setup(logging.Config{Level: cfg.Log.Level, Format: cfg.Log.Format, Output: cfg.Log.Output})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to configure logging")
	}
	defer closer.Close()

	printConfig(cfg)

	// 3. Metrics
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	// 4. Bridge and HTTP server
	svc := bridge.FromConfig(cfg, metrics.New(reg))
	srv := server.New(svc, server.Options{
		Addr:            cfg.Server.Addr,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
		DefaultAPIKey:   cfg.CMC.APIKey,
		Gatherer:        reg,
	})

	if err := srv.Run(ctx); err != nil {
		log.Error().Err(err).Msg("Server stopped with error")
		return
	}
	log.Info().Msg("Shutdown complete")
}

func printConfig(cfg *config.Config) {
	log.Info().
		Str("BaseURL", cfg.CMC.BaseURL).
		Str("Convert", cfg.CMC.Convert).
		Str("APIKey", logging.KeyFingerprint(cfg.CMC.APIKey)).
		Dur("CallTimeout", cfg.CMC.CallTimeout).
		Int("RequestsPerSec", cfg.CMC.RequestsPerSec).
		Int("MaxRetries", cfg.CMC.MaxRetries).
		Int("AllTimeframeDays", cfg.CMC.AllTimeframeDays).
		Str("Addr", cfg.Server.Addr).
		Msg("Configuration loaded")
}
