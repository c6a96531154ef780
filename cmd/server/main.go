package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/lexiqai/voicegate/internal/audio"
	"github.com/lexiqai/voicegate/internal/capture"
	"github.com/lexiqai/voicegate/internal/config"
	"github.com/lexiqai/voicegate/internal/httpapi"
	"github.com/lexiqai/voicegate/internal/observability"
	"github.com/lexiqai/voicegate/internal/resilience"
	"github.com/lexiqai/voicegate/internal/template"
	"github.com/lexiqai/voicegate/internal/voiceprint"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		// Use fmt for fatal errors before logger is initialized
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize structured logger
	observability.InitLogger(cfg.LogLevel, cfg.LogPretty)
	logger := observability.GetLogger()

	logger.Info().
		Str("port", cfg.Port).
		Str("backend", cfg.VoiceprintBackend).
		Float64("threshold", cfg.VoiceprintThreshold).
		Str("log_level", cfg.LogLevel).
		Bool("metrics_enabled", cfg.MetricsEnabled).
		Msg("Voiceprint gate starting")

	var metrics *observability.Metrics
	if cfg.MetricsEnabled {
		metrics = observability.NewMetrics()
	}

	vpCfg := voiceprint.DefaultConfig()
	vpCfg.Threshold = cfg.VoiceprintThreshold
	vpCfg.Retry = &resilience.RetryConfig{
		MaxAttempts:       cfg.PersistRetryAttempts,
		InitialBackoff:    cfg.PersistBackoff(),
		MaxBackoff:        2 * time.Second,
		BackoffMultiplier: 2.0,
	}

	store, err := openStore(cfg, vpCfg.Features.NumCoefficients, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to open voiceprint store")
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Error().Err(err).Msg("Error closing voiceprint store")
		}
	}()

	startCtx, cancelStart := context.WithTimeout(context.Background(), 10*time.Second)
	engine, err := voiceprint.New(startCtx, vpCfg, store,
		voiceprint.WithLogger(logger.With().Str("component", "voiceprint").Logger()),
		voiceprint.WithMetrics(metrics),
	)
	cancelStart()
	if err != nil {
		// Fatal exits without running defers; release the store first.
		if closeErr := store.Close(); closeErr != nil {
			logger.Error().Err(closeErr).Msg("Error closing voiceprint store")
		}
		logger.Fatal().Err(err).Msg("Failed to create voiceprint engine")
	}

	ring := audio.NewRollingBuffer(audio.SampleRate, cfg.RingBufferSeconds)

	// Create HTTP server
	mux := http.NewServeMux()

	// Microphone WebSocket ingest
	mux.Handle("GET /streams/mic", capture.NewHandler(ring, logger.With().Str("component", "capture").Logger(), metrics))

	httpapi.New(httpapi.Options{
		Engine:              engine,
		Ring:                ring,
		VerifyWindowSeconds: cfg.VerifyWindowSeconds,
		EnrollMinRMS:        cfg.EnrollMinRMS,
		Logger:              logger.With().Str("component", "httpapi").Logger(),
		Metrics:             metrics,
	}).Register(mux)

	// Health check endpoint
	mux.HandleFunc("/health", observability.HealthCheckHandler())

	// Readiness endpoint
	checks := map[string]observability.HealthCheckFunc{}
	if pinger, ok := store.(template.Pinger); ok {
		checks["voiceprint_store"] = pinger.Ping
	}
	mux.HandleFunc("/ready", observability.ReadinessHandler(checks))

	// Metrics endpoint (Prometheus)
	if cfg.MetricsEnabled {
		mux.Handle("/metrics", promhttp.Handler())
		logger.Info().Msg("Prometheus metrics enabled at /metrics")
	}

	// Create HTTP server with timeouts
	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	serverErr := make(chan error, 1)
	go func() {
		logger.Info().
			Str("port", cfg.Port).
			Str("endpoint", fmt.Sprintf("ws://localhost:%s/streams/mic", cfg.Port)).
			Bool("enrolled", engine.IsEnrolled()).
			Msg("Server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case err := <-serverErr:
		logger.Error().Err(err).Msg("Server failed")
	}

	logger.Info().Msg("Shutting down server...")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("Server forced to shutdown")
	}

	logger.Info().Msg("Server exited gracefully")
}

// openStore opens the configured template backend.
func openStore(cfg *config.Config, dim int, logger zerolog.Logger) (template.Store, error) {
	switch cfg.VoiceprintBackend {
	case config.BackendFile:
		store, err := template.NewFile(cfg.VoiceprintFile, dim)
		if err != nil {
			return nil, err
		}
		logger.Info().Str("path", store.Path()).Msg("Using file voiceprint store")
		return store, nil
	case config.BackendBadger:
		store, err := template.NewBadger(template.BadgerOptions{
			Dir:    cfg.VoiceprintBadgerDir,
			Dim:    dim,
			Logger: logger,
		})
		if err != nil {
			return nil, err
		}
		logger.Info().Str("dir", cfg.VoiceprintBadgerDir).Msg("Using badger voiceprint store")
		return store, nil
	case config.BackendMemory:
		logger.Warn().Msg("Voiceprint kept in memory only; enrollment is lost on restart")
		return template.NewMemory(dim), nil
	default:
		return nil, fmt.Errorf("unknown voiceprint backend %q", cfg.VoiceprintBackend)
	}
}
