package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"

	"github.com/stanstork/hackmatch/internal/config"
	"github.com/stanstork/hackmatch/internal/stubapi"
)

func main() {
	configPath := flag.String("config", "", "path to hackmatch.yaml")
	flag.Parse()

	// Set up structured, level-based logging.
	consoleWriter := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.Kitchen}
	logger := zerolog.New(consoleWriter).With().Timestamp().Logger()

	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	log.SetFlags(0)
	log.SetOutput(logger)

	// Load configuration.
	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to load configuration")
	}
	if err := cfg.ValidateStub(); err != nil {
		logger.Fatal().Err(err).Msg("Invalid stub configuration")
	}
	if level, err := zerolog.ParseLevel(cfg.Log.Level); err == nil {
		zerolog.SetGlobalLevel(level)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	srv, err := stubapi.New(cfg.Stub, logger, registry)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to build stub API")
	}
	if cfg.Stub.Seed {
		codes, err := srv.SeedDemo()
		if err != nil {
			logger.Fatal().Err(err).Msg("Failed to seed demo data")
		}
		for identity, code := range codes {
			logger.Info().Str("identity", identity).Str("code", code).Msg("Demo login code")
		}
	}

	if cfg.Stub.AdminEmail != "" && cfg.Stub.AdminPassword != "" {
		admin, err := srv.CreateAdmin(cfg.Stub.AdminEmail, cfg.Stub.AdminPassword)
		if err != nil {
			logger.Fatal().Err(err).Msg("Failed to seed admin")
		}
		logger.Info().Str("email", admin.Email).Msg("Admin account ready")
	}

	startServer(srv.Handler(), cfg.Stub.Port, logger)

	logger.Info().Msg("Stub server terminated.")
}

// startServer launches the HTTP server and handles graceful shutdown.
func startServer(handler http.Handler, port string, logger zerolog.Logger) {
	server := &http.Server{
		Addr:              ":" + port,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	// Channel to listen for server errors
	serverErrCh := make(chan error, 1)
	go func() {
		logger.Info().Msgf("Stub API listening on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrCh <- err
		}
	}()

	// Wait for an interrupt signal or a server error.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-quit:
		logger.Info().Msgf("Received signal: %s. Shutting down...", sig)
	case err := <-serverErrCh:
		logger.Error().Err(err).Msg("Server error occurred")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("HTTP server shutdown error")
	} else {
		logger.Info().Msg("HTTP server shutdown complete.")
	}
}
