package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/erauner12/toolbridge-resources/internal/auth"
	"github.com/erauner12/toolbridge-resources/internal/collection"
	"github.com/erauner12/toolbridge-resources/internal/config"
	"github.com/erauner12/toolbridge-resources/internal/db"
	"github.com/erauner12/toolbridge-resources/internal/httpapi"
)

var configPath = flag.String("config", "", "Path to configuration file (JSON or YAML)")

func main() {
	flag.Parse()

	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Configure structured logging
	zerolog.TimeFieldFormat = time.RFC3339Nano
	if lvl, err := zerolog.ParseLevel(cfg.LogLevel); err == nil && lvl != zerolog.NoLevel {
		zerolog.SetGlobalLevel(lvl)
	}
	log.Logger = log.With().Str("service", "toolbridge-resources").Logger()

	// Pretty logging for local dev
	if cfg.DevMode || cfg.Debug {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"})
	}

	ctx := context.Background()

	repo, err := openRepository(ctx, cfg.Server)
	if err != nil {
		log.Fatal().Err(err).Str("storage", cfg.Server.Storage).Msg("failed to open storage")
	}
	defer repo.Close()

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	// HTTP server setup
	rl := cfg.Server.RateLimit
	srv := &httpapi.Server{
		Repo:    repo,
		Storage: cfg.Server.Storage,
		RateLimitConfig: httpapi.RateLimitInfo{
			WindowSeconds: rl.WindowSeconds,
			MaxRequests:   rl.MaxRequests,
			Burst:         rl.Burst,
		},
		Registry: registry,
	}

	jwtCfg := auth.JWTCfg{
		HS256Secret: cfg.JWTSecret,
		DevMode:     cfg.DevMode,
	}

	httpAddr := cfg.Server.HTTPAddr
	httpServer := &http.Server{
		Addr:         httpAddr,
		Handler:      srv.Routes(jwtCfg),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Info().Str("addr", httpAddr).Str("storage", cfg.Server.Storage).Msg("starting HTTP server")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	// Graceful shutdown on SIGINT/SIGTERM
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	log.Info().Msg("shutting down gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown error")
	}

	log.Info().Msg("server stopped")
}

// loadConfig reads the config file (if any) and environment, then validates
// the server settings
func loadConfig() (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if *configPath != "" {
		cfg, err = config.Load(*configPath)
	} else {
		cfg, err = config.LoadFromEnvironment()
	}
	if err != nil {
		return nil, err
	}
	if err := cfg.ValidateServer(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// openRepository connects the configured storage backend
func openRepository(ctx context.Context, cfg config.ServerConfig) (collection.Repository, error) {
	switch cfg.Storage {
	case config.StoragePostgres:
		pool, err := db.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		if err := db.Migrate(ctx, pool); err != nil {
			pool.Close()
			return nil, err
		}
		return collection.NewPostgres(pool), nil
	case config.StorageSQLite:
		return collection.NewSQLite(cfg.SQLitePath)
	default:
		log.Warn().Msg("using in-memory storage; data is lost on restart")
		return collection.NewMemory(), nil
	}
}
