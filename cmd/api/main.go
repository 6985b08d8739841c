// Package main is the entry point for the ClimaRoute risk API server.
//
// It loads configuration, loads the trained inference artifacts (degrading
// gracefully when they are absent), wires the weather provider client and the
// risk service, builds the HTTP server with the core chassis (middleware,
// routing, health checks), and starts listening for requests.
//
// Graceful shutdown is handled via OS signal interception (SIGINT, SIGTERM).
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"climaroute/internal/api/handlers"
	"climaroute/internal/config"
	"climaroute/internal/core"
	"climaroute/internal/db"
	"climaroute/internal/model"
	"climaroute/internal/risk"
	"climaroute/internal/weather"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

// run encapsulates the startup lifecycle so that main() can cleanly exit on error.
func run() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	logger := newLogger(cfg.LogLevel)
	logger.Info("climaroute API starting",
		"environment", cfg.Environment,
		"service", cfg.Service,
		"port", cfg.Server.Port,
	)

	// Load the inference artifacts once, up front. A missing or corrupt
	// artifact is not fatal: the service starts degraded, answers with
	// weather-derived fields and a zero rain probability, and reports
	// not-ready until redeployed with valid artifacts.
	artifacts, err := model.Load(cfg.Model, logger)
	if err != nil {
		logger.Warn("inference artifacts unavailable, starting degraded",
			"error", err,
			"model_path", cfg.Model.ModelPath,
			"scaler_path", cfg.Model.ScalerPath,
		)
		artifacts = model.Empty()
	}

	weatherClient := weather.NewClient(
		&http.Client{Timeout: cfg.Weather.FetchTimeout},
		cfg.Weather,
		logger,
	)

	// The history store is optional: without DATABASE_URL the service runs
	// stateless and neither records nor serves past assessments.
	var recorder risk.AssessmentRecorder
	var historyStore handlers.AssessmentStore
	var pool interface{ Close() }
	if cfg.HistoryEnabled() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		dbPool, err := db.NewPool(ctx, cfg.Database)
		cancel()
		if err != nil {
			return fmt.Errorf("connecting to history database: %w", err)
		}
		repo := db.NewAssessmentRepository(dbPool)

		ctx, cancel = context.WithTimeout(context.Background(), 10*time.Second)
		err = repo.EnsureSchema(ctx)
		cancel()
		if err != nil {
			dbPool.Close()
			return fmt.Errorf("preparing history schema: %w", err)
		}

		recorder = repo
		historyStore = repo
		pool = dbPool
		logger.Info("assessment history enabled")
	}

	engine := risk.NewEngine(artifacts, logger)
	riskService := risk.NewService(weatherClient, engine, recorder, cfg.Risk.SegmentConcurrency, logger)

	srv, err := core.NewServer(cfg, artifacts, logger)
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}

	riskHandler := handlers.NewRiskHandler(riskService, srv.Validator, logger)
	srv.RouteRegistrars = append(srv.RouteRegistrars, riskHandler.RegisterRoutes)

	if historyStore != nil {
		historyHandler := handlers.NewHistoryHandler(historyStore, logger)
		srv.RouteRegistrars = append(srv.RouteRegistrars, historyHandler.RegisterRoutes)
	}

	srv.MountRoutes()

	err = runHTTPServer(srv, cfg, logger)
	if pool != nil {
		pool.Close()
	}
	return err
}

// runHTTPServer starts the server in standard HTTP mode with graceful shutdown.
func runHTTPServer(srv *core.Server, cfg *config.Config, logger *slog.Logger) error {
	addr := ":" + cfg.Server.Port

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	serverErr := make(chan error, 1)

	go func() {
		logger.Info("HTTP server listening", "addr", addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-shutdown:
		logger.Info("shutdown signal received", "signal", sig.String())
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	}

	logger.Info("initiating graceful shutdown")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error("HTTP server shutdown error", "error", err)
	}

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server resource shutdown error", "error", err)
		return fmt.Errorf("server shutdown: %w", err)
	}

	logger.Info("server stopped cleanly")
	return nil
}

// newLogger creates a structured slog.Logger configured for the given log level.
func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}

	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}
