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

	"github.com/rickgao/market-recorder/internal/config"
	"github.com/rickgao/market-recorder/internal/recorder"
	"github.com/rickgao/market-recorder/internal/version"
)

func main() {
	configPath := flag.String("config", "configs/recorder.local.yaml", "path to config file")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(version.String())
		return
	}

	os.Exit(run(*configPath))
}

func run(configPath string) int {
	// Load configuration
	cfg, err := config.LoadAndValidate(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		return 1
	}

	// Set up structured logging
	logger := config.NewLogger(cfg.Logging, os.Stdout)

	logger.Info("starting recorder",
		"version", version.Version,
		"commit", version.Commit,
		"config", configPath,
		"instance_id", cfg.Instance.ID,
	)

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	rec, err := recorder.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to start recorder", "error", err)
		return 1
	}
	defer rec.Close()

	var healthServer *http.Server
	if cfg.Health.Port > 0 {
		healthServer = &http.Server{
			Addr:    fmt.Sprintf(":%d", cfg.Health.Port),
			Handler: rec.HealthHandler(),
		}
		go func() {
			logger.Info("starting health server", "port", cfg.Health.Port)
			if err := healthServer.ListenAndServe(); err != http.ErrServerClosed {
				logger.Error("health server error", "error", err)
			}
		}()
	}

	done := make(chan error, 1)
	go func() { done <- rec.Run(ctx) }()

	// Wait for shutdown, or for every pipeline to stop on its own
	var runErr error
	select {
	case runErr = <-done:
	case <-ctx.Done():
		logger.Info("shutting down...", "timeout", cfg.ShutdownTimeout)
		select {
		case runErr = <-done:
		case <-time.After(cfg.ShutdownTimeout):
			logger.Error("shutdown timed out; pending batches may be lost")
			return 1
		}
	}

	if healthServer != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		healthServer.Shutdown(shutdownCtx)
	}

	if runErr != nil || rec.Failed() {
		logger.Error("recorder stopped with errors", "error", runErr)
		return 1
	}
	logger.Info("recorder stopped")
	return 0
}
