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

	"pushrelay/internal/config"
	"pushrelay/internal/constants"
	"pushrelay/internal/retry"
	"pushrelay/internal/service"
	"pushrelay/internal/store"
	"pushrelay/internal/tracing"
	"pushrelay/pkg/expo"
	"pushrelay/pkg/supabase"

	"github.com/sirupsen/logrus"
)

var (
	// Version information (set at build time)
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"

	// CLI flags
	verbose = flag.Bool("verbose", false, "Enable verbose logging")
	version = flag.Bool("version", false, "Show version information")
)

func main() {
	flag.Parse()

	if *version {
		fmt.Printf("pushrelay %s\nBuild Time: %s\nGit Commit: %s\n", Version, BuildTime, GitCommit)
		os.Exit(0)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		logrus.Fatalf("Application error: %v", err)
	}
}

func run(ctx context.Context) error {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	if *verbose {
		logger.SetLevel(logrus.DebugLevel)
	} else {
		logger.SetLevel(logrus.InfoLevel)
	}

	logger.WithFields(logrus.Fields{
		"version": Version,
		"build":   BuildTime,
		"commit":  GitCommit,
	}).Info("Starting pushrelay")

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	tracingManager := tracing.NewTracingManager(tracing.DefaultTracingConfig(), logger)
	if err := tracingManager.Initialize(ctx); err != nil {
		logger.Warnf("Failed to initialize tracing: %v", err)
	}
	defer func() {
		if err := tracingManager.Shutdown(context.Background()); err != nil {
			logger.Warnf("Failed to shutdown tracing: %v", err)
		}
	}()

	// One datastore client and one push client for the process lifetime,
	// passed by reference into both services.
	dbHTTPClient := &http.Client{Timeout: constants.DefaultHTTPTimeoutSec * time.Second}
	dbClient := supabase.NewClientWithLogger(cfg.SupabaseURL, cfg.SupabaseServiceKey, dbHTTPClient, logger)

	backoff := retry.NewBackoff(retry.BackoffConfig{
		InitialDelay: constants.DefaultStartupBackoffMs * time.Millisecond,
		MaxDelay:     constants.DefaultStartupBackoffMaxMs * time.Millisecond,
		Multiplier:   2.0,
		MaxAttempts:  constants.DefaultStartupProbeAttempts,
		Jitter:       true,
	})
	if err := backoff.Retry(ctx, func() error {
		probeCtx, cancel := context.WithTimeout(ctx, constants.DefaultHTTPTimeoutSec*time.Second)
		defer cancel()
		return dbClient.Ping(probeCtx)
	}); err != nil {
		return fmt.Errorf("datastore unreachable: %w", err)
	}

	pushHTTPClient := &http.Client{Timeout: constants.DefaultGatewayTimeoutSec * time.Second}
	pushClient := expo.NewClientWithLogger(expo.DefaultBaseURL, pushHTTPClient, logger)

	st := store.New(dbClient)

	webhooks := service.NewWebhookService(st, pushClient, logger)
	procCfg := service.DefaultProcessorConfig()
	processor := service.NewProcessor(st, pushClient, procCfg, logger)

	server := NewServer(cfg, webhooks, processor, procCfg, logger)
	serverErrCh := make(chan error, constants.ServerErrorChannelSize)
	go func() {
		if err := server.Start(); err != nil && err != http.ErrServerClosed {
			serverErrCh <- fmt.Errorf("server error: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("Received shutdown signal, exiting")
	case err := <-serverErrCh:
		logger.Error(err)
		return err
	}

	// Exit promptly; in-flight requests are not drained.
	if err := server.Close(); err != nil {
		logger.Warnf("Error closing server: %v", err)
	}

	return nil
}
