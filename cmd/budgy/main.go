package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"budgy/internal/auth"
	"budgy/internal/backend"
	"budgy/internal/cache"
	"budgy/internal/cli"
	"budgy/internal/config"
	apphttp "budgy/internal/http"
	"budgy/internal/log"
	"budgy/internal/services"
)

func main() {
	cli.LoadEnvFile()

	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"), os.Getenv("LOG_FORMAT"), log.ComponentApp)
	cfg := cli.LoadAndValidateConfig(logger)
	logger = cli.SetupLogger(cfg.LogLevel, cfg.LogFormat, log.ComponentApp)

	if err := run(cfg, logger); err != nil {
		logger.Error("Server error", log.FieldError, err.Error())
		os.Exit(1)
	}
	logger.Info("Server stopped gracefully")
}

// run owns every resource it opens, so deferred cleanup completes before
// main decides the exit code.
func run(cfg *config.Config, logger *log.Logger) error {
	loc := cli.MustLocation(logger, cfg)

	ctx, stop := cli.ShutdownContext(logger)
	defer stop()

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return fmt.Errorf("invalid backend configuration: %w", err)
	}
	result, err := backend.NewFactory(logger).CreateBackend(ctx, backendCfg)
	if err != nil {
		return fmt.Errorf("initialize %s backend: %w", cfg.DataBackend, err)
	}
	defer func() {
		if result.Cleanup == nil {
			return
		}
		if err := result.Cleanup(); err != nil {
			logger.Error("Backend cleanup failed", log.FieldError, err.Error())
		}
	}()

	tokens, err := auth.NewTokens(cfg.AuthJWTSecret, cfg.AuthTokenTTL)
	if err != nil {
		return fmt.Errorf("initialize token verifier: %w", err)
	}

	registry := services.NewSessionRegistry(result.Store, services.RegistryConfig{
		MaxSessions: cfg.SessionMax,
		TTL:         cfg.SessionTTL,
	}, logger, services.WithLocation(loc))

	caches := cache.NewManager(logger)
	caches.Register("sessions", registry)
	caches.StartCleanup(cfg.SessionCleanupInterval)
	defer caches.Stop()

	srv := apphttp.NewServer(":"+cfg.Port, apphttp.Deps{
		Registry:           registry,
		Tokens:             tokens,
		Ready:              backend.Pinger(result.Store),
		Logger:             logger,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		TrustedProxies:     cfg.TrustedProxies,
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Starting budgy server",
			log.FieldOperation, log.OpStartup,
			"port", cfg.Port,
			"backend", cfg.DataBackend,
			"events", result.Events,
			"timezone", loc.String())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
