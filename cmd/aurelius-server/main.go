// Package main is the entry point for the Aurelius catalogue server:
// a REST API for cataloguing works of art with user reviews, scores,
// and passwordless email-code authentication.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/prn-tf/aurelius-catalogue/internal/auth"
	"github.com/prn-tf/aurelius-catalogue/internal/cache/memory"
	"github.com/prn-tf/aurelius-catalogue/internal/config"
	"github.com/prn-tf/aurelius-catalogue/internal/handler"
	"github.com/prn-tf/aurelius-catalogue/internal/lock"
	"github.com/prn-tf/aurelius-catalogue/internal/mailer"
	"github.com/prn-tf/aurelius-catalogue/internal/repository"
	"github.com/prn-tf/aurelius-catalogue/internal/repository/postgres"
	redisrepo "github.com/prn-tf/aurelius-catalogue/internal/repository/redis"
	"github.com/prn-tf/aurelius-catalogue/internal/repository/sqlite"
	"github.com/prn-tf/aurelius-catalogue/internal/service"
)

// Version information (set at build time)
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	cfg := config.MustLoad(*configPath)

	logger := setupLogger(cfg.Logging)
	logger.Info().
		Str("version", Version).
		Str("build_time", BuildTime).
		Str("git_commit", GitCommit).
		Msg("starting Aurelius catalogue server")

	if cfg.Auth.TokenSecret == "" {
		logger.Fatal().Msg("auth.token_secret is required (AURELIUS_AUTH_TOKEN_SECRET)")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal().Err(err).Msg("server exited with error")
	}

	logger.Info().Msg("server stopped")
}

func run(ctx context.Context, cfg *config.Config, logger zerolog.Logger) error {
	// Database
	repos, dbHealth, err := setupDatabase(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("database setup: %w", err)
	}
	defer dbHealth.Close()

	// Cache and locking: Redis when enabled, in-process otherwise.
	var cache repository.Cache
	var locker lock.Locker
	if cfg.Redis.Enabled {
		redisClient, err := redisrepo.NewClient(ctx, cfg.Redis, logger)
		if err != nil {
			return fmt.Errorf("redis setup: %w", err)
		}
		defer redisClient.Close()
		cache = redisClient
		locker = lock.NewRedisLocker(redisClient)
	} else {
		memCache := memory.NewCache()
		defer memCache.Close()
		cache = memCache
		locker = lock.NewMemoryLocker()
	}

	// Auth
	tokens, err := auth.NewTokenManager(cfg.Auth.TokenSecret, cfg.Auth.TokenTTL)
	if err != nil {
		return fmt.Errorf("token manager setup: %w", err)
	}

	// Services
	mail := mailer.New(cfg.Email, logger)
	codeService := service.NewCodeService(repos.Code, locker, cfg.Auth, logger)
	authService := service.NewAuthService(repos.User, codeService, tokens, mail, cfg.Auth, logger)
	identityService := service.NewIdentityService(repos.User, cfg.Auth, logger)
	catalogService := service.NewCatalogService(repos.Category, repos.Genre, repos.Title, cache, logger)
	reviewService := service.NewReviewService(repos.Title, repos.Review, repos.Comment, cfg.Auth, logger)

	// Metrics
	var metrics *handler.Metrics
	registry := prometheus.NewRegistry()
	if cfg.Metrics.Enabled {
		registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		metrics = handler.NewMetrics(registry)
	}

	// HTTP
	router := handler.NewRouter(handler.RouterConfig{
		AuthHandler:    handler.NewAuthHandler(authService, logger),
		UserHandler:    handler.NewUserHandler(identityService, logger),
		CatalogHandler: handler.NewCatalogHandler(catalogService, logger),
		ReviewHandler:  handler.NewReviewHandler(reviewService, logger),
		AuthMiddleware: auth.Middleware(tokens, repos.User),
		Metrics:        metrics,
		Database:       dbHealth,
		Logger:         logger,
	})

	server := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      http.MaxBytesHandler(router.Handler(), cfg.Server.MaxBodySize),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	errCh := make(chan error, 2)

	go func() {
		logger.Info().Str("addr", server.Addr).Msg("API server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("api server: %w", err)
		}
	}()

	var metricsServer *http.Server
	if cfg.Metrics.Enabled {
		mux := http.NewServeMux()
		mux.Handle(cfg.Metrics.Path, handler.MetricsHandler(registry))
		metricsServer = &http.Server{
			Addr:    fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Metrics.Port),
			Handler: mux,
		}
		go func() {
			logger.Info().Str("addr", metricsServer.Addr).Str("path", cfg.Metrics.Path).Msg("metrics server listening")
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- fmt.Errorf("metrics server: %w", err)
			}
		}()
	}

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("api server shutdown failed")
	}
	if metricsServer != nil {
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("metrics server shutdown failed")
		}
	}

	return nil
}

// setupDatabase opens the configured backend and applies migrations.
func setupDatabase(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*repository.Repositories, repository.DatabaseHealth, error) {
	switch cfg.Database.Driver {
	case "postgres":
		db, err := postgres.NewDB(ctx, cfg.Database, logger)
		if err != nil {
			return nil, nil, err
		}
		if err := db.Migrate(ctx); err != nil {
			db.Close()
			return nil, nil, err
		}
		return postgres.NewRepositories(db), db, nil

	case "sqlite":
		db, err := sqlite.NewDB(ctx, cfg.Database, logger)
		if err != nil {
			return nil, nil, err
		}
		if err := db.Migrate(ctx); err != nil {
			db.Close()
			return nil, nil, err
		}
		return sqlite.NewRepositories(db), db, nil

	default:
		return nil, nil, fmt.Errorf("unknown database driver %q", cfg.Database.Driver)
	}
}

// setupLogger builds the process logger from config.
func setupLogger(cfg config.LoggingConfig) zerolog.Logger {
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil {
		level = zerolog.InfoLevel
	}

	zerolog.TimeFieldFormat = cfg.TimeFormat

	var logger zerolog.Logger
	if cfg.Format == "console" {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	} else {
		logger = zerolog.New(os.Stdout)
	}

	logger = logger.Level(level).With().Timestamp().Logger()
	log.Logger = logger
	return logger
}
