package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/fintrack/fintrack/internal/auth"
	"github.com/fintrack/fintrack/internal/cache"
	"github.com/fintrack/fintrack/internal/config"
	"github.com/fintrack/fintrack/internal/gateway"
	"github.com/fintrack/fintrack/internal/handler"
	"github.com/fintrack/fintrack/internal/metrics"
	"github.com/fintrack/fintrack/internal/middleware"
	"github.com/fintrack/fintrack/internal/repository"
	"github.com/fintrack/fintrack/internal/server"
	"github.com/fintrack/fintrack/internal/service"
)

func newServeCommand() *cobra.Command {
	var migrate bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				slog.Error("failed to load config", "error", err)
				return err
			}
			return serve(cmd.Context(), cfg, migrate)
		},
	}

	cmd.Flags().BoolVar(&migrate, "migrate", false, "apply pending migrations before serving")

	return cmd
}

func serve(ctx context.Context, cfg *config.Config, migrate bool) error {
	if ctx == nil {
		ctx = context.Background()
	}
	logger := newLogger(cfg.LogLevel, cfg.LogFormat)

	if migrate {
		if err := migrateUp(ctx, cfg.DatabaseURL, logger); err != nil {
			return err
		}
	}

	hasher, err := auth.NewHasher(auth.DefaultParams)
	if err != nil {
		return fmt.Errorf("password hasher: %w", err)
	}
	tokens, err := auth.NewTokenIssuer(cfg.JWTSecret, cfg.TokenTTL)
	if err != nil {
		return fmt.Errorf("token issuer: %w", err)
	}

	trustedProxies, err := cfg.TrustedProxyPrefixes()
	if err != nil {
		return err
	}

	recorder := metrics.NewInMemory()

	gw, err := gateway.New(gateway.Config{
		BaseURL:   cfg.GatewayBaseURL(),
		SecretID:  cfg.GatewaySecretID,
		Password1: cfg.GatewaySecretPassword1,
		Password2: cfg.GatewaySecretPassword2,
		Timeout:   cfg.GatewayTimeout,
	}, gateway.NewHTTPClient(cfg.GatewayTimeout), logger, recorder)
	if err != nil {
		return fmt.Errorf("gateway: %w", err)
	}
	if cfg.GatewaySecretID == "" {
		logger.Warn("gateway credentials are not configured; account operations will fail")
	}

	repo, err := repository.New(ctx, cfg.DatabaseURL, repository.PoolOptions{
		MaxConns:        cfg.DBMaxConns,
		MinConns:        cfg.DBMinConns,
		MaxConnLifetime: cfg.DBMaxConnLifetime,
	})
	if err != nil {
		logger.Error(
			"failed to connect to database",
			slog.String("error", sanitizeError(err, cfg.DatabaseURL)),
			slog.String("database_url", redactURL(cfg.DatabaseURL)),
		)
		return fmt.Errorf("database: %s", sanitizeError(err, cfg.DatabaseURL))
	}
	logger.Info("connected to database")

	cacheClient, err := cache.New(ctx, cfg.RedisURL, cache.Options{
		PoolSize:     cfg.RedisPoolSize,
		MinIdleConns: cache.DefaultOptions.MinIdleConns,
		DialTimeout:  cache.DefaultOptions.DialTimeout,
	})
	if err != nil {
		repo.Close()
		logger.Error(
			"failed to connect to Redis",
			slog.String("error", sanitizeError(err, cfg.RedisURL)),
			slog.String("redis_url", redactURL(cfg.RedisURL)),
		)
		return fmt.Errorf("redis: %s", sanitizeError(err, cfg.RedisURL))
	}
	logger.Info("connected to Redis")

	router := handler.NewRouter(handler.RouterConfig{
		Logger:   logger,
		Auth:     service.NewAuthService(repo, hasher, tokens, logger, recorder),
		Users:    service.NewUserService(repo, cacheClient, logger, recorder),
		Accounts: service.NewAccountService(repo, gw, cfg.TransactionsPageSize, logger, recorder),
		Verifier: tokens,
		RateLimit: middleware.RateLimitConfig{
			Limiter:           cacheClient,
			Enabled:           cfg.RateLimitAuthEnabled,
			RequestsPerMinute: cfg.RateLimitAuthRPM,
			Burst:             cfg.RateLimitAuthBurst,
		},
		TrustedProxies:     trustedProxies,
		DB:                 repo,
		Cache:              cacheClient,
		Metrics:            recorder,
		CORSAllowedOrigins: cfg.GetCORSAllowedOrigins(),
		MaxRequestBodySize: cfg.MaxRequestBodySize,
		IsDevelopment:      cfg.IsDevelopment(),
	})

	srv := server.New(router, server.Config{
		Port:            cfg.AppPort,
		ReadTimeout:     cfg.ReadTimeout,
		WriteTimeout:    cfg.WriteTimeout,
		ShutdownTimeout: cfg.ShutdownTimeout,
	}, logger)

	// Registered first, stopped last.
	srv.OnShutdown("postgres", func(ctx context.Context) error {
		repo.Close()
		return nil
	})
	srv.OnShutdown("redis", func(ctx context.Context) error {
		return cacheClient.Close()
	})

	logger.Info("starting server",
		"port", cfg.AppPort,
		"env", cfg.AppEnv,
		"gateway_env", cfg.GatewayEnv,
		"gateway_url", cfg.GatewayBaseURL(),
	)

	if err := srv.Run(ctx); err != nil {
		logger.Error("server error", "error", err)
		return err
	}
	return nil
}
