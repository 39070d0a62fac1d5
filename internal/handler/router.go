package handler

import (
	"log/slog"
	"net/netip"

	"github.com/go-chi/chi/v5"

	"github.com/fintrack/fintrack/internal/metrics"
	"github.com/fintrack/fintrack/internal/middleware"
	"github.com/fintrack/fintrack/internal/service"
)

// RouterConfig holds everything the HTTP surface is built from.
type RouterConfig struct {
	Logger *slog.Logger

	Auth     *service.AuthService
	Users    *service.UserService
	Accounts *service.AccountService

	Verifier  middleware.TokenVerifier
	RateLimit middleware.RateLimitConfig
	// TrustedProxies are the peers allowed to report the client address.
	TrustedProxies []netip.Prefix

	DB      HealthChecker
	Cache   HealthChecker
	Metrics metrics.Snapshotter

	CORSAllowedOrigins []string
	MaxRequestBodySize int64
	IsDevelopment      bool
}

// NewRouter configures the chi router with all routes and middleware.
func NewRouter(cfg RouterConfig) *chi.Mux {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	h := New()
	healthHandler := NewHealthHandler(cfg.DB, cfg.Cache, logger)
	metricsHandler := NewMetricsHandler(cfg.Metrics)
	authHandler := NewAuthHandler(cfg.Auth, logger)
	userHandler := NewUserHandler(cfg.Users, logger)
	accountHandler := NewAccountHandler(cfg.Accounts, logger)

	corsCfg := middleware.DefaultCORSConfig()
	if len(cfg.CORSAllowedOrigins) > 0 {
		corsCfg.AllowedOrigins = cfg.CORSAllowedOrigins
	}

	maxBody := cfg.MaxRequestBodySize
	if maxBody <= 0 {
		maxBody = 1 << 20
	}

	rateLimitCfg := cfg.RateLimit
	if rateLimitCfg.Logger == nil {
		rateLimitCfg.Logger = logger
	}

	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RealIP(cfg.TrustedProxies))
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Recoverer(logger))
	r.Use(middleware.Security(middleware.SecurityConfig{IsDevelopment: cfg.IsDevelopment}))
	r.Use(middleware.CORS(corsCfg))
	r.Use(middleware.MaxBodySize(maxBody))

	// Probes and introspection (no auth required)
	r.Get("/healthz", healthHandler.Healthz)
	r.Get("/readyz", healthHandler.Readyz)
	r.Get("/metrics", metricsHandler.Metrics)
	r.Get("/openapi.yaml", OpenAPI)

	r.Route("/auth", func(r chi.Router) {
		r.Use(middleware.RateLimitAuth(rateLimitCfg))
		r.Post("/signup", authHandler.Signup)
		r.Post("/signin", authHandler.Signin)
	})

	// Authenticated routes
	r.Group(func(r chi.Router) {
		r.Use(middleware.Auth(middleware.AuthConfig{
			Logger:   logger,
			Verifier: cfg.Verifier,
		}))

		r.Get("/users/me", userHandler.Me)
		r.Patch("/users", userHandler.Edit)

		r.Route("/accounts", func(r chi.Router) {
			r.Get("/", accountHandler.List)
			r.Post("/", accountHandler.Create)
			r.Get("/{id}", accountHandler.Get)
			r.Patch("/{id}", accountHandler.Edit)
			r.Delete("/{id}", accountHandler.Delete)
			r.Get("/{id}/transactions", accountHandler.Transactions)
		})
	})

	r.NotFound(h.NotFound)
	r.MethodNotAllowed(h.MethodNotAllowed)

	return r
}
