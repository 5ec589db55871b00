// Package httpapi exposes the auth service over HTTP. All bodies in and
// out are JSON envelopes; tenant resolution and the guard chain run as
// middleware around the handlers here.
package httpapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/shepherdcrm/authcore"
	"github.com/shepherdcrm/authcore/metrics"
	"github.com/shepherdcrm/authcore/middleware"
	"github.com/shepherdcrm/authcore/tenant"
)

// API wires the service into handlers.
type API struct {
	service  *authcore.Service
	resolver *tenant.Resolver
	logger   *zap.Logger
	validate *validator.Validate
	config   Config
	limiter  *middleware.RateLimiter
	ready    func() error
}

// Config carries the HTTP-layer knobs.
type Config struct {
	RateLimit middleware.RateLimitConfig
	Tenant    middleware.TenantConfig
	// Ready reports backend health for the readiness probe. Optional.
	Ready func() error
}

// New builds the API.
func New(svc *authcore.Service, resolver *tenant.Resolver, logger *zap.Logger, cfg Config) *API {
	if logger == nil {
		logger = zap.NewNop()
	}
	if len(cfg.Tenant.PublicPaths) == 0 {
		cfg.Tenant = middleware.DefaultTenantConfig()
	}
	return &API{
		service:  svc,
		resolver: resolver,
		logger:   logger,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		config:   cfg,
		limiter:  middleware.NewRateLimiter(cfg.RateLimit),
		ready:    cfg.Ready,
	}
}

// Close releases the API's background resources.
func (a *API) Close() {
	a.limiter.Close()
}

// Handler assembles the full route table with its guard chains.
func (a *API) Handler() http.Handler {
	cfg := a.config
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", a.handleHealth)
	mux.HandleFunc("GET /readyz", a.handleReady)
	mux.Handle("GET /metrics", metrics.Handler())

	mux.HandleFunc("POST /api/auth/login", a.handleLogin)
	mux.HandleFunc("POST /api/auth/refresh", a.handleRefresh)
	mux.HandleFunc("POST /api/auth/logout", a.handleLogout)
	mux.HandleFunc("POST /api/auth/forgot-password", a.handleForgotPassword)
	mux.HandleFunc("POST /api/auth/reset-password", a.handleResetPassword)
	mux.HandleFunc("POST /api/auth/verify-email", a.handleVerifyEmail)

	authed := middleware.Authenticate(a.service)
	mux.Handle("POST /api/auth/register", middleware.Chain(
		http.HandlerFunc(a.handleRegister), authed))
	mux.Handle("POST /api/auth/change-password", middleware.Chain(
		http.HandlerFunc(a.handleChangePassword), authed))
	mux.Handle("POST /api/auth/check-permission", middleware.Chain(
		http.HandlerFunc(a.handleCheckPermission), authed))
	mux.Handle("GET /api/auth/me", middleware.Chain(
		http.HandlerFunc(a.handleMe), authed))

	return middleware.Chain(mux,
		middleware.RequestID,
		middleware.Logger(a.logger),
		metrics.Instrument,
		a.limiter.Middleware,
		middleware.Tenant(a.resolver, cfg.Tenant),
	)
}
