package router

import (
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/equinox/fleet-inspections/internal/config"
	"github.com/equinox/fleet-inspections/internal/handler"
	"github.com/equinox/fleet-inspections/internal/logger"
	"github.com/equinox/fleet-inspections/internal/middleware"
	"github.com/equinox/fleet-inspections/internal/model"
	"github.com/equinox/fleet-inspections/internal/ratelimit"
)

// Deps carries everything the routes need.
type Deps struct {
	Cfg         *config.Config
	Log         *logger.Logger
	Auth        *handler.AuthHandler
	Inspections *handler.InspectionHandler
	Dev         *handler.DevHandler
	Verifier    middleware.TokenVerifier
	Limiter     ratelimit.Limiter
	Cache       middleware.CacheStore // nil disables response caching
	DB          handler.Pinger
}

// LoginRule builds the limiter rule for the login endpoint.
func LoginRule(cfg config.RateLimitConfig) ratelimit.Rule {
	return ratelimit.Rule{Name: "login", MaxRequests: cfg.LoginMax, Window: cfg.LoginWindow}
}

// SubmitRule builds the limiter rule for public inspection submissions.
func SubmitRule(cfg config.RateLimitConfig) ratelimit.Rule {
	return ratelimit.Rule{Name: "inspections", MaxRequests: cfg.SubmitMax, Window: cfg.SubmitWindow}
}

// New returns an Echo instance with the global middleware and every route
// registered.
func New(d Deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = handler.ErrorHandler(d.Log)
	e.Use(echomw.Recover())
	e.Use(middleware.RequestLogger(d.Log))
	RegisterRoutes(e, d)
	return e
}

// RegisterRoutes registers the health probes, the auth API, the inspection
// API and the gated development endpoints.
func RegisterRoutes(e *echo.Echo, d Deps) {
	e.GET("/healthz", handler.Health)
	if d.DB != nil {
		e.GET("/readyz", handler.Ready(d.DB))
	}

	limit := func(rule ratelimit.Rule) echo.MiddlewareFunc {
		if !d.Cfg.RateLimit.Enabled || d.Limiter == nil {
			return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
		}
		return middleware.RateLimit(d.Limiter, rule, d.Cfg.RateLimit.Debug, d.Log)
	}

	auth := e.Group("/api/auth")
	auth.POST("/login", d.Auth.Login, limit(LoginRule(d.Cfg.RateLimit)))
	auth.POST("/logout", d.Auth.Logout)
	auth.GET("/me", d.Auth.Me)
	auth.POST("/refresh", d.Auth.Refresh)

	insp := e.Group("/api/inspecciones")
	insp.POST("", d.Inspections.Submit, limit(SubmitRule(d.Cfg.RateLimit)), middleware.OptionalSession(d.Verifier))

	private := insp.Group("", middleware.CookieAuth(d.Verifier))
	private.GET("", d.Inspections.List)
	private.GET("/stats", d.Inspections.Stats, middleware.ResponseCache(d.Cfg.Cache, d.Cache, d.Log))
	private.GET("/:id", d.Inspections.Get)
	private.DELETE("/:id", d.Inspections.Delete, middleware.RequireRole(model.RoleAdmin))

	if d.Dev != nil {
		dev := middleware.DevOnly(d.Cfg.DevEndpointsAllowed())
		auth.POST("/seed", d.Dev.Seed, dev)
		auth.GET("/seed", d.Dev.ListUsers, dev)
		e.POST("/api/setup", d.Dev.Setup, dev)
		e.GET("/api/setup", d.Dev.Tables, dev)
	}
}
