package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4"                             // import the Echo web framework to handle routing
	echomw "github.com/labstack/echo/v4/middleware"           // stock echo middleware (CORS, body limit, static)
	"github.com/prometheus/client_golang/prometheus"          // metrics registry served on /metrics
	"github.com/prometheus/client_golang/prometheus/promhttp" // exposition handler
	"github.com/rs/zerolog"                                   // structured logging

	"github.com/iliyamo/ride-accounts/internal/handler"    // import the handlers that implement the endpoints
	"github.com/iliyamo/ride-accounts/internal/logging"    // access log middleware
	"github.com/iliyamo/ride-accounts/internal/middleware" // import middleware for authentication and role enforcement
	"github.com/iliyamo/ride-accounts/internal/model"      // role descriptors
)

// Options controls the process wide middleware installed by New.
type Options struct {
	CORSOrigin string // allowed origin; "*" allows any
	BodyLimit  string // e.g. "16K"
	StaticDir  string // served at /, empty disables
}

// New returns an Echo instance with the shared validator, the enveloped
// error handler and the process wide middleware.
func New(opts Options, logger *zerolog.Logger) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.RequestValidator{}
	e.HTTPErrorHandler = handler.ErrorHandler(logger)

	e.Use(echomw.Recover())
	e.Use(echomw.RequestID())
	e.Use(logging.RequestLogger(logger))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins:     []string{opts.CORSOrigin},
		AllowCredentials: true,
	}))
	if opts.BodyLimit != "" {
		e.Use(echomw.BodyLimit(opts.BodyLimit))
	}
	if opts.StaticDir != "" {
		e.Static("/", opts.StaticDir)
	}
	return e
}

// RegisterRoutes registers routes that do not require authentication: the
// health check and, when reg is not nil, the Prometheus endpoint.
func RegisterRoutes(e *echo.Echo, health *handler.HealthHandler, reg *prometheus.Registry) {
	e.GET("/healthz", health.Health)
	if reg != nil {
		e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})))
	}
}

// RegisterAccounts mounts the account endpoints of one role under its path
// prefix.  register, login and refresh-token are public; the rest run
// behind authenticate and a role check, so a token of the other role is
// rejected with 403.
func RegisterAccounts(e *echo.Echo, desc model.RoleDescriptor, h *handler.AccountHandler, authenticate echo.MiddlewareFunc, logger *zerolog.Logger) {
	g := e.Group(desc.PathPrefix)
	g.POST("/register", h.Register)
	g.POST("/login", h.Login)
	g.GET("/refresh-token", h.RefreshToken)
	g.POST("/refresh-token", h.RefreshToken)

	auth := g.Group("", authenticate, middleware.RequireRole(logger, desc.Role))
	auth.GET("/logout", h.Logout)
	auth.GET("/profile", h.Profile)
	auth.POST("/change-password", h.ChangePassword)
	auth.PATCH("/update-account", h.UpdateAccount)
}
