// Package http provides the HTTP server of the relay.
package http

import (
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/xiaot623/seawatch/internal/config"
	"github.com/xiaot623/seawatch/internal/hub"
	"github.com/xiaot623/seawatch/internal/service"
	v1 "github.com/xiaot623/seawatch/internal/transport/http/v1"
)

// NewServer creates and configures the client-facing HTTP server.
// alerts may be nil, which disables the live alert feed.
func NewServer(svc *service.Service, cfg *config.Config, alerts *hub.Server) *echo.Echo {
	e := echo.New()
	e.HideBanner = true

	// Middleware
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
	}))
	if cfg.BodyLimit != "" {
		e.Use(middleware.BodyLimit(cfg.BodyLimit))
	}

	limiter := v1.NewOwnerLimiter(cfg.TurnRatePerMin, cfg.TurnBurst)
	v1.NewHandler(svc, alerts, limiter).RegisterRoutes(e)

	return e
}
