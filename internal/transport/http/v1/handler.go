// Package v1 provides the HTTP handlers of the chat relay.
package v1

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/xiaot623/seawatch/internal/hub"
	"github.com/xiaot623/seawatch/internal/service"
)

// OwnerHeader carries the caller's identity.
const OwnerHeader = "X-User-ID"

// DefaultOwner is used when OwnerHeader is absent.
const DefaultOwner = "default_user"

// Handler handles HTTP requests.
type Handler struct {
	service *service.Service
	alerts  *hub.Server
	limiter *OwnerLimiter
}

// NewHandler creates a new handler. alerts and limiter may be nil.
func NewHandler(service *service.Service, alerts *hub.Server, limiter *OwnerLimiter) *Handler {
	return &Handler{
		service: service,
		alerts:  alerts,
		limiter: limiter,
	}
}

// RegisterRoutes registers routes with the echo server.
func (h *Handler) RegisterRoutes(e *echo.Echo) {
	limit := h.limiter.Middleware()

	e.POST("/api/chat-stream", h.ChatStream, limit)
	e.POST("/api/chat", h.Chat, limit)

	e.POST("/api/session/new", h.CreateSession)
	e.GET("/api/sessions", h.ListSessions)
	e.GET("/api/session/:id", h.GetSession)
	e.GET("/api/session/:id/alerts", h.WatchAlerts)

	e.POST("/api/intent", h.DetectIntent)
	e.GET("/api/models", h.ListModels)

	e.GET("/health", h.Health)
}

// Health returns health status.
func (h *Handler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status":  "healthy",
		"version": "0.1.0",
	})
}

func ownerID(c echo.Context) string {
	if owner := c.Request().Header.Get(OwnerHeader); owner != "" {
		return owner
	}
	return DefaultOwner
}

func errorBody(msg string) map[string]string {
	return map[string]string{"error": msg}
}
