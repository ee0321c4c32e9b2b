package v1

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/xiaot623/seawatch/internal/domain"
)

// CreateSession creates an empty session for the caller.
// POST /api/session/new
func (h *Handler) CreateSession(c echo.Context) error {
	sess, err := h.service.CreateSession(c.Request().Context(), ownerID(c))
	if err != nil {
		return c.JSON(http.StatusInternalServerError, errorBody(err.Error()))
	}
	return c.JSON(http.StatusOK, map[string]string{
		"id":    sess.ID,
		"title": sess.Title,
	})
}

// ListSessions lists the caller's sessions, newest first.
// GET /api/sessions
func (h *Handler) ListSessions(c echo.Context) error {
	sessions, err := h.service.ListSessions(c.Request().Context(), ownerID(c))
	if err != nil {
		return c.JSON(http.StatusInternalServerError, errorBody(err.Error()))
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"sessions": sessions,
	})
}

// GetSession returns one session's log.
// GET /api/session/:id
func (h *Handler) GetSession(c echo.Context) error {
	sess, err := h.service.GetSession(c.Request().Context(), c.Param("id"))
	if errors.Is(err, domain.ErrSessionNotFound) {
		return c.JSON(http.StatusNotFound, errorBody(err.Error()))
	}
	if err != nil {
		return c.JSON(http.StatusInternalServerError, errorBody(err.Error()))
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"id":        sess.ID,
		"title":     sess.Title,
		"createdAt": sess.CreatedAt,
		"messages":  sess.Messages,
	})
}

// WatchAlerts upgrades to a websocket carrying the session's alert notices.
// GET /api/session/:id/alerts
func (h *Handler) WatchAlerts(c echo.Context) error {
	if h.alerts == nil {
		return c.JSON(http.StatusNotImplemented, errorBody("alert feed disabled"))
	}
	sessionID := c.Param("id")
	if _, err := h.service.GetSession(c.Request().Context(), sessionID); err != nil {
		if errors.Is(err, domain.ErrSessionNotFound) {
			return c.JSON(http.StatusNotFound, errorBody(err.Error()))
		}
		return c.JSON(http.StatusInternalServerError, errorBody(err.Error()))
	}
	return h.alerts.Serve(c, sessionID)
}
