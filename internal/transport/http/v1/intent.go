package v1

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/xiaot623/seawatch/internal/domain"
)

// DetectIntent reports whether a message asks for visual analysis.
// POST /api/intent
func (h *Handler) DetectIntent(c echo.Context) error {
	var req struct {
		Message string `json:"message"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorBody("invalid request body"))
	}
	return c.JSON(http.StatusOK, map[string]bool{
		"isVision": h.service.DetectIntent(req.Message),
	})
}

// ListModels lists the upstream models.
// GET /api/models
func (h *Handler) ListModels(c echo.Context) error {
	models, err := h.service.ListModels(c.Request().Context())
	if err != nil {
		if domain.IsPrecondition(err) {
			return c.JSON(http.StatusBadRequest, errorBody(err.Error()))
		}
		return c.JSON(http.StatusBadGateway, errorBody(err.Error()))
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"object": "list",
		"data":   models,
	})
}
