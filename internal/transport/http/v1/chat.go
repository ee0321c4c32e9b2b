package v1

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/xiaot623/seawatch/internal/domain"
	"github.com/xiaot623/seawatch/internal/service"
)

// chatRequest is the body of both chat endpoints.
type chatRequest struct {
	SessionID string   `json:"sessionId"`
	Message   string   `json:"message"`
	Images    []string `json:"images"`
	APIKey    string   `json:"apiKey"`
	UseTools  bool     `json:"useTools"`
}

func (r chatRequest) turn() service.TurnRequest {
	return service.TurnRequest{
		SessionID: r.SessionID,
		Message:   r.Message,
		Images:    r.Images,
		APIKey:    r.APIKey,
		UseTools:  r.UseTools,
	}
}

// sseSink writes each event as one SSE data frame and flushes it.
type sseSink struct {
	w       http.ResponseWriter
	flusher http.Flusher
}

func (s *sseSink) Send(ev domain.TurnEvent) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(s.w, "data: %s\n\n", data); err != nil {
		return err
	}
	s.flusher.Flush()
	return nil
}

// ChatStream relays one turn as a server-sent event stream.
// POST /api/chat-stream
func (h *Handler) ChatStream(c echo.Context) error {
	var req chatRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorBody("invalid request body"))
	}

	flusher, ok := c.Response().Writer.(http.Flusher)
	if !ok {
		return c.JSON(http.StatusInternalServerError, errorBody("streaming not supported"))
	}

	c.Response().Header().Set("Content-Type", "text/event-stream")
	c.Response().Header().Set("Cache-Control", "no-cache")
	c.Response().Header().Set("Connection", "keep-alive")
	c.Response().Header().Set("X-Accel-Buffering", "no")
	c.Response().WriteHeader(http.StatusOK)

	sink := &sseSink{w: c.Response().Writer, flusher: flusher}
	if err := h.service.StreamTurn(c.Request().Context(), req.turn(), sink); err != nil {
		// Already reported to the client as an error event.
		slog.Debug("stream turn ended with error", "session_id", req.SessionID, "error", err)
	}
	return nil
}

// Chat relays one turn and answers with the whole reply.
// POST /api/chat
func (h *Handler) Chat(c echo.Context) error {
	var req chatRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorBody("invalid request body"))
	}

	reply, err := h.service.Turn(c.Request().Context(), req.turn())
	if err != nil {
		if domain.IsPrecondition(err) {
			return c.JSON(http.StatusBadRequest, errorBody(err.Error()))
		}
		slog.Error("chat turn failed", "session_id", req.SessionID, "error", err)
		return c.JSON(http.StatusBadGateway, errorBody(err.Error()))
	}
	return c.JSON(http.StatusOK, reply)
}
