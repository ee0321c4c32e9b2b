package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/gorilla/websocket"

	"github.com/xiaot623/seawatch/internal/domain"
)

// maxFrameLine bounds one SSE line; frames carry only text deltas and tools.
const maxFrameLine = 1 << 20

// ChatRequest is the body sent to the chat endpoints.
type ChatRequest struct {
	SessionID string   `json:"sessionId"`
	Message   string   `json:"message"`
	Images    []string `json:"images,omitempty"`
	APIKey    string   `json:"apiKey,omitempty"`
	UseTools  bool     `json:"useTools"`
}

// Client talks to a relay server.
type Client struct {
	base  string
	owner string
	http  *http.Client
}

// NewClient creates a client for the server at base, acting as owner.
func NewClient(base, owner string) *Client {
	return &Client{
		base:  strings.TrimRight(base, "/"),
		owner: owner,
		http:  &http.Client{},
	}
}

func (c *Client) newRequest(ctx context.Context, method, path string, body interface{}) (*http.Request, error) {
	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		r = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, r)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.owner != "" {
		req.Header.Set("X-User-ID", c.owner)
	}
	return req, nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, body, out interface{}) error {
	req, err := c.newRequest(ctx, method, path, body)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return statusError(resp)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func statusError(resp *http.Response) error {
	var body struct {
		Error string `json:"error"`
	}
	data, _ := io.ReadAll(resp.Body)
	if json.Unmarshal(data, &body) == nil && body.Error != "" {
		return fmt.Errorf("server returned %d: %s", resp.StatusCode, body.Error)
	}
	return fmt.Errorf("server returned %d", resp.StatusCode)
}

// NewSession creates a session and returns its id.
func (c *Client) NewSession(ctx context.Context) (string, error) {
	var out struct {
		ID string `json:"id"`
	}
	if err := c.doJSON(ctx, http.MethodPost, "/api/session/new", nil, &out); err != nil {
		return "", err
	}
	return out.ID, nil
}

// History returns the log of a session.
func (c *Client) History(ctx context.Context, sessionID string) ([]domain.Message, error) {
	var out struct {
		Messages []domain.Message `json:"messages"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/api/session/"+url.PathEscape(sessionID), nil, &out); err != nil {
		return nil, err
	}
	return out.Messages, nil
}

// Stream sends one turn and calls onEvent for every frame until a terminal
// frame arrives. A terminal error frame is returned as an error.
func (c *Client) Stream(ctx context.Context, in ChatRequest, onEvent func(domain.TurnEvent)) error {
	req, err := c.newRequest(ctx, http.MethodPost, "/api/chat-stream", in)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "text/event-stream")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request chat stream: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return statusError(resp)
	}
	return readEvents(resp.Body, onEvent)
}

// readEvents decodes `data:` frames from r.
func readEvents(r io.Reader, onEvent func(domain.TurnEvent)) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxFrameLine)

	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data:") {
			continue
		}
		payload := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if payload == "" {
			continue
		}

		var ev domain.TurnEvent
		if err := json.Unmarshal([]byte(payload), &ev); err != nil {
			return fmt.Errorf("decode frame: %w", err)
		}
		onEvent(ev)

		if ev.Error != "" {
			return errors.New(ev.Error)
		}
		if ev.Done {
			return nil
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read stream: %w", err)
	}
	return io.ErrUnexpectedEOF
}

// Watch follows the alert feed of a session until ctx ends or the server
// closes the connection.
func (c *Client) Watch(ctx context.Context, sessionID string, onNotice func(domain.AlertNotice)) error {
	wsURL, err := url.Parse(c.base)
	if err != nil {
		return err
	}
	switch wsURL.Scheme {
	case "https":
		wsURL.Scheme = "wss"
	default:
		wsURL.Scheme = "ws"
	}
	wsURL.Path = strings.TrimRight(wsURL.Path, "/") + "/api/session/" + url.PathEscape(sessionID) + "/alerts"

	header := http.Header{}
	if c.owner != "" {
		header.Set("X-User-ID", c.owner)
	}
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL.String(), header)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer conn.Close()

	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil || websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			return fmt.Errorf("read alert: %w", err)
		}

		var notice domain.AlertNotice
		if err := json.Unmarshal(data, &notice); err != nil {
			continue
		}
		onNotice(notice)
	}
}
