// Package relay runs one upstream model call for a turn and turns its output
// into the client event stream.
package relay

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/xiaot623/seawatch/internal/adapter/llm"
	"github.com/xiaot623/seawatch/internal/domain"
)

// Mode selects how the upstream is called.
type Mode string

const (
	// ModeStream requests a streamed completion and forwards deltas as they arrive.
	ModeStream Mode = "stream"
	// ModeSingle requests one complete response and forwards it as a single delta.
	ModeSingle Mode = "single"
)

// ParseMode maps a configuration value onto a Mode, defaulting to ModeStream.
func ParseMode(s string) Mode {
	if Mode(strings.ToLower(s)) == ModeSingle {
		return ModeSingle
	}
	return ModeStream
}

// Sink receives turn events in order.
type Sink interface {
	Send(ev domain.TurnEvent) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ev domain.TurnEvent) error

// Send implements Sink.
func (f SinkFunc) Send(ev domain.TurnEvent) error { return f(ev) }

// Result is the outcome of a completed upstream call.
type Result struct {
	Reply   string
	Tools   []domain.ToolInvocation
	Usage   *llm.Usage
	Model   string
	Latency time.Duration
}

// Turn is one request to relay.
type Turn struct {
	ID       string
	Model    string
	Messages []llm.ChatMessage
	Tools    []llm.Tool
	// Commit persists the finished turn. A failure ends the turn with an error event.
	Commit func(ctx context.Context, res Result) error
}

// Relay forwards one upstream call to a Sink.
type Relay struct {
	Client llm.LLMClient
	Mode   Mode
	Logger *slog.Logger
}

// New creates a relay for client.
func New(client llm.LLMClient, mode Mode, logger *slog.Logger) *Relay {
	if logger == nil {
		logger = slog.Default()
	}
	return &Relay{Client: client, Mode: mode, Logger: logger}
}

// sinkError marks a failure to deliver an event to the client.
type sinkError struct{ err error }

func (e *sinkError) Error() string { return "send event: " + e.err.Error() }
func (e *sinkError) Unwrap() error { return e.err }

// Run performs the upstream call and emits events to sink. On success the
// stream is content deltas, at most one tools event, then done. Any upstream
// or commit failure is reported as a single error event and returned.
func (r *Relay) Run(ctx context.Context, turn Turn, sink Sink) (*Result, error) {
	logger := r.logger().With("turn_id", turn.ID)
	start := time.Now()

	res, acc, err := r.call(ctx, turn, sink)
	if err != nil {
		var se *sinkError
		if errors.As(err, &se) {
			logger.Warn("client went away mid-turn", "error", se.err)
			return nil, err
		}
		logger.Warn("upstream call failed", "error", err)
		if sendErr := sink.Send(domain.ErrorEvent(err)); sendErr != nil {
			logger.Debug("failed to deliver error event", "error", sendErr)
		}
		return nil, err
	}
	res.Latency = time.Since(start)
	res.Tools = acc.Finalize()

	if len(res.Tools) > 0 {
		if err := sink.Send(domain.ToolsEvent(res.Tools)); err != nil {
			logger.Warn("client went away before tools event", "error", err)
		}
	}

	if turn.Commit != nil {
		// The upstream answer is complete; keep it even if the client has left.
		if err := turn.Commit(context.WithoutCancel(ctx), *res); err != nil {
			logger.Error("failed to commit turn", "error", err)
			err = fmt.Errorf("failed to save conversation: %w", err)
			_ = sink.Send(domain.ErrorEvent(err))
			return nil, err
		}
	}

	if err := sink.Send(domain.DoneEvent()); err != nil {
		logger.Debug("failed to deliver done event", "error", err)
	}
	logger.Debug("turn relayed", "mode", string(r.Mode), "tools", len(res.Tools), "latency_ms", res.Latency.Milliseconds())
	return res, nil
}

func (r *Relay) call(ctx context.Context, turn Turn, sink Sink) (*Result, *Accumulator, error) {
	acc := NewAccumulator(r.logger())
	req := &llm.ChatCompletionRequest{
		Model:    turn.Model,
		Messages: turn.Messages,
		Tools:    turn.Tools,
	}

	if r.Mode == ModeSingle {
		resp, err := r.Client.CreateChatCompletion(ctx, req)
		if err != nil {
			return nil, nil, err
		}
		res := &Result{Usage: resp.Usage, Model: resp.Model}
		if len(resp.Choices) > 0 && resp.Choices[0].Message != nil {
			msg := resp.Choices[0].Message
			res.Reply = msg.Content.String()
			if res.Reply != "" {
				if err := sink.Send(domain.ContentEvent(res.Reply)); err != nil {
					return nil, nil, &sinkError{err}
				}
			}
			acc.Add(msg.ToolCalls)
		}
		return res, acc, nil
	}

	req.Stream = true
	req.StreamOptions = &llm.StreamOptions{IncludeUsage: true}

	var reply strings.Builder
	var model string
	usage, err := r.Client.CreateChatCompletionStream(ctx, req, func(chunk *llm.StreamChunk) error {
		if model == "" {
			model = chunk.Model
		}
		for _, choice := range chunk.Choices {
			if choice.Delta == nil {
				continue
			}
			if text := choice.Delta.Content.String(); text != "" {
				reply.WriteString(text)
				if err := sink.Send(domain.ContentEvent(text)); err != nil {
					return &sinkError{err}
				}
			}
			acc.Add(choice.Delta.ToolCalls)
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return &Result{Reply: reply.String(), Usage: usage, Model: model}, acc, nil
}

func (r *Relay) logger() *slog.Logger {
	if r.Logger == nil {
		return slog.Default()
	}
	return r.Logger
}
