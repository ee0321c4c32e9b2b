package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/xiaot623/seawatch/internal/domain"
	"github.com/xiaot623/seawatch/internal/media"
	"github.com/xiaot623/seawatch/internal/relay"
)

// TurnRequest is one user turn.
type TurnRequest struct {
	SessionID string
	Message   string
	// Images are base64 data URLs.
	Images   []string
	APIKey   string
	UseTools bool
}

// TurnReply is the aggregated outcome of a single-shot turn.
type TurnReply struct {
	Reply string                  `json:"reply"`
	Tools []domain.ToolInvocation `json:"tools"`
}

// preparedTurn is a turn that passed every precondition.
type preparedTurn struct {
	id       string
	session  *domain.Session
	text     string
	media    []domain.MediaAttachment
	apiKey   string
	useTools bool
}

// StreamTurn relays one turn to sink using the configured call mode.
// Precondition failures are sent to sink as an error event before any
// upstream call and returned.
func (s *Service) StreamTurn(ctx context.Context, req TurnRequest, sink relay.Sink) error {
	_, err := s.runTurn(ctx, req, relay.ParseMode(s.config.CallMode), sink)
	return err
}

// Turn relays one turn as a single non-streamed call and returns the whole reply.
func (s *Service) Turn(ctx context.Context, req TurnRequest) (*TurnReply, error) {
	sink := relay.SinkFunc(func(domain.TurnEvent) error { return nil })
	res, err := s.runTurn(ctx, req, relay.ModeSingle, sink)
	if err != nil {
		return nil, err
	}
	out := &TurnReply{Reply: res.Reply, Tools: res.Tools}
	if out.Tools == nil {
		out.Tools = []domain.ToolInvocation{}
	}
	return out, nil
}

func (s *Service) runTurn(ctx context.Context, req TurnRequest, mode relay.Mode, sink relay.Sink) (*relay.Result, error) {
	turn, err := s.prepare(ctx, req)
	if err != nil {
		s.logger.Info("turn rejected", "session_id", req.SessionID, "error", err)
		_ = sink.Send(domain.ErrorEvent(err))
		return nil, err
	}

	logger := s.logger.With("turn_id", turn.id, "session_id", turn.session.ID)

	messages, err := s.builder.Build(turn.session.Messages, turn.text, turn.media)
	if err != nil {
		_ = sink.Send(domain.ErrorEvent(err))
		return nil, err
	}

	rt := relay.Turn{
		ID:       turn.id,
		Model:    s.config.LLMModel,
		Messages: messages,
		Commit: func(ctx context.Context, res relay.Result) error {
			return s.commit(ctx, turn, res)
		},
	}
	if turn.useTools {
		rt.Tools = s.registry.Tools()
	}

	r := relay.New(s.clients(turn.apiKey), mode, logger)
	res, err := r.Run(ctx, rt, sink)
	if err != nil {
		return nil, err
	}

	attrs := []any{"mode", string(mode), "tools", len(res.Tools), "latency_ms", res.Latency.Milliseconds()}
	if res.Usage != nil {
		attrs = append(attrs, "prompt_tokens", res.Usage.PromptTokens, "completion_tokens", res.Usage.CompletionTokens)
	}
	logger.Info("turn completed", attrs...)

	s.publishAlerts(ctx, turn, res.Tools)
	return res, nil
}

// prepare checks every precondition without touching the upstream.
func (s *Service) prepare(ctx context.Context, req TurnRequest) (*preparedTurn, error) {
	if strings.TrimSpace(req.Message) == "" && len(req.Images) == 0 {
		return nil, domain.ErrEmptyInput
	}

	attachments, err := media.ParseDataURLs(req.Images)
	if err != nil {
		return nil, err
	}

	sess, err := s.store.GetSession(ctx, req.SessionID)
	if err != nil {
		return nil, err
	}

	key, err := s.resolveAPIKey(ctx, req.APIKey)
	if err != nil {
		return nil, err
	}

	return &preparedTurn{
		id:       "turn_" + uuid.New().String()[:8],
		session:  sess,
		text:     req.Message,
		media:    attachments,
		apiKey:   key,
		useTools: req.UseTools,
	}, nil
}

// commit appends the user and assistant entries and titles a fresh session.
// The entries are the turn's only durable record; a failed title is logged
// and leaves the session with its default title.
func (s *Service) commit(ctx context.Context, turn *preparedTurn, res relay.Result) error {
	now := time.Now().UTC()
	err := s.store.AppendMessages(ctx, turn.session.ID,
		domain.Message{Role: domain.RoleUser, Text: turn.text, HasMedia: len(turn.media) > 0, CreatedAt: now},
		domain.Message{Role: domain.RoleAssistant, Text: annotate(res.Reply, res.Tools), CreatedAt: now},
	)
	if err != nil {
		return fmt.Errorf("failed to append messages: %w", err)
	}

	if len(turn.session.Messages) == 0 {
		if err := s.store.SetTitle(ctx, turn.session.ID, Title(turn.text, s.config.TitleLength)); err != nil {
			s.logger.Warn("failed to set session title", "session_id", turn.session.ID, "error", err)
		}
	}
	return nil
}

func (s *Service) publishAlerts(ctx context.Context, turn *preparedTurn, invocations []domain.ToolInvocation) {
	if s.alerts == nil {
		return
	}
	for _, inv := range invocations {
		severity := domain.SeverityInfo
		if s.grader != nil {
			sev, err := s.grader.Severity(ctx, turn.session.ID, inv)
			if err != nil {
				s.logger.Warn("failed to grade alert", "tool", inv.Name, "error", err)
			} else {
				severity = sev
			}
		}
		s.alerts.Publish(domain.AlertNotice{
			SessionID: turn.session.ID,
			TurnID:    turn.id,
			Name:      inv.Name,
			Args:      inv.Args,
			Severity:  severity,
			Ts:        time.Now().UnixMilli(),
		})
	}
}
