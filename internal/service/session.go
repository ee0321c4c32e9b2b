package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/xiaot623/seawatch/internal/domain"
)

// CreateSession creates an empty session for owner.
func (s *Service) CreateSession(ctx context.Context, ownerID string) (*domain.Session, error) {
	sess, err := s.store.CreateSession(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	s.logger.Info("session created", "session_id", sess.ID, "owner_id", ownerID)
	return sess, nil
}

// ListSessions returns the owner's sessions, newest first.
func (s *Service) ListSessions(ctx context.Context, ownerID string) ([]domain.SessionSummary, error) {
	sessions, err := s.store.ListSessions(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	return sessions, nil
}

// GetSession returns a session with its log.
func (s *Service) GetSession(ctx context.Context, sessionID string) (*domain.Session, error) {
	sess, err := s.store.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return sess, nil
}

// Title derives a session title from the first message of a session.
func Title(text string, length int) string {
	text = strings.TrimSpace(text)
	if text == "" {
		return domain.MediaTitle
	}
	runes := []rune(text)
	if len(runes) > length {
		runes = runes[:length]
	}
	return string(runes)
}

// annotate appends the names of the fired tools to an assistant reply.
func annotate(reply string, invocations []domain.ToolInvocation) string {
	if len(invocations) == 0 {
		return reply
	}
	names := make([]string, len(invocations))
	for i, inv := range invocations {
		names[i] = inv.Name
	}
	return reply + "\n\n[tools: " + strings.Join(names, ", ") + "]"
}
