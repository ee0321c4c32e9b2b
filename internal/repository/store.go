// Package repository persists sessions and their message logs.
package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/xiaot623/seawatch/internal/domain"
)

// Store defines the interface for conversation state.
// Implementations must be safe for concurrent use.
type Store interface {
	// CreateSession creates an empty session with the default title.
	CreateSession(ctx context.Context, ownerID string) (*domain.Session, error)
	// AppendMessages appends messages to a session log in the given order.
	AppendMessages(ctx context.Context, sessionID string, msgs ...domain.Message) error
	// SetTitle replaces the session title.
	SetTitle(ctx context.Context, sessionID, title string) error
	// ListSessions returns the owner's sessions, most recently created first.
	ListSessions(ctx context.Context, ownerID string) ([]domain.SessionSummary, error)
	// GetSession returns a session with its full log.
	GetSession(ctx context.Context, sessionID string) (*domain.Session, error)
	Close() error
}

func newSession(ownerID string) *domain.Session {
	return &domain.Session{
		ID:        uuid.New().String(),
		OwnerID:   ownerID,
		Title:     domain.DefaultTitle,
		CreatedAt: time.Now().UTC(),
		Messages:  []domain.Message{},
	}
}

// stamp fills in the id and timestamp of messages that lack them.
func stamp(msgs []domain.Message) []domain.Message {
	now := time.Now().UTC()
	out := make([]domain.Message, len(msgs))
	for i, m := range msgs {
		if m.ID == "" {
			m.ID = "msg_" + uuid.New().String()[:8]
		}
		if m.CreatedAt.IsZero() {
			m.CreatedAt = now
		}
		out[i] = m
	}
	return out
}
