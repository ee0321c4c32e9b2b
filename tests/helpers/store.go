package helpers

import (
	"context"
	"testing"

	"github.com/xiaot623/seawatch/internal/domain"
	"github.com/xiaot623/seawatch/internal/repository"
)

// NewTestSQLiteStore returns an in-memory sqlite store closed at test end.
func NewTestSQLiteStore(t *testing.T) *repository.SQLiteStore {
	t.Helper()

	s, err := repository.NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("failed to create sqlite store: %v", err)
	}

	t.Cleanup(func() {
		_ = s.Close()
	})

	return s
}

// SeedSession creates a session for owner holding msgs.
func SeedSession(t *testing.T, s repository.Store, owner string, msgs ...domain.Message) *domain.Session {
	t.Helper()

	ctx := context.Background()
	sess, err := s.CreateSession(ctx, owner)
	if err != nil {
		t.Fatalf("failed to create session: %v", err)
	}
	if len(msgs) > 0 {
		if err := s.AppendMessages(ctx, sess.ID, msgs...); err != nil {
			t.Fatalf("failed to seed messages: %v", err)
		}
	}
	return sess
}
