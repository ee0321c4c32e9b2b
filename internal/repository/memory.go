package repository

import (
	"context"
	"sync"

	"github.com/xiaot623/seawatch/internal/domain"
)

// MemoryStore keeps sessions in process memory.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*domain.Session
	order    []string
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string]*domain.Session)}
}

func (s *MemoryStore) CreateSession(ctx context.Context, ownerID string) (*domain.Session, error) {
	sess := newSession(ownerID)

	s.mu.Lock()
	s.sessions[sess.ID] = sess
	s.order = append(s.order, sess.ID)
	s.mu.Unlock()

	return copySession(sess), nil
}

func (s *MemoryStore) AppendMessages(ctx context.Context, sessionID string, msgs ...domain.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[sessionID]
	if !ok {
		return domain.ErrSessionNotFound
	}
	sess.Messages = append(sess.Messages, stamp(msgs)...)
	return nil
}

func (s *MemoryStore) SetTitle(ctx context.Context, sessionID, title string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[sessionID]
	if !ok {
		return domain.ErrSessionNotFound
	}
	sess.Title = title
	return nil
}

func (s *MemoryStore) ListSessions(ctx context.Context, ownerID string) ([]domain.SessionSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	summaries := []domain.SessionSummary{}
	for i := len(s.order) - 1; i >= 0; i-- {
		sess := s.sessions[s.order[i]]
		if sess.OwnerID == ownerID {
			summaries = append(summaries, sess.Summary())
		}
	}
	return summaries, nil
}

func (s *MemoryStore) GetSession(ctx context.Context, sessionID string) (*domain.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.sessions[sessionID]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return copySession(sess), nil
}

func (s *MemoryStore) Close() error {
	return nil
}

func copySession(sess *domain.Session) *domain.Session {
	cp := *sess
	cp.Messages = append([]domain.Message(nil), sess.Messages...)
	if cp.Messages == nil {
		cp.Messages = []domain.Message{}
	}
	return &cp
}

var _ Store = (*MemoryStore)(nil)
