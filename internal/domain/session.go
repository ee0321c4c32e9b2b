// Package domain defines the core domain models for the relay.
package domain

import "time"

// DefaultTitle is the title of a session that has not received a turn yet.
const DefaultTitle = "New session"

// MediaTitle is used when the first turn of a session carries only media.
const MediaTitle = "Image analysis"

// Session represents a conversation session.
type Session struct {
	ID        string    `json:"id"`
	OwnerID   string    `json:"ownerId"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"createdAt"`
	Messages  []Message `json:"messages"`
}

// SessionSummary is the listing view of a session.
type SessionSummary struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	CreatedAt    time.Time `json:"createdAt"`
	MessageCount int       `json:"messageCount"`
}

// Message represents a single entry in a session log.
type Message struct {
	ID        string    `json:"id"`
	Role      Role      `json:"role"`
	Text      string    `json:"text"`
	HasMedia  bool      `json:"hasImage"`
	CreatedAt time.Time `json:"createdAt"`
}

// Summary returns the listing view of the session.
func (s *Session) Summary() SessionSummary {
	return SessionSummary{
		ID:           s.ID,
		Title:        s.Title,
		CreatedAt:    s.CreatedAt,
		MessageCount: len(s.Messages),
	}
}
