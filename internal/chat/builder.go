// Package chat assembles the bounded model context for one turn.
package chat

import (
	"strings"

	"github.com/xiaot623/seawatch/internal/adapter/llm"
	"github.com/xiaot623/seawatch/internal/domain"
)

// DefaultWindow is the number of prior log entries replayed to the model.
const DefaultWindow = 6

// DefaultSystemPrompt is the persona used when none is configured.
const DefaultSystemPrompt = `You are a professional maritime safety early-warning analyst. You specialise in identifying vessels and other targets at sea and in assessing safety risks such as collisions, man-overboard events, severe sea states and unauthorised approaches. Keep every answer focused on maritime safety. Describe what you observe, state the risk level, and recommend actions. When a situation endangers vessels or people, call broadcast_warning; when a specific target should be followed, call lock_target.`

// Builder produces the message list sent upstream.
type Builder struct {
	SystemPrompt string
	Window       int
}

// NewBuilder returns a builder, applying defaults for zero values.
func NewBuilder(systemPrompt string, window int) *Builder {
	if systemPrompt == "" {
		systemPrompt = DefaultSystemPrompt
	}
	if window <= 0 {
		window = DefaultWindow
	}
	return &Builder{SystemPrompt: systemPrompt, Window: window}
}

// Build returns the system message, the tail of history and the new user turn.
// It fails with domain.ErrEmptyInput when text and media are both empty.
func (b *Builder) Build(history []domain.Message, text string, media []domain.MediaAttachment) ([]llm.ChatMessage, error) {
	if strings.TrimSpace(text) == "" && len(media) == 0 {
		return nil, domain.ErrEmptyInput
	}

	tail := history
	if len(tail) > b.Window {
		tail = tail[len(tail)-b.Window:]
	}

	messages := make([]llm.ChatMessage, 0, len(tail)+2)
	messages = append(messages, llm.ChatMessage{
		Role:    string(domain.RoleSystem),
		Content: llm.TextContent(b.SystemPrompt),
	})
	for _, m := range tail {
		messages = append(messages, llm.ChatMessage{
			Role:    string(m.Role),
			Content: llm.TextContent(m.Text),
		})
	}

	parts := make([]llm.ContentPart, 0, len(media)+1)
	for _, m := range media {
		parts = append(parts, llm.ImagePart(m.DataURL()))
	}
	parts = append(parts, llm.TextPart(text))

	messages = append(messages, llm.ChatMessage{
		Role:    string(domain.RoleUser),
		Content: llm.PartsContent(parts...),
	})
	return messages, nil
}
