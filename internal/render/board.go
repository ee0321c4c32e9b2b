package render

import (
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/xiaot623/seawatch/internal/domain"
)

// DefaultCardTTL is how long a live card stays on the board.
const DefaultCardTTL = 8 * time.Second

// LiveBoard holds cards for a limited time. Expired cards are pruned on read.
type LiveBoard struct {
	TTL time.Duration

	mu    sync.Mutex
	cards []Card
	now   func() time.Time
}

// NewLiveBoard returns a board keeping cards for ttl, or DefaultCardTTL.
func NewLiveBoard(ttl time.Duration) *LiveBoard {
	if ttl <= 0 {
		ttl = DefaultCardTTL
	}
	return &LiveBoard{TTL: ttl, now: time.Now}
}

// Add places a card for each invocation on the board.
func (b *LiveBoard) Add(invocations ...domain.ToolInvocation) {
	b.mu.Lock()
	defer b.mu.Unlock()
	now := b.now()
	for _, inv := range invocations {
		card := CardFor(inv)
		card.At = now
		b.cards = append(b.cards, card)
	}
}

// Active returns the unexpired cards, oldest first.
func (b *LiveBoard) Active() []Card {
	b.mu.Lock()
	defer b.mu.Unlock()
	now := b.now()
	kept := b.cards[:0]
	for _, c := range b.cards {
		if now.Sub(c.At) < b.TTL {
			kept = append(kept, c)
		}
	}
	b.cards = kept
	return append([]Card(nil), kept...)
}

// Render draws the active cards side by side.
func (b *LiveBoard) Render() string {
	cards := b.Active()
	if len(cards) == 0 {
		return ""
	}
	boxes := make([]string, len(cards))
	for i, c := range cards {
		boxes[i] = c.Render()
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, boxes...)
}

// Plain returns one line per active card.
func (b *LiveBoard) Plain() string {
	cards := b.Active()
	lines := make([]string, len(cards))
	for i, c := range cards {
		lines[i] = c.Plain()
	}
	return strings.Join(lines, "\n")
}
