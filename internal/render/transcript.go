package render

import (
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/xiaot623/seawatch/internal/domain"
)

var (
	userLabel      = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("42")).Render("you")
	assistantLabel = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39")).Render("seawatch")
)

// Entry is one line of the conversation as shown to the user.
type Entry struct {
	Role domain.Role
	Text string
	Card *Card
}

// Transcript keeps cards permanently alongside the messages of a session.
type Transcript struct {
	Entries []Entry
	md      *Markdown
	styled  bool
}

// NewTranscript creates a transcript. When styled is false output is plain text.
func NewTranscript(md *Markdown, styled bool) *Transcript {
	return &Transcript{md: md, styled: styled}
}

// AddMessage appends a message entry.
func (t *Transcript) AddMessage(role domain.Role, text string) {
	t.Entries = append(t.Entries, Entry{Role: role, Text: text})
}

// AddTools appends one assistant card entry per invocation.
func (t *Transcript) AddTools(invocations []domain.ToolInvocation) {
	for _, inv := range invocations {
		card := CardFor(inv)
		t.Entries = append(t.Entries, Entry{Role: domain.RoleAssistant, Card: &card})
	}
}

// Load replaces the transcript with a stored session log.
func (t *Transcript) Load(messages []domain.Message) {
	t.Entries = t.Entries[:0]
	for _, m := range messages {
		text := m.Text
		if m.HasMedia {
			text = strings.TrimSpace("[image] " + text)
		}
		t.AddMessage(m.Role, text)
	}
}

// RenderEntry formats a single entry.
func (t *Transcript) RenderEntry(e Entry) string {
	if e.Card != nil {
		if t.styled {
			return e.Card.Render()
		}
		return e.Card.Plain()
	}

	label := string(e.Role)
	if t.styled {
		switch e.Role {
		case domain.RoleUser:
			label = userLabel
		case domain.RoleAssistant:
			label = assistantLabel
		}
	}
	text := e.Text
	if e.Role == domain.RoleAssistant && t.styled && t.md != nil {
		text = strings.TrimRight(t.md.Render(text), "\n")
	}
	return label + ": " + text
}

// WriteTo writes every entry to w.
func (t *Transcript) WriteTo(w io.Writer) (int64, error) {
	var total int64
	for _, e := range t.Entries {
		n, err := io.WriteString(w, t.RenderEntry(e)+"\n")
		total += int64(n)
		if err != nil {
			return total, err
		}
	}
	return total, nil
}
