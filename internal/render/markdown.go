package render

import "github.com/charmbracelet/glamour"

// Markdown renders replies for the terminal, falling back to the raw text
// whenever the renderer is unavailable or fails.
type Markdown struct {
	renderer *glamour.TermRenderer
}

// NewMarkdown creates a renderer wrapping at width columns.
func NewMarkdown(width int) *Markdown {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return &Markdown{}
	}
	return &Markdown{renderer: r}
}

// Render returns content rendered as markdown, or content unchanged.
func (m *Markdown) Render(content string) string {
	if m == nil || m.renderer == nil {
		return content
	}
	out, err := m.renderer.Render(content)
	if err != nil {
		return content
	}
	return out
}
