// Package render turns tool invocations into terminal alert cards.
package render

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/xiaot623/seawatch/internal/domain"
)

var (
	criticalStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("196")).
			Foreground(lipgloss.Color("196")).
			Padding(0, 1)

	infoStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("39")).
			Padding(0, 1)

	cardTitleStyle = lipgloss.NewStyle().Bold(true)
	dimStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
)

// Card is the display form of one tool invocation.
type Card struct {
	Tool     string
	Title    string
	Body     string
	Severity domain.Severity
	At       time.Time
}

// Classify returns critical for a CRITICAL broadcast and info for anything else.
func Classify(inv domain.ToolInvocation) domain.Severity {
	if inv.Name == domain.ToolBroadcastWarning && argString(inv.Args, "level") == "CRITICAL" {
		return domain.SeverityCritical
	}
	return domain.SeverityInfo
}

// CardFor builds the card for inv.
func CardFor(inv domain.ToolInvocation) Card {
	card := Card{
		Tool:     inv.Name,
		Severity: Classify(inv),
		At:       time.Now(),
	}

	switch inv.Name {
	case domain.ToolBroadcastWarning:
		card.Title = "Safety warning"
		if level := argString(inv.Args, "level"); level != "" {
			card.Title += " (" + level + ")"
		}
	case domain.ToolLockTarget:
		card.Title = "Target locked"
		if action := argString(inv.Args, "action"); action != "" {
			card.Title += " (" + action + ")"
		}
	default:
		card.Title = inv.Name
	}

	switch {
	case argString(inv.Args, "message") != "":
		card.Body = argString(inv.Args, "message")
	case argString(inv.Args, "targetType") != "":
		card.Body = argString(inv.Args, "targetType")
	default:
		card.Body = "executed"
	}
	return card
}

// Render draws the card as a bordered box.
func (c Card) Render() string {
	style := infoStyle
	if c.Severity == domain.SeverityCritical {
		style = criticalStyle
	}
	var b strings.Builder
	b.WriteString(cardTitleStyle.Render(c.Title))
	b.WriteString("\n")
	b.WriteString(c.Body)
	if !c.At.IsZero() {
		b.WriteString("\n")
		b.WriteString(dimStyle.Render(c.At.Format("15:04:05")))
	}
	return style.Render(b.String())
}

// Plain returns a single-line form of the card.
func (c Card) Plain() string {
	marker := "i"
	if c.Severity == domain.SeverityCritical {
		marker = "!"
	}
	return fmt.Sprintf("[%s] %s: %s", marker, c.Title, c.Body)
}

func argString(args map[string]any, key string) string {
	if v, ok := args[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}
