package domain

// ToolInvocation is a finalized tool call emitted by the model.
type ToolInvocation struct {
	Name string         `json:"name"`
	Args map[string]any `json:"args"`
}

// TurnEvent is one frame of the turn event stream. Exactly one field is set.
type TurnEvent struct {
	Content string           `json:"content,omitempty"`
	Tools   []ToolInvocation `json:"tools,omitempty"`
	Error   string           `json:"error,omitempty"`
	Done    bool             `json:"done,omitempty"`
}

// ContentEvent returns a text delta event.
func ContentEvent(text string) TurnEvent { return TurnEvent{Content: text} }

// ToolsEvent returns the finalized tools event.
func ToolsEvent(tools []ToolInvocation) TurnEvent { return TurnEvent{Tools: tools} }

// ErrorEvent returns a terminal error event.
func ErrorEvent(err error) TurnEvent { return TurnEvent{Error: err.Error()} }

// DoneEvent returns the terminal success event.
func DoneEvent() TurnEvent { return TurnEvent{Done: true} }

// IsTerminal reports whether no further events may follow this one.
func (e TurnEvent) IsTerminal() bool {
	return e.Done || e.Error != ""
}

// AlertNotice is pushed to live watchers of a session when a tool fires.
type AlertNotice struct {
	SessionID string         `json:"sessionId"`
	TurnID    string         `json:"turnId"`
	Name      string         `json:"name"`
	Args      map[string]any `json:"args"`
	Severity  Severity       `json:"severity"`
	Ts        int64          `json:"ts"`
}
