package domain

// Role is the author of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// Severity classifies a tool invocation for display.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// Tool names declared to the model.
const (
	ToolBroadcastWarning = "broadcast_warning"
	ToolLockTarget       = "lock_target"
)
