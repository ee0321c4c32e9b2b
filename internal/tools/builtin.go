package tools

import "github.com/xiaot623/seawatch/internal/domain"

func init() {
	MustRegister(Declaration{
		Name:        domain.ToolBroadcastWarning,
		Description: "Broadcast a maritime safety warning to operators. Use CRITICAL only for immediate danger to vessels or people.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"level": map[string]any{
					"type": "string",
					"enum": []string{"INFO", "WARNING", "CRITICAL"},
				},
				"message": map[string]any{
					"type":        "string",
					"description": "Warning text shown to operators.",
				},
			},
			"required": []string{"level", "message"},
		},
	})
	MustRegister(Declaration{
		Name:        domain.ToolLockTarget,
		Description: "Lock onto a target observed in the frame.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"targetType": map[string]any{
					"type":        "string",
					"description": "What the target is, e.g. fishing boat, container ship, swimmer.",
				},
				"action": map[string]any{
					"type": "string",
					"enum": []string{"TRACK", "IDENTIFY", "INTERCEPT"},
				},
			},
			"required": []string{"targetType", "action"},
		},
	})
}
