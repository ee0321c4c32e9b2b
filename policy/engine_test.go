package policy

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xiaot623/seawatch/internal/domain"
)

func TestDefaultPolicySeverity(t *testing.T) {
	ctx := context.Background()
	engine, err := NewEngine(ctx, DefaultPolicy)
	require.NoError(t, err)

	cases := []struct {
		name string
		inv  domain.ToolInvocation
		want domain.Severity
	}{
		{"critical broadcast", domain.ToolInvocation{Name: "broadcast_warning", Args: map[string]any{"level": "CRITICAL"}}, domain.SeverityCritical},
		{"warning broadcast", domain.ToolInvocation{Name: "broadcast_warning", Args: map[string]any{"level": "WARNING"}}, domain.SeverityWarning},
		{"info broadcast", domain.ToolInvocation{Name: "broadcast_warning", Args: map[string]any{"level": "INFO"}}, domain.SeverityInfo},
		{"intercept", domain.ToolInvocation{Name: "lock_target", Args: map[string]any{"action": "INTERCEPT"}}, domain.SeverityWarning},
		{"track", domain.ToolInvocation{Name: "lock_target", Args: map[string]any{"action": "TRACK"}}, domain.SeverityInfo},
		{"no args", domain.ToolInvocation{Name: "lock_target"}, domain.SeverityInfo},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := engine.Severity(ctx, "s1", tc.inv)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestNewEngineRejectsBadPolicy(t *testing.T) {
	_, err := NewEngine(context.Background(), "package alert_policy\nseverity := ")
	assert.Error(t, err)
}

func TestSeverityRejectsUnknownValue(t *testing.T) {
	ctx := context.Background()
	engine, err := NewEngine(ctx, "package alert_policy\n\nseverity := \"apocalyptic\"\n")
	require.NoError(t, err)

	got, err := engine.Severity(ctx, "s1", domain.ToolInvocation{Name: "broadcast_warning"})
	assert.Error(t, err)
	assert.Equal(t, domain.SeverityInfo, got)
}
