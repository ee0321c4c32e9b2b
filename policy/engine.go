// Package policy grades tool invocations with an OPA policy.
package policy

import (
	"context"
	"fmt"

	"github.com/open-policy-agent/opa/v1/rego"

	"github.com/xiaot623/seawatch/internal/domain"
)

// Engine is the OPA policy engine.
type Engine struct {
	query rego.PreparedEvalQuery
}

// NewEngine creates a new policy engine with the given policy content.
// The module must define data.alert_policy.severity.
func NewEngine(ctx context.Context, policyContent string) (*Engine, error) {
	r := rego.New(
		rego.Query("data.alert_policy.severity"),
		rego.Module("alert_policy.rego", policyContent),
	)

	query, err := r.PrepareForEval(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare rego: %w", err)
	}

	return &Engine{query: query}, nil
}

// Severity evaluates the policy for one tool invocation. Input carries
// tool_name, args and session_id.
func (e *Engine) Severity(ctx context.Context, sessionID string, inv domain.ToolInvocation) (domain.Severity, error) {
	input := map[string]interface{}{
		"tool_name":  inv.Name,
		"args":       inv.Args,
		"session_id": sessionID,
	}
	results, err := e.query.Eval(ctx, rego.EvalInput(input))
	if err != nil {
		return domain.SeverityInfo, fmt.Errorf("failed to evaluate policy: %w", err)
	}

	if len(results) == 0 || len(results[0].Expressions) == 0 {
		return domain.SeverityInfo, nil
	}

	s, ok := results[0].Expressions[0].Value.(string)
	if !ok {
		return domain.SeverityInfo, fmt.Errorf("policy returned %T, want string", results[0].Expressions[0].Value)
	}
	switch sev := domain.Severity(s); sev {
	case domain.SeverityInfo, domain.SeverityWarning, domain.SeverityCritical:
		return sev, nil
	default:
		return domain.SeverityInfo, fmt.Errorf("policy returned unknown severity %q", s)
	}
}

// DefaultPolicy grades broadcast levels and intercept orders.
const DefaultPolicy = `
package alert_policy

default severity := "info"

severity := "critical" if {
	input.tool_name == "broadcast_warning"
	input.args.level == "CRITICAL"
}

severity := "warning" if {
	input.tool_name == "broadcast_warning"
	input.args.level == "WARNING"
}

severity := "warning" if {
	input.tool_name == "lock_target"
	input.args.action == "INTERCEPT"
}
`
