// Package policy decides which tools a caller may run.
package policy

import (
	"context"
	"fmt"

	"github.com/open-policy-agent/opa/rego"

	"github.com/xiaot623/thinkarr/internal/domain"
)

// Gate is the OPA-backed permission gate for tool execution.
type Gate struct {
	query rego.PreparedEvalQuery
}

// NewGate prepares the gate with the given rego module.
func NewGate(ctx context.Context, policyContent string) (*Gate, error) {
	r := rego.New(
		rego.Query("data.tool_policy.allow"),
		rego.Module("tool_policy.rego", policyContent),
	)

	query, err := r.PrepareForEval(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare rego: %w", err)
	}

	return &Gate{query: query}, nil
}

// NewDefaultGate prepares the gate with DefaultPolicy.
func NewDefaultGate(ctx context.Context) (*Gate, error) {
	return NewGate(ctx, DefaultPolicy)
}

// Evaluate reports whether a caller at level may run toolName.
func (g *Gate) Evaluate(ctx context.Context, toolName string, level domain.PermissionLevel) (bool, error) {
	input := map[string]any{
		"tool_name": toolName,
		"level":     string(level),
	}
	results, err := g.query.Eval(ctx, rego.EvalInput(input))
	if err != nil {
		return false, fmt.Errorf("failed to evaluate policy: %w", err)
	}
	if len(results) == 0 || len(results[0].Expressions) == 0 {
		return false, nil
	}
	allowed, ok := results[0].Expressions[0].Value.(bool)
	if !ok {
		return false, fmt.Errorf("unexpected policy result type %T", results[0].Expressions[0].Value)
	}
	return allowed, nil
}

// CanExecute is Evaluate with errors treated as a denial.
func (g *Gate) CanExecute(ctx context.Context, toolName string, level domain.PermissionLevel) bool {
	allowed, err := g.Evaluate(ctx, toolName, level)
	return err == nil && allowed
}

// Filter keeps the names a caller at level may run, preserving order.
func (g *Gate) Filter(ctx context.Context, names []string, level domain.PermissionLevel) []string {
	out := make([]string, 0, len(names))
	for _, name := range names {
		if g.CanExecute(ctx, name, level) {
			out = append(out, name)
		}
	}
	return out
}

// DefaultPolicy lets elevated callers run anything. Scoped callers get the
// read-only tools plus the actions that only touch their own requests.
const DefaultPolicy = `
package tool_policy

default allow = false

read_only_tools = {
	"plex_search_library",
	"plex_get_watch_history",
	"plex_get_on_deck",
	"plex_check_availability",
	"sonarr_search_series",
	"sonarr_get_calendar",
	"sonarr_get_queue",
	"sonarr_list_series",
	"radarr_search_movie",
	"radarr_list_movies",
	"radarr_get_queue",
	"overseerr_search",
	"overseerr_list_requests",
}

self_action_tools = {
	"overseerr_request_movie",
	"overseerr_request_tv",
	"sonarr_monitor_series",
	"radarr_monitor_movie",
}

allow {
	input.level == "elevated"
}

allow {
	input.level == "scoped"
	read_only_tools[input.tool_name]
}

allow {
	input.level == "scoped"
	self_action_tools[input.tool_name]
}
`
