// Package agent implements the Generator/Evaluator/Refiner role contracts
// and the Professor orchestrator (spec §4.2, §4.4) on top of pkg/provider.
package agent

import "context"

// Role identifies which contract an Agent fulfils. The engine's iteration
// algorithm branches on RoleProfessor (spec §4.3 rule 4: skip evaluation on
// the final iteration of a Professor-driven run).
type Role string

const (
	RoleGenerator Role = "generator"
	RoleEvaluator Role = "evaluator"
	RoleRefiner   Role = "refiner"
	RoleProfessor Role = "professor"
)

// Context carries everything an Agent.Run call needs: the prompt to act on,
// prior output and feedback for roles that consume them, and a free-form
// bag for role-specific extras (spec §4.2).
type Context struct {
	Prompt      string
	PriorOutput string
	Feedback    string
	Iteration   int
	Additional  map[string]any
}

// Result is the uniform output of any Agent.Run call (spec §4.2).
type Result struct {
	OutputText string
	Feedback   string
	Metadata   map[string]any
	TokensUsed int
}

// Agent is the minimal role wrapper: {role-name, provider, system-prompt,
// temperature} exposing Run (spec §4.2).
type Agent interface {
	Role() Role
	Run(ctx context.Context, ac Context) (*Result, error)
}

// metadataString is a small helper for reading an optional string field out
// of a Result's metadata map.
func metadataString(m map[string]any, key string) string {
	if m == nil {
		return ""
	}
	v, _ := m[key].(string)
	return v
}
