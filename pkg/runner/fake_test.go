package runner

import (
	"context"

	"github.com/selfevolve/orchestrator/pkg/agent"
)

const validOutput = "This is a sufficiently long generator output with at least ten distinct words in it."

type scriptedAgent struct {
	role    agent.Role
	outputs []string
	calls   int
}

func (s *scriptedAgent) Role() agent.Role { return s.role }

func (s *scriptedAgent) Run(ctx context.Context, ac agent.Context) (*agent.Result, error) {
	idx := s.calls
	s.calls++
	text := validOutput
	if idx < len(s.outputs) {
		text = s.outputs[idx]
	} else if len(s.outputs) > 0 {
		text = s.outputs[len(s.outputs)-1]
	}
	return &agent.Result{OutputText: text, Feedback: text, Metadata: map[string]any{}, TokensUsed: len(text) / 4}, nil
}

type stopEvaluator struct {
	shouldStop []bool
	calls      int
}

func (s *stopEvaluator) Role() agent.Role { return agent.RoleEvaluator }

func (s *stopEvaluator) Run(ctx context.Context, ac agent.Context) (*agent.Result, error) {
	idx := s.calls
	s.calls++
	stop := false
	if idx < len(s.shouldStop) {
		stop = s.shouldStop[idx]
	}
	feedback := "Needs further work."
	if stop {
		feedback = "Looks complete. <stop>"
	}
	return &agent.Result{OutputText: feedback, Feedback: feedback, Metadata: map[string]any{"should_stop": stop}, TokensUsed: 5}, nil
}

type passthroughRefiner struct{ calls int }

func (r *passthroughRefiner) Role() agent.Role { return agent.RoleRefiner }

func (r *passthroughRefiner) Run(ctx context.Context, ac agent.Context) (*agent.Result, error) {
	r.calls++
	return &agent.Result{OutputText: ac.Prompt + " (refined)", Metadata: map[string]any{}, TokensUsed: 3}, nil
}
