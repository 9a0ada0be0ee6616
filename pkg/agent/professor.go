package agent

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/selfevolve/orchestrator/pkg/provider"
	"github.com/selfevolve/orchestrator/pkg/toolcall"
)

const consultToolName = "consult_graduate_specialist"

// consultToolDefinition is the single tool the Professor exposes to the
// provider (spec §4.4 step 1).
var consultToolDefinition = provider.ToolDefinition{
	Name:        consultToolName,
	Description: "Consult a graduate-level specialist on a narrow sub-task of the problem.",
	Parameters: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"specialization":        map[string]any{"type": "string"},
			"specific_task":         map[string]any{"type": "string"},
			"context_for_specialist": map[string]any{"type": "string"},
			"problem_constraints":    map[string]any{"type": "string"},
		},
		"required": []string{"specialization", "specific_task"},
	},
}

// SpecialistSolution is what a dispatched Specialist's own Self-Evolve
// engine returns to the Professor (spec §4.4 step 4, §3 SpecialistConsultation).
type SpecialistSolution struct {
	FinalAnswer     string         `json:"final_answer"`
	AnswerTagValue  string         `json:"answer_tag_value"`
	IterationCount  int            `json:"iteration_count"`
	TotalTokens     int            `json:"total_tokens"`
	FormattedBlock  string         `json:"formatted_block,omitempty"`
	ContextPressure bool           `json:"context_pressure,omitempty"`
	SessionDetails  map[string]any `json:"session_details,omitempty"`
}

// SpecialistEngine is the capability the Professor needs from a
// specialist's Self-Evolve engine. Declared here (rather than imported
// from pkg/selfevolve) to avoid a package cycle: pkg/selfevolve consumes
// pkg/agent's Agent interface, so pkg/agent cannot import pkg/selfevolve
// back.
type SpecialistEngine interface {
	Solve(ctx context.Context, question string) (SpecialistSolution, error)
}

// SpecialistFactory builds a fresh SpecialistEngine for one consultation.
// The caller (typically pkg/runner's Enhanced Runner wiring) closes over
// specialist_max_iters and a fresh {Generator, Evaluator, Refiner} triple.
type SpecialistFactory func(spec NormalizedConsultation) (SpecialistEngine, error)

// NormalizedConsultation is one consult_graduate_specialist call after
// normalizing aliases (spec §4.4 step 3).
type NormalizedConsultation struct {
	Specialization       string `json:"specialization"`
	SpecificTask         string `json:"specific_task"`
	ContextForSpecialist string `json:"context_for_specialist,omitempty"`
	ProblemConstraints   string `json:"problem_constraints,omitempty"`
}

// consultationOutcome is the per-consultation result slot referenced in
// metadata and, on failure, the formatted error block (spec §4.4 "Failure
// handling").
type consultationOutcome struct {
	consultation NormalizedConsultation
	childJobID   string
	solution     SpecialistSolution
	formatted    string
	err          error
}

// Professor is a Generator whose Run dispatches Specialist consultations
// and synthesizes their results (spec §4.4).
type Professor struct {
	Provider             provider.Provider
	SystemPrompt         string
	Temperature          float32
	SynthesisTemperature float32
	ParentJobID          string
	NewSpecialist        SpecialistFactory

	// Progress optionally reports sub-progress within one Run call, for a
	// caller composing phase-weighted progress across {analysis,
	// consultations, synthesis} (spec §4.5). May be nil.
	Progress func(fraction float64, phase string)

	// ContextSummarizationThreshold and MaxContextTokens bound how much
	// specialist-consultation text is folded into the synthesis prompt
	// before older results are truncated (spec §6
	// context_summarization_threshold). Zero values fall back to
	// defaultMaxContextTokens and a 0.8 threshold.
	ContextSummarizationThreshold float64
	MaxContextTokens              int
}

// NewProfessor builds a Professor with SynthesisTemperature set to 0.5
// (spec §4.4 step 5).
func NewProfessor(p provider.Provider, systemPrompt string, temperature float32, parentJobID string, factory SpecialistFactory) *Professor {
	return &Professor{
		Provider:             p,
		SystemPrompt:         systemPrompt,
		Temperature:          temperature,
		SynthesisTemperature: 0.5,
		ParentJobID:          parentJobID,
		NewSpecialist:        factory,
	}
}

func (pr *Professor) Role() Role { return RoleProfessor }

func (pr *Professor) reportProgress(fraction float64, phase string) {
	if pr.Progress != nil {
		pr.Progress(fraction, phase)
	}
}

func (pr *Professor) Run(ctx context.Context, ac Context) (*Result, error) {
	pr.reportProgress(0, "professor_analysis")

	resp, err := pr.Provider.CompleteWithFunctions(ctx, ac.Prompt, pr.SystemPrompt, pr.Temperature, []provider.ToolDefinition{consultToolDefinition})
	if err != nil {
		return nil, fmt.Errorf("professor: %w", err)
	}
	pr.reportProgress(1, "professor_analysis")

	calls := pr.collectConsultations(resp)

	globalConstraints, _ := ac.Additional["global_constraints"].(string)

	outcomes := make([]consultationOutcome, 0, len(calls))
	for i, c := range calls {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		outcomes = append(outcomes, pr.runConsultation(ctx, c, ac.Prompt, globalConstraints))
		if len(calls) > 0 {
			pr.reportProgress(float64(i+1)/float64(len(calls)), "specialist_consultations")
		}
	}
	if len(calls) == 0 {
		pr.reportProgress(1, "specialist_consultations")
	}

	succeeded := 0
	for _, o := range outcomes {
		if o.err == nil {
			succeeded++
		}
	}

	var synthesisText string
	if succeeded > 0 {
		synthesisText, err = pr.synthesize(ctx, ac.Prompt, globalConstraints, outcomes)
		if err != nil {
			return nil, fmt.Errorf("professor: synthesis: %w", err)
		}
		pr.reportProgress(1, "synthesis")
	} else {
		// spec §4.4 "Failure handling": zero successful consultations and no
		// direct textual answer → fall back to a plain completion.
		if strings.TrimSpace(resp.Content) != "" {
			synthesisText = resp.Content
		} else {
			synthesisText, err = pr.Provider.Complete(ctx, ac.Prompt, pr.SystemPrompt, pr.Temperature, provider.CompleteOptions{})
			if err != nil {
				return nil, fmt.Errorf("professor: fallback completion: %w", err)
			}
		}
		pr.reportProgress(1, "synthesis")
	}

	return &Result{
		OutputText: synthesisText,
		Metadata:   pr.buildMetadata(outcomes),
	}, nil
}

// collectConsultations implements spec §4.4 step 2's priority order:
// structured function_calls, then relaxed textual parsing.
func (pr *Professor) collectConsultations(resp *provider.Response) []NormalizedConsultation {
	var raw []toolcall.RawCall

	for _, fc := range resp.FunctionCalls {
		if fc.Name != consultToolName {
			continue
		}
		args, ok := fc.Arguments.(map[string]any)
		if !ok {
			if s, ok := fc.Arguments.(string); ok {
				parsed, err := toolcall.ParseRelaxed(s)
				if err != nil {
					slog.Warn("professor: failed to parse structured tool call arguments", "error", err)
					continue
				}
				args = parsed.Args
			}
		}
		raw = append(raw, toolcall.RawCall{Name: fc.Name, Args: args, Source: "structured"})
	}

	if len(raw) == 0 {
		raw = toolcall.ExtractAll(resp.Content, consultToolName)
	}

	normalized := make([]NormalizedConsultation, 0, len(raw))
	for _, call := range raw {
		normalized = append(normalized, normalizeConsultation(call.Args))
	}
	return normalized
}

// normalizeConsultation maps alias fields into the four-field schema
// (spec §4.4 step 3).
func normalizeConsultation(args map[string]any) NormalizedConsultation {
	get := func(keys ...string) string {
		for _, k := range keys {
			if v, ok := args[k].(string); ok && v != "" {
				return v
			}
		}
		return ""
	}
	return NormalizedConsultation{
		Specialization:       get("specialization", "expertise"),
		SpecificTask:         get("specific_task", "task", "task_description", "query"),
		ContextForSpecialist: get("context_for_specialist"),
		ProblemConstraints:   get("problem_constraints", "verification_requirements"),
	}
}

// runConsultation dispatches one Specialist. Consultations run strictly
// one at a time within an iteration so token accounting stays
// deterministic and provider rate limits aren't hit in a burst.
func (pr *Professor) runConsultation(ctx context.Context, c NormalizedConsultation, originalProblem, globalConstraints string) consultationOutcome {
	childJobID := SpecialistJobID(pr.ParentJobID, c.Specialization, c.SpecificTask)

	outcome := consultationOutcome{consultation: c, childJobID: childJobID}

	engine, err := pr.NewSpecialist(c)
	if err != nil {
		outcome.err = err
		outcome.formatted = fmt.Sprintf("Specialist consultation failed: %v", err)
		return outcome
	}

	enhancedTask := buildEnhancedTaskMemo(c, originalProblem, globalConstraints)

	solution, err := engine.Solve(ctx, enhancedTask)
	if err != nil {
		outcome.err = err
		outcome.formatted = fmt.Sprintf("Specialist consultation failed: %v", err)
		return outcome
	}

	outcome.solution = solution
	outcome.formatted = formatConsultationResult(c, solution)
	return outcome
}

func buildEnhancedTaskMemo(c NormalizedConsultation, originalProblem, globalConstraints string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Specialization: %s\n\n", c.Specialization)
	fmt.Fprintf(&b, "Specific task: %s\n\n", c.SpecificTask)
	if c.ContextForSpecialist != "" {
		fmt.Fprintf(&b, "Context from the professor:\n%s\n\n", c.ContextForSpecialist)
	}
	fmt.Fprintf(&b, "Original problem:\n%s\n\n", originalProblem)
	constraints := c.ProblemConstraints
	if constraints == "" {
		constraints = globalConstraints
	}
	if constraints != "" {
		fmt.Fprintf(&b, "Constraints:\n%s\n", constraints)
	}
	return b.String()
}

func formatConsultationResult(c NormalizedConsultation, s SpecialistSolution) string {
	return fmt.Sprintf(
		"Specialization: %s\nTask: %s\nIterations: %d\nFinal answer value: %s\n\n%s",
		c.Specialization, c.SpecificTask, s.IterationCount, s.AnswerTagValue, s.FinalAnswer,
	)
}

func (pr *Professor) synthesize(ctx context.Context, originalProblem, globalConstraints string, outcomes []consultationOutcome) (string, error) {
	var base strings.Builder
	fmt.Fprintf(&base, "Original problem:\n%s\n\n", originalProblem)
	if globalConstraints != "" {
		fmt.Fprintf(&base, "Global constraints:\n%s\n\n", globalConstraints)
	}

	blocks := make([]string, 0, len(outcomes))
	for _, o := range outcomes {
		blocks = append(blocks, o.formatted)
	}
	blocks = manageContextBudget(pr.Provider.CountTokens, pr.ContextSummarizationThreshold, pr.MaxContextTokens, base.String(), blocks)

	var b strings.Builder
	b.WriteString(base.String())
	b.WriteString("Specialist consultation results:\n\n")
	for _, block := range blocks {
		b.WriteString(block)
		b.WriteString("\n\n")
	}
	b.WriteString("Synthesize an integrated final answer from the above.")

	return pr.Provider.Complete(ctx, b.String(), pr.SystemPrompt, pr.SynthesisTemperature, provider.CompleteOptions{})
}

func (pr *Professor) buildMetadata(outcomes []consultationOutcome) map[string]any {
	summaries := make([]map[string]any, 0, len(outcomes))
	aggregatedTokens := 0
	for _, o := range outcomes {
		summary := map[string]any{
			"specialization":   o.consultation.Specialization,
			"task":             o.consultation.SpecificTask,
			"child_job_id":     o.childJobID,
			"formatted_block":  o.formatted,
		}
		if o.err != nil {
			summary["error"] = o.err.Error()
		} else {
			summary["iteration_count"] = o.solution.IterationCount
			summary["final_answer_value"] = o.solution.AnswerTagValue
			summary["session_details"] = o.solution.SessionDetails
			summary["context_pressure"] = o.solution.ContextPressure
			aggregatedTokens += o.solution.TotalTokens
		}
		summaries = append(summaries, summary)
	}

	return map[string]any{
		"specialist_count":  len(outcomes),
		"specialist_results": summaries,
		"aggregated_reasoning_tokens": aggregatedTokens,
		"reasoning_summary":           pr.Provider.LastReasoningSummary(),
	}
}
