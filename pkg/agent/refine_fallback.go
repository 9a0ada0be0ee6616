package agent

import (
	"fmt"
	"strings"
)

// fallbackKeywords maps feedback keywords to the instruction appended to
// the original question when AI-based refinement is unavailable (spec
// §4.2). Checked in order so the first match wins when feedback mentions
// more than one.
var fallbackKeywords = []struct {
	keyword     string
	instruction string
}{
	{"unclear", "Clarify any ambiguous steps and state your reasoning explicitly."},
	{"incomplete", "Complete any missing steps and ensure the answer is fully worked through."},
	{"calculation", "Double-check all calculations and show the arithmetic explicitly."},
	{"logical", "Review the logical structure of the argument for consistency."},
}

// deterministicRefine implements the rule-based refiner fallback: it
// appends a keyword-triggered instruction (or a generic revision request)
// to the original question, without calling a provider.
func deterministicRefine(originalQuestion, feedback string) string {
	lower := strings.ToLower(feedback)
	for _, kw := range fallbackKeywords {
		if strings.Contains(lower, kw.keyword) {
			return fmt.Sprintf("%s\n\n%s", originalQuestion, kw.instruction)
		}
	}
	return fmt.Sprintf("%s\n\nRevise the answer to address the following feedback: %s", originalQuestion, feedback)
}
