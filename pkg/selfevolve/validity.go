package selfevolve

import "strings"

// placeholderOutputs are generator outputs that look generated but carry
// no real content (spec §4.3).
var placeholderOutputs = []string{
	"...",
	"…",
	"[content continues]",
	"[generating...]",
}

// errorSentinels mark a generator output as a failure response rather than
// a real answer (spec §4.3).
var errorSentinels = []string{
	"i apologize, but i encountered an error",
	"i'm sorry, but an error occurred",
	"unable to generate",
	"generation failed",
	"error generating",
	"cannot process",
	"failed to process",
}

const defaultMinValidWords = 10

// IsValidOutput implements the generator-output validity predicate (spec
// §4.3) using the spec's normative default of 10 minimum words. Use
// IsValidOutputMinWords directly when a configured
// invalid_output_min_words override applies (spec §6).
func IsValidOutput(text string) bool {
	return IsValidOutputMinWords(text, defaultMinValidWords)
}

// IsValidOutputMinWords is IsValidOutput parameterized by the configured
// minimum word count (spec §6 "invalid_output_min_words").
func IsValidOutputMinWords(text string, minWords int) bool {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return false
	}
	for _, p := range placeholderOutputs {
		if trimmed == p {
			return false
		}
	}
	lower := strings.ToLower(trimmed)
	for _, sentinel := range errorSentinels {
		if strings.Contains(lower, sentinel) {
			return false
		}
	}
	if minWords <= 0 {
		minWords = defaultMinValidWords
	}
	return len(strings.Fields(trimmed)) >= minWords
}
