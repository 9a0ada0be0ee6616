package agent

import (
	"regexp"
	"strings"
)

// guidelinePhrases are phrases that explain how/when to use the stop-token
// rather than declaring convergence. A stop-token occurrence inside one of
// these must never set should_stop (spec §4.2, S2).
var guidelinePhrases = []string{
	"remember to use",
	"use the",
	"token when",
	"requires you to use",
	"should use",
	"need to use",
	"supposed to use",
}

// errorMentionPattern flags feedback that is reporting an error rather than
// declaring completion; such feedback must never set should_stop.
var errorMentionPattern = regexp.MustCompile(`(?i)\berror\b`)

// StopTokenDetector decides whether evaluator feedback declares convergence.
type StopTokenDetector struct {
	pattern *regexp.Regexp
}

// NewStopTokenDetector builds a detector for the given literal stop-token,
// matching only whitespace- or punctuation-bounded occurrences (spec §4.2,
// §6 default "<stop>").
func NewStopTokenDetector(token string) *StopTokenDetector {
	boundary := `(?:^|[\s[:punct:]])`
	pattern := regexp.MustCompile(`(?i)` + boundary + regexp.QuoteMeta(token) + `(?:$|[\s[:punct:]])`)
	return &StopTokenDetector{pattern: pattern}
}

// ShouldStop reports whether feedback declares convergence: a standalone
// stop-token occurrence, no error mention, and none of guidelinePhrases
// anywhere in the feedback (the phrase need not surround the token).
func (d *StopTokenDetector) ShouldStop(feedback string) bool {
	if !isMeaningfulFeedback(feedback) {
		return false
	}
	if !d.pattern.MatchString(feedback) {
		return false
	}
	if errorMentionPattern.MatchString(feedback) {
		return false
	}
	lower := strings.ToLower(feedback)
	for _, phrase := range guidelinePhrases {
		if strings.Contains(lower, phrase) {
			return false
		}
	}
	return true
}

// placeholderTokens are feedback strings that look generated but carry no
// content (shared shape with the generator-output placeholder list in
// pkg/selfevolve, kept separate since the two validity rules evolve
// independently).
var placeholderTokens = []string{
	"...",
	"…",
	"[content continues]",
	"[generating...]",
}

// isMeaningfulFeedback reports whether feedback text is non-empty and not a
// bare placeholder (spec §4.2: "Empty or placeholder feedback yields
// should_stop=false and a null score regardless of textual content").
func isMeaningfulFeedback(feedback string) bool {
	trimmed := strings.TrimSpace(feedback)
	if trimmed == "" {
		return false
	}
	for _, p := range placeholderTokens {
		if trimmed == p {
			return false
		}
	}
	return true
}
