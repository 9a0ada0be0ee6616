// Package answertag extracts the content between a configured answer-tag
// pair from generator output, used for the Self-Evolve engine's
// answer-convergence shortcut and for downstream display (spec §4.3.5,
// §6 "answer_tag_pattern", GLOSSARY "Answer-tag value").
package answertag

import (
	"regexp"
	"strings"
)

// Extractor pulls the value between a named tag pair out of generator text.
type Extractor struct {
	pattern *regexp.Regexp
}

// NewExtractor builds an Extractor for the given tag name (default
// "answer", case-insensitive per spec §6).
func NewExtractor(tagName string) *Extractor {
	pattern := regexp.MustCompile(`(?is)<` + regexp.QuoteMeta(tagName) + `>(.*?)</` + regexp.QuoteMeta(tagName) + `>`)
	return &Extractor{pattern: pattern}
}

// Extract returns the trimmed content of the last matching tag pair in
// text, and whether a match was found. The last occurrence wins so a
// generator that reasons before stating its final answer is handled
// correctly.
func (e *Extractor) Extract(text string) (string, bool) {
	matches := e.pattern.FindAllStringSubmatch(text, -1)
	if len(matches) == 0 {
		return "", false
	}
	last := matches[len(matches)-1]
	return strings.TrimSpace(last[1]), true
}

// NormalizedEqual compares two answer-tag values case-insensitively, after
// trimming, as required for the three-consecutive-iterations convergence
// check (spec §4.3.5).
func NormalizedEqual(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}
