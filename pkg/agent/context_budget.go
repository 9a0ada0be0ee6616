package agent

import "strings"

// defaultMaxContextTokens is the assumed context window size used to
// interpret ContextSummarizationThreshold when a Professor doesn't
// override it. Mirrors the original orchestrator's max_context_tokens
// default for a mid-sized chat-completions model.
const defaultMaxContextTokens = 8000

// responseReserve is tokens set aside for the model's own completion,
// never counted as available for prior-reasoning context.
const responseReserve = 1000

// manageContextBudget keeps concatenated consultation blocks within the
// fraction of the context window given by threshold (spec §6
// context_summarization_threshold), truncating older blocks first while
// keeping the most recent intact. Ported from the original
// orchestrator's _manage_context_size/_handle_multiple_reasoning, with
// LLM-based summarization dropped in favor of truncation-only (still a
// spec-compliant outcome: spec.md §6 says "summarized or truncated").
func manageContextBudget(count func(string) int, threshold float64, maxContextTokens int, basePrompt string, blocks []string) []string {
	if len(blocks) == 0 {
		return blocks
	}
	if threshold <= 0 {
		threshold = 0.8
	}
	if maxContextTokens <= 0 {
		maxContextTokens = defaultMaxContextTokens
	}

	available := maxContextTokens - count(basePrompt) - responseReserve
	if available <= 0 {
		return nil
	}

	total := 0
	for _, b := range blocks {
		total += count(b)
	}
	if float64(total)/float64(available) <= threshold {
		return blocks
	}

	mostRecent := blocks[len(blocks)-1]
	mostRecentTokens := count(mostRecent)
	remaining := available - mostRecentTokens
	if remaining <= 0 {
		return []string{truncateBlock(count, mostRecent, available)}
	}

	older := blocks[:len(blocks)-1]
	olderTokens := 0
	for _, b := range older {
		olderTokens += count(b)
	}
	if olderTokens <= remaining {
		return blocks
	}

	truncatedOlder := make([]string, 0, len(older))
	perBlock := remaining / len(older)
	for _, b := range older {
		truncatedOlder = append(truncatedOlder, truncateBlock(count, b, perBlock))
	}
	return append(truncatedOlder, mostRecent)
}

// truncateBlock keeps the first and last 30% of lines and drops the
// middle, preserving setup and conclusion (original
// IterationManager._truncate_reasoning's strategy).
func truncateBlock(count func(string) int, text string, maxTokens int) string {
	if count(text) <= maxTokens {
		return text
	}

	lines := strings.Split(text, "\n")
	total := len(lines)
	keepStart := total * 3 / 10
	keepEnd := total * 3 / 10
	if keepStart < 1 {
		keepStart = 1
	}
	if keepEnd < 1 {
		keepEnd = 1
	}

	if keepStart+keepEnd >= total {
		return text + "\n\n[... reasoning truncated for context management ...]"
	}

	var b strings.Builder
	b.WriteString(strings.Join(lines[:keepStart], "\n"))
	b.WriteString("\n\n[... middle reasoning truncated for context management ...]\n\n")
	b.WriteString(strings.Join(lines[total-keepEnd:], "\n"))
	return b.String()
}
