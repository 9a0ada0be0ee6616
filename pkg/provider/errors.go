package provider

import (
	"errors"
	"fmt"
)

// Sentinel error kinds (spec §7). Wrapped with fmt.Errorf("%w: ...") by
// call sites so errors.Is still matches.
var (
	// ErrTransient covers network errors, timeouts, and HTTP 5xx.
	ErrTransient = errors.New("transient provider error")

	// ErrRateLimited covers HTTP 429 or equivalent.
	ErrRateLimited = errors.New("provider rate limited")

	// ErrParse covers malformed JSON or unparseable tool-call arguments.
	ErrParse = errors.New("provider parse error")

	// ErrProvider is the terminal error surfaced once retries are exhausted.
	ErrProvider = errors.New("provider error")
)

// Error wraps a provider failure with enough context for callers to decide
// on retry policy without inspecting strings.
type Error struct {
	Kind       error // one of the sentinels above
	RetryAfter int   // seconds, from a 429 Retry-After header; 0 if absent
	Err        error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%v: %v", e.Kind, e.Err)
	}
	return e.Kind.Error()
}

func (e *Error) Unwrap() error { return e.Kind }

// CallError wraps a ParseError for a specific tool call so the orchestrator
// can skip just that call and proceed with the rest (spec §4.1, §7).
type CallError struct {
	CallName string
	Err      error
}

func (e *CallError) Error() string {
	return fmt.Sprintf("tool call %q: %v", e.CallName, e.Err)
}

func (e *CallError) Unwrap() error { return e.Err }
