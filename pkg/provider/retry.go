package provider

import (
	"context"
	"errors"
	"math/rand"
	"time"
)

// backoffConfig controls exponential backoff with jitter used when retrying
// transient or rate-limited provider calls (spec §4.1, §7).
type backoffConfig struct {
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
}

var defaultBackoff = backoffConfig{
	MaxRetries: 3,
	BaseDelay:  250 * time.Millisecond,
	MaxDelay:   8 * time.Second,
}

// withRetry runs fn, retrying on transient/rate-limit provider errors up to
// cfg.MaxRetries times. RateLimitError honors RetryAfter when present.
// Non-retryable errors (parse errors, anything else) are returned immediately.
func withRetry(ctx context.Context, cfg backoffConfig, fn func() error) error {
	var lastErr error
	for attempt := 0; attempt <= cfg.MaxRetries; attempt++ {
		lastErr = fn()
		if lastErr == nil {
			return nil
		}

		var perr *Error
		if !errors.As(lastErr, &perr) {
			return lastErr
		}
		if !errors.Is(perr.Kind, ErrTransient) && !errors.Is(perr.Kind, ErrRateLimited) {
			return lastErr
		}
		if attempt == cfg.MaxRetries {
			break
		}

		delay := backoffDelay(cfg, attempt)
		if perr.RetryAfter > 0 {
			serverDelay := time.Duration(perr.RetryAfter) * time.Second
			if serverDelay > delay {
				delay = serverDelay
			}
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
	return &Error{Kind: ErrProvider, Err: lastErr}
}

// backoffDelay returns exponential backoff with random jitter in [0, delay].
func backoffDelay(cfg backoffConfig, attempt int) time.Duration {
	delay := cfg.BaseDelay << attempt
	if delay > cfg.MaxDelay || delay <= 0 {
		delay = cfg.MaxDelay
	}
	jitter := time.Duration(rand.Int63n(int64(delay) + 1))
	return jitter
}
