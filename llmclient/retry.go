package llmclient

import (
	"context"
	"errors"
	"math/rand"
	"strings"
	"time"
)

// isAuthError reports whether err represents a credential failure, which
// must terminate the call immediately rather than retry.
func isAuthError(err error) bool {
	return err != nil && strings.Contains(err.Error(), authErrorSentinel)
}

// withRetry performs exponential-backoff retry around fn: starting
// between BackoffStart and 2x that (jittered), doubling each attempt,
// capped at BackoffCap, up to MaxAttempts. Auth errors never retry.
// Latency and outcome are recorded on metrics regardless of the path
// taken.
func withRetry[T any](c *Client, ctx context.Context, op string, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	backoff := c.cfg.BackoffStart
	start := time.Now()

	var lastErr error
	for attempt := 1; attempt <= c.cfg.MaxAttempts; attempt++ {
		result, err := fn(ctx)
		if err == nil {
			c.recordOutcome("success", start)
			return result, nil
		}
		lastErr = err

		if isAuthError(err) {
			c.recordOutcome("auth_error", start)
			return zero, err
		}
		if errors.Is(ctx.Err(), context.Canceled) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			c.recordOutcome("failure", start)
			return zero, err
		}
		if attempt == c.cfg.MaxAttempts {
			break
		}

		jittered := backoff + time.Duration(rand.Int63n(int64(backoff)+1))
		if jittered > c.cfg.BackoffCap {
			jittered = c.cfg.BackoffCap
		}
		c.logger.Warn().Err(err).Str("op", op).Int("attempt", attempt).Dur("backoff", jittered).Msg("llm call failed, retrying")

		select {
		case <-time.After(jittered):
		case <-ctx.Done():
			c.recordOutcome("failure", start)
			return zero, ctx.Err()
		}

		backoff *= 2
		if backoff > c.cfg.BackoffCap {
			backoff = c.cfg.BackoffCap
		}
	}

	c.recordOutcome("failure", start)
	return zero, lastErr
}

func (c *Client) recordOutcome(outcome string, start time.Time) {
	if c.metrics == nil {
		return
	}
	c.metrics.LLMRequests.WithLabelValues(outcome).Inc()
	c.metrics.LLMLatencyMs.WithLabelValues(outcome).Observe(float64(time.Since(start).Milliseconds()))
}
