// Copyright (c) 2026 Codeforge Contributors
// Licensed under the GNU Affero General Public License v3.0.
// See https://www.gnu.org/licenses/agpl-3.0.html for the full license text.

package llmclient

import (
	"context"
	"math/rand"
	"time"
)

// RetryConfig configures exponential backoff retry, carried over from
// services/trace/context.RetryConfig field-for-field.
type RetryConfig struct {
	MaxAttempts    int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	BackoffFactor  float64
	JitterFactor   float64
}

// DefaultRetryConfig matches SPEC_FULL.md §5: "1s, 2s, 4s, up to 3 retries".
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:    4,
		InitialBackoff: 1 * time.Second,
		MaxBackoff:     30 * time.Second,
		BackoffFactor:  2.0,
		JitterFactor:   0.2,
	}
}

// RetryResult reports what a retried call cost.
type RetryResult struct {
	Attempts      int
	TotalDuration time.Duration
	LastError     error
}

// RetryableFunc is attempted until it succeeds, returns a non-retryable
// error, or attempts are exhausted.
type RetryableFunc func(ctx context.Context, attempt int) (Response, error)

// Retry executes fn with exponential backoff and jitter, following
// services/trace/context.Retry's shape: non-retryable errors return
// immediately, context cancellation is checked before every attempt and
// during every wait, and the final attempt never waits afterward.
func Retry(ctx context.Context, cfg RetryConfig, fn RetryableFunc) (Response, RetryResult, error) {
	start := time.Now()
	result := RetryResult{}
	backoff := cfg.InitialBackoff

	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		result.Attempts = attempt

		if err := ctx.Err(); err != nil {
			result.LastError = err
			result.TotalDuration = time.Since(start)
			return Response{}, result, err
		}

		resp, err := fn(ctx, attempt)
		if err == nil {
			result.TotalDuration = time.Since(start)
			return resp, result, nil
		}
		result.LastError = err

		if !IsRetryable(err) {
			result.TotalDuration = time.Since(start)
			return Response{}, result, err
		}
		if attempt == cfg.MaxAttempts {
			break
		}

		wait := jitter(backoff, cfg.JitterFactor)
		select {
		case <-ctx.Done():
			result.LastError = ctx.Err()
			result.TotalDuration = time.Since(start)
			return Response{}, result, ctx.Err()
		case <-time.After(wait):
		}
		backoff = nextBackoff(backoff, cfg.BackoffFactor, cfg.MaxBackoff)
	}

	result.TotalDuration = time.Since(start)
	return Response{}, result, result.LastError
}

func jitter(base time.Duration, jitterFactor float64) time.Duration {
	if jitterFactor <= 0 {
		return base
	}
	delta := (rand.Float64()*2 - 1) * jitterFactor
	return time.Duration(float64(base) * (1.0 + delta))
}

func nextBackoff(current time.Duration, factor float64, max time.Duration) time.Duration {
	next := time.Duration(float64(current) * factor)
	if next > max {
		return max
	}
	return next
}
