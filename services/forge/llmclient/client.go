// Copyright (c) 2026 Codeforge Contributors
// Licensed under the GNU Affero General Public License v3.0.
// See https://www.gnu.org/licenses/agpl-3.0.html for the full license text.

// Package llmclient is the LLMClient capability from SPEC_FULL.md §6: issue
// a prompt, get back text and a token count, with provider routing, retry
// on transient failures, and rate-limit backoff. The retry/backoff shape is
// carried over from the reference retry helper near verbatim; provider
// rotation and rate limiting are new to this package.
package llmclient

import (
	"context"
	"errors"
	"fmt"
)

// Tier hints which model class a call should use. Workers pick the tier;
// the Client decides which concrete model that maps to per provider.
type Tier string

const (
	TierFast   Tier = "fast"
	TierStrong Tier = "strong"
)

// GenerationParams mirrors the reference services/llm.GenerationParams
// shape: every optional numeric knob is a pointer so nil means "use the
// provider's default" rather than a Go zero value silently overriding it.
type GenerationParams struct {
	Temperature *float32
	TopP        *float32
	MaxTokens   *int
	Stop        []string
}

// Request is one call to Complete.
type Request struct {
	SystemPrompt string
	UserPrompt   string
	Tier         Tier
	Params       GenerationParams
}

// Response is the result of a successful call.
type Response struct {
	Content    string
	TokensUsed int
	Provider   string
}

// Sentinel error kinds from SPEC_FULL.md §6. LLMError wraps the most
// specific one that applies; callers use errors.Is against these.
var (
	ErrTransport      = errors.New("llm: transport error")
	ErrRateLimit      = errors.New("llm: rate limited")
	ErrSafetyBlock    = errors.New("llm: safety blocked")
	ErrQuotaExceeded  = errors.New("llm: quota exceeded")
	ErrServerError    = errors.New("llm: server error")
	ErrMalformedReply = errors.New("llm: malformed reply")
)

// Client is the capability interface every provider adapter implements.
type Client interface {
	// Complete issues one prompt and returns text plus a token count.
	Complete(ctx context.Context, req Request) (Response, error)
	// Name identifies the provider for logging/metrics/rotation.
	Name() string
}

// IsRetryable classifies an error the way services/trace/context.Retry
// does: transport, 5xx and rate-limit (429) errors are retried; other
// 4xx/validation errors are not.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	switch {
	case errors.Is(err, ErrTransport), errors.Is(err, ErrServerError), errors.Is(err, ErrRateLimit):
		return true
	case errors.Is(err, ErrSafetyBlock), errors.Is(err, ErrQuotaExceeded), errors.Is(err, ErrMalformedReply):
		return false
	}
	return false
}

// IsProviderExhausted reports whether err means "this provider is done for
// this call" (quota/auth, or a safety block) so the Router should try the next configured
// provider, per SPEC_FULL.md §5: "if ... one returns quota/auth failure,
// the next provider is tried for that call."
func IsProviderExhausted(err error) bool {
	return errors.Is(err, ErrQuotaExceeded) || errors.Is(err, ErrSafetyBlock)
}

func wrapTransport(provider string, err error) error {
	return fmt.Errorf("%s: %w: %v", provider, ErrTransport, err)
}
