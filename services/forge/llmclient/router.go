// Copyright (c) 2026 Codeforge Contributors
// Licensed under the GNU Affero General Public License v3.0.
// See https://www.gnu.org/licenses/agpl-3.0.html for the full license text.

package llmclient

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/time/rate"
)

// Router composes a list of provider Clients with a per-provider rate
// limiter and retries each call with backoff, rotating to the next
// provider on a quota/auth failure (SPEC_FULL.md §5).
type Router struct {
	providers []Client
	limiters  map[string]*rate.Limiter
	retry     RetryConfig
	logger    *slog.Logger
}

// RouterOption configures a Router at construction.
type RouterOption func(*Router)

// WithRetryConfig overrides the default retry/backoff policy.
func WithRetryConfig(cfg RetryConfig) RouterOption {
	return func(r *Router) { r.retry = cfg }
}

// WithRateLimit sets requests-per-second and burst for a named provider.
// Providers with no configured limit are unthrottled.
func WithRateLimit(providerName string, rps float64, burst int) RouterOption {
	return func(r *Router) {
		if r.limiters == nil {
			r.limiters = map[string]*rate.Limiter{}
		}
		r.limiters[providerName] = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

func WithLogger(l *slog.Logger) RouterOption {
	return func(r *Router) { r.logger = l }
}

// NewRouter builds a Router that tries providers in the given order,
// rotating past any that return a provider-exhausted error.
func NewRouter(providers []Client, opts ...RouterOption) *Router {
	r := &Router{
		providers: providers,
		limiters:  map[string]*rate.Limiter{},
		retry:     DefaultRetryConfig(),
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Complete tries each provider in order. Within a provider, Complete is
// retried per r.retry; across providers, a quota/auth failure rotates to
// the next one without consuming that provider's retry budget further.
func (r *Router) Complete(ctx context.Context, req Request) (Response, error) {
	if len(r.providers) == 0 {
		return Response{}, fmt.Errorf("llmclient: no providers configured")
	}

	var lastErr error
	for _, provider := range r.providers {
		if limiter, ok := r.limiters[provider.Name()]; ok {
			if err := limiter.Wait(ctx); err != nil {
				return Response{}, fmt.Errorf("llmclient: rate limiter wait for %s: %w", provider.Name(), err)
			}
		}

		resp, _, err := Retry(ctx, r.retry, func(ctx context.Context, attempt int) (Response, error) {
			if attempt > 1 {
				r.logger.Warn("llm retrying", slog.String("provider", provider.Name()), slog.Int("attempt", attempt))
			}
			return provider.Complete(ctx, req)
		})
		if err == nil {
			return resp, nil
		}
		lastErr = err

		if IsProviderExhausted(err) {
			r.logger.Warn("llm provider exhausted, rotating", slog.String("provider", provider.Name()), slog.String("error", err.Error()))
			continue
		}
		return Response{}, err
	}
	return Response{}, fmt.Errorf("llmclient: all providers failed: %w", lastErr)
}

// Name identifies the router itself for logging when it is used directly
// as a Client (e.g. by tests that don't care which provider served a call).
func (r *Router) Name() string { return "router" }
