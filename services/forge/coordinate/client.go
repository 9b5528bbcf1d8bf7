// Copyright (c) 2026 Codeforge Contributors
// Licensed under the GNU Affero General Public License v3.0.
// See https://www.gnu.org/licenses/agpl-3.0.html for the full license text.

package coordinate

import (
	"context"

	"github.com/codeforge-dev/codeforge/services/forge/cache"
	"github.com/codeforge-dev/codeforge/services/forge/llmclient"
)

// cachingClient wraps a Client with ResponseCache's content-hash lookup,
// SPEC_FULL.md §2.3: "optional, off by default." withCache returns inner
// unchanged when the cache is nil, so New can call it unconditionally.
type cachingClient struct {
	inner llmclient.Client
	cache *cache.ResponseCache
}

func withCache(inner llmclient.Client, c *cache.ResponseCache) llmclient.Client {
	if c == nil {
		return inner
	}
	return &cachingClient{inner: inner, cache: c}
}

func (c *cachingClient) Name() string { return c.inner.Name() }

func (c *cachingClient) Complete(ctx context.Context, req llmclient.Request) (llmclient.Response, error) {
	key := cache.Key(c.inner.Name(), string(req.Tier), req.SystemPrompt, req.UserPrompt)

	var cached llmclient.Response
	if hit, err := c.cache.Get(key, &cached); err == nil && hit {
		return cached, nil
	}

	resp, err := c.inner.Complete(ctx, req)
	if err != nil {
		return resp, err
	}
	_ = c.cache.Set(key, resp)
	return resp, nil
}
