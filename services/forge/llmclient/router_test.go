// Copyright (c) 2026 Codeforge Contributors
// Licensed under the GNU Affero General Public License v3.0.
// See https://www.gnu.org/licenses/agpl-3.0.html for the full license text.

package llmclient

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClient struct {
	name  string
	calls int
	fn    func(calls int) (Response, error)
}

func (f *fakeClient) Name() string { return f.name }

func (f *fakeClient) Complete(_ context.Context, _ Request) (Response, error) {
	f.calls++
	return f.fn(f.calls)
}

func TestRouterRetriesTransportErrors(t *testing.T) {
	c := &fakeClient{name: "flaky", fn: func(calls int) (Response, error) {
		if calls < 3 {
			return Response{}, ErrTransport
		}
		return Response{Content: "ok", Provider: "flaky"}, nil
	}}
	r := NewRouter([]Client{c}, WithRetryConfig(RetryConfig{
		MaxAttempts: 3, InitialBackoff: time.Millisecond, MaxBackoff: time.Millisecond, BackoffFactor: 1, JitterFactor: 0,
	}))

	resp, err := r.Complete(context.Background(), Request{})
	require.NoError(t, err)
	assert.Equal(t, "ok", resp.Content)
	assert.Equal(t, 3, c.calls)
}

func TestRouterRotatesOnQuotaExceeded(t *testing.T) {
	primary := &fakeClient{name: "primary", fn: func(int) (Response, error) {
		return Response{}, ErrQuotaExceeded
	}}
	fallback := &fakeClient{name: "fallback", fn: func(int) (Response, error) {
		return Response{Content: "fallback-ok", Provider: "fallback"}, nil
	}}
	r := NewRouter([]Client{primary, fallback}, WithRetryConfig(RetryConfig{
		MaxAttempts: 1, InitialBackoff: time.Millisecond, MaxBackoff: time.Millisecond, BackoffFactor: 1,
	}))

	resp, err := r.Complete(context.Background(), Request{})
	require.NoError(t, err)
	assert.Equal(t, "fallback-ok", resp.Content)
	assert.Equal(t, 1, primary.calls)
	assert.Equal(t, 1, fallback.calls)
}

func TestRouterDoesNotRetryNonRetryableErrors(t *testing.T) {
	c := &fakeClient{name: "strict", fn: func(int) (Response, error) {
		return Response{}, ErrSafetyBlock
	}}
	r := NewRouter([]Client{c})

	_, err := r.Complete(context.Background(), Request{})
	require.Error(t, err)
	assert.Equal(t, 1, c.calls)
}
