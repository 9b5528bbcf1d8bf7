// Copyright (c) 2026 Codeforge Contributors
// Licensed under the GNU Affero General Public License v3.0.
// See https://www.gnu.org/licenses/agpl-3.0.html for the full license text.

package llmclient

import "context"

// MockClient bypasses real LLM calls entirely (CoordinatorConfig.UseMock),
// returning a caller-supplied canned response or a deterministic echo of
// the prompt. Used by the pipeline's own tests and by callers who want to
// exercise the pipeline's wiring without spending LLM budget.
type MockClient struct {
	// Respond, if set, is called for every request; its return value is
	// used verbatim. If nil, Complete echoes a minimal deterministic body.
	Respond func(req Request) (Response, error)
}

func (m *MockClient) Complete(_ context.Context, req Request) (Response, error) {
	if m.Respond != nil {
		return m.Respond(req)
	}
	return Response{
		Content:    "// mock generated content\n",
		TokensUsed: len(req.UserPrompt) / 4,
		Provider:   "mock",
	}, nil
}

func (m *MockClient) Name() string { return "mock" }
