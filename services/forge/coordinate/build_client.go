// Copyright (c) 2026 Codeforge Contributors
// Licensed under the GNU Affero General Public License v3.0.
// See https://www.gnu.org/licenses/agpl-3.0.html for the full license text.

package coordinate

import (
	"fmt"

	"github.com/codeforge-dev/codeforge/services/forge/config"
	"github.com/codeforge-dev/codeforge/services/forge/llmclient"
)

// buildClient turns a CoordinatorConfig's provider selection into a
// concrete llmclient.Client: ProviderAuto rotates OpenAI then Ollama via a
// Router (SPEC_FULL.md §5, "the next provider is tried for that call"),
// a named provider skips straight to that one adapter, and UseMock always
// wins so tests and offline runs never need real credentials.
func buildClient(cfg config.CoordinatorConfig) (llmclient.Client, error) {
	if cfg.UseMock {
		return &llmclient.MockClient{}, nil
	}

	switch cfg.Provider {
	case config.ProviderMock:
		return &llmclient.MockClient{}, nil
	case config.ProviderOpenAI:
		return llmclient.NewOpenAIClient(cfg.ProviderAPIKeys[config.ProviderOpenAI], "", ""), nil
	case config.ProviderOllama:
		return llmclient.NewOllamaClient(cfg.ProviderEndpoints[config.ProviderOllama], "", "")
	case config.ProviderAuto, "":
		var providers []llmclient.Client
		if key := cfg.ProviderAPIKeys[config.ProviderOpenAI]; key != "" {
			providers = append(providers, llmclient.NewOpenAIClient(key, "", ""))
		}
		if endpoint, ok := cfg.ProviderEndpoints[config.ProviderOllama]; ok {
			ollama, err := llmclient.NewOllamaClient(endpoint, "", "")
			if err != nil {
				return nil, fmt.Errorf("coordinate: build ollama client: %w", err)
			}
			providers = append(providers, ollama)
		}
		if len(providers) == 0 {
			return &llmclient.MockClient{}, nil
		}
		return llmclient.NewRouter(providers), nil
	default:
		return nil, fmt.Errorf("coordinate: unknown provider %q", cfg.Provider)
	}
}
