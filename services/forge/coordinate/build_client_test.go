// Copyright (c) 2026 Codeforge Contributors
// Licensed under the GNU Affero General Public License v3.0.
// See https://www.gnu.org/licenses/agpl-3.0.html for the full license text.

package coordinate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codeforge-dev/codeforge/services/forge/config"
	"github.com/codeforge-dev/codeforge/services/forge/llmclient"
)

func TestBuildClientUseMockWinsOverProvider(t *testing.T) {
	cfg, err := config.New(config.WithUseMock(true), config.WithProvider(config.ProviderOpenAI))
	require.NoError(t, err)

	client, err := buildClient(cfg)
	require.NoError(t, err)
	assert.Equal(t, "mock", client.Name())
}

func TestBuildClientNamedProviderSkipsRouting(t *testing.T) {
	cfg, err := config.New(config.WithProvider(config.ProviderOpenAI), config.WithProviderCredential(config.ProviderOpenAI, "sk-test", ""))
	require.NoError(t, err)

	client, err := buildClient(cfg)
	require.NoError(t, err)
	_, ok := client.(*llmclient.OpenAIClient)
	assert.True(t, ok)
}

func TestBuildClientAutoWithNoCredentialsFallsBackToMock(t *testing.T) {
	cfg, err := config.New()
	require.NoError(t, err)

	client, err := buildClient(cfg)
	require.NoError(t, err)
	assert.Equal(t, "mock", client.Name())
}

func TestBuildClientAutoRoutesAcrossConfiguredProviders(t *testing.T) {
	cfg, err := config.New(
		config.WithProviderCredential(config.ProviderOpenAI, "sk-test", ""),
		config.WithProviderCredential(config.ProviderOllama, "", "http://localhost:11434"),
	)
	require.NoError(t, err)

	client, err := buildClient(cfg)
	require.NoError(t, err)
	_, ok := client.(*llmclient.Router)
	assert.True(t, ok)
}

func TestBuildClientUnknownProviderErrors(t *testing.T) {
	cfg, err := config.New(config.WithProvider("carrier-pigeon"))
	require.NoError(t, err)

	_, err = buildClient(cfg)
	assert.Error(t, err)
}
