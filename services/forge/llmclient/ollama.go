// Copyright (c) 2026 Codeforge Contributors
// Licensed under the GNU Affero General Public License v3.0.
// See https://www.gnu.org/licenses/agpl-3.0.html for the full license text.

package llmclient

import (
	"context"
	"fmt"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"
)

// OllamaClient adapts github.com/tmc/langchaingo's llms.Model interface
// for a local/self-hosted Ollama server, demonstrating provider rotation
// against a non-OpenAI backend (SPEC_FULL.md §2.2).
type OllamaClient struct {
	model       llms.Model
	fastModel   string
	strongModel string
}

// NewOllamaClient connects to an Ollama server at endpoint (empty uses the
// langchaingo default of http://localhost:11434).
func NewOllamaClient(endpoint, fastModel, strongModel string) (*OllamaClient, error) {
	if fastModel == "" {
		fastModel = "llama3:8b"
	}
	if strongModel == "" {
		strongModel = "llama3:70b"
	}
	var opts []ollama.Option
	if endpoint != "" {
		opts = append(opts, ollama.WithServerURL(endpoint))
	}
	opts = append(opts, ollama.WithModel(strongModel))

	model, err := ollama.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("llmclient: ollama: %w", err)
	}
	return &OllamaClient{model: model, fastModel: fastModel, strongModel: strongModel}, nil
}

func (c *OllamaClient) Name() string { return "ollama" }

func (c *OllamaClient) Complete(ctx context.Context, req Request) (Response, error) {
	content := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, req.SystemPrompt),
		llms.TextParts(llms.ChatMessageTypeHuman, req.UserPrompt),
	}

	var callOpts []llms.CallOption
	if req.Params.MaxTokens != nil {
		callOpts = append(callOpts, llms.WithMaxTokens(*req.Params.MaxTokens))
	}
	if req.Params.Temperature != nil {
		callOpts = append(callOpts, llms.WithTemperature(float64(*req.Params.Temperature)))
	}
	if len(req.Params.Stop) > 0 {
		callOpts = append(callOpts, llms.WithStopWords(req.Params.Stop))
	}

	out, err := c.model.GenerateContent(ctx, content, callOpts...)
	if err != nil {
		return Response{}, wrapTransport("ollama", err)
	}
	if len(out.Choices) == 0 || out.Choices[0].Content == "" {
		return Response{}, ErrMalformedReply
	}

	tokens := 0
	if v, ok := out.Choices[0].GenerationInfo["TotalTokens"].(int); ok {
		tokens = v
	}

	return Response{
		Content:    out.Choices[0].Content,
		TokensUsed: tokens,
		Provider:   c.Name(),
	}, nil
}
