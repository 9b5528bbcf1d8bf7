// Copyright (c) 2026 Codeforge Contributors
// Licensed under the GNU Affero General Public License v3.0.
// See https://www.gnu.org/licenses/agpl-3.0.html for the full license text.

package llmclient

import (
	"context"
	"errors"
	"net/http"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAIClient adapts github.com/sashabaranov/go-openai to the Client
// capability interface. The API key lives only inside a Secret; Reveal is
// called once per request to avoid holding the decrypted key longer than
// necessary.
type OpenAIClient struct {
	secret      *Secret
	fastModel   string
	strongModel string
	newClient   func(apiKey string) *openai.Client
}

// NewOpenAIClient builds an adapter. fastModel/strongModel select which
// concrete model backs each Tier (SPEC_FULL.md §6: "honors tier hint by
// selecting a model").
func NewOpenAIClient(apiKey, fastModel, strongModel string) *OpenAIClient {
	if fastModel == "" {
		fastModel = openai.GPT4oMini
	}
	if strongModel == "" {
		strongModel = openai.GPT4o
	}
	return &OpenAIClient{
		secret:      NewSecret(apiKey),
		fastModel:   fastModel,
		strongModel: strongModel,
		newClient:   func(key string) *openai.Client { return openai.NewClient(key) },
	}
}

func (c *OpenAIClient) Name() string { return "openai" }

func (c *OpenAIClient) model(tier Tier) string {
	if tier == TierFast {
		return c.fastModel
	}
	return c.strongModel
}

func (c *OpenAIClient) Complete(ctx context.Context, req Request) (Response, error) {
	var resp Response
	err := c.secret.Reveal(func(apiKey string) error {
		client := c.newClient(apiKey)

		maxTokens := 4096
		if req.Params.MaxTokens != nil {
			maxTokens = *req.Params.MaxTokens
		}
		temperature := float32(0.2)
		if req.Params.Temperature != nil {
			temperature = *req.Params.Temperature
		}

		out, err := client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
			Model: c.model(req.Tier),
			Messages: []openai.ChatCompletionMessage{
				{Role: openai.ChatMessageRoleSystem, Content: req.SystemPrompt},
				{Role: openai.ChatMessageRoleUser, Content: req.UserPrompt},
			},
			MaxTokens:   maxTokens,
			Temperature: temperature,
			Stop:        req.Params.Stop,
		})
		if err != nil {
			return classifyOpenAIError(err)
		}
		if len(out.Choices) == 0 || out.Choices[0].Message.Content == "" {
			return ErrMalformedReply
		}

		resp = Response{
			Content:    out.Choices[0].Message.Content,
			TokensUsed: out.Usage.TotalTokens,
			Provider:   c.Name(),
		}
		return nil
	})
	return resp, err
}

func classifyOpenAIError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.HTTPStatusCode == http.StatusTooManyRequests:
			return errors.Join(ErrRateLimit, err)
		case apiErr.HTTPStatusCode == http.StatusUnauthorized || apiErr.HTTPStatusCode == http.StatusForbidden:
			return errors.Join(ErrQuotaExceeded, err)
		case apiErr.HTTPStatusCode >= 500:
			return errors.Join(ErrServerError, err)
		}
	}
	return wrapTransport("openai", err)
}
