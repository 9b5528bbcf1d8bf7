// Copyright (c) 2026 Codeforge Contributors
// Licensed under the GNU Affero General Public License v3.0.
// See https://www.gnu.org/licenses/agpl-3.0.html for the full license text.

package detail

import (
	"context"
	"fmt"

	"github.com/weaviate/weaviate-go-client/v5/weaviate"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/graphql"
)

// ExemplarClassName is the Weaviate class previously generated file bodies
// are indexed under, keyed by a near-text search over their description.
const ExemplarClassName = "CodeforgeExemplar"

// ExemplarProvider retrieves a similar previously generated file, used as
// optional few-shot context for a worker (SPEC_FULL.md §2's enrichment
// extension point; not part of the core spec's required contract). Nil is
// a valid, always-empty provider.
type ExemplarProvider interface {
	Lookup(ctx context.Context, description string) (string, error)
}

// WeaviateExemplarProvider is grounded on the reference memory store's
// GraphQL().Get() query-building shape, narrowed to a single near-text
// lookup against one field.
type WeaviateExemplarProvider struct {
	client *weaviate.Client
}

// NewWeaviateExemplarProvider wraps an already-constructed Weaviate client.
func NewWeaviateExemplarProvider(client *weaviate.Client) *WeaviateExemplarProvider {
	return &WeaviateExemplarProvider{client: client}
}

func (p *WeaviateExemplarProvider) Lookup(ctx context.Context, description string) (string, error) {
	if p == nil || p.client == nil || description == "" {
		return "", nil
	}

	nearText := p.client.GraphQL().NearTextArgBuilder().WithConcepts([]string{description})

	result, err := p.client.GraphQL().Get().
		WithClassName(ExemplarClassName).
		WithFields(graphql.Field{Name: "content"}, graphql.Field{Name: "description"}).
		WithNearText(nearText).
		WithLimit(1).
		Do(ctx)
	if err != nil {
		return "", fmt.Errorf("detail: exemplar lookup: %w", err)
	}
	if result.Errors != nil && len(result.Errors) > 0 {
		return "", fmt.Errorf("detail: exemplar query error: %s", result.Errors[0].Message)
	}

	data, ok := result.Data["Get"].(map[string]any)
	if !ok {
		return "", nil
	}
	rows, ok := data[ExemplarClassName].([]any)
	if !ok || len(rows) == 0 {
		return "", nil
	}
	row, ok := rows[0].(map[string]any)
	if !ok {
		return "", nil
	}
	content, _ := row["content"].(string)
	return content, nil
}

// NoExemplarProvider always returns an empty exemplar, used when
// CoordinatorConfig.ExemplarEndpoint is unset.
type NoExemplarProvider struct{}

func (NoExemplarProvider) Lookup(context.Context, string) (string, error) { return "", nil }
