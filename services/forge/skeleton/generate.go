// Copyright (c) 2026 Codeforge Contributors
// Licensed under the GNU Affero General Public License v3.0.
// See https://www.gnu.org/licenses/agpl-3.0.html for the full license text.

// Package skeleton implements Phase 1 of the pipeline: batch files by
// language, ask the LLMClient for a structural-only skeleton per file, and
// tolerantly parse the reply. Prompt construction follows the reference
// routing prompt's template-based, JSON-only-output style; the one-retry
// then fallback-shell rule is this package's own (SPEC_FULL.md §4.3/§7).
package skeleton

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/codeforge-dev/codeforge/services/forge/llmclient"
	"github.com/codeforge-dev/codeforge/services/forge/spec"
)

// Generator is the SkeletonGenerator capability: generate_skeletons(files,
// contracts) -> map[path -> text] in SPEC_FULL.md §4.3 terms.
type Generator struct {
	client       llmclient.Client
	maxBatch     int
	batchDelay   time.Duration
}

// New builds a Generator. A maxBatch below 1 is rejected by config.New and
// treated as 1 by batchByLanguage; this constructor trusts its input.
func New(client llmclient.Client, maxBatch int, batchDelay time.Duration) *Generator {
	return &Generator{client: client, maxBatch: maxBatch, batchDelay: batchDelay}
}

// GenerateAll batches files by language, calls the LLM once per batch, and
// returns a complete path -> skeleton map. Every requested path is present
// in the result (post-condition from §4.3), even when both prompt attempts
// for its batch fail — a fallback shell fills the gap.
func (g *Generator) GenerateAll(ctx context.Context, summary string, files []spec.FileSpec, contracts *spec.Contracts) (map[string]string, error) {
	out := make(map[string]string, len(files))

	var generated, templated []spec.FileSpec
	for _, f := range files {
		if f.IsAutoGenerated || f.Template != "" {
			templated = append(templated, f)
			continue
		}
		generated = append(generated, f)
	}
	for _, f := range templated {
		out[f.Path] = f.Template
	}

	for _, batch := range batchByLanguage(generated, g.maxBatch) {
		skeletons, err := g.generateBatch(ctx, summary, batch, contracts)
		if err != nil {
			return nil, fmt.Errorf("skeleton: batch %v: %w", batchPaths(batch), err)
		}
		for path, text := range skeletons {
			out[path] = text
		}
		if g.batchDelay > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(g.batchDelay):
			}
		}
	}

	// Post-condition: every requested path has an entry, and nothing
	// outside the requested set does.
	requested := make(map[string]bool, len(files))
	for _, f := range files {
		requested[f.Path] = true
		if _, ok := out[f.Path]; !ok {
			out[f.Path] = fallbackSkeleton(f)
		}
	}
	for path := range out {
		if !requested[path] {
			delete(out, path)
		}
	}
	return out, nil
}

// generateBatch issues one LLM call for a same-language batch, retrying the
// prompt once on an unparseable reply before falling back to per-file
// empty shells (SPEC_FULL.md §7: "one retry at call site; on second
// failure, fall back").
func (g *Generator) generateBatch(ctx context.Context, summary string, batch []spec.FileSpec, contracts *spec.Contracts) (map[string]string, error) {
	sysPrompt, err := buildSystemPrompt()
	if err != nil {
		return nil, err
	}
	userPrompt, err := buildUserPrompt(promptData{Summary: summary, Files: batch, ContractNotes: contractNotes(contracts)})
	if err != nil {
		return nil, err
	}

	req := llmclient.Request{SystemPrompt: sysPrompt, UserPrompt: userPrompt, Tier: llmclient.TierFast}

	var lastErr error
	for attempt := 0; attempt < 2; attempt++ {
		resp, err := g.client.Complete(ctx, req)
		if err != nil {
			lastErr = err
			continue
		}
		parsed, err := tolerantParseBatch(resp.Content)
		if err != nil {
			lastErr = err
			continue
		}
		return parsed, nil
	}

	result := make(map[string]string, len(batch))
	for _, f := range batch {
		result[f.Path] = fallbackSkeleton(f)
	}
	return result, nil
}

// batchByLanguage groups files by Language (falling back to the file
// extension when Language is empty) and chunks each group into batches of
// at most maxBatch, holding file order stable within a language.
func batchByLanguage(files []spec.FileSpec, maxBatch int) [][]spec.FileSpec {
	if maxBatch < 1 {
		maxBatch = 1
	}
	byLang := map[string][]spec.FileSpec{}
	var langs []string
	for _, f := range files {
		lang := f.Language
		if lang == "" {
			lang = extOf(f.Path)
		}
		if _, ok := byLang[lang]; !ok {
			langs = append(langs, lang)
		}
		byLang[lang] = append(byLang[lang], f)
	}
	sort.Strings(langs)

	var batches [][]spec.FileSpec
	for _, lang := range langs {
		group := byLang[lang]
		for i := 0; i < len(group); i += maxBatch {
			end := i + maxBatch
			if end > len(group) {
				end = len(group)
			}
			batches = append(batches, group[i:end])
		}
	}
	return batches
}

func extOf(path string) string {
	for i := len(path) - 1; i >= 0 && path[i] != '/'; i-- {
		if path[i] == '.' {
			return path[i:]
		}
	}
	return ""
}

func batchPaths(batch []spec.FileSpec) []string {
	out := make([]string, len(batch))
	for i, f := range batch {
		out[i] = f.Path
	}
	return out
}

// fallbackSkeleton returns a minimal language-appropriate empty shell for a
// file whose skeleton batch could not be parsed, per SPEC_FULL.md §4.3/§7.
func fallbackSkeleton(f spec.FileSpec) string {
	switch extOf(f.Path) {
	case ".html", ".htm":
		return "<!DOCTYPE html>\n<html>\n<head></head>\n<body></body>\n</html>\n"
	case ".css", ".scss", ".sass", ".less":
		return "/* " + f.Description + " */\n"
	case ".py":
		return "\"\"\"" + f.Description + "\"\"\"\n"
	case ".json":
		return "{}\n"
	default:
		return "// " + f.Description + "\n"
	}
}
