// Copyright (c) 2026 Codeforge Contributors
// Licensed under the GNU Affero General Public License v3.0.
// See https://www.gnu.org/licenses/agpl-3.0.html for the full license text.

package detail

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"text/template"

	"github.com/codeforge-dev/codeforge/services/forge/llmclient"
	"github.com/codeforge-dev/codeforge/services/forge/spec"
)

// LLMWorker is the default WorkerGenerator: one LLM call per file, with a
// kind-specific system-prompt preamble and the full Context bundle folded
// into the user prompt. SPEC_FULL.md §1 treats per-language worker
// generators as an external, named-interface collaborator; this is the
// reference implementation the pipeline ships so the whole thing runs
// end-to-end without every caller supplying their own five workers.
type LLMWorker struct {
	client  llmclient.Client
	kind    WorkerKind
	preamble string
}

var kindPreambles = map[WorkerKind]string{
	WorkerMarkup: "You write complete markup/config/text files (HTML, JSON, Markdown, env, shell). Respect every DOM id and class listed under Contracts verbatim.",
	WorkerScript: "You write complete JavaScript/TypeScript files. Respect every DOM id, IPC/API endpoint, storage key, and event name listed under Contracts verbatim; call dependency functions with the exact parameter shape their skeleton declares.",
	WorkerStyle:  "You write complete CSS/SCSS files. Style every selector named under Contracts' dom entries; do not invent selectors absent from the skeleton or Contracts.",
	WorkerPython: "You write complete Python files. Respect every API route path, method, and query-param name listed under Contracts verbatim.",
	WorkerSystem: "You write complete systems-language source files (C/C++/Go/Rust/Java/C#) matching the skeleton's declared signatures exactly.",
}

// NewLLMWorker builds a worker bound to one kind's preamble.
func NewLLMWorker(client llmclient.Client, kind WorkerKind) *LLMWorker {
	return &LLMWorker{client: client, kind: kind, preamble: kindPreambles[kind]}
}

// NewRegistry wires one LLMWorker per kind against a shared client,
// matching the "WorkerGenerator capability, one per file-kind" shape from
// SPEC_FULL.md §2.
func NewRegistry(client llmclient.Client) Registry {
	return Registry{
		WorkerMarkup: NewLLMWorker(client, WorkerMarkup),
		WorkerScript: NewLLMWorker(client, WorkerScript),
		WorkerStyle:  NewLLMWorker(client, WorkerStyle),
		WorkerPython: NewLLMWorker(client, WorkerPython),
		WorkerSystem: NewLLMWorker(client, WorkerSystem),
	}
}

func (w *LLMWorker) Generate(ctx context.Context, c Context) (Result, error) {
	userPrompt, err := w.buildUserPrompt(c)
	if err != nil {
		return Result{}, fmt.Errorf("detail: build prompt for %s: %w", c.File.Path, err)
	}

	resp, err := w.client.Complete(ctx, llmclient.Request{
		SystemPrompt: w.preamble + " Respond with ONLY the raw file body: no markdown fences, no commentary.",
		UserPrompt:   userPrompt,
		Tier:         llmclient.Tier(c.Tier),
	})
	if err != nil {
		return Result{}, err
	}
	if strings.TrimSpace(resp.Content) == "" {
		return Result{}, llmclient.ErrMalformedReply
	}

	return Result{
		Content:    stripFences(resp.Content),
		TokensUsed: resp.TokensUsed,
		Method:     methodFor(resp.Provider),
	}, nil
}

func methodFor(provider string) spec.GenerationMethod {
	if provider == "mock" {
		return spec.MethodMockFallback
	}
	return spec.MethodWorkerLLM
}

var userPromptTemplate = template.Must(template.New("detail-user").Parse(
	`File: {{.File.Path}}
Description: {{.File.Description}}
{{- if .File.Requirements}}
Requirements:
{{- range .File.Requirements}}
  - {{.}}
{{- end}}
{{- end}}

Skeleton for this file:
` + "```" + `
{{.Skeleton}}
` + "```" + `
{{- if .File.Template}}

Starting template (use as a stronger skeleton, extend rather than discard):
` + "```" + `
{{.File.Template}}
` + "```" + `
{{- end}}
{{- if .DependencyBodies}}

Already-generated dependency bodies this file can rely on:
{{- range $path, $body := .DependencyBodies}}

--- {{$path}} ---
{{$body}}
{{- end}}
{{- end}}
{{- if .ContractNotes}}

Existing cross-file contracts to honor verbatim:
{{- range .ContractNotes}}
  - {{.}}
{{- end}}
{{- end}}
{{- if .Exemplar}}

A similar file generated previously, for style guidance only (do not copy
identifiers from it that conflict with this file's own contracts):
` + "```" + `
{{.Exemplar}}
` + "```" + `
{{- end}}
`))

type templateData struct {
	File             spec.FileSpec
	Skeleton         string
	DependencyBodies map[string]string
	ContractNotes    []string
	Exemplar         string
}

func (w *LLMWorker) buildUserPrompt(c Context) (string, error) {
	var notes []string
	if c.Contracts != nil {
		for _, e := range c.Contracts.AllEntries() {
			notes = append(notes, string(e.Kind)+": "+e.Key)
		}
	}
	sort.Strings(notes)

	var b strings.Builder
	err := userPromptTemplate.Execute(&b, templateData{
		File:             c.File,
		Skeleton:         c.Skeleton,
		DependencyBodies: c.DependencyBodies,
		ContractNotes:    notes,
		Exemplar:         c.Exemplar,
	})
	return b.String(), err
}

func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	lines := strings.SplitN(s, "\n", 2)
	if len(lines) < 2 {
		return s
	}
	body := lines[1]
	body = strings.TrimSuffix(strings.TrimRight(body, "\n"), "```")
	return strings.TrimSpace(body)
}
