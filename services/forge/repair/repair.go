// Copyright (c) 2026 Codeforge Contributors
// Licensed under the GNU Affero General Public License v3.0.
// See https://www.gnu.org/licenses/agpl-3.0.html for the full license text.

// Package repair implements the ContractRepairAgent, SPEC_FULL.md §4.9: a
// single LLM-backed round applied to whatever issues survive validation and
// auto-fix. One focused prompt per affected file, the reply parsed as a
// full-file replacement; an unparseable reply fails that file's repair
// without retry. The loop itself does not call the LLM more than once per
// file (§9 "LLM-as-control-flow": one repair round only, bounded cost).
package repair

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/sourcegraph/go-diff/diff"

	"github.com/codeforge-dev/codeforge/services/forge/llmclient"
	"github.com/codeforge-dev/codeforge/services/forge/spec"
	"github.com/codeforge-dev/codeforge/services/forge/validate"
)

// Outcome is one file's repair attempt.
type Outcome struct {
	Path    string          `json:"path"`
	Issues  []validate.Issue `json:"issues"`
	Applied bool            `json:"applied"`
	Reason  string          `json:"reason,omitempty"`
	Diff    string          `json:"diff,omitempty"`
}

// Result is ContractRepairAgent's output.
type Result struct {
	Files    []spec.GeneratedFile `json:"files"`
	Outcomes []Outcome            `json:"outcomes"`
}

// Agent drives one repair round against an LLMClient.
type Agent struct {
	client llmclient.Client
}

// New builds a ContractRepairAgent bound to client.
func New(client llmclient.Client) *Agent {
	return &Agent{client: client}
}

// Repair groups residualIssues by offending file and asks the LLM to
// replace each affected file's full body once. Files untouched by any
// issue pass through unchanged.
func (a *Agent) Repair(ctx context.Context, files []spec.GeneratedFile, residualIssues []validate.Issue) *Result {
	content := make(map[string]string, len(files))
	byPath := make(map[string]spec.GeneratedFile, len(files))
	for _, f := range files {
		content[f.Path] = f.Content
		byPath[f.Path] = f
	}

	byFile := groupByFile(residualIssues)
	paths := make([]string, 0, len(byFile))
	for p := range byFile {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	outcomes := make([]Outcome, 0, len(paths))
	for _, path := range paths {
		issues := byFile[path]
		f, ok := byPath[path]
		if !ok {
			// Issue references a file outside the generated set (e.g. a
			// second path in a cross-file issue); nothing to repair here.
			continue
		}

		before := content[path]
		after, err := a.repairOne(ctx, f, before, issues)
		if err != nil {
			outcomes = append(outcomes, Outcome{Path: path, Issues: issues, Applied: false, Reason: err.Error()})
			continue
		}

		content[path] = after
		outcomes = append(outcomes, Outcome{
			Path:    path,
			Issues:  issues,
			Applied: true,
			Diff:    renderDiff(path, before, after),
		})
	}

	out := make([]spec.GeneratedFile, len(files))
	for i, f := range files {
		f.Content = content[f.Path]
		out[i] = f
	}
	return &Result{Files: out, Outcomes: outcomes}
}

// groupByFile assigns each issue to every path it names. An issue naming
// two paths (e.g. select-option-case-mismatch) is repaired from each
// file's own perspective independently.
func groupByFile(issues []validate.Issue) map[string][]validate.Issue {
	out := map[string][]validate.Issue{}
	for _, issue := range issues {
		for _, p := range issue.Paths {
			out[p] = append(out[p], issue)
		}
	}
	return out
}

func (a *Agent) repairOne(ctx context.Context, f spec.GeneratedFile, before string, issues []validate.Issue) (string, error) {
	userPrompt, err := buildUserPrompt(f, before, issues)
	if err != nil {
		return "", fmt.Errorf("repair: build prompt for %s: %w", f.Path, err)
	}

	resp, err := a.client.Complete(ctx, llmclient.Request{
		SystemPrompt: systemPrompt,
		UserPrompt:   userPrompt,
		Tier:         llmclient.TierStrong,
	})
	if err != nil {
		return "", fmt.Errorf("repair: %s: %w", f.Path, err)
	}

	patched := stripFences(resp.Content)
	if strings.TrimSpace(patched) == "" {
		return "", fmt.Errorf("repair: %s: %w", f.Path, llmclient.ErrMalformedReply)
	}
	return patched, nil
}

func renderDiff(path, before, after string) string {
	d := &diff.FileDiff{
		OrigName: "a/" + path,
		NewName:  "b/" + path,
		Hunks: []*diff.Hunk{{
			OrigStartLine: 1,
			OrigLines:     int32(len(splitLines(before))),
			NewStartLine:  1,
			NewLines:      int32(len(splitLines(after))),
			Body:          []byte(hunkBody(before, after)),
		}},
	}
	b, err := diff.PrintFileDiff(d)
	if err != nil {
		return fmt.Sprintf("--- a/%s\n+++ b/%s\n-%s\n+%s\n", path, path, before, after)
	}
	return string(b)
}

func hunkBody(before, after string) string {
	var b strings.Builder
	for _, line := range splitLines(before) {
		b.WriteString("-" + line + "\n")
	}
	for _, line := range splitLines(after) {
		b.WriteString("+" + line + "\n")
	}
	return b.String()
}

func splitLines(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(strings.TrimRight(s, "\n"), "\n")
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
