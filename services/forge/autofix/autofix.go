// Copyright (c) 2026 Codeforge Contributors
// Licensed under the GNU Affero General Public License v3.0.
// See https://www.gnu.org/licenses/agpl-3.0.html for the full license text.

// Package autofix implements the ContractAutoFixer: deterministic,
// idempotent mechanical repairs for the issue kinds SPEC_FULL.md §4.8
// declares fixable, with every repair logged as a unified diff. Grounded
// on the reference multi-file coordinator's plan/preview/diff shape
// (PlanChanges -> PreviewChanges -> generateFileDiff), adapted from its
// hand-rolled hunk struct to the go-diff library's FileDiff/Hunk so the
// rendered diff is a real unified-diff document rather than a bespoke
// before/after pair.
package autofix

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/sourcegraph/go-diff/diff"

	"github.com/codeforge-dev/codeforge/services/forge/spec"
	"github.com/codeforge-dev/codeforge/services/forge/validate"
)

// Outcome records one issue's fix attempt, SPEC_FULL.md §4.8's "per-issue
// success/failure list".
type Outcome struct {
	Issue   validate.Issue `json:"issue"`
	Applied bool           `json:"applied"`
	// Reason explains why Applied is false: either the issue kind is
	// declared unfixable, or no safe rewrite target could be found.
	Reason string `json:"reason,omitempty"`
	Diff   string `json:"diff,omitempty"`
}

// Result is ContractAutoFixer's output.
type Result struct {
	Files    []spec.GeneratedFile `json:"-"`
	Outcomes []Outcome            `json:"outcomes"`
}

// Fix applies every deterministic repair §4.8 describes, in issue order,
// and declares the rest unfixable (deferred to repair, §4.9). Fixing is
// idempotent: once a rename or rewrite lands, the condition that produced
// the issue is gone, so re-running Fix against a fresh validation of the
// same tree finds nothing left to do.
func Fix(files []spec.GeneratedFile, result *validate.Result) *Result {
	content := make(map[string]string, len(files))
	var order []string
	byPath := make(map[string]spec.GeneratedFile, len(files))
	for _, f := range files {
		content[f.Path] = f.Content
		byPath[f.Path] = f
		order = append(order, f.Path)
	}

	outcomes := make([]Outcome, 0, result.Summary.Total)
	for _, issue := range result.AllIssues() {
		outcomes = append(outcomes, apply(issue, content))
	}

	out := make([]spec.GeneratedFile, 0, len(order))
	for _, p := range order {
		f := byPath[p]
		f.Content = content[p]
		out = append(out, f)
	}
	return &Result{Files: out, Outcomes: outcomes}
}

func apply(issue validate.Issue, content map[string]string) Outcome {
	switch issue.Kind {
	case validate.KindNameMismatch:
		return fixNameMismatch(issue, content)
	case validate.KindNamingStyleMismatch:
		return fixNamingStyleMismatch(issue, content)
	case validate.KindMissingProducer:
		return fixMissingProducer(issue, content)
	case validate.KindMissingConsumer:
		return Outcome{Issue: issue, Reason: "auto-fix does not delete or synthesize consumers, only reports"}
	case validate.KindParameterShapeMismatch:
		return fixParameterShape(issue, content)
	case validate.KindSelectOptionCaseMismatch:
		return fixSelectOptionCase(issue, content)
	case validate.KindPathReferenceError:
		return fixPathReference(issue, content)
	case validate.KindExportSyntaxError:
		return fixExportSyntax(issue, content)
	case validate.KindSchemaMismatch:
		return Outcome{Issue: issue, Reason: "schema conflicts require judgment; deferred to ContractRepairAgent"}
	case validate.KindSyntaxError:
		return Outcome{Issue: issue, Reason: "malformed source requires an LLM rewrite; deferred to ContractRepairAgent"}
	}
	return Outcome{Issue: issue, Reason: "unrecognized issue kind"}
}

// identifierRe matches key only when it is not flanked by word characters
// or hyphens, so a rename never touches a longer identifier that merely
// contains key as a substring.
func identifierRe(key string) *regexp.Regexp {
	return regexp.MustCompile(`(^|[^\w-])` + regexp.QuoteMeta(key) + `($|[^\w-])`)
}

func renameEverywhere(from, to string, content map[string]string) (diffs []string, changed bool) {
	re := identifierRe(from)
	for path, body := range content {
		if !re.MatchString(body) {
			continue
		}
		after := re.ReplaceAllString(body, "${1}"+to+"${2}")
		if after == body {
			continue
		}
		diffs = append(diffs, renderDiff(path, body, after))
		content[path] = after
		changed = true
	}
	return diffs, changed
}

func fixNameMismatch(issue validate.Issue, content map[string]string) Outcome {
	if issue.Canonical == "" {
		return Outcome{Issue: issue, Reason: "no canonical spelling determined"}
	}
	var allDiffs []string
	applied := false
	for _, key := range issue.Keys {
		if key == issue.Canonical {
			continue
		}
		diffs, changed := renameEverywhere(key, issue.Canonical, content)
		allDiffs = append(allDiffs, diffs...)
		applied = applied || changed
	}
	if !applied {
		return Outcome{Issue: issue, Reason: "no reference to the non-canonical spelling found in any file"}
	}
	return Outcome{Issue: issue, Applied: true, Diff: strings.Join(allDiffs, "\n")}
}

var (
	kebabSplitRe = regexp.MustCompile(`[-_]+`)
	camelWordRe  = regexp.MustCompile(`[A-Z]?[a-z0-9]+|[A-Z]+(?:[A-Z][a-z0-9]|$)`)
)

func toKebab(key string) string {
	if strings.HasPrefix(key, ".") || strings.HasPrefix(key, "/") {
		return key // class selectors / routes: leave the non-identifier prefix alone
	}
	words := camelWordRe.FindAllString(key, -1)
	for i, w := range words {
		words[i] = strings.ToLower(w)
	}
	return strings.Join(words, "-")
}

func toCamel(key string) string {
	parts := kebabSplitRe.Split(key, -1)
	var b strings.Builder
	for i, p := range parts {
		if p == "" {
			continue
		}
		if i == 0 {
			b.WriteString(strings.ToLower(p[:1]) + p[1:])
			continue
		}
		b.WriteString(strings.ToUpper(p[:1]) + p[1:])
	}
	return b.String()
}

// fixNamingStyleMismatch converts every key that doesn't match the winning
// convention to that convention, then renames it in place everywhere.
func fixNamingStyleMismatch(issue validate.Issue, content map[string]string) Outcome {
	convert := toKebab
	isConforming := func(k string) bool { return !strings.ContainsAny(k, "ABCDEFGHIJKLMNOPQRSTUVWXYZ") }
	if issue.Canonical == "camel" {
		convert = toCamel
		isConforming = func(k string) bool { return !strings.Contains(k, "-") }
	}

	var allDiffs []string
	applied := false
	for _, key := range issue.Keys {
		if isConforming(key) {
			continue
		}
		target := convert(key)
		if target == "" || target == key {
			continue
		}
		diffs, changed := renameEverywhere(key, target, content)
		allDiffs = append(allDiffs, diffs...)
		applied = applied || changed
	}
	if !applied {
		return Outcome{Issue: issue, Reason: "no non-conforming spelling found to convert"}
	}
	return Outcome{Issue: issue, Applied: true, Diff: strings.Join(allDiffs, "\n")}
}

var ipcHandleAnchorRe = regexp.MustCompile(`(?m)^(\s*)ipcMain\.handle\(`)

// fixMissingProducer injects a no-op stub for the "known stub patterns"
// §4.8 names: IPC handlers and event emitters. API routes (keys starting
// with "/" or written "METHOD /path") and DOM/storage producers have no
// canonical insertion point this package can infer safely, so they are
// declared unfixable.
func fixMissingProducer(issue validate.Issue, content map[string]string) Outcome {
	switch issue.ContractKind {
	case spec.KindAPI:
		if len(issue.Keys) > 0 && (strings.HasPrefix(issue.Keys[0], "/") || strings.Contains(issue.Keys[0], " ")) {
			return Outcome{Issue: issue, Reason: "api route producers have no known stub pattern"}
		}
		return injectIPCHandlerStub(issue, content)
	case spec.KindEvent:
		return injectEventEmitterStub(issue, content)
	default:
		return Outcome{Issue: issue, Reason: fmt.Sprintf("%s producers have no known stub pattern", issue.ContractKind)}
	}
}

func injectIPCHandlerStub(issue validate.Issue, content map[string]string) Outcome {
	if len(issue.Keys) == 0 {
		return Outcome{Issue: issue, Reason: "no key to stub"}
	}
	key := issue.Keys[0]
	for path, body := range content {
		locs := ipcHandleAnchorRe.FindAllStringSubmatchIndex(body, -1)
		if len(locs) == 0 {
			continue
		}
		last := locs[len(locs)-1]
		indent := body[last[2]:last[3]]
		insertAt := nextLineStart(body, last[0])
		stub := fmt.Sprintf("%sipcMain.handle('%s', async () => { return null; });\n", indent, key)
		after := body[:insertAt] + stub + body[insertAt:]
		content[path] = after
		return Outcome{Issue: issue, Applied: true, Diff: renderDiff(path, body, after)}
	}
	return Outcome{Issue: issue, Reason: "no existing ipcMain.handle registration found as an insertion point"}
}

var eventListenerAnchorRe = regexp.MustCompile(`(?m)^(\s*)\S.*\.addEventListener\(`)

func injectEventEmitterStub(issue validate.Issue, content map[string]string) Outcome {
	if len(issue.Keys) == 0 {
		return Outcome{Issue: issue, Reason: "no key to stub"}
	}
	key := issue.Keys[0]
	for path, body := range content {
		locs := eventListenerAnchorRe.FindAllStringSubmatchIndex(body, -1)
		if len(locs) == 0 {
			continue
		}
		last := locs[len(locs)-1]
		indent := body[last[2]:last[3]]
		insertAt := nextLineStart(body, last[0])
		stub := fmt.Sprintf("%sdocument.dispatchEvent(new CustomEvent('%s'));\n", indent, key)
		after := body[:insertAt] + stub + body[insertAt:]
		content[path] = after
		return Outcome{Issue: issue, Applied: true, Diff: renderDiff(path, body, after)}
	}
	return Outcome{Issue: issue, Reason: "no existing addEventListener registration found as an insertion point"}
}

// nextLineStart returns the byte offset right after the line containing
// pos, so an injected stub lands after the anchor statement's full line.
func nextLineStart(body string, pos int) int {
	idx := strings.IndexByte(body[pos:], '\n')
	if idx < 0 {
		return len(body)
	}
	return pos + idx + 1
}

var (
	fixIPCHandleRe = regexp.MustCompile(`ipcMain\.handle\(\s*['"]([^'"]+)['"]\s*,\s*async\s*\([^)]*\{([^}]*)\}[^)]*\)`)
	fixInvokeRe    = regexp.MustCompile(`ipcRenderer\.invoke\(\s*['"]([^'"]+)['"]\s*,\s*([^)]*)\)`)
)

// fixParameterShape rewrites a positional invoke() call into an object
// literal matching the handler's destructured parameter name. Handlers
// are the source of truth (§4.8): the handler is never rewritten.
func fixParameterShape(issue validate.Issue, content map[string]string) Outcome {
	if len(issue.Keys) == 0 || len(issue.Paths) == 0 {
		return Outcome{Issue: issue, Reason: "missing key or call-site path"}
	}
	key := issue.Keys[0]
	callSite := issue.Paths[0]

	var params []string
	for _, body := range content {
		for _, m := range fixIPCHandleRe.FindAllStringSubmatch(body, -1) {
			if m[1] == key {
				params = splitParams(m[2])
			}
		}
	}
	if len(params) != 1 {
		return Outcome{Issue: issue, Reason: "handler destructures zero or multiple parameters; no unambiguous rewrite"}
	}

	body, ok := content[callSite]
	if !ok {
		return Outcome{Issue: issue, Reason: fmt.Sprintf("call-site file %s not found", callSite)}
	}
	after := fixInvokeRe.ReplaceAllStringFunc(body, func(call string) string {
		m := fixInvokeRe.FindStringSubmatch(call)
		if m == nil || m[1] != key {
			return call
		}
		arg := strings.TrimSpace(m[2])
		if arg == "" || strings.HasPrefix(arg, "{") {
			return call
		}
		return fmt.Sprintf("ipcRenderer.invoke('%s', { %s: %s })", key, params[0], arg)
	})
	if after == body {
		return Outcome{Issue: issue, Reason: "no matching positional call found to rewrite"}
	}
	content[callSite] = after
	return Outcome{Issue: issue, Applied: true, Diff: renderDiff(callSite, body, after)}
}

func splitParams(raw string) []string {
	var out []string
	for _, p := range strings.Split(raw, ",") {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// fixSelectOptionCase rewrites the HTML option's value attribute to match
// the JS-side literal (§4.8: the HTML yields, never the JS).
func fixSelectOptionCase(issue validate.Issue, content map[string]string) Outcome {
	if len(issue.Keys) == 0 || len(issue.Paths) == 0 || issue.Canonical == "" {
		return Outcome{Issue: issue, Reason: "missing literal, canonical HTML value, or html path"}
	}
	literal := issue.Keys[0]
	htmlPath := issue.Paths[0]
	body, ok := content[htmlPath]
	if !ok {
		return Outcome{Issue: issue, Reason: fmt.Sprintf("html file %s not found", htmlPath)}
	}
	old := fmt.Sprintf(`value="%s"`, issue.Canonical)
	replacement := fmt.Sprintf(`value="%s"`, literal)
	if !strings.Contains(body, old) {
		old = fmt.Sprintf(`value='%s'`, issue.Canonical)
		replacement = fmt.Sprintf(`value='%s'`, literal)
	}
	after := strings.Replace(body, old, replacement, 1)
	if after == body {
		return Outcome{Issue: issue, Reason: "option value attribute not found verbatim"}
	}
	content[htmlPath] = after
	return Outcome{Issue: issue, Applied: true, Diff: renderDiff(htmlPath, body, after)}
}

// fixPathReference strips the redundant serving-path prefix from an
// href/src attribute.
func fixPathReference(issue validate.Issue, content map[string]string) Outcome {
	if len(issue.Keys) == 0 || len(issue.Paths) == 0 {
		return Outcome{Issue: issue, Reason: "missing reference or file path"}
	}
	ref := issue.Keys[0]
	path := issue.Paths[0]
	body, ok := content[path]
	if !ok {
		return Outcome{Issue: issue, Reason: fmt.Sprintf("file %s not found", path)}
	}
	fixedRef := strings.TrimPrefix(ref, "public/")
	after := strings.ReplaceAll(body, `"`+ref+`"`, `"`+fixedRef+`"`)
	after = strings.ReplaceAll(after, `'`+ref+`'`, `'`+fixedRef+`'`)
	if after == body {
		return Outcome{Issue: issue, Reason: "reference not found verbatim"}
	}
	content[path] = after
	return Outcome{Issue: issue, Applied: true, Diff: renderDiff(path, body, after)}
}

var exportKeywordRe = regexp.MustCompile(`(?m)^export\s+((?:const|function|class|default|let|var)\b)`)

// fixExportSyntax strips the export keyword from declarations in the
// offending file so it works when loaded as a classic (non-module)
// script — a mechanical, single-file rewrite per §4.8.
func fixExportSyntax(issue validate.Issue, content map[string]string) Outcome {
	if len(issue.Paths) == 0 {
		return Outcome{Issue: issue, Reason: "missing file path"}
	}
	path := issue.Paths[0]
	body, ok := content[path]
	if !ok {
		return Outcome{Issue: issue, Reason: fmt.Sprintf("file %s not found", path)}
	}
	after := exportKeywordRe.ReplaceAllString(body, "${1}")
	if after == body {
		return Outcome{Issue: issue, Reason: "no export declaration found to rewrite"}
	}
	content[path] = after
	return Outcome{Issue: issue, Applied: true, Diff: renderDiff(path, body, after)}
}

// renderDiff builds a unified diff of the whole file as a single hunk.
// Fixes here are small, targeted rewrites; a real line-level diff
// algorithm would add complexity this package has no use for, but the
// diff is still rendered through go-diff so the log output is a real
// unified-diff document (§2.2), not a hand-rolled before/after dump.
func renderDiff(path, before, after string) string {
	oldLines := splitLines(before)
	newLines := splitLines(after)

	var body strings.Builder
	for _, l := range oldLines {
		fmt.Fprintf(&body, "-%s\n", l)
	}
	for _, l := range newLines {
		fmt.Fprintf(&body, "+%s\n", l)
	}

	fd := &diff.FileDiff{
		OrigName: "a/" + path,
		NewName:  "b/" + path,
		Hunks: []*diff.Hunk{{
			OrigStartLine: 1,
			OrigLines:     int32(len(oldLines)),
			NewStartLine:  1,
			NewLines:      int32(len(newLines)),
			Body:          []byte(body.String()),
		}},
	}
	rendered, err := diff.PrintFileDiff(fd)
	if err != nil {
		return fmt.Sprintf("--- a/%s\n+++ b/%s\n%s", path, path, body.String())
	}
	return string(rendered)
}

func splitLines(s string) []string {
	s = strings.TrimSuffix(s, "\n")
	if s == "" {
		return nil
	}
	return strings.Split(s, "\n")
}
