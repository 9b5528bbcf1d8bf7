// Copyright (c) 2026 Codeforge Contributors
// Licensed under the GNU Affero General Public License v3.0.
// See https://www.gnu.org/licenses/agpl-3.0.html for the full license text.

package validate

import (
	"context"
	"fmt"
	"path"
	"regexp"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/codeforge-dev/codeforge/services/forge/spec"
)

// Validate parses the generated tree (files, in memory — SPEC_FULL.md §5:
// "the validator and fixers operate on the final tree") and cross-checks
// producer/consumer consistency for every contract kind, returning a
// structured issue report. It is read-only, deterministic, and never calls
// an LLM (SPEC_FULL.md §4.7). ctx bounds the auxiliary tree-sitter parse
// pass, the only part of validation that walks a data structure large
// enough to be worth cancelling.
func Validate(ctx context.Context, files []spec.GeneratedFile, contracts *spec.Contracts) *Result {
	checks := []func() []Issue{
		func() []Issue { return checkMissingProducer(contracts) },
		func() []Issue { return checkMissingConsumer(contracts) },
		func() []Issue { return checkNameMismatch(contracts) },
		func() []Issue { return checkNamingStyleMismatch(contracts) },
		func() []Issue { return checkSchemaMismatch(contracts) },
		func() []Issue { return checkParameterShapeMismatch(files) },
		func() []Issue { return checkSelectOptionCaseMismatch(files) },
		func() []Issue { return checkPathReferenceError(files) },
		func() []Issue { return checkExportSyntaxError(files) },
		func() []Issue { return checkSyntaxSoundness(ctx, files) },
	}

	issuesByCheck := make([][]Issue, len(checks))
	var eg errgroup.Group
	for i, check := range checks {
		i, check := i, check
		eg.Go(func() error {
			issuesByCheck[i] = check()
			return nil
		})
	}
	_ = eg.Wait() // every check function is pure and cannot fail

	result := newResult()
	for _, issues := range issuesByCheck {
		for _, issue := range issues {
			result.add(issue)
		}
	}
	return result.finalize()
}

var allKinds = []spec.ContractKind{spec.KindDOM, spec.KindAPI, spec.KindEvent, spec.KindStorage, spec.KindModule}

func checkMissingProducer(c *spec.Contracts) []Issue {
	var out []Issue
	for _, e := range c.AllEntries() {
		if len(e.Consumers) > 0 && len(e.Producers) == 0 {
			out = append(out, Issue{
				Kind: KindMissingProducer, Paths: append([]string(nil), e.Consumers...), Keys: []string{e.Key},
				ContractKind: e.Kind,
				Description:  fmt.Sprintf("%s %q is referenced by %v but never produced", e.Kind, e.Key, e.Consumers),
			})
		}
	}
	return out
}

func checkMissingConsumer(c *spec.Contracts) []Issue {
	var out []Issue
	for _, e := range c.AllEntries() {
		if len(e.Producers) > 0 && len(e.Consumers) == 0 {
			out = append(out, Issue{
				Kind: KindMissingConsumer, Paths: append([]string(nil), e.Producers...), Keys: []string{e.Key},
				ContractKind: e.Kind,
				Description:  fmt.Sprintf("%s %q is produced by %v but never consumed", e.Kind, e.Key, e.Producers),
			})
		}
	}
	return out
}

// normalizeKey strips case, hyphens, underscores and dots so two spellings
// of the same identifier compare equal (SPEC_FULL.md §4.7 name-mismatch:
// "differ only by case, hyphenation, or camel/kebab").
func normalizeKey(key string) string {
	var b strings.Builder
	for _, r := range key {
		switch {
		case r == '-' || r == '_' || r == '.' || r == ' ':
			continue
		case r >= 'A' && r <= 'Z':
			b.WriteRune(r - 'A' + 'a')
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

func checkNameMismatch(c *spec.Contracts) []Issue {
	var out []Issue
	for _, kind := range allKinds {
		entries := entriesOfKind(c, kind)
		groups := map[string][]*spec.ContractEntry{}
		var order []string
		for _, e := range entries {
			norm := normalizeKey(e.Key)
			if _, ok := groups[norm]; !ok {
				order = append(order, norm)
			}
			groups[norm] = append(groups[norm], e)
		}
		sort.Strings(order)
		for _, norm := range order {
			group := groups[norm]
			if len(group) < 2 {
				continue
			}
			sort.Slice(group, func(i, j int) bool { return group[i].Key < group[j].Key })
			var keys, paths []string
			for _, e := range group {
				keys = append(keys, e.Key)
				paths = append(paths, append(append([]string(nil), e.Producers...), e.Consumers...)...)
			}
			out = append(out, Issue{
				Kind: KindNameMismatch, Keys: keys, Paths: dedupe(paths),
				Canonical:    canonicalSpelling(group),
				ContractKind: kind,
				Description:  fmt.Sprintf("%s keys %v look like the same identifier spelled inconsistently", kind, keys),
			})
		}
	}
	return out
}

// canonicalSpelling picks the producer's spelling per §4.8's fix rule:
// "the style used by the producer wins". When several entries in the
// mismatch group have producers, the first one in key order wins.
func canonicalSpelling(group []*spec.ContractEntry) string {
	for _, e := range group {
		if len(e.Producers) > 0 {
			return e.Key
		}
	}
	return group[0].Key
}

func isKebab(key string) bool  { return strings.Contains(key, "-") && key == strings.ToLower(key) }
func isCamel(key string) bool {
	for _, r := range key {
		if r >= 'A' && r <= 'Z' {
			return true
		}
	}
	return false
}

func checkNamingStyleMismatch(c *spec.Contracts) []Issue {
	var out []Issue
	for _, kind := range allKinds {
		entries := entriesOfKind(c, kind)
		var kebab, camel []string
		for _, e := range entries {
			switch {
			case isKebab(e.Key):
				kebab = append(kebab, e.Key)
			case isCamel(e.Key):
				camel = append(camel, e.Key)
			}
		}
		if len(kebab) > 0 && len(camel) > 0 {
			sort.Strings(kebab)
			sort.Strings(camel)
			// Tie-break per §4.8: kebab-case wins for dom/api, camelCase
			// wins for module exports. No rule is given for event/storage;
			// default to kebab like dom/api.
			winner := "kebab"
			if kind == spec.KindModule {
				winner = "camel"
			}
			out = append(out, Issue{
				Kind: KindNamingStyleMismatch, Keys: append(append([]string(nil), kebab...), camel...),
				ContractKind: kind,
				Canonical:    winner,
				Description:  fmt.Sprintf("%s keys mix kebab-case %v and camelCase %v", kind, kebab, camel),
			})
		}
	}
	return out
}

func checkSchemaMismatch(c *spec.Contracts) []Issue {
	var out []Issue
	for _, e := range c.AllEntries() {
		if e.Conflicted {
			out = append(out, Issue{
				Kind: KindSchemaMismatch, Keys: []string{e.Key}, Paths: append(append([]string(nil), e.Producers...), e.Consumers...),
				ContractKind: e.Kind,
				Description:  fmt.Sprintf("%s %q has conflicting schemas from different producers/consumers", e.Kind, e.Key),
			})
		}
	}
	return out
}

func entriesOfKind(c *spec.Contracts, kind spec.ContractKind) []*spec.ContractEntry {
	var out []*spec.ContractEntry
	for _, e := range c.AllEntries() {
		if e.Kind == kind {
			out = append(out, e)
		}
	}
	return out
}

var (
	ipcHandleDestructureRe = regexp.MustCompile(`ipcMain\.handle\(\s*['"]([^'"]+)['"]\s*,\s*async\s*\([^)]*\{([^}]*)\}[^)]*\)`)
	ipcInvokeCallRe        = regexp.MustCompile(`ipcRenderer\.invoke\(\s*['"]([^'"]+)['"]\s*,\s*([^)]*)\)`)
)

// checkParameterShapeMismatch implements §4.7's parameter-shape-mismatch:
// a handler destructures {a, b} but the caller passes a bare positional
// value instead of an object literal.
func checkParameterShapeMismatch(files []spec.GeneratedFile) []Issue {
	destructuredParams := map[string][]string{} // key -> param names, from handlers
	for _, f := range files {
		for _, m := range ipcHandleDestructureRe.FindAllStringSubmatch(f.Content, -1) {
			params := splitParams(m[2])
			if len(params) > 0 {
				destructuredParams[m[1]] = params
			}
		}
	}

	var out []Issue
	for _, f := range files {
		for _, m := range ipcInvokeCallRe.FindAllStringSubmatch(f.Content, -1) {
			key, arg := m[1], strings.TrimSpace(m[2])
			if _, ok := destructuredParams[key]; !ok {
				continue
			}
			if arg == "" || strings.HasPrefix(arg, "{") {
				continue // no args, or already an object literal
			}
			out = append(out, Issue{
				Kind: KindParameterShapeMismatch, Keys: []string{key}, Paths: []string{f.Path},
				Description: fmt.Sprintf("handler for %q destructures %v but %s calls it positionally with %q", key, destructuredParams[key], f.Path, arg),
			})
		}
	}
	return out
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

var (
	optionValueRe  = regexp.MustCompile(`<option[^>]+value\s*=\s*["']([^"']+)["']`)
	stringLiteralRe = regexp.MustCompile(`===?\s*['"]([A-Za-z][\w-]*)['"]`)
)

// checkSelectOptionCaseMismatch implements §4.7: an <option value="X">
// later compared in JS to a differently-cased literal.
func checkSelectOptionCaseMismatch(files []spec.GeneratedFile) []Issue {
	var options []string
	var htmlPath string
	for _, f := range files {
		if matches := optionValueRe.FindAllStringSubmatch(f.Content, -1); len(matches) > 0 {
			htmlPath = f.Path
			for _, m := range matches {
				options = append(options, m[1])
			}
		}
	}
	if len(options) == 0 {
		return nil
	}
	optionsByLower := map[string]string{}
	for _, o := range options {
		optionsByLower[strings.ToLower(o)] = o
	}

	var out []Issue
	for _, f := range files {
		if strings.HasSuffix(f.Path, ".html") || strings.HasSuffix(f.Path, ".htm") {
			continue
		}
		for _, m := range stringLiteralRe.FindAllStringSubmatch(f.Content, -1) {
			literal := m[1]
			canonical, ok := optionsByLower[strings.ToLower(literal)]
			if !ok || canonical == literal {
				continue
			}
			out = append(out, Issue{
				Kind: KindSelectOptionCaseMismatch, Keys: []string{literal}, Paths: []string{htmlPath, f.Path},
				Canonical:   canonical,
				Description: fmt.Sprintf("option value %q in %s differs in case from literal %q compared in %s", canonical, htmlPath, literal, f.Path),
			})
		}
	}
	return out
}

var hrefOrSrcRe = regexp.MustCompile(`(?:href|src)\s*=\s*["']([^"':/][^"']*)["']`)

// checkPathReferenceError implements §4.7: HTML references a sibling file
// with a prefix that disagrees with how it will be served (§6: "HTML
// references to style.css and index.js are expected to be relative-
// without-public/-prefix when the HTML itself lives under public/").
func checkPathReferenceError(files []spec.GeneratedFile) []Issue {
	var out []Issue
	for _, f := range files {
		if !strings.HasSuffix(f.Path, ".html") && !strings.HasSuffix(f.Path, ".htm") {
			continue
		}
		htmlDir := path.Dir(f.Path)
		for _, m := range hrefOrSrcRe.FindAllStringSubmatch(f.Content, -1) {
			ref := m[1]
			if htmlDir == "public" && strings.HasPrefix(ref, "public/") {
				out = append(out, Issue{
					Kind: KindPathReferenceError, Keys: []string{ref}, Paths: []string{f.Path},
					Description: fmt.Sprintf("%s lives under public/ but references %q with a redundant public/ prefix", f.Path, ref),
				})
			}
		}
	}
	return out
}

var bareExportRe = regexp.MustCompile(`(?m)^export\s+(?:const|function|class|default|let|var)\b`)

// checkExportSyntaxError implements §4.7: a file uses `export` in a
// context that will be loaded without a module loader (no <script
// type="module"> reference to it anywhere in the tree).
func checkExportSyntaxError(files []spec.GeneratedFile) []Issue {
	moduleScripts := map[string]bool{}
	for _, f := range files {
		if !strings.HasSuffix(f.Path, ".html") {
			continue
		}
		for _, m := range regexp.MustCompile(`<script[^>]+type\s*=\s*["']module["'][^>]*src\s*=\s*["']([^"']+)["']`).FindAllStringSubmatch(f.Content, -1) {
			moduleScripts[path.Base(m[1])] = true
		}
	}

	var out []Issue
	for _, f := range files {
		if !strings.HasSuffix(f.Path, ".js") && !strings.HasSuffix(f.Path, ".mjs") {
			continue
		}
		if !bareExportRe.MatchString(f.Content) {
			continue
		}
		if moduleScripts[path.Base(f.Path)] || strings.HasSuffix(f.Path, ".mjs") {
			continue
		}
		out = append(out, Issue{
			Kind: KindExportSyntaxError, Paths: []string{f.Path},
			Description: fmt.Sprintf("%s uses `export` but is never loaded with <script type=\"module\">", f.Path),
		})
	}
	return out
}

func dedupe(paths []string) []string {
	seen := map[string]bool{}
	var out []string
	for _, p := range paths {
		if p != "" && !seen[p] {
			seen[p] = true
			out = append(out, p)
		}
	}
	sort.Strings(out)
	return out
}
