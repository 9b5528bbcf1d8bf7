// Copyright (c) 2026 Codeforge Contributors
// Licensed under the GNU Affero General Public License v3.0.
// See https://www.gnu.org/licenses/agpl-3.0.html for the full license text.

// Package contract implements the ContractExtractor: regex/heuristic
// scanning of just-written files for concrete cross-file identifiers,
// folded into a shared Contracts record. Extraction is deliberately
// regex-based rather than a full parse (SPEC_FULL.md §4.5); the
// stateless-analyzer-struct shape follows the reference breaking-change
// analyzer's struct-with-Analyze-method convention.
package contract

import (
	"regexp"
	"strings"

	"github.com/codeforge-dev/codeforge/services/forge/spec"
)

// Extractor extracts and merges contract entries from generated file
// bodies. It holds no state between calls; SPEC_FULL.md §9 requires it be
// "the only place that creates entries from raw strings".
type Extractor struct{}

// New returns a stateless Extractor.
func New() *Extractor { return &Extractor{} }

var (
	htmlIDRe    = regexp.MustCompile(`\bid\s*=\s*["']([^"']+)["']`)
	htmlClassRe = regexp.MustCompile(`\bclass\s*=\s*["']([^"']+)["']`)
	htmlTagRe   = regexp.MustCompile(`<(\w+)[^>]*\bid\s*=\s*["']([^"']+)["'][^>]*>`)

	getElementByIDRe  = regexp.MustCompile(`getElementById\(\s*['"]([^'"]+)['"]\s*\)`)
	querySelectorRe   = regexp.MustCompile(`\.querySelector(?:All)?\(\s*['"]#([\w-]+)['"]\s*\)`)
	ipcHandleRe       = regexp.MustCompile(`ipcMain\.handle\(\s*['"]([^'"]+)['"]`)
	ipcInvokeRe       = regexp.MustCompile(`ipcRenderer\.invoke\(\s*['"]([^'"]+)['"]`)
	fetchRe           = regexp.MustCompile(`fetch\(\s*['"](/api/[^'"]+)['"]`)
	localStorageSetRe = regexp.MustCompile(`localStorage\.setItem\(\s*['"]([^'"]+)['"]`)
	localStorageGetRe = regexp.MustCompile(`localStorage\.getItem\(\s*['"]([^'"]+)['"]`)
	customEventRe     = regexp.MustCompile(`new CustomEvent\(\s*['"]([^'"]+)['"]`)
	dispatchEventRe   = regexp.MustCompile(`\.dispatchEvent\(`)
	addListenerRe     = regexp.MustCompile(`\.addEventListener\(\s*['"]([^'"]+)['"]`)
	moduleExportsRe   = regexp.MustCompile(`module\.exports(?:\.(\w+))?\s*=`)
	namedExportRe     = regexp.MustCompile(`(?m)^export\s+(?:const|function|class|let|var)\s+(\w+)`)
	requireRe         = regexp.MustCompile(`require\(\s*['"]([^'"]+)['"]\s*\)`)
	esImportRe        = regexp.MustCompile(`import\s+.*?\s+from\s+['"]([^'"]+)['"]`)

	routeDecoratorRe = regexp.MustCompile(`@app\.route\(\s*['"]([^'"]+)['"]\s*(?:,\s*methods\s*=\s*\[([^\]]*)\])?\)`)
	requestArgsRe    = regexp.MustCompile(`request\.args\.get\(\s*['"]([^'"]+)['"]`)
)

// Extract scans the given files and returns a fresh Contracts record
// populated only from what this call found (callers fold it into the
// running Contracts via Merge).
func (x *Extractor) Extract(files []spec.GeneratedFile) *spec.Contracts {
	out := spec.NewContracts()
	for _, f := range files {
		for _, e := range x.extractFile(f) {
			out.MergeEntry(e)
		}
	}
	return out
}

// Merge is the package-level convenience matching SPEC_FULL.md §4.5's
// merge(existing, extracted) -> Contracts signature.
func Merge(existing, extracted *spec.Contracts) *spec.Contracts {
	return existing.Merge(extracted)
}

func (x *Extractor) extractFile(f spec.GeneratedFile) []*spec.ContractEntry {
	switch languageOf(f.Path) {
	case "html":
		return extractHTML(f)
	case "js":
		return extractJS(f)
	case "python":
		return extractPython(f)
	}
	return nil
}

func languageOf(path string) string {
	switch {
	case strings.HasSuffix(path, ".html"), strings.HasSuffix(path, ".htm"):
		return "html"
	case strings.HasSuffix(path, ".js"), strings.HasSuffix(path, ".ts"),
		strings.HasSuffix(path, ".jsx"), strings.HasSuffix(path, ".tsx"),
		strings.HasSuffix(path, ".mjs"), strings.HasSuffix(path, ".cjs"):
		return "js"
	case strings.HasSuffix(path, ".py"):
		return "python"
	}
	return "other"
}

func extractHTML(f spec.GeneratedFile) []*spec.ContractEntry {
	var out []*spec.ContractEntry
	tagByID := map[string]string{}
	for _, m := range htmlTagRe.FindAllStringSubmatch(f.Content, -1) {
		tagByID[m[2]] = m[1]
	}
	for _, m := range htmlIDRe.FindAllStringSubmatch(f.Content, -1) {
		id := m[1]
		out = append(out, &spec.ContractEntry{
			Kind: spec.KindDOM, Key: id, Producers: []string{f.Path},
			DOM: &spec.DOMSchema{Tag: tagByID[id]},
		})
	}
	for _, m := range htmlClassRe.FindAllStringSubmatch(f.Content, -1) {
		for _, cls := range strings.Fields(m[1]) {
			out = append(out, &spec.ContractEntry{
				Kind: spec.KindDOM, Key: "." + cls, Producers: []string{f.Path},
				DOM: &spec.DOMSchema{Purpose: "class"},
			})
		}
	}
	return out
}

func extractJS(f spec.GeneratedFile) []*spec.ContractEntry {
	var out []*spec.ContractEntry

	for _, m := range getElementByIDRe.FindAllStringSubmatch(f.Content, -1) {
		out = append(out, &spec.ContractEntry{Kind: spec.KindDOM, Key: m[1], Consumers: []string{f.Path}})
	}
	for _, m := range querySelectorRe.FindAllStringSubmatch(f.Content, -1) {
		out = append(out, &spec.ContractEntry{Kind: spec.KindDOM, Key: m[1], Consumers: []string{f.Path}})
	}

	for _, m := range ipcHandleRe.FindAllStringSubmatch(f.Content, -1) {
		out = append(out, &spec.ContractEntry{Kind: spec.KindAPI, Key: m[1], Producers: []string{f.Path}, API: &spec.APISchema{ParamStyle: "ipc"}})
	}
	for _, m := range ipcInvokeRe.FindAllStringSubmatch(f.Content, -1) {
		out = append(out, &spec.ContractEntry{Kind: spec.KindAPI, Key: m[1], Consumers: []string{f.Path}, API: &spec.APISchema{ParamStyle: "ipc"}})
	}
	for _, m := range fetchRe.FindAllStringSubmatch(f.Content, -1) {
		out = append(out, &spec.ContractEntry{Kind: spec.KindAPI, Key: m[1], Consumers: []string{f.Path}, API: &spec.APISchema{ParamStyle: "body"}})
	}

	for _, m := range localStorageSetRe.FindAllStringSubmatch(f.Content, -1) {
		out = append(out, &spec.ContractEntry{Kind: spec.KindStorage, Key: m[1], Producers: []string{f.Path}, Storage: &spec.StorageSchema{Backing: "persistent"}})
	}
	for _, m := range localStorageGetRe.FindAllStringSubmatch(f.Content, -1) {
		out = append(out, &spec.ContractEntry{Kind: spec.KindStorage, Key: m[1], Consumers: []string{f.Path}, Storage: &spec.StorageSchema{Backing: "persistent"}})
	}

	for _, m := range customEventRe.FindAllStringSubmatch(f.Content, -1) {
		out = append(out, &spec.ContractEntry{Kind: spec.KindEvent, Key: m[1], Producers: []string{f.Path}})
	}
	for _, m := range addListenerRe.FindAllStringSubmatch(f.Content, -1) {
		out = append(out, &spec.ContractEntry{Kind: spec.KindEvent, Key: m[1], Consumers: []string{f.Path}})
	}

	var exports []string
	if m := moduleExportsRe.FindStringSubmatch(f.Content); m != nil && m[1] != "" {
		exports = append(exports, m[1])
	}
	for _, m := range namedExportRe.FindAllStringSubmatch(f.Content, -1) {
		exports = append(exports, m[1])
	}
	if len(exports) > 0 {
		out = append(out, &spec.ContractEntry{Kind: spec.KindModule, Key: f.Path, Producers: []string{f.Path}, Module: &spec.ModuleSchema{NamedExports: exports}})
	}
	for _, m := range requireRe.FindAllStringSubmatch(f.Content, -1) {
		out = append(out, &spec.ContractEntry{Kind: spec.KindModule, Key: m[1], Consumers: []string{f.Path}})
	}
	for _, m := range esImportRe.FindAllStringSubmatch(f.Content, -1) {
		out = append(out, &spec.ContractEntry{Kind: spec.KindModule, Key: m[1], Consumers: []string{f.Path}})
	}

	return out
}

func extractPython(f spec.GeneratedFile) []*spec.ContractEntry {
	var out []*spec.ContractEntry
	for _, m := range routeDecoratorRe.FindAllStringSubmatch(f.Content, -1) {
		path := m[1]
		method := "GET"
		if m[2] != "" {
			methods := strings.Split(m[2], ",")
			method = strings.Trim(strings.TrimSpace(methods[0]), `'"`)
		}
		out = append(out, &spec.ContractEntry{
			Kind: spec.KindAPI, Key: method + " " + path, Producers: []string{f.Path},
			API: &spec.APISchema{Method: method, ParamStyle: "path"},
		})
	}
	for _, m := range requestArgsRe.FindAllStringSubmatch(f.Content, -1) {
		out = append(out, &spec.ContractEntry{
			Kind: spec.KindAPI, Key: "query:" + m[1], Consumers: []string{f.Path},
			API: &spec.APISchema{ParamStyle: "query"},
		})
	}
	return out
}
