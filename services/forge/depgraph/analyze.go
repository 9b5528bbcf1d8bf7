// Copyright (c) 2026 Codeforge Contributors
// Licensed under the GNU Affero General Public License v3.0.
// See https://www.gnu.org/licenses/agpl-3.0.html for the full license text.

// Package depgraph computes a file-level dependency graph from skeleton
// text and derives a stable topological layering from it, following the
// collect-then-extract-edges shape of the reference dependency graph
// builder but operating on whole-file skeleton text rather than a parsed
// AST, since the project's files span five unrelated languages.
package depgraph

import (
	"regexp"
	"sort"
	"strings"
)

// Edge is a directed dependency: From depends on To.
type Edge struct {
	From string
	To   string
}

// BrokenEdge records a cycle-breaking decision so callers can explain why
// an edge that looked real at extraction time is absent from the graph.
type BrokenEdge struct {
	Edge   Edge
	Reason string
}

// Graph is the acyclic, path-keyed dependency graph produced by Analyze.
type Graph struct {
	Nodes       []string
	Edges       []Edge
	Broken      []BrokenEdge
	adjacency   map[string][]string // From -> []To, after cycle-breaking
}

// Result is DependencyAnalyzer's full output: analyze(files, skeletons) ->
// (order, layers, depGraph) in SPEC_FULL.md §4.2 terms.
type Result struct {
	Order  []string         // all paths, stable topological order
	Layers [][]string       // Layers[n] holds every path whose layer is n
	Layer  map[string]int   // path -> layer number
	Graph  *Graph
}

var (
	esImportRe     = regexp.MustCompile(`(?:import\s+(?:[\w*{}\s,]+\s+from\s+)?|require\()\s*['"]([^'"]+)['"]`)
	htmlLinkRe     = regexp.MustCompile(`<link[^>]+href=["']([^"']+)["']`)
	htmlScriptRe   = regexp.MustCompile(`<script[^>]+src=["']([^"']+)["']`)
	pyImportRe     = regexp.MustCompile(`(?m)^\s*(?:from\s+([\w.]+)\s+import|import\s+([\w.]+))`)
	cssImportRe    = regexp.MustCompile(`@import\s+(?:url\()?["']([^"')]+)["']\)?`)
	includeRe      = regexp.MustCompile(`#include\s+["<]([^">]+)[">]`)
)

// Analyze infers edges by scanning each skeleton for references to other
// project files and derives a stable layering.
func Analyze(paths []string, skeletons map[string]string) Result {
	sortedPaths := append([]string(nil), paths...)
	sort.Strings(sortedPaths)

	known := make(map[string]bool, len(paths))
	for _, p := range paths {
		known[p] = true
	}

	var edges []Edge
	for _, from := range sortedPaths {
		for _, to := range extractReferences(from, skeletons[from]) {
			resolved := resolveReference(from, to, known)
			if resolved == "" || resolved == from {
				continue
			}
			edges = append(edges, Edge{From: from, To: resolved})
		}
	}

	graph, broken := breakCycles(sortedPaths, edges)
	graph.Broken = broken

	layer := computeLayers(sortedPaths, graph.adjacency)

	layers := map[int][]string{}
	maxLayer := 0
	for _, p := range sortedPaths {
		l := layer[p]
		layers[l] = append(layers[l], p)
		if l > maxLayer {
			maxLayer = l
		}
	}
	ordered := make([][]string, maxLayer+1)
	for l := 0; l <= maxLayer; l++ {
		bucket := layers[l]
		sort.Strings(bucket)
		ordered[l] = bucket
	}

	var order []string
	for _, bucket := range ordered {
		order = append(order, bucket...)
	}

	return Result{Order: order, Layers: ordered, Layer: layer, Graph: graph}
}

// extractReferences returns every raw reference string a skeleton makes to
// another file, regardless of language; resolveReference filters to ones
// that actually match a project path.
func extractReferences(path, skeleton string) []string {
	var refs []string
	lang := languageOf(path)

	collect := func(re *regexp.Regexp) {
		for _, m := range re.FindAllStringSubmatch(skeleton, -1) {
			for _, g := range m[1:] {
				if g != "" {
					refs = append(refs, g)
				}
			}
		}
	}

	switch lang {
	case "js":
		collect(esImportRe)
	case "html":
		collect(htmlLinkRe)
		collect(htmlScriptRe)
	case "python":
		collect(pyImportRe)
	case "css":
		collect(cssImportRe)
	case "system":
		collect(includeRe)
	default:
		// Unknown/markup-adjacent languages may still embed HTML-like tags
		// (e.g. a templated shell) or JS-like imports; scan both cheaply.
		collect(esImportRe)
		collect(htmlLinkRe)
		collect(htmlScriptRe)
	}
	return refs
}

func languageOf(path string) string {
	switch {
	case strings.HasSuffix(path, ".js"), strings.HasSuffix(path, ".ts"),
		strings.HasSuffix(path, ".jsx"), strings.HasSuffix(path, ".tsx"),
		strings.HasSuffix(path, ".mjs"), strings.HasSuffix(path, ".cjs"):
		return "js"
	case strings.HasSuffix(path, ".html"), strings.HasSuffix(path, ".htm"):
		return "html"
	case strings.HasSuffix(path, ".py"):
		return "python"
	case strings.HasSuffix(path, ".css"), strings.HasSuffix(path, ".scss"),
		strings.HasSuffix(path, ".sass"), strings.HasSuffix(path, ".less"):
		return "css"
	case strings.HasSuffix(path, ".c"), strings.HasSuffix(path, ".cpp"),
		strings.HasSuffix(path, ".h"), strings.HasSuffix(path, ".hpp"):
		return "system"
	}
	return "other"
}

// resolveReference matches a raw reference string (which may be relative,
// absolute-from-root, or a bare module specifier) against the known project
// paths. A reference only counts as an edge when it resolves to a path
// actually present in the project (SPEC_FULL.md §4.2).
func resolveReference(from, ref string, known map[string]bool) string {
	ref = strings.TrimPrefix(ref, "./")
	candidates := []string{ref}

	dir := ""
	if idx := strings.LastIndex(from, "/"); idx >= 0 {
		dir = from[:idx]
	}
	if dir != "" {
		candidates = append(candidates, dir+"/"+ref)
	}

	// Python dotted-module references use "." as a path separator and
	// usually omit the extension.
	pyPath := strings.ReplaceAll(ref, ".", "/") + ".py"
	candidates = append(candidates, pyPath)
	if dir != "" {
		candidates = append(candidates, dir+"/"+pyPath)
	}

	for _, c := range candidates {
		c = cleanPath(c)
		if known[c] {
			return c
		}
	}
	return ""
}

func cleanPath(p string) string {
	parts := strings.Split(p, "/")
	var out []string
	for _, part := range parts {
		switch part {
		case "", ".":
			continue
		case "..":
			if len(out) > 0 {
				out = out[:len(out)-1]
			}
		default:
			out = append(out, part)
		}
	}
	return strings.Join(out, "/")
}

// breakCycles builds the adjacency map and drops the highest-layer back
// edge of any cycle found, following SPEC_FULL.md §9: "drop the edge whose
// source has the higher path-sort-order". Paths are pre-sorted by the
// caller, so "higher path-sort-order" reduces to visiting edges in sorted
// (From, To) order and rejecting any edge that would complete a cycle given
// edges already accepted.
func breakCycles(sortedPaths []string, edges []Edge) (*Graph, []BrokenEdge) {
	adj := make(map[string][]string, len(sortedPaths))
	for _, p := range sortedPaths {
		adj[p] = nil
	}

	sortedEdges := append([]Edge(nil), edges...)
	sort.Slice(sortedEdges, func(i, j int) bool {
		if sortedEdges[i].From != sortedEdges[j].From {
			return sortedEdges[i].From < sortedEdges[j].From
		}
		return sortedEdges[i].To < sortedEdges[j].To
	})

	var accepted []Edge
	var broken []BrokenEdge
	for _, e := range sortedEdges {
		adj[e.From] = append(adj[e.From], e.To)
		if hasPath(adj, e.To, e.From) {
			// Adding this edge would create a cycle back to e.From; drop it.
			adj[e.From] = adj[e.From][:len(adj[e.From])-1]
			broken = append(broken, BrokenEdge{Edge: e, Reason: "cycle: dropped edge from higher path-sort-order source"})
			continue
		}
		accepted = append(accepted, e)
	}

	return &Graph{Nodes: sortedPaths, Edges: accepted, adjacency: adj}, broken
}

func hasPath(adj map[string][]string, from, to string) bool {
	if from == to {
		return true
	}
	visited := map[string]bool{}
	stack := []string{from}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if visited[n] {
			continue
		}
		visited[n] = true
		for _, next := range adj[n] {
			if next == to {
				return true
			}
			stack = append(stack, next)
		}
	}
	return false
}

// computeLayers implements layer(v) = 1 + max(layer(u) for u in deps(v)),
// zero if v has no dependencies. A memoized DFS handles the acyclic graph
// (cycles are already broken by breakCycles).
func computeLayers(sortedPaths []string, adj map[string][]string) map[string]int {
	layer := make(map[string]int, len(sortedPaths))
	var visit func(string) int
	visiting := make(map[string]bool)
	visit = func(p string) int {
		if l, ok := layer[p]; ok {
			return l
		}
		if visiting[p] {
			// Defensive: should be unreachable after cycle-breaking.
			return 0
		}
		visiting[p] = true
		max := -1
		for _, dep := range adj[p] {
			if l := visit(dep); l > max {
				max = l
			}
		}
		layer[p] = max + 1
		visiting[p] = false
		return layer[p]
	}
	for _, p := range sortedPaths {
		visit(p)
	}
	return layer
}

// DependenciesOf returns the set of paths p directly depends on (p's
// outgoing edges after cycle-breaking), and whether p is a known node.
func (g *Graph) DependenciesOf(p string) ([]string, bool) {
	deps, ok := g.adjacency[p]
	return deps, ok
}

// IsAcyclic reports whether the graph, after cycle-breaking, has no
// remaining cycle — SPEC_FULL.md §8 invariant 3.
func (g *Graph) IsAcyclic() bool {
	visiting := map[string]bool{}
	visited := map[string]bool{}
	var dfs func(string) bool
	dfs = func(n string) bool {
		if visiting[n] {
			return false
		}
		if visited[n] {
			return true
		}
		visiting[n] = true
		for _, next := range g.adjacency[n] {
			if !dfs(next) {
				return false
			}
		}
		visiting[n] = false
		visited[n] = true
		return true
	}
	for _, n := range g.Nodes {
		if !dfs(n) {
			return false
		}
	}
	return true
}
