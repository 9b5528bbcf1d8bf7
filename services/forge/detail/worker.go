// Copyright (c) 2026 Codeforge Contributors
// Licensed under the GNU Affero General Public License v3.0.
// See https://www.gnu.org/licenses/agpl-3.0.html for the full license text.

// Package detail implements Phase 2: for each dependency layer, fan out to
// one WorkerGenerator invocation per file, in parallel, propagating
// Contracts forward as each layer completes. The per-layer/per-node
// parallel-execution shape is adapted from the reference DAG executor's
// findReadyNodes/executeParallel pair, narrowed from a general DAG
// scheduler to the pipeline's simpler strict-layer-order case.
package detail

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/codeforge-dev/codeforge/services/forge/spec"
)

// WorkerKind selects which WorkerGenerator implementation handles a file,
// by extension, per SPEC_FULL.md §4.4's selection table.
type WorkerKind string

const (
	WorkerMarkup WorkerKind = "markup"
	WorkerScript WorkerKind = "script"
	WorkerStyle  WorkerKind = "style"
	WorkerPython WorkerKind = "python"
	WorkerSystem WorkerKind = "system"
)

var (
	markupExts = map[string]bool{".html": true, ".htm": true, ".xml": true, ".md": true, ".json": true, ".env": true, ".sh": true, ".bat": true, ".gitignore": true}
	scriptExts = map[string]bool{".js": true, ".ts": true, ".jsx": true, ".tsx": true, ".mjs": true, ".cjs": true}
	styleExts  = map[string]bool{".css": true, ".scss": true, ".sass": true, ".less": true}
	systemExts = map[string]bool{".c": true, ".cpp": true, ".h": true, ".hpp": true, ".go": true, ".rs": true, ".java": true, ".cs": true}

	markupSpecialCases = map[string]bool{".gitignore": true, ".env.example": true, "Dockerfile": true}
)

// KindForPath implements the §4.4 extension-based worker-selection table,
// including the named extensionless special cases.
func KindForPath(path string) WorkerKind {
	base := filepath.Base(path)
	if base == "requirements.txt" {
		return WorkerPython
	}
	if markupSpecialCases[base] {
		return WorkerMarkup
	}
	ext := strings.ToLower(filepath.Ext(path))
	switch {
	case markupExts[ext]:
		return WorkerMarkup
	case scriptExts[ext]:
		return WorkerScript
	case styleExts[ext]:
		return WorkerStyle
	case ext == ".py":
		return WorkerPython
	case systemExts[ext]:
		return WorkerSystem
	}
	return WorkerMarkup
}

// simpleExts get ModelTier = fast per §4.4 step 3; everything else is
// "strong".
var simpleExts = map[string]bool{".css": true, ".scss": true, ".sass": true, ".less": true, ".html": true, ".htm": true, ".json": true, ".txt": true, ".md": true, ".env": true}

// TierForPath classifies a file's model tier.
func TierForPath(path string) string {
	if simpleExts[strings.ToLower(filepath.Ext(path))] {
		return "fast"
	}
	return "strong"
}

// Context is the bundle a WorkerGenerator receives: the file's own
// skeleton, every skeleton (forward visibility), already-generated
// dependency bodies, the current immutable Contracts snapshot,
// ProjectConfig, the FileSpec itself, and the model tier (SPEC_FULL.md §4.4
// step 4). AllFiles is not filled in by Generator: workers it invokes
// receive an empty project file list.
type Context struct {
	Skeleton      string
	AllSkeletons  map[string]string
	DependencyBodies map[string]string
	Contracts     *spec.Contracts
	ProjectConfig spec.ProjectConfig
	File          spec.FileSpec
	AllFiles      []spec.FileSpec
	Tier          string
	// Exemplar, when non-empty, is a snippet of a similar previously
	// generated file retrieved by an optional ExemplarProvider, forwarded
	// as additional few-shot context (SPEC_FULL.md §2 extension point).
	Exemplar string
}

// Result is a WorkerGenerator's output: content, tokens_used, method, per
// SPEC_FULL.md §6.
type Result struct {
	Content    string
	TokensUsed int
	Method     spec.GenerationMethod
}

// WorkerGenerator is the capability interface, one implementation per file
// kind, chosen by KindForPath.
type WorkerGenerator interface {
	Generate(ctx context.Context, c Context) (Result, error)
}

// Registry maps a WorkerKind to its WorkerGenerator implementation.
type Registry map[WorkerKind]WorkerGenerator

// For returns the WorkerGenerator for a path, per the §4.4 selection table.
// A kind with no registered implementation falls back to WorkerMarkup's
// implementation, mirroring the table's own "default: markup" rule.
func (r Registry) For(path string) WorkerGenerator {
	kind := KindForPath(path)
	if w, ok := r[kind]; ok {
		return w
	}
	return r[WorkerMarkup]
}
