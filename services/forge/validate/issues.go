// Copyright (c) 2026 Codeforge Contributors
// Licensed under the GNU Affero General Public License v3.0.
// See https://www.gnu.org/licenses/agpl-3.0.html for the full license text.

// Package validate implements the ContractValidator: a read-only,
// deterministic cross-check of producer/consumer consistency across the
// nine issue kinds in SPEC_FULL.md §4.7, plus an auxiliary tree-sitter
// parse-soundness pass. Grounded on the reference AST scanner's
// parser-by-language dispatch and the reference patch validator's
// multi-stage (size -> parse -> scan) pipeline shape.
package validate

import "github.com/codeforge-dev/codeforge/services/forge/spec"

// Kind is the validator's issue taxonomy, SPEC_FULL.md §4.7.
type Kind string

const (
	KindMissingProducer          Kind = "missing-producer"
	KindMissingConsumer          Kind = "missing-consumer"
	KindNameMismatch             Kind = "name-mismatch"
	KindNamingStyleMismatch      Kind = "naming-style-mismatch"
	KindParameterShapeMismatch   Kind = "parameter-shape-mismatch"
	KindSelectOptionCaseMismatch Kind = "select-option-case-mismatch"
	KindPathReferenceError       Kind = "path-reference-error"
	KindExportSyntaxError        Kind = "export-syntax-error"
	KindSchemaMismatch           Kind = "schema-mismatch"

	// KindSyntaxError is the auxiliary tree-sitter parse-soundness check,
	// SPEC_FULL.md §4.7: a touched file whose parse yields error nodes. It
	// is reported alongside the nine contract-issue kinds above, not
	// counted among them.
	KindSyntaxError Kind = "syntax-error"
)

// critical marks issue kinds that affect Result.Summary.Critical and
// Result.IsValid. missing-consumer is explicitly a warning tier per §4.7.
var critical = map[Kind]bool{
	KindMissingProducer:          true,
	KindMissingConsumer:          false,
	KindNameMismatch:             true,
	KindNamingStyleMismatch:      true,
	KindParameterShapeMismatch:   true,
	KindSelectOptionCaseMismatch: true,
	KindPathReferenceError:       true,
	KindExportSyntaxError:        true,
	KindSchemaMismatch:           true,
	KindSyntaxError:              true,
}

// Issue is one structured finding: kind, involved paths, offending keys,
// and a human-readable description (SPEC_FULL.md §4.7).
type Issue struct {
	Kind        Kind     `json:"kind"`
	Paths       []string `json:"paths"`
	Keys        []string `json:"keys"`
	Description string   `json:"description"`
	// Canonical is set by name-mismatch to the exact spelling every other
	// key in Keys should be renamed to. For naming-style-mismatch it
	// instead names the winning convention ("kebab" or "camel") per
	// §4.8's tie-break rule; the fixer converts each non-conforming key
	// in Keys to that convention before renaming.
	Canonical string `json:"canonical,omitempty"`
	// ContractKind is set whenever the issue derives from a single
	// Contracts table (missing-producer, missing-consumer, name-mismatch,
	// naming-style-mismatch, schema-mismatch); the file-scanning kinds
	// leave it empty. autofix uses it to pick the right stub-injection/
	// tie-break rule per §4.8.
	ContractKind spec.ContractKind `json:"contract_kind,omitempty"`
}

// Summary totals a Result for callers that only want counts.
type Summary struct {
	Total    int `json:"total"`
	Critical int `json:"critical"`
}

// Result is ContractValidator's output, SPEC_FULL.md §6.
type Result struct {
	IsValid bool                `json:"is_valid"`
	Issues  map[Kind][]Issue    `json:"issues"`
	Summary Summary             `json:"summary"`
}

func newResult() *Result {
	return &Result{Issues: map[Kind][]Issue{}}
}

func (r *Result) add(issue Issue) {
	r.Issues[issue.Kind] = append(r.Issues[issue.Kind], issue)
	r.Summary.Total++
	if critical[issue.Kind] {
		r.Summary.Critical++
	}
}

func (r *Result) finalize() *Result {
	r.IsValid = r.Summary.Critical == 0
	return r
}

// AllIssues flattens Issues into one slice, kind-then-insertion ordered,
// for callers (autofix, repair) that want a flat worklist.
func (r *Result) AllIssues() []Issue {
	var out []Issue
	for _, kind := range []Kind{
		KindMissingProducer, KindMissingConsumer, KindNameMismatch, KindNamingStyleMismatch,
		KindParameterShapeMismatch, KindSelectOptionCaseMismatch, KindPathReferenceError,
		KindExportSyntaxError, KindSchemaMismatch, KindSyntaxError,
	} {
		out = append(out, r.Issues[kind]...)
	}
	return out
}
