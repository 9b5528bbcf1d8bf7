// Copyright (c) 2026 Codeforge Contributors
// Licensed under the GNU Affero General Public License v3.0.
// See https://www.gnu.org/licenses/agpl-3.0.html for the full license text.

package spec

import "errors"

// Sentinel errors for ProjectSpec/FileSpec validation. Wrapped with %w at
// each call site so errors.Is still resolves them.
var (
	ErrInvalidProjectSpec  = errors.New("invalid project spec")
	ErrInvalidFileSpec     = errors.New("invalid file spec")
	ErrDisallowedExtension = errors.New("file extension not in allow-list")
	ErrDuplicatePath       = errors.New("duplicate file path in project spec")

	// ErrInvariantViolation is raised only for Coordinator-level bugs, per
	// SPEC_FULL.md §7 ("signals a programming bug"), never for ordinary
	// per-file or contract-validation failures.
	ErrInvariantViolation = errors.New("pipeline invariant violation")
)
