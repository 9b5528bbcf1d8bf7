// Copyright (c) 2026 Codeforge Contributors
// Licensed under the GNU Affero General Public License v3.0.
// See https://www.gnu.org/licenses/agpl-3.0.html for the full license text.

// Package spec defines the data model that flows through the generation
// pipeline: the caller-supplied ProjectSpec, the per-file skeleton and
// generated-file records, and the GenerationResult returned to the caller.
package spec

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

var structValidator = validator.New(validator.WithRequiredStructEnabled())

// AllowedExtensions are the file kinds this pipeline knows how to produce.
// FileSpec.Validate keys off this set (the other stages keep their own
// extension tables); a path outside it fails ProjectSpec validation before
// any LLM call is made.
var AllowedExtensions = map[string]bool{
	".html": true, ".htm": true, ".xml": true, ".md": true, ".json": true,
	".env": true, ".sh": true, ".bat": true, ".gitignore": true,
	".js": true, ".ts": true, ".jsx": true, ".tsx": true, ".mjs": true, ".cjs": true,
	".css": true, ".scss": true, ".sass": true, ".less": true,
	".py": true, ".txt": true,
	".c": true, ".cpp": true, ".h": true, ".hpp": true, ".go": true, ".rs": true, ".java": true, ".cs": true,
}

// FileSpec describes one file the caller wants produced.
type FileSpec struct {
	Path            string   `json:"path" validate:"required"`
	Language        string   `json:"language"`
	Description     string   `json:"description"`
	Requirements    []string `json:"requirements,omitempty"`
	Template        string   `json:"template,omitempty"`
	IsAutoGenerated bool     `json:"is_auto_generated,omitempty"`
}

// Validate enforces the path-safety and extension-allowlist invariants
// from SPEC_FULL.md §3: project-relative, POSIX-style, no "..", recognized
// extension.
func (f FileSpec) Validate() error {
	if f.Path == "" {
		return fmt.Errorf("file spec: %w: empty path", ErrInvalidFileSpec)
	}
	if strings.Contains(f.Path, "\\") {
		return fmt.Errorf("file spec %q: %w: backslash path separator", f.Path, ErrInvalidFileSpec)
	}
	if strings.HasPrefix(f.Path, "/") {
		return fmt.Errorf("file spec %q: %w: absolute path", f.Path, ErrInvalidFileSpec)
	}
	for _, part := range strings.Split(f.Path, "/") {
		if part == ".." {
			return fmt.Errorf("file spec %q: %w: parent traversal", f.Path, ErrInvalidFileSpec)
		}
	}
	if !hasAllowedExtension(f.Path) {
		return fmt.Errorf("file spec %q: %w", f.Path, ErrDisallowedExtension)
	}
	return nil
}

func hasAllowedExtension(path string) bool {
	base := path
	if idx := strings.LastIndex(path, "/"); idx >= 0 {
		base = path[idx+1:]
	}
	// Extensionless conventional files the spec calls out by name.
	switch base {
	case ".gitignore", ".env.example", "Dockerfile", "requirements.txt":
		return true
	}
	for ext := range AllowedExtensions {
		if strings.HasSuffix(base, ext) {
			return true
		}
	}
	return false
}

// SetupSpec is the caller's setup section. Dependencies.NPM entries are
// written as "name@version" strings (e.g. "express@4.18.0" is parsed
// into {"express": "4.18.0"} by setupgen).
type SetupSpec struct {
	Dependencies struct {
		NPM    []string `json:"npm,omitempty"`
		Python []string `json:"python,omitempty"`
		Maven  []string `json:"maven,omitempty"`
		Go     []string `json:"go,omitempty"`
	} `json:"dependencies,omitempty"`
	EnvironmentVariables map[string]string `json:"environmentVariables,omitempty"`
	StartCommands        map[string]string `json:"startCommands,omitempty"`
	JavaVersion          string            `json:"javaVersion,omitempty"`
}

// ProjectConfig carries deployment parameters forwarded to workers verbatim
// (ports, API base URLs) without pipeline-side interpretation.
type ProjectConfig map[string]any

// ProjectSpec is the external input to the pipeline.
type ProjectSpec struct {
	Summary       string        `json:"summary" validate:"required"`
	Files         []FileSpec    `json:"files" validate:"required,min=1,dive"`
	Contracts     *Contracts    `json:"contracts,omitempty"`
	ProjectConfig ProjectConfig `json:"projectConfig,omitempty"`
	Setup         *SetupSpec    `json:"setup,omitempty"`
}

// Validate checks struct tags via go-playground/validator and then applies
// the path/extension rules FileSpec.Validate enforces per entry.
func (p *ProjectSpec) Validate() error {
	if err := structValidator.Struct(p); err != nil {
		return fmt.Errorf("project spec: %w: %v", ErrInvalidProjectSpec, err)
	}
	seen := make(map[string]bool, len(p.Files))
	for _, f := range p.Files {
		if err := f.Validate(); err != nil {
			return err
		}
		if seen[f.Path] {
			return fmt.Errorf("file spec %q: %w", f.Path, ErrDuplicatePath)
		}
		seen[f.Path] = true
	}
	return nil
}

// GenerationMethod tags how a GeneratedFile's content was produced.
type GenerationMethod string

const (
	MethodTemplate         GenerationMethod = "template"
	MethodAutoGenerated    GenerationMethod = "auto-generated"
	MethodWorkerLLM        GenerationMethod = "worker-llm"
	MethodCloudLLMFallback GenerationMethod = "cloud-llm-fallback"
	MethodMockFallback     GenerationMethod = "mock-fallback"
	MethodSkeletonFallback GenerationMethod = "skeleton-fallback"
)

// FileMetadata records how a GeneratedFile came to be.
type FileMetadata struct {
	TokensUsed int              `json:"tokens_used"`
	Method     GenerationMethod `json:"method"`
}

// GeneratedFile is one output entry of the pipeline.
type GeneratedFile struct {
	Path     string       `json:"path"`
	Content  string       `json:"content"`
	Language string       `json:"language"`
	Error    string       `json:"error,omitempty"`
	Layer    int          `json:"layer"`
	Metadata FileMetadata `json:"metadata"`
}

// ResultMetadata summarizes a GenerationResult for the caller.
type ResultMetadata struct {
	TotalFiles   int    `json:"total_files"`
	FailedFiles  int    `json:"failed_files"`
	Version      string `json:"version"`
	FinalMethod  string `json:"final_method,omitempty"`
}

// GenerationResult is the pipeline's output. generate always returns one of
// these; it never raises on a per-file failure (SPEC_FULL.md §7).
type GenerationResult struct {
	RequestID  string          `json:"request_id"`
	ReceivedAt time.Time       `json:"received_at"`
	Files      []GeneratedFile `json:"files"`
	Notes      []string        `json:"notes"`
	Metadata   ResultMetadata  `json:"metadata"`
}

// NewRequestID returns a fresh, collision-resistant request identifier.
func NewRequestID() string {
	return uuid.NewString()
}
