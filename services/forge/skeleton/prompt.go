// Copyright (c) 2026 Codeforge Contributors
// Licensed under the GNU Affero General Public License v3.0.
// See https://www.gnu.org/licenses/agpl-3.0.html for the full license text.

package skeleton

import (
	"strings"
	"text/template"

	"github.com/codeforge-dev/codeforge/services/forge/spec"
)

// promptData feeds batchPromptTemplate, matching the structured-output,
// JSON-only-response instruction style of the reference prompt builder.
type promptData struct {
	Summary       string
	Files         []spec.FileSpec
	ContractNotes []string
}

var systemPromptTemplate = template.Must(template.New("skeleton-system").Parse(
	`You generate code skeletons: imports, exports, type declarations, ` +
		`function/class signatures, and structural doc comments only. ` +
		`Never write implementation bodies. Respond with ONLY a JSON array ` +
		`of objects shaped like {"path": "...", "content": "..."}, one per ` +
		`requested file, in the same order they were requested. Do not wrap ` +
		`the array in markdown fences or add commentary before or after it.`))

var userPromptTemplate = template.Must(template.New("skeleton-user").Parse(
	`Requirement: {{.Summary}}

Files to produce skeletons for:
{{range .Files}}
- path: {{.Path}}
  language: {{.Language}}
  description: {{.Description}}
  {{- if .Requirements}}
  requirements:
  {{- range .Requirements}}
    - {{.}}
  {{- end}}
  {{- end}}
{{end}}
{{- if .ContractNotes}}
The following identifiers already exist elsewhere in the project. Echo
these exact names (field names, endpoint paths, event names) verbatim in
any skeleton that produces or consumes them; do not rename them:
{{range .ContractNotes}}
- {{.}}
{{end}}
{{- end}}
`))

func buildUserPrompt(d promptData) (string, error) {
	var b strings.Builder
	if err := userPromptTemplate.Execute(&b, d); err != nil {
		return "", err
	}
	return b.String(), nil
}

func buildSystemPrompt() (string, error) {
	var b strings.Builder
	if err := systemPromptTemplate.Execute(&b, nil); err != nil {
		return "", err
	}
	return b.String(), nil
}

// contractNotes renders a short textual summary of every existing contract
// entry the skeleton prompt should enforce verbatim (SPEC_FULL.md §4.3c).
func contractNotes(contracts *spec.Contracts) []string {
	if contracts == nil {
		return nil
	}
	var notes []string
	for _, e := range contracts.AllEntries() {
		notes = append(notes, string(e.Kind)+": "+e.Key)
	}
	return notes
}
