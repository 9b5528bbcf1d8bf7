// Copyright (c) 2026 Codeforge Contributors
// Licensed under the GNU Affero General Public License v3.0.
// See https://www.gnu.org/licenses/agpl-3.0.html for the full license text.

package repair

import (
	"strings"
	"text/template"

	"github.com/codeforge-dev/codeforge/services/forge/spec"
	"github.com/codeforge-dev/codeforge/services/forge/validate"
)

const systemPrompt = `You repair one source file so it no longer violates the listed cross-file contract issues. Respond with ONLY the complete, corrected file body: no markdown fences, no commentary, no partial diffs.`

var userPromptTemplate = template.Must(template.New("repair-user").Parse(
	`File: {{.Path}}

Current content:
` + "```" + `
{{.Content}}
` + "```" + `

Issues to resolve in this file:
{{- range .Issues}}
  - [{{.Kind}}] {{.Description}}
{{- end}}

Return the full corrected file body, preserving everything not related to these issues.
`))

type promptData struct {
	Path    string
	Content string
	Issues  []validate.Issue
}

func buildUserPrompt(f spec.GeneratedFile, content string, issues []validate.Issue) (string, error) {
	var b strings.Builder
	err := userPromptTemplate.Execute(&b, promptData{Path: f.Path, Content: content, Issues: issues})
	return b.String(), err
}
