// Copyright (c) 2026 Codeforge Contributors
// Licensed under the GNU Affero General Public License v3.0.
// See https://www.gnu.org/licenses/agpl-3.0.html for the full license text.

package setupgen

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codeforge-dev/codeforge/services/forge/spec"
)

func TestGenerateNPMSetupMatchesScenario6(t *testing.T) {
	s := &spec.ProjectSpec{
		Summary: "a calculator",
		Files:   []spec.FileSpec{{Path: "a.js", Language: "js"}},
		Setup: &spec.SetupSpec{
			StartCommands: map[string]string{"backend": "node server.js"},
		},
	}
	s.Setup.Dependencies.NPM = []string{"express@4.18.0", "cors"}

	files, err := Generate(s)
	require.NoError(t, err)

	byPath := map[string]spec.GeneratedFile{}
	for _, f := range files {
		byPath[f.Path] = f
	}
	require.Contains(t, byPath, "package.json")
	assert.Contains(t, byPath["package.json"].Content, `"express": "4.18.0"`)
	assert.Contains(t, byPath["package.json"].Content, `"cors": "latest"`)
	assert.Contains(t, byPath["package.json"].Content, `"server": "node server.js"`)
	require.Contains(t, byPath, "README.md")
	require.Contains(t, byPath, "start.sh")
	require.Contains(t, byPath, "start.bat")
}

func TestGenerateIsDeterministic(t *testing.T) {
	s := &spec.ProjectSpec{
		Summary: "x",
		Files:   []spec.FileSpec{{Path: "a.py", Language: "python"}},
		Setup:   &spec.SetupSpec{},
	}
	s.Setup.Dependencies.Python = []string{"flask", "requests"}

	a, err := Generate(s)
	require.NoError(t, err)
	b, err := Generate(s)
	require.NoError(t, err)
	require.Equal(t, len(a), len(b))
	for i := range a {
		assert.Equal(t, a[i].Content, b[i].Content)
	}
}

func TestGenerateEnvExample(t *testing.T) {
	s := &spec.ProjectSpec{
		Summary: "x",
		Setup: &spec.SetupSpec{
			EnvironmentVariables: map[string]string{"PORT": "3000", "API_KEY": "changeme"},
		},
	}
	files, err := Generate(s)
	require.NoError(t, err)
	var env *spec.GeneratedFile
	for i := range files {
		if files[i].Path == ".env.example" {
			env = &files[i]
		}
	}
	require.NotNil(t, env)
	assert.Contains(t, env.Content, "API_KEY=changeme")
	assert.Contains(t, env.Content, "PORT=3000")
}

func TestGenerateWithoutSetupStillEmitsREADME(t *testing.T) {
	s := &spec.ProjectSpec{Summary: "bare project"}
	files, err := Generate(s)
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "README.md", files[0].Path)
}
