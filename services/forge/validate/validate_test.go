// Copyright (c) 2026 Codeforge Contributors
// Licensed under the GNU Affero General Public License v3.0.
// See https://www.gnu.org/licenses/agpl-3.0.html for the full license text.

package validate

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codeforge-dev/codeforge/services/forge/contract"
	"github.com/codeforge-dev/codeforge/services/forge/spec"
)

// TestValidateNamingStyleScenarioReportsNameMismatch implements the
// naming-style-fix scenario: ipcMain.handle('save-note', ...) in the main
// process vs ipcRenderer.invoke('saveNote', ...) in the renderer should
// surface one name-mismatch (the two spellings normalize to the same
// identifier).
func TestValidateNamingStyleScenarioReportsNameMismatch(t *testing.T) {
	files := []spec.GeneratedFile{
		{Path: "main.js", Content: `ipcMain.handle('save-note', async (event, note) => { return store.save(note); });`},
		{Path: "renderer.js", Content: `async function onSave(note) { return ipcRenderer.invoke('saveNote', note); }`},
	}
	contracts := contract.New().Extract(files)

	result := Validate(context.Background(), files, contracts)
	require.Contains(t, result.Issues, KindNameMismatch)
	issue := result.Issues[KindNameMismatch][0]
	assert.ElementsMatch(t, []string{"save-note", "saveNote"}, issue.Keys)
	assert.Equal(t, "save-note", issue.Canonical) // producer's spelling wins
	assert.False(t, result.IsValid)
}

// TestValidateDetectsParameterShapeMismatch implements the parameter-shape
// scenario: ipcMain.handle('load', async (e, {name}) => ...) destructures an
// object but the renderer calls invoke('load', filename) positionally.
func TestValidateDetectsParameterShapeMismatch(t *testing.T) {
	files := []spec.GeneratedFile{
		{Path: "main.js", Content: `ipcMain.handle('load', async (event, {name}) => { return fs.readFileSync(name); });`},
		{Path: "renderer.js", Content: `ipcRenderer.invoke('load', filename);`},
	}

	result := Validate(context.Background(), files, spec.NewContracts())
	require.Contains(t, result.Issues, KindParameterShapeMismatch)
	issue := result.Issues[KindParameterShapeMismatch][0]
	assert.Equal(t, "load", issue.Keys[0])
	assert.Equal(t, []string{"renderer.js"}, issue.Paths)
	assert.True(t, result.IsValid == false)
}

func TestValidateMissingProducerAndConsumer(t *testing.T) {
	contracts := spec.NewContracts()
	contracts.MergeEntry(&spec.ContractEntry{Kind: spec.KindDOM, Key: "save-btn", Consumers: []string{"renderer.js"}})
	contracts.MergeEntry(&spec.ContractEntry{Kind: spec.KindStorage, Key: "theme", Producers: []string{"main.js"}})

	result := Validate(context.Background(), nil, contracts)
	require.Len(t, result.Issues[KindMissingProducer], 1)
	assert.Equal(t, "save-btn", result.Issues[KindMissingProducer][0].Keys[0])
	require.Len(t, result.Issues[KindMissingConsumer], 1)
	assert.Equal(t, "theme", result.Issues[KindMissingConsumer][0].Keys[0])

	// missing-consumer is warning-tier: it must not affect IsValid by itself,
	// but the missing-producer issue here is critical so IsValid is false.
	assert.False(t, result.IsValid)
	assert.Equal(t, 1, result.Summary.Critical)
	assert.Equal(t, 2, result.Summary.Total)
}

func TestValidateMissingConsumerAloneIsStillValid(t *testing.T) {
	contracts := spec.NewContracts()
	contracts.MergeEntry(&spec.ContractEntry{Kind: spec.KindAPI, Key: "/api/notes", Producers: []string{"server.py"}})

	result := Validate(context.Background(), nil, contracts)
	require.Len(t, result.Issues[KindMissingConsumer], 1)
	assert.True(t, result.IsValid)
	assert.Equal(t, 0, result.Summary.Critical)
}

func TestValidateDetectsSelectOptionCaseMismatch(t *testing.T) {
	files := []spec.GeneratedFile{
		{Path: "index.html", Content: `<select id="mode"><option value="Dark">Dark</option></select>`},
		{Path: "app.js", Content: `if (mode === 'dark') { applyDark(); }`},
	}
	result := Validate(context.Background(), files, spec.NewContracts())
	require.Contains(t, result.Issues, KindSelectOptionCaseMismatch)
	issue := result.Issues[KindSelectOptionCaseMismatch][0]
	assert.Equal(t, "Dark", issue.Canonical)
}

func TestValidateDetectsPathReferenceError(t *testing.T) {
	files := []spec.GeneratedFile{
		{Path: "public/index.html", Content: `<link rel="stylesheet" href="public/style.css">`},
	}
	result := Validate(context.Background(), files, spec.NewContracts())
	require.Contains(t, result.Issues, KindPathReferenceError)
	assert.Equal(t, "public/style.css", result.Issues[KindPathReferenceError][0].Keys[0])
}

func TestValidateDetectsExportSyntaxError(t *testing.T) {
	files := []spec.GeneratedFile{
		{Path: "index.html", Content: `<script src="util.js"></script>`},
		{Path: "util.js", Content: "export function helper() {}"},
	}
	result := Validate(context.Background(), files, spec.NewContracts())
	require.Contains(t, result.Issues, KindExportSyntaxError)
	assert.Equal(t, "util.js", result.Issues[KindExportSyntaxError][0].Paths[0])
}

func TestValidateNoExportSyntaxErrorWhenLoadedAsModule(t *testing.T) {
	files := []spec.GeneratedFile{
		{Path: "index.html", Content: `<script type="module" src="util.js"></script>`},
		{Path: "util.js", Content: "export function helper() {}"},
	}
	result := Validate(context.Background(), files, spec.NewContracts())
	assert.Empty(t, result.Issues[KindExportSyntaxError])
}

func TestValidateSchemaMismatchFromConflictedEntry(t *testing.T) {
	contracts := spec.NewContracts()
	contracts.MergeEntry(&spec.ContractEntry{Kind: spec.KindAPI, Key: "/api/notes", Producers: []string{"server.py"}, API: &spec.APISchema{Method: "GET", RequestShape: []string{"id"}}})
	contracts.MergeEntry(&spec.ContractEntry{Kind: spec.KindAPI, Key: "/api/notes", Producers: []string{"server2.py"}, API: &spec.APISchema{Method: "POST", RequestShape: []string{"name"}}})

	result := Validate(context.Background(), nil, contracts)
	require.Contains(t, result.Issues, KindSchemaMismatch)
	assert.Equal(t, "/api/notes", result.Issues[KindSchemaMismatch][0].Keys[0])
}

func TestValidateCleanProjectIsValid(t *testing.T) {
	files := []spec.GeneratedFile{
		{Path: "index.html", Content: `<script type="module" src="app.js"></script><select><option value="dark">dark</option></select>`},
		{Path: "app.js", Content: `export function run() { return ipcRenderer.invoke('save-note', {note}); }`},
		{Path: "main.js", Content: `ipcMain.handle('save-note', async (event, {note}) => { return true; });`},
	}
	contracts := contract.New().Extract(files)
	result := Validate(context.Background(), files, contracts)
	assert.True(t, result.IsValid)
}
