// Copyright (c) 2026 Codeforge Contributors
// Licensed under the GNU Affero General Public License v3.0.
// See https://www.gnu.org/licenses/agpl-3.0.html for the full license text.

package depgraph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnalyzeLayersChain(t *testing.T) {
	paths := []string{"a.js", "b.js", "c.js"}
	skeletons := map[string]string{
		"a.js": `import { helper } from './b.js';`,
		"b.js": `import { core } from './c.js';`,
		"c.js": `export function core() {}`,
	}

	result := Analyze(paths, skeletons)

	assert.Equal(t, 0, result.Layer["c.js"])
	assert.Equal(t, 1, result.Layer["b.js"])
	assert.Equal(t, 2, result.Layer["a.js"])
	require.True(t, result.Graph.IsAcyclic())
}

func TestAnalyzeHTMLLinkAndScriptEdges(t *testing.T) {
	paths := []string{"public/index.html", "public/style.css", "public/index.js"}
	skeletons := map[string]string{
		"public/index.html": `<link rel="stylesheet" href="style.css"><script src="index.js"></script>`,
		"public/style.css":  `body {}`,
		"public/index.js":   `console.log("hi")`,
	}

	result := Analyze(paths, skeletons)

	assert.Less(t, result.Layer["public/style.css"], result.Layer["public/index.html"])
	assert.Less(t, result.Layer["public/index.js"], result.Layer["public/index.html"])
}

func TestAnalyzeIgnoresReferencesOutsideProject(t *testing.T) {
	paths := []string{"a.js"}
	skeletons := map[string]string{
		"a.js": `import React from 'react'; import { x } from './not-in-project.js';`,
	}
	result := Analyze(paths, skeletons)
	assert.Equal(t, 0, result.Layer["a.js"])
	assert.Empty(t, result.Graph.Edges)
}

func TestAnalyzeBreaksCycles(t *testing.T) {
	paths := []string{"a.js", "b.js"}
	skeletons := map[string]string{
		"a.js": `import './b.js';`,
		"b.js": `import './a.js';`,
	}
	result := Analyze(paths, skeletons)

	require.True(t, result.Graph.IsAcyclic())
	require.Len(t, result.Graph.Broken, 1)
}

func TestAnalyzeStableTieBreakByPath(t *testing.T) {
	paths := []string{"z.html", "a.html", "m.html"}
	skeletons := map[string]string{}
	result := Analyze(paths, skeletons)

	require.Len(t, result.Layers, 1)
	assert.Equal(t, []string{"a.html", "m.html", "z.html"}, result.Layers[0])
}
