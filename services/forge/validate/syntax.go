// Copyright (c) 2026 Codeforge Contributors
// Licensed under the GNU Affero General Public License v3.0.
// See https://www.gnu.org/licenses/agpl-3.0.html for the full license text.

package validate

import (
	"context"
	"fmt"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/golang"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/python"
	"github.com/smacker/go-tree-sitter/typescript/typescript"

	"github.com/codeforge-dev/codeforge/services/forge/spec"
)

func sitterLanguage(path string) *sitter.Language {
	switch {
	case strings.HasSuffix(path, ".go"):
		return golang.GetLanguage()
	case strings.HasSuffix(path, ".py"):
		return python.GetLanguage()
	case strings.HasSuffix(path, ".ts"), strings.HasSuffix(path, ".tsx"):
		return typescript.GetLanguage()
	case strings.HasSuffix(path, ".js"), strings.HasSuffix(path, ".jsx"), strings.HasSuffix(path, ".mjs"), strings.HasSuffix(path, ".cjs"):
		return javascript.GetLanguage()
	}
	return nil
}

// checkSyntaxSoundness parses every file whose language tree-sitter knows
// and reports one syntax-error issue per file whose tree contains an error
// node (SPEC_FULL.md §4.7's "auxiliary check"). HTML, CSS, and other
// languages without a wired grammar are skipped rather than flagged.
func checkSyntaxSoundness(ctx context.Context, files []spec.GeneratedFile) []Issue {
	var out []Issue
	for _, f := range files {
		lang := sitterLanguage(f.Path)
		if lang == nil {
			continue
		}
		if errNode, ok := firstErrorNode(ctx, lang, []byte(f.Content)); ok {
			out = append(out, Issue{
				Kind: KindSyntaxError, Paths: []string{f.Path},
				Description: fmt.Sprintf("%s fails to parse at line %d", f.Path, errNode+1),
			})
		}
	}
	return out
}

// firstErrorNode parses source and returns the 0-indexed line of the first
// ERROR or MISSING node found, if any.
func firstErrorNode(ctx context.Context, lang *sitter.Language, source []byte) (int, bool) {
	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(lang)

	tree, err := parser.ParseCtx(ctx, nil, source)
	if err != nil {
		return 0, false
	}
	defer tree.Close()

	return walkForError(tree.RootNode())
}

func walkForError(node *sitter.Node) (int, bool) {
	if node == nil {
		return 0, false
	}
	if node.IsError() || node.IsMissing() {
		return int(node.StartPoint().Row), true
	}
	for i := 0; i < int(node.ChildCount()); i++ {
		if line, ok := walkForError(node.Child(i)); ok {
			return line, true
		}
	}
	return 0, false
}
