// Copyright (c) 2026 Codeforge Contributors
// Licensed under the GNU Affero General Public License v3.0.
// See https://www.gnu.org/licenses/agpl-3.0.html for the full license text.

package skeleton

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// entry mirrors the {path, content} JSON object the prompt asks for.
type entry struct {
	Path    string `json:"path"`
	Content string `json:"content"`
}

var (
	fenceRe     = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)```")
	arrayRe     = regexp.MustCompile(`(?s)\[.*\]`)
	doubleEscRe = regexp.MustCompile(`\\\\(["\\/])`)
)

// tolerantParseBatch implements SPEC_FULL.md §4.3's tolerant parsing rule:
// strip markdown fences, extract the first JSON array block, normalize
// double-escaped backslashes/quotes, then unmarshal into path -> content.
func tolerantParseBatch(raw string) (map[string]string, error) {
	text := raw

	if m := fenceRe.FindStringSubmatch(text); m != nil {
		text = m[1]
	}

	block := arrayRe.FindString(text)
	if block == "" {
		return nil, fmt.Errorf("skeleton: no JSON array found in response")
	}

	normalized := doubleEscRe.ReplaceAllString(block, `\$1`)

	var entries []entry
	if err := json.Unmarshal([]byte(normalized), &entries); err != nil {
		// One more attempt against the raw (un-normalized) block, in case
		// normalization over-corrected a legitimately-escaped value.
		if err2 := json.Unmarshal([]byte(block), &entries); err2 != nil {
			return nil, fmt.Errorf("skeleton: parse JSON array: %w", err)
		}
	}

	out := make(map[string]string, len(entries))
	for _, e := range entries {
		if e.Path == "" {
			continue
		}
		out[strings.TrimSpace(e.Path)] = e.Content
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("skeleton: parsed array contained no usable entries")
	}
	return out, nil
}
