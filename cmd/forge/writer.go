// Copyright (c) 2026 Codeforge Contributors
// Licensed under the GNU Affero General Public License v3.0.
// See https://www.gnu.org/licenses/agpl-3.0.html for the full license text.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"cloud.google.com/go/storage"

	"github.com/codeforge-dev/codeforge/services/forge/spec"
)

// writeLocal writes every GeneratedFile to outDir, creating parent
// directories as needed. This is the minimal stand-in for the on-disk
// project writer SPEC_FULL.md §1 names as an external collaborator.
func writeLocal(outDir string, files []spec.GeneratedFile) error {
	for _, f := range files {
		full := filepath.Join(outDir, filepath.FromSlash(f.Path))
		if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
			return fmt.Errorf("writer: mkdir for %s: %w", f.Path, err)
		}
		if err := os.WriteFile(full, []byte(f.Content), 0o644); err != nil {
			return fmt.Errorf("writer: write %s: %w", f.Path, err)
		}
	}
	return nil
}

// writeGCS uploads every GeneratedFile as an object under prefix/path in
// bucket, an optional ArtifactStore backend for deployments that want
// generated trees landed in object storage as well as on local disk.
func writeGCS(ctx context.Context, bucket, prefix string, files []spec.GeneratedFile) error {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return fmt.Errorf("writer: gcs client: %w", err)
	}
	defer client.Close()

	bkt := client.Bucket(bucket)
	for _, f := range files {
		name := f.Path
		if prefix != "" {
			name = prefix + "/" + f.Path
		}
		w := bkt.Object(name).NewWriter(ctx)
		if _, err := w.Write([]byte(f.Content)); err != nil {
			w.Close()
			return fmt.Errorf("writer: gcs write %s: %w", name, err)
		}
		if err := w.Close(); err != nil {
			return fmt.Errorf("writer: gcs close %s: %w", name, err)
		}
	}
	return nil
}

// writeResultJSON writes the full GenerationResult as one JSON document
// alongside the unpacked tree, so callers can recover metadata (errors,
// token counts, notes) without re-scanning the written files.
func writeResultJSON(outDir string, result *spec.GenerationResult) error {
	raw, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("writer: marshal result: %w", err)
	}
	return os.WriteFile(filepath.Join(outDir, ".forge-result.json"), raw, 0o644)
}
