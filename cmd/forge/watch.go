// Copyright (c) 2026 Codeforge Contributors
// Licensed under the GNU Affero General Public License v3.0.
// See https://www.gnu.org/licenses/agpl-3.0.html for the full license text.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/codeforge-dev/codeforge/services/forge/coordinate"
	"github.com/codeforge-dev/codeforge/services/forge/spec"
)

var (
	watchOutDir string

	watchCmd = &cobra.Command{
		Use:   "watch <spec.json>",
		Short: "Re-run generate every time spec.json changes on disk",
		Args:  cobra.ExactArgs(1),
		RunE:  runWatch,
	}
)

func init() {
	watchCmd.Flags().StringVar(&watchOutDir, "out", "./generated", "directory to write the generated tree into")
}

// runWatch is grounded on the reference file watcher's fsnotify.Watcher
// wrapped in a debounced event loop, narrowed here to a single watched
// file and a direct re-generate on every write instead of a batched,
// multi-path change-handler callback.
func runWatch(cmd *cobra.Command, args []string) error {
	specPath, err := filepath.Abs(args[0])
	if err != nil {
		return fmt.Errorf("watch: resolve path: %w", err)
	}

	cfg, err := buildConfig()
	if err != nil {
		return err
	}
	co, err := coordinate.New(cfg, coordinate.WithProgressFunc(func(phase coordinate.Phase, detail string) {
		slog.Debug("forge: phase", slog.String("phase", string(phase)))
	}))
	if err != nil {
		return err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("watch: create watcher: %w", err)
	}
	defer watcher.Close()
	if err := watcher.Add(filepath.Dir(specPath)); err != nil {
		return fmt.Errorf("watch: watch dir: %w", err)
	}

	slog.Info("forge: watching", slog.String("spec", specPath))
	regen := func() {
		raw, err := os.ReadFile(specPath)
		if err != nil {
			slog.Error("forge: read spec failed", slog.String("error", err.Error()))
			return
		}
		var ps spec.ProjectSpec
		if err := json.Unmarshal(raw, &ps); err != nil {
			slog.Error("forge: parse spec failed", slog.String("error", err.Error()))
			return
		}
		result, err := co.Generate(context.Background(), &ps)
		if err != nil {
			slog.Error("forge: generate failed", slog.String("error", err.Error()))
			return
		}
		if err := os.MkdirAll(watchOutDir, 0o755); err != nil {
			slog.Error("forge: mkdir failed", slog.String("error", err.Error()))
			return
		}
		if err := writeLocal(watchOutDir, result.Files); err != nil {
			slog.Error("forge: write failed", slog.String("error", err.Error()))
			return
		}
		slog.Info("forge: regenerated", slog.Int("files", len(result.Files)))
	}

	regen()
	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Name == specPath && (event.Op&(fsnotify.Write|fsnotify.Create) != 0) {
				regen()
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			slog.Error("forge: watcher error", slog.String("error", err.Error()))
		}
	}
}
