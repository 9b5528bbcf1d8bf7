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

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/codeforge-dev/codeforge/services/forge/coordinate"
	"github.com/codeforge-dev/codeforge/services/forge/spec"
)

var (
	outDir    string
	gcsBucket string
	gcsPrefix string
	plain     bool

	generateCmd = &cobra.Command{
		Use:   "generate <spec.json>",
		Short: "Generate a project from a ProjectSpec JSON file",
		Args:  cobra.ExactArgs(1),
		RunE:  runGenerate,
	}
)

func init() {
	generateCmd.Flags().StringVar(&outDir, "out", "./generated", "directory to write the generated tree into")
	generateCmd.Flags().StringVar(&gcsBucket, "gcs-bucket", "", "also upload the generated tree to this GCS bucket, in addition to --out")
	generateCmd.Flags().StringVar(&gcsPrefix, "gcs-prefix", "", "object name prefix within --gcs-bucket")
	generateCmd.Flags().BoolVar(&plain, "plain", false, "print phase transitions as plain log lines instead of the TUI progress view")
}

func runGenerate(cmd *cobra.Command, args []string) error {
	raw, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("generate: read spec: %w", err)
	}
	var ps spec.ProjectSpec
	if err := json.Unmarshal(raw, &ps); err != nil {
		return fmt.Errorf("generate: parse spec: %w", err)
	}

	cfg, err := buildConfig()
	if err != nil {
		return err
	}

	updates := make(chan coordinate.Phase, 16)
	results := make(chan resultMsg, 1)
	progressFn := func(phase coordinate.Phase, detail string) {
		if plain {
			slog.Info("forge: phase", slog.String("phase", string(phase)))
			return
		}
		select {
		case updates <- phase:
		default:
		}
	}

	co, err := coordinate.New(cfg, coordinate.WithProgressFunc(progressFn))
	if err != nil {
		return fmt.Errorf("generate: build coordinator: %w", err)
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	go func() {
		result, genErr := co.Generate(ctx, &ps)
		results <- resultMsg{result: result, err: genErr}
		close(updates)
		close(results)
	}()

	var result *spec.GenerationResult
	if plain {
		r := <-results
		result, err = r.result, r.err
	} else {
		program := tea.NewProgram(newProgressModel(updates, results))
		finalModel, runErr := program.Run()
		if runErr != nil {
			return fmt.Errorf("generate: progress view: %w", runErr)
		}
		m := finalModel.(progressModel)
		result, err = m.result, m.err
	}
	if err != nil {
		return fmt.Errorf("generate: %w", err)
	}

	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return fmt.Errorf("generate: create %s: %w", outDir, err)
	}
	if err := writeLocal(outDir, result.Files); err != nil {
		return err
	}
	if err := writeResultJSON(outDir, result); err != nil {
		return err
	}
	if gcsBucket != "" {
		if err := writeGCS(ctx, gcsBucket, gcsPrefix, result.Files); err != nil {
			return err
		}
	}

	for _, note := range result.Notes {
		fmt.Println(note)
	}
	return nil
}
