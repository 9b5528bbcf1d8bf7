// Copyright (c) 2026 Codeforge Contributors
// Licensed under the GNU Affero General Public License v3.0.
// See https://www.gnu.org/licenses/agpl-3.0.html for the full license text.

// Package coordinate implements the Coordinator: the top-level state
// machine that drives Phases 0-8 of SPEC_FULL.md §4.1, aggregating every
// collaborator package into one generate(spec) -> GenerationResult call.
// Grounded on the reference multi-file coordinator's mutex-protected
// state-map shape and the reference DAG executor's Run/RunFromState
// checkpoint-resume idiom.
package coordinate

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/weaviate/weaviate-go-client/v5/weaviate"

	"github.com/codeforge-dev/codeforge/services/forge/autofix"
	"github.com/codeforge-dev/codeforge/services/forge/cache"
	"github.com/codeforge-dev/codeforge/services/forge/config"
	"github.com/codeforge-dev/codeforge/services/forge/depgraph"
	"github.com/codeforge-dev/codeforge/services/forge/detail"
	"github.com/codeforge-dev/codeforge/services/forge/llmclient"
	"github.com/codeforge-dev/codeforge/services/forge/repair"
	"github.com/codeforge-dev/codeforge/services/forge/setupgen"
	"github.com/codeforge-dev/codeforge/services/forge/skeleton"
	"github.com/codeforge-dev/codeforge/services/forge/spec"
	"github.com/codeforge-dev/codeforge/services/forge/telemetry"
	"github.com/codeforge-dev/codeforge/services/forge/validate"
)

// ProgressFunc is notified as the Coordinator moves between phases. detail
// is a short human-readable note (file counts, issue counts); callers that
// don't care about progress pass nil.
type ProgressFunc func(phase Phase, detail string)

// Coordinator drives the pipeline end to end. It holds no module-level
// state (SPEC_FULL.md §9: "multiple coordinators may coexist in one
// process with distinct configs") — every dependency is constructed once
// in New and held on the value.
type Coordinator struct {
	cfg        config.CoordinatorConfig
	client     llmclient.Client
	skeletons  *skeleton.Generator
	details    *detail.Generator
	repairer   *repair.Agent
	telemetry  telemetry.Sink
	logger     *slog.Logger
	onProgress ProgressFunc

	checkpoints map[string]Snapshot
}

// Option configures a Coordinator at construction.
type Option func(*Coordinator)

func WithLogger(l *slog.Logger) Option {
	return func(co *Coordinator) { co.logger = l }
}

func WithProgressFunc(f ProgressFunc) Option {
	return func(co *Coordinator) { co.onProgress = f }
}

func WithTelemetrySink(s telemetry.Sink) Option {
	return func(co *Coordinator) { co.telemetry = s }
}

// New builds a Coordinator from cfg, constructing the LLM client (with
// provider routing and, if cfg.CacheDir is set, a response cache), the
// exemplar provider (Weaviate if cfg.ExemplarEndpoint is set, otherwise a
// no-op), and the telemetry sink (InfluxDB if cfg.TelemetryEndpoint is
// set, otherwise a no-op).
func New(cfg config.CoordinatorConfig, opts ...Option) (*Coordinator, error) {
	base, err := buildClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("coordinate: %w", err)
	}

	var respCache *cache.ResponseCache
	if cfg.CacheDir != "" {
		respCache, err = cache.Open(cfg.CacheDir)
		if err != nil {
			return nil, fmt.Errorf("coordinate: open cache: %w", err)
		}
	}
	client := withCache(base, respCache)

	exemplars, err := buildExemplarProvider(cfg)
	if err != nil {
		return nil, fmt.Errorf("coordinate: %w", err)
	}

	co := &Coordinator{
		cfg:         cfg,
		client:      client,
		skeletons:   skeleton.New(client, cfg.MaxSkeletonBatch, cfg.SkeletonBatchDelay),
		repairer:    repair.New(client),
		telemetry:   telemetry.Noop{},
		logger:      slog.Default(),
		checkpoints: map[string]Snapshot{},
	}
	co.details = detail.New(detail.NewRegistry(client),
		detail.WithExemplarProvider(exemplars),
		detail.WithInterLayerDelay(cfg.DetailDelay),
		detail.WithFileTimeout(cfg.LLMCallTimeout),
		detail.WithLogger(co.logger),
	)
	if cfg.TelemetryEndpoint != "" {
		co.telemetry = telemetry.NewInfluxDB(cfg.TelemetryEndpoint, "", "codeforge", "generation")
	}

	for _, opt := range opts {
		opt(co)
	}
	return co, nil
}

func buildExemplarProvider(cfg config.CoordinatorConfig) (detail.ExemplarProvider, error) {
	if cfg.ExemplarEndpoint == "" {
		return detail.NoExemplarProvider{}, nil
	}
	parsed, err := url.Parse(cfg.ExemplarEndpoint)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("invalid exemplar endpoint %q", cfg.ExemplarEndpoint)
	}
	wc, err := weaviate.NewClient(weaviate.Config{Host: parsed.Host, Scheme: parsed.Scheme})
	if err != nil {
		return nil, fmt.Errorf("build weaviate client: %w", err)
	}
	return detail.NewWeaviateExemplarProvider(wc), nil
}

// Generate runs generate(spec) -> GenerationResult, SPEC_FULL.md §4.1. It
// never raises on a per-file generation failure; those are recorded on the
// corresponding GeneratedFile and surfaced in the result's Notes.
func (co *Coordinator) Generate(ctx context.Context, ps *spec.ProjectSpec) (*spec.GenerationResult, error) {
	if err := ps.Validate(); err != nil {
		return nil, err
	}
	state := newState(spec.NewRequestID(), ps)
	return co.run(ctx, state)
}

// Checkpoint returns the most recently persisted Snapshot for requestID,
// suitable for handing to Resume later (in this process or, once
// marshaled to JSON and back, a fresh one).
func (co *Coordinator) Checkpoint(requestID string) (Snapshot, bool) {
	snap, ok := co.checkpoints[requestID]
	return snap, ok
}

// Resume continues a generation from a persisted Snapshot, re-running only
// the phases at or after snap.Phase.
func (co *Coordinator) Resume(ctx context.Context, snap Snapshot) (*spec.GenerationResult, error) {
	return co.run(ctx, fromSnapshot(snap))
}

// run drives state through every phase from its current Phase to
// PhaseDone, checkpointing after each transition so Resume can pick up
// from exactly where a crash or cancellation left off.
func (co *Coordinator) run(ctx context.Context, state *GenerationState) (*spec.GenerationResult, error) {
	for {
		phase := state.currentPhase()
		if phase == PhaseDone {
			return assembleResult(state), nil
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		start := time.Now()
		next, touched, err := co.runPhase(ctx, state, phase)
		co.recordPhase(ctx, phase, start, touched, err == nil)
		if err != nil {
			return nil, fmt.Errorf("coordinate: phase %s: %w", phase, err)
		}

		state.setPhase(next)
		co.checkpoints[state.RequestID] = state.Checkpoint()
		if co.onProgress != nil {
			co.onProgress(next, "")
		}
	}
}

// runPhase executes one phase of the state machine and returns the next
// phase to run plus how many files it touched (for telemetry).
func (co *Coordinator) runPhase(ctx context.Context, state *GenerationState, phase Phase) (Phase, int, error) {
	switch phase {
	case PhaseConfig:
		files, err := setupgen.Generate(state.Spec)
		if err != nil {
			return phase, 0, err
		}
		state.ConfigFiles = files
		return PhaseSkeleton, len(files), nil

	case PhaseSkeleton:
		skeletons, err := co.skeletons.GenerateAll(ctx, state.Spec.Summary, state.Spec.Files, state.Contracts)
		if err != nil {
			return phase, 0, err
		}
		for _, f := range state.Spec.Files {
			if _, ok := skeletons[f.Path]; !ok {
				return phase, 0, fmt.Errorf("%w: no skeleton for %q after Phase 1", spec.ErrInvariantViolation, f.Path)
			}
		}
		state.Skeletons = skeletons
		return PhaseDetail, len(skeletons), nil

	case PhaseDetail:
		paths := make([]string, 0, len(state.Spec.Files))
		for _, f := range state.Spec.Files {
			paths = append(paths, f.Path)
		}
		state.Layout = depgraph.Analyze(paths, state.Skeletons)
		files, err := co.details.GenerateDetails(ctx, state.Spec.Files, state.Skeletons, state.Layout, state.Contracts, state.Spec.ProjectConfig)
		if err != nil {
			return phase, 0, err
		}
		state.Files = files
		return PhaseAssemble, len(files), nil

	case PhaseAssemble:
		// Nothing to compute: Phase 3 is "assemble + write setup files",
		// and this Coordinator holds the tree in memory rather than
		// writing it to disk itself (disk writing is the external
		// project-writer collaborator named in SPEC_FULL.md §1).
		return PhaseValidate, len(co.allFiles(state)), nil

	case PhaseValidate:
		result := validate.Validate(ctx, co.allFiles(state), state.Contracts)
		state.LastValidation = result
		return PhaseAutofix, result.Summary.Total, nil

	case PhaseAutofix:
		fixResult := autofix.Fix(co.allFiles(state), state.LastValidation)
		co.replaceGenerated(state, fixResult.Files)
		state.LastAutofix = fixResult
		applied := 0
		for _, o := range fixResult.Outcomes {
			if o.Applied {
				applied++
			}
		}
		return PhaseRevalidate, applied, nil

	case PhaseRevalidate:
		result := validate.Validate(ctx, co.allFiles(state), state.Contracts)
		state.LastValidation = result
		return PhaseRepair, result.Summary.Total, nil

	case PhaseRepair:
		residual := state.LastValidation.AllIssues()
		repairResult := co.repairer.Repair(ctx, co.allFiles(state), residual)
		co.replaceGenerated(state, repairResult.Files)
		state.LastRepair = repairResult
		applied := 0
		for _, o := range repairResult.Outcomes {
			if o.Applied {
				applied++
			}
		}
		return PhaseFinalValidate, applied, nil

	case PhaseFinalValidate:
		result := validate.Validate(ctx, co.allFiles(state), state.Contracts)
		state.LastValidation = result
		state.Notes = buildNotes(state, result)
		return PhaseDone, result.Summary.Total, nil

	default:
		return phase, 0, fmt.Errorf("%w: unknown phase %q", spec.ErrInvariantViolation, phase)
	}
}

// allFiles returns the config files (Phase 0) followed by the detail files
// (Phase 2), the full tree the validator and fixers operate on.
func (co *Coordinator) allFiles(state *GenerationState) []spec.GeneratedFile {
	out := make([]spec.GeneratedFile, 0, len(state.ConfigFiles)+len(state.Files))
	out = append(out, state.ConfigFiles...)
	out = append(out, state.Files...)
	return out
}

// replaceGenerated splits a combined file list back into state's
// ConfigFiles/Files partitions after autofix or repair rewrote some of
// them in place, preserving each slice's original length and order.
func (co *Coordinator) replaceGenerated(state *GenerationState, combined []spec.GeneratedFile) {
	byPath := make(map[string]spec.GeneratedFile, len(combined))
	for _, f := range combined {
		byPath[f.Path] = f
	}
	for i, f := range state.ConfigFiles {
		if updated, ok := byPath[f.Path]; ok {
			state.ConfigFiles[i] = updated
		}
	}
	for i, f := range state.Files {
		if updated, ok := byPath[f.Path]; ok {
			state.Files[i] = updated
		}
	}
}

func (co *Coordinator) recordPhase(ctx context.Context, phase Phase, start time.Time, touched int, success bool) {
	err := co.telemetry.RecordPhase(ctx, telemetry.PhaseMetric{
		Phase:        string(phase),
		DurationMs:   time.Since(start).Milliseconds(),
		FilesTouched: touched,
		Success:      success,
	})
	if err != nil {
		co.logger.Warn("coordinate: telemetry write failed", slog.String("phase", string(phase)), slog.String("error", err.Error()))
	}
}

// buildNotes renders the human-readable summary lines SPEC_FULL.md §6
// asks for: success/failure counts and failing paths.
func buildNotes(state *GenerationState, final *validate.Result) []string {
	var failed []string
	for _, f := range state.Files {
		if f.Error != "" {
			failed = append(failed, f.Path)
		}
	}
	notes := []string{
		fmt.Sprintf("generated %d files (%d config, %d detail)", len(state.ConfigFiles)+len(state.Files), len(state.ConfigFiles), len(state.Files)),
	}
	if len(failed) > 0 {
		notes = append(notes, fmt.Sprintf("%d file(s) fell back to their skeleton: %v", len(failed), failed))
	} else {
		notes = append(notes, "all files generated without per-file errors")
	}
	if final.IsValid {
		notes = append(notes, "final contract validation: passed")
	} else {
		notes = append(notes, fmt.Sprintf("final contract validation: %d issue(s), %d critical", final.Summary.Total, final.Summary.Critical))
	}
	return notes
}

// assembleResult builds the GenerationResult a completed GenerationState
// produces. Called only once state.Phase is PhaseDone.
func assembleResult(state *GenerationState) *spec.GenerationResult {
	files := make([]spec.GeneratedFile, 0, len(state.ConfigFiles)+len(state.Files))
	files = append(files, state.ConfigFiles...)
	files = append(files, state.Files...)

	failed := 0
	for _, f := range files {
		if f.Error != "" {
			failed++
		}
	}

	return &spec.GenerationResult{
		RequestID:  state.RequestID,
		ReceivedAt: time.Now().UTC(),
		Files:      files,
		Notes:      state.Notes,
		Metadata: spec.ResultMetadata{
			TotalFiles:  len(files),
			FailedFiles: failed,
			Version:     "1",
		},
	}
}
