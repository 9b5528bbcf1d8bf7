// Copyright (c) 2026 Codeforge Contributors
// Licensed under the GNU Affero General Public License v3.0.
// See https://www.gnu.org/licenses/agpl-3.0.html for the full license text.

package detail

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/codeforge-dev/codeforge/services/forge/contract"
	"github.com/codeforge-dev/codeforge/services/forge/depgraph"
	"github.com/codeforge-dev/codeforge/services/forge/spec"
)

var (
	tracer = otel.Tracer("codeforge.detail")
	meter  = otel.Meter("codeforge.detail")
)

// DefaultFileTimeout bounds a single worker invocation, matching
// SPEC_FULL.md §5: "generous — minutes, not seconds".
const DefaultFileTimeout = 5 * time.Minute

// Generator is the DetailGenerator: per-layer parallel worker fan-out with
// strict layer ordering and contract propagation (SPEC_FULL.md §4.4). The
// per-node concurrency shape is adapted from the reference DAG executor's
// executeParallel, replacing its raw sync.WaitGroup/channel plumbing with
// golang.org/x/sync/errgroup since the teacher's own go.mod already depends
// on it directly.
type Generator struct {
	registry     Registry
	extractor    *contract.Extractor
	exemplars    ExemplarProvider
	interLayer   time.Duration
	fileTimeout  time.Duration
	logger       *slog.Logger

	fileLatency   metric.Float64Histogram
	fileSuccesses metric.Int64Counter
	fileFailures  metric.Int64Counter
	activeFiles   metric.Int64UpDownCounter
	metricsOnce   sync.Once
}

// Option configures a Generator at construction.
type Option func(*Generator)

func WithExemplarProvider(p ExemplarProvider) Option {
	return func(g *Generator) { g.exemplars = p }
}

func WithInterLayerDelay(d time.Duration) Option {
	return func(g *Generator) { g.interLayer = d }
}

func WithFileTimeout(d time.Duration) Option {
	return func(g *Generator) { g.fileTimeout = d }
}

func WithLogger(l *slog.Logger) Option {
	return func(g *Generator) { g.logger = l }
}

// New builds a Generator with the given per-kind worker registry.
func New(registry Registry, opts ...Option) *Generator {
	g := &Generator{
		registry:    registry,
		extractor:   contract.New(),
		exemplars:   NoExemplarProvider{},
		interLayer:  1500 * time.Millisecond,
		fileTimeout: DefaultFileTimeout,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

func (g *Generator) initMetrics() {
	g.metricsOnce.Do(func() {
		var err error
		if g.fileLatency, err = meter.Float64Histogram("detail_file_duration_seconds",
			metric.WithDescription("Time spent generating a single file"), metric.WithUnit("s")); err != nil {
			g.logger.Warn("detail: metric init failed", slog.String("metric", "file_latency"), slog.String("error", err.Error()))
		}
		if g.fileSuccesses, err = meter.Int64Counter("detail_file_success_total"); err != nil {
			g.logger.Warn("detail: metric init failed", slog.String("metric", "file_successes"), slog.String("error", err.Error()))
		}
		if g.fileFailures, err = meter.Int64Counter("detail_file_failure_total"); err != nil {
			g.logger.Warn("detail: metric init failed", slog.String("metric", "file_failures"), slog.String("error", err.Error()))
		}
		if g.activeFiles, err = meter.Int64UpDownCounter("detail_active_files"); err != nil {
			g.logger.Warn("detail: metric init failed", slog.String("metric", "active_files"), slog.String("error", err.Error()))
		}
	})
}

// GenerateDetails runs Phase 2: for each layer in topological order (from
// depgraph.Result), generate every file in that layer concurrently,
// extract contracts from the completed layer, merge them into the running
// Contracts, and proceed to the next layer. Contracts is mutated only at
// layer boundaries; within a layer every worker receives an immutable
// Clone (SPEC_FULL.md §5).
func (g *Generator) GenerateDetails(
	ctx context.Context,
	files []spec.FileSpec,
	skeletons map[string]string,
	layout depgraph.Result,
	contracts *spec.Contracts,
	projectConfig spec.ProjectConfig,
) ([]spec.GeneratedFile, error) {
	g.initMetrics()

	specByPath := make(map[string]spec.FileSpec, len(files))
	for _, f := range files {
		specByPath[f.Path] = f
	}

	results := make(map[string]spec.GeneratedFile, len(files))
	var resultsMu sync.Mutex

	for layerIdx, paths := range layout.Layers {
		ctx, span := tracer.Start(ctx, "detail.layer",
			trace.WithAttributes(attribute.Int("layer", layerIdx), attribute.Int("files", len(paths))))

		snapshot := contracts.Clone()
		bodiesSoFar := make(map[string]string, len(results))
		resultsMu.Lock()
		for p, r := range results {
			bodiesSoFar[p] = r.Content
		}
		resultsMu.Unlock()

		eg, egCtx := errgroup.WithContext(ctx)
		for _, path := range paths {
			path := path
			fs, ok := specByPath[path]
			if !ok {
				continue // config/setup files never reach the detail layer
			}
			eg.Go(func() error {
				gf := g.generateOne(egCtx, fs, layerIdx, skeletons, snapshot, bodiesSoFar, layout, projectConfig)
				resultsMu.Lock()
				results[path] = gf
				resultsMu.Unlock()
				return nil // per-file failures are recorded on GeneratedFile, never propagated
			})
		}
		// errgroup's ctx cancellation path is unused here by design: a
		// worker failure is isolated (SPEC_FULL.md §4.4), so eg.Go bodies
		// never return a non-nil error for the group to cancel on.
		_ = eg.Wait()

		layerFiles := make([]spec.GeneratedFile, 0, len(paths))
		resultsMu.Lock()
		for _, path := range paths {
			if gf, ok := results[path]; ok {
				layerFiles = append(layerFiles, gf)
			}
		}
		resultsMu.Unlock()

		contracts.Merge(g.extractor.Extract(layerFiles))

		span.End()

		isLast := layerIdx == len(layout.Layers)-1
		if !isLast && g.interLayer > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(g.interLayer):
			}
		}
	}

	out := make([]spec.GeneratedFile, 0, len(files))
	for _, f := range files {
		if gf, ok := results[f.Path]; ok {
			out = append(out, gf)
		}
	}
	return out, nil
}

// generateOne runs the per-file procedure from SPEC_FULL.md §4.4: skip for
// auto-generated templates, select a worker by extension, classify a model
// tier, assemble the Context bundle, invoke the worker, and fall back to
// the skeleton on any failure.
func (g *Generator) generateOne(
	ctx context.Context,
	fs spec.FileSpec,
	layer int,
	skeletons map[string]string,
	contracts *spec.Contracts,
	dependencyBodiesAll map[string]string,
	layout depgraph.Result,
	projectConfig spec.ProjectConfig,
) spec.GeneratedFile {
	if fs.IsAutoGenerated {
		return spec.GeneratedFile{
			Path: fs.Path, Content: fs.Template, Language: fs.Language, Layer: layer,
			Metadata: spec.FileMetadata{Method: spec.MethodAutoGenerated},
		}
	}

	ctx, span := tracer.Start(ctx, "detail.file", trace.WithAttributes(attribute.String("path", fs.Path)))
	defer span.End()
	if g.activeFiles != nil {
		g.activeFiles.Add(ctx, 1)
		defer g.activeFiles.Add(ctx, -1)
	}

	deps := map[string]string{}
	if adj, ok := layout.Graph.DependenciesOf(fs.Path); ok {
		for _, d := range adj {
			if body, ok := dependencyBodiesAll[d]; ok {
				deps[d] = body
			}
		}
	}

	exemplar, err := g.exemplars.Lookup(ctx, fs.Description)
	if err != nil {
		g.logger.Debug("detail: exemplar lookup failed, continuing without it", slog.String("path", fs.Path), slog.String("error", err.Error()))
	}

	worker := g.registry.For(fs.Path)
	workerCtx := Context{
		Skeleton:         skeletons[fs.Path],
		AllSkeletons:     skeletons,
		DependencyBodies: deps,
		Contracts:        contracts,
		ProjectConfig:    projectConfig,
		File:             fs,
		Tier:             TierForPath(fs.Path),
		Exemplar:         exemplar,
	}

	callCtx, cancel := context.WithTimeout(ctx, g.fileTimeout)
	defer cancel()

	start := time.Now()
	result, err := worker.Generate(callCtx, workerCtx)
	duration := time.Since(start)
	if g.fileLatency != nil {
		g.fileLatency.Record(ctx, duration.Seconds(), metric.WithAttributes(attribute.String("path", fs.Path)))
	}

	if err != nil {
		if g.fileFailures != nil {
			g.fileFailures.Add(ctx, 1, metric.WithAttributes(attribute.String("path", fs.Path)))
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		g.logger.Error("detail: worker failed, falling back to skeleton",
			slog.String("path", fs.Path), slog.String("error", err.Error()))
		return spec.GeneratedFile{
			Path: fs.Path, Content: skeletons[fs.Path], Language: fs.Language, Layer: layer,
			Error:    err.Error(),
			Metadata: spec.FileMetadata{Method: spec.MethodSkeletonFallback},
		}
	}

	if g.fileSuccesses != nil {
		g.fileSuccesses.Add(ctx, 1, metric.WithAttributes(attribute.String("path", fs.Path)))
	}
	span.SetStatus(codes.Ok, "")

	return spec.GeneratedFile{
		Path: fs.Path, Content: result.Content, Language: fs.Language, Layer: layer,
		Metadata: spec.FileMetadata{TokensUsed: result.TokensUsed, Method: result.Method},
	}
}
