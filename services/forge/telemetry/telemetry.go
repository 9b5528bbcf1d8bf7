// Copyright (c) 2026 Codeforge Contributors
// Licensed under the GNU Affero General Public License v3.0.
// See https://www.gnu.org/licenses/agpl-3.0.html for the full license text.

// Package telemetry records per-phase token counts and durations as the
// Coordinator moves through Phases 0-8. It is a named, swappable sink:
// Influx for operators who want a dashboard, Noop for everyone else.
// Grounded on the reference DAG executor's metrics half (histogram per
// node/phase, counter per outcome), extended here with an external
// time-series sink rather than only local OTel instruments.
package telemetry

import "context"

// PhaseMetric is one phase's recorded cost.
type PhaseMetric struct {
	Phase       string
	DurationMs  int64
	TokensUsed  int
	FilesTouched int
	Success     bool
}

// Sink is the capability every telemetry backend implements.
type Sink interface {
	// RecordPhase persists one phase's metrics. Implementations must not
	// block the caller on a slow or unreachable backend beyond ctx's
	// deadline; a failed write is logged by the caller, never fatal to
	// the pipeline.
	RecordPhase(ctx context.Context, m PhaseMetric) error
	// Close flushes any buffered writes and releases the backend
	// connection.
	Close() error
}
