// Copyright (c) 2026 Codeforge Contributors
// Licensed under the GNU Affero General Public License v3.0.
// See https://www.gnu.org/licenses/agpl-3.0.html for the full license text.

package telemetry

import "context"

// Noop discards every metric. It is the default Sink so the Coordinator
// never requires an InfluxDB deployment to run.
type Noop struct{}

func (Noop) RecordPhase(ctx context.Context, m PhaseMetric) error { return nil }
func (Noop) Close() error                                        { return nil }
