// Copyright (c) 2026 Codeforge Contributors
// Licensed under the GNU Affero General Public License v3.0.
// See https://www.gnu.org/licenses/agpl-3.0.html for the full license text.

package telemetry

import (
	"context"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
)

// InfluxDB writes phase metrics to a bucket via the blocking write API so
// RecordPhase's error return reflects an actual failed write rather than
// a silently dropped async batch.
type InfluxDB struct {
	client influxdb2.Client
	write  api.WriteAPIBlocking
}

// NewInfluxDB connects to serverURL with token, targeting org/bucket.
func NewInfluxDB(serverURL, token, org, bucket string) *InfluxDB {
	client := influxdb2.NewClient(serverURL, token)
	return &InfluxDB{client: client, write: client.WriteAPIBlocking(org, bucket)}
}

func (s *InfluxDB) RecordPhase(ctx context.Context, m PhaseMetric) error {
	point := influxdb2.NewPoint(
		"forge_phase",
		map[string]string{"phase": m.Phase},
		map[string]interface{}{
			"duration_ms":   m.DurationMs,
			"tokens_used":   m.TokensUsed,
			"files_touched": m.FilesTouched,
			"success":       m.Success,
		},
		time.Now(),
	)
	return s.write.WritePoint(ctx, point)
}

func (s *InfluxDB) Close() error {
	s.client.Close()
	return nil
}
