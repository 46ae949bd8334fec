package app

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "github.com/neomorfeo/farmconf/internal/app"

type snapshotMetrics struct {
	hits   metric.Int64Counter
	misses metric.Int64Counter
	writes metric.Int64Counter
}

// newSnapshotMetrics registers the snapshot counters on the global meter
// provider. Registration errors leave a no-op counter in place.
func newSnapshotMetrics() *snapshotMetrics {
	meter := otel.Meter(meterName)
	hits, _ := meter.Int64Counter("farmconf.snapshot.hits",
		metric.WithDescription("Config snapshots served from the cache file"))
	misses, _ := meter.Int64Counter("farmconf.snapshot.misses",
		metric.WithDescription("Config snapshots recomputed from sources"))
	writes, _ := meter.Int64Counter("farmconf.snapshot.writes",
		metric.WithDescription("Config snapshots written back to the cache file"))
	return &snapshotMetrics{hits: hits, misses: misses, writes: writes}
}

func (m *snapshotMetrics) add(ctx context.Context, c metric.Int64Counter, farm string) {
	c.Add(ctx, 1, metric.WithAttributes(attribute.String("farm", farm)))
}
