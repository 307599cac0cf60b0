// Package telemetry exposes OpenTelemetry counters for the interpret path.
// Counters are registered against the global meter provider, so with no SDK
// installed they are no-ops and cost nothing.
package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "github.com/supportlens/supportlens"

var (
	meter = otel.Meter(meterName)

	interpretCounter, _ = meter.Int64Counter("supportlens.interpret.requests",
		metric.WithDescription("Interpretation requests by resolution method"))

	cacheHitCounter, _ = meter.Int64Counter("supportlens.interpret.cache_hits",
		metric.WithDescription("Interpretation cache hits"))

	degradeCounter, _ = meter.Int64Counter("supportlens.interpret.degraded",
		metric.WithDescription("Best-effort results served because the AI path failed"))

	rebuildCounter, _ = meter.Int64Counter("supportlens.context.rebuilds",
		metric.WithDescription("Grounding context rebuilds"))
)

// RecordInterpret counts one interpretation, labeled by resolution method.
func RecordInterpret(ctx context.Context, method string) {
	interpretCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("method", method)))
}

// RecordCacheHit counts one interpretation-cache hit.
func RecordCacheHit(ctx context.Context) {
	cacheHitCounter.Add(ctx, 1)
}

// RecordDegraded counts one degraded (AI-unavailable) result.
func RecordDegraded(ctx context.Context) {
	degradeCounter.Add(ctx, 1)
}

// RecordContextRebuild counts one grounding-context rebuild.
func RecordContextRebuild(ctx context.Context) {
	rebuildCounter.Add(ctx, 1)
}
