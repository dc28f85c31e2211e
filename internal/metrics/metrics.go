// Package metrics wires up OpenTelemetry metric instrumentation for the
// store. Instruments are registered against the
// global meter provider at package init time, the way steveyegge-beads
// registers its dolt storage metrics, so they work whether or not Init has
// run yet; Init only swaps the global no-op provider for one that actually
// exports.
package metrics

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

const meterName = "github.com/kgstore/kgstore"

// Init installs a periodic stdout-exporting meter provider as the global
// OTel provider. Call once at server startup; the returned shutdown func
// flushes and stops the exporter and should run on server exit.
func Init(ctx context.Context) (shutdown func(context.Context) error, err error) {
	exporter, err := stdoutmetric.New(stdoutmetric.WithoutTimestamps())
	if err != nil {
		return nil, err
	}
	reader := sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(60*time.Second))
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	otel.SetMeterProvider(provider)
	return provider.Shutdown, nil
}

var meter = otel.Meter(meterName)

// SearchDuration and TraversalNodesVisited are recorded directly by their
// callers rather than through wrapper functions, matching how
// steveyegge-beads' dolt store records against its own package-level
// instruments.
var (
	SearchDuration, _ = meter.Float64Histogram(
		"memory_graph.search.duration",
		metric.WithDescription("Wall-clock time of a search_memories/recall_memories call"),
		metric.WithUnit("ms"),
	)
	TraversalNodesVisited, _ = meter.Int64Counter(
		"memory_graph.traversal.nodes_visited",
		metric.WithDescription("Nodes visited while expanding a relationship neighbourhood"),
		metric.WithUnit("{node}"),
	)
	RateLimitAllowed, _ = meter.Int64Counter(
		"memory_graph.ratelimit.allowed",
		metric.WithDescription("Tool calls allowed by the MCP dispatcher's rate limiter"),
		metric.WithUnit("{call}"),
	)
	RateLimitRejected, _ = meter.Int64Counter(
		"memory_graph.ratelimit.rejected",
		metric.WithDescription("Tool calls rejected by the MCP dispatcher's rate limiter"),
		metric.WithUnit("{call}"),
	)
)
