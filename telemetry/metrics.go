package telemetry

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/tagsense/tagsense"

// Tracer is the shared tracer for scan, tag, and generate spans.
var Tracer = otel.Tracer(instrumentationName)

// Meter is the shared meter; counters below bind to the global
// delegate and become live once InitOTEL installs a provider.
var Meter = otel.Meter(instrumentationName)

var (
	ResourcesScanned  metric.Int64Counter
	TagsApplied       metric.Int64Counter
	RollbacksRun      metric.Int64Counter
	CacheHits         metric.Int64Counter
	CacheMisses       metric.Int64Counter
	ProviderFallbacks metric.Int64Counter
	ScanDuration      metric.Float64Histogram
)

func init() {
	ResourcesScanned, _ = Meter.Int64Counter("tagsense.resources.scanned",
		metric.WithDescription("Resources observed by scans"))
	TagsApplied, _ = Meter.Int64Counter("tagsense.tags.applied",
		metric.WithDescription("Tag mutations applied"))
	RollbacksRun, _ = Meter.Int64Counter("tagsense.tags.rollbacks",
		metric.WithDescription("Batch rollbacks performed"))
	CacheHits, _ = Meter.Int64Counter("tagsense.llm.cache.hits",
		metric.WithDescription("LLM response cache hits"))
	CacheMisses, _ = Meter.Int64Counter("tagsense.llm.cache.misses",
		metric.WithDescription("LLM response cache misses"))
	ProviderFallbacks, _ = Meter.Int64Counter("tagsense.llm.fallbacks",
		metric.WithDescription("Generations served by the fallback provider"))
	ScanDuration, _ = Meter.Float64Histogram("tagsense.scan.duration",
		metric.WithDescription("Scan duration in seconds"),
		metric.WithUnit("s"))
}
