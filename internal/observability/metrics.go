package observability

import (
	"go.opentelemetry.io/otel"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

// NewMeterProvider creates an OTel MeterProvider backed by the Prometheus
// exporter. Metrics end up in the default Prometheus registry, so they are
// served by the promhttp handler mounted at /metrics.
func NewMeterProvider() (*sdkmetric.MeterProvider, error) {
	exporter, err := otelprom.New()
	if err != nil {
		return nil, err
	}

	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(exporter))
	otel.SetMeterProvider(mp)
	return mp, nil
}

// AppMetrics holds application-level counters. A nil *AppMetrics is valid
// and records nothing, so tests can skip metric wiring entirely.
type AppMetrics struct {
	LinksCreated    metric.Int64Counter
	RedirectsServed metric.Int64Counter
	CacheHits       metric.Int64Counter
	CacheMisses     metric.Int64Counter
}

// NewAppMetrics registers application counters on the given provider.
func NewAppMetrics(mp metric.MeterProvider) (*AppMetrics, error) {
	meter := mp.Meter("github.com/relinkhq/relink")

	created, err := meter.Int64Counter("relink_links_created_total",
		metric.WithDescription("Number of links registered"))
	if err != nil {
		return nil, err
	}
	redirects, err := meter.Int64Counter("relink_redirects_served_total",
		metric.WithDescription("Number of successful redirects served"))
	if err != nil {
		return nil, err
	}
	hits, err := meter.Int64Counter("relink_cache_hits_total",
		metric.WithDescription("Number of link lookups answered from cache"))
	if err != nil {
		return nil, err
	}
	misses, err := meter.Int64Counter("relink_cache_misses_total",
		metric.WithDescription("Number of link lookups that fell through to the store"))
	if err != nil {
		return nil, err
	}

	return &AppMetrics{
		LinksCreated:    created,
		RedirectsServed: redirects,
		CacheHits:       hits,
		CacheMisses:     misses,
	}, nil
}
