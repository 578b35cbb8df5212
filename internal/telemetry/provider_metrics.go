package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// ProviderMetrics records outbound provider calls and cache lookups.
// A nil *ProviderMetrics is valid and records nothing.
type ProviderMetrics struct {
	callDuration metric.Float64Histogram
	callTotal    metric.Int64Counter
	cacheLookups metric.Int64Counter
}

// NewProviderMetrics creates provider instruments on the global meter for the given scope.
func NewProviderMetrics(scope string) (*ProviderMetrics, error) {
	meter := otel.Meter(scope)

	callDuration, err := meter.Float64Histogram(
		"provider.call.duration",
		metric.WithDescription("Duration of outbound provider calls in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	callTotal, err := meter.Int64Counter(
		"provider.call.total",
		metric.WithDescription("Total number of outbound provider calls"),
		metric.WithUnit("{call}"),
	)
	if err != nil {
		return nil, err
	}

	cacheLookups, err := meter.Int64Counter(
		"provider.cache.lookups",
		metric.WithDescription("Provider cache lookups by outcome"),
		metric.WithUnit("{lookup}"),
	)
	if err != nil {
		return nil, err
	}

	return &ProviderMetrics{
		callDuration: callDuration,
		callTotal:    callTotal,
		cacheLookups: cacheLookups,
	}, nil
}

// RecordCall records one provider call and its outcome.
func (m *ProviderMetrics) RecordCall(ctx context.Context, provider string, elapsed time.Duration, err error) {
	if m == nil {
		return
	}

	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	attrs := metric.WithAttributes(
		attribute.String("provider", provider),
		attribute.String("outcome", outcome),
	)

	m.callDuration.Record(ctx, elapsed.Seconds(), attrs)
	m.callTotal.Add(ctx, 1, attrs)
}

// RecordCacheLookup records a cache hit or miss for the named cache.
func (m *ProviderMetrics) RecordCacheLookup(ctx context.Context, cache string, hit bool) {
	if m == nil {
		return
	}

	result := "miss"
	if hit {
		result = "hit"
	}
	m.cacheLookups.Add(ctx, 1, metric.WithAttributes(
		attribute.String("cache", cache),
		attribute.String("result", result),
	))
}
