package telemetry_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/regentroute/regentroute/internal/telemetry"
)

func TestInit_Disabled(t *testing.T) {
	ctx := context.Background()

	provider, err := telemetry.Init(ctx, telemetry.Config{
		ServiceName:    "regentroute-api",
		ServiceVersion: "1.0.0",
		Environment:    "test",
		OTLPEndpoint:   "localhost:4317",
		Enabled:        false,
	})

	require.NoError(t, err)
	assert.NotNil(t, provider)
	assert.NotNil(t, provider.Tracer)
	assert.NotNil(t, provider.Meter)

	assert.Nil(t, provider.TracerProvider)
	assert.Nil(t, provider.MeterProvider)

	err = provider.Shutdown(ctx)
	assert.NoError(t, err)
}

func TestProvider_Shutdown_NilProviders(t *testing.T) {
	provider := &telemetry.Provider{}
	err := provider.Shutdown(context.Background())
	assert.NoError(t, err)
}

func TestTracer_ReturnsGlobalTracer(t *testing.T) {
	_, span := telemetry.Tracer("regentroute.compare").Start(context.Background(), "compare")
	defer span.End()
	assert.False(t, span.SpanContext().IsSampled(), "no SDK provider is installed in tests")
}

func TestProviderMetrics_Record(t *testing.T) {
	metrics, err := telemetry.NewProviderMetrics("test-scope")
	require.NoError(t, err)

	ctx := context.Background()
	assert.NotPanics(t, func() {
		metrics.RecordCall(ctx, "openrouteservice", 120*time.Millisecond, nil)
		metrics.RecordCall(ctx, "openrouteservice", time.Second, errors.New("boom"))
		metrics.RecordCacheLookup(ctx, "geocode", true)
	})
}

func TestProviderMetrics_NilIsNoop(t *testing.T) {
	var metrics *telemetry.ProviderMetrics
	assert.NotPanics(t, func() {
		metrics.RecordCall(context.Background(), "amadeus", time.Second, nil)
		metrics.RecordCacheLookup(context.Background(), "geocode", false)
	})
}
