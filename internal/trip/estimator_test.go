package trip

import (
	"context"
	"errors"
	"math"
	"sync/atomic"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/regentroute/regentroute/internal/geo"
)

func newTestEstimator(live map[Mode]LiveData) *Estimator {
	return NewEstimator(EstimatorConfig{
		Random: NewSeededRandom(1),
		Live:   live,
		Logger: zerolog.Nop(),
	})
}

func TestEstimate_SanFranciscoToSanJose(t *testing.T) {
	e := newTestEstimator(nil)
	ctx := context.Background()
	gc := geo.GreatCircleMiles(sanFrancisco, sanJose)

	t.Run("car", func(t *testing.T) {
		est, err := e.Estimate(ctx, Request{Origin: sanFrancisco, Destination: sanJose, Mode: ModeCar})
		require.NoError(t, err)

		assert.GreaterOrEqual(t, est.DistanceMiles, gc)
		assert.LessOrEqual(t, est.DistanceMiles, gc*1.3)
		assert.GreaterOrEqual(t, est.DurationMinutes, 35)
		assert.LessOrEqual(t, est.DurationMinutes, 70)
		assert.Equal(t, CostFuel, est.Cost.Kind)
		assert.InDelta(t, est.DistanceMiles*0.15, est.Cost.Amount, 0.005)
		assert.Equal(t, SourceFormula, est.Source)
		assert.GreaterOrEqual(t, len(est.Path), 2)
	})

	t.Run("ferry", func(t *testing.T) {
		est, err := e.Estimate(ctx, Request{Origin: sanFrancisco, Destination: sanJose, Mode: ModeFerry})
		require.NoError(t, err)

		assert.GreaterOrEqual(t, est.DistanceMiles, gc)
		assert.LessOrEqual(t, est.DistanceMiles, 50.0)
		assert.Greater(t, est.DistanceMiles, 30.0)
		assert.Equal(t, CostTicket, est.Cost.Kind)
		assert.InDelta(t, 40+0.60*(est.DistanceMiles-30), est.Cost.Amount, 0.005)
		assert.Len(t, est.Path, FerryCurveSteps+1)
	})

	t.Run("plane", func(t *testing.T) {
		est, err := e.Estimate(ctx, Request{Origin: sanFrancisco, Destination: sanJose, Mode: ModePlane})
		require.NoError(t, err)

		assert.GreaterOrEqual(t, est.DistanceMiles, gc)
		assert.GreaterOrEqual(t, est.DurationMinutes, Overhead(ModePlane))
		assert.Equal(t, CostTicket, est.Cost.Kind)
		assert.Equal(t, []geo.Coordinate{sanFrancisco, sanJose}, est.Path)
	})
}

func TestEstimate_SamePoint(t *testing.T) {
	e := newTestEstimator(nil)

	for _, mode := range Modes() {
		t.Run(string(mode), func(t *testing.T) {
			est, err := e.Estimate(context.Background(), Request{Origin: seattle, Destination: seattle, Mode: mode})
			require.NoError(t, err)

			assert.Equal(t, 0.0, est.DistanceMiles)
			assert.Equal(t, Overhead(mode), est.DurationMinutes)
			assert.Positive(t, est.DurationMinutes)
			assert.False(t, math.IsNaN(est.Cost.Amount))
			require.GreaterOrEqual(t, len(est.Path), 2)
			for _, c := range est.Path {
				assert.False(t, math.IsNaN(c.Lat) || math.IsNaN(c.Lon))
			}
		})
	}
}

func TestEstimate_InvalidInput(t *testing.T) {
	e := newTestEstimator(nil)
	ctx := context.Background()

	_, err := e.Estimate(ctx, Request{Origin: geo.Coordinate{Lat: math.NaN()}, Destination: sanJose, Mode: ModeCar})
	assert.ErrorIs(t, err, ErrInvalidCoordinate)

	_, err = e.Estimate(ctx, Request{Origin: sanFrancisco, Destination: geo.Coordinate{Lat: 91}, Mode: ModePlane})
	assert.ErrorIs(t, err, ErrInvalidCoordinate)

	_, err = e.Estimate(ctx, Request{Origin: sanFrancisco, Destination: sanJose, Mode: "boat"})
	assert.ErrorIs(t, err, ErrUnknownMode)

	_, err = e.Estimate(ctx, Request{
		Origin: sanFrancisco, Destination: sanJose, Mode: ModeFerry,
		Curve: &CurveOptions{Direction: CurveLeft, Width: 9},
	})
	assert.Error(t, err)
}

func TestEstimate_LiveOverride(t *testing.T) {
	livePath := []geo.Coordinate{sanFrancisco, {Lat: 37.5, Lon: -122.2}, sanJose}
	live := LiveDataFunc(func(_ context.Context, req Request) (*LiveRoute, error) {
		return &LiveRoute{DistanceMiles: 48.4, DurationMinutes: 57.6, Path: livePath, Provider: "test"}, nil
	})
	e := newTestEstimator(map[Mode]LiveData{ModeCar: live})

	est, err := e.Estimate(context.Background(), Request{Origin: sanFrancisco, Destination: sanJose, Mode: ModeCar})
	require.NoError(t, err)

	assert.Equal(t, SourceLive, est.Source)
	assert.Equal(t, "test", est.Provider)
	assert.Equal(t, 48.0, est.DistanceMiles)
	assert.Equal(t, 58, est.DurationMinutes)
	assert.InDelta(t, 7.20, est.Cost.Amount, 0.001)
	assert.Equal(t, livePath, est.Path)
}

func TestEstimate_LiveDistanceShorterThanGreatCircleIsDiscarded(t *testing.T) {
	live := LiveDataFunc(func(context.Context, Request) (*LiveRoute, error) {
		return &LiveRoute{DistanceMiles: 10, Provider: "broken"}, nil
	})
	e := newTestEstimator(map[Mode]LiveData{ModeCar: live})

	est, err := e.Estimate(context.Background(), Request{Origin: sanFrancisco, Destination: sanJose, Mode: ModeCar})
	require.NoError(t, err)

	assert.Equal(t, 50.0, est.DistanceMiles)
	assert.Equal(t, SourceFormula, est.Source)
}

func TestEstimate_LiveErrorFallsBackToFormula(t *testing.T) {
	live := LiveDataFunc(func(context.Context, Request) (*LiveRoute, error) {
		return nil, errors.New("connection refused")
	})
	e := newTestEstimator(map[Mode]LiveData{ModeCar: live, ModeFerry: FormulaOnly{}})

	for _, mode := range []Mode{ModeCar, ModeFerry} {
		est, err := e.Estimate(context.Background(), Request{Origin: sanFrancisco, Destination: sanJose, Mode: mode})
		require.NoError(t, err)
		assert.Equal(t, SourceFormula, est.Source)
		assert.Equal(t, Distance(mode, geo.GreatCircleMiles(sanFrancisco, sanJose)), est.DistanceMiles)
	}
}

func TestEstimate_LiveSkippedForSamePoint(t *testing.T) {
	var calls atomic.Int32
	live := LiveDataFunc(func(context.Context, Request) (*LiveRoute, error) {
		calls.Add(1)
		return &LiveRoute{DistanceMiles: 1}, nil
	})
	e := newTestEstimator(map[Mode]LiveData{ModeCar: live})

	est, err := e.Estimate(context.Background(), Request{Origin: miami, Destination: miami, Mode: ModeCar})
	require.NoError(t, err)
	assert.Equal(t, 0.0, est.DistanceMiles)
	assert.Zero(t, calls.Load())
}

func TestEstimate_SeededIsReproducible(t *testing.T) {
	req := Request{Origin: seattle, Destination: miami, Mode: ModePlane}

	a, err := NewEstimator(EstimatorConfig{Random: NewSeededRandom(5)}).Estimate(context.Background(), req)
	require.NoError(t, err)
	b, err := NewEstimator(EstimatorConfig{Random: NewSeededRandom(5)}).Estimate(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, a, b)
}

func TestCompare(t *testing.T) {
	e := newTestEstimator(nil)

	c := e.Compare(context.Background(), sanFrancisco, sanJose, nil)
	require.Len(t, c.Results, 3)
	for i, mode := range Modes() {
		r := c.Results[i]
		assert.Equal(t, mode, r.Mode)
		require.True(t, r.OK(), "mode %s: %v", mode, r.Err)
		assert.Equal(t, mode, r.Estimate.Mode)
	}
}

func TestCompare_FailedModeDoesNotBlockOthers(t *testing.T) {
	live := LiveDataFunc(func(context.Context, Request) (*LiveRoute, error) {
		return nil, errors.New("timeout")
	})
	e := newTestEstimator(map[Mode]LiveData{ModePlane: live})

	c := e.Compare(context.Background(), sanFrancisco, sanJose, &CurveOptions{Direction: CurveRight, Width: 0})
	for _, r := range c.Results {
		assert.True(t, r.OK(), "mode %s", r.Mode)
	}

	bad := e.Compare(context.Background(), geo.Coordinate{Lat: 200}, sanJose, nil)
	for _, r := range bad.Results {
		assert.ErrorIs(t, r.Err, ErrInvalidCoordinate)
		assert.Nil(t, r.Estimate)
	}
}
