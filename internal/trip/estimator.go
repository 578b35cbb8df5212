package trip

import (
	"context"
	"fmt"
	"math"
	"sync"

	"github.com/rs/zerolog"

	"github.com/regentroute/regentroute/internal/geo"
)

// EstimatorConfig holds configuration for the estimator.
type EstimatorConfig struct {
	// Random drives duration jitter (default: process-wide generator).
	Random RandomSource

	// Live maps a mode to a live data provider. Modes without an entry use formulas only.
	Live map[Mode]LiveData

	// Curve is the default ferry curve (default: DefaultCurve).
	Curve *CurveOptions

	// Logger for estimator operations.
	Logger zerolog.Logger
}

// Estimator computes trip estimates. It holds no mutable state and is safe for
// concurrent use.
type Estimator struct {
	random RandomSource
	live   map[Mode]LiveData
	curve  CurveOptions
	logger zerolog.Logger
}

// NewEstimator creates an estimator.
func NewEstimator(cfg EstimatorConfig) *Estimator {
	rnd := cfg.Random
	if rnd == nil {
		rnd = DefaultRandom()
	}

	curve := DefaultCurve
	if cfg.Curve != nil {
		curve = *cfg.Curve
	}

	live := make(map[Mode]LiveData, len(cfg.Live))
	for m, l := range cfg.Live {
		if l != nil {
			live[m] = l
		}
	}

	return &Estimator{
		random: rnd,
		live:   live,
		curve:  curve,
		logger: cfg.Logger,
	}
}

// Estimate computes one mode's estimate. Only invalid input fails; live data errors
// are logged and the formula estimate is returned.
func (e *Estimator) Estimate(ctx context.Context, req Request) (*Estimate, error) {
	if err := req.Origin.Validate(); err != nil {
		return nil, fmt.Errorf("origin: %w", err)
	}
	if err := req.Destination.Validate(); err != nil {
		return nil, fmt.Errorf("destination: %w", err)
	}
	if !req.Mode.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownMode, req.Mode)
	}

	curve := e.curve
	if req.Curve != nil {
		if err := req.Curve.Validate(); err != nil {
			return nil, err
		}
		curve = *req.Curve
	}

	gc := geo.GreatCircleMiles(req.Origin, req.Destination)
	miles := Distance(req.Mode, gc)

	est := &Estimate{
		Mode:            req.Mode,
		DistanceMiles:   miles,
		DurationMinutes: Duration(req.Mode, miles, e.random),
		Cost:            CostOf(req.Mode, miles),
		Path:            e.path(req, curve),
		Source:          SourceFormula,
	}

	if gc == 0 {
		return est, nil
	}

	if live, ok := e.live[req.Mode]; ok {
		route, err := live.Lookup(ctx, req)
		if err != nil {
			e.logger.Warn().Err(err).
				Str("mode", string(req.Mode)).
				Msg("live data unavailable, using formula estimate")
			return est, nil
		}
		e.applyLive(est, route, gc)
	}

	return est, nil
}

func (e *Estimator) path(req Request, curve CurveOptions) []geo.Coordinate {
	switch req.Mode {
	case ModeFerry:
		return FerryPath(req.Origin, req.Destination, curve)
	case ModeCar:
		return SyntheticCarPath(req.Origin, req.Destination)
	default:
		return PlanePath(req.Origin, req.Destination)
	}
}

// applyLive overrides formula values with plausible provider values.
func (e *Estimator) applyLive(est *Estimate, route *LiveRoute, gc float64) {
	if route == nil {
		return
	}

	applied := false
	if d := route.DistanceMiles; d > 0 && !math.IsInf(d, 0) {
		if d < gc {
			e.logger.Warn().
				Str("mode", string(est.Mode)).
				Float64("live_miles", d).
				Float64("great_circle_miles", gc).
				Msg("discarding live distance shorter than great-circle distance")
		} else {
			est.DistanceMiles = roundDistance(d, gc)
			est.Cost = CostOf(est.Mode, est.DistanceMiles)
			applied = true
		}
	}

	if m := route.DurationMinutes; m > 0 && !math.IsInf(m, 0) {
		est.DurationMinutes = max(int(math.Round(m)), Overhead(est.Mode))
		applied = true
	}

	if est.Mode != ModePlane && len(route.Path) >= 2 {
		est.Path = route.Path
		applied = true
	}

	if applied {
		est.Source = SourceLive
		est.Provider = route.Provider
	}
}

// Compare estimates every mode concurrently. A failed mode does not affect the others.
func (e *Estimator) Compare(ctx context.Context, origin, dest geo.Coordinate, curve *CurveOptions) *Comparison {
	modes := Modes()
	results := make([]ModeResult, len(modes))

	var wg sync.WaitGroup
	for i, mode := range modes {
		wg.Add(1)
		go func(i int, mode Mode) {
			defer wg.Done()
			est, err := e.Estimate(ctx, Request{
				Origin:      origin,
				Destination: dest,
				Mode:        mode,
				Curve:       curve,
			})
			results[i] = ModeResult{Mode: mode, Estimate: est, Err: err}
		}(i, mode)
	}
	wg.Wait()

	return &Comparison{
		Origin:      origin,
		Destination: dest,
		Results:     results,
	}
}
