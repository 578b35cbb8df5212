package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/regentroute/regentroute/internal/aviation"
	"github.com/regentroute/regentroute/internal/geo"
	"github.com/regentroute/regentroute/internal/geocode"
)

// Geocoder resolves addresses, caching what it resolves.
type Geocoder interface {
	Geocode(ctx context.Context, address string) (*geocode.Result, error)
}

// AirportFinder looks up airports near a point.
type AirportFinder interface {
	NearestAirports(ctx context.Context, point geo.Coordinate, limit int) ([]aviation.Airport, error)
}

// WarmupJob resolves popular places ahead of user requests so compare calls
// hit the geocode cache, and exercises the airport lookup for each place.
type WarmupJob struct {
	config   WarmupConfig
	geocoder Geocoder
	airports AirportFinder
	logger   zerolog.Logger

	metrics *WarmupMetrics
}

// WarmupMetrics tracks warm-up job statistics.
type WarmupMetrics struct {
	mu sync.RWMutex

	TotalRuns       int64
	PlacesResolved  int64
	PlacesFallback  int64
	PlacesFailed    int64
	AirportLookups  int64
	AirportFailures int64

	LastRunAt       time.Time
	LastRunDuration time.Duration
	TotalDuration   time.Duration
}

// WarmupJobConfig holds configuration for creating a WarmupJob.
type WarmupJobConfig struct {
	Config   WarmupConfig
	Logger   zerolog.Logger
	Geocoder Geocoder
	// Airports is optional; without it only geocoding is warmed.
	Airports AirportFinder
}

// NewWarmupJob creates a new warm-up job.
func NewWarmupJob(cfg WarmupJobConfig) *WarmupJob {
	return &WarmupJob{
		config:   cfg.Config.withDefaults(),
		geocoder: cfg.Geocoder,
		airports: cfg.Airports,
		logger:   cfg.Logger,
		metrics:  &WarmupMetrics{},
	}
}

// WarmupResult contains the result of one run.
type WarmupResult struct {
	StartTime   time.Time
	EndTime     time.Time
	Duration    time.Duration
	TotalPlaces int
	Resolved    int
	// Fallback counts places resolved only approximately by the gazetteer.
	Fallback int
	Failed   int
	Errors   []WarmupError
}

// WarmupError records a failure for one place.
type WarmupError struct {
	Place string
	Stage string
	Error string
}

type placeResult struct {
	resolved       bool
	fallback       bool
	airportLookups int
	errors         []WarmupError
}

// Run warms every configured place.
func (j *WarmupJob) Run(ctx context.Context) *WarmupResult {
	return j.run(ctx, j.config.Places)
}

// RunPlaces warms the given places instead of the configured list.
func (j *WarmupJob) RunPlaces(ctx context.Context, places []string) *WarmupResult {
	if len(places) == 0 {
		return j.Run(ctx)
	}
	return j.run(ctx, places)
}

func (j *WarmupJob) run(ctx context.Context, places []string) *WarmupResult {
	startTime := time.Now()
	result := &WarmupResult{
		StartTime:   startTime,
		TotalPlaces: len(places),
	}

	j.logger.Info().
		Int("total_places", result.TotalPlaces).
		Int("concurrency", j.config.Concurrency).
		Msg("starting cache warm-up job")

	var (
		mu      sync.Mutex
		lookups int
		g       errgroup.Group
	)
	g.SetLimit(j.config.Concurrency)

	for _, place := range places {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			pr := j.warmPlace(ctx, place)

			mu.Lock()
			defer mu.Unlock()
			switch {
			case !pr.resolved:
				result.Failed++
			case pr.fallback:
				result.Fallback++
			default:
				result.Resolved++
			}
			lookups += pr.airportLookups
			result.Errors = append(result.Errors, pr.errors...)
			return nil
		})
	}
	_ = g.Wait()

	result.EndTime = time.Now()
	result.Duration = result.EndTime.Sub(startTime)

	j.updateMetrics(result, lookups)

	j.logger.Info().
		Dur("duration", result.Duration).
		Int("resolved", result.Resolved).
		Int("fallback", result.Fallback).
		Int("failed", result.Failed).
		Msg("cache warm-up job completed")

	return result
}

func (j *WarmupJob) warmPlace(ctx context.Context, place string) placeResult {
	var pr placeResult

	placeCtx, cancel := context.WithTimeout(ctx, j.config.Timeout)
	defer cancel()

	res, err := j.geocoder.Geocode(placeCtx, place)
	if err != nil {
		pr.errors = append(pr.errors, WarmupError{Place: place, Stage: "geocode", Error: err.Error()})
		return pr
	}
	pr.resolved = true
	pr.fallback = res.Fallback

	if j.airports == nil || j.config.AirportLimit <= 0 {
		return pr
	}
	pr.airportLookups++
	if _, err := j.airports.NearestAirports(placeCtx, res.Coordinate, j.config.AirportLimit); err != nil && !errors.Is(err, aviation.ErrNoAirport) {
		pr.errors = append(pr.errors, WarmupError{Place: place, Stage: "airports", Error: err.Error()})
	}
	return pr
}

// HealthCheck resolves a single well-known place to verify the geocoder responds.
func (j *WarmupJob) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, j.config.Timeout)
	defer cancel()

	place := j.config.Places[0]
	if _, err := j.geocoder.Geocode(ctx, place); err != nil {
		return fmt.Errorf("health check geocode %q: %w", place, err)
	}
	return nil
}

func (j *WarmupJob) updateMetrics(result *WarmupResult, lookups int) {
	j.metrics.mu.Lock()
	defer j.metrics.mu.Unlock()

	airportFailures := 0
	for _, e := range result.Errors {
		if e.Stage == "airports" {
			airportFailures++
		}
	}

	j.metrics.TotalRuns++
	j.metrics.PlacesResolved += int64(result.Resolved)
	j.metrics.PlacesFallback += int64(result.Fallback)
	j.metrics.PlacesFailed += int64(result.Failed)
	j.metrics.AirportLookups += int64(lookups)
	j.metrics.AirportFailures += int64(airportFailures)
	j.metrics.LastRunAt = result.EndTime
	j.metrics.LastRunDuration = result.Duration
	j.metrics.TotalDuration += result.Duration
}

// GetMetrics returns a copy of the current metrics.
func (j *WarmupJob) GetMetrics() WarmupMetrics {
	j.metrics.mu.RLock()
	defer j.metrics.mu.RUnlock()

	return WarmupMetrics{
		TotalRuns:       j.metrics.TotalRuns,
		PlacesResolved:  j.metrics.PlacesResolved,
		PlacesFallback:  j.metrics.PlacesFallback,
		PlacesFailed:    j.metrics.PlacesFailed,
		AirportLookups:  j.metrics.AirportLookups,
		AirportFailures: j.metrics.AirportFailures,
		LastRunAt:       j.metrics.LastRunAt,
		LastRunDuration: j.metrics.LastRunDuration,
		TotalDuration:   j.metrics.TotalDuration,
	}
}

// MetricsSnapshot returns a snapshot of the current metrics as a map.
func (j *WarmupJob) MetricsSnapshot() map[string]interface{} {
	m := j.GetMetrics()
	return map[string]interface{}{
		"total_runs":        m.TotalRuns,
		"places_resolved":   m.PlacesResolved,
		"places_fallback":   m.PlacesFallback,
		"places_failed":     m.PlacesFailed,
		"airport_lookups":   m.AirportLookups,
		"airport_failures":  m.AirportFailures,
		"last_run_at":       m.LastRunAt,
		"last_run_duration": m.LastRunDuration.String(),
		"total_duration":    m.TotalDuration.String(),
	}
}
