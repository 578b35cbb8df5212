// Package compare resolves two addresses and compares every transport mode
// between them.
package compare

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/regentroute/regentroute/internal/aviation"
	"github.com/regentroute/regentroute/internal/geo"
	"github.com/regentroute/regentroute/internal/geocode"
	"github.com/regentroute/regentroute/internal/mapview"
	"github.com/regentroute/regentroute/internal/telemetry"
	"github.com/regentroute/regentroute/internal/trip"
)

const tracerName = "github.com/regentroute/regentroute/internal/compare"

// ErrInvalidInput is returned for requests rejected before any lookup.
var ErrInvalidInput = errors.New("invalid compare input")

// Resolver resolves origin and destination addresses.
type Resolver interface {
	ResolvePair(ctx context.Context, origin, destination string) (*geocode.Result, *geocode.Result, error)
}

// Estimator computes per-mode estimates.
type Estimator interface {
	Estimate(ctx context.Context, req trip.Request) (*trip.Estimate, error)
	Compare(ctx context.Context, origin, dest geo.Coordinate, curve *trip.CurveOptions) *trip.Comparison
}

// FlightQuoter prices flights between two points.
type FlightQuoter interface {
	Quote(ctx context.Context, origin, destination geo.Coordinate) *aviation.Quote
}

// Flags are the runtime switches consulted per request.
type Flags interface {
	IsFlightOffersDisabled(ctx context.Context) bool
	IncludeFlightsByDefault(ctx context.Context) bool
	DefaultFerryCurveWidth(ctx context.Context, fallback float64) float64
}

// Config holds the service's collaborators.
type Config struct {
	Resolver  Resolver
	Estimator Estimator
	// Flights is optional; without it no flight quote is attached.
	Flights FlightQuoter
	// Flags is optional; without it flights are quoted only on request.
	Flags  Flags
	Logger zerolog.Logger
}

// Input is a compare request.
type Input struct {
	Origin      string
	Destination string
	// Curve overrides the ferry curve. Nil uses the configured default.
	Curve *trip.CurveOptions
	// IncludeFlights requests a live flight quote. Nil defers to the feature flag.
	IncludeFlights *bool
}

// Result is the outcome of a compare request.
type Result struct {
	Origin      geocode.Result
	Destination geocode.Result
	Comparison  *trip.Comparison
	// Flight is nil when no quote was requested.
	Flight *aviation.Quote
	Scene  *mapview.Scene
}

// Service orchestrates geocoding, estimation and flight quotes.
type Service struct {
	resolver  Resolver
	estimator Estimator
	flights   FlightQuoter
	flags     Flags
	logger    zerolog.Logger
	tracer    trace.Tracer
}

// NewService creates a compare service.
func NewService(cfg Config) *Service {
	return &Service{
		resolver:  cfg.Resolver,
		estimator: cfg.Estimator,
		flights:   cfg.Flights,
		flags:     cfg.Flags,
		logger:    cfg.Logger,
		tracer:    telemetry.Tracer(tracerName),
	}
}

// Compare geocodes both addresses and estimates every mode. Geocoding
// failures are returned as *geocode.Error; per-mode failures live in the
// comparison and do not fail the call.
func (s *Service) Compare(ctx context.Context, in Input) (*Result, error) {
	ctx, span := s.tracer.Start(ctx, "compare.Compare")
	defer span.End()

	origin := strings.TrimSpace(in.Origin)
	destination := strings.TrimSpace(in.Destination)
	if origin == "" || destination == "" {
		err := fmt.Errorf("%w: origin and destination are required", ErrInvalidInput)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	curve, err := s.curve(ctx, in.Curve)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	from, to, err := s.resolver.ResolvePair(ctx, origin, destination)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "geocode failed")
		return nil, err
	}
	span.SetAttributes(
		attribute.String("compare.geocoder", from.Provider),
		attribute.Bool("compare.geocode_fallback", from.Fallback || to.Fallback),
	)

	comparison := s.estimator.Compare(ctx, from.Coordinate, to.Coordinate, &curve)

	result := &Result{
		Origin:      *from,
		Destination: *to,
		Comparison:  comparison,
		Scene:       mapview.NewScene(mapview.OverlaysFor(comparison)...),
	}

	if s.wantFlights(ctx, in.IncludeFlights) {
		if s.flags != nil && s.flags.IsFlightOffersDisabled(ctx) {
			result.Flight = &aviation.Quote{Status: aviation.QuoteUnavailable, Reason: aviation.ReasonOffersDisabled}
		} else {
			result.Flight = s.flights.Quote(ctx, from.Coordinate, to.Coordinate)
		}
		span.SetAttributes(attribute.String("compare.flight_quote", string(result.Flight.Status)))
	}

	failed := 0
	for _, r := range comparison.Results {
		if !r.OK() {
			failed++
			s.logger.Warn().Err(r.Err).Str("mode", string(r.Mode)).Msg("mode estimate failed")
		}
	}
	span.SetAttributes(attribute.Int("compare.failed_modes", failed))

	s.logger.Debug().
		Str("origin", from.Label).
		Str("destination", to.Label).
		Int("failed_modes", failed).
		Msg("comparison computed")

	return result, nil
}

// Estimate computes a single mode between raw coordinates.
func (s *Service) Estimate(ctx context.Context, req trip.Request) (*trip.Estimate, error) {
	ctx, span := s.tracer.Start(ctx, "compare.Estimate",
		trace.WithAttributes(attribute.String("trip.mode", string(req.Mode))))
	defer span.End()

	if req.Curve != nil || req.Mode == trip.ModeFerry {
		curve, err := s.curve(ctx, req.Curve)
		if err != nil {
			span.SetStatus(codes.Error, err.Error())
			return nil, err
		}
		req.Curve = &curve
	}

	est, err := s.estimator.Estimate(ctx, req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	return est, nil
}

// curve returns the validated ferry curve for a request.
func (s *Service) curve(ctx context.Context, requested *trip.CurveOptions) (trip.CurveOptions, error) {
	if requested != nil {
		c := *requested
		if c.Direction == "" {
			c.Direction = trip.DefaultCurve.Direction
		}
		if err := c.Validate(); err != nil {
			return trip.CurveOptions{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
		return c, nil
	}

	c := trip.DefaultCurve
	if s.flags != nil {
		c.Width = s.flags.DefaultFerryCurveWidth(ctx, c.Width)
	}
	if err := c.Validate(); err != nil {
		s.logger.Warn().Err(err).Float64("width", c.Width).Msg("ignoring invalid default ferry curve width")
		return trip.DefaultCurve, nil
	}
	return c, nil
}

func (s *Service) wantFlights(ctx context.Context, requested *bool) bool {
	if s.flights == nil {
		return false
	}
	if requested != nil {
		return *requested
	}
	return s.flags != nil && s.flags.IncludeFlightsByDefault(ctx)
}
