// Package handler provides HTTP handlers for the RegentRoute API.
package handler

import (
	"errors"
	"fmt"
	"math"

	"github.com/regentroute/regentroute/internal/api/models"
	"github.com/regentroute/regentroute/internal/aviation"
	"github.com/regentroute/regentroute/internal/geo"
	"github.com/regentroute/regentroute/internal/geocode"
	"github.com/regentroute/regentroute/internal/routing"
	"github.com/regentroute/regentroute/internal/trip"
	"github.com/regentroute/regentroute/pkg/polyline"
)

// Per-mode failure codes.
const (
	codeInvalidCoordinate   = "INVALID_COORDINATE"
	codeNoRoute             = "NO_ROUTE"
	codeProviderUnavailable = "PROVIDER_UNAVAILABLE"
	codeNoAirport           = "NO_AIRPORT"
	codeEstimateFailed      = "ESTIMATE_FAILED"
)

func toPoint(c geo.Coordinate) models.Point {
	return models.Point{Lat: c.Lat, Lon: c.Lon}
}

func toPlace(r geocode.Result) models.Place {
	return models.Place{
		Address:  r.Address,
		Label:    r.Label,
		Location: toPoint(r.Coordinate),
		Provider: r.Provider,
		Fallback: r.Fallback,
	}
}

func encodePath(path []geo.Coordinate) string {
	pts := make([]polyline.Coordinate, len(path))
	for i, c := range path {
		pts[i] = polyline.Coordinate{Lat: c.Lat, Lon: c.Lon}
	}
	return polyline.Encode(pts)
}

func decodePath(encoded string) ([]geo.Coordinate, error) {
	pts, err := polyline.DecodePrecision(encoded, polyline.DefaultPrecision)
	if err != nil {
		return nil, err
	}
	path := make([]geo.Coordinate, len(pts))
	for i, p := range pts {
		path[i] = geo.Coordinate{Lat: p.Lat, Lon: p.Lon}
	}
	return path, nil
}

func toEstimate(e *trip.Estimate, units models.Units) *models.Estimate {
	return &models.Estimate{
		DistanceMiles:   e.DistanceMiles,
		DurationMinutes: e.DurationMinutes,
		Cost: models.Cost{
			Kind:     string(e.Cost.Kind),
			Amount:   e.Cost.Amount,
			Currency: e.Cost.Currency,
		},
		Polyline: encodePath(e.Path),
		Source:   string(e.Source),
		Provider: e.Provider,
		Display: &models.EstimateDisplay{
			Distance: geo.FormatDistance(e.DistanceMiles, units == models.UnitsMetric),
			Duration: geo.FormatDuration(e.DurationMinutes),
			Cost:     geo.FormatCost(e.Cost.Amount),
		},
	}
}

func toModeEstimate(r trip.ModeResult, units models.Units) models.ModeEstimate {
	if !r.OK() {
		return models.ModeEstimate{
			Mode:   string(r.Mode),
			Status: models.ModeStatusFailed,
			Error:  toModeError(r.Err),
		}
	}
	return models.ModeEstimate{
		Mode:     string(r.Mode),
		Status:   models.ModeStatusOK,
		Estimate: toEstimate(r.Estimate, units),
	}
}

func toModeError(err error) *models.ModeError {
	if err == nil {
		err = errors.New("no estimate produced")
	}
	code := codeEstimateFailed
	switch {
	case errors.Is(err, trip.ErrInvalidCoordinate):
		code = codeInvalidCoordinate
	case errors.Is(err, routing.ErrNoRouteFound):
		code = codeNoRoute
	case errors.Is(err, routing.ErrProviderUnavailable), errors.Is(err, aviation.ErrProviderUnavailable):
		code = codeProviderUnavailable
	case errors.Is(err, aviation.ErrNoAirport):
		code = codeNoAirport
	}
	return &models.ModeError{Code: code, Message: err.Error()}
}

func toAirport(a *aviation.Airport) *models.Airport {
	if a == nil {
		return nil
	}
	return &models.Airport{
		IATA:          a.IATA,
		ICAO:          a.ICAO,
		Name:          a.Name,
		City:          a.City,
		Country:       a.Country,
		Location:      toPoint(a.Location),
		DistanceMiles: a.DistanceMiles,
	}
}

func toFlightQuote(q *aviation.Quote) *models.FlightQuote {
	if q == nil {
		return nil
	}
	out := &models.FlightQuote{
		Status:           string(q.Status),
		Reason:           q.Reason,
		DepartureAirport: toAirport(q.DepartureAirport),
		ArrivalAirport:   toAirport(q.ArrivalAirport),
		Cheapest:         q.Cheapest,
		Average:          q.Average,
		MostExpensive:    q.MostExpensive,
		Currency:         q.Currency,
	}
	for _, o := range q.Offers {
		out.Offers = append(out.Offers, models.FlightOffer{
			Price:         o.Price,
			Currency:      o.Currency,
			Airline:       o.Airline,
			DepartureTime: o.DepartureTime,
			ArrivalTime:   o.ArrivalTime,
			Duration:      o.Duration,
			Stops:         o.Stops,
		})
	}
	return out
}

// toCurve converts a request curve. Nil means "use the default".
func toCurve(c *models.FerryCurve) *trip.CurveOptions {
	if c == nil {
		return nil
	}
	opts := trip.CurveOptions{
		Direction: trip.CurveDirection(c.Direction),
		Width:     trip.DefaultCurve.Width,
	}
	if c.Width != nil {
		opts.Width = *c.Width
	}
	return &opts
}

// fromSavedEstimate rebuilds a domain estimate from a client-submitted one.
func fromSavedEstimate(s models.SavedEstimate) (*trip.Estimate, []models.FieldError) {
	field := "results." + s.Mode
	var errs []models.FieldError

	mode, err := trip.ParseMode(s.Mode)
	if err != nil {
		return nil, []models.FieldError{{Field: "results", Message: err.Error()}}
	}
	// Identical endpoints legitimately estimate to zero miles.
	if !finite(s.DistanceMiles) || s.DistanceMiles < 0 {
		errs = append(errs, models.FieldError{Field: field + ".distanceMiles", Message: "must not be negative"})
	}
	if s.DurationMinutes < 0 {
		errs = append(errs, models.FieldError{Field: field + ".durationMinutes", Message: "must not be negative"})
	}
	cost := trip.CostOf(mode, 0)
	if !finite(s.Cost.Amount) || s.Cost.Amount < 0 {
		errs = append(errs, models.FieldError{Field: field + ".cost.amount", Message: "must not be negative"})
	}
	if s.Cost.Kind != "" && trip.CostKind(s.Cost.Kind) != cost.Kind {
		errs = append(errs, models.FieldError{Field: field + ".cost.kind", Message: fmt.Sprintf("must be %q for %s", cost.Kind, mode)})
	}
	if s.Cost.Currency != "" && s.Cost.Currency != trip.CurrencyUSD {
		errs = append(errs, models.FieldError{Field: field + ".cost.currency", Message: "must be " + trip.CurrencyUSD})
	}
	path, err := decodePath(s.Polyline)
	if err != nil || len(path) < 2 {
		errs = append(errs, models.FieldError{Field: field + ".polyline", Message: "must encode at least two points"})
	}
	if len(errs) > 0 {
		return nil, errs
	}

	cost.Amount = s.Cost.Amount
	source := trip.Source(s.Source)
	if source == "" {
		source = trip.SourceFormula
	}
	return &trip.Estimate{
		Mode:            mode,
		DistanceMiles:   s.DistanceMiles,
		DurationMinutes: s.DurationMinutes,
		Cost:            cost,
		Path:            path,
		Source:          source,
		Provider:        s.Provider,
	}, nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func toSavedEstimate(e *trip.Estimate) models.SavedEstimate {
	est := toEstimate(e, models.UnitsImperial)
	return models.SavedEstimate{Mode: string(e.Mode), Estimate: *est}
}

func describeAddress(err error) string {
	var ge *geocode.Error
	if errors.As(err, &ge) {
		return fmt.Sprintf("could not resolve address %q", ge.Address)
	}
	return "could not resolve address"
}
