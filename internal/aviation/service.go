package aviation

import (
	"context"
	"errors"
	"math"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/regentroute/regentroute/internal/geo"
	"github.com/regentroute/regentroute/internal/trip"
)

// Reasons attached to unavailable quotes.
const (
	ReasonOffersDisabled = "flight offers disabled"
	ReasonNoAirport      = "no airport near origin or destination"
	ReasonSameAirport    = "origin and destination share the nearest airport"
	ReasonNoOffers       = "no flight offers found"
	ReasonUnavailable    = "cost unavailable"
)

// ServiceConfig holds configuration for the aviation service.
type ServiceConfig struct {
	// Finder looks up airports (required).
	Finder AirportFinder

	// Fallback is consulted when Finder fails (optional). Usually a StaticDirectory.
	Fallback AirportFinder

	// Offers prices flights (optional). Without it every quote is unavailable.
	Offers OfferSource

	// Random drives the flight duration model (optional).
	Random trip.RandomSource

	// Logger for service operations.
	Logger zerolog.Logger

	// Now returns the current time (optional, for tests).
	Now func() time.Time
}

// Service combines airport lookup, flight modeling and live pricing.
type Service struct {
	finder   AirportFinder
	fallback AirportFinder
	offers   OfferSource
	random   trip.RandomSource
	logger   zerolog.Logger
	now      func() time.Time
}

// NewService creates a new aviation service.
func NewService(cfg ServiceConfig) *Service {
	random := cfg.Random
	if random == nil {
		random = trip.DefaultRandom()
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	return &Service{
		finder:   cfg.Finder,
		fallback: cfg.Fallback,
		offers:   cfg.Offers,
		random:   random,
		logger:   cfg.Logger,
		now:      now,
	}
}

// NearestAirports returns up to limit airports closest to point.
// Airports without an IATA code are skipped since they cannot be priced.
func (s *Service) NearestAirports(ctx context.Context, point geo.Coordinate, limit int) ([]Airport, error) {
	if err := point.Validate(); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 3
	}

	airports, err := s.finder.NearestAirports(ctx, point, limit)
	if err != nil && s.fallback != nil && ctx.Err() == nil {
		s.logger.Warn().Err(err).
			Str("finder", s.finder.Name()).
			Stringer("point", point).
			Msg("airport lookup failed, using fallback directory")
		airports, err = s.fallback.NearestAirports(ctx, point, limit)
	}
	if err != nil {
		return nil, err
	}

	out := airports[:0]
	for _, a := range airports {
		if a.IATA != "" {
			out = append(out, a)
		}
	}
	if len(out) == 0 {
		return nil, ErrNoAirport
	}
	return out, nil
}

// FlightBetween models the airport-to-airport leg: great-circle distance
// and the plane duration model.
func (s *Service) FlightBetween(departure, arrival Airport) Flight {
	miles := geo.GreatCircleMiles(departure.Location, arrival.Location)
	return Flight{
		Departure:       departure,
		Arrival:         arrival,
		DistanceMiles:   math.Round(miles),
		DurationMinutes: trip.Duration(trip.ModePlane, miles, s.random),
	}
}

// Quote prices a one-way flight departing tomorrow between the airports
// nearest to origin and destination. It never fails: any problem yields
// an unavailable quote carrying the reason.
func (s *Service) Quote(ctx context.Context, origin, destination geo.Coordinate) *Quote {
	if s.offers == nil {
		return &Quote{Status: QuoteUnavailable, Reason: ReasonOffersDisabled}
	}

	from, err := s.NearestAirports(ctx, origin, 1)
	if err != nil {
		s.logger.Warn().Err(err).Stringer("point", origin).Msg("no departure airport for quote")
		return &Quote{Status: QuoteUnavailable, Reason: ReasonNoAirport}
	}
	to, err := s.NearestAirports(ctx, destination, 1)
	if err != nil {
		s.logger.Warn().Err(err).Stringer("point", destination).Msg("no arrival airport for quote")
		return &Quote{Status: QuoteUnavailable, Reason: ReasonNoAirport}
	}

	departure, arrival := from[0], to[0]
	quote := &Quote{DepartureAirport: &departure, ArrivalAirport: &arrival}
	if departure.IATA == arrival.IATA {
		quote.Status = QuoteUnavailable
		quote.Reason = ReasonSameAirport
		return quote
	}

	offers, err := s.offers.SearchOffers(ctx, OfferQuery{
		Origin:        departure.IATA,
		Destination:   arrival.IATA,
		DepartureDate: s.now().AddDate(0, 0, 1).Format("2006-01-02"),
		Adults:        1,
	})
	if err != nil {
		quote.Status = QuoteUnavailable
		quote.Reason = ReasonUnavailable
		if errors.Is(err, ErrNoOffers) {
			quote.Reason = ReasonNoOffers
		}
		s.logger.Warn().Err(err).
			Str("origin", departure.IATA).
			Str("destination", arrival.IATA).
			Str("provider", s.offers.Name()).
			Msg("flight offer search failed")
		return quote
	}

	summarize(quote, offers)
	return quote
}

// summarize fills price statistics, rounded to whole dollars, and keeps the cheapest offers.
func summarize(quote *Quote, offers []Offer) {
	sorted := make([]Offer, len(offers))
	copy(sorted, offers)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Price < sorted[j].Price })

	total := 0.0
	for _, o := range sorted {
		total += o.Price
	}

	quote.Status = QuoteAvailable
	quote.Currency = trip.CurrencyUSD
	quote.Cheapest = math.Round(sorted[0].Price)
	quote.MostExpensive = math.Round(sorted[len(sorted)-1].Price)
	quote.Average = math.Round(total / float64(len(sorted)))

	if len(sorted) > MaxQuotedOffers {
		sorted = sorted[:MaxQuotedOffers]
	}
	quote.Offers = sorted
}
