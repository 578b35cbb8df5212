package aviation

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/regentroute/regentroute/internal/geo"
	"github.com/regentroute/regentroute/internal/trip"
)

var (
	sanFrancisco = geo.Coordinate{Lat: 37.7749, Lon: -122.4194}
	sanJose      = geo.Coordinate{Lat: 37.3382, Lon: -121.8863}
	seattle      = geo.Coordinate{Lat: 47.6062, Lon: -122.3321}
)

type failingFinder struct{ calls int }

func (f *failingFinder) Name() string { return "failing" }

func (f *failingFinder) NearestAirports(context.Context, geo.Coordinate, int) ([]Airport, error) {
	f.calls++
	return nil, ErrProviderUnavailable
}

type stubOffers struct {
	offers []Offer
	err    error
	got    OfferQuery
}

func (s *stubOffers) Name() string { return "stub-offers" }

func (s *stubOffers) SearchOffers(_ context.Context, q OfferQuery) ([]Offer, error) {
	s.got = q
	return s.offers, s.err
}

func fixedNow() time.Time {
	return time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
}

func TestStaticDirectory_NearestAirports(t *testing.T) {
	dir := NewStaticDirectory()

	airports, err := dir.NearestAirports(context.Background(), sanFrancisco, 3)
	require.NoError(t, err)
	require.Len(t, airports, 3)

	assert.Equal(t, "SFO", airports[0].IATA)
	assert.Equal(t, "OAK", airports[1].IATA)
	assert.Equal(t, "SJC", airports[2].IATA)
	for i := 1; i < len(airports); i++ {
		assert.LessOrEqual(t, airports[i-1].DistanceMiles, airports[i].DistanceMiles)
	}
	assert.InDelta(t, 11.0, airports[0].DistanceMiles, 1.0)
}

func TestStaticDirectory_InvalidPoint(t *testing.T) {
	_, err := NewStaticDirectory().NearestAirports(context.Background(), geo.Coordinate{Lat: 95}, 3)
	assert.ErrorIs(t, err, geo.ErrInvalidCoordinate)
}

func TestService_NearestAirports_FallsBack(t *testing.T) {
	finder := &failingFinder{}
	svc := NewService(ServiceConfig{Finder: finder, Fallback: NewStaticDirectory(), Logger: zerolog.Nop()})

	airports, err := svc.NearestAirports(context.Background(), seattle, 0)
	require.NoError(t, err)
	assert.Len(t, airports, 3, "default limit")
	assert.Equal(t, "SEA", airports[0].IATA)
	assert.Equal(t, 1, finder.calls)
}

func TestService_NearestAirports_NoFallback(t *testing.T) {
	svc := NewService(ServiceConfig{Finder: &failingFinder{}, Logger: zerolog.Nop()})

	_, err := svc.NearestAirports(context.Background(), seattle, 3)
	assert.ErrorIs(t, err, ErrProviderUnavailable)
}

func TestService_NearestAirports_SkipsAirportsWithoutIATA(t *testing.T) {
	dir := NewStaticDirectory(
		Airport{ICAO: "KXYZ", Name: "Private strip", Location: geo.Coordinate{Lat: 37.77, Lon: -122.41}},
		Airport{ICAO: "KSFO", IATA: "SFO", Name: "San Francisco", Location: geo.Coordinate{Lat: 37.6213, Lon: -122.3790}},
	)
	svc := NewService(ServiceConfig{Finder: dir, Logger: zerolog.Nop()})

	airports, err := svc.NearestAirports(context.Background(), sanFrancisco, 2)
	require.NoError(t, err)
	require.Len(t, airports, 1)
	assert.Equal(t, "SFO", airports[0].IATA)
}

func TestService_FlightBetween(t *testing.T) {
	svc := NewService(ServiceConfig{Finder: NewStaticDirectory(), Random: trip.FixedRandom(0.5), Logger: zerolog.Nop()})
	dir := NewStaticDirectory()

	sfo, err := dir.NearestAirports(context.Background(), sanFrancisco, 1)
	require.NoError(t, err)
	sea, err := dir.NearestAirports(context.Background(), seattle, 1)
	require.NoError(t, err)

	flight := svc.FlightBetween(sfo[0], sea[0])
	assert.Equal(t, "SFO", flight.Departure.IATA)
	assert.Equal(t, "SEA", flight.Arrival.IATA)
	assert.InDelta(t, 680, flight.DistanceMiles, 10)

	lo, hi := trip.DurationBounds(trip.ModePlane, geo.GreatCircleMiles(sfo[0].Location, sea[0].Location))
	assert.GreaterOrEqual(t, flight.DurationMinutes, lo)
	assert.LessOrEqual(t, flight.DurationMinutes, hi)
}

func TestService_Quote_Available(t *testing.T) {
	offers := &stubOffers{offers: []Offer{
		{Price: 210.40, Currency: "USD", Airline: "AS"},
		{Price: 99.60, Currency: "USD", Airline: "UA"},
		{Price: 150, Currency: "USD", Airline: "DL"},
		{Price: 180, Currency: "USD", Airline: "WN"},
		{Price: 175, Currency: "USD", Airline: "AA"},
		{Price: 320, Currency: "USD", Airline: "B6"},
	}}
	svc := NewService(ServiceConfig{Finder: NewStaticDirectory(), Offers: offers, Logger: zerolog.Nop(), Now: fixedNow})

	quote := svc.Quote(context.Background(), sanFrancisco, seattle)

	assert.Equal(t, QuoteAvailable, quote.Status)
	assert.Empty(t, quote.Reason)
	assert.Equal(t, "SFO", quote.DepartureAirport.IATA)
	assert.Equal(t, "SEA", quote.ArrivalAirport.IATA)
	assert.Equal(t, 100.0, quote.Cheapest)
	assert.Equal(t, 320.0, quote.MostExpensive)
	assert.Equal(t, 189.0, quote.Average)
	assert.Equal(t, "USD", quote.Currency)
	require.Len(t, quote.Offers, MaxQuotedOffers)
	assert.Equal(t, "UA", quote.Offers[0].Airline)

	assert.Equal(t, "SFO", offers.got.Origin)
	assert.Equal(t, "SEA", offers.got.Destination)
	assert.Equal(t, "2026-03-15", offers.got.DepartureDate)
	assert.Equal(t, 1, offers.got.Adults)
}

func TestService_Quote_Unavailable(t *testing.T) {
	tests := []struct {
		name        string
		cfg         ServiceConfig
		origin      geo.Coordinate
		destination geo.Coordinate
		reason      string
	}{
		{
			name:        "offers disabled",
			cfg:         ServiceConfig{Finder: NewStaticDirectory()},
			origin:      sanFrancisco,
			destination: seattle,
			reason:      ReasonOffersDisabled,
		},
		{
			name:        "no airport",
			cfg:         ServiceConfig{Finder: &failingFinder{}, Offers: &stubOffers{}},
			origin:      sanFrancisco,
			destination: seattle,
			reason:      ReasonNoAirport,
		},
		{
			name: "same airport",
			cfg: ServiceConfig{
				Finder: NewStaticDirectory(Airport{IATA: "SFO", Location: geo.Coordinate{Lat: 37.6213, Lon: -122.3790}}),
				Offers: &stubOffers{},
			},
			origin:      sanFrancisco,
			destination: sanJose,
			reason:      ReasonSameAirport,
		},
		{
			name:        "no offers",
			cfg:         ServiceConfig{Finder: NewStaticDirectory(), Offers: &stubOffers{err: ErrNoOffers}},
			origin:      sanFrancisco,
			destination: seattle,
			reason:      ReasonNoOffers,
		},
		{
			name:        "provider down",
			cfg:         ServiceConfig{Finder: NewStaticDirectory(), Offers: &stubOffers{err: errors.New("timeout")}},
			origin:      sanFrancisco,
			destination: seattle,
			reason:      ReasonUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.cfg.Logger = zerolog.Nop()
			quote := NewService(tt.cfg).Quote(context.Background(), tt.origin, tt.destination)

			assert.Equal(t, QuoteUnavailable, quote.Status)
			assert.Equal(t, tt.reason, quote.Reason)
			assert.Zero(t, quote.Cheapest)
			assert.Empty(t, quote.Offers)
		})
	}
}
