// Package aviation finds airports near a point and prices flights between them.
package aviation

import (
	"context"
	"errors"

	"github.com/regentroute/regentroute/internal/geo"
)

// Errors returned by airport and offer sources.
var (
	ErrNoAirport           = errors.New("no airport found")
	ErrNoOffers            = errors.New("no flight offers found")
	ErrProviderUnavailable = errors.New("aviation provider unavailable")
)

// Airport is a commercial airport.
type Airport struct {
	ICAO     string         `json:"icao"`
	IATA     string         `json:"iata"`
	Name     string         `json:"name"`
	City     string         `json:"city"`
	Country  string         `json:"country"`
	Location geo.Coordinate `json:"location"`

	// DistanceMiles is the great-circle distance from the query point.
	DistanceMiles float64 `json:"distanceMiles"`
}

// AirportFinder looks up airports near a point.
type AirportFinder interface {
	// NearestAirports returns up to limit airports ordered by distance from point.
	NearestAirports(ctx context.Context, point geo.Coordinate, limit int) ([]Airport, error)

	// Name returns the finder name.
	Name() string
}

// OfferQuery describes a one-way flight search.
type OfferQuery struct {
	Origin        string // IATA code
	Destination   string // IATA code
	DepartureDate string // YYYY-MM-DD
	Adults        int
	Max           int
}

// Offer is a priced itinerary. Price is always in US dollars.
type Offer struct {
	Price         float64 `json:"price"`
	Currency      string  `json:"currency"`
	Airline       string  `json:"airline"`
	DepartureTime string  `json:"departureTime"`
	ArrivalTime   string  `json:"arrivalTime"`
	Duration      string  `json:"duration"`
	Stops         int     `json:"stops"`
}

// OfferSource searches for flight offers.
type OfferSource interface {
	SearchOffers(ctx context.Context, q OfferQuery) ([]Offer, error)
	Name() string
}

// QuoteStatus reports whether live flight pricing could be obtained.
type QuoteStatus string

// Quote statuses.
const (
	QuoteAvailable   QuoteStatus = "available"
	QuoteUnavailable QuoteStatus = "unavailable"
)

// MaxQuotedOffers is the number of offers carried in a quote.
const MaxQuotedOffers = 5

// Quote summarizes live flight pricing between two points.
// An unavailable quote carries a reason and no prices.
type Quote struct {
	Status           QuoteStatus `json:"status"`
	Reason           string      `json:"reason,omitempty"`
	DepartureAirport *Airport    `json:"departureAirport,omitempty"`
	ArrivalAirport   *Airport    `json:"arrivalAirport,omitempty"`
	Cheapest         float64     `json:"cheapest,omitempty"`
	Average          float64     `json:"average,omitempty"`
	MostExpensive    float64     `json:"mostExpensive,omitempty"`
	Currency         string      `json:"currency,omitempty"`
	Offers           []Offer     `json:"offers,omitempty"`
}

// Flight is the modeled airport-to-airport leg.
type Flight struct {
	Departure       Airport `json:"departure"`
	Arrival         Airport `json:"arrival"`
	DistanceMiles   float64 `json:"distanceMiles"`
	DurationMinutes int     `json:"durationMinutes"`
}
