package models

import "github.com/paulmach/orb/geojson"

// FerryCurve is the ferry path display preference.
type FerryCurve struct {
	Direction string   `json:"direction,omitempty"`
	Width     *float64 `json:"width,omitempty"`
}

// CompareRequest is the body of POST /v1/trips:compare.
type CompareRequest struct {
	Origin         string      `json:"origin"`
	Destination    string      `json:"destination"`
	FerryCurve     *FerryCurve `json:"ferryCurve,omitempty"`
	IncludeFlights *bool       `json:"includeFlights,omitempty"`
	Units          Units       `json:"units,omitempty"`
}

// EstimateRequest is the body of POST /v1/trips:estimate.
type EstimateRequest struct {
	Origin      *Point      `json:"origin"`
	Destination *Point      `json:"destination"`
	Mode        string      `json:"mode"`
	FerryCurve  *FerryCurve `json:"ferryCurve,omitempty"`
	Units       Units       `json:"units,omitempty"`
}

// Place is a resolved address.
type Place struct {
	Address  string `json:"address"`
	Label    string `json:"label,omitempty"`
	Location Point  `json:"location"`
	Provider string `json:"provider"`
	// Fallback marks an approximate location from the built-in gazetteer.
	Fallback bool `json:"fallback"`
}

// ModeStatus is the outcome of one mode.
type ModeStatus string

const (
	ModeStatusOK     ModeStatus = "ok"
	ModeStatusFailed ModeStatus = "failed"
)

// ModeError explains why a mode has no estimate.
type ModeError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Cost is a monetary amount.
type Cost struct {
	Kind     string  `json:"kind"`
	Amount   float64 `json:"amount"`
	Currency string  `json:"currency"`
}

// EstimateDisplay holds preformatted strings for the estimate.
type EstimateDisplay struct {
	Distance string `json:"distance"`
	Duration string `json:"duration"`
	Cost     string `json:"cost"`
}

// Estimate is one mode's distance, duration, cost and path.
type Estimate struct {
	DistanceMiles   float64 `json:"distanceMiles"`
	DurationMinutes int     `json:"durationMinutes"`
	Cost            Cost    `json:"cost"`
	// Polyline is the path in encoded polyline format (precision 5).
	Polyline string           `json:"polyline"`
	Source   string           `json:"source,omitempty"`
	Provider string           `json:"provider,omitempty"`
	Display  *EstimateDisplay `json:"display,omitempty"`
}

// ModeEstimate is one mode's entry in a comparison.
type ModeEstimate struct {
	Mode     string     `json:"mode"`
	Status   ModeStatus `json:"status"`
	Error    *ModeError `json:"error,omitempty"`
	Estimate *Estimate  `json:"estimate,omitempty"`
}

// Airport is a commercial airport.
type Airport struct {
	IATA          string  `json:"iata,omitempty"`
	ICAO          string  `json:"icao,omitempty"`
	Name          string  `json:"name"`
	City          string  `json:"city,omitempty"`
	Country       string  `json:"country,omitempty"`
	Location      Point   `json:"location"`
	DistanceMiles float64 `json:"distanceMiles"`
}

// FlightOffer is a priced itinerary in US dollars.
type FlightOffer struct {
	Price         float64 `json:"price"`
	Currency      string  `json:"currency"`
	Airline       string  `json:"airline,omitempty"`
	DepartureTime string  `json:"departureTime,omitempty"`
	ArrivalTime   string  `json:"arrivalTime,omitempty"`
	Duration      string  `json:"duration,omitempty"`
	Stops         int     `json:"stops"`
}

// FlightQuote summarizes live flight pricing for the plane mode.
type FlightQuote struct {
	Status           string        `json:"status"`
	Reason           string        `json:"reason,omitempty"`
	DepartureAirport *Airport      `json:"departureAirport,omitempty"`
	ArrivalAirport   *Airport      `json:"arrivalAirport,omitempty"`
	Cheapest         float64       `json:"cheapest,omitempty"`
	Average          float64       `json:"average,omitempty"`
	MostExpensive    float64       `json:"mostExpensive,omitempty"`
	Currency         string        `json:"currency,omitempty"`
	Offers           []FlightOffer `json:"offers,omitempty"`
}

// CompareResponse is the result of POST /v1/trips:compare.
type CompareResponse struct {
	Origin           Place          `json:"origin"`
	Destination      Place          `json:"destination"`
	GreatCircleMiles float64        `json:"greatCircleMiles"`
	Modes            []ModeEstimate `json:"modes"`
	Flight           *FlightQuote   `json:"flight,omitempty"`
	// Map is the rendered scene as a GeoJSON FeatureCollection.
	Map *geojson.FeatureCollection `json:"map"`
}

// AirportList is the result of GET /v1/airports/nearest.
type AirportList struct {
	Items []Airport `json:"items"`
}
