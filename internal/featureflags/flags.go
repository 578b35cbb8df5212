// Package featureflags holds runtime switches for degrading the trip
// estimator: skipping live directions or flight offers, quoting flights by
// default and overriding the ferry curve width.
package featureflags

import (
	"encoding/json"
	"time"
)

// Flag keys read by the estimator and the compare service.
const (
	// FlagDisableLiveDirections makes car and ferry estimates formula-only.
	FlagDisableLiveDirections = "disable_live_directions"

	// FlagDisableFlightOffers skips airport and flight offer lookups for the plane mode.
	FlagDisableFlightOffers = "disable_flight_offers"

	FlagIncludeFlightsByDefault = "include_flights_by_default"

	// FlagDefaultFerryCurveWidth is used for compare requests that send no curve width.
	FlagDefaultFerryCurveWidth = "default_ferry_curve_width"
)

// Flag is one stored switch. Value holds whatever JSON decoded into it.
type Flag struct {
	Key       string      `json:"key"`
	Value     interface{} `json:"value"`
	UpdatedAt time.Time   `json:"updatedAt"`
}

// FlagList is the body of the flag listing endpoint.
type FlagList struct {
	Items []Flag `json:"items"`
}

type FlagUpdate struct {
	Key   string      `json:"key"`
	Value interface{} `json:"value"`
}

// FlagUpdateRequest is the body of the flag update endpoint. Reason is logged.
type FlagUpdateRequest struct {
	Updates []FlagUpdate `json:"updates"`
	Reason  string       `json:"reason"`
}

// number reads the numeric kinds a flag value can hold after a JSON or SQL
// round trip.
func number(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}

// BoolValue reads a boolean; a number is true when non-zero. A nil flag or
// any other kind yields def.
func (f *Flag) BoolValue(def bool) bool {
	if f == nil {
		return def
	}
	if b, ok := f.Value.(bool); ok {
		return b
	}
	if n, ok := number(f.Value); ok {
		return n != 0
	}
	return def
}

func (f *Flag) StringValue(def string) string {
	if f == nil {
		return def
	}
	if s, ok := f.Value.(string); ok {
		return s
	}
	return def
}

// IntValue truncates numeric values toward zero.
func (f *Flag) IntValue(def int) int {
	if f == nil {
		return def
	}
	if n, ok := number(f.Value); ok {
		return int(n)
	}
	return def
}

func (f *Flag) Float64Value(def float64) float64 {
	if f == nil {
		return def
	}
	if n, ok := number(f.Value); ok {
		return n
	}
	return def
}

// DefaultFlags are the values in effect when nothing is stored: every
// provider enabled, flights quoted, and a 0.2 ferry curve.
func DefaultFlags() map[string]*Flag {
	now := time.Now().UTC()
	flag := func(key string, v interface{}) *Flag { return &Flag{Key: key, Value: v, UpdatedAt: now} }
	return map[string]*Flag{
		FlagDisableLiveDirections:   flag(FlagDisableLiveDirections, false),
		FlagDisableFlightOffers:     flag(FlagDisableFlightOffers, false),
		FlagIncludeFlightsByDefault: flag(FlagIncludeFlightsByDefault, true),
		FlagDefaultFerryCurveWidth:  flag(FlagDefaultFerryCurveWidth, 0.2),
	}
}

// stamped returns the flag's UpdatedAt, or now when the caller left it unset.
func stamped(f *Flag, now time.Time) time.Time {
	if f.UpdatedAt.IsZero() {
		return now
	}
	return f.UpdatedAt
}
