// Package geocode resolves free-text addresses into coordinates.
package geocode

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/regentroute/regentroute/internal/geo"
)

// ErrGeocodeFailure is returned when an address cannot be resolved.
var ErrGeocodeFailure = errors.New("geocode failure")

// Geocoder resolves a single address.
type Geocoder interface {
	// Geocode resolves address to a point.
	// Returns an error wrapping ErrGeocodeFailure when nothing matches.
	Geocode(ctx context.Context, address string) (*Result, error)

	// Name returns the geocoder name for logging and health tracking.
	Name() string
}

// Result is a resolved address.
type Result struct {
	Address    string         `json:"address"`
	Coordinate geo.Coordinate `json:"coordinate"`
	Label      string         `json:"label,omitempty"`
	Provider   string         `json:"provider"`

	// Fallback is set when the point came from an approximate source
	// such as the built-in gazetteer rather than a real geocoding service.
	Fallback bool `json:"fallback"`
}

// Error describes a failed resolution of one address.
type Error struct {
	Address  string
	Provider string
	Err      error
}

func (e *Error) Error() string {
	if e.Provider == "" {
		return fmt.Sprintf("geocode %q: %v", e.Address, e.Err)
	}
	return fmt.Sprintf("geocode %q via %s: %v", e.Address, e.Provider, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Normalize trims an address and collapses internal whitespace.
func Normalize(address string) string {
	return strings.Join(strings.Fields(address), " ")
}

// cacheKey is the case-insensitive key used for cached resolutions.
func cacheKey(address string) string {
	return strings.ToLower(Normalize(address))
}
