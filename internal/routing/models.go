// Package routing refines car estimates with live driving directions. A
// grid-cached Service sits in front of a Provider, and LiveDirections adapts
// the result to the trip estimator.
package routing

import (
	"context"
	"errors"
	"time"

	"github.com/regentroute/regentroute/internal/geo"
)

var (
	// ErrProviderUnavailable covers transport failures, open circuits, 5xx
	// replies and rejected credentials.
	ErrProviderUnavailable = errors.New("routing provider unavailable")
	ErrNoRouteFound        = errors.New("no route found between the given points")
	ErrRateLimitExceeded   = errors.New("rate limit exceeded")
	ErrInvalidCoordinates  = errors.New("invalid coordinates")
)

// Provider is a directions backend.
type Provider interface {
	GetDirections(ctx context.Context, req DirectionsRequest) (*DirectionsResponse, error)
	Name() string
	SupportedProfiles() []RouteProfile
}

// RouteProfile names a vehicle profile in the provider's vocabulary.
type RouteProfile string

const (
	ProfileDrivingCar RouteProfile = "driving-car"
	ProfileDrivingHGV RouteProfile = "driving-hgv"
)

// DirectionsRequest asks for a route between two points. An empty Profile
// means ProfileDrivingCar.
type DirectionsRequest struct {
	Origin      geo.Coordinate
	Destination geo.Coordinate
	Profile     RouteProfile
}

// DirectionsResponse lists routes best first.
type DirectionsResponse struct {
	Routes    []Route
	Provider  string
	FetchedAt time.Time
}

// Route is one drivable route. GeometryPolyline uses precision 5 and
// Summary names the road covering the most distance.
type Route struct {
	GeometryPolyline string
	DistanceMeters   float64
	DurationSeconds  float64
	Summary          string
	BoundingBox      *BoundingBox
	Instructions     []Instruction
}

type BoundingBox struct {
	MinLon, MinLat float64
	MaxLon, MaxLat float64
}

// Instruction is one turn-by-turn step. Type is the provider's maneuver code.
type Instruction struct {
	Text           string
	Name           string
	DistanceMeters float64
	DurationSecs   float64
	Type           int
}

// Error carries the provider's code alongside one of the sentinel errors.
type Error struct {
	Provider string
	Code     string
	Message  string
	Err      error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return e.Message + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error { return e.Err }

// IsRetryable reports whether the same request may succeed later.
func (e *Error) IsRetryable() bool {
	return errors.Is(e.Err, ErrProviderUnavailable) || errors.Is(e.Err, ErrRateLimitExceeded)
}
