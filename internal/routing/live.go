package routing

import (
	"context"
	"errors"

	"github.com/regentroute/regentroute/internal/geo"
	"github.com/regentroute/regentroute/internal/trip"
	"github.com/regentroute/regentroute/pkg/polyline"
)

// Directions is the subset of Service used by LiveDirections.
type Directions interface {
	GetDirections(ctx context.Context, req DirectionsRequest) (*DirectionsResponse, error)
}

// LiveDirections feeds provider directions into car estimates.
type LiveDirections struct {
	directions Directions
	profile    RouteProfile
	// Enabled is consulted per lookup; a nil func means always enabled.
	Enabled func(ctx context.Context) bool
}

var _ trip.LiveData = (*LiveDirections)(nil)

// NewLiveDirections wraps a directions source for the given profile.
func NewLiveDirections(d Directions, profile RouteProfile) *LiveDirections {
	if profile == "" {
		profile = ProfileDrivingCar
	}
	return &LiveDirections{directions: d, profile: profile}
}

// Lookup returns the provider's first route. Reported driving time excludes
// parking, so the car overhead is added on top.
func (l *LiveDirections) Lookup(ctx context.Context, req trip.Request) (*trip.LiveRoute, error) {
	if l.Enabled != nil && !l.Enabled(ctx) {
		return nil, nil
	}

	resp, err := l.directions.GetDirections(ctx, DirectionsRequest{
		Origin:      req.Origin,
		Destination: req.Destination,
		Profile:     l.profile,
	})
	if err != nil {
		return nil, err
	}
	if resp == nil || len(resp.Routes) == 0 {
		return nil, ErrNoRouteFound
	}

	route := resp.Routes[0]
	live := &trip.LiveRoute{
		DistanceMiles: geo.MetersToMiles(route.DistanceMeters),
		Provider:      resp.Provider,
	}
	if route.DurationSeconds > 0 {
		live.DurationMinutes = route.DurationSeconds/60 + float64(trip.Overhead(trip.ModeCar))
	}

	if route.GeometryPolyline != "" {
		coords, err := polyline.DecodePrecision(route.GeometryPolyline, polyline.DefaultPrecision)
		if err != nil {
			return nil, errors.Join(ErrProviderUnavailable, err)
		}
		live.Path = toGeo(coords)
	}

	return live, nil
}

func toGeo(coords []polyline.Coordinate) []geo.Coordinate {
	out := make([]geo.Coordinate, len(coords))
	for i, c := range coords {
		out[i] = geo.Coordinate{Lat: c.Lat, Lon: c.Lon}
	}
	return out
}
