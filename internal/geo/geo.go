// Package geo holds the coordinate type shared by every estimator and provider,
// the great-circle distance primitive, and unit conversions.
package geo

import (
	"errors"
	"fmt"
	"math"
)

// Unit constants.
const (
	// EarthRadiusMiles is the mean Earth radius used for all great-circle distances.
	EarthRadiusMiles = 3959.0
	// MilesPerNauticalMile converts nautical miles to statute miles.
	MilesPerNauticalMile = 1.15078
	// KilometersPerMile converts statute miles to kilometers.
	KilometersPerMile = 1.60934
	// MetersPerMile converts statute miles to meters.
	MetersPerMile = 1609.344
)

// ErrInvalidCoordinate indicates a latitude or longitude that is out of range or not a number.
var ErrInvalidCoordinate = errors.New("invalid coordinate")

// Coordinate is a point on the Earth's surface in decimal degrees.
type Coordinate struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Validate checks that both components are finite and in range.
func (c Coordinate) Validate() error {
	if math.IsNaN(c.Lat) || math.IsInf(c.Lat, 0) || c.Lat < -90 || c.Lat > 90 {
		return fmt.Errorf("%w: latitude %v out of range [-90, 90]", ErrInvalidCoordinate, c.Lat)
	}
	if math.IsNaN(c.Lon) || math.IsInf(c.Lon, 0) || c.Lon < -180 || c.Lon > 180 {
		return fmt.Errorf("%w: longitude %v out of range [-180, 180]", ErrInvalidCoordinate, c.Lon)
	}
	return nil
}

func (c Coordinate) String() string {
	return fmt.Sprintf("%.5f,%.5f", c.Lat, c.Lon)
}

// GreatCircleMiles returns the Haversine distance between a and b in statute miles.
func GreatCircleMiles(a, b Coordinate) float64 {
	if a == b {
		return 0
	}

	lat1 := toRadians(a.Lat)
	lat2 := toRadians(b.Lat)
	dLat := toRadians(b.Lat - a.Lat)
	dLon := toRadians(b.Lon - a.Lon)

	sinDLat := math.Sin(dLat / 2)
	sinDLon := math.Sin(dLon / 2)

	h := sinDLat*sinDLat + math.Cos(lat1)*math.Cos(lat2)*sinDLon*sinDLon
	// Rounding can push h marginally above 1 for antipodal points.
	h = math.Min(1, h)
	return 2 * EarthRadiusMiles * math.Asin(math.Sqrt(h))
}

// MilesToNauticalMiles converts statute miles to nautical miles.
func MilesToNauticalMiles(mi float64) float64 {
	return mi / MilesPerNauticalMile
}

// NauticalMilesToMiles converts nautical miles to statute miles.
func NauticalMilesToMiles(nmi float64) float64 {
	return nmi * MilesPerNauticalMile
}

// MilesToKilometers converts statute miles to kilometers.
func MilesToKilometers(mi float64) float64 {
	return mi * KilometersPerMile
}

// MetersToMiles converts meters to statute miles.
func MetersToMiles(m float64) float64 {
	return m / MetersPerMile
}

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180
}
