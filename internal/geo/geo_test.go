package geo

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	sanFrancisco = Coordinate{Lat: 37.7749, Lon: -122.4194}
	sanJose      = Coordinate{Lat: 37.3382, Lon: -121.8863}
	newYork      = Coordinate{Lat: 40.7128, Lon: -74.0060}
	losAngeles   = Coordinate{Lat: 34.0522, Lon: -118.2437}
)

func TestGreatCircleMiles(t *testing.T) {
	tests := []struct {
		name     string
		a, b     Coordinate
		expected float64
		delta    float64
	}{
		{name: "identical points", a: sanFrancisco, b: sanFrancisco, expected: 0, delta: 0},
		{name: "San Francisco to San Jose", a: sanFrancisco, b: sanJose, expected: 42.0, delta: 0.3},
		{name: "New York to Los Angeles", a: newYork, b: losAngeles, expected: 2445, delta: 5},
		{name: "one degree of latitude", a: Coordinate{}, b: Coordinate{Lat: 1}, expected: 69.1, delta: 0.1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.expected, GreatCircleMiles(tt.a, tt.b), tt.delta)
		})
	}
}

func TestGreatCircleMiles_Symmetric(t *testing.T) {
	pairs := [][2]Coordinate{
		{sanFrancisco, sanJose},
		{newYork, losAngeles},
		{{Lat: -33.8688, Lon: 151.2093}, {Lat: 51.5074, Lon: -0.1278}},
	}
	for _, p := range pairs {
		assert.Equal(t, GreatCircleMiles(p[0], p[1]), GreatCircleMiles(p[1], p[0]))
	}
}

func TestGreatCircleMiles_Antipodal(t *testing.T) {
	d := GreatCircleMiles(Coordinate{Lat: 0, Lon: 0}, Coordinate{Lat: 0, Lon: 180})
	assert.InDelta(t, math.Pi*EarthRadiusMiles, d, 0.01)
}

func TestCoordinate_Validate(t *testing.T) {
	tests := []struct {
		name    string
		coord   Coordinate
		wantErr bool
	}{
		{name: "valid", coord: sanFrancisco},
		{name: "poles and antimeridian", coord: Coordinate{Lat: 90, Lon: -180}},
		{name: "latitude too high", coord: Coordinate{Lat: 90.1}, wantErr: true},
		{name: "longitude too low", coord: Coordinate{Lon: -180.5}, wantErr: true},
		{name: "NaN latitude", coord: Coordinate{Lat: math.NaN()}, wantErr: true},
		{name: "infinite longitude", coord: Coordinate{Lon: math.Inf(1)}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.coord.Validate()
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrInvalidCoordinate)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestConversions(t *testing.T) {
	assert.InDelta(t, 1.0, MilesToNauticalMiles(MilesPerNauticalMile), 1e-12)
	assert.InDelta(t, 11.5078, NauticalMilesToMiles(10), 1e-9)
	assert.InDelta(t, 160.934, MilesToKilometers(100), 1e-9)
	assert.InDelta(t, 1.0, MetersToMiles(1609.344), 1e-12)
}

func TestFormatting(t *testing.T) {
	assert.Equal(t, "49.0 mi", FormatDistance(49, false))
	assert.Equal(t, "78.9 km", FormatDistance(49, true))
	assert.Equal(t, "45 m", FormatDuration(45))
	assert.Equal(t, "1 h 5 m", FormatDuration(65))
	assert.Equal(t, "0 m", FormatDuration(-3))
	assert.Equal(t, "$7.35", FormatCost(7.349999))
}
