package geocode

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/regentroute/regentroute/internal/geo"
)

func TestGazetteer_Geocode(t *testing.T) {
	g := NewGazetteer()

	tests := []struct {
		address string
		want    geo.Coordinate
		label   string
	}{
		{address: "San Francisco, CA", want: geo.Coordinate{Lat: 37.7749, Lon: -122.4194}, label: "San Francisco"},
		{address: "123 Main St, San Jose, CA", want: geo.Coordinate{Lat: 37.3382, Lon: -121.8863}, label: "San Jose"},
		{address: "  SEATTLE  ", want: geo.Coordinate{Lat: 47.6062, Lon: -122.3321}, label: "Seattle"},
		{address: "Pitts, PA", want: geo.Coordinate{Lat: 40.4406, Lon: -79.9959}, label: "Pittsburgh"},
		{address: "Pier 39 (San Francisco)", want: geo.Coordinate{Lat: 37.7749, Lon: -122.4194}, label: "San Francisco"},
		{address: "Jacks, FL", want: geo.Coordinate{Lat: 30.3322, Lon: -81.6557}, label: "Jacksonville"},
	}

	for _, tt := range tests {
		t.Run(tt.address, func(t *testing.T) {
			res, err := g.Geocode(context.Background(), tt.address)
			require.NoError(t, err)
			assert.Equal(t, tt.want, res.Coordinate)
			assert.Equal(t, tt.label, res.Label)
			assert.True(t, res.Fallback, "gazetteer results are always flagged")
			assert.Equal(t, GazetteerName, res.Provider)
		})
	}
}

func TestGazetteer_NoMatchFails(t *testing.T) {
	g := NewGazetteer()

	for _, address := range []string{"Paris, France", "", "   ", "ny", "York, PA", "Sea", "Seattleton, WA", "Newark, NJ", "Sand, UT"} {
		_, err := g.Geocode(context.Background(), address)
		assert.True(t, errors.Is(err, ErrGeocodeFailure), "address %q: expected ErrGeocodeFailure, got %v", address, err)

		var geoErr *Error
		require.True(t, errors.As(err, &geoErr))
		assert.Equal(t, address, geoErr.Address)
	}
}

func TestGazetteer_CustomPlacesPreferLongestName(t *testing.T) {
	g := NewGazetteer(
		Place{Name: "Jose", Coordinate: geo.Coordinate{Lat: 1, Lon: 1}},
		Place{Name: "San Jose", Coordinate: geo.Coordinate{Lat: 2, Lon: 2}},
	)

	res, err := g.Geocode(context.Background(), "downtown san jose")
	require.NoError(t, err)
	assert.Equal(t, geo.Coordinate{Lat: 2, Lon: 2}, res.Coordinate)
	assert.Len(t, g.Places(), 2)
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, "San Francisco, CA", Normalize("  San   Francisco,\tCA \n"))
	assert.Equal(t, "", Normalize("   "))
	assert.Equal(t, "san francisco, ca", cacheKey(" San  Francisco, CA"))
}

func TestGazetteer_AmbiguousAbbreviationFails(t *testing.T) {
	g := NewGazetteer(
		Place{Name: "Portland", Coordinate: geo.Coordinate{Lat: 45.5, Lon: -122.7}},
		Place{Name: "Portsmouth", Coordinate: geo.Coordinate{Lat: 43.1, Lon: -70.8}},
	)

	_, err := g.Geocode(context.Background(), "Port, ME")
	assert.ErrorIs(t, err, ErrGeocodeFailure)

	res, err := g.Geocode(context.Background(), "Portl")
	require.NoError(t, err)
	assert.Equal(t, "Portland", res.Label)
}
