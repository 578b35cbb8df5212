package mapview

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/regentroute/regentroute/internal/geo"
	"github.com/regentroute/regentroute/internal/trip"
)

var (
	sanFrancisco = geo.Coordinate{Lat: 37.7749, Lon: -122.4194}
	sanJose      = geo.Coordinate{Lat: 37.3382, Lon: -121.8863}
)

func comparison() *trip.Comparison {
	return &trip.Comparison{
		Origin:      sanFrancisco,
		Destination: sanJose,
		Results: []trip.ModeResult{
			{Mode: trip.ModeCar, Estimate: &trip.Estimate{Mode: trip.ModeCar, Path: trip.SyntheticCarPath(sanFrancisco, sanJose)}},
			{Mode: trip.ModeFerry, Err: errors.New("no ferry")},
			{Mode: trip.ModePlane, Estimate: &trip.Estimate{Mode: trip.ModePlane, Path: trip.PlanePath(sanFrancisco, sanJose)}},
		},
	}
}

func TestOverlaysFor_SkipsFailedModes(t *testing.T) {
	overlays := OverlaysFor(comparison())
	require.Len(t, overlays, 2)

	assert.Equal(t, trip.ModeCar, overlays[0].Mode)
	assert.Equal(t, ColorCar, overlays[0].Color)
	assert.Equal(t, "Car", overlays[0].Label)
	assert.Equal(t, trip.ModePlane, overlays[1].Mode)
	assert.Equal(t, ColorPlane, overlays[1].Color)

	assert.Nil(t, OverlaysFor(nil))
}

func TestScene_ClearAndRedraw(t *testing.T) {
	scene := NewScene(OverlaysFor(comparison())...)
	assert.Len(t, scene.Overlays(), 2)

	scene.Clear()
	assert.Empty(t, scene.Overlays())
	_, ok := scene.Bounds()
	assert.False(t, ok)

	scene.Redraw([]Overlay{
		{Mode: trip.ModeFerry, Path: trip.FerryPath(sanFrancisco, sanJose, trip.DefaultCurve)},
		{Mode: trip.ModeCar, Path: []geo.Coordinate{sanFrancisco}},
	})
	overlays := scene.Overlays()
	require.Len(t, overlays, 1, "single-point overlays are dropped")
	assert.Equal(t, ColorFerry, overlays[0].Color, "colour defaults per mode")
}

func TestScene_OverlaysAreCopies(t *testing.T) {
	path := []geo.Coordinate{sanFrancisco, sanJose}
	scene := NewScene(Overlay{Mode: trip.ModePlane, Path: path})

	path[0] = geo.Coordinate{}
	got := scene.Overlays()
	got[0].Path[1] = geo.Coordinate{}

	again := scene.Overlays()
	assert.Equal(t, sanFrancisco, again[0].Path[0])
	assert.Equal(t, sanJose, again[0].Path[1])
}

func TestScene_Bounds(t *testing.T) {
	scene := NewScene(OverlaysFor(comparison())...)

	b, ok := scene.Bounds()
	require.True(t, ok)
	assert.LessOrEqual(t, b.SouthWest.Lat, sanJose.Lat)
	assert.GreaterOrEqual(t, b.NorthEast.Lat, sanFrancisco.Lat)
	assert.LessOrEqual(t, b.SouthWest.Lon, sanFrancisco.Lon)
	assert.GreaterOrEqual(t, b.NorthEast.Lon, sanJose.Lon)

	c := b.Center()
	assert.InDelta(t, (b.SouthWest.Lat+b.NorthEast.Lat)/2, c.Lat, 1e-12)
}

func TestScene_FeatureCollection(t *testing.T) {
	scene := NewScene(OverlaysFor(comparison())...)
	fc := scene.FeatureCollection()

	assert.Equal(t, "FeatureCollection", fc.Type)
	require.Len(t, fc.Features, 4)
	assert.Equal(t, "LineString", fc.Features[0].Geometry.GeoJSONType())
	assert.Equal(t, "LineString", fc.Features[1].Geometry.GeoJSONType())
	assert.Equal(t, "Point", fc.Features[2].Geometry.GeoJSONType())
	assert.Equal(t, KindPath, fc.Features[0].Properties.MustString("kind"))
	assert.Equal(t, KindLabel, fc.Features[3].Properties.MustString("kind"))
	assert.Equal(t, "Plane", fc.Features[3].Properties.MustString("label"))
	require.Len(t, fc.BBox, 4)
	assert.Equal(t, sanFrancisco.Lon, fc.BBox[0])
	assert.Equal(t, sanJose.Lat, fc.BBox[1])

	raw, err := json.Marshal(fc)
	require.NoError(t, err)

	var decoded struct {
		Features []struct {
			Geometry struct {
				Type        string          `json:"type"`
				Coordinates json.RawMessage `json:"coordinates"`
			} `json:"geometry"`
		} `json:"features"`
	}
	require.NoError(t, json.Unmarshal(raw, &decoded))

	var line [][]float64
	require.NoError(t, json.Unmarshal(decoded.Features[1].Geometry.Coordinates, &line))
	require.Len(t, line, 2)
	assert.Equal(t, []float64{sanFrancisco.Lon, sanFrancisco.Lat}, line[0], "GeoJSON is lon, lat")
}

func TestFeatureCollection_RoundTripsThroughGeoJSON(t *testing.T) {
	raw, err := json.Marshal(NewScene(OverlaysFor(comparison())...).FeatureCollection())
	require.NoError(t, err)

	fc, err := geojson.UnmarshalFeatureCollection(raw)
	require.NoError(t, err)
	require.Len(t, fc.Features, 4)
	line, ok := fc.Features[0].Geometry.(orb.LineString)
	require.True(t, ok)
	assert.Equal(t, orb.Point{sanFrancisco.Lon, sanFrancisco.Lat}, line[0])
}

func TestOverlay_LabelPosition(t *testing.T) {
	o := Overlay{Mode: trip.ModePlane, Path: []geo.Coordinate{sanFrancisco, sanJose}}
	mid := o.LabelPosition()

	assert.InDelta(t, (sanFrancisco.Lat+sanJose.Lat)/2, mid.Lat, 1e-3)
	assert.InDelta(t, (sanFrancisco.Lon+sanJose.Lon)/2, mid.Lon, 1e-3)
}

func TestFeatureCollection_Empty(t *testing.T) {
	fc := NewScene().FeatureCollection()
	assert.NotNil(t, fc.Features)
	assert.Empty(t, fc.Features)
	assert.Nil(t, fc.BBox)
}

func TestOverlaysForEstimates(t *testing.T) {
	overlays := OverlaysForEstimates(nil, &trip.Estimate{Mode: trip.ModeFerry, Path: []geo.Coordinate{sanFrancisco, sanJose}})
	require.Len(t, overlays, 1)
	assert.Equal(t, "Ferry", overlays[0].Label)
}
