package trip

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/regentroute/regentroute/internal/geo"
)

var (
	sanFrancisco = geo.Coordinate{Lat: 37.7749, Lon: -122.4194}
	sanJose      = geo.Coordinate{Lat: 37.3382, Lon: -121.8863}
	seattle      = geo.Coordinate{Lat: 47.6062, Lon: -122.3321}
	miami        = geo.Coordinate{Lat: 25.7617, Lon: -80.1918}
)

func TestParseMode(t *testing.T) {
	tests := []struct {
		in      string
		want    Mode
		wantErr bool
	}{
		{in: "car", want: ModeCar},
		{in: " Ferry ", want: ModeFerry},
		{in: "PLANE", want: ModePlane},
		{in: "train", wantErr: true},
		{in: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseMode(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrUnknownMode)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDistance_NeverBelowGreatCircle(t *testing.T) {
	pairs := [][2]geo.Coordinate{
		{sanFrancisco, sanJose},
		{seattle, miami},
		{{Lat: 0, Lon: 0}, {Lat: 0, Lon: 0.001}},
		{{Lat: 10, Lon: 10}, {Lat: 10.004, Lon: 10}},
	}

	for _, p := range pairs {
		gc := geo.GreatCircleMiles(p[0], p[1])
		for _, mode := range Modes() {
			d := Distance(mode, gc)
			assert.GreaterOrEqual(t, d, gc, "mode %s for %v", mode, p)
			assert.Equal(t, math.Round(d), d, "distance must be a whole mile")
		}
	}
}

func TestDistance_SanFranciscoToSanJose(t *testing.T) {
	gc := geo.GreatCircleMiles(sanFrancisco, sanJose)

	car := Distance(ModeCar, gc)
	assert.Equal(t, 50.0, car)
	assert.LessOrEqual(t, car, gc*1.3)

	assert.Equal(t, 48.0, Distance(ModeFerry, gc))
	assert.Equal(t, 45.0, Distance(ModePlane, gc))
}

func TestDistance_Zero(t *testing.T) {
	for _, mode := range Modes() {
		assert.Equal(t, 0.0, Distance(mode, 0), "mode %s", mode)
	}
}

func TestRoundDistance_CeilsBelowFloor(t *testing.T) {
	assert.Equal(t, 1.0, roundDistance(0.3, 0.28))
	assert.Equal(t, 5.0, roundDistance(4.6, 4.2))
	assert.Equal(t, 5.0, roundDistance(4.4, 4.2))
}

func TestComparison_Result(t *testing.T) {
	c := &Comparison{Results: []ModeResult{
		{Mode: ModeCar, Estimate: &Estimate{Mode: ModeCar}},
		{Mode: ModeFerry, Err: ErrInvalidCoordinate},
	}}

	car, ok := c.Result(ModeCar)
	require.True(t, ok)
	assert.True(t, car.OK())

	ferry, ok := c.Result(ModeFerry)
	require.True(t, ok)
	assert.False(t, ferry.OK())

	_, ok = c.Result(ModePlane)
	assert.False(t, ok)
}
