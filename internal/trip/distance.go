package trip

import (
	"math"

	"github.com/regentroute/regentroute/internal/geo"
)

// Route inflation factors applied to the great-circle distance.
const (
	// RoadFactor accounts for roads not running in straight lines.
	RoadFactor = 1.20
	// ShippingLaneFactor is applied in nautical miles; ships follow channels and avoid land.
	ShippingLaneFactor = 1.15
	// AirCorridorFactor covers ATC routing and weather deviation.
	AirCorridorFactor = 1.07
)

// Distance converts a great-circle distance in miles into the mode's route distance,
// rounded to a whole mile and never shorter than the great-circle distance.
func Distance(mode Mode, greatCircle float64) float64 {
	if greatCircle <= 0 {
		return 0
	}

	var raw float64
	switch mode {
	case ModeCar:
		raw = greatCircle * RoadFactor
	case ModeFerry:
		nmi := geo.MilesToNauticalMiles(greatCircle) * ShippingLaneFactor
		raw = geo.NauticalMilesToMiles(nmi)
	case ModePlane:
		raw = greatCircle * AirCorridorFactor
	default:
		raw = greatCircle
	}
	return roundDistance(raw, greatCircle)
}

// roundDistance rounds to the nearest mile unless that would fall below the floor.
func roundDistance(miles, floor float64) float64 {
	r := math.Round(miles)
	if r < floor {
		r = math.Ceil(floor)
	}
	return r
}
