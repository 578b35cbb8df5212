package trip

import (
	"math"

	"github.com/regentroute/regentroute/internal/geo"
)

// Car duration constants.
const (
	CarMinSpeedMPH     = 50.0
	CarMaxSpeedMPH     = 60.0
	CarOverheadMinutes = 3.0 // start, park
)

// Ferry duration constants.
const (
	FerrySpeedKnots           = 35.0
	FerryDeparturePrepMinutes = 10.0
	FerryDockingMinutes       = 5.0
	FerryMinSeaFactor         = 1.05
	FerryMaxSeaFactor         = 1.15
)

// Plane duration constants.
const (
	PlaneCruiseMPH       = 500.0
	PlaneClimbMinutes    = 18.0
	PlaneDescentMinutes  = 17.0
	PlaneTaxiOutMinutes  = 12.0
	PlaneTaxiInMinutes   = 8.0
	PlaneMinWindFactor   = 0.85
	PlaneMaxWindFactor   = 1.15
	PlaneMinDelayMinutes = 5.0
	PlaneMaxDelayMinutes = 20.0
)

// Overhead returns the mode's fixed minimum duration in minutes.
func Overhead(mode Mode) int {
	switch mode {
	case ModeCar:
		return int(CarOverheadMinutes)
	case ModeFerry:
		return int(FerryDeparturePrepMinutes + FerryDockingMinutes)
	case ModePlane:
		return int(PlaneClimbMinutes + PlaneDescentMinutes + PlaneTaxiOutMinutes + PlaneTaxiInMinutes)
	}
	return 0
}

// Duration returns the travel time in whole minutes for a route distance.
// rnd drives the speed, sea-condition, wind and delay jitter.
func Duration(mode Mode, miles float64, rnd RandomSource) int {
	overhead := float64(Overhead(mode))
	if miles <= 0 {
		return int(overhead)
	}

	var minutes float64
	switch mode {
	case ModeCar:
		speed := uniform(rnd, CarMinSpeedMPH, CarMaxSpeedMPH)
		minutes = miles/speed*60 + overhead
	case ModeFerry:
		sailing := geo.MilesToNauticalMiles(miles) / FerrySpeedKnots * 60
		minutes = sailing*uniform(rnd, FerryMinSeaFactor, FerryMaxSeaFactor) + overhead
	case ModePlane:
		cruise := miles / PlaneCruiseMPH * 60
		minutes = cruise*uniform(rnd, PlaneMinWindFactor, PlaneMaxWindFactor) +
			overhead +
			uniform(rnd, PlaneMinDelayMinutes, PlaneMaxDelayMinutes)
	default:
		return 0
	}
	return int(math.Round(minutes))
}

// DurationBounds returns the shortest and longest duration Duration can produce
// for the given distance.
func DurationBounds(mode Mode, miles float64) (lo, hi int) {
	lo = Duration(mode, miles, FixedRandom(0))
	hi = Duration(mode, miles, FixedRandom(1))
	if lo > hi {
		lo, hi = hi, lo
	}
	return lo, hi
}
