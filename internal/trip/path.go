package trip

import (
	"fmt"
	"math"

	"github.com/regentroute/regentroute/internal/geo"
)

// CurveDirection chooses which side of the travel vector the ferry curve bulges to.
type CurveDirection string

const (
	CurveLeft  CurveDirection = "left"
	CurveRight CurveDirection = "right"
)

// Path sampling constants.
const (
	FerryCurveSteps = 64
	CarPathSteps    = 32
	// MaxCurveWidth bounds the ferry control-point offset as a multiple of the trip length.
	MaxCurveWidth = 2.0
	// carWiggle is the car path's lateral amplitude as a fraction of the trip length.
	carWiggle = 0.015
)

// CurveOptions are the display preferences for the ferry path.
type CurveOptions struct {
	Direction CurveDirection `json:"direction"`
	Width     float64        `json:"width"`
}

// DefaultCurve is used when a request carries no curve preferences.
var DefaultCurve = CurveOptions{Direction: CurveLeft, Width: 0.2}

// Validate checks direction and width.
func (o CurveOptions) Validate() error {
	if o.Direction != CurveLeft && o.Direction != CurveRight {
		return fmt.Errorf("%w: direction must be %q or %q", ErrInvalidCurve, CurveLeft, CurveRight)
	}
	if math.IsNaN(o.Width) || o.Width < 0 || o.Width > MaxCurveWidth {
		return fmt.Errorf("%w: width must be between 0 and %.0f", ErrInvalidCurve, MaxCurveWidth)
	}
	return nil
}

// PlanePath is the straight line between the endpoints.
func PlanePath(origin, dest geo.Coordinate) []geo.Coordinate {
	return []geo.Coordinate{origin, dest}
}

// FerryPath samples a cubic Bézier curve whose control points sit at one and two
// thirds of the way along the trip, pushed sideways by Width times the trip length.
func FerryPath(origin, dest geo.Coordinate, opts CurveOptions) []geo.Coordinate {
	dx := lonDelta(origin.Lon, dest.Lon)
	dy := dest.Lat - origin.Lat
	if math.Hypot(dx, dy) == 0 {
		return []geo.Coordinate{origin, dest}
	}

	width := math.Max(0, math.Min(opts.Width, MaxCurveWidth))
	// (-dy, dx) is the left-hand perpendicular with the same length as the travel vector.
	ox, oy := -dy*width, dx*width
	if opts.Direction == CurveRight {
		ox, oy = -ox, -oy
	}

	p0x, p0y := origin.Lon, origin.Lat
	p1x, p1y := origin.Lon+dx/3+ox, origin.Lat+dy/3+oy
	p2x, p2y := origin.Lon+2*dx/3+ox, origin.Lat+2*dy/3+oy
	p3x, p3y := origin.Lon+dx, dest.Lat

	path := make([]geo.Coordinate, 0, FerryCurveSteps+1)
	for i := 0; i <= FerryCurveSteps; i++ {
		t := float64(i) / FerryCurveSteps
		u := 1 - t
		b0, b1, b2, b3 := u*u*u, 3*u*u*t, 3*u*t*t, t*t*t
		path = append(path, clampCoordinate(
			b0*p0y+b1*p1y+b2*p2y+b3*p3y,
			b0*p0x+b1*p1x+b2*p2x+b3*p3x,
		))
	}
	// Endpoints are exact regardless of floating point error.
	path[0], path[len(path)-1] = origin, dest
	return path
}

// SyntheticCarPath draws a gently wavy line so the car overlay does not sit on top
// of the plane's straight line. It carries no routing information.
func SyntheticCarPath(origin, dest geo.Coordinate) []geo.Coordinate {
	dx := lonDelta(origin.Lon, dest.Lon)
	dy := dest.Lat - origin.Lat
	if math.Hypot(dx, dy) == 0 {
		return []geo.Coordinate{origin, dest}
	}

	path := make([]geo.Coordinate, 0, CarPathSteps+1)
	for i := 0; i <= CarPathSteps; i++ {
		t := float64(i) / CarPathSteps
		off := carWiggle * math.Sin(2*math.Pi*t)
		path = append(path, clampCoordinate(
			origin.Lat+dy*t+dx*off,
			origin.Lon+dx*t-dy*off,
		))
	}
	path[0], path[len(path)-1] = origin, dest
	return path
}

// lonDelta is the eastward longitude change from a to b along the shorter way
// round, in [-180, 180]. Paths are built from a on this unwrapped axis and
// folded back into range as they are sampled.
func lonDelta(a, b float64) float64 {
	d := b - a
	if d > 180 {
		d -= 360
	} else if d < -180 {
		d += 360
	}
	return d
}

func clampCoordinate(lat, lon float64) geo.Coordinate {
	lat = math.Max(-90, math.Min(90, lat))
	if lon > 180 || lon < -180 {
		lon = math.Mod(lon+540, 360) - 180
	}
	return geo.Coordinate{Lat: lat, Lon: lon}
}
