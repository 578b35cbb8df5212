// Package polyline reads and writes the encoded polyline format used by
// Google Maps and OpenRouteService, and finds where to anchor a label on a
// decoded route.
//
// Format reference: https://developers.google.com/maps/documentation/utilities/polylinealgorithm
package polyline

import (
	"errors"
	"math"
)

// DefaultPrecision is the five decimal places used by Google and OpenRouteService.
// OSRM and Valhalla use six.
const DefaultPrecision = 5

// ErrMalformed reports input that stops mid-value, leaves a latitude without
// its longitude, or contains a byte outside the format's alphabet.
var ErrMalformed = errors.New("polyline: malformed input")

type Coordinate struct {
	Lat float64
	Lon float64
}

// DecodePrecision decodes a polyline written with the given number of decimal
// places. An empty string decodes to nil.
func DecodePrecision(encoded string, precision int) ([]Coordinate, error) {
	scale := math.Pow10(precision)
	d := decoder{s: encoded}

	var (
		out      []Coordinate
		lat, lon int
	)
	for !d.done() {
		dLat, ok := d.next()
		if !ok || d.done() {
			return nil, ErrMalformed
		}
		dLon, ok := d.next()
		if !ok {
			return nil, ErrMalformed
		}
		lat += dLat
		lon += dLon
		out = append(out, Coordinate{Lat: float64(lat) / scale, Lon: float64(lon) / scale})
	}
	return out, nil
}

type decoder struct {
	s   string
	pos int
}

func (d *decoder) done() bool { return d.pos >= len(d.s) }

// next reads one zig-zag varint made of 5-bit chunks offset by 63.
func (d *decoder) next() (int, bool) {
	var v, shift int
	for !d.done() {
		chunk := int(d.s[d.pos]) - 63
		d.pos++
		if chunk < 0 || chunk > 63 {
			return 0, false
		}
		v |= (chunk & 0x1f) << shift
		shift += 5
		if chunk < 0x20 {
			if v&1 == 1 {
				return ^(v >> 1), true
			}
			return v >> 1, true
		}
	}
	return 0, false
}

// Encode writes coordinates at DefaultPrecision.
func Encode(coords []Coordinate) string {
	return EncodePrecision(coords, DefaultPrecision)
}

func EncodePrecision(coords []Coordinate, precision int) string {
	scale := math.Pow10(precision)
	buf := make([]byte, 0, len(coords)*8)

	var prevLat, prevLon int
	for _, c := range coords {
		lat, lon := int(math.Round(c.Lat*scale)), int(math.Round(c.Lon*scale))
		buf = appendValue(buf, lat-prevLat)
		buf = appendValue(buf, lon-prevLon)
		prevLat, prevLon = lat, lon
	}
	return string(buf)
}

func appendValue(buf []byte, v int) []byte {
	u := v << 1
	if v < 0 {
		u = ^u
	}
	for ; u >= 0x20; u >>= 5 {
		buf = append(buf, byte(0x20|u&0x1f)+63)
	}
	return append(buf, byte(u)+63)
}

// Length is the great-circle length of the path in meters.
func Length(coords []Coordinate) float64 {
	var total float64
	for i := 1; i < len(coords); i++ {
		total += distance(coords[i-1], coords[i])
	}
	return total
}

// Midpoint is the point halfway along the path by distance, interpolated
// linearly inside the segment that crosses the half-way mark.
func Midpoint(coords []Coordinate) Coordinate {
	if len(coords) == 0 {
		return Coordinate{}
	}
	half := Length(coords) / 2
	if half == 0 {
		return coords[0]
	}

	var walked float64
	for i := 1; i < len(coords); i++ {
		a, b := coords[i-1], coords[i]
		seg := distance(a, b)
		if seg > 0 && walked+seg >= half {
			f := (half - walked) / seg
			return Coordinate{Lat: a.Lat + f*(b.Lat-a.Lat), Lon: a.Lon + f*(b.Lon-a.Lon)}
		}
		walked += seg
	}
	return coords[len(coords)-1]
}

const earthRadiusMeters = 6371000

func distance(a, b Coordinate) float64 {
	rad := math.Pi / 180
	sinLat := math.Sin((b.Lat - a.Lat) * rad / 2)
	sinLon := math.Sin((b.Lon - a.Lon) * rad / 2)
	h := sinLat*sinLat + math.Cos(a.Lat*rad)*math.Cos(b.Lat*rad)*sinLon*sinLon
	return 2 * earthRadiusMeters * math.Asin(math.Sqrt(h))
}
