// Package mapview turns per-mode paths into map overlays.
//
// A Scene owns an explicit overlay list. Clearing or redrawing replaces the
// list; nothing about the underlying map widget is recreated.
package mapview

import (
	"fmt"
	"math"
	"sync"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/regentroute/regentroute/internal/geo"
	"github.com/regentroute/regentroute/internal/trip"
	"github.com/regentroute/regentroute/pkg/polyline"
)

// Default overlay colours per mode.
const (
	ColorCar   = "#3b82f6"
	ColorFerry = "#10b981"
	ColorPlane = "#f59e0b"
)

// ColorFor returns the default colour for mode.
func ColorFor(mode trip.Mode) string {
	switch mode {
	case trip.ModeCar:
		return ColorCar
	case trip.ModeFerry:
		return ColorFerry
	case trip.ModePlane:
		return ColorPlane
	}
	return "#6b7280"
}

// Overlay is one drawable path.
type Overlay struct {
	Mode  trip.Mode        `json:"mode"`
	Color string           `json:"color"`
	Path  []geo.Coordinate `json:"path"`
	Label string           `json:"label"`
}

// LabelPosition is where the overlay's label marker is anchored.
func (o Overlay) LabelPosition() geo.Coordinate {
	pts := make([]polyline.Coordinate, len(o.Path))
	for i, c := range o.Path {
		pts[i] = polyline.Coordinate{Lat: c.Lat, Lon: c.Lon}
	}
	mid := polyline.Midpoint(pts)
	return geo.Coordinate{Lat: mid.Lat, Lon: mid.Lon}
}

// Bounds is a latitude/longitude bounding box.
type Bounds struct {
	SouthWest geo.Coordinate `json:"southWest"`
	NorthEast geo.Coordinate `json:"northEast"`
}

// Center returns the midpoint of the box.
func (b Bounds) Center() geo.Coordinate {
	return geo.Coordinate{
		Lat: (b.SouthWest.Lat + b.NorthEast.Lat) / 2,
		Lon: (b.SouthWest.Lon + b.NorthEast.Lon) / 2,
	}
}

// Scene is a concurrency-safe overlay list.
type Scene struct {
	mu       sync.RWMutex
	overlays []Overlay
}

// NewScene creates a scene holding overlays.
func NewScene(overlays ...Overlay) *Scene {
	s := &Scene{}
	s.Redraw(overlays)
	return s
}

// Clear removes every overlay.
func (s *Scene) Clear() {
	s.mu.Lock()
	s.overlays = nil
	s.mu.Unlock()
}

// Redraw replaces the scene's overlays. Overlays with fewer than two points are
// dropped and missing colours default per mode.
func (s *Scene) Redraw(overlays []Overlay) {
	next := make([]Overlay, 0, len(overlays))
	for _, o := range overlays {
		if len(o.Path) < 2 {
			continue
		}
		if o.Color == "" {
			o.Color = ColorFor(o.Mode)
		}
		o.Path = append([]geo.Coordinate(nil), o.Path...)
		next = append(next, o)
	}

	s.mu.Lock()
	s.overlays = next
	s.mu.Unlock()
}

// Overlays returns a copy of the current overlays.
func (s *Scene) Overlays() []Overlay {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Overlay, len(s.overlays))
	for i, o := range s.overlays {
		o.Path = append([]geo.Coordinate(nil), o.Path...)
		out[i] = o
	}
	return out
}

// Bounds returns the box enclosing every overlay. ok is false for an empty scene.
func (s *Scene) Bounds() (b Bounds, ok bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	minLat, minLon := math.Inf(1), math.Inf(1)
	maxLat, maxLon := math.Inf(-1), math.Inf(-1)
	for _, o := range s.overlays {
		for _, c := range o.Path {
			minLat = math.Min(minLat, c.Lat)
			maxLat = math.Max(maxLat, c.Lat)
			minLon = math.Min(minLon, c.Lon)
			maxLon = math.Max(maxLon, c.Lon)
		}
	}
	if math.IsInf(minLat, 1) {
		return Bounds{}, false
	}
	return Bounds{
		SouthWest: geo.Coordinate{Lat: minLat, Lon: minLon},
		NorthEast: geo.Coordinate{Lat: maxLat, Lon: maxLon},
	}, true
}

// FeatureCollection renders the scene as GeoJSON: one LineString per overlay
// followed by one label Point per overlay. The bbox is set unless the scene is
// empty.
func (s *Scene) FeatureCollection() *geojson.FeatureCollection {
	overlays := s.Overlays()

	fc := geojson.NewFeatureCollection()
	for _, o := range overlays {
		fc.Append(pathFeature(o))
	}
	for _, o := range overlays {
		fc.Append(labelFeature(o))
	}

	if b, ok := s.Bounds(); ok {
		fc.BBox = geojson.NewBBox(orb.Bound{
			Min: point(b.SouthWest),
			Max: point(b.NorthEast),
		})
	}
	return fc
}

// OverlaysFor builds one overlay per successful mode of c, in display order.
// Only mode and path are read.
func OverlaysFor(c *trip.Comparison) []Overlay {
	if c == nil {
		return nil
	}
	var overlays []Overlay
	for _, r := range c.Results {
		if !r.OK() {
			continue
		}
		overlays = append(overlays, overlayFor(r.Mode, r.Estimate.Path))
	}
	return overlays
}

// OverlaysForEstimates builds overlays from individual estimates, skipping nil ones.
func OverlaysForEstimates(estimates ...*trip.Estimate) []Overlay {
	var overlays []Overlay
	for _, e := range estimates {
		if e == nil {
			continue
		}
		overlays = append(overlays, overlayFor(e.Mode, e.Path))
	}
	return overlays
}

func overlayFor(mode trip.Mode, path []geo.Coordinate) Overlay {
	return Overlay{
		Mode:  mode,
		Color: ColorFor(mode),
		Path:  path,
		Label: label(mode),
	}
}

func label(mode trip.Mode) string {
	switch mode {
	case trip.ModeCar:
		return "Car"
	case trip.ModeFerry:
		return "Ferry"
	case trip.ModePlane:
		return "Plane"
	}
	return fmt.Sprint(mode)
}
