package mapview

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/regentroute/regentroute/internal/geo"
)

// Feature property values for the "kind" key.
const (
	KindPath  = "path"
	KindLabel = "label"
)

func point(c geo.Coordinate) orb.Point {
	return orb.Point{c.Lon, c.Lat}
}

func lineString(path []geo.Coordinate) orb.LineString {
	ls := make(orb.LineString, 0, len(path))
	for _, c := range path {
		ls = append(ls, point(c))
	}
	return ls
}

func pathFeature(o Overlay) *geojson.Feature {
	f := geojson.NewFeature(lineString(o.Path))
	f.Properties["kind"] = KindPath
	f.Properties["mode"] = string(o.Mode)
	f.Properties["color"] = o.Color
	return f
}

func labelFeature(o Overlay) *geojson.Feature {
	f := geojson.NewFeature(point(o.LabelPosition()))
	f.Properties["kind"] = KindLabel
	f.Properties["mode"] = string(o.Mode)
	f.Properties["color"] = o.Color
	f.Properties["label"] = o.Label
	return f
}
