package geocode

import (
	"context"
	"sort"
	"strings"
	"unicode"

	"github.com/regentroute/regentroute/internal/geo"
)

// GazetteerName identifies the built-in gazetteer.
const GazetteerName = "gazetteer"

// minPartialMatch is the shortest abbreviation matched against the start of a
// place name.
const minPartialMatch = 4

// Place is a named point in the gazetteer.
type Place struct {
	Name       string
	Coordinate geo.Coordinate
}

// defaultPlaces are major US cities, keyed by lower-case name.
var defaultPlaces = []Place{
	{"new york", geo.Coordinate{Lat: 40.7128, Lon: -74.0060}},
	{"los angeles", geo.Coordinate{Lat: 34.0522, Lon: -118.2437}},
	{"chicago", geo.Coordinate{Lat: 41.8781, Lon: -87.6298}},
	{"houston", geo.Coordinate{Lat: 29.7604, Lon: -95.3698}},
	{"phoenix", geo.Coordinate{Lat: 33.4484, Lon: -112.0740}},
	{"philadelphia", geo.Coordinate{Lat: 39.9526, Lon: -75.1652}},
	{"san antonio", geo.Coordinate{Lat: 29.4241, Lon: -98.4936}},
	{"san diego", geo.Coordinate{Lat: 32.7157, Lon: -117.1611}},
	{"dallas", geo.Coordinate{Lat: 32.7767, Lon: -96.7970}},
	{"san jose", geo.Coordinate{Lat: 37.3382, Lon: -121.8863}},
	{"austin", geo.Coordinate{Lat: 30.2672, Lon: -97.7431}},
	{"jacksonville", geo.Coordinate{Lat: 30.3322, Lon: -81.6557}},
	{"fort worth", geo.Coordinate{Lat: 32.7555, Lon: -97.3308}},
	{"columbus", geo.Coordinate{Lat: 39.9612, Lon: -82.9988}},
	{"charlotte", geo.Coordinate{Lat: 35.2271, Lon: -80.8431}},
	{"san francisco", geo.Coordinate{Lat: 37.7749, Lon: -122.4194}},
	{"indianapolis", geo.Coordinate{Lat: 39.7684, Lon: -86.1581}},
	{"seattle", geo.Coordinate{Lat: 47.6062, Lon: -122.3321}},
	{"denver", geo.Coordinate{Lat: 39.7392, Lon: -104.9903}},
	{"washington", geo.Coordinate{Lat: 38.9072, Lon: -77.0369}},
	{"boston", geo.Coordinate{Lat: 42.3601, Lon: -71.0589}},
	{"miami", geo.Coordinate{Lat: 25.7617, Lon: -80.1918}},
	{"atlanta", geo.Coordinate{Lat: 33.7490, Lon: -84.3880}},
	{"detroit", geo.Coordinate{Lat: 42.3314, Lon: -83.0458}},
	{"minneapolis", geo.Coordinate{Lat: 44.9778, Lon: -93.2650}},
	{"cleveland", geo.Coordinate{Lat: 41.4993, Lon: -81.6944}},
	{"pittsburgh", geo.Coordinate{Lat: 40.4406, Lon: -79.9959}},
	{"anchorage", geo.Coordinate{Lat: 61.2181, Lon: -149.9003}},
	{"honolulu", geo.Coordinate{Lat: 21.3099, Lon: -157.8581}},
}

// Gazetteer resolves addresses against a fixed table of places.
// Every result it returns is flagged as a fallback. Unknown addresses fail
// with ErrGeocodeFailure; there is no default location.
type Gazetteer struct {
	places []Place
}

var _ Geocoder = (*Gazetteer)(nil)

// NewGazetteer creates a gazetteer over places, or the built-in US city table when places is empty.
func NewGazetteer(places ...Place) *Gazetteer {
	if len(places) == 0 {
		places = defaultPlaces
	}

	sorted := make([]Place, len(places))
	for i, p := range places {
		sorted[i] = Place{Name: words(p.Name), Coordinate: p.Coordinate}
	}
	// Longest names first so "san jose" wins over "jose".
	sort.SliceStable(sorted, func(i, j int) bool {
		return len(sorted[i].Name) > len(sorted[j].Name)
	})

	return &Gazetteer{places: sorted}
}

// Name returns the geocoder name.
func (g *Gazetteer) Name() string {
	return GazetteerName
}

// Places returns the gazetteer entries.
func (g *Gazetteer) Places() []Place {
	out := make([]Place, len(g.places))
	copy(out, g.places)
	return out
}

// Geocode matches the address against place names.
// A place matches when its name appears in the address as whole words, or when
// the first comma-separated part of the address (at least four characters)
// abbreviates exactly one place name from its start.
func (g *Gazetteer) Geocode(_ context.Context, address string) (*Result, error) {
	normalized := cacheKey(address)
	if normalized == "" {
		return nil, &Error{Address: address, Provider: GazetteerName, Err: ErrGeocodeFailure}
	}

	padded := " " + words(normalized) + " "
	for _, p := range g.places {
		if strings.Contains(padded, " "+p.Name+" ") {
			return g.result(address, p), nil
		}
	}

	head := words(strings.SplitN(normalized, ",", 2)[0])
	if len(head) >= minPartialMatch {
		var match *Place
		for i, p := range g.places {
			if !strings.HasPrefix(p.Name, head) {
				continue
			}
			if match != nil {
				match = nil
				break
			}
			match = &g.places[i]
		}
		if match != nil {
			return g.result(address, *match), nil
		}
	}

	return nil, &Error{Address: address, Provider: GazetteerName, Err: ErrGeocodeFailure}
}

// words lowercases s and collapses every run of non-alphanumerics to one space.
func words(s string) string {
	return strings.Join(strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	}), " ")
}

func (g *Gazetteer) result(address string, p Place) *Result {
	return &Result{
		Address:    address,
		Coordinate: p.Coordinate,
		Label:      titleCase(p.Name),
		Provider:   GazetteerName,
		Fallback:   true,
	}
}

func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
