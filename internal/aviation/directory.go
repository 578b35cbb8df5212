package aviation

import (
	"context"
	"sort"

	"github.com/regentroute/regentroute/internal/geo"
)

// StaticDirectoryName identifies the built-in airport directory.
const StaticDirectoryName = "static-directory"

// majorAirports are large US airports, enough to answer offline.
var majorAirports = []Airport{
	{ICAO: "KJFK", IATA: "JFK", Name: "John F Kennedy International Airport", City: "New York", Country: "US", Location: geo.Coordinate{Lat: 40.6413, Lon: -73.7781}},
	{ICAO: "KLGA", IATA: "LGA", Name: "LaGuardia Airport", City: "New York", Country: "US", Location: geo.Coordinate{Lat: 40.7769, Lon: -73.8740}},
	{ICAO: "KEWR", IATA: "EWR", Name: "Newark Liberty International Airport", City: "Newark", Country: "US", Location: geo.Coordinate{Lat: 40.6895, Lon: -74.1745}},
	{ICAO: "KBOS", IATA: "BOS", Name: "Logan International Airport", City: "Boston", Country: "US", Location: geo.Coordinate{Lat: 42.3656, Lon: -71.0096}},
	{ICAO: "KPHL", IATA: "PHL", Name: "Philadelphia International Airport", City: "Philadelphia", Country: "US", Location: geo.Coordinate{Lat: 39.8744, Lon: -75.2424}},
	{ICAO: "KPIT", IATA: "PIT", Name: "Pittsburgh International Airport", City: "Pittsburgh", Country: "US", Location: geo.Coordinate{Lat: 40.4915, Lon: -80.2329}},
	{ICAO: "KDCA", IATA: "DCA", Name: "Ronald Reagan Washington National Airport", City: "Washington", Country: "US", Location: geo.Coordinate{Lat: 38.8512, Lon: -77.0402}},
	{ICAO: "KIAD", IATA: "IAD", Name: "Washington Dulles International Airport", City: "Washington", Country: "US", Location: geo.Coordinate{Lat: 38.9531, Lon: -77.4565}},
	{ICAO: "KCLT", IATA: "CLT", Name: "Charlotte Douglas International Airport", City: "Charlotte", Country: "US", Location: geo.Coordinate{Lat: 35.2144, Lon: -80.9473}},
	{ICAO: "KATL", IATA: "ATL", Name: "Hartsfield-Jackson Atlanta International Airport", City: "Atlanta", Country: "US", Location: geo.Coordinate{Lat: 33.6407, Lon: -84.4277}},
	{ICAO: "KJAX", IATA: "JAX", Name: "Jacksonville International Airport", City: "Jacksonville", Country: "US", Location: geo.Coordinate{Lat: 30.4941, Lon: -81.6879}},
	{ICAO: "KMIA", IATA: "MIA", Name: "Miami International Airport", City: "Miami", Country: "US", Location: geo.Coordinate{Lat: 25.7959, Lon: -80.2870}},
	{ICAO: "KCLE", IATA: "CLE", Name: "Cleveland Hopkins International Airport", City: "Cleveland", Country: "US", Location: geo.Coordinate{Lat: 41.4058, Lon: -81.8539}},
	{ICAO: "KCMH", IATA: "CMH", Name: "John Glenn Columbus International Airport", City: "Columbus", Country: "US", Location: geo.Coordinate{Lat: 39.9980, Lon: -82.8919}},
	{ICAO: "KDTW", IATA: "DTW", Name: "Detroit Metropolitan Wayne County Airport", City: "Detroit", Country: "US", Location: geo.Coordinate{Lat: 42.2162, Lon: -83.3554}},
	{ICAO: "KIND", IATA: "IND", Name: "Indianapolis International Airport", City: "Indianapolis", Country: "US", Location: geo.Coordinate{Lat: 39.7173, Lon: -86.2944}},
	{ICAO: "KORD", IATA: "ORD", Name: "O'Hare International Airport", City: "Chicago", Country: "US", Location: geo.Coordinate{Lat: 41.9742, Lon: -87.9073}},
	{ICAO: "KMDW", IATA: "MDW", Name: "Chicago Midway International Airport", City: "Chicago", Country: "US", Location: geo.Coordinate{Lat: 41.7868, Lon: -87.7522}},
	{ICAO: "KMSP", IATA: "MSP", Name: "Minneapolis-Saint Paul International Airport", City: "Minneapolis", Country: "US", Location: geo.Coordinate{Lat: 44.8848, Lon: -93.2223}},
	{ICAO: "KDFW", IATA: "DFW", Name: "Dallas/Fort Worth International Airport", City: "Dallas", Country: "US", Location: geo.Coordinate{Lat: 32.8998, Lon: -97.0403}},
	{ICAO: "KIAH", IATA: "IAH", Name: "George Bush Intercontinental Airport", City: "Houston", Country: "US", Location: geo.Coordinate{Lat: 29.9902, Lon: -95.3368}},
	{ICAO: "KAUS", IATA: "AUS", Name: "Austin-Bergstrom International Airport", City: "Austin", Country: "US", Location: geo.Coordinate{Lat: 30.1975, Lon: -97.6664}},
	{ICAO: "KSAT", IATA: "SAT", Name: "San Antonio International Airport", City: "San Antonio", Country: "US", Location: geo.Coordinate{Lat: 29.5337, Lon: -98.4698}},
	{ICAO: "KDEN", IATA: "DEN", Name: "Denver International Airport", City: "Denver", Country: "US", Location: geo.Coordinate{Lat: 39.8561, Lon: -104.6737}},
	{ICAO: "KPHX", IATA: "PHX", Name: "Phoenix Sky Harbor International Airport", City: "Phoenix", Country: "US", Location: geo.Coordinate{Lat: 33.4352, Lon: -112.0101}},
	{ICAO: "KLAX", IATA: "LAX", Name: "Los Angeles International Airport", City: "Los Angeles", Country: "US", Location: geo.Coordinate{Lat: 33.9416, Lon: -118.4085}},
	{ICAO: "KSAN", IATA: "SAN", Name: "San Diego International Airport", City: "San Diego", Country: "US", Location: geo.Coordinate{Lat: 32.7338, Lon: -117.1933}},
	{ICAO: "KSFO", IATA: "SFO", Name: "San Francisco International Airport", City: "San Francisco", Country: "US", Location: geo.Coordinate{Lat: 37.6213, Lon: -122.3790}},
	{ICAO: "KOAK", IATA: "OAK", Name: "Oakland International Airport", City: "Oakland", Country: "US", Location: geo.Coordinate{Lat: 37.7126, Lon: -122.2197}},
	{ICAO: "KSJC", IATA: "SJC", Name: "Norman Y. Mineta San Jose International Airport", City: "San Jose", Country: "US", Location: geo.Coordinate{Lat: 37.3639, Lon: -121.9289}},
	{ICAO: "KSEA", IATA: "SEA", Name: "Seattle-Tacoma International Airport", City: "Seattle", Country: "US", Location: geo.Coordinate{Lat: 47.4502, Lon: -122.3088}},
	{ICAO: "PANC", IATA: "ANC", Name: "Ted Stevens Anchorage International Airport", City: "Anchorage", Country: "US", Location: geo.Coordinate{Lat: 61.1743, Lon: -149.9963}},
	{ICAO: "PHNL", IATA: "HNL", Name: "Daniel K. Inouye International Airport", City: "Honolulu", Country: "US", Location: geo.Coordinate{Lat: 21.3187, Lon: -157.9225}},
}

// StaticDirectory answers airport lookups from a fixed list.
type StaticDirectory struct {
	airports []Airport
}

var _ AirportFinder = (*StaticDirectory)(nil)

// NewStaticDirectory creates a directory over airports, or the built-in list when none are given.
func NewStaticDirectory(airports ...Airport) *StaticDirectory {
	if len(airports) == 0 {
		airports = majorAirports
	}
	return &StaticDirectory{airports: airports}
}

// Name returns the finder name.
func (d *StaticDirectory) Name() string {
	return StaticDirectoryName
}

// NearestAirports returns the closest airports to point.
func (d *StaticDirectory) NearestAirports(_ context.Context, point geo.Coordinate, limit int) ([]Airport, error) {
	if err := point.Validate(); err != nil {
		return nil, err
	}

	out := make([]Airport, len(d.airports))
	copy(out, d.airports)
	return SortByDistance(point, out, limit), nil
}

// SortByDistance fills DistanceMiles from point, sorts by it and truncates to limit.
func SortByDistance(point geo.Coordinate, airports []Airport, limit int) []Airport {
	for i := range airports {
		airports[i].DistanceMiles = geo.GreatCircleMiles(point, airports[i].Location)
	}
	sort.SliceStable(airports, func(i, j int) bool {
		return airports[i].DistanceMiles < airports[j].DistanceMiles
	})
	if limit > 0 && len(airports) > limit {
		airports = airports[:limit]
	}
	return airports
}
