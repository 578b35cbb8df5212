package aerodatabox

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/regentroute/regentroute/internal/aviation"
	"github.com/regentroute/regentroute/internal/geo"
)

var sanFrancisco = geo.Coordinate{Lat: 37.7749, Lon: -122.4194}

const searchBody = `{
	"items": [
		{"icao": "KSJC", "iata": "SJC", "name": "San Jose Norman Y. Mineta", "municipalityName": "San Jose", "countryCode": "US", "location": {"lat": 37.3639, "lon": -121.9289}},
		{"icao": "KOAK", "iata": "OAK", "shortName": "Oakland", "municipalityName": "Oakland", "countryCode": "US", "location": {"lat": 37.7126, "lon": -122.2197}},
		{"icao": "KSFO", "iata": "SFO", "name": "San Francisco International", "municipalityName": "San Francisco", "countryCode": "US", "location": {"lat": 37.6213, "lon": -122.3790}}
	]
}`

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	return NewClient(ClientConfig{
		APIKey:     "rapid-key",
		BaseURL:    server.URL,
		HTTPClient: server.Client(),
		Logger:     zerolog.Nop(),
	})
}

func TestClient_NearestAirports(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/airports/search/location", r.URL.Path)
		assert.Equal(t, "rapid-key", r.Header.Get("X-RapidAPI-Key"))
		assert.Equal(t, DefaultHost, r.Header.Get("X-RapidAPI-Host"))
		assert.Equal(t, "37.774900", r.URL.Query().Get("lat"))
		assert.Equal(t, "-122.419400", r.URL.Query().Get("lon"))
		assert.Equal(t, "500", r.URL.Query().Get("radiusKm"))
		assert.Equal(t, "2", r.URL.Query().Get("limit"))

		_, _ = w.Write([]byte(searchBody))
	})

	airports, err := client.NearestAirports(context.Background(), sanFrancisco, 2)
	require.NoError(t, err)
	require.Len(t, airports, 2)

	assert.Equal(t, "SFO", airports[0].IATA)
	assert.Equal(t, "San Francisco International", airports[0].Name)
	assert.Equal(t, "OAK", airports[1].IATA)
	assert.Equal(t, "Oakland", airports[1].Name, "short name used when name is missing")
	assert.Greater(t, airports[0].DistanceMiles, 0.0)
}

func TestClient_NearestAirports_Errors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr error
	}{
		{name: "no content", status: http.StatusNoContent, wantErr: aviation.ErrNoAirport},
		{name: "empty items", status: http.StatusOK, body: `{"items":[]}`, wantErr: aviation.ErrNoAirport},
		{name: "quota exceeded", status: http.StatusTooManyRequests, body: `{"message":"quota"}`, wantErr: aviation.ErrProviderUnavailable},
		{name: "server error", status: http.StatusInternalServerError, wantErr: aviation.ErrProviderUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})

			_, err := client.NearestAirports(context.Background(), sanFrancisco, 3)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestClient_NearestAirports_InvalidPoint(t *testing.T) {
	client := newTestClient(t, func(http.ResponseWriter, *http.Request) {
		t.Fatal("provider must not be called")
	})

	_, err := client.NearestAirports(context.Background(), geo.Coordinate{Lat: -91}, 3)
	assert.ErrorIs(t, err, geo.ErrInvalidCoordinate)
}
