package openrouteservice

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/rs/zerolog"

	"github.com/regentroute/regentroute/internal/geo"
	"github.com/regentroute/regentroute/internal/routing"
)

var (
	sanFrancisco = geo.Coordinate{Lat: 37.7749, Lon: -122.4194}
	sanJose      = geo.Coordinate{Lat: 37.3382, Lon: -121.8863}
	southBay     = routing.DirectionsRequest{Origin: sanFrancisco, Destination: sanJose}
)

type doerFunc func(req *http.Request) (*http.Response, error)

func (f doerFunc) Do(req *http.Request) (*http.Response, error) { return f(req) }

func serve(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(ClientConfig{APIKey: "ors-key", BaseURL: srv.URL, HTTPClient: srv.Client(), Logger: zerolog.Nop()})
}

func offline(t *testing.T, do doerFunc) *Client {
	t.Helper()
	return NewClient(ClientConfig{APIKey: "ors-key", HTTPClient: do, Logger: zerolog.Nop()})
}

func fixture(t *testing.T, name string) []byte {
	t.Helper()
	b, err := os.ReadFile("testdata/" + name)
	if err != nil {
		t.Fatalf("fixture %s: %v", name, err)
	}
	return b
}

func TestGetDirections_DecodesRoute(t *testing.T) {
	body := fixture(t, "directions_response.json")
	c := serve(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/v2/directions/driving-car" {
			t.Errorf("request = %s %s", r.Method, r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "ors-key" {
			t.Errorf("Authorization = %q", got)
		}
		var req orsRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if o := req.Coordinates[0]; o[0] != sanFrancisco.Lon || o[1] != sanFrancisco.Lat {
			t.Errorf("origin sent as %v, want [lon lat]", o)
		}
		if !req.Instructions || !req.Geometry {
			t.Error("instructions and geometry must be requested")
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(body)
	})

	resp, err := c.GetDirections(context.Background(), southBay)
	if err != nil {
		t.Fatalf("GetDirections: %v", err)
	}
	if resp.Provider != ProviderName || len(resp.Routes) != 1 {
		t.Fatalf("provider %q with %d routes", resp.Provider, len(resp.Routes))
	}

	r := resp.Routes[0]
	switch {
	case r.DistanceMeters != 77912.4:
		t.Errorf("distance = %v", r.DistanceMeters)
	case r.DurationSeconds != 3012.7:
		t.Errorf("duration = %v", r.DurationSeconds)
	case r.GeometryPolyline == "":
		t.Error("geometry missing")
	case r.BoundingBox == nil || r.BoundingBox.MinLat != 37.3382:
		t.Errorf("bbox = %+v", r.BoundingBox)
	case len(r.Instructions) != 4:
		t.Errorf("%d instructions", len(r.Instructions))
	case r.Summary != "US 101":
		t.Errorf("summary = %q", r.Summary)
	}
}

func TestGetDirections_StatusMapping(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   error
		code   string
	}{
		{"2009 route not found", http.StatusBadRequest, string(fixture(t, "error_response.json")), routing.ErrNoRouteFound, "NO_ROUTE"},
		{"404 point not routable", http.StatusNotFound, `{"error":{"code":2010,"message":"Could not find point"}}`, routing.ErrNoRouteFound, "NO_ROUTE"},
		{"other 400", http.StatusBadRequest, `{"error":{"code":2003,"message":"Parameter 'coordinates' has incorrect value"}}`, routing.ErrInvalidCoordinates, "BAD_REQUEST"},
		{"429", http.StatusTooManyRequests, `{"error":{"code":403,"message":"Rate limit exceeded"}}`, routing.ErrRateLimitExceeded, "RATE_LIMIT"},
		{"401 with ORS body", http.StatusUnauthorized, `{"error":{"code":401,"message":"bad key"}}`, routing.ErrProviderUnavailable, "FORBIDDEN"},
		{"403 with plain message", http.StatusForbidden, `{"error":"Access to this API has been disallowed"}`, routing.ErrProviderUnavailable, "HTTP_403"},
		{"502", http.StatusBadGateway, `{"error":{"code":500,"message":"upstream"}}`, routing.ErrProviderUnavailable, "SERVER_502"},
		{"503 html page", http.StatusServiceUnavailable, `<html>down</html>`, routing.ErrProviderUnavailable, "HTTP_503"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := serve(t, func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})

			_, err := c.GetDirections(context.Background(), southBay)
			var re *routing.Error
			if !errors.As(err, &re) {
				t.Fatalf("err = %T %v, want *routing.Error", err, err)
			}
			if !errors.Is(err, tt.want) {
				t.Errorf("err wraps %v, want %v", re.Err, tt.want)
			}
			if re.Code != tt.code {
				t.Errorf("code = %s, want %s", re.Code, tt.code)
			}
		})
	}
}

func TestGetDirections_NoRoutesInBody(t *testing.T) {
	c := serve(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"routes":[]}`))
	})
	if _, err := c.GetDirections(context.Background(), southBay); !errors.Is(err, routing.ErrNoRouteFound) {
		t.Fatalf("err = %v, want ErrNoRouteFound", err)
	}
}

func TestGetDirections_RejectsInvalidPointsLocally(t *testing.T) {
	c := offline(t, func(*http.Request) (*http.Response, error) {
		t.Fatal("provider called with invalid coordinates")
		return nil, nil
	})

	for name, req := range map[string]routing.DirectionsRequest{
		"origin latitude":       {Origin: geo.Coordinate{Lat: 91, Lon: -122}, Destination: sanJose},
		"destination longitude": {Origin: sanFrancisco, Destination: geo.Coordinate{Lat: 37, Lon: -181}},
	} {
		t.Run(name, func(t *testing.T) {
			if _, err := c.GetDirections(context.Background(), req); !errors.Is(err, routing.ErrInvalidCoordinates) {
				t.Errorf("err = %v, want ErrInvalidCoordinates", err)
			}
		})
	}
}

func TestGetDirections_TransportErrorIsRetryable(t *testing.T) {
	c := offline(t, func(*http.Request) (*http.Response, error) {
		return nil, errors.New("connection reset by peer")
	})

	_, err := c.GetDirections(context.Background(), southBay)
	var re *routing.Error
	if !errors.As(err, &re) {
		t.Fatalf("err = %T, want *routing.Error", err)
	}
	if re.Code != "REQUEST_FAILED" || !re.IsRetryable() {
		t.Errorf("code %s retryable %v", re.Code, re.IsRetryable())
	}
}

func TestClient_Profiles(t *testing.T) {
	c := NewClient(ClientConfig{APIKey: "ors-key", Logger: zerolog.Nop()})
	if c.Name() != ProviderName {
		t.Errorf("Name = %s", c.Name())
	}
	if p := c.SupportedProfiles(); len(p) != 2 || p[0] != routing.ProfileDrivingCar {
		t.Errorf("profiles = %v", p)
	}
}

func TestMainRoad(t *testing.T) {
	steps := []routing.Instruction{
		{Name: "Market Street", DistanceMeters: 900},
		{Name: "-", DistanceMeters: 5000},
		{Name: "I-280", DistanceMeters: 800},
		{Name: "Market Street", DistanceMeters: 200},
		{Name: "I-280", DistanceMeters: 400},
	}
	if got := mainRoad(steps); got != "I-280" {
		t.Errorf("mainRoad = %q, want I-280", got)
	}
	if got := mainRoad(nil); got != "" {
		t.Errorf("mainRoad(nil) = %q", got)
	}
}
