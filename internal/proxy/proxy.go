// Package proxy exposes same-origin pass-through endpoints for the map and
// aviation providers so browser clients never hold provider credentials.
package proxy

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/regentroute/regentroute/internal/api/response"
	"github.com/regentroute/regentroute/internal/geo"
)

const (
	// MaxBodyBytes bounds request bodies accepted for forwarding.
	MaxBodyBytes = 64 << 10

	// MaxUpstreamBytes bounds the upstream body relayed to the caller.
	MaxUpstreamBytes = 4 << 20

	// DefaultAirportRadiusKm is the airport search radius when none is configured.
	DefaultAirportRadiusKm = 500

	// DefaultAirportLimit is the number of airports requested when the body omits it.
	DefaultAirportLimit = 5
)

// HTTPDoer is an interface for executing HTTP requests.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Authorizer attaches provider credentials to an outbound request.
type Authorizer interface {
	Authorize(ctx context.Context, req *http.Request) error
}

// AuthorizerFunc adapts a function to Authorizer.
type AuthorizerFunc func(ctx context.Context, req *http.Request) error

// Authorize calls f.
func (f AuthorizerFunc) Authorize(ctx context.Context, req *http.Request) error {
	return f(ctx, req)
}

// HeaderAuthorizer sets a fixed header on every request.
func HeaderAuthorizer(name, value string) Authorizer {
	return AuthorizerFunc(func(_ context.Context, req *http.Request) error {
		req.Header.Set(name, value)
		return nil
	})
}

// Upstream is a provider the proxy forwards to.
type Upstream struct {
	Name    string
	BaseURL string
	Client  HTTPDoer
	// Auth is optional.
	Auth Authorizer
}

// Config holds the proxy's upstreams. A nil upstream answers 503.
type Config struct {
	Directions   *Upstream
	Geocode      *Upstream
	Airports     *Upstream
	FlightOffers *Upstream

	// GeocodeCountry restricts geocode searches to an ISO country code (optional).
	GeocodeCountry  string
	AirportRadiusKm int

	Logger zerolog.Logger
}

// Handler serves the proxy endpoints.
type Handler struct {
	directions   *Upstream
	geocode      *Upstream
	airports     *Upstream
	flightOffers *Upstream

	geocodeCountry  string
	airportRadiusKm int
	logger          zerolog.Logger
}

// NewHandler creates a proxy handler.
func NewHandler(cfg Config) *Handler {
	radius := cfg.AirportRadiusKm
	if radius <= 0 {
		radius = DefaultAirportRadiusKm
	}
	return &Handler{
		directions:      cfg.Directions,
		geocode:         cfg.Geocode,
		airports:        cfg.Airports,
		flightOffers:    cfg.FlightOffers,
		geocodeCountry:  cfg.GeocodeCountry,
		airportRadiusKm: radius,
		logger:          cfg.Logger,
	}
}

// directionsProfiles maps the accepted mode values to routing profiles.
var directionsProfiles = map[string]string{
	"":            "driving-car",
	"car":         "driving-car",
	"driving":     "driving-car",
	"driving-car": "driving-car",
	"driving-hgv": "driving-hgv",
}

// Directions handles GET /v1/proxy/directions?origin=lat,lon&destination=lat,lon&mode=driving.
func (h *Handler) Directions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	origin, err := ParseLatLon(q.Get("origin"))
	if err != nil {
		response.BadRequest(w, r, "origin: "+err.Error(), nil)
		return
	}
	destination, err := ParseLatLon(q.Get("destination"))
	if err != nil {
		response.BadRequest(w, r, "destination: "+err.Error(), nil)
		return
	}
	profile, ok := directionsProfiles[strings.ToLower(q.Get("mode"))]
	if !ok {
		response.BadRequest(w, r, fmt.Sprintf("unsupported mode %q", q.Get("mode")), nil)
		return
	}

	params := url.Values{}
	params.Set("start", lonLat(origin))
	params.Set("end", lonLat(destination))
	h.forward(w, r, h.directions, http.MethodGet, "/v2/directions/"+profile+"?"+params.Encode(), nil)
}

// Geocode handles GET /v1/proxy/geocode?address=...
func (h *Handler) Geocode(w http.ResponseWriter, r *http.Request) {
	address := strings.TrimSpace(r.URL.Query().Get("address"))
	if address == "" {
		response.BadRequest(w, r, "address is required", nil)
		return
	}

	params := url.Values{}
	params.Set("text", address)
	params.Set("size", "1")
	if h.geocodeCountry != "" {
		params.Set("boundary.country", h.geocodeCountry)
	}
	h.forward(w, r, h.geocode, http.MethodGet, "/geocode/search?"+params.Encode(), nil)
}

// AirportsRequest is the body of POST /v1/proxy/airports.
type AirportsRequest struct {
	Lat   *float64 `json:"lat"`
	Lon   *float64 `json:"lon"`
	Limit int      `json:"limit,omitempty"`
}

// Airports handles POST /v1/proxy/airports.
func (h *Handler) Airports(w http.ResponseWriter, r *http.Request) {
	var req AirportsRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, MaxBodyBytes)).Decode(&req); err != nil {
		response.BadRequest(w, r, "invalid JSON body", nil)
		return
	}
	if req.Lat == nil || req.Lon == nil {
		response.BadRequest(w, r, "lat and lon are required", nil)
		return
	}
	point := geo.Coordinate{Lat: *req.Lat, Lon: *req.Lon}
	if err := point.Validate(); err != nil {
		response.BadRequest(w, r, err.Error(), nil)
		return
	}
	limit := req.Limit
	if limit <= 0 || limit > 20 {
		limit = DefaultAirportLimit
	}

	params := url.Values{}
	params.Set("lat", strconv.FormatFloat(point.Lat, 'f', 6, 64))
	params.Set("lon", strconv.FormatFloat(point.Lon, 'f', 6, 64))
	params.Set("radiusKm", strconv.Itoa(h.airportRadiusKm))
	params.Set("limit", strconv.Itoa(limit))
	params.Set("withFlightInfoOnly", "true")
	h.forward(w, r, h.airports, http.MethodGet, "/airports/search/location?"+params.Encode(), nil)
}

// FlightOffers handles POST /v1/proxy/flight-offers. The body is an offer
// search document and is forwarded unchanged.
func (h *Handler) FlightOffers(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, MaxBodyBytes+1))
	if err != nil {
		response.BadRequest(w, r, "unreadable body", nil)
		return
	}
	if len(body) > MaxBodyBytes {
		response.BadRequest(w, r, "body too large", nil)
		return
	}
	if !json.Valid(body) {
		response.BadRequest(w, r, "invalid JSON body", nil)
		return
	}
	h.forward(w, r, h.flightOffers, http.MethodPost, "/v2/shopping/flight-offers", body)
}

// forward sends one request upstream and relays its status and body.
// Transport failures and 5xx answers become 502 problems.
func (h *Handler) forward(w http.ResponseWriter, r *http.Request, up *Upstream, method, path string, body []byte) {
	if up == nil || up.Client == nil {
		response.ServiceUnavailable(w, r, "provider is not configured")
		return
	}
	logger := h.logger.With().Str("upstream", up.Name).Str("path", r.URL.Path).Logger()

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(r.Context(), method, strings.TrimRight(up.BaseURL, "/")+path, reader)
	if err != nil {
		logger.Error().Err(err).Msg("failed to build upstream request")
		response.InternalError(w, r, "failed to build upstream request")
		return
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if up.Auth != nil {
		if err := up.Auth.Authorize(r.Context(), req); err != nil {
			logger.Warn().Err(err).Msg("upstream authorization failed")
			response.BadGateway(w, r, "upstream authorization failed")
			return
		}
	}

	resp, err := up.Client.Do(req)
	if err != nil {
		logger.Warn().Err(err).Msg("upstream request failed")
		response.BadGateway(w, r, "upstream request failed")
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		logger.Warn().Int("status", resp.StatusCode).Msg("upstream returned server error")
		response.BadGateway(w, r, fmt.Sprintf("upstream returned %d", resp.StatusCode))
		return
	}

	payload, err := io.ReadAll(io.LimitReader(resp.Body, MaxUpstreamBytes+1))
	if err != nil {
		logger.Warn().Err(err).Msg("reading upstream body failed")
		response.BadGateway(w, r, "upstream body unreadable")
		return
	}
	if len(payload) > MaxUpstreamBytes {
		logger.Warn().Int("limit", MaxUpstreamBytes).Msg("upstream body too large")
		response.BadGateway(w, r, "upstream response too large")
		return
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/json"
	}
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(resp.StatusCode)
	_, _ = w.Write(payload)

	logger.Debug().Int("status", resp.StatusCode).Int("bytes", len(payload)).Msg("proxied")
}

// ParseLatLon parses a "lat,lon" pair.
func ParseLatLon(s string) (geo.Coordinate, error) {
	latStr, lonStr, ok := strings.Cut(strings.TrimSpace(s), ",")
	if !ok {
		return geo.Coordinate{}, fmt.Errorf("expected \"lat,lon\", got %q", s)
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(latStr), 64)
	if err != nil {
		return geo.Coordinate{}, fmt.Errorf("invalid latitude %q", latStr)
	}
	lon, err := strconv.ParseFloat(strings.TrimSpace(lonStr), 64)
	if err != nil {
		return geo.Coordinate{}, fmt.Errorf("invalid longitude %q", lonStr)
	}
	c := geo.Coordinate{Lat: lat, Lon: lon}
	if err := c.Validate(); err != nil {
		return geo.Coordinate{}, err
	}
	return c, nil
}

func lonLat(c geo.Coordinate) string {
	return strconv.FormatFloat(c.Lon, 'f', 6, 64) + "," + strconv.FormatFloat(c.Lat, 'f', 6, 64)
}
