// Package openrouteservice fetches driving directions from the
// OpenRouteService v2 directions API.
package openrouteservice

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/regentroute/regentroute/internal/provider/resilience"
	"github.com/regentroute/regentroute/internal/routing"
)

const (
	ProviderName   = "openrouteservice"
	DefaultBaseURL = "https://api.openrouteservice.org"
	DefaultTimeout = 10 * time.Second

	// maxErrorBody bounds how much of a failed response is read for its
	// error message.
	maxErrorBody = 64 << 10
)

// HTTPDoer is satisfied by *http.Client and *resilience.Client.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// ClientConfig configures a Client. Only APIKey is required; without an
// HTTPClient a resilience client is built and registered in Registry.
type ClientConfig struct {
	APIKey     string
	BaseURL    string
	HTTPClient HTTPDoer
	Timeout    time.Duration
	Registry   *resilience.Registry
	Logger     zerolog.Logger
}

// Client implements routing.Provider against OpenRouteService.
type Client struct {
	apiKey  string
	baseURL string
	http    HTTPDoer
	log     zerolog.Logger
}

var _ routing.Provider = (*Client)(nil)

func NewClient(cfg ClientConfig) *Client {
	c := &Client{
		apiKey:  cfg.APIKey,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		http:    cfg.HTTPClient,
		log:     cfg.Logger.With().Str("provider", ProviderName).Logger(),
	}
	if c.baseURL == "" {
		c.baseURL = DefaultBaseURL
	}
	if c.http == nil {
		rc := resilience.DefaultClientConfig(ProviderName)
		rc.Timeout = DefaultTimeout
		if cfg.Timeout > 0 {
			rc.Timeout = cfg.Timeout
		}
		rc.Registry = cfg.Registry
		rc.Logger = cfg.Logger
		c.http = resilience.NewClient(rc)
	}
	return c
}

func (c *Client) Name() string { return ProviderName }

// SupportedProfiles lists the ORS driving profiles this client requests.
func (c *Client) SupportedProfiles() []routing.RouteProfile {
	return []routing.RouteProfile{routing.ProfileDrivingCar, routing.ProfileDrivingHGV}
}

func fail(code, message string, err error) *routing.Error {
	return &routing.Error{Provider: ProviderName, Code: code, Message: message, Err: err}
}

// GetDirections requests a single route with geometry and steps. Invalid
// coordinates are rejected before any network call.
func (c *Client) GetDirections(ctx context.Context, req routing.DirectionsRequest) (*routing.DirectionsResponse, error) {
	if req.Origin.Validate() != nil {
		return nil, fail("INVALID_ORIGIN", "invalid origin coordinates", routing.ErrInvalidCoordinates)
	}
	if req.Destination.Validate() != nil {
		return nil, fail("INVALID_DESTINATION", "invalid destination coordinates", routing.ErrInvalidCoordinates)
	}
	profile := req.Profile
	if profile == "" {
		profile = routing.ProfileDrivingCar
	}

	body, err := json.Marshal(orsRequest{
		Coordinates: [][]float64{
			{req.Origin.Lon, req.Origin.Lat},
			{req.Destination.Lon, req.Destination.Lat},
		},
		Instructions: true,
		Geometry:     true,
		Units:        "m",
		Language:     "en",
	})
	if err != nil {
		return nil, fmt.Errorf("encode directions request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v2/directions/"+string(profile), bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build directions request: %w", err)
	}
	httpReq.Header.Set("Authorization", c.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json, application/geo+json")

	start := time.Now()
	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, fail("REQUEST_FAILED", "failed to reach routing provider", fmt.Errorf("%w: %w", routing.ErrProviderUnavailable, err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, statusError(resp.StatusCode, raw)
	}

	var decoded orsResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fail("DECODE", "unreadable directions response", fmt.Errorf("%w: %w", routing.ErrProviderUnavailable, err))
	}
	if len(decoded.Routes) == 0 {
		return nil, fail("NO_ROUTE", "provider returned no routes", routing.ErrNoRouteFound)
	}

	out := toDirectionsResponse(&decoded)
	c.log.Debug().
		Str("profile", string(profile)).
		Float64("distance_m", out.Routes[0].DistanceMeters).
		Dur("latency", time.Since(start)).
		Msg("directions received")
	return out, nil
}

// statusError maps a non-200 reply. Bodies that are not ORS error objects
// are reported by status alone.
func statusError(status int, raw []byte) error {
	var body orsErrorResponse
	if json.Unmarshal(raw, &body) != nil {
		return fail(fmt.Sprintf("HTTP_%d", status), fmt.Sprintf("routing provider returned status %d", status), routing.ErrProviderUnavailable)
	}
	msg := body.Error.Message

	switch {
	case status == http.StatusTooManyRequests:
		return fail("RATE_LIMIT", "API rate limit exceeded, please try again later", routing.ErrRateLimitExceeded)
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return fail("FORBIDDEN", "API access denied, check the API key", routing.ErrProviderUnavailable)
	case status == http.StatusNotFound:
		return fail("NO_ROUTE", "no route found between the given points", routing.ErrNoRouteFound)
	case status == http.StatusBadRequest && isNoRouteCode(body.Error.Code):
		return fail("NO_ROUTE", msg, routing.ErrNoRouteFound)
	case status == http.StatusBadRequest:
		return fail("BAD_REQUEST", msg, routing.ErrInvalidCoordinates)
	case status >= 500:
		return fail(fmt.Sprintf("SERVER_%d", status), "routing provider is temporarily unavailable", routing.ErrProviderUnavailable)
	default:
		return fail(fmt.Sprintf("HTTP_%d", status), msg, routing.ErrProviderUnavailable)
	}
}

func isNoRouteCode(code int) bool {
	return code == orsErrorCodeNotFound || code == orsErrorCodePointNotFound
}

func toDirectionsResponse(resp *orsResponse) *routing.DirectionsResponse {
	out := &routing.DirectionsResponse{
		Routes:    make([]routing.Route, 0, len(resp.Routes)),
		Provider:  ProviderName,
		FetchedAt: time.Now(),
	}
	for _, r := range resp.Routes {
		route := routing.Route{
			GeometryPolyline: r.Geometry,
			DistanceMeters:   r.Summary.Distance,
			DurationSeconds:  r.Summary.Duration,
		}
		if len(r.BBox) >= 4 {
			route.BoundingBox = &routing.BoundingBox{MinLon: r.BBox[0], MinLat: r.BBox[1], MaxLon: r.BBox[2], MaxLat: r.BBox[3]}
		}
		for _, seg := range r.Segments {
			for _, s := range seg.Steps {
				route.Instructions = append(route.Instructions, routing.Instruction{
					Text:           s.Instruction,
					Name:           s.Name,
					DistanceMeters: s.Distance,
					DurationSecs:   s.Duration,
					Type:           s.Type,
				})
			}
		}
		route.Summary = mainRoad(route.Instructions)
		out.Routes = append(out.Routes, route)
	}
	return out
}

// mainRoad names the road with the most total distance; unnamed steps
// ("" or "-") are skipped.
func mainRoad(steps []routing.Instruction) string {
	total := make(map[string]float64)
	best := ""
	for _, s := range steps {
		if s.Name == "" || s.Name == "-" {
			continue
		}
		total[s.Name] += s.DistanceMeters
		if total[s.Name] > total[best] {
			best = s.Name
		}
	}
	return best
}
