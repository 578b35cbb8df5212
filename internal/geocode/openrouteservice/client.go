// Package openrouteservice resolves addresses with the OpenRouteService
// (Pelias) search API.
package openrouteservice

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/regentroute/regentroute/internal/geo"
	"github.com/regentroute/regentroute/internal/geocode"
	"github.com/regentroute/regentroute/internal/provider/resilience"
)

const (
	ProviderName   = "openrouteservice-geocode"
	DefaultBaseURL = "https://api.openrouteservice.org"
	DefaultTimeout = 8 * time.Second
)

// HTTPDoer is satisfied by *http.Client and *resilience.Client.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// ClientConfig configures a Client. Country, when set, is an ISO 3166 code
// that bounds the search.
type ClientConfig struct {
	APIKey     string
	BaseURL    string
	Country    string
	HTTPClient HTTPDoer
	Timeout    time.Duration
	Registry   *resilience.Registry
	Logger     zerolog.Logger
}

// Client implements geocode.Geocoder against /geocode/search.
type Client struct {
	apiKey  string
	baseURL string
	country string
	http    HTTPDoer
	log     zerolog.Logger
}

var _ geocode.Geocoder = (*Client)(nil)

func NewClient(cfg ClientConfig) *Client {
	c := &Client{
		apiKey:  cfg.APIKey,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		country: cfg.Country,
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

// Pelias answers with a GeoJSON FeatureCollection; only the first feature is read.
type searchResponse struct {
	Features []struct {
		Geometry struct {
			Coordinates []float64 `json:"coordinates"`
		} `json:"geometry"`
		Properties struct {
			Label      string  `json:"label"`
			Confidence float64 `json:"confidence"`
		} `json:"properties"`
	} `json:"features"`
}

// Geocode returns the best match for address. Every error is a
// *geocode.Error; an empty or unusable answer also wraps
// geocode.ErrGeocodeFailure, while transport and status errors do not.
func (c *Client) Geocode(ctx context.Context, address string) (*geocode.Result, error) {
	fail := func(err error) error {
		return &geocode.Error{Address: address, Provider: ProviderName, Err: err}
	}

	q := url.Values{"text": {address}, "size": {"1"}}
	if c.country != "" {
		q.Set("boundary.country", c.country)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/geocode/search?"+q.Encode(), http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("build geocode request: %w", err)
	}
	req.Header.Set("Authorization", c.apiKey)
	req.Header.Set("Accept", "application/geo+json, application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fail(fmt.Errorf("request failed: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.log.Debug().Int("status", resp.StatusCode).Str("address", address).Msg("geocode search rejected")
		return nil, fail(fmt.Errorf("unexpected status %d", resp.StatusCode))
	}

	var sr searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		return nil, fail(fmt.Errorf("decode response: %w", err))
	}
	if len(sr.Features) == 0 {
		return nil, fail(geocode.ErrGeocodeFailure)
	}

	best := sr.Features[0]
	lonLat := best.Geometry.Coordinates
	if len(lonLat) != 2 {
		return nil, fail(fmt.Errorf("%w: expected [lon, lat], got %d values", geocode.ErrGeocodeFailure, len(lonLat)))
	}
	point := geo.Coordinate{Lat: lonLat[1], Lon: lonLat[0]}
	if err := point.Validate(); err != nil {
		return nil, fail(errors.Join(geocode.ErrGeocodeFailure, err))
	}

	c.log.Debug().
		Str("address", address).
		Stringer("point", point).
		Float64("confidence", best.Properties.Confidence).
		Msg("address resolved")

	return &geocode.Result{
		Address:    address,
		Coordinate: point,
		Label:      best.Properties.Label,
		Provider:   ProviderName,
	}, nil
}
