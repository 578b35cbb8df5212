// Package aerodatabox finds airports near a point with the AeroDataBox API,
// served through RapidAPI.
package aerodatabox

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/regentroute/regentroute/internal/aviation"
	"github.com/regentroute/regentroute/internal/geo"
	"github.com/regentroute/regentroute/internal/provider/resilience"
)

const (
	ProviderName    = "aerodatabox"
	DefaultBaseURL  = "https://aerodatabox.p.rapidapi.com"
	DefaultHost     = "aerodatabox.p.rapidapi.com"
	DefaultRadiusKm = 500
	DefaultTimeout  = 10 * time.Second

	defaultLimit = 3
)

// HTTPDoer is satisfied by *http.Client and *resilience.Client.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// ClientConfig configures a Client. APIKey is the RapidAPI key; Host is sent
// as X-RapidAPI-Host.
type ClientConfig struct {
	APIKey     string
	BaseURL    string
	Host       string
	RadiusKm   int
	HTTPClient HTTPDoer
	Timeout    time.Duration
	Registry   *resilience.Registry
	Logger     zerolog.Logger
}

// Client implements aviation.AirportFinder.
type Client struct {
	apiKey   string
	baseURL  string
	host     string
	radiusKm int
	http     HTTPDoer
	log      zerolog.Logger
}

var _ aviation.AirportFinder = (*Client)(nil)

func NewClient(cfg ClientConfig) *Client {
	c := &Client{
		apiKey:   cfg.APIKey,
		baseURL:  strings.TrimRight(cfg.BaseURL, "/"),
		host:     cfg.Host,
		radiusKm: cfg.RadiusKm,
		http:     cfg.HTTPClient,
		log:      cfg.Logger.With().Str("provider", ProviderName).Logger(),
	}
	if c.baseURL == "" {
		c.baseURL = DefaultBaseURL
	}
	if c.host == "" {
		c.host = DefaultHost
	}
	if c.radiusKm <= 0 {
		c.radiusKm = DefaultRadiusKm
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

// Authorize sets the RapidAPI credentials on an outbound request.
func (c *Client) Authorize(_ context.Context, req *http.Request) error {
	req.Header.Set("X-RapidAPI-Key", c.apiKey)
	req.Header.Set("X-RapidAPI-Host", c.host)
	return nil
}

type airportItem struct {
	ICAO             string `json:"icao"`
	IATA             string `json:"iata"`
	Name             string `json:"name"`
	ShortName        string `json:"shortName"`
	MunicipalityName string `json:"municipalityName"`
	CountryCode      string `json:"countryCode"`
	Location         struct {
		Lat float64 `json:"lat"`
		Lon float64 `json:"lon"`
	} `json:"location"`
}

func (it airportItem) airport() aviation.Airport {
	name := it.Name
	if name == "" {
		name = it.ShortName
	}
	return aviation.Airport{
		ICAO:     it.ICAO,
		IATA:     it.IATA,
		Name:     name,
		City:     it.MunicipalityName,
		Country:  it.CountryCode,
		Location: geo.Coordinate{Lat: it.Location.Lat, Lon: it.Location.Lon},
	}
}

// NearestAirports returns up to limit airports with scheduled flights within
// the configured radius, closest first. AeroDataBox answers 204 when nothing
// is in range, which maps to aviation.ErrNoAirport.
func (c *Client) NearestAirports(ctx context.Context, point geo.Coordinate, limit int) ([]aviation.Airport, error) {
	if err := point.Validate(); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = defaultLimit
	}

	q := url.Values{
		"lat":                {strconv.FormatFloat(point.Lat, 'f', 6, 64)},
		"lon":                {strconv.FormatFloat(point.Lon, 'f', 6, 64)},
		"radiusKm":           {strconv.Itoa(c.radiusKm)},
		"limit":              {strconv.Itoa(limit)},
		"withFlightInfoOnly": {"true"},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/airports/search/location?"+q.Encode(), http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("build airport search: %w", err)
	}
	_ = c.Authorize(ctx, req)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", aviation.ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNoContent:
		return nil, aviation.ErrNoAirport
	default:
		return nil, fmt.Errorf("%w: status %d", aviation.ErrProviderUnavailable, resp.StatusCode)
	}

	var body struct {
		Items []airportItem `json:"items"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode airports: %w", err)
	}
	if len(body.Items) == 0 {
		return nil, aviation.ErrNoAirport
	}

	airports := make([]aviation.Airport, len(body.Items))
	for i, it := range body.Items {
		airports[i] = it.airport()
	}
	c.log.Debug().Stringer("point", point).Int("airports", len(airports)).Msg("airport search answered")
	return aviation.SortByDistance(point, airports, limit), nil
}
