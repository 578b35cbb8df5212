// Package amadeus searches flight offers with the Amadeus self-service API.
package amadeus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/regentroute/regentroute/internal/aviation"
	"github.com/regentroute/regentroute/internal/provider/resilience"
)

const (
	ProviderName   = "amadeus"
	DefaultBaseURL = "https://test.api.amadeus.com"
	DefaultTimeout = 15 * time.Second

	// EURToUSD converts EUR-priced offers. Other non-USD currencies are dropped.
	EURToUSD = 1.08
)

// HTTPDoer is satisfied by *http.Client and *resilience.Client.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

type ClientConfig struct {
	ClientID     string
	ClientSecret string
	BaseURL      string
	HTTPClient   HTTPDoer
	Timeout      time.Duration
	Registry     *resilience.Registry
	Logger       zerolog.Logger
}

// Client implements aviation.OfferSource. It holds one OAuth2
// client-credentials token and fetches a new one when it expires or the
// API rejects it.
type Client struct {
	baseURL string
	http    HTTPDoer
	oauth   clientcredentials.Config
	log     zerolog.Logger

	mu    sync.Mutex
	token *oauth2.Token
}

var _ aviation.OfferSource = (*Client)(nil)

func NewClient(cfg ClientConfig) *Client {
	c := &Client{
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
	c.oauth = clientcredentials.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		TokenURL:     c.baseURL + "/v1/security/oauth2/token",
		AuthStyle:    oauth2.AuthStyleInParams,
	}
	return c
}

func (c *Client) Name() string { return ProviderName }

// doerTransport lets the oauth2 package send token requests through the
// same resilient client as API calls.
type doerTransport struct{ HTTPDoer }

func (t doerTransport) RoundTrip(req *http.Request) (*http.Response, error) { return t.Do(req) }

func (c *Client) accessToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.token.Valid() {
		return c.token.AccessToken, nil
	}

	ctx = context.WithValue(ctx, oauth2.HTTPClient, &http.Client{Transport: doerTransport{c.http}})
	tok, err := c.oauth.Token(ctx)
	if err != nil {
		return "", fmt.Errorf("%w: token request: %w", aviation.ErrProviderUnavailable, err)
	}
	c.token = tok
	c.log.Debug().Time("expires_at", tok.Expiry).Msg("access token issued")
	return tok.AccessToken, nil
}

func (c *Client) dropToken() {
	c.mu.Lock()
	c.token = nil
	c.mu.Unlock()
}

// Authorize sets a bearer token on an outbound request.
func (c *Client) Authorize(ctx context.Context, req *http.Request) error {
	tok, err := c.accessToken(ctx)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+tok)
	return nil
}

type segment struct {
	CarrierCode string `json:"carrierCode"`
	Departure   struct {
		At string `json:"at"`
	} `json:"departure"`
	Arrival struct {
		At string `json:"at"`
	} `json:"arrival"`
}

type offersResponse struct {
	Data []struct {
		Price struct {
			Total    string `json:"total"`
			Currency string `json:"currency"`
		} `json:"price"`
		Itineraries []struct {
			Duration string    `json:"duration"`
			Segments []segment `json:"segments"`
		} `json:"itineraries"`
	} `json:"data"`
}

var errCurrency = errors.New("unsupported currency")

func usd(total, currency string) (float64, error) {
	price, err := strconv.ParseFloat(total, 64)
	if err != nil {
		return 0, err
	}
	switch currency {
	case "USD":
		return price, nil
	case "EUR":
		return price * EURToUSD, nil
	}
	return 0, errCurrency
}

// SearchOffers returns one-way offers priced in US dollars, in the order
// Amadeus ranked them.
func (c *Client) SearchOffers(ctx context.Context, q aviation.OfferQuery) ([]aviation.Offer, error) {
	adults, limit := q.Adults, q.Max
	if adults <= 0 {
		adults = 1
	}
	if limit <= 0 {
		limit = 10
	}
	params := url.Values{
		"originLocationCode":      {q.Origin},
		"destinationLocationCode": {q.Destination},
		"departureDate":           {q.DepartureDate},
		"adults":                  {strconv.Itoa(adults)},
		"max":                     {strconv.Itoa(limit)},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v2/shopping/flight-offers?"+params.Encode(), http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("build offers request: %w", err)
	}
	if err := c.Authorize(ctx, req); err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/vnd.amadeus+json, application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", aviation.ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusUnauthorized:
		c.dropToken()
		fallthrough
	default:
		return nil, fmt.Errorf("%w: status %d", aviation.ErrProviderUnavailable, resp.StatusCode)
	}

	var or offersResponse
	if err := json.NewDecoder(resp.Body).Decode(&or); err != nil {
		return nil, fmt.Errorf("decode offers: %w", err)
	}

	offers := make([]aviation.Offer, 0, len(or.Data))
	for _, d := range or.Data {
		if len(d.Itineraries) == 0 || len(d.Itineraries[0].Segments) == 0 {
			continue
		}
		price, err := usd(d.Price.Total, d.Price.Currency)
		if err != nil {
			c.log.Debug().Err(err).Str("total", d.Price.Total).Str("currency", d.Price.Currency).Msg("offer skipped")
			continue
		}
		it := d.Itineraries[0]
		first, last := it.Segments[0], it.Segments[len(it.Segments)-1]
		offers = append(offers, aviation.Offer{
			Price:         price,
			Currency:      "USD",
			Airline:       first.CarrierCode,
			DepartureTime: first.Departure.At,
			ArrivalTime:   last.Arrival.At,
			Duration:      it.Duration,
			Stops:         len(it.Segments) - 1,
		})
	}
	if len(offers) == 0 {
		return nil, aviation.ErrNoOffers
	}
	return offers, nil
}
