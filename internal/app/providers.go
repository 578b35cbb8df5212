package app

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/regentroute/regentroute/internal/aviation"
	"github.com/regentroute/regentroute/internal/aviation/aerodatabox"
	"github.com/regentroute/regentroute/internal/aviation/amadeus"
	"github.com/regentroute/regentroute/internal/config"
	"github.com/regentroute/regentroute/internal/featureflags"
	"github.com/regentroute/regentroute/internal/geocode"
	geocodeors "github.com/regentroute/regentroute/internal/geocode/openrouteservice"
	"github.com/regentroute/regentroute/internal/provider/resilience"
	"github.com/regentroute/regentroute/internal/proxy"
	"github.com/regentroute/regentroute/internal/routing"
	routingors "github.com/regentroute/regentroute/internal/routing/openrouteservice"
	"github.com/regentroute/regentroute/internal/telemetry"
	"github.com/regentroute/regentroute/internal/trip"
)

// Providers are the third-party clients for one process. Clients whose
// credentials are missing are nil.
type Providers struct {
	Registry *resilience.Registry

	Geocoder    *geocodeors.Client
	Directions  *routingors.Client
	AeroDataBox *aerodatabox.Client
	Amadeus     *amadeus.Client
}

// NewProviders creates a client for every configured provider, all reporting
// into one health registry.
func NewProviders(cfg config.Providers, log zerolog.Logger) *Providers {
	p := &Providers{Registry: resilience.NewRegistry()}

	if cfg.OpenRouteServiceEnabled() {
		p.Geocoder = geocodeors.NewClient(geocodeors.ClientConfig{
			APIKey:   cfg.OpenRouteServiceKey,
			BaseURL:  cfg.OpenRouteServiceBaseURL,
			Country:  cfg.GeocodeCountry,
			Timeout:  cfg.Timeout,
			Registry: p.Registry,
			Logger:   log,
		})
		p.Directions = routingors.NewClient(routingors.ClientConfig{
			APIKey:   cfg.OpenRouteServiceKey,
			BaseURL:  cfg.OpenRouteServiceBaseURL,
			Timeout:  cfg.Timeout,
			Registry: p.Registry,
			Logger:   log,
		})
	} else {
		log.Warn().Msg("ORS_API_KEY not set; geocoding uses the built-in gazetteer and car estimates use formulas")
	}

	if cfg.AeroDataBoxEnabled() {
		p.AeroDataBox = aerodatabox.NewClient(aerodatabox.ClientConfig{
			APIKey:   cfg.AeroDataBoxKey,
			BaseURL:  cfg.AeroDataBoxBaseURL,
			Timeout:  cfg.Timeout,
			Registry: p.Registry,
			Logger:   log,
		})
	} else {
		log.Warn().Msg("AERODATABOX_API_KEY not set; airports come from the static directory")
	}

	if cfg.AmadeusEnabled() {
		p.Amadeus = amadeus.NewClient(amadeus.ClientConfig{
			ClientID:     cfg.AmadeusClientID,
			ClientSecret: cfg.AmadeusClientSecret,
			BaseURL:      cfg.AmadeusBaseURL,
			Timeout:      cfg.Timeout,
			Registry:     p.Registry,
			Logger:       log,
		})
	} else {
		log.Warn().Msg("Amadeus credentials not set; flight quotes are unavailable")
	}

	return p
}

// NewGeocodeService chains the live geocoder (when configured) in front of
// the gazetteer and caches results in cache.
func (p *Providers) NewGeocodeService(cache geocode.Cache, metrics *telemetry.ProviderMetrics, log zerolog.Logger) *geocode.Service {
	var primary geocode.Geocoder
	if p.Geocoder != nil {
		primary = p.Geocoder
	}
	return geocode.NewService(geocode.ServiceConfig{
		Geocoder: geocode.NewChain(primary, geocode.NewGazetteer(), log),
		Cache:    cache,
		Metrics:  metrics,
		Logger:   log,
	})
}

// NewAviationService uses AeroDataBox for airports when configured, falling
// back to the static directory, and Amadeus for offers.
func (p *Providers) NewAviationService(log zerolog.Logger) *aviation.Service {
	static := aviation.NewStaticDirectory()
	cfg := aviation.ServiceConfig{
		Finder: static,
		Logger: log,
	}
	if p.AeroDataBox != nil {
		cfg.Finder = p.AeroDataBox
		cfg.Fallback = static
	}
	if p.Amadeus != nil {
		cfg.Offers = p.Amadeus
	}
	return aviation.NewService(cfg)
}

// NewEstimator builds the trip estimator. Car estimates use live directions
// unless the live directions flag disables them.
func (p *Providers) NewEstimator(flags *featureflags.Service, log zerolog.Logger) *trip.Estimator {
	cfg := trip.EstimatorConfig{Logger: log}
	if p.Directions != nil {
		live := routing.NewLiveDirections(routing.NewService(routing.ServiceConfig{
			Provider: p.Directions,
			Logger:   log,
		}), routing.ProfileDrivingCar)
		live.Enabled = func(ctx context.Context) bool {
			return !flags.IsLiveDirectionsDisabled(ctx)
		}
		cfg.Live = map[trip.Mode]trip.LiveData{trip.ModeCar: live}
	}
	return trip.NewEstimator(cfg)
}

// NewProxy builds the pass-through handler. Each upstream gets its own
// resilient client so proxy traffic has separate breakers from estimates.
func (p *Providers) NewProxy(cfg config.Providers, log zerolog.Logger) *proxy.Handler {
	client := func(name string) *resilience.Client {
		c := resilience.DefaultClientConfig("proxy-" + name)
		c.Timeout = cfg.Timeout
		c.Registry = p.Registry
		c.Logger = log
		return resilience.NewClient(c)
	}
	baseOr := func(url, def string) string {
		if url != "" {
			return url
		}
		return def
	}

	pc := proxy.Config{
		GeocodeCountry: cfg.GeocodeCountry,
		Logger:         log,
	}
	if cfg.OpenRouteServiceEnabled() {
		auth := proxy.HeaderAuthorizer("Authorization", cfg.OpenRouteServiceKey)
		base := baseOr(cfg.OpenRouteServiceBaseURL, routingors.DefaultBaseURL)
		pc.Directions = &proxy.Upstream{Name: "openrouteservice-directions", BaseURL: base, Client: client("ors-directions"), Auth: auth}
		pc.Geocode = &proxy.Upstream{Name: "openrouteservice-geocode", BaseURL: base, Client: client("ors-geocode"), Auth: auth}
	}
	if p.AeroDataBox != nil {
		pc.Airports = &proxy.Upstream{
			Name:    "aerodatabox",
			BaseURL: baseOr(cfg.AeroDataBoxBaseURL, aerodatabox.DefaultBaseURL),
			Client:  client("aerodatabox"),
			Auth:    p.AeroDataBox,
		}
	}
	if p.Amadeus != nil {
		pc.FlightOffers = &proxy.Upstream{
			Name:    "amadeus",
			BaseURL: baseOr(cfg.AmadeusBaseURL, amadeus.DefaultBaseURL),
			Client:  client("amadeus"),
			Auth:    p.Amadeus,
		}
	}
	return proxy.NewHandler(pc)
}
