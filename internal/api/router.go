// Package api provides the HTTP API for RegentRoute.
package api

import (
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/regentroute/regentroute/internal/api/handler"
	"github.com/regentroute/regentroute/internal/api/middleware"
	"github.com/regentroute/regentroute/internal/provider/resilience"
	"github.com/regentroute/regentroute/internal/proxy"
)

// FlagService is the feature flag surface the admin and ops endpoints need.
type FlagService interface {
	handler.FlagStore
	handler.FlagReader
}

// RouterConfig holds configuration for the router.
type RouterConfig struct {
	Version     string
	BuildTime   string
	Logger      zerolog.Logger
	ServiceName string
	Metrics     *middleware.Metrics
	RequireTLS  bool

	Comparer     handler.Comparer
	Comparisons  handler.ComparisonStore
	Airports     handler.AirportLocator
	FeatureFlags FlagService
	Proxy        *proxy.Handler

	Registry        *resilience.Registry
	ReadinessChecks map[string]handler.Check
}

// NewRouter creates a new chi router with all API routes configured.
// Route groups whose dependency is nil are not mounted.
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	serviceName := cfg.ServiceName
	if serviceName == "" {
		serviceName = "regentroute-api"
	}

	// Global middleware - order matters
	r.Use(middleware.RequestID)            // Generate/propagate request ID first
	r.Use(middleware.Tracing(serviceName)) // Distributed tracing
	if cfg.Metrics != nil {
		r.Use(cfg.Metrics.Middleware()) // HTTP metrics
	}
	r.Use(middleware.Logger(cfg.Logger))         // Structured logging
	r.Use(middleware.Recovery(cfg.Logger))       // Panic recovery
	r.Use(chimiddleware.RealIP)                  // Real IP extraction
	r.Use(middleware.SecurityHeaders)            // Security headers (HSTS, CSP, etc.)
	r.Use(middleware.RequireTLS(cfg.RequireTLS)) // TLS enforcement
	r.Use(middleware.ContentTypeJSON)            // JSON content type

	opsCfg := handler.OpsConfig{
		Version:   cfg.Version,
		BuildTime: cfg.BuildTime,
		Registry:  cfg.Registry,
		Checks:    cfg.ReadinessChecks,
	}
	if cfg.FeatureFlags != nil {
		opsCfg.Flags = cfg.FeatureFlags
	}
	opsHandler := handler.NewOpsHandler(opsCfg)

	proxyRateLimit := middleware.RateLimitByIP(middleware.ProxyRateLimit)         // 20 req/min
	expensiveRateLimit := middleware.RateLimitByIP(middleware.ExpensiveRateLimit) // 30 req/min
	standardRateLimit := middleware.RateLimitByIP(middleware.StandardRateLimit)   // 100 req/min

	r.Route("/v1", func(r chi.Router) {
		r.Use(middleware.RequireJSON)

		r.Route("/ops", func(r chi.Router) {
			r.Get("/health", opsHandler.HealthCheck)
			r.Get("/ready", opsHandler.ReadinessCheck)
			r.Get("/status", opsHandler.SystemStatus)
		})

		if cfg.Comparer != nil {
			tripsHandler := handler.NewTripsHandler(cfg.Comparer, cfg.Logger)
			// Compare fans out to geocoding, directions and flight pricing.
			r.With(expensiveRateLimit).Post("/trips:compare", tripsHandler.Compare)
			r.With(standardRateLimit).Post("/trips:estimate", tripsHandler.Estimate)
		}

		if cfg.Comparisons != nil {
			comparisonsHandler := handler.NewComparisonsHandler(cfg.Comparisons, cfg.Comparer, cfg.Logger)
			r.Route("/comparisons", func(r chi.Router) {
				r.Use(standardRateLimit)
				r.Get("/", comparisonsHandler.ListComparisons)
				r.Post("/", comparisonsHandler.CreateComparison)
				r.Route("/{comparisonId}", func(r chi.Router) {
					r.Get("/", comparisonsHandler.GetComparison)
					r.Delete("/", comparisonsHandler.DeleteComparison)
					r.Get("/map", comparisonsHandler.GetComparisonMap)
				})
			})
		}

		if cfg.Airports != nil {
			airportsHandler := handler.NewAirportsHandler(cfg.Airports, cfg.Logger)
			r.With(standardRateLimit).Get("/airports/nearest", airportsHandler.NearestAirports)
		}

		if cfg.Proxy != nil {
			r.Route("/proxy", func(r chi.Router) {
				r.Use(proxyRateLimit)
				r.Get("/directions", cfg.Proxy.Directions)
				r.Get("/geocode", cfg.Proxy.Geocode)
				r.Post("/airports", cfg.Proxy.Airports)
				r.Post("/flight-offers", cfg.Proxy.FlightOffers)
			})
		}

		if cfg.FeatureFlags != nil {
			featureFlagsHandler := handler.NewFeatureFlagsHandler(cfg.FeatureFlags, cfg.Logger)
			r.Route("/admin", func(r chi.Router) {
				r.Use(standardRateLimit)
				r.Route("/feature-flags", func(r chi.Router) {
					r.Get("/", featureFlagsHandler.ListFeatureFlags)
					r.Put("/", featureFlagsHandler.UpsertFeatureFlags)
					r.Post("/invalidate", featureFlagsHandler.InvalidateCache)
				})
			})
		}
	})

	return r
}
