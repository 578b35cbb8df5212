// Command api serves the RegentRoute HTTP API.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/regentroute/regentroute/internal/api"
	"github.com/regentroute/regentroute/internal/api/handler"
	"github.com/regentroute/regentroute/internal/api/middleware"
	"github.com/regentroute/regentroute/internal/app"
	"github.com/regentroute/regentroute/internal/compare"
	"github.com/regentroute/regentroute/internal/comparison"
	"github.com/regentroute/regentroute/internal/config"
	"github.com/regentroute/regentroute/internal/events"
	"github.com/regentroute/regentroute/internal/featureflags"
	"github.com/regentroute/regentroute/internal/telemetry"
)

const serviceName = "regentroute-api"

// Set with -ldflags at build time.
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	log := app.NewLogger(os.Stdout, serviceName, Version, "")
	if err := run(log); err != nil {
		log.Fatal().Err(err).Msg("api exited")
	}
}

func run(log zerolog.Logger) error {
	cfg, err := config.Load(".env", ".env.local")
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	log = app.NewLogger(os.Stdout, serviceName, Version, cfg.App.LogLevel)
	log.Info().
		Str("build_time", BuildTime).
		Str("env", cfg.App.Env).
		Str("store", cfg.Store.Driver).
		Msg("starting")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	stopTelemetry, err := app.StartTelemetry(ctx, cfg, serviceName, Version, log)
	if err != nil {
		return err
	}
	defer stopTelemetry()

	httpMetrics, err := middleware.NewMetrics()
	if err != nil {
		return fmt.Errorf("http metrics: %w", err)
	}
	providerMetrics, err := telemetry.NewProviderMetrics("regentroute.providers")
	if err != nil {
		return fmt.Errorf("provider metrics: %w", err)
	}

	stores, err := app.OpenStores(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer stores.Close()

	flags := featureflags.NewService(featureflags.ServiceConfig{
		Repository: stores.FeatureFlags,
		Logger:     log,
		CacheTTL:   cfg.App.FlagCacheTTL,
	})
	providers := app.NewProviders(cfg.Providers, log)
	geocoder := providers.NewGeocodeService(stores.GeocodeCache, providerMetrics, log)
	aviation := providers.NewAviationService(log)

	var publisher events.Publisher = events.NopPublisher{}
	if cfg.Kafka.Enabled() {
		kp := events.NewKafkaPublisher(events.KafkaConfig{Brokers: cfg.Kafka.Brokers, Topic: cfg.Kafka.Topic, Logger: log})
		defer kp.Close()
		publisher = kp
		log.Info().Strs("brokers", cfg.Kafka.Brokers).Str("topic", cfg.Kafka.Topic).Msg("publishing comparison events")
	}

	checks := map[string]handler.Check{}
	if stores.Ping != nil {
		checks["database"] = stores.Ping
	}

	router := api.NewRouter(api.RouterConfig{
		Version:     Version,
		BuildTime:   BuildTime,
		Logger:      log,
		ServiceName: serviceName,
		Metrics:     httpMetrics,
		RequireTLS:  cfg.App.RequireTLS,
		Comparer: compare.NewService(compare.Config{
			Resolver:  geocoder,
			Estimator: providers.NewEstimator(flags, log),
			Flights:   aviation,
			Flags:     flags,
			Logger:    log,
		}),
		Comparisons: comparison.NewService(comparison.ServiceConfig{
			Repository: stores.Comparisons,
			Publisher:  publisher,
			Logger:     log,
		}),
		Airports:        aviation,
		FeatureFlags:    flags,
		Proxy:           providers.NewProxy(cfg.Providers, log),
		Registry:        providers.Registry,
		ReadinessChecks: checks,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.App.Port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	if err := app.Serve(ctx, srv, cfg.App.ShutdownTimeout, log); err != nil {
		return err
	}
	log.Info().Msg("stopped")
	return nil
}
