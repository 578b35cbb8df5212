// Command worker keeps the geocode cache warm for the places RegentRoute
// users compare most. Jobs arrive over Pub/Sub when a subscription is
// configured and run on a timer otherwise; saved-comparison events from
// Kafka trigger warm-ups for the new addresses.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/regentroute/regentroute/internal/app"
	"github.com/regentroute/regentroute/internal/config"
	"github.com/regentroute/regentroute/internal/events"
	"github.com/regentroute/regentroute/internal/telemetry"
	"github.com/regentroute/regentroute/internal/worker"
)

const serviceName = "regentroute-worker"

// Set with -ldflags at build time.
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	log := app.NewLogger(os.Stdout, serviceName, Version, "")
	if err := run(log); err != nil {
		log.Fatal().Err(err).Msg("worker exited")
	}
}

func run(log zerolog.Logger) error {
	cfg, err := config.Load(".env", ".env.local")
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	log = app.NewLogger(os.Stdout, serviceName, Version, cfg.App.LogLevel)
	log.Info().Str("build_time", BuildTime).Msg("starting")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	stopTelemetry, err := app.StartTelemetry(ctx, cfg, serviceName, Version, log)
	if err != nil {
		return err
	}
	defer stopTelemetry()

	providerMetrics, err := telemetry.NewProviderMetrics("regentroute.worker")
	if err != nil {
		return fmt.Errorf("provider metrics: %w", err)
	}

	stores, err := app.OpenStores(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer stores.Close()

	providers := app.NewProviders(cfg.Providers, log)
	warmupCfg := worker.DefaultWarmupConfig()
	warmupCfg.Concurrency = cfg.Worker.Concurrency
	warmupCfg.Timeout = cfg.Worker.Timeout
	if len(cfg.Worker.Places) > 0 {
		warmupCfg.Places = cfg.Worker.Places
	}
	job := worker.NewWarmupJob(worker.WarmupJobConfig{
		Config:   warmupCfg,
		Logger:   log,
		Geocoder: providers.NewGeocodeService(stores.GeocodeCache, providerMetrics, log),
		Airports: providers.NewAviationService(log),
	})

	g, ctx := errgroup.WithContext(ctx)

	// Cloud Run probes /health; /metrics reports warm-up counters.
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, map[string]string{"status": "healthy", "version": Version})
	})
	mux.HandleFunc("GET /metrics", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, job.MetricsSnapshot())
	})
	srv := &http.Server{
		Addr:              ":" + cfg.App.Port,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
	}
	g.Go(func() error { return app.Serve(ctx, srv, cfg.App.ShutdownTimeout, log) })

	if cfg.PubSub.Enabled() {
		handler, err := worker.NewPubSubHandler(ctx, worker.PubSubConfig{
			ProjectID:        cfg.PubSub.ProjectID,
			SubscriptionName: cfg.PubSub.Subscription,
			Dispatcher:       worker.NewDispatcher(job, log),
			Logger:           log,
		})
		if err != nil {
			stop()
			return errors.Join(err, g.Wait())
		}
		defer handler.Close()
		g.Go(func() error { return handler.Start(ctx) })
	} else {
		log.Info().Dur("interval", cfg.Worker.Interval).Msg("no subscription configured, warming on a timer")
		g.Go(func() error {
			job.RunEvery(ctx, cfg.Worker.Interval)
			return nil
		})
	}

	if cfg.Kafka.Enabled() {
		consumer := events.NewKafkaConsumer(events.KafkaConfig{
			Brokers: cfg.Kafka.Brokers,
			Topic:   cfg.Kafka.Topic,
			GroupID: cfg.Kafka.GroupID,
			Logger:  log,
		})
		defer consumer.Close()
		g.Go(func() error {
			if err := consumer.Consume(ctx, job.ComparisonEventHandler()); err != nil && !errors.Is(err, context.Canceled) {
				return fmt.Errorf("comparison events: %w", err)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}
	log.Info().Msg("stopped")
	return nil
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
