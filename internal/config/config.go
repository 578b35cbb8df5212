// Package config assembles process configuration from environment variables,
// optionally pre-loaded from .env files.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/regentroute/regentroute/internal/database"
)

// Store drivers.
const (
	StoreMemory   = "memory"
	StoreSQLite   = "sqlite"
	StorePostgres = "postgres"
)

// Config is the full process configuration.
type Config struct {
	App       App
	Telemetry Telemetry
	Database  database.Config
	Store     Store
	Providers Providers
	Kafka     Kafka
	PubSub    PubSub
	Worker    Worker
}

// App holds HTTP server settings.
type App struct {
	Env             string
	Port            string
	LogLevel        string
	RequireTLS      bool
	ShutdownTimeout time.Duration
	FlagCacheTTL    time.Duration
}

// Telemetry holds OpenTelemetry exporter settings.
type Telemetry struct {
	Enabled      bool
	OTLPEndpoint string
	SampleRatio  float64
}

// Store selects where saved comparisons, feature flags and the geocode cache live.
type Store struct {
	Driver     string
	SQLitePath string
}

// Providers holds third-party credentials. Empty credentials disable a provider.
type Providers struct {
	OpenRouteServiceKey     string
	OpenRouteServiceBaseURL string
	GeocodeCountry          string

	AeroDataBoxKey     string
	AeroDataBoxBaseURL string

	AmadeusClientID     string
	AmadeusClientSecret string
	AmadeusBaseURL      string

	Timeout time.Duration
}

// OpenRouteServiceEnabled reports whether live directions and geocoding can be used.
func (p Providers) OpenRouteServiceEnabled() bool { return p.OpenRouteServiceKey != "" }

// AeroDataBoxEnabled reports whether airport search can be used.
func (p Providers) AeroDataBoxEnabled() bool { return p.AeroDataBoxKey != "" }

// AmadeusEnabled reports whether flight offers can be used.
func (p Providers) AmadeusEnabled() bool {
	return p.AmadeusClientID != "" && p.AmadeusClientSecret != ""
}

// Kafka holds comparison event settings. No brokers means events are dropped.
type Kafka struct {
	Brokers []string
	Topic   string
	GroupID string
}

// Enabled reports whether a broker list is configured.
func (k Kafka) Enabled() bool { return len(k.Brokers) > 0 }

// PubSub holds the worker's job subscription.
type PubSub struct {
	ProjectID    string
	Subscription string
}

// Enabled reports whether the worker should receive jobs from Pub/Sub.
func (p PubSub) Enabled() bool { return p.ProjectID != "" && p.Subscription != "" }

// Worker holds warm-up job settings.
type Worker struct {
	Interval    time.Duration
	Concurrency int
	Timeout     time.Duration
	// Places overrides the gazetteer as the warm-up list. Entries are
	// separated by semicolons since addresses contain commas.
	Places []string
}

// Load reads the given .env files (missing files are skipped; variables
// already set in the environment win) and then builds the configuration.
func Load(envFiles ...string) (*Config, error) {
	var present []string
	for _, f := range envFiles {
		if _, err := os.Stat(f); err == nil {
			present = append(present, f)
		}
	}
	if len(present) > 0 {
		if err := godotenv.Load(present...); err != nil {
			return nil, fmt.Errorf("load env files: %w", err)
		}
	}
	return FromEnv()
}

// FromEnv builds the configuration from the current environment.
func FromEnv() (*Config, error) {
	p := &parser{}

	cfg := &Config{
		App: App{
			Env:             getEnvOrDefault("APP_ENV", "development"),
			Port:            getEnvOrDefault("APP_PORT", "8080"),
			LogLevel:        getEnvOrDefault("LOG_LEVEL", "info"),
			RequireTLS:      p.bool("REQUIRE_TLS", false),
			ShutdownTimeout: p.duration("SHUTDOWN_TIMEOUT", 30*time.Second),
			FlagCacheTTL:    p.duration("FEATURE_FLAG_CACHE_TTL", time.Minute),
		},
		Telemetry: Telemetry{
			Enabled:      p.bool("OTEL_ENABLED", false),
			OTLPEndpoint: getEnvOrDefault("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
			SampleRatio:  p.float("OTEL_SAMPLE_RATIO", 1),
		},
		Database: database.ConfigFromEnv(),
		Store: Store{
			Driver:     strings.ToLower(getEnvOrDefault("STORE_DRIVER", StoreSQLite)),
			SQLitePath: getEnvOrDefault("SQLITE_PATH", "data/regentroute.db"),
		},
		Providers: Providers{
			OpenRouteServiceKey:     os.Getenv("ORS_API_KEY"),
			OpenRouteServiceBaseURL: os.Getenv("ORS_BASE_URL"),
			GeocodeCountry:          os.Getenv("GEOCODE_COUNTRY"),
			AeroDataBoxKey:          os.Getenv("AERODATABOX_API_KEY"),
			AeroDataBoxBaseURL:      os.Getenv("AERODATABOX_BASE_URL"),
			AmadeusClientID:         os.Getenv("AMADEUS_CLIENT_ID"),
			AmadeusClientSecret:     os.Getenv("AMADEUS_CLIENT_SECRET"),
			AmadeusBaseURL:          os.Getenv("AMADEUS_BASE_URL"),
			Timeout:                 p.duration("PROVIDER_TIMEOUT", 10*time.Second),
		},
		Kafka: Kafka{
			Brokers: getEnvList("KAFKA_BROKERS", ","),
			Topic:   getEnvOrDefault("KAFKA_TOPIC", "regentroute.comparisons"),
			GroupID: getEnvOrDefault("KAFKA_GROUP_ID", "regentroute-worker"),
		},
		PubSub: PubSub{
			ProjectID:    os.Getenv("PUBSUB_PROJECT_ID"),
			Subscription: os.Getenv("PUBSUB_SUBSCRIPTION"),
		},
		Worker: Worker{
			Interval:    p.duration("WARMUP_INTERVAL", 6*time.Hour),
			Concurrency: p.int("WARMUP_CONCURRENCY", 4),
			Timeout:     p.duration("WARMUP_TIMEOUT", 20*time.Second),
			Places:      getEnvList("WARMUP_PLACES", ";"),
		},
	}

	if err := errors.Join(p.errs...); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks cross-field constraints.
func (c *Config) Validate() error {
	var errs []error
	switch c.Store.Driver {
	case StoreMemory, StorePostgres:
	case StoreSQLite:
		if c.Store.SQLitePath == "" {
			errs = append(errs, errors.New("SQLITE_PATH is required for the sqlite store"))
		}
	default:
		errs = append(errs, fmt.Errorf("STORE_DRIVER must be one of memory, sqlite, postgres; got %q", c.Store.Driver))
	}
	if c.Telemetry.SampleRatio < 0 || c.Telemetry.SampleRatio > 1 {
		errs = append(errs, fmt.Errorf("OTEL_SAMPLE_RATIO must be within [0, 1]; got %v", c.Telemetry.SampleRatio))
	}
	if c.Worker.Concurrency < 1 {
		errs = append(errs, fmt.Errorf("WARMUP_CONCURRENCY must be positive; got %d", c.Worker.Concurrency))
	}
	if (c.Providers.AmadeusClientID == "") != (c.Providers.AmadeusClientSecret == "") {
		errs = append(errs, errors.New("AMADEUS_CLIENT_ID and AMADEUS_CLIENT_SECRET must be set together"))
	}
	return errors.Join(errs...)
}

// parser collects conversion errors so every bad variable is reported at once.
type parser struct {
	errs []error
}

func (p *parser) int(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("%s: %w", key, err))
		return def
	}
	return n
}

func (p *parser) float(key string, def float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("%s: %w", key, err))
		return def
	}
	return f
}

func (p *parser) bool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("%s: %w", key, err))
		return def
	}
	return b
}

func (p *parser) duration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("%s: %w", key, err))
		return def
	}
	return d
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvList splits a variable on sep, dropping blanks.
func getEnvList(key, sep string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), sep) {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
