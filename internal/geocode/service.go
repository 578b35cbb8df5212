package geocode

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/regentroute/regentroute/internal/telemetry"
)

// Cache is a persistent store of resolved addresses, keyed by normalized address.
type Cache interface {
	// Get returns the cached result, or nil when the key is absent.
	Get(ctx context.Context, key string) (*Result, error)

	// Put stores a result under key, replacing any previous entry.
	Put(ctx context.Context, key string, result *Result) error
}

// ServiceConfig holds configuration for the geocode service.
type ServiceConfig struct {
	// Geocoder resolves addresses (required). Usually a Chain.
	Geocoder Geocoder

	// Cache is an optional persistent cache shared between instances.
	Cache Cache

	// Metrics records provider calls and cache lookups (optional).
	Metrics *telemetry.ProviderMetrics

	// Logger for service operations.
	Logger zerolog.Logger

	// CacheTTL is how long resolutions stay in memory (default: 24 hours).
	CacheTTL time.Duration
}

// Service resolves addresses with in-memory and persistent caching.
// Concurrent lookups of the same address share one geocoder call.
// Fallback results are never cached, so a recovered primary geocoder
// is used again on the next request.
type Service struct {
	geocoder Geocoder
	store    Cache
	metrics  *telemetry.ProviderMetrics
	logger   zerolog.Logger
	cacheTTL time.Duration

	group singleflight.Group

	mu    sync.RWMutex
	cache map[string]cachedResult
}

type cachedResult struct {
	result    Result
	expiresAt time.Time
}

// NewService creates a new geocode service.
func NewService(cfg ServiceConfig) *Service {
	cacheTTL := cfg.CacheTTL
	if cacheTTL == 0 {
		cacheTTL = 24 * time.Hour
	}

	return &Service{
		geocoder: cfg.Geocoder,
		store:    cfg.Cache,
		metrics:  cfg.Metrics,
		logger:   cfg.Logger,
		cacheTTL: cacheTTL,
		cache:    make(map[string]cachedResult),
	}
}

// Geocode resolves one address. Errors wrap ErrGeocodeFailure and are *Error values.
func (s *Service) Geocode(ctx context.Context, address string) (*Result, error) {
	normalized := Normalize(address)
	if normalized == "" {
		return nil, &Error{Address: address, Err: ErrGeocodeFailure}
	}
	key := cacheKey(normalized)

	if res, ok := s.fromMemory(key); ok {
		s.metrics.RecordCacheLookup(ctx, "geocode.memory", true)
		return res, nil
	}
	s.metrics.RecordCacheLookup(ctx, "geocode.memory", false)

	v, err, _ := s.group.Do(key, func() (interface{}, error) {
		if res, ok := s.fromMemory(key); ok {
			return res, nil
		}
		if res := s.fromStore(ctx, key); res != nil {
			s.remember(key, res)
			return res, nil
		}
		return s.resolve(ctx, normalized, key)
	})
	if err != nil {
		return nil, err
	}

	res := *v.(*Result)
	return &res, nil
}

// ResolvePair resolves origin and destination, geocoding each distinct
// address only once. When both fail the origin's error is returned.
func (s *Service) ResolvePair(ctx context.Context, origin, destination string) (*Result, *Result, error) {
	if cacheKey(origin) == cacheKey(destination) {
		res, err := s.Geocode(ctx, origin)
		if err != nil {
			return nil, nil, err
		}
		dup := *res
		return res, &dup, nil
	}

	var (
		from, to       *Result
		fromErr, toErr error
		g              errgroup.Group
	)
	g.Go(func() error {
		from, fromErr = s.Geocode(ctx, origin)
		return nil
	})
	g.Go(func() error {
		to, toErr = s.Geocode(ctx, destination)
		return nil
	})
	_ = g.Wait()

	if fromErr != nil {
		return nil, nil, fromErr
	}
	if toErr != nil {
		return nil, nil, toErr
	}
	return from, to, nil
}

// GeocoderName returns the name of the underlying geocoder.
func (s *Service) GeocoderName() string {
	return s.geocoder.Name()
}

// InvalidateCache clears the in-memory cache. The persistent cache is untouched.
func (s *Service) InvalidateCache() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache = make(map[string]cachedResult)
}

func (s *Service) resolve(ctx context.Context, normalized, key string) (*Result, error) {
	start := time.Now()
	res, err := s.geocoder.Geocode(ctx, normalized)
	s.metrics.RecordCall(ctx, s.geocoder.Name(), time.Since(start), err)
	if err != nil {
		s.logger.Warn().Err(err).
			Str("address", normalized).
			Str("geocoder", s.geocoder.Name()).
			Msg("geocoding failed")
		return nil, asFailure(normalized, s.geocoder.Name(), err)
	}

	res.Address = normalized
	if res.Fallback {
		s.logger.Info().
			Str("address", normalized).
			Str("provider", res.Provider).
			Msg("address resolved by fallback geocoder")
		return res, nil
	}

	s.remember(key, res)
	if s.store != nil {
		if err := s.store.Put(ctx, key, res); err != nil {
			s.logger.Warn().Err(err).Str("address", normalized).Msg("failed to persist geocode result")
		}
	}

	return res, nil
}

func (s *Service) fromMemory(key string) (*Result, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cached, ok := s.cache[key]
	if !ok || time.Now().After(cached.expiresAt) {
		return nil, false
	}
	res := cached.result
	return &res, true
}

func (s *Service) fromStore(ctx context.Context, key string) *Result {
	if s.store == nil {
		return nil
	}

	res, err := s.store.Get(ctx, key)
	if err != nil {
		s.logger.Warn().Err(err).Str("cache_key", key).Msg("persistent geocode cache read failed")
		return nil
	}
	s.metrics.RecordCacheLookup(ctx, "geocode.store", res != nil)
	return res
}

func (s *Service) remember(key string, res *Result) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cache[key] = cachedResult{result: *res, expiresAt: time.Now().Add(s.cacheTTL)}
}
