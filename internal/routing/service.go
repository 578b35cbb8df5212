package routing

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
)

// Cache defaults. A 0.005 degree cell is roughly 550 m.
const (
	defaultCacheTTL        = 30 * time.Minute
	defaultCacheGridSize   = 0.005
	defaultStaleIfErrorTTL = 6 * time.Hour
	defaultCleanupInterval = 10 * time.Minute
)

// ServiceConfig configures a Service. Zero durations and grid size take the
// defaults above.
type ServiceConfig struct {
	Provider Provider
	Logger   zerolog.Logger

	CacheTTL time.Duration
	// CacheGridSize is the cell size in degrees. Trips whose endpoints fall
	// in the same cells share one cached route.
	CacheGridSize float64
	// StaleIfErrorTTL is how long after fetching a route may still be served
	// when the provider fails.
	StaleIfErrorTTL time.Duration
	CleanupInterval time.Duration
}

// Service caches provider directions on a coordinate grid. Concurrent
// misses for the same cells share one provider call.
type Service struct {
	provider Provider
	log      zerolog.Logger
	ttl      time.Duration
	grid     float64
	staleTTL time.Duration
	sweepGap time.Duration
	now      func() time.Time

	flights singleflight.Group

	mu        sync.RWMutex
	entries   map[string]cacheEntry
	lastSweep time.Time
}

type cacheEntry struct {
	resp      *DirectionsResponse
	fetchedAt time.Time
}

func (s *Service) fresh(e cacheEntry, now time.Time) bool { return now.Before(e.fetchedAt.Add(s.ttl)) }
func (s *Service) usable(e cacheEntry, now time.Time) bool {
	return now.Before(e.fetchedAt.Add(s.staleTTL))
}

func NewService(cfg ServiceConfig) *Service {
	s := &Service{
		provider: cfg.Provider,
		log:      cfg.Logger,
		ttl:      cfg.CacheTTL,
		grid:     cfg.CacheGridSize,
		staleTTL: cfg.StaleIfErrorTTL,
		sweepGap: cfg.CleanupInterval,
		entries:  make(map[string]cacheEntry),
		now:      time.Now,
	}
	if s.ttl <= 0 {
		s.ttl = defaultCacheTTL
	}
	if s.grid <= 0 {
		s.grid = defaultCacheGridSize
	}
	if s.staleTTL <= 0 {
		s.staleTTL = defaultStaleIfErrorTTL
	}
	if s.sweepGap <= 0 {
		s.sweepGap = defaultCleanupInterval
	}
	return s
}

// GetDirections returns a cached route for the request's grid cells or asks
// the provider. On provider failure a cached route younger than
// StaleIfErrorTTL is returned instead of the error.
func (s *Service) GetDirections(ctx context.Context, req DirectionsRequest) (*DirectionsResponse, error) {
	if req.Origin.Validate() != nil {
		return nil, &Error{Provider: s.provider.Name(), Code: "INVALID_ORIGIN", Message: "invalid origin coordinates", Err: ErrInvalidCoordinates}
	}
	if req.Destination.Validate() != nil {
		return nil, &Error{Provider: s.provider.Name(), Code: "INVALID_DESTINATION", Message: "invalid destination coordinates", Err: ErrInvalidCoordinates}
	}
	if req.Profile == "" {
		req.Profile = ProfileDrivingCar
	}

	key := s.cacheKey(req)
	if e, ok := s.lookup(key); ok && s.fresh(e, s.now()) {
		return e.resp, nil
	}

	v, err, shared := s.flights.Do(key, func() (interface{}, error) {
		// An earlier flight may have filled the entry while this one queued.
		if e, ok := s.lookup(key); ok && s.fresh(e, s.now()) {
			return e.resp, nil
		}
		return s.fetch(ctx, req, key)
	})
	if err != nil {
		return nil, err
	}
	if shared {
		s.log.Debug().Str("cache_key", key).Msg("joined in-flight directions request")
	}
	return v.(*DirectionsResponse), nil
}

func (s *Service) lookup(key string) (cacheEntry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[key]
	return e, ok
}

func (s *Service) fetch(ctx context.Context, req DirectionsRequest, key string) (*DirectionsResponse, error) {
	resp, err := s.provider.GetDirections(ctx, req)
	now := s.now()
	if err != nil {
		if e, ok := s.lookup(key); ok && s.usable(e, now) {
			s.log.Warn().Err(err).
				Str("cache_key", key).
				Time("fetched_at", e.fetchedAt).
				Msg("directions provider failed, serving stale route")
			return e.resp, nil
		}
		s.log.Error().Err(err).
			Stringer("origin", req.Origin).
			Stringer("destination", req.Destination).
			Str("profile", string(req.Profile)).
			Msg("directions lookup failed")
		return nil, err
	}

	s.mu.Lock()
	s.entries[key] = cacheEntry{resp: resp, fetchedAt: now}
	if now.Sub(s.lastSweep) >= s.sweepGap {
		s.sweep(now)
	}
	s.mu.Unlock()
	return resp, nil
}

// sweep drops entries too old to serve even as stale. Caller holds s.mu.
func (s *Service) sweep(now time.Time) {
	s.lastSweep = now
	for key, e := range s.entries {
		if !s.usable(e, now) {
			delete(s.entries, key)
		}
	}
}

// cacheKey floors both endpoints to the grid:
// "{profile}:{lat},{lon}:{lat},{lon}" with three decimals.
func (s *Service) cacheKey(req DirectionsRequest) string {
	cell := func(v float64) float64 { return math.Floor(v/s.grid) * s.grid }
	return fmt.Sprintf("%s:%.3f,%.3f:%.3f,%.3f", req.Profile,
		cell(req.Origin.Lat), cell(req.Origin.Lon),
		cell(req.Destination.Lat), cell(req.Destination.Lon))
}

func (s *Service) InvalidateCache() {
	s.mu.Lock()
	s.entries = make(map[string]cacheEntry)
	s.mu.Unlock()
}

// CacheStats counts cached routes. Stale entries are past CacheTTL but still
// inside StaleIfErrorTTL.
type CacheStats struct {
	TotalEntries int
	FreshEntries int
	StaleEntries int
	Provider     string
}

func (s *Service) CacheStats() CacheStats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	now := s.now()
	st := CacheStats{TotalEntries: len(s.entries), Provider: s.provider.Name()}
	for _, e := range s.entries {
		switch {
		case s.fresh(e, now):
			st.FreshEntries++
		case s.usable(e, now):
			st.StaleEntries++
		}
	}
	return st
}

func (s *Service) ProviderName() string { return s.provider.Name() }
