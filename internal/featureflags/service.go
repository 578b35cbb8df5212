package featureflags

import (
	"context"
	"errors"
	"maps"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
)

// ErrFlagNotFound is returned by a Repository for an unknown key.
var ErrFlagNotFound = errors.New("feature flag not found")

// Repository stores flag overrides. Memory, SQLite and PostgreSQL
// implementations live in this package.
type Repository interface {
	GetFlag(ctx context.Context, key string) (*Flag, error)
	GetAllFlags(ctx context.Context) (map[string]*Flag, error)
	SetFlag(ctx context.Context, flag *Flag) error
	// SetFlags writes all flags or none.
	SetFlags(ctx context.Context, flags []*Flag) error
	DeleteFlag(ctx context.Context, key string) error
}

const defaultCacheTTL = time.Minute

// ServiceConfig configures a Service. DefaultFlags defaults to DefaultFlags().
type ServiceConfig struct {
	Repository   Repository
	Logger       zerolog.Logger
	CacheTTL     time.Duration
	DefaultFlags map[string]*Flag
}

// Service evaluates flags against a cached snapshot of the repository.
// Keys missing from the repository, or a repository that cannot be read,
// resolve to the defaults. Concurrent refreshes share one repository read.
type Service struct {
	repo     Repository
	logger   zerolog.Logger
	ttl      time.Duration
	defaults map[string]*Flag

	refresh singleflight.Group

	mu        sync.RWMutex
	snapshot  map[string]*Flag
	expiresAt time.Time
}

// NewService returns a Service over cfg.Repository.
func NewService(cfg ServiceConfig) *Service {
	s := &Service{
		repo:     cfg.Repository,
		logger:   cfg.Logger,
		ttl:      cfg.CacheTTL,
		defaults: cfg.DefaultFlags,
	}
	if s.ttl <= 0 {
		s.ttl = defaultCacheTTL
	}
	if s.defaults == nil {
		s.defaults = DefaultFlags()
	}
	return s
}

// GetFlag returns the flag stored under key, its default, or nil.
func (s *Service) GetFlag(ctx context.Context, key string) *Flag {
	if f, ok := s.current(ctx)[key]; ok {
		return f
	}
	return s.defaults[key]
}

// GetAllFlags returns the defaults overlaid with every stored flag.
func (s *Service) GetAllFlags(ctx context.Context) map[string]*Flag {
	out := maps.Clone(s.defaults)
	maps.Copy(out, s.current(ctx))
	return out
}

// SetFlag stores one flag and stamps its UpdatedAt.
func (s *Service) SetFlag(ctx context.Context, flag *Flag) error {
	return s.SetFlags(ctx, []*Flag{flag})
}

// SetFlags stores flags in one write and stamps their UpdatedAt.
func (s *Service) SetFlags(ctx context.Context, flags []*Flag) error {
	now := time.Now().UTC()
	for _, f := range flags {
		f.UpdatedAt = now
	}

	var err error
	if len(flags) == 1 {
		err = s.repo.SetFlag(ctx, flags[0])
	} else {
		err = s.repo.SetFlags(ctx, flags)
	}
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.snapshot == nil {
		return nil
	}
	next := maps.Clone(s.snapshot)
	for _, f := range flags {
		next[f.Key] = f
	}
	s.snapshot = next
	return nil
}

// InvalidateCache forces the next read to go to the repository.
func (s *Service) InvalidateCache() {
	s.mu.Lock()
	s.snapshot = nil
	s.expiresAt = time.Time{}
	s.mu.Unlock()
}

// IsEnabled reports whether the flag under key is truthy.
func (s *Service) IsEnabled(ctx context.Context, key string) bool {
	return s.GetFlag(ctx, key).BoolValue(false)
}

// IsDisabled is !IsEnabled.
func (s *Service) IsDisabled(ctx context.Context, key string) bool {
	return !s.IsEnabled(ctx, key)
}

// current returns the cached snapshot, reloading it when it has expired.
// A failed reload keeps serving the previous snapshot until the next TTL.
func (s *Service) current(ctx context.Context) map[string]*Flag {
	s.mu.RLock()
	snap, fresh := s.snapshot, time.Now().Before(s.expiresAt)
	s.mu.RUnlock()
	if fresh {
		return snap
	}

	v, _, _ := s.refresh.Do("all", func() (interface{}, error) {
		flags, err := s.repo.GetAllFlags(ctx)

		s.mu.Lock()
		defer s.mu.Unlock()
		if err != nil {
			s.logger.Warn().Err(err).Msg("feature flag refresh failed, serving previous values")
		} else {
			s.snapshot = flags
		}
		s.expiresAt = time.Now().Add(s.ttl)
		return s.snapshot, nil
	})
	snap, _ = v.(map[string]*Flag)
	return snap
}

// IsLiveDirectionsDisabled reports whether car and ferry estimates must
// skip the directions provider.
func (s *Service) IsLiveDirectionsDisabled(ctx context.Context) bool {
	return s.IsEnabled(ctx, FlagDisableLiveDirections)
}

func (s *Service) IsFlightOffersDisabled(ctx context.Context) bool {
	return s.IsEnabled(ctx, FlagDisableFlightOffers)
}

// IncludeFlightsByDefault reports whether a compare request that does not
// say otherwise gets a plane estimate.
func (s *Service) IncludeFlightsByDefault(ctx context.Context) bool {
	return s.IsEnabled(ctx, FlagIncludeFlightsByDefault)
}

// DefaultFerryCurveWidth returns the configured curve width, or fallback.
func (s *Service) DefaultFerryCurveWidth(ctx context.Context, fallback float64) float64 {
	return s.GetFlag(ctx, FlagDefaultFerryCurveWidth).Float64Value(fallback)
}
