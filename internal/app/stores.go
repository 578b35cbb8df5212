// Package app assembles RegentRoute's storage and provider stack from
// configuration. Both the API server and the worker build on it.
package app

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/regentroute/regentroute/internal/comparison"
	"github.com/regentroute/regentroute/internal/config"
	"github.com/regentroute/regentroute/internal/database"
	"github.com/regentroute/regentroute/internal/featureflags"
	"github.com/regentroute/regentroute/internal/geocode"
)

// Stores are the persistence backends for one process.
type Stores struct {
	Comparisons  comparison.Repository
	FeatureFlags featureflags.Repository
	// GeocodeCache is nil for the memory driver.
	GeocodeCache geocode.Cache

	// Ping checks the backing database; nil for the memory driver.
	Ping func(ctx context.Context) error

	closers []func()
}

// Close releases database handles.
func (s *Stores) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
}

type schemaOwner interface {
	EnsureSchema(ctx context.Context) error
}

// OpenStores connects the configured store driver and creates its tables.
func OpenStores(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*Stores, error) {
	switch cfg.Store.Driver {
	case config.StoreMemory:
		log.Warn().Msg("using in-memory store; saved comparisons are lost on restart")
		return &Stores{
			Comparisons:  comparison.NewInMemoryRepository(),
			FeatureFlags: featureflags.NewInMemoryRepository(),
		}, nil

	case config.StoreSQLite:
		db, err := database.OpenSQLite(ctx, cfg.Store.SQLitePath)
		if err != nil {
			return nil, err
		}
		s := &Stores{
			Comparisons:  comparison.NewSQLiteRepository(db),
			FeatureFlags: featureflags.NewSQLiteRepository(db),
			GeocodeCache: geocode.NewSQLiteCache(db),
			Ping:         db.PingContext,
			closers:      []func(){func() { db.Close() }},
		}
		if err := s.ensureSchemas(ctx); err != nil {
			s.Close()
			return nil, err
		}
		log.Info().Str("path", cfg.Store.SQLitePath).Msg("sqlite store opened")
		return s, nil

	case config.StorePostgres:
		pool, err := database.Connect(ctx, cfg.Database)
		if err != nil {
			return nil, err
		}
		s := &Stores{
			Comparisons:  comparison.NewPostgresRepository(pool),
			FeatureFlags: featureflags.NewPostgresRepository(pool),
			GeocodeCache: geocode.NewPostgresCache(pool),
			Ping:         pool.Ping,
			closers:      []func(){pool.Close},
		}
		if err := s.ensureSchemas(ctx); err != nil {
			s.Close()
			return nil, err
		}
		log.Info().
			Str("host", cfg.Database.Host).
			Int("port", cfg.Database.Port).
			Str("database", cfg.Database.Database).
			Msg("database connected")
		return s, nil

	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
}

func (s *Stores) ensureSchemas(ctx context.Context) error {
	for _, v := range []interface{}{s.Comparisons, s.FeatureFlags, s.GeocodeCache} {
		if owner, ok := v.(schemaOwner); ok {
			if err := owner.EnsureSchema(ctx); err != nil {
				return fmt.Errorf("ensure schema: %w", err)
			}
		}
	}
	return nil
}
