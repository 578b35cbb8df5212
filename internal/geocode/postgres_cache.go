package geocode

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresCache is a PostgreSQL backed persistent geocode cache.
type PostgresCache struct {
	pool *pgxpool.Pool
}

// NewPostgresCache creates a new PostgreSQL geocode cache.
func NewPostgresCache(pool *pgxpool.Pool) *PostgresCache {
	return &PostgresCache{pool: pool}
}

// EnsureSchema creates the geocode_cache table if it does not exist.
func (c *PostgresCache) EnsureSchema(ctx context.Context) error {
	_, err := c.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS geocode_cache (
			address_key TEXT PRIMARY KEY,
			address     TEXT NOT NULL,
			lat         DOUBLE PRECISION NOT NULL,
			lon         DOUBLE PRECISION NOT NULL,
			label       TEXT NOT NULL DEFAULT '',
			provider    TEXT NOT NULL,
			created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
	`)
	if err != nil {
		return fmt.Errorf("create geocode_cache table: %w", err)
	}
	return nil
}

// Get returns the cached result for key, or nil when absent.
func (c *PostgresCache) Get(ctx context.Context, key string) (*Result, error) {
	var res Result
	err := c.pool.QueryRow(ctx, `
		SELECT address, lat, lon, label, provider
		FROM geocode_cache
		WHERE address_key = $1
	`, key).Scan(&res.Address, &res.Coordinate.Lat, &res.Coordinate.Lon, &res.Label, &res.Provider)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get geocode cache: %w", err)
	}
	return &res, nil
}

// Put stores result under key.
func (c *PostgresCache) Put(ctx context.Context, key string, result *Result) error {
	_, err := c.pool.Exec(ctx, `
		INSERT INTO geocode_cache (address_key, address, lat, lon, label, provider)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (address_key) DO UPDATE SET
			address = EXCLUDED.address,
			lat = EXCLUDED.lat,
			lon = EXCLUDED.lon,
			label = EXCLUDED.label,
			provider = EXCLUDED.provider,
			created_at = NOW()
	`, key, result.Address, result.Coordinate.Lat, result.Coordinate.Lon, result.Label, result.Provider)
	if err != nil {
		return fmt.Errorf("put geocode cache key=%q: %w", key, err)
	}
	return nil
}
