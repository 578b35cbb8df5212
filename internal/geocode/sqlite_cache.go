package geocode

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// SQLiteCache is a SQLite backed persistent geocode cache.
type SQLiteCache struct {
	db *sql.DB
}

// NewSQLiteCache creates a cache over an open SQLite database.
func NewSQLiteCache(db *sql.DB) *SQLiteCache {
	return &SQLiteCache{db: db}
}

// EnsureSchema creates the geocode_cache table if it does not exist.
func (c *SQLiteCache) EnsureSchema(ctx context.Context) error {
	_, err := c.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS geocode_cache (
			address_key TEXT PRIMARY KEY,
			address     TEXT NOT NULL,
			lat         REAL NOT NULL,
			lon         REAL NOT NULL,
			label       TEXT NOT NULL DEFAULT '',
			provider    TEXT NOT NULL,
			created_at  TEXT NOT NULL
		);
	`)
	if err != nil {
		return fmt.Errorf("create geocode_cache table: %w", err)
	}
	return nil
}

// Get returns the cached result for key, or nil when absent.
func (c *SQLiteCache) Get(ctx context.Context, key string) (*Result, error) {
	var res Result
	err := c.db.QueryRowContext(ctx, `
		SELECT address, lat, lon, label, provider
		FROM geocode_cache
		WHERE address_key = ?;
	`, key).Scan(&res.Address, &res.Coordinate.Lat, &res.Coordinate.Lon, &res.Label, &res.Provider)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get geocode cache: %w", err)
	}
	return &res, nil
}

// Put stores result under key.
func (c *SQLiteCache) Put(ctx context.Context, key string, result *Result) error {
	if strings.TrimSpace(key) == "" {
		return errors.New("put geocode cache: empty address key")
	}

	_, err := c.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO geocode_cache (address_key, address, lat, lon, label, provider, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?);
	`, key, result.Address, result.Coordinate.Lat, result.Coordinate.Lon, result.Label, result.Provider,
		time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("put geocode cache key=%q: %w", key, err)
	}
	return nil
}
