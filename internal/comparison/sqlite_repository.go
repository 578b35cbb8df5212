package comparison

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// sqliteTimeLayout has a fixed width so created_at sorts lexically.
const sqliteTimeLayout = "2006-01-02T15:04:05.000000000Z"

const sqliteSchema = `
	CREATE TABLE IF NOT EXISTS saved_comparisons (
		id                    TEXT PRIMARY KEY,
		name                  TEXT NOT NULL,
		origin_address        TEXT NOT NULL,
		destination_address   TEXT NOT NULL,
		car                   TEXT,
		ferry                 TEXT,
		plane                 TEXT,
		ferry_curve_direction TEXT NOT NULL,
		ferry_curve_width     REAL NOT NULL,
		created_at            TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS saved_comparisons_created_at_idx
		ON saved_comparisons (created_at DESC, id DESC);
`

// SQLiteRepository stores comparisons in an embedded SQLite database.
// Per-mode estimates are stored as JSON text.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a repository over db, typically opened with database.OpenSQLite.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// EnsureSchema creates the table and index if they do not exist.
func (r *SQLiteRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, sqliteSchema); err != nil {
		return fmt.Errorf("create saved_comparisons schema: %w", err)
	}
	return nil
}

// Create stores a new comparison.
func (r *SQLiteRepository) Create(ctx context.Context, c *SavedComparison) error {
	car, ferry, plane, err := encodeEstimates(c)
	if err != nil {
		return err
	}

	// One statement, so the count and the insert share SQLite's write lock.
	query := `
		INSERT INTO saved_comparisons (` + selectColumns + `)
		SELECT ?,
			CASE WHEN ? <> '' THEN ? ELSE 'Comparison ' || (COUNT(*) + 1) END,
			?, ?, ?, ?, ?, ?, ?
		FROM saved_comparisons
		RETURNING name
	`
	err = r.db.QueryRowContext(ctx, query,
		c.ID,
		c.Name,
		c.Name,
		c.OriginAddress,
		c.DestinationAddress,
		nullableText(car),
		nullableText(ferry),
		nullableText(plane),
		string(c.Display.FerryCurveDirection),
		c.Display.FerryCurveWidth,
		c.CreatedAt.UTC().Format(sqliteTimeLayout),
	).Scan(&c.Name)
	return err
}

// Get retrieves a comparison by ID.
func (r *SQLiteRepository) Get(ctx context.Context, id string) (*SavedComparison, error) {
	query := `SELECT ` + selectColumns + ` FROM saved_comparisons WHERE id = ?`

	c, err := r.scanComparison(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrComparisonNotFound
		}
		return nil, err
	}
	return c, nil
}

func (r *SQLiteRepository) scanComparison(row rowScanner) (*SavedComparison, error) {
	var (
		s       storedRow
		created string
	)
	if err := row.Scan(s.targets(&created)...); err != nil {
		return nil, err
	}

	t, err := time.Parse(sqliteTimeLayout, created)
	if err != nil {
		return nil, fmt.Errorf("parse created_at of %s: %w", s.c.ID, err)
	}
	s.c.CreatedAt = t
	return s.decode()
}

// List retrieves comparisons newest first.
func (r *SQLiteRepository) List(ctx context.Context, opts ListOptions) (*ListResult, error) {
	limit := opts.limit()
	fetchLimit := limit + 1

	var (
		rows *sql.Rows
		err  error
	)
	if opts.Cursor == "" {
		query := `SELECT ` + selectColumns + ` FROM saved_comparisons
			ORDER BY created_at DESC, id DESC
			LIMIT ?`
		rows, err = r.db.QueryContext(ctx, query, fetchLimit)
	} else {
		query := `SELECT ` + selectColumns + ` FROM saved_comparisons
			WHERE (created_at, id) < (SELECT created_at, id FROM saved_comparisons WHERE id = ?)
			ORDER BY created_at DESC, id DESC
			LIMIT ?`
		rows, err = r.db.QueryContext(ctx, query, opts.Cursor, fetchLimit)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*SavedComparison
	for rows.Next() {
		c, err := r.scanComparison(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return page(items, limit), nil
}

// Count returns the number of stored comparisons.
func (r *SQLiteRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM saved_comparisons`).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

// Delete removes a comparison by ID.
func (r *SQLiteRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM saved_comparisons WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrComparisonNotFound
	}
	return nil
}

func nullableText(b []byte) interface{} {
	if b == nil {
		return nil
	}
	return string(b)
}

// Ensure SQLiteRepository implements Repository interface.
var _ Repository = (*SQLiteRepository)(nil)
