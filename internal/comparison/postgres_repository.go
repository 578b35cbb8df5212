package comparison

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const postgresSchema = `
	CREATE TABLE IF NOT EXISTS saved_comparisons (
		id                    TEXT PRIMARY KEY,
		name                  TEXT NOT NULL,
		origin_address        TEXT NOT NULL,
		destination_address   TEXT NOT NULL,
		car                   JSONB,
		ferry                 JSONB,
		plane                 JSONB,
		ferry_curve_direction TEXT NOT NULL,
		ferry_curve_width     DOUBLE PRECISION NOT NULL,
		created_at            TIMESTAMPTZ NOT NULL
	);
	CREATE INDEX IF NOT EXISTS saved_comparisons_created_at_idx
		ON saved_comparisons (created_at DESC, id DESC);
`

const selectColumns = `
	id, name, origin_address, destination_address,
	car, ferry, plane,
	ferry_curve_direction, ferry_curve_width,
	created_at
`

// PostgresRepository is a PostgreSQL implementation of Repository.
// Per-mode estimates are stored as JSONB.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a new PostgreSQL comparison repository.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

// EnsureSchema creates the table and index if they do not exist.
func (r *PostgresRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.pool.Exec(ctx, postgresSchema); err != nil {
		return fmt.Errorf("create saved_comparisons schema: %w", err)
	}
	return nil
}

// autoNameLockKey serializes unnamed inserts so each counts the ones before it.
const autoNameLockKey = 0x52525f4e414d45

// Create stores a new comparison. Unnamed comparisons take a transaction-scoped
// advisory lock before counting.
func (r *PostgresRepository) Create(ctx context.Context, c *SavedComparison) error {
	car, ferry, plane, err := encodeEstimates(c)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO saved_comparisons (` + selectColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		name := c.Name
		if name == "" {
			if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(autoNameLockKey)); err != nil {
				return fmt.Errorf("lock comparison names: %w", err)
			}
			var n int
			if err := tx.QueryRow(ctx, `SELECT COUNT(*) FROM saved_comparisons`).Scan(&n); err != nil {
				return fmt.Errorf("count comparisons: %w", err)
			}
			name = AutoName(n + 1)
		}

		if _, err := tx.Exec(ctx, query,
			c.ID,
			name,
			c.OriginAddress,
			c.DestinationAddress,
			car,
			ferry,
			plane,
			string(c.Display.FerryCurveDirection),
			c.Display.FerryCurveWidth,
			c.CreatedAt,
		); err != nil {
			return err
		}
		c.Name = name
		return nil
	})
}

// Get retrieves a comparison by ID.
func (r *PostgresRepository) Get(ctx context.Context, id string) (*SavedComparison, error) {
	query := `SELECT ` + selectColumns + ` FROM saved_comparisons WHERE id = $1`

	c, err := r.scanComparison(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrComparisonNotFound
		}
		return nil, err
	}
	return c, nil
}

func (r *PostgresRepository) scanComparison(row rowScanner) (*SavedComparison, error) {
	var s storedRow
	if err := row.Scan(s.targets(&s.c.CreatedAt)...); err != nil {
		return nil, err
	}
	return s.decode()
}

// List retrieves comparisons newest first.
func (r *PostgresRepository) List(ctx context.Context, opts ListOptions) (*ListResult, error) {
	limit := opts.limit()
	// Fetch one extra to determine if there are more results
	fetchLimit := limit + 1

	var (
		rows pgx.Rows
		err  error
	)
	if opts.Cursor == "" {
		query := `SELECT ` + selectColumns + ` FROM saved_comparisons
			ORDER BY created_at DESC, id DESC
			LIMIT $1`
		rows, err = r.pool.Query(ctx, query, fetchLimit)
	} else {
		query := `SELECT ` + selectColumns + ` FROM saved_comparisons
			WHERE (created_at, id) < (SELECT created_at, id FROM saved_comparisons WHERE id = $1)
			ORDER BY created_at DESC, id DESC
			LIMIT $2`
		rows, err = r.pool.Query(ctx, query, opts.Cursor, fetchLimit)
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
func (r *PostgresRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM saved_comparisons`).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

// Delete removes a comparison by ID.
func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM saved_comparisons WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return ErrComparisonNotFound
	}
	return nil
}

// Ensure PostgresRepository implements Repository interface.
var _ Repository = (*PostgresRepository)(nil)
