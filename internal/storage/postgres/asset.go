package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/xenking/assetsrates/internal/domain/asset"
)

var _ asset.Repository = (*Repository)(nil)

// Repository provides asset and rate history persistence backed by
// PostgreSQL. History reads and retention pruning are bounded by window.
type Repository struct {
	pool   *pgxpool.Pool
	window time.Duration
}

// NewRepository returns a Repository that keeps history for the given
// window. A non-positive window keeps everything.
func NewRepository(pool *pgxpool.Pool, window time.Duration) *Repository {
	return &Repository{pool: pool, window: window}
}

// ListAssets returns all tracked assets ordered by ID.
func (r *Repository) ListAssets(ctx context.Context) ([]asset.Asset, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, symbol FROM assets ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("listing assets: %w", err)
	}
	defer rows.Close()

	var assets []asset.Asset
	for rows.Next() {
		var a asset.Asset
		if err := rows.Scan(&a.ID, &a.Symbol); err != nil {
			return nil, fmt.Errorf("scanning asset row: %w", err)
		}
		assets = append(assets, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading asset rows: %w", err)
	}

	return assets, nil
}

// GetAssetByID looks up a single asset.
// Returns asset.ErrNotFound when no such asset exists.
func (r *Repository) GetAssetByID(ctx context.Context, id int64) (*asset.Asset, error) {
	a := asset.Asset{ID: id}
	err := r.pool.QueryRow(ctx,
		`SELECT symbol FROM assets WHERE id = $1`, id,
	).Scan(&a.Symbol)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, asset.ErrNotFound
		}
		return nil, fmt.Errorf("finding asset %d: %w", id, err)
	}

	return &a, nil
}

// SavePoints batch-inserts the points and prunes rows that fell out of the
// retention window.
func (r *Repository) SavePoints(ctx context.Context, points []asset.Point) error {
	if len(points) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, p := range points {
		batch.Queue(
			`INSERT INTO rate_points (asset_id, ts, value) VALUES ($1, $2, $3)`,
			p.Asset.ID, p.Timestamp, p.Value,
		)
	}
	if err := r.pool.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("inserting %d points: %w", len(points), err)
	}

	return r.prune(ctx)
}

// History returns points for a within the retention window, newest first.
func (r *Repository) History(ctx context.Context, a asset.Asset) ([]asset.Point, error) {
	query := `SELECT ts, value FROM rate_points WHERE asset_id = $1 ORDER BY ts DESC`
	args := []any{a.ID}
	if r.window > 0 {
		query = `SELECT ts, value FROM rate_points
			WHERE asset_id = $1 AND ts >= $2 ORDER BY ts DESC`
		args = append(args, time.Now().Add(-r.window).Unix())
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying history for %s: %w", a.Symbol, err)
	}
	defer rows.Close()

	var points []asset.Point
	for rows.Next() {
		p := asset.Point{Asset: a}
		var value decimal.Decimal
		if err := rows.Scan(&p.Timestamp, &value); err != nil {
			return nil, fmt.Errorf("scanning history row: %w", err)
		}
		p.Value = value
		points = append(points, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading history rows: %w", err)
	}

	return points, nil
}

func (r *Repository) prune(ctx context.Context) error {
	if r.window <= 0 {
		return nil
	}

	cutoff := time.Now().Add(-r.window).Unix()
	if _, err := r.pool.Exec(ctx,
		`DELETE FROM rate_points WHERE ts < $1`, cutoff,
	); err != nil {
		return fmt.Errorf("pruning points older than %d: %w", cutoff, err)
	}
	return nil
}
