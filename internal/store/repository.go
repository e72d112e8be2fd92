// Package store caches fetched spot quotes and daily price history.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fineflow77/btclti/internal/domain"
)

// ErrNotFound indicates that no quote is stored for the requested currency.
var ErrNotFound = errors.New("quote not found")

// Repository defines persistent storage for quotes and history.
type Repository interface {
	SaveQuote(ctx context.Context, q domain.SpotQuote) error
	LatestQuote(ctx context.Context, currency string) (domain.SpotQuote, error)
	SaveHistory(ctx context.Context, points []domain.PricePoint) error
	History(ctx context.Context, since time.Time) ([]domain.PricePoint, error)
}

// PgRepository implements Repository with PostgreSQL.
type PgRepository struct {
	pool *pgxpool.Pool
}

// NewPgRepository creates a new PostgreSQL repository.
func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

func (r *PgRepository) SaveQuote(ctx context.Context, q domain.SpotQuote) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO spot_quotes (currency, price_usd, price_fiat, fetched_at)
		 VALUES ($1, $2, $3, $4)`,
		q.Currency, q.PriceUSD, q.PriceFiat, q.FetchedAt)
	if err != nil {
		return fmt.Errorf("saving quote for %s: %w", q.Currency, err)
	}
	return nil
}

func (r *PgRepository) LatestQuote(ctx context.Context, currency string) (domain.SpotQuote, error) {
	var q domain.SpotQuote
	err := r.pool.QueryRow(ctx,
		`SELECT currency, price_usd, price_fiat, fetched_at
		 FROM spot_quotes
		 WHERE currency = $1
		 ORDER BY fetched_at DESC
		 LIMIT 1`, currency).Scan(&q.Currency, &q.PriceUSD, &q.PriceFiat, &q.FetchedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.SpotQuote{}, ErrNotFound
		}
		return domain.SpotQuote{}, fmt.Errorf("getting latest quote for %s: %w", currency, err)
	}
	q.FetchedAt = q.FetchedAt.UTC()
	return q, nil
}

func (r *PgRepository) SaveHistory(ctx context.Context, points []domain.PricePoint) error {
	if len(points) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, p := range points {
		batch.Queue(
			`INSERT INTO price_history (day, price_usd) VALUES ($1, $2)
			 ON CONFLICT (day) DO UPDATE SET price_usd = $2`,
			p.Date.UTC(), p.PriceUSD)
	}
	if err := r.pool.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("saving %d history points: %w", len(points), err)
	}
	return nil
}

func (r *PgRepository) History(ctx context.Context, since time.Time) ([]domain.PricePoint, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT day, price_usd FROM price_history WHERE day >= $1 ORDER BY day`, since.UTC())
	if err != nil {
		return nil, fmt.Errorf("getting history: %w", err)
	}
	defer rows.Close()

	var points []domain.PricePoint
	for rows.Next() {
		var p domain.PricePoint
		if err := rows.Scan(&p.Date, &p.PriceUSD); err != nil {
			return nil, fmt.Errorf("scanning history point: %w", err)
		}
		p.Date = p.Date.UTC()
		points = append(points, p)
	}
	return points, rows.Err()
}
