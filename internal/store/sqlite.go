package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/fineflow77/btclti/internal/domain"
)

const dayLayout = "2006-01-02"

// SQLiteRepository implements Repository on a database opened by database.OpenSQLite.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a new SQLite repository.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) SaveQuote(ctx context.Context, q domain.SpotQuote) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO spot_quotes (currency, price_usd, price_fiat, fetched_at) VALUES (?, ?, ?, ?)`,
		q.Currency, q.PriceUSD.String(), q.PriceFiat.String(), q.FetchedAt.UTC().UnixMilli())
	if err != nil {
		return fmt.Errorf("saving quote for %s: %w", q.Currency, err)
	}
	return nil
}

func (r *SQLiteRepository) LatestQuote(ctx context.Context, currency string) (domain.SpotQuote, error) {
	var (
		q         domain.SpotQuote
		usd, fiat string
		fetchedAt int64
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT currency, price_usd, price_fiat, fetched_at
		 FROM spot_quotes
		 WHERE currency = ?
		 ORDER BY fetched_at DESC
		 LIMIT 1`, currency).Scan(&q.Currency, &usd, &fiat, &fetchedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.SpotQuote{}, ErrNotFound
		}
		return domain.SpotQuote{}, fmt.Errorf("getting latest quote for %s: %w", currency, err)
	}

	if q.PriceUSD, err = decimal.NewFromString(usd); err != nil {
		return domain.SpotQuote{}, fmt.Errorf("parsing stored usd price %q: %w", usd, err)
	}
	if q.PriceFiat, err = decimal.NewFromString(fiat); err != nil {
		return domain.SpotQuote{}, fmt.Errorf("parsing stored fiat price %q: %w", fiat, err)
	}
	q.FetchedAt = time.UnixMilli(fetchedAt).UTC()
	return q, nil
}

func (r *SQLiteRepository) SaveHistory(ctx context.Context, points []domain.PricePoint) error {
	if len(points) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin history tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO price_history (day, price_usd) VALUES (?, ?)
		 ON CONFLICT(day) DO UPDATE SET price_usd = excluded.price_usd`)
	if err != nil {
		return fmt.Errorf("preparing history upsert: %w", err)
	}
	defer stmt.Close()

	for _, p := range points {
		if _, err := stmt.ExecContext(ctx, p.Date.UTC().Format(dayLayout), p.PriceUSD); err != nil {
			return fmt.Errorf("saving history point %s: %w", p.Date.Format(dayLayout), err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing history: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) History(ctx context.Context, since time.Time) ([]domain.PricePoint, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT day, price_usd FROM price_history WHERE day >= ? ORDER BY day`,
		since.UTC().Format(dayLayout))
	if err != nil {
		return nil, fmt.Errorf("getting history: %w", err)
	}
	defer rows.Close()

	var points []domain.PricePoint
	for rows.Next() {
		var (
			day string
			p   domain.PricePoint
		)
		if err := rows.Scan(&day, &p.PriceUSD); err != nil {
			return nil, fmt.Errorf("scanning history point: %w", err)
		}
		if p.Date, err = time.Parse(dayLayout, day); err != nil {
			return nil, fmt.Errorf("parsing stored day %q: %w", day, err)
		}
		points = append(points, p)
	}
	return points, rows.Err()
}
