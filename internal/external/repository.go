package external

import (
	"context"
	"time"

	"github.com/fineflow77/btclti/internal/domain"
)

// QuoteStore persists fetched spot quotes and daily history. store.PgRepository and
// store.SQLiteRepository implement it.
type QuoteStore interface {
	SaveQuote(ctx context.Context, q domain.SpotQuote) error
	LatestQuote(ctx context.Context, currency string) (domain.SpotQuote, error)
	SaveHistory(ctx context.Context, points []domain.PricePoint) error
	History(ctx context.Context, since time.Time) ([]domain.PricePoint, error)
}

// PriceProvider is one upstream price API.
type PriceProvider interface {
	Name() string
	FetchSpot(ctx context.Context, currency string) (domain.SpotQuote, error)
	FetchHistory(ctx context.Context, days int) ([]domain.PricePoint, error)
}
