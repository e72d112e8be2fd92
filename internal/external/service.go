package external

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/fineflow77/btclti/internal/domain"
	"github.com/fineflow77/btclti/internal/metrics"
	"github.com/fineflow77/btclti/internal/store"
)

// ErrNoProviders is returned when a fetch is attempted without any configured provider.
var ErrNoProviders = errors.New("no price providers configured")

const historyStaleAfter = 48 * time.Hour

// Service fetches quotes and history from the first provider that answers, stores them and
// serves them back to the simulation boundary.
type Service struct {
	providers   []PriceProvider
	repo        QuoteStore
	cache       *quoteCache
	currency    string
	historyDays int
	staleAfter  time.Duration
}

// NewService creates a new Service. Providers are tried in order.
func NewService(repo QuoteStore, currency string, historyDays int, staleAfter time.Duration, providers ...PriceProvider) *Service {
	return &Service{
		providers:   providers,
		repo:        repo,
		cache:       newQuoteCache(staleAfter),
		currency:    currency,
		historyDays: historyDays,
		staleAfter:  staleAfter,
	}
}

// Currency returns the local currency quotes are fetched in.
func (s *Service) Currency() string {
	return s.currency
}

// FetchAndStoreQuotes fetches the spot quote and daily history and stores both.
func (s *Service) FetchAndStoreQuotes(ctx context.Context) error {
	if _, err := s.refreshQuote(ctx); err != nil {
		return err
	}
	if _, err := s.refreshHistory(ctx); err != nil {
		return err
	}
	return nil
}

// LatestQuote returns the newest spot quote, fetching a fresh one when the stored quote is
// missing or older than the staleness threshold.
func (s *Service) LatestQuote(ctx context.Context) (domain.SpotQuote, error) {
	if q, ok := s.cache.get(s.currency); ok {
		return q, nil
	}

	q, err := s.repo.LatestQuote(ctx, s.currency)
	switch {
	case err == nil && time.Since(q.FetchedAt) <= s.staleAfter:
		s.cache.set(q)
		return q, nil
	case err != nil && !errors.Is(err, store.ErrNotFound):
		return domain.SpotQuote{}, fmt.Errorf("loading stored quote: %w", err)
	}

	fresh, fetchErr := s.refreshQuote(ctx)
	if fetchErr != nil {
		if err == nil {
			slog.Warn("external: serving stale quote", "fetchedAt", q.FetchedAt, "error", fetchErr)
			return q, nil
		}
		return domain.SpotQuote{}, fetchErr
	}
	return fresh, nil
}

// History returns stored daily closes for the configured window, fetching them when the
// store is empty or its newest close is older than two days.
func (s *Service) History(ctx context.Context) ([]domain.PricePoint, error) {
	since := time.Now().UTC().AddDate(0, 0, -s.historyDays)
	points, err := s.repo.History(ctx, since)
	if err != nil {
		return nil, fmt.Errorf("loading stored history: %w", err)
	}
	if n := len(points); n > 0 && time.Since(points[n-1].Date) <= historyStaleAfter {
		return points, nil
	}

	fresh, err := s.refreshHistory(ctx)
	if err != nil {
		if len(points) > 0 {
			slog.Warn("external: serving stale history", "points", len(points), "error", err)
			return points, nil
		}
		return nil, err
	}
	return fresh, nil
}

func (s *Service) refreshQuote(ctx context.Context) (domain.SpotQuote, error) {
	if len(s.providers) == 0 {
		return domain.SpotQuote{}, ErrNoProviders
	}

	var errs []error
	for _, p := range s.providers {
		q, err := p.FetchSpot(ctx, s.currency)
		if err != nil {
			metrics.RecordFetchFailure(p.Name(), "spot")
			slog.Warn("external: spot fetch failed", "provider", p.Name(), "error", err)
			errs = append(errs, fmt.Errorf("%s: %w", p.Name(), err))
			continue
		}
		if err := s.repo.SaveQuote(ctx, q); err != nil {
			return domain.SpotQuote{}, fmt.Errorf("storing quote: %w", err)
		}
		s.cache.set(q)
		metrics.UpdateSpotPrice(q.Currency, q.PriceFiat.InexactFloat64())
		return q, nil
	}
	return domain.SpotQuote{}, fmt.Errorf("fetching spot quote: %w", errors.Join(errs...))
}

func (s *Service) refreshHistory(ctx context.Context) ([]domain.PricePoint, error) {
	if len(s.providers) == 0 {
		return nil, ErrNoProviders
	}

	var errs []error
	for _, p := range s.providers {
		points, err := p.FetchHistory(ctx, s.historyDays)
		if err != nil {
			metrics.RecordFetchFailure(p.Name(), "history")
			slog.Warn("external: history fetch failed", "provider", p.Name(), "error", err)
			errs = append(errs, fmt.Errorf("%s: %w", p.Name(), err))
			continue
		}
		if err := s.repo.SaveHistory(ctx, points); err != nil {
			return nil, fmt.Errorf("storing history: %w", err)
		}
		return points, nil
	}
	return nil, fmt.Errorf("fetching history: %w", errors.Join(errs...))
}
