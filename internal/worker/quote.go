package worker

import (
	"context"
	"log/slog"
	"time"
)

// QuoteFetcher fetches the spot quote and price history and stores them.
type QuoteFetcher interface {
	FetchAndStoreQuotes(ctx context.Context) error
}

// QuoteWorker periodically refreshes the cached spot quote and daily history.
type QuoteWorker struct {
	fetcher  QuoteFetcher
	interval time.Duration
	timeout  time.Duration
}

// NewQuoteWorker creates a new QuoteWorker. Each refresh is bounded by timeout; zero means
// no bound beyond ctx.
func NewQuoteWorker(fetcher QuoteFetcher, interval, timeout time.Duration) *QuoteWorker {
	return &QuoteWorker{
		fetcher:  fetcher,
		interval: interval,
		timeout:  timeout,
	}
}

func (w *QuoteWorker) refresh(ctx context.Context) error {
	if w.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, w.timeout)
		defer cancel()
	}
	return w.fetcher.FetchAndStoreQuotes(ctx)
}

// Run starts the quote worker loop. It blocks until the context is cancelled.
func (w *QuoteWorker) Run(ctx context.Context) {
	slog.Info("QuoteWorker: starting", "interval", w.interval)

	// Refresh immediately on startup
	start := time.Now()
	if err := w.refresh(ctx); err != nil {
		slog.Error("QuoteWorker: initial refresh failed", "error", err)
	} else {
		slog.Info("QuoteWorker: initial refresh completed", "elapsed", time.Since(start))
	}

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("QuoteWorker: shutting down")
			return
		case <-ticker.C:
			start := time.Now()
			if err := w.refresh(ctx); err != nil {
				slog.Error("QuoteWorker: refresh failed", "error", err)
			} else {
				slog.Info("QuoteWorker: refresh completed", "elapsed", time.Since(start))
			}
		}
	}
}
