package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/fineflow77/btclti/internal/domain"
	"github.com/fineflow77/btclti/internal/position"
)

// QuoteSource returns the newest spot quote.
type QuoteSource interface {
	LatestQuote(ctx context.Context) (domain.SpotQuote, error)
}

// PositionSink receives each position report, e.g. a spreadsheet log.
type PositionSink interface {
	AppendPosition(ctx context.Context, r position.Report) error
}

// PositionWorker periodically assesses the latest spot quote against the model.
type PositionWorker struct {
	quotes   QuoteSource
	variant  domain.Variant
	interval time.Duration
	sink     PositionSink // optional
}

// NewPositionWorker creates a new PositionWorker with an optional sink.
func NewPositionWorker(quotes QuoteSource, variant domain.Variant, interval time.Duration, sink PositionSink) *PositionWorker {
	return &PositionWorker{
		quotes:   quotes,
		variant:  variant,
		interval: interval,
		sink:     sink,
	}
}

// Report builds one position report from the latest quote and hands it to the sink.
func (w *PositionWorker) Report(ctx context.Context) (position.Report, error) {
	q, err := w.quotes.LatestQuote(ctx)
	if err != nil {
		return position.Report{}, fmt.Errorf("loading latest quote: %w", err)
	}
	r, err := position.ReportQuote(q, w.variant)
	if err != nil {
		return position.Report{}, fmt.Errorf("assessing quote: %w", err)
	}
	slog.Info("PositionWorker: assessed",
		"price_usd", q.PriceUSD.String(),
		"label", r.Label,
		"position", r.Position,
	)
	w.runSink(ctx, r)
	return r, nil
}

// runSink forwards the report to the sink if one is configured.
func (w *PositionWorker) runSink(ctx context.Context, r position.Report) {
	if w.sink == nil {
		return
	}
	if err := w.sink.AppendPosition(ctx, r); err != nil {
		slog.Error("PositionWorker: sink failed", "error", err)
	} else {
		slog.Info("PositionWorker: sink completed")
	}
}

// Run starts the position worker loop. It blocks until the context is cancelled.
func (w *PositionWorker) Run(ctx context.Context) {
	slog.Info("PositionWorker: starting", "variant", w.variant, "interval", w.interval)

	if _, err := w.Report(ctx); err != nil {
		slog.Error("PositionWorker: initial report failed", "error", err)
	}

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("PositionWorker: shutting down")
			return
		case <-ticker.C:
			if _, err := w.Report(ctx); err != nil {
				slog.Error("PositionWorker: report failed", "error", err)
			}
		}
	}
}
