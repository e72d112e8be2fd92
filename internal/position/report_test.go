package position

import (
	"math"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/fineflow77/btclti/internal/domain"
	"github.com/fineflow77/btclti/internal/powerlaw"
)

func TestAssessAtMedianIsFairValue(t *testing.T) {
	date := time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC)
	median, err := powerlaw.MedianPriceUSD(domain.DaysSinceGenesis(date), domain.VariantStandard)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	a, err := AssessAt(median, date, domain.VariantStandard)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if math.Abs(a.Position) > 1e-9 {
		t.Errorf("Position = %v, want 0", a.Position)
	}
	if a.Label != BandFairValue.Label {
		t.Errorf("Label = %q, want %q", a.Label, BandFairValue.Label)
	}
	if a.NearSupport {
		t.Error("median price flagged near support")
	}
}

func TestAssessAtBeforeGenesis(t *testing.T) {
	if _, err := AssessAt(1, time.Date(2008, 1, 1, 0, 0, 0, 0, time.UTC), domain.VariantStandard); err == nil {
		t.Fatal("expected domain error before genesis")
	}
}

func TestReportQuote(t *testing.T) {
	q := domain.SpotQuote{
		Currency:  "jpy",
		PriceUSD:  decimal.NewFromInt(50000),
		PriceFiat: decimal.NewFromInt(7500000),
		FetchedAt: time.Date(2025, time.June, 1, 8, 0, 0, 0, time.UTC),
	}
	r, err := ReportQuote(q, domain.VariantConservative)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Currency != "jpy" || r.PriceFiat != 7500000 || r.PriceUSD != 50000 {
		t.Errorf("report = %+v", r)
	}
	if r.Position >= 0 {
		t.Errorf("Position = %v, want below median", r.Position)
	}
}
