// Package export renders simulation ledgers and projections as tables for the console,
// XLSX, PDF and Google Sheets.
package export

import (
	"context"
	"fmt"
	"slices"
	"strconv"
	"time"

	"github.com/samber/lo"

	"github.com/fineflow77/btclti/internal/domain"
	"github.com/fineflow77/btclti/internal/position"
	"github.com/fineflow77/btclti/internal/powerlaw"
	"github.com/fineflow77/btclti/internal/simulation"
)

// ColumnKind selects how a column's cells are formatted.
type ColumnKind int

const (
	KindText ColumnKind = iota
	KindInt
	KindFiat
	KindUSD
	KindBTC
	KindPercent
)

// placeholder is shown for cells with no value, such as withdrawals before the start year.
const placeholder = "—"

// Column is one table column.
type Column struct {
	Header string
	Kind   ColumnKind
}

// Table is a titled grid of raw cell values. A nil cell renders as a placeholder.
type Table struct {
	Title   string
	Columns []Column
	Rows    [][]any
}

// Headers returns the column headers in order.
func (t Table) Headers() []string {
	return lo.Map(t.Columns, func(c Column, _ int) string { return c.Header })
}

// Cell formats the value at row, col for text output.
func (t Table) Cell(row, col int) string {
	return formatCell(t.Columns[col].Kind, t.Rows[row][col])
}

// TableWriter writes tables to a spreadsheet destination.
type TableWriter interface {
	Write(ctx context.Context, tables ...Table) error
}

func formatCell(kind ColumnKind, v any) string {
	if v == nil {
		return placeholder
	}
	switch x := v.(type) {
	case string:
		return x
	case int:
		return strconv.Itoa(x)
	case float64:
		switch kind {
		case KindFiat, KindUSD:
			return domain.RoundFiat(x).StringFixed(2)
		case KindBTC:
			return domain.FormatBTC(x)
		case KindPercent:
			return strconv.FormatFloat(x, 'f', 2, 64) + "%"
		default:
			return strconv.FormatFloat(x, 'f', -1, 64)
		}
	default:
		return fmt.Sprint(x)
	}
}

// AccumulationTable lays out an accumulation ledger.
func AccumulationTable(records []simulation.AccumulationRecord, currency string) Table {
	return Table{
		Title: "Accumulation",
		Columns: []Column{
			{"Year", KindInt},
			{"BTC price (" + currency + ")", KindFiat},
			{"Annual contribution", KindFiat},
			{"BTC purchased", KindBTC},
			{"BTC held", KindBTC},
			{"Total value", KindFiat},
			{"Contributing", KindText},
		},
		Rows: lo.Map(records, func(r simulation.AccumulationRecord, _ int) []any {
			return []any{
				r.Year,
				r.BTCPriceFiat,
				r.AnnualContributionFiat,
				r.BTCPurchased,
				r.BTCHeld,
				r.TotalValueFiat,
				lo.Ternary(r.InContributionWindow, "yes", "no"),
			}
		}),
	}
}

// DecumulationTable lays out a decumulation ledger. Years without a withdrawal show
// placeholders in the withdrawal columns.
func DecumulationTable(records []simulation.DecumulationRecord, currency string) Table {
	return Table{
		Title: "Decumulation",
		Columns: []Column{
			{"Year", KindInt},
			{"BTC price (" + currency + ")", KindFiat},
			{"Withdrawal rate", KindPercent},
			{"Withdrawal value", KindFiat},
			{"Withdrawal BTC", KindBTC},
			{"Remaining BTC", KindBTC},
			{"Total value", KindFiat},
			{"Phase", KindText},
		},
		Rows: lo.Map(records, func(r simulation.DecumulationRecord, _ int) []any {
			row := []any{r.Year, r.BTCPriceFiat, nil, nil, nil, r.RemainingBTC, r.TotalValueFiat, string(r.Phase)}
			if w := r.Withdrawal; w != nil {
				row[2], row[3], row[4] = w.EffectiveRate, w.ValueFiat, w.BTC
			}
			return row
		}),
	}
}

// ProjectionTable lays out yearly model prices.
func ProjectionTable(points []powerlaw.ProjectedPrice, variant domain.Variant) Table {
	return Table{
		Title: "Projection (" + string(variant) + ")",
		Columns: []Column{
			{"Year", KindInt},
			{"Day", KindInt},
			{"Median (USD)", KindUSD},
			{"Support (USD)", KindUSD},
		},
		Rows: lo.Map(points, func(p powerlaw.ProjectedPrice, _ int) []any {
			return []any{p.Year, p.Day, p.MedianUSD, p.SupportUSD}
		}),
	}
}

// PositionTable lays out a position report as field/value pairs.
func PositionTable(r position.Report) Table {
	rows := [][]any{
		{"Date", r.Date.Format(time.DateOnly)},
		{"Variant", string(r.Variant)},
		{"Price (USD)", domain.RoundFiat(r.PriceUSD).StringFixed(2)},
		{"Median (USD)", domain.RoundFiat(r.MedianUSD).StringFixed(2)},
		{"Support (USD)", domain.RoundFiat(r.SupportUSD).StringFixed(2)},
		{"Position", strconv.FormatFloat(r.Position, 'f', 1, 64) + "%"},
		{"Assessment", r.Label},
		{"Near support", lo.Ternary(r.NearSupport, "yes", "no")},
	}
	if r.Currency != "" {
		rows = slices.Insert(rows, 3, []any{"Price (" + r.Currency + ")", domain.RoundFiat(r.PriceFiat).StringFixed(2)})
	}
	return Table{
		Title:   "Position",
		Columns: []Column{{"Field", KindText}, {"Value", KindText}},
		Rows:    rows,
	}
}
