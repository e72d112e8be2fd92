package export

import (
	"context"
	"fmt"

	sheets "google.golang.org/api/sheets/v4"

	"github.com/fineflow77/btclti/internal/position"
)

const positionSheet = "POSITION"

// positionHeaders are the columns of the POSITION log, one row per refresh.
var positionHeaders = []any{
	"Date", "Variant", "Currency", "Price", "Price USD",
	"Median USD", "Support USD", "Position %", "Label", "Near support",
}

func buildPositionRow(r position.Report) []any {
	return []any{
		r.Date.UTC().Format("2006-01-02 15:04"),
		string(r.Variant),
		r.Currency,
		r.PriceFiat,
		r.PriceUSD,
		r.MedianUSD,
		r.SupportUSD,
		r.Position,
		r.Label,
		r.NearSupport,
	}
}

// AppendPosition ensures the POSITION sheet exists, writes the header row if the sheet is
// new or empty, then appends one row for r.
func (w *SheetsWriter) AppendPosition(ctx context.Context, r position.Report) error {
	meta, err := w.ensureSheets(ctx, positionSheet)
	if err != nil {
		return fmt.Errorf("ensuring %s sheet: %w", positionSheet, err)
	}

	existing, err := w.svc.Spreadsheets.Values.Get(w.spreadsheetID, positionSheet+"!A1").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("reading %s header: %w", positionSheet, err)
	}

	if len(existing.Values) == 0 {
		_, err = w.svc.Spreadsheets.Values.Update(
			w.spreadsheetID,
			positionSheet+"!A1",
			&sheets.ValueRange{Values: [][]any{positionHeaders}},
		).ValueInputOption("USER_ENTERED").Context(ctx).Do()
		if err != nil {
			return fmt.Errorf("writing %s header: %w", positionSheet, err)
		}
		if err := w.formatPositionSheet(ctx, meta[positionSheet]); err != nil {
			return fmt.Errorf("formatting %s sheet: %w", positionSheet, err)
		}
	}

	_, err = w.svc.Spreadsheets.Values.Append(
		w.spreadsheetID,
		positionSheet+"!A:J",
		&sheets.ValueRange{Values: [][]any{buildPositionRow(r)}},
	).ValueInputOption("USER_ENTERED").InsertDataOption("INSERT_ROWS").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("appending %s row: %w", positionSheet, err)
	}

	return nil
}

// formatPositionSheet styles the header row, freezes it and formats the price columns.
func (w *SheetsWriter) formatPositionSheet(ctx context.Context, m sheetMeta) error {
	// #1E3A8A, the buying-opportunity blue
	headerBlue := &sheets.Color{Red: 0.118, Green: 0.227, Blue: 0.541}
	white := &sheets.Color{Red: 1, Green: 1, Blue: 1}
	cols := int64(len(positionHeaders))

	reqs := []*sheets.Request{
		cellFormatReq(m.id, 0, 1, 0, cols,
			&sheets.CellFormat{
				BackgroundColor:     headerBlue,
				TextFormat:          &sheets.TextFormat{Bold: true, ForegroundColor: white},
				HorizontalAlignment: "CENTER",
			},
			"userEnteredFormat(backgroundColor,textFormat,horizontalAlignment)"),
		cellFormatReq(m.id, 1, 100000, 3, 7,
			&sheets.CellFormat{NumberFormat: &sheets.NumberFormat{Type: "NUMBER", Pattern: "#,##0.00"}},
			"userEnteredFormat.numberFormat"),
		cellFormatReq(m.id, 1, 100000, 7, 8,
			&sheets.CellFormat{NumberFormat: &sheets.NumberFormat{Type: "NUMBER", Pattern: "0.0"}},
			"userEnteredFormat.numberFormat"),
		{
			UpdateSheetProperties: &sheets.UpdateSheetPropertiesRequest{
				Properties: &sheets.SheetProperties{
					SheetId:        m.id,
					GridProperties: &sheets.GridProperties{FrozenRowCount: 1},
				},
				Fields: "gridProperties.frozenRowCount",
			},
		},
	}

	for _, bid := range m.bandingIDs {
		reqs = append(reqs, &sheets.Request{
			DeleteBanding: &sheets.DeleteBandingRequest{BandedRangeId: bid},
		})
	}

	_, err := w.svc.Spreadsheets.BatchUpdate(
		w.spreadsheetID,
		&sheets.BatchUpdateSpreadsheetRequest{Requests: reqs},
	).Context(ctx).Do()
	return err
}
