package export

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"
)

// sheetNameLimit is Excel's maximum sheet name length.
const sheetNameLimit = 31

type xlsxStyles struct {
	header  int
	fiat    int
	btc     int
	percent int
	text    int
}

// WriteXLSX writes each table to its own sheet of a new workbook at path.
func WriteXLSX(path string, tables ...Table) error {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating directory %s: %w", dir, err)
		}
	}

	fx := excelize.NewFile()
	defer fx.Close()

	styles, err := newXLSXStyles(fx)
	if err != nil {
		return fmt.Errorf("creating xlsx styles: %w", err)
	}

	for i, t := range tables {
		name := sheetName(t.Title, i)
		if i == 0 {
			if err := fx.SetSheetName(fx.GetSheetName(0), name); err != nil {
				return fmt.Errorf("renaming sheet: %w", err)
			}
		} else if _, err := fx.NewSheet(name); err != nil {
			return fmt.Errorf("creating sheet %s: %w", name, err)
		}
		if err := writeSheet(fx, name, t, styles); err != nil {
			return fmt.Errorf("writing sheet %s: %w", name, err)
		}
	}

	if err := fx.SaveAs(path); err != nil {
		return fmt.Errorf("saving %s: %w", path, err)
	}
	return nil
}

func sheetName(title string, i int) string {
	if title == "" {
		title = fmt.Sprintf("Sheet%d", i+1)
	}
	if len(title) > sheetNameLimit {
		title = title[:sheetNameLimit]
	}
	return title
}

func newXLSXStyles(fx *excelize.File) (xlsxStyles, error) {
	var s xlsxStyles
	var err error

	border := []excelize.Border{
		{Type: "left", Color: "E0E0E0", Style: 1},
		{Type: "right", Color: "E0E0E0", Style: 1},
		{Type: "bottom", Color: "E0E0E0", Style: 1},
	}
	fiatFmt := "#,##0.00"
	btcFmt := "0.00000000"
	pctFmt := "0.00\"%\""

	if s.header, err = fx.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"1E3A8A"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center", WrapText: true},
	}); err != nil {
		return s, err
	}
	if s.fiat, err = fx.NewStyle(&excelize.Style{CustomNumFmt: &fiatFmt, Border: border}); err != nil {
		return s, err
	}
	if s.btc, err = fx.NewStyle(&excelize.Style{CustomNumFmt: &btcFmt, Border: border}); err != nil {
		return s, err
	}
	if s.percent, err = fx.NewStyle(&excelize.Style{CustomNumFmt: &pctFmt, Border: border}); err != nil {
		return s, err
	}
	if s.text, err = fx.NewStyle(&excelize.Style{
		Alignment: &excelize.Alignment{Horizontal: "center"},
		Border:    border,
	}); err != nil {
		return s, err
	}
	return s, nil
}

func (s xlsxStyles) forKind(k ColumnKind) int {
	switch k {
	case KindFiat, KindUSD:
		return s.fiat
	case KindBTC:
		return s.btc
	case KindPercent:
		return s.percent
	default:
		return s.text
	}
}

func writeSheet(fx *excelize.File, sheet string, t Table, styles xlsxStyles) error {
	for c, col := range t.Columns {
		cell, err := excelize.CoordinatesToCellName(c+1, 1)
		if err != nil {
			return err
		}
		if err := fx.SetCellValue(sheet, cell, col.Header); err != nil {
			return err
		}
		if err := fx.SetCellStyle(sheet, cell, cell, styles.header); err != nil {
			return err
		}
		colName, err := excelize.ColumnNumberToName(c + 1)
		if err != nil {
			return err
		}
		if err := fx.SetColWidth(sheet, colName, colName, 18); err != nil {
			return err
		}
	}

	for r, row := range t.Rows {
		for c, v := range row {
			cell, err := excelize.CoordinatesToCellName(c+1, r+2)
			if err != nil {
				return err
			}
			if v == nil {
				v = placeholder
			}
			if err := fx.SetCellValue(sheet, cell, v); err != nil {
				return err
			}
			if err := fx.SetCellStyle(sheet, cell, cell, styles.forKind(t.Columns[c].Kind)); err != nil {
				return err
			}
		}
	}

	return fx.SetPanes(sheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	})
}
