package export

import (
	"fmt"
	"time"

	"github.com/go-pdf/fpdf"
)

const (
	pdfMargin    = 12.0
	pdfRowHeight = 6.0
)

// WritePDF renders the tables into a landscape A4 report at path.
func WritePDF(path, title string, tables ...Table) error {
	pdf := fpdf.New("L", "mm", "A4", "")
	pdf.SetMargins(pdfMargin, pdfMargin, pdfMargin)
	pdf.SetAutoPageBreak(true, pdfMargin)
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pageWidth, _ := pdf.GetPageSize()
	contentWidth := pageWidth - 2*pdfMargin

	pdf.AddPage()
	pdf.SetFont("Arial", "B", 18)
	pdf.SetTextColor(30, 58, 138)
	pdf.CellFormat(contentWidth, 10, tr(title), "", 1, "L", false, 0, "")
	pdf.SetFont("Arial", "I", 9)
	pdf.SetTextColor(120, 120, 120)
	pdf.CellFormat(contentWidth, 6, fmt.Sprintf("Generated: %s", time.Now().Format("2 January 2006")), "", 1, "L", false, 0, "")

	for _, t := range tables {
		writePDFTable(pdf, tr, t, contentWidth)
	}

	if err := pdf.OutputFileAndClose(path); err != nil {
		return fmt.Errorf("writing pdf %s: %w", path, err)
	}
	return nil
}

func writePDFTable(pdf *fpdf.Fpdf, tr func(string) string, t Table, width float64) {
	if len(t.Columns) == 0 {
		return
	}
	colWidth := width / float64(len(t.Columns))

	pdf.Ln(6)
	pdf.SetFont("Arial", "B", 12)
	pdf.SetTextColor(30, 58, 138)
	pdf.CellFormat(width, 8, tr(t.Title), "", 1, "L", false, 0, "")

	header := func() {
		pdf.SetFont("Arial", "B", 8)
		pdf.SetFillColor(30, 58, 138)
		pdf.SetTextColor(255, 255, 255)
		for _, c := range t.Columns {
			pdf.CellFormat(colWidth, pdfRowHeight+1, tr(c.Header), "1", 0, "C", true, 0, "")
		}
		pdf.Ln(-1)
	}
	header()

	_, pageHeight := pdf.GetPageSize()
	pdf.SetFont("Arial", "", 8)
	pdf.SetTextColor(50, 50, 50)
	for r := range t.Rows {
		if pdf.GetY()+pdfRowHeight > pageHeight-pdfMargin {
			pdf.AddPage()
			header()
			pdf.SetFont("Arial", "", 8)
			pdf.SetTextColor(50, 50, 50)
		}
		fill := r%2 == 1
		pdf.SetFillColor(245, 247, 250)
		for c, col := range t.Columns {
			align := "R"
			if col.Kind == KindText {
				align = "C"
			}
			pdf.CellFormat(colWidth, pdfRowHeight, tr(t.Cell(r, c)), "LR", 0, align, fill, 0, "")
		}
		pdf.Ln(-1)
	}
	pdf.CellFormat(width, 0, "", "T", 1, "", false, 0, "")
}
