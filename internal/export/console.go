package export

import (
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// WriteConsole renders t as a rounded box table.
func WriteConsole(w io.Writer, t Table) {
	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.SetTitle(t.Title)
	tw.SetStyle(table.StyleRounded)

	header := make(table.Row, len(t.Columns))
	configs := make([]table.ColumnConfig, len(t.Columns))
	for i, c := range t.Columns {
		header[i] = c.Header
		align := text.AlignRight
		if c.Kind == KindText {
			align = text.AlignLeft
		}
		configs[i] = table.ColumnConfig{Number: i + 1, Align: align}
	}
	tw.AppendHeader(header)
	tw.SetColumnConfigs(configs)

	for r := range t.Rows {
		row := make(table.Row, len(t.Columns))
		for c := range t.Columns {
			row[c] = t.Cell(r, c)
		}
		tw.AppendRow(row)
	}
	tw.Render()
}
