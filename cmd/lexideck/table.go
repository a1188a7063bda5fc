package main

import (
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// column is one table column. Counts and sizes are numeric and align right.
type column struct {
	title   string
	numeric bool
}

func textColumn(title string) column { return column{title: title} }

func numericColumn(title string) column { return column{title: title, numeric: true} }

// renderTable draws rows under cols with the rounded style. Short rows are
// padded. A non-empty footer is drawn below the rows, unchanged in case, for
// totals.
func renderTable(cols []column, rows [][]string, footer []string) string {
	if len(cols) == 0 {
		return ""
	}
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.Style().Format.Footer = text.FormatDefault

	titles := make([]string, len(cols))
	configs := make([]table.ColumnConfig, len(cols))
	for i, col := range cols {
		titles[i] = col.title
		align := text.AlignLeft
		if col.numeric {
			align = text.AlignRight
		}
		configs[i] = table.ColumnConfig{Number: i + 1, Align: align, AlignFooter: align, AlignHeader: text.AlignLeft}
	}
	tw.SetColumnConfigs(configs)
	tw.AppendHeader(padRow(len(cols), titles))
	for _, row := range rows {
		tw.AppendRow(padRow(len(cols), row))
	}
	if len(footer) > 0 {
		tw.AppendFooter(padRow(len(cols), footer))
	}
	return tw.Render()
}

func padRow(width int, cells []string) table.Row {
	row := make(table.Row, width)
	for i := range row {
		row[i] = ""
		if i < len(cells) {
			row[i] = cells[i]
		}
	}
	return row
}
