package main

import (
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// column describes one rendered column. Numeric columns are right aligned;
// a positive MaxWidth cuts longer cells with an ellipsis.
type column struct {
	Title    string
	Numeric  bool
	MaxWidth int
}

func columns(titles ...string) []column {
	cols := make([]column, len(titles))
	for i, title := range titles {
		cols[i] = column{Title: title}
	}
	return cols
}

// renderTable draws rows under cols. Missing cells render blank, extra cells
// are dropped, and columns with no content in any row are left out. A footer
// is shown only when given.
func renderTable(cols []column, rows [][]string, footer ...string) string {
	if len(cols) == 0 {
		return ""
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.SuppressEmptyColumns()

	tw.AppendHeader(fitRow(cols, nil, func(c column, _ string) string { return c.Title }))
	for _, row := range rows {
		tw.AppendRow(fitRow(cols, row, func(c column, cell string) string {
			if c.MaxWidth > 0 {
				return truncate(cell, c.MaxWidth)
			}
			return cell
		}))
	}
	if len(footer) > 0 {
		tw.AppendFooter(fitRow(cols, footer, func(_ column, cell string) string { return cell }))
	}

	configs := make([]table.ColumnConfig, len(cols))
	for i, c := range cols {
		align := text.AlignLeft
		if c.Numeric {
			align = text.AlignRight
		}
		configs[i] = table.ColumnConfig{
			Number:      i + 1,
			Align:       align,
			AlignFooter: align,
			AlignHeader: text.AlignLeft,
		}
	}
	tw.SetColumnConfigs(configs)

	return tw.Render()
}

func fitRow(cols []column, cells []string, cell func(column, string) string) table.Row {
	row := make(table.Row, len(cols))
	for i, c := range cols {
		value := ""
		if i < len(cells) {
			value = cells[i]
		}
		row[i] = cell(c, value)
	}
	return row
}
