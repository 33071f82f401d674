package tui

import (
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/lipgloss"

	"github.com/beequen/beequen/internal/core"
	"github.com/beequen/beequen/internal/render"
)

const (
	minColumnWidth = 4
	maxColumnWidth = 40
	// widthSampleRows bounds how many rows are measured for column widths.
	widthSampleRows = 200
)

// resultTable converts a job result into table columns and rows.
func resultTable(r *core.JobResult) ([]table.Column, []table.Row) {
	if r == nil {
		return nil, nil
	}
	names := r.ColumnNames()
	cols := make([]table.Column, len(names))
	for i, name := range names {
		cols[i] = table.Column{Title: name, Width: lipgloss.Width(name)}
	}

	rows := make([]table.Row, len(r.Rows))
	for i, row := range r.Rows {
		cells := make(table.Row, len(names))
		for j, name := range names {
			cells[j] = oneLine(render.Value(row[name]))
			if i < widthSampleRows {
				cols[j].Width = max(cols[j].Width, lipgloss.Width(cells[j]))
			}
		}
		rows[i] = cells
	}
	for i := range cols {
		cols[i].Width = min(max(cols[i].Width, minColumnWidth), maxColumnWidth)
	}
	return cols, rows
}

// newResultsTable builds the results widget with the package styles.
func newResultsTable() table.Model {
	t := table.New(table.WithFocused(false))
	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(ColorBorder).
		BorderBottom(true).
		Bold(true)
	s.Selected = s.Selected.
		Foreground(ColorText).
		Background(ColorHighlight).
		Bold(false)
	t.SetStyles(s)
	return t
}

// setResult replaces the content of t. Rows are cleared first because the
// table renders every row against the current columns.
func setResult(t *table.Model, r *core.JobResult) {
	cols, rows := resultTable(r)
	t.SetRows(nil)
	t.SetColumns(cols)
	t.SetRows(rows)
	t.GotoTop()
}
