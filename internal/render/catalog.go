package render

import (
	"fmt"
	"io"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/beequen/beequen/internal/core"
	"github.com/beequen/beequen/internal/history"
	"github.com/beequen/beequen/internal/project"
)

// Datasets writes one line per table, grouped by dataset. Datasets without
// tables still get a line.
func Datasets(w io.Writer, datasets []core.Dataset, f Format) error {
	if f == FormatJSON || f == FormatYAML {
		if datasets == nil {
			datasets = []core.Dataset{}
		}
		return Encoded(w, datasets, f)
	}
	var rows []table.Row
	for _, ds := range datasets {
		if len(ds.Tables) == 0 {
			rows = append(rows, table.Row{ds.ID, "", ""})
			continue
		}
		for _, t := range ds.Tables {
			rows = append(rows, table.Row{ds.ID, t.ID, string(t.Type)})
		}
	}
	return grid(w, f, table.Row{"Dataset", "Table", "Type"}, rows)
}

// Schema writes the columns of a table. Nested RECORD fields are listed
// with dotted names.
func Schema(w io.Writer, fields []core.Field, f Format) error {
	if f == FormatJSON || f == FormatYAML {
		if fields == nil {
			fields = []core.Field{}
		}
		return Encoded(w, fields, f)
	}
	var rows []table.Row
	flattenFields(&rows, "", fields)
	return grid(w, f, table.Row{"Column", "Type", "Mode", "Description"}, rows)
}

func flattenFields(rows *[]table.Row, prefix string, fields []core.Field) {
	for _, fd := range fields {
		name := prefix + fd.Name
		*rows = append(*rows, table.Row{name, fd.Type, fd.Mode, fd.Description})
		if len(fd.Fields) > 0 {
			flattenFields(rows, name+".", fd.Fields)
		}
	}
}

// Projects writes the stored connection profiles.
func Projects(w io.Writer, projects []*project.Project, f Format) error {
	if f == FormatJSON || f == FormatYAML {
		if projects == nil {
			projects = []*project.Project{}
		}
		return Encoded(w, projects, f)
	}
	rows := make([]table.Row, len(projects))
	for i, p := range projects {
		creds := p.CredentialsPath
		if creds == "" {
			creds = "(application default)"
		}
		rows[i] = table.Row{p.UUID, p.ProjectID, creds}
	}
	return grid(w, f, table.Row{"UUID", "Project", "Credentials"}, rows)
}

// History writes past queries, newest first as given.
func History(w io.Writer, entries []history.Entry, f Format) error {
	if f == FormatJSON || f == FormatYAML {
		if entries == nil {
			entries = []history.Entry{}
		}
		return Encoded(w, entries, f)
	}
	rows := make([]table.Row, len(entries))
	for i, e := range entries {
		outcome := string(e.Status)
		switch e.Status {
		case core.StatusCompleted:
			outcome = fmt.Sprintf("%d rows, %s", e.RowCount, Bytes(e.TotalBytesProcessed))
		case core.StatusError:
			outcome = "error: " + e.Message
		}
		started := e.StartedAt.Format("2006-01-02 15:04:05")
		if f == FormatTable {
			started = humanize.Time(e.StartedAt)
		}
		rows[i] = table.Row{e.ID, started, oneLine(e.Query, 60), outcome}
	}
	return grid(w, f, table.Row{"#", "Started", "Query", "Outcome"}, rows)
}

// oneLine collapses whitespace and cuts s to max runes.
func oneLine(s string, max int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-1]) + "…"
}
