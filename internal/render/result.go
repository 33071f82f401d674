package render

import (
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"gopkg.in/yaml.v3"

	"github.com/beequen/beequen/internal/core"
)

// Stats summarizes a finished job, e.g. "3 rows, 1.2 MiB processed, 15 slot ms".
func Stats(r *core.JobResult) string {
	if r == nil {
		return ""
	}
	s := fmt.Sprintf("%d rows, %s processed, %d slot ms",
		len(r.Rows), Bytes(r.Metadata.TotalBytesProcessed), r.Metadata.TotalSlotMs)
	if r.Truncated {
		s += " (truncated)"
	}
	return s
}

// Result writes the rows of r. The table format ends with the Stats line.
func Result(w io.Writer, r *core.JobResult, f Format) error {
	if r == nil {
		r = &core.JobResult{}
	}
	cols := r.ColumnNames()

	switch f {
	case FormatJSON:
		rows := r.Rows
		if rows == nil {
			rows = []core.Row{}
		}
		return writeJSON(w, rows)
	case FormatYAML:
		return writeYAML(w, orderedRows(cols, r.Rows))
	}

	if f == FormatTable && len(r.Rows) == 0 {
		_, err := fmt.Fprintf(w, "(0 rows)\n%s\n", Stats(r))
		return err
	}

	header := make(table.Row, len(cols))
	for i, c := range cols {
		header[i] = c
	}
	rows := make([]table.Row, len(r.Rows))
	for i, row := range r.Rows {
		out := make(table.Row, len(cols))
		for j, c := range cols {
			out[j] = Value(row[c])
		}
		rows[i] = out
	}
	if err := grid(w, f, header, rows); err != nil {
		return err
	}
	if f == FormatTable {
		_, err := fmt.Fprintln(w, Stats(r))
		return err
	}
	return nil
}

// orderedRows builds a YAML sequence whose mappings keep column order.
func orderedRows(cols []string, rows []core.Row) *yaml.Node {
	seq := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
	for _, row := range rows {
		m := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
		for _, c := range cols {
			var val yaml.Node
			if err := val.Encode(row[c]); err != nil {
				val = yaml.Node{Kind: yaml.ScalarNode, Value: Value(row[c])}
			}
			m.Content = append(m.Content,
				&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: c}, &val)
		}
		seq.Content = append(seq.Content, m)
	}
	return seq
}

// DryRun writes the estimate of a dry run.
func DryRun(w io.Writer, r *core.DryRunResult, f Format) error {
	if f == FormatJSON || f == FormatYAML {
		return Encoded(w, r, f)
	}
	_, err := fmt.Fprintf(w, "This query will process %s when run.\n", Bytes(r.TotalBytesProcessed))
	return err
}

// State writes a non-completed query state as a one-line message.
func State(w io.Writer, s *core.QueryState) error {
	var err error
	switch {
	case s == nil:
		_, err = fmt.Fprintln(w, "not run")
	case s.Status == core.StatusRunning:
		_, err = fmt.Fprintf(w, "running (job %s)\n", s.JobID)
	case s.Status == core.StatusCanceled:
		_, err = fmt.Fprintf(w, "canceled (job %s)\n", s.JobID)
	case s.Status == core.StatusError:
		_, err = fmt.Fprintf(w, "error: %s\n", s.Message)
	default:
		_, err = fmt.Fprintln(w, Stats(s.Result))
	}
	return err
}
