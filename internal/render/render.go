// Package render formats query results and catalog listings for the
// command line and the clipboard.
package render

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"gopkg.in/yaml.v3"
)

// Format selects an output encoding.
type Format string

const (
	FormatTable    Format = "table"
	FormatJSON     Format = "json"
	FormatYAML     Format = "yaml"
	FormatCSV      Format = "csv"
	FormatMarkdown Format = "markdown"
)

// Formats lists the accepted --output values.
var Formats = []Format{FormatTable, FormatJSON, FormatYAML, FormatCSV, FormatMarkdown}

// ParseFormat accepts a format name, "md" for markdown, or "" for table.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "table":
		return FormatTable, nil
	case "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	case "csv":
		return FormatCSV, nil
	case "md", "markdown":
		return FormatMarkdown, nil
	}
	return "", fmt.Errorf("unknown output format %q (want one of %s)", s, formatList())
}

func formatList() string {
	names := make([]string, len(Formats))
	for i, f := range Formats {
		names[i] = string(f)
	}
	return strings.Join(names, ", ")
}

// Ext returns the file extension used when the output is saved to a file.
func (f Format) Ext() string {
	switch f {
	case FormatJSON:
		return ".json"
	case FormatYAML:
		return ".yaml"
	case FormatCSV:
		return ".csv"
	case FormatMarkdown:
		return ".md"
	default:
		return ".txt"
	}
}

// Bytes formats a byte count in IEC units, e.g. "1.5 MiB".
func Bytes(n int64) string {
	if n < 0 {
		n = 0
	}
	return humanize.IBytes(uint64(n))
}

// Value formats one cell. NULL stands for nil; nested values are JSON.
func Value(v any) string {
	switch x := v.(type) {
	case nil:
		return "NULL"
	case string:
		return x
	case []byte:
		return string(x)
	case map[string]any, []any:
		b, err := json.Marshal(x)
		if err != nil {
			return fmt.Sprintf("%v", x)
		}
		return string(b)
	default:
		return fmt.Sprintf("%v", x)
	}
}

// grid writes a header and rows in one of the tabular formats. Column
// names are printed as given, not upper-cased.
func grid(w io.Writer, f Format, header table.Row, rows []table.Row) error {
	if f == FormatCSV {
		return writeCSV(w, header, rows)
	}

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.Style().Format.Header = text.FormatDefault
	t.AppendHeader(header)
	t.AppendRows(rows)

	if f == FormatMarkdown {
		t.RenderMarkdown()
	} else {
		t.Render()
	}
	return nil
}

// writeCSV uses encoding/csv: go-pretty escapes commas with a backslash,
// which RFC 4180 readers do not understand.
func writeCSV(w io.Writer, header table.Row, rows []table.Row) error {
	cw := csv.NewWriter(w)
	record := func(row table.Row) []string {
		out := make([]string, len(header))
		for i := range out {
			if i < len(row) {
				out[i] = Value(row[i])
			}
		}
		return out
	}
	if err := cw.Write(record(header)); err != nil {
		return err
	}
	for _, row := range rows {
		if err := cw.Write(record(row)); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func writeYAML(w io.Writer, v any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return err
	}
	return enc.Close()
}

// Encoded writes v as JSON or YAML. Other formats are rejected; callers
// render those themselves.
func Encoded(w io.Writer, v any, f Format) error {
	switch f {
	case FormatJSON:
		return writeJSON(w, v)
	case FormatYAML:
		return writeYAML(w, v)
	}
	return fmt.Errorf("format %s needs a table layout", f)
}
