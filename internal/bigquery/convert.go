package bigquery

import (
	"fmt"
	"math/big"
	"time"

	"cloud.google.com/go/bigquery"

	"github.com/beequen/beequen/internal/core"
)

// numericScale is the number of decimals kept for NUMERIC and BIGNUMERIC.
const numericScale = 9

func convertRow(values map[string]bigquery.Value) core.Row {
	row := make(core.Row, len(values))
	for k, v := range values {
		row[k] = convertValue(v)
	}
	return row
}

// convertValue makes a cell JSON friendly. Dates and times from the civil
// package render as their canonical strings.
func convertValue(v bigquery.Value) any {
	switch x := v.(type) {
	case nil:
		return nil
	case *big.Rat:
		if x == nil {
			return nil
		}
		return x.FloatString(numericScale)
	case time.Time:
		return x.UTC().Format(time.RFC3339Nano)
	case []bigquery.Value:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = convertValue(e)
		}
		return out
	case map[string]bigquery.Value:
		out := make(map[string]any, len(x))
		for k, e := range x {
			out[k] = convertValue(e)
		}
		return out
	case string, bool, int64, float64, []byte:
		return x
	case fmt.Stringer:
		return x.String()
	default:
		return x
	}
}

func columns(schema bigquery.Schema) []core.Column {
	if len(schema) == 0 {
		return nil
	}
	cols := make([]core.Column, len(schema))
	for i, f := range schema {
		cols[i] = core.Column{Name: f.Name, Type: string(f.Type)}
	}
	return cols
}

func fields(schema bigquery.Schema) []core.Field {
	out := make([]core.Field, 0, len(schema))
	for _, f := range schema {
		out = append(out, core.Field{
			Name:        f.Name,
			Type:        string(f.Type),
			Mode:        mode(f),
			Description: f.Description,
			Fields:      nestedFields(f.Schema),
		})
	}
	return out
}

func nestedFields(schema bigquery.Schema) []core.Field {
	if len(schema) == 0 {
		return nil
	}
	return fields(schema)
}

func mode(f *bigquery.FieldSchema) string {
	switch {
	case f.Repeated:
		return "REPEATED"
	case f.Required:
		return "REQUIRED"
	default:
		return "NULLABLE"
	}
}
