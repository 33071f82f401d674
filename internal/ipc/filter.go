package ipc

import (
	"strings"

	"github.com/sahilm/fuzzy"

	"github.com/beequen/beequen/internal/core"
)

// FuzzyPrefix switches FilterDatasets to fuzzy matching.
const FuzzyPrefix = "fuzzy:"

// FilterDatasets keeps the tables whose id contains filter. Datasets are kept
// even when none of their tables match. With the "fuzzy:" prefix tables are
// matched fuzzily and ordered by match quality.
func FilterDatasets(datasets []core.Dataset, filter string) []core.Dataset {
	if filter == "" {
		return datasets
	}

	match := func(tables []core.Table) []core.Table {
		out := make([]core.Table, 0)
		for _, t := range tables {
			if strings.Contains(t.ID, filter) {
				out = append(out, t)
			}
		}
		return out
	}
	if pattern, ok := strings.CutPrefix(filter, FuzzyPrefix); ok {
		if pattern == "" {
			return datasets
		}
		match = func(tables []core.Table) []core.Table {
			return fuzzyTables(pattern, tables)
		}
	}

	out := make([]core.Dataset, len(datasets))
	for i, ds := range datasets {
		out[i] = core.Dataset{ID: ds.ID, Tables: match(ds.Tables)}
	}
	return out
}

type tableSource []core.Table

func (s tableSource) String(i int) string { return s[i].ID }
func (s tableSource) Len() int            { return len(s) }

func fuzzyTables(pattern string, tables []core.Table) []core.Table {
	matches := fuzzy.FindFrom(pattern, tableSource(tables))
	out := make([]core.Table, len(matches))
	for i, m := range matches {
		out[i] = tables[m.Index]
	}
	return out
}
