package ipc

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/beequen/beequen/internal/core"
)

func sampleDatasets() []core.Dataset {
	return []core.Dataset{
		{ID: "sales", Tables: []core.Table{
			{ID: "orders", Type: core.TableTypeTable},
			{ID: "order_items", Type: core.TableTypeTable},
			{ID: "daily_revenue", Type: core.TableTypeView},
		}},
		{ID: "users", Tables: []core.Table{
			{ID: "accounts", Type: core.TableTypeTable},
		}},
	}
}

func tableIDs(ds core.Dataset) []string {
	ids := make([]string, len(ds.Tables))
	for i, t := range ds.Tables {
		ids[i] = t.ID
	}
	return ids
}

func TestFilterDatasets_Substring(t *testing.T) {
	got := FilterDatasets(sampleDatasets(), "order")

	assert.Len(t, got, 2, "datasets without matches are kept")
	assert.Equal(t, []string{"orders", "order_items"}, tableIDs(got[0]))
	assert.Empty(t, got[1].Tables)
	assert.NotNil(t, got[1].Tables)
}

func TestFilterDatasets_CaseSensitive(t *testing.T) {
	got := FilterDatasets(sampleDatasets(), "Order")
	assert.Empty(t, got[0].Tables)
}

func TestFilterDatasets_Empty(t *testing.T) {
	in := sampleDatasets()
	assert.Equal(t, in, FilterDatasets(in, ""))
	assert.Equal(t, in, FilterDatasets(in, FuzzyPrefix))
}

func TestFilterDatasets_Fuzzy(t *testing.T) {
	got := FilterDatasets(sampleDatasets(), "fuzzy:ordr")

	ids := tableIDs(got[0])
	assert.ElementsMatch(t, []string{"orders", "order_items"}, ids)
	assert.Empty(t, got[1].Tables)

	got = FilterDatasets(sampleDatasets(), "fuzzy:drev")
	assert.Equal(t, []string{"daily_revenue"}, tableIDs(got[0]))
}

func TestFilterDatasets_DoesNotModifyInput(t *testing.T) {
	in := sampleDatasets()
	FilterDatasets(in, "accounts")
	assert.Len(t, in[0].Tables, 3)
}
