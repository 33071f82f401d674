package bigquery

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/beequen/beequen/internal/core"
	"github.com/beequen/beequen/internal/testutil"
)

type fakeCatalog struct {
	ids   []string
	delay time.Duration
	fail  string

	mu          sync.Mutex
	inFlight    int
	maxInFlight int
	completed   int
	// seen maps a table listing to the number of listings that had
	// completed when it started.
	seen map[string]int
}

func newFakeCatalog(n int, delay time.Duration) *fakeCatalog {
	ids := make([]string, n)
	for i := range ids {
		ids[i] = fmt.Sprintf("ds_%03d", i)
	}
	return &fakeCatalog{ids: ids, delay: delay, seen: make(map[string]int)}
}

func (f *fakeCatalog) DatasetIDs(context.Context) ([]string, error) {
	return f.ids, nil
}

func (f *fakeCatalog) Tables(ctx context.Context, datasetID string) ([]core.Table, error) {
	f.mu.Lock()
	f.inFlight++
	f.maxInFlight = max(f.maxInFlight, f.inFlight)
	f.seen[datasetID] = f.completed
	f.mu.Unlock()

	defer func() {
		f.mu.Lock()
		f.inFlight--
		f.completed++
		f.mu.Unlock()
	}()

	select {
	case <-time.After(f.delay):
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	if datasetID == f.fail {
		return nil, testutil.ErrTest
	}
	return []core.Table{
		{ID: datasetID + "_t", Type: core.TableTypeTable},
		{ID: datasetID + "_v", Type: core.TableTypeView},
	}, nil
}

func TestListDatasets_BatchesUnderBudget(t *testing.T) {
	src := newFakeCatalog(120, 20*time.Millisecond)
	window := 60 * time.Millisecond

	started := time.Now()
	datasets, err := listDatasets(context.Background(), src, 50, window)
	elapsed := time.Since(started)
	require.NoError(t, err)

	require.Len(t, datasets, 120)
	for i, ds := range datasets {
		assert.Equal(t, src.ids[i], ds.ID, "listing order is kept")
		assert.Len(t, ds.Tables, 2)
	}

	assert.LessOrEqual(t, src.maxInFlight, 50)

	// Batches are 49, 50 and 21 listings. Every listing of a batch starts
	// after the whole previous batch completed.
	sizes := map[int]int{}
	for _, completedBefore := range src.seen {
		sizes[completedBefore]++
	}
	assert.Equal(t, map[int]int{0: 49, 49: 50, 99: 21}, sizes)

	// Three batches are separated by at least two windows.
	assert.GreaterOrEqual(t, elapsed, 2*window)
}

func TestListDatasets_SingleBatch(t *testing.T) {
	src := newFakeCatalog(3, 0)

	started := time.Now()
	datasets, err := listDatasets(context.Background(), src, 50, time.Hour)
	require.NoError(t, err)
	assert.Len(t, datasets, 3)
	assert.Less(t, time.Since(started), time.Second, "the first batch does not wait")
}

func TestListDatasets_Empty(t *testing.T) {
	datasets, err := listDatasets(context.Background(), newFakeCatalog(0, 0), 50, time.Second)
	require.NoError(t, err)
	assert.NotNil(t, datasets)
	assert.Empty(t, datasets)
}

func TestListDatasets_SmallBudget(t *testing.T) {
	src := newFakeCatalog(5, time.Millisecond)

	datasets, err := listDatasets(context.Background(), src, 0, 0)
	require.NoError(t, err)
	assert.Len(t, datasets, 5)
	assert.LessOrEqual(t, src.maxInFlight, 2)
}

func TestListDatasets_TableErrorFailsListing(t *testing.T) {
	src := newFakeCatalog(10, time.Millisecond)
	src.fail = "ds_004"

	_, err := listDatasets(context.Background(), src, 50, 0)
	assert.ErrorIs(t, err, testutil.ErrTest)
}

func TestListDatasets_ContextCanceledBetweenBatches(t *testing.T) {
	src := newFakeCatalog(10, time.Millisecond)
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := listDatasets(ctx, src, 3, time.Hour)
	require.Error(t, err)
	assert.Equal(t, 2, len(src.seen), "only the first batch ran")
}
