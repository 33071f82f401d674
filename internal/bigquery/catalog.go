package bigquery

import (
	"context"
	"errors"
	"time"

	"cloud.google.com/go/bigquery"
	bqv2 "google.golang.org/api/bigquery/v2"
	"google.golang.org/api/iterator"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/beequen/beequen/internal/core"
)

// catalogSource lists datasets and tables. Each method call is one API
// request for budgeting purposes.
type catalogSource interface {
	DatasetIDs(ctx context.Context) ([]string, error)
	Tables(ctx context.Context, datasetID string) ([]core.Table, error)
}

// serviceCatalog lists datasets through the client library and tables
// through the REST service, whose listing carries the table type.
type serviceCatalog struct {
	client    *bigquery.Client
	svc       *bqv2.Service
	projectID string
}

func (c *serviceCatalog) DatasetIDs(ctx context.Context) ([]string, error) {
	var ids []string
	it := c.client.Datasets(ctx)
	for {
		ds, err := it.Next()
		if errors.Is(err, iterator.Done) {
			return ids, nil
		}
		if err != nil {
			return nil, err
		}
		if ds.DatasetID == "" {
			continue
		}
		ids = append(ids, ds.DatasetID)
	}
}

func (c *serviceCatalog) Tables(ctx context.Context, datasetID string) ([]core.Table, error) {
	tables := make([]core.Table, 0)
	err := c.svc.Tables.List(c.projectID, datasetID).Pages(ctx, func(page *bqv2.TableList) error {
		for _, t := range page.Tables {
			if t.TableReference == nil || t.TableReference.TableId == "" {
				continue
			}
			tables = append(tables, core.Table{
				ID:   t.TableReference.TableId,
				Type: core.TableType(t.Type),
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return tables, nil
}

// listDatasets lists every dataset and then its tables in batches. A batch
// holds at most budget table listings; the first holds budget-1 because the
// dataset listing already used one call. A batch starts only when the
// previous one finished and at least window has passed since it started.
func listDatasets(ctx context.Context, src catalogSource, budget int, window time.Duration) ([]core.Dataset, error) {
	if budget < 2 {
		budget = 2
	}

	ids, err := src.DatasetIDs(ctx)
	if err != nil {
		return nil, err
	}

	datasets := make([]core.Dataset, len(ids))
	limit := rate.Inf
	if window > 0 {
		limit = rate.Every(window)
	}
	limiter := rate.NewLimiter(limit, 1)

	size := budget - 1
	for start := 0; start < len(ids); start += size {
		if start > 0 {
			size = budget
		}
		end := min(start+size, len(ids))

		if err := limiter.Wait(ctx); err != nil {
			return nil, err
		}

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(budget)
		for i := start; i < end; i++ {
			g.Go(func() error {
				tables, err := src.Tables(gctx, ids[i])
				if err != nil {
					return err
				}
				datasets[i] = core.Dataset{ID: ids[i], Tables: tables}
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
	}
	return datasets, nil
}
