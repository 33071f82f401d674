package bigquery

import (
	"fmt"
	"testing"

	"cloud.google.com/go/bigquery"
	"github.com/stretchr/testify/assert"
)

func TestJobTable_DropsOldestOverLimit(t *testing.T) {
	jobs := newJobTable(3)
	handles := make([]*bigquery.Job, 5)
	for i := range handles {
		handles[i] = &bigquery.Job{}
		jobs.put(fmt.Sprintf("j%d", i), handles[i])
	}

	assert.Equal(t, 3, jobs.len())
	for _, id := range []string{"j0", "j1"} {
		_, ok := jobs.get(id)
		assert.False(t, ok, id)
	}
	got, ok := jobs.get("j4")
	assert.True(t, ok)
	assert.Same(t, handles[4], got)
}

func TestJobTable_PutRefreshesAge(t *testing.T) {
	jobs := newJobTable(2)
	jobs.put("j1", &bigquery.Job{})
	jobs.put("j2", &bigquery.Job{})
	jobs.put("j1", &bigquery.Job{})
	jobs.put("j3", &bigquery.Job{})

	_, ok := jobs.get("j1")
	assert.True(t, ok)
	_, ok = jobs.get("j2")
	assert.False(t, ok)
}

func TestJobTable_Remove(t *testing.T) {
	jobs := newJobTable(maxTrackedJobs)
	jobs.put("j1", &bigquery.Job{})
	jobs.remove("j1")
	jobs.remove("missing")

	_, ok := jobs.get("j1")
	assert.False(t, ok)
	assert.Zero(t, jobs.len())
}
