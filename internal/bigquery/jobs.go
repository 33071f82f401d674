package bigquery

import (
	"container/list"
	"sync"

	"cloud.google.com/go/bigquery"
)

// maxTrackedJobs bounds the job handles a Backend keeps. Older handles are
// dropped first; a dropped job is looked up by id again when needed.
const maxTrackedJobs = 256

// jobTable remembers the handles of submitted jobs so their location is known
// when awaiting or canceling them.
type jobTable struct {
	mu    sync.Mutex
	limit int
	order *list.List // front is newest
	byID  map[string]*list.Element
}

type trackedJob struct {
	id  string
	job *bigquery.Job
}

func newJobTable(limit int) *jobTable {
	return &jobTable{limit: limit, order: list.New(), byID: make(map[string]*list.Element)}
}

func (t *jobTable) put(id string, job *bigquery.Job) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if el, ok := t.byID[id]; ok {
		el.Value.(*trackedJob).job = job
		t.order.MoveToFront(el)
		return
	}
	t.byID[id] = t.order.PushFront(&trackedJob{id: id, job: job})
	for t.order.Len() > t.limit {
		oldest := t.order.Back()
		t.order.Remove(oldest)
		delete(t.byID, oldest.Value.(*trackedJob).id)
	}
}

func (t *jobTable) get(id string) (*bigquery.Job, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	el, ok := t.byID[id]
	if !ok {
		return nil, false
	}
	return el.Value.(*trackedJob).job, true
}

func (t *jobTable) remove(id string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if el, ok := t.byID[id]; ok {
		t.order.Remove(el)
		delete(t.byID, id)
	}
}

func (t *jobTable) len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.order.Len()
}
