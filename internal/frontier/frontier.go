package frontier

import (
	"container/heap"
	"sync"

	"github.com/newsatlas/hubcrawler/internal/hub"
)

// Item is a scored candidate waiting for dispatch.
type Item struct {
	Candidate hub.Candidate
	Score     float64

	key string
	seq uint64
}

// Frontier is a bounded max-priority queue. All mutation happens under one
// mutex scoped to the push/pop/drain operations; callers never hold frontier
// state between calls.
type Frontier struct {
	mu    sync.Mutex
	items pq
	keys  map[string]struct{}
	cap   int
	seq   uint64
}

const defaultCapacity = 1000

// New builds a frontier holding at most capacity candidates.
func New(capacity int) *Frontier {
	if capacity <= 0 {
		capacity = defaultCapacity
	}
	return &Frontier{keys: make(map[string]struct{}), cap: capacity}
}

// Push inserts a scored candidate. A candidate whose canonical URL is
// already queued is dropped as redundant (returns false, nil). When the
// frontier is full the new candidate either evicts the current lowest-score
// entry, or is itself refused with ErrFrontierFull if it does not beat it.
func (f *Frontier) Push(c hub.Candidate, score float64) (bool, error) {
	key, err := URLKey(c.URL)
	if err != nil {
		return false, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if _, dup := f.keys[key]; dup {
		return false, nil
	}
	if len(f.items) >= f.cap {
		low := f.lowest()
		if f.items[low].Score >= score {
			return false, hub.ErrFrontierFull
		}
		evicted := heap.Remove(&f.items, low).(*Item)
		delete(f.keys, evicted.key)
	}

	f.seq++
	heap.Push(&f.items, &Item{Candidate: c, Score: score, key: key, seq: f.seq})
	f.keys[key] = struct{}{}
	return true, nil
}

// Pop removes and returns the highest-priority candidate. The second return
// is false when the frontier is empty. The popped URL's slot is freed, so
// the same candidate may be re-pushed later (the throttle path relies on
// this).
func (f *Frontier) Pop() (Item, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if len(f.items) == 0 {
		return Item{}, false
	}
	it := heap.Pop(&f.items).(*Item)
	delete(f.keys, it.key)
	return *it, true
}

// Len reports the number of queued candidates.
func (f *Frontier) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.items)
}

// Drain discards and returns everything still queued, highest score first.
// Used on abort, where queued candidates must not be persisted or
// dispatched.
func (f *Frontier) Drain() []Item {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make([]Item, 0, len(f.items))
	for len(f.items) > 0 {
		it := heap.Pop(&f.items).(*Item)
		out = append(out, *it)
	}
	f.keys = make(map[string]struct{})
	return out
}

// lowest returns the index of the minimum-score entry. Capacity is small
// enough that a linear scan on the eviction path is fine.
func (f *Frontier) lowest() int {
	low := 0
	for i, it := range f.items {
		if it.Score < f.items[low].Score || (it.Score == f.items[low].Score && it.seq > f.items[low].seq) {
			low = i
		}
	}
	return low
}

// pq implements heap.Interface as a max-heap on score with FIFO ties.
type pq []*Item

func (q pq) Len() int { return len(q) }

func (q pq) Less(i, j int) bool {
	if q[i].Score != q[j].Score {
		return q[i].Score > q[j].Score
	}
	return q[i].seq < q[j].seq
}

func (q pq) Swap(i, j int) { q[i], q[j] = q[j], q[i] }

func (q *pq) Push(x any) { *q = append(*q, x.(*Item)) }

func (q *pq) Pop() any {
	old := *q
	n := len(old)
	it := old[n-1]
	old[n-1] = nil
	*q = old[:n-1]
	return it
}
