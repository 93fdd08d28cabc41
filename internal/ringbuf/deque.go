// Package ringbuf implements the bounded, newest-first deque shared by
// the Sensor and Controller roles for per-id Datum history.
package ringbuf

import (
	"sync"

	"github.com/labctl/labctl/internal/wiredatum"
)

// Deque is a fixed-capacity, newest-first sequence of Datums. Inserting
// past the bound evicts the oldest element.
type Deque struct {
	mu    sync.Mutex
	items []wiredatum.Datum
	bound int
}

// New returns an empty Deque with the given maximum length.
func New(bound int) *Deque {
	return &Deque{bound: bound}
}

// PushFront inserts d as the newest element, evicting the oldest element
// if the deque is now over its bound.
func (q *Deque) PushFront(d wiredatum.Datum) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = append([]wiredatum.Datum{d}, q.items...)
	if len(q.items) > q.bound {
		q.items = q.items[:q.bound]
	}
}

// Newest returns the most recently pushed Datum, or false if the deque is
// empty.
func (q *Deque) Newest() (wiredatum.Datum, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return wiredatum.Datum{}, false
	}
	return q.items[0], true
}

// All returns a newest-first snapshot of the deque's contents.
func (q *Deque) All() []wiredatum.Datum {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]wiredatum.Datum, len(q.items))
	copy(out, q.items)
	return out
}

// Len reports the current number of elements.
func (q *Deque) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
