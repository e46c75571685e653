// Package recency maintains the doubly linked newest-to-oldest ordering
// over live keys that the keyspace consults for eviction. It is a pure
// data structure with no locking of its own: the keyspace serializes all
// access to it under its own readers-writer lock, exactly as spec'd.
package recency

import (
	"container/list"
	"errors"
)

// ErrEmpty is returned by Oldest when no keys are tracked.
var ErrEmpty = errors.New("recency: ordering is empty")

// Index is a newest-first ordering of keys paired with an auxiliary map
// for O(1) touch/forget.
type Index struct {
	order *list.List
	nodes map[string]*list.Element
}

// New creates an empty Index.
func New() *Index {
	return &Index{
		order: list.New(),
		nodes: make(map[string]*list.Element),
	}
}

// Touch moves key to the head, inserting it if not already tracked.
func (idx *Index) Touch(key string) {
	if e, ok := idx.nodes[key]; ok {
		idx.order.MoveToFront(e)
		return
	}
	idx.nodes[key] = idx.order.PushFront(key)
}

// Forget removes key from the ordering. A no-op if key isn't tracked.
func (idx *Index) Forget(key string) {
	e, ok := idx.nodes[key]
	if !ok {
		return
	}
	idx.order.Remove(e)
	delete(idx.nodes, key)
}

// Oldest returns the least-recently-touched key without removing it.
func (idx *Index) Oldest() (string, error) {
	back := idx.order.Back()
	if back == nil {
		return "", ErrEmpty
	}
	return back.Value.(string), nil
}

// Len reports how many keys are tracked.
func (idx *Index) Len() int { return idx.order.Len() }
