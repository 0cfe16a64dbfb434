// Package session issues and checks the session tokens that gate the
// protected script endpoint.
package session

import (
	"context"
	"sync"
	"sync/atomic"
)

// Registry tracks which session keys are currently live.
type Registry interface {
	// Register records key. It returns true if key was already registered.
	Register(ctx context.Context, key string) bool

	// Revoke forgets key; tokens carrying it stop being accepted.
	Revoke(ctx context.Context, key string)

	// Contains reports whether key is live.
	Contains(ctx context.Context, key string) bool

	Size() int64
}

// node is one entry in the registration-order list.
type node struct {
	key        string
	prev, next *node
}

func (n *node) reset() {
	n.key = ""
	n.prev = nil
	n.next = nil
}

// inMemoryRegistry keeps keys in a map plus a doubly linked list ordered by
// registration time so the oldest key can be evicted in O(1).
// maxSize <= 0 means unbounded: only the map is used.
type inMemoryRegistry struct {
	mu       sync.RWMutex
	keys     map[string]*node
	head     *node // newest
	tail     *node // oldest
	maxSize  int
	size     atomic.Int64
	nodePool sync.Pool
}

// NewInMemoryRegistry creates a registry configured by opts.
func NewInMemoryRegistry(opts ...Option) Registry {
	r := &inMemoryRegistry{
		maxSize: defaultRegistrySize,
	}
	for _, opt := range opts {
		opt(r)
	}
	r.keys = make(map[string]*node)
	r.nodePool = sync.Pool{
		New: func() any { return &node{} },
	}
	return r
}

func (r *inMemoryRegistry) Register(_ context.Context, key string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.keys[key]; ok {
		return true
	}

	if r.maxSize <= 0 {
		r.keys[key] = nil
		r.size.Add(1)
		return false
	}

	if len(r.keys) >= r.maxSize {
		r.evictOldest()
	}

	n := r.nodePool.Get().(*node)
	n.key = key
	n.next = r.head
	if r.head != nil {
		r.head.prev = n
	}
	r.head = n
	if r.tail == nil {
		r.tail = n
	}
	r.keys[key] = n
	r.size.Add(1)
	return false
}

func (r *inMemoryRegistry) Revoke(_ context.Context, key string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	n, ok := r.keys[key]
	if !ok {
		return
	}
	delete(r.keys, key)
	r.size.Add(-1)
	if n != nil {
		r.unlink(n)
	}
}

func (r *inMemoryRegistry) Contains(_ context.Context, key string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.keys[key]
	return ok
}

func (r *inMemoryRegistry) Size() int64 {
	return r.size.Load()
}

// evictOldest drops the tail. Caller holds r.mu.
func (r *inMemoryRegistry) evictOldest() {
	if r.tail == nil {
		return
	}
	delete(r.keys, r.tail.key)
	r.size.Add(-1)
	r.unlink(r.tail)
}

// unlink removes n from the list and returns it to the pool. Caller holds r.mu.
func (r *inMemoryRegistry) unlink(n *node) {
	if n.prev != nil {
		n.prev.next = n.next
	} else {
		r.head = n.next
	}
	if n.next != nil {
		n.next.prev = n.prev
	} else {
		r.tail = n.prev
	}
	n.reset()
	r.nodePool.Put(n)
}
