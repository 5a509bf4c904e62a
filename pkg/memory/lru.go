// Package memory provides a bounded in-process cache with least-recently-used
// eviction and optional per-entry TTL.
package memory

import (
	"container/list"
	"sync"
	"time"
)

type entry[K comparable, V any] struct {
	key       K
	value     V
	expiresAt time.Time // zero means no expiry
}

// LRU is safe for concurrent use.
type LRU[K comparable, V any] struct {
	mu         sync.Mutex
	maxEntries int
	now        func() time.Time
	order      *list.List // front = most recent
	elements   map[K]*list.Element
}

// Option configures an LRU.
type Option func(*config)

type config struct {
	now func() time.Time
}

// WithClock replaces time.Now for TTL checks.
func WithClock(now func() time.Time) Option {
	return func(c *config) { c.now = now }
}

// NewLRU returns a cache holding at most maxEntries values. maxEntries <= 0
// means unbounded.
func NewLRU[K comparable, V any](maxEntries int, opts ...Option) *LRU[K, V] {
	cfg := config{now: time.Now}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &LRU[K, V]{
		maxEntries: maxEntries,
		now:        cfg.now,
		order:      list.New(),
		elements:   make(map[K]*list.Element),
	}
}

// SetOption configures a single Set.
type SetOption func(*setOptions)

type setOptions struct {
	ttl time.Duration
}

// WithTTL expires the entry d after it is written.
func WithTTL(d time.Duration) SetOption {
	return func(o *setOptions) { o.ttl = d }
}

// Set stores value under key and marks it most recently used. It returns the
// key evicted to make room, if any.
func (c *LRU[K, V]) Set(key K, value V, opts ...SetOption) (evicted K, ok bool) {
	o := setOptions{}
	for _, opt := range opts {
		opt(&o)
	}
	var expiresAt time.Time
	if o.ttl > 0 {
		expiresAt = c.now().Add(o.ttl)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, found := c.elements[key]; found {
		e := elem.Value.(*entry[K, V])
		e.value = value
		e.expiresAt = expiresAt
		c.order.MoveToFront(elem)
		return evicted, false
	}

	if c.maxEntries > 0 && c.order.Len() >= c.maxEntries {
		if back := c.order.Back(); back != nil {
			old := c.order.Remove(back).(*entry[K, V])
			delete(c.elements, old.key)
			evicted, ok = old.key, true
		}
	}
	c.elements[key] = c.order.PushFront(&entry[K, V]{key: key, value: value, expiresAt: expiresAt})
	return evicted, ok
}

func (c *LRU[K, V]) expired(e *entry[K, V]) bool {
	return !e.expiresAt.IsZero() && !c.now().Before(e.expiresAt)
}

// Get returns the value for key and marks it most recently used. Expired
// entries are dropped on access.
func (c *LRU[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero V
	elem, ok := c.elements[key]
	if !ok {
		return zero, false
	}
	e := elem.Value.(*entry[K, V])
	if c.expired(e) {
		c.order.Remove(elem)
		delete(c.elements, key)
		return zero, false
	}
	c.order.MoveToFront(elem)
	return e.value, true
}

// Delete removes key and reports whether it was present.
func (c *LRU[K, V]) Delete(key K) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.elements[key]
	if !ok {
		return false
	}
	c.order.Remove(elem)
	delete(c.elements, key)
	return true
}

// Keys lists live keys, most recently used first.
func (c *LRU[K, V]) Keys() []K {
	c.mu.Lock()
	defer c.mu.Unlock()

	keys := make([]K, 0, c.order.Len())
	var stale []*list.Element
	for elem := c.order.Front(); elem != nil; elem = elem.Next() {
		e := elem.Value.(*entry[K, V])
		if c.expired(e) {
			stale = append(stale, elem)
			continue
		}
		keys = append(keys, e.key)
	}
	for _, elem := range stale {
		e := c.order.Remove(elem).(*entry[K, V])
		delete(c.elements, e.key)
	}
	return keys
}

// Len counts stored entries, expired ones included until they are touched.
func (c *LRU[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

// Purge empties the cache.
func (c *LRU[K, V]) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.order.Init()
	c.elements = make(map[K]*list.Element)
}
