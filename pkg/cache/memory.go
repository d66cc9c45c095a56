package cache

import (
	"container/list"
	"context"
	"sync"
	"time"
)

type memoryEntry[V any] struct {
	expiresAt time.Time // zero = never
	value     V
	key       string
}

func (e *memoryEntry[V]) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && now.After(e.expiresAt)
}

// Memory is a process-local cache with TTL expiration and optional LRU
// eviction. Lookups go through a map; recency is kept in a list whose front
// is the most recently used entry.
type Memory[V any] struct {
	items   map[string]*list.Element
	lru     *list.List
	opts    *options
	onEvict func(key string, value V)
	done    chan struct{}
	wg      sync.WaitGroup
	mu      sync.Mutex
	closed  bool
}

// NewMemory creates an in-memory cache. When a cleanup interval is set
// (the default), a janitor goroutine runs until Close.
//
// Example:
//
//	c := cache.NewMemory[string](
//	    cache.WithDefaultTTL(5*time.Minute),
//	    cache.WithMaxEntries(10_000),
//	)
//	defer c.Close()
func NewMemory[V any](opts ...Option) *Memory[V] {
	m := &Memory[V]{
		items: make(map[string]*list.Element),
		lru:   list.New(),
		opts:  newOptions(opts),
		done:  make(chan struct{}),
	}

	if m.opts.cleanupInterval > 0 {
		m.wg.Add(1)
		go m.janitor()
	}

	return m
}

// OnEvict registers a callback run whenever an entry leaves the cache
// (LRU eviction, expiry, Delete, Clear). It runs with the cache locked and
// must not call back into the cache.
func (m *Memory[V]) OnEvict(fn func(key string, value V)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onEvict = fn
}

// Get returns the value for key and marks it recently used.
func (m *Memory[V]) Get(_ context.Context, key string) (V, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var zero V
	if m.closed {
		return zero, ErrClosed
	}

	elem, ok := m.items[key]
	if !ok {
		return zero, ErrNotFound
	}
	e := elem.Value.(*memoryEntry[V])
	if e.expired(time.Now()) {
		m.remove(elem)
		return zero, ErrNotFound
	}

	m.lru.MoveToFront(elem)
	return e.value, nil
}

// Set stores value under key.
func (m *Memory[V]) Set(_ context.Context, key string, value V, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrClosed
	}
	m.store(key, value, m.opts.expiry(ttl))
	return nil
}

// store inserts or replaces an entry. Caller must hold m.mu.
func (m *Memory[V]) store(key string, value V, expiresAt time.Time) {
	if elem, ok := m.items[key]; ok {
		e := elem.Value.(*memoryEntry[V])
		e.value = value
		e.expiresAt = expiresAt
		m.lru.MoveToFront(elem)
		return
	}

	if m.opts.maxEntries > 0 && len(m.items) >= m.opts.maxEntries {
		if oldest := m.lru.Back(); oldest != nil {
			m.remove(oldest)
		}
	}

	m.items[key] = m.lru.PushFront(&memoryEntry[V]{key: key, value: value, expiresAt: expiresAt})
}

// Update atomically replaces the value for key with fn(current, found).
// The entry keeps its expiry; a new entry gets the default TTL.
func (m *Memory[V]) Update(_ context.Context, key string, fn func(current V, found bool) (V, error)) (V, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var zero V
	if m.closed {
		return zero, ErrClosed
	}

	var (
		current   V
		found     bool
		expiresAt = m.opts.expiry(0)
	)
	if elem, ok := m.items[key]; ok {
		e := elem.Value.(*memoryEntry[V])
		if e.expired(time.Now()) {
			m.remove(elem)
		} else {
			current, found, expiresAt = e.value, true, e.expiresAt
		}
	}

	next, err := fn(current, found)
	if err != nil {
		return zero, err
	}
	m.store(key, next, expiresAt)
	return next, nil
}

// Delete removes key.
func (m *Memory[V]) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrClosed
	}
	if elem, ok := m.items[key]; ok {
		m.remove(elem)
	}
	return nil
}

// Has reports whether key is present and not expired.
func (m *Memory[V]) Has(_ context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return false, ErrClosed
	}

	elem, ok := m.items[key]
	if !ok {
		return false, nil
	}
	if elem.Value.(*memoryEntry[V]).expired(time.Now()) {
		m.remove(elem)
		return false, nil
	}
	return true, nil
}

// Len returns the number of stored entries, expired ones not yet swept included.
func (m *Memory[V]) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.items)
}

// Clear removes every entry.
func (m *Memory[V]) Clear(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrClosed
	}

	if m.onEvict != nil {
		for _, elem := range m.items {
			e := elem.Value.(*memoryEntry[V])
			m.onEvict(e.key, e.value)
		}
	}
	m.items = make(map[string]*list.Element)
	m.lru.Init()
	return nil
}

// Close stops the janitor and waits for it to exit. Close is idempotent.
func (m *Memory[V]) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	close(m.done)
	m.mu.Unlock()

	m.wg.Wait()
	return nil
}

func (m *Memory[V]) janitor() {
	defer m.wg.Done()

	ticker := time.NewTicker(m.opts.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-m.done:
			return
		case <-ticker.C:
			m.sweep()
		}
	}
}

// sweep drops expired entries, walking from least to most recently used.
func (m *Memory[V]) sweep() {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	for elem := m.lru.Back(); elem != nil; {
		prev := elem.Prev()
		if elem.Value.(*memoryEntry[V]).expired(now) {
			m.remove(elem)
		}
		elem = prev
	}
}

// remove unlinks elem and fires the eviction callback. Caller must hold m.mu.
func (m *Memory[V]) remove(elem *list.Element) {
	m.lru.Remove(elem)
	e := elem.Value.(*memoryEntry[V])
	delete(m.items, e.key)

	if m.onEvict != nil {
		m.onEvict(e.key, e.value)
	}
}

var _ Cache[any] = (*Memory[any])(nil)
