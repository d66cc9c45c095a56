package session

import (
	"context"
	"encoding/json"
	"errors"
	"slices"
	"sync"
	"time"

	"github.com/valkyrjaio/valkyrja/pkg/cache"
)

const (
	keySession = "session:id:"
	keyToken   = "session:token:"
	keyUser    = "session:user:"
)

// CacheStore keeps sessions in a cache. Records are JSON and expire with
// the session; a per-user index backs DeleteByUserID and expires with the
// user's last session.
type CacheStore struct {
	cache cache.Cache[[]byte]
	mu    sync.Mutex // serializes index updates
}

// NewCacheStore stores sessions in c, typically a Redis cache.
func NewCacheStore(c cache.Cache[[]byte]) *CacheStore {
	return &CacheStore{cache: c}
}

func (cs *CacheStore) Create(ctx context.Context, s *Session) error {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	return cs.write(ctx, s)
}

func (cs *CacheStore) Get(ctx context.Context, token string) (*Session, error) {
	if token == "" {
		return nil, ErrNotFound
	}
	id, err := cs.cache.Get(ctx, keyToken+token)
	if err != nil {
		return nil, cs.miss(err)
	}
	s, err := cs.load(ctx, string(id))
	if err != nil {
		return nil, err
	}
	if s.Token != token {
		return nil, ErrNotFound
	}
	if s.IsExpired() {
		_ = cs.Delete(ctx, s.ID)
		return nil, ErrExpired
	}
	return s, nil
}

func (cs *CacheStore) Update(ctx context.Context, s *Session) error {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	old, err := cs.load(ctx, s.ID)
	if err != nil {
		return err
	}
	if old.Token != s.Token {
		if err := cs.cache.Delete(ctx, keyToken+old.Token); err != nil {
			return errors.Join(ErrStoreFailed, err)
		}
	}
	if old.IsAuthenticated() && (!s.IsAuthenticated() || *old.UserID != *s.UserID) {
		if err := cs.unindex(ctx, *old.UserID, s.ID); err != nil {
			return err
		}
	}
	return cs.write(ctx, s)
}

func (cs *CacheStore) Delete(ctx context.Context, id string) error {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	s, err := cs.load(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	return cs.remove(ctx, s)
}

func (cs *CacheStore) DeleteByUserID(ctx context.Context, userID string) error {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	entries, err := cs.index(ctx, userID)
	if err != nil {
		return err
	}
	for _, e := range entries {
		s, err := cs.load(ctx, e.ID)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return err
		}
		if err := cs.remove(ctx, s); err != nil {
			return err
		}
	}
	if err := cs.cache.Delete(ctx, keyUser+userID); err != nil {
		return errors.Join(ErrStoreFailed, err)
	}
	return nil
}

func (cs *CacheStore) Touch(ctx context.Context, id string, lastActiveAt time.Time) error {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	s, err := cs.load(ctx, id)
	if err != nil {
		return err
	}
	s.LastActiveAt = lastActiveAt
	return cs.setRecord(ctx, s)
}

func (cs *CacheStore) load(ctx context.Context, id string) (*Session, error) {
	data, err := cs.cache.Get(ctx, keySession+id)
	if err != nil {
		return nil, cs.miss(err)
	}
	var s Session
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, errors.Join(ErrStoreFailed, err)
	}
	if s.Values == nil {
		s.Values = make(map[string]any)
	}
	return &s, nil
}

func (cs *CacheStore) write(ctx context.Context, s *Session) error {
	if s.IsExpired() {
		return ErrExpired
	}
	if err := cs.setRecord(ctx, s); err != nil {
		return err
	}
	if err := cs.set(ctx, keyToken+s.Token, []byte(s.ID), s.ExpiresAt); err != nil {
		return err
	}
	if s.IsAuthenticated() {
		return cs.reindex(ctx, s)
	}
	return nil
}

func (cs *CacheStore) remove(ctx context.Context, s *Session) error {
	for _, key := range []string{keyToken + s.Token, keySession + s.ID} {
		if err := cs.cache.Delete(ctx, key); err != nil {
			return errors.Join(ErrStoreFailed, err)
		}
	}
	if s.IsAuthenticated() {
		return cs.unindex(ctx, *s.UserID, s.ID)
	}
	return nil
}

// indexEntry is one session in a user's index. The expiry lets reads drop
// sessions the cache has already evicted.
type indexEntry struct {
	ID        string    `json:"id"`
	ExpiresAt time.Time `json:"expires_at"`
}

// index returns the user's live sessions; expired entries are skipped.
func (cs *CacheStore) index(ctx context.Context, userID string) ([]indexEntry, error) {
	data, err := cs.cache.Get(ctx, keyUser+userID)
	if errors.Is(err, cache.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Join(ErrStoreFailed, err)
	}
	var entries []indexEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, errors.Join(ErrStoreFailed, err)
	}
	now := time.Now()
	return slices.DeleteFunc(entries, func(e indexEntry) bool { return !e.ExpiresAt.After(now) }), nil
}

// reindex records s in its user's index, replacing any earlier entry.
func (cs *CacheStore) reindex(ctx context.Context, s *Session) error {
	entries, err := cs.index(ctx, *s.UserID)
	if err != nil {
		return err
	}
	entries = slices.DeleteFunc(entries, func(e indexEntry) bool { return e.ID == s.ID })
	return cs.saveIndex(ctx, *s.UserID, append(entries, indexEntry{ID: s.ID, ExpiresAt: s.ExpiresAt}))
}

func (cs *CacheStore) unindex(ctx context.Context, userID, id string) error {
	entries, err := cs.index(ctx, userID)
	if err != nil {
		return err
	}
	return cs.saveIndex(ctx, userID, slices.DeleteFunc(entries, func(e indexEntry) bool { return e.ID == id }))
}

// saveIndex stores the index until its last session expires. An empty
// index is deleted.
func (cs *CacheStore) saveIndex(ctx context.Context, userID string, entries []indexEntry) error {
	var last time.Time
	for _, e := range entries {
		if e.ExpiresAt.After(last) {
			last = e.ExpiresAt
		}
	}
	if len(entries) == 0 || !last.After(time.Now()) {
		if err := cs.cache.Delete(ctx, keyUser+userID); err != nil {
			return errors.Join(ErrStoreFailed, err)
		}
		return nil
	}
	data, err := json.Marshal(entries)
	if err != nil {
		return errors.Join(ErrStoreFailed, err)
	}
	return cs.set(ctx, keyUser+userID, data, last)
}

// setRecord stores s, token included, until it expires.
func (cs *CacheStore) setRecord(ctx context.Context, s *Session) error {
	data, err := json.Marshal(s)
	if err != nil {
		return errors.Join(ErrStoreFailed, err)
	}
	return cs.set(ctx, keySession+s.ID, data, s.ExpiresAt)
}

func (cs *CacheStore) set(ctx context.Context, key string, data []byte, expiresAt time.Time) error {
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return ErrExpired
	}
	if err := cs.cache.Set(ctx, key, data, ttl); err != nil {
		return errors.Join(ErrStoreFailed, err)
	}
	return nil
}

func (cs *CacheStore) miss(err error) error {
	if errors.Is(err, cache.ErrNotFound) {
		return ErrNotFound
	}
	return errors.Join(ErrStoreFailed, err)
}

// MemoryStore is a CacheStore over a process-local memory cache.
type MemoryStore struct {
	*CacheStore
	mem *cache.Memory[[]byte]
}

// NewMemoryStore creates a MemoryStore. Close stops its janitor.
func NewMemoryStore(opts ...cache.Option) *MemoryStore {
	mem := cache.NewMemory[[]byte](opts...)
	return &MemoryStore{CacheStore: NewCacheStore(mem), mem: mem}
}

// Len reports the number of cache entries, several per session.
func (m *MemoryStore) Len() int { return m.mem.Len() }

func (m *MemoryStore) Close() error { return m.mem.Close() }

var (
	_ Store = (*CacheStore)(nil)
	_ Store = (*MemoryStore)(nil)
)
