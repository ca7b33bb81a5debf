// Package cache holds the per-session query cache that listing reads and
// optimistic mutations share. Entries are written only by fetch completions
// and by the ListingMutator; nothing else may touch them.
package cache

import (
	"context"
	"sync"
)

// Key identifies one cached query result.
type Key string

// CollectionKey is the key for a user's full listing collection.
func CollectionKey(ownerID string) Key {
	return Key("listings:owner:" + ownerID)
}

// DetailKey is the key for a single listing by id.
func DetailKey(listingID string) Key {
	return Key("listings:id:" + listingID)
}

type entry struct {
	value   interface{}
	present bool
	stale   bool
	// gen counts fetch generations. A completion carrying an older generation
	// arrives after a cancel or a newer fetch and must not overwrite state.
	gen uint64
}

// Snapshot captures one entry's exact state, including absence, so a rollback
// can restore it bit for bit.
type Snapshot struct {
	value   interface{}
	present bool
	stale   bool
}

// FetchToken ties an in-flight refetch to the generation it started in.
type FetchToken struct {
	key Key
	gen uint64
}

// Cache is created once per session and passed by reference; Clear is the
// sign-out teardown.
type Cache struct {
	mu      sync.RWMutex
	entries map[Key]*entry
}

func New() *Cache {
	return &Cache{entries: make(map[Key]*entry)}
}

// Get returns the cached value when present and fresh.
func (c *Cache) Get(key Key) (interface{}, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.entries[key]
	if !ok || !e.present || e.stale {
		return nil, false
	}
	return e.value, true
}

// Peek returns the cached value even when stale.
func (c *Cache) Peek(key Key) (interface{}, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.entries[key]
	if !ok || !e.present {
		return nil, false
	}
	return e.value, true
}

// Set overwrites the entry unconditionally and clears staleness.
func (c *Cache) Set(key Key, value interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e := c.ensure(key)
	e.value = value
	e.present = true
	e.stale = false
}

// Remove drops the entry's value while keeping its fetch generation, so a
// cancelled refetch stays cancelled.
func (c *Cache) Remove(key Key) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[key]; ok {
		e.value = nil
		e.present = false
		e.stale = false
	}
}

// Invalidate marks the entry stale; the next read refetches. Invalidating an
// absent or already-stale entry is a no-op.
func (c *Cache) Invalidate(key Key) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[key]; ok && e.present {
		e.stale = true
	}
}

// CancelInFlight invalidates any outstanding fetch tokens for the key. The
// underlying request is not aborted; its late completion is simply ignored.
// Cancelling with nothing in flight is a no-op.
func (c *Cache) CancelInFlight(key Key) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.ensure(key).gen++
}

// BeginFetch registers a refetch and returns the token its completion must
// present.
func (c *Cache) BeginFetch(key Key) FetchToken {
	c.mu.Lock()
	defer c.mu.Unlock()

	return FetchToken{key: key, gen: c.ensure(key).gen}
}

// CompleteFetch stores the fetched value unless the token's generation was
// cancelled or superseded. Reports whether the cache accepted the value.
func (c *Cache) CompleteFetch(tok FetchToken, value interface{}) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[tok.key]
	if !ok || e.gen != tok.gen {
		return false
	}
	e.value = value
	e.present = true
	e.stale = false
	return true
}

// TakeSnapshot records the entry's current state for a later Restore.
func (c *Cache) TakeSnapshot(key Key) Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if e, ok := c.entries[key]; ok {
		return Snapshot{value: e.value, present: e.present, stale: e.stale}
	}
	return Snapshot{}
}

// Restore rewinds the entry to a snapshot, including restoring absence.
func (c *Cache) Restore(key Key, snap Snapshot) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e := c.ensure(key)
	e.value = snap.value
	e.present = snap.present
	e.stale = snap.stale
}

// Clear empties the cache. The next session starts cold.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[Key]*entry)
}

// GetOrFetch serves a fresh hit from the cache, otherwise runs fetch and
// stores the result. When the fetch was cancelled mid-flight the caller still
// receives the fetched value; only the cache is left untouched.
func (c *Cache) GetOrFetch(ctx context.Context, key Key, fetch func(context.Context) (interface{}, error)) (interface{}, error) {
	if v, ok := c.Get(key); ok {
		return v, nil
	}

	tok := c.BeginFetch(key)
	v, err := fetch(ctx)
	if err != nil {
		return nil, err
	}
	c.CompleteFetch(tok, v)
	return v, nil
}

// ensure is called with c.mu held for writing.
func (c *Cache) ensure(key Key) *entry {
	e, ok := c.entries[key]
	if !ok {
		e = &entry{}
		c.entries[key] = e
	}
	return e
}
