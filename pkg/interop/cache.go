package interop

import (
	"context"
	"reflect"
	"runtime"
	"sync"
	"sync/atomic"
	"time"
	"weak"

	"go.uber.org/zap"
)

// cacheKey is the reference identity of a host object. addr is a plain
// integer so the cache never keeps the host object reachable.
type cacheKey struct {
	addr uintptr
	typ  reflect.Type
}

// identityKey returns the cache key of host. Only reference kinds have an
// identity; everything else is wrapped afresh on every call.
func identityKey(host reflect.Value) (cacheKey, bool) {
	switch host.Kind() {
	case reflect.Pointer, reflect.Map:
		if host.IsNil() {
			return cacheKey{}, false
		}
		return cacheKey{addr: host.Pointer(), typ: host.Type()}, true
	}
	return cacheKey{}, false
}

// CacheStats is a snapshot of the identity cache counters.
type CacheStats struct {
	Hits    uint64 // lookups answered by a live wrapper
	Misses  uint64 // lookups that ran the factory
	Stale   uint64 // dead slots replaced by a new wrapper
	Evicted uint64 // slots removed by cleanups or sweeps
	Entries int
}

// Cache maps host object identities to their wrappers. Slots hold weak
// pointers only: a wrapper stays cached exactly as long as something else
// keeps it alive.
type Cache struct {
	mu      sync.RWMutex
	entries map[cacheKey]weak.Pointer[Wrapper]

	hits    atomic.Uint64
	misses  atomic.Uint64
	stale   atomic.Uint64
	evicted atomic.Uint64
}

type cleanupArg struct {
	key cacheKey
	wp  weak.Pointer[Wrapper]
}

// NewCache creates an empty identity cache.
func NewCache() *Cache {
	return &Cache{entries: make(map[cacheKey]weak.Pointer[Wrapper])}
}

// GetOrCreate returns the live wrapper registered for host, or builds one
// with factory and registers it. When several goroutines race on the same
// host, the first insert wins and every caller observes that wrapper; the
// losers' candidates are discarded. The factory runs without the lock held.
func (c *Cache) GetOrCreate(host reflect.Value, factory func() *Wrapper) *Wrapper {
	key, ok := identityKey(host)
	if !ok {
		return factory()
	}

	c.mu.RLock()
	wp, found := c.entries[key]
	c.mu.RUnlock()
	if found {
		if w := wp.Value(); w != nil {
			c.hits.Add(1)
			return w
		}
	}

	c.misses.Add(1)
	candidate := factory()

	c.mu.Lock()
	if wp, found := c.entries[key]; found {
		if w := wp.Value(); w != nil {
			c.mu.Unlock()
			return w
		}
		c.stale.Add(1)
		Logger().Debug("replacing stale wrapper slot",
			zap.Stringer("type", key.typ),
			zap.Uintptr("addr", key.addr))
	}
	nwp := weak.Make(candidate)
	c.entries[key] = nwp
	c.mu.Unlock()

	runtime.AddCleanup(candidate, c.evict, cleanupArg{key: key, wp: nwp})
	Logger().Debug("wrapper created",
		zap.Stringer("type", key.typ),
		zap.Uintptr("addr", key.addr))
	return candidate
}

// Lookup returns the live wrapper for host without creating one.
func (c *Cache) Lookup(host reflect.Value) (*Wrapper, bool) {
	key, ok := identityKey(host)
	if !ok {
		return nil, false
	}
	c.mu.RLock()
	wp, found := c.entries[key]
	c.mu.RUnlock()
	if !found {
		return nil, false
	}
	w := wp.Value()
	return w, w != nil
}

// evict runs after a wrapper has been collected. The slot is removed only
// if it still refers to that wrapper; a wrap that raced ahead of the
// cleanup keeps its new slot.
func (c *Cache) evict(arg cleanupArg) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if cur, ok := c.entries[arg.key]; ok && cur == arg.wp {
		delete(c.entries, arg.key)
		c.evicted.Add(1)
		Logger().Debug("wrapper slot evicted",
			zap.Stringer("type", arg.key.typ),
			zap.Uintptr("addr", arg.key.addr))
	}
}

// Len returns the number of slots, including dead ones not yet evicted.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Sweep removes every slot whose wrapper has been collected and returns
// how many were removed.
func (c *Cache) Sweep() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for key, wp := range c.entries {
		if wp.Value() == nil {
			delete(c.entries, key)
			n++
		}
	}
	c.evicted.Add(uint64(n))
	return n
}

// Stats returns a snapshot of the cache counters.
func (c *Cache) Stats() CacheStats {
	return CacheStats{
		Hits:    c.hits.Load(),
		Misses:  c.misses.Load(),
		Stale:   c.stale.Load(),
		Evicted: c.evicted.Load(),
		Entries: c.Len(),
	}
}

// RunSweeper sweeps the cache every interval until ctx is cancelled.
// Cleanups already evict collected wrappers; the sweeper only bounds how
// long slots whose cleanup has not run yet can linger.
func (c *Cache) RunSweeper(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			start := time.Now()
			if n := c.Sweep(); n > 0 {
				Logger().Debug("identity cache sweep",
					zap.Int("swept", n),
					zap.Int("entries", c.Len()),
					zap.Duration("duration", time.Since(start)))
			}
		}
	}
}
