// Package cache keeps prepared statements keyed by their rebound SQL text.
package cache

import (
	"database/sql"
	"sync"
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru"
)

// DefaultStmtCacheCapacity is the default maximum number of cached prepared statements.
const DefaultStmtCacheCapacity = 256

// entry is a cached statement with the number of callers using it.
// Fields are guarded by StmtCache.mu.
type entry struct {
	stmt    *sql.Stmt
	refs    int
	evicted bool
}

// StmtCache stores prepared statements with LRU eviction.
//
// Statements handed out by Acquire and Store are pinned until their release
// func is called: an evicted or purged statement is closed only once the
// last caller using it has released it.
type StmtCache struct {
	capacity int

	mu    sync.Mutex
	items *lru.Cache

	hits      atomic.Uint64
	misses    atomic.Uint64
	evictions atomic.Uint64
}

// NewStmtCache creates a statement cache with the default capacity.
func NewStmtCache() *StmtCache {
	return NewStmtCacheWithCapacity(DefaultStmtCacheCapacity)
}

// NewStmtCacheWithCapacity creates a statement cache holding at most capacity
// statements. Non-positive values fall back to DefaultStmtCacheCapacity.
func NewStmtCacheWithCapacity(capacity int) *StmtCache {
	if capacity <= 0 {
		capacity = DefaultStmtCacheCapacity
	}
	sc := &StmtCache{capacity: capacity}
	// NewWithEvict only fails for a non-positive size.
	sc.items, _ = lru.NewWithEvict(capacity, sc.onEvict)
	return sc
}

// onEvict runs inside lru calls, which are only made with sc.mu held.
func (sc *StmtCache) onEvict(_, value interface{}) {
	e := value.(*entry)
	e.evicted = true
	if e.refs == 0 {
		_ = e.stmt.Close()
	}
}

func (sc *StmtCache) pin(e *entry) (*sql.Stmt, func()) {
	e.refs++
	var once sync.Once
	return e.stmt, func() {
		once.Do(func() {
			sc.mu.Lock()
			defer sc.mu.Unlock()
			e.refs--
			if e.evicted && e.refs == 0 {
				_ = e.stmt.Close()
			}
		})
	}
}

// Acquire returns the statement cached for key and marks it as recently
// used. The statement stays open until release is called.
func (sc *StmtCache) Acquire(key string) (stmt *sql.Stmt, release func(), ok bool) {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	value, ok := sc.items.Get(key)
	if !ok {
		sc.misses.Add(1)
		return nil, nil, false
	}
	sc.hits.Add(1)
	stmt, release = sc.pin(value.(*entry))
	return stmt, release, true
}

// Store caches stmt under key and returns it pinned. When another statement
// is already cached under key, stmt is closed and the cached one is
// returned instead.
func (sc *StmtCache) Store(key string, stmt *sql.Stmt) (*sql.Stmt, func()) {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	if value, ok := sc.items.Get(key); ok {
		e := value.(*entry)
		if e.stmt != stmt {
			_ = stmt.Close()
		}
		return sc.pin(e)
	}

	e := &entry{stmt: stmt}
	if sc.items.Add(key, e) {
		sc.evictions.Add(1)
	}
	return sc.pin(e)
}

// Clear removes every cached statement. Statements still in use are closed
// when released.
func (sc *StmtCache) Clear() {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.items.Purge()
}

// Stats holds cache performance metrics.
type Stats struct {
	Size      int
	Capacity  int
	Hits      uint64
	Misses    uint64
	Evictions uint64
	HitRate   float64
}

// Stats returns a snapshot of the cache counters.
func (sc *StmtCache) Stats() Stats {
	hits := sc.hits.Load()
	misses := sc.misses.Load()

	hitRate := 0.0
	if total := hits + misses; total > 0 {
		hitRate = float64(hits) / float64(total)
	}

	return Stats{
		Size:      sc.items.Len(),
		Capacity:  sc.capacity,
		Hits:      hits,
		Misses:    misses,
		Evictions: sc.evictions.Load(),
		HitRate:   hitRate,
	}
}
