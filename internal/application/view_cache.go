package application

import (
	"sort"
	"strings"
	"sync"
	"time"
)

// Logical view paths. Mutations invalidate the views they affect so the next
// read recomputes them.
const (
	ViewPathCalendar  = "/admin/calendar"
	ViewPathEstimates = "/admin/estimates"
	ViewPathCustomers = "/admin/customers"
)

// EstimateViewPath is the detail view of one estimate.
func EstimateViewPath(id string) string {
	return ViewPathEstimates + "/" + id
}

// CustomerViewPath is the detail view of one customer.
func CustomerViewPath(id string) string {
	return ViewPathCustomers + "/" + id
}

// ViewCache stores recently computed read results per logical view path.
// Entries expire after a TTL and are dropped early by Invalidate. Stored
// values are treated as immutable; callers copy before handing them out.
//
// Readers take a Generation before reading storage and hand it back to
// StoreIfCurrent, which refuses the write when any Invalidate ran in
// between. A snapshot read before a mutation can therefore never outlive
// that mutation's invalidation.
type ViewCache struct {
	mu         sync.RWMutex
	now        func() time.Time
	ttl        time.Duration
	maxEntries int
	entries    map[viewCacheKey]viewCacheEntry
	generation uint64
}

type viewCacheKey struct {
	path string
	key  string
}

type viewCacheEntry struct {
	value     any
	expiresAt time.Time
}

// NewViewCache builds a cache. Non-positive ttl and maxEntries fall back to
// 30s and 256.
func NewViewCache(ttl time.Duration, maxEntries int, now func() time.Time) *ViewCache {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	if maxEntries <= 0 {
		maxEntries = 256
	}
	if now == nil {
		now = time.Now
	}
	return &ViewCache{
		now:        now,
		ttl:        ttl,
		maxEntries: maxEntries,
		entries:    make(map[viewCacheKey]viewCacheEntry),
	}
}

// Get returns the live value stored for key under path.
func (c *ViewCache) Get(path, key string) (any, bool) {
	if c == nil {
		return nil, false
	}
	k := viewCacheKey{path: path, key: key}
	c.mu.RLock()
	entry, ok := c.entries[k]
	c.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if c.now().After(entry.expiresAt) {
		c.mu.Lock()
		delete(c.entries, k)
		c.mu.Unlock()
		return nil, false
	}
	return entry.value, true
}

// Generation returns the invalidation counter. It only grows.
func (c *ViewCache) Generation() uint64 {
	if c == nil {
		return 0
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.generation
}

// Store records value for key under path unconditionally.
func (c *ViewCache) Store(path, key string, value any) {
	if c == nil {
		return
	}
	expiry := c.now().Add(c.ttl)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.storeLocked(path, key, value, expiry)
}

// StoreIfCurrent records value only when no Invalidate happened since
// generation was taken, and reports whether it did.
func (c *ViewCache) StoreIfCurrent(path, key string, value any, generation uint64) bool {
	if c == nil {
		return false
	}
	expiry := c.now().Add(c.ttl)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.generation != generation {
		return false
	}
	c.storeLocked(path, key, value, expiry)
	return true
}

func (c *ViewCache) storeLocked(path, key string, value any, expiry time.Time) {
	c.cleanupLocked()
	if len(c.entries) >= c.maxEntries {
		c.evictOneLocked()
	}
	c.entries[viewCacheKey{path: path, key: key}] = viewCacheEntry{value: value, expiresAt: expiry}
}

// Invalidate drops every entry stored under one of paths or beneath it, so
// invalidating "/admin/estimates" also clears "/admin/estimates/{id}".
func (c *ViewCache) Invalidate(paths ...string) {
	if c == nil || len(paths) == 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.generation++
	for k := range c.entries {
		for _, p := range paths {
			if k.path == p || strings.HasPrefix(k.path, strings.TrimSuffix(p, "/")+"/") {
				delete(c.entries, k)
				break
			}
		}
	}
}

// Len reports the number of stored entries, expired ones included.
func (c *ViewCache) Len() int {
	if c == nil {
		return 0
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

func (c *ViewCache) cleanupLocked() {
	now := c.now()
	for key, entry := range c.entries {
		if now.After(entry.expiresAt) {
			delete(c.entries, key)
		}
	}
}

func (c *ViewCache) evictOneLocked() {
	var (
		oldestKey viewCacheKey
		oldest    time.Time
		found     bool
	)
	for key, entry := range c.entries {
		if !found || entry.expiresAt.Before(oldest) {
			oldestKey, oldest, found = key, entry.expiresAt, true
		}
	}
	if found {
		delete(c.entries, oldestKey)
	}
}

func buildEventListCacheKey(params ListEventsParams) string {
	statuses := make([]string, len(params.Statuses))
	for i, s := range params.Statuses {
		statuses[i] = string(s)
	}
	sort.Strings(statuses)

	builder := strings.Builder{}
	builder.WriteString(params.Range.Start.UTC().Format(time.RFC3339Nano))
	builder.WriteString("|")
	builder.WriteString(params.Range.End.UTC().Format(time.RFC3339Nano))
	builder.WriteString("|")
	builder.WriteString(params.CustomerID)
	builder.WriteString("|")
	builder.WriteString(strings.Join(statuses, ","))
	return builder.String()
}

func buildEstimateListCacheKey(params ListEstimatesParams) string {
	return params.CustomerID + "|" + string(params.Status)
}
