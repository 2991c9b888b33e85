// util/cache_service.go

package util

import (
	"context"
	"sync"
	"time"

	"github.com/dev-mohitbeniwal/permcheck/db"
	"github.com/dev-mohitbeniwal/permcheck/model"
)

const defaultCacheCapacity = 100

// CacheService caches reports, indexes checks by their inputs and guards
// concurrent checks of the same inputs. Redis backs it when enabled,
// otherwise state stays in process, bounded by capacity and ttl.
type CacheService struct {
	redis bool

	mu      sync.Mutex
	reports *boundedMap[*model.CheckReport]
	index   *boundedMap[string]
	locks   map[string]time.Time
}

// NewCacheService returns a Redis-backed cache when useRedis is set and a
// client is connected. The in-process fallback keeps at most capacity
// reports and index entries, each for at most ttl (0 keeps them until evicted).
func NewCacheService(useRedis bool, capacity int, ttl time.Duration) *CacheService {
	if capacity <= 0 {
		capacity = defaultCacheCapacity
	}
	return &CacheService{
		redis:   useRedis && db.RedisClient != nil,
		reports: newBoundedMap[*model.CheckReport](capacity, ttl),
		index:   newBoundedMap[string](capacity, ttl),
		locks:   make(map[string]time.Time),
	}
}

func (c *CacheService) GetReport(ctx context.Context, checkID string) (*model.CheckReport, error) {
	if c.redis {
		return db.GetCachedReport(ctx, checkID)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	report, _ := c.reports.get(checkID, time.Now())
	return report, nil
}

func (c *CacheService) SetReport(ctx context.Context, report *model.CheckReport) error {
	if c.redis {
		return db.CacheReport(ctx, report)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reports.put(report.CheckID, report, time.Now())
	return nil
}

// LookupCheck returns the check ID previously computed for inputKey.
func (c *CacheService) LookupCheck(ctx context.Context, inputKey string) (string, error) {
	if c.redis {
		return db.GetIndexedCheck(ctx, inputKey)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	checkID, _ := c.index.get(inputKey, time.Now())
	return checkID, nil
}

func (c *CacheService) IndexCheck(ctx context.Context, inputKey, checkID string) error {
	if c.redis {
		return db.IndexCheck(ctx, inputKey, checkID)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.index.put(inputKey, checkID, time.Now())
	return nil
}

// Lock reports false when another holder owns inputKey and its ttl has not expired.
func (c *CacheService) Lock(ctx context.Context, inputKey string, ttl time.Duration) (bool, error) {
	if c.redis {
		return db.LockResource(ctx, inputKey, ttl)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	now := time.Now()
	for key, until := range c.locks {
		if !now.Before(until) {
			delete(c.locks, key)
		}
	}
	if _, held := c.locks[inputKey]; held {
		return false, nil
	}
	c.locks[inputKey] = now.Add(ttl)
	return true, nil
}

func (c *CacheService) Unlock(ctx context.Context, inputKey string) error {
	if c.redis {
		return db.UnlockResource(ctx, inputKey)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.locks, inputKey)
	return nil
}

// boundedMap evicts its oldest entry once capacity is reached. Callers hold
// the CacheService mutex.
type boundedMap[V any] struct {
	capacity int
	ttl      time.Duration
	entries  map[string]boundedEntry[V]
	order    []string
}

type boundedEntry[V any] struct {
	value   V
	expires time.Time
}

func newBoundedMap[V any](capacity int, ttl time.Duration) *boundedMap[V] {
	return &boundedMap[V]{
		capacity: capacity,
		ttl:      ttl,
		entries:  make(map[string]boundedEntry[V]),
	}
}

func (m *boundedMap[V]) get(key string, now time.Time) (V, bool) {
	e, ok := m.entries[key]
	if !ok {
		var zero V
		return zero, false
	}
	if !e.expires.IsZero() && !now.Before(e.expires) {
		m.remove(key)
		var zero V
		return zero, false
	}
	return e.value, true
}

func (m *boundedMap[V]) put(key string, value V, now time.Time) {
	if _, exists := m.entries[key]; exists {
		m.remove(key)
	}
	for len(m.order) >= m.capacity {
		delete(m.entries, m.order[0])
		m.order = m.order[1:]
	}
	e := boundedEntry[V]{value: value}
	if m.ttl > 0 {
		e.expires = now.Add(m.ttl)
	}
	m.entries[key] = e
	m.order = append(m.order, key)
}

func (m *boundedMap[V]) remove(key string) {
	delete(m.entries, key)
	for i, k := range m.order {
		if k == key {
			m.order = append(m.order[:i], m.order[i+1:]...)
			return
		}
	}
}

func (m *boundedMap[V]) size() int {
	return len(m.entries)
}
