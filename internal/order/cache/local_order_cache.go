// Package cache holds the in-memory orders of one mounted screen.
package cache

import (
	"sync"
	"time"

	"tiffin/internal/domain"
)

// LocalOrderCache keeps the orders relevant to one view, keyed by id. Orders
// failing the predicate are never stored. After Close every mutation is a no-op.
type LocalOrderCache struct {
	mu        sync.RWMutex
	orders    map[string]domain.Order
	predicate func(domain.Order) bool
	closed    bool
	changes   chan struct{}

	// seen holds the newest event timestamp per id while a load is pending.
	seen map[string]time.Time
}

// New returns an empty cache. A nil predicate admits every order.
func New(predicate func(domain.Order) bool) *LocalOrderCache {
	return &LocalOrderCache{
		orders:    make(map[string]domain.Order),
		predicate: predicate,
		changes:   make(chan struct{}, 1),
	}
}

func (c *LocalOrderCache) admits(o domain.Order) bool {
	return c.predicate == nil || c.predicate(o)
}

// Put stores o, replacing any copy with the same id. An order the predicate
// rejects is removed instead. Putting identical content reports no change.
func (c *LocalOrderCache) Put(o domain.Order) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}

	if !c.admits(o) {
		return c.removeLocked(o.ID)
	}
	if existing, ok := c.orders[o.ID]; ok && existing.Equal(o) {
		return false
	}
	c.orders[o.ID] = o.Clone()
	c.notifyLocked()
	return true
}

func (c *LocalOrderCache) Remove(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	return c.removeLocked(id)
}

func (c *LocalOrderCache) removeLocked(id string) bool {
	if _, ok := c.orders[id]; !ok {
		return false
	}
	delete(c.orders, id)
	c.notifyLocked()
	return true
}

// Replace swaps the whole content for orders, keeping only admitted ones.
func (c *LocalOrderCache) Replace(orders []domain.Order) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}

	c.orders = make(map[string]domain.Order, len(orders))
	for _, o := range orders {
		if c.admits(o) {
			c.orders[o.ID] = o.Clone()
		}
	}
	c.notifyLocked()
}

// BeginLoad starts recording the events passed to Observe until the next Merge.
func (c *LocalOrderCache) BeginLoad() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.seen = make(map[string]time.Time)
}

// Observe records that an event for id stamped at was handled. It only has an
// effect between BeginLoad and Merge, and covers events that changed nothing.
func (c *LocalOrderCache) Observe(id string, at time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.seen == nil {
		return
	}
	if prev, ok := c.seen[id]; !ok || at.After(prev) {
		c.seen[id] = at
	}
}

// Merge puts every admitted order unless the cache already holds a copy that
// was updated later, or an event at least as new as the row was observed since
// BeginLoad. It ends the pending load and reports how many orders changed.
func (c *LocalOrderCache) Merge(orders []domain.Order) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	seen := c.seen
	c.seen = nil
	if c.closed {
		return 0
	}

	changed := 0
	for _, o := range orders {
		if at, ok := seen[o.ID]; ok && !at.Before(o.UpdatedAt) {
			continue
		}
		if !c.admits(o) {
			continue
		}
		existing, ok := c.orders[o.ID]
		if ok && (existing.UpdatedAt.After(o.UpdatedAt) || existing.Equal(o)) {
			continue
		}
		c.orders[o.ID] = o.Clone()
		changed++
	}
	if changed > 0 {
		c.notifyLocked()
	}
	return changed
}

func (c *LocalOrderCache) Get(id string) (domain.Order, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	o, ok := c.orders[id]
	if !ok {
		return domain.Order{}, false
	}
	return o.Clone(), true
}

// Snapshot returns copies of every cached order in no particular order.
func (c *LocalOrderCache) Snapshot() []domain.Order {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]domain.Order, 0, len(c.orders))
	for _, o := range c.orders {
		out = append(out, o.Clone())
	}
	return out
}

func (c *LocalOrderCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.orders)
}

// Changes signals after mutations. Signals coalesce; the channel is closed by Close.
func (c *LocalOrderCache) Changes() <-chan struct{} {
	return c.changes
}

func (c *LocalOrderCache) notifyLocked() {
	select {
	case c.changes <- struct{}{}:
	default:
	}
}

func (c *LocalOrderCache) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.changes)
}

func (c *LocalOrderCache) Closed() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.closed
}
