// ABOUTME: TTL and size bounded set of recently processed keys
// ABOUTME: The dispatcher uses it to drop Telegram updates that are delivered twice

package dedupe

import (
	"container/list"
	"sync"
	"time"
)

type entry[K comparable] struct {
	key    K
	seenAt time.Time
}

// Cache remembers keys for ttl, holding at most maxSize of them.
// When full, the least recently marked key is forgotten first.
type Cache[K comparable] struct {
	mu      sync.Mutex
	index   map[K]*list.Element
	order   *list.List // oldest at front
	ttl     time.Duration
	maxSize int
	now     func() time.Time

	stop      chan struct{}
	closeOnce sync.Once
}

// New creates a cache and starts a janitor that sweeps expired keys every sweep interval.
// sweep <= 0 disables the janitor; expired keys are then only dropped lazily.
func New[K comparable](ttl time.Duration, maxSize int, sweep time.Duration) *Cache[K] {
	c := &Cache[K]{
		index:   make(map[K]*list.Element),
		order:   list.New(),
		ttl:     ttl,
		maxSize: max(maxSize, 1),
		now:     time.Now,
		stop:    make(chan struct{}),
	}
	if sweep > 0 {
		go c.janitor(sweep)
	}
	return c
}

// Seen reports whether key was marked within ttl, and marks it.
// The check and the mark happen under one lock, so concurrent callers
// with the same key see exactly one false.
func (c *Cache[K]) Seen(key K) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	if el, ok := c.index[key]; ok {
		e := el.Value.(*entry[K])
		fresh := now.Sub(e.seenAt) < c.ttl
		e.seenAt = now
		c.order.MoveToBack(el)
		return fresh
	}

	for c.order.Len() >= c.maxSize {
		c.removeElement(c.order.Front())
	}
	c.index[key] = c.order.PushBack(&entry[K]{key: key, seenAt: now})
	return false
}

// Len returns the number of keys currently held, expired ones included.
func (c *Cache[K]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

// sweepExpired drops every key older than ttl. Entries are in mark order,
// so it stops at the first fresh one.
func (c *Cache[K]) sweepExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	removed := 0
	for el := c.order.Front(); el != nil; el = c.order.Front() {
		if now.Sub(el.Value.(*entry[K]).seenAt) < c.ttl {
			break
		}
		c.removeElement(el)
		removed++
	}
	return removed
}

func (c *Cache[K]) removeElement(el *list.Element) {
	e := c.order.Remove(el).(*entry[K])
	delete(c.index, e.key)
}

func (c *Cache[K]) janitor(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.sweepExpired()
		case <-c.stop:
			return
		}
	}
}

// Close stops the janitor. Safe to call more than once.
func (c *Cache[K]) Close() {
	c.closeOnce.Do(func() { close(c.stop) })
}
