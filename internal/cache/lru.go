package cache

import (
	"container/list"
	"encoding/json"
	"strings"
	"sync"
)

// Cache is a bounded read-through cache for repeated analysis queries,
// keyed by (tool, normalized query). Least-recently-used entries are
// evicted when capacity is exceeded. Purely a latency optimization:
// removing it must never change behavior.
//
// Entries for sensitive tool categories are refused outright so
// sensitive material never sits in process memory longer than the
// request that produced it. That is a hard policy, not a hint.
type Cache struct {
	mu        sync.Mutex
	capacity  int
	entries   map[string]*list.Element
	order     *list.List // front = most recently used
	sensitive []string
}

type entry struct {
	key   string
	tool  string
	value json.RawMessage
}

const DefaultCapacity = 50

// New creates a cache. Tool keys containing any of the sensitive
// substrings (case-insensitive) are never stored.
func New(capacity int, sensitive ...string) *Cache {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	lowered := make([]string, len(sensitive))
	for i, s := range sensitive {
		lowered[i] = strings.ToLower(s)
	}
	return &Cache{
		capacity:  capacity,
		entries:   make(map[string]*list.Element),
		order:     list.New(),
		sensitive: lowered,
	}
}

// Get returns the memoized value for the key and promotes it to most
// recently used.
func (c *Cache) Get(tool, query string) (json.RawMessage, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.entries[key(tool, query)]
	if !ok {
		return nil, false
	}
	c.order.MoveToFront(el)
	return el.Value.(*entry).value, true
}

// Set stores the value, evicting the least-recently-used entry when
// the cache is full. Sensitive tools are silently refused.
func (c *Cache) Set(tool, query string, value json.RawMessage) {
	if c.isSensitive(tool) {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	k := key(tool, query)
	if el, ok := c.entries[k]; ok {
		el.Value.(*entry).value = value
		c.order.MoveToFront(el)
		return
	}

	if c.order.Len() >= c.capacity {
		oldest := c.order.Back()
		if oldest != nil {
			c.order.Remove(oldest)
			delete(c.entries, oldest.Value.(*entry).key)
		}
	}
	c.entries[k] = c.order.PushFront(&entry{key: k, tool: normalizeTool(tool), value: value})
}

// Clear drops entries for the given tools, or everything when no tool
// is given.
func (c *Cache) Clear(tools ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(tools) == 0 {
		c.entries = make(map[string]*list.Element)
		c.order.Init()
		return
	}

	drop := make(map[string]bool, len(tools))
	for _, t := range tools {
		drop[normalizeTool(t)] = true
	}
	for el := c.order.Front(); el != nil; {
		next := el.Next()
		e := el.Value.(*entry)
		if drop[e.tool] {
			c.order.Remove(el)
			delete(c.entries, e.key)
		}
		el = next
	}
}

// Len returns the number of cached entries.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

func (c *Cache) isSensitive(tool string) bool {
	t := normalizeTool(tool)
	for _, s := range c.sensitive {
		if strings.Contains(t, s) {
			return true
		}
	}
	return false
}

func key(tool, query string) string {
	return normalizeTool(tool) + "\x00" + strings.TrimSpace(strings.ToLower(query))
}

func normalizeTool(tool string) string {
	return strings.TrimSpace(strings.ToLower(tool))
}
