// Package pagecache caches fetched page bodies for the duration of a run so
// a URL is never fetched twice within one crawl.
package pagecache

import (
	"container/list"
	"sync"

	"github.com/newsatlas/hubcrawler/internal/hub"
)

// Cache is a bounded LRU cache of fetch responses, safe for concurrent use.
type Cache struct {
	mu       sync.Mutex
	capacity int
	entries  map[string]*list.Element
	order    *list.List
}

type entry struct {
	url  string
	resp hub.FetchResponse
}

const defaultCapacity = 1024

// New creates a cache holding at most capacity responses.
func New(capacity int) *Cache {
	if capacity <= 0 {
		capacity = defaultCapacity
	}
	return &Cache{
		capacity: capacity,
		entries:  make(map[string]*list.Element, capacity),
		order:    list.New(),
	}
}

// Get returns the cached response for url.
func (c *Cache) Get(url string) (hub.FetchResponse, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	el, ok := c.entries[url]
	if !ok {
		return hub.FetchResponse{}, false
	}
	c.order.MoveToFront(el)
	return el.Value.(*entry).resp, true
}

// Put stores the response, evicting the least recently used entry when full.
func (c *Cache) Put(url string, resp hub.FetchResponse) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.entries[url]; ok {
		el.Value.(*entry).resp = resp
		c.order.MoveToFront(el)
		return
	}
	c.entries[url] = c.order.PushFront(&entry{url: url, resp: resp})
	if c.order.Len() > c.capacity {
		oldest := c.order.Back()
		c.order.Remove(oldest)
		delete(c.entries, oldest.Value.(*entry).url)
	}
}

// Len reports the number of cached responses.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}
