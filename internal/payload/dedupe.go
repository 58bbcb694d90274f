// internal/payload/dedupe.go
package payload

import (
	"container/list"
	"fmt"
	"hash/fnv"
	"net/url"
	"strconv"
	"strings"
	"sync"
)

// DefaultDedupeCapacity bounds the payload fingerprint cache. 5000 keys is
// far more pages than any single thread produces.
const DefaultDedupeCapacity = 5000

// DedupeCache is a bounded LRU set of payload fingerprints, used to discard
// responses already processed (host-page retries, or the same response
// arriving through two instrumentation layers). Checking a present key
// refreshes it; eviction removes the oldest unrefreshed entry.
type DedupeCache struct {
	mu       sync.Mutex
	capacity int
	entries  map[string]*list.Element
	order    *list.List // front = most recently seen
}

// NewDedupeCache creates a cache holding at most capacity keys.
func NewDedupeCache(capacity int) *DedupeCache {
	if capacity <= 0 {
		capacity = DefaultDedupeCapacity
	}
	return &DedupeCache{
		capacity: capacity,
		entries:  make(map[string]*list.Element),
		order:    list.New(),
	}
}

// Seen records key and reports whether it was already present.
func (c *DedupeCache) Seen(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.entries[key]; ok {
		c.order.MoveToFront(el)
		return true
	}
	if len(c.entries) >= c.capacity {
		oldest := c.order.Back()
		if oldest != nil {
			c.order.Remove(oldest)
			delete(c.entries, oldest.Value.(string))
		}
	}
	c.entries[key] = c.order.PushFront(key)
	return false
}

// Len returns the current number of cached keys.
func (c *DedupeCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// fnv32a hashes s with 32-bit FNV-1a, rendered base-36 for compact keys.
func fnv32a(s string) string {
	h := fnv.New32a()
	h.Write([]byte(s))
	return strconv.FormatUint(uint64(h.Sum32()), 36)
}

// DedupeKey builds the content fingerprint for one response: URL base plus
// page offset plus declared total plus a cheap hash over head, middle, and
// tail samples of the body. Sampling keeps key construction O(1) in body
// size while still separating pages that share URL and paging metadata.
func DedupeKey(rawURL string, paging *Paging, body string) string {
	base := rawURL
	if i := strings.Index(base, "?"); i >= 0 {
		base = base[:i]
	}
	start := "0"
	if u, err := url.Parse(rawURL); err == nil {
		if s := u.Query().Get("start"); s != "" {
			start = s
		}
	}
	total := "?"
	if paging != nil {
		total = fmt.Sprintf("%d", paging.Total)
	}

	n := len(body)
	sample := body
	if n > 64 {
		var b strings.Builder
		b.WriteString(body[:64])
		if n > 128 {
			mid := n / 2
			b.WriteString(body[mid-32 : mid+32])
		}
		b.WriteString(body[n-64:])
		sample = b.String()
	}
	return base + "|" + start + "|" + total + "|" + fnv32a(sample)
}
