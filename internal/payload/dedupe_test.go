// internal/payload/dedupe_test.go
package payload

import (
	"fmt"
	"testing"
)

func TestDedupeCache_SeenOnRepeat(t *testing.T) {
	c := NewDedupeCache(10)
	key := DedupeKey("https://api.example.com/comments?start=0", &Paging{Total: 50, Count: 10}, `{"elements":[]}`)

	if c.Seen(key) {
		t.Error("first Seen returned true")
	}
	if !c.Seen(key) {
		t.Error("second Seen returned false")
	}
}

func TestDedupeCache_Bounded(t *testing.T) {
	const capacity = 32
	c := NewDedupeCache(capacity)

	for i := 0; i < capacity*4; i++ {
		c.Seen(fmt.Sprintf("key-%d", i))
		if c.Len() > capacity {
			t.Fatalf("cache grew to %d entries, capacity %d", c.Len(), capacity)
		}
	}
	if c.Len() != capacity {
		t.Errorf("Len() = %d, want %d", c.Len(), capacity)
	}
}

func TestDedupeCache_RefreshKeepsHotEntry(t *testing.T) {
	c := NewDedupeCache(3)
	c.Seen("a")
	c.Seen("b")
	c.Seen("c")
	c.Seen("a") // refresh
	c.Seen("d") // evicts b, the oldest unrefreshed key

	if !c.Seen("a") {
		t.Error("refreshed key evicted")
	}
	if c.Seen("b") {
		t.Error("oldest key survived eviction")
	}
}

func TestDedupeKey_DistinguishesPages(t *testing.T) {
	body := `{"elements":["page-one"]}`
	k0 := DedupeKey("https://api.example.com/comments?start=0&count=10", &Paging{Total: 50, Count: 10}, body)
	k1 := DedupeKey("https://api.example.com/comments?start=10&count=10", &Paging{Total: 50, Count: 10}, body)
	if k0 == k1 {
		t.Error("keys for different page offsets collide")
	}
}

func TestDedupeKey_IgnoresVolatileQueryParams(t *testing.T) {
	body := `{"elements":["same"]}`
	k0 := DedupeKey("https://api.example.com/comments?start=0&ts=111", &Paging{Total: 50, Count: 10}, body)
	k1 := DedupeKey("https://api.example.com/comments?start=0&ts=222", &Paging{Total: 50, Count: 10}, body)
	if k0 != k1 {
		t.Errorf("keys differ on volatile params: %q vs %q", k0, k1)
	}
}

func TestDedupeKey_BodyContentMatters(t *testing.T) {
	// Same URL and paging, different content in the middle of a long body.
	prefix := make([]byte, 200)
	for i := range prefix {
		prefix[i] = 'x'
	}
	a := string(prefix) + "AAAA" + string(prefix)
	b := string(prefix) + "BBBB" + string(prefix)

	kA := DedupeKey("https://api.example.com/comments?start=0", nil, a)
	kB := DedupeKey("https://api.example.com/comments?start=0", nil, b)
	if kA == kB {
		t.Error("keys identical for bodies differing mid-sample")
	}
}
