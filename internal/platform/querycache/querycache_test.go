package querycache

import (
	"net/url"
	"testing"
	"time"
)

func TestCache_SetGet(t *testing.T) {
	c := New(time.Minute, nil)
	key := NewKey("visits", url.Values{"limit": {"20"}})

	gen := c.Generation("visits")
	if !c.Set(key, "page-1", gen) {
		t.Fatal("expected Set to accept a current-generation fill")
	}

	got, ok := c.Get(key)
	if !ok || got != "page-1" {
		t.Errorf("Get = %v/%v, want page-1/true", got, ok)
	}
}

func TestCache_KeyIncludesParams(t *testing.T) {
	c := New(time.Minute, nil)
	gen := c.Generation("visits")
	c.Set(NewKey("visits", url.Values{"offset": {"0"}}), "first", gen)

	if _, ok := c.Get(NewKey("visits", url.Values{"offset": {"20"}})); ok {
		t.Error("different parameters must be a different key")
	}
}

func TestCache_InvalidateDropsFamily(t *testing.T) {
	c := New(time.Minute, nil)
	visitsKey := NewKey("visits", url.Values{})
	doctorsKey := NewKey("doctors", url.Values{})

	c.Set(visitsKey, "v", c.Generation("visits"))
	c.Set(doctorsKey, "d", c.Generation("doctors"))

	c.Invalidate("visits")

	if _, ok := c.Get(visitsKey); ok {
		t.Error("invalidated family must miss")
	}
	if _, ok := c.Get(doctorsKey); !ok {
		t.Error("other families must survive invalidation")
	}
}

func TestCache_StaleFillRejected(t *testing.T) {
	c := New(time.Minute, nil)
	key := NewKey("visits", url.Values{})

	// Fetch issued, then the family is invalidated before the response lands.
	gen := c.Generation("visits")
	c.Invalidate("visits")

	if c.Set(key, "stale", gen) {
		t.Fatal("expected stale fill to be rejected")
	}
	if _, ok := c.Get(key); ok {
		t.Error("rejected fill must not be stored")
	}

	// A fill issued after the invalidation is accepted.
	if !c.Set(key, "fresh", c.Generation("visits")) {
		t.Error("expected current-generation fill to be accepted")
	}
}

func TestCache_TTLExpiry(t *testing.T) {
	c := New(10*time.Millisecond, nil)
	key := NewKey("visits", url.Values{})
	c.Set(key, "v", c.Generation("visits"))

	time.Sleep(20 * time.Millisecond)

	if _, ok := c.Get(key); ok {
		t.Error("expired entry must miss")
	}
}

func TestCache_Clear(t *testing.T) {
	c := New(time.Minute, nil)
	key := NewKey("visits", url.Values{})
	c.Set(key, "v", c.Generation("visits"))
	c.Clear()
	if _, ok := c.Get(key); ok {
		t.Error("cleared cache must miss")
	}
}
