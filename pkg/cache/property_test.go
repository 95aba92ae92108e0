package cache

import (
	"errors"
	"testing"
	"time"

	"github.com/mailgun/timetools"
	"pgregory.net/rapid"
)

// TestCacheProperties drives the cache with random operations against a
// frozen clock and checks capacity and expiry after every step.
func TestCacheProperties(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		maxItems := rapid.IntRange(1, 16).Draw(t, "maxItems")
		mode := PurgeMode(rapid.IntRange(0, 1).Draw(t, "mode"))
		evict := rapid.Bool().Draw(t, "evict")

		clock := &timetools.FreezedTime{CurrentTime: epoch}
		cfg := Config[int, int]{
			MaxItems:      maxItems,
			PurgeMode:     mode,
			PurgeInterval: time.Hour,
			Clock:         clock,
		}
		if evict {
			cfg.EvictionPolicy = EvictOldest[int, int](0.25)
		}
		c, err := New(cfg)
		if err != nil {
			t.Fatalf("new: %v", err)
		}
		defer c.Close()

		// model of what was last written per key
		written := map[int]time.Time{}

		steps := rapid.IntRange(1, 100).Draw(t, "steps")
		for i := 0; i < steps; i++ {
			key := rapid.IntRange(0, 24).Draw(t, "key")
			switch rapid.IntRange(0, 4).Draw(t, "op") {
			case 0, 1:
				ttl := time.Duration(rapid.IntRange(1, 120).Draw(t, "ttl")) * time.Second
				exp := clock.CurrentTime.Add(ttl)
				ok, err := c.TryAddItem(key, key, exp, rapid.Bool().Draw(t, "replace"))
				if err != nil && !errors.Is(err, ErrQuotaExceeded) {
					t.Fatalf("unexpected error: %v", err)
				}
				if err != nil && evict {
					t.Fatalf("eviction policy must always make room: %v", err)
				}
				if ok {
					written[key] = exp
				}
			case 2:
				c.TryRemoveItem(key)
				delete(written, key)
			case 3:
				advance := time.Duration(rapid.IntRange(0, 90).Draw(t, "advance")) * time.Second
				clock.CurrentTime = clock.CurrentTime.Add(advance)
			case 4:
				c.PurgeStaleItems()
			}

			if n := c.Count(); n > maxItems {
				t.Fatalf("count %d exceeds capacity %d", n, maxItems)
			}

			now := clock.CurrentTime
			for k, exp := range written {
				if _, found := c.GetItem(k); found && !now.Before(exp) {
					t.Fatalf("key %d readable at %v after expiry %v", k, now, exp)
				}
			}
		}
	})
}
