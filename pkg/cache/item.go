package cache

import (
	"time"
)

// NeverExpires is the expiration sentinel for items that are only removed
// explicitly or by eviction.
var NeverExpires = time.Date(9999, time.December, 31, 23, 59, 59, 0, time.UTC)

// ExpirableItem pairs a cached item with its absolute expiration time.
// ExpirationTime is always stored in UTC.
type ExpirableItem[V any] struct {
	Item           V
	ExpirationTime time.Time
}

// NewExpirableItem creates an item expiring at the given instant
func NewExpirableItem[V any](item V, expiration time.Time) ExpirableItem[V] {
	return ExpirableItem[V]{
		Item:           item,
		ExpirationTime: expiration.UTC(),
	}
}

// IsExpired reports whether the item is logically expired at now.
// An item expires at the instant now reaches its expiration time.
func (e ExpirableItem[V]) IsExpired(now time.Time) bool {
	return !now.Before(e.ExpirationTime)
}

// CompareExpiration orders two items by expiration time, earliest first.
// It returns -1, 0 or +1 and is suitable for slices.SortFunc.
func CompareExpiration[V any](a, b ExpirableItem[V]) int {
	return a.ExpirationTime.Compare(b.ExpirationTime)
}
