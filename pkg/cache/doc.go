// Copyright (c) 2024 SIROS Foundation
// SPDX-License-Identifier: BSD-2-Clause

/*
Package cache provides a generic, time-bounded and quota-enforced cache.

A [TimeBoundedCache] maps keys to items that carry an absolute UTC expiration
time. Entries that have reached their expiration are treated as absent by every
read even before they are physically purged, so callers never observe stale
data regardless of purge timing.

# Capacity

The cache never holds more than Config.MaxItems entries. When an insertion
would exceed the limit the cache first purges expired entries and then asks
its [EvictionPolicy] which keys to drop. The default policy, [RejectOnQuota],
refuses to evict and the insertion fails with [ErrQuotaExceeded]:

	c, err := cache.New(cache.Config[string, []byte]{
	    MaxItems: 1000,
	})

	ok, err := c.TryAddItem("key", value, time.Now().Add(time.Minute), false)
	if errors.Is(err, cache.ErrQuotaExceeded) {
	    // capacity is too small, or somebody is flooding the cache
	}

Use [EvictOldest] to drop the entries closest to expiry instead.

# Purging

Two purge modes are supported:

  - AccessBasedPurge: stale entries are removed opportunistically by mutating
    calls once the purge interval has elapsed and the entry count is above the
    low-water mark.
  - TimerBasedPurge: a background timer purges every purge interval. The timer
    starts with the first insertion and stops whenever the cache becomes
    empty, so an idle cache holds no timer.

A full cache is always purged before quota enforcement, in both modes.

# Concurrency

All methods are safe for concurrent use. Reads share a reader lock; every
mutation (add, replace, remove, clear, purge) runs in a single critical
section under the writer lock. The internal purge and quota helpers can only
be reached through a guard value that exists while the writer lock is held.
*/
package cache
