package cache

import (
	"math"
	"slices"
)

// Entries is a read-only view of the cache table handed to an EvictionPolicy.
// It is only valid for the duration of the OnQuotaReached call.
type Entries[K comparable, V any] struct {
	m map[K]ExpirableItem[V]
}

// Len returns the number of entries, expired ones included
func (e Entries[K, V]) Len() int {
	return len(e.m)
}

// Range calls fn for each entry until fn returns false
func (e Entries[K, V]) Range(fn func(key K, item ExpirableItem[V]) bool) {
	for k, v := range e.m {
		if !fn(k, v) {
			return
		}
	}
}

// EvictionPolicy decides which entries to drop when the cache is full.
//
// OnQuotaReached is called with the writer lock held. It returns the keys to
// remove, or an error to fail the insertion. If the returned keys do not make
// room the insertion fails with ErrQuotaExceeded.
type EvictionPolicy[K comparable, V any] interface {
	OnQuotaReached(entries Entries[K, V]) ([]K, error)
}

// EvictionFunc adapts a function to the EvictionPolicy interface
type EvictionFunc[K comparable, V any] func(entries Entries[K, V]) ([]K, error)

// OnQuotaReached calls f
func (f EvictionFunc[K, V]) OnQuotaReached(entries Entries[K, V]) ([]K, error) {
	return f(entries)
}

// RejectOnQuota returns the default policy: never evict, fail with
// ErrQuotaExceeded.
func RejectOnQuota[K comparable, V any]() EvictionPolicy[K, V] {
	return EvictionFunc[K, V](func(Entries[K, V]) ([]K, error) {
		return nil, ErrQuotaExceeded
	})
}

// EvictOldest returns a policy that drops the given fraction of entries,
// choosing those with the earliest expiration time. At least one entry is
// always dropped. Fractions outside (0, 1] are clamped.
func EvictOldest[K comparable, V any](fraction float64) EvictionPolicy[K, V] {
	if fraction <= 0 || math.IsNaN(fraction) {
		fraction = math.SmallestNonzeroFloat64
	}
	if fraction > 1 {
		fraction = 1
	}
	return EvictionFunc[K, V](func(entries Entries[K, V]) ([]K, error) {
		type kv struct {
			key  K
			item ExpirableItem[V]
		}
		all := make([]kv, 0, entries.Len())
		entries.Range(func(k K, item ExpirableItem[V]) bool {
			all = append(all, kv{key: k, item: item})
			return true
		})
		slices.SortFunc(all, func(a, b kv) int {
			return CompareExpiration(a.item, b.item)
		})

		n := int(math.Ceil(float64(len(all)) * fraction))
		if n < 1 {
			n = 1
		}
		if n > len(all) {
			n = len(all)
		}

		keys := make([]K, n)
		for i := 0; i < n; i++ {
			keys[i] = all[i].key
		}
		return keys, nil
	})
}
