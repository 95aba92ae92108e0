package cache

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/mailgun/timetools"
)

var (
	// ErrQuotaExceeded is returned when the cache is full and the eviction
	// policy could not make room
	ErrQuotaExceeded = errors.New("cache quota exceeded")
	// ErrInvalidCapacity is returned for a non-positive MaxItems or a
	// low-water mark outside [0, MaxItems)
	ErrInvalidCapacity = errors.New("invalid cache capacity")
	// ErrInvalidPurgeInterval is returned for a non-positive purge interval
	ErrInvalidPurgeInterval = errors.New("invalid purge interval")
)

// PurgeMode selects how expired entries are physically removed
type PurgeMode int

const (
	// TimerBasedPurge purges from a background timer every purge interval
	TimerBasedPurge PurgeMode = iota
	// AccessBasedPurge purges during mutating calls once the interval elapsed
	AccessBasedPurge
)

func (m PurgeMode) String() string {
	switch m {
	case TimerBasedPurge:
		return "timer"
	case AccessBasedPurge:
		return "access"
	default:
		return fmt.Sprintf("PurgeMode(%d)", int(m))
	}
}

// DefaultPurgeInterval is used when Config.PurgeInterval is zero
const DefaultPurgeInterval = time.Minute

// Config holds TimeBoundedCache settings
type Config[K comparable, V any] struct {
	// MaxItems is the hard capacity of the cache (required)
	MaxItems int

	// LowWaterMark is the entry count below which access-based purging is
	// skipped
	LowWaterMark int

	// PurgeInterval is the minimum time between purges (default 1m)
	PurgeInterval time.Duration

	// PurgeMode selects timer-driven or access-driven purging
	PurgeMode PurgeMode

	// EvictionPolicy is consulted when the cache is full (default RejectOnQuota)
	EvictionPolicy EvictionPolicy[K, V]

	// OnRemove, when set, is called for every entry leaving the cache through
	// overwrite, removal, purge, eviction or clear. It runs with the writer
	// lock held and must not call back into the cache.
	OnRemove func(key K, item V)

	// Clock supplies the current time (default timetools.RealTime)
	Clock timetools.TimeProvider

	Logger *slog.Logger
}

func (c *Config[K, V]) applyDefaults() {
	if c.PurgeInterval == 0 {
		c.PurgeInterval = DefaultPurgeInterval
	}
	if c.EvictionPolicy == nil {
		c.EvictionPolicy = RejectOnQuota[K, V]()
	}
	if c.Clock == nil {
		c.Clock = &timetools.RealTime{}
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

func (c *Config[K, V]) validate() error {
	if c.MaxItems <= 0 {
		return fmt.Errorf("%w: max items must be positive, got %d", ErrInvalidCapacity, c.MaxItems)
	}
	if c.LowWaterMark < 0 || c.LowWaterMark >= c.MaxItems {
		return fmt.Errorf("%w: low-water mark %d outside [0, %d)", ErrInvalidCapacity, c.LowWaterMark, c.MaxItems)
	}
	if c.PurgeInterval < 0 {
		return fmt.Errorf("%w: %v", ErrInvalidPurgeInterval, c.PurgeInterval)
	}
	switch c.PurgeMode {
	case TimerBasedPurge, AccessBasedPurge:
	default:
		return fmt.Errorf("unsupported purge mode: %v", c.PurgeMode)
	}
	return nil
}

// TimeBoundedCache is a thread-safe key/item cache bounded in size and time.
//
// Entry lifecycle: absent -> live -> logically expired -> purged. Live to
// expired is purely a function of the clock; expired entries read as absent
// and are overwritten unconditionally by TryAddItem.
type TimeBoundedCache[K comparable, V any] struct {
	mu      sync.RWMutex
	entries map[K]ExpirableItem[V]

	maxItems      int
	lowWaterMark  int
	purgeInterval time.Duration
	purgeMode     PurgeMode
	nextPurge     time.Time

	evictor  EvictionPolicy[K, V]
	onRemove func(K, V)
	clock    timetools.TimeProvider
	logger   *slog.Logger

	timer    *time.Timer
	timerGen uint64
}

// New creates a time-bounded cache
func New[K comparable, V any](cfg Config[K, V]) (*TimeBoundedCache[K, V], error) {
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	c := &TimeBoundedCache[K, V]{
		entries:       make(map[K]ExpirableItem[V]),
		maxItems:      cfg.MaxItems,
		lowWaterMark:  cfg.LowWaterMark,
		purgeInterval: cfg.PurgeInterval,
		purgeMode:     cfg.PurgeMode,
		evictor:       cfg.EvictionPolicy,
		onRemove:      cfg.OnRemove,
		clock:         cfg.Clock,
		logger:        cfg.Logger,
	}
	c.nextPurge = c.now().Add(c.purgeInterval)
	return c, nil
}

// MaxItems returns the hard capacity
func (c *TimeBoundedCache[K, V]) MaxItems() int {
	return c.maxItems
}

// PurgeInterval returns the configured purge interval
func (c *TimeBoundedCache[K, V]) PurgeInterval() time.Duration {
	return c.purgeInterval
}

// Count returns the number of entries in the table, including entries that
// are logically expired but not yet purged
func (c *TimeBoundedCache[K, V]) Count() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// GetItem returns the item for key. Missing and expired entries both report
// false; reads never evict.
func (c *TimeBoundedCache[K, V]) GetItem(key K) (V, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.entries[key]
	if !ok || entry.IsExpired(c.now()) {
		var zero V
		return zero, false
	}
	return entry.Item, true
}

// TryAddItem stores item under key until expiration.
//
// If a live entry exists and replaceExisting is false, nothing changes and
// false is returned. Expired entries are always overwritten. An error is
// returned only when the cache is full and the eviction policy refuses to
// make room.
func (c *TimeBoundedCache[K, V]) TryAddItem(key K, item V, expiration time.Time, replaceExisting bool) (bool, error) {
	g := c.lockWrite()
	defer g.unlock()

	now := c.now()
	g.purgeIfNeeded(now)

	if existing, ok := c.entries[key]; ok && !existing.IsExpired(now) && !replaceExisting {
		return false, nil
	}
	if err := g.store(key, item, expiration); err != nil {
		return false, err
	}
	return true, nil
}

// TryReplaceItem overwrites the item for key. It returns false without
// changing anything when no live entry exists for key.
func (c *TimeBoundedCache[K, V]) TryReplaceItem(key K, item V, expiration time.Time) (bool, error) {
	g := c.lockWrite()
	defer g.unlock()

	now := c.now()
	g.purgeIfNeeded(now)

	existing, ok := c.entries[key]
	if !ok || existing.IsExpired(now) {
		return false, nil
	}
	if err := g.store(key, item, expiration); err != nil {
		return false, err
	}
	return true, nil
}

// TryUpdateItem replaces the live entry for key with the result of update,
// which receives the current item. update runs with the writer lock held
// and must not call back into the cache. It returns false without calling
// update when no live entry exists for key.
func (c *TimeBoundedCache[K, V]) TryUpdateItem(key K, update func(current V) (V, time.Time)) (bool, error) {
	g := c.lockWrite()
	defer g.unlock()

	now := c.now()
	g.purgeIfNeeded(now)

	existing, ok := c.entries[key]
	if !ok || existing.IsExpired(now) {
		return false, nil
	}
	item, expiration := update(existing.Item)
	if err := g.store(key, item, expiration); err != nil {
		return false, err
	}
	return true, nil
}

// TryRemoveItem removes the entry for key if present. It reports whether the
// removed entry was still live.
func (c *TimeBoundedCache[K, V]) TryRemoveItem(key K) bool {
	g := c.lockWrite()
	defer g.unlock()

	entry, ok := c.entries[key]
	if !ok {
		return false
	}
	g.remove(key, entry)
	g.stopTimerIfEmpty()
	return !entry.IsExpired(c.now())
}

// RemoveMatching removes every entry, live or expired, for which match
// returns true and reports how many were removed. match runs with the
// writer lock held and must not call back into the cache.
func (c *TimeBoundedCache[K, V]) RemoveMatching(match func(key K, item V) bool) int {
	g := c.lockWrite()
	defer g.unlock()

	removed := 0
	for k, entry := range c.entries {
		if match(k, entry.Item) {
			g.remove(k, entry)
			removed++
		}
	}
	g.stopTimerIfEmpty()
	return removed
}

// Select returns the live items for which match returns true, in no
// particular order
func (c *TimeBoundedCache[K, V]) Select(match func(key K, item V) bool) []V {
	c.mu.RLock()
	defer c.mu.RUnlock()

	now := c.now()
	var out []V
	for k, entry := range c.entries {
		if !entry.IsExpired(now) && match(k, entry.Item) {
			out = append(out, entry.Item)
		}
	}
	return out
}

// ClearItems removes every entry, notifying removal for each, and stops the
// purge timer
func (c *TimeBoundedCache[K, V]) ClearItems() {
	g := c.lockWrite()
	defer g.unlock()

	for k, entry := range c.entries {
		g.remove(k, entry)
	}
	g.stopTimer()
}

// PurgeStaleItems removes every expired entry and returns how many were
// removed
func (c *TimeBoundedCache[K, V]) PurgeStaleItems() int {
	g := c.lockWrite()
	defer g.unlock()

	n := g.purgeStale(c.now())
	g.stopTimerIfEmpty()
	return n
}

// ShouldPurge reports whether a mutating call would purge right now
func (c *TimeBoundedCache[K, V]) ShouldPurge() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.shouldPurge(c.now())
}

// Close clears the cache and stops the purge timer
func (c *TimeBoundedCache[K, V]) Close() {
	c.ClearItems()
}

func (c *TimeBoundedCache[K, V]) shouldPurge(now time.Time) bool {
	if len(c.entries) >= c.maxItems {
		return true
	}
	return c.purgeMode == AccessBasedPurge &&
		now.After(c.nextPurge) &&
		len(c.entries) > c.lowWaterMark
}

func (c *TimeBoundedCache[K, V]) now() time.Time {
	return c.clock.UtcNow().UTC()
}

func (c *TimeBoundedCache[K, V]) onTimer(gen uint64) {
	g := c.lockWrite()
	defer g.unlock()

	if c.timer == nil || c.timerGen != gen {
		return
	}
	g.purgeStale(c.now())
	if len(c.entries) > 0 {
		c.timer.Reset(c.purgeInterval)
		return
	}
	c.timer = nil
}

// writeGuard is proof that the writer lock is held. lockWrite is the only
// constructor and unlock invalidates the guard, so the purge, quota and
// removal helpers below cannot run outside the critical section.
type writeGuard[K comparable, V any] struct {
	c *TimeBoundedCache[K, V]
}

func (c *TimeBoundedCache[K, V]) lockWrite() *writeGuard[K, V] {
	c.mu.Lock()
	return &writeGuard[K, V]{c: c}
}

func (g *writeGuard[K, V]) unlock() {
	c := g.c
	g.c = nil
	c.mu.Unlock()
}

func (g *writeGuard[K, V]) purgeIfNeeded(now time.Time) {
	if g.c.shouldPurge(now) {
		g.purgeStale(now)
	}
}

func (g *writeGuard[K, V]) purgeStale(now time.Time) int {
	c := g.c
	removed := 0
	for k, entry := range c.entries {
		if entry.IsExpired(now) {
			g.remove(k, entry)
			removed++
		}
	}
	c.nextPurge = now.Add(c.purgeInterval)
	if removed > 0 {
		c.logger.Debug("purged stale cache entries",
			slog.Int("removed", removed),
			slog.Int("remaining", len(c.entries)))
	}
	return removed
}

func (g *writeGuard[K, V]) enforceQuota() error {
	c := g.c
	if len(c.entries) < c.maxItems {
		return nil
	}

	keys, err := c.evictor.OnQuotaReached(Entries[K, V]{m: c.entries})
	if err != nil {
		c.logger.Warn("cache quota reached",
			slog.Int("max_items", c.maxItems),
			slog.String("error", err.Error()))
		if errors.Is(err, ErrQuotaExceeded) {
			return err
		}
		return fmt.Errorf("%w: %w", ErrQuotaExceeded, err)
	}
	for _, k := range keys {
		if entry, ok := c.entries[k]; ok {
			g.remove(k, entry)
		}
	}

	if len(c.entries) >= c.maxItems {
		c.logger.Warn("cache quota reached, eviction made no room",
			slog.Int("max_items", c.maxItems),
			slog.Int("evicted", len(keys)))
		return fmt.Errorf("%w: %d items", ErrQuotaExceeded, c.maxItems)
	}
	return nil
}

// store inserts or overwrites key. Quota is only enforced when the key is
// not in the table, since overwriting does not grow it.
func (g *writeGuard[K, V]) store(key K, item V, expiration time.Time) error {
	c := g.c
	if existing, ok := c.entries[key]; ok {
		g.remove(key, existing)
	} else if err := g.enforceQuota(); err != nil {
		return err
	}

	c.entries[key] = NewExpirableItem(item, expiration)
	g.startTimer()
	return nil
}

func (g *writeGuard[K, V]) remove(key K, entry ExpirableItem[V]) {
	c := g.c
	delete(c.entries, key)
	if c.onRemove != nil {
		c.onRemove(key, entry.Item)
	}
}

func (g *writeGuard[K, V]) startTimer() {
	c := g.c
	if c.purgeMode != TimerBasedPurge || c.timer != nil {
		return
	}
	c.timerGen++
	gen := c.timerGen
	c.timer = time.AfterFunc(c.purgeInterval, func() { c.onTimer(gen) })
}

func (g *writeGuard[K, V]) stopTimerIfEmpty() {
	if len(g.c.entries) == 0 {
		g.stopTimer()
	}
}

func (g *writeGuard[K, V]) stopTimer() {
	c := g.c
	if c.timer == nil {
		return
	}
	c.timer.Stop()
	c.timer = nil
	c.timerGen++
}
