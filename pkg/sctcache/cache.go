package sctcache

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/mailgun/timetools"

	"github.com/sirosfoundation/go-wssec/pkg/cache"
)

// ErrDuplicateContext is returned by AddContext when a live token with the
// same context ID and generation is already cached
var ErrDuplicateContext = errors.New("security context token already cached")

// evictFraction is the share of entries dropped when the cache is full and
// oldest-entry replacement is enabled
const evictFraction = 0.6

// Key identifies a cached context token
type Key struct {
	ContextID  string
	Generation string
}

// Option configures a Cache
type Option func(*options)

type options struct {
	replaceOldest bool
	clockSkew     time.Duration
	purgeInterval time.Duration
	clock         timetools.TimeProvider
	logger        *slog.Logger
}

// WithReplaceOldestEntries evicts the entries closest to expiry when full
func WithReplaceOldestEntries() Option {
	return func(o *options) { o.replaceOldest = true }
}

// WithClockSkew extends every entry's lifetime past the token's ValidTo
func WithClockSkew(d time.Duration) Option {
	return func(o *options) { o.clockSkew = d }
}

// WithPurgeInterval sets the timer purge interval
func WithPurgeInterval(d time.Duration) Option {
	return func(o *options) { o.purgeInterval = d }
}

// WithClock sets the time source
func WithClock(clock timetools.TimeProvider) Option {
	return func(o *options) { o.clock = clock }
}

// WithLogger sets the logger
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// Cache holds security context tokens
type Cache struct {
	tokens    *cache.TimeBoundedCache[Key, *SecurityContextToken]
	clockSkew time.Duration
	logger    *slog.Logger
}

// New creates a cache holding at most capacity tokens
func New(capacity int, opts ...Option) (*Cache, error) {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	if o.clockSkew < 0 {
		return nil, fmt.Errorf("clock skew must not be negative: %v", o.clockSkew)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	logger := o.logger.With(slog.String("component", "sct-cache"))

	cfg := cache.Config[Key, *SecurityContextToken]{
		MaxItems:      capacity,
		PurgeInterval: o.purgeInterval,
		PurgeMode:     cache.TimerBasedPurge,
		Clock:         o.clock,
		Logger:        logger,
		OnRemove: func(_ Key, sct *SecurityContextToken) {
			sct.key.Zero()
		},
	}
	if o.replaceOldest {
		cfg.EvictionPolicy = cache.EvictOldest[Key, *SecurityContextToken](evictFraction)
	}

	tokens, err := cache.New(cfg)
	if err != nil {
		return nil, err
	}
	return &Cache{
		tokens:    tokens,
		clockSkew: o.clockSkew,
		logger:    logger,
	}, nil
}

func keyOf(sct *SecurityContextToken) Key {
	return Key{ContextID: sct.contextID, Generation: sct.keyGeneration}
}

func (c *Cache) expiry(validTo time.Time) time.Time {
	if validTo.IsZero() || validTo.After(cache.NeverExpires.Add(-c.clockSkew)) {
		return cache.NeverExpires
	}
	return validTo.Add(c.clockSkew)
}

// AddContext caches a copy of sct. It fails with ErrDuplicateContext if a
// live token with the same key is cached.
func (c *Cache) AddContext(sct *SecurityContextToken) error {
	ok, err := c.TryAddContext(sct)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: context %s generation %q", ErrDuplicateContext, sct.contextID, sct.keyGeneration)
	}
	return nil
}

// TryAddContext caches a copy of sct and reports whether it was added
func (c *Cache) TryAddContext(sct *SecurityContextToken) (bool, error) {
	ok, err := c.tokens.TryAddItem(keyOf(sct), sct.clone(), c.expiry(sct.validTo), false)
	if err != nil {
		c.logger.Warn("failed to cache security context token",
			slog.String("context_id", sct.contextID),
			slog.String("error", err.Error()))
	}
	return ok, err
}

// UpdateContextExpiration moves the expiry of a cached token. It returns
// false if no live token is cached for the key.
func (c *Cache) UpdateContextExpiration(contextID, generation string, validTo time.Time) (bool, error) {
	k := Key{ContextID: contextID, Generation: generation}
	return c.tokens.TryUpdateItem(k, func(current *SecurityContextToken) (*SecurityContextToken, time.Time) {
		updated := current.clone()
		updated.validTo = validTo.UTC()
		return updated, c.expiry(updated.validTo)
	})
}

// GetContext returns the cached token. The token's key is zeroed once it
// leaves the cache.
func (c *Cache) GetContext(contextID, generation string) (*SecurityContextToken, bool) {
	return c.tokens.GetItem(Key{ContextID: contextID, Generation: generation})
}

// GetAllContexts returns every live generation cached for contextID
func (c *Cache) GetAllContexts(contextID string) []*SecurityContextToken {
	return c.tokens.Select(func(k Key, _ *SecurityContextToken) bool {
		return k.ContextID == contextID
	})
}

// RemoveContext drops one generation and reports whether it was live
func (c *Cache) RemoveContext(contextID, generation string) bool {
	return c.tokens.TryRemoveItem(Key{ContextID: contextID, Generation: generation})
}

// RemoveAllContexts drops every generation of contextID
func (c *Cache) RemoveAllContexts(contextID string) int {
	n := c.tokens.RemoveMatching(func(k Key, _ *SecurityContextToken) bool {
		return k.ContextID == contextID
	})
	if n > 0 {
		c.logger.Debug("removed security contexts",
			slog.String("context_id", contextID),
			slog.Int("count", n))
	}
	return n
}

// Count returns the number of cached tokens, expired ones included
func (c *Cache) Count() int {
	return c.tokens.Count()
}

// Close drops every token and stops the purge timer
func (c *Cache) Close() {
	c.tokens.Close()
}
