package nonce

import (
	"context"
	"log/slog"
	"time"

	"github.com/mailgun/timetools"

	"github.com/sirosfoundation/go-wssec/pkg/cache"
)

// Option configures an InMemory nonce cache
type Option func(*memoryOptions)

type memoryOptions struct {
	evictFraction float64
	clock         timetools.TimeProvider
	logger        *slog.Logger
}

// WithEvictOldest makes a full cache drop the given fraction of nonces
// closest to expiry instead of failing with cache.ErrQuotaExceeded
func WithEvictOldest(fraction float64) Option {
	return func(o *memoryOptions) {
		o.evictFraction = fraction
	}
}

// WithClock sets the time source
func WithClock(clock timetools.TimeProvider) Option {
	return func(o *memoryOptions) {
		o.clock = clock
	}
}

// WithLogger sets the logger
func WithLogger(logger *slog.Logger) Option {
	return func(o *memoryOptions) {
		o.logger = logger
	}
}

// InMemory is a process-local nonce cache
type InMemory struct {
	cache           *cache.TimeBoundedCache[string, struct{}]
	cachingTimeSpan time.Duration
	clock           timetools.TimeProvider
}

// NewInMemory creates an in-memory nonce cache remembering each nonce for
// cachingTimeSpan and holding at most maxSize nonces.
//
// The cache purges on access with no low-water mark and a purge interval of
// a quarter of the caching time span.
func NewInMemory(cachingTimeSpan time.Duration, maxSize int, opts ...Option) (*InMemory, error) {
	if err := ValidateCachingTimeSpan(cachingTimeSpan); err != nil {
		return nil, err
	}

	o := &memoryOptions{}
	for _, opt := range opts {
		opt(o)
	}
	if o.clock == nil {
		o.clock = &timetools.RealTime{}
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}

	purgeInterval := cachingTimeSpan / 4
	if purgeInterval <= 0 {
		purgeInterval = cachingTimeSpan
	}

	cfg := cache.Config[string, struct{}]{
		MaxItems:      maxSize,
		PurgeInterval: purgeInterval,
		PurgeMode:     cache.AccessBasedPurge,
		Clock:         o.clock,
		Logger:        o.logger.With(slog.String("component", "nonce-cache")),
	}
	if o.evictFraction > 0 {
		cfg.EvictionPolicy = cache.EvictOldest[string, struct{}](o.evictFraction)
	}

	c, err := cache.New(cfg)
	if err != nil {
		return nil, err
	}

	return &InMemory{
		cache:           c,
		cachingTimeSpan: cachingTimeSpan,
		clock:           o.clock,
	}, nil
}

// TryAddNonce records nonce. It returns false if the nonce is already live.
func (m *InMemory) TryAddNonce(_ context.Context, nonce []byte) (bool, error) {
	if len(nonce) == 0 {
		return false, ErrEmptyNonce
	}
	expiry := m.clock.UtcNow().Add(m.cachingTimeSpan)
	return m.cache.TryAddItem(string(nonce), struct{}{}, expiry, false)
}

// CheckNonce reports whether nonce is live in the cache
func (m *InMemory) CheckNonce(_ context.Context, nonce []byte) (bool, error) {
	if len(nonce) == 0 {
		return false, ErrEmptyNonce
	}
	_, ok := m.cache.GetItem(string(nonce))
	return ok, nil
}

// CachingTimeSpan returns how long each nonce is remembered
func (m *InMemory) CachingTimeSpan() time.Duration {
	return m.cachingTimeSpan
}

// CacheSize returns the maximum number of nonces held
func (m *InMemory) CacheSize() int {
	return m.cache.MaxItems()
}

// Count returns the number of nonces currently held
func (m *InMemory) Count() int {
	return m.cache.Count()
}

// Close forgets every nonce
func (m *InMemory) Close() error {
	m.cache.Close()
	return nil
}

var _ Cache = (*InMemory)(nil)
