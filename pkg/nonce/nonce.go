package nonce

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"
)

var (
	// ErrUnboundedCachingTime is returned when the caching time span is
	// infinite. Nonces must never be remembered forever.
	ErrUnboundedCachingTime = errors.New("nonce caching time span must be finite")
	// ErrInvalidCachingTime is returned for a non-positive caching time span
	ErrInvalidCachingTime = errors.New("nonce caching time span must be positive")
	// ErrEmptyNonce is returned when an empty nonce is submitted
	ErrEmptyNonce = errors.New("nonce is empty")
)

// Cache records nonces seen within a validity window.
//
// TryAddNonce returns false when the nonce is already present and live,
// which the caller must treat as a replay. CheckNonce reports whether the
// nonce is present without recording it. Implementations are safe for
// concurrent use without caller-side locking.
type Cache interface {
	TryAddNonce(ctx context.Context, nonce []byte) (bool, error)
	CheckNonce(ctx context.Context, nonce []byte) (bool, error)
	CachingTimeSpan() time.Duration
	CacheSize() int
}

// Infinite is the duration treated as "no limit" by replay configuration
const Infinite = time.Duration(math.MaxInt64)

// ValidateCachingTimeSpan checks that d can be used as a caching time span
func ValidateCachingTimeSpan(d time.Duration) error {
	if d == Infinite {
		return ErrUnboundedCachingTime
	}
	if d <= 0 {
		return fmt.Errorf("%w: %v", ErrInvalidCachingTime, d)
	}
	return nil
}

// CachingTimeSpanFor returns replayWindow + 2*maxClockSkew. Infinite inputs
// and overflow yield ErrUnboundedCachingTime.
func CachingTimeSpanFor(replayWindow, maxClockSkew time.Duration) (time.Duration, error) {
	if replayWindow == Infinite || maxClockSkew == Infinite {
		return 0, ErrUnboundedCachingTime
	}
	if replayWindow < 0 || maxClockSkew < 0 {
		return 0, fmt.Errorf("%w: replay window %v, clock skew %v",
			ErrInvalidCachingTime, replayWindow, maxClockSkew)
	}
	if maxClockSkew > (Infinite-replayWindow)/2 {
		return 0, fmt.Errorf("%w: replay window %v plus twice clock skew %v overflows",
			ErrUnboundedCachingTime, replayWindow, maxClockSkew)
	}
	span := replayWindow + 2*maxClockSkew
	if err := ValidateCachingTimeSpan(span); err != nil {
		return 0, err
	}
	return span, nil
}
