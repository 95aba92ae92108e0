package nonce

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/mailgun/timetools"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sirosfoundation/go-wssec/pkg/cache"
)

var t0 = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func newFrozen(t *testing.T, span time.Duration, size int, opts ...Option) (*InMemory, *timetools.FreezedTime) {
	t.Helper()
	clock := &timetools.FreezedTime{CurrentTime: t0}
	nc, err := NewInMemory(span, size, append(opts, WithClock(clock))...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = nc.Close() })
	return nc, clock
}

func TestTryAddNonce_RejectsReplay(t *testing.T) {
	ctx := context.Background()
	nc, _ := newFrozen(t, time.Minute, 10)

	first, err := nc.TryAddNonce(ctx, []byte("n"))
	require.NoError(t, err)
	second, err := nc.TryAddNonce(ctx, []byte("n"))
	require.NoError(t, err)

	assert.True(t, first)
	assert.False(t, second, "second submission of a live nonce is a replay")
}

func TestTryAddNonce_AcceptedAfterWindow(t *testing.T) {
	ctx := context.Background()
	span := time.Minute
	nc, clock := newFrozen(t, span, 10)

	ok, err := nc.TryAddNonce(ctx, []byte("n"))
	require.NoError(t, err)
	require.True(t, ok)

	clock.CurrentTime = t0.Add(span + time.Millisecond)

	ok, err = nc.TryAddNonce(ctx, []byte("n"))
	require.NoError(t, err)
	assert.True(t, ok, "nonce must be accepted again once its entry expired")
}

func TestCheckNonce(t *testing.T) {
	ctx := context.Background()
	nc, clock := newFrozen(t, time.Minute, 10)

	found, err := nc.CheckNonce(ctx, []byte("n"))
	require.NoError(t, err)
	assert.False(t, found)

	_, err = nc.TryAddNonce(ctx, []byte("n"))
	require.NoError(t, err)

	found, err = nc.CheckNonce(ctx, []byte("n"))
	require.NoError(t, err)
	assert.True(t, found)

	clock.CurrentTime = t0.Add(time.Minute)
	found, err = nc.CheckNonce(ctx, []byte("n"))
	require.NoError(t, err)
	assert.False(t, found)
}

func TestEmptyNonce(t *testing.T) {
	nc, _ := newFrozen(t, time.Minute, 10)
	_, err := nc.TryAddNonce(context.Background(), nil)
	assert.ErrorIs(t, err, ErrEmptyNonce)
	_, err = nc.CheckNonce(context.Background(), []byte{})
	assert.ErrorIs(t, err, ErrEmptyNonce)
}

// TestReplayScenario walks a ten-minute window with a 1000-nonce quota
func TestReplayScenario(t *testing.T) {
	ctx := context.Background()
	nonce := []byte{0xAA, 0xBB, 0xCC}

	t.Run("replay window", func(t *testing.T) {
		nc, clock := newFrozen(t, 10*time.Minute, 1000)

		ok, err := nc.TryAddNonce(ctx, nonce)
		require.NoError(t, err)
		assert.True(t, ok, "t=0 accept")

		clock.CurrentTime = t0.Add(5 * time.Minute)
		ok, err = nc.TryAddNonce(ctx, nonce)
		require.NoError(t, err)
		assert.False(t, ok, "t=5m replay")

		clock.CurrentTime = t0.Add(11 * time.Minute)
		ok, err = nc.TryAddNonce(ctx, nonce)
		require.NoError(t, err)
		assert.True(t, ok, "t=11m accept")
	})

	t.Run("quota exceeded by default", func(t *testing.T) {
		nc, _ := newFrozen(t, 10*time.Minute, 1000)

		for i := 0; i < 1000; i++ {
			ok, err := nc.TryAddNonce(ctx, []byte(fmt.Sprintf("nonce-%d", i)))
			require.NoError(t, err)
			require.True(t, ok)
		}

		ok, err := nc.TryAddNonce(ctx, []byte("nonce-1000"))
		assert.ErrorIs(t, err, cache.ErrQuotaExceeded)
		assert.False(t, ok)
		assert.Equal(t, 1000, nc.Count())
	})

	t.Run("oldest evicted when opted in", func(t *testing.T) {
		nc, clock := newFrozen(t, 10*time.Minute, 1000, WithEvictOldest(0.1))

		for i := 0; i < 1000; i++ {
			clock.CurrentTime = t0.Add(time.Duration(i) * time.Millisecond)
			ok, err := nc.TryAddNonce(ctx, []byte(fmt.Sprintf("nonce-%d", i)))
			require.NoError(t, err)
			require.True(t, ok)
		}

		ok, err := nc.TryAddNonce(ctx, []byte("nonce-1000"))
		require.NoError(t, err)
		assert.True(t, ok)
		assert.LessOrEqual(t, nc.Count(), 1000)

		found, err := nc.CheckNonce(ctx, []byte("nonce-0"))
		require.NoError(t, err)
		assert.False(t, found, "oldest nonce must have been evicted")

		found, err = nc.CheckNonce(ctx, []byte("nonce-999"))
		require.NoError(t, err)
		assert.True(t, found)
	})
}

func TestNewInMemory_Validation(t *testing.T) {
	tests := []struct {
		name    string
		span    time.Duration
		size    int
		wantErr error
	}{
		{name: "infinite span", span: Infinite, size: 10, wantErr: ErrUnboundedCachingTime},
		{name: "zero span", span: 0, size: 10, wantErr: ErrInvalidCachingTime},
		{name: "zero size", span: time.Minute, size: 0, wantErr: cache.ErrInvalidCapacity},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewInMemory(tt.span, tt.size)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestInMemory_Accessors(t *testing.T) {
	nc, _ := newFrozen(t, 8*time.Minute, 42)
	assert.Equal(t, 8*time.Minute, nc.CachingTimeSpan())
	assert.Equal(t, 42, nc.CacheSize())
}

func TestCachingTimeSpanFor(t *testing.T) {
	tests := []struct {
		name    string
		window  time.Duration
		skew    time.Duration
		want    time.Duration
		wantErr error
	}{
		{name: "defaults", window: 5 * time.Minute, skew: 5 * time.Minute, want: 15 * time.Minute},
		{name: "no skew", window: time.Minute, want: time.Minute},
		{name: "infinite window", window: Infinite, skew: time.Minute, wantErr: ErrUnboundedCachingTime},
		{name: "infinite skew", window: time.Minute, skew: Infinite, wantErr: ErrUnboundedCachingTime},
		{name: "overflow", window: Infinite / 2, skew: Infinite / 3, wantErr: ErrUnboundedCachingTime},
		{name: "negative", window: -time.Minute, wantErr: ErrInvalidCachingTime},
		{name: "zero", wantErr: ErrInvalidCachingTime},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := CachingTimeSpanFor(tt.window, tt.skew)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
