package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sirosfoundation/go-wssec/pkg/nonce"
)

type plainCache struct{ nonce.Cache }

func TestLocal(t *testing.T) {
	ctx := context.Background()
	nc, err := nonce.NewInMemory(time.Minute, 10)
	require.NoError(t, err)

	store := Local(nc)
	require.NoError(t, store.Ping(ctx))

	ok, err := store.TryAddNonce(ctx, []byte("n"))
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = store.TryAddNonce(ctx, []byte("n"))
	require.NoError(t, err)
	assert.False(t, ok)

	assert.Equal(t, time.Minute, store.CachingTimeSpan())
	assert.Equal(t, 10, store.CacheSize())
	assert.NoError(t, store.Close(ctx))
}

func TestLocal_WithoutCloser(t *testing.T) {
	nc, err := nonce.NewInMemory(time.Minute, 10)
	require.NoError(t, err)
	defer nc.Close()

	store := Local(plainCache{nc})
	assert.NoError(t, store.Close(context.Background()))
}
