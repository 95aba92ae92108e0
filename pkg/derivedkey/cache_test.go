package derivedkey

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sirosfoundation/go-wssec/pkg/security"
)

func TestCache_HitAndMiss(t *testing.T) {
	c, err := NewCache(8)
	require.NoError(t, err)

	p := Params{Algorithm: security.Psha1KeyDerivationDec2005, Label: []byte(DefaultLabel), Nonce: []byte("n1"), Length: 24}

	first, err := c.Derive("base", []byte("secret"), p)
	require.NoError(t, err)
	second, err := c.Derive("base", []byte("secret"), p)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	hits, misses := c.Stats()
	assert.Equal(t, uint64(1), hits)
	assert.Equal(t, uint64(1), misses)

	// callers get copies
	first[0] ^= 0xff
	third, err := c.Derive("base", []byte("secret"), p)
	require.NoError(t, err)
	assert.Equal(t, second, third)
}

func TestCache_KeyedOnEveryParameter(t *testing.T) {
	c, err := NewCache(0)
	require.NoError(t, err)

	base := Params{Algorithm: security.Psha1KeyDerivation, Label: []byte("l"), Nonce: []byte("n"), Length: 16}
	variants := []Params{
		base,
		{Algorithm: security.HkdfKeyDerivation, Label: []byte("l"), Nonce: []byte("n"), Length: 16},
		{Algorithm: security.Psha1KeyDerivation, Label: []byte("l2"), Nonce: []byte("n"), Length: 16},
		{Algorithm: security.Psha1KeyDerivation, Label: []byte("l"), Nonce: []byte("n2"), Length: 16},
		{Algorithm: security.Psha1KeyDerivation, Label: []byte("l"), Nonce: []byte("n"), Offset: 16, Length: 16},
		{Algorithm: security.Psha1KeyDerivation, Label: []byte("l"), Nonce: []byte("n"), Length: 24},
	}
	for _, p := range variants {
		_, err := c.Derive("t1", []byte("s"), p)
		require.NoError(t, err)
	}
	_, err = c.Derive("t2", []byte("s"), base)
	require.NoError(t, err)

	assert.Equal(t, len(variants)+1, c.Len())

	assert.Equal(t, len(variants), c.Forget("t1"))
	assert.Equal(t, 1, c.Len())

	c.Purge()
	assert.Zero(t, c.Len())
}

func TestCache_Bounded(t *testing.T) {
	c, err := NewCache(4)
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		p := Params{Algorithm: security.Psha1KeyDerivation, Nonce: []byte(fmt.Sprint(i)), Length: 16}
		_, err := c.Derive("t", []byte("s"), p)
		require.NoError(t, err)
	}
	assert.Equal(t, 4, c.Len())
}

func TestCache_ErrorsNotCached(t *testing.T) {
	c, err := NewCache(4)
	require.NoError(t, err)
	_, err = c.Derive("t", nil, Params{Algorithm: security.Psha1KeyDerivation, Nonce: []byte("n"), Length: 16})
	assert.ErrorIs(t, err, ErrEmptySecret)
	assert.Zero(t, c.Len())
}

func TestCache_Concurrent(t *testing.T) {
	c, err := NewCache(16)
	require.NoError(t, err)
	p := Params{Algorithm: security.Psha1KeyDerivation, Nonce: []byte("n"), Length: 32}
	want, err := PSHA1([]byte("s"), nil, []byte("n"), 0, 32)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				got, err := c.Derive("t", []byte("s"), p)
				if err != nil || string(got) != string(want) {
					t.Errorf("unexpected derive result: %v", err)
					return
				}
			}
		}()
	}
	wg.Wait()
}

func TestNewToken_WithCache(t *testing.T) {
	c, err := NewCache(8)
	require.NoError(t, err)
	base := newBase(t, 32)

	a, err := NewToken(base, security.Psha1KeyDerivation, 128, WithNonce([]byte("n")), WithCache(c))
	require.NoError(t, err)
	b, err := NewToken(base, security.Psha1KeyDerivation, 128, WithNonce([]byte("n")), WithCache(c))
	require.NoError(t, err)

	assert.Equal(t, a.Key().SymmetricKey(), b.Key().SymmetricKey())
	hits, _ := c.Stats()
	assert.Equal(t, uint64(1), hits)
}
