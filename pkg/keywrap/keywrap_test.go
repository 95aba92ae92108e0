package keywrap

import (
	"bytes"
	"crypto/rand"
	"crypto/rsa"
	"encoding/hex"
	"math/big"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sirosfoundation/go-wssec/pkg/security"
	"github.com/sirosfoundation/go-wssec/pkg/suite"
	"github.com/sirosfoundation/go-wssec/pkg/token"
)

func mustHex(t *testing.T, s string) []byte {
	t.Helper()
	b, err := hex.DecodeString(s)
	require.NoError(t, err)
	return b
}

func TestAESWrap_RFC3394Vectors(t *testing.T) {
	tests := []struct {
		name    string
		kek     string
		key     string
		wrapped string
	}{
		{
			name:    "128-bit key with 128-bit KEK",
			kek:     "000102030405060708090A0B0C0D0E0F",
			key:     "00112233445566778899AABBCCDDEEFF",
			wrapped: "1FA68B0A8112B447AEF34BD8FB5A7B829D3E862371D2CFE5",
		},
		{
			name:    "256-bit key with 256-bit KEK",
			kek:     "000102030405060708090A0B0C0D0E0F101112131415161718191A1B1C1D1E1F",
			key:     "00112233445566778899AABBCCDDEEFF000102030405060708090A0B0C0D0E0F",
			wrapped: "28C9F404C4B810F4CBCCB35CFB87F8263F5786E2D80ED326CBC7F0E71A99F43BFB988B9B7A02DD21",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			kek := mustHex(t, tt.kek)
			key := mustHex(t, tt.key)
			want := mustHex(t, tt.wrapped)

			got, err := AESWrap(kek, key)
			require.NoError(t, err)
			assert.Equal(t, want, got)

			unwrapped, err := AESUnwrap(kek, got)
			require.NoError(t, err)
			assert.Equal(t, key, unwrapped)
		})
	}
}

func TestAESUnwrap_Tampered(t *testing.T) {
	kek := bytes.Repeat([]byte{1}, 32)
	wrapped, err := AESWrap(kek, bytes.Repeat([]byte{2}, 32))
	require.NoError(t, err)

	wrapped[10] ^= 0x01
	_, err = AESUnwrap(kek, wrapped)
	assert.ErrorIs(t, err, ErrIntegrityCheck)
}

func TestAESWrap_InvalidInput(t *testing.T) {
	_, err := AESWrap(make([]byte, 20), make([]byte, 16))
	assert.ErrorIs(t, err, ErrInvalidKEK)

	_, err = AESWrap(make([]byte, 16), make([]byte, 12))
	assert.ErrorIs(t, err, ErrInvalidKeyData)

	_, err = AESUnwrap(make([]byte, 16), make([]byte, 16))
	assert.ErrorIs(t, err, ErrInvalidKeyData)
}

func symmetricToken(t *testing.T, size int) *token.GenericToken {
	t.Helper()
	tok, err := token.NewSymmetricToken("", bytes.Repeat([]byte{7}, size), time.Now(), time.Time{})
	require.NoError(t, err)
	return tok
}

func rsaToken(t *testing.T, bits int) (*token.GenericToken, *rsa.PrivateKey) {
	t.Helper()
	priv, err := rsa.GenerateKey(rand.Reader, bits)
	require.NoError(t, err)
	tok, err := token.NewRSAToken("", token.NewRSAPrivateKey(priv), time.Now(), time.Time{})
	require.NoError(t, err)
	return tok, priv
}

func TestWrapUnwrap(t *testing.T) {
	session := bytes.Repeat([]byte{0x5a}, 32)
	rsaTok, _ := rsaToken(t, 2048)

	tests := []struct {
		name      string
		suite     *suite.Suite
		tok       token.SecurityToken
		algorithm string
	}{
		{name: "aes256", suite: suite.Basic256, tok: symmetricToken(t, 32), algorithm: security.Aes256KeyWrap},
		{name: "aes128", suite: suite.Basic128Sha256, tok: symmetricToken(t, 16), algorithm: security.Aes128KeyWrap},
		{name: "rsa-oaep", suite: suite.Basic256, tok: rsaTok, algorithm: security.RsaOaepKeyWrap},
		{name: "rsa-1_5", suite: suite.Basic256Rsa15, tok: rsaTok, algorithm: security.Rsa15KeyWrap},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			alg, wrapped, err := Wrap(tt.suite, tt.tok, session)
			require.NoError(t, err)
			assert.Equal(t, tt.algorithm, alg)
			assert.NotEqual(t, session, wrapped)

			got, err := Unwrap(alg, tt.tok, wrapped)
			require.NoError(t, err)
			assert.Equal(t, session, got)
		})
	}
}

func TestWrap_TripleDesUnsupported(t *testing.T) {
	_, _, err := Wrap(suite.TripleDes, symmetricToken(t, 24), make([]byte, 24))
	assert.ErrorIs(t, err, ErrUnsupportedAlgorithm)
}

func TestWrap_KeySizeRejected(t *testing.T) {
	// Basic256 accepts only 256-bit symmetric keys, so a 128-bit token falls
	// back to RSA-OAEP and has no key for it
	_, _, err := Wrap(suite.Basic256, symmetricToken(t, 16), make([]byte, 32))
	assert.ErrorIs(t, err, ErrNoWrappingKey)
}

func TestWrap_AsymmetricKeyTooLarge(t *testing.T) {
	// only the modulus length matters; the check runs before encryption
	pub := &rsa.PublicKey{N: new(big.Int).Lsh(big.NewInt(1), 4103), E: 65537}
	tok, err := token.NewRSAToken("", token.NewRSAPublicKey(pub), time.Now(), time.Time{})
	require.NoError(t, err)

	_, _, err = Wrap(suite.Basic256, tok, make([]byte, 32))
	assert.ErrorIs(t, err, suite.ErrUnacceptableKeySize)
}

func TestUnwrap_RequiresPrivateKey(t *testing.T) {
	_, priv := rsaToken(t, 2048)
	pubTok, err := token.NewRSAToken("", token.NewRSAPublicKey(&priv.PublicKey), time.Now(), time.Time{})
	require.NoError(t, err)

	alg, wrapped, err := Wrap(suite.Basic256, pubTok, make([]byte, 32))
	require.NoError(t, err)

	_, err = Unwrap(alg, pubTok, wrapped)
	assert.ErrorIs(t, err, ErrPrivateKeyRequired)
}
