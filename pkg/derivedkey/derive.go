package derivedkey

import (
	"crypto/hmac"
	"crypto/sha1"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"

	"github.com/sirosfoundation/go-wssec/pkg/security"
)

const (
	// DefaultLabel is the label used when a derived-key token carries none
	DefaultLabel = "WS-SecureConversationWS-SecureConversation"

	// MaxDerivedKeyLength bounds offset + length in bytes
	MaxDerivedKeyLength = 1024

	// MaxLabelLength bounds the label in bytes
	MaxLabelLength = 128

	// DefaultNonceLength is the length of generated nonces in bytes
	DefaultNonceLength = 16

	// MinNonceLength and MaxNonceLength bound nonces in bytes
	MinNonceLength = 1
	MaxNonceLength = 128
)

var (
	// ErrInvalidLength is returned for bad offsets, lengths or bit counts
	ErrInvalidLength = errors.New("invalid derived key length")
	// ErrUnsupportedAlgorithm is returned for unknown derivation algorithms
	ErrUnsupportedAlgorithm = errors.New("unsupported key derivation algorithm")
	// ErrInvalidNonce is returned for a nonce outside the accepted length
	ErrInvalidNonce = errors.New("invalid derivation nonce")
	// ErrInvalidLabel is returned for an over-long label
	ErrInvalidLabel = errors.New("invalid derivation label")
	// ErrEmptySecret is returned when there is no secret to derive from
	ErrEmptySecret = errors.New("derivation secret is empty")
)

func checkRange(offset, length int) error {
	if offset < 0 || length <= 0 {
		return fmt.Errorf("%w: offset %d, length %d", ErrInvalidLength, offset, length)
	}
	if offset > MaxDerivedKeyLength || length > MaxDerivedKeyLength-offset {
		return fmt.Errorf("%w: offset %d + length %d exceeds %d bytes",
			ErrInvalidLength, offset, length, MaxDerivedKeyLength)
	}
	return nil
}

// BitsToBytes converts a derivation length in bits to bytes
func BitsToBytes(bits int) (int, error) {
	if bits <= 0 || bits%8 != 0 {
		return 0, fmt.Errorf("%w: %d bits is not a positive multiple of 8", ErrInvalidLength, bits)
	}
	return bits / 8, nil
}

// PSHA1 returns bytes [offset, offset+length) of P_SHA1(secret, label || nonce)
func PSHA1(secret, label, nonce []byte, offset, length int) ([]byte, error) {
	if len(secret) == 0 {
		return nil, ErrEmptySecret
	}
	if err := checkRange(offset, length); err != nil {
		return nil, err
	}

	seed := make([]byte, 0, len(label)+len(nonce))
	seed = append(seed, label...)
	seed = append(seed, nonce...)

	total := offset + length
	out := make([]byte, 0, total+sha1.Size)
	mac := hmac.New(sha1.New, secret)

	// A(1) = HMAC(secret, seed)
	mac.Write(seed)
	a := mac.Sum(nil)

	for len(out) < total {
		// HMAC(secret, A(i) || seed)
		mac.Reset()
		mac.Write(a)
		mac.Write(seed)
		out = mac.Sum(out)

		// A(i+1) = HMAC(secret, A(i))
		mac.Reset()
		mac.Write(a)
		a = mac.Sum(a[:0])
	}

	key := make([]byte, length)
	copy(key, out[offset:total])
	return key, nil
}

// HKDF returns bytes [offset, offset+length) of HKDF-SHA256 with the nonce
// as salt and the label as info
func HKDF(secret, label, nonce []byte, offset, length int) ([]byte, error) {
	if len(secret) == 0 {
		return nil, ErrEmptySecret
	}
	if err := checkRange(offset, length); err != nil {
		return nil, err
	}
	buf := make([]byte, offset+length)
	if _, err := io.ReadFull(hkdf.New(sha256.New, secret, nonce, label), buf); err != nil {
		return nil, fmt.Errorf("hkdf: %w", err)
	}
	return buf[offset:], nil
}

// Derive dispatches on the algorithm URI
func Derive(algorithm string, secret, label, nonce []byte, offset, length int) ([]byte, error) {
	switch algorithm {
	case security.Psha1KeyDerivation, security.Psha1KeyDerivationDec2005:
		return PSHA1(secret, label, nonce, offset, length)
	case security.HkdfKeyDerivation:
		return HKDF(secret, label, nonce, offset, length)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedAlgorithm, algorithm)
	}
}

// IsSupportedAlgorithm reports whether Derive accepts algorithm
func IsSupportedAlgorithm(algorithm string) bool {
	switch algorithm {
	case security.Psha1KeyDerivation, security.Psha1KeyDerivationDec2005, security.HkdfKeyDerivation:
		return true
	default:
		return false
	}
}
