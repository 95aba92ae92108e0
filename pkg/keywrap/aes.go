package keywrap

import (
	"crypto/aes"
	"crypto/subtle"
	"encoding/binary"
	"errors"
	"fmt"
)

// defaultIV is the RFC 3394 initial value
var defaultIV = []byte{0xA6, 0xA6, 0xA6, 0xA6, 0xA6, 0xA6, 0xA6, 0xA6}

var (
	// ErrInvalidKEK is returned for a key-encryption key that is not an AES key
	ErrInvalidKEK = errors.New("key-encryption key must be 16, 24 or 32 bytes")
	// ErrInvalidKeyData is returned for key data that cannot be wrapped
	ErrInvalidKeyData = errors.New("key data must be at least 16 bytes and a multiple of 8")
	// ErrIntegrityCheck is returned when unwrapping yields the wrong IV
	ErrIntegrityCheck = errors.New("key unwrap integrity check failed")
)

func checkKEK(kek []byte) error {
	switch len(kek) {
	case 16, 24, 32:
		return nil
	default:
		return fmt.Errorf("%w: got %d", ErrInvalidKEK, len(kek))
	}
}

// AESWrap wraps keyData under kek per RFC 3394
func AESWrap(kek, keyData []byte) ([]byte, error) {
	if err := checkKEK(kek); err != nil {
		return nil, err
	}
	if len(keyData) < 16 || len(keyData)%8 != 0 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidKeyData, len(keyData))
	}

	block, err := aes.NewCipher(kek)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}

	n := len(keyData) / 8
	out := make([]byte, 8+len(keyData))
	copy(out[:8], defaultIV)
	copy(out[8:], keyData)

	b := make([]byte, 16)
	for j := 0; j < 6; j++ {
		for i := 1; i <= n; i++ {
			// B = AES(K, A | R[i])
			copy(b[:8], out[:8])
			copy(b[8:], out[i*8:(i+1)*8])
			block.Encrypt(b, b)

			// A = MSB(64, B) ^ t, R[i] = LSB(64, B)
			t := uint64(n*j + i)
			binary.BigEndian.PutUint64(out[:8], binary.BigEndian.Uint64(b[:8])^t)
			copy(out[i*8:(i+1)*8], b[8:])
		}
	}
	return out, nil
}

// AESUnwrap reverses AESWrap and verifies the integrity value
func AESUnwrap(kek, wrapped []byte) ([]byte, error) {
	if err := checkKEK(kek); err != nil {
		return nil, err
	}
	if len(wrapped) < 24 || len(wrapped)%8 != 0 {
		return nil, fmt.Errorf("%w: wrapped length %d", ErrInvalidKeyData, len(wrapped))
	}

	block, err := aes.NewCipher(kek)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}

	n := len(wrapped)/8 - 1
	a := binary.BigEndian.Uint64(wrapped[:8])
	r := make([]byte, n*8)
	copy(r, wrapped[8:])

	b := make([]byte, 16)
	for j := 5; j >= 0; j-- {
		for i := n; i >= 1; i-- {
			// B = AES-1(K, (A ^ t) | R[i])
			t := uint64(n*j + i)
			binary.BigEndian.PutUint64(b[:8], a^t)
			copy(b[8:], r[(i-1)*8:i*8])
			block.Decrypt(b, b)

			a = binary.BigEndian.Uint64(b[:8])
			copy(r[(i-1)*8:i*8], b[8:])
		}
	}

	var iv [8]byte
	binary.BigEndian.PutUint64(iv[:], a)
	if subtle.ConstantTimeCompare(iv[:], defaultIV) != 1 {
		return nil, ErrIntegrityCheck
	}
	return r, nil
}
