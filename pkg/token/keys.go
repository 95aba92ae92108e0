package token

import (
	"crypto/rsa"
	"errors"
	"fmt"

	"github.com/sirosfoundation/go-wssec/pkg/security"
)

// ErrEmptyKey is returned for a zero-length symmetric secret
var ErrEmptyKey = errors.New("symmetric key is empty")

// SymmetricKey is an in-memory shared secret
type SymmetricKey struct {
	secret []byte
}

// NewSymmetricKey copies secret into a new key
func NewSymmetricKey(secret []byte) (*SymmetricKey, error) {
	if len(secret) == 0 {
		return nil, ErrEmptyKey
	}
	s := make([]byte, len(secret))
	copy(s, secret)
	return &SymmetricKey{secret: s}, nil
}

// KeySize returns the secret length in bits
func (k *SymmetricKey) KeySize() int {
	return len(k.secret) * 8
}

// SymmetricKey returns a copy of the secret
func (k *SymmetricKey) SymmetricKey() []byte {
	s := make([]byte, len(k.secret))
	copy(s, k.secret)
	return s
}

// Zero overwrites the secret. The key is unusable afterwards.
func (k *SymmetricKey) Zero() {
	for i := range k.secret {
		k.secret[i] = 0
	}
}

// IsSupportedAlgorithm reports support for HMAC signatures, key derivation,
// and AES or TripleDES encryption and key wrap matching the key size
func (k *SymmetricKey) IsSupportedAlgorithm(uri string) bool {
	switch uri {
	case security.HmacSha1Signature, security.HmacSha256Signature,
		security.Psha1KeyDerivation, security.Psha1KeyDerivationDec2005,
		security.HkdfKeyDerivation:
		return true
	case security.Aes128Encryption, security.Aes128KeyWrap:
		return k.KeySize() == 128
	case security.Aes192Encryption, security.Aes192KeyWrap:
		return k.KeySize() == 192
	case security.Aes256Encryption, security.Aes256KeyWrap:
		return k.KeySize() == 256
	case security.TripleDesEncryption, security.TripleDesKeyWrap:
		return k.KeySize() == 128 || k.KeySize() == 192
	default:
		return false
	}
}

func (k *SymmetricKey) String() string {
	return fmt.Sprintf("SymmetricKey(%d bits)", k.KeySize())
}

// RSAKey is an RSA key pair or public key
type RSAKey struct {
	public  *rsa.PublicKey
	private *rsa.PrivateKey
}

// NewRSAPrivateKey wraps a private key
func NewRSAPrivateKey(priv *rsa.PrivateKey) *RSAKey {
	return &RSAKey{public: &priv.PublicKey, private: priv}
}

// NewRSAPublicKey wraps a public key
func NewRSAPublicKey(pub *rsa.PublicKey) *RSAKey {
	return &RSAKey{public: pub}
}

// KeySize returns the modulus length in bits
func (k *RSAKey) KeySize() int {
	return k.public.N.BitLen()
}

// PublicKey returns the public key
func (k *RSAKey) PublicKey() *rsa.PublicKey {
	return k.public
}

// PrivateKey returns the private key, or nil for a public-only key
func (k *RSAKey) PrivateKey() *rsa.PrivateKey {
	return k.private
}

// HasPrivateKey reports whether the key can sign and unwrap
func (k *RSAKey) HasPrivateKey() bool {
	return k.private != nil
}

// IsSupportedAlgorithm reports support for RSA signatures and key wrap.
// Support does not depend on the private key being present; signing and
// unwrapping check for it at use.
func (k *RSAKey) IsSupportedAlgorithm(uri string) bool {
	switch uri {
	case security.RsaSha1Signature, security.RsaSha256Signature,
		security.RsaOaepKeyWrap, security.Rsa15KeyWrap:
		return true
	default:
		return false
	}
}

func (k *RSAKey) String() string {
	return fmt.Sprintf("RSAKey(%d bits, private=%t)", k.KeySize(), k.HasPrivateKey())
}
