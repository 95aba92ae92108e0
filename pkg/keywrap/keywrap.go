package keywrap

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha1"
	"errors"
	"fmt"

	"github.com/sirosfoundation/go-wssec/pkg/security"
	"github.com/sirosfoundation/go-wssec/pkg/suite"
	"github.com/sirosfoundation/go-wssec/pkg/token"
)

var (
	// ErrUnsupportedAlgorithm is returned for key wrap algorithms this
	// package does not implement
	ErrUnsupportedAlgorithm = errors.New("unsupported key wrap algorithm")
	// ErrNoWrappingKey is returned when no key on the token supports the
	// selected algorithm
	ErrNoWrappingKey = errors.New("no key on token supports the key wrap algorithm")
	// ErrPrivateKeyRequired is returned when unwrapping with a public RSA key
	ErrPrivateKeyRequired = errors.New("RSA private key required to unwrap")
)

type secretKey interface {
	SymmetricKey() []byte
}

// Wrap wraps keyData for the holder of tok using the algorithm the suite
// selects for tok. It returns the algorithm URI and the wrapped key.
func Wrap(s suite.AlgorithmSuite, tok token.SecurityToken, keyData []byte) (string, []byte, error) {
	algorithm := suite.KeyWrapAlgorithm(s, tok)

	key, ok := token.FirstKeySupporting(tok, algorithm)
	if !ok {
		return "", nil, fmt.Errorf("%w: %s on token %s", ErrNoWrappingKey, algorithm, tok.ID())
	}
	if err := suite.CheckKeySize(s, key); err != nil {
		return "", nil, err
	}

	wrapped, err := wrapWith(algorithm, key, keyData)
	if err != nil {
		return "", nil, err
	}
	return algorithm, wrapped, nil
}

func wrapWith(algorithm string, key token.SecurityKey, keyData []byte) ([]byte, error) {
	switch algorithm {
	case security.Aes128KeyWrap, security.Aes192KeyWrap, security.Aes256KeyWrap:
		sk, ok := key.(secretKey)
		if !ok {
			return nil, fmt.Errorf("%w: %s needs a symmetric key", ErrNoWrappingKey, algorithm)
		}
		return AESWrap(sk.SymmetricKey(), keyData)

	case security.RsaOaepKeyWrap, security.Rsa15KeyWrap:
		rk, ok := key.(*token.RSAKey)
		if !ok {
			return nil, fmt.Errorf("%w: %s needs an RSA key", ErrNoWrappingKey, algorithm)
		}
		if algorithm == security.RsaOaepKeyWrap {
			return rsa.EncryptOAEP(sha1.New(), rand.Reader, rk.PublicKey(), keyData, nil)
		}
		return rsa.EncryptPKCS1v15(rand.Reader, rk.PublicKey(), keyData)

	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedAlgorithm, algorithm)
	}
}

// Unwrap recovers a key wrapped with algorithm for the holder of tok
func Unwrap(algorithm string, tok token.SecurityToken, wrapped []byte) ([]byte, error) {
	key, ok := token.FirstKeySupporting(tok, algorithm)
	if !ok {
		return nil, fmt.Errorf("%w: %s on token %s", ErrNoWrappingKey, algorithm, tok.ID())
	}

	switch algorithm {
	case security.Aes128KeyWrap, security.Aes192KeyWrap, security.Aes256KeyWrap:
		sk, ok := key.(secretKey)
		if !ok {
			return nil, fmt.Errorf("%w: %s needs a symmetric key", ErrNoWrappingKey, algorithm)
		}
		return AESUnwrap(sk.SymmetricKey(), wrapped)

	case security.RsaOaepKeyWrap, security.Rsa15KeyWrap:
		rk, ok := key.(*token.RSAKey)
		if !ok {
			return nil, fmt.Errorf("%w: %s needs an RSA key", ErrNoWrappingKey, algorithm)
		}
		if !rk.HasPrivateKey() {
			return nil, ErrPrivateKeyRequired
		}
		if algorithm == security.RsaOaepKeyWrap {
			return rsa.DecryptOAEP(sha1.New(), rand.Reader, rk.PrivateKey(), wrapped, nil)
		}
		return rsa.DecryptPKCS1v15(rand.Reader, rk.PrivateKey(), wrapped)

	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedAlgorithm, algorithm)
	}
}
