package derivedkey

import (
	"crypto/rand"
	"errors"
	"fmt"
	"time"

	"github.com/sirosfoundation/go-wssec/pkg/security"
	"github.com/sirosfoundation/go-wssec/pkg/suite"
	"github.com/sirosfoundation/go-wssec/pkg/token"
)

// ErrNoDerivableKey is returned when the base token has no symmetric key
// supporting the derivation algorithm
var ErrNoDerivableKey = errors.New("base token has no key supporting the derivation algorithm")

// Params are the derivation inputs carried by a derived-key token.
// Offset and Length are in bytes.
type Params struct {
	Algorithm string
	Label     []byte
	Nonce     []byte
	Offset    int
	Length    int
}

// Validate checks the parameters against the package limits
func (p Params) Validate() error {
	if !IsSupportedAlgorithm(p.Algorithm) {
		return fmt.Errorf("%w: %s", ErrUnsupportedAlgorithm, p.Algorithm)
	}
	if len(p.Label) > MaxLabelLength {
		return fmt.Errorf("%w: %d bytes exceeds %d", ErrInvalidLabel, len(p.Label), MaxLabelLength)
	}
	if len(p.Nonce) < MinNonceLength || len(p.Nonce) > MaxNonceLength {
		return fmt.Errorf("%w: %d bytes outside [%d, %d]", ErrInvalidNonce, len(p.Nonce), MinNonceLength, MaxNonceLength)
	}
	return checkRange(p.Offset, p.Length)
}

// secretKey is implemented by keys that expose their secret
type secretKey interface {
	token.SecurityKey
	SymmetricKey() []byte
}

// Token is a derived-key token. Its single key is a symmetric key over the
// derived bytes; its validity is that of the base token.
type Token struct {
	id         string
	base       token.SecurityToken
	params     Params
	generation int
	key        *token.SymmetricKey
}

// TokenOption configures NewToken
type TokenOption func(*tokenOptions)

type tokenOptions struct {
	id          string
	label       []byte
	nonce       []byte
	nonceLength int
	offset      int
	generation  int
	cache       *Cache
}

// WithID sets the token identifier
func WithID(id string) TokenOption {
	return func(o *tokenOptions) { o.id = id }
}

// WithLabel overrides DefaultLabel
func WithLabel(label string) TokenOption {
	return func(o *tokenOptions) { o.label = []byte(label) }
}

// WithNonce uses the given nonce instead of a generated one
func WithNonce(nonce []byte) TokenOption {
	return func(o *tokenOptions) { o.nonce = nonce }
}

// WithNonceLength sets the length of the generated nonce
func WithNonceLength(n int) TokenOption {
	return func(o *tokenOptions) { o.nonceLength = n }
}

// WithOffset sets the byte offset into the derivation output
func WithOffset(offset int) TokenOption {
	return func(o *tokenOptions) { o.offset = offset }
}

// WithGeneration derives the generation-th key of the requested length,
// i.e. offset = generation * length. It overrides WithOffset.
func WithGeneration(generation int) TokenOption {
	return func(o *tokenOptions) { o.generation = generation }
}

// WithCache serves and stores the derived key through c
func WithCache(c *Cache) TokenOption {
	return func(o *tokenOptions) { o.cache = c }
}

// NewToken derives a key of lengthBits from base using algorithm
func NewToken(base token.SecurityToken, algorithm string, lengthBits int, opts ...TokenOption) (*Token, error) {
	length, err := BitsToBytes(lengthBits)
	if err != nil {
		return nil, err
	}

	o := &tokenOptions{
		label:       []byte(DefaultLabel),
		nonceLength: DefaultNonceLength,
		generation:  -1,
	}
	for _, opt := range opts {
		opt(o)
	}

	nonce := o.nonce
	if nonce == nil {
		if o.nonceLength < MinNonceLength || o.nonceLength > MaxNonceLength {
			return nil, fmt.Errorf("%w: nonce length %d", ErrInvalidNonce, o.nonceLength)
		}
		nonce = make([]byte, o.nonceLength)
		if _, err := rand.Read(nonce); err != nil {
			return nil, fmt.Errorf("failed to generate nonce: %w", err)
		}
	}

	offset := o.offset
	if o.generation >= 0 {
		if o.generation > MaxDerivedKeyLength/length {
			return nil, fmt.Errorf("%w: generation %d of %d-byte keys", ErrInvalidLength, o.generation, length)
		}
		offset = o.generation * length
	}

	p := Params{
		Algorithm: algorithm,
		Label:     o.label,
		Nonce:     nonce,
		Offset:    offset,
		Length:    length,
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}

	secret, err := baseSecret(base, algorithm)
	if err != nil {
		return nil, err
	}

	var derived []byte
	if o.cache != nil {
		derived, err = o.cache.Derive(base.ID(), secret, p)
	} else {
		derived, err = Derive(p.Algorithm, secret, p.Label, p.Nonce, p.Offset, p.Length)
	}
	if err != nil {
		return nil, err
	}

	key, err := token.NewSymmetricKey(derived)
	if err != nil {
		return nil, err
	}

	id := o.id
	if id == "" {
		id = token.NewID()
	}

	return &Token{
		id:         id,
		base:       base,
		params:     p,
		generation: o.generation,
		key:        key,
	}, nil
}

func baseSecret(base token.SecurityToken, algorithm string) ([]byte, error) {
	for _, k := range base.SecurityKeys() {
		sk, ok := k.(secretKey)
		if ok && sk.IsSupportedAlgorithm(algorithm) {
			return sk.SymmetricKey(), nil
		}
	}
	return nil, fmt.Errorf("%w: token %s, algorithm %s", ErrNoDerivableKey, base.ID(), algorithm)
}

func (t *Token) ID() string { return t.id }

func (t *Token) SecurityKeys() []token.SecurityKey { return []token.SecurityKey{t.key} }

func (t *Token) ValidFrom() time.Time { return t.base.ValidFrom() }

func (t *Token) ValidTo() time.Time { return t.base.ValidTo() }

// Base returns the token the key was derived from
func (t *Token) Base() token.SecurityToken { return t.base }

// Key returns the derived key
func (t *Token) Key() *token.SymmetricKey { return t.key }

// Algorithm returns the derivation algorithm URI
func (t *Token) Algorithm() string { return t.params.Algorithm }

// Label returns the derivation label
func (t *Token) Label() string { return string(t.params.Label) }

// Nonce returns a copy of the derivation nonce
func (t *Token) Nonce() []byte { return clone(t.params.Nonce) }

// Offset returns the byte offset into the derivation output
func (t *Token) Offset() int { return t.params.Offset }

// Length returns the derived key length in bytes
func (t *Token) Length() int { return t.params.Length }

// Generation returns the generation, or -1 if the token uses an offset
func (t *Token) Generation() int { return t.generation }

// ForSignature derives a signing key of the suite's signature derivation
// length. It returns base and false when the suite reports length 0.
func ForSignature(s suite.AlgorithmSuite, base token.SecurityToken, version security.SecureConversationVersion, opts ...TokenOption) (token.SecurityToken, bool, error) {
	bits, err := suite.SignatureKeyDerivationLength(s, base, version)
	if err != nil {
		return nil, false, err
	}
	return forLength(base, version, bits, opts)
}

// ForEncryption derives an encryption key of the suite's encryption
// derivation length. It returns base and false when the suite reports
// length 0.
func ForEncryption(s suite.AlgorithmSuite, base token.SecurityToken, version security.SecureConversationVersion, opts ...TokenOption) (token.SecurityToken, bool, error) {
	bits, err := suite.EncryptionKeyDerivationLength(s, base, version)
	if err != nil {
		return nil, false, err
	}
	return forLength(base, version, bits, opts)
}

func forLength(base token.SecurityToken, version security.SecureConversationVersion, bits int, opts []TokenOption) (token.SecurityToken, bool, error) {
	if bits == 0 {
		return base, false, nil
	}
	algorithm, err := suite.KeyDerivationAlgorithm(version)
	if err != nil {
		return nil, false, err
	}
	dk, err := NewToken(base, algorithm, bits, opts...)
	if err != nil {
		return nil, false, err
	}
	return dk, true, nil
}

var _ token.SecurityToken = (*Token)(nil)
