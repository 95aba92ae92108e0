package suite

import (
	"errors"
	"fmt"

	"github.com/sirosfoundation/go-wssec/pkg/security"
)

var (
	// ErrInvalidDerivationLength is returned when a key derivation length is
	// not a positive multiple of 8
	ErrInvalidDerivationLength = errors.New("key derivation length must be a positive multiple of 8")
	// ErrInvalidSuite is returned by New for incomplete parameters
	ErrInvalidSuite = errors.New("invalid algorithm suite")
	// ErrNoSigningKeys is returned when a token has no keys to sign with
	ErrNoSigningKeys = errors.New("token has no keys for signing")
	// ErrNoSupportedKey is returned when no key on a token supports the
	// suite's signature algorithms
	ErrNoSupportedKey = errors.New("no key on token supports the suite signature algorithms")
	// ErrUnsupportedVersion is returned for an unknown secure conversation version
	ErrUnsupportedVersion = errors.New("unsupported secure conversation version")
	// ErrUnacceptableKeySize is returned when a key is outside the suite's
	// accepted length range
	ErrUnacceptableKeySize = errors.New("key size not accepted by algorithm suite")
)

// AlgorithmSuite is the algorithm set and key constraints for an exchange.
//
// Each Is*Supported predicate of a Suite matches exactly its Default*
// value, except the key length predicates, which are ranges.
type AlgorithmSuite interface {
	Name() string

	DefaultCanonicalizationAlgorithm() string
	DefaultDigestAlgorithm() string
	DefaultEncryptionAlgorithm() string
	DefaultEncryptionKeyDerivationLength() int
	DefaultSymmetricKeyWrapAlgorithm() string
	DefaultAsymmetricKeyWrapAlgorithm() string
	DefaultSymmetricSignatureAlgorithm() string
	DefaultAsymmetricSignatureAlgorithm() string
	DefaultSignatureKeyDerivationLength() int
	DefaultSymmetricKeyLength() int

	IsCanonicalizationAlgorithmSupported(uri string) bool
	IsDigestAlgorithmSupported(uri string) bool
	IsEncryptionAlgorithmSupported(uri string) bool
	IsEncryptionKeyDerivationAlgorithmSupported(uri string) bool
	IsSymmetricKeyWrapAlgorithmSupported(uri string) bool
	IsAsymmetricKeyWrapAlgorithmSupported(uri string) bool
	IsSymmetricSignatureAlgorithmSupported(uri string) bool
	IsAsymmetricSignatureAlgorithmSupported(uri string) bool
	IsSignatureKeyDerivationAlgorithmSupported(uri string) bool
	IsSymmetricKeyLengthSupported(bits int) bool
	IsAsymmetricKeyLengthSupported(bits int) bool
}

// KeyLengthRange is an inclusive range of key sizes in bits
type KeyLengthRange struct {
	Min int
	Max int
}

// Contains reports whether bits lies in the range
func (r KeyLengthRange) Contains(bits int) bool {
	return bits >= r.Min && bits <= r.Max
}

// Params describes a suite for New
type Params struct {
	Name                          string
	Canonicalization              string
	Digest                        string
	Encryption                    string
	SymmetricKeyWrap              string
	AsymmetricKeyWrap             string
	SymmetricSignature            string
	AsymmetricSignature           string
	EncryptionKeyDerivationLength int
	SignatureKeyDerivationLength  int
	SymmetricKeyLength            int
	SymmetricKeyLengths           KeyLengthRange
	AsymmetricKeyLengths          KeyLengthRange
}

// Suite is an immutable AlgorithmSuite
type Suite struct {
	p Params
}

// New creates a custom suite. Empty canonicalization defaults to exclusive
// C14N; an empty asymmetric key length range defaults to 1024..4096.
func New(p Params) (*Suite, error) {
	if p.Canonicalization == "" {
		p.Canonicalization = security.ExclusiveC14n
	}
	if p.AsymmetricKeyLengths == (KeyLengthRange{}) {
		p.AsymmetricKeyLengths = KeyLengthRange{Min: 1024, Max: 4096}
	}

	switch {
	case p.Name == "":
		return nil, fmt.Errorf("%w: name is required", ErrInvalidSuite)
	case p.Digest == "" || p.Encryption == "":
		return nil, fmt.Errorf("%w: %s: digest and encryption algorithms are required", ErrInvalidSuite, p.Name)
	case p.SymmetricKeyWrap == "" || p.AsymmetricKeyWrap == "":
		return nil, fmt.Errorf("%w: %s: key wrap algorithms are required", ErrInvalidSuite, p.Name)
	case p.SymmetricSignature == "" || p.AsymmetricSignature == "":
		return nil, fmt.Errorf("%w: %s: signature algorithms are required", ErrInvalidSuite, p.Name)
	case p.SymmetricKeyLengths.Min > p.SymmetricKeyLengths.Max,
		p.AsymmetricKeyLengths.Min > p.AsymmetricKeyLengths.Max:
		return nil, fmt.Errorf("%w: %s: empty key length range", ErrInvalidSuite, p.Name)
	}
	if err := checkDerivationLength(p.EncryptionKeyDerivationLength); err != nil {
		return nil, fmt.Errorf("%s encryption: %w", p.Name, err)
	}
	if err := checkDerivationLength(p.SignatureKeyDerivationLength); err != nil {
		return nil, fmt.Errorf("%s signature: %w", p.Name, err)
	}
	return &Suite{p: p}, nil
}

func mustNew(p Params) *Suite {
	s, err := New(p)
	if err != nil {
		panic(err)
	}
	return s
}

func checkDerivationLength(bits int) error {
	if bits <= 0 || bits%8 != 0 {
		return fmt.Errorf("%w: %d", ErrInvalidDerivationLength, bits)
	}
	return nil
}

func (s *Suite) Name() string   { return s.p.Name }
func (s *Suite) String() string { return s.p.Name }

func (s *Suite) DefaultCanonicalizationAlgorithm() string    { return s.p.Canonicalization }
func (s *Suite) DefaultDigestAlgorithm() string              { return s.p.Digest }
func (s *Suite) DefaultEncryptionAlgorithm() string          { return s.p.Encryption }
func (s *Suite) DefaultEncryptionKeyDerivationLength() int   { return s.p.EncryptionKeyDerivationLength }
func (s *Suite) DefaultSymmetricKeyWrapAlgorithm() string    { return s.p.SymmetricKeyWrap }
func (s *Suite) DefaultAsymmetricKeyWrapAlgorithm() string   { return s.p.AsymmetricKeyWrap }
func (s *Suite) DefaultSymmetricSignatureAlgorithm() string  { return s.p.SymmetricSignature }
func (s *Suite) DefaultAsymmetricSignatureAlgorithm() string { return s.p.AsymmetricSignature }
func (s *Suite) DefaultSignatureKeyDerivationLength() int    { return s.p.SignatureKeyDerivationLength }
func (s *Suite) DefaultSymmetricKeyLength() int              { return s.p.SymmetricKeyLength }

func (s *Suite) IsCanonicalizationAlgorithmSupported(uri string) bool {
	return uri == s.p.Canonicalization
}

func (s *Suite) IsDigestAlgorithmSupported(uri string) bool {
	return uri == s.p.Digest
}

func (s *Suite) IsEncryptionAlgorithmSupported(uri string) bool {
	return uri == s.p.Encryption
}

// IsEncryptionKeyDerivationAlgorithmSupported accepts both PSHA1 variants
func (s *Suite) IsEncryptionKeyDerivationAlgorithmSupported(uri string) bool {
	return isPsha1(uri)
}

func (s *Suite) IsSymmetricKeyWrapAlgorithmSupported(uri string) bool {
	return uri == s.p.SymmetricKeyWrap
}

func (s *Suite) IsAsymmetricKeyWrapAlgorithmSupported(uri string) bool {
	return uri == s.p.AsymmetricKeyWrap
}

func (s *Suite) IsSymmetricSignatureAlgorithmSupported(uri string) bool {
	return uri == s.p.SymmetricSignature
}

func (s *Suite) IsAsymmetricSignatureAlgorithmSupported(uri string) bool {
	return uri == s.p.AsymmetricSignature
}

// IsSignatureKeyDerivationAlgorithmSupported accepts both PSHA1 variants
func (s *Suite) IsSignatureKeyDerivationAlgorithmSupported(uri string) bool {
	return isPsha1(uri)
}

func (s *Suite) IsSymmetricKeyLengthSupported(bits int) bool {
	return s.p.SymmetricKeyLengths.Contains(bits)
}

func (s *Suite) IsAsymmetricKeyLengthSupported(bits int) bool {
	return s.p.AsymmetricKeyLengths.Contains(bits)
}

// SymmetricKeyLengths returns the accepted symmetric key range
func (s *Suite) SymmetricKeyLengths() KeyLengthRange { return s.p.SymmetricKeyLengths }

// AsymmetricKeyLengths returns the accepted asymmetric key range
func (s *Suite) AsymmetricKeyLengths() KeyLengthRange { return s.p.AsymmetricKeyLengths }

func isPsha1(uri string) bool {
	return uri == security.Psha1KeyDerivation || uri == security.Psha1KeyDerivationDec2005
}

var _ AlgorithmSuite = (*Suite)(nil)
