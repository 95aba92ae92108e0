package suite

import (
	"fmt"

	"github.com/sirosfoundation/go-wssec/pkg/security"
	"github.com/sirosfoundation/go-wssec/pkg/token"
)

// SignatureAlgorithmAndKey returns the first key on tok supporting the
// suite's symmetric signature algorithm, or failing that the first key
// supporting its asymmetric signature algorithm.
func SignatureAlgorithmAndKey(s AlgorithmSuite, tok token.SecurityToken) (string, token.SecurityKey, error) {
	keys := tok.SecurityKeys()
	if len(keys) == 0 {
		return "", nil, fmt.Errorf("%w: %s", ErrNoSigningKeys, tok.ID())
	}

	symmetric := s.DefaultSymmetricSignatureAlgorithm()
	for _, k := range keys {
		if k.IsSupportedAlgorithm(symmetric) {
			return symmetric, k, nil
		}
	}

	asymmetric := s.DefaultAsymmetricSignatureAlgorithm()
	for _, k := range keys {
		if k.IsSupportedAlgorithm(asymmetric) {
			return asymmetric, k, nil
		}
	}

	return "", nil, fmt.Errorf("%w: suite %s, token %s", ErrNoSupportedKey, s.Name(), tok.ID())
}

// KeyWrapAlgorithm returns the suite's symmetric key wrap algorithm if any
// key on tok supports it, otherwise the asymmetric one
func KeyWrapAlgorithm(s AlgorithmSuite, tok token.SecurityToken) string {
	if token.SupportsAlgorithm(tok, s.DefaultSymmetricKeyWrapAlgorithm()) {
		return s.DefaultSymmetricKeyWrapAlgorithm()
	}
	return s.DefaultAsymmetricKeyWrapAlgorithm()
}

// KeyDerivationAlgorithm returns the derivation algorithm implied by the
// secure conversation version
func KeyDerivationAlgorithm(version security.SecureConversationVersion) (string, error) {
	switch version {
	case security.SecureConversationFeb2005:
		return security.Psha1KeyDerivation, nil
	case security.SecureConversationDec2005:
		return security.Psha1KeyDerivationDec2005, nil
	default:
		return "", fmt.Errorf("%w: %d", ErrUnsupportedVersion, int(version))
	}
}

// EncryptionKeyDerivationLength returns the derived encryption key length
// in bits, or 0 if tok does not support the version's derivation algorithm
func EncryptionKeyDerivationLength(s AlgorithmSuite, tok token.SecurityToken, version security.SecureConversationVersion) (int, error) {
	return derivationLength(s, tok, version, s.DefaultEncryptionKeyDerivationLength())
}

// SignatureKeyDerivationLength returns the derived signature key length
// in bits, or 0 if tok does not support the version's derivation algorithm
func SignatureKeyDerivationLength(s AlgorithmSuite, tok token.SecurityToken, version security.SecureConversationVersion) (int, error) {
	return derivationLength(s, tok, version, s.DefaultSignatureKeyDerivationLength())
}

func derivationLength(s AlgorithmSuite, tok token.SecurityToken, version security.SecureConversationVersion, bits int) (int, error) {
	algorithm, err := KeyDerivationAlgorithm(version)
	if err != nil {
		return 0, err
	}
	if !token.SupportsAlgorithm(tok, algorithm) {
		return 0, nil
	}
	if err := checkDerivationLength(bits); err != nil {
		return 0, fmt.Errorf("suite %s: %w", s.Name(), err)
	}
	return bits, nil
}

// CheckKeySize verifies that key's size is accepted by the suite. RSA keys
// are checked against the asymmetric range and everything else against the
// symmetric range.
func CheckKeySize(s AlgorithmSuite, key token.SecurityKey) error {
	bits := key.KeySize()
	if _, ok := key.(*token.RSAKey); ok {
		if !s.IsAsymmetricKeyLengthSupported(bits) {
			return fmt.Errorf("%w: %s rejects %d-bit asymmetric key", ErrUnacceptableKeySize, s.Name(), bits)
		}
		return nil
	}
	if !s.IsSymmetricKeyLengthSupported(bits) {
		return fmt.Errorf("%w: %s rejects %d-bit symmetric key", ErrUnacceptableKeySize, s.Name(), bits)
	}
	return nil
}

// SignatureAlgorithmAndKey is the package function bound to s
func (s *Suite) SignatureAlgorithmAndKey(tok token.SecurityToken) (string, token.SecurityKey, error) {
	return SignatureAlgorithmAndKey(s, tok)
}

// KeyWrapAlgorithm is the package function bound to s
func (s *Suite) KeyWrapAlgorithm(tok token.SecurityToken) string {
	return KeyWrapAlgorithm(s, tok)
}

// EncryptionKeyDerivationLength is the package function bound to s
func (s *Suite) EncryptionKeyDerivationLength(tok token.SecurityToken, version security.SecureConversationVersion) (int, error) {
	return EncryptionKeyDerivationLength(s, tok, version)
}

// SignatureKeyDerivationLength is the package function bound to s
func (s *Suite) SignatureKeyDerivationLength(tok token.SecurityToken, version security.SecureConversationVersion) (int, error) {
	return SignatureKeyDerivationLength(s, tok, version)
}
