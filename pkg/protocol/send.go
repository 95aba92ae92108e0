package protocol

import (
	"context"

	"github.com/sirosfoundation/go-wssec/pkg/derivedkey"
	"github.com/sirosfoundation/go-wssec/pkg/suite"
	"github.com/sirosfoundation/go-wssec/pkg/token"
)

// OutgoingKeys is what the send path needs to secure a message with a base
// token. SignatureToken and EncryptionToken are the base token itself when
// it does not support key derivation.
type OutgoingKeys struct {
	SignatureAlgorithm string
	SignatureKey       token.SecurityKey
	KeyWrapAlgorithm   string

	SignatureToken    token.SecurityToken
	DerivedSignature  bool
	EncryptionToken   token.SecurityToken
	DerivedEncryption bool
}

// OutgoingKeys selects algorithms and keys from the outgoing suite for base
func (f *Factory) OutgoingKeys(ctx context.Context, base token.SecurityToken) (*OutgoingKeys, error) {
	if f.isClosed() {
		return nil, ErrFactoryClosed
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	alg, key, err := suite.SignatureAlgorithmAndKey(f.outgoing, base)
	if err != nil {
		return nil, err
	}
	out := &OutgoingKeys{
		SignatureAlgorithm: alg,
		SignatureKey:       key,
		KeyWrapAlgorithm:   suite.KeyWrapAlgorithm(f.outgoing, base),
	}

	out.SignatureToken, out.DerivedSignature, err = derivedkey.ForSignature(
		f.outgoing, base, f.version, derivedkey.WithCache(f.dkCache))
	if err != nil {
		return nil, err
	}
	out.EncryptionToken, out.DerivedEncryption, err = derivedkey.ForEncryption(
		f.outgoing, base, f.version, derivedkey.WithCache(f.dkCache))
	if err != nil {
		return nil, err
	}
	return out, nil
}
