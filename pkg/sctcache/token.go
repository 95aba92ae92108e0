package sctcache

import (
	"errors"
	"time"

	"github.com/sirosfoundation/go-wssec/pkg/token"
)

// ErrMissingContextID is returned for a token without a context ID
var ErrMissingContextID = errors.New("security context token requires a context ID")

// SecurityContextToken is an issued WS-SecureConversation context
type SecurityContextToken struct {
	id            string
	contextID     string
	keyGeneration string
	key           *token.SymmetricKey
	validFrom     time.Time
	validTo       time.Time
}

// NewSecurityContextToken creates a context token over secret. A zero
// validTo means the context does not expire on its own.
func NewSecurityContextToken(contextID, keyGeneration string, secret []byte, validFrom, validTo time.Time) (*SecurityContextToken, error) {
	if contextID == "" {
		return nil, ErrMissingContextID
	}
	if !validTo.IsZero() && validTo.Before(validFrom) {
		return nil, token.ErrInvalidValidity
	}
	key, err := token.NewSymmetricKey(secret)
	if err != nil {
		return nil, err
	}
	return &SecurityContextToken{
		id:            token.NewID(),
		contextID:     contextID,
		keyGeneration: keyGeneration,
		key:           key,
		validFrom:     validFrom.UTC(),
		validTo:       validTo.UTC(),
	}, nil
}

func (t *SecurityContextToken) ID() string { return t.id }

// ContextID returns the conversation identifier
func (t *SecurityContextToken) ContextID() string { return t.contextID }

// KeyGeneration returns the key generation, empty for the first key
func (t *SecurityContextToken) KeyGeneration() string { return t.keyGeneration }

func (t *SecurityContextToken) SecurityKeys() []token.SecurityKey {
	return []token.SecurityKey{t.key}
}

func (t *SecurityContextToken) ValidFrom() time.Time { return t.validFrom }

func (t *SecurityContextToken) ValidTo() time.Time { return t.validTo }

// Key returns the context key
func (t *SecurityContextToken) Key() *token.SymmetricKey { return t.key }

func (t *SecurityContextToken) clone() *SecurityContextToken {
	c := *t
	c.key, _ = token.NewSymmetricKey(t.key.SymmetricKey())
	return &c
}

var _ token.SecurityToken = (*SecurityContextToken)(nil)
