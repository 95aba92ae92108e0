package token

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrNoKeys is returned when a token is created without keys
	ErrNoKeys = errors.New("token has no security keys")
	// ErrInvalidValidity is returned when ValidTo is before ValidFrom
	ErrInvalidValidity = errors.New("token validity ends before it starts")
)

// SecurityKey is a single key carried by a token
type SecurityKey interface {
	// IsSupportedAlgorithm reports whether the key can be used with the
	// algorithm identified by uri
	IsSupportedAlgorithm(uri string) bool
	// KeySize returns the key size in bits
	KeySize() int
}

// SecurityToken is a read-only view of a security token
type SecurityToken interface {
	ID() string
	SecurityKeys() []SecurityKey
	ValidFrom() time.Time
	ValidTo() time.Time
}

// NewID returns a fresh token identifier
func NewID() string {
	return "uuid-" + uuid.NewString()
}

// GenericToken is a SecurityToken over an arbitrary key list
type GenericToken struct {
	id        string
	keys      []SecurityKey
	validFrom time.Time
	validTo   time.Time
}

// NewGenericToken creates a token. An empty id is replaced by NewID.
func NewGenericToken(id string, keys []SecurityKey, validFrom, validTo time.Time) (*GenericToken, error) {
	if len(keys) == 0 {
		return nil, ErrNoKeys
	}
	if !validTo.IsZero() && validTo.Before(validFrom) {
		return nil, ErrInvalidValidity
	}
	if id == "" {
		id = NewID()
	}
	k := make([]SecurityKey, len(keys))
	copy(k, keys)
	return &GenericToken{
		id:        id,
		keys:      k,
		validFrom: validFrom.UTC(),
		validTo:   validTo.UTC(),
	}, nil
}

// NewSymmetricToken creates a token holding a single symmetric key
func NewSymmetricToken(id string, secret []byte, validFrom, validTo time.Time) (*GenericToken, error) {
	key, err := NewSymmetricKey(secret)
	if err != nil {
		return nil, err
	}
	return NewGenericToken(id, []SecurityKey{key}, validFrom, validTo)
}

// NewRSAToken creates a token holding a single RSA key
func NewRSAToken(id string, key *RSAKey, validFrom, validTo time.Time) (*GenericToken, error) {
	if key == nil {
		return nil, ErrNoKeys
	}
	return NewGenericToken(id, []SecurityKey{key}, validFrom, validTo)
}

func (t *GenericToken) ID() string { return t.id }

// SecurityKeys returns the token's keys in order. The slice must not be
// modified.
func (t *GenericToken) SecurityKeys() []SecurityKey { return t.keys }

func (t *GenericToken) ValidFrom() time.Time { return t.validFrom }

func (t *GenericToken) ValidTo() time.Time { return t.validTo }

// IsValidAt reports whether at falls inside the validity window. A zero
// ValidTo means no upper bound.
func IsValidAt(tok SecurityToken, at time.Time) bool {
	if at.Before(tok.ValidFrom()) {
		return false
	}
	to := tok.ValidTo()
	return to.IsZero() || at.Before(to)
}

// FirstKeySupporting returns the first key on tok that supports uri
func FirstKeySupporting(tok SecurityToken, uri string) (SecurityKey, bool) {
	for _, k := range tok.SecurityKeys() {
		if k.IsSupportedAlgorithm(uri) {
			return k, true
		}
	}
	return nil, false
}

// SupportsAlgorithm reports whether any key on tok supports uri
func SupportsAlgorithm(tok SecurityToken, uri string) bool {
	_, ok := FirstKeySupporting(tok, uri)
	return ok
}
