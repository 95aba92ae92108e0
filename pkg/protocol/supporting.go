package protocol

import (
	"context"
	"fmt"
	"reflect"
	"sort"
)

// WildcardAction is the action key matching every action without its own
// supporting-token specification
const WildcardAction = "*"

// Authenticator validates one kind of supporting token. Open and Close are
// called sequentially by the factory and share the caller's deadline.
type Authenticator interface {
	Open(ctx context.Context) error
	Close(ctx context.Context) error
	Abort()
}

// AttachmentMode is how a supporting token is bound to the message
type AttachmentMode int

const (
	// Signed tokens are covered by the message signature
	Signed AttachmentMode = iota
	// Endorsing tokens sign the message signature
	Endorsing
	// SignedEndorsing tokens are signed and endorsing
	SignedEndorsing
	// SignedEncrypted tokens are signed and encrypted
	SignedEncrypted
)

func (m AttachmentMode) String() string {
	switch m {
	case Signed:
		return "Signed"
	case Endorsing:
		return "Endorsing"
	case SignedEndorsing:
		return "SignedEndorsing"
	case SignedEncrypted:
		return "SignedEncrypted"
	default:
		return fmt.Sprintf("AttachmentMode(%d)", int(m))
	}
}

// SupportingTokenSpec registers an authenticator for a supporting token
type SupportingTokenSpec struct {
	Authenticator      Authenticator
	Mode               AttachmentMode
	TokenType          string
	RequireDerivedKeys bool
	Optional           bool
}

// MergedSupportingTokenSpec is the set of specifications in force for one
// action, with the token kinds a message for it is expected to carry
type MergedSupportingTokenSpec struct {
	Specs                 []SupportingTokenSpec
	ExpectSignedTokens    bool
	ExpectBasicTokens     bool
	ExpectEndorsingTokens bool
}

func newMerged(specs []SupportingTokenSpec) *MergedSupportingTokenSpec {
	m := &MergedSupportingTokenSpec{Specs: specs}
	for _, s := range specs {
		switch s.Mode {
		case Endorsing, SignedEndorsing:
			m.ExpectEndorsingTokens = true
		case Signed:
			m.ExpectSignedTokens = true
		case SignedEncrypted:
			m.ExpectBasicTokens = true
		}
	}
	return m
}

// mergeSupportingTokens combines endpoint specifications with each scoped
// action. The wildcard entry holds the endpoint specifications plus any
// specifications scoped to WildcardAction.
func mergeSupportingTokens(endpoint []SupportingTokenSpec, scoped map[string][]SupportingTokenSpec) (map[string]*MergedSupportingTokenSpec, error) {
	merged := make(map[string]*MergedSupportingTokenSpec, len(scoped)+1)

	if err := verifyUniqueness(WildcardAction, endpoint); err != nil {
		return nil, err
	}

	for action, specs := range scoped {
		if action == "" {
			return nil, fmt.Errorf("%w: empty action in scoped supporting tokens", ErrInvalidConfiguration)
		}
		all := make([]SupportingTokenSpec, 0, len(endpoint)+len(specs))
		all = append(all, endpoint...)
		all = append(all, specs...)
		if err := verifyUniqueness(action, all); err != nil {
			return nil, err
		}
		if len(all) > 0 {
			merged[action] = newMerged(all)
		}
	}

	if _, ok := merged[WildcardAction]; !ok && len(endpoint) > 0 {
		merged[WildcardAction] = newMerged(append([]SupportingTokenSpec(nil), endpoint...))
	}
	return merged, nil
}

// verifyUniqueness rejects two authenticators of the same concrete type, or
// of types where one embeds the other, within a scope
func verifyUniqueness(action string, specs []SupportingTokenSpec) error {
	for i, a := range specs {
		if a.Authenticator == nil {
			return fmt.Errorf("%w: action %q: supporting token %d has no authenticator",
				ErrInvalidConfiguration, action, i)
		}
		for _, b := range specs[i+1:] {
			if b.Authenticator == nil {
				continue
			}
			ta, tb := reflect.TypeOf(a.Authenticator), reflect.TypeOf(b.Authenticator)
			if relatedTypes(ta, tb) {
				return fmt.Errorf("%w: action %q: %v and %v", ErrDuplicateAuthenticator, action, ta, tb)
			}
		}
	}
	return nil
}

func relatedTypes(a, b reflect.Type) bool {
	a, b = indirect(a), indirect(b)
	return a == b || embeds(a, b, map[reflect.Type]bool{}) || embeds(b, a, map[reflect.Type]bool{})
}

func indirect(t reflect.Type) reflect.Type {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t
}

func embeds(outer, inner reflect.Type, seen map[reflect.Type]bool) bool {
	if outer.Kind() != reflect.Struct || seen[outer] {
		return false
	}
	seen[outer] = true
	for i := 0; i < outer.NumField(); i++ {
		f := outer.Field(i)
		if !f.Anonymous {
			continue
		}
		ft := indirect(f.Type)
		if ft == inner || embeds(ft, inner, seen) {
			return true
		}
	}
	return false
}

// distinctAuthenticators lists each authenticator once: endpoint specs
// first, then scoped specs by action name
func distinctAuthenticators(endpoint []SupportingTokenSpec, scoped map[string][]SupportingTokenSpec) []Authenticator {
	var out []Authenticator
	add := func(a Authenticator) {
		for _, seen := range out {
			if sameAuthenticator(seen, a) {
				return
			}
		}
		out = append(out, a)
	}

	for _, s := range endpoint {
		add(s.Authenticator)
	}
	actions := make([]string, 0, len(scoped))
	for action := range scoped {
		actions = append(actions, action)
	}
	sort.Strings(actions)
	for _, action := range actions {
		for _, s := range scoped[action] {
			add(s.Authenticator)
		}
	}
	return out
}

func sameAuthenticator(a, b Authenticator) bool {
	ta, tb := reflect.TypeOf(a), reflect.TypeOf(b)
	if ta != tb || !ta.Comparable() {
		return false
	}
	return a == b
}
