package header

import (
	"encoding/base64"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/beevik/etree"

	"github.com/sirosfoundation/go-wssec/pkg/security"
)

var (
	// ErrNoSecurityHeader is returned when the envelope has no wsse:Security
	ErrNoSecurityHeader = errors.New("no WS-Security header")
	// ErrMalformed is returned for envelopes or header elements that cannot
	// be read
	ErrMalformed = errors.New("malformed security header")
)

// DefaultDerivedKeyLength is the WS-SecureConversation default length in
// bytes when a derived-key token carries no Length
const DefaultDerivedKeyLength = 32

// Timestamp is a wsu:Timestamp
type Timestamp struct {
	ID      string
	Created time.Time
	// Expires is zero when absent
	Expires time.Time
}

// UsernameToken is the replay-relevant part of a wsse:UsernameToken
type UsernameToken struct {
	ID       string
	Username string
	Nonce    []byte
	// Created is zero when absent
	Created time.Time
}

// DerivedKeyToken is a wsc:DerivedKeyToken
type DerivedKeyToken struct {
	ID        string
	Version   security.SecureConversationVersion
	Algorithm string
	Nonce     []byte
	Label     string
	// Length is in bytes, 0 when absent
	Length int
	// Offset and Generation are -1 when absent
	Offset     int
	Generation int
}

// EffectiveLength returns Length or the default length
func (d DerivedKeyToken) EffectiveLength() int {
	if d.Length > 0 {
		return d.Length
	}
	return DefaultDerivedKeyLength
}

// EffectiveOffset returns the byte offset implied by Offset or Generation.
// It saturates at math.MaxInt.
func (d DerivedKeyToken) EffectiveOffset() int {
	switch {
	case d.Generation >= 0:
		length := d.EffectiveLength()
		if d.Generation > math.MaxInt/length {
			return math.MaxInt
		}
		return d.Generation * length
	case d.Offset >= 0:
		return d.Offset
	default:
		return 0
	}
}

// SecurityHeader is the content read from a wsse:Security header
type SecurityHeader struct {
	Timestamp        *Timestamp
	SignatureValues  [][]byte
	UsernameTokens   []UsernameToken
	DerivedKeyTokens []DerivedKeyToken
}

// Parse reads the Security header of a SOAP envelope
func Parse(envelope []byte) (*SecurityHeader, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(envelope); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	root := doc.Root()
	if root == nil || root.Tag != "Envelope" {
		return nil, fmt.Errorf("%w: root element is not a SOAP Envelope", ErrMalformed)
	}
	if ns := root.NamespaceURI(); ns != security.NSSOAP11 && ns != security.NSSOAP12 {
		return nil, fmt.Errorf("%w: unknown SOAP namespace %q", ErrMalformed, ns)
	}

	soapHeader := child(root, root.NamespaceURI(), "Header")
	if soapHeader == nil {
		return nil, ErrNoSecurityHeader
	}
	sec := child(soapHeader, security.NSSecurityExt, "Security")
	if sec == nil {
		return nil, ErrNoSecurityHeader
	}

	return parseSecurity(sec)
}

func parseSecurity(sec *etree.Element) (*SecurityHeader, error) {
	h := &SecurityHeader{}

	for _, el := range sec.ChildElements() {
		var err error
		switch {
		case is(el, security.NSSecurityUtil, "Timestamp"):
			if h.Timestamp != nil {
				return nil, fmt.Errorf("%w: more than one Timestamp", ErrMalformed)
			}
			h.Timestamp, err = parseTimestamp(el)
		case is(el, security.NSXMLDSig, "Signature"):
			err = h.addSignatureValue(el)
		case is(el, security.NSSecurityExt, "UsernameToken"):
			var ut UsernameToken
			ut, err = parseUsernameToken(el)
			h.UsernameTokens = append(h.UsernameTokens, ut)
		case is(el, security.NSSecureConversationFeb2005, "DerivedKeyToken"):
			err = h.addDerivedKeyToken(el, security.SecureConversationFeb2005)
		case is(el, security.NSSecureConversationDec2005, "DerivedKeyToken"):
			err = h.addDerivedKeyToken(el, security.SecureConversationDec2005)
		}
		if err != nil {
			return nil, err
		}
	}
	return h, nil
}

func parseTimestamp(el *etree.Element) (*Timestamp, error) {
	ts := &Timestamp{ID: utilityID(el)}

	created := child(el, security.NSSecurityUtil, "Created")
	if created == nil {
		return nil, fmt.Errorf("%w: Timestamp without Created", ErrMalformed)
	}
	var err error
	if ts.Created, err = parseTime(created.Text()); err != nil {
		return nil, fmt.Errorf("%w: Timestamp Created: %v", ErrMalformed, err)
	}

	if expires := child(el, security.NSSecurityUtil, "Expires"); expires != nil {
		if ts.Expires, err = parseTime(expires.Text()); err != nil {
			return nil, fmt.Errorf("%w: Timestamp Expires: %v", ErrMalformed, err)
		}
	}
	return ts, nil
}

func (h *SecurityHeader) addSignatureValue(sig *etree.Element) error {
	sv := child(sig, security.NSXMLDSig, "SignatureValue")
	if sv == nil {
		return fmt.Errorf("%w: Signature without SignatureValue", ErrMalformed)
	}
	value, err := decodeBase64(sv.Text())
	if err != nil {
		return fmt.Errorf("%w: SignatureValue: %v", ErrMalformed, err)
	}
	h.SignatureValues = append(h.SignatureValues, value)
	return nil
}

func parseUsernameToken(el *etree.Element) (UsernameToken, error) {
	ut := UsernameToken{ID: utilityID(el)}
	if u := child(el, security.NSSecurityExt, "Username"); u != nil {
		ut.Username = strings.TrimSpace(u.Text())
	}
	if n := child(el, security.NSSecurityExt, "Nonce"); n != nil {
		nonce, err := decodeBase64(n.Text())
		if err != nil {
			return ut, fmt.Errorf("%w: UsernameToken Nonce: %v", ErrMalformed, err)
		}
		ut.Nonce = nonce
	}
	if c := child(el, security.NSSecurityUtil, "Created"); c != nil {
		created, err := parseTime(c.Text())
		if err != nil {
			return ut, fmt.Errorf("%w: UsernameToken Created: %v", ErrMalformed, err)
		}
		ut.Created = created
	}
	return ut, nil
}

func (h *SecurityHeader) addDerivedKeyToken(el *etree.Element, version security.SecureConversationVersion) error {
	ns := version.Namespace()
	dk := DerivedKeyToken{
		ID:         utilityID(el),
		Version:    version,
		Algorithm:  el.SelectAttrValue("Algorithm", ""),
		Offset:     -1,
		Generation: -1,
	}
	if dk.Algorithm == "" {
		dk.Algorithm = defaultDerivationAlgorithm(version)
	}

	n := child(el, ns, "Nonce")
	if n == nil {
		return fmt.Errorf("%w: DerivedKeyToken %s without Nonce", ErrMalformed, dk.ID)
	}
	nonce, err := decodeBase64(n.Text())
	if err != nil {
		return fmt.Errorf("%w: DerivedKeyToken Nonce: %v", ErrMalformed, err)
	}
	dk.Nonce = nonce

	if l := child(el, ns, "Label"); l != nil {
		dk.Label = l.Text()
	}
	if dk.Length, err = optionalInt(el, ns, "Length", 0); err != nil {
		return err
	}
	if dk.Offset, err = optionalInt(el, ns, "Offset", -1); err != nil {
		return err
	}
	if dk.Generation, err = optionalInt(el, ns, "Generation", -1); err != nil {
		return err
	}
	if dk.Offset >= 0 && dk.Generation >= 0 {
		return fmt.Errorf("%w: DerivedKeyToken %s has both Offset and Generation", ErrMalformed, dk.ID)
	}

	h.DerivedKeyTokens = append(h.DerivedKeyTokens, dk)
	return nil
}

func defaultDerivationAlgorithm(version security.SecureConversationVersion) string {
	if version == security.SecureConversationFeb2005 {
		return security.Psha1KeyDerivation
	}
	return security.Psha1KeyDerivationDec2005
}

func optionalInt(parent *etree.Element, ns, tag string, absent int) (int, error) {
	el := child(parent, ns, tag)
	if el == nil {
		return absent, nil
	}
	v, err := strconv.Atoi(strings.TrimSpace(el.Text()))
	if err != nil || v < 0 {
		return 0, fmt.Errorf("%w: DerivedKeyToken %s %q", ErrMalformed, tag, el.Text())
	}
	return v, nil
}

func child(parent *etree.Element, ns, tag string) *etree.Element {
	for _, el := range parent.ChildElements() {
		if is(el, ns, tag) {
			return el
		}
	}
	return nil
}

func is(el *etree.Element, ns, tag string) bool {
	return el.Tag == tag && el.NamespaceURI() == ns
}

func utilityID(el *etree.Element) string {
	for _, a := range el.Attr {
		if a.Key == "Id" && (a.Space == "" || a.NamespaceURI() == security.NSSecurityUtil) {
			return a.Value
		}
	}
	return ""
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}

func decodeBase64(s string) ([]byte, error) {
	clean := strings.Join(strings.Fields(s), "")
	if clean == "" {
		return nil, errors.New("empty value")
	}
	return base64.StdEncoding.DecodeString(clean)
}
