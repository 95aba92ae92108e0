package security

// Algorithm URIs used by the WS-Security algorithm suites
const (
	// Canonicalization algorithms
	ExclusiveC14n             = "http://www.w3.org/2001/10/xml-exc-c14n#"
	ExclusiveC14nWithComments = "http://www.w3.org/2001/10/xml-exc-c14n#WithComments"

	// Digest algorithms
	Sha1Digest   = "http://www.w3.org/2000/09/xmldsig#sha1"
	Sha256Digest = "http://www.w3.org/2001/04/xmlenc#sha256"

	// Symmetric encryption algorithms
	Aes128Encryption    = "http://www.w3.org/2001/04/xmlenc#aes128-cbc"
	Aes192Encryption    = "http://www.w3.org/2001/04/xmlenc#aes192-cbc"
	Aes256Encryption    = "http://www.w3.org/2001/04/xmlenc#aes256-cbc"
	TripleDesEncryption = "http://www.w3.org/2001/04/xmlenc#tripledes-cbc"

	// Symmetric key wrap algorithms
	Aes128KeyWrap    = "http://www.w3.org/2001/04/xmlenc#kw-aes128"
	Aes192KeyWrap    = "http://www.w3.org/2001/04/xmlenc#kw-aes192"
	Aes256KeyWrap    = "http://www.w3.org/2001/04/xmlenc#kw-aes256"
	TripleDesKeyWrap = "http://www.w3.org/2001/04/xmlenc#kw-tripledes"

	// Asymmetric key wrap algorithms
	RsaOaepKeyWrap = "http://www.w3.org/2001/04/xmlenc#rsa-oaep-mgf1p"
	Rsa15KeyWrap   = "http://www.w3.org/2001/04/xmlenc#rsa-1_5"

	// Signature algorithms
	HmacSha1Signature   = "http://www.w3.org/2000/09/xmldsig#hmac-sha1"
	HmacSha256Signature = "http://www.w3.org/2001/04/xmldsig-more#hmac-sha256"
	RsaSha1Signature    = "http://www.w3.org/2000/09/xmldsig#rsa-sha1"
	RsaSha256Signature  = "http://www.w3.org/2001/04/xmldsig-more#rsa-sha256"

	// Key derivation algorithms
	Psha1KeyDerivation        = "http://schemas.xmlsoap.org/ws/2005/02/sc/dk/p_sha1"
	Psha1KeyDerivationDec2005 = "http://docs.oasis-open.org/ws-sx/ws-secureconversation/200512/dk/p_sha1"
	HkdfKeyDerivation         = "http://www.w3.org/2021/04/xmldsig-more#hkdf"
)

// WS-Security and WS-SecureConversation namespaces
const (
	NSSecurityExt  = "http://docs.oasis-open.org/wss/2004/01/oasis-200401-wss-wssecurity-secext-1.0.xsd"
	NSSecurityUtil = "http://docs.oasis-open.org/wss/2004/01/oasis-200401-wss-wssecurity-utility-1.0.xsd"
	NSXMLDSig      = "http://www.w3.org/2000/09/xmldsig#"
	NSXMLEnc       = "http://www.w3.org/2001/04/xmlenc#"
	NSSOAP11       = "http://schemas.xmlsoap.org/soap/envelope/"
	NSSOAP12       = "http://www.w3.org/2003/05/soap-envelope"

	NSSecureConversationFeb2005 = "http://schemas.xmlsoap.org/ws/2005/02/sc"
	NSSecureConversationDec2005 = "http://docs.oasis-open.org/ws-sx/ws-secureconversation/200512"
)

// SecureConversationVersion selects the WS-SecureConversation namespace and
// with it the key derivation algorithm
type SecureConversationVersion int

const (
	// SecureConversationFeb2005 is the pre-standard February 2005 version
	SecureConversationFeb2005 SecureConversationVersion = iota + 1
	// SecureConversationDec2005 is WS-SecureConversation 1.3
	SecureConversationDec2005
)

// String returns the version name
func (v SecureConversationVersion) String() string {
	switch v {
	case SecureConversationFeb2005:
		return "WSSecureConversationFeb2005"
	case SecureConversationDec2005:
		return "WSSecureConversation13"
	default:
		return "unknown"
	}
}

// Namespace returns the WS-SecureConversation namespace for the version
func (v SecureConversationVersion) Namespace() string {
	switch v {
	case SecureConversationFeb2005:
		return NSSecureConversationFeb2005
	case SecureConversationDec2005:
		return NSSecureConversationDec2005
	default:
		return ""
	}
}

// ParseSecureConversationVersion parses a configuration value
func ParseSecureConversationVersion(s string) (SecureConversationVersion, bool) {
	switch s {
	case "feb2005", "WSSecureConversationFeb2005":
		return SecureConversationFeb2005, true
	case "dec2005", "1.3", "WSSecureConversation13":
		return SecureConversationDec2005, true
	default:
		return 0, false
	}
}
