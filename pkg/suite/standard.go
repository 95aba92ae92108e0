package suite

import (
	"github.com/sirosfoundation/go-wssec/pkg/security"
)

type family struct {
	name           string
	encryption     string
	keyWrap        string
	encDerivation  int
	sigDerivation  int
	keyLength      int
	keyLengthRange KeyLengthRange
}

var (
	basic256 = family{
		name:           "Basic256",
		encryption:     security.Aes256Encryption,
		keyWrap:        security.Aes256KeyWrap,
		encDerivation:  256,
		sigDerivation:  192,
		keyLength:      256,
		keyLengthRange: KeyLengthRange{Min: 256, Max: 256},
	}
	basic192 = family{
		name:           "Basic192",
		encryption:     security.Aes192Encryption,
		keyWrap:        security.Aes192KeyWrap,
		encDerivation:  192,
		sigDerivation:  192,
		keyLength:      192,
		keyLengthRange: KeyLengthRange{Min: 192, Max: 256},
	}
	basic128 = family{
		name:           "Basic128",
		encryption:     security.Aes128Encryption,
		keyWrap:        security.Aes128KeyWrap,
		encDerivation:  128,
		sigDerivation:  128,
		keyLength:      128,
		keyLengthRange: KeyLengthRange{Min: 128, Max: 256},
	}
	tripleDes = family{
		name:           "TripleDes",
		encryption:     security.TripleDesEncryption,
		keyWrap:        security.TripleDesKeyWrap,
		encDerivation:  192,
		sigDerivation:  192,
		keyLength:      192,
		keyLengthRange: KeyLengthRange{Min: 192, Max: 256},
	}
)

func standard(f family, sha256, rsa15 bool) *Suite {
	p := Params{
		Name:                          f.name,
		Canonicalization:              security.ExclusiveC14n,
		Digest:                        security.Sha1Digest,
		Encryption:                    f.encryption,
		SymmetricKeyWrap:              f.keyWrap,
		AsymmetricKeyWrap:             security.RsaOaepKeyWrap,
		SymmetricSignature:            security.HmacSha1Signature,
		AsymmetricSignature:           security.RsaSha1Signature,
		EncryptionKeyDerivationLength: f.encDerivation,
		SignatureKeyDerivationLength:  f.sigDerivation,
		SymmetricKeyLength:            f.keyLength,
		SymmetricKeyLengths:           f.keyLengthRange,
		AsymmetricKeyLengths:          KeyLengthRange{Min: 1024, Max: 4096},
	}
	if sha256 {
		p.Name += "Sha256"
		p.Digest = security.Sha256Digest
		p.SymmetricSignature = security.HmacSha256Signature
		p.AsymmetricSignature = security.RsaSha256Signature
	}
	if rsa15 {
		p.Name += "Rsa15"
		p.AsymmetricKeyWrap = security.Rsa15KeyWrap
	}
	return mustNew(p)
}

// The standard WS-SecurityPolicy suites
var (
	Basic256  = standard(basic256, false, false)
	Basic192  = standard(basic192, false, false)
	Basic128  = standard(basic128, false, false)
	TripleDes = standard(tripleDes, false, false)

	Basic256Rsa15  = standard(basic256, false, true)
	Basic192Rsa15  = standard(basic192, false, true)
	Basic128Rsa15  = standard(basic128, false, true)
	TripleDesRsa15 = standard(tripleDes, false, true)

	Basic256Sha256  = standard(basic256, true, false)
	Basic192Sha256  = standard(basic192, true, false)
	Basic128Sha256  = standard(basic128, true, false)
	TripleDesSha256 = standard(tripleDes, true, false)

	Basic256Sha256Rsa15  = standard(basic256, true, true)
	Basic192Sha256Rsa15  = standard(basic192, true, true)
	Basic128Sha256Rsa15  = standard(basic128, true, true)
	TripleDesSha256Rsa15 = standard(tripleDes, true, true)

	// Default is the suite used when none is configured
	Default = Basic256
)

var all = []*Suite{
	Basic256, Basic192, Basic128, TripleDes,
	Basic256Rsa15, Basic192Rsa15, Basic128Rsa15, TripleDesRsa15,
	Basic256Sha256, Basic192Sha256, Basic128Sha256, TripleDesSha256,
	Basic256Sha256Rsa15, Basic192Sha256Rsa15, Basic128Sha256Rsa15, TripleDesSha256Rsa15,
}

var byName = func() map[string]*Suite {
	m := make(map[string]*Suite, len(all))
	for _, s := range all {
		m[s.Name()] = s
	}
	return m
}()

// Lookup returns the standard suite with the given name
func Lookup(name string) (*Suite, bool) {
	s, ok := byName[name]
	return s, ok
}

// All returns the standard suites in declaration order
func All() []*Suite {
	out := make([]*Suite, len(all))
	copy(out, all)
	return out
}
