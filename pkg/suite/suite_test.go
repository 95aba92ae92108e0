package suite

import (
	"crypto/rand"
	"crypto/rsa"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sirosfoundation/go-wssec/pkg/security"
	"github.com/sirosfoundation/go-wssec/pkg/token"
)

func symmetricToken(t *testing.T, bytes int) *token.GenericToken {
	t.Helper()
	tok, err := token.NewSymmetricToken("", make([]byte, bytes), time.Now(), time.Time{})
	require.NoError(t, err)
	return tok
}

func rsaKey(t *testing.T) *token.RSAKey {
	t.Helper()
	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	return token.NewRSAPrivateKey(priv)
}

// hashOnlyKey supports nothing but a single algorithm
type hashOnlyKey struct{ algorithm string }

func (k hashOnlyKey) IsSupportedAlgorithm(uri string) bool { return uri == k.algorithm }
func (k hashOnlyKey) KeySize() int                         { return 0 }

func TestStandardSuites(t *testing.T) {
	tests := []struct {
		name          string
		suite         *Suite
		encryption    string
		keyWrap       string
		asymKeyWrap   string
		digest        string
		symSignature  string
		encDerivation int
		sigDerivation int
	}{
		{"Basic256", Basic256, security.Aes256Encryption, security.Aes256KeyWrap, security.RsaOaepKeyWrap, security.Sha1Digest, security.HmacSha1Signature, 256, 192},
		{"Basic192", Basic192, security.Aes192Encryption, security.Aes192KeyWrap, security.RsaOaepKeyWrap, security.Sha1Digest, security.HmacSha1Signature, 192, 192},
		{"Basic128", Basic128, security.Aes128Encryption, security.Aes128KeyWrap, security.RsaOaepKeyWrap, security.Sha1Digest, security.HmacSha1Signature, 128, 128},
		{"TripleDes", TripleDes, security.TripleDesEncryption, security.TripleDesKeyWrap, security.RsaOaepKeyWrap, security.Sha1Digest, security.HmacSha1Signature, 192, 192},
		{"Basic256Rsa15", Basic256Rsa15, security.Aes256Encryption, security.Aes256KeyWrap, security.Rsa15KeyWrap, security.Sha1Digest, security.HmacSha1Signature, 256, 192},
		{"Basic128Sha256", Basic128Sha256, security.Aes128Encryption, security.Aes128KeyWrap, security.RsaOaepKeyWrap, security.Sha256Digest, security.HmacSha256Signature, 128, 128},
		{"TripleDesSha256Rsa15", TripleDesSha256Rsa15, security.TripleDesEncryption, security.TripleDesKeyWrap, security.Rsa15KeyWrap, security.Sha256Digest, security.HmacSha256Signature, 192, 192},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := tt.suite
			assert.Equal(t, tt.name, s.Name())
			assert.Equal(t, security.ExclusiveC14n, s.DefaultCanonicalizationAlgorithm())
			assert.Equal(t, tt.digest, s.DefaultDigestAlgorithm())
			assert.Equal(t, tt.encryption, s.DefaultEncryptionAlgorithm())
			assert.Equal(t, tt.keyWrap, s.DefaultSymmetricKeyWrapAlgorithm())
			assert.Equal(t, tt.asymKeyWrap, s.DefaultAsymmetricKeyWrapAlgorithm())
			assert.Equal(t, tt.symSignature, s.DefaultSymmetricSignatureAlgorithm())
			assert.Equal(t, tt.encDerivation, s.DefaultEncryptionKeyDerivationLength())
			assert.Equal(t, tt.sigDerivation, s.DefaultSignatureKeyDerivationLength())

			assert.True(t, s.IsEncryptionAlgorithmSupported(tt.encryption))
			assert.False(t, s.IsEncryptionAlgorithmSupported("urn:other"))
			assert.True(t, s.IsDigestAlgorithmSupported(tt.digest))
			assert.True(t, s.IsEncryptionKeyDerivationAlgorithmSupported(security.Psha1KeyDerivation))
			assert.True(t, s.IsSignatureKeyDerivationAlgorithmSupported(security.Psha1KeyDerivationDec2005))
			assert.False(t, s.IsSignatureKeyDerivationAlgorithmSupported(security.HkdfKeyDerivation))
		})
	}
}

func TestLookup(t *testing.T) {
	assert.Len(t, All(), 16)
	for _, s := range All() {
		got, ok := Lookup(s.Name())
		require.True(t, ok, s.Name())
		assert.Same(t, s, got)
	}

	_, ok := Lookup("Basic512")
	assert.False(t, ok)
	assert.Same(t, Basic256, Default)
}

func TestSymmetricKeyLengths(t *testing.T) {
	tests := []struct {
		name  string
		suite *Suite
		bits  int
		want  bool
	}{
		{"Basic256 256", Basic256, 256, true},
		{"Basic256 255", Basic256, 255, false},
		{"Basic256 257", Basic256, 257, false},
		{"Basic256 128", Basic256, 128, false},
		{"Basic192 192", Basic192Sha256, 192, true},
		{"Basic192 256", Basic192, 256, true},
		{"Basic192 191", Basic192, 191, false},
		{"Basic128 127", Basic128, 127, false},
		{"Basic128 128", Basic128, 128, true},
		{"Basic128 200", Basic128Rsa15, 200, true},
		{"Basic128 256", Basic128, 256, true},
		{"Basic128 257", Basic128, 257, false},
		{"TripleDes 192", TripleDes, 192, true},
		{"TripleDes 128", TripleDes, 128, false},
		{"TripleDes 256", TripleDesSha256, 256, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.suite.IsSymmetricKeyLengthSupported(tt.bits))
		})
	}

	for bits := 128; bits <= 256; bits++ {
		assert.True(t, Basic128.IsSymmetricKeyLengthSupported(bits), "Basic128 must accept %d", bits)
	}
}

func TestAsymmetricKeyLengths(t *testing.T) {
	for _, s := range All() {
		assert.False(t, s.IsAsymmetricKeyLengthSupported(1023), s.Name())
		assert.True(t, s.IsAsymmetricKeyLengthSupported(1024), s.Name())
		assert.True(t, s.IsAsymmetricKeyLengthSupported(4096), s.Name())
		assert.False(t, s.IsAsymmetricKeyLengthSupported(4097), s.Name())
	}
}

func TestSignatureAlgorithmAndKey(t *testing.T) {
	sym := symmetricToken(t, 32)
	alg, key, err := Basic256.SignatureAlgorithmAndKey(sym)
	require.NoError(t, err)
	assert.Equal(t, security.HmacSha1Signature, alg)
	assert.Same(t, sym.SecurityKeys()[0], key)

	rk := rsaKey(t)
	rsaTok, err := token.NewRSAToken("", rk, time.Now(), time.Time{})
	require.NoError(t, err)
	alg, key, err = Basic256Sha256.SignatureAlgorithmAndKey(rsaTok)
	require.NoError(t, err)
	assert.Equal(t, security.RsaSha256Signature, alg)
	assert.Same(t, rk, key)
}

func TestSignatureAlgorithmAndKey_SymmetricPreferred(t *testing.T) {
	rk := rsaKey(t)
	sk, err := token.NewSymmetricKey(make([]byte, 16))
	require.NoError(t, err)

	// the RSA key comes first but a symmetric match anywhere wins
	tok, err := token.NewGenericToken("", []token.SecurityKey{rk, sk}, time.Now(), time.Time{})
	require.NoError(t, err)

	alg, key, err := Basic128.SignatureAlgorithmAndKey(tok)
	require.NoError(t, err)
	assert.Equal(t, security.HmacSha1Signature, alg)
	assert.Same(t, sk, key)
}

func TestSignatureAlgorithmAndKey_Deterministic(t *testing.T) {
	sk1, _ := token.NewSymmetricKey(make([]byte, 16))
	sk2, _ := token.NewSymmetricKey(make([]byte, 32))
	tok, err := token.NewGenericToken("", []token.SecurityKey{sk1, sk2}, time.Now(), time.Time{})
	require.NoError(t, err)

	firstAlg, firstKey, err := Basic256.SignatureAlgorithmAndKey(tok)
	require.NoError(t, err)
	for i := 0; i < 100; i++ {
		alg, key, err := Basic256.SignatureAlgorithmAndKey(tok)
		require.NoError(t, err)
		assert.Equal(t, firstAlg, alg)
		assert.Same(t, firstKey, key)
	}
	assert.Same(t, sk1, firstKey)
}

func TestSignatureAlgorithmAndKey_Errors(t *testing.T) {
	empty := &emptyToken{}
	_, _, err := Basic256.SignatureAlgorithmAndKey(empty)
	assert.ErrorIs(t, err, ErrNoSigningKeys)

	tok, err := token.NewGenericToken("", []token.SecurityKey{hashOnlyKey{algorithm: "urn:x"}}, time.Now(), time.Time{})
	require.NoError(t, err)
	_, _, err = Basic256.SignatureAlgorithmAndKey(tok)
	assert.ErrorIs(t, err, ErrNoSupportedKey)
}

type emptyToken struct{}

func (emptyToken) ID() string                        { return "empty" }
func (emptyToken) SecurityKeys() []token.SecurityKey { return nil }
func (emptyToken) ValidFrom() time.Time              { return time.Time{} }
func (emptyToken) ValidTo() time.Time                { return time.Time{} }

func TestKeyWrapAlgorithm(t *testing.T) {
	tests := []struct {
		name  string
		suite *Suite
		tok   token.SecurityToken
		want  string
	}{
		{name: "matching aes key", suite: Basic256, tok: symmetricToken(t, 32), want: security.Aes256KeyWrap},
		{name: "wrong aes size falls back", suite: Basic256, tok: symmetricToken(t, 16), want: security.RsaOaepKeyWrap},
		{name: "rsa15 fallback", suite: Basic128Rsa15, tok: symmetricToken(t, 32), want: security.Rsa15KeyWrap},
		{name: "tripledes", suite: TripleDes, tok: symmetricToken(t, 24), want: security.TripleDesKeyWrap},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.suite.KeyWrapAlgorithm(tt.tok))
		})
	}
}

func TestKeyDerivationAlgorithm(t *testing.T) {
	alg, err := KeyDerivationAlgorithm(security.SecureConversationFeb2005)
	require.NoError(t, err)
	assert.Equal(t, security.Psha1KeyDerivation, alg)

	alg, err = KeyDerivationAlgorithm(security.SecureConversationDec2005)
	require.NoError(t, err)
	assert.Equal(t, security.Psha1KeyDerivationDec2005, alg)

	_, err = KeyDerivationAlgorithm(0)
	assert.ErrorIs(t, err, ErrUnsupportedVersion)
}

func TestKeyDerivationLength(t *testing.T) {
	sym := symmetricToken(t, 32)

	enc, err := Basic256.EncryptionKeyDerivationLength(sym, security.SecureConversationDec2005)
	require.NoError(t, err)
	assert.Equal(t, 256, enc)

	sig, err := Basic256.SignatureKeyDerivationLength(sym, security.SecureConversationFeb2005)
	require.NoError(t, err)
	assert.Equal(t, 192, sig)

	rsaTok, err := token.NewRSAToken("", rsaKey(t), time.Now(), time.Time{})
	require.NoError(t, err)
	enc, err = Basic256.EncryptionKeyDerivationLength(rsaTok, security.SecureConversationDec2005)
	require.NoError(t, err)
	assert.Zero(t, enc, "tokens that cannot derive report 0")

	// a key that only knows the Feb2005 algorithm derives under Feb2005 only
	feb, err := token.NewGenericToken("", []token.SecurityKey{hashOnlyKey{algorithm: security.Psha1KeyDerivation}}, time.Now(), time.Time{})
	require.NoError(t, err)
	sig, err = Basic128.SignatureKeyDerivationLength(feb, security.SecureConversationFeb2005)
	require.NoError(t, err)
	assert.Equal(t, 128, sig)
	sig, err = Basic128.SignatureKeyDerivationLength(feb, security.SecureConversationDec2005)
	require.NoError(t, err)
	assert.Zero(t, sig)
}

// oddSuite overrides the derivation lengths of an otherwise valid suite
type oddSuite struct {
	*Suite
	enc, sig int
}

func (s oddSuite) DefaultEncryptionKeyDerivationLength() int { return s.enc }
func (s oddSuite) DefaultSignatureKeyDerivationLength() int  { return s.sig }

func TestKeyDerivationLength_MustBeMultipleOf8(t *testing.T) {
	sym := symmetricToken(t, 32)
	s := oddSuite{Suite: Basic256, enc: 100, sig: 192}

	_, err := EncryptionKeyDerivationLength(s, sym, security.SecureConversationDec2005)
	assert.ErrorIs(t, err, ErrInvalidDerivationLength)

	sig, err := SignatureKeyDerivationLength(s, sym, security.SecureConversationDec2005)
	require.NoError(t, err)
	assert.Equal(t, 192, sig)

	s = oddSuite{Suite: Basic256, enc: 256, sig: 7}
	_, err = SignatureKeyDerivationLength(s, sym, security.SecureConversationDec2005)
	assert.ErrorIs(t, err, ErrInvalidDerivationLength)
}

func TestNew(t *testing.T) {
	valid := Params{
		Name:                          "Custom",
		Digest:                        security.Sha256Digest,
		Encryption:                    security.Aes256Encryption,
		SymmetricKeyWrap:              security.Aes256KeyWrap,
		AsymmetricKeyWrap:             security.RsaOaepKeyWrap,
		SymmetricSignature:            security.HmacSha256Signature,
		AsymmetricSignature:           security.RsaSha256Signature,
		EncryptionKeyDerivationLength: 256,
		SignatureKeyDerivationLength:  256,
		SymmetricKeyLength:            256,
		SymmetricKeyLengths:           KeyLengthRange{Min: 256, Max: 512},
	}

	s, err := New(valid)
	require.NoError(t, err)
	assert.Equal(t, security.ExclusiveC14n, s.DefaultCanonicalizationAlgorithm())
	assert.Equal(t, KeyLengthRange{Min: 1024, Max: 4096}, s.AsymmetricKeyLengths())
	assert.True(t, s.IsSymmetricKeyLengthSupported(512))

	tests := []struct {
		name    string
		mutate  func(*Params)
		wantErr error
	}{
		{name: "derivation not multiple of 8", mutate: func(p *Params) { p.SignatureKeyDerivationLength = 100 }, wantErr: ErrInvalidDerivationLength},
		{name: "zero derivation", mutate: func(p *Params) { p.EncryptionKeyDerivationLength = 0 }, wantErr: ErrInvalidDerivationLength},
		{name: "missing name", mutate: func(p *Params) { p.Name = "" }, wantErr: ErrInvalidSuite},
		{name: "missing digest", mutate: func(p *Params) { p.Digest = "" }, wantErr: ErrInvalidSuite},
		{name: "empty range", mutate: func(p *Params) { p.SymmetricKeyLengths = KeyLengthRange{Min: 10, Max: 1} }, wantErr: ErrInvalidSuite},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := valid
			tt.mutate(&p)
			_, err := New(p)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestCheckKeySize(t *testing.T) {
	sk, _ := token.NewSymmetricKey(make([]byte, 16))
	assert.ErrorIs(t, CheckKeySize(Basic256, sk), ErrUnacceptableKeySize)
	assert.NoError(t, CheckKeySize(Basic128, sk))
	assert.NoError(t, CheckKeySize(Basic256, rsaKey(t)))
}

func TestDescribe(t *testing.T) {
	d := Basic192Sha256Rsa15.Describe()
	assert.Equal(t, "Basic192Sha256Rsa15", d.Name)
	assert.Equal(t, security.Rsa15KeyWrap, d.AsymmetricKeyWrap)
	assert.Equal(t, 192, d.SymmetricKeyLengthMin)
	assert.Equal(t, 256, d.SymmetricKeyLengthMax)
}
