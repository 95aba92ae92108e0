package suite

// Description is the JSON view of a suite
type Description struct {
	Name                          string `json:"name"`
	Canonicalization              string `json:"canonicalization"`
	Digest                        string `json:"digest"`
	Encryption                    string `json:"encryption"`
	SymmetricKeyWrap              string `json:"symmetricKeyWrap"`
	AsymmetricKeyWrap             string `json:"asymmetricKeyWrap"`
	SymmetricSignature            string `json:"symmetricSignature"`
	AsymmetricSignature           string `json:"asymmetricSignature"`
	EncryptionKeyDerivationLength int    `json:"encryptionKeyDerivationLength"`
	SignatureKeyDerivationLength  int    `json:"signatureKeyDerivationLength"`
	SymmetricKeyLength            int    `json:"symmetricKeyLength"`
	SymmetricKeyLengthMin         int    `json:"symmetricKeyLengthMin"`
	SymmetricKeyLengthMax         int    `json:"symmetricKeyLengthMax"`
	AsymmetricKeyLengthMin        int    `json:"asymmetricKeyLengthMin"`
	AsymmetricKeyLengthMax        int    `json:"asymmetricKeyLengthMax"`
}

// Describe returns the JSON view of s
func (s *Suite) Describe() Description {
	return Description{
		Name:                          s.p.Name,
		Canonicalization:              s.p.Canonicalization,
		Digest:                        s.p.Digest,
		Encryption:                    s.p.Encryption,
		SymmetricKeyWrap:              s.p.SymmetricKeyWrap,
		AsymmetricKeyWrap:             s.p.AsymmetricKeyWrap,
		SymmetricSignature:            s.p.SymmetricSignature,
		AsymmetricSignature:           s.p.AsymmetricSignature,
		EncryptionKeyDerivationLength: s.p.EncryptionKeyDerivationLength,
		SignatureKeyDerivationLength:  s.p.SignatureKeyDerivationLength,
		SymmetricKeyLength:            s.p.SymmetricKeyLength,
		SymmetricKeyLengthMin:         s.p.SymmetricKeyLengths.Min,
		SymmetricKeyLengthMax:         s.p.SymmetricKeyLengths.Max,
		AsymmetricKeyLengthMin:        s.p.AsymmetricKeyLengths.Min,
		AsymmetricKeyLengthMax:        s.p.AsymmetricKeyLengths.Max,
	}
}
