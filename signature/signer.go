package signature

import (
	"github.com/AliyunContainerService/alipay-signature/internal/log"
	"github.com/AliyunContainerService/alipay-signature/keymaterial"
	"github.com/AliyunContainerService/alipay-signature/types"
)

// Signer signs outbound requests with the application private key and
// verifies gateway replies with the gateway public key.
type Signer struct {
	privateKey *keymaterial.PrivateKey
	publicKey  *keymaterial.PublicKey
	algorithm  Algorithm
}

func NewSigner(privateKey *keymaterial.PrivateKey, publicKey *keymaterial.PublicKey, algorithm Algorithm) (*Signer, error) {
	if privateKey == nil {
		return nil, types.MissingOption(types.OptionAppPrivateKey)
	}
	if publicKey == nil {
		return nil, types.MissingOption(types.OptionAlipayPublicKey)
	}
	if _, ok := algorithm.Hash(); !ok {
		return nil, types.UnsupportedAlgorithm(string(algorithm))
	}
	return &Signer{
		privateKey: privateKey,
		publicKey:  publicKey,
		algorithm:  algorithm,
	}, nil
}

func (s *Signer) Algorithm() Algorithm { return s.algorithm }

func (s *Signer) GenerateSignature(fields map[string]string) (string, error) {
	sig, err := Generate(fields, s.privateKey, s.algorithm)
	if err != nil {
		log.Logger.Errorf("Failed to sign %d fields with sign type %s, err %v", len(fields), s.algorithm, err)
		return "", err
	}
	return sig, nil
}

func (s *Signer) VerifySignature(signature string, fields map[string]string) bool {
	if !Verify(signature, fields, s.publicKey, s.algorithm) {
		log.Logger.Debugf("Signature mismatch over %d fields with sign type %s", len(fields), s.algorithm)
		return false
	}
	return true
}

var _ types.FieldSigner = (*Signer)(nil)
