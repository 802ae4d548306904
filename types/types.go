package types

import (
	"crypto/rsa"

	kms "github.com/alibabacloud-go/kms-20160120/v3/client"
)

const (
	OptionAppID           = "appid"
	OptionAppPrivateKey   = "app_private_key"
	OptionAlipayPublicKey = "alipay_public_key"
	OptionSignType        = "sign_type"
)

// FieldSigner signs and verifies gateway field sets.
type FieldSigner interface {
	GenerateSignature(fields map[string]string) (string, error)
	VerifySignature(signature string, fields map[string]string) bool
}

// ClientProvider is a remote RSA signing backend holding the application private key.
type ClientProvider interface {
	GenerateSignature(req *SignRequest) ([]byte, error)
	GetPublicKey(keyId, keyVersionId string) (*rsa.PublicKey, error)
	GetKMSClient() *kms.Client
}

type SignRequest struct {
	KeyId        string
	KeyVersionId string
	MessageType  string
	Payload      []byte
	Algorithm    string
}
