package plugin

import (
	"crypto/rsa"
	"crypto/sha256"
	"encoding/base64"

	openapi "github.com/alibabacloud-go/darabonba-openapi/v2/client"
	kms "github.com/alibabacloud-go/kms-20160120/v3/client"
	"github.com/alibabacloud-go/tea/tea"
	"github.com/pkg/errors"

	"github.com/AliyunContainerService/alipay-signature/internal/crypto"
	"github.com/AliyunContainerService/alipay-signature/types"
)

type KMSClientImpl struct {
	client *kms.Client
}

func NewKMSClientImpl(config openapi.Config) (*KMSClientImpl, error) {
	kmsClient, err := kms.NewClient(&config)
	if err != nil {
		return nil, err
	}
	return &KMSClientImpl{
		client: kmsClient,
	}, nil
}

// GenerateSignature signs the SHA-256 digest of the payload; the shared KMS
// gateway only accepts digests.
func (k *KMSClientImpl) GenerateSignature(req *types.SignRequest) ([]byte, error) {
	digest := sha256.Sum256(req.Payload)
	resp, err := k.client.AsymmetricSign(&kms.AsymmetricSignRequest{
		Algorithm:    tea.String(req.Algorithm),
		Digest:       tea.String(base64.StdEncoding.EncodeToString(digest[:])),
		KeyId:        tea.String(req.KeyId),
		KeyVersionId: tea.String(req.KeyVersionId),
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to sign payload")
	}
	return decodeSignature(resp, req.KeyId)
}

// decodeSignature extracts the raw signature bytes from the base64 Value of
// an AsymmetricSign response.
func decodeSignature(resp *kms.AsymmetricSignResponse, keyId string) ([]byte, error) {
	if resp == nil || resp.Body == nil {
		return nil, errors.Errorf("failed to sign with key %s, resp body is nil", keyId)
	}
	sig, err := base64.StdEncoding.DecodeString(tea.StringValue(resp.Body.Value))
	if err != nil {
		return nil, errors.Wrapf(err, "failed to decode signature from key %s", keyId)
	}
	if len(sig) == 0 {
		return nil, errors.Errorf("key %s returned an empty signature", keyId)
	}
	return sig, nil
}

func (k *KMSClientImpl) GetPublicKey(keyId, keyVersionId string) (*rsa.PublicKey, error) {
	resp, err := k.client.GetPublicKey(&kms.GetPublicKeyRequest{
		KeyId:        tea.String(keyId),
		KeyVersionId: tea.String(keyVersionId),
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to get public key")
	}
	if resp == nil || resp.Body == nil || resp.Body.PublicKey == nil {
		return nil, errors.New("failed to get public key")
	}
	return crypto.ParseRSAPublicKeyPEM([]byte(*resp.Body.PublicKey))
}

func (k *KMSClientImpl) GetKMSClient() *kms.Client {
	return k.client
}
