package plugin

import (
	"context"
	"encoding/base64"
	"strings"

	openapi "github.com/alibabacloud-go/darabonba-openapi/v2/client"
	kms "github.com/alibabacloud-go/kms-20160120/v3/client"
	"github.com/alibabacloud-go/tea/tea"
	"github.com/pkg/errors"

	"github.com/AliyunContainerService/ack-ram-tool/pkg/credentials/provider"
	"github.com/AliyunContainerService/alipay-signature/internal/crypto"
	"github.com/AliyunContainerService/alipay-signature/internal/log"
	"github.com/AliyunContainerService/alipay-signature/internal/sm"
	"github.com/AliyunContainerService/alipay-signature/keymaterial"
	"github.com/AliyunContainerService/alipay-signature/signature"
	"github.com/AliyunContainerService/alipay-signature/types"
)

const (
	// KMSAlgorithm is the KMS name of the RSA2 sign_type primitive.
	KMSAlgorithm = "RSA_PKCS1_SHA_256"
	suffix       = "cryptoservice.kms.aliyuncs.com"
)

// AlipayKMSSigner signs gateway requests with an application private key held
// in KMS. Canonicalization stays local; replies are verified locally with the
// gateway public key. Only the RSA2 sign_type is available.
type AlipayKMSSigner struct {
	clientProvider  types.ClientProvider
	keyId           string
	keyVersionId    string
	alipayPublicKey *keymaterial.PublicKey
}

// credentialsProvider returns the default Alibaba Cloud credential chain.
var credentialsProvider = func() provider.CredentialsProvider {
	return provider.NewDefaultChainProvider(provider.DefaultChainProviderOptions{})
}

// NewAlipayKMSSigner builds a signer from the KMS environment. A dedicated
// instance is used when a client key and password are configured.
func NewAlipayKMSSigner(alipayPublicKey *keymaterial.PublicKey) (*AlipayKMSSigner, error) {
	var clientProvider types.ClientProvider
	var err error
	instanceEndpoint := sm.GetInstanceEndpoint()
	if instanceEndpoint == "" {
		return nil, errors.New("env ALIBABA_CLOUD_KMS_INSTANCE_ENDPOINT MUST be set for kms instance endpoint")
	}
	cp := credentialsProvider()
	if _, err := cp.Credentials(context.Background()); err != nil {
		return nil, errors.Wrap(err, "failed to resolve alibaba cloud credential")
	}
	config := openapi.Config{
		RegionId:   tea.String(sm.GetKMSRegionId()),
		Credential: provider.NewCredentialForV2SDK(cp, provider.CredentialForV2SDKOptions{}),
	}
	clientKey := sm.GetClientKey()
	kmsPassword := sm.GetKMSPassword()
	if clientKey != "" && kmsPassword != "" {
		clientProvider, err = NewDKMSClientImpl(clientKey, kmsPassword, instanceEndpoint, config)
		if err != nil {
			return nil, errors.Wrap(err, "new dkms client failed")
		}
	} else {
		if strings.Contains(instanceEndpoint, suffix) {
			config.Ca = tea.String(sm.GetKMSCAFile())
		}
		clientProvider, err = NewKMSClientImpl(config)
		if err != nil {
			return nil, errors.Wrap(err, "new kms client failed")
		}
	}

	p, err := NewAlipayKMSSignerWithProvider(clientProvider, sm.GetKeyId(), sm.GetKeyVersionId(), alipayPublicKey)
	if err != nil {
		return nil, err
	}
	if err := p.DescribeKey(); err != nil {
		return nil, err
	}
	return p, nil
}

func NewAlipayKMSSignerWithProvider(clientProvider types.ClientProvider, keyId, keyVersionId string, alipayPublicKey *keymaterial.PublicKey) (*AlipayKMSSigner, error) {
	if clientProvider == nil {
		return nil, errors.New("kms client provider is not configured")
	}
	if keyId == "" {
		return nil, types.MissingOption(types.OptionAppPrivateKey)
	}
	if alipayPublicKey == nil {
		return nil, types.MissingOption(types.OptionAlipayPublicKey)
	}
	return &AlipayKMSSigner{
		clientProvider:  clientProvider,
		keyId:           keyId,
		keyVersionId:    keyVersionId,
		alipayPublicKey: alipayPublicKey,
	}, nil
}

// DescribeKey checks that the configured KMS key is an RSA signing key.
func (p *AlipayKMSSigner) DescribeKey() error {
	kmsClient := p.clientProvider.GetKMSClient()
	if kmsClient == nil {
		return errors.New("kms client is not configured")
	}
	response, err := kmsClient.DescribeKey(&kms.DescribeKeyRequest{
		KeyId: tea.String(p.keyId),
	})
	if err != nil {
		return err
	}
	if response.Body == nil || response.Body.KeyMetadata == nil || response.Body.KeyMetadata.KeySpec == nil {
		return errors.New("failed to describe key")
	}
	metadata := response.Body.KeyMetadata
	log.Logger.Infof("alibaba cloud kms key %s spec is %s", p.keyId, tea.StringValue(metadata.KeySpec))
	return sm.CheckSigningKey(tea.StringValue(metadata.KeySpec), tea.StringValue(metadata.KeyUsage))
}

func (p *AlipayKMSSigner) Algorithm() signature.Algorithm { return signature.RSA2 }

func (p *AlipayKMSSigner) GenerateSignature(fields map[string]string) (string, error) {
	sig, err := p.clientProvider.GenerateSignature(&types.SignRequest{
		KeyId:        p.keyId,
		KeyVersionId: p.keyVersionId,
		MessageType:  "RAW",
		Payload:      []byte(signature.Canonicalize(fields)),
		Algorithm:    KMSAlgorithm,
	})
	if err != nil {
		log.Logger.Errorf("Failed to sign with key %s, err %v", p.keyId, err)
		return "", errors.Wrapf(types.ErrSigningFailure, "kms key %s: %v", p.keyId, err)
	}
	if len(sig) == 0 {
		return "", errors.Wrapf(types.ErrSigningFailure, "kms key %s returned an empty signature", p.keyId)
	}
	return base64.StdEncoding.EncodeToString(sig), nil
}

func (p *AlipayKMSSigner) VerifySignature(sig string, fields map[string]string) bool {
	return signature.Verify(sig, fields, p.alipayPublicKey, signature.RSA2)
}

// AppPublicKey returns the PEM public key of the KMS signing key, the value
// uploaded to the gateway console as the application public key.
func (p *AlipayKMSSigner) AppPublicKey() (*keymaterial.PublicKey, error) {
	pub, err := p.clientProvider.GetPublicKey(p.keyId, p.keyVersionId)
	if err != nil {
		log.Logger.Errorf("Failed to get the public key from the given kms key %s, err %v", p.keyId, err)
		return nil, err
	}
	text, err := crypto.EncodePublicKeyPEM(pub)
	if err != nil {
		return nil, err
	}
	return keymaterial.ResolvePublicKey(text)
}

var _ types.FieldSigner = (*AlipayKMSSigner)(nil)
