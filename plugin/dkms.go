package plugin

import (
	"crypto/rsa"
	"os"

	openapi "github.com/alibabacloud-go/darabonba-openapi/v2/client"
	kms "github.com/alibabacloud-go/kms-20160120/v3/client"
	"github.com/alibabacloud-go/tea/tea"
	dedicatedkmsopenapiutil "github.com/aliyun/alibabacloud-dkms-gcs-go-sdk/openapi-util"
	dkms "github.com/aliyun/alibabacloud-dkms-gcs-go-sdk/sdk"
	"github.com/pkg/errors"

	"github.com/AliyunContainerService/alipay-signature/internal/crypto"
	"github.com/AliyunContainerService/alipay-signature/internal/sm"
	"github.com/AliyunContainerService/alipay-signature/types"
)

type DKMSClientImpl struct {
	client    *dkms.Client
	kmsClient *kms.Client
}

func NewDKMSClientImpl(clientKey, kmsPassword, instanceEndpoint string, config openapi.Config) (*DKMSClientImpl, error) {
	dkmsClient, err := sm.GetDkmsClientByClientKeyFile(clientKey, kmsPassword, instanceEndpoint)
	if err != nil {
		return nil, err
	}
	kmsClient, err := kms.NewClient(&config)
	if err != nil {
		return nil, err
	}
	return &DKMSClientImpl{
		client:    dkmsClient,
		kmsClient: kmsClient,
	}, nil
}

// runtimeOptions pins the instance CA when one is configured.
func runtimeOptions() (*dedicatedkmsopenapiutil.RuntimeOptions, error) {
	caFilePath := sm.GetKMSCAFile()
	if caFilePath == "" {
		return &dedicatedkmsopenapiutil.RuntimeOptions{
			IgnoreSSL: tea.Bool(true),
		}, nil
	}
	certPEMBlock, err := os.ReadFile(caFilePath)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read ca file %s", caFilePath)
	}
	certs, err := crypto.ParseCertificates(certPEMBlock)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to parse certificate %s", caFilePath)
	}
	if !certs[0].IsCA {
		return nil, errors.Errorf("the certificate in %s is not a CA certificate", caFilePath)
	}
	return &dedicatedkmsopenapiutil.RuntimeOptions{
		Verify: tea.String(string(certPEMBlock)),
	}, nil
}

// GenerateSignature lets the instance hash the raw payload itself.
func (d *DKMSClientImpl) GenerateSignature(req *types.SignRequest) ([]byte, error) {
	signRequest := &dkms.SignRequest{
		KeyId:       tea.String(req.KeyId),
		Message:     req.Payload,
		MessageType: tea.String(req.MessageType),
		Algorithm:   tea.String(req.Algorithm),
	}
	opts, err := runtimeOptions()
	if err != nil {
		return nil, err
	}
	sigResp, err := d.client.SignWithOptions(signRequest, opts)
	if err != nil {
		return nil, errors.Wrap(err, "failed to sign payload")
	}
	return sigResp.Signature, nil
}

func (d *DKMSClientImpl) GetPublicKey(keyId, _ string) (*rsa.PublicKey, error) {
	request := &dkms.GetPublicKeyRequest{
		KeyId: tea.String(keyId),
	}
	response, err := d.client.GetPublicKey(request)
	if err != nil {
		return nil, err
	}
	if response.PublicKey == nil {
		return nil, errors.Errorf("failed to get public key of %s", keyId)
	}
	return crypto.ParseRSAPublicKeyPEM([]byte(*response.PublicKey))
}

func (d *DKMSClientImpl) GetKMSClient() *kms.Client {
	return d.kmsClient
}
