package sm

import (
	"os"

	"github.com/alibabacloud-go/tea/tea"
	dedicatedkmsopenapi "github.com/aliyun/alibabacloud-dkms-gcs-go-sdk/openapi"
	dkms "github.com/aliyun/alibabacloud-dkms-gcs-go-sdk/sdk"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

const (
	envRegionId         = "ALIBABA_CLOUD_KMS_REGION_ID"
	envInstanceEndpoint = "ALIBABA_CLOUD_KMS_INSTANCE_ENDPOINT"
	envClientKey        = "ALIBABA_CLOUD_KMS_CLIENTKEY_FILEPATH"
	envPassword         = "ALIBABA_CLOUD_KMS_PASSWORD"
	envCAFile           = "ALIBABA_CLOUD_KMS_CA_FILEPATH"
	envKeyId            = "ALIBABA_CLOUD_KMS_KEY_ID"
	envKeyVersionId     = "ALIBABA_CLOUD_KMS_KEY_VERSION_ID"

	defaultRegionId = "cn-hangzhou"
)

// RSA key specs able to back the application private key.
var signingKeySpecs = map[string]bool{
	"RSA_2048": true,
	"RSA_3072": true,
	"RSA_4096": true,
}

func GetKMSRegionId() string {
	if v := os.Getenv(envRegionId); v != "" {
		return v
	}
	return defaultRegionId
}

func GetInstanceEndpoint() string { return os.Getenv(envInstanceEndpoint) }

func GetClientKey() string { return os.Getenv(envClientKey) }

func GetKMSPassword() string { return os.Getenv(envPassword) }

func GetKMSCAFile() string { return os.Getenv(envCAFile) }

func GetKeyId() string { return os.Getenv(envKeyId) }

func GetKeyVersionId() string { return os.Getenv(envKeyVersionId) }

// GetDkmsClientByClientKeyFile connects to a dedicated KMS instance with an
// application access point client key.
func GetDkmsClientByClientKeyFile(clientKey, password, endpoint string) (*dkms.Client, error) {
	klog.V(4).InfoS("creating dkms client", "endpoint", endpoint)
	config := &dedicatedkmsopenapi.Config{
		Protocol:      tea.String("https"),
		ClientKeyFile: tea.String(clientKey),
		Password:      tea.String(password),
		Endpoint:      tea.String(endpoint),
	}
	client, err := dkms.NewClient(config)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to create dkms client for %s", endpoint)
	}
	return client, nil
}

// CheckSigningKey reports whether a KMS key can produce RSA PKCS#1 v1.5
// signatures for the gateway.
func CheckSigningKey(keySpec, keyUsage string) error {
	if !signingKeySpecs[keySpec] {
		return errors.Errorf("unsupported key spec %s, an RSA key is required", keySpec)
	}
	if keyUsage != "" && keyUsage != "SIGN/VERIFY" {
		return errors.Errorf("unsupported key usage %s, SIGN/VERIFY is required", keyUsage)
	}
	return nil
}
