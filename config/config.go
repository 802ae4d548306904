package config

import (
	"os"

	"github.com/AliyunContainerService/alipay-signature/keymaterial"
	"github.com/AliyunContainerService/alipay-signature/signature"
	"github.com/AliyunContainerService/alipay-signature/types"
)

const (
	EnvAppID           = "ALIPAY_APPID"
	EnvAppPrivateKey   = "ALIPAY_APP_PRIVATE_KEY"
	EnvAlipayPublicKey = "ALIPAY_PUBLIC_KEY"
	EnvSignType        = "ALIPAY_SIGN_TYPE"
)

// Options holds raw, unvalidated gateway settings. Keys may be PEM text, a
// bare base64 body or a file path.
type Options struct {
	AppID           string
	AppPrivateKey   string
	AlipayPublicKey string
	SignType        string
}

// Configuration is the validated form of Options.
type Configuration struct {
	AppID           string
	AppPrivateKey   *keymaterial.PrivateKey
	AlipayPublicKey *keymaterial.PublicKey
	SignType        signature.Algorithm
}

func FromEnv() Options {
	return Options{
		AppID:           os.Getenv(EnvAppID),
		AppPrivateKey:   os.Getenv(EnvAppPrivateKey),
		AlipayPublicKey: os.Getenv(EnvAlipayPublicKey),
		SignType:        os.Getenv(EnvSignType),
	}
}

// Resolve validates every option before any key is used. Missing values are
// reported ahead of malformed ones.
func (o Options) Resolve() (*Configuration, error) {
	required := []struct {
		name  string
		value string
	}{
		{types.OptionAppID, o.AppID},
		{types.OptionAppPrivateKey, o.AppPrivateKey},
		{types.OptionAlipayPublicKey, o.AlipayPublicKey},
	}
	for _, r := range required {
		if r.value == "" {
			return nil, types.MissingOption(r.name)
		}
	}

	signType := signature.DefaultAlgorithm
	if o.SignType != "" {
		alg, err := signature.ParseAlgorithm(o.SignType)
		if err != nil {
			return nil, err
		}
		signType = alg
	}

	privateKey, err := keymaterial.ResolvePrivateKey(o.AppPrivateKey)
	if err != nil {
		return nil, err
	}
	publicKey, err := keymaterial.ResolvePublicKey(o.AlipayPublicKey)
	if err != nil {
		return nil, err
	}

	return &Configuration{
		AppID:           o.AppID,
		AppPrivateKey:   privateKey,
		AlipayPublicKey: publicKey,
		SignType:        signType,
	}, nil
}

// Signer builds a local signer from the resolved keys.
func (c *Configuration) Signer() (*signature.Signer, error) {
	return signature.NewSigner(c.AppPrivateKey, c.AlipayPublicKey, c.SignType)
}
