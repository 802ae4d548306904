// Package keymaterial turns operator supplied key strings into validated RSA
// keys. A key may be given as full PEM text, as the bare base64 body of the
// key, or as a path to a PEM file.
package keymaterial

import (
	"crypto/rsa"
	"os"
	"strings"

	"github.com/AliyunContainerService/alipay-signature/internal/crypto"
	"github.com/AliyunContainerService/alipay-signature/types"
)

const (
	privateKeyLabel = "RSA PRIVATE KEY"
	publicKeyLabel  = "PUBLIC KEY"
)

// PrivateKey is a validated application private key.
type PrivateKey struct {
	pem string
	key *rsa.PrivateKey
}

// PEM returns the PEM text the key was parsed from.
func (k *PrivateKey) PEM() string { return k.pem }

func (k *PrivateKey) RSA() *rsa.PrivateKey { return k.key }

func (k *PrivateKey) String() string { return "PrivateKey(redacted)" }

// PublicKey is a validated gateway public key.
type PublicKey struct {
	pem string
	key *rsa.PublicKey
}

func (k *PublicKey) PEM() string { return k.pem }

func (k *PublicKey) RSA() *rsa.PublicKey { return k.key }

func (k *PublicKey) String() string { return "PublicKey(redacted)" }

// candidate maps the trimmed input to PEM text worth parsing.
type candidate func(trimmed string) (string, bool)

// candidates returns the input forms in priority order: as-is, wrapped base64
// body, file path.
func candidates(label string) []candidate {
	return []candidate{
		func(s string) (string, bool) { return s, true },
		func(s string) (string, bool) { return crypto.WrapPEM(label, s), true },
		readKeyFile,
	}
}

func readKeyFile(path string) (string, bool) {
	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() {
		return "", false
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", false
	}
	return string(data), true
}

func resolve[K any](raw, label string, parse func([]byte) (K, error)) (string, K, bool) {
	trimmed := strings.TrimSpace(raw)
	for _, c := range candidates(label) {
		text, ok := c(trimmed)
		if !ok {
			continue
		}
		key, err := parse([]byte(text))
		if err == nil {
			return text, key, true
		}
	}
	var zero K
	return "", zero, false
}

// ResolvePrivateKey validates raw as an RSA private key.
func ResolvePrivateKey(raw string) (*PrivateKey, error) {
	text, key, ok := resolve(raw, privateKeyLabel, crypto.ParseRSAPrivateKeyPEM)
	if !ok {
		return nil, types.InvalidKeyMaterial(types.OptionAppPrivateKey)
	}
	return &PrivateKey{pem: text, key: key}, nil
}

// ResolvePublicKey validates raw as an RSA public key.
func ResolvePublicKey(raw string) (*PublicKey, error) {
	text, key, ok := resolve(raw, publicKeyLabel, crypto.ParseRSAPublicKeyPEM)
	if !ok {
		return nil, types.InvalidKeyMaterial(types.OptionAlipayPublicKey)
	}
	return &PublicKey{pem: text, key: key}, nil
}
