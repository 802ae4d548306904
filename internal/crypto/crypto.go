package crypto

import (
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"strings"

	"github.com/pkg/errors"
)

// LineWidth is the PEM body width used when wrapping a bare base64 key.
const LineWidth = 64

const (
	blockRSAPrivateKey = "RSA PRIVATE KEY"
	blockPrivateKey    = "PRIVATE KEY"
	blockPublicKey     = "PUBLIC KEY"
	blockRSAPublicKey  = "RSA PUBLIC KEY"
	blockCertificate   = "CERTIFICATE"
)

// WrapPEM places body between BEGIN/END markers for label, hard-wrapping every
// line of body at LineWidth characters. Existing line breaks are kept.
func WrapPEM(label, body string) string {
	var b strings.Builder
	b.WriteString("-----BEGIN " + label + "-----\n")
	for i, line := range strings.Split(body, "\n") {
		if i > 0 {
			b.WriteByte('\n')
		}
		for len(line) > LineWidth {
			b.WriteString(line[:LineWidth])
			b.WriteByte('\n')
			line = line[LineWidth:]
		}
		b.WriteString(line)
	}
	b.WriteString("\n-----END " + label + "-----")
	return b.String()
}

// ParseRSAPrivateKeyPEM accepts PKCS#1 and PKCS#8 encoded RSA private keys.
func ParseRSAPrivateKeyPEM(data []byte) (*rsa.PrivateKey, error) {
	block, _ := pem.Decode(data)
	if block == nil {
		return nil, errors.New("no PEM block found")
	}
	switch block.Type {
	case blockRSAPrivateKey:
		// Bare PKCS#8 bodies end up under the PKCS#1 label when wrapped.
		key, err := x509.ParsePKCS1PrivateKey(block.Bytes)
		if err == nil {
			return key, nil
		}
		if key, err8 := parsePKCS8RSA(block.Bytes); err8 == nil {
			return key, nil
		}
		return nil, err
	case blockPrivateKey:
		return parsePKCS8RSA(block.Bytes)
	default:
		return nil, errors.Errorf("unexpected PEM block %q", block.Type)
	}
}

func parsePKCS8RSA(der []byte) (*rsa.PrivateKey, error) {
	key, err := x509.ParsePKCS8PrivateKey(der)
	if err != nil {
		return nil, err
	}
	rsaKey, ok := key.(*rsa.PrivateKey)
	if !ok {
		return nil, errors.Errorf("unsupport private key type %T", key)
	}
	return rsaKey, nil
}

// ParseRSAPublicKeyPEM accepts SPKI and PKCS#1 public keys as well as X.509
// certificates carrying an RSA subject key.
func ParseRSAPublicKeyPEM(data []byte) (*rsa.PublicKey, error) {
	block, _ := pem.Decode(data)
	if block == nil {
		return nil, errors.New("no PEM block found")
	}
	var pub any
	switch block.Type {
	case blockPublicKey:
		key, err := x509.ParsePKIXPublicKey(block.Bytes)
		if err != nil {
			// Bare PKCS#1 bodies end up under the SPKI label when wrapped.
			if rsaPub, err1 := x509.ParsePKCS1PublicKey(block.Bytes); err1 == nil {
				return rsaPub, nil
			}
			return nil, err
		}
		pub = key
	case blockRSAPublicKey:
		return x509.ParsePKCS1PublicKey(block.Bytes)
	case blockCertificate:
		cert, err := x509.ParseCertificate(block.Bytes)
		if err != nil {
			return nil, err
		}
		pub = cert.PublicKey
	default:
		return nil, errors.Errorf("unexpected PEM block %q", block.Type)
	}
	rsaPub, ok := pub.(*rsa.PublicKey)
	if !ok {
		return nil, errors.Errorf("unsupport public key type %T", pub)
	}
	return rsaPub, nil
}

// EncodePublicKeyPEM renders pub as an SPKI "PUBLIC KEY" block.
func EncodePublicKeyPEM(pub *rsa.PublicKey) (string, error) {
	der, err := x509.MarshalPKIXPublicKey(pub)
	if err != nil {
		return "", errors.Wrap(err, "failed to marshal public key")
	}
	return string(pem.EncodeToMemory(&pem.Block{Type: blockPublicKey, Bytes: der})), nil
}

// ParseCertificates decodes every CERTIFICATE block in data.
func ParseCertificates(data []byte) ([]*x509.Certificate, error) {
	var certs []*x509.Certificate
	for {
		var block *pem.Block
		block, data = pem.Decode(data)
		if block == nil {
			break
		}
		if block.Type != blockCertificate {
			continue
		}
		cert, err := x509.ParseCertificate(block.Bytes)
		if err != nil {
			return nil, err
		}
		certs = append(certs, cert)
	}
	if len(certs) == 0 {
		return nil, errors.New("no certificate found")
	}
	return certs, nil
}
