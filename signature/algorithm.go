package signature

import (
	"crypto"
	// registers SHA-1 and SHA-256 with crypto.Hash
	_ "crypto/sha1"
	_ "crypto/sha256"

	"github.com/AliyunContainerService/alipay-signature/types"
)

// Algorithm is the gateway sign_type.
type Algorithm string

const (
	RSA  Algorithm = "RSA"
	RSA2 Algorithm = "RSA2"
)

// DefaultAlgorithm is used when sign_type is not configured.
const DefaultAlgorithm = RSA2

var digests = map[Algorithm]crypto.Hash{
	RSA:  crypto.SHA1,
	RSA2: crypto.SHA256,
}

// ParseAlgorithm accepts exactly "RSA" and "RSA2".
func ParseAlgorithm(s string) (Algorithm, error) {
	if s == "" {
		return "", types.MissingOption(types.OptionSignType)
	}
	alg := Algorithm(s)
	if _, ok := digests[alg]; !ok {
		return "", types.UnsupportedAlgorithm(s)
	}
	return alg, nil
}

// Hash returns the digest paired with a, or false for values outside the set.
func (a Algorithm) Hash() (crypto.Hash, bool) {
	h, ok := digests[a]
	return h, ok
}

func (a Algorithm) String() string { return string(a) }
