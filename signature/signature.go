// Package signature builds the canonical string of a gateway field set and
// signs or verifies it with RSA PKCS#1 v1.5.
package signature

import (
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"net/url"

	"github.com/pkg/errors"

	"github.com/AliyunContainerService/alipay-signature/keymaterial"
	"github.com/AliyunContainerService/alipay-signature/types"
)

// FieldMap holds request or response fields by name.
type FieldMap map[string]string

// Canonicalize sorts fields by name, form-encodes them and URL-decodes the
// result. The gateway computes the same string, so the encode/decode round
// trip is kept even where it is an identity.
func Canonicalize(fields FieldMap) string {
	values := make(url.Values, len(fields))
	for k, v := range fields {
		values.Set(k, v)
	}
	encoded := values.Encode()
	decoded, err := url.QueryUnescape(encoded)
	if err != nil {
		// Encode only emits well-formed escapes.
		return encoded
	}
	return decoded
}

// Generate signs the canonical form of fields and returns the signature in
// standard base64.
func Generate(fields FieldMap, key *keymaterial.PrivateKey, alg Algorithm) (string, error) {
	if key == nil || key.RSA() == nil {
		return "", errors.Wrap(types.ErrSigningFailure, "private key is not set")
	}
	hash, ok := alg.Hash()
	if !ok {
		return "", errors.Wrapf(types.ErrSigningFailure, "sign type %q", alg)
	}

	h := hash.New()
	h.Write([]byte(Canonicalize(fields)))
	raw, err := rsa.SignPKCS1v15(rand.Reader, key.RSA(), hash, h.Sum(nil))
	if err != nil {
		return "", errors.Wrapf(types.ErrSigningFailure, "%s: %v", alg, err)
	}
	return base64.StdEncoding.EncodeToString(raw), nil
}

// Verify reports whether signature matches the canonical form of fields.
// It never fails: undecodable input, a wrong key or a digest mismatch all
// yield false.
func Verify(signature string, fields FieldMap, key *keymaterial.PublicKey, alg Algorithm) bool {
	if key == nil || key.RSA() == nil {
		return false
	}
	hash, ok := alg.Hash()
	if !ok {
		return false
	}
	raw, err := base64.StdEncoding.DecodeString(signature)
	if err != nil || len(raw) == 0 {
		return false
	}

	h := hash.New()
	h.Write([]byte(Canonicalize(fields)))
	return verifyPKCS1v15(key.RSA(), hash, h.Sum(nil), raw)
}

func verifyPKCS1v15(pub *rsa.PublicKey, hash crypto.Hash, digest, sig []byte) (ok bool) {
	defer func() {
		if recover() != nil {
			ok = false
		}
	}()
	return rsa.VerifyPKCS1v15(pub, hash, digest, sig) == nil
}
