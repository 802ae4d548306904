package signature_test

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AliyunContainerService/alipay-signature/keymaterial"
	"github.com/AliyunContainerService/alipay-signature/signature"
	"github.com/AliyunContainerService/alipay-signature/types"
)

const (
	privateKeyFile  = "../keymaterial/testdata/rsa_private_key.pem"
	publicKeyFile   = "../keymaterial/testdata/rsa_public_key.pem"
	otherPublicFile = "../keymaterial/testdata/other_public_key.pem"

	// openssl dgst -sign rsa_private_key.pem over "foo=bar"
	fooBarRSA2 = "kmnEphH+toE8rL+jTs367o6cId6PreY2TUoetqbWahlcvID5yhI4uUbrUiN/NcPPymv56V1urE9XvMhjpXYfoA9coZVIqRf34mclo2EyfkDSSMr3qLoMCWp3zA1xWHjfQ1W4TOadSDH2wKPxXlIIm75EwE97TtN+3Dz2BOxTgRBt8/oYTbdv07szCtVL5UEsZH/g1EzD9Oil1w9v9sk5mzPpwsD3qHMB6poz7cOeq27ALc159IMBQYQWJICvnq2ATQp4umDEP32iFT/4UZ8cZdJzmq/q9/2JEFSLJ6Y1xHVsSIy2UeC6GtW32HqWwv/s+TOfZu7BSpikEo3QpDvHrQ=="
	fooBarRSA  = "oRBemHJiTqiviYh7SkGDTSJSwLH5ETsUQYs+YZpL1lJuhCM1mv8ltam3YN7wTlzPOooWz3AAfRDyfWIHFegYtPF76OfhdpchE2FrgXCLpUSco7Yw3FUT/F92FlAIjDTR+JzXT+FgDHV8B45zWSviqCLyxIiCnFyre9zUkXH8oqW2yU1DBogGZcARAp06URpcZSK1xLqrXkxYR5MjX/nuBvqtCv7o0JN8YB5AM0k74MoBvWgZTGWpDwn5nvK3IoJdVniuaDtWw9x5sDFoTx244DtvNp4Gxaw7hyRjZ9Kbt/B9zm4PQur1bfnlwLlr9ZZhf/DvDLi18FDjdjJ1wbetdA=="
	// over "a=1 2+3&b=x=y&c=%20"
	reservedRSA2 = "EaXbJMYOpXrgUbup1qj8rSPLIEVCypkbWB3Kjomq1vPlnV6dAftCO70LMgQedI6yT6BHv5/hanz1pkBRQMzqTvO0ZasJfI6ysN2of9ROT+4bmwEngyJemNxZMiVBHBQFZ1pJHSPEzHROPHOhIew8iw6n2Sf/SO5HJW419dFNL1A9FWnICJd0J7NHqFQ2em63PxMGLEds8YVeWWcV6ec1P0CAFj5wdTf/s/Usnjp97EftJaUvo/fh/fO/eKDT0QjiL6suPpMFQsoIF/NsyshpiH2GusFJSRf6IVALR2Fr/wfQI6ALYr4wf55FroZ9clja753+/D1y0dXQ88C1D4Nmww=="
)

func loadKeys(t *testing.T) (*keymaterial.PrivateKey, *keymaterial.PublicKey) {
	t.Helper()
	priv, err := keymaterial.ResolvePrivateKey(privateKeyFile)
	require.NoError(t, err)
	pub, err := keymaterial.ResolvePublicKey(publicKeyFile)
	require.NoError(t, err)
	return priv, pub
}

func TestCanonicalize(t *testing.T) {
	tests := []struct {
		name   string
		fields signature.FieldMap
		want   string
	}{
		{"empty", signature.FieldMap{}, ""},
		{"single", signature.FieldMap{"foo": "bar"}, "foo=bar"},
		{"sorted by name", signature.FieldMap{"timestamp": "2024-01-01 12:00:00", "app_id": "2021", "method": "alipay.trade.query"},
			"app_id=2021&method=alipay.trade.query&timestamp=2024-01-01 12:00:00"},
		{"byte order", signature.FieldMap{"b": "2", "B": "1", "a_b": "3", "aa": "4"}, "B=1&a_b=3&aa=4&b=2"},
		{"reserved characters", signature.FieldMap{"a": "1 2+3", "b": "x=y", "c": "%20"}, "a=1 2+3&b=x=y&c=%20"},
		{"ampersand in value", signature.FieldMap{"q": "a&b"}, "q=a&b"},
		{"empty value", signature.FieldMap{"k": "", "z": "1"}, "k=&z=1"},
		{"json and unicode", signature.FieldMap{"biz_content": `{"subject":"测试","total_amount":"0.01"}`},
			`biz_content={"subject":"测试","total_amount":"0.01"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, signature.Canonicalize(tt.fields))
		})
	}
}

func TestCanonicalizeIsOrderIndependent(t *testing.T) {
	want := signature.Canonicalize(signature.FieldMap{"a": "1", "b": "2", "c": "3", "d": "4"})
	for i := 0; i < 50; i++ {
		fields := signature.FieldMap{}
		for _, k := range []string{"d", "b", "c", "a"} {
			fields[k] = map[string]string{"a": "1", "b": "2", "c": "3", "d": "4"}[k]
		}
		require.Equal(t, want, signature.Canonicalize(fields))
	}
}

func TestGenerateMatchesOpenSSL(t *testing.T) {
	priv, _ := loadKeys(t)

	tests := []struct {
		fields signature.FieldMap
		alg    signature.Algorithm
		want   string
	}{
		{signature.FieldMap{"foo": "bar"}, signature.RSA2, fooBarRSA2},
		{signature.FieldMap{"foo": "bar"}, signature.RSA, fooBarRSA},
		{signature.FieldMap{"c": "%20", "a": "1 2+3", "b": "x=y"}, signature.RSA2, reservedRSA2},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%s %v", tt.alg, tt.fields), func(t *testing.T) {
			got, err := signature.Generate(tt.fields, priv, tt.alg)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRoundTrip(t *testing.T) {
	priv, pub := loadKeys(t)

	fieldSets := []signature.FieldMap{
		{"foo": "hello"},
		{"bar": "world"},
		{},
		{"app_id": "2021000000000000", "charset": "UTF-8", "biz_content": `{"out_trade_no":"20240101","total_amount":"88.88"}`, "notify_url": "https://example.com/notify?x=1&y=2"},
	}

	for _, alg := range []signature.Algorithm{signature.RSA, signature.RSA2} {
		for _, fields := range fieldSets {
			sig, err := signature.Generate(fields, priv, alg)
			require.NoError(t, err)
			assert.True(t, signature.Verify(sig, fields, pub, alg), "%s %v", alg, fields)
		}
	}
}

func TestConcreteScenario(t *testing.T) {
	priv, pub := loadKeys(t)

	sig, err := signature.Generate(signature.FieldMap{"foo": "bar"}, priv, signature.RSA2)
	require.NoError(t, err)
	assert.Len(t, sig, 344)
	assert.True(t, signature.Verify(sig, signature.FieldMap{"foo": "bar"}, pub, signature.RSA2))
	assert.False(t, signature.Verify(sig, signature.FieldMap{"foo": "baz"}, pub, signature.RSA2))
}

func TestVerifyRejects(t *testing.T) {
	priv, pub := loadKeys(t)
	other, err := keymaterial.ResolvePublicKey(otherPublicFile)
	require.NoError(t, err)

	fields := signature.FieldMap{"out_trade_no": "T1", "total_amount": "1.00"}
	sig, err := signature.Generate(fields, priv, signature.RSA2)
	require.NoError(t, err)

	tests := []struct {
		name   string
		sig    string
		fields signature.FieldMap
		key    *keymaterial.PublicKey
		alg    signature.Algorithm
	}{
		{"tampered value", sig, signature.FieldMap{"out_trade_no": "T1", "total_amount": "100.00"}, pub, signature.RSA2},
		{"extra field", sig, signature.FieldMap{"out_trade_no": "T1", "total_amount": "1.00", "x": ""}, pub, signature.RSA2},
		{"missing field", sig, signature.FieldMap{"out_trade_no": "T1"}, pub, signature.RSA2},
		{"not base64", "not-base64!!", fields, pub, signature.RSA2},
		{"empty signature", "", fields, pub, signature.RSA2},
		{"truncated", sig[:40], fields, pub, signature.RSA2},
		{"wrong digest", sig, fields, pub, signature.RSA},
		{"wrong key", sig, fields, other, signature.RSA2},
		{"nil key", sig, fields, nil, signature.RSA2},
		{"unknown algorithm", sig, fields, pub, signature.Algorithm("RSA3")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.NotPanics(t, func() {
				assert.False(t, signature.Verify(tt.sig, tt.fields, tt.key, tt.alg))
			})
		})
	}
}

func TestGenerateFailures(t *testing.T) {
	priv, _ := loadKeys(t)

	_, err := signature.Generate(signature.FieldMap{"foo": "bar"}, nil, signature.RSA2)
	assert.True(t, errors.Is(err, types.ErrSigningFailure))

	_, err = signature.Generate(signature.FieldMap{"foo": "bar"}, priv, signature.Algorithm("MD5"))
	assert.True(t, errors.Is(err, types.ErrSigningFailure))
}

func TestParseAlgorithm(t *testing.T) {
	alg, err := signature.ParseAlgorithm("RSA")
	require.NoError(t, err)
	assert.Equal(t, signature.RSA, alg)

	alg, err = signature.ParseAlgorithm("RSA2")
	require.NoError(t, err)
	assert.Equal(t, signature.RSA2, alg)

	_, err = signature.ParseAlgorithm("foo")
	assert.True(t, errors.Is(err, types.ErrUnsupportedAlgorithm))
	assert.EqualError(t, err, `The option "sign_type" with value "foo" is invalid. Accepted values are: "RSA", "RSA2".`)

	_, err = signature.ParseAlgorithm("rsa2")
	assert.True(t, errors.Is(err, types.ErrUnsupportedAlgorithm))

	_, err = signature.ParseAlgorithm("")
	assert.True(t, errors.Is(err, types.ErrMissingRequiredOption))
}

func TestKeyFormsProduceIdenticalSignatures(t *testing.T) {
	pemKey, err := keymaterial.ResolvePrivateKey(privateKeyFile)
	require.NoError(t, err)
	bodyKey, err := keymaterial.ResolvePrivateKey(stripPEM(pemKey.PEM()))
	require.NoError(t, err)
	fileKey, err := keymaterial.ResolvePrivateKey(privateKeyFile)
	require.NoError(t, err)
	textKey, err := keymaterial.ResolvePrivateKey(pemKey.PEM())
	require.NoError(t, err)

	fields := signature.FieldMap{"foo": "bar"}
	var sigs []string
	for _, k := range []*keymaterial.PrivateKey{textKey, bodyKey, fileKey} {
		sig, err := signature.Generate(fields, k, signature.RSA2)
		require.NoError(t, err)
		sigs = append(sigs, sig)
	}
	assert.Equal(t, sigs[0], sigs[1])
	assert.Equal(t, sigs[0], sigs[2])
}

func TestSignerConcurrentUse(t *testing.T) {
	priv, pub := loadKeys(t)
	signer, err := signature.NewSigner(priv, pub, signature.RSA2)
	require.NoError(t, err)

	var wg sync.WaitGroup
	errs := make(chan error, 16)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			fields := map[string]string{"n": fmt.Sprint(i), "foo": "bar"}
			sig, err := signer.GenerateSignature(fields)
			if err != nil {
				errs <- err
				return
			}
			if !signer.VerifySignature(sig, fields) {
				errs <- fmt.Errorf("verify failed for %d", i)
			}
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}
}

func TestNewSignerValidation(t *testing.T) {
	priv, pub := loadKeys(t)

	_, err := signature.NewSigner(nil, pub, signature.RSA2)
	assert.True(t, errors.Is(err, types.ErrMissingRequiredOption))

	_, err = signature.NewSigner(priv, nil, signature.RSA2)
	assert.True(t, errors.Is(err, types.ErrMissingRequiredOption))

	_, err = signature.NewSigner(priv, pub, signature.Algorithm("foo"))
	assert.True(t, errors.Is(err, types.ErrUnsupportedAlgorithm))

	signer, err := signature.NewSigner(priv, pub, signature.RSA)
	require.NoError(t, err)
	assert.Equal(t, signature.RSA, signer.Algorithm())
	assert.False(t, signer.VerifySignature("invalid_sign", map[string]string{"foo": "bar"}))
}

func stripPEM(text string) string {
	var body strings.Builder
	for _, line := range strings.Split(strings.TrimSpace(text), "\n") {
		if !strings.HasPrefix(line, "-----") {
			body.WriteString(line)
		}
	}
	return body.String()
}
