package csr

import (
	"bytes"
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"os"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/kmscsr/oid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubRemote struct {
	spki      []byte
	usage     string
	algos     []string
	signature []byte

	pubErr  error
	descErr error
	signErr error

	lastAlgo    string
	lastMessage []byte
}

func (s *stubRemote) PublicKey(_ context.Context, keyID string) (*KeyInfo, error) {
	if s.pubErr != nil {
		return nil, s.pubErr
	}
	return &KeyInfo{KeyID: keyID, PublicKey: s.spki, KeyUsage: s.usage}, nil
}

func (s *stubRemote) SigningAlgorithms(_ context.Context, _ string) ([]string, error) {
	if s.descErr != nil {
		return nil, s.descErr
	}
	return s.algos, nil
}

func (s *stubRemote) Sign(_ context.Context, _, algorithm string, message []byte) ([]byte, error) {
	if s.signErr != nil {
		return nil, s.signErr
	}
	s.lastAlgo = algorithm
	s.lastMessage = append([]byte{}, message...)
	return s.signature, nil
}

func rsaRemote(t *testing.T) *stubRemote {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	spki, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	require.NoError(t, err)
	return &stubRemote{
		spki:  spki,
		usage: "SIGN_VERIFY",
		algos: []string{
			"RSASSA_PSS_SHA_256", "RSASSA_PSS_SHA_384", "RSASSA_PSS_SHA_512",
			"RSASSA_PKCS1_V1_5_SHA_256", "RSASSA_PKCS1_V1_5_SHA_384", "RSASSA_PKCS1_V1_5_SHA_512",
		},
		signature: bytes.Repeat([]byte{0xa5}, 256),
	}
}

func ecRemote(t *testing.T) *stubRemote {
	t.Helper()
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	spki, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	require.NoError(t, err)
	return &stubRemote{
		spki:      spki,
		usage:     "SIGN_VERIFY",
		algos:     []string{"ECDSA_SHA_256", "ECDSA_SHA_384", "ECDSA_SHA_512"},
		signature: bytes.Repeat([]byte{0x5a}, 70),
	}
}

func testSubject() pkix.Name {
	return pkix.Name{
		CommonName:   "trusty.example.com",
		Organization: []string{"Example Org"},
		Country:      []string{"US"},
	}
}

func TestNewBuilderDefaults(t *testing.T) {
	remote := rsaRemote(t)
	b, err := NewBuilder(context.Background(), remote, testSubject(), "key1")
	require.NoError(t, err)

	assert.Equal(t, "key1", b.KeyID())
	assert.Equal(t, SHA256, b.HashAlgo())
	assert.Equal(t, RSAPSSSHA256, b.SignatureAlgo())
	require.NotNil(t, b.CA())
	assert.False(t, *b.CA())
	assert.Equal(t, []string{"digital_signature", "key_encipherment"}, b.KeyUsage())
	assert.Equal(t, []string{"client_auth", "server_auth"}, b.ExtendedKeyUsage())
}

func TestNewBuilderKeyUsageMismatch(t *testing.T) {
	remote := rsaRemote(t)
	remote.usage = "ENCRYPT_DECRYPT"
	_, err := NewBuilder(context.Background(), remote, testSubject(), "key1")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrConfiguration))
	assert.EqualError(t, err, "key key1 is not usable for signing: ENCRYPT_DECRYPT")
}

func TestNewBuilderLookupFailure(t *testing.T) {
	remote := rsaRemote(t)
	remote.pubErr = errors.New("kms: not found")
	_, err := NewBuilder(context.Background(), remote, testSubject(), "missing")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrConfiguration))
}

func TestSetCA(t *testing.T) {
	remote := rsaRemote(t)
	b, err := NewBuilder(context.Background(), remote, testSubject(), "key1")
	require.NoError(t, err)

	ca := true
	b.SetCA(&ca)
	require.NotNil(t, b.CA())
	assert.True(t, *b.CA())
	assert.Equal(t, []string{"crl_sign", "key_cert_sign"}, b.KeyUsage())
	assert.Equal(t, []string{"ocsp_signing"}, b.ExtendedKeyUsage())

	ca = false
	b.SetCA(&ca)
	assert.Equal(t, []string{"digital_signature", "key_encipherment"}, b.KeyUsage())
	assert.Equal(t, []string{"client_auth", "server_auth"}, b.ExtendedKeyUsage())

	// nil clears basic constraints only
	b.SetCA(nil)
	assert.Nil(t, b.CA())
	assert.Equal(t, []string{"digital_signature", "key_encipherment"}, b.KeyUsage())
}

func TestSubjectAltNames(t *testing.T) {
	remote := rsaRemote(t)
	b, err := NewBuilder(context.Background(), remote, testSubject(), "key1")
	require.NoError(t, err)

	b.SetSubjectAltDomains([]string{"a.example.com", "b.example.com"})
	require.NoError(t, b.SetSubjectAltIPs([]string{"10.0.0.1", "2001:db8::1"}))
	assert.Equal(t, []string{"a.example.com", "b.example.com"}, b.SubjectAltDomains())
	assert.Equal(t, []string{"10.0.0.1", "2001:db8::1"}, b.SubjectAltIPs())

	err = b.SetSubjectAltIPs([]string{"not-an-ip"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrConfiguration))
	// prior state untouched
	assert.Equal(t, []string{"10.0.0.1", "2001:db8::1"}, b.SubjectAltIPs())

	// empty set reads back empty, not nil
	b.SetSubjectAltDomains([]string{})
	require.NoError(t, b.SetSubjectAltIPs([]string{}))
	assert.NotNil(t, b.SubjectAltDomains())
	assert.Empty(t, b.SubjectAltDomains())
	assert.NotNil(t, b.SubjectAltIPs())
	assert.Empty(t, b.SubjectAltIPs())

	// and the built request carries no SAN extension
	req, err := b.Build(context.Background(), "key1")
	require.NoError(t, err)
	parsed, err := x509.ParseCertificateRequest(req.Raw)
	require.NoError(t, err)
	assert.Empty(t, parsed.DNSNames)
	assert.Empty(t, parsed.IPAddresses)
}

func TestSetExtension(t *testing.T) {
	remote := rsaRemote(t)
	b, err := NewBuilder(context.Background(), remote, testSubject(), "key1")
	require.NoError(t, err)

	// wrong shape for a special extension
	err = b.SetExtension("basic_constraints", []string{"true"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrEncoding))
	require.NotNil(t, b.CA())
	assert.False(t, *b.CA())

	err = b.SetExtension("key_usage", "digital_signature")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrEncoding))
	assert.Equal(t, []string{"digital_signature", "key_encipherment"}, b.KeyUsage())

	require.NoError(t, b.SetExtension("basic_constraints", &BasicConstraints{IsCA: true, MaxPathLen: -1}))
	require.NotNil(t, b.CA())
	assert.True(t, *b.CA())

	require.NoError(t, b.SetExtension("key_usage", []string{"key_cert_sign", "crl_sign"}))
	assert.Equal(t, []string{"crl_sign", "key_cert_sign"}, b.KeyUsage())

	// open region: bytes, hex and base64 forms; nil deletes
	require.NoError(t, b.SetExtension("ocsp_no_check", []byte{0x05, 0x00}))
	require.NoError(t, b.SetExtension("1.2.3.4.5", "hex:0500"))
	require.NoError(t, b.SetExtension("1.2.3.4.6", "base64:BQA="))
	require.NoError(t, b.SetExtension("1.2.3.4.6", nil))

	err = b.SetExtension("1.2.3.4.5", "hex:zz")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrEncoding))

	err = b.SetExtension("1.2.3.4.5", []byte{0x30})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrEncoding))

	err = b.SetExtension("not an oid", []byte{0x05, 0x00})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrConfiguration))
}

func TestSetExtendedKeyUsageEmpty(t *testing.T) {
	remote := rsaRemote(t)
	b, err := NewBuilder(context.Background(), remote, testSubject(), "key1")
	require.NoError(t, err)

	require.NoError(t, b.SetExtendedKeyUsage(nil))
	assert.Nil(t, b.extensions.extKeyUsage)
	assert.Empty(t, b.ExtendedKeyUsage())

	require.NoError(t, b.SetExtendedKeyUsage([]string{}))
	assert.Nil(t, b.extensions.extKeyUsage)

	// an empty list drops the extension from the built request
	req, err := b.Build(context.Background(), "key1")
	require.NoError(t, err)
	parsed, err := x509.ParseCertificateRequest(req.Raw)
	require.NoError(t, err)
	for _, ext := range parsed.Extensions {
		assert.False(t, ext.Id.Equal(oid.ExtensionExtendedKeyUsage), "unexpected extension %s", ext.Id)
	}
}

func TestSetExtensionByOID(t *testing.T) {
	remote := rsaRemote(t)
	b, err := NewBuilder(context.Background(), remote, testSubject(), "key1")
	require.NoError(t, err)

	// special extensions addressed by dotted OID route to their typed
	// setters, not the open region
	require.NoError(t, b.SetExtension("2.5.29.19", &BasicConstraints{IsCA: true, MaxPathLen: -1}))
	require.NotNil(t, b.CA())
	assert.True(t, *b.CA())
	assert.Empty(t, b.extensions.other)

	err = b.SetExtension("2.5.29.15", "digital_signature")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrEncoding))

	// known identities in the open region are keyed by canonical name
	require.NoError(t, b.SetExtension("1.3.6.1.5.5.7.48.1.5", []byte{0x05, 0x00}))
	require.NoError(t, b.SetExtension("ocsp_no_check", nil))
	assert.Empty(t, b.extensions.other)

	req, err := b.Build(context.Background(), "key1")
	require.NoError(t, err)
	parsed, err := x509.ParseCertificateRequest(req.Raw)
	require.NoError(t, err)
	count := 0
	for _, ext := range parsed.Extensions {
		if ext.Id.Equal(oid.ExtensionBasicConstraints) {
			count++
		}
	}
	assert.Equal(t, 1, count)
}

func TestSetExtensionSANReplaces(t *testing.T) {
	remote := rsaRemote(t)
	b, err := NewBuilder(context.Background(), remote, testSubject(), "key1")
	require.NoError(t, err)

	b.SetSubjectAltDomains([]string{"old.example.com"})
	require.NoError(t, b.SetSubjectAltIPs([]string{"10.0.0.1"}))

	// the whole extension is replaced, configured IPs included
	require.NoError(t, b.SetExtension("subject_alt_name", []string{"new.example.com"}))
	assert.Equal(t, []string{"new.example.com"}, b.SubjectAltDomains())
	assert.Empty(t, b.SubjectAltIPs())
}

func TestBuildRSAPSS(t *testing.T) {
	remote := rsaRemote(t)
	b, err := NewBuilder(context.Background(), remote, testSubject(), "key1")
	require.NoError(t, err)
	b.SetSubjectAltDomains([]string{"trusty.example.com"})

	req, err := b.Build(context.Background(), "key1")
	require.NoError(t, err)

	assert.Equal(t, RSAPSSSHA256, req.RemoteAlgo)
	assert.Equal(t, "RSASSA_PSS_SHA_256", remote.lastAlgo)
	// the remote signs the exact to-be-signed bytes
	assert.Equal(t, req.RawTBS, remote.lastMessage)
	assert.Equal(t, remote.signature, req.Signature)

	parsed, err := x509.ParseCertificateRequest(req.Raw)
	require.NoError(t, err)
	assert.Equal(t, x509.SHA256WithRSAPSS, parsed.SignatureAlgorithm)
	assert.Equal(t, "trusty.example.com", parsed.Subject.CommonName)
	assert.Equal(t, []string{"trusty.example.com"}, parsed.DNSNames)
}

func TestBuildPKCS1(t *testing.T) {
	remote := rsaRemote(t)
	b, err := NewBuilder(context.Background(), remote, testSubject(), "key1")
	require.NoError(t, err)
	require.NoError(t, b.SetSignatureAlgo(RSAPKCS1SHA256))

	req, err := b.Build(context.Background(), "key1")
	require.NoError(t, err)
	assert.Equal(t, RSAPKCS1SHA256, req.RemoteAlgo)

	parsed, err := x509.ParseCertificateRequest(req.Raw)
	require.NoError(t, err)
	assert.Equal(t, x509.SHA256WithRSA, parsed.SignatureAlgorithm)
}

func TestBuildECDSA(t *testing.T) {
	remote := ecRemote(t)
	b, err := NewBuilder(context.Background(), remote, testSubject(), "eckey")
	require.NoError(t, err)
	require.NoError(t, b.SetHashAlgo(SHA512))

	req, err := b.Build(context.Background(), "eckey")
	require.NoError(t, err)
	assert.Equal(t, ECDSASHA512, req.RemoteAlgo)
	assert.Equal(t, "ECDSA_SHA_512", remote.lastAlgo)

	parsed, err := x509.ParseCertificateRequest(req.Raw)
	require.NoError(t, err)
	assert.Equal(t, x509.ECDSAWithSHA512, parsed.SignatureAlgorithm)
}

func TestBuildDeterministic(t *testing.T) {
	remote := rsaRemote(t)
	b, err := NewBuilder(context.Background(), remote, testSubject(), "key1")
	require.NoError(t, err)
	b.SetSubjectAltDomains([]string{"a.example.com"})
	require.NoError(t, b.SetSubjectAltIPs([]string{"10.0.0.1"}))
	require.NoError(t, b.SetExtension("ocsp_no_check", []byte{0x05, 0x00}))

	req1, err := b.Build(context.Background(), "key1")
	require.NoError(t, err)
	req2, err := b.Build(context.Background(), "key1")
	require.NoError(t, err)
	assert.Equal(t, req1.RawTBS, req2.RawTBS)
}

func TestBuildRemoteFailures(t *testing.T) {
	remote := rsaRemote(t)
	b, err := NewBuilder(context.Background(), remote, testSubject(), "key1")
	require.NoError(t, err)

	remote.descErr = errors.New("kms: throttled")
	_, err = b.Build(context.Background(), "key1")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrRemoteService))

	remote.descErr = nil
	remote.signErr = errors.New("kms: access denied")
	_, err = b.Build(context.Background(), "key1")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrRemoteService))
}

func TestEncodeToPEM(t *testing.T) {
	remote := ecRemote(t)
	b, err := NewBuilder(context.Background(), remote, testSubject(), "eckey")
	require.NoError(t, err)

	req, err := b.Build(context.Background(), "eckey")
	require.NoError(t, err)

	block, rest := pem.Decode(req.EncodeToPEM())
	require.NotNil(t, block)
	assert.Empty(t, rest)
	assert.Equal(t, "CERTIFICATE REQUEST", block.Type)
	assert.Equal(t, req.Raw, block.Bytes)
}

func TestProfileApply(t *testing.T) {
	remote := rsaRemote(t)
	b, err := NewBuilder(context.Background(), remote, testSubject(), "key1")
	require.NoError(t, err)

	ca := true
	prof := &CertificateRequest{
		Subject: map[string]string{
			AttrCommonName:       "issuing-ca",
			AttrOrganizationName: "Example Org",
		},
		SAN:           []string{"ca.example.com", "10.1.1.1"},
		CA:            &ca,
		Hash:          SHA512,
		SignatureAlgo: RSAPKCS1SHA512,
		Extensions: []X509Extension{
			{ID: OID{1, 3, 6, 1, 5, 5, 7, 48, 1, 5}, Value: "hex:0500"},
		},
	}
	require.NoError(t, prof.Apply(b))

	assert.Equal(t, "issuing-ca", b.Subject().CommonName)
	assert.Equal(t, SHA512, b.HashAlgo())
	assert.Equal(t, RSAPKCS1SHA512, b.SignatureAlgo())
	require.NotNil(t, b.CA())
	assert.True(t, *b.CA())
	assert.Equal(t, []string{"ca.example.com"}, b.SubjectAltDomains())
	assert.Equal(t, []string{"10.1.1.1"}, b.SubjectAltIPs())

	req, err := b.Build(context.Background(), "key1")
	require.NoError(t, err)
	assert.Equal(t, RSAPKCS1SHA512, req.RemoteAlgo)
}

func TestLoadCertificateRequest(t *testing.T) {
	dir := t.TempDir()
	file := dir + "/profile.yaml"
	yaml := `
subject:
  common_name: trusty.example.com
  organization_name: Example Org
san:
  - trusty.example.com
  - 10.0.0.1
ca: false
hash: sha256
signature_algo: RSASSA_PSS_SHA_256
`
	require.NoError(t, os.WriteFile(file, []byte(yaml), 0644))

	prof, err := LoadCertificateRequest(file)
	require.NoError(t, err)
	assert.Equal(t, "trusty.example.com", prof.Subject[AttrCommonName])
	require.NotNil(t, prof.CA)
	assert.False(t, *prof.CA)
	assert.Equal(t, SHA256, prof.Hash)

	_, err = LoadCertificateRequest(dir + "/missing.yaml")
	require.Error(t, err)
}
