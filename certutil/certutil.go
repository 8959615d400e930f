// Package certutil provides PEM and extension helpers for certificate
// signing requests.
package certutil

import (
	"bytes"
	"crypto"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/asn1"
	"encoding/pem"

	"github.com/pkg/errors"
)

// EncodeCSRToPEM returns PEM encoded certificate request
func EncodeCSRToPEM(der []byte) ([]byte, error) {
	b := bytes.NewBuffer([]byte{})
	err := pem.Encode(b, &pem.Block{
		Type:  "CERTIFICATE REQUEST",
		Bytes: der,
	})
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return b.Bytes(), nil
}

// ParseCSRFromPEM parses a certificate request from a PEM block
func ParseCSRFromPEM(csrPEM []byte) (*x509.CertificateRequest, error) {
	block, _ := pem.Decode(csrPEM)
	if block == nil || block.Type != "CERTIFICATE REQUEST" {
		return nil, errors.New("unable to decode PEM block: CERTIFICATE REQUEST")
	}

	csrv, err := x509.ParseCertificateRequest(block.Bytes)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return csrv, nil
}

// EncodePublicKeyToPEM returns PEM encoded public key
func EncodePublicKeyToPEM(pubKey crypto.PublicKey) ([]byte, error) {
	asn1Bytes, err := x509.MarshalPKIXPublicKey(pubKey)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	var pemkey = &pem.Block{
		Type:  "PUBLIC KEY",
		Bytes: asn1Bytes,
	}

	b := bytes.NewBuffer([]byte{})

	err = pem.Encode(b, pemkey)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return b.Bytes(), nil
}

// FindExtensionValue returns extension value, or nil
func FindExtensionValue(list []pkix.Extension, oid asn1.ObjectIdentifier) []byte {
	for _, e := range list {
		if e.Id.Equal(oid) {
			return e.Value
		}
	}
	return nil
}

// FindExtension returns extension, or nil
func FindExtension(list []pkix.Extension, oid asn1.ObjectIdentifier) *pkix.Extension {
	for idx, e := range list {
		if e.Id.Equal(oid) {
			return &list[idx]
		}
	}
	return nil
}
