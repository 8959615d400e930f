package csr

import (
	"crypto"
	"encoding/asn1"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/x/slices"
)

// BasicConstraints CSR information RFC 5280, 4.2.1.9
type BasicConstraints struct {
	IsCA       bool `asn1:"optional"`
	MaxPathLen int  `asn1:"optional,default:-1"`
}

// HashAlgo is the hash algorithm used to sign the request.
type HashAlgo string

// Supported hash algorithms. SHA1 is accepted for legacy
// interoperability but no remote signing algorithm exists for it.
const (
	SHA1   HashAlgo = "sha1"
	SHA256 HashAlgo = "sha256"
	SHA512 HashAlgo = "sha512"
)

// Valid returns true for a supported hash algorithm name.
func (h HashAlgo) Valid() bool {
	switch h {
	case SHA1, SHA256, SHA512:
		return true
	}
	return false
}

// width returns the hash width in bits as spelled in remote algorithm
// names, or empty when the remote service offers no algorithm for the
// hash.
func (h HashAlgo) width() string {
	switch h {
	case SHA256:
		return "256"
	case SHA512:
		return "512"
	}
	return ""
}

// Size returns the hash output length in bytes.
func (h HashAlgo) Size() int {
	switch h {
	case SHA1:
		return crypto.SHA1.Size()
	case SHA256:
		return crypto.SHA256.Size()
	case SHA512:
		return crypto.SHA512.Size()
	}
	return 0
}

// SigningAlgo is a remote signing algorithm name.
type SigningAlgo string

// Signing algorithm names understood by the remote service.
const (
	RSAPSSSHA256   SigningAlgo = "RSASSA_PSS_SHA_256"
	RSAPSSSHA384   SigningAlgo = "RSASSA_PSS_SHA_384"
	RSAPSSSHA512   SigningAlgo = "RSASSA_PSS_SHA_512"
	RSAPKCS1SHA256 SigningAlgo = "RSASSA_PKCS1_V1_5_SHA_256"
	RSAPKCS1SHA384 SigningAlgo = "RSASSA_PKCS1_V1_5_SHA_384"
	RSAPKCS1SHA512 SigningAlgo = "RSASSA_PKCS1_V1_5_SHA_512"
	ECDSASHA256    SigningAlgo = "ECDSA_SHA_256"
	ECDSASHA384    SigningAlgo = "ECDSA_SHA_384"
	ECDSASHA512    SigningAlgo = "ECDSA_SHA_512"
)

// SupportedSigningAlgos lists the signing algorithm names accepted as
// a preference.
var SupportedSigningAlgos = []string{
	string(RSAPSSSHA256),
	string(RSAPSSSHA384),
	string(RSAPSSSHA512),
	string(RSAPKCS1SHA256),
	string(RSAPKCS1SHA384),
	string(RSAPKCS1SHA512),
	string(ECDSASHA256),
	string(ECDSASHA384),
	string(ECDSASHA512),
}

// Valid returns true for a supported signing algorithm name.
func (a SigningAlgo) Valid() bool {
	return slices.ContainsString(SupportedSigningAlgos, string(a))
}

// padding is the RSA padding scheme resolved from the configured
// signing algorithm preference.
type padding int

const (
	paddingPSS padding = iota
	paddingPKCS1
)

// OID is the asn1's ObjectIdentifier, provide a custom
// JSON marshal / unmarshal.
type OID asn1.ObjectIdentifier

// Equal reports whether oi and other represent the same identifier.
func (oid OID) Equal(other OID) bool {
	return asn1.ObjectIdentifier(oid).Equal(asn1.ObjectIdentifier(other))
}

func (oid OID) String() string {
	return asn1.ObjectIdentifier(oid).String()
}

// UnmarshalJSON unmarshals a JSON string into an OID.
func (oid *OID) UnmarshalJSON(data []byte) (err error) {
	last := len(data) - 1
	if data[0] != '"' || data[last] != '"' {
		return errors.New("OID JSON string not wrapped in quotes: " + string(data))
	}
	parsedOid, err := ParseObjectIdentifier(string(data[1:last]))
	if err != nil {
		return err
	}
	*oid = OID(parsedOid)
	return
}

// UnmarshalYAML unmarshals a YAML string into an OID.
func (oid *OID) UnmarshalYAML(unmarshal func(any) error) error {
	var buf string
	err := unmarshal(&buf)
	if err != nil {
		return err
	}

	parsedOid, err := ParseObjectIdentifier(buf)
	if err != nil {
		return err
	}
	*oid = OID(parsedOid)
	return err
}

// MarshalJSON marshals an oid into a JSON string.
func (oid OID) MarshalJSON() ([]byte, error) {
	return []byte(fmt.Sprintf(`"%v"`, asn1.ObjectIdentifier(oid))), nil
}

// ParseObjectIdentifier returns OID
func ParseObjectIdentifier(oidString string) (oid asn1.ObjectIdentifier, err error) {
	validOID, err := regexp.MatchString("\\d(\\.\\d+)*", oidString)
	if err != nil {
		return
	}
	if !validOID {
		err = errors.Errorf("invalid OID: %q", oidString)
		return
	}

	segments := strings.Split(oidString, ".")
	oid = make(asn1.ObjectIdentifier, len(segments))
	for i, intString := range segments {
		oid[i], err = strconv.Atoi(intString)
		if err != nil {
			err = errors.WithMessagef(err, "invalid OID")
			return
		}
	}
	return
}
