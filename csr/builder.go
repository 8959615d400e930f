package csr

import (
	"context"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/asn1"
	"encoding/base64"
	"encoding/hex"
	"net"
	"sort"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/kmscsr/oid"
	"github.com/effective-security/xlog"
)

var logger = xlog.NewPackageLogger("github.com/effective-security/kmscsr", "csr")

// KeyInfo describes a remote signing key.
type KeyInfo struct {
	// KeyID is the remote identifier of the key.
	KeyID string

	// PublicKey is the DER encoded SubjectPublicKeyInfo.
	PublicKey []byte

	// KeyUsage is the usage the remote service reports for the key,
	// SIGN_VERIFY for signing keys.
	KeyUsage string
}

// Remote is the signing service contract the builder depends on. The
// awskms package provides the AWS KMS implementation.
type Remote interface {
	// PublicKey returns the key's SubjectPublicKeyInfo and usage.
	PublicKey(ctx context.Context, keyID string) (*KeyInfo, error)

	// SigningAlgorithms returns the signing algorithm names the key
	// supports.
	SigningAlgorithms(ctx context.Context, keyID string) ([]string, error)

	// Sign signs the exact message bytes with the named algorithm.
	Sign(ctx context.Context, keyID, algorithm string, message []byte) ([]byte, error)
}

// signKeyUsage is the usage a remote key must report to be accepted.
const signKeyUsage = "SIGN_VERIFY"

// Builder accumulates the subject, public key reference and requested
// extensions for a certificate signing request, and produces the
// signed request with Build. A Builder is not safe for concurrent use;
// independent builders may share one Remote client.
type Builder struct {
	remote Remote

	subject    pkix.Name
	keyID      string
	spki       []byte
	hash       HashAlgo
	sigAlgo    SigningAlgo
	pad        padding
	extensions ExtensionSet
}

// NewBuilder returns a Builder bound to the remote key. The public key
// is fetched and cached immediately; a failed lookup or a key not
// usable for signing is reported as ErrConfiguration. A new builder
// defaults to sha256, RSASSA_PSS_SHA_256 preference, and an end-entity
// profile (CA flag false).
func NewBuilder(ctx context.Context, remote Remote, subject pkix.Name, keyID string) (*Builder, error) {
	b := &Builder{
		remote:     remote,
		subject:    subject,
		hash:       SHA256,
		sigAlgo:    RSAPSSSHA256,
		pad:        paddingPSS,
		extensions: newExtensionSet(),
	}
	notCA := false
	b.SetCA(&notCA)
	if err := b.SetKeyID(ctx, keyID); err != nil {
		return nil, err
	}
	return b, nil
}

// SetSubject replaces the request subject.
func (b *Builder) SetSubject(subject pkix.Name) {
	b.subject = subject
}

// SetSubjectAttributes replaces the request subject from attribute
// name to value pairs.
func (b *Builder) SetSubjectAttributes(attrs map[string]string) error {
	name, err := NameFromAttributes(attrs)
	if err != nil {
		return err
	}
	b.subject = name
	return nil
}

// Subject returns the request subject.
func (b *Builder) Subject() pkix.Name {
	return b.subject
}

// SubjectAttributes returns the subject as attribute name to value
// pairs, regardless of how it was set.
func (b *Builder) SubjectAttributes() map[string]string {
	return AttributesFromName(b.subject)
}

// SetKeyID points the builder at a remote key and caches its public
// key. The lookup happens here so that a bad key reference surfaces at
// configuration time, not inside Build.
func (b *Builder) SetKeyID(ctx context.Context, keyID string) error {
	ki, err := b.remote.PublicKey(ctx, keyID)
	if err != nil {
		return errors.Mark(errors.WithMessagef(err, "unable to get public key: %s", keyID), ErrConfiguration)
	}
	if ki.KeyUsage != signKeyUsage {
		return configErrorf("key %s is not usable for signing: %s", keyID, ki.KeyUsage)
	}
	logger.KV(xlog.DEBUG, "key", keyID, "usage", ki.KeyUsage)

	b.keyID = keyID
	b.spki = ki.PublicKey
	return nil
}

// KeyID returns the configured remote key id.
func (b *Builder) KeyID() string {
	return b.keyID
}

// PublicKeyInfo returns the cached DER encoded SubjectPublicKeyInfo of
// the signing key.
func (b *Builder) PublicKeyInfo() []byte {
	return b.spki
}

// SetHashAlgo sets the hash algorithm used for signing.
func (b *Builder) SetHashAlgo(hash HashAlgo) error {
	if !hash.Valid() {
		return configErrorf("unsupported hash algorithm: %q", hash)
	}
	b.hash = hash
	return nil
}

// HashAlgo returns the configured hash algorithm.
func (b *Builder) HashAlgo() HashAlgo {
	return b.hash
}

// SetSignatureAlgo sets the signing algorithm preference. For RSA keys
// a preference naming a PSS scheme selects PSS padding; any other RSA
// preference selects PKCS#1 v1.5.
func (b *Builder) SetSignatureAlgo(algo SigningAlgo) error {
	if !algo.Valid() {
		return configErrorf("unsupported signing algorithm: %q", algo)
	}
	b.sigAlgo = algo
	if strings.Contains(string(algo), "PSS") {
		b.pad = paddingPSS
	} else {
		b.pad = paddingPKCS1
	}
	return nil
}

// SignatureAlgo returns the configured signing algorithm preference.
func (b *Builder) SignatureAlgo() SigningAlgo {
	return b.sigAlgo
}

// SetCA configures the request profile from the CA flag. nil clears
// basic constraints and leaves key usage alone; true or false writes
// basic constraints and overwrites both key usage and extended key
// usage, so call it before any manual key usage customization.
func (b *Builder) SetCA(ca *bool) {
	if ca == nil {
		b.extensions.basicConstraints = nil
		return
	}
	b.extensions.basicConstraints = &BasicConstraints{IsCA: *ca, MaxPathLen: -1}
	if *ca {
		b.extensions.keyUsage = x509.KeyUsageCertSign | x509.KeyUsageCRLSign
		b.extensions.extKeyUsage = []string{"ocsp_signing"}
	} else {
		b.extensions.keyUsage = x509.KeyUsageDigitalSignature | x509.KeyUsageKeyEncipherment
		b.extensions.extKeyUsage = []string{"client_auth", "server_auth"}
	}
}

// CA returns the CA flag, or nil when basic constraints are not
// requested.
func (b *Builder) CA() *bool {
	if b.extensions.basicConstraints == nil {
		return nil
	}
	ca := b.extensions.basicConstraints.IsCA
	return &ca
}

// SetSubjectAltDomains sets the DNS names of the subject alternative
// name extension.
func (b *Builder) SetSubjectAltDomains(domains []string) {
	b.extensions.altDomains = append([]string{}, domains...)
}

// SubjectAltDomains returns the configured DNS names.
func (b *Builder) SubjectAltDomains() []string {
	return append([]string{}, b.extensions.altDomains...)
}

// SetSubjectAltIPs sets the IP addresses of the subject alternative
// name extension.
func (b *Builder) SetSubjectAltIPs(ips []string) error {
	list := make([]net.IP, 0, len(ips))
	for _, s := range ips {
		ip := net.ParseIP(s)
		if ip == nil {
			return configErrorf("invalid IP address: %q", s)
		}
		list = append(list, ip)
	}
	b.extensions.altIPs = list
	return nil
}

// SubjectAltIPs returns the configured IP addresses.
func (b *Builder) SubjectAltIPs() []string {
	list := make([]string, 0, len(b.extensions.altIPs))
	for _, ip := range b.extensions.altIPs {
		list = append(list, ip.String())
	}
	return list
}

// SetKeyUsage sets the key usage extension from flag names.
func (b *Builder) SetKeyUsage(names []string) error {
	ku, err := keyUsageFromNames(names)
	if err != nil {
		return errors.Mark(err, ErrConfiguration)
	}
	b.extensions.keyUsage = ku
	return nil
}

// KeyUsage returns the configured key usage flag names, sorted.
func (b *Builder) KeyUsage() []string {
	var names []string
	for ku, name := range oid.KeyUsageName {
		if b.extensions.keyUsage&ku != 0 {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// SetExtendedKeyUsage sets the extended key usage extension from
// usage names.
func (b *Builder) SetExtendedKeyUsage(names []string) error {
	list, err := extKeyUsageNames(names)
	if err != nil {
		return errors.Mark(err, ErrConfiguration)
	}
	b.extensions.extKeyUsage = list
	return nil
}

// ExtendedKeyUsage returns the configured extended key usage names,
// sorted.
func (b *Builder) ExtendedKeyUsage() []string {
	return append([]string{}, b.extensions.extKeyUsage...)
}

// SetExtension sets an extension by canonical name or dotted OID
// string. The four special extensions require their typed values:
// *BasicConstraints for basic_constraints, and []string for
// subject_alt_name DNS names, key_usage flag names and
// extended_key_usage names; subject_alt_name replaces the whole
// extension, including any previously configured IP addresses. Any
// other identity takes a DER encoded extension value as []byte, or as
// a string prefixed with "hex:" or "base64:". A nil value removes the
// extension. On error the prior state is unchanged.
func (b *Builder) SetExtension(identity string, value any) error {
	// a well known extension addressed by its dotted OID routes the
	// same as its canonical name
	if name, ok := oid.ExtensionName[identity]; ok {
		identity = name
	}

	switch identity {
	case oid.ExtBasicConstraints:
		if value == nil {
			b.extensions.basicConstraints = nil
			return nil
		}
		bc, ok := value.(*BasicConstraints)
		if !ok {
			return encodingErrorf("basic_constraints requires *BasicConstraints, got %T", value)
		}
		b.extensions.basicConstraints = bc
		return nil

	case oid.ExtSubjectAltName:
		if value == nil {
			b.extensions.altDomains = nil
			b.extensions.altIPs = nil
			return nil
		}
		names, ok := value.([]string)
		if !ok {
			return encodingErrorf("subject_alt_name requires []string, got %T", value)
		}
		b.extensions.altIPs = nil
		b.SetSubjectAltDomains(names)
		return nil

	case oid.ExtKeyUsage:
		if value == nil {
			b.extensions.keyUsage = 0
			return nil
		}
		names, ok := value.([]string)
		if !ok {
			return encodingErrorf("key_usage requires []string, got %T", value)
		}
		return b.SetKeyUsage(names)

	case oid.ExtExtendedKeyUsage:
		if value == nil {
			b.extensions.extKeyUsage = nil
			return nil
		}
		names, ok := value.([]string)
		if !ok {
			return encodingErrorf("extended_key_usage requires []string, got %T", value)
		}
		return b.SetExtendedKeyUsage(names)
	}

	if _, ok := oid.ExtensionID[identity]; !ok {
		if _, err := ParseObjectIdentifier(identity); err != nil {
			return errors.Mark(errors.WithMessagef(err, "unknown extension identity: %q", identity), ErrConfiguration)
		}
	}
	if value == nil {
		delete(b.extensions.other, identity)
		return nil
	}
	der, err := extensionBytes(value)
	if err != nil {
		return err
	}
	b.extensions.other[identity] = der
	return nil
}

// extensionBytes decodes an open-region extension value and verifies
// it is a single well formed DER element.
func extensionBytes(value any) ([]byte, error) {
	var der []byte
	switch v := value.(type) {
	case []byte:
		der = v
	case string:
		var err error
		switch {
		case strings.HasPrefix(v, "hex:"):
			der, err = hex.DecodeString(strings.ReplaceAll(v[4:], " ", ""))
		case strings.HasPrefix(v, "base64:"):
			der, err = base64.StdEncoding.DecodeString(v[7:])
		default:
			return nil, encodingErrorf("extension string value requires hex: or base64: prefix")
		}
		if err != nil {
			return nil, errors.Mark(errors.WithMessage(err, "unable to decode extension value"), ErrEncoding)
		}
	default:
		return nil, encodingErrorf("extension value requires []byte or encoded string, got %T", value)
	}

	var raw asn1.RawValue
	rest, err := asn1.Unmarshal(der, &raw)
	if err != nil || len(rest) != 0 {
		return nil, encodingErrorf("extension value is not valid DER")
	}
	return der, nil
}
