package csr

import (
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"net"
	"os"
	"strings"

	"github.com/cockroachdb/errors"
	"gopkg.in/yaml.v3"
)

// X509Extension is a JSON/YAML representation of a raw request
// extension. Value holds the DER encoded extension value, either
// base64 encoded or prefixed with "hex:" or "base64:".
type X509Extension struct {
	ID    OID    `json:"id" yaml:"id"`
	Value string `json:"value" yaml:"value"`
}

// GetValue returns the DER encoded extension value.
func (ext X509Extension) GetValue() ([]byte, error) {
	var err error
	var val []byte
	if strings.HasPrefix(ext.Value, "hex:") {
		val, err = hex.DecodeString(strings.ReplaceAll(ext.Value[4:], " ", ""))
	} else if strings.HasPrefix(ext.Value, "base64:") {
		val, err = base64.StdEncoding.DecodeString(ext.Value[7:])
	} else {
		val, err = base64.StdEncoding.DecodeString(ext.Value)
	}
	if err != nil {
		return nil, errors.WithMessage(err, "unable to decode extension")
	}
	return val, nil
}

// CertificateRequest is a declarative request profile, loadable from a
// YAML or JSON file by the CLI.
type CertificateRequest struct {
	// Subject holds subject attribute name to value pairs.
	Subject map[string]string `json:"subject,omitempty" yaml:"subject,omitempty"`

	// SAN holds DNS names and IP addresses of the subject alternative
	// name extension.
	SAN []string `json:"san,omitempty" yaml:"san,omitempty"`

	// CA requests a CA profile when set; nil leaves basic constraints
	// out.
	CA *bool `json:"ca,omitempty" yaml:"ca,omitempty"`

	// Hash is the hash algorithm, sha256 when empty.
	Hash HashAlgo `json:"hash,omitempty" yaml:"hash,omitempty"`

	// SignatureAlgo is the signing algorithm preference.
	SignatureAlgo SigningAlgo `json:"signature_algo,omitempty" yaml:"signature_algo,omitempty"`

	// KeyUsage lists key usage flag names.
	KeyUsage []string `json:"key_usage,omitempty" yaml:"key_usage,omitempty"`

	// ExtKeyUsage lists extended key usage names.
	ExtKeyUsage []string `json:"ext_key_usage,omitempty" yaml:"ext_key_usage,omitempty"`

	// Extensions lists raw extensions by OID.
	Extensions []X509Extension `json:"extensions,omitempty" yaml:"extensions,omitempty"`
}

// LoadCertificateRequest loads a request profile from a YAML or JSON
// file, by extension.
func LoadCertificateRequest(file string) (*CertificateRequest, error) {
	raw, err := os.ReadFile(file)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	var req CertificateRequest
	if strings.HasSuffix(file, ".json") {
		err = json.Unmarshal(raw, &req)
	} else {
		err = yaml.Unmarshal(raw, &req)
	}
	if err != nil {
		return nil, errors.WithMessagef(err, "unable to parse request profile: %s", file)
	}
	return &req, nil
}

// Apply configures the builder from the profile. The CA flag is
// applied before key usage so that explicit usage lists override the
// profile the flag derives.
func (req *CertificateRequest) Apply(b *Builder) error {
	if req.Subject != nil {
		if err := b.SetSubjectAttributes(req.Subject); err != nil {
			return err
		}
	}
	if req.Hash != "" {
		if err := b.SetHashAlgo(req.Hash); err != nil {
			return err
		}
	}
	if req.SignatureAlgo != "" {
		if err := b.SetSignatureAlgo(req.SignatureAlgo); err != nil {
			return err
		}
	}
	b.SetCA(req.CA)

	if len(req.SAN) > 0 {
		domains, ips := splitSAN(req.SAN)
		b.SetSubjectAltDomains(domains)
		if err := b.SetSubjectAltIPs(ips); err != nil {
			return err
		}
	}
	if req.KeyUsage != nil {
		if err := b.SetKeyUsage(req.KeyUsage); err != nil {
			return err
		}
	}
	if req.ExtKeyUsage != nil {
		if err := b.SetExtendedKeyUsage(req.ExtKeyUsage); err != nil {
			return err
		}
	}
	for _, ext := range req.Extensions {
		val, err := ext.GetValue()
		if err != nil {
			return errors.Mark(err, ErrEncoding)
		}
		if err := b.SetExtension(ext.ID.String(), val); err != nil {
			return err
		}
	}
	return nil
}

// splitSAN separates a mixed SAN list into DNS names and IP address
// strings.
func splitSAN(san []string) (domains, ips []string) {
	for _, s := range san {
		if net.ParseIP(s) != nil {
			ips = append(ips, s)
		} else {
			domains = append(domains, s)
		}
	}
	return
}
