package csr

import (
	"context"
	"crypto/x509/pkix"
	"encoding/asn1"
	"encoding/pem"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/kmscsr/metricskey"
	"github.com/effective-security/xlog"
)

// extensionRequest is the PKCS#9 attribute carrying the requested
// extensions, RFC 2985.
var extensionRequestOID = asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 9, 14}

type certificationRequestInfo struct {
	Raw        asn1.RawContent
	Version    int
	Subject    asn1.RawValue
	PublicKey  asn1.RawValue
	Attributes []asn1.RawValue `asn1:"tag:0"`
}

type certificationRequest struct {
	Raw                asn1.RawContent
	TBSCSR             asn1.RawValue
	SignatureAlgorithm pkix.AlgorithmIdentifier
	SignatureValue     asn1.BitString
}

type extensionAttribute struct {
	Type   asn1.ObjectIdentifier
	Values [][]pkix.Extension `asn1:"set"`
}

// CertificationRequest is a built, signed PKCS#10 request.
type CertificationRequest struct {
	// Raw is the complete DER encoded CertificationRequest.
	Raw []byte

	// RawTBS is the DER encoded CertificationRequestInfo, the exact
	// bytes the remote service signed.
	RawTBS []byte

	// SignatureAlgorithm identifies the negotiated signature scheme.
	SignatureAlgorithm pkix.AlgorithmIdentifier

	// Signature is the raw signature over RawTBS.
	Signature []byte

	// RemoteAlgo is the remote algorithm name used to sign.
	RemoteAlgo SigningAlgo
}

// EncodeToPEM returns the request in PEM armor.
func (r *CertificationRequest) EncodeToPEM() []byte {
	return pem.EncodeToMemory(&pem.Block{
		Type:  "CERTIFICATE REQUEST",
		Bytes: r.Raw,
	})
}

// Build negotiates the signature algorithm against the key's supported
// list, serializes the CertificationRequestInfo, and has the remote
// service sign the exact serialized bytes. The same configuration
// always serializes to identical to-be-signed bytes; remote failures
// are returned as ErrRemoteService with no partial result.
func (b *Builder) Build(ctx context.Context, keyID string) (*CertificationRequest, error) {
	defer metricskey.PerfCsrBuild.MeasureSince(time.Now(), "kms")

	remoteAlgos, err := b.remote.SigningAlgorithms(ctx, keyID)
	if err != nil {
		return nil, remoteError(err, "unable to describe key: "+keyID)
	}

	profile, err := negotiateProfile(b.hash, b.pad, remoteAlgos)
	if err != nil {
		return nil, err
	}

	tbs, err := b.marshalTBS()
	if err != nil {
		return nil, err
	}

	logger.KV(xlog.DEBUG, "key", keyID, "algorithm", profile.RemoteAlgo, "tbs_size", len(tbs))

	sig, err := b.remote.Sign(ctx, keyID, string(profile.RemoteAlgo), tbs)
	if err != nil {
		return nil, remoteError(err, "unable to sign request with key: "+keyID)
	}

	raw, err := asn1.Marshal(certificationRequest{
		TBSCSR:             asn1.RawValue{FullBytes: tbs},
		SignatureAlgorithm: profile.AlgorithmID,
		SignatureValue: asn1.BitString{
			Bytes:     sig,
			BitLength: len(sig) * 8,
		},
	})
	if err != nil {
		return nil, errors.WithStack(err)
	}

	return &CertificationRequest{
		Raw:                raw,
		RawTBS:             tbs,
		SignatureAlgorithm: profile.AlgorithmID,
		Signature:          sig,
		RemoteAlgo:         profile.RemoteAlgo,
	}, nil
}

// marshalTBS serializes the CertificationRequestInfo: version 0, the
// subject RDN sequence, the cached SubjectPublicKeyInfo and, when any
// extension is requested, the single extensionRequest attribute.
func (b *Builder) marshalTBS() ([]byte, error) {
	if len(b.spki) == 0 {
		return nil, configErrorf("no signing key configured")
	}

	subjectDER, err := asn1.Marshal(b.subject.ToRDNSequence())
	if err != nil {
		return nil, errors.WithStack(err)
	}

	var attributes []asn1.RawValue
	if !b.extensions.Empty() {
		exts, err := b.extensions.assemble(len(subjectDER) <= emptyRDNSequenceLen)
		if err != nil {
			return nil, errors.Mark(err, ErrEncoding)
		}
		attrDER, err := asn1.Marshal(extensionAttribute{
			Type:   extensionRequestOID,
			Values: [][]pkix.Extension{exts},
		})
		if err != nil {
			return nil, errors.WithStack(err)
		}
		attributes = append(attributes, asn1.RawValue{FullBytes: attrDER})
	}

	tbs, err := asn1.Marshal(certificationRequestInfo{
		Version:    0,
		Subject:    asn1.RawValue{FullBytes: subjectDER},
		PublicKey:  asn1.RawValue{FullBytes: b.spki},
		Attributes: attributes,
	})
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return tbs, nil
}

// emptyRDNSequenceLen is the size of a DER encoded RDNSequence with no
// relative distinguished names, 0x30 0x00.
const emptyRDNSequenceLen = 2
