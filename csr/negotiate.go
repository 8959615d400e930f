package csr

import (
	"crypto/x509/pkix"
	"encoding/asn1"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/kmscsr/oid"
)

// SigningProfile is the outcome of negotiating the configured hash
// and padding preference against the algorithms the remote key
// supports.
type SigningProfile struct {
	// AlgorithmID is placed in both signatureAlgorithm fields of the
	// request.
	AlgorithmID pkix.AlgorithmIdentifier

	// RemoteAlgo is the algorithm name passed to the remote Sign call.
	RemoteAlgo SigningAlgo
}

// pssParameters reflects the parameters in an AlgorithmIdentifier that
// specifies RSA PSS, RFC 4055, 3.1.
type pssParameters struct {
	Hash         pkix.AlgorithmIdentifier `asn1:"explicit,tag:0"`
	MGF          pkix.AlgorithmIdentifier `asn1:"explicit,tag:1"`
	SaltLength   int                      `asn1:"explicit,tag:2"`
	TrailerField int                      `asn1:"optional,explicit,tag:3,default:1"`
}

var asn1Null = asn1.RawValue{FullBytes: []byte{asn1.TagNull, 0}}

// negotiateProfile picks the signature algorithm for the request. The
// key type comes from the remote algorithm list: any RSASSA_PSS_*
// entry marks an RSA key, otherwise any ECDSA_* entry marks an EC key.
// For RSA keys the configured preference decides between PSS and
// PKCS#1 v1.5 padding.
func negotiateProfile(hash HashAlgo, pad padding, remoteAlgos []string) (*SigningProfile, error) {
	width := hash.width()
	if width == "" {
		return nil, configErrorf("no remote signing algorithm for hash %q", hash)
	}

	rsa := false
	ec := false
	for _, a := range remoteAlgos {
		if strings.HasPrefix(a, "RSASSA_PSS_") {
			rsa = true
		}
		if strings.HasPrefix(a, "ECDSA_") {
			ec = true
		}
	}

	switch {
	case rsa:
		if pad == paddingPSS {
			params, err := marshalPSSParameters(hash)
			if err != nil {
				return nil, err
			}
			return &SigningProfile{
				AlgorithmID: pkix.AlgorithmIdentifier{
					Algorithm:  oid.SignatureRSAPSS,
					Parameters: params,
				},
				RemoteAlgo: SigningAlgo("RSASSA_PSS_SHA_" + width),
			}, nil
		}
		return &SigningProfile{
			AlgorithmID: pkix.AlgorithmIdentifier{
				Algorithm:  rsaPKCS1OID(hash),
				Parameters: asn1Null,
			},
			RemoteAlgo: SigningAlgo("RSASSA_PKCS1_V1_5_SHA_" + width),
		}, nil

	case ec:
		return &SigningProfile{
			AlgorithmID: pkix.AlgorithmIdentifier{
				Algorithm: ecdsaOID(hash),
			},
			RemoteAlgo: SigningAlgo("ECDSA_SHA_" + width),
		}, nil
	}

	return nil, configErrorf("key supports neither RSA nor ECDSA signing: %v", remoteAlgos)
}

// marshalPSSParameters encodes the RSASSA-PSS parameter set with MGF1
// over the same hash and the salt length equal to the hash size.
func marshalPSSParameters(hash HashAlgo) (asn1.RawValue, error) {
	hashID := pkix.AlgorithmIdentifier{
		Algorithm:  digestOID(hash),
		Parameters: asn1Null,
	}
	mgfDER, err := asn1.Marshal(hashID)
	if err != nil {
		return asn1.RawValue{}, errors.WithStack(err)
	}
	params := pssParameters{
		Hash: hashID,
		MGF: pkix.AlgorithmIdentifier{
			Algorithm:  oid.SignatureMGF1,
			Parameters: asn1.RawValue{FullBytes: mgfDER},
		},
		SaltLength:   hash.Size(),
		TrailerField: 1,
	}
	der, err := asn1.Marshal(params)
	if err != nil {
		return asn1.RawValue{}, errors.WithStack(err)
	}
	return asn1.RawValue{FullBytes: der}, nil
}

func digestOID(hash HashAlgo) asn1.ObjectIdentifier {
	switch hash {
	case SHA256:
		return oid.DigestSHA256
	case SHA512:
		return oid.DigestSHA512
	}
	return oid.DigestSHA1
}

func rsaPKCS1OID(hash HashAlgo) asn1.ObjectIdentifier {
	switch hash {
	case SHA256:
		return oid.SignatureSHA256WithRSA
	case SHA512:
		return oid.SignatureSHA512WithRSA
	}
	return oid.SignatureSHA1WithRSA
}

func ecdsaOID(hash HashAlgo) asn1.ObjectIdentifier {
	switch hash {
	case SHA256:
		return oid.SignatureECDSAWithSHA256
	case SHA512:
		return oid.SignatureECDSAWithSHA512
	}
	return oid.SignatureECDSAWithSHA1
}
