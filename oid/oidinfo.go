package oid

import (
	"crypto/x509"
	"encoding/asn1"
)

// Canonical extension names, as used in extension requests and the
// criticality table.
const (
	ExtBasicConstraints           = "basic_constraints"
	ExtSubjectAltName             = "subject_alt_name"
	ExtKeyUsage                   = "key_usage"
	ExtExtendedKeyUsage           = "extended_key_usage"
	ExtSubjectDirectoryAttributes = "subject_directory_attributes"
	ExtIssuerAltName              = "issuer_alt_name"
	ExtNameConstraints            = "name_constraints"
	ExtCertificatePolicies        = "certificate_policies"
	ExtPolicyMappings             = "policy_mappings"
	ExtPolicyConstraints          = "policy_constraints"
	ExtInhibitAnyPolicy           = "inhibit_any_policy"
	ExtSubjectInformationAccess   = "subject_information_access"
	ExtTLSFeature                 = "tls_feature"
	ExtOCSPNoCheck                = "ocsp_no_check"
)

// well-known extension OIDs
var (
	ExtensionSubjectDirectoryAttributes = asn1.ObjectIdentifier{2, 5, 29, 9}
	ExtensionSubjectKeyID               = asn1.ObjectIdentifier{2, 5, 29, 14}
	ExtensionKeyUsage                   = asn1.ObjectIdentifier{2, 5, 29, 15}
	ExtensionSubjectAltName             = asn1.ObjectIdentifier{2, 5, 29, 17}
	ExtensionIssuerAltName              = asn1.ObjectIdentifier{2, 5, 29, 18}
	ExtensionBasicConstraints           = asn1.ObjectIdentifier{2, 5, 29, 19}
	ExtensionNameConstraints            = asn1.ObjectIdentifier{2, 5, 29, 30}
	ExtensionCRLDistributionPoints      = asn1.ObjectIdentifier{2, 5, 29, 31}
	ExtensionCertificatePolicies        = asn1.ObjectIdentifier{2, 5, 29, 32}
	ExtensionPolicyMappings             = asn1.ObjectIdentifier{2, 5, 29, 33}
	ExtensionPolicyConstraints          = asn1.ObjectIdentifier{2, 5, 29, 36}
	ExtensionExtendedKeyUsage           = asn1.ObjectIdentifier{2, 5, 29, 37}
	ExtensionInhibitAnyPolicy           = asn1.ObjectIdentifier{2, 5, 29, 54}
	ExtensionAuthorityInfoAccess        = asn1.ObjectIdentifier{1, 3, 6, 1, 5, 5, 7, 1, 1}
	ExtensionSubjectInfoAccess          = asn1.ObjectIdentifier{1, 3, 6, 1, 5, 5, 7, 1, 11}
	ExtensionTLSFeature                 = asn1.ObjectIdentifier{1, 3, 6, 1, 5, 5, 7, 1, 24}
	ExtensionOCSPNoCheck                = asn1.ObjectIdentifier{1, 3, 6, 1, 5, 5, 7, 48, 1, 5}
)

// ExtensionID maps canonical extension names to their OIDs.
var ExtensionID = map[string]asn1.ObjectIdentifier{
	ExtBasicConstraints:           ExtensionBasicConstraints,
	ExtSubjectAltName:             ExtensionSubjectAltName,
	ExtKeyUsage:                   ExtensionKeyUsage,
	ExtExtendedKeyUsage:           ExtensionExtendedKeyUsage,
	ExtSubjectDirectoryAttributes: ExtensionSubjectDirectoryAttributes,
	ExtIssuerAltName:              ExtensionIssuerAltName,
	ExtNameConstraints:            ExtensionNameConstraints,
	ExtCertificatePolicies:        ExtensionCertificatePolicies,
	ExtPolicyMappings:             ExtensionPolicyMappings,
	ExtPolicyConstraints:          ExtensionPolicyConstraints,
	ExtInhibitAnyPolicy:           ExtensionInhibitAnyPolicy,
	ExtSubjectInformationAccess:   ExtensionSubjectInfoAccess,
	ExtTLSFeature:                 ExtensionTLSFeature,
	ExtOCSPNoCheck:                ExtensionOCSPNoCheck,
}

// ExtensionName maps OID string values back to canonical names.
var ExtensionName = map[string]string{}

// KeyUsage contains a mapping of names to key usage flags,
// RFC 5280, 4.2.1.3.
var KeyUsage = map[string]x509.KeyUsage{
	"digital_signature": x509.KeyUsageDigitalSignature,
	"non_repudiation":   x509.KeyUsageContentCommitment,
	"key_encipherment":  x509.KeyUsageKeyEncipherment,
	"data_encipherment": x509.KeyUsageDataEncipherment,
	"key_agreement":     x509.KeyUsageKeyAgreement,
	"key_cert_sign":     x509.KeyUsageCertSign,
	"crl_sign":          x509.KeyUsageCRLSign,
	"encipher_only":     x509.KeyUsageEncipherOnly,
	"decipher_only":     x509.KeyUsageDecipherOnly,
}

// KeyUsageName provides map of names
var KeyUsageName = map[x509.KeyUsage]string{
	x509.KeyUsageDigitalSignature:  "digital_signature",
	x509.KeyUsageContentCommitment: "non_repudiation",
	x509.KeyUsageKeyEncipherment:   "key_encipherment",
	x509.KeyUsageDataEncipherment:  "data_encipherment",
	x509.KeyUsageKeyAgreement:      "key_agreement",
	x509.KeyUsageCertSign:          "key_cert_sign",
	x509.KeyUsageCRLSign:           "crl_sign",
	x509.KeyUsageEncipherOnly:      "encipher_only",
	x509.KeyUsageDecipherOnly:      "decipher_only",
}

// ExtKeyUsageOID contains a mapping of names to extended key usage
// OIDs, RFC 5280, 4.2.1.12.
var ExtKeyUsageOID = map[string]asn1.ObjectIdentifier{
	"any":              {2, 5, 29, 37, 0},
	"server_auth":      {1, 3, 6, 1, 5, 5, 7, 3, 1},
	"client_auth":      {1, 3, 6, 1, 5, 5, 7, 3, 2},
	"code_signing":     {1, 3, 6, 1, 5, 5, 7, 3, 3},
	"email_protection": {1, 3, 6, 1, 5, 5, 7, 3, 4},
	"ipsec_end_system": {1, 3, 6, 1, 5, 5, 7, 3, 5},
	"ipsec_tunnel":     {1, 3, 6, 1, 5, 5, 7, 3, 6},
	"ipsec_user":       {1, 3, 6, 1, 5, 5, 7, 3, 7},
	"time_stamping":    {1, 3, 6, 1, 5, 5, 7, 3, 8},
	"ocsp_signing":     {1, 3, 6, 1, 5, 5, 7, 3, 9},
	"microsoft_sgc":    {1, 3, 6, 1, 4, 1, 311, 10, 3, 3},
	"netscape_sgc":     {2, 16, 840, 1, 113730, 4, 1},
}

// ExtKeyUsageName maps extended key usage OID strings back to names.
var ExtKeyUsageName = map[string]string{}

func init() {
	for name, id := range ExtensionID {
		ExtensionName[id.String()] = name
	}
	for name, id := range ExtKeyUsageOID {
		ExtKeyUsageName[id.String()] = name
	}
}

// signature and digest algorithm OIDs
var (
	SignatureSHA1WithRSA     = asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 1, 5}
	SignatureSHA256WithRSA   = asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 1, 11}
	SignatureSHA384WithRSA   = asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 1, 12}
	SignatureSHA512WithRSA   = asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 1, 13}
	SignatureRSAPSS          = asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 1, 10}
	SignatureMGF1            = asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 1, 8}
	SignatureECDSAWithSHA1   = asn1.ObjectIdentifier{1, 2, 840, 10045, 4, 1}
	SignatureECDSAWithSHA256 = asn1.ObjectIdentifier{1, 2, 840, 10045, 4, 3, 2}
	SignatureECDSAWithSHA384 = asn1.ObjectIdentifier{1, 2, 840, 10045, 4, 3, 3}
	SignatureECDSAWithSHA512 = asn1.ObjectIdentifier{1, 2, 840, 10045, 4, 3, 4}

	DigestSHA1   = asn1.ObjectIdentifier{1, 3, 14, 3, 2, 26}
	DigestSHA256 = asn1.ObjectIdentifier{2, 16, 840, 1, 101, 3, 4, 2, 1}
	DigestSHA384 = asn1.ObjectIdentifier{2, 16, 840, 1, 101, 3, 4, 2, 2}
	DigestSHA512 = asn1.ObjectIdentifier{2, 16, 840, 1, 101, 3, 4, 2, 3}
)

// subject attribute OIDs
var (
	NameEmailAddress = asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 9, 1}
	NameCN           = asn1.ObjectIdentifier{2, 5, 4, 3}
	NameSerial       = asn1.ObjectIdentifier{2, 5, 4, 5}
	NameC            = asn1.ObjectIdentifier{2, 5, 4, 6}
	NameL            = asn1.ObjectIdentifier{2, 5, 4, 7}
	NameST           = asn1.ObjectIdentifier{2, 5, 4, 8}
	NameStreet       = asn1.ObjectIdentifier{2, 5, 4, 9}
	NameO            = asn1.ObjectIdentifier{2, 5, 4, 10}
	NameOU           = asn1.ObjectIdentifier{2, 5, 4, 11}
	NamePostal       = asn1.ObjectIdentifier{2, 5, 4, 17}
)

// DisplayName provides OID name
var DisplayName = map[string]string{
	"2.5.29.9":             "Subject Directory Attributes",
	"2.5.29.14":            "Subject KeyID",
	"2.5.29.15":            "Key Usage",
	"2.5.29.17":            "Subject Alt Name",
	"2.5.29.18":            "Issuer Alt Name",
	"2.5.29.19":            "Basic Constraints",
	"2.5.29.30":            "Name Constraints",
	"2.5.29.31":            "CRL Distribution Point",
	"2.5.29.32":            "Certificate Policies",
	"2.5.29.33":            "Policy Mappings",
	"2.5.29.36":            "Policy Constraints",
	"2.5.29.37":            "Extended KeyUsage",
	"2.5.29.54":            "Inhibit Any Policy",
	"1.3.6.1.5.5.7.1.1":    "Authority Info Access",
	"1.3.6.1.5.5.7.1.11":   "Subject Info Access",
	"1.3.6.1.5.5.7.1.24":   "TLS Feature",
	"1.3.6.1.5.5.7.48.1.5": "OCSP No Check",
}

// KeyUsages returns list of names set in the usage bits
func KeyUsages(ku x509.KeyUsage) []string {
	list := make([]string, 0, len(KeyUsage))

	for k, v := range KeyUsage {
		if ku&v == v {
			list = append(list, k)
		}
	}

	return list
}

// Strings returns list of OID string values
func Strings(ids ...asn1.ObjectIdentifier) []string {
	list := make([]string, 0, len(ids))

	for _, k := range ids {
		list = append(list, k.String())
	}

	return list
}
