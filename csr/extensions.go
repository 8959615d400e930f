package csr

import (
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/asn1"
	"net"
	"sort"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/kmscsr/oid"
)

// criticalExtension captures RFC 5280 and RFC 6960 SHOULD/MUST
// guidance on the criticality flag. Extensions not listed are
// requested non-critical. Kept as plain data so the policy stays
// auditable against the RFCs.
var criticalExtension = map[string]bool{
	oid.ExtSubjectDirectoryAttributes: false,
	oid.ExtKeyUsage:                   true,
	oid.ExtIssuerAltName:              false,
	// Based on example EV certificates, non-CA certs have this marked
	// as non-critical, most likely because existing browsers don't
	// seem to support policies or name constraints
	oid.ExtCertificatePolicies:      false,
	oid.ExtNameConstraints:          true,
	oid.ExtPolicyMappings:           true,
	oid.ExtPolicyConstraints:        true,
	oid.ExtExtendedKeyUsage:         false,
	oid.ExtInhibitAnyPolicy:         true,
	oid.ExtSubjectInformationAccess: false,
	oid.ExtTLSFeature:               false,
	oid.ExtOCSPNoCheck:              false,
}

// DetermineCritical returns the correct value of the critical flag
// for the named extension. subjectEmpty and ca supply the two context
// dependent rules: subject_alt_name is critical only when the subject
// is empty, and basic_constraints only for a CA request.
func DetermineCritical(name string, subjectEmpty, ca bool) bool {
	switch name {
	case oid.ExtSubjectAltName:
		return subjectEmpty
	case oid.ExtBasicConstraints:
		return ca
	}
	return criticalExtension[name]
}

// specialExtensions are kept in dedicated ExtensionSet fields and may
// only be mutated through their setters.
var specialExtensions = []string{
	oid.ExtBasicConstraints,
	oid.ExtSubjectAltName,
	oid.ExtKeyUsage,
	oid.ExtExtendedKeyUsage,
}

// ExtensionSet holds the X.509v3 extensions requested for the issued
// certificate. The four specially handled extensions live in dedicated
// fields; everything else lives in an open region keyed by canonical
// name, or by dotted OID for unknown identities, holding DER encoded
// extension values. An identity is never present in both regions.
type ExtensionSet struct {
	basicConstraints *BasicConstraints
	altDomains       []string
	altIPs           []net.IP
	keyUsage         x509.KeyUsage
	extKeyUsage      []string
	other            map[string][]byte
}

func newExtensionSet() ExtensionSet {
	return ExtensionSet{
		other: map[string][]byte{},
	}
}

// Empty returns true when no extension is requested.
func (e *ExtensionSet) Empty() bool {
	return e.basicConstraints == nil &&
		!e.hasSAN() &&
		e.keyUsage == 0 &&
		e.extKeyUsage == nil &&
		len(e.other) == 0
}

func (e *ExtensionSet) hasSAN() bool {
	return len(e.altDomains) > 0 || len(e.altIPs) > 0
}

func (e *ExtensionSet) isCA() bool {
	return e.basicConstraints != nil && e.basicConstraints.IsCA
}

// assemble returns the criticality annotated extension list in the
// canonical order: special extensions sorted by name, then the open
// region sorted by key. The order is fixed so repeated builds produce
// identical bytes.
func (e *ExtensionSet) assemble(subjectEmpty bool) ([]pkix.Extension, error) {
	var list []pkix.Extension

	specials := append([]string{}, specialExtensions...)
	sort.Strings(specials)
	for _, name := range specials {
		val, err := e.encodeSpecial(name)
		if err != nil {
			return nil, err
		}
		if val == nil {
			continue
		}
		list = append(list, pkix.Extension{
			Id:       oid.ExtensionID[name],
			Critical: DetermineCritical(name, subjectEmpty, e.isCA()),
			Value:    val,
		})
	}

	others := make([]string, 0, len(e.other))
	for name := range e.other {
		others = append(others, name)
	}
	sort.Strings(others)
	for _, name := range others {
		id, ok := oid.ExtensionID[name]
		if !ok {
			parsed, err := ParseObjectIdentifier(name)
			if err != nil {
				return nil, errors.WithMessagef(err, "extension %q", name)
			}
			id = parsed
		}
		list = append(list, pkix.Extension{
			Id:       id,
			Critical: DetermineCritical(name, subjectEmpty, e.isCA()),
			Value:    e.other[name],
		})
	}

	return list, nil
}

// encodeSpecial returns the DER extension value for a special
// extension, or nil when it is not requested.
func (e *ExtensionSet) encodeSpecial(name string) ([]byte, error) {
	switch name {
	case oid.ExtBasicConstraints:
		if e.basicConstraints == nil {
			return nil, nil
		}
		val, err := asn1.Marshal(*e.basicConstraints)
		if err != nil {
			return nil, errors.WithStack(err)
		}
		return val, nil

	case oid.ExtSubjectAltName:
		if !e.hasSAN() {
			return nil, nil
		}
		return marshalSAN(e.altDomains, e.altIPs)

	case oid.ExtKeyUsage:
		if e.keyUsage == 0 {
			return nil, nil
		}
		return marshalKeyUsage(e.keyUsage)

	case oid.ExtExtendedKeyUsage:
		if e.extKeyUsage == nil {
			return nil, nil
		}
		return marshalExtKeyUsage(e.extKeyUsage)
	}
	return nil, errors.Errorf("not a special extension: %q", name)
}

// marshalSAN encodes the GeneralNames sequence with dNSName and
// iPAddress entries, RFC 5280, 4.2.1.6.
func marshalSAN(domains []string, ips []net.IP) ([]byte, error) {
	var rawValues []asn1.RawValue
	for _, name := range domains {
		rawValues = append(rawValues, asn1.RawValue{
			Tag:   2,
			Class: asn1.ClassContextSpecific,
			Bytes: []byte(name),
		})
	}
	for _, ip := range ips {
		b := ip.To4()
		if b == nil {
			b = ip
		}
		rawValues = append(rawValues, asn1.RawValue{
			Tag:   7,
			Class: asn1.ClassContextSpecific,
			Bytes: b,
		})
	}
	val, err := asn1.Marshal(rawValues)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return val, nil
}

func marshalKeyUsage(ku x509.KeyUsage) ([]byte, error) {
	var a [2]byte
	a[0] = reverseBitsInAByte(byte(ku))
	a[1] = reverseBitsInAByte(byte(ku >> 8))

	l := 1
	if a[1] != 0 {
		l = 2
	}
	bitString := a[:l]
	val, err := asn1.Marshal(asn1.BitString{
		Bytes:     bitString,
		BitLength: asn1BitLength(bitString),
	})
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return val, nil
}

func marshalExtKeyUsage(names []string) ([]byte, error) {
	ids := make([]asn1.ObjectIdentifier, 0, len(names))
	for _, n := range names {
		id, ok := oid.ExtKeyUsageOID[n]
		if !ok {
			return nil, errors.Errorf("unknown extended key usage: %q", n)
		}
		ids = append(ids, id)
	}
	val, err := asn1.Marshal(ids)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return val, nil
}

func reverseBitsInAByte(in byte) byte {
	b1 := in>>4 | in<<4
	b2 := b1>>2&0x33 | b1<<2&0xcc
	b3 := b2>>1&0x55 | b2<<1&0xaa
	return b3
}

// asn1BitLength returns the bit-length of bitString by considering the
// most significant bit of a byte to be the "first" bit.
func asn1BitLength(bitString []byte) int {
	bitLen := len(bitString) * 8

	for i := range bitString {
		b := bitString[len(bitString)-i-1]

		for bit := uint(0); bit < 8; bit++ {
			if (b>>bit)&1 == 1 {
				return bitLen
			}
			bitLen--
		}
	}

	return 0
}

func keyUsageFromNames(names []string) (x509.KeyUsage, error) {
	var ku x509.KeyUsage
	for _, n := range names {
		v, ok := oid.KeyUsage[n]
		if !ok {
			return 0, errors.Errorf("unknown key usage: %q", n)
		}
		ku |= v
	}
	return ku, nil
}

// extKeyUsageNames validates and sorts extended key usage names. An
// empty list comes back nil, which drops the extension entirely; an
// EKU extension with no KeyPurposeId is not valid per RFC 5280.
func extKeyUsageNames(names []string) ([]string, error) {
	if len(names) == 0 {
		return nil, nil
	}
	list := make([]string, 0, len(names))
	for _, n := range names {
		if _, ok := oid.ExtKeyUsageOID[n]; !ok {
			return nil, errors.Errorf("unknown extended key usage: %q", n)
		}
		list = append(list, n)
	}
	sort.Strings(list)
	return list, nil
}
