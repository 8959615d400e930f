package csr

import (
	"crypto/x509/pkix"

	"github.com/effective-security/kmscsr/oid"
)

// Subject attribute names accepted by NameFromAttributes.
const (
	AttrCommonName             = "common_name"
	AttrCountryName            = "country_name"
	AttrStateOrProvinceName    = "state_or_province_name"
	AttrLocalityName           = "locality_name"
	AttrOrganizationName       = "organization_name"
	AttrOrganizationalUnitName = "organizational_unit_name"
	AttrStreetAddress          = "street_address"
	AttrPostalCode             = "postal_code"
	AttrSerialNumber           = "serial_number"
	AttrEmailAddress           = "email_address"
)

// NameFromAttributes builds a pkix.Name from attribute name to value
// pairs. Unknown attribute names are rejected.
func NameFromAttributes(attrs map[string]string) (pkix.Name, error) {
	var name pkix.Name
	for k, v := range attrs {
		switch k {
		case AttrCommonName:
			name.CommonName = v
		case AttrCountryName:
			name.Country = append(name.Country, v)
		case AttrStateOrProvinceName:
			name.Province = append(name.Province, v)
		case AttrLocalityName:
			name.Locality = append(name.Locality, v)
		case AttrOrganizationName:
			name.Organization = append(name.Organization, v)
		case AttrOrganizationalUnitName:
			name.OrganizationalUnit = append(name.OrganizationalUnit, v)
		case AttrStreetAddress:
			name.StreetAddress = append(name.StreetAddress, v)
		case AttrPostalCode:
			name.PostalCode = append(name.PostalCode, v)
		case AttrSerialNumber:
			name.SerialNumber = v
		case AttrEmailAddress:
			name.ExtraNames = append(name.ExtraNames, pkix.AttributeTypeAndValue{
				Type:  oid.NameEmailAddress,
				Value: v,
			})
		default:
			return pkix.Name{}, configErrorf("unknown subject attribute: %q", k)
		}
	}
	return name, nil
}

// AttributesFromName returns the attribute mapping for the name, so
// that a subject set from either form reads back uniformly.
func AttributesFromName(name pkix.Name) map[string]string {
	attrs := map[string]string{}
	set := func(k, v string) {
		if v != "" {
			attrs[k] = v
		}
	}
	first := func(list []string) string {
		if len(list) > 0 {
			return list[0]
		}
		return ""
	}

	set(AttrCommonName, name.CommonName)
	set(AttrCountryName, first(name.Country))
	set(AttrStateOrProvinceName, first(name.Province))
	set(AttrLocalityName, first(name.Locality))
	set(AttrOrganizationName, first(name.Organization))
	set(AttrOrganizationalUnitName, first(name.OrganizationalUnit))
	set(AttrStreetAddress, first(name.StreetAddress))
	set(AttrPostalCode, first(name.PostalCode))
	set(AttrSerialNumber, name.SerialNumber)

	for _, atv := range name.ExtraNames {
		if atv.Type.Equal(oid.NameEmailAddress) {
			if v, ok := atv.Value.(string); ok {
				set(AttrEmailAddress, v)
			}
		}
	}
	return attrs
}
