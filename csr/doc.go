// Package csr builds PKCS#10 Certificate Signing Requests whose
// private key never leaves a remote signing service.
//
// The Builder assembles the subject, the remote key's public key info
// and the requested X.509v3 extensions into a deterministic
// CertificationRequestInfo, negotiates a signature algorithm against
// the algorithms the remote key reports, and asks the remote service
// to sign the exact serialized bytes. Extension criticality follows
// RFC 5280 and RFC 6960 guidance and is not configurable.
//
// The remote service is abstracted by the Remote interface; the awskms
// package provides an AWS KMS backed implementation.
package csr
