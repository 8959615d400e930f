package cli

import (
	"crypto/x509"
	"crypto/x509/pkix"
	"os"

	"github.com/effective-security/kmscsr/certutil"
	"github.com/effective-security/kmscsr/csr"
	"github.com/effective-security/kmscsr/x/ctl"
	"github.com/pkg/errors"
)

// CsrCmd is the parent for CSR command
type CsrCmd struct {
	Create CsrCreateCmd `cmd:"" help:"create certificate request"`
}

// CsrCreateCmd specifies flags for Create command
type CsrCreateCmd struct {
	CsrProfile string   `required:"" help:"file name with CSR profile"`
	KeyID      string   `required:"" help:"id of the signing key"`
	CA         *bool    `help:"override the CA flag of the profile"`
	San        []string `help:"override Subject Alt Names"`
	Output     string   `help:"the optional prefix for output files; if not set, the output will be printed to STDOUT only"`
}

// Run the command
func (a *CsrCreateCmd) Run(ctx *Cli) error {
	if err := ctl.FileExists(a.CsrProfile); err != nil {
		return errors.WithMessage(err, "read CSR profile")
	}

	req, err := csr.LoadCertificateRequest(a.CsrProfile)
	if err != nil {
		return errors.WithMessage(err, "invalid CSR profile")
	}
	if len(a.San) > 0 {
		req.SAN = a.San
	}
	if a.CA != nil {
		req.CA = a.CA
	}

	b, err := csr.NewBuilder(ctx.Context(), ctx.Remote(), pkix.Name{}, a.KeyID)
	if err != nil {
		return errors.WithMessage(err, "create request builder")
	}
	if err := req.Apply(b); err != nil {
		return errors.WithMessage(err, "apply CSR profile")
	}

	signed, err := b.Build(ctx.Context(), a.KeyID)
	if err != nil {
		return errors.WithMessage(err, "process CSR")
	}
	csrPEM := signed.EncodeToPEM()

	pub, err := x509.ParsePKIXPublicKey(b.PublicKeyInfo())
	if err != nil {
		return errors.WithMessage(err, "parse public key")
	}
	pubPEM, err := certutil.EncodePublicKeyToPEM(pub)
	if err != nil {
		return err
	}

	if a.Output == "" {
		ctl.WriteCSR(ctx.Writer(), csrPEM, pubPEM)
	} else {
		err = saveCSR(a.Output, csrPEM, pubPEM)
		if err != nil {
			return errors.WithMessagef(err, "unable to save generated files")
		}
	}

	return nil
}

// saveCSR to files with the given prefix
func saveCSR(baseName string, csrPEM, pubPEM []byte) error {
	var err error
	if len(csrPEM) > 0 {
		err = os.WriteFile(baseName+".csr", csrPEM, 0664)
		if err != nil {
			return errors.WithStack(err)
		}
	}
	if len(pubPEM) > 0 {
		err = os.WriteFile(baseName+".pub", pubPEM, 0664)
		if err != nil {
			return errors.WithStack(err)
		}
	}
	return nil
}
