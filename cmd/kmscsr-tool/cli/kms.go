package cli

import (
	"crypto/x509"

	"github.com/effective-security/kmscsr/certutil"
	"github.com/pkg/errors"
)

// KmsCmd is the parent for KMS command
type KmsCmd struct {
	Info KmsInfoCmd `cmd:"" help:"print signing key information"`
}

// KmsInfoCmd specifies flags for Info command
type KmsInfoCmd struct {
	KeyID  string `required:"" help:"id of the key"`
	Public bool   `help:"include PEM encoded public key"`
}

// KeyInfoResult is the output of the Info command
type KeyInfoResult struct {
	ID                string   `json:"id"`
	Usage             string   `json:"usage"`
	SigningAlgorithms []string `json:"signing_algorithms"`
	PublicKey         string   `json:"public_key,omitempty"`
}

// Run the command
func (a *KmsInfoCmd) Run(ctx *Cli) error {
	remote := ctx.Remote()

	ki, err := remote.PublicKey(ctx.Context(), a.KeyID)
	if err != nil {
		return errors.WithMessage(err, "unable to get key")
	}
	algos, err := remote.SigningAlgorithms(ctx.Context(), a.KeyID)
	if err != nil {
		return errors.WithMessage(err, "unable to describe key")
	}

	res := KeyInfoResult{
		ID:                ki.KeyID,
		Usage:             ki.KeyUsage,
		SigningAlgorithms: algos,
	}
	if a.Public {
		pub, err := x509.ParsePKIXPublicKey(ki.PublicKey)
		if err != nil {
			return errors.WithMessage(err, "parse public key")
		}
		pem, err := certutil.EncodePublicKeyToPEM(pub)
		if err != nil {
			return err
		}
		res.PublicKey = string(pem)
	}

	return ctx.WriteJSON(res)
}
