// Package ctl provides common helpers for kong based CLI tools.
package ctl

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/alecthomas/kong"
	"github.com/effective-security/x/values"
	"github.com/pkg/errors"
	"github.com/ugorji/go/codec"
)

// VersionFlag is a flag to print version
type VersionFlag string

// Decode the flag
func (v VersionFlag) Decode(ctx *kong.DecodeContext) error { return nil }

// IsBool returns true for the flag
func (v VersionFlag) IsBool() bool { return true }

// BeforeApply is executed before context is applied
func (v VersionFlag) BeforeApply(app *kong.Kong, vars kong.Vars) error {
	fmt.Fprintln(app.Stdout, values.StringsCoalesce(vars["version"], string(v)))
	app.Exit(0)
	return nil
}

var (
	// jsonEncPPHandle is used to encode json with a human readable pretty printed out put, as well as
	// line breaks/indents, fields are serialized in a canonical order everytime
	jsonEncPPHandle codec.JsonHandle
)

func init() {
	jsonEncPPHandle.BasicHandle.EncodeOptions.Canonical = true
	jsonEncPPHandle.Indent = -1
}

var newLine = []byte("\n")

// WriteJSON prints response to out
func WriteJSON(out io.Writer, value interface{}) error {
	var json []byte
	err := codec.NewEncoderBytes(&json, &jsonEncPPHandle).Encode(value)
	if err != nil {
		return errors.WithMessage(err, "failed to encode")
	}

	_, _ = out.Write(json)
	_, _ = out.Write(newLine)

	return nil
}

// FileExists checks that the path exists and is a regular file
func FileExists(path string) error {
	if path == "" {
		return errors.New("empty file name")
	}
	fi, err := os.Stat(path)
	if err != nil {
		return errors.WithStack(err)
	}
	if fi.IsDir() {
		return errors.Errorf("not a file: %s", path)
	}
	return nil
}

// WriteCSR outputs a csr with the signing key's public key
func WriteCSR(w io.Writer, csrBytes, pubKey []byte) {
	out := map[string]string{}
	if csrBytes != nil {
		out["csr"] = string(csrBytes)
	}

	if pubKey != nil {
		out["public_key"] = string(pubKey)
	}

	jsonOut, _ := json.Marshal(out)
	fmt.Fprintln(w, string(jsonOut))
}
