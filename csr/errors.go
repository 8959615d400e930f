package csr

import "github.com/cockroachdb/errors"

// Error classes returned by the Builder. Use errors.Is to classify a
// returned error.
var (
	// ErrConfiguration indicates an invalid value passed to a mutator,
	// or a remote key that cannot be used for signing.
	ErrConfiguration = errors.New("invalid configuration")

	// ErrEncoding indicates an extension value that does not match the
	// shape expected for its identity.
	ErrEncoding = errors.New("invalid extension value")

	// ErrRemoteService indicates a failed lookup or sign call on the
	// remote signing service.
	ErrRemoteService = errors.New("remote service failure")
)

func configErrorf(format string, args ...any) error {
	return errors.Mark(errors.Newf(format, args...), ErrConfiguration)
}

func encodingErrorf(format string, args ...any) error {
	return errors.Mark(errors.Newf(format, args...), ErrEncoding)
}

func remoteError(err error, msg string) error {
	return errors.Mark(errors.WithMessage(err, msg), ErrRemoteService)
}
