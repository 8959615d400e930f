package cli

import (
	"bytes"
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"os"

	"github.com/alecthomas/kong"
	"github.com/effective-security/kmscsr/csr"
	"github.com/effective-security/kmscsr/x/ctl"
	"github.com/stretchr/testify/suite"
)

type stubRemote struct {
	spki      []byte
	usage     string
	algos     []string
	signature []byte

	err error
}

func (s *stubRemote) PublicKey(_ context.Context, keyID string) (*csr.KeyInfo, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &csr.KeyInfo{KeyID: keyID, PublicKey: s.spki, KeyUsage: s.usage}, nil
}

func (s *stubRemote) SigningAlgorithms(_ context.Context, _ string) ([]string, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.algos, nil
}

func (s *stubRemote) Sign(_ context.Context, _, _ string, _ []byte) ([]byte, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.signature, nil
}

type testSuite struct {
	suite.Suite

	ctl    *Cli
	tmpdir string
	// Out is the output buffer
	Out bytes.Buffer
}

func (s *testSuite) SetupTest() {
	s.Out.Reset()
	s.tmpdir = s.T().TempDir()
	s.ctl = &Cli{}

	s.ctl.WithErrWriter(&s.Out).
		WithWriter(&s.Out).
		WithRemote(s.ecRemote())

	parser, err := kong.New(s.ctl,
		kong.Name("kmscsr-tool"),
		kong.Description("CLI tool for KMS backed certificate requests"),
		kong.Writers(&s.Out, &s.Out),
		ctl.BoolPtrMapper,
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
		}),
		kong.Vars{})
	if err != nil {
		s.FailNow("unexpected error constructing Kong: %+v", err)
	}

	_, err = parser.Parse([]string{})
	if err != nil {
		s.FailNow("unexpected error parsing: %+v", err)
	}
}

func (s *testSuite) TearDownTest() {
}

func (s *testSuite) ecRemote() *stubRemote {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	s.Require().NoError(err)
	spki, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	s.Require().NoError(err)

	return &stubRemote{
		spki:      spki,
		usage:     "SIGN_VERIFY",
		algos:     []string{"ECDSA_SHA_256", "ECDSA_SHA_384", "ECDSA_SHA_512"},
		signature: bytes.Repeat([]byte{0x5a}, 70),
	}
}

// HasText is a helper method to assert that the out stream contains the supplied
// text somewhere
func (s *testSuite) HasText(texts ...string) {
	outStr := s.Out.String()
	for _, t := range texts {
		s.Contains(outStr, t)
	}
}

// HasTextInFile is a helper method to assert that the file contains the supplied
// text somewhere
func (s *testSuite) HasTextInFile(file string, texts ...string) {
	f, err := os.ReadFile(file)
	s.Require().NoError(err)

	outStr := string(f)
	for _, t := range texts {
		s.Contains(outStr, t)
	}
}
