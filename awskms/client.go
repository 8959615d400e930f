// Package awskms implements the remote signing contract of the csr
// package on top of AWS KMS.
package awskms

import (
	"context"
	"os"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/kms"
	"github.com/aws/aws-sdk-go-v2/service/kms/types"
	"github.com/cockroachdb/errors"
	"github.com/effective-security/kmscsr/csr"
	"github.com/effective-security/kmscsr/metricskey"
	"github.com/effective-security/xlog"
)

var logger = xlog.NewPackageLogger("github.com/effective-security/kmscsr", "awskms")

// ProviderName specifies a provider name
const ProviderName = "AWSKMS"

// KmsClient interface
type KmsClient interface {
	DescribeKey(context.Context, *kms.DescribeKeyInput, ...func(*kms.Options)) (*kms.DescribeKeyOutput, error)
	GetPublicKey(context.Context, *kms.GetPublicKeyInput, ...func(*kms.Options)) (*kms.GetPublicKeyOutput, error)
	Sign(context.Context, *kms.SignInput, ...func(*kms.Options)) (*kms.SignOutput, error)
}

// KmsClientFactory override for unittest
var KmsClientFactory = func(cfg aws.Config, optFns ...func(*kms.Options)) KmsClient {
	return kms.NewFromConfig(cfg, optFns...)
}

// Client provides the csr.Remote operations over AWS KMS. A Client is
// initialized once and safe for concurrent use.
type Client struct {
	kmsClient KmsClient
	endpoint  string
	region    string
}

// New returns a Client for the configured region and endpoint. Static
// credentials are taken from the environment when present.
func New(ctx context.Context, cfg *Config) (*Client, error) {
	c := &Client{
		endpoint: cfg.Endpoint,
		region:   cfg.Region,
	}

	var awsops []func(*awsconfig.LoadOptions) error

	if c.region != "" {
		awsops = append(awsops, awsconfig.WithRegion(c.region))
	}
	if c.endpoint != "" {
		// https://aws.github.io/aws-sdk-go-v2/docs/configuring-sdk/endpoints/
		customResolver := aws.EndpointResolverWithOptionsFunc(func(svc, reg string, options ...any) (aws.Endpoint, error) {
			if svc == kms.ServiceID && reg == c.region {
				ep := aws.Endpoint{
					PartitionID:   "aws",
					URL:           c.endpoint,
					SigningRegion: c.region,
				}
				return ep, nil
			}
			// returning EndpointNotFoundError will allow the service to fallback to it's default resolution
			return aws.Endpoint{}, &aws.EndpointNotFoundError{}
		})
		awsops = append(awsops, awsconfig.WithEndpointResolverWithOptions(customResolver))
	}

	id := os.Getenv("AWS_ACCESS_KEY_ID")
	secret := os.Getenv("AWS_SECRET_ACCESS_KEY")
	token := os.Getenv("AWS_SESSION_TOKEN")
	if id != "" && secret != "" {
		awsops = append(awsops, awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(id, secret, token)))
	}

	awscfg, err := awsconfig.LoadDefaultConfig(ctx, awsops...)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	c.kmsClient = KmsClientFactory(awscfg)

	return c, nil
}

// PublicKey returns the key's SubjectPublicKeyInfo and reported usage.
func (c *Client) PublicKey(ctx context.Context, keyID string) (*csr.KeyInfo, error) {
	defer metricskey.PerfKmsOperation.MeasureSince(time.Now(), ProviderName, "get_public_key")

	resp, err := c.kmsClient.GetPublicKey(ctx, &kms.GetPublicKeyInput{KeyId: &keyID})
	if err != nil {
		return nil, errors.WithMessagef(err, "failed to get public key, id=%s", keyID)
	}

	logger.KV(xlog.DEBUG, "id", keyID, "usage", resp.KeyUsage)

	return &csr.KeyInfo{
		KeyID:     keyID,
		PublicKey: resp.PublicKey,
		KeyUsage:  string(resp.KeyUsage),
	}, nil
}

// SigningAlgorithms returns the signing algorithm names the key
// supports.
func (c *Client) SigningAlgorithms(ctx context.Context, keyID string) ([]string, error) {
	defer metricskey.PerfKmsOperation.MeasureSince(time.Now(), ProviderName, "describe_key")

	resp, err := c.kmsClient.DescribeKey(ctx, &kms.DescribeKeyInput{KeyId: &keyID})
	if err != nil {
		return nil, errors.WithMessagef(err, "failed to describe key, id=%s", keyID)
	}

	algos := make([]string, 0, len(resp.KeyMetadata.SigningAlgorithms))
	for _, a := range resp.KeyMetadata.SigningAlgorithms {
		algos = append(algos, string(a))
	}
	return algos, nil
}

// Sign signs the exact message bytes with the named algorithm. The
// message is passed raw so that the service hashes the bytes itself.
func (c *Client) Sign(ctx context.Context, keyID, algorithm string, message []byte) ([]byte, error) {
	defer metricskey.PerfKmsOperation.MeasureSince(time.Now(), ProviderName, "sign")

	req := &kms.SignInput{
		KeyId:            &keyID,
		Message:          message,
		MessageType:      types.MessageTypeRaw,
		SigningAlgorithm: types.SigningAlgorithmSpec(algorithm),
	}
	resp, err := c.kmsClient.Sign(ctx, req)
	if err != nil {
		return nil, errors.WithMessagef(err, "failed to sign, id=%s", keyID)
	}
	return resp.Signature, nil
}

// Ensure compiles
var _ csr.Remote = (*Client)(nil)
