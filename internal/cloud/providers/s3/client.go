// Package s3 implements storage.Provider on the AWS SDK for Go v2.
//
// This file contains the client construction: static credentials from the
// resolved credential set, the shared proxy-aware HTTP client, and an
// optional endpoint override for S3-compatible services and tests.
package s3

import (
	"context"
	"fmt"
	nethttp "net/http"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	awscreds "github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/ipdata/ipdata/internal/logging"
	"github.com/ipdata/ipdata/internal/models"
)

// Options tune client construction.
type Options struct {
	// HTTPClient is shared across providers to keep the connection pool warm.
	// Nil uses the SDK default.
	HTTPClient *nethttp.Client

	// Endpoint overrides the AWS endpoint (path-style addressing is then used).
	Endpoint string

	// MaxAttempts caps SDK attempts per call. 0 keeps the SDK default; 1
	// disables retries, which the connection probe relies on.
	MaxAttempts int

	Logger *logging.Logger
}

// newS3Client builds the SDK client for one credential set.
func newS3Client(ctx context.Context, creds models.StorageCredentials, opts Options) (*s3.Client, error) {
	loadOpts := []func(*config.LoadOptions) error{
		config.WithRegion(creds.EffectiveRegion()),
		config.WithCredentialsProvider(awscreds.NewStaticCredentialsProvider(
			creds.AccessKeyID,
			creds.SecretAccessKey,
			"",
		)),
	}
	if opts.HTTPClient != nil {
		loadOpts = append(loadOpts, config.WithHTTPClient(opts.HTTPClient))
	}
	if opts.MaxAttempts > 0 {
		loadOpts = append(loadOpts, config.WithRetryMaxAttempts(opts.MaxAttempts))
	}

	cfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	endpoint := strings.TrimSuffix(opts.Endpoint, "/")
	return s3.NewFromConfig(cfg, func(o *s3.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
			o.UsePathStyle = true
		}
	}), nil
}
