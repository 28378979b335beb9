package s3

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/ipdata/ipdata/internal/cloud/storage"
	"github.com/ipdata/ipdata/internal/logging"
	"github.com/ipdata/ipdata/internal/models"
)

// Provider implements storage.Provider for Amazon S3.
type Provider struct {
	client   *s3.Client
	presign  *s3.PresignClient
	region   string
	endpoint string
	logger   *logging.Logger
}

// NewProvider creates an S3 provider for creds. No network call is made.
func NewProvider(ctx context.Context, creds models.StorageCredentials, opts Options) (*Provider, error) {
	client, err := newS3Client(ctx, creds, opts)
	if err != nil {
		return nil, err
	}

	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNopLogger()
	}

	return &Provider{
		client:   client,
		presign:  s3.NewPresignClient(client),
		region:   creds.EffectiveRegion(),
		endpoint: strings.TrimSuffix(opts.Endpoint, "/"),
		logger:   logger,
	}, nil
}

// ListBuckets returns the names of all buckets the credentials can see.
func (p *Provider) ListBuckets(ctx context.Context) ([]string, error) {
	out, err := p.client.ListBuckets(ctx, &s3.ListBucketsInput{})
	if err != nil {
		return nil, storage.Classify("ListBuckets", err)
	}

	names := make([]string, 0, len(out.Buckets))
	for _, b := range out.Buckets {
		names = append(names, aws.ToString(b.Name))
	}
	return names, nil
}

// PutBucketCors replaces the bucket CORS configuration.
func (p *Provider) PutBucketCors(ctx context.Context, bucket string, rules []models.CorsRule) error {
	corsRules := make([]types.CORSRule, 0, len(rules))
	for _, r := range rules {
		corsRules = append(corsRules, types.CORSRule{
			AllowedHeaders: r.AllowedHeaders,
			AllowedMethods: r.AllowedMethods,
			AllowedOrigins: r.AllowedOrigins,
			ExposeHeaders:  r.ExposeHeaders,
			MaxAgeSeconds:  aws.Int32(r.MaxAgeSeconds),
		})
	}

	_, err := p.client.PutBucketCors(ctx, &s3.PutBucketCorsInput{
		Bucket:            aws.String(bucket),
		CORSConfiguration: &types.CORSConfiguration{CORSRules: corsRules},
	})
	if err != nil {
		return storage.Classify("PutBucketCors", err)
	}
	return nil
}

// PutObject uploads obj in a single request.
func (p *Provider) PutObject(ctx context.Context, obj storage.Object) (string, error) {
	input := &s3.PutObjectInput{
		Bucket:        aws.String(obj.Bucket),
		Key:           aws.String(obj.Key),
		Body:          obj.Body,
		ContentLength: aws.Int64(obj.Size),
	}
	if obj.ContentType != "" {
		input.ContentType = aws.String(obj.ContentType)
	}

	start := time.Now()
	if _, err := p.client.PutObject(ctx, input); err != nil {
		return "", storage.Classify("PutObject", err)
	}

	p.logger.Debug().
		Str("bucket", obj.Bucket).
		Str("key", obj.Key).
		Int64("size", obj.Size).
		Dur("took", time.Since(start)).
		Msg("object stored")

	return p.ObjectURL(obj.Bucket, obj.Key), nil
}

// PresignPutObject signs a PUT for key valid for expiry. Signing is local;
// no request is sent.
func (p *Provider) PresignPutObject(ctx context.Context, bucket, key string, expiry time.Duration) (*storage.PresignedPut, error) {
	req, err := p.presign.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(expiry))
	if err != nil {
		return nil, storage.Classify("PresignPutObject", err)
	}

	signed := make(map[string][]string, len(req.SignedHeader))
	for k, v := range req.SignedHeader {
		// Host is set by the transport from the URL.
		if strings.EqualFold(k, "Host") {
			continue
		}
		signed[k] = v
	}

	return &storage.PresignedPut{
		URL:           req.URL,
		Method:        req.Method,
		SignedHeaders: signed,
		ObjectURL:     p.ObjectURL(bucket, key),
	}, nil
}

// ObjectURL returns the virtual-hosted URL of key, or the path-style URL
// under the endpoint override.
func (p *Provider) ObjectURL(bucket, key string) string {
	escaped := escapeKey(key)
	if p.endpoint != "" {
		return fmt.Sprintf("%s/%s/%s", p.endpoint, bucket, escaped)
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", bucket, p.region, escaped)
}

func escapeKey(key string) string {
	parts := strings.Split(key, "/")
	for i, part := range parts {
		parts[i] = url.PathEscape(part)
	}
	return strings.Join(parts, "/")
}

var _ storage.Provider = (*Provider)(nil)
