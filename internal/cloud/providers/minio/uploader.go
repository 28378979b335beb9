// Package minio implements the "minio" alternate backend: any S3-compatible
// endpoint reached through minio-go with the resolved access key pair.
package minio

import (
	"context"
	"errors"
	"fmt"
	nethttp "net/http"
	"net/url"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/ipdata/ipdata/internal/cloud/storage"
	"github.com/ipdata/ipdata/internal/models"
)

// Name is the registry name of this backend.
const Name = "minio"

// Uploader stores objects on an S3-compatible endpoint.
type Uploader struct {
	client *minio.Client
}

// Options configure the endpoint.
type Options struct {
	// Endpoint is host[:port], without scheme.
	Endpoint string
	UseSSL   bool
	// Transport is shared with the other providers. Nil uses minio's default.
	Transport nethttp.RoundTripper
}

// New creates a minio uploader. No network call is made.
func New(creds models.StorageCredentials, opts Options) (*Uploader, error) {
	endpoint := strings.TrimSpace(opts.Endpoint)
	if endpoint == "" {
		return nil, errors.New("minio endpoint is not configured (set IPDATA_MINIO_ENDPOINT)")
	}

	client, err := minio.New(endpoint, &minio.Options{
		Creds:     credentials.NewStaticV4(creds.AccessKeyID, creds.SecretAccessKey, ""),
		Secure:    opts.UseSSL,
		Region:    creds.EffectiveRegion(),
		Transport: opts.Transport,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}

	return &Uploader{client: client}, nil
}

// Name returns "minio".
func (u *Uploader) Name() string { return Name }

// Upload streams obj to the endpoint and returns its path-style URL.
func (u *Uploader) Upload(ctx context.Context, obj storage.Object) (string, error) {
	_, err := u.client.PutObject(ctx, obj.Bucket, obj.Key, obj.Body, obj.Size, minio.PutObjectOptions{
		ContentType: obj.ContentType,
	})
	if err != nil {
		return "", classify("PutObject", err)
	}
	return u.ObjectURL(obj.Bucket, obj.Key), nil
}

// ObjectURL returns the path-style URL of key on the endpoint.
func (u *Uploader) ObjectURL(bucket, key string) string {
	base := u.client.EndpointURL()
	return (&url.URL{
		Scheme: base.Scheme,
		Host:   base.Host,
		Path:   "/" + bucket + "/" + key,
	}).String()
}

// classify maps minio's S3-dialect error codes onto the shared taxonomy.
func classify(op string, err error) error {
	resp := minio.ToErrorResponse(err)
	if resp.Code != "" {
		return storage.FromServiceCode(op, resp.Code, resp.Message, err)
	}
	return storage.Classify(op, err)
}

var _ storage.Uploader = (*Uploader)(nil)
