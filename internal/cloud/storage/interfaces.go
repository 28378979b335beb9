// Package storage defines the capability contract every object-storage
// backend implements, plus the error taxonomy shared by all of them.
// The S3 provider implements Provider; alternate backends (minio, gcs)
// implement Uploader and are dispatched through the provider registry.
package storage

import (
	"context"
	"io"
	"time"

	"github.com/ipdata/ipdata/internal/models"
)

// Object describes one object to store.
//
// Body must support Seek so SDK retries can rewind it; Size is sent as
// Content-Length and must match the bytes Body yields.
type Object struct {
	Bucket      string
	Key         string
	Body        io.ReadSeeker
	Size        int64
	ContentType string
}

// Provider is the object-storage capability set used by the connection
// validator, CORS administration and both object-storage upload strategies.
type Provider interface {
	// ListBuckets returns bucket names in the provider's order.
	ListBuckets(ctx context.Context) ([]string, error)

	// PutBucketCors replaces the bucket's CORS configuration with rules.
	PutBucketCors(ctx context.Context, bucket string, rules []models.CorsRule) error

	// PutObject stores obj using the provider's long-lived credentials and
	// returns the object's URL.
	PutObject(ctx context.Context, obj Object) (string, error)

	// PresignPutObject returns a URL that accepts one HTTP PUT of the key.
	PresignPutObject(ctx context.Context, bucket, key string, expiry time.Duration) (*PresignedPut, error)

	// ObjectURL returns the public URL of key.
	ObjectURL(bucket, key string) string
}

// PresignedPut is a presigned upload URL and the headers that were signed
// into it. Every header in SignedHeaders must be sent with the PUT.
type PresignedPut struct {
	URL           string
	Method        string
	SignedHeaders map[string][]string
	// ObjectURL is where the object will be readable once the PUT succeeds.
	ObjectURL string
}

// Uploader is implemented by alternate backends. It is the narrow
// capability the orchestrator needs for AlternateProvider targets.
type Uploader interface {
	// Name is the registry name ("minio", "gcs").
	Name() string

	// Upload stores obj and returns its URL.
	Upload(ctx context.Context, obj Object) (string, error)
}

// ProviderFactory constructs a Provider for one credential set. The
// connection validator and the orchestrator take a factory so tests can
// substitute a fake and count constructions.
type ProviderFactory interface {
	NewProvider(ctx context.Context, creds models.StorageCredentials) (Provider, error)
}

// ProviderFactoryFunc adapts a function to ProviderFactory.
type ProviderFactoryFunc func(ctx context.Context, creds models.StorageCredentials) (Provider, error)

// NewProvider calls f.
func (f ProviderFactoryFunc) NewProvider(ctx context.Context, creds models.StorageCredentials) (Provider, error) {
	return f(ctx, creds)
}
