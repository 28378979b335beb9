// Package gcs implements the "gcs" alternate backend on Google Cloud Storage.
//
// GCS authenticates with its own credentials (a service account file or
// application default credentials), not the access key pair.
package gcs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"

	gcs "cloud.google.com/go/storage"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/ipdata/ipdata/internal/cloud/storage"
)

// Name is the registry name of this backend.
const Name = "gcs"

// Options configure client construction.
type Options struct {
	// CredentialsFile is a service account JSON file. Empty uses
	// application default credentials.
	CredentialsFile string

	// ClientOptions are appended last (tests point the client at a fake).
	ClientOptions []option.ClientOption
}

// Uploader stores objects in a GCS bucket. The client is created on first
// use so that registering the backend never requires GCS credentials.
type Uploader struct {
	opts Options

	mu     sync.Mutex
	client *gcs.Client
}

// New returns an uploader. No network call is made.
func New(opts Options) *Uploader {
	return &Uploader{opts: opts}
}

// Name returns "gcs".
func (u *Uploader) Name() string { return Name }

func (u *Uploader) getClient(ctx context.Context) (*gcs.Client, error) {
	u.mu.Lock()
	defer u.mu.Unlock()

	if u.client != nil {
		return u.client, nil
	}

	var clientOpts []option.ClientOption
	if u.opts.CredentialsFile != "" {
		clientOpts = append(clientOpts, option.WithCredentialsFile(u.opts.CredentialsFile))
	}
	clientOpts = append(clientOpts, u.opts.ClientOptions...)

	c, err := gcs.NewClient(ctx, clientOpts...)
	if err != nil {
		return nil, &storage.Error{
			Code:    storage.CodeCredentialsMissing,
			Op:      "NewClient",
			Message: err.Error(),
			Hint:    "set IPDATA_GCS_CREDENTIALS_FILE or configure application default credentials",
			Err:     err,
		}
	}
	u.client = c
	return c, nil
}

// Upload writes obj through a resumable writer and returns its public URL.
func (u *Uploader) Upload(ctx context.Context, obj storage.Object) (string, error) {
	if obj.Bucket == "" {
		return "", storage.CredentialsMissing("Upload", []string{"bucket"})
	}

	client, err := u.getClient(ctx)
	if err != nil {
		return "", err
	}

	// Cancelling the writer's context is how a GCS write is aborted; the
	// object is never finalized.
	wctx, abort := context.WithCancel(ctx)
	defer abort()

	w := client.Bucket(obj.Bucket).Object(obj.Key).NewWriter(wctx)
	w.ContentType = obj.ContentType

	if _, err := io.Copy(w, obj.Body); err != nil {
		abort()
		_ = w.Close()
		return "", classify("Upload", err)
	}
	if err := w.Close(); err != nil {
		return "", classify("Upload", err)
	}

	return ObjectURL(obj.Bucket, obj.Key), nil
}

// Close releases the client, if one was created.
func (u *Uploader) Close() error {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.client == nil {
		return nil
	}
	err := u.client.Close()
	u.client = nil
	return err
}

// ObjectURL returns the public storage.googleapis.com URL of key.
func ObjectURL(bucket, key string) string {
	parts := strings.Split(key, "/")
	for i, p := range parts {
		parts[i] = url.PathEscape(p)
	}
	return fmt.Sprintf("https://storage.googleapis.com/%s/%s", bucket, strings.Join(parts, "/"))
}

func classify(op string, err error) error {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		e := &storage.Error{Code: storage.CodeUnknown, Op: op, Message: gerr.Message, Err: err}
		if e.Message == "" {
			e.Message = err.Error()
		}
		switch gerr.Code {
		case http.StatusUnauthorized:
			e.Code = storage.CodeInvalidAccessKey
			e.Hint = "the GCS credentials were rejected"
		case http.StatusForbidden:
			e.Hint = "the service account lacks storage.objects.create on this bucket"
		case http.StatusNotFound:
			e.Hint = "the bucket does not exist"
		}
		return e
	}
	if errors.Is(err, gcs.ErrBucketNotExist) {
		return &storage.Error{Code: storage.CodeUnknown, Op: op, Message: err.Error(), Hint: "the bucket does not exist", Err: err}
	}
	return storage.Classify(op, err)
}

var _ storage.Uploader = (*Uploader)(nil)
