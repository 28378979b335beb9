package connection

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ipdata/ipdata/internal/cloud/storage"
	"github.com/ipdata/ipdata/internal/models"
)

type fakeProvider struct {
	buckets []string
	err     error
	calls   int
}

func (p *fakeProvider) ListBuckets(ctx context.Context) ([]string, error) {
	p.calls++
	return p.buckets, p.err
}

func (p *fakeProvider) PutBucketCors(ctx context.Context, bucket string, rules []models.CorsRule) error {
	return errors.New("unexpected call")
}

func (p *fakeProvider) PutObject(ctx context.Context, obj storage.Object) (string, error) {
	return "", errors.New("unexpected call")
}

func (p *fakeProvider) PresignPutObject(ctx context.Context, bucket, key string, expiry time.Duration) (*storage.PresignedPut, error) {
	return nil, errors.New("unexpected call")
}

func (p *fakeProvider) ObjectURL(bucket, key string) string { return "" }

type countingFactory struct {
	provider    *fakeProvider
	constructed int
	lastRegion  string
}

func (f *countingFactory) NewProvider(ctx context.Context, creds models.StorageCredentials) (storage.Provider, error) {
	f.constructed++
	f.lastRegion = creds.Region
	return f.provider, nil
}

var completeCreds = models.StorageCredentials{
	AccessKeyID:     "AKIAEXAMPLE",
	SecretAccessKey: "secret",
	Bucket:          "datasets",
}

func TestTestConnection_MissingCredentialsMakesNoCall(t *testing.T) {
	tests := []struct {
		name  string
		creds models.StorageCredentials
	}{
		{"empty", models.StorageCredentials{}},
		{"no secret", models.StorageCredentials{AccessKeyID: "a", Bucket: "b"}},
		{"no bucket", models.StorageCredentials{AccessKeyID: "a", SecretAccessKey: "s"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			factory := &countingFactory{provider: &fakeProvider{}}
			v := NewValidator(factory, nil)

			report, err := v.TestConnection(context.Background(), tt.creds)
			if report != nil {
				t.Error("expected no report")
			}
			if !errors.Is(err, storage.ErrCredentialsMissing) {
				t.Errorf("expected ErrCredentialsMissing, got %v", err)
			}
			if factory.constructed != 0 {
				t.Errorf("expected no provider construction, got %d", factory.constructed)
			}
			if factory.provider.calls != 0 {
				t.Errorf("expected no network calls, got %d", factory.provider.calls)
			}
		})
	}
}

func TestTestConnection_Success(t *testing.T) {
	factory := &countingFactory{provider: &fakeProvider{buckets: []string{"alpha", "datasets", "zeta"}}}
	v := NewValidator(factory, nil)

	report, err := v.TestConnection(context.Background(), completeCreds)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if factory.provider.calls != 1 {
		t.Errorf("expected exactly one ListBuckets call, got %d", factory.provider.calls)
	}
	if !report.BucketExists {
		t.Error("expected target bucket to be found")
	}
	if report.Region != "us-east-1" || factory.lastRegion != "us-east-1" {
		t.Errorf("expected defaulted region, got report=%s factory=%s", report.Region, factory.lastRegion)
	}
	if len(report.AvailableBuckets) != 3 || report.AvailableBuckets[1] != "datasets" {
		t.Errorf("expected buckets in provider order, got %v", report.AvailableBuckets)
	}
	if err := report.RequireBucket(); err != nil {
		t.Errorf("RequireBucket() = %v", err)
	}
}

func TestTestConnection_BucketMissingIsInformational(t *testing.T) {
	factory := &countingFactory{provider: &fakeProvider{buckets: []string{"other"}}}
	v := NewValidator(factory, nil)

	report, err := v.TestConnection(context.Background(), completeCreds)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.BucketExists {
		t.Error("expected BucketExists=false")
	}
	if err := report.RequireBucket(); !errors.Is(err, ErrBucketNotFound) {
		t.Errorf("expected ErrBucketNotFound, got %v", err)
	}
}

func TestTestConnection_ProviderErrorsPassThrough(t *testing.T) {
	codes := []storage.Code{storage.CodeInvalidAccessKey, storage.CodeInvalidSecret, storage.CodeNetwork, storage.CodeUnknown}

	for _, code := range codes {
		t.Run(string(code), func(t *testing.T) {
			providerErr := &storage.Error{Code: code, Op: "ListBuckets", Message: "from provider"}
			factory := &countingFactory{provider: &fakeProvider{err: providerErr}}
			v := NewValidator(factory, nil)

			_, err := v.TestConnection(context.Background(), completeCreds)
			if storage.CodeOf(err) != code {
				t.Errorf("code = %s, want %s", storage.CodeOf(err), code)
			}
			if factory.provider.calls != 1 {
				t.Errorf("expected one call (no retries), got %d", factory.provider.calls)
			}
		})
	}
}
