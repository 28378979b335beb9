package cors

import (
	"context"
	"errors"
	"slices"
	"testing"
	"time"

	"github.com/ipdata/ipdata/internal/cloud/storage"
	"github.com/ipdata/ipdata/internal/models"
)

func TestDefaultRule(t *testing.T) {
	rule := DefaultRule(nil)

	if len(rule.AllowedOrigins) != 1 || rule.AllowedOrigins[0] != "*" {
		t.Errorf("expected wildcard origin, got %v", rule.AllowedOrigins)
	}
	if rule.MaxAgeSeconds != 3000 {
		t.Errorf("expected max age 3000, got %d", rule.MaxAgeSeconds)
	}
	wantMethods := []string{"GET", "PUT", "POST", "DELETE", "HEAD"}
	for i, m := range wantMethods {
		if rule.AllowedMethods[i] != m {
			t.Errorf("method[%d] = %s, want %s", i, rule.AllowedMethods[i], m)
		}
	}
	if rule.ExposeHeaders[0] != "ETag" || len(rule.ExposeHeaders) != 4 {
		t.Errorf("unexpected expose headers %v", rule.ExposeHeaders)
	}

	rule = DefaultRule([]string{"https://market.example"})
	if rule.AllowedOrigins[0] != "https://market.example" {
		t.Errorf("expected explicit origin, got %v", rule.AllowedOrigins)
	}
}

func TestDefaultRule_Origins(t *testing.T) {
	tests := []struct {
		name string
		in   []string
		want []string
	}{
		{"none", nil, []string{"*"}},
		{"blank only", []string{" ", ""}, []string{"*"}},
		{"single", []string{"https://market.example"}, []string{"https://market.example"}},
		{"several trimmed", []string{" https://a.example", "", "https://b.example "}, []string{"https://a.example", "https://b.example"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rule := DefaultRule(tt.in)
			if !slices.Equal(rule.AllowedOrigins, tt.want) {
				t.Errorf("AllowedOrigins = %q, want %q", rule.AllowedOrigins, tt.want)
			}
			if err := Validate(rule, len(tt.in) > 0 && tt.want[0] != "*"); err != nil {
				t.Errorf("Validate() = %v", err)
			}
		})
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name       string
		rule       models.CorsRule
		production bool
		want       error
	}{
		{"default dev", DefaultRule(nil), false, nil},
		{"wildcard prod", DefaultRule(nil), true, ErrWildcardOrigin},
		{"subdomain wildcard prod", DefaultRule([]string{"https://*.market.example"}), true, ErrWildcardOrigin},
		{"explicit prod", DefaultRule([]string{"https://market.example"}), true, nil},
		{"no origins", models.CorsRule{AllowedMethods: []string{"GET"}}, false, ErrNoOrigins},
		{"no methods", models.CorsRule{AllowedOrigins: []string{"*"}}, false, ErrNoMethods},
		{"bad method", models.CorsRule{AllowedOrigins: []string{"*"}, AllowedMethods: []string{"PATCH"}}, false, ErrInvalidMethod},
		{"negative max age", models.CorsRule{AllowedOrigins: []string{"*"}, AllowedMethods: []string{"GET"}, MaxAgeSeconds: -1}, false, ErrNegativeMaxAge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := Validate(tt.rule, tt.production); err != tt.want {
				t.Errorf("Validate() = %v, want %v", err, tt.want)
			}
		})
	}
}

type recordingProvider struct {
	bucket string
	rules  []models.CorsRule
	calls  int
}

func (p *recordingProvider) ListBuckets(ctx context.Context) ([]string, error) { return nil, nil }

func (p *recordingProvider) PutBucketCors(ctx context.Context, bucket string, rules []models.CorsRule) error {
	p.calls++
	p.bucket = bucket
	p.rules = rules
	return nil
}

func (p *recordingProvider) PutObject(ctx context.Context, obj storage.Object) (string, error) {
	return "", nil
}

func (p *recordingProvider) PresignPutObject(ctx context.Context, bucket, key string, expiry time.Duration) (*storage.PresignedPut, error) {
	return nil, nil
}

func (p *recordingProvider) ObjectURL(bucket, key string) string { return "" }

func TestApply(t *testing.T) {
	provider := &recordingProvider{}
	constructed := 0
	factory := storage.ProviderFactoryFunc(func(ctx context.Context, creds models.StorageCredentials) (storage.Provider, error) {
		constructed++
		return provider, nil
	})

	a := NewApplier(factory, false, nil)
	creds := models.StorageCredentials{AccessKeyID: "a", SecretAccessKey: "s", Bucket: "datasets"}

	if err := a.Apply(context.Background(), creds, DefaultRule(nil)); err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	if provider.calls != 1 || provider.bucket != "datasets" || len(provider.rules) != 1 {
		t.Errorf("unexpected provider state: %+v", provider)
	}

	// Incomplete credentials never reach the provider.
	err := a.Apply(context.Background(), models.StorageCredentials{Bucket: "datasets"}, DefaultRule(nil))
	if !errors.Is(err, storage.ErrCredentialsMissing) {
		t.Errorf("expected ErrCredentialsMissing, got %v", err)
	}
	if constructed != 1 {
		t.Errorf("expected 1 construction, got %d", constructed)
	}
}

func TestApply_ProductionRejectsWildcard(t *testing.T) {
	factory := storage.ProviderFactoryFunc(func(ctx context.Context, creds models.StorageCredentials) (storage.Provider, error) {
		t.Fatal("provider must not be constructed")
		return nil, nil
	})

	a := NewApplier(factory, true, nil)
	creds := models.StorageCredentials{AccessKeyID: "a", SecretAccessKey: "s", Bucket: "datasets"}
	if err := a.Apply(context.Background(), creds, DefaultRule(nil)); err != ErrWildcardOrigin {
		t.Errorf("expected ErrWildcardOrigin, got %v", err)
	}
}
