package providers

import (
	"context"
	"errors"
	"testing"

	"github.com/ipdata/ipdata/internal/cloud/storage"
	"github.com/ipdata/ipdata/internal/config"
	"github.com/ipdata/ipdata/internal/models"
)

func TestRegistry_Resolve(t *testing.T) {
	r := DefaultRegistry(&config.Config{MinioEndpoint: "localhost:9000"}, nil)

	tests := []struct {
		name      string
		wantErr   bool
		wantCreds bool
	}{
		{"minio", false, true},
		{"MinIO", false, true},
		{"gcs", false, false},
		{"azure", true, false},
		{"dropbox", true, false},
		{"", true, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, err := r.Resolve(tt.name)
			if tt.wantErr {
				if !errors.Is(err, storage.ErrNotImplemented) {
					t.Errorf("expected ErrNotImplemented, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if b.RequiresCredentials != tt.wantCreds {
				t.Errorf("RequiresCredentials = %v, want %v", b.RequiresCredentials, tt.wantCreds)
			}
		})
	}
}

func TestRegistry_Names(t *testing.T) {
	names := DefaultRegistry(&config.Config{}, nil).Names()
	want := []string{"azure", "gcs", "minio"}
	if len(names) != len(want) {
		t.Fatalf("Names() = %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("Names()[%d] = %s, want %s", i, names[i], want[i])
		}
	}
}

func TestRegistry_BuildMinio(t *testing.T) {
	r := DefaultRegistry(&config.Config{MinioEndpoint: "localhost:9000"}, nil)
	b, err := r.Resolve("minio")
	if err != nil {
		t.Fatal(err)
	}
	u, err := b.Build(context.Background(), models.StorageCredentials{AccessKeyID: "a", SecretAccessKey: "s", Bucket: "b"})
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if u.Name() != "minio" {
		t.Errorf("unexpected uploader %s", u.Name())
	}
}

func TestFactory_NewProvider(t *testing.T) {
	f := NewFactory(nil, nil, WithMaxAttempts(1))
	p, err := f.NewProvider(context.Background(), models.StorageCredentials{AccessKeyID: "a", SecretAccessKey: "s", Bucket: "b"})
	if err != nil {
		t.Fatalf("NewProvider failed: %v", err)
	}
	if got := p.ObjectURL("b", "k"); got != "https://b.s3.us-east-1.amazonaws.com/k" {
		t.Errorf("unexpected URL %s", got)
	}
}
