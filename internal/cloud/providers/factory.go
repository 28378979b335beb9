// Package providers wires the storage backends: the S3 provider factory used
// by the object-storage strategies and the registry of alternate backends.
package providers

import (
	"context"
	nethttp "net/http"
	"sort"
	"strings"
	"sync"

	"github.com/ipdata/ipdata/internal/cloud/providers/gcs"
	"github.com/ipdata/ipdata/internal/cloud/providers/minio"
	"github.com/ipdata/ipdata/internal/cloud/providers/s3"
	"github.com/ipdata/ipdata/internal/cloud/storage"
	"github.com/ipdata/ipdata/internal/config"
	"github.com/ipdata/ipdata/internal/logging"
	"github.com/ipdata/ipdata/internal/models"
)

// Factory creates S3 providers that share one HTTP client.
type Factory struct {
	httpClient  *nethttp.Client
	endpoint    string
	maxAttempts int
	logger      *logging.Logger
}

// FactoryOption configures a Factory.
type FactoryOption func(*Factory)

// WithMaxAttempts caps SDK attempts per call (1 disables retries).
func WithMaxAttempts(n int) FactoryOption {
	return func(f *Factory) { f.maxAttempts = n }
}

// WithEndpoint points the S3 client at an S3-compatible endpoint.
func WithEndpoint(endpoint string) FactoryOption {
	return func(f *Factory) { f.endpoint = endpoint }
}

// NewFactory creates a new provider factory.
func NewFactory(httpClient *nethttp.Client, logger *logging.Logger, opts ...FactoryOption) *Factory {
	f := &Factory{httpClient: httpClient, logger: logger}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// NewProvider creates an S3 provider for creds.
func (f *Factory) NewProvider(ctx context.Context, creds models.StorageCredentials) (storage.Provider, error) {
	return s3.NewProvider(ctx, creds, s3.Options{
		HTTPClient:  f.httpClient,
		Endpoint:    f.endpoint,
		MaxAttempts: f.maxAttempts,
		Logger:      f.logger,
	})
}

var _ storage.ProviderFactory = (*Factory)(nil)

// UploaderBuilder constructs an alternate backend for one session.
type UploaderBuilder func(ctx context.Context, creds models.StorageCredentials) (storage.Uploader, error)

// Backend is one registry entry.
type Backend struct {
	Name string
	// RequiresCredentials is true when the backend authenticates with the
	// resolved access key pair.
	RequiresCredentials bool
	// Build is nil for backends registered as not implemented.
	Build UploaderBuilder
}

// Registry maps alternate provider names to backends.
type Registry struct {
	mu       sync.RWMutex
	backends map[string]Backend
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{backends: make(map[string]Backend)}
}

// Register adds or replaces a backend. Names are case-insensitive.
func (r *Registry) Register(b Backend) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b.Name = strings.ToLower(b.Name)
	r.backends[b.Name] = b
}

// RegisterNotImplemented reserves name for a backend with no implementation.
func (r *Registry) RegisterNotImplemented(name string) {
	r.Register(Backend{Name: name})
}

// Resolve returns the backend for name. Unknown names and not-implemented
// backends both yield a NotImplemented *storage.Error.
func (r *Registry) Resolve(name string) (Backend, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	b, ok := r.backends[strings.ToLower(strings.TrimSpace(name))]
	if !ok || b.Build == nil {
		return Backend{}, storage.NotImplemented(name)
	}
	return b, nil
}

// Names lists registered backends, implemented or not, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.backends))
	for name := range r.backends {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DefaultRegistry registers minio and gcs from cfg, and reserves azure.
func DefaultRegistry(cfg *config.Config, httpClient *nethttp.Client) *Registry {
	r := NewRegistry()

	var transport nethttp.RoundTripper
	if httpClient != nil {
		transport = httpClient.Transport
	}

	r.Register(Backend{
		Name:                minio.Name,
		RequiresCredentials: true,
		Build: func(ctx context.Context, creds models.StorageCredentials) (storage.Uploader, error) {
			return minio.New(creds, minio.Options{
				Endpoint:  cfg.MinioEndpoint,
				UseSSL:    cfg.MinioUseSSL,
				Transport: transport,
			})
		},
	})

	r.Register(Backend{
		Name: gcs.Name,
		Build: func(ctx context.Context, creds models.StorageCredentials) (storage.Uploader, error) {
			return gcs.New(gcs.Options{CredentialsFile: cfg.GCSCredentialsFile}), nil
		},
	})

	r.RegisterNotImplemented("azure")

	return r
}
