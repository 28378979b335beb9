// Package cors builds and applies the bucket CORS policy that lets the
// marketplace front-end PUT to presigned URLs from the browser.
package cors

import (
	"context"
	"errors"
	"strings"

	"github.com/ipdata/ipdata/internal/cloud/storage"
	"github.com/ipdata/ipdata/internal/constants"
	"github.com/ipdata/ipdata/internal/logging"
	"github.com/ipdata/ipdata/internal/models"
)

// Validation errors
var (
	ErrWildcardOrigin = errors.New("wildcard CORS origin is not allowed in production")
	ErrNoOrigins      = errors.New("CORS rule must allow at least one origin")
	ErrNoMethods      = errors.New("CORS rule must allow at least one method")
	ErrInvalidMethod  = errors.New("CORS method must be one of GET, PUT, POST, DELETE, HEAD")
	ErrNegativeMaxAge = errors.New("CORS max age must not be negative")
)

var allowedMethods = map[string]bool{
	"GET": true, "PUT": true, "POST": true, "DELETE": true, "HEAD": true,
}

// DefaultRule returns the standard rule for origins. Blank entries are
// dropped; no origins at all means any origin, which Validate rejects in
// production.
func DefaultRule(origins []string) models.CorsRule {
	var allowed []string
	for _, o := range origins {
		if o = strings.TrimSpace(o); o != "" {
			allowed = append(allowed, o)
		}
	}
	if len(allowed) == 0 {
		allowed = []string{constants.CorsWildcardOrigin}
	}
	return models.CorsRule{
		AllowedHeaders: []string{"*"},
		AllowedMethods: []string{"GET", "PUT", "POST", "DELETE", "HEAD"},
		AllowedOrigins: allowed,
		ExposeHeaders: []string{
			"ETag",
			"x-amz-server-side-encryption",
			"x-amz-request-id",
			"x-amz-id-2",
		},
		MaxAgeSeconds: constants.CorsMaxAgeSeconds,
	}
}

// Validate checks rule. In production a wildcard origin is rejected.
func Validate(rule models.CorsRule, production bool) error {
	if len(rule.AllowedOrigins) == 0 {
		return ErrNoOrigins
	}
	if len(rule.AllowedMethods) == 0 {
		return ErrNoMethods
	}
	for _, m := range rule.AllowedMethods {
		if !allowedMethods[m] {
			return ErrInvalidMethod
		}
	}
	if rule.MaxAgeSeconds < 0 {
		return ErrNegativeMaxAge
	}
	if production {
		for _, o := range rule.AllowedOrigins {
			if strings.Contains(o, constants.CorsWildcardOrigin) {
				return ErrWildcardOrigin
			}
		}
	}
	return nil
}

// Applier writes CORS rules to a bucket.
type Applier struct {
	factory    storage.ProviderFactory
	production bool
	logger     *logging.Logger
}

// NewApplier creates an Applier.
func NewApplier(factory storage.ProviderFactory, production bool, logger *logging.Logger) *Applier {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Applier{factory: factory, production: production, logger: logger}
}

// Apply validates rule and replaces the CORS configuration of creds.Bucket
// with it in one PutBucketCors call.
func (a *Applier) Apply(ctx context.Context, creds models.StorageCredentials, rule models.CorsRule) error {
	if !creds.IsComplete() {
		return storage.CredentialsMissing("PutBucketCors", creds.MissingFields())
	}
	if err := Validate(rule, a.production); err != nil {
		return err
	}

	provider, err := a.factory.NewProvider(ctx, creds.WithDefaults())
	if err != nil {
		return storage.Classify("PutBucketCors", err)
	}

	if err := provider.PutBucketCors(ctx, creds.Bucket, []models.CorsRule{rule}); err != nil {
		return err
	}

	a.logger.Info().
		Str("bucket", creds.Bucket).
		Strs("origins", rule.AllowedOrigins).
		Msg("bucket CORS policy applied")
	return nil
}
