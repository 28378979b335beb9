// Package connection implements the pre-flight credential probe: one
// ListBuckets call that tells apart a bad key id, a bad secret and an
// unreachable endpoint.
package connection

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ipdata/ipdata/internal/cloud/storage"
	"github.com/ipdata/ipdata/internal/constants"
	"github.com/ipdata/ipdata/internal/logging"
	"github.com/ipdata/ipdata/internal/models"
)

// ErrBucketNotFound is returned by Report.RequireBucket.
var ErrBucketNotFound = errors.New("target bucket not found among available buckets")

// Report is the outcome of a successful probe.
type Report struct {
	AvailableBuckets []string      `json:"availableBuckets"`
	TargetBucket     string        `json:"targetBucket"`
	BucketExists     bool          `json:"bucketExists"`
	Region           string        `json:"region"`
	Latency          time.Duration `json:"latency"`
}

// RequireBucket turns a missing target bucket into an error.
func (r *Report) RequireBucket() error {
	if r.BucketExists {
		return nil
	}
	return fmt.Errorf("%w: %s", ErrBucketNotFound, r.TargetBucket)
}

// Validator probes a credential set against the provider.
type Validator struct {
	factory storage.ProviderFactory
	timeout time.Duration
	logger  *logging.Logger
}

// NewValidator creates a validator. The factory should produce providers
// with SDK retries disabled; the probe is a single round-trip.
func NewValidator(factory storage.ProviderFactory, logger *logging.Logger) *Validator {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Validator{
		factory: factory,
		timeout: constants.ConnectionProbeTimeout,
		logger:  logger,
	}
}

// TestConnection checks creds with one ListBuckets call.
//
// Incomplete credentials fail with CredentialsMissing before any provider is
// constructed. Provider failures come back as *storage.Error carrying the
// provider's message and a hint.
func (v *Validator) TestConnection(ctx context.Context, creds models.StorageCredentials) (*Report, error) {
	if !creds.IsComplete() {
		return nil, storage.CredentialsMissing("TestConnection", creds.MissingFields())
	}
	creds = creds.WithDefaults()

	provider, err := v.factory.NewProvider(ctx, creds)
	if err != nil {
		return nil, storage.Classify("TestConnection", err)
	}

	ctx, cancel := context.WithTimeout(ctx, v.timeout)
	defer cancel()

	start := time.Now()
	buckets, err := provider.ListBuckets(ctx)
	latency := time.Since(start)
	if err != nil {
		v.logger.Warn().
			Str("code", string(storage.CodeOf(err))).
			Str("access_key_id", models.MaskSecret(creds.AccessKeyID, 4)).
			Str("region", creds.Region).
			Dur("latency", latency).
			Msg("connection test failed")
		return nil, err
	}

	report := &Report{
		AvailableBuckets: buckets,
		TargetBucket:     creds.Bucket,
		Region:           creds.Region,
		Latency:          latency,
	}
	for _, b := range buckets {
		if b == creds.Bucket {
			report.BucketExists = true
			break
		}
	}

	v.logger.Info().
		Int("buckets", len(buckets)).
		Bool("bucket_exists", report.BucketExists).
		Dur("latency", latency).
		Msg("connection test succeeded")

	return report, nil
}
