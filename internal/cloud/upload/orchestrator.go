// Package upload drives multi-file upload sessions against one storage
// target: object storage with long-lived credentials, object storage through
// presigned URLs, or a registered alternate backend.
package upload

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/ipdata/ipdata/internal/cloud/providers"
	"github.com/ipdata/ipdata/internal/cloud/storage"
	"github.com/ipdata/ipdata/internal/constants"
	"github.com/ipdata/ipdata/internal/events"
	"github.com/ipdata/ipdata/internal/logging"
	"github.com/ipdata/ipdata/internal/models"
	"github.com/ipdata/ipdata/internal/util/paths"
	"github.com/ipdata/ipdata/internal/util/sanitize"
)

// CredentialSource supplies the credential set for a session.
// *credentials.Resolver implements it.
type CredentialSource interface {
	Resolve() models.StorageCredentials
}

// Options wires an Orchestrator.
type Options struct {
	Credentials CredentialSource
	// Providers builds the object-storage provider for direct and presigned targets.
	Providers storage.ProviderFactory
	// Alternates resolves AlternateProvider targets. Nil means none are registered.
	Alternates *providers.Registry
	// HTTPClient carries presigned PUTs.
	HTTPClient    *retryablehttp.Client
	PresignExpiry time.Duration
	Bus           *events.EventBus
	Logger        *logging.Logger
}

// Orchestrator runs upload sessions. It holds no per-session state, so one
// instance may serve concurrent sessions.
type Orchestrator struct {
	creds         CredentialSource
	providers     storage.ProviderFactory
	alternates    *providers.Registry
	httpClient    *retryablehttp.Client
	presignExpiry time.Duration
	bus           *events.EventBus
	logger        *logging.Logger
}

// NewOrchestrator creates an orchestrator.
func NewOrchestrator(opts Options) *Orchestrator {
	o := &Orchestrator{
		creds:         opts.Credentials,
		providers:     opts.Providers,
		alternates:    opts.Alternates,
		httpClient:    opts.HTTPClient,
		presignExpiry: opts.PresignExpiry,
		bus:           opts.Bus,
		logger:        opts.Logger,
	}
	if o.presignExpiry <= 0 {
		o.presignExpiry = constants.PresignedURLExpiry
	}
	if o.httpClient == nil {
		o.httpClient = retryablehttp.NewClient()
		o.httpClient.RetryMax = constants.TransferMaxRetries
		o.httpClient.Logger = nil
	}
	if o.alternates == nil {
		o.alternates = providers.NewRegistry()
	}
	if o.logger == nil {
		o.logger = logging.NewNopLogger()
	}
	return o
}

// uploadFunc stores one object and returns its URL.
type uploadFunc func(ctx context.Context, obj storage.Object) (string, error)

// UploadAll uploads files one after another to target under destinationPath.
//
// Per-file failures never abort the session: they are recorded in the
// result and the next file is attempted. The returned error is non-nil only
// when the session could not start, i.e. the target requires credentials and
// the resolved set is incomplete. A target that cannot be served (a backend
// registered as not implemented, or a provider that fails to construct)
// fails every job with that error without touching the network.
//
// Once ctx is cancelled, the job in flight and every remaining job fail with
// the context error.
func (o *Orchestrator) UploadAll(ctx context.Context, files []FileRef, target Target, destinationPath string, onProgress ProgressFunc) (*SessionResult, error) {
	if destinationPath == "" {
		destinationPath = constants.DefaultDestinationPath
	}

	keys := make([]string, len(files))
	for i, f := range files {
		keys[i] = sanitize.Key(destinationPath, f.Name)
	}
	keys, renamed := paths.ResolveCollisions(keys)

	sess := newSession(target, files, keys, onProgress, o.bus)
	if len(files) == 0 {
		return sess.result(), nil
	}

	var creds models.StorageCredentials
	if o.creds != nil {
		creds = o.creds.Resolve()
	}

	upload, bucket, release, err := o.strategy(ctx, target, creds)
	defer release()
	var se *storage.Error
	if errors.As(err, &se) && se.Code == storage.CodeCredentialsMissing {
		o.logger.Warn().Str("target", target.String()).Strs("missing", creds.MissingFields()).Msg("Upload session refused: incomplete credentials")
		o.bus.PublishLog(events.WarnLevel, "Upload refused: "+err.Error(), "", "", err)
		return nil, err
	}

	log := o.logger.With().Str("session", sess.sessionID()).Str("target", target.String()).Logger()
	log.Info().Int("files", len(files)).Str("destination", destinationPath).Msg("Upload session started")
	if renamed > 0 {
		log.Info().Int("renamed", renamed).Msg("Duplicate file names disambiguated")
	}
	o.bus.PublishSession(events.EventSessionStarted, events.SessionEvent{
		SessionID: sess.sessionID(),
		Target:    target.String(),
		TotalJobs: len(files),
	})
	started := time.Now()

	for i, f := range files {
		o.bus.PublishJob(events.EventJobQueued, sess.jobEvent(sess.job(i)))

		switch {
		case err != nil:
			sess.fail(i, err)
		case ctx.Err() != nil:
			sess.fail(i, ctx.Err())
		default:
			sess.start(i)
			url, upErr := o.uploadOne(ctx, sess, i, f, bucket, upload)
			if upErr != nil {
				sess.fail(i, upErr)
			} else {
				sess.succeed(i, url)
			}
		}

		job := sess.job(i)
		if job.Status == StatusFailed {
			log.Error().Err(job.Err).Str("file", job.FileName).Str("key", job.Key).Msg("Upload failed")
			o.bus.PublishLog(events.ErrorLevel, fmt.Sprintf("Failed to upload %s", job.FileName), sess.sessionID(), job.FileName, job.Err)
		} else {
			log.Info().Str("file", job.FileName).Str("url", job.URL).Msg("Upload succeeded")
		}
	}

	res := sess.result()
	duration := time.Since(started)
	log.Info().
		Int("succeeded", len(res.SucceededURLs)).
		Int("failed", len(res.Failures)).
		Dur("duration", duration).
		Msg("Upload session completed")
	o.bus.PublishSession(events.EventSessionCompleted, events.SessionEvent{
		SessionID: sess.sessionID(),
		Target:    target.String(),
		TotalJobs: len(files),
		Succeeded: len(res.SucceededURLs),
		Failed:    len(res.Failures),
		Duration:  duration,
	})

	return res, nil
}

func (o *Orchestrator) uploadOne(ctx context.Context, sess *session, i int, f FileRef, bucket string, upload uploadFunc) (string, error) {
	if f.Open == nil {
		return "", fmt.Errorf("file %s has no content", f.Name)
	}
	rc, err := f.Open()
	if err != nil {
		return "", fmt.Errorf("failed to open file: %w", err)
	}
	defer rc.Close()

	body := newProgressReader(rc, f.Size, func(fraction float64) {
		sess.progress(i, fraction)
	})

	return upload(ctx, storage.Object{
		Bucket:      bucket,
		Key:         sess.job(i).Key,
		Body:        body,
		Size:        f.Size,
		ContentType: f.ContentType,
	})
}

// strategy resolves target to an upload function once per session. The
// release func is always non-nil and closes whatever the session built.
func (o *Orchestrator) strategy(ctx context.Context, target Target, creds models.StorageCredentials) (uploadFunc, string, func(), error) {
	noop := func() {}
	switch target.Kind {
	case TargetDirect, TargetPresigned:
		if !creds.IsComplete() {
			return nil, "", noop, storage.CredentialsMissing("Upload", creds.MissingFields())
		}
		if o.providers == nil {
			return nil, "", noop, errors.New("no object-storage provider configured")
		}
		provider, err := o.providers.NewProvider(ctx, creds.WithDefaults())
		if err != nil {
			return nil, "", noop, fmt.Errorf("failed to create storage provider: %w", err)
		}
		release := o.closer("provider", provider)
		if target.Kind == TargetDirect {
			return provider.PutObject, creds.Bucket, release, nil
		}
		return o.presignedUpload(provider), creds.Bucket, release, nil

	case TargetAlternate:
		backend, err := o.alternates.Resolve(target.Provider)
		if err != nil {
			return nil, "", noop, err
		}
		if backend.RequiresCredentials && !creds.IsComplete() {
			return nil, "", noop, storage.CredentialsMissing("Upload", creds.MissingFields())
		}
		uploader, err := backend.Build(ctx, creds.WithDefaults())
		if err != nil {
			return nil, "", noop, fmt.Errorf("failed to create %s uploader: %w", backend.Name, err)
		}
		return uploader.Upload, creds.Bucket, o.closer(backend.Name, uploader), nil

	default:
		return nil, "", noop, storage.NotImplemented(target.String())
	}
}

// closer returns a func closing v when it holds resources (the GCS client).
func (o *Orchestrator) closer(name string, v any) func() {
	c, ok := v.(io.Closer)
	if !ok {
		return func() {}
	}
	return func() {
		if err := c.Close(); err != nil {
			o.logger.Warn().Err(err).Str("backend", name).Msg("Failed to release upload backend")
		}
	}
}

func (o *Orchestrator) presignedUpload(provider storage.Provider) uploadFunc {
	return func(ctx context.Context, obj storage.Object) (string, error) {
		presigned, err := provider.PresignPutObject(ctx, obj.Bucket, obj.Key, o.presignExpiry)
		if err != nil {
			return "", err
		}
		if err := putPresigned(ctx, o.httpClient, presigned, obj.Body, obj.Size, obj.ContentType); err != nil {
			return "", err
		}
		if presigned.ObjectURL != "" {
			return presigned.ObjectURL, nil
		}
		return provider.ObjectURL(obj.Bucket, obj.Key), nil
	}
}
