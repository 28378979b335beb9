// Package credentials resolves the object-storage credential set used by
// the connection validator, CORS administration and the upload orchestrator.
package credentials

import (
	"fmt"
	"strings"
	"sync"

	"github.com/ipdata/ipdata/internal/config"
	"github.com/ipdata/ipdata/internal/events"
	"github.com/ipdata/ipdata/internal/logging"
	"github.com/ipdata/ipdata/internal/models"
)

// Resolver picks between the environment snapshot taken at boot and the
// user override persisted in the settings file.
//
// Precedence: a complete environment set wins. Otherwise the saved override
// is used as a whole set, never field-by-field mixed with the environment.
// With neither, the (possibly partial) environment values are returned and
// callers decide via IsComplete.
//
// The override snapshot is guarded by mu and replaced only after the file
// has been atomically renamed into place, so readers never see a mix of old
// and new fields.
type Resolver struct {
	env          config.StorageEnv
	settingsPath string
	bus          *events.EventBus
	logger       *logging.Logger

	mu       sync.RWMutex
	settings *config.Settings
}

// NewResolver creates a resolver over cfg's environment snapshot and settings.
// bus may be nil.
func NewResolver(cfg *config.Config, bus *events.EventBus, logger *logging.Logger) *Resolver {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	settings := cfg.Settings
	if settings == nil {
		settings = config.NewSettings()
	}
	return &Resolver{
		env:          cfg.Storage,
		settingsPath: cfg.SettingsPath,
		bus:          bus,
		logger:       logger,
		settings:     settings,
	}
}

// IsComplete reports whether creds has every required field.
func IsComplete(creds models.StorageCredentials) bool {
	return creds.IsComplete()
}

// Resolve returns the active credential set with Region defaulted.
func (r *Resolver) Resolve() models.StorageCredentials {
	creds, _ := r.ResolveWithSource()
	return creds
}

// ResolveWithSource returns the active credential set and where it came from.
func (r *Resolver) ResolveWithSource() (models.StorageCredentials, models.CredentialSource) {
	envCreds := r.env.Credentials()
	if envCreds.IsComplete() {
		return envCreds.WithDefaults(), models.SourceEnvironment
	}

	if override, ok := r.Override(); ok {
		return override.WithDefaults(), models.SourceOverride
	}

	if envCreds == (models.StorageCredentials{}) {
		return envCreds.WithDefaults(), models.SourceNone
	}
	return envCreds.WithDefaults(), models.SourceEnvironment
}

// Override returns a copy of the saved override, if any.
func (r *Resolver) Override() (models.StorageCredentials, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.settings.Credentials == nil {
		return models.StorageCredentials{}, false
	}
	return *r.settings.Credentials, true
}

// Environment returns the boot-time environment snapshot for diagnostics.
func (r *Resolver) Environment() config.StorageEnv {
	return r.env
}

// Save persists creds as the override.
//
// Saving the value already stored is a no-op: the file is not rewritten.
// A different value replaces the whole set.
func (r *Resolver) Save(creds models.StorageCredentials) error {
	creds = normalize(creds)

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.settings.Credentials != nil && *r.settings.Credentials == creds {
		r.logger.Debug().Msg("credential override unchanged, skipping write")
		return nil
	}

	next := *r.settings
	next.Credentials = &creds

	if err := config.SaveSettings(&next, r.settingsPath); err != nil {
		return fmt.Errorf("failed to save credential override: %w", err)
	}
	r.settings = &next

	r.logger.Info().
		Str("bucket", creds.Bucket).
		Str("region", creds.EffectiveRegion()).
		Str("access_key_id", models.MaskSecret(creds.AccessKeyID, 4)).
		Msg("credential override saved")
	r.bus.PublishCredentialsChanged(string(models.SourceOverride))

	return nil
}

// Clear removes the saved override. Clearing when nothing is saved is a no-op.
func (r *Resolver) Clear() error {
	r.mu.Lock()

	if r.settings.Credentials == nil {
		r.mu.Unlock()
		return nil
	}

	next := *r.settings
	next.Credentials = nil

	if err := config.SaveSettings(&next, r.settingsPath); err != nil {
		r.mu.Unlock()
		return fmt.Errorf("failed to clear credential override: %w", err)
	}
	r.settings = &next
	r.mu.Unlock()

	_, source := r.ResolveWithSource()
	r.logger.Info().Msg("credential override cleared")
	r.bus.PublishCredentialsChanged(string(source))

	return nil
}

func normalize(c models.StorageCredentials) models.StorageCredentials {
	return models.StorageCredentials{
		AccessKeyID:     strings.TrimSpace(c.AccessKeyID),
		SecretAccessKey: strings.TrimSpace(c.SecretAccessKey),
		Region:          strings.TrimSpace(c.Region),
		Bucket:          strings.TrimSpace(c.Bucket),
	}
}
