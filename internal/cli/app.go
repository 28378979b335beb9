package cli

import (
	nethttp "net/http"

	"github.com/ipdata/ipdata/internal/cloud/connection"
	"github.com/ipdata/ipdata/internal/cloud/cors"
	"github.com/ipdata/ipdata/internal/cloud/credentials"
	"github.com/ipdata/ipdata/internal/cloud/providers"
	"github.com/ipdata/ipdata/internal/cloud/upload"
	"github.com/ipdata/ipdata/internal/config"
	"github.com/ipdata/ipdata/internal/constants"
	"github.com/ipdata/ipdata/internal/events"
	ihttp "github.com/ipdata/ipdata/internal/http"
	"github.com/ipdata/ipdata/internal/logging"
	"github.com/ipdata/ipdata/internal/registry"
)

// App holds the components shared by every command. It is built once from
// the loaded Config and passed nowhere else.
type App struct {
	Config      *config.Config
	Logger      *logging.Logger
	Bus         *events.EventBus
	HTTPClient  *nethttp.Client
	Credentials *credentials.Resolver
	Validator   *connection.Validator
	Cors        *cors.Applier
	Uploads     *upload.Orchestrator
	Alternates  *providers.Registry
}

// NewApp wires the credential resolver, validator, CORS applier and upload
// orchestrator around one proxy-aware HTTP client.
func NewApp(cfg *config.Config, logger *logging.Logger) (*App, error) {
	if logger == nil {
		logger = logging.NewNopLogger()
	}

	httpClient, err := ihttp.NewClient(cfg.Proxy, logger)
	if err != nil {
		return nil, err
	}

	bus := events.NewEventBus(constants.EventBusDefaultBuffer)
	resolver := credentials.NewResolver(cfg, bus, logger)

	factory := providers.NewFactory(httpClient, logger)
	// The probe is a single round-trip; SDK retries would blur error classification.
	probeFactory := providers.NewFactory(httpClient, logger, providers.WithMaxAttempts(1))
	alternates := providers.DefaultRegistry(cfg, httpClient)

	orchestrator := upload.NewOrchestrator(upload.Options{
		Credentials: resolver,
		Providers:   factory,
		Alternates:  alternates,
		HTTPClient: ihttp.NewRetryClient(httpClient, ihttp.RetryOptions{
			MaxRetries: constants.TransferMaxRetries,
			WaitMin:    constants.RetryWaitMin,
			WaitMax:    constants.RetryWaitMax,
		}, logger),
		PresignExpiry: constants.PresignedURLExpiry,
		Bus:           bus,
		Logger:        logger,
	})

	return &App{
		Config:      cfg,
		Logger:      logger,
		Bus:         bus,
		HTTPClient:  httpClient,
		Credentials: resolver,
		Validator:   connection.NewValidator(probeFactory, logger),
		Cors:        cors.NewApplier(factory, cfg.IsProduction(), logger),
		Uploads:     orchestrator,
		Alternates:  alternates,
	}, nil
}

// Registry returns a registration client, or registry.ErrNotConfigured when
// IPDATA_REGISTRY_URL is unset.
func (a *App) Registry() (*registry.Client, error) {
	return registry.NewClient(registry.Options{
		BaseURL:    a.Config.RegistryURL,
		Token:      a.Config.RegistryToken,
		HTTPClient: a.HTTPClient,
		Logger:     a.Logger,
	})
}

// Close releases the event bus.
func (a *App) Close() {
	a.Bus.Close()
}
