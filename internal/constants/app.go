package constants

import (
	"time"
)

// Application identity
const (
	// AppName is used for the binary name, config directory and User-Agent.
	AppName = "ipdata"

	// SettingsFileName is the INI file holding the persisted credential override.
	SettingsFileName = "settings"
)

// Storage defaults
const (
	// DefaultRegion is used whenever a credential set carries no region.
	// A defaulted region is never treated as a missing field.
	DefaultRegion = "us-east-1"

	// PresignedURLExpiry - lifetime of a presigned upload URL (15 minutes).
	// Long enough for one sequential file transfer, short enough to limit exposure.
	PresignedURLExpiry = 15 * time.Minute

	// DefaultDestinationPath - object key prefix when the caller gives none
	DefaultDestinationPath = "datasets"

	// MaxUploadMemory - multipart form memory budget for the local API (32 MB);
	// larger parts spill to temp files.
	MaxUploadMemory = 32 * 1024 * 1024
)

// CORS policy
const (
	// CorsMaxAgeSeconds - browser preflight cache lifetime
	CorsMaxAgeSeconds = 3000

	// CorsWildcardOrigin allows any origin; development only.
	CorsWildcardOrigin = "*"
)

// Environment variable names
const (
	EnvAccessKeyID        = "IPDATA_AWS_ACCESS_KEY_ID"
	EnvSecretAccessKey    = "IPDATA_AWS_SECRET_ACCESS_KEY"
	EnvRegion             = "IPDATA_AWS_REGION"
	EnvBucket             = "IPDATA_S3_BUCKET"
	EnvMinioEndpoint      = "IPDATA_MINIO_ENDPOINT"
	EnvMinioUseSSL        = "IPDATA_MINIO_USE_SSL"
	EnvGCSCredentialsFile = "IPDATA_GCS_CREDENTIALS_FILE"
	EnvRegistryURL        = "IPDATA_REGISTRY_URL"
	EnvRegistryToken      = "IPDATA_REGISTRY_TOKEN"
	EnvAllowedOrigin      = "IPDATA_ALLOWED_ORIGIN"
	EnvAppEnv             = "IPDATA_ENV"
	EnvProxyMode          = "IPDATA_PROXY_MODE"
	EnvProxyHost          = "IPDATA_PROXY_HOST"
	EnvProxyPort          = "IPDATA_PROXY_PORT"
	EnvProxyUser          = "IPDATA_PROXY_USER"
	EnvProxyPassword      = "IPDATA_PROXY_PASSWORD"
	EnvNoProxy            = "IPDATA_NO_PROXY"
	EnvListenAddr         = "IPDATA_LISTEN_ADDR"
)

// Event bus
const (
	// EventBusDefaultBuffer - default buffer size for event channels (1000)
	// Progress updates are frequent during a transfer; a full buffer drops events
	// rather than blocking the upload loop.
	EventBusDefaultBuffer = 1000

	// EventBusMaxBuffer - maximum buffer size for high-throughput scenarios (5000)
	EventBusMaxBuffer = 5000
)

// Retry settings for presigned transfers and registry calls
const (
	// TransferMaxRetries - retry attempts for a presigned PUT (4 total attempts)
	TransferMaxRetries = 3

	// RegistryMaxRetries - retry attempts for registration calls
	RegistryMaxRetries = 5

	// RetryWaitMin / RetryWaitMax bound retryablehttp's exponential backoff
	RetryWaitMin = 500 * time.Millisecond
	RetryWaitMax = 15 * time.Second
)

// HTTP Client Timeouts
const (
	// HTTPIdleConnTimeout - how long to keep idle connections open (90 seconds)
	HTTPIdleConnTimeout = 90 * time.Second

	// HTTPTLSHandshakeTimeout - timeout for TLS handshake (60 seconds)
	HTTPTLSHandshakeTimeout = 60 * time.Second

	// HTTPExpectContinueTimeout - timeout for 100-continue response (1 second)
	HTTPExpectContinueTimeout = 1 * time.Second

	// HTTPDialTimeout - timeout for establishing connection (30 seconds)
	HTTPDialTimeout = 30 * time.Second

	// HTTPDialKeepAlive - keep-alive period for dialer (30 seconds)
	HTTPDialKeepAlive = 30 * time.Second

	// ConnectionProbeTimeout bounds the single ListBuckets round-trip.
	ConnectionProbeTimeout = 20 * time.Second

	// ServerShutdownTimeout - grace period for in-flight API requests
	ServerShutdownTimeout = 10 * time.Second
)
