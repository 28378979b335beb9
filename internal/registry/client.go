// Package registry submits uploaded datasets to the IP-asset registration
// service and returns the asset id it assigns.
package registry

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	nethttp "net/http"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/hashicorp/go-retryablehttp"

	"github.com/ipdata/ipdata/internal/cloud/upload"
	"github.com/ipdata/ipdata/internal/constants"
	ihttp "github.com/ipdata/ipdata/internal/http"
	"github.com/ipdata/ipdata/internal/logging"
	"github.com/ipdata/ipdata/internal/models"
	"github.com/ipdata/ipdata/internal/ratelimit"
	"github.com/ipdata/ipdata/internal/util/tags"
	"github.com/ipdata/ipdata/internal/version"
)

const registerPath = "/v1/ip-assets"

var (
	// ErrNotConfigured is returned when no registry URL is set.
	ErrNotConfigured = errors.New("registry URL is not configured; set IPDATA_REGISTRY_URL")
	// ErrNoMedia is returned when a session produced no URL to register.
	ErrNoMedia = errors.New("no uploaded file to register")
	// ErrInvalidAsset is returned for assets missing a name or media URL.
	ErrInvalidAsset = errors.New("asset requires a name and a media URL")
)

// Error is a non-2xx response from the registration service.
type Error struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *Error) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("registration failed (%d %s): %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("registration failed (%d): %s", e.StatusCode, e.Message)
}

// Options configures a Client.
type Options struct {
	BaseURL string
	Token   string
	// HTTPClient is the proxy-aware base client. Nil uses a default client.
	HTTPClient *nethttp.Client
	MaxRetries int
	// RetryWaitMin overrides the minimum backoff (tests).
	RetryWaitMin time.Duration
	Limiter      *ratelimit.Limiter
	Logger       *logging.Logger
}

// Client talks to the registration service.
type Client struct {
	baseURL string
	token   string
	http    *retryablehttp.Client
	limiter *ratelimit.Limiter
	logger  *logging.Logger
}

// NewClient creates a registry client.
func NewClient(opts Options) (*Client, error) {
	baseURL := strings.TrimSuffix(strings.TrimSpace(opts.BaseURL), "/")
	if baseURL == "" {
		return nil, ErrNotConfigured
	}

	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	maxRetries := opts.MaxRetries
	if maxRetries == 0 {
		maxRetries = constants.RegistryMaxRetries
	}
	waitMin := opts.RetryWaitMin
	if waitMin == 0 {
		waitMin = constants.RetryWaitMin
	}
	limiter := opts.Limiter
	if limiter == nil {
		limiter = ratelimit.NewRegistryLimiter(logger)
	}

	return &Client{
		baseURL: baseURL,
		token:   opts.Token,
		http: ihttp.NewRetryClient(opts.HTTPClient, ihttp.RetryOptions{
			MaxRetries: maxRetries,
			WaitMin:    waitMin,
			WaitMax:    constants.RetryWaitMax,
		}, logger),
		limiter: limiter,
		logger:  logger,
	}, nil
}

// AssetFromSession builds an asset whose media URL is the session's first
// succeeded upload. Every succeeded URL is attached as a file.
func AssetFromSession(name, description string, assetTags []string, res *upload.SessionResult) (models.IPAsset, error) {
	if res == nil || len(res.SucceededURLs) == 0 {
		return models.IPAsset{}, ErrNoMedia
	}
	return models.IPAsset{
		Name:        name,
		Description: description,
		MediaURL:    res.SucceededURLs[0],
		FileURLs:    append([]string(nil), res.SucceededURLs...),
		Tags:        assetTags,
	}, nil
}

// Register submits asset and returns the IP-asset id. Tags are normalized
// before sending.
func (c *Client) Register(ctx context.Context, asset models.IPAsset) (string, error) {
	if strings.TrimSpace(asset.Name) == "" || strings.TrimSpace(asset.MediaURL) == "" {
		return "", ErrInvalidAsset
	}
	asset.Tags = tags.Normalize(asset.Tags)

	payload, err := json.Marshal(asset)
	if err != nil {
		return "", fmt.Errorf("failed to marshal asset: %w", err)
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limiter cancelled: %w", err)
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, nethttp.MethodPost, c.baseURL+registerPath, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", version.UserAgent())
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Error().Err(err).Str("asset", asset.Name).Msg("Registration request failed")
		return "", fmt.Errorf("registration request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == nethttp.StatusTooManyRequests {
		c.limiter.Cooldown(retryAfter(resp.Header.Get("Retry-After")))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("failed to read registration response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		regErr := decodeError(resp.StatusCode, body)
		c.logger.Warn().Int("status", resp.StatusCode).Str("asset", asset.Name).Msg(regErr.Message)
		return "", regErr
	}

	var out models.RegistrationResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return "", fmt.Errorf("failed to decode registration response: %w", err)
	}
	if out.IPAssetID == "" {
		return "", errors.New("registration response carried no asset id")
	}

	c.logger.Info().Str("asset", asset.Name).Str("ipAssetId", out.IPAssetID).Msg("IP asset registered")
	return out.IPAssetID, nil
}

// decodeError extracts the service's human-readable message.
func decodeError(status int, body []byte) *Error {
	e := &Error{StatusCode: status}

	var payload models.RegistrationError
	if err := json.Unmarshal(body, &payload); err == nil && payload.Message != "" {
		e.Message = payload.Message
		e.Code = payload.Code
		return e
	}

	e.Message = strings.TrimSpace(string(body))
	if e.Message == "" {
		e.Message = nethttp.StatusText(status)
	}
	return e
}

func retryAfter(h string) time.Duration {
	if secs, err := strconv.Atoi(strings.TrimSpace(h)); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	if t, err := nethttp.ParseTime(h); err == nil {
		return time.Until(t)
	}
	return 0
}
