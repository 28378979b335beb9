package http

import (
	"context"
	nethttp "net/http"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/rs/zerolog"

	"github.com/ipdata/ipdata/internal/logging"
)

// RetryOptions configures a retrying client.
type RetryOptions struct {
	// MaxRetries is the number of retries after the first attempt.
	MaxRetries int
	WaitMin    time.Duration
	WaitMax    time.Duration
}

// NewRetryClient wraps base in a retryablehttp client that logs retries
// through the application logger.
//
// Retries follow retryablehttp.DefaultRetryPolicy: connection errors, 429 and
// 5xx (except 501) are retried, other 4xx are returned to the caller as-is.
// A cancelled context stops retries immediately.
func NewRetryClient(base *nethttp.Client, opts RetryOptions, logger *logging.Logger) *retryablehttp.Client {
	if logger == nil {
		logger = logging.NewNopLogger()
	}

	rc := retryablehttp.NewClient()
	if base != nil {
		rc.HTTPClient = base
	}
	rc.RetryMax = opts.MaxRetries
	if opts.WaitMin > 0 {
		rc.RetryWaitMin = opts.WaitMin
	}
	if opts.WaitMax > 0 {
		rc.RetryWaitMax = opts.WaitMax
	}
	rc.Logger = &retryLogger{log: logger}
	rc.CheckRetry = checkRetry
	// Hand the final response back instead of retryablehttp's "giving up"
	// error so callers can read the status and body.
	rc.ErrorHandler = retryablehttp.PassthroughErrorHandler

	return rc
}

func checkRetry(ctx context.Context, resp *nethttp.Response, err error) (bool, error) {
	if ctx.Err() != nil {
		return false, ctx.Err()
	}
	return retryablehttp.DefaultRetryPolicy(ctx, resp, err)
}

// retryLogger implements the retryablehttp.LeveledLogger interface
type retryLogger struct {
	log *logging.Logger
}

func (l *retryLogger) Error(msg string, keysAndValues ...interface{}) {
	withFields(l.log.Error(), keysAndValues).Msg(msg)
}

// Info is dropped: retryablehttp logs every request at this level.
func (l *retryLogger) Info(msg string, keysAndValues ...interface{}) {}

func (l *retryLogger) Debug(msg string, keysAndValues ...interface{}) {
	withFields(l.log.Debug(), keysAndValues).Msg(msg)
}

func (l *retryLogger) Warn(msg string, keysAndValues ...interface{}) {
	withFields(l.log.Warn(), keysAndValues).Msg(msg)
}

func withFields(e *zerolog.Event, keysAndValues []interface{}) *zerolog.Event {
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		key, ok := keysAndValues[i].(string)
		if !ok {
			continue
		}
		e = e.Interface(key, keysAndValues[i+1])
	}
	return e
}
