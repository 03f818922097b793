package gateway

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gofri/go-github-ratelimit/github_ratelimit"
	"github.com/hashicorp/go-retryablehttp"
	"github.com/rs/zerolog"
)

const (
	DefaultMaxRetries = 3
	DefaultRetryAfter = 180 * time.Second
)

// RetryPolicy controls how failed requests are retried.
type RetryPolicy struct {
	MaxRetries int
	// RetryAfter is used for primary rate limits when the response carries
	// neither Retry-After nor X-RateLimit-Reset.
	RetryAfter time.Duration
	// BackoffUnit scales the 1, 4, 9 backoff used for server and network errors.
	BackoffUnit time.Duration
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries:  DefaultMaxRetries,
		RetryAfter:  DefaultRetryAfter,
		BackoffUnit: time.Second,
	}
}

// NewTransport returns the unauthenticated transport chain: primary rate
// limits and transient failures are retried by retryablehttp, secondary rate
// limits are always waited out by the github_ratelimit waiter underneath.
func NewTransport(policy RetryPolicy, logger zerolog.Logger) (http.RoundTripper, error) {
	rateLimitWaiter, err := github_ratelimit.NewRateLimitWaiter(nil,
		github_ratelimit.WithSingleSleepLimit(1*time.Hour, nil),
		github_ratelimit.WithLimitDetectedCallback(func(*github_ratelimit.CallbackContext) {
			logger.Warn().Msg("Secondary rate limit detected, waiting before retrying")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create rate limit waiter: %w", err)
	}
	return newRetryTransport(rateLimitWaiter, policy, logger, time.Now), nil
}

func newRetryTransport(base http.RoundTripper, policy RetryPolicy, logger zerolog.Logger, now func() time.Time) *retryablehttp.RoundTripper {
	client := retryablehttp.NewClient()
	client.HTTPClient = &http.Client{
		Transport: base,
		// Redirects are left to the outer go-github client.
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
	client.RetryMax = policy.MaxRetries
	client.CheckRetry = checkRetry
	client.Backoff = policy.backoff(now)
	// Hand the last response back to go-github so it can build its own error.
	client.ErrorHandler = retryablehttp.PassthroughErrorHandler
	client.Logger = retryLogger{logger: logger}
	client.RequestLogHook = func(_ retryablehttp.Logger, req *http.Request, attempt int) {
		if attempt > 0 {
			logger.Warn().Str("url", req.URL.Path).Int("retry", attempt).Msg("Request failed, retrying")
		}
	}
	return &retryablehttp.RoundTripper{Client: client}
}

// checkRetry adds primary rate limits (403 with no quota left) to the
// default policy, which already covers 429, 5xx and network errors.
func checkRetry(ctx context.Context, resp *http.Response, err error) (bool, error) {
	if ctx.Err() != nil {
		return false, ctx.Err()
	}
	if err == nil && isPrimaryRateLimit(resp) {
		return true, nil
	}
	return retryablehttp.DefaultRetryPolicy(ctx, resp, err)
}

func isPrimaryRateLimit(resp *http.Response) bool {
	if resp == nil {
		return false
	}
	if resp.StatusCode == http.StatusTooManyRequests {
		return true
	}
	return resp.StatusCode == http.StatusForbidden && resp.Header.Get("X-RateLimit-Remaining") == "0"
}

// backoff waits per Retry-After, then X-RateLimit-Reset, then RetryAfter for
// rate limits, and 1, 4, 9 BackoffUnits for everything else.
func (p RetryPolicy) backoff(now func() time.Time) retryablehttp.Backoff {
	return func(_, _ time.Duration, attempt int, resp *http.Response) time.Duration {
		if isPrimaryRateLimit(resp) {
			if v := resp.Header.Get("Retry-After"); v != "" {
				if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
					return time.Duration(secs) * time.Second
				}
			}
			if v := resp.Header.Get("X-RateLimit-Reset"); v != "" {
				if epoch, err := strconv.ParseInt(v, 10, 64); err == nil {
					if wait := time.Unix(epoch, 0).Sub(now()); wait > 0 {
						return wait
					}
				}
			}
			return p.RetryAfter
		}
		n := time.Duration(attempt + 1)
		return n * n * p.BackoffUnit
	}
}

// retryLogger routes retryablehttp's leveled logging into zerolog.
type retryLogger struct {
	logger zerolog.Logger
}

func (l retryLogger) Error(msg string, keysAndValues ...interface{}) {
	l.logger.Error().Fields(keysAndValues).Msg(msg)
}

func (l retryLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug().Fields(keysAndValues).Msg(msg)
}

func (l retryLogger) Debug(msg string, keysAndValues ...interface{}) {
	l.logger.Debug().Fields(keysAndValues).Msg(msg)
}

func (l retryLogger) Warn(msg string, keysAndValues ...interface{}) {
	l.logger.Warn().Fields(keysAndValues).Msg(msg)
}
