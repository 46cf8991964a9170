package ally

import (
	"context"
	"math"
	"net/http"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"omega/pkg/client"
)

// newReadTransport returns an http.Client that makes up to
// policy.MaxAttempts tries per request, waiting base*factor^n between
// them, capped at policy.MaxDelay. Each try is bounded by attemptTimeout.
func newReadTransport(policy client.RetryPolicy, attemptTimeout time.Duration) *http.Client {
	rc := retryablehttp.NewClient()
	rc.RetryMax = max(policy.MaxAttempts-1, 0)
	rc.RetryWaitMin = policy.BaseDelay
	rc.RetryWaitMax = policy.MaxDelay
	rc.HTTPClient.Timeout = attemptTimeout
	rc.Logger = nil
	rc.CheckRetry = readRetryPolicy
	rc.Backoff = exponentialBackoff(policy.Factor)
	// Hand the last response back unchanged so status codes reach the caller.
	rc.ErrorHandler = retryablehttp.PassthroughErrorHandler
	return rc.StandardClient()
}

// chainTimeout bounds a whole retried read: every attempt plus the waits
// between them.
func chainTimeout(policy client.RetryPolicy, attemptTimeout time.Duration) time.Duration {
	attempts := max(policy.MaxAttempts, 1)
	var waits time.Duration
	for n := range attempts - 1 {
		waits += policy.Delay(n)
	}
	return time.Duration(attempts)*attemptTimeout + waits
}

// readRetryPolicy retries transport errors, 429 and 5xx other than 501.
// Client errors are returned as they are.
func readRetryPolicy(ctx context.Context, resp *http.Response, err error) (bool, error) {
	if ctx.Err() != nil {
		return false, ctx.Err()
	}
	if err != nil {
		return true, nil //nolint:nilerr // retryablehttp keeps the error for the final attempt
	}
	if resp.StatusCode == http.StatusTooManyRequests {
		return true, nil
	}
	if resp.StatusCode >= http.StatusInternalServerError && resp.StatusCode != http.StatusNotImplemented {
		return true, nil
	}
	return false, nil
}

func exponentialBackoff(factor float64) retryablehttp.Backoff {
	if factor < 1 {
		factor = 2
	}
	return func(minWait, maxWait time.Duration, attemptNum int, _ *http.Response) time.Duration {
		d := float64(minWait) * math.Pow(factor, float64(attemptNum))
		if d >= float64(maxWait) || math.IsInf(d, 1) {
			return maxWait
		}
		return time.Duration(d)
	}
}
