package services

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// HTTPDoer describes the HTTP client used by external service integrations.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

const (
	retryInitialInterval = 250 * time.Millisecond
	retryMaxInterval     = 2 * time.Second
	retryMaxAttempts     = 3
)

// DoWithRetry executes an HTTP request with a short exponential backoff for
// transport errors and 5xx/429 responses. The build function is invoked per
// attempt so request bodies are fresh. Non-retryable responses are returned
// to the caller unread.
func DoWithRetry(ctx context.Context, client HTTPDoer, build func(ctx context.Context) (*http.Request, error)) (*http.Response, error) {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = retryInitialInterval
	policy.MaxInterval = retryMaxInterval

	var resp *http.Response
	operation := func() error {
		req, err := build(ctx)
		if err != nil {
			return backoff.Permanent(err)
		}
		r, err := client.Do(req)
		if err != nil {
			return err
		}
		if r.StatusCode >= http.StatusInternalServerError || r.StatusCode == http.StatusTooManyRequests {
			_, _ = io.Copy(io.Discard, io.LimitReader(r.Body, 4096))
			_ = r.Body.Close()
			return &retryableStatusError{status: r.StatusCode}
		}
		resp = r
		return nil
	}

	err := backoff.Retry(operation, backoff.WithContext(backoff.WithMaxRetries(policy, retryMaxAttempts-1), ctx))
	if err != nil {
		return nil, err
	}
	return resp, nil
}

type retryableStatusError struct {
	status int
}

func (e *retryableStatusError) Error() string {
	return http.StatusText(e.status)
}

// RetriedStatus extracts the HTTP status from a retry-exhausted error, if the
// final attempt failed on a retryable status code.
func RetriedStatus(err error) (int, bool) {
	if e, ok := err.(*retryableStatusError); ok {
		return e.status, true
	}
	return 0, false
}
