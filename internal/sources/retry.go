package sources

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"researchmind/internal/util"
)

// RetryPolicy is the single retry-with-backoff shape shared by every
// adapter, parameterized per source.
type RetryPolicy struct {
	MaxAttempts int
	Backoff     time.Duration
	// Retryable reports whether a response should be retried. err is the
	// transport error when the request itself failed, in which case status
	// is 0 and body is nil.
	Retryable func(status int, body []byte, err error) bool
}

// RetryOnRateLimit retries transport failures and 429 responses.
func RetryOnRateLimit(status int, _ []byte, err error) bool {
	return err != nil || status == http.StatusTooManyRequests
}

// Do issues the request built by build, retrying per the policy with a
// fixed backoff between attempts. It returns the final status and body;
// a transport failure that survives all attempts is wrapped as a source
// availability error.
func (p RetryPolicy) Do(ctx context.Context, client *http.Client, build func(ctx context.Context) (*http.Request, error)) (int, []byte, error) {
	attempts := p.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}

	var (
		status  int
		body    []byte
		lastErr error
	)
	for attempt := 1; attempt <= attempts; attempt++ {
		status, body, lastErr = p.once(ctx, client, build)
		if !p.Retryable(status, body, lastErr) {
			break
		}
		if attempt == attempts {
			break
		}
		select {
		case <-ctx.Done():
			return 0, nil, ctx.Err()
		case <-time.After(p.Backoff):
		}
	}
	if lastErr != nil {
		return 0, nil, fmt.Errorf("%w: %v", util.ErrSourceUnavailable, lastErr)
	}
	return status, body, nil
}

func (p RetryPolicy) once(ctx context.Context, client *http.Client, build func(ctx context.Context) (*http.Request, error)) (int, []byte, error) {
	req, err := build(ctx)
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("User-Agent", userAgent)
	resp, err := client.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, err
	}
	return resp.StatusCode, body, nil
}
