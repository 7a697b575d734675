package resilient

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/siteaudit/internal/metrics"
)

// ErrExhausted is returned when every attempt hit a retryable failure.
var ErrExhausted = errors.New("retries exhausted")

const maxBodyBytes = 8 << 20

// RequestFunc builds a fresh request for each attempt.
type RequestFunc func(ctx context.Context) (*http.Request, error)

// Response is a fully read HTTP response.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Client retries throttled or timed-out calls. It keeps no state between calls.
type Client struct {
	name   string
	http   *http.Client
	policy Policy
	logger *zap.Logger
	sleep  func(context.Context, time.Duration) error
}

// New builds a Client. name labels logs and metrics.
func New(name string, httpClient *http.Client, policy Policy, logger *zap.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		name:   name,
		http:   httpClient,
		policy: policy,
		logger: logger.Named("resilient").With(zap.String("service", name)),
		sleep:  sleepContext,
	}
}

// Do runs build until it yields a non-retryable outcome or attempts run out.
// Non-retryable HTTP statuses are returned as a Response, not an error.
func (c *Client) Do(ctx context.Context, build RequestFunc) (Response, error) {
	var lastErr error
	attempts := c.policy.attempts()
	for attempt := 0; attempt < attempts; attempt++ {
		resp, wait, err := c.attempt(ctx, build, attempt)
		if err == nil {
			return resp, nil
		}
		if !errors.Is(err, errRetry) {
			return Response{}, err
		}
		lastErr = err
		if resp.StatusCode != 0 {
			lastErr = resp.asError()
		}
		if attempt == attempts-1 {
			break
		}
		metrics.ObserveRetry(c.name)
		c.logger.Debug("retrying call",
			zap.Int("attempt", attempt+1),
			zap.Duration("wait", wait),
			zap.Error(lastErr),
		)
		if serr := c.sleep(ctx, wait); serr != nil {
			return Response{}, serr
		}
	}
	return Response{}, fmt.Errorf("%s: %w after %d attempts: %v", c.name, ErrExhausted, attempts, lastErr)
}

// Call is Do for callers that only need a successful body. Any failure,
// including exhaustion, yields nil so the caller can degrade.
func (c *Client) Call(ctx context.Context, build RequestFunc) []byte {
	resp, err := c.Do(ctx, build)
	if err != nil {
		c.logger.Warn("call failed", zap.Error(err))
		return nil
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.Warn("call returned non-success status", zap.Int("status", resp.StatusCode))
		return nil
	}
	return resp.Body
}

var errRetry = errors.New("retryable")

func (c *Client) attempt(ctx context.Context, build RequestFunc, attempt int) (Response, time.Duration, error) {
	req, err := build(ctx)
	if err != nil {
		return Response{}, 0, fmt.Errorf("build request: %w", err)
	}
	httpResp, err := c.http.Do(req)
	if err != nil {
		if RetryableError(err) && ctx.Err() == nil {
			return Response{}, c.policy.Backoff(attempt), fmt.Errorf("%w: %w", errRetry, err)
		}
		return Response{}, 0, fmt.Errorf("%s request: %w", c.name, err)
	}
	defer func() {
		if cerr := httpResp.Body.Close(); cerr != nil {
			c.logger.Debug("failed to close response body", zap.Error(cerr))
		}
	}()
	body, err := io.ReadAll(io.LimitReader(httpResp.Body, maxBodyBytes))
	if err != nil {
		return Response{}, c.policy.Backoff(attempt), fmt.Errorf("%w: read body: %w", errRetry, err)
	}
	resp := Response{
		StatusCode: httpResp.StatusCode,
		Header:     httpResp.Header.Clone(),
		Body:       body,
	}
	if RetryableStatus(resp.StatusCode) {
		return resp, c.policy.retryAfter(resp.Header, c.policy.Backoff(attempt)), errRetry
	}
	return resp, 0, nil
}

func (r Response) asError() error {
	return fmt.Errorf("status %d", r.StatusCode)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return fmt.Errorf("backoff canceled: %w", ctx.Err())
	case <-timer.C:
		return nil
	}
}
