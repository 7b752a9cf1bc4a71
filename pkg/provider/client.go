package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/appetiteclub/fulfillment/pkg"
	"github.com/appetiteclub/fulfillment/pkg/saga"
	"github.com/aquamarinepk/aqm"
	"github.com/hashicorp/go-retryablehttp"
)

type RetryConfig struct {
	RetryMax     int
	RetryWaitMin time.Duration
	RetryWaitMax time.Duration
	Timeout      time.Duration
}

// RetryConfigFrom reads provider.retry.* and provider.timeout.
func RetryConfigFrom(config *aqm.Config) RetryConfig {
	return RetryConfig{
		RetryMax:     pkg.IntOr(config, "provider.retry.max", 3),
		RetryWaitMin: pkg.DurationOr(config, "provider.retry.wait.min", 200*time.Millisecond),
		RetryWaitMax: pkg.DurationOr(config, "provider.retry.wait.max", 2*time.Second),
		Timeout:      pkg.DurationOr(config, "provider.timeout", 10*time.Second),
	}
}

// NewRetryClient returns a standard http.Client that retries connection
// errors, 429 and 5xx responses with exponential backoff.
func NewRetryClient(cfg RetryConfig, logger aqm.Logger) *http.Client {
	if logger == nil {
		logger = aqm.NewNoopLogger()
	}
	rc := retryablehttp.NewClient()
	rc.RetryMax = cfg.RetryMax
	if cfg.RetryWaitMin > 0 {
		rc.RetryWaitMin = cfg.RetryWaitMin
	}
	if cfg.RetryWaitMax > 0 {
		rc.RetryWaitMax = cfg.RetryWaitMax
	}
	if cfg.Timeout > 0 {
		rc.HTTPClient.Timeout = cfg.Timeout
	}
	rc.Logger = leveledLogger{logger.With("component", "ProviderHTTP")}
	return rc.StandardClient()
}

type leveledLogger struct {
	logger aqm.Logger
}

func (l leveledLogger) Error(msg string, kv ...interface{}) { l.logger.Error(msg, kv...) }
func (l leveledLogger) Info(msg string, kv ...interface{})  { l.logger.Info(msg, kv...) }
func (l leveledLogger) Debug(msg string, kv ...interface{}) { l.logger.Debug(msg, kv...) }
func (l leveledLogger) Warn(msg string, kv ...interface{})  { l.logger.Info(msg, kv...) }

// StatusError is a non-retryable rejection from the provider.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("provider rejected request: %d %s", e.Code, e.Body)
}

func IsRejection(err error) bool {
	var se *StatusError
	return errors.As(err, &se)
}

// Client issues JSON requests against one provider base URL.
type Client struct {
	baseURL string
	http    *http.Client
	headers map[string]string
}

func New(baseURL string, httpClient *http.Client, headers map[string]string) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    httpClient,
		headers: headers,
	}
}

// Do sends body as JSON and decodes a 2xx response into out. Transport
// failures and 5xx wrap saga.ErrDownstreamUnavailable; other statuses
// return *StatusError.
func (c *Client) Do(ctx context.Context, method, path string, headers map[string]string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("cannot encode provider request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("cannot build provider request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s %s: %w", saga.ErrDownstreamUnavailable, method, path, err)
	}
	defer resp.Body.Close()

	payload, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))

	switch {
	case resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests:
		return fmt.Errorf("%w: %s %s returned %d", saga.ErrDownstreamUnavailable, method, path, resp.StatusCode)
	case resp.StatusCode >= 400:
		return &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(payload))}
	}

	if out != nil && len(payload) > 0 {
		if err := json.Unmarshal(payload, out); err != nil {
			return fmt.Errorf("cannot decode provider response: %w", err)
		}
	}
	return nil
}
