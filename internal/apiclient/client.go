// Package apiclient talks to the shop's REST API directly, bypassing the
// browser. Scenarios use it to seed state (customers, carts) and to verify
// what the UI rendered against what the backend reports.
package apiclient

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	json "github.com/json-iterator/go"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/xkilldash9x/sockshop-e2e/internal/config"
	"github.com/xkilldash9x/sockshop-e2e/internal/errs"
	"github.com/xkilldash9x/sockshop-e2e/internal/retry"
)

// Connection pool tuning for a test client hitting a single backend.
const (
	defaultMaxIdleConns        = 20
	defaultMaxIdleConnsPerHost = 10
	defaultIdleConnTimeout     = 90 * time.Second
	defaultRateBurst           = 5

	maxErrorBodyBytes = 4 << 10
)

// Client is a rate-limited, retrying HTTP client for the shop API.
type Client struct {
	base    *url.URL
	http    *http.Client
	cfg     config.APIConfig
	logger  *zap.Logger
	limiter *rate.Limiter
	exec    *retry.Executor
	headers map[string]string

	// sleep is swappable so tests can observe Retry-After handling without
	// real waiting.
	sleep func(ctx context.Context, d time.Duration) error
}

// NewClient builds a client from the API section of the configuration.
func NewClient(cfg *config.Config, logger *zap.Logger) (*Client, error) {
	base, err := url.Parse(cfg.API.BaseURL)
	if err != nil {
		return nil, errs.NewConfigError("api.base_url", err.Error())
	}

	transport := &http.Transport{
		MaxIdleConns:        defaultMaxIdleConns,
		MaxIdleConnsPerHost: defaultMaxIdleConnsPerHost,
		IdleConnTimeout:     defaultIdleConnTimeout,
		ForceAttemptHTTP2:   true,
		TLSClientConfig: &tls.Config{
			MinVersion:         tls.VersionTLS12,
			InsecureSkipVerify: !cfg.API.VerifyTLS,
		},
	}

	retryCfg := retry.APIConfig()
	if cfg.API.MaxRetries > 0 {
		retryCfg.MaxAttempts = cfg.API.MaxRetries
	}
	if cfg.API.RetryDelay > 0 {
		retryCfg.BaseDelay = cfg.API.RetryDelay
	}

	clientLogger := logger.With(zap.String("component", "apiclient"))
	manager := retry.NewManager(clientLogger)

	headers := map[string]string{
		"Accept":     "application/json",
		"User-Agent": cfg.AppName,
	}
	for k, v := range cfg.API.DefaultHeaders {
		headers[k] = v
	}

	return &Client{
		base: base,
		http: &http.Client{
			Transport: transport,
			Timeout:   cfg.API.Timeout,
		},
		cfg:     cfg.API,
		logger:  clientLogger,
		limiter: rate.NewLimiter(rate.Limit(cfg.API.RateLimitRPS), defaultRateBurst),
		exec: retry.NewExecutor(retryCfg, clientLogger, manager).
			WithBreaker(base.Host),
		headers: headers,
		sleep: func(ctx context.Context, d time.Duration) error {
			t := time.NewTimer(d)
			defer t.Stop()
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-t.C:
				return nil
			}
		},
	}, nil
}

// endpoint resolves a path against the base URL.
func (c *Client) endpoint(path string) string {
	ref := &url.URL{Path: path}
	return c.base.ResolveReference(ref).String()
}

type requestOptions struct {
	query     url.Values
	basicUser string
	basicPass string
}

// do runs one API call with rate limiting, retries, and error classification.
// A non-nil out receives the decoded JSON response body.
func (c *Client) do(ctx context.Context, method, path string, body, out any, opts *requestOptions) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return errs.Wrap(err, "rate limiter wait aborted", errs.CategoryTest, errs.SeverityLow)
	}

	operation := strings.ToLower(method) + "_" + strings.Trim(path, "/")
	return c.exec.Do(ctx, operation, func(ctx context.Context) error {
		return c.doOnce(ctx, method, path, body, out, opts)
	})
}

func (c *Client) doOnce(ctx context.Context, method, path string, body, out any, opts *requestOptions) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return errs.Wrap(err, "failed to encode request body", errs.CategoryData, errs.SeverityHigh)
		}
		reader = bytes.NewReader(payload)
	}

	target := c.endpoint(path)
	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return errs.Wrap(err, "failed to build request", errs.CategoryData, errs.SeverityHigh)
	}
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if opts != nil {
		if opts.query != nil {
			req.URL.RawQuery = opts.query.Encode()
		}
		if opts.basicUser != "" {
			req.SetBasicAuth(opts.basicUser, opts.basicPass)
		}
	}

	started := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return errs.NewTimeoutError(method+" "+path, c.cfg.Timeout, err)
		}
		return errs.NewNetworkError(fmt.Sprintf("%s %s failed", method, path), err)
	}
	defer resp.Body.Close()

	c.logger.Debug("api call",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("elapsed", time.Since(started)))

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if out == nil {
			io.Copy(io.Discard, resp.Body)
			return nil
		}
		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return errs.NewNetworkError("failed to read response body", err)
		}
		if err := json.Unmarshal(data, out); err != nil {
			return errs.Wrap(err, "failed to decode response body", errs.CategoryData, errs.SeverityHigh)
		}
		return nil
	}

	return c.statusError(ctx, resp, method, path)
}

// statusError maps an error response to the taxonomy. 429 honors Retry-After
// before handing the error back to the retry loop.
func (c *Client) statusError(ctx context.Context, resp *http.Response, method, path string) error {
	snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
	detail := strings.TrimSpace(string(snippet))
	if detail == "" {
		detail = resp.Status
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		if wait := retryAfter(resp.Header.Get("Retry-After")); wait > 0 {
			c.logger.Warn("rate limited by server", zap.Duration("retry_after", wait))
			if err := c.sleep(ctx, wait); err != nil {
				return errs.Wrap(err, "canceled while honoring Retry-After",
					errs.CategoryTest, errs.SeverityLow)
			}
		}
		return errs.New("server rate limit hit", errs.CategoryNetwork, errs.SeverityMedium).
			WithContext("path", path)
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return errs.NewAuthenticationError(detail, nil).WithContext("path", path)
	case resp.StatusCode == http.StatusNotFound:
		return errs.New(fmt.Sprintf("%s %s: not found", method, path),
			errs.CategoryData, errs.SeverityHigh)
	case resp.StatusCode >= 500:
		return errs.NewNetworkError(
			fmt.Sprintf("%s %s: server error %d: %s", method, path, resp.StatusCode, detail), nil)
	default:
		return errs.New(fmt.Sprintf("%s %s: unexpected status %d: %s",
			method, path, resp.StatusCode, detail), errs.CategoryData, errs.SeverityHigh)
	}
}

// retryAfter parses a Retry-After header value, either delta seconds or an
// HTTP date. Returns 0 when absent or unparseable.
func retryAfter(value string) time.Duration {
	if value == "" {
		return 0
	}
	if secs, err := strconv.Atoi(value); err == nil && secs >= 0 {
		return time.Duration(secs) * time.Second
	}
	if at, err := http.ParseTime(value); err == nil {
		if d := time.Until(at); d > 0 {
			return d
		}
	}
	return 0
}
