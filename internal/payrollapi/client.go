// Package payrollapi is a client for the external payroll API: roster,
// tracking options, earnings rates and timesheet creation.
package payrollapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/phillip-england/payrollsync/internal/logging"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

const (
	pageSize      = 100
	maxRetryAfter = 60 * time.Second
)

type Config struct {
	BaseURL      string
	TokenURL     string
	ClientID     string
	ClientSecret string
	TenantID     string
	Scopes       []string
	// TokenFile caches the access token between processes when set.
	TokenFile  string
	Timeout    time.Duration
	MaxRetries int
}

type Client struct {
	httpClient *http.Client
	baseURL    string
	tenantID   string
	maxRetries int
	wait       func(context.Context, time.Duration) error
}

// New builds a client that authenticates with the client-credentials grant.
// ctx is used for token requests for the life of the client.
func New(ctx context.Context, cfg Config) (*Client, error) {
	if cfg.ClientID == "" || cfg.ClientSecret == "" {
		return nil, errors.New("payroll api client id and secret are required")
	}
	if cfg.TokenURL == "" {
		return nil, errors.New("payroll api token url is required")
	}
	cc := &clientcredentials.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		TokenURL:     cfg.TokenURL,
		Scopes:       cfg.Scopes,
	}
	var ts oauth2.TokenSource = cc.TokenSource(ctx)
	if cfg.TokenFile != "" {
		saved, err := loadToken(cfg.TokenFile)
		if err != nil {
			logging.FromContext(ctx).Warn().Err(err).Msg("ignoring saved token")
		}
		ts = &savingTokenSource{ts: oauth2.ReuseTokenSource(saved, ts), path: cfg.TokenFile}
	}
	hc := oauth2.NewClient(ctx, ts)
	hc.Timeout = cfg.Timeout
	return NewWithHTTPClient(cfg.BaseURL, cfg.TenantID, hc, cfg.MaxRetries), nil
}

// NewWithHTTPClient wraps an already authenticated HTTP client.
func NewWithHTTPClient(baseURL, tenantID string, hc *http.Client, maxRetries int) *Client {
	if hc == nil {
		hc = http.DefaultClient
	}
	return &Client{
		httpClient: hc,
		baseURL:    strings.TrimRight(baseURL, "/"),
		tenantID:   tenantID,
		maxRetries: maxRetries,
		wait:       sleepContext,
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// do sends one request, retrying rate-limited calls after the server's
// Retry-After delay and retrying idempotent calls on 5xx.
func (c *Client) do(ctx context.Context, method, path string, body any, out any) error {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode %s %s: %w", method, path, err)
		}
	}
	log := logging.FromContext(ctx)

	for attempt := 0; ; attempt++ {
		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+"/"+strings.TrimLeft(path, "/"), bytes.NewReader(payload))
		if err != nil {
			return fmt.Errorf("creating request: %w", err)
		}
		req.Header.Set("Accept", "application/json")
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		if c.tenantID != "" {
			req.Header.Set("Xero-tenant-id", c.tenantID)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("%s %s: %w", method, path, err)
		}
		data, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			return fmt.Errorf("reading response body: %w", err)
		}

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			if out == nil || len(bytes.TrimSpace(data)) == 0 {
				return nil
			}
			if err := json.Unmarshal(data, out); err != nil {
				return fmt.Errorf("decoding %s %s response: %w", method, path, err)
			}
			return nil
		}

		apiErr := &APIError{Method: method, Path: path, StatusCode: resp.StatusCode, Message: errorMessage(resp.StatusCode, data)}
		if attempt >= c.maxRetries {
			return apiErr
		}
		var delay time.Duration
		switch {
		case resp.StatusCode == http.StatusTooManyRequests:
			delay = retryAfter(resp.Header.Get("Retry-After"))
			apiErr.RetryAfter = delay
		case resp.StatusCode >= 500 && method == http.MethodGet:
			delay = time.Duration(attempt+1) * 500 * time.Millisecond
		default:
			return apiErr
		}
		log.Warn().
			Str("method", method).
			Str("path", path).
			Int("status", resp.StatusCode).
			Dur("retry_in", delay).
			Msg("payroll api request failed, retrying")
		if err := c.wait(ctx, delay); err != nil {
			return err
		}
	}
}

// retryAfter reads a Retry-After header in seconds, capped at a minute.
func retryAfter(raw string) time.Duration {
	secs, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || secs < 0 {
		return maxRetryAfter
	}
	d := time.Duration(secs) * time.Second
	return min(d, maxRetryAfter)
}
