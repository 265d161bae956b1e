// Package randomuser fetches generated people from the randomuser.me API.
package randomuser

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/userhub-io/userhub/internal/config"
	"github.com/userhub-io/userhub/internal/integration"
)

const (
	// DefaultBaseURL is the public randomuser.me endpoint.
	DefaultBaseURL = "https://randomuser.me/api/"

	maxResponseBytes = 10 << 20
)

// ErrEmptyBaseURL is returned by Config.Validate when no base URL is set.
var ErrEmptyBaseURL = errors.New("randomuser base URL cannot be empty")

type (
	// Config holds the upstream endpoint settings.
	Config struct {
		BaseURL string
		// Timeout bounds one fetch. Zero means no client-side timeout.
		Timeout time.Duration
	}

	// Client implements integration.Fetcher against the randomuser.me API.
	Client struct {
		baseURL    *url.URL
		httpClient *http.Client
	}

	response struct {
		Results []integration.Candidate `json:"results"`
	}
)

// LoadConfig reads USERHUB_RANDOMUSER_URL and USERHUB_RANDOMUSER_TIMEOUT.
func LoadConfig() *Config {
	return &Config{
		BaseURL: config.GetEnvStr(DefaultBaseURL, "USERHUB_RANDOMUSER_URL"),
		Timeout: config.GetEnvDuration(0, "USERHUB_RANDOMUSER_TIMEOUT"),
	}
}

// Validate checks that BaseURL is an absolute http(s) URL.
func (c *Config) Validate() error {
	if c.BaseURL == "" {
		return ErrEmptyBaseURL
	}

	u, err := url.Parse(c.BaseURL)
	if err != nil {
		return fmt.Errorf("invalid randomuser base URL: %w", err)
	}

	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("invalid randomuser base URL scheme %q", u.Scheme)
	}

	return nil
}

// NewClient creates a Client from cfg. A nil httpClient gets a fresh one honoring cfg.Timeout.
func NewClient(cfg *Config, httpClient *http.Client) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	baseURL, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid randomuser base URL: %w", err)
	}

	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}

	return &Client{baseURL: baseURL, httpClient: httpClient}, nil
}

// Fetch requests count people in a single GET. A transport error, a non-2xx status or
// an undecodable body is returned as *integration.UpstreamError.
func (c *Client) Fetch(ctx context.Context, count int) ([]integration.Candidate, error) {
	endpoint := *c.baseURL
	query := endpoint.Query()
	query.Set("results", strconv.Itoa(count))
	endpoint.RawQuery = query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return nil, integration.NewUpstreamError(0, err)
	}

	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, integration.NewUpstreamError(0, err)
	}

	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseBytes))

		return nil, integration.NewUpstreamError(resp.StatusCode, fmt.Errorf("unexpected status %s", resp.Status))
	}

	var body response
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&body); err != nil {
		return nil, integration.NewUpstreamError(resp.StatusCode, fmt.Errorf("decode response: %w", err))
	}

	return body.Results, nil
}
