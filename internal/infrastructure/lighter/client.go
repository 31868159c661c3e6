package lighter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"go.uber.org/zap"

	"github.com/bimakw/lighter-tracker/internal/config"
	"github.com/bimakw/lighter-tracker/internal/domain/entities"
	"github.com/bimakw/lighter-tracker/internal/domain/repositories"
)

// Ensure Client implements AccountsSource
var _ repositories.AccountsSource = (*Client)(nil)

// maxErrorBody bounds how much of a failed response is kept for logging
const maxErrorBody = 512

// StatusError is returned when the accounts API answers with a non-2xx status
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("accounts API returned status %d", e.StatusCode)
}

// Client calls the accounts API. Requests are never retried.
type Client struct {
	httpClient *http.Client
	endpoint   string
	userAgent  string
	logger     *zap.Logger
}

type fetchRequest struct {
	Addresses []string `json:"addresses"`
}

// NewClient creates an accounts API client
func NewClient(cfg config.UpstreamConfig, logger *zap.Logger) *Client {
	return NewClientWithHTTP(cfg, &http.Client{Timeout: cfg.Timeout}, logger)
}

// NewClientWithHTTP creates a client on top of an existing http.Client
func NewClientWithHTTP(cfg config.UpstreamConfig, httpClient *http.Client, logger *zap.Logger) *Client {
	return &Client{
		httpClient: httpClient,
		endpoint:   cfg.Endpoint(),
		userAgent:  cfg.UserAgent,
		logger:     logger,
	}
}

// Endpoint returns the URL requests are sent to
func (c *Client) Endpoint() string {
	return c.endpoint
}

// FetchAccounts posts every address in a single request
func (c *Client) FetchAccounts(ctx context.Context, addresses []string) (*entities.AccountsResponse, error) {
	body, err := json.Marshal(fetchRequest{Addresses: addresses})
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call accounts API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		c.logger.Warn("Accounts API returned error status",
			zap.Int("status", resp.StatusCode),
			zap.String("body", string(snippet)),
		)
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: string(snippet)}
	}

	var out entities.AccountsResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode accounts response: %w", err)
	}

	c.logger.Debug("Fetched accounts",
		zap.Int("address_count", len(addresses)),
		zap.Int("account_count", len(out.Accounts)),
	)

	return &out, nil
}
