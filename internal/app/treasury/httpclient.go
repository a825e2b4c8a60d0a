package treasury

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// ClientConfig configures the HTTP treasury client.
type ClientConfig struct {
	BaseURL    string
	Timeout    time.Duration
	MaxRetries int
}

// Client resolves treasury identity and roles from a remote treasury
// service. Transient upstream failures are retried.
type Client struct {
	httpClient *http.Client
	baseURL    string
	maxRetries int
}

var _ Treasury = (*Client)(nil)

// NewClient creates an HTTP treasury client.
func NewClient(cfg ClientConfig) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	maxRetries := cfg.MaxRetries
	if maxRetries == 0 {
		maxRetries = 2
	}

	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		maxRetries: maxRetries,
	}
}

type addressResponse struct {
	Address string `json:"address"`
}

type rolesResponse struct {
	Governor bool `json:"governor"`
	Guardian bool `json:"guardian"`
}

func (c *Client) Address(ctx context.Context) (common.Address, error) {
	var out addressResponse
	if err := c.get(ctx, "/v1/treasury/address", &out); err != nil {
		return common.Address{}, err
	}
	return common.HexToAddress(out.Address), nil
}

func (c *Client) IsGovernor(ctx context.Context, addr common.Address) (bool, error) {
	roles, err := c.roles(ctx, addr)
	if err != nil {
		return false, err
	}
	return roles.Governor, nil
}

func (c *Client) IsGovernorOrGuardian(ctx context.Context, addr common.Address) (bool, error) {
	roles, err := c.roles(ctx, addr)
	if err != nil {
		return false, err
	}
	return roles.Governor || roles.Guardian, nil
}

func (c *Client) Stablecoin(ctx context.Context) (common.Address, error) {
	var out addressResponse
	if err := c.get(ctx, "/v1/treasury/stablecoin", &out); err != nil {
		return common.Address{}, err
	}
	return common.HexToAddress(out.Address), nil
}

func (c *Client) roles(ctx context.Context, addr common.Address) (rolesResponse, error) {
	var out rolesResponse
	err := c.get(ctx, "/v1/treasury/roles/"+addr.Hex(), &out)
	return out, err
}

func (c *Client) get(ctx context.Context, path string, target interface{}) error {
	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		resp, err := c.do(ctx, path)
		if err != nil {
			lastErr = err
			continue
		}
		if retryableStatus(resp.StatusCode) && attempt < c.maxRetries {
			drain(resp)
			lastErr = fmt.Errorf("treasury returned status %d", resp.StatusCode)
			continue
		}
		return decodeResponse(resp, target)
	}
	return lastErr
}

func (c *Client) do(ctx context.Context, path string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("treasury request failed: %w", err)
	}
	return resp, nil
}

func retryableStatus(code int) bool {
	switch code {
	case http.StatusTooManyRequests, http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	}
	return false
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
	resp.Body.Close()
}

func decodeResponse(resp *http.Response, target interface{}) error {
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		return fmt.Errorf("treasury returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("read response body: %w", err)
	}
	if err := json.Unmarshal(body, target); err != nil {
		return fmt.Errorf("decode treasury response: %w", err)
	}
	return nil
}
