// Package httputil provides the HTTP client operator tooling uses to call
// the bridge API. Requests are signed with the same personal-sign scheme the
// server's authentication middleware verifies.
package httputil

import (
	"bytes"
	"context"
	"crypto/ecdsa"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/OmniStable-Network/bridge_layer/internal/middleware"
)

// ClientConfig configures the API client.
type ClientConfig struct {
	// BaseURL is the bridge API root, e.g. http://localhost:8080.
	BaseURL string

	// Key signs every request. The server recovers the caller address from
	// the signature, so no address needs to be configured alongside it.
	Key *ecdsa.PrivateKey

	// Caller is the claimed address for unsigned requests. Only servers
	// running with authentication relaxed accept those; ignored when Key is
	// set.
	Caller common.Address

	Timeout time.Duration

	// MaxRetries bounds re-sends after transport failures, 5xx responses
	// and 401s from an expired signature window.
	MaxRetries int
}

// Client calls the bridge HTTP API on behalf of one operator account.
type Client struct {
	httpClient *http.Client
	baseURL    string
	key        *ecdsa.PrivateKey
	caller     common.Address
	maxRetries int
}

// NewClient creates an API client. Timeout defaults to 30s, MaxRetries to 2.
func NewClient(cfg ClientConfig) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	retries := cfg.MaxRetries
	if retries == 0 {
		retries = 2
	}
	caller := cfg.Caller
	if cfg.Key != nil {
		caller = crypto.PubkeyToAddress(cfg.Key.PublicKey)
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		key:        cfg.Key,
		caller:     caller,
		maxRetries: retries,
	}
}

// Caller returns the address requests are attributed to.
func (c *Client) Caller() common.Address {
	return c.caller
}

// Get performs a GET request.
func (c *Client) Get(ctx context.Context, path string) (*http.Response, error) {
	return c.doRequest(ctx, http.MethodGet, path, nil)
}

// Post performs a POST request with a JSON body.
func (c *Client) Post(ctx context.Context, path string, body interface{}) (*http.Response, error) {
	return c.doRequest(ctx, http.MethodPost, path, body)
}

// Put performs a PUT request with a JSON body.
func (c *Client) Put(ctx context.Context, path string, body interface{}) (*http.Response, error) {
	return c.doRequest(ctx, http.MethodPut, path, body)
}

// Patch performs a PATCH request with a JSON body.
func (c *Client) Patch(ctx context.Context, path string, body interface{}) (*http.Response, error) {
	return c.doRequest(ctx, http.MethodPatch, path, body)
}

// Delete performs a DELETE request.
func (c *Client) Delete(ctx context.Context, path string) (*http.Response, error) {
	return c.doRequest(ctx, http.MethodDelete, path, nil)
}

func (c *Client) doRequest(ctx context.Context, method, path string, payload interface{}) (*http.Response, error) {
	var body []byte
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("encode request body: %w", err)
		}
		body = data
	}

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(time.Duration(attempt) * 200 * time.Millisecond):
			}
		}

		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		// Each attempt signs afresh so a retry carries a current timestamp.
		if err := c.authenticate(req, method, path, body); err != nil {
			return nil, err
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = err
			continue
		}
		if c.retryable(resp.StatusCode) && attempt < c.maxRetries {
			resp.Body.Close()
			lastErr = fmt.Errorf("server returned %s", resp.Status)
			continue
		}
		return resp, nil
	}
	return nil, fmt.Errorf("%s %s failed after %d attempts: %w", method, path, c.maxRetries+1, lastErr)
}

// retryable reports whether a status is worth another attempt. 401 is only
// retried when signing, since a fresh signature can clear an expired
// timestamp window.
func (c *Client) retryable(status int) bool {
	if status >= 500 {
		return true
	}
	return status == http.StatusUnauthorized && c.key != nil
}

func (c *Client) authenticate(req *http.Request, method, path string, body []byte) error {
	if c.key == nil {
		caller := c.caller
		if caller == (common.Address{}) {
			if ctxCaller, ok := middleware.CallerFromContext(req.Context()); ok {
				caller = ctxCaller
			}
		}
		if caller != (common.Address{}) {
			req.Header.Set(middleware.CallerHeader, caller.Hex())
		}
		return nil
	}

	timestamp := strconv.FormatInt(time.Now().Unix(), 10)
	digest := accounts.TextHash(middleware.SignaturePayload(method, path, body, timestamp))
	sig, err := crypto.Sign(digest, c.key)
	if err != nil {
		return fmt.Errorf("sign request: %w", err)
	}
	// Match personal_sign, which publishes V as 27 or 28.
	sig[crypto.RecoveryIDOffset] += 27

	req.Header.Set(middleware.CallerHeader, c.caller.Hex())
	req.Header.Set(middleware.SignatureHeader, "0x"+hex.EncodeToString(sig))
	req.Header.Set(middleware.TimestampHeader, timestamp)
	return nil
}

// DecodeResponse decodes a JSON response into v and closes the body. Error
// statuses become errors carrying the server's message.
func DecodeResponse(resp *http.Response, v interface{}) error {
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
		var apiErr struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(data, &apiErr) == nil && apiErr.Error != "" {
			return fmt.Errorf("%s: %s", resp.Status, apiErr.Error)
		}
		return fmt.Errorf("%s: %s", resp.Status, strings.TrimSpace(string(data)))
	}
	if v == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(v)
}
