// Package pluggy implements the aggregation-provider API client: a
// two-step handshake that authenticates with client credentials and
// then issues short-lived connect tokens for the client-side widget.
package pluggy

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"financefly/internal/domain/connect"
)

const (
	defaultBaseURL   = "https://api.pluggy.ai"
	authPath         = "/auth"
	connectTokenPath = "/connect_token"
	requestTimeout   = 15 * time.Second

	// How long an apiKey is reused before re-authenticating. Pluggy
	// keys live longer, but the key must never outlive one logical
	// session, and it is never persisted.
	apiKeyTTL = 30 * time.Minute
)

// Client talks to the Pluggy API. It caches the apiKey from the auth
// step in memory so issuing several connect tokens within one session
// does not repeat the authenticate call.
type Client struct {
	baseURL      string
	clientID     string
	clientSecret string
	httpClient   *http.Client

	mu          sync.Mutex
	apiKey      string
	apiKeySince time.Time
}

// Ensure Client satisfies the flow's token issuer contract.
var _ connect.TokenIssuer = (*Client)(nil)

func NewClient(clientID, clientSecret string) *Client {
	return &Client{
		baseURL:      defaultBaseURL,
		clientID:     clientID,
		clientSecret: clientSecret,
		httpClient: &http.Client{
			Timeout:   requestTimeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
}

// SetBaseURL overrides the provider endpoint, e.g. for a sandbox
// deployment.
func (c *Client) SetBaseURL(url string) {
	c.baseURL = url
}

type authRequest struct {
	ClientID     string `json:"clientId"`
	ClientSecret string `json:"clientSecret"`
}

type authResponse struct {
	APIKey string `json:"apiKey"`
}

type connectTokenRequest struct {
	ClientUserID string `json:"clientUserId,omitempty"`
}

type connectTokenResponse struct {
	AccessToken string `json:"accessToken"`
}

// Authenticate performs the credential exchange and returns the apiKey
// used to authorize subsequent calls.
func (c *Client) Authenticate(ctx context.Context) (string, error) {
	body, err := json.Marshal(authRequest{
		ClientID:     c.clientID,
		ClientSecret: c.clientSecret,
	})
	if err != nil {
		return "", fmt.Errorf("failed to encode auth request: %w", err)
	}

	respBody, err := c.post(ctx, "authenticate", c.baseURL+authPath, nil, body)
	if err != nil {
		return "", err
	}

	var auth authResponse
	if err := json.Unmarshal(respBody, &auth); err != nil {
		return "", &connect.InvalidResponseError{Err: fmt.Errorf("authenticate: %w", err)}
	}
	if auth.APIKey == "" {
		return "", &connect.InvalidResponseError{Field: "apiKey"}
	}

	c.mu.Lock()
	c.apiKey = auth.APIKey
	c.apiKeySince = time.Now()
	c.mu.Unlock()

	return auth.APIKey, nil
}

// CreateConnectToken issues a connect token for the widget, bound to
// clientUserID (the user's email, possibly empty). It authenticates
// first when no fresh apiKey is cached.
func (c *Client) CreateConnectToken(ctx context.Context, clientUserID string) (string, error) {
	apiKey, err := c.cachedAPIKey(ctx)
	if err != nil {
		return "", err
	}

	body, err := json.Marshal(connectTokenRequest{ClientUserID: clientUserID})
	if err != nil {
		return "", fmt.Errorf("failed to encode connect token request: %w", err)
	}

	headers := map[string]string{"X-API-KEY": apiKey}
	respBody, err := c.post(ctx, "connect_token", c.baseURL+connectTokenPath, headers, body)
	if err != nil {
		// A rejected key means the cache is stale; drop it so the next
		// attempt re-authenticates.
		if isAuthFailure(err) {
			c.invalidateAPIKey()
		}
		return "", err
	}

	var token connectTokenResponse
	if err := json.Unmarshal(respBody, &token); err != nil {
		return "", &connect.InvalidResponseError{Err: fmt.Errorf("connect_token: %w", err)}
	}
	if token.AccessToken == "" {
		return "", &connect.InvalidResponseError{Field: "accessToken"}
	}

	return token.AccessToken, nil
}

func (c *Client) cachedAPIKey(ctx context.Context) (string, error) {
	c.mu.Lock()
	key := c.apiKey
	fresh := key != "" && time.Since(c.apiKeySince) < apiKeyTTL
	c.mu.Unlock()

	if fresh {
		return key, nil
	}
	return c.Authenticate(ctx)
}

func (c *Client) invalidateAPIKey() {
	c.mu.Lock()
	c.apiKey = ""
	c.mu.Unlock()
}

// post executes one provider call and maps failures to the flow's
// error taxonomy. op names the call for error context.
func (c *Client) post(ctx context.Context, op, url string, headers map[string]string, body []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create %s request: %w", op, err)
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &connect.NetworkError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &connect.NetworkError{Op: op, Err: err}
	}

	if resp.StatusCode != http.StatusOK {
		return nil, mapStatus(op, resp.StatusCode, respBody)
	}

	return respBody, nil
}

// mapStatus converts a non-200 provider response into a typed error.
// No retry happens here; the caller decides whether to re-invoke.
func mapStatus(op string, status int, body []byte) error {
	switch {
	case status == http.StatusUnauthorized:
		return fmt.Errorf("%s: %w", op, connect.ErrInvalidCredentials)
	case status == http.StatusForbidden:
		return fmt.Errorf("%s: %w", op, connect.ErrForbidden)
	case status == http.StatusTooManyRequests:
		return fmt.Errorf("%s: %w", op, connect.ErrRateLimited)
	case status >= 500:
		return fmt.Errorf("%s: %w", op, connect.ErrProviderUnavailable)
	default:
		return &connect.ProviderError{StatusCode: status, Body: truncate(string(body), 256)}
	}
}

func isAuthFailure(err error) bool {
	return errors.Is(err, connect.ErrInvalidCredentials) || errors.Is(err, connect.ErrForbidden)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
