package gateway

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	iderr "github.com/innover-platform/identity-core/pkg/errors"
)

// maxResponseSize bounds an admin REST response body read.
const maxResponseSize = 4 << 20

// HTTPClient abstracts the HTTP client used for admin REST calls. The
// standard [http.Client] satisfies this interface.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client is the gateway admin REST client. Call [Client.Authenticate]
// before any admin operation; the bearer token it acquires is attached
// to every subsequent request.
//
// A Client is safe for concurrent use after Authenticate returns.
type Client struct {
	host   string
	config Config
	client HTTPClient

	mu          sync.RWMutex
	accessToken string
}

// NewClient creates a gateway client. No connection is made until
// [Client.WaitReady] or [Client.Authenticate].
//
// Error codes returned:
//   - [iderr.CodeValidation]: invalid configuration
func NewClient(cfg Config) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, iderr.Wrap(err, iderr.CodeValidation,
			"gateway: invalid configuration")
	}

	client := cfg.HTTPClient
	if client == nil {
		transport := http.DefaultTransport.(*http.Transport).Clone()
		if cfg.InsecureSkipVerify {
			transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
		}
		client = &http.Client{
			Transport: transport,
			Timeout:   cfg.Timeout,
		}
	}

	return &Client{
		host:   strings.TrimRight(cfg.Host, "/"),
		config: cfg,
		client: client,
	}, nil
}

func (c *Client) publisherAPI() string { return c.host + "/api/am/publisher/v4" }
func (c *Client) adminAPI() string     { return c.host + "/api/am/admin/v4" }

// WaitReady polls the gateway's version endpoint until it answers 200,
// up to maxRetries attempts spaced by interval. Gateway containers take
// minutes to boot; setup flows call this before authenticating.
//
// Error codes returned:
//   - [iderr.CodeUnavailableDependency]: gateway not ready after all
//     retries
func (c *Client) WaitReady(ctx context.Context, maxRetries int, interval time.Duration) error {
	for attempt := 1; attempt <= maxRetries; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.host+"/services/Version", nil)
		if err != nil {
			return iderr.Wrap(err, iderr.CodeInternal, "gateway: failed to create readiness request")
		}

		resp, err := c.client.Do(req)
		if err == nil {
			_ = resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return nil
			}
		}

		slog.InfoContext(ctx, "gateway: waiting for gateway to become ready",
			"attempt", attempt,
			"max_attempts", maxRetries,
		)

		select {
		case <-ctx.Done():
			return iderr.Wrap(ctx.Err(), iderr.CodeTimeout, "gateway: readiness wait canceled")
		case <-time.After(interval):
		}
	}

	return iderr.Newf(iderr.CodeUnavailableDependency,
		"gateway: not ready after %d attempts", maxRetries)
}

// Authenticate acquires an admin access token. It first registers a
// client via dynamic client registration; if registration fails, it
// falls back to the admin credentials as client credentials. Either
// way, the token comes from a password grant against /oauth2/token.
//
// Error codes returned:
//   - [iderr.CodeAuthentication]: token endpoint rejected the grant
//   - [iderr.CodeUnavailableDependency]: gateway unreachable
func (c *Client) Authenticate(ctx context.Context) error {
	clientID, clientSecret := c.registerClient(ctx)

	form := url.Values{
		"grant_type": {"password"},
		"username":   {c.config.Username},
		"password":   {c.config.Password.Value()},
		"scope":      {adminScope},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.host+"/oauth2/token", strings.NewReader(form.Encode()))
	if err != nil {
		return iderr.Wrap(err, iderr.CodeInternal, "gateway: failed to create token request")
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth(clientID, clientSecret)

	resp, err := c.client.Do(req)
	if err != nil {
		return iderr.Wrap(err, iderr.CodeUnavailableDependency,
			"gateway: token request failed")
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return iderr.Wrap(err, iderr.CodeUnavailableDependency,
			"gateway: failed to read token response")
	}

	if resp.StatusCode != http.StatusOK {
		return iderr.Newf(iderr.CodeAuthentication,
			"gateway: token endpoint returned status %d", resp.StatusCode)
	}

	var token struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.Unmarshal(body, &token); err != nil || token.AccessToken == "" {
		return iderr.New(iderr.CodeAuthentication,
			"gateway: token response carries no access token")
	}

	c.mu.Lock()
	c.accessToken = token.AccessToken
	c.mu.Unlock()
	return nil
}

// registerClient performs dynamic client registration and returns the
// issued client credentials, falling back to the admin credentials when
// registration is unavailable.
func (c *Client) registerClient(ctx context.Context) (string, string) {
	payload, _ := json.Marshal(map[string]any{
		"clientName": dcrClientName,
		"owner":      c.config.Username,
		"grantType":  "password refresh_token",
		"saasApp":    true,
	})

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.host+"/client-registration/v0.17/register", bytes.NewReader(payload))
	if err != nil {
		return c.config.Username, c.config.Password.Value()
	}
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(c.config.Username, c.config.Password.Value())

	resp, err := c.client.Do(req)
	if err != nil {
		return c.config.Username, c.config.Password.Value()
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		slog.WarnContext(ctx, "gateway: client registration failed, using admin credentials",
			"status", resp.StatusCode,
		)
		return c.config.Username, c.config.Password.Value()
	}

	var dcr struct {
		ClientID     string `json:"clientId"`
		ClientSecret string `json:"clientSecret"`
	}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err := json.Unmarshal(body, &dcr); err != nil || dcr.ClientID == "" {
		return c.config.Username, c.config.Password.Value()
	}
	return dcr.ClientID, dcr.ClientSecret
}

// do executes an authenticated admin REST call and decodes a 2xx JSON
// response into out (when out is non-nil). Non-2xx statuses map to
// structured errors by class.
func (c *Client) do(ctx context.Context, method, requestURL string, payload, out any) error {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return iderr.Wrap(err, iderr.CodeInternal, "gateway: failed to encode request payload")
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, requestURL, body)
	if err != nil {
		return iderr.Wrap(err, iderr.CodeInternal, "gateway: failed to create request")
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	c.mu.RLock()
	token := c.accessToken
	c.mu.RUnlock()
	if token == "" {
		return iderr.New(iderr.CodeAuthentication,
			"gateway: not authenticated; call Authenticate first")
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.client.Do(req)
	if err != nil {
		return iderr.Wrap(err, iderr.CodeUnavailableDependency,
			"gateway: request failed")
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return iderr.Wrap(err, iderr.CodeUnavailableDependency,
			"gateway: failed to read response")
	}

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return iderr.Newf(iderr.CodeAuthentication,
			"gateway: request rejected with status %d", resp.StatusCode)
	case resp.StatusCode == http.StatusNotFound:
		return iderr.Newf(iderr.CodeNotFound,
			"gateway: resource not found at %s", requestURL)
	case resp.StatusCode == http.StatusConflict:
		return iderr.New(iderr.CodeConflictAlreadyExists,
			"gateway: resource already exists")
	default:
		return iderr.Newf(iderr.CodeUnavailableDependency,
			"gateway: request returned status %d: %s", resp.StatusCode, truncate(respBody, 200))
	}

	if out != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, out); err != nil {
			return iderr.Wrap(err, iderr.CodeUnavailableDependency,
				"gateway: response is not valid JSON")
		}
	}
	return nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}

// decodeJSONBody decodes a bounded JSON response body into out.
func decodeJSONBody(r io.Reader, out any) error {
	data, err := io.ReadAll(io.LimitReader(r, maxResponseSize))
	if err != nil {
		return err
	}
	return json.Unmarshal(data, out)
}

func (c *Client) getJSON(ctx context.Context, requestURL string, out any) error {
	return c.do(ctx, http.MethodGet, requestURL, nil, out)
}

func buildQuery(base string, params url.Values) string {
	return fmt.Sprintf("%s?%s", base, params.Encode())
}
