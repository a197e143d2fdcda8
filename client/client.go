// Package client provides a Go client for the signup server's HTTP API.
//
// Example usage:
//
//	c, err := client.New("http://localhost:8080")
//	if err != nil {
//	    return err
//	}
//	msg, err := c.Signup(ctx, "Chess Club", "ada@mergington.edu")
//	if errors.Is(err, activities.ErrAlreadyRegistered) {
//	    // already on the roster
//	}
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/nomis52/signup/activities"
)

const (
	defaultTimeout = 10 * time.Second

	opSignup     = "signup"
	opUnregister = "unregister"
)

// Client talks to a signup server.
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
	logger     *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets the HTTP client used for requests.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithTimeout sets the per-request timeout of the default HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.httpClient = &http.Client{Timeout: d}
	}
}

// WithLogger sets the logger for debug output.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// New creates a Client for the server at baseURL, e.g. "http://localhost:8080".
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL %q: %w", baseURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid base URL %q: scheme must be http or https", baseURL)
	}

	c := &Client{
		baseURL:    u,
		httpClient: &http.Client{Timeout: defaultTimeout},
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Activities returns every activity with its participants.
func (c *Client) Activities(ctx context.Context) (map[string]activities.Activity, error) {
	resp, err := c.doRequest(ctx, http.MethodGet, c.baseURL.JoinPath("activities"))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, newAPIError(resp, "")
	}

	var all map[string]activities.Activity
	if err := json.NewDecoder(resp.Body).Decode(&all); err != nil {
		return nil, fmt.Errorf("failed to decode activities: %w", err)
	}
	return all, nil
}

// Signup adds email to the named activity and returns the server's
// confirmation message.
func (c *Client) Signup(ctx context.Context, activity, email string) (string, error) {
	return c.rosterChange(ctx, opSignup, activity, email)
}

// Unregister removes email from the named activity and returns the server's
// confirmation message.
func (c *Client) Unregister(ctx context.Context, activity, email string) (string, error) {
	return c.rosterChange(ctx, opUnregister, activity, email)
}

func (c *Client) rosterChange(ctx context.Context, op, activity, email string) (string, error) {
	u := c.baseURL.JoinPath("activities", url.PathEscape(activity), op)
	u.RawQuery = url.Values{"email": {email}}.Encode()

	resp, err := c.doRequest(ctx, http.MethodPost, u)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", newAPIError(resp, op)
	}

	var body struct {
		Message string `json:"message"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("failed to decode %s response: %w", op, err)
	}
	return body.Message, nil
}

func (c *Client) doRequest(ctx context.Context, method string, u *url.URL) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	c.logger.Debug("sending request", "method", method, "url", u.String())
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request to %s failed: %w", u.Redacted(), err)
	}
	return resp, nil
}

// drain reads at most limit bytes of body for error reporting.
func drain(body io.Reader, limit int64) []byte {
	b, _ := io.ReadAll(io.LimitReader(body, limit))
	return b
}
