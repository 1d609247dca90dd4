// Package client is a Go SDK for the starter API.
//
// The client keeps the access token in memory and the refresh token in a
// cookie jar. A request rejected with 401 triggers one refresh that is
// shared by every caller waiting at the same moment; the request is then
// retried once with the new token. When the refresh itself fails the
// session is cleared and the OnSessionExpired hook runs.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

const refreshTimeout = 15 * time.Second

// ErrSessionExpired is returned when a refresh could not restore the session.
var ErrSessionExpired = errors.New("session expired")

// APIError is a non-2xx response from the API.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d: %s", e.Status, e.Message)
}

// User is the public view of an account.
type User struct {
	ID        string   `json:"id"`
	Email     string   `json:"email"`
	Roles     []string `json:"roles"`
	Provider  string   `json:"provider"`
	IsActive  bool     `json:"isActive"`
	FirstName string   `json:"firstName,omitempty"`
	LastName  string   `json:"lastName,omitempty"`
	Avatar    string   `json:"avatar,omitempty"`
}

// RegisterRequest is the body of a registration.
type RegisterRequest struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"firstName,omitempty"`
	LastName  string `json:"lastName,omitempty"`
}

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type sessionData struct {
	AccessToken string `json:"accessToken"`
	User        User   `json:"user"`
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets the underlying HTTP client. Its Jar is replaced
// when nil.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.http = hc
	}
}

// WithOnSessionExpired registers a hook run after a failed refresh.
func WithOnSessionExpired(fn func()) Option {
	return func(c *Client) {
		c.onSessionExpired = fn
	}
}

// Client talks to the API on behalf of one user session.
type Client struct {
	baseURL          string
	http             *http.Client
	onSessionExpired func()

	mu          sync.RWMutex
	accessToken string

	refreshGroup singleflight.Group
}

// New creates a Client for the API rooted at baseURL, e.g.
// "http://localhost:3000/api".
func New(baseURL string, opts ...Option) (*Client, error) {
	c := &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		http:    &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.http.Jar == nil {
		jar, err := cookiejar.New(nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create cookie jar: %w", err)
		}
		c.http.Jar = jar
	}

	return c, nil
}

// AccessToken returns the current access token, or "" when signed out.
func (c *Client) AccessToken() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.accessToken
}

// SetAccessToken installs a token obtained elsewhere, e.g. from an OAuth
// callback redirect.
func (c *Client) SetAccessToken(token string) {
	c.mu.Lock()
	c.accessToken = token
	c.mu.Unlock()
}

// Register creates an account and signs in.
func (c *Client) Register(ctx context.Context, req RegisterRequest) (User, error) {
	return c.startSession(ctx, "/auth/register", req)
}

// Login signs in with email and password.
func (c *Client) Login(ctx context.Context, email, password string) (User, error) {
	return c.startSession(ctx, "/auth/login", map[string]string{
		"email":    email,
		"password": password,
	})
}

// Me returns the signed-in user.
func (c *Client) Me(ctx context.Context) (User, error) {
	var user User
	err := c.Do(ctx, http.MethodGet, "/auth/me", nil, &user)
	return user, err
}

// Logout revokes the session on the server. The local session is cleared
// even when the request fails.
func (c *Client) Logout(ctx context.Context) error {
	err := c.Do(ctx, http.MethodPost, "/auth/logout", nil, nil)
	c.SetAccessToken("")
	return err
}

// Do sends an authenticated request and decodes the envelope's data into
// out when out is non-nil.
func (c *Client) Do(ctx context.Context, method, path string, body, out any) error {
	token := c.AccessToken()
	err := c.send(ctx, method, path, body, token, out)

	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Status != http.StatusUnauthorized {
		return err
	}

	fresh, err := c.refresh(ctx, token)
	if err != nil {
		return err
	}
	return c.send(ctx, method, path, body, fresh, out)
}

// Refresh rotates the refresh cookie and returns a new access token.
func (c *Client) Refresh(ctx context.Context) (string, error) {
	return c.refresh(ctx, c.AccessToken())
}

// refresh returns a token newer than stale. Only one refresh request is
// in flight at a time; concurrent callers share its result.
func (c *Client) refresh(ctx context.Context, stale string) (string, error) {
	if current := c.AccessToken(); current != "" && current != stale {
		return current, nil
	}

	ch := c.refreshGroup.DoChan("refresh", func() (any, error) {
		rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), refreshTimeout)
		defer cancel()

		var data struct {
			AccessToken string `json:"accessToken"`
		}
		if err := c.send(rctx, http.MethodPost, "/auth/refresh", nil, "", &data); err != nil {
			c.SetAccessToken("")
			if c.onSessionExpired != nil {
				c.onSessionExpired()
			}
			return "", fmt.Errorf("%w: %w", ErrSessionExpired, err)
		}

		c.SetAccessToken(data.AccessToken)
		return data.AccessToken, nil
	})

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	}
}

func (c *Client) startSession(ctx context.Context, path string, body any) (User, error) {
	var data sessionData
	if err := c.send(ctx, http.MethodPost, path, body, "", &data); err != nil {
		return User{}, err
	}
	c.SetAccessToken(data.AccessToken)
	return data.User, nil
}

func (c *Client) send(ctx context.Context, method, path string, body any, token string, out any) error {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := env.Message
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return &APIError{Status: resp.StatusCode, Message: msg}
	}

	if out == nil || len(env.Data) == 0 || string(env.Data) == "null" {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("failed to decode data: %w", err)
	}
	return nil
}
