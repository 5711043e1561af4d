// Package client talks to a project board server: it fetches listing
// pages and follows a user's notification stream.
package client

import (
	"errors"
	"net/http"
	"strings"
)

// ErrUnauthenticated is returned when the server sends the caller to the
// login page or answers 401.
var ErrUnauthenticated = errors.New("unauthenticated")

// ErrForbidden is returned when the caller may not subscribe to a channel.
var ErrForbidden = errors.New("forbidden")

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets the transport. Redirects are never followed.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithBearerToken authenticates with a Cognito ID token.
func WithBearerToken(token string) Option {
	return func(c *Client) { c.token = token }
}

// WithDevUser authenticates as userID against a server in dev mode.
func WithDevUser(userID string) Option {
	return func(c *Client) { c.devUser = userID }
}

type Client struct {
	baseURL string
	http    *http.Client
	token   string
	devUser string
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{baseURL: strings.TrimRight(baseURL, "/"), http: &http.Client{}}
	for _, opt := range opts {
		opt(c)
	}
	hc := *c.http
	hc.CheckRedirect = func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}
	c.http = &hc
	return c
}

func (c *Client) authorize(req *http.Request) {
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	if c.devUser != "" {
		req.Header.Set("X-User-ID", c.devUser)
	}
}

func isLoginRedirect(resp *http.Response) bool {
	return resp.StatusCode == http.StatusUnauthorized ||
		(resp.StatusCode == http.StatusFound && strings.HasSuffix(resp.Header.Get("Location"), "/login"))
}
