// Package httpclient provides a bounded HTTP client for talking to the
// shopping-list server.
package httpclient

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"
)

var (
	ErrResponseTooLarge = errors.New("response body too large")
	ErrInvalidURL       = errors.New("invalid URL")
)

// Config controls client timeouts and limits.
type Config struct {
	// TimeoutMS is the overall request timeout in milliseconds.
	TimeoutMS int

	// ConnectTimeoutMS is the connection timeout in milliseconds.
	ConnectTimeoutMS int

	// MaxResponseBytes caps how much of a response body ReadBody will accept.
	MaxResponseBytes int64

	// InsecureSkipVerify disables TLS certificate verification.
	// Only for development against self-signed servers.
	InsecureSkipVerify bool

	// UserAgent is sent on every request when non-empty.
	UserAgent string
}

func (c *Config) applyDefaults() {
	if c.TimeoutMS <= 0 {
		c.TimeoutMS = 10000
	}
	if c.ConnectTimeoutMS <= 0 {
		c.ConnectTimeoutMS = 2000
	}
	if c.MaxResponseBytes <= 0 {
		c.MaxResponseBytes = 1048576
	}
}

// Client is an HTTP client with bounded timeouts and response sizes.
type Client struct {
	cfg        Config
	httpClient *http.Client
}

// New creates a new client. A nil config uses defaults.
// The client ignores proxy environment variables (HTTP_PROXY, HTTPS_PROXY, NO_PROXY).
func New(cfg *Config) *Client {
	var c Config
	if cfg != nil {
		c = *cfg
	}
	c.applyDefaults()

	dialer := &net.Dialer{
		Timeout: time.Duration(c.ConnectTimeoutMS) * time.Millisecond,
	}

	transport := &http.Transport{
		Proxy:       nil,
		DialContext: dialer.DialContext,
		TLSClientConfig: &tls.Config{
			InsecureSkipVerify: c.InsecureSkipVerify,
		},
		MaxIdleConns:    10,
		IdleConnTimeout: 30 * time.Second,
	}

	return &Client{
		cfg: c,
		httpClient: &http.Client{
			Transport: transport,
			Timeout:   time.Duration(c.TimeoutMS) * time.Millisecond,
		},
	}
}

// Do performs an HTTP request, setting the configured User-Agent.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	if c.cfg.UserAgent != "" && req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", c.cfg.UserAgent)
	}
	return c.httpClient.Do(req)
}

// Get performs a GET request.
func (c *Client) Get(ctx context.Context, urlStr string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, urlStr, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	return c.Do(req)
}

// ReadBody reads and closes the response body, enforcing the size limit.
func (c *Client) ReadBody(resp *http.Response) ([]byte, error) {
	defer resp.Body.Close()

	limited := io.LimitReader(resp.Body, c.cfg.MaxResponseBytes+1)
	body, err := io.ReadAll(limited)
	if err != nil {
		return nil, err
	}
	if int64(len(body)) > c.cfg.MaxResponseBytes {
		return nil, ErrResponseTooLarge
	}
	return body, nil
}

// MaxResponseBytes returns the configured response size cap.
func (c *Client) MaxResponseBytes() int64 {
	return c.cfg.MaxResponseBytes
}
