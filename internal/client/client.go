// Package client implements the authoritative list backend over the server's
// REST API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/shoplist/shoplist-go/internal/httpclient"
	"github.com/shoplist/shoplist-go/internal/list"
)

var (
	ErrNotAuthenticated = errors.New("not authenticated")
	ErrBadResponse      = errors.New("malformed server response")
)

// Client talks to a shopping-list server. It implements list.Backend.
type Client struct {
	baseURL string
	token   string
	http    *httpclient.Client
}

// Option configures a Client.
type Option func(*Client)

// WithToken sets the bearer token used to authenticate requests.
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *httpclient.Client) Option {
	return func(c *Client) { c.http = hc }
}

// New creates a client for the server at baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    httpclient.New(nil),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Token returns the current session token, empty when logged out.
func (c *Client) Token() string { return c.token }

// errorEnvelope matches the server's JSON error body.
type errorEnvelope struct {
	Error struct {
		Code       string `json:"code"`
		ReasonCode string `json:"reason_code"`
		Message    string `json:"message"`
	} `json:"error"`
}

// do performs a request and decodes the response into out (when non-nil).
// Non-2xx responses become *list.BackendError carrying the server's reason
// code so callers can distinguish structured failures from transport ones.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}

	data, err := c.http.ReadBody(resp)
	if err != nil {
		return err
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var envelope errorEnvelope
		if err := json.Unmarshal(data, &envelope); err == nil && envelope.Error.ReasonCode != "" {
			return &list.BackendError{
				Reason:  envelope.Error.ReasonCode,
				Message: envelope.Error.Message,
			}
		}
		return &list.BackendError{
			Reason:  "http_error",
			Message: fmt.Sprintf("server returned %d", resp.StatusCode),
		}
	}

	if out != nil {
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("%w: %v", ErrBadResponse, err)
		}
	}
	return nil
}

// Credentials for Login and Register.
type Credentials struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	DisplayName string `json:"display_name,omitempty"`
}

// AuthResult is the server's response to a successful login or registration.
type AuthResult struct {
	Token string       `json:"token"`
	User  list.UserRef `json:"user"`
}

// Register creates an account and stores the returned session token.
func (c *Client) Register(ctx context.Context, creds Credentials) (*AuthResult, error) {
	var result AuthResult
	if err := c.do(ctx, http.MethodPost, "/api/auth/register", creds, &result); err != nil {
		return nil, err
	}
	c.token = result.Token
	return &result, nil
}

// Login authenticates and stores the returned session token.
func (c *Client) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	var result AuthResult
	creds := Credentials{Email: email, Password: password}
	if err := c.do(ctx, http.MethodPost, "/api/auth/login", creds, &result); err != nil {
		return nil, err
	}
	c.token = result.Token
	return &result, nil
}

// Logout invalidates the session on the server and clears the local token.
func (c *Client) Logout(ctx context.Context) error {
	if c.token == "" {
		return ErrNotAuthenticated
	}
	err := c.do(ctx, http.MethodPost, "/api/auth/logout", nil, nil)
	c.token = ""
	return err
}

// Me returns the authenticated user.
func (c *Client) Me(ctx context.Context) (*list.UserRef, error) {
	var user list.UserRef
	if err := c.do(ctx, http.MethodGet, "/api/auth/me", nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

func listPath(listID string) string {
	return "/api/lists/" + url.PathEscape(listID)
}

func itemPath(listID, itemID string) string {
	return listPath(listID) + "/items/" + url.PathEscape(itemID)
}

func (c *Client) FetchLists(ctx context.Context) ([]list.List, error) {
	var lists []list.List
	if err := c.do(ctx, http.MethodGet, "/api/lists", nil, &lists); err != nil {
		return nil, err
	}
	return lists, nil
}

func (c *Client) FetchList(ctx context.Context, listID string) (*list.List, error) {
	var l list.List
	if err := c.do(ctx, http.MethodGet, listPath(listID), nil, &l); err != nil {
		return nil, err
	}
	return &l, nil
}

func (c *Client) CreateList(ctx context.Context, title string) (*list.List, error) {
	var l list.List
	body := map[string]string{"title": title}
	if err := c.do(ctx, http.MethodPost, "/api/lists", body, &l); err != nil {
		return nil, err
	}
	return &l, nil
}

func (c *Client) RenameList(ctx context.Context, listID, title string) error {
	body := map[string]string{"title": title}
	return c.do(ctx, http.MethodPatch, listPath(listID), body, nil)
}

func (c *Client) DeleteList(ctx context.Context, listID string) error {
	return c.do(ctx, http.MethodDelete, listPath(listID), nil, nil)
}

func (c *Client) LeaveList(ctx context.Context, listID string) error {
	return c.do(ctx, http.MethodPost, listPath(listID)+"/leave", nil, nil)
}

func (c *Client) AddItem(ctx context.Context, listID, name string) (*list.Item, error) {
	var item list.Item
	body := map[string]string{"name": name}
	if err := c.do(ctx, http.MethodPost, listPath(listID)+"/items", body, &item); err != nil {
		return nil, err
	}
	return &item, nil
}

func (c *Client) RenameItem(ctx context.Context, listID, itemID, name string) error {
	body := map[string]*string{"name": &name}
	return c.do(ctx, http.MethodPatch, itemPath(listID, itemID), body, nil)
}

func (c *Client) SetItemCompleted(ctx context.Context, listID, itemID string, completed bool) error {
	body := map[string]*bool{"completed": &completed}
	return c.do(ctx, http.MethodPatch, itemPath(listID, itemID), body, nil)
}

func (c *Client) DeleteItem(ctx context.Context, listID, itemID string) error {
	return c.do(ctx, http.MethodDelete, itemPath(listID, itemID), nil, nil)
}

func (c *Client) InviteUser(ctx context.Context, listID, email string) (*list.SharedUser, error) {
	var shared list.SharedUser
	body := map[string]string{"email": email}
	if err := c.do(ctx, http.MethodPost, listPath(listID)+"/shares", body, &shared); err != nil {
		return nil, err
	}
	return &shared, nil
}

func (c *Client) RevokeShare(ctx context.Context, listID, userID string) error {
	return c.do(ctx, http.MethodDelete, listPath(listID)+"/shares/"+url.PathEscape(userID), nil, nil)
}

var _ list.Backend = (*Client)(nil)
