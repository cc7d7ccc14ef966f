// Package client provides an HTTP client for the Wrale Signage backend
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/wrale/wrale-signage-player/api/types/v1alpha1"
	werrors "github.com/wrale/wrale-signage-player/internal/wsignplay/errors"
)

// DefaultTimeout bounds requests made without a context deadline
const DefaultTimeout = 30 * time.Second

// Client talks to the backend on behalf of one device
type Client struct {
	// baseURL is the root URL for all API requests, path included
	baseURL *url.URL
	// httpClient is the underlying HTTP client
	httpClient *http.Client
	// userAgent identifies the player build
	userAgent string
}

// ClientOption configures a Client
type ClientOption func(*Client)

// WithHTTPClient replaces the underlying HTTP client
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithUserAgent sets the User-Agent header
func WithUserAgent(ua string) ClientOption {
	return func(c *Client) {
		c.userAgent = ua
	}
}

// NewClient creates a new backend client
func NewClient(baseURL string, options ...ClientOption) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid base URL: %q", baseURL)
	}

	c := &Client{
		baseURL:    u,
		httpClient: &http.Client{Timeout: DefaultTimeout},
		userAgent:  "wsignplay",
	}
	for _, opt := range options {
		opt(c)
	}
	return c, nil
}

// endpoint joins p onto the base URL path
func (c *Client) endpoint(p string) *url.URL {
	u := *c.baseURL
	u.Path = path.Join("/", u.Path, p)
	u.RawPath = ""
	return &u
}

// ControlURL returns the websocket URL of the control channel
func (c *Client) ControlURL() string {
	u := c.endpoint("/player/ws")
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	return u.String()
}

// doRequest performs an HTTP request and maps failures to domain errors
func (c *Client) doRequest(ctx context.Context, op, method, p, token string, body interface{}) (*http.Response, error) {
	var bodyReader io.Reader
	if body != nil {
		bodyBytes, err := json.Marshal(body)
		if err != nil {
			return nil, werrors.NewError("INVALID_INPUT", "error encoding request body", op, err)
		}
		bodyReader = bytes.NewReader(bodyBytes)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.endpoint(p).String(), bodyReader)
	if err != nil {
		return nil, werrors.NewError("INVALID_INPUT", "error creating request", op, err)
	}

	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, werrors.NewError("UNAVAILABLE", "request failed", op, fmt.Errorf("%w: %v", werrors.ErrUnavailable, err))
	}
	if err := handleResponse(resp, op); err != nil {
		return nil, err
	}
	return resp, nil
}

// StartPairing asks the backend for a new pairing code
func (c *Client) StartPairing(ctx context.Context) (string, error) {
	const op = "Client.StartPairing"

	resp, err := c.doRequest(ctx, op, http.MethodPost, "/pairing/start", "", nil)
	if err != nil {
		return "", err
	}

	var out v1alpha1.PairingStartResponse
	if err := decodeBody(resp, &out, op); err != nil {
		return "", err
	}
	if strings.TrimSpace(out.Code) == "" {
		return "", werrors.NewError("UNAVAILABLE", "backend returned an empty pairing code", op, werrors.ErrUnavailable)
	}
	return out.Code, nil
}

// PairingStatus reports whether code has been redeemed
func (c *Client) PairingStatus(ctx context.Context, code string) (*v1alpha1.PairingStatusResponse, error) {
	const op = "Client.PairingStatus"

	resp, err := c.doRequest(ctx, op, http.MethodGet, "/pairing/status/"+url.PathEscape(code), "", nil)
	if err != nil {
		return nil, err
	}

	var out v1alpha1.PairingStatusResponse
	if err := decodeBody(resp, &out, op); err != nil {
		return nil, err
	}
	return &out, nil
}

// FetchPlaylist returns the ordered playlist assigned to the device
func (c *Client) FetchPlaylist(ctx context.Context, token string) ([]v1alpha1.PlaylistItem, error) {
	const op = "Client.FetchPlaylist"

	resp, err := c.doRequest(ctx, op, http.MethodGet, "/playlist", token, nil)
	if err != nil {
		return nil, err
	}

	var items []v1alpha1.PlaylistItem
	if err := decodeBody(resp, &items, op); err != nil {
		return nil, err
	}
	if items == nil {
		items = []v1alpha1.PlaylistItem{}
	}
	return items, nil
}
