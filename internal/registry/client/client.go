// Package client is the Registry Client: a thin net/http + encoding/json
// consumer of the registry's HTTP API (search, info, download, publish,
// whoami). The module runtime CLI uses its Download to install modules from
// a remote registry into the local Module Index.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/rcpklmc/sn0int/internal/registry/domain"
)

// Client talks to one registry's HTTP API.
type Client struct {
	baseURL string
	session string
	http    *http.Client
}

// New constructs a Client against baseURL (e.g. "https://sn0int.example")
// with no session; use WithSession to obtain a client that sends a session
// as the Authorization header.
func New(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{baseURL: baseURL, http: httpClient}
}

// WithSession returns a copy of the client that authenticates as session.
func (c *Client) WithSession(session string) *Client {
	clone := *c
	clone.session = session
	return &clone
}

type envelope struct {
	Success json.RawMessage `json:"success"`
	Error   string          `json:"error"`
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body interface{}, out interface{}) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding request body: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reqBody)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.session != "" {
		req.Header.Set("Authorization", c.session)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("registry request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return fmt.Errorf("reading registry response: %w", err)
	}

	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return fmt.Errorf("decoding registry response (status %d): %w", resp.StatusCode, err)
	}
	if env.Error != "" {
		return fmt.Errorf("registry error: %s", env.Error)
	}
	if out != nil {
		if err := json.Unmarshal(env.Success, out); err != nil {
			return fmt.Errorf("decoding registry success payload: %w", err)
		}
	}
	return nil
}

// Search calls GET /api/v0/search.
func (c *Client) Search(ctx context.Context, q string) ([]domain.SearchResult, error) {
	var results []domain.SearchResult
	err := c.do(ctx, http.MethodGet, "/api/v0/search", url.Values{"q": {q}}, nil, &results)
	return results, err
}

// Info calls GET /api/v0/info/<author>/<name>.
func (c *Client) Info(ctx context.Context, author, name string) (*domain.ModuleInfo, error) {
	var info domain.ModuleInfo
	err := c.do(ctx, http.MethodGet, "/api/v0/info/"+author+"/"+name, nil, nil, &info)
	return &info, err
}

// Download calls GET /api/v0/dl/<author>/<name>/<version>.
func (c *Client) Download(ctx context.Context, author, name, version string) (*domain.DownloadResult, error) {
	var result domain.DownloadResult
	err := c.do(ctx, http.MethodGet, "/api/v0/dl/"+author+"/"+name+"/"+version, nil, nil, &result)
	return &result, err
}

// Publish calls POST /api/v0/publish/<name>, authenticated with the
// client's session.
func (c *Client) Publish(ctx context.Context, name, code string) (*domain.PublishResult, error) {
	var result domain.PublishResult
	err := c.do(ctx, http.MethodPost, "/api/v0/publish/"+name, nil, map[string]string{"code": code}, &result)
	return &result, err
}

// Whoami calls GET /api/v0/whoami, authenticated with the client's
// session.
func (c *Client) Whoami(ctx context.Context) (*domain.WhoamiResult, error) {
	var result domain.WhoamiResult
	err := c.do(ctx, http.MethodGet, "/api/v0/whoami", nil, nil, &result)
	return &result, err
}

// LoginURL builds the URL a local CLI should open in a browser to start
// the login flow for the given session token.
func (c *Client) LoginURL(session string) string {
	return c.baseURL + "/api/v0/login/" + session
}
