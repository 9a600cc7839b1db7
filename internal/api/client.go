package api

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/JacobNewton007/tus-demo/internal/media"
	"github.com/JacobNewton007/tus-demo/internal/token"
	"github.com/goccy/go-json"
	"github.com/hashicorp/go-retryablehttp"
)

// Client is the CLI's view of the proxy's JSON surface.
type Client struct {
	endpoint  string
	authToken string
	http      *http.Client
}

func NewClient(endpoint, authToken string) *Client {
	rc := retryablehttp.NewClient()
	rc.RetryMax = 2
	rc.Logger = nil
	rc.HTTPClient.Timeout = 30 * time.Second

	return &Client{
		endpoint:  strings.TrimSuffix(endpoint, "/"),
		authToken: authToken,
		http:      rc.StandardClient(),
	}
}

// IssueToken exchanges the API key for an upload token and remembers it for
// subsequent calls.
func (c *Client) IssueToken(ctx context.Context, apiKey string) (*token.IssueResponse, error) {
	body, _ := json.Marshal(&token.IssueRequest{APIKey: apiKey})

	resp := &token.IssueResponse{}
	if err := c.do(ctx, http.MethodPost, "/tokens", bytes.NewReader(body), resp); err != nil {
		return nil, err
	}
	c.authToken = resp.Token
	return resp, nil
}

// Token returns the bearer token the client currently holds.
func (c *Client) Token() string {
	return c.authToken
}

func (c *Client) GetMedia(ctx context.Context, id string) (*media.Media, error) {
	m := &media.Media{}
	if err := c.do(ctx, http.MethodGet, "/media/"+id, nil, m); err != nil {
		return nil, err
	}
	return m, nil
}

func (c *Client) ListMedia(ctx context.Context) ([]*media.Media, error) {
	var list []*media.Media
	if err := c.do(ctx, http.MethodGet, "/media", nil, &list); err != nil {
		return nil, err
	}
	return list, nil
}

func (c *Client) CancelMedia(ctx context.Context, id string) (*media.Media, error) {
	m := &media.Media{}
	if err := c.do(ctx, http.MethodPost, "/media/"+id+"/cancel", nil, m); err != nil {
		return nil, err
	}
	return m, nil
}

func (c *Client) do(ctx context.Context, method, path string, body io.Reader, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, method, c.endpoint+path, body)
	if err != nil {
		return fmt.Errorf("failed to build %s %s: %w", method, path, err)
	}
	if c.authToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.authToken)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("proxy request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("proxy %s %s: status %d: %s", method, path, resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode proxy response: %w", err)
	}
	return nil
}
