package upstream

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/hashicorp/go-retryablehttp"
)

// Video is the hosting API's representation of a media asset. The asset is
// created with the tus approach: the API answers with an opaque media
// identifier and a pre-negotiated tus upload link.
type Video struct {
	URI    string       `json:"uri"`
	Name   string       `json:"name"`
	Status string       `json:"status,omitempty"`
	Upload *VideoUpload `json:"upload,omitempty"`
}

type VideoUpload struct {
	Approach   string `json:"approach"`
	Size       int64  `json:"size,omitempty"`
	Status     string `json:"status,omitempty"`
	UploadLink string `json:"upload_link,omitempty"`
}

// MediaID extracts the opaque identifier from the asset URI (e.g.
// "/videos/76979871" -> "76979871").
func (v *Video) MediaID() string {
	uri := strings.TrimSuffix(v.URI, "/")
	idx := strings.LastIndex(uri, "/")
	if idx < 0 {
		return uri
	}
	return uri[idx+1:]
}

type Config struct {
	BaseURL     string
	AccessToken string
	Timeout     time.Duration
	RetryMax    int
}

// Client talks to the video-hosting API. Every request carries the account
// access token, which must never reach upload clients.
type Client struct {
	baseURL     string
	accessToken string
	http        *http.Client
}

func NewClient(cfg Config) *Client {
	rc := retryablehttp.NewClient()
	rc.RetryMax = cfg.RetryMax
	rc.Logger = nil
	if cfg.Timeout > 0 {
		rc.HTTPClient.Timeout = cfg.Timeout
	}

	return &Client{
		baseURL:     strings.TrimSuffix(cfg.BaseURL, "/"),
		accessToken: cfg.AccessToken,
		http:        rc.StandardClient(),
	}
}

type createVideoRequest struct {
	Name   string            `json:"name"`
	Upload createVideoUpload `json:"upload"`
}

type createVideoUpload struct {
	Approach string `json:"approach"`
	Size     int64  `json:"size"`
}

// CreateVideo registers a new asset and returns its media ID and tus upload link.
func (c *Client) CreateVideo(ctx context.Context, name string, size int64) (*Video, error) {
	body, err := json.Marshal(createVideoRequest{
		Name:   name,
		Upload: createVideoUpload{Approach: "tus", Size: size},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode create request: %w", err)
	}

	video := &Video{}
	if err := c.do(ctx, http.MethodPost, "/me/videos", bytes.NewReader(body), video); err != nil {
		return nil, err
	}

	if video.Upload == nil || video.Upload.UploadLink == "" {
		return nil, fmt.Errorf("hosting API returned no upload link for %q", name)
	}
	return video, nil
}

// GetVideo fetches the current upstream state of an asset.
func (c *Client) GetVideo(ctx context.Context, mediaID string) (*Video, error) {
	video := &Video{}
	if err := c.do(ctx, http.MethodGet, "/videos/"+mediaID, nil, video); err != nil {
		return nil, err
	}
	return video, nil
}

// DeleteVideo removes an asset from the hosting API.
func (c *Client) DeleteVideo(ctx context.Context, mediaID string) error {
	return c.do(ctx, http.MethodDelete, "/videos/"+mediaID, nil, nil)
}

func (c *Client) do(ctx context.Context, method, path string, body io.Reader, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to build %s %s: %w", method, path, err)
	}
	req.Header.Set("Authorization", "Bearer "+c.accessToken)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("hosting API request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("hosting API %s %s: status %d: %s", method, path, resp.StatusCode, string(snippet))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode hosting API response: %w", err)
	}
	return nil
}
