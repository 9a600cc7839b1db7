package upstream

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVideo_MediaID(t *testing.T) {
	assert.Equal(t, "76979871", (&Video{URI: "/videos/76979871"}).MediaID())
	assert.Equal(t, "76979871", (&Video{URI: "/videos/76979871/"}).MediaID())
	assert.Equal(t, "76979871", (&Video{URI: "76979871"}).MediaID())
}

func TestClient_CreateVideo(t *testing.T) {
	// given
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/me/videos", r.URL.Path)
		assert.Equal(t, "Bearer account-token", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var req createVideoRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "clip.mp4", req.Name)
		assert.Equal(t, "tus", req.Upload.Approach)
		assert.Equal(t, int64(1024), req.Upload.Size)

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"uri":"/videos/42","name":"clip.mp4","upload":{"approach":"tus","size":1024,"upload_link":"https://upload.example/42"}}`))
	}))
	defer server.Close()

	client := NewClient(Config{BaseURL: server.URL, AccessToken: "account-token", Timeout: 5 * time.Second})

	// when
	video, err := client.CreateVideo(context.Background(), "clip.mp4", 1024)

	// then
	require.NoError(t, err)
	assert.Equal(t, "42", video.MediaID())
	assert.Equal(t, "https://upload.example/42", video.Upload.UploadLink)
}

func TestClient_CreateVideo_ShouldRequireUploadLink(t *testing.T) {
	// given
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"uri":"/videos/42","name":"clip.mp4"}`))
	}))
	defer server.Close()

	client := NewClient(Config{BaseURL: server.URL, AccessToken: "account-token"})

	// when
	_, err := client.CreateVideo(context.Background(), "clip.mp4", 1024)

	// then
	assert.ErrorContains(t, err, "no upload link")
}

func TestClient_GetVideo(t *testing.T) {
	// given
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/videos/42", r.URL.Path)
		assert.Equal(t, "Bearer account-token", r.Header.Get("Authorization"))
		w.Write([]byte(`{"uri":"/videos/42","name":"clip.mp4","status":"available"}`))
	}))
	defer server.Close()

	client := NewClient(Config{BaseURL: server.URL, AccessToken: "account-token"})

	// when
	video, err := client.GetVideo(context.Background(), "42")

	// then
	require.NoError(t, err)
	assert.Equal(t, "available", video.Status)
}

func TestClient_DeleteVideo(t *testing.T) {
	// given
	var deleted string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		deleted = r.URL.Path
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	client := NewClient(Config{BaseURL: server.URL, AccessToken: "account-token"})

	// when
	err := client.DeleteVideo(context.Background(), "42")

	// then
	require.NoError(t, err)
	assert.Equal(t, "/videos/42", deleted)
}

func TestClient_ShouldSurfaceUpstreamErrors(t *testing.T) {
	// given
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":"bad token"}`))
	}))
	defer server.Close()

	client := NewClient(Config{BaseURL: server.URL, AccessToken: "expired-token"})

	// when
	_, err := client.GetVideo(context.Background(), "42")

	// then
	assert.ErrorContains(t, err, "status 401")
}
