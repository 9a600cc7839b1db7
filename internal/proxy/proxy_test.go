package proxy

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/JacobNewton007/tus-demo/internal/media"
	"github.com/JacobNewton007/tus-demo/internal/upstream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fasthttp"
)

// mockRepository for testing
type mockRepository struct {
	records map[string]*media.Media
}

func newMockRepository() *mockRepository {
	return &mockRepository{records: make(map[string]*media.Media)}
}

func (m *mockRepository) Create(rec *media.Media) error {
	copied := *rec
	m.records[rec.ID] = &copied
	return nil
}

func (m *mockRepository) GetByID(id string) (*media.Media, error) {
	rec, exists := m.records[id]
	if !exists {
		return nil, media.ErrNotFound
	}
	copied := *rec
	return &copied, nil
}

func (m *mockRepository) List() ([]*media.Media, error) {
	list := make([]*media.Media, 0, len(m.records))
	for _, rec := range m.records {
		copied := *rec
		list = append(list, &copied)
	}
	return list, nil
}

func (m *mockRepository) UpdateProgress(id string, offset int64, status media.Status, updatedAt int64) error {
	rec, exists := m.records[id]
	if !exists {
		return media.ErrNotFound
	}
	rec.OffsetBytes = offset
	rec.Status = string(status)
	rec.UpdatedAt = updatedAt
	return nil
}

func (m *mockRepository) UpdateStatus(id string, status media.Status, reason string, updatedAt int64) error {
	rec, exists := m.records[id]
	if !exists {
		return media.ErrNotFound
	}
	rec.Status = string(status)
	rec.Reason = reason
	rec.UpdatedAt = updatedAt
	return nil
}

func (m *mockRepository) Delete(id string) error {
	delete(m.records, id)
	return nil
}

// mockHosting for testing
type mockHosting struct {
	uploadLink string
	deleted    []string
}

func (m *mockHosting) CreateVideo(ctx context.Context, name string, size int64) (*upstream.Video, error) {
	return &upstream.Video{
		URI:    "/videos/555",
		Name:   name,
		Upload: &upstream.VideoUpload{Approach: "tus", Size: size, UploadLink: m.uploadLink},
	}, nil
}

func (m *mockHosting) GetVideo(ctx context.Context, mediaID string) (*upstream.Video, error) {
	return &upstream.Video{URI: "/videos/" + mediaID}, nil
}

func (m *mockHosting) DeleteVideo(ctx context.Context, mediaID string) error {
	m.deleted = append(m.deleted, mediaID)
	return nil
}

func newTestHandler(uploadLink string) (*Handler, *media.Service, *mockHosting) {
	hosting := &mockHosting{uploadLink: uploadLink}
	service := media.NewService(newMockRepository(), hosting, nil, 0)
	handler := NewHandler(service, &fasthttp.Client{}, "http://proxy.example", "account-token", 1<<30)
	return handler, service, hosting
}

func TestParseMetadata(t *testing.T) {
	encoded := base64.StdEncoding.EncodeToString([]byte("clip.mp4"))
	meta := parseMetadata("filename " + encoded + ",is_confidential")

	assert.Equal(t, "clip.mp4", meta["filename"])
	assert.Equal(t, "", meta["is_confidential"])
	assert.Empty(t, parseMetadata(""))
}

func TestHandler_Options_ShouldAnnounceCapabilities(t *testing.T) {
	// given
	handler, _, _ := newTestHandler("")
	var ctx fasthttp.RequestCtx
	ctx.Request.Header.SetMethod(fasthttp.MethodOptions)

	// when
	handler.Options(&ctx)

	// then
	assert.Equal(t, fasthttp.StatusNoContent, ctx.Response.StatusCode())
	assert.Equal(t, "1.0.0", string(ctx.Response.Header.Peek("Tus-Version")))
	assert.Equal(t, "creation,termination", string(ctx.Response.Header.Peek("Tus-Extension")))
	assert.Equal(t, fmt.Sprint(1<<30), string(ctx.Response.Header.Peek("Tus-Max-Size")))
}

func TestHandler_Create_ShouldReturnProxyLocation(t *testing.T) {
	// given
	handler, service, _ := newTestHandler("https://upload.example/555")
	var ctx fasthttp.RequestCtx
	ctx.Request.Header.SetMethod(fasthttp.MethodPost)
	ctx.Request.Header.Set("Upload-Length", "2048")
	ctx.Request.Header.Set("Upload-Metadata", "filename "+base64.StdEncoding.EncodeToString([]byte("clip.mp4")))

	// when
	handler.Create(&ctx)

	// then
	require.Equal(t, fasthttp.StatusCreated, ctx.Response.StatusCode())
	location := string(ctx.Response.Header.Peek("Location"))
	assert.Contains(t, location, "http://proxy.example/tus/")

	records, err := service.List(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "clip.mp4", records[0].Name)
	assert.Equal(t, int64(2048), records[0].SizeBytes)
	assert.Equal(t, "http://proxy.example/tus/"+records[0].ID, location)
}

func TestHandler_Create_ShouldRequireUploadLength(t *testing.T) {
	// given
	handler, _, _ := newTestHandler("https://upload.example/555")
	var ctx fasthttp.RequestCtx
	ctx.Request.Header.SetMethod(fasthttp.MethodPost)

	// when
	handler.Create(&ctx)

	// then
	assert.Equal(t, fasthttp.StatusBadRequest, ctx.Response.StatusCode())
}

func TestHandler_Patch_ShouldForwardAndRecordOffset(t *testing.T) {
	// given: an upstream that acknowledges the chunk
	upstreamServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPatch, r.Method)
		assert.Equal(t, "Bearer account-token", r.Header.Get("Authorization"))
		assert.Equal(t, "0", r.Header.Get("Upload-Offset"))

		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		assert.Equal(t, "chunk-bytes", string(body))

		w.Header().Set("Tus-Resumable", "1.0.0")
		w.Header().Set("Upload-Offset", "11")
		w.WriteHeader(http.StatusNoContent)
	}))
	defer upstreamServer.Close()

	handler, service, _ := newTestHandler(upstreamServer.URL + "/files/abc")
	m, err := service.Create(context.Background(), &media.CreateRequest{Name: "clip.mp4", SizeBytes: 11})
	require.NoError(t, err)

	var ctx fasthttp.RequestCtx
	ctx.Request.Header.SetMethod(fasthttp.MethodPatch)
	ctx.Request.Header.Set("Upload-Offset", "0")
	ctx.Request.Header.Set("Content-Type", "application/offset+octet-stream")
	ctx.Request.SetBodyString("chunk-bytes")
	ctx.SetUserValue("mediaID", m.ID)

	// when
	handler.Patch(&ctx)

	// then
	assert.Equal(t, fasthttp.StatusNoContent, ctx.Response.StatusCode())
	assert.Equal(t, "11", string(ctx.Response.Header.Peek("Upload-Offset")))

	updated, err := service.Get(context.Background(), m.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(11), updated.OffsetBytes)
	assert.Equal(t, string(media.StatusReady), updated.Status)
}

func TestHandler_Head_ShouldForwardOffsetProbe(t *testing.T) {
	// given
	upstreamServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodHead, r.Method)
		assert.Equal(t, "Bearer account-token", r.Header.Get("Authorization"))
		w.Header().Set("Upload-Offset", "5")
		w.Header().Set("Upload-Length", "11")
		w.WriteHeader(http.StatusOK)
	}))
	defer upstreamServer.Close()

	handler, service, _ := newTestHandler(upstreamServer.URL + "/files/abc")
	m, err := service.Create(context.Background(), &media.CreateRequest{Name: "clip.mp4", SizeBytes: 11})
	require.NoError(t, err)

	var ctx fasthttp.RequestCtx
	ctx.Request.Header.SetMethod(fasthttp.MethodHead)
	ctx.SetUserValue("mediaID", m.ID)

	// when
	handler.Head(&ctx)

	// then
	assert.Equal(t, fasthttp.StatusOK, ctx.Response.StatusCode())
	assert.Equal(t, "5", string(ctx.Response.Header.Peek("Upload-Offset")))
}

func TestHandler_Forward_ShouldNotLeakAccountToken(t *testing.T) {
	// given: an upstream that reflects the credentials it received
	upstreamServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Authorization", r.Header.Get("Authorization"))
		w.Header().Set("Upload-Offset", "0")
		w.Header().Set("Upload-Length", "11")
		w.WriteHeader(http.StatusOK)
	}))
	defer upstreamServer.Close()

	handler, service, _ := newTestHandler(upstreamServer.URL + "/files/abc")
	m, err := service.Create(context.Background(), &media.CreateRequest{Name: "clip.mp4", SizeBytes: 11})
	require.NoError(t, err)

	var ctx fasthttp.RequestCtx
	ctx.Request.Header.SetMethod(fasthttp.MethodHead)
	ctx.SetUserValue("mediaID", m.ID)

	// when
	handler.Head(&ctx)

	// then
	assert.Equal(t, fasthttp.StatusOK, ctx.Response.StatusCode())
	assert.Empty(t, ctx.Response.Header.Peek("Authorization"))
	assert.NotContains(t, ctx.Response.String(), "account-token")
}

func TestHandler_Forward_ShouldAnswerGoneForCancelledUploads(t *testing.T) {
	// given
	handler, service, _ := newTestHandler("https://upload.example/555")
	m, err := service.Create(context.Background(), &media.CreateRequest{Name: "clip.mp4", SizeBytes: 11})
	require.NoError(t, err)
	_, err = service.Cancel(context.Background(), m.ID)
	require.NoError(t, err)

	var ctx fasthttp.RequestCtx
	ctx.Request.Header.SetMethod(fasthttp.MethodHead)
	ctx.SetUserValue("mediaID", m.ID)

	// when
	handler.Head(&ctx)

	// then
	assert.Equal(t, fasthttp.StatusGone, ctx.Response.StatusCode())
}

func TestHandler_Forward_ShouldAnswerNotFoundForUnknownIDs(t *testing.T) {
	// given
	handler, _, _ := newTestHandler("https://upload.example/555")
	var ctx fasthttp.RequestCtx
	ctx.Request.Header.SetMethod(fasthttp.MethodHead)
	ctx.SetUserValue("mediaID", "missing")

	// when
	handler.Head(&ctx)

	// then
	assert.Equal(t, fasthttp.StatusNotFound, ctx.Response.StatusCode())
}

func TestHandler_Delete_ShouldCancelRecordAndReleaseAsset(t *testing.T) {
	// given
	handler, service, hosting := newTestHandler("https://upload.example/555")
	m, err := service.Create(context.Background(), &media.CreateRequest{Name: "clip.mp4", SizeBytes: 11})
	require.NoError(t, err)

	var ctx fasthttp.RequestCtx
	ctx.Request.Header.SetMethod(fasthttp.MethodDelete)
	ctx.SetUserValue("mediaID", m.ID)

	// when
	handler.Delete(&ctx)

	// then
	assert.Equal(t, fasthttp.StatusNoContent, ctx.Response.StatusCode())
	assert.Equal(t, []string{"555"}, hosting.deleted)

	cancelled, err := service.Get(context.Background(), m.ID)
	require.NoError(t, err)
	assert.Equal(t, string(media.StatusCancelled), cancelled.Status)
}
