package media

import (
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fasthttp"
)

func newTestEndpoints() (*Endpoints, *Service) {
	service := NewService(newMockRepository(), &mockHosting{}, nil, 0)
	return NewEndpoints(service, "http://localhost:8080"), service
}

func TestEndpoints_Create(t *testing.T) {
	// given
	endpoints, _ := newTestEndpoints()
	var ctx fasthttp.RequestCtx
	ctx.Request.Header.SetMethod(fasthttp.MethodPost)
	ctx.Request.SetBodyString(`{"name":"clip.mp4","sizeBytes":2048}`)

	// when
	endpoints.Create(&ctx)

	// then
	require.Equal(t, fasthttp.StatusCreated, ctx.Response.StatusCode())

	var resp CreateResponse
	require.NoError(t, json.Unmarshal(ctx.Response.Body(), &resp))
	assert.Equal(t, "987654", resp.MediaID)
	assert.Equal(t, "http://localhost:8080/tus/"+resp.ID, resp.UploadURL)
	assert.Equal(t, string(StatusPending), resp.Status)
}

func TestEndpoints_Create_ShouldRejectBadBody(t *testing.T) {
	// given
	endpoints, _ := newTestEndpoints()
	var ctx fasthttp.RequestCtx
	ctx.Request.SetBodyString(`{not json`)

	// when
	endpoints.Create(&ctx)

	// then
	assert.Equal(t, fasthttp.StatusBadRequest, ctx.Response.StatusCode())
}

func TestEndpoints_Get_ShouldAnswerNotFound(t *testing.T) {
	// given
	endpoints, _ := newTestEndpoints()
	var ctx fasthttp.RequestCtx
	ctx.SetUserValue("mediaID", "missing")

	// when
	endpoints.Get(&ctx)

	// then
	assert.Equal(t, fasthttp.StatusNotFound, ctx.Response.StatusCode())
}

func TestEndpoints_List_ShouldAnswerEmptyArray(t *testing.T) {
	// given
	endpoints, _ := newTestEndpoints()
	var ctx fasthttp.RequestCtx

	// when
	endpoints.List(&ctx)

	// then
	assert.Equal(t, fasthttp.StatusOK, ctx.Response.StatusCode())
	assert.JSONEq(t, `[]`, string(ctx.Response.Body()))
}

func TestEndpoints_Cancel_ShouldConflictOnSecondCall(t *testing.T) {
	// given
	endpoints, service := newTestEndpoints()
	m, err := service.Create(&fasthttp.RequestCtx{}, &CreateRequest{Name: "clip.mp4", SizeBytes: 100})
	require.NoError(t, err)

	var ctx fasthttp.RequestCtx
	ctx.SetUserValue("mediaID", m.ID)

	// when
	endpoints.Cancel(&ctx)

	// then
	assert.Equal(t, fasthttp.StatusOK, ctx.Response.StatusCode())

	// when: cancelling again
	var again fasthttp.RequestCtx
	again.SetUserValue("mediaID", m.ID)
	endpoints.Cancel(&again)

	// then
	assert.Equal(t, fasthttp.StatusConflict, again.Response.StatusCode())
}
