package health

import (
	"fmt"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fasthttp"
)

type fakeRegistry struct {
	err error
}

func (f *fakeRegistry) Ping() error {
	return f.err
}

func TestHealth_ShouldReportOK(t *testing.T) {
	// given
	endpoints := NewEndpoints("1.0.0", &fakeRegistry{})
	var ctx fasthttp.RequestCtx

	// when
	endpoints.Health(&ctx)

	// then
	assert.Equal(t, fasthttp.StatusOK, ctx.Response.StatusCode())

	var resp HealthResponse
	require.NoError(t, json.Unmarshal(ctx.Response.Body(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "1.0.0", resp.Version)
	assert.Equal(t, "ok", resp.Registry)
}

func TestHealth_ShouldDegradeWhenRegistryIsUnreachable(t *testing.T) {
	// given
	endpoints := NewEndpoints("1.0.0", &fakeRegistry{err: fmt.Errorf("connection refused")})
	var ctx fasthttp.RequestCtx

	// when
	endpoints.Health(&ctx)

	// then
	assert.Equal(t, fasthttp.StatusServiceUnavailable, ctx.Response.StatusCode())

	var resp HealthResponse
	require.NoError(t, json.Unmarshal(ctx.Response.Body(), &resp))
	assert.Equal(t, "degraded", resp.Status)
	assert.Equal(t, "unreachable", resp.Registry)
}
