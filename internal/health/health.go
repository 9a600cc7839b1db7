package health

import (
	"github.com/goccy/go-json"
	"github.com/rs/zerolog/log"
	"github.com/valyala/fasthttp"
)

// Pinger is the slice of the registry database the health check needs.
type Pinger interface {
	Ping() error
}

type HealthEndpoints struct {
	version  string
	registry Pinger
}

func NewEndpoints(version string, registry Pinger) *HealthEndpoints {
	return &HealthEndpoints{
		version:  version,
		registry: registry,
	}
}

type HealthResponse struct {
	Status   string `json:"status"`
	Version  string `json:"version"`
	Registry string `json:"registry"`
}

func (h *HealthEndpoints) Health(ctx *fasthttp.RequestCtx) {
	response := HealthResponse{
		Status:   "ok",
		Version:  h.version,
		Registry: "ok",
	}

	if err := h.registry.Ping(); err != nil {
		log.Warn().Err(err).Msg("Health check: media registry unreachable")
		response.Status = "degraded"
		response.Registry = "unreachable"
		ctx.SetStatusCode(fasthttp.StatusServiceUnavailable)
	} else {
		ctx.SetStatusCode(fasthttp.StatusOK)
	}

	ctx.SetContentType("application/json")

	responseJSON, err := json.Marshal(response)
	if err != nil {
		ctx.Error("Internal Server Error", fasthttp.StatusInternalServerError)
		return
	}

	ctx.SetBody(responseJSON)
}
