package media

import (
	"errors"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog/log"
	"github.com/valyala/fasthttp"
)

type Endpoints struct {
	service     *Service
	externalURL string
}

func NewEndpoints(service *Service, externalURL string) *Endpoints {
	return &Endpoints{
		service:     service,
		externalURL: externalURL,
	}
}

func (e *Endpoints) Create(ctx *fasthttp.RequestCtx) {
	var req CreateRequest
	if err := json.Unmarshal(ctx.PostBody(), &req); err != nil {
		ctx.Error("Invalid request body", fasthttp.StatusBadRequest)
		return
	}

	m, err := e.service.Create(ctx, &req)
	if err != nil {
		log.Error().Err(err).Str("name", req.Name).Msg("Failed to create media")
		ctx.Error(err.Error(), fasthttp.StatusBadRequest)
		return
	}

	response, _ := json.Marshal(&CreateResponse{
		ID:        m.ID,
		MediaID:   m.MediaID,
		UploadURL: e.externalURL + "/tus/" + m.ID,
		Status:    m.Status,
	})
	ctx.SetContentType("application/json")
	ctx.SetStatusCode(fasthttp.StatusCreated)
	ctx.SetBody(response)
}

func (e *Endpoints) Get(ctx *fasthttp.RequestCtx) {
	id, ok := mediaID(ctx)
	if !ok {
		return
	}

	m, err := e.service.Inspect(ctx, id)
	if err != nil {
		writeServiceError(ctx, err)
		return
	}

	response, _ := json.Marshal(m)
	ctx.SetContentType("application/json")
	ctx.SetStatusCode(fasthttp.StatusOK)
	ctx.SetBody(response)
}

func (e *Endpoints) List(ctx *fasthttp.RequestCtx) {
	list, err := e.service.List(ctx)
	if err != nil {
		log.Error().Err(err).Msg("Failed to list media")
		ctx.Error("Failed to list media", fasthttp.StatusInternalServerError)
		return
	}
	if list == nil {
		list = []*Media{}
	}

	response, _ := json.Marshal(list)
	ctx.SetContentType("application/json")
	ctx.SetStatusCode(fasthttp.StatusOK)
	ctx.SetBody(response)
}

func (e *Endpoints) Cancel(ctx *fasthttp.RequestCtx) {
	id, ok := mediaID(ctx)
	if !ok {
		return
	}

	m, err := e.service.Cancel(ctx, id)
	if err != nil {
		writeServiceError(ctx, err)
		return
	}

	response, _ := json.Marshal(m)
	ctx.SetContentType("application/json")
	ctx.SetStatusCode(fasthttp.StatusOK)
	ctx.SetBody(response)
}

func (e *Endpoints) Delete(ctx *fasthttp.RequestCtx) {
	id, ok := mediaID(ctx)
	if !ok {
		return
	}

	if err := e.service.Delete(ctx, id); err != nil {
		writeServiceError(ctx, err)
		return
	}

	ctx.SetStatusCode(fasthttp.StatusNoContent)
}

func mediaID(ctx *fasthttp.RequestCtx) (string, bool) {
	id, ok := ctx.UserValue("mediaID").(string)
	if !ok || id == "" {
		ctx.Error("Media ID is required", fasthttp.StatusBadRequest)
		return "", false
	}
	return id, true
}

func writeServiceError(ctx *fasthttp.RequestCtx, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		ctx.Error("Media not found", fasthttp.StatusNotFound)
	case errors.Is(err, ErrConflict):
		ctx.Error("Media is in a terminal status", fasthttp.StatusConflict)
	default:
		log.Error().Err(err).Msg("Media request failed")
		ctx.Error("Internal Server Error", fasthttp.StatusInternalServerError)
	}
}
