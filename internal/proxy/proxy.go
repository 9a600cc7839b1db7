package proxy

import (
	"encoding/base64"
	"errors"
	"strconv"
	"strings"

	"github.com/JacobNewton007/tus-demo/internal/media"
	"github.com/rs/zerolog/log"
	"github.com/valyala/fasthttp"
)

const (
	tusVersion    = "1.0.0"
	tusExtensions = "creation,termination"
)

// Handler forwards tus traffic to the hosting API's upload links. Clients
// only ever see proxy-local URLs; the upstream link and the account access
// token never leave the server.
type Handler struct {
	service     *media.Service
	client      *fasthttp.Client
	externalURL string
	accessToken string
	maxSize     int64
}

func NewHandler(service *media.Service, client *fasthttp.Client, externalURL, accessToken string, maxSize int64) *Handler {
	if client == nil {
		client = &fasthttp.Client{}
	}
	return &Handler{
		service:     service,
		client:      client,
		externalURL: strings.TrimSuffix(externalURL, "/"),
		accessToken: accessToken,
		maxSize:     maxSize,
	}
}

// Options answers tus capability discovery locally.
func (h *Handler) Options(ctx *fasthttp.RequestCtx) {
	ctx.Response.Header.Set("Tus-Resumable", tusVersion)
	ctx.Response.Header.Set("Tus-Version", tusVersion)
	ctx.Response.Header.Set("Tus-Extension", tusExtensions)
	if h.maxSize > 0 {
		ctx.Response.Header.Set("Tus-Max-Size", strconv.FormatInt(h.maxSize, 10))
	}
	ctx.SetStatusCode(fasthttp.StatusNoContent)
}

// Create handles the tus creation request: it registers the upload with the
// hosting API through the registry and points the client back at the proxy.
func (h *Handler) Create(ctx *fasthttp.RequestCtx) {
	length, err := strconv.ParseInt(string(ctx.Request.Header.Peek("Upload-Length")), 10, 64)
	if err != nil || length <= 0 {
		ctx.Error("Upload-Length header is required", fasthttp.StatusBadRequest)
		return
	}

	meta := parseMetadata(string(ctx.Request.Header.Peek("Upload-Metadata")))
	name := meta["filename"]
	if name == "" {
		name = meta["name"]
	}
	if name == "" {
		name = "untitled"
	}

	m, err := h.service.Create(ctx, &media.CreateRequest{
		Name:        name,
		SizeBytes:   length,
		ContentType: meta["filetype"],
	})
	if err != nil {
		log.Error().Err(err).Str("name", name).Msg("tus creation failed")
		ctx.Error(err.Error(), fasthttp.StatusBadRequest)
		return
	}

	ctx.Response.Header.Set("Tus-Resumable", tusVersion)
	ctx.Response.Header.Set("Location", h.externalURL+"/tus/"+m.ID)
	ctx.SetStatusCode(fasthttp.StatusCreated)
}

// Head forwards an offset probe to the upstream upload link.
func (h *Handler) Head(ctx *fasthttp.RequestCtx) {
	h.forward(ctx)
}

// Patch forwards a chunk and mirrors the acknowledged offset into the registry.
func (h *Handler) Patch(ctx *fasthttp.RequestCtx) {
	h.forward(ctx)
}

// Delete terminates the upload: the record is cancelled and the upstream
// asset released.
func (h *Handler) Delete(ctx *fasthttp.RequestCtx) {
	id, ok := mediaID(ctx)
	if !ok {
		return
	}

	if _, err := h.service.Cancel(ctx, id); err != nil {
		writeTusError(ctx, err)
		return
	}

	ctx.Response.Header.Set("Tus-Resumable", tusVersion)
	ctx.SetStatusCode(fasthttp.StatusNoContent)
}

func (h *Handler) forward(ctx *fasthttp.RequestCtx) {
	id, ok := mediaID(ctx)
	if !ok {
		return
	}

	m, err := h.service.Get(ctx, id)
	if err != nil {
		writeTusError(ctx, err)
		return
	}

	// A ready record still forwards so resuming clients can observe the
	// final offset; cancelled and failed uploads are gone.
	status := media.Status(m.Status)
	if status == media.StatusCancelled || status == media.StatusFailed {
		ctx.Response.Header.Set("Tus-Resumable", tusVersion)
		ctx.Error("Upload is gone", fasthttp.StatusGone)
		return
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	ctx.Request.CopyTo(req)
	req.SetRequestURI(m.UploadLink)
	req.Header.Set("Authorization", "Bearer "+h.accessToken)
	req.Header.Del(fasthttp.HeaderConnection)

	if err := h.client.Do(req, resp); err != nil {
		log.Error().Err(err).Str("id", id).Msg("Upstream tus request failed")
		ctx.Error("Bad Gateway", fasthttp.StatusBadGateway)
		return
	}

	// The account token must never reach upload clients, even if the
	// upstream reflects it back.
	resp.Header.Del(fasthttp.HeaderAuthorization)
	resp.Header.Del(fasthttp.HeaderConnection)
	resp.CopyTo(&ctx.Response)

	if isPatch(ctx) && resp.StatusCode() >= 200 && resp.StatusCode() < 300 {
		h.recordOffset(ctx, id, resp)
	}
}

// isPatch also recognizes PATCH tunneled over POST via X-HTTP-Method-Override.
func isPatch(ctx *fasthttp.RequestCtx) bool {
	if ctx.IsPatch() {
		return true
	}
	return strings.EqualFold(string(ctx.Request.Header.Peek("X-HTTP-Method-Override")), "PATCH")
}

func (h *Handler) recordOffset(ctx *fasthttp.RequestCtx, id string, resp *fasthttp.Response) {
	offset, err := strconv.ParseInt(string(resp.Header.Peek("Upload-Offset")), 10, 64)
	if err != nil {
		log.Warn().Str("id", id).Msg("Upstream PATCH response carried no Upload-Offset")
		return
	}

	if _, err := h.service.UpdateProgress(ctx, id, offset); err != nil && !errors.Is(err, media.ErrConflict) {
		log.Error().Err(err).Str("id", id).Int64("offset", offset).Msg("Failed to record upload progress")
	}
}

func mediaID(ctx *fasthttp.RequestCtx) (string, bool) {
	id, ok := ctx.UserValue("mediaID").(string)
	if !ok || id == "" {
		ctx.Error("Not Found", fasthttp.StatusNotFound)
		return "", false
	}
	return id, true
}

func writeTusError(ctx *fasthttp.RequestCtx, err error) {
	ctx.Response.Header.Set("Tus-Resumable", tusVersion)
	switch {
	case errors.Is(err, media.ErrNotFound):
		ctx.Error("Not Found", fasthttp.StatusNotFound)
	case errors.Is(err, media.ErrConflict):
		ctx.Error("Upload is gone", fasthttp.StatusGone)
	default:
		log.Error().Err(err).Msg("tus request failed")
		ctx.Error("Internal Server Error", fasthttp.StatusInternalServerError)
	}
}

// parseMetadata decodes the Upload-Metadata header: comma-separated pairs of
// "key base64value", value optional.
func parseMetadata(header string) map[string]string {
	meta := make(map[string]string)
	if header == "" {
		return meta
	}
	for _, pair := range strings.Split(header, ",") {
		parts := strings.SplitN(strings.TrimSpace(pair), " ", 2)
		if parts[0] == "" {
			continue
		}
		if len(parts) == 1 {
			meta[parts[0]] = ""
			continue
		}
		decoded, err := base64.StdEncoding.DecodeString(parts[1])
		if err != nil {
			continue
		}
		meta[parts[0]] = string(decoded)
	}
	return meta
}
