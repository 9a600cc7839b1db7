package token

import (
	"errors"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog/log"
	"github.com/valyala/fasthttp"
)

type Endpoints struct {
	service *Service
}

func NewEndpoints(service *Service) *Endpoints {
	return &Endpoints{service: service}
}

type IssueRequest struct {
	APIKey string `json:"apiKey"`
}

type IssueResponse struct {
	Token     string `json:"token"`
	ExpiresAt int64  `json:"expiresAt"`
}

func (e *Endpoints) Issue(ctx *fasthttp.RequestCtx) {
	var req IssueRequest
	if err := json.Unmarshal(ctx.PostBody(), &req); err != nil {
		ctx.Error("Invalid request body", fasthttp.StatusBadRequest)
		return
	}

	tokenString, expiresAt, err := e.service.Issue(req.APIKey)
	if err != nil {
		if errors.Is(err, ErrInvalidKey) {
			ctx.Error("Unauthorized", fasthttp.StatusUnauthorized)
			return
		}
		log.Error().Err(err).Msg("Failed to issue upload token")
		ctx.Error("Internal Server Error", fasthttp.StatusInternalServerError)
		return
	}

	response, _ := json.Marshal(&IssueResponse{Token: tokenString, ExpiresAt: expiresAt})
	ctx.SetContentType("application/json")
	ctx.SetStatusCode(fasthttp.StatusOK)
	ctx.SetBody(response)
}
