package events

import (
	"github.com/JacobNewton007/tus-demo/internal/middleware"
	"github.com/JacobNewton007/tus-demo/internal/token"
	"github.com/fasthttp/websocket"
	"github.com/rs/zerolog/log"
	"github.com/valyala/fasthttp"
)

var upgrader = websocket.FastHTTPUpgrader{
	CheckOrigin: func(ctx *fasthttp.RequestCtx) bool {
		// Origins are enforced by the CORS middleware; the websocket
		// endpoint accepts any upgrade carrying a valid upload token.
		return true
	},
}

type Handler struct {
	hub          *Hub
	tokenService *token.Service
}

func NewHandler(hub *Hub, tokenService *token.Service) *Handler {
	return &Handler{
		hub:          hub,
		tokenService: tokenService,
	}
}

// HandleFastHTTP handles WebSocket upgrade requests for FastHTTP
func (h *Handler) HandleFastHTTP(ctx *fasthttp.RequestCtx) {
	tokenString := middleware.ExtractToken(ctx)
	if tokenString == "" {
		log.Debug().Msg("[WS] Connection rejected: missing token")
		ctx.Error("Unauthorized: missing token", fasthttp.StatusUnauthorized)
		return
	}

	if _, err := h.tokenService.Validate(tokenString); err != nil {
		log.Debug().Err(err).Msg("[WS] Connection rejected: invalid token")
		ctx.Error("Unauthorized: invalid token", fasthttp.StatusUnauthorized)
		return
	}

	remoteAddr := ctx.RemoteAddr().String()

	err := upgrader.Upgrade(ctx, func(conn *websocket.Conn) {
		client := NewClient(h.hub, conn, remoteAddr)
		h.hub.Register(client)

		client.send <- &OutgoingMessage{Type: MessageTypeConnected}

		log.Info().
			Str("remoteAddr", remoteAddr).
			Msg("[WS] Client connected")

		go client.WritePump()
		client.ReadPump() // Blocks until disconnect
	})

	if err != nil {
		log.Error().Err(err).Msg("[WS] Failed to upgrade connection")
		return
	}
}
