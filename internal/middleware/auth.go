package middleware

import (
	"strings"

	"github.com/JacobNewton007/tus-demo/internal/token"
	"github.com/rs/zerolog/log"
	"github.com/valyala/fasthttp"
)

type AuthMiddleware struct {
	tokenService *token.Service
}

func NewAuthMiddleware(tokenService *token.Service) *AuthMiddleware {
	return &AuthMiddleware{
		tokenService: tokenService,
	}
}

// RequireToken rejects requests without a valid upload token. The token is
// taken from the Authorization header or, for websocket clients, the
// "token" query argument.
func (am *AuthMiddleware) RequireToken(handler fasthttp.RequestHandler) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		tokenString := ExtractToken(ctx)
		if tokenString == "" {
			ctx.Error("Unauthorized: missing token", fasthttp.StatusUnauthorized)
			return
		}

		claims, err := am.tokenService.Validate(tokenString)
		if err != nil {
			log.Debug().Err(err).Msg("Upload token rejected")
			ctx.Error("Unauthorized: invalid token", fasthttp.StatusUnauthorized)
			return
		}

		ctx.SetUserValue("claims", claims)

		handler(ctx)
	}
}

// ExtractToken pulls a bearer token from the request.
func ExtractToken(ctx *fasthttp.RequestCtx) string {
	authHeader := string(ctx.Request.Header.Peek("Authorization"))
	if strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimPrefix(authHeader, "Bearer ")
	}
	return string(ctx.QueryArgs().Peek("token"))
}
