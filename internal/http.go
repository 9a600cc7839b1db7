package internal

import (
	"strings"

	"github.com/JacobNewton007/tus-demo/internal/events"
	"github.com/JacobNewton007/tus-demo/internal/health"
	"github.com/JacobNewton007/tus-demo/internal/media"
	"github.com/JacobNewton007/tus-demo/internal/middleware"
	"github.com/JacobNewton007/tus-demo/internal/proxy"
	"github.com/JacobNewton007/tus-demo/internal/token"
	"github.com/valyala/fasthttp"
)

func NewRequestHandler(config *Config, tokenService *token.Service, tokenEndpoints *token.Endpoints, mediaEndpoints *media.Endpoints, proxyHandler *proxy.Handler, healthEndpoints *health.HealthEndpoints, wsHandler *events.Handler) fasthttp.RequestHandler {
	authMiddleware := middleware.NewAuthMiddleware(tokenService)
	corsMiddleware := middleware.NewCORSMiddleware(config.Server.AllowedOrigins)

	handler := func(ctx *fasthttp.RequestCtx) {
		path := string(ctx.Path())
		method := requestMethod(ctx)

		switch {
		case path == "/health":
			healthEndpoints.Health(ctx)

		case path == "/tokens":
			if method == "POST" {
				tokenEndpoints.Issue(ctx)
			} else {
				ctx.Error("Method Not Allowed", fasthttp.StatusMethodNotAllowed)
			}

		case path == "/media":
			switch method {
			case "POST":
				authMiddleware.RequireToken(mediaEndpoints.Create)(ctx)
			case "GET":
				authMiddleware.RequireToken(mediaEndpoints.List)(ctx)
			default:
				ctx.Error("Method Not Allowed", fasthttp.StatusMethodNotAllowed)
			}

		case strings.HasPrefix(path, "/media/") && strings.HasSuffix(path, "/cancel"):
			parts := strings.Split(path, "/")
			if len(parts) == 4 && parts[3] == "cancel" {
				ctx.SetUserValue("mediaID", parts[2])
				if method == "POST" {
					authMiddleware.RequireToken(mediaEndpoints.Cancel)(ctx)
				} else {
					ctx.Error("Method Not Allowed", fasthttp.StatusMethodNotAllowed)
				}
			} else {
				ctx.Error("Not Found", fasthttp.StatusNotFound)
			}

		case strings.HasPrefix(path, "/media/"):
			parts := strings.Split(path, "/")
			if len(parts) == 3 {
				ctx.SetUserValue("mediaID", parts[2])
				switch method {
				case "GET":
					authMiddleware.RequireToken(mediaEndpoints.Get)(ctx)
				case "DELETE":
					authMiddleware.RequireToken(mediaEndpoints.Delete)(ctx)
				default:
					ctx.Error("Method Not Allowed", fasthttp.StatusMethodNotAllowed)
				}
			} else {
				ctx.Error("Not Found", fasthttp.StatusNotFound)
			}

		case path == "/tus":
			switch method {
			case "OPTIONS":
				proxyHandler.Options(ctx)
			case "POST":
				authMiddleware.RequireToken(proxyHandler.Create)(ctx)
			default:
				ctx.Error("Method Not Allowed", fasthttp.StatusMethodNotAllowed)
			}

		case strings.HasPrefix(path, "/tus/"):
			parts := strings.Split(path, "/")
			if len(parts) == 3 {
				ctx.SetUserValue("mediaID", parts[2])
				switch method {
				case "HEAD":
					authMiddleware.RequireToken(proxyHandler.Head)(ctx)
				case "PATCH":
					authMiddleware.RequireToken(proxyHandler.Patch)(ctx)
				case "DELETE":
					authMiddleware.RequireToken(proxyHandler.Delete)(ctx)
				case "OPTIONS":
					proxyHandler.Options(ctx)
				default:
					ctx.Error("Method Not Allowed", fasthttp.StatusMethodNotAllowed)
				}
			} else {
				ctx.Error("Not Found", fasthttp.StatusNotFound)
			}

		case path == "/events/ws":
			wsHandler.HandleFastHTTP(ctx)

		default:
			ctx.Error("Not Found", fasthttp.StatusNotFound)
		}
	}

	return corsMiddleware.Handle(handler)
}

// requestMethod honors X-HTTP-Method-Override so tus clients behind
// PATCH-stripping proxies can tunnel PATCH over POST.
func requestMethod(ctx *fasthttp.RequestCtx) string {
	if override := string(ctx.Request.Header.Peek("X-HTTP-Method-Override")); override != "" {
		return strings.ToUpper(override)
	}
	return string(ctx.Method())
}
