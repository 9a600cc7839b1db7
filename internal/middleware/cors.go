package middleware

import (
	"regexp"

	"github.com/valyala/fasthttp"
)

// Header lists include the tus protocol headers so browser tus clients can
// talk to the proxy cross-origin.
const (
	allowedMethods = "GET, POST, PATCH, HEAD, DELETE, OPTIONS"
	allowedHeaders = "Authorization, Content-Type, Tus-Resumable, Upload-Length, Upload-Metadata, Upload-Offset, X-HTTP-Method-Override"
	exposedHeaders = "Authorization, Content-Type, Location, Tus-Resumable, Tus-Version, Tus-Extension, Tus-Max-Size, Upload-Length, Upload-Metadata, Upload-Offset"
)

type CORSMiddleware struct {
	allowedOrigins []string
	localhostRegex *regexp.Regexp
}

func NewCORSMiddleware(allowedOrigins []string) *CORSMiddleware {
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"*"}
	}
	localhostRegex := regexp.MustCompile(`^https?://localhost:\d+$`)
	return &CORSMiddleware{
		allowedOrigins: allowedOrigins,
		localhostRegex: localhostRegex,
	}
}

func (cm *CORSMiddleware) Handle(next fasthttp.RequestHandler) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		origin := string(ctx.Request.Header.Peek("Origin"))

		if cm.isOriginAllowed(origin) {
			ctx.Response.Header.Set("Access-Control-Allow-Origin", origin)
			// When using credentials, we must set the specific origin (not *)
			ctx.Response.Header.Set("Access-Control-Allow-Credentials", "true")
		} else if len(cm.allowedOrigins) == 1 && cm.allowedOrigins[0] == "*" {
			ctx.Response.Header.Set("Access-Control-Allow-Origin", "*")
		}

		ctx.Response.Header.Set("Access-Control-Allow-Methods", allowedMethods)
		ctx.Response.Header.Set("Access-Control-Allow-Headers", allowedHeaders)
		ctx.Response.Header.Set("Access-Control-Expose-Headers", exposedHeaders)
		ctx.Response.Header.Set("Access-Control-Max-Age", "86400")

		// tus capability discovery also arrives as OPTIONS; only answer
		// preflights (marked by Access-Control-Request-Method) here.
		if string(ctx.Method()) == "OPTIONS" && len(ctx.Request.Header.Peek("Access-Control-Request-Method")) > 0 {
			ctx.SetStatusCode(fasthttp.StatusNoContent)
			return
		}

		next(ctx)
	}
}

func (cm *CORSMiddleware) isOriginAllowed(origin string) bool {
	for _, allowed := range cm.allowedOrigins {
		if allowed == origin {
			return true
		}
		if allowed == "http://localhost:*" || allowed == "https://localhost:*" {
			if cm.localhostRegex.MatchString(origin) {
				return true
			}
		}
	}
	if len(cm.allowedOrigins) == 1 && cm.allowedOrigins[0] == "*" {
		return cm.localhostRegex.MatchString(origin)
	}
	return false
}
