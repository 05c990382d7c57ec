package handler

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	pkglog "github.com/onairlive/onair/pkg/log"
	"github.com/onairlive/onair/pkg/response"
)

// NewRouter assembles the Gin engine with request logging, panic recovery
// and all routes.
func NewRouter(logger zerolog.Logger, httpHandler *HTTPHandler, wsHandler *WSHandler) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()
	r.Use(pkglog.GinMiddleware(logger))
	r.Use(recovery(logger))

	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "OK")
	})

	httpHandler.RegisterRoutes(r)
	wsHandler.RegisterRoutes(r)

	return r
}

// recovery converts panics into a generic 500 carrying the failure's
// message, without leaking a stack trace to the caller.
func recovery(logger zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if rec := recover(); rec != nil {
				logger.Error().
					Interface("panic", rec).
					Str(pkglog.FieldPath, c.Request.URL.Path).
					Msg("request panicked")
				response.InternalError(c, fmt.Sprint(rec))
				c.Abort()
			}
		}()
		c.Next()
	}
}
