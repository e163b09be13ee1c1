package server

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"goa.design/clue/log"
)

// requestLogger attaches the base logger and a request id to every request
// and logs one line when it completes.
func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		id := c.GetHeader("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		c.Header("X-Request-ID", id)

		ctx := log.WithContext(c.Request.Context(), s.logCtx)
		ctx = log.With(ctx, log.KV{K: "request_id", V: id})
		c.Request = c.Request.WithContext(ctx)

		c.Next()

		log.Info(ctx,
			log.KV{K: "method", V: c.Request.Method},
			log.KV{K: "path", V: c.FullPath()},
			log.KV{K: "status", V: c.Writer.Status()},
			log.KV{K: "duration_ms", V: time.Since(start).Milliseconds()},
		)
	}
}
