package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"goa.design/clue/log"

	"github.com/ai-gateway/chat-gateway-go/internal/provider"
)

const textContentType = "text/plain; charset=utf-8"

// writeStream forwards chunks to the client as they arrive, flushing after
// each one. It stops early and releases the upstream when the client goes
// away. Failures after the first byte cannot change the status, so they are
// only logged and end the body.
func writeStream(c *gin.Context, s *provider.Stream) {
	defer s.Close()
	ctx := c.Request.Context()

	c.Header("Content-Type", textContentType)
	c.Header("Cache-Control", "no-cache")
	c.Header("X-Content-Type-Options", "nosniff")
	c.Status(http.StatusOK)
	c.Writer.Flush()

	for {
		select {
		case chunk, ok := <-s.Chunks():
			if !ok {
				return
			}
			if chunk.Err != nil {
				log.Error(ctx, chunk.Err, log.KV{K: "msg", V: "stream aborted"})
				return
			}
			if _, err := c.Writer.WriteString(chunk.Text); err != nil {
				return
			}
			c.Writer.Flush()
		case <-ctx.Done():
			log.Info(ctx, log.KV{K: "msg", V: "client disconnected"})
			return
		}
	}
}
