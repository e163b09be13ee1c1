package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"goa.design/clue/log"

	"github.com/ai-gateway/chat-gateway-go/internal/gateway"
	"github.com/ai-gateway/chat-gateway-go/internal/provider"
)

func (s *Server) chat(c *gin.Context) {
	ctx := c.Request.Context()
	raw, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	req, err := s.normalizer.NormalizeChat(raw, s.cfg.Chat)
	if err != nil {
		s.chatError(c, err)
		return
	}

	mode := provider.ModeStream
	if !req.Stream {
		mode = provider.ModeBatch
	}
	res, err := s.gateway.Dispatch(ctx, req, mode)
	if err != nil {
		s.chatError(c, err)
		return
	}
	if req.ConversationID != "" {
		c.Header("X-Conversation-ID", req.ConversationID)
	}

	switch r := res.(type) {
	case *provider.Stream:
		writeStream(c, r)
	case *provider.Completion:
		c.Data(http.StatusOK, textContentType, []byte(r.Text))
	}
}

// chatFailure is the only failure text chat clients see for upstream
// errors; the cause is logged.
const chatFailure = "Failed to process chat request"

func (s *Server) chatError(c *gin.Context, err error) {
	env := gateway.Envelope(err)
	if env.HTTPStatus >= http.StatusInternalServerError {
		log.Error(c.Request.Context(), err, log.KV{K: "msg", V: "chat request failed"})
		env.Message = chatFailure
	}
	c.JSON(env.HTTPStatus, env)
}
