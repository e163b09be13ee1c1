package server

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"goa.design/clue/log"

	"github.com/ai-gateway/chat-gateway-go/internal/store"
)

// userHeader carries the id of the signed-in user, set by the auth proxy in
// front of the gateway.
const userHeader = "X-User-ID"

type newConversation struct {
	Title  string `json:"title"`
	Folder string `json:"folder"`
}

// listConversations answers with an empty list rather than an error when
// there is no user or the database cannot be read.
func (s *Server) listConversations(c *gin.Context) {
	ctx := c.Request.Context()
	conversations := []store.Conversation{}
	user := c.GetHeader(userHeader)
	if user == "" || s.db == nil {
		c.JSON(http.StatusOK, gin.H{"conversations": conversations})
		return
	}
	list, err := s.db.ListConversations(ctx, user)
	if err != nil {
		log.Error(ctx, err, log.KV{K: "msg", V: "list conversations failed"})
	} else if list != nil {
		conversations = list
	}
	c.JSON(http.StatusOK, gin.H{"conversations": conversations})
}

func (s *Server) createConversation(c *gin.Context) {
	var body newConversation
	if err := c.ShouldBindJSON(&body); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	if c.GetHeader(userHeader) == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}
	if body.Title == "" {
		body.Title = "New Chat"
	}
	if body.Folder == "" {
		body.Folder = "General"
	}
	c.JSON(http.StatusOK, gin.H{
		"id":     "conv_" + uuid.NewString(),
		"title":  body.Title,
		"folder": body.Folder,
	})
}
