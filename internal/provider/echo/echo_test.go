package echo

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ai-gateway/chat-gateway-go/internal/provider"
)

func TestEchoStream(t *testing.T) {
	res, err := New().Invoke(context.Background(), []provider.Message{
		{Role: provider.RoleSystem, Content: "be brief"},
		{Role: provider.RoleUser, Content: "hello there"},
	}, provider.Options{MaxTokens: 10}, provider.ModeStream)
	require.NoError(t, err)
	s, ok := res.(*provider.Stream)
	require.True(t, ok)
	text, err := s.ReadAll()
	require.NoError(t, err)
	require.Equal(t, "Echo: hello there", text)
}

func TestEchoBatchTruncates(t *testing.T) {
	res, err := New().Invoke(context.Background(), []provider.Message{
		{Role: provider.RoleUser, Content: "one two three four"},
	}, provider.Options{MaxTokens: 3}, provider.ModeBatch)
	require.NoError(t, err)
	c, ok := res.(*provider.Completion)
	require.True(t, ok)
	require.Equal(t, "Echo: one two", c.Text)
	require.Equal(t, 6, c.Usage.TotalTokens)
}

func TestEchoRequiresUserMessage(t *testing.T) {
	_, err := New().Invoke(context.Background(), []provider.Message{
		{Role: provider.RoleAssistant, Content: "hi"},
	}, provider.Options{}, provider.ModeBatch)
	require.Error(t, err)
}
