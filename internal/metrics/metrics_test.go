package metrics

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ai-gateway/chat-gateway-go/internal/provider"
)

func TestUsageRecord(t *testing.T) {
	u := NewUsage()
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			u.Record("groq", &provider.Usage{PromptTokens: 1, CompletionTokens: 2, TotalTokens: 3}, false)
		}()
	}
	wg.Wait()
	u.Record("grok", nil, true)

	snap := u.Snapshot()
	require.Len(t, snap, 2)
	require.Equal(t, ProviderUsage{Provider: "grok", Requests: 1, Failures: 1}, snap[0])
	require.Equal(t, ProviderUsage{Provider: "groq", Requests: 10, PromptTokens: 10, CompletionTokens: 20, TotalTokens: 30}, snap[1])
}
