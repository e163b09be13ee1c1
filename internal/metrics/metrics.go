package metrics

import (
	"sort"
	"sync"

	"github.com/ai-gateway/chat-gateway-go/internal/provider"
)

// ProviderUsage is the accumulated usage of one provider.
type ProviderUsage struct {
	Provider         string `json:"provider"`
	Requests         int    `json:"requests"`
	Failures         int    `json:"failures"`
	PromptTokens     int    `json:"promptTokens"`
	CompletionTokens int    `json:"completionTokens"`
	TotalTokens      int    `json:"totalTokens"`
}

// Usage accumulates per-provider request and token counts.
type Usage struct {
	mu   sync.Mutex
	byID map[string]*ProviderUsage
}

func NewUsage() *Usage {
	return &Usage{byID: make(map[string]*ProviderUsage)}
}

func (u *Usage) entry(id string) *ProviderUsage {
	e, ok := u.byID[id]
	if !ok {
		e = &ProviderUsage{Provider: id}
		u.byID[id] = e
	}
	return e
}

// Record counts one dispatch to id. tokens may be nil when the provider did
// not report usage, as for streamed answers.
func (u *Usage) Record(id string, tokens *provider.Usage, failed bool) {
	u.mu.Lock()
	defer u.mu.Unlock()
	e := u.entry(id)
	e.Requests++
	if failed {
		e.Failures++
	}
	if tokens != nil {
		e.PromptTokens += tokens.PromptTokens
		e.CompletionTokens += tokens.CompletionTokens
		e.TotalTokens += tokens.TotalTokens
	}
}

// Snapshot returns a copy of the counters ordered by provider id.
func (u *Usage) Snapshot() []ProviderUsage {
	u.mu.Lock()
	defer u.mu.Unlock()
	out := make([]ProviderUsage, 0, len(u.byID))
	for _, e := range u.byID {
		out = append(out, *e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Provider < out[j].Provider })
	return out
}
