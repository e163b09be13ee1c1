package echo

import (
	"context"
	"errors"
	"strings"

	"github.com/ai-gateway/chat-gateway-go/internal/provider"
)

// Provider responds by echoing the last user message. It needs no credentials
// and is deterministic, which makes it useful for local runs.
type Provider struct{}

func New() *Provider { return &Provider{} }

func (p *Provider) Invoke(ctx context.Context, msgs []provider.Message, opts provider.Options, mode provider.Mode) (provider.Result, error) {
	text, err := reply(msgs, opts.MaxTokens)
	if err != nil {
		return nil, err
	}
	if mode == provider.ModeBatch {
		n := len(strings.Fields(text))
		return &provider.Completion{
			Text:  text,
			Usage: &provider.Usage{PromptTokens: n, CompletionTokens: n, TotalTokens: 2 * n},
		}, nil
	}
	return provider.NewStream(ctx, func(ctx context.Context, emit provider.EmitFunc) error {
		for _, word := range strings.SplitAfter(text, " ") {
			if !emit(word) {
				return ctx.Err()
			}
		}
		return nil
	}), nil
}

func reply(msgs []provider.Message, maxTokens int) (string, error) {
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Role != provider.RoleUser {
			continue
		}
		words := strings.Fields("Echo: " + msgs[i].Content)
		if maxTokens > 0 && len(words) > maxTokens {
			words = words[:maxTokens]
		}
		return strings.Join(words, " "), nil
	}
	return "", errors.New("echo: no user message")
}
