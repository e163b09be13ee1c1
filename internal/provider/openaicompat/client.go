// Package openaicompat provides a provider.Provider backed by any upstream
// that speaks the OpenAI Chat Completions protocol. Groq and xAI both do, so
// a single adapter serves them with different base URLs and models.
package openaicompat

import (
	"context"
	"errors"
	"io"
	"net/http"

	openai "github.com/sashabaranov/go-openai"

	"github.com/ai-gateway/chat-gateway-go/internal/provider"
)

// noResponse is returned as the text when the upstream answers without content.
const noResponse = "No response"

// Options configures the adapter.
type Options struct {
	// Label names the upstream in error messages, e.g. "Groq".
	Label string
	// BaseURL is the API root, e.g. https://api.groq.com/openai/v1.
	BaseURL string
	// APIKey may be empty; calls then fail with provider.ErrCredentialMissing.
	APIKey string
	// APIKeyEnv is the environment variable APIKey was read from.
	APIKeyEnv string
	Model     string
	// HTTPClient defaults to http.DefaultClient.
	HTTPClient *http.Client
}

// Provider implements provider.Provider over go-openai.
type Provider struct {
	label  string
	keyEnv string
	model  string
	client *openai.Client
}

// New builds an adapter from opts.
func New(opts Options) (*Provider, error) {
	if opts.BaseURL == "" {
		return nil, errors.New("openaicompat: base url is required")
	}
	if opts.Model == "" {
		return nil, errors.New("openaicompat: model is required")
	}
	p := &Provider{label: opts.Label, keyEnv: opts.APIKeyEnv, model: opts.Model}
	if p.label == "" {
		p.label = opts.Model
	}
	if opts.APIKey != "" {
		cfg := openai.DefaultConfig(opts.APIKey)
		cfg.BaseURL = opts.BaseURL
		if opts.HTTPClient != nil {
			cfg.HTTPClient = opts.HTTPClient
		}
		p.client = openai.NewClientWithConfig(cfg)
	}
	return p, nil
}

// Model returns the upstream model id requests are sent with.
func (p *Provider) Model() string { return p.model }

func (p *Provider) Invoke(ctx context.Context, msgs []provider.Message, opts provider.Options, mode provider.Mode) (provider.Result, error) {
	if p.client == nil {
		return nil, provider.MissingCredential(p.keyEnv)
	}
	req := p.request(msgs, opts)
	if mode == provider.ModeBatch {
		return p.complete(ctx, req)
	}

	st, err := p.client.CreateChatCompletionStream(ctx, req)
	if err != nil {
		return nil, p.upstreamError(err)
	}
	return provider.NewStream(ctx, func(ctx context.Context, emit provider.EmitFunc) error {
		defer st.Close()
		for {
			resp, err := st.Recv()
			if errors.Is(err, io.EOF) {
				return nil
			}
			if err != nil {
				return p.upstreamError(err)
			}
			if len(resp.Choices) == 0 || resp.Choices[0].Delta.Content == "" {
				continue
			}
			if !emit(resp.Choices[0].Delta.Content) {
				return ctx.Err()
			}
		}
	}), nil
}

func (p *Provider) complete(ctx context.Context, req openai.ChatCompletionRequest) (*provider.Completion, error) {
	resp, err := p.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return nil, p.upstreamError(err)
	}
	text := noResponse
	if len(resp.Choices) > 0 && resp.Choices[0].Message.Content != "" {
		text = resp.Choices[0].Message.Content
	}
	return &provider.Completion{
		Text: text,
		Usage: &provider.Usage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		},
	}, nil
}

func (p *Provider) request(msgs []provider.Message, opts provider.Options) openai.ChatCompletionRequest {
	messages := make([]openai.ChatCompletionMessage, 0, len(msgs))
	for _, m := range msgs {
		messages = append(messages, openai.ChatCompletionMessage{Role: string(m.Role), Content: m.Content})
	}
	model := p.model
	if opts.Model != "" {
		model = opts.Model
	}
	return openai.ChatCompletionRequest{
		Model:       model,
		Messages:    messages,
		Temperature: float32(opts.Temperature),
		MaxTokens:   opts.MaxTokens,
	}
}

func (p *Provider) upstreamError(err error) error {
	ue := &provider.UpstreamError{Provider: p.label, Err: err}
	var apiErr *openai.APIError
	var reqErr *openai.RequestError
	switch {
	case errors.As(err, &apiErr):
		ue.Status = apiErr.HTTPStatusCode
	case errors.As(err, &reqErr):
		ue.Status = reqErr.HTTPStatusCode
	}
	return ue
}
