package gateway

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ai-gateway/chat-gateway-go/internal/guardrails"
	"github.com/ai-gateway/chat-gateway-go/internal/provider"
	"github.com/ai-gateway/chat-gateway-go/internal/routing"
)

// CallSettings holds the defaults of one call site.
type CallSettings struct {
	DefaultProvider string  `mapstructure:"default_provider"`
	Temperature     float64 `mapstructure:"temperature"`
	MaxTokens       int     `mapstructure:"max_tokens"`
	// StrictProvider rejects unknown provider ids instead of falling back
	// to DefaultProvider.
	StrictProvider bool `mapstructure:"strict_provider"`
}

// Options returns the sampling options the call site applies by default.
func (s CallSettings) Options() provider.Options {
	return provider.Options{Temperature: s.Temperature, MaxTokens: s.MaxTokens}
}

// CheckSettings holds the sampling parameters of connection checks. The
// provider of a check is always explicit.
type CheckSettings struct {
	Temperature float64 `mapstructure:"temperature"`
	MaxTokens   int     `mapstructure:"max_tokens"`
}

func (s CheckSettings) Options() provider.Options {
	return provider.Options{Temperature: s.Temperature, MaxTokens: s.MaxTokens}
}

// ChatRequest is a validated request ready for dispatch.
type ChatRequest struct {
	Messages       []provider.Message
	ProviderID     string
	Options        provider.Options
	ConversationID string
	Stream         bool
}

// Normalizer turns raw request bodies into ChatRequests.
type Normalizer struct {
	router *routing.Router
	guards *guardrails.Guardrails
}

func NewNormalizer(router *routing.Router, guards *guardrails.Guardrails) *Normalizer {
	return &Normalizer{router: router, guards: guards}
}

type chatBody struct {
	Messages       json.RawMessage `json:"messages"`
	Model          string          `json:"model"`
	ConversationID string          `json:"conversationId"`
	Stream         *bool           `json:"stream"`
	Options        *struct {
		Temperature *float64 `json:"temperature"`
		MaxTokens   *int     `json:"maxTokens"`
	} `json:"options"`
}

// NormalizeChat parses the body of a chat request.
func (n *Normalizer) NormalizeChat(raw []byte, s CallSettings) (*ChatRequest, error) {
	var body chatBody
	if err := json.Unmarshal(raw, &body); err != nil {
		return nil, malformed("invalid JSON body")
	}
	msgs := bytes.TrimSpace(body.Messages)
	if len(msgs) == 0 || bytes.Equal(msgs, []byte("null")) {
		return nil, malformed("messages is required")
	}
	req := &ChatRequest{
		Options:        s.Options(),
		ConversationID: body.ConversationID,
		Stream:         true,
	}
	if err := json.Unmarshal(msgs, &req.Messages); err != nil {
		return nil, malformed("messages must be an array of {role, content}")
	}
	if err := n.guards.CheckMessages(req.Messages); err != nil {
		return nil, malformed(err.Error())
	}
	if body.Stream != nil {
		req.Stream = *body.Stream
	}
	if o := body.Options; o != nil {
		if o.Temperature != nil {
			if *o.Temperature < 0 || *o.Temperature > 2 {
				return nil, malformed("options.temperature must be between 0 and 2")
			}
			req.Options.Temperature = *o.Temperature
		}
		if o.MaxTokens != nil {
			if *o.MaxTokens <= 0 {
				return nil, malformed("options.maxTokens must be positive")
			}
			req.Options.MaxTokens = *o.MaxTokens
		}
	}
	id, err := n.providerID(body.Model, s)
	if err != nil {
		return nil, err
	}
	req.ProviderID = id
	return req, nil
}

type probeBody struct {
	Message  string `json:"message"`
	Provider string `json:"provider"`
}

// NormalizeProbe parses the body of a single-message test request.
func (n *Normalizer) NormalizeProbe(raw []byte, s CallSettings) (*ChatRequest, error) {
	var body probeBody
	if err := json.Unmarshal(raw, &body); err != nil {
		return nil, malformed("invalid JSON body")
	}
	if strings.TrimSpace(body.Message) == "" {
		return nil, malformed("Message is required")
	}
	msgs := []provider.Message{{Role: provider.RoleUser, Content: body.Message}}
	if err := n.guards.CheckMessages(msgs); err != nil {
		return nil, malformed(err.Error())
	}
	id, err := n.providerID(body.Provider, s)
	if err != nil {
		return nil, err
	}
	return &ChatRequest{Messages: msgs, ProviderID: id, Options: s.Options()}, nil
}

// HealthRequest builds the fixed connection-check request for providerID.
func HealthRequest(providerID, label string, s CheckSettings) *ChatRequest {
	prompt := fmt.Sprintf("Say %q in exactly 5 words.", label+" connection test successful")
	return &ChatRequest{
		Messages:   []provider.Message{{Role: provider.RoleUser, Content: prompt}},
		ProviderID: providerID,
		Options:    s.Options(),
	}
}

// providerID picks the provider for a request. An unknown id is rejected at
// strict call sites and otherwise goes to the registry default.
func (n *Normalizer) providerID(requested string, s CallSettings) (string, error) {
	if requested == "" {
		return s.DefaultProvider, nil
	}
	if s.StrictProvider && !n.router.Has(requested) {
		return "", invalidProvider()
	}
	return n.router.ProviderFor(requested), nil
}
