package gateway

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ai-gateway/chat-gateway-go/internal/guardrails"
	"github.com/ai-gateway/chat-gateway-go/internal/provider"
)

var probeSettings = CallSettings{DefaultProvider: "groq", Temperature: 0.7, MaxTokens: 100, StrictProvider: true}

func newTestNormalizer(t *testing.T) *Normalizer {
	t.Helper()
	r := newTestRouter(t, map[string]provider.Provider{"groq": &mockProvider{}, "grok": &mockProvider{}})
	return NewNormalizer(r, guardrails.New(guardrails.Limits{MaxMessages: 3}))
}

func TestNormalizeChatDefaults(t *testing.T) {
	n := newTestNormalizer(t)
	req, err := n.NormalizeChat([]byte(`{"messages":[{"role":"system","content":"be nice"},{"role":"user","content":"hi"}],"conversationId":"c1"}`), chatSettings)
	require.NoError(t, err)
	require.Equal(t, "groq", req.ProviderID)
	require.Equal(t, provider.Options{Temperature: 0.7, MaxTokens: 2000}, req.Options)
	require.Equal(t, "c1", req.ConversationID)
	require.True(t, req.Stream)
	require.Len(t, req.Messages, 2)
	require.Equal(t, provider.RoleSystem, req.Messages[0].Role)
}

func TestNormalizeChatOverrides(t *testing.T) {
	n := newTestNormalizer(t)
	req, err := n.NormalizeChat([]byte(`{"messages":[{"role":"user","content":"hi"}],"model":"grok","stream":false,"options":{"temperature":0.2,"maxTokens":50}}`), chatSettings)
	require.NoError(t, err)
	require.Equal(t, "grok", req.ProviderID)
	require.False(t, req.Stream)
	require.InDelta(t, 0.2, req.Options.Temperature, 1e-9)
	require.Equal(t, 50, req.Options.MaxTokens)
}

func TestNormalizeChatMalformed(t *testing.T) {
	n := newTestNormalizer(t)
	cases := map[string]string{
		"not json":      `{"messages":`,
		"not object":    `[1,2]`,
		"missing":       `{"model":"groq"}`,
		"null":          `{"messages":null}`,
		"not sequence":  `{"messages":"hello"}`,
		"empty":         `{"messages":[]}`,
		"bad role":      `{"messages":[{"role":"robot","content":"hi"}]}`,
		"too many":      `{"messages":[{"role":"user","content":"a"},{"role":"user","content":"b"},{"role":"user","content":"c"},{"role":"user","content":"d"}]}`,
		"temperature":   `{"messages":[{"role":"user","content":"hi"}],"options":{"temperature":3}}`,
		"max tokens":    `{"messages":[{"role":"user","content":"hi"}],"options":{"maxTokens":0}}`,
		"empty content": `{"messages":[{"role":"user","content":"  "}]}`,
	}
	for name, body := range cases {
		_, err := n.NormalizeChat([]byte(body), chatSettings)
		require.ErrorIs(t, err, ErrMalformedRequest, name)
		require.Equal(t, http.StatusBadRequest, Envelope(err).HTTPStatus, name)
	}
}

func TestNormalizeChatUnknownModelUsesRegistryDefault(t *testing.T) {
	n := newTestNormalizer(t)
	settings := chatSettings
	settings.DefaultProvider = "grok"

	req, err := n.NormalizeChat([]byte(`{"messages":[{"role":"user","content":"hi"}],"model":"claude"}`), settings)
	require.NoError(t, err)
	require.Equal(t, "groq", req.ProviderID)

	req, err = n.NormalizeChat([]byte(`{"messages":[{"role":"user","content":"hi"}]}`), settings)
	require.NoError(t, err)
	require.Equal(t, "grok", req.ProviderID)
}

func TestNormalizeChatStrictCallSite(t *testing.T) {
	n := newTestNormalizer(t)
	strict := chatSettings
	strict.StrictProvider = true
	_, err := n.NormalizeChat([]byte(`{"messages":[{"role":"user","content":"hi"}],"model":"claude"}`), strict)
	require.ErrorIs(t, err, ErrUnknownProvider)
}

func TestNormalizeProbe(t *testing.T) {
	n := newTestNormalizer(t)

	req, err := n.NormalizeProbe([]byte(`{"message":"ping"}`), probeSettings)
	require.NoError(t, err)
	require.Equal(t, "groq", req.ProviderID)
	require.Equal(t, 100, req.Options.MaxTokens)
	require.Equal(t, userMessages("ping"), req.Messages)

	req, err = n.NormalizeProbe([]byte(`{"message":"ping","provider":"grok"}`), probeSettings)
	require.NoError(t, err)
	require.Equal(t, "grok", req.ProviderID)
}

func TestNormalizeProbeErrors(t *testing.T) {
	n := newTestNormalizer(t)

	_, err := n.NormalizeProbe([]byte(`{"provider":"groq"}`), probeSettings)
	require.EqualError(t, err, "Message is required")
	require.ErrorIs(t, err, ErrMalformedRequest)

	_, err = n.NormalizeProbe([]byte(`{"message":"ping","provider":"claude"}`), probeSettings)
	require.EqualError(t, err, "Invalid provider")
	require.ErrorIs(t, err, ErrUnknownProvider)
	require.Equal(t, http.StatusBadRequest, Envelope(err).HTTPStatus)

	_, err = n.NormalizeProbe([]byte(`nope`), probeSettings)
	require.ErrorIs(t, err, ErrMalformedRequest)
}

func TestCallSitesAreIndependent(t *testing.T) {
	n := newTestNormalizer(t)
	chat, err := n.NormalizeChat([]byte(`{"messages":[{"role":"user","content":"hi"}]}`), chatSettings)
	require.NoError(t, err)
	probe, err := n.NormalizeProbe([]byte(`{"message":"hi"}`), probeSettings)
	require.NoError(t, err)
	require.Equal(t, 2000, chat.Options.MaxTokens)
	require.Equal(t, 100, probe.Options.MaxTokens)
}

func TestHealthRequest(t *testing.T) {
	req := HealthRequest("grok", "Grok", CheckSettings{MaxTokens: 20})
	require.Equal(t, "grok", req.ProviderID)
	require.Equal(t, 20, req.Options.MaxTokens)
	require.Equal(t, `Say "Grok connection test successful" in exactly 5 words.`, req.Messages[0].Content)
}

func TestEnvelopeDefaults(t *testing.T) {
	env := Envelope(errors.New("boom"))
	require.Equal(t, "boom", env.Message)
	require.Equal(t, http.StatusInternalServerError, env.HTTPStatus)
}
