package provider

import (
	"context"
	"errors"
	"fmt"
)

// Role identifies the author of a chat message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleAssistant, RoleSystem:
		return true
	}
	return false
}

// Message represents a chat message.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Options are the sampling parameters forwarded upstream.
type Options struct {
	Temperature float64 `json:"temperature"`
	MaxTokens   int     `json:"maxTokens"`
	// Model replaces the provider's configured model when set.
	Model string `json:"model,omitempty"`
}

// Usage contains token usage statistics.
type Usage struct {
	PromptTokens     int `json:"promptTokens"`
	CompletionTokens int `json:"completionTokens"`
	TotalTokens      int `json:"totalTokens"`
}

// Mode selects how a provider delivers its answer.
type Mode int

const (
	ModeStream Mode = iota
	ModeBatch
)

func (m Mode) String() string {
	if m == ModeBatch {
		return "batch"
	}
	return "stream"
}

// Provider handles LLM operations.
type Provider interface {
	Invoke(ctx context.Context, msgs []Message, opts Options, mode Mode) (Result, error)
}

// Result is either a *Stream or a *Completion.
type Result interface {
	result()
}

// Completion is the answer of a batch call.
type Completion struct {
	Text  string
	Usage *Usage
}

func (*Completion) result() {}

// ErrCredentialMissing is returned when the API key of a provider is not configured.
var ErrCredentialMissing = errors.New("credential missing")

type credentialError struct{ env string }

func (e *credentialError) Error() string        { return e.env + " not found" }
func (e *credentialError) Is(target error) bool { return target == ErrCredentialMissing }

// MissingCredential reports that the environment variable env holding an API
// key is empty. The returned error matches ErrCredentialMissing.
func MissingCredential(env string) error {
	return &credentialError{env: env}
}

// UpstreamError reports a failed call to an upstream provider. Status is zero
// for transport failures.
type UpstreamError struct {
	Provider string
	Status   int
	Err      error
}

func (e *UpstreamError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s API error: %d", e.Provider, e.Status)
	}
	return fmt.Sprintf("%s API request failed", e.Provider)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// Retryable reports whether repeating the call may succeed.
func (e *UpstreamError) Retryable() bool {
	return e.Status == 0 || e.Status == 429 || e.Status >= 500
}
