package gateway

import (
	"context"
	"errors"
	"net/http"

	"github.com/ai-gateway/chat-gateway-go/internal/provider"
	"github.com/ai-gateway/chat-gateway-go/internal/routing"
)

var (
	// ErrMalformedRequest marks client input that cannot be normalized.
	ErrMalformedRequest = errors.New("malformed request")
	// ErrUnknownProvider marks a provider id that is not registered.
	ErrUnknownProvider = routing.ErrUnknownProvider
	// ErrUpstreamTimeout is returned when an upstream call exceeds its deadline.
	ErrUpstreamTimeout = errors.New("upstream call timed out")
)

// requestError carries a client-facing message and the sentinel it matches.
type requestError struct {
	msg  string
	kind error
}

func (e *requestError) Error() string        { return e.msg }
func (e *requestError) Is(target error) bool { return target == e.kind }

func malformed(msg string) error {
	return &requestError{msg: msg, kind: ErrMalformedRequest}
}

func invalidProvider() error {
	return &requestError{msg: "Invalid provider", kind: ErrUnknownProvider}
}

// ErrorEnvelope is the uniform failure shape returned to clients.
type ErrorEnvelope struct {
	Message    string `json:"error"`
	HTTPStatus int    `json:"-"`
}

// Envelope maps err to a client-facing message and HTTP status. Request
// problems are 400s, everything else is a 500.
func Envelope(err error) ErrorEnvelope {
	switch {
	case errors.Is(err, ErrMalformedRequest), errors.Is(err, ErrUnknownProvider):
		return ErrorEnvelope{Message: err.Error(), HTTPStatus: http.StatusBadRequest}
	case errors.Is(err, ErrUpstreamTimeout):
		return ErrorEnvelope{Message: ErrUpstreamTimeout.Error(), HTTPStatus: http.StatusInternalServerError}
	case errors.Is(err, context.Canceled):
		return ErrorEnvelope{Message: "request cancelled", HTTPStatus: http.StatusInternalServerError}
	}
	msg := "Unknown error"
	if err != nil {
		msg = err.Error()
	}
	return ErrorEnvelope{Message: msg, HTTPStatus: http.StatusInternalServerError}
}

// classify turns what a provider returned into one of the typed failures.
func classify(ctx context.Context, providerID string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return &timeoutError{provider: providerID}
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	var ue *provider.UpstreamError
	if errors.Is(err, provider.ErrCredentialMissing) || errors.As(err, &ue) {
		return err
	}
	return &provider.UpstreamError{Provider: providerID, Err: err}
}

type timeoutError struct{ provider string }

func (e *timeoutError) Error() string        { return e.provider + ": " + ErrUpstreamTimeout.Error() }
func (e *timeoutError) Is(target error) bool { return target == ErrUpstreamTimeout }
