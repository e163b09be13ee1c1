package provider

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestStreamPreservesOrder(t *testing.T) {
	parts := []string{"He", "llo", " wo", "rld"}
	s := NewStream(context.Background(), func(ctx context.Context, emit EmitFunc) error {
		for _, p := range parts {
			if !emit(p) {
				return ctx.Err()
			}
		}
		return nil
	})
	text, err := s.ReadAll()
	require.NoError(t, err)
	require.Equal(t, "Hello world", text)
}

func TestStreamDeliversProducerError(t *testing.T) {
	boom := errors.New("boom")
	s := NewStream(context.Background(), func(ctx context.Context, emit EmitFunc) error {
		emit("partial")
		return boom
	})
	text, err := s.ReadAll()
	require.ErrorIs(t, err, boom)
	require.Equal(t, "partial", text)
}

func TestStreamCloseStopsProducer(t *testing.T) {
	stopped := make(chan struct{})
	s := NewStream(context.Background(), func(ctx context.Context, emit EmitFunc) error {
		defer close(stopped)
		for emit("x") {
		}
		return ctx.Err()
	})
	<-s.Chunks()
	s.Close()
	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatal("producer did not stop after Close")
	}
	for range s.Chunks() {
	}
}

func TestUpstreamErrorRetryable(t *testing.T) {
	require.True(t, (&UpstreamError{Provider: "Groq", Status: 503}).Retryable())
	require.True(t, (&UpstreamError{Provider: "Groq", Status: 429}).Retryable())
	require.True(t, (&UpstreamError{Provider: "Groq"}).Retryable())
	require.False(t, (&UpstreamError{Provider: "Groq", Status: 401}).Retryable())
	require.Equal(t, "Grok API error: 401", (&UpstreamError{Provider: "Grok", Status: 401}).Error())
}
