package provider

import (
	"context"
	"strings"
	"sync"
)

// Chunk is one piece of a streamed answer. A chunk carrying Err is the last
// one delivered.
type Chunk struct {
	Text string
	Err  error
}

// Stream is a finite, non-restartable sequence of chunks produced by a
// goroutine. Consumers must drain it or call Close.
type Stream struct {
	ch     chan Chunk
	cancel context.CancelFunc
	once   sync.Once
}

func (*Stream) result() {}

// EmitFunc forwards one chunk to the consumer. It returns false once the
// consumer is gone and the producer should stop.
type EmitFunc func(text string) bool

// NewStream runs produce in a new goroutine and exposes what it emits as a
// Stream. A non-nil error returned by produce is delivered as the final chunk
// unless the stream was cancelled.
func NewStream(ctx context.Context, produce func(ctx context.Context, emit EmitFunc) error) *Stream {
	ctx, cancel := context.WithCancel(ctx)
	s := &Stream{ch: make(chan Chunk), cancel: cancel}
	go func() {
		defer cancel()
		defer close(s.ch)
		emit := func(text string) bool {
			select {
			case s.ch <- Chunk{Text: text}:
				return true
			case <-ctx.Done():
				return false
			}
		}
		err := produce(ctx, emit)
		if err == nil || ctx.Err() != nil {
			return
		}
		select {
		case s.ch <- Chunk{Err: err}:
		case <-ctx.Done():
		}
	}()
	return s
}

// Chunks returns the channel chunks arrive on, in production order.
func (s *Stream) Chunks() <-chan Chunk { return s.ch }

// Close stops the producer and releases the upstream handle.
func (s *Stream) Close() {
	s.once.Do(s.cancel)
}

// ReadAll drains the stream and concatenates its chunks.
func (s *Stream) ReadAll() (string, error) {
	defer s.Close()
	var sb strings.Builder
	for c := range s.ch {
		if c.Err != nil {
			return sb.String(), c.Err
		}
		sb.WriteString(c.Text)
	}
	return sb.String(), nil
}
