// Package gateway normalizes chat requests and dispatches them to the
// provider registered for them, converting every upstream failure into a
// typed error that the HTTP layer maps with Envelope.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"goa.design/clue/log"
	"golang.org/x/time/rate"

	"github.com/ai-gateway/chat-gateway-go/internal/metrics"
	"github.com/ai-gateway/chat-gateway-go/internal/provider"
	"github.com/ai-gateway/chat-gateway-go/internal/routing"
)

const defaultTimeout = 60 * time.Second

// RetryPolicy bounds batch retries. MaxAttempts counts the first call, so 1
// disables retrying. Streams are never retried.
type RetryPolicy struct {
	MaxAttempts     int           `mapstructure:"max_attempts"`
	InitialInterval time.Duration `mapstructure:"initial_interval"`
}

// Options tunes a Gateway. Zero values select defaults.
type Options struct {
	// Timeout bounds each upstream call, including the whole of a stream.
	Timeout time.Duration
	Retry   RetryPolicy
	// RateLimit caps calls per second to each provider; zero disables it.
	RateLimit rate.Limit
	Burst     int
	Usage     *metrics.Usage
}

// Gateway dispatches ChatRequests to registered providers.
type Gateway struct {
	router   *routing.Router
	timeout  time.Duration
	retry    RetryPolicy
	limiters map[string]*rate.Limiter
	usage    *metrics.Usage
	tracer   trace.Tracer
}

// New builds a Gateway over a sealed router.
func New(router *routing.Router, opts Options) *Gateway {
	g := &Gateway{
		router:   router,
		timeout:  opts.Timeout,
		retry:    opts.Retry,
		limiters: make(map[string]*rate.Limiter),
		usage:    opts.Usage,
		tracer:   otel.Tracer("github.com/ai-gateway/chat-gateway-go/internal/gateway"),
	}
	if g.timeout <= 0 {
		g.timeout = defaultTimeout
	}
	if g.retry.MaxAttempts < 1 {
		g.retry.MaxAttempts = 1
	}
	if g.usage == nil {
		g.usage = metrics.NewUsage()
	}
	if opts.RateLimit > 0 {
		burst := opts.Burst
		if burst < 1 {
			burst = 1
		}
		for _, d := range router.Descriptors() {
			g.limiters[d.ID] = rate.NewLimiter(opts.RateLimit, burst)
		}
	}
	return g
}

// Usage returns the usage counters the gateway records into.
func (g *Gateway) Usage() *metrics.Usage { return g.usage }

// Dispatch sends req to its provider. In stream mode it returns as soon as
// the upstream accepted the call and the returned *provider.Stream relays
// chunks in arrival order; in batch mode it blocks and returns a
// *provider.Completion.
func (g *Gateway) Dispatch(ctx context.Context, req *ChatRequest, mode provider.Mode) (provider.Result, error) {
	d, err := g.router.Resolve(req.ProviderID)
	if err != nil {
		return nil, err
	}
	if len(req.Messages) == 0 {
		return nil, malformed("messages is required")
	}
	model := d.Model
	if req.Options.Model != "" {
		model = req.Options.Model
	}
	ctx, span := g.tracer.Start(ctx, "gateway.Dispatch", trace.WithAttributes(
		attribute.String("provider.id", d.ID),
		attribute.String("provider.model", model),
		attribute.String("dispatch.mode", mode.String()),
		attribute.Int("request.messages", len(req.Messages)),
	))
	log.Debug(ctx, log.KV{K: "msg", V: "dispatch"}, log.KV{K: "provider", V: d.ID}, log.KV{K: "mode", V: mode.String()})

	if mode == provider.ModeBatch {
		defer span.End()
		c, err := g.complete(ctx, d, req)
		g.finish(span, d.ID, c, err)
		if err != nil {
			return nil, err
		}
		return c, nil
	}

	s, err := g.stream(ctx, span, d, req)
	if err != nil {
		g.finish(span, d.ID, nil, err)
		span.End()
		return nil, err
	}
	return s, nil
}

func (g *Gateway) finish(span trace.Span, id string, c *provider.Completion, err error) {
	var usage *provider.Usage
	if c != nil {
		usage = c.Usage
	}
	if errors.Is(err, context.Canceled) {
		g.usage.Record(id, usage, false)
		span.SetAttributes(attribute.Bool("dispatch.cancelled", true))
		return
	}
	g.usage.Record(id, usage, err != nil)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return
	}
	if usage != nil {
		span.SetAttributes(attribute.Int("usage.total_tokens", usage.TotalTokens))
	}
}

// wait blocks on the provider's limiter. A wait that cannot finish before
// the call deadline is reported as a timeout.
func (g *Gateway) wait(ctx context.Context, id string) error {
	lim, ok := g.limiters[id]
	if !ok {
		return nil
	}
	if err := lim.Wait(ctx); err != nil {
		if errors.Is(ctx.Err(), context.Canceled) {
			return ctx.Err()
		}
		return &timeoutError{provider: id}
	}
	return nil
}

func (g *Gateway) complete(ctx context.Context, d routing.Descriptor, req *ChatRequest) (*provider.Completion, error) {
	var out *provider.Completion
	call := func() error {
		c, err := g.completeOnce(ctx, d, req)
		if err != nil {
			var ue *provider.UpstreamError
			if !errors.As(err, &ue) || !ue.Retryable() {
				return backoff.Permanent(err)
			}
			log.Warn(ctx, log.KV{K: "msg", V: "upstream call failed"}, log.KV{K: "provider", V: d.ID}, log.KV{K: "err", V: err.Error()})
			return err
		}
		out = c
		return nil
	}
	if g.retry.MaxAttempts == 1 {
		if err := call(); err != nil {
			var perm *backoff.PermanentError
			if errors.As(err, &perm) {
				return nil, perm.Err
			}
			return nil, err
		}
		return out, nil
	}

	b := backoff.NewExponentialBackOff()
	if g.retry.InitialInterval > 0 {
		b.InitialInterval = g.retry.InitialInterval
	}
	policy := backoff.WithContext(backoff.WithMaxRetries(b, uint64(g.retry.MaxAttempts-1)), ctx)
	if err := backoff.Retry(call, policy); err != nil {
		return nil, err
	}
	return out, nil
}

func (g *Gateway) completeOnce(ctx context.Context, d routing.Descriptor, req *ChatRequest) (*provider.Completion, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()
	if err := g.wait(ctx, d.ID); err != nil {
		return nil, err
	}
	res, err := d.Provider.Invoke(ctx, req.Messages, req.Options, provider.ModeBatch)
	if err != nil {
		return nil, classify(ctx, d.ID, err)
	}
	switch r := res.(type) {
	case *provider.Completion:
		return r, nil
	case *provider.Stream:
		text, err := r.ReadAll()
		if err != nil {
			return nil, classify(ctx, d.ID, err)
		}
		return &provider.Completion{Text: text}, nil
	}
	return nil, &provider.UpstreamError{Provider: d.ID, Err: fmt.Errorf("unexpected result %T", res)}
}

func (g *Gateway) stream(ctx context.Context, span trace.Span, d routing.Descriptor, req *ChatRequest) (*provider.Stream, error) {
	callCtx, cancel := context.WithTimeout(ctx, g.timeout)
	if err := g.wait(callCtx, d.ID); err != nil {
		cancel()
		return nil, err
	}
	res, err := d.Provider.Invoke(callCtx, req.Messages, req.Options, provider.ModeStream)
	if err != nil {
		cancel()
		return nil, classify(callCtx, d.ID, err)
	}

	return provider.NewStream(ctx, func(relayCtx context.Context, emit provider.EmitFunc) (err error) {
		defer cancel()
		defer func() {
			g.finish(span, d.ID, nil, err)
			span.End()
		}()

		upstream, ok := res.(*provider.Stream)
		if !ok {
			c, ok := res.(*provider.Completion)
			if !ok {
				return &provider.UpstreamError{Provider: d.ID, Err: fmt.Errorf("unexpected result %T", res)}
			}
			if !emit(c.Text) {
				return relayCtx.Err()
			}
			return nil
		}
		defer upstream.Close()

		for {
			select {
			case c, open := <-upstream.Chunks():
				if !open {
					if errors.Is(callCtx.Err(), context.DeadlineExceeded) {
						return classify(callCtx, d.ID, callCtx.Err())
					}
					return nil
				}
				if c.Err != nil {
					return classify(callCtx, d.ID, c.Err)
				}
				if !emit(c.Text) {
					return relayCtx.Err()
				}
			case <-relayCtx.Done():
				return relayCtx.Err()
			}
		}
	}), nil
}
