package llm

import (
	"context"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/tagsense/tagsense/retry"
	"github.com/tagsense/tagsense/telemetry"
)

// Orchestrator fronts a primary adapter with caching, retry, and an
// optional fallback adapter. It never mutates conversation memory;
// recording turns is the caller's job.
type Orchestrator struct {
	primary  Adapter
	fallback Adapter
	cache    Cache
	policy   retry.Policy
	logger   zerolog.Logger
}

// OrchestratorOption customizes construction.
type OrchestratorOption func(*Orchestrator)

// WithFallback sets the adapter tried after the primary fails.
func WithFallback(a Adapter) OrchestratorOption {
	return func(o *Orchestrator) { o.fallback = a }
}

// WithCache enables response caching.
func WithCache(c Cache) OrchestratorOption {
	return func(o *Orchestrator) { o.cache = c }
}

// WithRetryPolicy overrides the default retry policy. The classifier
// is always forced to IsTransient.
func WithRetryPolicy(p retry.Policy) OrchestratorOption {
	return func(o *Orchestrator) { o.policy = p }
}

// NewOrchestrator builds an orchestrator around the primary adapter.
func NewOrchestrator(primary Adapter, logger zerolog.Logger, opts ...OrchestratorOption) *Orchestrator {
	o := &Orchestrator{
		primary: primary,
		policy:  retry.DefaultPolicy(IsTransient),
		logger:  logger,
	}
	for _, opt := range opts {
		opt(o)
	}
	o.policy.Classify = IsTransient
	return o
}

// Generate produces a response for the conversation, consulting the
// cache first, then the primary adapter under retry, then the fallback
// under its own retry. It fails with *ProviderError only when every
// configured adapter has failed.
func (o *Orchestrator) Generate(ctx context.Context, messages []Message, opts Options) (*Response, error) {
	if len(messages) == 0 {
		return nil, &ValidationError{Reason: "conversation must contain at least one message"}
	}

	ctx, span := telemetry.Tracer.Start(ctx, "llm.generate",
		trace.WithAttributes(attribute.String("llm.model", opts.Model)))
	defer span.End()

	key := Fingerprint(messages, opts)

	if o.cache != nil {
		if resp, ok := o.cache.Get(key); ok {
			telemetry.CacheHits.Add(ctx, 1)
			o.logger.Debug().Ctx(ctx).Str("key", key[:8]).Msg("response cache hit")
			return resp, nil
		}
		telemetry.CacheMisses.Add(ctx, 1)
	}

	resp, primaryErr := o.generateWith(ctx, o.primary, messages, opts)
	if primaryErr == nil {
		o.store(key, resp)
		return resp, nil
	}

	if o.fallback == nil {
		return nil, &ProviderError{Primary: o.primary.Provider(), PrimaryErr: primaryErr}
	}

	o.logger.Warn().Ctx(ctx).
		Str("primary", o.primary.Provider()).
		Str("fallback", o.fallback.Provider()).
		Err(primaryErr).
		Msg("primary provider failed, trying fallback")

	resp, fallbackErr := o.generateWith(ctx, o.fallback, messages, opts)
	if fallbackErr == nil {
		telemetry.ProviderFallbacks.Add(ctx, 1)
		o.store(key, resp)
		return resp, nil
	}

	return nil, &ProviderError{
		Primary:     o.primary.Provider(),
		PrimaryErr:  primaryErr,
		Fallback:    o.fallback.Provider(),
		FallbackErr: fallbackErr,
	}
}

// generateWith runs one adapter under the retry policy.
func (o *Orchestrator) generateWith(ctx context.Context, a Adapter, messages []Message, opts Options) (*Response, error) {
	return retry.Do(ctx, o.policy, func() (*Response, error) {
		return a.Generate(ctx, messages, opts)
	})
}

func (o *Orchestrator) store(key string, resp *Response) {
	if o.cache != nil {
		o.cache.Set(key, resp)
	}
}
