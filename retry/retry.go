// Package retry provides the bounded-backoff policy shared by every
// outbound call: cloud API pages, tag mutations, and LLM requests.
package retry

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// Classifier reports whether an error is transient (retryable).
// Anything it rejects aborts immediately without further attempts.
type Classifier func(error) bool

// Policy bounds retries with exponential backoff. The zero value is not
// usable; call DefaultPolicy or fill the fields explicitly.
type Policy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	Multiplier  float64
	Classify    Classifier
}

// DefaultPolicy matches the documented defaults: 3 attempts, 2s base,
// 10s cap, doubling between attempts.
func DefaultPolicy(classify Classifier) Policy {
	return Policy{
		MaxAttempts: 3,
		BaseDelay:   2 * time.Second,
		MaxDelay:    10 * time.Second,
		Multiplier:  2,
		Classify:    classify,
	}
}

// Do runs op under the policy. Transient failures are retried with
// exponential backoff until MaxAttempts is exhausted; the last error is
// returned. Permanent failures and context cancellation abort at once.
func Do[T any](ctx context.Context, p Policy, op func() (T, error)) (T, error) {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	b := backoff.NewExponentialBackOff()
	if p.BaseDelay > 0 {
		b.InitialInterval = p.BaseDelay
	}
	if p.MaxDelay > 0 {
		b.MaxInterval = p.MaxDelay
	}
	if p.Multiplier > 0 {
		b.Multiplier = p.Multiplier
	}

	wrapped := func() (T, error) {
		v, err := op()
		if err == nil {
			return v, nil
		}
		if p.Classify != nil && !p.Classify(err) {
			var zero T
			return zero, backoff.Permanent(err)
		}
		return v, err
	}

	return backoff.Retry(ctx, wrapped,
		backoff.WithBackOff(b),
		backoff.WithMaxTries(uint(attempts)),
	)
}
