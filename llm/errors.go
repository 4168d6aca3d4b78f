package llm

import (
	"errors"
	"fmt"
)

// ValidationError signals malformed input to the orchestrator itself;
// no provider was called and no fallback applies.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "invalid request: " + e.Reason
}

// RateLimitError signals a 429-equivalent; retried, then failed over.
type RateLimitError struct {
	Provider string
	Err      error
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("%s rate limit exceeded: %v", e.Provider, e.Err)
}

func (e *RateLimitError) Unwrap() error { return e.Err }

// TransientError covers timeouts and 5xx-equivalents; retried, then
// failed over.
type TransientError struct {
	Provider string
	Err      error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("%s transient failure: %v", e.Provider, e.Err)
}

func (e *TransientError) Unwrap() error { return e.Err }

// AuthenticationError signals a rejected credential; never retried.
type AuthenticationError struct {
	Provider string
	Err      error
}

func (e *AuthenticationError) Error() string {
	return fmt.Sprintf("%s authentication failed: %v", e.Provider, e.Err)
}

func (e *AuthenticationError) Unwrap() error { return e.Err }

// PermanentError covers requests the provider rejects outright, such
// as a malformed body or an unknown model; never retried.
type PermanentError struct {
	Provider string
	Err      error
}

func (e *PermanentError) Error() string {
	return fmt.Sprintf("%s rejected request: %v", e.Provider, e.Err)
}

func (e *PermanentError) Unwrap() error { return e.Err }

// IsTransient reports whether an error should be retried under the
// retry policy.
func IsTransient(err error) bool {
	var rate *RateLimitError
	var transient *TransientError
	return errors.As(err, &rate) || errors.As(err, &transient)
}

// ProviderError is returned by the orchestrator when every configured
// adapter failed. It names each provider tried and why it failed.
type ProviderError struct {
	Primary     string
	PrimaryErr  error
	Fallback    string
	FallbackErr error
}

func (e *ProviderError) Error() string {
	if e.Fallback == "" {
		return fmt.Sprintf("provider %s failed: %v (no fallback configured)", e.Primary, e.PrimaryErr)
	}
	return fmt.Sprintf("all providers failed: %s: %v; %s: %v",
		e.Primary, e.PrimaryErr, e.Fallback, e.FallbackErr)
}

func (e *ProviderError) Unwrap() error { return e.PrimaryErr }
