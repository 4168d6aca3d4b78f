// Package llm orchestrates language-model providers behind a single
// Generate call: response caching, retry, and automatic failover from
// the primary adapter to a fallback.
package llm

import (
	"context"
	"time"
)

// Message roles, shared by every provider.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one turn of a conversation sent to a provider.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Options tune a single generation call. The zero value means "use the
// adapter's defaults"; all fields participate in the cache fingerprint.
type Options struct {
	Model       string
	Temperature float32
	MaxTokens   int
}

// Response is the normalized result of a generation, whichever
// provider produced it.
type Response struct {
	Content      string
	Model        string
	Provider     string
	InputTokens  int
	OutputTokens int
	Latency      time.Duration
	Cached       bool
}

// Adapter normalizes one external provider API. Implementations
// translate the uniform conversation shape into whatever the provider
// expects and map its response and errors back.
type Adapter interface {
	Generate(ctx context.Context, messages []Message, opts Options) (*Response, error)
	IsAvailable() bool
	Provider() string
}
