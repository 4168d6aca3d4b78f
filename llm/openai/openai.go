// Package openai adapts the OpenAI chat completion API to the uniform
// llm.Adapter contract.
package openai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	goopenai "github.com/sashabaranov/go-openai"

	"github.com/tagsense/tagsense/llm"
)

// ProviderName identifies responses produced by this adapter.
const ProviderName = "openai"

// DefaultModel is used when the caller does not select one.
const DefaultModel = goopenai.GPT4oMini

// chatClient is the slice of the go-openai client we use; kept as an
// interface so tests can stub completions.
type chatClient interface {
	CreateChatCompletion(ctx context.Context, req goopenai.ChatCompletionRequest) (goopenai.ChatCompletionResponse, error)
}

// Adapter normalizes OpenAI chat completions into llm.Response.
type Adapter struct {
	client chatClient
	apiKey string
	model  string
}

// New builds an adapter from an API key. An empty model selects
// DefaultModel.
func New(apiKey, model string) *Adapter {
	if model == "" {
		model = DefaultModel
	}
	return &Adapter{
		client: goopenai.NewClient(apiKey),
		apiKey: apiKey,
		model:  model,
	}
}

// newWithClient wires a stub client for tests.
func newWithClient(c chatClient, model string) *Adapter {
	return &Adapter{client: c, apiKey: "test", model: model}
}

// Provider returns the adapter identity.
func (a *Adapter) Provider() string { return ProviderName }

// IsAvailable reports whether the adapter has a credential to use.
func (a *Adapter) IsAvailable() bool { return a.apiKey != "" }

// Generate sends the conversation as-is; OpenAI accepts in-band system
// messages, so no reshaping is needed beyond field mapping.
func (a *Adapter) Generate(ctx context.Context, messages []llm.Message, opts llm.Options) (*llm.Response, error) {
	model := opts.Model
	if model == "" {
		model = a.model
	}

	req := goopenai.ChatCompletionRequest{
		Model:       model,
		Temperature: opts.Temperature,
		MaxTokens:   opts.MaxTokens,
		Messages:    make([]goopenai.ChatCompletionMessage, 0, len(messages)),
	}
	for _, m := range messages {
		req.Messages = append(req.Messages, goopenai.ChatCompletionMessage{
			Role:    m.Role,
			Content: m.Content,
		})
	}

	start := time.Now()
	resp, err := a.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return nil, a.classifyError(err)
	}
	if len(resp.Choices) == 0 {
		return nil, &llm.PermanentError{Provider: ProviderName, Err: fmt.Errorf("response contained no choices")}
	}

	return &llm.Response{
		Content:      resp.Choices[0].Message.Content,
		Model:        resp.Model,
		Provider:     ProviderName,
		InputTokens:  resp.Usage.PromptTokens,
		OutputTokens: resp.Usage.CompletionTokens,
		Latency:      time.Since(start),
	}, nil
}

// classifyError maps OpenAI API failures onto the shared taxonomy so
// the retry policy and orchestrator can act on them.
func (a *Adapter) classifyError(err error) error {
	var apiErr *goopenai.APIError
	if errors.As(err, &apiErr) {
		return classifyStatus(apiErr.HTTPStatusCode, err)
	}

	var reqErr *goopenai.RequestError
	if errors.As(err, &reqErr) {
		return classifyStatus(reqErr.HTTPStatusCode, err)
	}

	// Connection-level failures (DNS, reset, timeout) are transient.
	return &llm.TransientError{Provider: ProviderName, Err: err}
}

func classifyStatus(status int, err error) error {
	switch {
	case status == http.StatusTooManyRequests:
		return &llm.RateLimitError{Provider: ProviderName, Err: err}
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return &llm.AuthenticationError{Provider: ProviderName, Err: err}
	case status >= 500:
		return &llm.TransientError{Provider: ProviderName, Err: err}
	default:
		return &llm.PermanentError{Provider: ProviderName, Err: err}
	}
}
