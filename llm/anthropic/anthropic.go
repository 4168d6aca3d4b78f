// Package anthropic adapts the Anthropic messages API to the uniform
// llm.Adapter contract. Unlike OpenAI, Anthropic takes the system
// prompt as a dedicated request field, so the adapter extracts the
// leading system message from the conversation.
package anthropic

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/tagsense/tagsense/llm"
)

// ProviderName identifies responses produced by this adapter.
const ProviderName = "anthropic"

const (
	defaultBaseURL = "https://api.anthropic.com/v1"
	apiVersion     = "2023-06-01"

	// DefaultModel is used when the caller does not select one.
	DefaultModel = "claude-3-5-sonnet-20241022"

	defaultMaxTokens = 2048
	defaultTimeout   = 120 * time.Second
)

// Adapter normalizes the Anthropic messages API into llm.Response.
type Adapter struct {
	apiKey     string
	model      string
	baseURL    string
	httpClient *http.Client
}

// New builds an adapter from an API key. An empty model selects
// DefaultModel.
func New(apiKey, model string) *Adapter {
	if model == "" {
		model = DefaultModel
	}
	return &Adapter{
		apiKey:     apiKey,
		model:      model,
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
}

// Provider returns the adapter identity.
func (a *Adapter) Provider() string { return ProviderName }

// IsAvailable reports whether the adapter has a credential to use.
func (a *Adapter) IsAvailable() bool { return a.apiKey != "" }

type apiMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type apiRequest struct {
	Model       string       `json:"model"`
	MaxTokens   int          `json:"max_tokens"`
	Temperature float32      `json:"temperature,omitempty"`
	System      string       `json:"system,omitempty"`
	Messages    []apiMessage `json:"messages"`
}

type contentBlock struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

type apiUsage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

type apiResponse struct {
	Model   string         `json:"model"`
	Content []contentBlock `json:"content"`
	Usage   apiUsage       `json:"usage"`
}

type apiError struct {
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// Generate posts the conversation to /messages, pulling any leading
// system message out into the request's system field.
func (a *Adapter) Generate(ctx context.Context, messages []llm.Message, opts llm.Options) (*llm.Response, error) {
	model := opts.Model
	if model == "" {
		model = a.model
	}
	maxTokens := opts.MaxTokens
	if maxTokens == 0 {
		maxTokens = defaultMaxTokens
	}

	req := apiRequest{
		Model:       model,
		MaxTokens:   maxTokens,
		Temperature: opts.Temperature,
	}
	for _, m := range messages {
		if m.Role == llm.RoleSystem && req.System == "" && len(req.Messages) == 0 {
			req.System = m.Content
			continue
		}
		req.Messages = append(req.Messages, apiMessage{Role: m.Role, Content: m.Content})
	}
	if len(req.Messages) == 0 {
		return nil, &llm.PermanentError{
			Provider: ProviderName,
			Err:      fmt.Errorf("conversation has no user or assistant messages"),
		}
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, &llm.PermanentError{Provider: ProviderName, Err: fmt.Errorf("encode request: %w", err)}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/messages", bytes.NewReader(body))
	if err != nil {
		return nil, &llm.PermanentError{Provider: ProviderName, Err: err}
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", a.apiKey)
	httpReq.Header.Set("anthropic-version", apiVersion)

	start := time.Now()
	httpResp, err := a.httpClient.Do(httpReq)
	if err != nil {
		return nil, &llm.TransientError{Provider: ProviderName, Err: err}
	}
	defer func() { _ = httpResp.Body.Close() }()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, &llm.TransientError{Provider: ProviderName, Err: fmt.Errorf("read response: %w", err)}
	}

	if httpResp.StatusCode != http.StatusOK {
		return nil, a.classifyStatus(httpResp.StatusCode, respBody)
	}

	var parsed apiResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, &llm.PermanentError{Provider: ProviderName, Err: fmt.Errorf("decode response: %w", err)}
	}

	var text string
	for _, block := range parsed.Content {
		if block.Type == "text" {
			text = block.Text
			break
		}
	}

	return &llm.Response{
		Content:      text,
		Model:        parsed.Model,
		Provider:     ProviderName,
		InputTokens:  parsed.Usage.InputTokens,
		OutputTokens: parsed.Usage.OutputTokens,
		Latency:      time.Since(start),
	}, nil
}

func (a *Adapter) classifyStatus(status int, body []byte) error {
	var parsed apiError
	msg := string(body)
	if err := json.Unmarshal(body, &parsed); err == nil && parsed.Error.Message != "" {
		msg = parsed.Error.Message
	}
	err := fmt.Errorf("status %d: %s", status, msg)

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
