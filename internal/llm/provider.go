package llm

import (
	"context"
	"strings"
	"time"

	"github.com/ppiankov/findorigin/internal/model"
)

// Provider defines the interface for LLM providers
type Provider interface {
	// Name returns the provider name
	Name() string

	// Complete sends one prompt and returns the model's text
	Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)

	// IsAvailable checks if the provider is properly configured and accessible
	IsAvailable(ctx context.Context) bool
}

// CompletionRequest is a single system + user prompt exchange
type CompletionRequest struct {
	System string
	Prompt string

	// JSON asks the endpoint for a JSON object when it supports that
	JSON bool
}

// CompletionResponse contains the model output
type CompletionResponse struct {
	Text       string
	Model      string
	TokensUsed int
}

// Config holds LLM provider configuration
type Config struct {
	// Provider name: "openai", "openai-responses", "anthropic"
	Provider string

	// Model name; empty picks a default for the endpoint
	Model string

	APIKey  string
	BaseURL string

	Timeout     time.Duration
	Temperature float32
	MaxTokens   int

	// Proxy settings
	HTTPProxy  string
	HTTPSProxy string
	NoProxy    string
}

const (
	defaultOpenAIBaseURL    = "https://api.openai.com/v1"
	defaultAnthropicBaseURL = "https://api.anthropic.com"
	defaultAnthropicModel   = "claude-3-5-haiku-latest"
	defaultTimeout          = 60 * time.Second
	defaultMaxTokens        = 800
)

// ConfigFromModel converts the LLM and HTTP sections of model.Config
func ConfigFromModel(llmCfg model.LLMConfig, httpCfg model.HTTPConfig) Config {
	return Config{
		Provider:    llmCfg.Provider,
		Model:       llmCfg.Model,
		APIKey:      llmCfg.APIKey,
		BaseURL:     llmCfg.BaseURL,
		Timeout:     llmCfg.Timeout,
		Temperature: llmCfg.Temperature,
		MaxTokens:   llmCfg.MaxTokens,
		HTTPProxy:   httpCfg.HTTPProxy,
		HTTPSProxy:  httpCfg.HTTPSProxy,
		NoProxy:     httpCfg.NoProxy,
	}
}

// DefaultModel picks the model for an OpenAI-compatible endpoint. OpenRouter
// wants the vendor prefix.
func DefaultModel(baseURL string) string {
	if strings.Contains(baseURL, "openrouter.ai") {
		return "openai/gpt-4o-mini"
	}
	return "gpt-4o-mini"
}

func normalizeBaseURL(baseURL, fallback string) string {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return fallback
	}
	return baseURL
}

// isCanonicalOpenAI reports whether baseURL is OpenAI's own API, which
// accepts response_format
func isCanonicalOpenAI(baseURL string) bool {
	return strings.Contains(baseURL, "api.openai.com")
}

func (c Config) timeout() time.Duration {
	if c.Timeout <= 0 {
		return defaultTimeout
	}
	return c.Timeout
}

func (c Config) maxTokens() int {
	if c.MaxTokens <= 0 {
		return defaultMaxTokens
	}
	return c.MaxTokens
}
