package llm

import (
	"fmt"
	"strings"
)

// NewProvider creates a new LLM provider based on configuration. An empty
// provider name selects openai.
func NewProvider(config Config) (Provider, error) {
	provider := strings.ToLower(strings.TrimSpace(config.Provider))

	switch provider {
	case "openai", "openrouter", "":
		return NewOpenAIProvider(config)

	case "openai-responses", "responses":
		return NewResponsesProvider(config)

	case "anthropic", "claude":
		return NewAnthropicProvider(config)

	default:
		return nil, fmt.Errorf("unknown LLM provider: %s (supported: openai, openai-responses, anthropic)", config.Provider)
	}
}
