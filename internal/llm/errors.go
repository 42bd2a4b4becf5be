package llm

import (
	"errors"
	"fmt"
	"strings"
)

// ErrMissingAPIKey is returned when a provider has no credentials
var ErrMissingAPIKey = errors.New("LLM API key is not set (OPENAI_API_KEY, OPENROUTER_API_KEY or ANTHROPIC_API_KEY)")

// StatusError is a non-success answer from a provider endpoint
type StatusError struct {
	Provider   string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return strings.TrimSpace(fmt.Sprintf("%s API failed: %d %s", e.Provider, e.StatusCode, e.Body))
}
