package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"

	"github.com/ppiankov/findorigin/internal/util"
)

// OpenAIProvider talks to OpenAI-compatible chat completion endpoints
// (OpenAI, OpenRouter and friends)
type OpenAIProvider struct {
	client  *openai.Client
	config  Config
	baseURL string
	model   string
}

// NewOpenAIProvider creates a new OpenAI provider
func NewOpenAIProvider(config Config) (*OpenAIProvider, error) {
	if strings.TrimSpace(config.APIKey) == "" {
		return nil, ErrMissingAPIKey
	}

	baseURL := normalizeBaseURL(config.BaseURL, defaultOpenAIBaseURL)

	clientConfig := openai.DefaultConfig(config.APIKey)
	clientConfig.BaseURL = baseURL
	clientConfig.HTTPClient = util.NewHTTPClient(config.timeout(), config.HTTPProxy, config.HTTPSProxy, config.NoProxy)

	model := config.Model
	if model == "" {
		model = DefaultModel(baseURL)
	}

	return &OpenAIProvider{
		client:  openai.NewClientWithConfig(clientConfig),
		config:  config,
		baseURL: baseURL,
		model:   model,
	}, nil
}

// Name returns the provider name
func (p *OpenAIProvider) Name() string {
	return "openai"
}

// IsAvailable lists models, the cheapest authenticated call
func (p *OpenAIProvider) IsAvailable(ctx context.Context) bool {
	_, err := p.client.ListModels(ctx)
	return err == nil
}

// Complete runs one chat completion
func (p *OpenAIProvider) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, p.config.timeout())
	defer cancel()

	var messages []openai.ChatCompletionMessage
	if req.System != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: req.System,
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: req.Prompt,
	})

	chatReq := openai.ChatCompletionRequest{
		Model:       p.model,
		Messages:    messages,
		MaxTokens:   p.config.maxTokens(),
		Temperature: p.config.Temperature,
	}
	if req.JSON && isCanonicalOpenAI(p.baseURL) {
		chatReq.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}

	resp, err := p.client.CreateChatCompletion(ctx, chatReq)
	if err != nil {
		return nil, p.wrapError(err)
	}

	var text string
	if len(resp.Choices) > 0 {
		text = resp.Choices[0].Message.Content
	}

	return &CompletionResponse{
		Text:       text,
		Model:      resp.Model,
		TokensUsed: resp.Usage.TotalTokens,
	}, nil
}

// wrapError turns go-openai's HTTP errors into *StatusError
func (p *OpenAIProvider) wrapError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) && apiErr.HTTPStatusCode != 0 {
		return &StatusError{Provider: "OpenAI", StatusCode: apiErr.HTTPStatusCode, Body: apiErr.Message}
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) && reqErr.HTTPStatusCode != 0 {
		body := reqErr.HTTPStatus
		if reqErr.Err != nil {
			body = reqErr.Err.Error()
		}
		return &StatusError{Provider: "OpenAI", StatusCode: reqErr.HTTPStatusCode, Body: body}
	}

	return fmt.Errorf("OpenAI API error: %w", err)
}
