package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/ppiankov/findorigin/internal/util"
)

// ResponsesProvider talks to the OpenAI Responses API
type ResponsesProvider struct {
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client
	config     Config
}

type responsesRequest struct {
	Model           string         `json:"model"`
	Instructions    string         `json:"instructions,omitempty"`
	Input           string         `json:"input"`
	Temperature     float32        `json:"temperature"`
	MaxOutputTokens int            `json:"max_output_tokens,omitempty"`
	Text            *responsesText `json:"text,omitempty"`
}

type responsesText struct {
	Format responsesFormat `json:"format"`
}

type responsesFormat struct {
	Type string `json:"type"`
}

// responsesResponse covers both the Responses shape and a chat completion
// shape, which some compatible gateways return from the same path
type responsesResponse struct {
	Model      string  `json:"model"`
	OutputText *string `json:"output_text"`
	Output     []struct {
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
	} `json:"output"`
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Usage struct {
		TotalTokens int `json:"total_tokens"`
	} `json:"usage"`
}

// NewResponsesProvider creates a Responses API provider
func NewResponsesProvider(config Config) (*ResponsesProvider, error) {
	if strings.TrimSpace(config.APIKey) == "" {
		return nil, ErrMissingAPIKey
	}

	baseURL := normalizeBaseURL(config.BaseURL, defaultOpenAIBaseURL)
	model := config.Model
	if model == "" {
		model = DefaultModel(baseURL)
	}

	return &ResponsesProvider{
		apiKey:     config.APIKey,
		baseURL:    baseURL,
		model:      model,
		httpClient: util.NewHTTPClient(config.timeout(), config.HTTPProxy, config.HTTPSProxy, config.NoProxy),
		config:     config,
	}, nil
}

// Name returns the provider name
func (p *ResponsesProvider) Name() string {
	return "openai-responses"
}

// IsAvailable checks the models endpoint with the configured key
func (p *ResponsesProvider) IsAvailable(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"/models", nil)
	if err != nil {
		return false
	}
	req.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return false
	}
	_ = resp.Body.Close()
	return resp.StatusCode >= 200 && resp.StatusCode < 300
}

// Complete sends one Responses API request
func (p *ResponsesProvider) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	apiReq := responsesRequest{
		Model:           p.model,
		Instructions:    req.System,
		Input:           req.Prompt,
		Temperature:     p.config.Temperature,
		MaxOutputTokens: p.config.maxTokens(),
	}
	if req.JSON && isCanonicalOpenAI(p.baseURL) {
		apiReq.Text = &responsesText{Format: responsesFormat{Type: "json_object"}}
	}

	body, err := json.Marshal(apiReq)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/responses", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+p.apiKey)

	httpResp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer func() { _ = httpResp.Body.Close() }()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		return nil, &StatusError{Provider: "OpenAI", StatusCode: httpResp.StatusCode, Body: strings.TrimSpace(string(respBody))}
	}

	var resp responsesResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}

	return &CompletionResponse{
		Text:       resp.text(),
		Model:      resp.Model,
		TokensUsed: resp.Usage.TotalTokens,
	}, nil
}

// text prefers output_text, then the concatenated output content, then the
// first chat choice
func (r *responsesResponse) text() string {
	if r.OutputText != nil {
		return *r.OutputText
	}

	var sb strings.Builder
	for _, item := range r.Output {
		for _, content := range item.Content {
			sb.WriteString(content.Text)
		}
	}
	if combined := strings.TrimSpace(sb.String()); combined != "" {
		return combined
	}

	if len(r.Choices) > 0 {
		return r.Choices[0].Message.Content
	}
	return ""
}
