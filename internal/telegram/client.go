package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// ErrMissingToken is returned by every call when no bot token is configured
var ErrMissingToken = errors.New("TELEGRAM_BOT_TOKEN is not set")

// Client talks to the Telegram Bot API
type Client struct {
	http    *http.Client
	baseURL string
	token   string
}

// NewClient creates a Bot API client. A nil httpClient gets a 30s timeout.
func NewClient(httpClient *http.Client, baseURL, token string) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	if strings.TrimSpace(baseURL) == "" {
		baseURL = "https://api.telegram.org"
	}
	return &Client{
		http:    httpClient,
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   strings.TrimSpace(token),
	}
}

// RequestError is a non-success Bot API answer
type RequestError struct {
	Method      string
	StatusCode  int
	ErrorCode   int
	Description string
	Body        string
}

func (e *RequestError) Error() string {
	if e == nil {
		return "telegram request failed"
	}
	desc := strings.TrimSpace(e.Description)
	if desc == "" {
		desc = strings.TrimSpace(e.Body)
	}
	if desc != "" {
		return fmt.Sprintf("telegram %s failed: %d %s", e.Method, e.StatusCode, desc)
	}
	return fmt.Sprintf("telegram %s failed: %d", e.Method, e.StatusCode)
}

type okResponse struct {
	OK          bool            `json:"ok"`
	Result      json.RawMessage `json:"result,omitempty"`
	ErrorCode   int             `json:"error_code,omitempty"`
	Description string          `json:"description,omitempty"`
}

type sendMessageRequest struct {
	ChatID                any    `json:"chat_id"`
	Text                  string `json:"text"`
	DisableWebPagePreview bool   `json:"disable_web_page_preview"`
	ReplyToMessageID      int64  `json:"reply_to_message_id,omitempty"`
}

type setWebhookRequest struct {
	URL                string   `json:"url"`
	SecretToken        string   `json:"secret_token,omitempty"`
	AllowedUpdates     []string `json:"allowed_updates,omitempty"`
	DropPendingUpdates bool     `json:"drop_pending_updates,omitempty"`
}

// User is the bot account returned by getMe
type User struct {
	ID        int64  `json:"id"`
	IsBot     bool   `json:"is_bot"`
	Username  string `json:"username,omitempty"`
	FirstName string `json:"first_name,omitempty"`
}

// WebhookInfo describes the current webhook registration
type WebhookInfo struct {
	URL                  string `json:"url"`
	PendingUpdateCount   int    `json:"pending_update_count"`
	LastErrorDate        int64  `json:"last_error_date,omitempty"`
	LastErrorMessage     string `json:"last_error_message,omitempty"`
	MaxConnections       int    `json:"max_connections,omitempty"`
	HasCustomCertificate bool   `json:"has_custom_certificate"`
}

// SendMessage posts plain text to a chat. chatID is either a numeric id or
// an @channel username.
func (c *Client) SendMessage(ctx context.Context, chatID string, text string) error {
	req := sendMessageRequest{
		ChatID:                chatIDValue(chatID),
		Text:                  text,
		DisableWebPagePreview: true,
	}
	return c.call(ctx, "sendMessage", req, nil)
}

// GetMe returns the bot account
func (c *Client) GetMe(ctx context.Context) (*User, error) {
	var u User
	if err := c.call(ctx, "getMe", nil, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// SetWebhook registers webhookURL for message and edited_message updates
func (c *Client) SetWebhook(ctx context.Context, webhookURL, secretToken string, dropPending bool) error {
	req := setWebhookRequest{
		URL:                strings.TrimSpace(webhookURL),
		SecretToken:        strings.TrimSpace(secretToken),
		AllowedUpdates:     []string{"message", "edited_message"},
		DropPendingUpdates: dropPending,
	}
	return c.call(ctx, "setWebhook", req, nil)
}

// DeleteWebhook removes the webhook registration
func (c *Client) DeleteWebhook(ctx context.Context, dropPending bool) error {
	req := map[string]bool{"drop_pending_updates": dropPending}
	return c.call(ctx, "deleteWebhook", req, nil)
}

// GetWebhookInfo returns the current webhook registration
func (c *Client) GetWebhookInfo(ctx context.Context) (*WebhookInfo, error) {
	var info WebhookInfo
	if err := c.call(ctx, "getWebhookInfo", nil, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// call POSTs a JSON body to a Bot API method and decodes result into out
func (c *Client) call(ctx context.Context, method string, body any, out any) error {
	if c.token == "" {
		return ErrMissingToken
	}

	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal %s request: %w", method, err)
		}
		reader = bytes.NewReader(b)
	}

	endpoint := fmt.Sprintf("%s/bot%s/%s", c.baseURL, c.token, method)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		// url.Error carries the request URL, which embeds the token
		var uerr *url.Error
		if errors.As(err, &uerr) {
			err = uerr.Err
		}
		return fmt.Errorf("telegram %s: %w", method, err)
	}
	raw, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()

	var decoded okResponse
	_ = json.Unmarshal(raw, &decoded)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 || !decoded.OK {
		return &RequestError{
			Method:      method,
			StatusCode:  resp.StatusCode,
			ErrorCode:   decoded.ErrorCode,
			Description: decoded.Description,
			Body:        strings.TrimSpace(string(raw)),
		}
	}

	if out != nil && len(decoded.Result) > 0 {
		if err := json.Unmarshal(decoded.Result, out); err != nil {
			return fmt.Errorf("decode %s result: %w", method, err)
		}
	}
	return nil
}

// chatIDValue sends numeric ids as numbers and usernames as strings
func chatIDValue(chatID string) any {
	chatID = strings.TrimSpace(chatID)
	if id, err := strconv.ParseInt(chatID, 10, 64); err == nil {
		return id
	}
	return chatID
}
