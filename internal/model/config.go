package model

import (
	"strings"
	"time"
)

// Analysis modes
const (
	ModeAI    = "ai"    // Call the language model
	ModeFacts = "facts" // Reply with extracted facts only
)

// Config is the complete FindOrigin configuration
type Config struct {
	Server       ServerConfig       `yaml:"server" mapstructure:"server"`
	Telegram     TelegramConfig     `yaml:"telegram" mapstructure:"telegram"`
	LLM          LLMConfig          `yaml:"llm" mapstructure:"llm"`
	Search       SearchConfig       `yaml:"search" mapstructure:"search"`
	Analysis     AnalysisConfig     `yaml:"analysis" mapstructure:"analysis"`
	Cache        CacheConfig        `yaml:"cache" mapstructure:"cache"`
	RateLimiting RateLimitingConfig `yaml:"rate_limiting" mapstructure:"rate_limiting"`
	HTTP         HTTPConfig         `yaml:"http" mapstructure:"http"`
	Concurrency  ConcurrencyConfig  `yaml:"concurrency" mapstructure:"concurrency"`
	Logging      LoggingConfig      `yaml:"logging" mapstructure:"logging"`
}

// ServerConfig controls the inbound HTTP server
type ServerConfig struct {
	Addr              string        `yaml:"addr" mapstructure:"addr"`
	ReadHeaderTimeout time.Duration `yaml:"read_header_timeout" mapstructure:"read_header_timeout"`
	ShutdownTimeout   time.Duration `yaml:"shutdown_timeout" mapstructure:"shutdown_timeout"`
	MiniAppEnabled    bool          `yaml:"miniapp_enabled" mapstructure:"miniapp_enabled"`
}

// TelegramConfig holds Bot API and post-embed settings
type TelegramConfig struct {
	BotToken       string        `yaml:"bot_token" mapstructure:"bot_token"`
	APIBaseURL     string        `yaml:"api_base_url" mapstructure:"api_base_url"`
	EmbedBaseURL   string        `yaml:"embed_base_url" mapstructure:"embed_base_url"`
	WebhookSecret  string        `yaml:"webhook_secret" mapstructure:"webhook_secret"`
	FetchTimeout   time.Duration `yaml:"fetch_timeout" mapstructure:"fetch_timeout"`     // Post embed fetch
	RequestTimeout time.Duration `yaml:"request_timeout" mapstructure:"request_timeout"` // Bot API calls
	MaxBodyBytes   int64         `yaml:"max_body_bytes" mapstructure:"max_body_bytes"`
	RespectRobots  bool          `yaml:"respect_robots" mapstructure:"respect_robots"` // Check robots.txt before embed fetches
}

// LLMConfig holds language model settings
type LLMConfig struct {
	Provider    string        `yaml:"provider" mapstructure:"provider"` // openai, openai-responses, anthropic
	APIKey      string        `yaml:"api_key,omitempty" mapstructure:"api_key"`
	BaseURL     string        `yaml:"base_url" mapstructure:"base_url"`
	Model       string        `yaml:"model" mapstructure:"model"` // Empty selects a default for the base URL
	Temperature float32       `yaml:"temperature" mapstructure:"temperature"`
	MaxTokens   int           `yaml:"max_tokens" mapstructure:"max_tokens"`
	Timeout     time.Duration `yaml:"timeout" mapstructure:"timeout"`
}

// SearchConfig holds web search settings
type SearchConfig struct {
	Enabled  bool          `yaml:"enabled" mapstructure:"enabled"`
	APIKey   string        `yaml:"api_key,omitempty" mapstructure:"api_key"`
	EngineID string        `yaml:"engine_id" mapstructure:"engine_id"`
	BaseURL  string        `yaml:"base_url" mapstructure:"base_url"`
	Timeout  time.Duration `yaml:"timeout" mapstructure:"timeout"`
	Num      int           `yaml:"num" mapstructure:"num"`
	Language string        `yaml:"language" mapstructure:"language"`
	Country  string        `yaml:"country" mapstructure:"country"`
}

// AnalysisConfig selects how messages are analyzed
type AnalysisConfig struct {
	Mode string `yaml:"mode" mapstructure:"mode"` // ai or facts
}

// FactsOnly reports whether the language model is skipped
func (a AnalysisConfig) FactsOnly() bool {
	return strings.EqualFold(strings.TrimSpace(a.Mode), ModeFacts)
}

// CacheConfig controls caching of fetched post text
type CacheConfig struct {
	Enabled bool          `yaml:"enabled" mapstructure:"enabled"`
	TTL     time.Duration `yaml:"ttl" mapstructure:"ttl"`
}

// RateLimitingConfig limits outbound post fetches per host (0 disables)
type RateLimitingConfig struct {
	RequestsPerSecond float64 `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	BurstSize         int     `yaml:"burst_size" mapstructure:"burst_size"`
}

// HTTPConfig holds shared outbound HTTP settings
type HTTPConfig struct {
	UserAgent  string `yaml:"user_agent" mapstructure:"user_agent"`
	HTTPProxy  string `yaml:"http_proxy" mapstructure:"http_proxy"`
	HTTPSProxy string `yaml:"https_proxy" mapstructure:"https_proxy"`
	NoProxy    string `yaml:"no_proxy" mapstructure:"no_proxy"`
}

// ConcurrencyConfig controls batch processing
type ConcurrencyConfig struct {
	Workers int `yaml:"workers" mapstructure:"workers"`
}

// LoggingConfig controls the process logger
type LoggingConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`   // debug, info, warn, error
	Format string `yaml:"format" mapstructure:"format"` // json or console
}

// DefaultConfig returns the built-in defaults
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:              ":8080",
			ReadHeaderTimeout: 5 * time.Second,
			ShutdownTimeout:   10 * time.Second,
			MiniAppEnabled:    true,
		},
		Telegram: TelegramConfig{
			APIBaseURL:     "https://api.telegram.org",
			EmbedBaseURL:   "https://t.me",
			FetchTimeout:   3 * time.Second,
			RequestTimeout: 30 * time.Second,
			MaxBodyBytes:   2_000_000,
		},
		LLM: LLMConfig{
			Provider:    "openai",
			BaseURL:     "https://api.openai.com/v1",
			Temperature: 0.2,
			MaxTokens:   800,
			Timeout:     60 * time.Second,
		},
		Search: SearchConfig{
			Enabled:  false,
			BaseURL:  "https://www.googleapis.com/customsearch/v1",
			Timeout:  8 * time.Second,
			Num:      5,
			Language: "ru",
			Country:  "ru",
		},
		Analysis: AnalysisConfig{
			Mode: ModeAI,
		},
		Cache: CacheConfig{
			Enabled: false,
			TTL:     10 * time.Minute,
		},
		RateLimiting: RateLimitingConfig{
			RequestsPerSecond: 0,
			BurstSize:         5,
		},
		HTTP: HTTPConfig{
			UserAgent: "FindOrigin/0.1 (+https://github.com/ppiankov/findorigin)",
		},
		Concurrency: ConcurrencyConfig{
			Workers: 4,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}
