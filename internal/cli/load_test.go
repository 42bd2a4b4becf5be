package cli

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/spf13/viper"

	"github.com/ppiankov/findorigin/internal/model"
)

// isolateEnv blanks every variable the loader looks at. Empty values are
// treated as unset.
func isolateEnv(t *testing.T) {
	t.Helper()
	for key, names := range conventionalEnv {
		t.Setenv(envName(key), "")
		for _, name := range names {
			t.Setenv(name, "")
		}
	}
	for key := range defaultSettings() {
		t.Setenv(envName(key), "")
	}
	t.Setenv("ANTHROPIC_API_KEY", "")
}

func newTestViper() *viper.Viper {
	v := viper.New()
	configureViper(v)
	return v
}

func TestLoadConfig_Defaults(t *testing.T) {
	isolateEnv(t)

	cfg, err := loadConfig(newTestViper())
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if diff := cmp.Diff(model.DefaultConfig(), cfg); diff != "" {
		t.Errorf("defaults mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadConfig_Env(t *testing.T) {
	isolateEnv(t)
	t.Setenv("TELEGRAM_BOT_TOKEN", "123:abc")
	t.Setenv("TELEGRAM_WEBHOOK_SECRET", "hook")
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("OPENAI_BASE_URL", "https://openrouter.ai/api/v1")
	t.Setenv("GOOGLE_API_KEY", "g-key")
	t.Setenv("GOOGLE_CX", "cx-1")
	t.Setenv("FINDORIGIN_SERVER_ADDR", ":9090")
	t.Setenv("FINDORIGIN_TELEGRAM_FETCH_TIMEOUT", "5s")
	t.Setenv("FINDORIGIN_SEARCH_ENABLED", "true")
	t.Setenv("FINDORIGIN_ANALYSIS_MODE", "FACTS")

	cfg, err := loadConfig(newTestViper())
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}

	checks := []struct {
		name string
		got  any
		want any
	}{
		{"bot token", cfg.Telegram.BotToken, "123:abc"},
		{"webhook secret", cfg.Telegram.WebhookSecret, "hook"},
		{"llm key", cfg.LLM.APIKey, "sk-test"},
		{"llm base url", cfg.LLM.BaseURL, "https://openrouter.ai/api/v1"},
		{"search key", cfg.Search.APIKey, "g-key"},
		{"search engine", cfg.Search.EngineID, "cx-1"},
		{"search enabled", cfg.Search.Enabled, true},
		{"addr", cfg.Server.Addr, ":9090"},
		{"fetch timeout", cfg.Telegram.FetchTimeout, 5 * time.Second},
		{"mode", cfg.Analysis.Mode, model.ModeFacts},
	}
	for _, c := range checks {
		if c.got != c.want {
			t.Errorf("%s: got %v, want %v", c.name, c.got, c.want)
		}
	}
}

func TestLoadConfig_KeyPrecedence(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want string
	}{
		{
			name: "prefixed wins",
			env:  map[string]string{"FINDORIGIN_LLM_API_KEY": "a", "OPENAI_API_KEY": "b"},
			want: "a",
		},
		{
			name: "openai before openrouter",
			env:  map[string]string{"OPENAI_API_KEY": "b", "OPENROUTER_API_KEY": "c"},
			want: "b",
		},
		{
			name: "openrouter fallback",
			env:  map[string]string{"OPENROUTER_API_KEY": "c"},
			want: "c",
		},
		{
			name: "anthropic provider uses its own key",
			env: map[string]string{
				"FINDORIGIN_LLM_PROVIDER": "anthropic",
				"OPENAI_API_KEY":          "b",
				"ANTHROPIC_API_KEY":       "d",
			},
			want: "d",
		},
		{
			name: "openai provider ignores anthropic key",
			env:  map[string]string{"ANTHROPIC_API_KEY": "d"},
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			isolateEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			cfg, err := loadConfig(newTestViper())
			if err != nil {
				t.Fatalf("loadConfig: %v", err)
			}
			if cfg.LLM.APIKey != tt.want {
				t.Errorf("api key = %q, want %q", cfg.LLM.APIKey, tt.want)
			}
		})
	}
}

func TestLoadConfig_FileAndEnvOverride(t *testing.T) {
	isolateEnv(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
llm:
  provider: openai-responses
  model: gpt-4.1-mini
  timeout: 30s
cache:
  enabled: true
  ttl: 1h
concurrency:
  workers: 8
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("FINDORIGIN_CONCURRENCY_WORKERS", "2")

	v := newTestViper()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		t.Fatalf("ReadInConfig: %v", err)
	}

	cfg, err := loadConfig(v)
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if cfg.LLM.Provider != "openai-responses" || cfg.LLM.Model != "gpt-4.1-mini" || cfg.LLM.Timeout != 30*time.Second {
		t.Errorf("unexpected llm section %+v", cfg.LLM)
	}
	if !cfg.Cache.Enabled || cfg.Cache.TTL != time.Hour {
		t.Errorf("unexpected cache section %+v", cfg.Cache)
	}
	if cfg.Concurrency.Workers != 2 {
		t.Errorf("expected env to override the file, got %d workers", cfg.Concurrency.Workers)
	}
	if cfg.Server.Addr != ":8080" {
		t.Errorf("expected untouched defaults to survive, got addr %q", cfg.Server.Addr)
	}
}

func TestLoadConfig_Invalid(t *testing.T) {
	tests := map[string]string{
		"FINDORIGIN_ANALYSIS_MODE":       "magic",
		"FINDORIGIN_CONCURRENCY_WORKERS": "0",
		"FINDORIGIN_LLM_TEMPERATURE":     "3",
	}
	for key, value := range tests {
		t.Run(key, func(t *testing.T) {
			isolateEnv(t)
			t.Setenv(key, value)
			if _, err := loadConfig(newTestViper()); err == nil {
				t.Errorf("expected %s=%s to be rejected", key, value)
			}
		})
	}
}

func TestEnvName(t *testing.T) {
	if got := envName("llm.base_url"); got != "FINDORIGIN_LLM_BASE_URL" {
		t.Errorf("envName = %q", got)
	}
	if got := envName("rate_limiting.requests_per_second"); got != "FINDORIGIN_RATE_LIMITING_REQUESTS_PER_SECOND" {
		t.Errorf("envName = %q", got)
	}
}

func TestRedacted(t *testing.T) {
	cfg := model.DefaultConfig()
	cfg.Telegram.BotToken = "123456:ABCDEFGHIJ"
	cfg.LLM.APIKey = "short"

	out := redacted(cfg)
	if out.Telegram.BotToken != "1234****" {
		t.Errorf("bot token = %q", out.Telegram.BotToken)
	}
	if out.LLM.APIKey != "****" {
		t.Errorf("api key = %q", out.LLM.APIKey)
	}
	if out.Search.APIKey != "" {
		t.Errorf("empty secrets stay empty, got %q", out.Search.APIKey)
	}
	if cfg.Telegram.BotToken != "123456:ABCDEFGHIJ" {
		t.Error("redacted must not modify its input")
	}
}

func TestWriteDefaultConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	if err := writeDefaultConfig(path); err != nil {
		t.Fatalf("writeDefaultConfig: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(string(data), "# FindOrigin Configuration File") {
		t.Errorf("unexpected header:\n%s", data)
	}

	isolateEnv(t)
	v := newTestViper()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		t.Fatalf("generated file does not parse: %v", err)
	}
	cfg, err := loadConfig(v)
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if diff := cmp.Diff(model.DefaultConfig(), cfg); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}

	if err := writeDefaultConfig(path); err == nil {
		t.Error("expected an existing file to be left alone")
	}
}
