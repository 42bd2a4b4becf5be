package cli

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/ppiankov/findorigin/internal/model"
)

const envPrefix = "FINDORIGIN"

// conventionalEnv maps config keys to the env names the bot has always
// understood. FINDORIGIN_* names are tried first.
var conventionalEnv = map[string][]string{
	"telegram.bot_token":      {"TELEGRAM_BOT_TOKEN"},
	"telegram.webhook_secret": {"TELEGRAM_WEBHOOK_SECRET"},
	"llm.api_key":             {"OPENAI_API_KEY", "OPENROUTER_API_KEY"},
	"llm.base_url":            {"OPENAI_BASE_URL"},
	"llm.model":               {"OPENAI_MODEL"},
	"search.api_key":          {"GOOGLE_API_KEY"},
	"search.engine_id":        {"GOOGLE_CX"},
	"http.http_proxy":         {"HTTP_PROXY"},
	"http.https_proxy":        {"HTTPS_PROXY"},
	"http.no_proxy":           {"NO_PROXY"},
}

// configureViper registers defaults and env bindings on v
func configureViper(v *viper.Viper) {
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()

	for key, value := range defaultSettings() {
		v.SetDefault(key, value)
	}

	keys := make([]string, 0, len(conventionalEnv))
	for key := range conventionalEnv {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		names := append([]string{envName(key)}, conventionalEnv[key]...)
		_ = v.BindEnv(append([]string{key}, names...)...)
	}
}

// defaultSettings flattens model.DefaultConfig into dotted viper keys
func defaultSettings() map[string]any {
	out := make(map[string]any)

	data, err := yaml.Marshal(model.DefaultConfig())
	if err != nil {
		return out
	}
	var tree map[string]any
	if err := yaml.Unmarshal(data, &tree); err != nil {
		return out
	}
	flatten("", tree, out)

	// Secrets are omitted from YAML output but still need a key for env lookup
	out["llm.api_key"] = ""
	out["search.api_key"] = ""
	return out
}

func flatten(prefix string, in map[string]any, out map[string]any) {
	for k, v := range in {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		if child, ok := v.(map[string]any); ok {
			flatten(key, child, out)
			continue
		}
		out[key] = v
	}
}

func envName(key string) string {
	return envPrefix + "_" + strings.ToUpper(strings.NewReplacer(".", "_", "-", "_").Replace(key))
}

// loadConfig decodes v into a model.Config
func loadConfig(v *viper.Viper) (*model.Config, error) {
	cfg := model.DefaultConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	// Claude keys live under their own name
	if isAnthropic(cfg.LLM.Provider) && os.Getenv(envName("llm.api_key")) == "" {
		if key := strings.TrimSpace(os.Getenv("ANTHROPIC_API_KEY")); key != "" {
			cfg.LLM.APIKey = key
		}
	}

	cfg.LLM.Provider = strings.ToLower(strings.TrimSpace(cfg.LLM.Provider))
	cfg.Analysis.Mode = strings.ToLower(strings.TrimSpace(cfg.Analysis.Mode))
	if err := validateConfig(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func validateConfig(cfg *model.Config) error {
	switch cfg.Analysis.Mode {
	case model.ModeAI, model.ModeFacts:
	default:
		return fmt.Errorf("invalid analysis.mode %q (want %s or %s)", cfg.Analysis.Mode, model.ModeAI, model.ModeFacts)
	}
	if cfg.Concurrency.Workers < 1 {
		return fmt.Errorf("concurrency.workers must be at least 1, got %d", cfg.Concurrency.Workers)
	}
	if cfg.LLM.Temperature < 0 || cfg.LLM.Temperature > 2 {
		return fmt.Errorf("llm.temperature must be within [0,2], got %v", cfg.LLM.Temperature)
	}
	return nil
}

func isAnthropic(provider string) bool {
	switch strings.ToLower(strings.TrimSpace(provider)) {
	case "anthropic", "claude":
		return true
	}
	return false
}

// redacted returns a copy of cfg safe to print
func redacted(cfg *model.Config) model.Config {
	out := *cfg
	out.Telegram.BotToken = mask(out.Telegram.BotToken)
	out.Telegram.WebhookSecret = mask(out.Telegram.WebhookSecret)
	out.LLM.APIKey = mask(out.LLM.APIKey)
	out.Search.APIKey = mask(out.Search.APIKey)
	return out
}

func mask(secret string) string {
	if secret == "" {
		return ""
	}
	if len(secret) <= 8 {
		return "****"
	}
	return secret[:4] + "****"
}
