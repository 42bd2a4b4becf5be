package cli

import (
	"fmt"

	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/ppiankov/findorigin/internal/cache"
	"github.com/ppiankov/findorigin/internal/llm"
	"github.com/ppiankov/findorigin/internal/logging"
	"github.com/ppiankov/findorigin/internal/model"
	"github.com/ppiankov/findorigin/internal/pipeline"
	"github.com/ppiankov/findorigin/internal/search"
	"github.com/ppiankov/findorigin/internal/telegram"
	"github.com/ppiankov/findorigin/internal/util"
	"github.com/ppiankov/findorigin/internal/worker"
)

// app holds everything a command needs
type app struct {
	cfg      *model.Config
	logger   *zap.Logger
	pipeline *pipeline.Pipeline
	analyzer *llm.Analyzer
	telegram *telegram.Client
}

// newApp loads the config and wires the pipeline
func newApp() (*app, error) {
	cfg, err := loadConfig(viper.GetViper())
	if err != nil {
		return nil, err
	}

	logger, err := logging.New(cfg.Logging)
	if err != nil {
		return nil, err
	}

	p, analyzer := buildPipeline(cfg, logger)
	return &app{
		cfg:      cfg,
		logger:   logger,
		pipeline: p,
		analyzer: analyzer,
		telegram: newTelegramClient(cfg),
	}, nil
}

func (a *app) close() {
	_ = a.logger.Sync()
}

// buildPipeline wires post fetching, search and analysis from cfg. The
// analyzer is nil in facts mode.
func buildPipeline(cfg *model.Config, logger *zap.Logger) (*pipeline.Pipeline, *llm.Analyzer) {
	fetcher := pipeline.NewPostFetcher(pipeline.PostFetcherConfig{
		BaseURL:    cfg.Telegram.EmbedBaseURL,
		Timeout:    cfg.Telegram.FetchTimeout,
		UserAgent:  cfg.HTTP.UserAgent,
		MaxBytes:   cfg.Telegram.MaxBodyBytes,
		HTTPProxy:  cfg.HTTP.HTTPProxy,
		HTTPSProxy: cfg.HTTP.HTTPSProxy,
		NoProxy:    cfg.HTTP.NoProxy,
	}, limiterFromConfig(cfg.RateLimiting))
	if cfg.Telegram.RespectRobots {
		fetcher.WithRobots(util.NewRobotsChecker(fetcher.HTTPClient(), cfg.HTTP.UserAgent))
	}

	var postCache cache.Cache
	if cfg.Cache.Enabled {
		postCache = cache.NewMemoryCache(cfg.Cache.TTL, 2*cfg.Cache.TTL)
	}
	resolver := pipeline.NewResolver(fetcher, postCache, logger.Named("resolver"))

	var searcher pipeline.Searcher
	if cfg.Search.Enabled {
		searcher = search.NewClient(search.Config{
			APIKey:   cfg.Search.APIKey,
			EngineID: cfg.Search.EngineID,
			BaseURL:  cfg.Search.BaseURL,
			Num:      cfg.Search.Num,
			Language: cfg.Search.Language,
			Country:  cfg.Search.Country,
			Timeout:  cfg.Search.Timeout,
		}, util.NewHTTPClient(cfg.Search.Timeout, cfg.HTTP.HTTPProxy, cfg.HTTP.HTTPSProxy, cfg.HTTP.NoProxy))
	}

	factsOnly := cfg.Analysis.FactsOnly()
	var analyzer *llm.Analyzer
	var pa pipeline.Analyzer
	if !factsOnly {
		analyzer = llm.NewAnalyzer(llm.ConfigFromModel(cfg.LLM, cfg.HTTP))
		pa = analyzer
	}

	return pipeline.New(resolver, searcher, pa, factsOnly, logger.Named("pipeline")), analyzer
}

// limiterFromConfig keeps a disabled limiter out of the interface so the
// fetcher sees a true nil
func limiterFromConfig(cfg model.RateLimitingConfig) pipeline.RateLimiter {
	if l := worker.NewLimiterFromConfig(cfg); l != nil {
		return l
	}
	return nil
}

func newTelegramClient(cfg *model.Config) *telegram.Client {
	httpClient := util.NewHTTPClient(cfg.Telegram.RequestTimeout, cfg.HTTP.HTTPProxy, cfg.HTTP.HTTPSProxy, cfg.HTTP.NoProxy)
	return telegram.NewClient(httpClient, cfg.Telegram.APIBaseURL, cfg.Telegram.BotToken)
}

func describeMode(cfg *model.Config) string {
	if cfg.Analysis.FactsOnly() {
		return model.ModeFacts
	}
	return fmt.Sprintf("%s/%s", cfg.LLM.Provider, modelName(cfg))
}

func modelName(cfg *model.Config) string {
	if cfg.LLM.Model != "" {
		return cfg.LLM.Model
	}
	if isAnthropic(cfg.LLM.Provider) {
		return "default"
	}
	return llm.DefaultModel(cfg.LLM.BaseURL)
}
