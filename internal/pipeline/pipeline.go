package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/ppiankov/findorigin/internal/extract"
	"github.com/ppiankov/findorigin/internal/model"
	"github.com/ppiankov/findorigin/internal/reply"
	"github.com/ppiankov/findorigin/internal/search"
)

// ErrEmptyInput is returned when there is nothing to analyze
var ErrEmptyInput = errors.New("empty input")

// Searcher runs a web search
type Searcher interface {
	Search(ctx context.Context, query string) ([]search.Result, error)
}

// Analyzer asks a language model for a summary and sources
type Analyzer interface {
	Analyze(ctx context.Context, text string, facts model.ExtractedFacts, results []search.Result) (model.Analysis, error)
}

// Result is everything one run produced
type Result struct {
	Input      model.ResolvedInput    `json:"input"`
	Facts      model.ExtractedFacts   `json:"facts"`
	Candidates model.CandidateSources `json:"candidates"`
	Query      string                 `json:"query,omitempty"`
	Search     []search.Result        `json:"search,omitempty"`
	Analysis   *model.Analysis        `json:"analysis,omitempty"`
	Reply      string                 `json:"reply"`
	Duration   time.Duration          `json:"duration_ns"`
}

// Pipeline chains resolve, extract, search, analyze and compose. Every step
// runs in sequence on the calling goroutine.
type Pipeline struct {
	resolver  *Resolver
	searcher  Searcher
	analyzer  Analyzer
	factsOnly bool
	logger    *zap.Logger
}

// New creates a pipeline. searcher may be nil to skip web search; analyzer
// is ignored when factsOnly is set.
func New(resolver *Resolver, searcher Searcher, analyzer Analyzer, factsOnly bool, logger *zap.Logger) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{
		resolver:  resolver,
		searcher:  searcher,
		analyzer:  analyzer,
		factsOnly: factsOnly,
		logger:    logger,
	}
}

// FactsOnly reports whether the model is skipped
func (p *Pipeline) FactsOnly() bool {
	return p.factsOnly
}

// Run processes raw user text. On search or analysis failure the returned
// error wraps the upstream error; no partial result is returned.
func (p *Pipeline) Run(ctx context.Context, raw string) (*Result, error) {
	start := time.Now()

	input := p.resolver.Resolve(ctx, raw)
	if input.Text == "" {
		return nil, ErrEmptyInput
	}

	facts := extract.ExtractFacts(input.Text)
	result := &Result{
		Input:      input,
		Facts:      facts,
		Candidates: extract.FindCandidateSources(facts),
	}

	if p.factsOnly {
		result.Reply = reply.BuildFacts(input, facts, result.Candidates)
		result.Duration = time.Since(start)
		return result, nil
	}

	if p.analyzer == nil {
		return nil, errors.New("no analyzer configured")
	}

	if p.searcher != nil {
		result.Query = search.BuildQuery(input.Text, facts)
		if result.Query != "" {
			hits, err := p.searcher.Search(ctx, result.Query)
			if err != nil {
				return nil, fmt.Errorf("search: %w", err)
			}
			result.Search = hits
			p.logger.Debug("search finished", zap.Int("results", len(hits)))
		}
	}

	analysis, err := p.analyzer.Analyze(ctx, input.Text, facts, result.Search)
	if err != nil {
		return nil, fmt.Errorf("analyze: %w", err)
	}
	result.Analysis = &analysis
	result.Reply = reply.Build(input, analysis)
	result.Duration = time.Since(start)

	return result, nil
}
