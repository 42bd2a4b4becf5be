package llm

import (
	"context"
	"fmt"

	"github.com/ppiankov/findorigin/internal/model"
	"github.com/ppiankov/findorigin/internal/search"
)

// Analyzer asks a provider for a summary and candidate sources
type Analyzer struct {
	provider Provider
	err      error
}

// NewAnalyzer builds the configured provider. A configuration error is kept
// and returned by every Analyze call, so a missing key surfaces per request.
func NewAnalyzer(cfg Config) *Analyzer {
	p, err := NewProvider(cfg)
	return &Analyzer{provider: p, err: err}
}

// NewAnalyzerWithProvider wraps an existing provider
func NewAnalyzerWithProvider(p Provider) *Analyzer {
	return &Analyzer{provider: p}
}

// Provider returns the underlying provider or its construction error
func (a *Analyzer) Provider() (Provider, error) {
	return a.provider, a.err
}

// Analyze makes exactly one provider call. Unparsable output is not an
// error: it yields ParseFailedSummary.
func (a *Analyzer) Analyze(ctx context.Context, text string, facts model.ExtractedFacts, results []search.Result) (model.Analysis, error) {
	if a.err != nil {
		return model.Analysis{}, a.err
	}
	if a.provider == nil {
		return model.Analysis{}, ErrMissingAPIKey
	}

	resp, err := a.provider.Complete(ctx, CompletionRequest{
		System: SystemPrompt,
		Prompt: BuildPrompt(text, facts, results),
		JSON:   true,
	})
	if err != nil {
		return model.Analysis{}, fmt.Errorf("%s: %w", a.provider.Name(), err)
	}

	return ParseAnalysis(resp.Text, AllowList(facts, results)), nil
}

// AllowList is the set of URLs a model answer may cite: the search result
// links when there are any, otherwise the links in the text. Never nil.
func AllowList(facts model.ExtractedFacts, results []search.Result) []string {
	if len(results) > 0 {
		return search.Links(results)
	}
	if facts.Links == nil {
		return []string{}
	}
	return facts.Links
}
