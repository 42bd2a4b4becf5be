package extract

import (
	"strings"

	"github.com/ppiankov/findorigin/internal/model"
)

// FindCandidateSources narrows extracted links down to clean http(s) URLs
func FindCandidateSources(facts model.ExtractedFacts) model.CandidateSources {
	var sources []string
	for _, link := range facts.Links {
		if !strings.HasPrefix(link, "http://") && !strings.HasPrefix(link, "https://") {
			continue
		}
		cleaned := strings.TrimRight(link, "),.")
		if cleaned == "" {
			continue
		}
		sources = append(sources, cleaned)
	}

	return model.CandidateSources{
		Sources: dedupeSources(sources),
	}
}

// dedupeSources removes duplicate links, keeping order
func dedupeSources(sources []string) []string {
	seen := make(map[string]bool)
	unique := make([]string, 0, len(sources))

	for _, src := range sources {
		if !seen[src] {
			seen[src] = true
			unique = append(unique, src)
		}
	}

	return unique
}
