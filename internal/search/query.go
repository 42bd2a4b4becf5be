package search

import (
	"strings"

	"github.com/ppiankov/findorigin/internal/model"
)

// MaxQueryLength is the longest query, in characters, sent to the search API
const MaxQueryLength = 256

// BuildQuery assembles a search query from the most specific facts: up to 3
// names, 2 dates and 2 numbers, then the first claim or the whole text.
func BuildQuery(text string, facts model.ExtractedFacts) string {
	var parts []string
	parts = append(parts, head(facts.Names, 3)...)
	parts = append(parts, head(facts.Dates, 2)...)
	parts = append(parts, head(facts.Numbers, 2)...)
	if len(facts.Claims) > 0 {
		parts = append(parts, facts.Claims[0])
	} else {
		parts = append(parts, text)
	}

	query := strings.Join(strings.Fields(strings.Join(parts, " ")), " ")

	runes := []rune(query)
	if len(runes) > MaxQueryLength {
		query = strings.TrimSpace(string(runes[:MaxQueryLength]))
	}
	return query
}

func head(items []string, n int) []string {
	if len(items) > n {
		return items[:n]
	}
	return items
}
