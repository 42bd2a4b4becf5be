package extract

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/ppiankov/findorigin/internal/model"
)

// maxClaims is the number of leading sentences kept as claims
const maxClaims = 5

var (
	urlPattern = regexp.MustCompile(`(?i)https?://[^\s\x{00A0}<>()\[\]]+`)

	datePatterns = []*regexp.Regexp{
		// 12.03.2024, 1.3.24
		regexp.MustCompile(`\b\d{1,2}\.\d{1,2}\.(?:\d{4}|\d{2})\b`),
		// 2024-03-12
		regexp.MustCompile(`\b\d{4}-\d{2}-\d{2}\b`),
		// 12 марта 2024
		regexp.MustCompile(`(?i)\b\d{1,2}[\s\x{00A0}]+(?:января|февраля|марта|апреля|мая|июня|июля|августа|сентября|октября|ноября|декабря)[\s\x{00A0}]+\d{4}\b`),
	}

	// Thousands groups need a 1-3 digit head so adjacent numbers stay apart
	numberPattern = regexp.MustCompile(`\b(?:\d{1,3}(?:[ \x{00A0}.,]\d{3})+|\d+)(?:[.,]\d+)?\b`)

	// RE2 word boundaries are ASCII-only, so the leading boundary is an
	// explicit group and the trailing one is checked in matchNames.
	namePattern = regexp.MustCompile(`(?:^|[^\p{L}\p{N}])([А-ЯЁ][а-яё]+(?: [А-ЯЁ][а-яё]+){0,2})`)
)

// ExtractFacts pulls claims, dates, numbers, names and links out of text.
// It is pure and total: the empty string yields empty categories.
func ExtractFacts(text string) model.ExtractedFacts {
	var dates []string
	for _, re := range datePatterns {
		dates = append(dates, re.FindAllString(text, -1)...)
	}

	return model.ExtractedFacts{
		Claims:  extractClaims(text),
		Dates:   unique(dates),
		Numbers: unique(numberPattern.FindAllString(text, -1)),
		Names:   unique(matchNames(text)),
		Links:   unique(urlPattern.FindAllString(text, -1)),
	}
}

// matchNames returns capitalized word sequences that are not glued to
// other letters or digits on either side
func matchNames(text string) []string {
	var names []string
	for _, loc := range namePattern.FindAllStringSubmatchIndex(text, -1) {
		start, end := loc[2], loc[3]
		if end < len(text) {
			next, _ := utf8.DecodeRuneInString(text[end:])
			if unicode.IsLetter(next) || unicode.IsDigit(next) {
				continue
			}
		}
		names = append(names, text[start:end])
	}
	return names
}

// unique trims items, drops empty ones and keeps the first occurrence
func unique(items []string) []string {
	seen := make(map[string]bool, len(items))
	result := make([]string, 0, len(items))

	for _, item := range items {
		normalized := strings.TrimSpace(item)
		if normalized == "" || seen[normalized] {
			continue
		}
		seen[normalized] = true
		result = append(result, normalized)
	}

	return result
}
