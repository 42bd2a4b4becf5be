package reply

import (
	"fmt"
	"math"
	"strings"
	"unicode/utf8"

	"github.com/ppiankov/findorigin/internal/model"
)

// MaxLength is the Telegram message limit the reply is cut to, in characters
const MaxLength = 4000

const (
	originFetched  = "Текст извлечен из Telegram-поста."
	originFallback = "Не удалось извлечь текст поста, использую текст сообщения."
	originMessage  = "Текст взят из сообщения."

	summaryHeader   = "Краткий вывод:"
	sourcesHeader   = "Возможные источники:"
	noSources       = "Возможные источники: не найдены."
	none            = "нет"
	maxFactsPerKind = 5
)

// Origin describes where the analyzed text came from
func Origin(in model.ResolvedInput) string {
	switch {
	case in.UsedTelegramFetch:
		return originFetched
	case in.TelegramLink != nil:
		return originFallback
	default:
		return originMessage
	}
}

// Build composes the reply for an LLM analysis
func Build(in model.ResolvedInput, a model.Analysis) string {
	lines := []string{Origin(in), ""}

	if summary := strings.TrimSpace(a.Summary); summary != "" {
		lines = append(lines, summaryHeader, summary, "")
	}

	if len(a.Sources) == 0 {
		lines = append(lines, noSources)
		return Truncate(strings.Join(lines, "\n"))
	}

	lines = append(lines, sourcesHeader)
	for _, src := range a.Sources {
		label := strings.TrimSpace(src.Title)
		if label == "" {
			lines = append(lines, fmt.Sprintf("- %s (%s)", src.URL, Percent(src.Confidence)))
			continue
		}
		lines = append(lines, fmt.Sprintf("- %s (%s)", label, Percent(src.Confidence)), "  "+src.URL)
	}
	return Truncate(strings.Join(lines, "\n"))
}

// BuildFacts composes the reply when no model is consulted: up to five items
// per fact category and up to three candidate links
func BuildFacts(in model.ResolvedInput, facts model.ExtractedFacts, candidates model.CandidateSources) string {
	lines := []string{Origin(in), ""}

	lines = appendSection(lines, "Утверждения", facts.Claims)
	lines = appendSection(lines, "Даты", facts.Dates)
	lines = appendSection(lines, "Числа", facts.Numbers)
	lines = appendSection(lines, "Имена", facts.Names)

	if len(candidates.Sources) == 0 {
		lines = append(lines, noSources)
		return Truncate(strings.Join(lines, "\n"))
	}
	lines = append(lines, sourcesHeader)
	for i, src := range candidates.Sources {
		if i == model.MaxSources {
			break
		}
		lines = append(lines, "- "+src)
	}
	return Truncate(strings.Join(lines, "\n"))
}

func appendSection(lines []string, title string, items []string) []string {
	if len(items) == 0 {
		return append(lines, title+": "+none, "")
	}
	lines = append(lines, title+":")
	for i, item := range items {
		if i == maxFactsPerKind {
			break
		}
		lines = append(lines, "- "+item)
	}
	return append(lines, "")
}

// Percent renders a confidence in [0,1] as a rounded percentage
func Percent(confidence float64) string {
	return fmt.Sprintf("%d%%", int(math.Round(confidence*100)))
}

// Truncate cuts text longer than MaxLength characters to MaxLength-1
// characters plus an ellipsis
func Truncate(text string) string {
	if utf8.RuneCountInString(text) <= MaxLength {
		return text
	}
	runes := []rune(text)
	return string(runes[:MaxLength-1]) + "…"
}
