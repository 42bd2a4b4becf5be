package llm

import (
	"fmt"
	"strings"

	"github.com/ppiankov/findorigin/internal/model"
	"github.com/ppiankov/findorigin/internal/search"
)

// SystemPrompt pins the answer to a bare JSON object
const SystemPrompt = "Отвечай строго JSON-объектом с полями summary (строка) и sources (массив до 3 объектов). " +
	"Каждый объект источника: title, url, confidence (0..1), reason. " +
	"Никакого текста вне JSON."

// BuildPrompt constructs the user prompt. With search results the model may
// cite only their links, otherwise only links found in the text.
func BuildPrompt(text string, facts model.ExtractedFacts, results []search.Result) string {
	lines := []string{
		"Ты помощник по поиску первоисточников.",
		"Сравни смысл исходного текста и предложи краткий вывод.",
	}
	if len(results) > 0 {
		lines = append(lines, "Не выдумывай источники. Используй только ссылки из результатов поиска ниже.")
	} else {
		lines = append(lines, "Не выдумывай источники. Используй только ссылки, которые есть в исходном тексте.")
	}
	lines = append(lines,
		fmt.Sprintf("Верни от 0 до %d источников. Если подходящих ссылок нет, верни пустой список sources.", model.MaxSources),
		`Формат ответа: {"summary": "...", "sources": [{"title": "...", "url": "...", "confidence": 0.0, "reason": "..."}]}`,
		"",
		"Исходный текст:",
		text,
		"",
		"Извлеченные факты:",
		"Утверждения: "+joinOrNone(facts.Claims, " | "),
		"Даты: "+joinOrNone(facts.Dates, ", "),
		"Числа: "+joinOrNone(facts.Numbers, ", "),
		"Имена: "+joinOrNone(facts.Names, ", "),
		"Ссылки: "+joinOrNone(facts.Links, ", "),
	)

	if len(results) > 0 {
		lines = append(lines, "", "Результаты поиска:")
		for i, r := range results {
			lines = append(lines, fmt.Sprintf("%d. %s", i+1, strings.TrimSpace(r.Title)), "   "+r.Link)
			if snippet := strings.TrimSpace(r.Snippet); snippet != "" {
				lines = append(lines, "   "+snippet)
			}
		}
	}

	return strings.Join(lines, "\n")
}

func joinOrNone(items []string, sep string) string {
	if len(items) == 0 {
		return "нет"
	}
	return strings.Join(items, sep)
}
