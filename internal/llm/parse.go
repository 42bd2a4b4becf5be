package llm

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/ppiankov/findorigin/internal/model"
)

// ParseFailedSummary replaces the summary when the model output is not JSON
const ParseFailedSummary = "Не удалось разобрать ответ AI."

// ParseAnalysis decodes model output. It tries the whole text, then the span
// from the first '{' to the last '}', and degrades to ParseFailedSummary.
// allowed restricts source URLs; nil disables the restriction.
func ParseAnalysis(raw string, allowed []string) model.Analysis {
	obj, ok := decodeObject(raw)
	if !ok {
		first := strings.Index(raw, "{")
		last := strings.LastIndex(raw, "}")
		if first >= 0 && last > first {
			obj, ok = decodeObject(raw[first : last+1])
		}
	}
	if !ok {
		return model.Analysis{Summary: ParseFailedSummary, Sources: []model.Source{}}
	}
	return Sanitize(obj, allowed)
}

func decodeObject(s string) (map[string]any, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, false
	}
	var obj map[string]any
	if err := json.Unmarshal([]byte(s), &obj); err != nil || obj == nil {
		return nil, false
	}
	return obj, true
}

// Sanitize coerces a decoded JSON object into an Analysis: strings trimmed,
// confidence clamped to [0,1], sources without a URL or outside allowed
// dropped, at most model.MaxSources kept
func Sanitize(raw map[string]any, allowed []string) model.Analysis {
	a := model.Analysis{Sources: []model.Source{}}
	if s, ok := raw["summary"].(string); ok {
		a.Summary = strings.TrimSpace(s)
	}

	items, _ := raw["sources"].([]any)
	for _, item := range items {
		obj, ok := item.(map[string]any)
		if !ok {
			continue
		}
		u, ok := obj["url"].(string)
		if !ok {
			continue
		}
		a.Sources = append(a.Sources, model.Source{
			Title:      stringify(obj["title"]),
			URL:        u,
			Confidence: toConfidence(obj["confidence"]),
			Reason:     stringify(obj["reason"]),
		})
	}

	return SanitizeAnalysis(a, allowed)
}

// SanitizeAnalysis applies the same rules to a typed Analysis. It is
// idempotent.
func SanitizeAnalysis(a model.Analysis, allowed []string) model.Analysis {
	var allowSet map[string]bool
	if allowed != nil {
		allowSet = make(map[string]bool, len(allowed))
		for _, u := range allowed {
			allowSet[strings.TrimSpace(u)] = true
		}
	}

	out := model.Analysis{
		Summary: strings.TrimSpace(a.Summary),
		Sources: make([]model.Source, 0, model.MaxSources),
	}
	for _, src := range a.Sources {
		if len(out.Sources) == model.MaxSources {
			break
		}
		src.URL = strings.TrimSpace(src.URL)
		if src.URL == "" {
			continue
		}
		if allowSet != nil && !allowSet[src.URL] {
			continue
		}
		src.Title = strings.TrimSpace(src.Title)
		src.Reason = strings.TrimSpace(src.Reason)
		src.Confidence = clamp(src.Confidence)
		out.Sources = append(out.Sources, src)
	}
	return out
}

func stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return strings.TrimSpace(fmt.Sprint(t))
		}
		return string(b)
	}
}

// toConfidence accepts numbers and numeric strings; anything else is 0
func toConfidence(v any) float64 {
	switch t := v.(type) {
	case float64:
		return clamp(t)
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return 0
		}
		return clamp(f)
	default:
		return 0
	}
}

func clamp(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Max(0, math.Min(1, v))
}
