package reply

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/google/go-cmp/cmp"
	"github.com/ppiankov/findorigin/internal/model"
)

func TestBuild(t *testing.T) {
	link := &model.TelegramLink{URL: "https://t.me/somechannel/42", Channel: "somechannel", MessageID: "42"}

	tests := []struct {
		name     string
		input    model.ResolvedInput
		analysis model.Analysis
		want     string
	}{
		{
			name:     "fetched post with sources",
			input:    model.ResolvedInput{Text: "post", OriginalText: link.URL, TelegramLink: link, UsedTelegramFetch: true},
			analysis: model.Analysis{
				Summary: "  Новость пересказана из отчета.  ",
				Sources: []model.Source{
					{Title: "Отчет", URL: "https://example.com/a", Confidence: 0.856},
					{URL: "https://example.com/b", Confidence: 0.3},
				},
			},
			want: "Текст извлечен из Telegram-поста.\n" +
				"\n" +
				"Краткий вывод:\n" +
				"Новость пересказана из отчета.\n" +
				"\n" +
				"Возможные источники:\n" +
				"- Отчет (86%)\n" +
				"  https://example.com/a\n" +
				"- https://example.com/b (30%)",
		},
		{
			name:     "fetch failed without summary",
			input:    model.ResolvedInput{Text: link.URL, OriginalText: link.URL, TelegramLink: link},
			analysis: model.Analysis{Summary: "   "},
			want: "Не удалось извлечь текст поста, использую текст сообщения.\n" +
				"\n" +
				"Возможные источники: не найдены.",
		},
		{
			name:     "plain message",
			input:    model.ResolvedInput{Text: "t", OriginalText: "t"},
			analysis: model.Analysis{Summary: "итог"},
			want: "Текст взят из сообщения.\n" +
				"\n" +
				"Краткий вывод:\n" +
				"итог\n" +
				"\n" +
				"Возможные источники: не найдены.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, Build(tt.input, tt.analysis)); diff != "" {
				t.Errorf("reply mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestBuild_Deterministic(t *testing.T) {
	in := model.ResolvedInput{Text: "t", OriginalText: "t"}
	a := model.Analysis{Summary: "s", Sources: []model.Source{{URL: "https://a.example", Confidence: 0.5}}}
	if Build(in, a) != Build(in, a) {
		t.Error("Build is not deterministic")
	}
}

func TestBuildFacts(t *testing.T) {
	in := model.ResolvedInput{Text: "t", OriginalText: "t"}
	facts := model.ExtractedFacts{
		Claims:  []string{"1.", "2.", "3.", "4.", "5."},
		Dates:   []string{"12.03.2024"},
		Numbers: []string{"1", "2", "3", "4", "5", "6"},
	}
	candidates := model.CandidateSources{Sources: []string{"https://a.example", "https://b.example", "https://c.example", "https://d.example"}}

	want := strings.Join([]string{
		"Текст взят из сообщения.",
		"",
		"Утверждения:",
		"- 1.", "- 2.", "- 3.", "- 4.", "- 5.",
		"",
		"Даты:",
		"- 12.03.2024",
		"",
		"Числа:",
		"- 1", "- 2", "- 3", "- 4", "- 5",
		"",
		"Имена: нет",
		"",
		"Возможные источники:",
		"- https://a.example",
		"- https://b.example",
		"- https://c.example",
	}, "\n")

	if diff := cmp.Diff(want, BuildFacts(in, facts, candidates)); diff != "" {
		t.Errorf("reply mismatch (-want +got):\n%s", diff)
	}
}

func TestBuildFacts_NoSources(t *testing.T) {
	got := BuildFacts(model.ResolvedInput{}, model.ExtractedFacts{}, model.CandidateSources{})
	if !strings.HasSuffix(got, "Возможные источники: не найдены.") {
		t.Errorf("expected no-sources line, got %q", got)
	}
	if strings.Count(got, ": нет") != 4 {
		t.Errorf("expected all four categories marked empty, got %q", got)
	}
}

func TestTruncate(t *testing.T) {
	short := strings.Repeat("я", MaxLength)
	if got := Truncate(short); got != short {
		t.Error("text at the limit must not change")
	}

	long := strings.Repeat("я", MaxLength+10)
	got := Truncate(long)
	if n := utf8.RuneCountInString(got); n != MaxLength {
		t.Errorf("expected exactly %d characters, got %d", MaxLength, n)
	}
	if !strings.HasSuffix(got, "…") || strings.HasSuffix(strings.TrimSuffix(got, "…"), "…") {
		t.Errorf("expected a single trailing ellipsis")
	}
}

func TestBuild_LongSummaryIsBounded(t *testing.T) {
	a := model.Analysis{Summary: strings.Repeat("очень длинный вывод ", 400)}
	got := Build(model.ResolvedInput{}, a)
	if n := utf8.RuneCountInString(got); n != MaxLength {
		t.Errorf("expected exactly %d characters, got %d", MaxLength, n)
	}
	if !strings.HasSuffix(got, "…") {
		t.Error("expected trailing ellipsis")
	}
}

func TestPercent(t *testing.T) {
	tests := map[float64]string{0: "0%", 1: "100%", 0.005: "1%", 0.124: "12%", 0.5: "50%"}
	for in, want := range tests {
		if got := Percent(in); got != want {
			t.Errorf("Percent(%v) = %s, want %s", in, got, want)
		}
	}
}
