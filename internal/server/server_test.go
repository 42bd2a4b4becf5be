package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/zap"

	"github.com/ppiankov/findorigin/internal/model"
	"github.com/ppiankov/findorigin/internal/pipeline"
)

type stubRunner struct {
	mu     sync.Mutex
	inputs []string
	result *pipeline.Result
	err    error
}

func (r *stubRunner) Run(ctx context.Context, raw string) (*pipeline.Result, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.inputs = append(r.inputs, raw)
	if r.err != nil {
		return nil, r.err
	}
	return r.result, nil
}

type sentMessage struct {
	ChatID string
	Text   string
}

type stubSender struct {
	mu      sync.Mutex
	sent    []sentMessage
	ctxErrs []error
	err     error
}

func (s *stubSender) SendMessage(ctx context.Context, chatID string, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, sentMessage{ChatID: chatID, Text: text})
	s.ctxErrs = append(s.ctxErrs, ctx.Err())
	return s.err
}

// cancelingRunner cancels the inbound request context before returning,
// as happens when Telegram gives up on a slow webhook call
type cancelingRunner struct {
	cancel context.CancelFunc
	result *pipeline.Result
}

func (r *cancelingRunner) Run(ctx context.Context, raw string) (*pipeline.Result, error) {
	r.cancel()
	return r.result, nil
}

func newTestServer(cfg Config, runner Runner, sender Sender) http.Handler {
	return New(cfg, runner, sender, zap.NewNop()).Handler()
}

func post(t *testing.T, h http.Handler, path, body string, header http.Header) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	for k, v := range header {
		req.Header[k] = v
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealthz(t *testing.T) {
	h := newTestServer(Config{}, &stubRunner{}, &stubSender{})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if got := strings.TrimSpace(rec.Body.String()); got != `{"ok":true}` {
		t.Errorf("unexpected body %q", got)
	}
	if rec.Header().Get("X-Request-Id") == "" {
		t.Error("expected a request id header")
	}
}

func TestWebhook_Acknowledges(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		wantRun  []string
		wantSent []sentMessage
	}{
		{
			name: "malformed body",
			body: `{not json`,
		},
		{
			name: "no chat",
			body: `{"update_id":1,"message":{"message_id":2,"text":"hello"}}`,
		},
		{
			name:     "no text",
			body:     `{"update_id":1,"message":{"message_id":2,"chat":{"id":7}}}`,
			wantSent: []sentMessage{{ChatID: "7", Text: MsgUsage}},
		},
		{
			name:     "start command",
			body:     `{"update_id":1,"message":{"message_id":2,"chat":{"id":7},"text":"/start"}}`,
			wantSent: []sentMessage{{ChatID: "7", Text: MsgUsage}},
		},
		{
			name:     "text message",
			body:     `{"update_id":1,"message":{"message_id":2,"chat":{"id":7},"text":"  Новость дня  "}}`,
			wantRun:  []string{"Новость дня"},
			wantSent: []sentMessage{{ChatID: "7", Text: "reply"}},
		},
		{
			name:     "edited caption",
			body:     `{"update_id":1,"edited_message":{"message_id":2,"chat":{"id":-100},"caption":"Подпись"}}`,
			wantRun:  []string{"Подпись"},
			wantSent: []sentMessage{{ChatID: "-100", Text: "reply"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runner := &stubRunner{result: &pipeline.Result{Reply: "reply"}}
			sender := &stubSender{}
			h := newTestServer(Config{}, runner, sender)

			rec := post(t, h, "/api/webhook", tt.body, nil)

			if rec.Code != http.StatusOK || rec.Body.String() != "ok" {
				t.Fatalf("expected 200 ok, got %d %q", rec.Code, rec.Body.String())
			}
			if diff := cmp.Diff(tt.wantRun, runner.inputs); diff != "" {
				t.Errorf("runner inputs mismatch (-want +got):\n%s", diff)
			}
			if diff := cmp.Diff(tt.wantSent, sender.sent); diff != "" {
				t.Errorf("sent messages mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestWebhook_PipelineError(t *testing.T) {
	runner := &stubRunner{err: errors.New("analyze: LLM API key is not set")}
	sender := &stubSender{}
	h := newTestServer(Config{}, runner, sender)

	rec := post(t, h, "/api/webhook", `{"message":{"chat":{"id":42},"text":"Что-то случилось"}}`, nil)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	want := []sentMessage{{ChatID: "42", Text: MsgAnalysisError}}
	if diff := cmp.Diff(want, sender.sent); diff != "" {
		t.Errorf("sent messages mismatch (-want +got):\n%s", diff)
	}
}

func TestWebhook_DeliveryFailureStillAcknowledges(t *testing.T) {
	runner := &stubRunner{result: &pipeline.Result{Reply: "reply"}}
	sender := &stubSender{err: errors.New("telegram sendMessage failed: 403 Forbidden")}
	h := newTestServer(Config{}, runner, sender)

	rec := post(t, h, "/api/webhook", `{"message":{"chat":{"id":42},"text":"Текст"}}`, nil)

	if rec.Code != http.StatusOK || rec.Body.String() != "ok" {
		t.Errorf("expected 200 ok, got %d %q", rec.Code, rec.Body.String())
	}
}

func TestWebhook_ReplyOutlivesRequest(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	runner := &cancelingRunner{cancel: cancel, result: &pipeline.Result{Reply: "готово"}}
	sender := &stubSender{}
	h := newTestServer(Config{SendTimeout: time.Second}, runner, sender)

	req := httptest.NewRequest(http.MethodPost, "/api/webhook",
		strings.NewReader(`{"message":{"chat":{"id":7},"text":"Долгий анализ"}}`)).WithContext(ctx)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	want := []sentMessage{{ChatID: "7", Text: "готово"}}
	if diff := cmp.Diff(want, sender.sent); diff != "" {
		t.Fatalf("sent messages mismatch (-want +got):\n%s", diff)
	}
	if sender.ctxErrs[0] != nil {
		t.Errorf("expected a live delivery context after the request was dropped, got %v", sender.ctxErrs[0])
	}
}

func TestWebhook_Secret(t *testing.T) {
	runner := &stubRunner{result: &pipeline.Result{Reply: "reply"}}
	sender := &stubSender{}
	h := newTestServer(Config{WebhookSecret: "s3cret"}, runner, sender)
	body := `{"message":{"chat":{"id":1},"text":"Текст"}}`

	rec := post(t, h, "/api/webhook", body, http.Header{secretHeader: {"wrong"}})
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 for a wrong secret, got %d", rec.Code)
	}
	rec = post(t, h, "/api/webhook", body, nil)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 without a secret, got %d", rec.Code)
	}
	if len(runner.inputs) != 0 {
		t.Fatalf("rejected requests must not be processed, got %v", runner.inputs)
	}

	rec = post(t, h, "/api/webhook", body, http.Header{secretHeader: {"s3cret"}})
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200 for the right secret, got %d", rec.Code)
	}
	if len(runner.inputs) != 1 {
		t.Errorf("expected one run, got %d", len(runner.inputs))
	}
}

func TestWebhook_MethodNotAllowed(t *testing.T) {
	h := newTestServer(Config{}, &stubRunner{}, &stubSender{})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/webhook", nil))

	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("expected 405, got %d", rec.Code)
	}
}

func TestMiniApp(t *testing.T) {
	facts := model.ExtractedFacts{Dates: []string{"12.03.2024"}}
	analysis := &model.Analysis{
		Summary: "Итог",
		Sources: []model.Source{{Title: "A", URL: "https://a.example", Confidence: 0.5, Reason: "r"}},
	}

	tests := []struct {
		name       string
		body       string
		runner     *stubRunner
		wantStatus int
		wantBody   string
	}{
		{
			name:       "invalid json",
			body:       `text=hello`,
			runner:     &stubRunner{},
			wantStatus: http.StatusBadRequest,
			wantBody:   `{"error":"` + MsgBadRequest + `"}`,
		},
		{
			name:       "empty text",
			body:       `{"text":"   "}`,
			runner:     &stubRunner{},
			wantStatus: http.StatusBadRequest,
			wantBody:   `{"error":"` + MsgEmptyText + `"}`,
		},
		{
			name:       "pipeline failure",
			body:       `{"text":"Текст"}`,
			runner:     &stubRunner{err: errors.New("boom")},
			wantStatus: http.StatusInternalServerError,
			wantBody:   `{"error":"` + MsgMiniAppFail + `"}`,
		},
		{
			name:       "analysis",
			body:       `{"text":"Текст"}`,
			runner:     &stubRunner{result: &pipeline.Result{Facts: facts, Analysis: analysis}},
			wantStatus: http.StatusOK,
			wantBody:   `{"analysis":{"summary":"Итог","sources":[{"title":"A","url":"https://a.example","confidence":0.5,"reason":"r"}]},"facts":{"claims":null,"dates":["12.03.2024"],"numbers":null,"names":null,"links":null}}`,
		},
		{
			name:       "facts only",
			body:       `{"text":"Текст"}`,
			runner:     &stubRunner{result: &pipeline.Result{Facts: facts}},
			wantStatus: http.StatusOK,
			wantBody:   `{"analysis":{"summary":"","sources":[]},"facts":{"claims":null,"dates":["12.03.2024"],"numbers":null,"names":null,"links":null}}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestServer(Config{MiniAppEnabled: true}, tt.runner, nil)

			rec := post(t, h, "/api/miniapp/analyze", tt.body, nil)

			if rec.Code != tt.wantStatus {
				t.Errorf("expected status %d, got %d", tt.wantStatus, rec.Code)
			}
			if got := strings.TrimSpace(rec.Body.String()); got != tt.wantBody {
				t.Errorf("unexpected body:\n got  %s\n want %s", got, tt.wantBody)
			}
		})
	}
}

func TestMiniApp_TrimsText(t *testing.T) {
	runner := &stubRunner{result: &pipeline.Result{}}
	h := newTestServer(Config{MiniAppEnabled: true}, runner, nil)

	post(t, h, "/api/miniapp/analyze", `{"text":"  https://t.me/c/1 \n"}`, nil)

	if diff := cmp.Diff([]string{"https://t.me/c/1"}, runner.inputs); diff != "" {
		t.Errorf("runner inputs mismatch (-want +got):\n%s", diff)
	}
}

func TestMiniApp_Disabled(t *testing.T) {
	h := newTestServer(Config{MiniAppEnabled: false}, &stubRunner{}, nil)

	rec := post(t, h, "/api/miniapp/analyze", `{"text":"Текст"}`, nil)

	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 when the mini-app is disabled, got %d", rec.Code)
	}
}

func TestServeListener_Shutdown(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}

	srv := New(Config{ShutdownTimeout: time.Second}, &stubRunner{}, &stubSender{}, zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.ServeListener(ctx, ln) }()

	client := &http.Client{Timeout: 2 * time.Second}
	resp, err := client.Get(fmt.Sprintf("http://%s/healthz", ln.Addr()))
	if err != nil {
		cancel()
		t.Fatalf("GET /healthz: %v", err)
	}
	var body map[string]bool
	_ = json.NewDecoder(resp.Body).Decode(&body)
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()
	client.CloseIdleConnections()

	if !body["ok"] {
		t.Errorf("unexpected health body %v", body)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("ServeListener returned %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("server did not shut down")
	}
}
