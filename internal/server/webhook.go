package server

import (
	"context"
	"crypto/subtle"
	"io"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/ppiankov/findorigin/internal/telegram"
)

// Bot replies
const (
	MsgUsage         = "Пришлите текст или ссылку на пост."
	MsgAnalysisError = "Не удалось завершить анализ. Проверьте настройки OpenAI."
)

const secretHeader = "X-Telegram-Bot-Api-Secret-Token"

// handleWebhook always acknowledges with 200 so Telegram does not redeliver.
// Only a wrong secret token is rejected.
func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	logger := s.loggerFrom(r.Context())

	if s.cfg.WebhookSecret != "" {
		got := r.Header.Get(secretHeader)
		if subtle.ConstantTimeCompare([]byte(got), []byte(s.cfg.WebhookSecret)) != 1 {
			logger.Warn("webhook secret mismatch")
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
	}

	defer ack(w)

	body, err := io.ReadAll(io.LimitReader(r.Body, s.cfg.MaxBodyBytes))
	if err != nil {
		logger.Warn("read webhook body", zap.Error(err))
		return
	}
	update, err := telegram.ParseUpdate(body)
	if err != nil {
		logger.Debug("ignoring malformed update", zap.Error(err))
		return
	}
	in, ok := update.Incoming()
	if !ok {
		logger.Debug("ignoring update without chat", zap.Int64("update_id", update.UpdateID))
		return
	}

	s.handleIncoming(r.Context(), logger, in)
}

func (s *Server) handleIncoming(ctx context.Context, logger *zap.Logger, in telegram.Incoming) {
	chatID := telegram.ChatIDString(in.ChatID)
	logger = logger.With(
		zap.String("chat_id", chatID),
		zap.Stringer("kind", in.Kind))

	text := strings.TrimSpace(in.Text)
	if text == "" || telegram.IsCommand(text, "start") || telegram.IsCommand(text, "help") {
		s.send(ctx, logger, chatID, MsgUsage)
		return
	}

	logger.Info("analyzing message", zap.Int("text_len", len([]rune(text))))
	result, err := s.runner.Run(ctx, text)
	if err != nil {
		logger.Error("pipeline failed", zap.Error(err))
		s.send(ctx, logger, chatID, MsgAnalysisError)
		return
	}

	logger.Info("analysis done",
		zap.Bool("used_telegram_fetch", result.Input.UsedTelegramFetch),
		zap.Int("search_results", len(result.Search)),
		zap.Duration("duration", result.Duration))
	s.send(ctx, logger, chatID, result.Reply)
}

// send logs delivery failures and otherwise ignores them. A finished reply
// is still delivered when Telegram has already dropped the inbound request.
func (s *Server) send(ctx context.Context, logger *zap.Logger, chatID, text string) {
	if s.sender == nil {
		logger.Warn("no telegram sender configured, dropping reply")
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.SendTimeout)
	defer cancel()
	if err := s.sender.SendMessage(ctx, chatID, text); err != nil {
		logger.Error("send telegram message", zap.Error(err))
	}
}

func ack(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, "ok")
}
