package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/ppiankov/findorigin/internal/model"
	"github.com/ppiankov/findorigin/internal/pipeline"
)

// Mini-app error messages
const (
	MsgBadRequest  = "Неверный формат запроса."
	MsgEmptyText   = "Введите текст для анализа."
	MsgMiniAppFail = "Не удалось выполнить анализ."
)

type analyzeRequest struct {
	Text string `json:"text"`
}

type analyzeResponse struct {
	Analysis model.Analysis       `json:"analysis"`
	Facts    model.ExtractedFacts `json:"facts"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleMiniApp(w http.ResponseWriter, r *http.Request) {
	logger := s.loggerFrom(r.Context())

	var req analyzeRequest
	dec := json.NewDecoder(io.LimitReader(r.Body, s.cfg.MaxBodyBytes))
	if err := dec.Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: MsgBadRequest})
		return
	}

	text := strings.TrimSpace(req.Text)
	if text == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: MsgEmptyText})
		return
	}

	logger.Info("mini-app analysis", zap.Int("text_len", len([]rune(text))))
	result, err := s.runner.Run(r.Context(), text)
	if err != nil {
		if errors.Is(err, pipeline.ErrEmptyInput) {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: MsgEmptyText})
			return
		}
		logger.Error("mini-app analysis failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: MsgMiniAppFail})
		return
	}

	resp := analyzeResponse{
		Analysis: model.Analysis{Sources: []model.Source{}},
		Facts:    result.Facts,
	}
	if result.Analysis != nil {
		resp.Analysis = *result.Analysis
		if resp.Analysis.Sources == nil {
			resp.Analysis.Sources = []model.Source{}
		}
	}
	writeJSON(w, http.StatusOK, resp)
}
