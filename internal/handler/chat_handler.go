// Package handler: chat_handler.go implementa POST /api/ai/chat, a entrada
// do assistente de analytics.
//
// O handler é fino: decodifica o body, delega pro Assistant e traduz erros.
// Falhas do store ou do LLM viram 500 no mesmo formato da resposta de
// sucesso, pra UI mostrar a mensagem no próprio chat.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/boddenberg/onsite-analytics-go/internal/domain"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// ChatService answers one chat turn. *assistant.Assistant implements it.
type ChatService interface {
	Handle(ctx context.Context, req *domain.ChatRequest) (*domain.ChatResponse, error)
}

const chatErrorPrefix = "Eita, deu um erro aqui: "

func chatHandler(svc ChatService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /api/ai/chat")
		defer span.End()

		var req domain.ChatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, domain.ChatResponse{Message: "invalid request body: " + err.Error()})
			return
		}
		span.SetAttributes(attribute.Int("chat.history_len", len(req.History)))

		resp, err := svc.Handle(ctx, &req)
		if err != nil {
			span.RecordError(err)
			var validation *domain.ErrValidation
			if errors.As(err, &validation) {
				writeJSON(w, http.StatusBadRequest, domain.ChatResponse{Message: err.Error()})
				return
			}
			logger.Error("chat handler: request failed", zap.Error(err))
			writeJSON(w, http.StatusInternalServerError, domain.ChatResponse{Message: chatErrorPrefix + err.Error()})
			return
		}

		span.SetAttributes(attribute.Bool("chat.visualization", resp.Visualization != nil))
		writeJSON(w, http.StatusOK, resp)
	}
}
