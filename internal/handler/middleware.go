package handler

import (
	"net/http"
	"time"

	"github.com/boddenberg/onsite-analytics-go/internal/domain"

	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"go.uber.org/zap"
)

// corsMiddleware lets the dashboard frontend call the API from its own origin.
func corsMiddleware(origins []string) func(http.Handler) http.Handler {
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	return cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: false,
		MaxAge:           300,
	})
}

// chatRateLimit bounds POST /api/ai/chat per client IP. Every chat turn is
// an LLM call, so the limit protects the token budget. perMinute <= 0
// disables it.
func chatRateLimit(perMinute int, logger *zap.Logger) func(http.Handler) http.Handler {
	if perMinute <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	return httprate.Limit(
		perMinute,
		time.Minute,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			logger.Warn("chat: rate limited", zap.String("remote_addr", r.RemoteAddr))
			writeJSON(w, http.StatusTooManyRequests, domain.ChatResponse{
				Message: "Calma aí, muitas perguntas em pouco tempo. Tenta de novo em um minuto.",
			})
		}),
	)
}
