package handler

import (
	"context"
	"net/http"

	"github.com/boddenberg/onsite-analytics-go/internal/domain"
	"github.com/boddenberg/onsite-analytics-go/internal/infra/observability"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// DashboardService serves the read-only dashboard API. *service.Dashboard
// implements it.
type DashboardService interface {
	Stats(ctx context.Context) (*domain.DashboardStats, error)
	Users(ctx context.Context, f domain.ListFilter) (*domain.Page[domain.Profile], error)
	UserActivity(ctx context.Context, userID string) (*domain.UserActivitySummary, error)
	Sessions(ctx context.Context, f domain.ListFilter) (*domain.Page[domain.Registro], error)
	OpenSessions(ctx context.Context) ([]domain.Registro, error)
	Events(ctx context.Context, f domain.ListFilter) (*domain.Page[domain.AppEvent], error)
	EventTypes(ctx context.Context) ([]string, error)
	Telemetry(ctx context.Context, f domain.ListFilter) ([]domain.TelemetryDaily, error)
	DailyMetrics(ctx context.Context, days int) ([]domain.DailyMetrics, error)
}

// ============================================================
// Overview: GET /api/dashboard/stats
// ============================================================

func dashboardStatsHandler(svc DashboardService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /api/dashboard/stats")
		defer span.End()

		stats, err := svc.Stats(ctx)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, stats)
	}
}

// ============================================================
// Users
// ============================================================

func listUsersHandler(svc DashboardService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /api/users")
		defer span.End()

		f, err := parseListFilter(r)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		page, err := svc.Users(ctx, f)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, page)
	}
}

func userActivityHandler(svc DashboardService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /api/users/{userId}/activity")
		defer span.End()

		userID := chi.URLParam(r, "userId")
		span.SetAttributes(attribute.String("user.id", userID))

		summary, err := svc.UserActivity(ctx, userID)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, summary)
	}
}

// ============================================================
// Sessions (registros)
// ============================================================

func listSessionsHandler(svc DashboardService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /api/sessions")
		defer span.End()

		f, err := parseListFilter(r)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		page, err := svc.Sessions(ctx, f)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, page)
	}
}

func openSessionsHandler(svc DashboardService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /api/sessions/open")
		defer span.End()

		sessions, err := svc.OpenSessions(ctx)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, sessions)
	}
}

// ============================================================
// Events
// ============================================================

func listEventsHandler(svc DashboardService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /api/events")
		defer span.End()

		f, err := parseListFilter(r)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		page, err := svc.Events(ctx, f)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, page)
	}
}

func eventTypesHandler(svc DashboardService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /api/events/types")
		defer span.End()

		types, err := svc.EventTypes(ctx)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, types)
	}
}

// ============================================================
// Telemetry
// ============================================================

func telemetryHandler(svc DashboardService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /api/telemetry")
		defer span.End()

		f, err := parseListFilter(r)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		rows, err := svc.Telemetry(ctx, f)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, rows)
	}
}

func dailyMetricsHandler(svc DashboardService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /api/telemetry/daily")
		defer span.End()

		days, err := queryInt(r, "days", 0, 365)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		metrics, err := svc.DailyMetrics(ctx, days)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, metrics)
	}
}

// ============================================================
// Assistant metrics: GET /api/assistant/metrics
// ============================================================

func assistantMetricsHandler(metrics *observability.Metrics) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, metrics.GetAssistantSnapshot())
	}
}
