package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/boddenberg/onsite-analytics-go/internal/domain"
	"github.com/boddenberg/onsite-analytics-go/internal/infra/observability"
	"github.com/boddenberg/onsite-analytics-go/internal/port"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("handler")

const readinessTimeout = 2 * time.Second

// Options tunes the HTTP surface.
type Options struct {
	CORSAllowedOrigins []string
	ChatRateLimit      int // requests per minute per IP, 0 disables
}

// NewRouter creates the HTTP router with all routes and middleware.
// chat, dash and store may be nil; the matching routes are then not mounted
// (store nil means /readyz only reports the API itself).
func NewRouter(chat ChatService, dash DashboardService, store port.Store, opts Options, metrics *observability.Metrics, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()

	// --- Middleware ---
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(observability.ZapLoggerMiddleware(logger))
	r.Use(observability.TracingMiddleware)
	r.Use(observability.MetricsMiddleware(metrics))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Heartbeat("/ping"))
	r.Use(corsMiddleware(opts.CORSAllowedOrigins))

	// --- Operational endpoints ---
	r.Get("/healthz", healthzHandler())
	r.Get("/readyz", readyzHandler(store, logger))
	r.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))

	r.Route("/api", func(r chi.Router) {

		// =============================================
		// 1. 🤖 Assistente de analytics
		// POST /api/ai/chat
		// =============================================
		if chat != nil {
			r.With(chatRateLimit(opts.ChatRateLimit, logger)).Post("/ai/chat", chatHandler(chat, logger))
		}
		r.Get("/assistant/metrics", assistantMetricsHandler(metrics))

		if dash == nil {
			return
		}

		// =============================================
		// 2. 📊 Dashboard
		// =============================================
		r.Get("/dashboard/stats", dashboardStatsHandler(dash, logger))

		r.Get("/users", listUsersHandler(dash, logger))
		r.Get("/users/{userId}/activity", userActivityHandler(dash, logger))

		r.Get("/sessions", listSessionsHandler(dash, logger))
		r.Get("/sessions/open", openSessionsHandler(dash, logger))

		r.Get("/events", listEventsHandler(dash, logger))
		r.Get("/events/types", eventTypesHandler(dash, logger))

		r.Get("/telemetry", telemetryHandler(dash, logger))
		r.Get("/telemetry/daily", dailyMetricsHandler(dash, logger))
	})

	return r
}

// ============================================================
// Operational
// ============================================================

func healthzHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, domain.HealthStatus{
			Status: "healthy",
			Services: []domain.ServiceHealth{
				{Name: "onsite-analytics", Status: "healthy", LastChecked: time.Now().UTC().Format(time.RFC3339)},
			},
		})
	}
}

// pinger is implemented by stores with a native liveness check (Postgres).
type pinger interface {
	Ping(ctx context.Context) error
}

// readyzHandler pings the store when it can and then probes it with a cheap count. A failing store makes
// the service unready (503) so the load balancer stops routing to it.
func readyzHandler(store port.Store, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		now := time.Now().UTC().Format(time.RFC3339)
		services := []domain.ServiceHealth{
			{Name: "onsite-analytics", Status: "healthy", LastChecked: now},
		}
		overall, code := "healthy", http.StatusOK

		if store != nil {
			ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
			defer cancel()

			start := time.Now()
			var err error
			if p, ok := store.(pinger); ok {
				err = p.Ping(ctx)
			}
			if err == nil {
				_, err = store.Count(ctx, port.From(port.TableLocais))
			}
			check := domain.ServiceHealth{
				Name:        "store",
				Status:      "healthy",
				LatencyMs:   time.Since(start).Milliseconds(),
				LastChecked: now,
			}
			if err != nil {
				logger.Warn("readyz: store unavailable", zap.Error(err))
				check.Status = "unhealthy"
				check.Error = err.Error()
				overall, code = "unhealthy", http.StatusServiceUnavailable
			}
			services = append(services, check)
		}

		writeJSON(w, code, domain.HealthStatus{Status: overall, Services: services})
	}
}
