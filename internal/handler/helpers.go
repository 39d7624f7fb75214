package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/boddenberg/onsite-analytics-go/internal/domain"
	"github.com/boddenberg/onsite-analytics-go/internal/port"

	"go.uber.org/zap"
)

// ============================================================
// Shared helper functions
// ============================================================

type errorResponse struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// handleServiceError maps domain errors of the dashboard API to HTTP responses.
func handleServiceError(w http.ResponseWriter, err error, logger *zap.Logger) {
	var notFound *domain.ErrNotFound
	var circuitOpen *domain.ErrCircuitOpen
	var validation *domain.ErrValidation
	var storeFailure *domain.ErrStoreFailure

	switch {
	case errors.As(err, &validation):
		logger.Debug("validation error", zap.String("error", err.Error()))
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.As(err, &notFound):
		logger.Debug("not found", zap.String("error", err.Error()))
		writeError(w, http.StatusNotFound, err.Error())
	case errors.As(err, &circuitOpen):
		logger.Error("circuit breaker open", zap.Error(err))
		writeError(w, http.StatusServiceUnavailable, err.Error())
	case errors.As(err, &storeFailure):
		logger.Error("store failure", zap.String("op", storeFailure.Op), zap.Error(err))
		writeError(w, http.StatusBadGateway, err.Error())
	default:
		logger.Error("unhandled error", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

// ============================================================
// Query string parsing
// ============================================================

func queryInt(r *http.Request, name string, def, max int) (int, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, &domain.ErrValidation{Field: name, Message: "must be a non-negative integer"}
	}
	if max > 0 && n > max {
		n = max
	}
	return n, nil
}

func queryTime(r *http.Request, name string) (*time.Time, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return nil, nil
	}
	t, err := port.ParseTimestamp(v)
	if err != nil {
		return nil, &domain.ErrValidation{Field: name, Message: "must be an ISO-8601 date or timestamp"}
	}
	return &t, nil
}

// parseListFilter reads limit, offset, user_id, event_type, from and to.
// A zero limit leaves the default to the service.
func parseListFilter(r *http.Request) (domain.ListFilter, error) {
	var f domain.ListFilter
	var err error
	if f.Limit, err = queryInt(r, "limit", 0, domain.MaxPageSize); err != nil {
		return f, err
	}
	if f.Offset, err = queryInt(r, "offset", 0, 0); err != nil {
		return f, err
	}
	if f.From, err = queryTime(r, "from"); err != nil {
		return f, err
	}
	if f.To, err = queryTime(r, "to"); err != nil {
		return f, err
	}
	if f.From != nil && f.To != nil && f.To.Before(*f.From) {
		return f, &domain.ErrValidation{Field: "to", Message: "must not be before from"}
	}
	f.UserID = r.URL.Query().Get("user_id")
	f.EventType = r.URL.Query().Get("event_type")
	return f, nil
}
