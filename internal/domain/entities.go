package domain

import "time"

// ============================================================
// Tabelas do OnSite (somente leitura)
// ============================================================

// Profile is a row of the profiles table.
type Profile struct {
	ID             string  `json:"id"`
	Email          string  `json:"email"`
	Nome           string  `json:"nome"`
	Trade          *string `json:"trade"`
	DevicePlatform *string `json:"device_platform"`
	DeviceModel    *string `json:"device_model"`
	Timezone       *string `json:"timezone"`
	CreatedAt      string  `json:"created_at"`
	UpdatedAt      *string `json:"updated_at"`
}

// Registro is a work session (time entry).
type Registro struct {
	ID        string  `json:"id"`
	UserID    string  `json:"user_id"`
	LocalID   string  `json:"local_id"`
	LocalNome *string `json:"local_nome"`
	Entrada   string  `json:"entrada"`
	Saida     *string `json:"saida"`
	Tipo      string  `json:"tipo"` // automatico | manual
	CreatedAt string  `json:"created_at"`
}

// AppEvent is a usage event (login, logout, ...).
type AppEvent struct {
	ID         string         `json:"id"`
	UserID     *string        `json:"user_id"`
	EventType  string         `json:"event_type"`
	EventData  map[string]any `json:"event_data"`
	AppVersion *string        `json:"app_version"`
	OSVersion  *string        `json:"os_version"`
	CreatedAt  string         `json:"created_at"`
}

// TelemetryDaily is one row of timekeeper_telemetry_daily.
type TelemetryDaily struct {
	ID                   string   `json:"id"`
	UserID               string   `json:"user_id"`
	Date                 string   `json:"date"`
	AppOpens             int      `json:"app_opens"`
	ManualEntriesCount   int      `json:"manual_entries_count"`
	GeofenceEntriesCount int      `json:"geofence_entries_count"`
	GeofenceTriggers     int      `json:"geofence_triggers"`
	GeofenceAccuracyAvg  *float64 `json:"geofence_accuracy_avg"`
	SyncAttempts         int      `json:"sync_attempts"`
	SyncFailures         int      `json:"sync_failures"`
	BatteryLevelAvg      *float64 `json:"battery_level_avg"`
	CreatedAt            string   `json:"created_at"`
}

// Valores conhecidos de colunas.
const (
	TipoAutomatico = "automatico"
	TipoManual     = "manual"

	EventLogin = "login"

	LocalStatusActive = "active"
)

// ============================================================
// Dashboard: agregados consumidos pelas páginas
// ============================================================

// DashboardStats is returned by GET /api/dashboard/stats.
type DashboardStats struct {
	TotalUsers         int `json:"totalUsers"`
	ActiveUsersToday   int `json:"activeUsersToday"`
	ActiveUsersWeek    int `json:"activeUsersWeek"`
	TotalSessions      int `json:"totalSessions"`
	TotalHoursWorked   int `json:"totalHoursWorked"`
	AvgSessionDuration int `json:"avgSessionDuration"` // minutes
}

// UserActivitySummary is returned by GET /api/users/{userId}/activity.
type UserActivitySummary struct {
	UserID            string  `json:"userId"`
	Email             string  `json:"email"`
	Nome              string  `json:"nome"`
	LastSeenAt        *string `json:"lastSeenAt"`
	TotalSessions     int     `json:"totalSessions"`
	TotalHours        int     `json:"totalHours"`
	AvgSessionMinutes int     `json:"avgSessionMinutes"`
	LocaisCount       int     `json:"locaisCount"`
}

// DailyMetrics aggregates telemetry rows of one date.
type DailyMetrics struct {
	Date            string   `json:"date"`
	Users           int      `json:"users"`
	Sessions        int      `json:"sessions"`
	AvgAccuracy     *float64 `json:"avgAccuracy"`
	SyncSuccessRate float64  `json:"syncSuccessRate"`
}

// Page wraps a paginated list result.
type Page[T any] struct {
	Data       []T `json:"data"`
	Count      int `json:"count"`
	Page       int `json:"page"`
	PageSize   int `json:"pageSize"`
	TotalPages int `json:"totalPages"`
}

// ListFilter narrows the paginated dashboard lists. Zero values mean
// "no filter"; Limit defaults to DefaultPageSize.
type ListFilter struct {
	Limit     int
	Offset    int
	UserID    string
	EventType string
	From      *time.Time
	To        *time.Time
}

// Paging bounds.
const (
	DefaultPageSize = 50
	MaxPageSize     = 1000
)

// NewPage builds a Page from a slice, the total count and the paging used.
func NewPage[T any](data []T, count, limit, offset int) *Page[T] {
	if data == nil {
		data = []T{}
	}
	if limit <= 0 {
		limit = DefaultPageSize
	}
	return &Page[T]{
		Data:       data,
		Count:      count,
		Page:       offset/limit + 1,
		PageSize:   limit,
		TotalPages: (count + limit - 1) / limit,
	}
}
