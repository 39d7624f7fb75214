package domain

// ============================================================
// Agregados: valores pequenos calculados a partir do store
// ============================================================

// BaseMetrics is the live snapshot injected into every assistant prompt.
type BaseMetrics struct {
	TotalUsers      int `json:"totalUsers"`
	TotalSessions   int `json:"totalSessions"`
	ActiveLocations int `json:"activeLocations"`
	AutomationRate  int `json:"automationRate"` // percent, 0..100
	LoginsToday     int `json:"loginsToday"`
}

// CohortPoint counts users created in a given month ("YYYY-MM").
type CohortPoint struct {
	Month string `json:"month"`
	Count int    `json:"count"`
}

// DailyPoint counts sessions created on a given day ("MM/DD").
type DailyPoint struct {
	Day   string `json:"day"`
	Count int    `json:"count"`
}

// EntryTypeSplit is one bucket of the automatic vs manual partition.
type EntryTypeSplit struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}

// Entry type labels as shown to the operator.
const (
	EntryTypeAutomatic = "Automático"
	EntryTypeManual    = "Manual"
)

// UserLoginCount is the number of login events of one user.
type UserLoginCount struct {
	DisplayName string `json:"displayName"`
	Count       int    `json:"count"`
}

// TableRows is a fixed-column projection of the most recent rows of one entity.
type TableRows struct {
	Columns []string         `json:"columns"`
	Rows    []map[string]any `json:"rows"`
}

// TableEntity names the entities that can be rendered as a table.
type TableEntity string

const (
	TableUsers    TableEntity = "users"
	TableSessions TableEntity = "sessions"
	TableEvents   TableEntity = "events"
)
