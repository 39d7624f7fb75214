package domain

// ============================================================
// Health & Metrics API Responses
// ============================================================

// HealthStatus is returned by GET /healthz and GET /readyz.
type HealthStatus struct {
	Status   string          `json:"status"` // healthy, degraded, unhealthy
	Services []ServiceHealth `json:"services"`
}

// ServiceHealth represents the health of an individual dependency.
type ServiceHealth struct {
	Name        string `json:"name"`
	Status      string `json:"status"`
	LatencyMs   int64  `json:"latencyMs"`
	Error       string `json:"error,omitempty"`
	LastChecked string `json:"lastChecked"`
}

// AssistantMetrics is returned by GET /api/assistant/metrics.
type AssistantMetrics struct {
	TotalRequests       int64            `json:"totalRequests"`
	AvgLatencyMs        float64          `json:"avgLatencyMs"`
	ErrorRate           float64          `json:"errorRate"`
	AvgTokensPerRequest float64          `json:"avgTokensPerRequest"`
	EstimatedCostUsd    float64          `json:"estimatedCostUsd"`
	CacheHitRate        float64          `json:"cacheHitRate"`
	Visualizations      map[string]int64 `json:"visualizations"`
	Period              string           `json:"period"`
}
