package api

// HealthResponse is the payload for GET /api/v1/health.
type HealthResponse struct {
	State         string `json:"state"` // ok | degraded | unknown
	AnalysisCount int    `json:"analysis_count"`
	OKCount       int    `json:"ok_count"`
	ErrorCount    int    `json:"error_count"`
	Generation    uint64 `json:"generation"`
}

// AnalysisResponse is one analysis in GET /api/v1/analyses or
// GET /api/v1/analyses/{name}.
type AnalysisResponse struct {
	Name        string           `json:"name"`
	State       string           `json:"state"` // ok | error
	Error       string           `json:"error,omitempty"`
	Fingerprint string           `json:"fingerprint,omitempty"`
	ComputedAt  string           `json:"computed_at"` // RFC3339
	DurationMs  float64          `json:"duration_ms"`
	Cached      bool             `json:"cached"`
	GridPoints  int              `json:"grid_points"`
	MaxRate     float64          `json:"max_rate"`
	Searches    []SearchResponse `json:"searches"`
	Limits      []LimitResponse  `json:"limits"`
	LastUpdated string           `json:"last_updated"` // RFC3339
}

// SearchResponse is one resolved search of an analysis.
type SearchResponse struct {
	Name        string  `json:"name"`
	Kind        string  `json:"kind"`
	Livetime    float64 `json:"livetime"`
	Volume      float64 `json:"volume"`
	VolumeError float64 `json:"volume_error"`
	Background  float64 `json:"background"`
}

// LimitResponse holds the credible statements at one confidence level.
type LimitResponse struct {
	Confidence   float64    `json:"confidence"`
	Upper        float64    `json:"upper"`
	MinWidth     [2]float64 `json:"min_width"`
	HPD          [2]float64 `json:"hpd"`
	HPDThreshold float64    `json:"hpd_threshold"`
}

// UpperResponse is the payload for GET /api/v1/analyses/{name}?confidence=c.
type UpperResponse struct {
	Name       string  `json:"name"`
	Confidence float64 `json:"confidence"`
	Upper      float64 `json:"upper"`
}

// SnapshotResponse is the payload for GET /api/v1/snapshot.
type SnapshotResponse struct {
	Analyses    []AnalysisResponse `json:"analyses"`
	GeneratedAt string             `json:"generated_at"` // RFC3339
}

// errorResponse is a generic JSON error body.
type errorResponse struct {
	Error string `json:"error"`
}
