package models

// ClipResponse is the response for POST /api/v1/clip.
type ClipResponse struct {
	Success bool         `json:"success"`
	Report  *ClipReport  `json:"report,omitempty"`
	Cached  bool         `json:"cached,omitempty"`
	Error   *ErrorDetail `json:"error,omitempty"`
}

// HealthResponse is the response for GET /api/v1/health.
type HealthResponse struct {
	Status  string      `json:"status"` // "healthy" or "degraded"
	Uptime  string      `json:"uptime"`
	Windows WindowStats `json:"windows"`
	Version string      `json:"version"`
}
