package models

// HealthCheckResponse returns the health check response struct, used by
// readiness probes.
type HealthCheckResponse struct {
	Alive bool `json:"alive"`
}
