package models

// Stats is the aggregate snapshot returned by the stats endpoint and logged
// by the hourly scheduler job.
type Stats struct {
	Reports     ReportStats     `json:"reports"`
	Rescuers    RescuerStats    `json:"rescuers"`
	Connections ConnectionStats `json:"connections"`
}

// ReportStats breaks the report population down by lifecycle state and by
// severity.
type ReportStats struct {
	Total      int64              `json:"total"`
	ByStatus   map[Status]int64   `json:"byStatus"`
	BySeverity map[Severity]int64 `json:"bySeverity"`
}

// RescuerStats counts registered rescuers and how many are currently
// active.
type RescuerStats struct {
	Total  int64 `json:"total"`
	Active int64 `json:"active"`
}

// ConnectionStats counts live websocket connections.
type ConnectionStats struct {
	Total    int `json:"total"`
	Rescuers int `json:"rescuers"`
}
