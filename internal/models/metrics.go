package models

import "time"

// SystemMetrics is the aggregated runtime snapshot exposed on the admin
// status endpoint.
type SystemMetrics struct {
	RequestsTotal            uint64    `json:"requests_total"`
	AverageRequestDurationMs float64   `json:"average_request_duration_ms"`
	SnapshotLoads            uint64    `json:"snapshot_loads"`
	SnapshotDeliveries       uint64    `json:"snapshot_deliveries"`
	StreamClients            int64     `json:"stream_clients"`
	Goroutines               int       `json:"goroutines"`
	GeneratedAt              time.Time `json:"generated_at"`
}
