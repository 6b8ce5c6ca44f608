// Package status tracks indexer health from connectivity checks and
// live operations.
package status

import "time"

// HealthStatus represents the overall health of an indexer.
type HealthStatus string

const (
	HealthStatusHealthy HealthStatus = "healthy"
	HealthStatusFailing HealthStatus = "failing"
	HealthStatusUnknown HealthStatus = "unknown"
)

// IndexerHealth provides a summary of indexer health.
type IndexerHealth struct {
	IndexerID    string       `json:"indexerId"`
	IndexerName  string       `json:"indexerName"`
	Status       HealthStatus `json:"status"`
	Message      string       `json:"message,omitempty"`
	FailureCount int          `json:"failureCount"`
	LastCheck    *time.Time   `json:"lastCheck,omitempty"`
	LastSuccess  *time.Time   `json:"lastSuccess,omitempty"`
	LastError    string       `json:"lastError,omitempty"`
}

// StatusStats provides statistics about indexer status.
type StatusStats struct {
	TotalIndexers     int `json:"totalIndexers"`
	HealthyIndexers   int `json:"healthyIndexers"`
	FailingIndexers   int `json:"failingIndexers"`
	UncheckedIndexers int `json:"uncheckedIndexers"`
}

// ComputeStats tallies health summaries into overall statistics.
func ComputeStats(healths []*IndexerHealth) StatusStats {
	stats := StatusStats{TotalIndexers: len(healths)}
	for _, h := range healths {
		switch h.Status {
		case HealthStatusHealthy:
			stats.HealthyIndexers++
		case HealthStatusFailing:
			stats.FailingIndexers++
		default:
			stats.UncheckedIndexers++
		}
	}
	return stats
}
