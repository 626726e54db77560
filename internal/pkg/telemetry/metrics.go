// Package telemetry collects request and pipeline metrics for the ledger.
package telemetry

import (
	"encoding/json"
	"sync"
	"time"
)

// RequestMetric stores basic information about an HTTP request. Duration
// marshals as its string form (e.g. "1.2ms") for the JSON /metrics
// endpoint consumed by cmd/dashboard.
type RequestMetric struct {
	Endpoint string        `json:"endpoint"`
	Status   int           `json:"status"`
	Duration time.Duration `json:"-"`
}

// MarshalJSON renders Duration as its human-readable string form instead
// of a raw nanosecond count.
func (m RequestMetric) MarshalJSON() ([]byte, error) {
	type alias struct {
		Endpoint string `json:"endpoint"`
		Status   int    `json:"status"`
		Duration string `json:"duration"`
	}
	return json.Marshal(alias{Endpoint: m.Endpoint, Status: m.Status, Duration: m.Duration.String()})
}

var (
	mu         sync.Mutex
	metricList []RequestMetric
)

// Record adds a new metric entry in a thread-safe way.
func Record(endpoint string, status int, duration time.Duration) {
	mu.Lock()
	metricList = append(metricList, RequestMetric{Endpoint: endpoint, Status: status, Duration: duration})
	mu.Unlock()
}

// List returns a copy of the collected metrics.
func List() []RequestMetric {
	mu.Lock()
	defer mu.Unlock()
	copied := make([]RequestMetric, len(metricList))
	copy(copied, metricList)
	return copied
}
