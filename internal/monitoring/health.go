// internal/monitoring/health.go
package monitoring

import (
	"encoding/json"
	"net/http"
	"runtime"
	"time"
)

// HealthStatus represents the health of the process.
type HealthStatus string

const (
	HealthStatusHealthy  HealthStatus = "healthy"
	HealthStatusDegraded HealthStatus = "degraded"
)

// HealthReport is the payload served on the health endpoint.
type HealthReport struct {
	Status    HealthStatus  `json:"status"`
	Timestamp time.Time     `json:"timestamp"`
	Version   string        `json:"version,omitempty"`
	Uptime    time.Duration `json:"uptime"`
	ScanState string        `json:"scan_state,omitempty"`
	System    SystemMetrics `json:"system"`
}

// SystemMetrics carries basic process statistics.
type SystemMetrics struct {
	Goroutines  int    `json:"goroutines"`
	MemoryAlloc uint64 `json:"memory_alloc_bytes"`
	MemorySys   uint64 `json:"memory_sys_bytes"`
	GCCycles    uint32 `json:"gc_cycles"`
}

// Health builds health reports. scanState, when set, reports the current
// scan lifecycle phase so operators can see a stuck scan from the health
// endpoint.
type Health struct {
	version   string
	startedAt time.Time
	scanState func() string
}

// NewHealth creates a health reporter. scanState may be nil.
func NewHealth(version string, scanState func() string) *Health {
	return &Health{
		version:   version,
		startedAt: time.Now(),
		scanState: scanState,
	}
}

// Report builds the current health snapshot.
func (h *Health) Report() HealthReport {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	report := HealthReport{
		Status:    HealthStatusHealthy,
		Timestamp: time.Now(),
		Version:   h.version,
		Uptime:    time.Since(h.startedAt),
		System: SystemMetrics{
			Goroutines:  runtime.NumGoroutine(),
			MemoryAlloc: mem.Alloc,
			MemorySys:   mem.Sys,
			GCCycles:    mem.NumGC,
		},
	}
	if h.scanState != nil {
		report.ScanState = h.scanState()
	}
	return report
}

// Handler serves the health report as JSON.
func (h *Health) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(h.Report())
	})
}
