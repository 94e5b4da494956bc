// Package models defines the data types shared between the collector,
// the anomaly pipeline and the ProcSentry API.
package models

import "time"

// ProcessRecord is one process's resource-usage measurement at a poll instant.
// Produced by the collector (or pushed by an external one); measurement fields
// are never mutated after creation.
type ProcessRecord struct {
	PID     int32  `json:"pid"`
	Name    string `json:"name"`
	Cmdline string `json:"cmdline,omitempty"`

	// ── Resource usage ───────────────────────────────────────────────────────
	CPUPercent     float64 `json:"cpu_percent"`    // percent 0-100 (may exceed 100 on multi-core)
	MemoryPercent  float64 `json:"memory_percent"` // percent 0-100
	NumThreads     int32   `json:"num_threads"`
	NumConnections int     `json:"num_connections"` // inet sockets
	NumFiles       int     `json:"num_files"`       // open file handles

	// Suspicious is set by the pattern classifier over name and command line,
	// independent of the reconstruction pipeline.
	Suspicious bool `json:"suspicious,omitempty"`
}

// Snapshot is the ordered set of process records observed at one poll.
type Snapshot struct {
	TakenAt   time.Time       `json:"taken_at"`
	Processes []ProcessRecord `json:"processes"`
}
