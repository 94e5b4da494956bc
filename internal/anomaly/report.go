package anomaly

import (
	"time"

	"github.com/vesaa/procsentry/internal/models"
)

// Anomaly is a process record flagged by the detector, with an attributed
// reason and its reconstruction-error score.
type Anomaly struct {
	models.ProcessRecord
	Reason string  `json:"reason"`
	Score  float64 `json:"score"`
}

// ReportEntry is one flagged process in a report, in the documented field
// order for downstream serialization.
type ReportEntry struct {
	PID           int32   `json:"pid"`
	Name          string  `json:"name"`
	Reason        string  `json:"reason"`
	CPUPercent    float64 `json:"cpu_percent"`
	MemoryPercent float64 `json:"memory_percent"`
	Connections   int     `json:"connections"`
}

// Report is the timestamped anomaly summary handed to downstream consumers.
// Ephemeral; the detector retains nothing after building one.
type Report struct {
	Timestamp      time.Time     `json:"timestamp"`
	TotalProcesses int           `json:"total_processes"`
	AnomalyCount   int           `json:"anomaly_count"`
	Anomalies      []ReportEntry `json:"anomalies"`
}

// BuildReport assembles a report from the most recent snapshot and the
// flagged records. An empty snapshot yields total_processes = 0.
func BuildReport(latest models.Snapshot, anomalies []Anomaly) Report {
	rep := Report{
		Timestamp:      time.Now(),
		TotalProcesses: len(latest.Processes),
		AnomalyCount:   len(anomalies),
		Anomalies:      make([]ReportEntry, 0, len(anomalies)),
	}
	for _, a := range anomalies {
		rep.Anomalies = append(rep.Anomalies, ReportEntry{
			PID:           a.PID,
			Name:          a.Name,
			Reason:        a.Reason,
			CPUPercent:    a.CPUPercent,
			MemoryPercent: a.MemoryPercent,
			Connections:   a.NumConnections,
		})
	}
	return rep
}
