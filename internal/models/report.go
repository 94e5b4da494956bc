// Package models defines the data types shared between the collector,
// the anomaly pipeline and the ProcSentry API.
package models

import (
	"time"

	"gorm.io/gorm"
)

// ReportRecord is the persisted form of an anomaly report.
// The server archives every generated report for later inspection;
// the detection core itself never touches the database.
type ReportRecord struct {
	gorm.Model

	GeneratedAt    time.Time `gorm:"index" json:"generated_at"`
	TotalProcesses int       `json:"total_processes"`
	AnomalyCount   int       `json:"anomaly_count"`

	Anomalies []AnomalyRow `gorm:"foreignKey:ReportID" json:"anomalies"`
}

// AnomalyRow is one flagged process inside an archived report.
type AnomalyRow struct {
	gorm.Model

	ReportID uint `gorm:"index;not null" json:"-"`

	PID           int32   `json:"pid"`
	Name          string  `json:"name"`
	Reason        string  `json:"reason"`
	CPUPercent    float64 `json:"cpu_percent"`
	MemoryPercent float64 `json:"memory_percent"`
	Connections   int     `json:"connections"`
}
