// Package server manages the ProcSentry database layer.
// It initializes GORM with SQLite and archives every generated anomaly
// report; the detection core never touches the database.
package server

import (
	"fmt"
	"log"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/vesaa/procsentry/internal/anomaly"
	"github.com/vesaa/procsentry/internal/config"
	"github.com/vesaa/procsentry/internal/models"
)

var DB *gorm.DB

// InitDB opens the database and runs AutoMigrate.
func InitDB(cfg *config.Config) error {
	db, err := gorm.Open(sqlite.Open(cfg.DBPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}

	if err := db.AutoMigrate(&models.ReportRecord{}, &models.AnomalyRow{}); err != nil {
		return fmt.Errorf("auto-migrate: %w", err)
	}

	DB = db
	log.Printf("[db] opened sqlite/%s", cfg.DBPath)
	return nil
}

// ReportStore adapts the database to the monitor.Store interface.
type ReportStore struct{}

// SaveReport archives one report with its anomaly rows.
func (ReportStore) SaveReport(rep anomaly.Report) error {
	rec := models.ReportRecord{
		GeneratedAt:    rep.Timestamp,
		TotalProcesses: rep.TotalProcesses,
		AnomalyCount:   rep.AnomalyCount,
		Anomalies:      make([]models.AnomalyRow, 0, len(rep.Anomalies)),
	}
	for _, a := range rep.Anomalies {
		rec.Anomalies = append(rec.Anomalies, models.AnomalyRow{
			PID:           a.PID,
			Name:          a.Name,
			Reason:        a.Reason,
			CPUPercent:    a.CPUPercent,
			MemoryPercent: a.MemoryPercent,
			Connections:   a.Connections,
		})
	}
	return DB.Create(&rec).Error
}

// ListReports returns the newest archived reports, anomalies preloaded.
func ListReports(limit int) ([]models.ReportRecord, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	var recs []models.ReportRecord
	err := DB.Preload("Anomalies").
		Order("generated_at desc").
		Limit(limit).
		Find(&recs).Error
	return recs, err
}
