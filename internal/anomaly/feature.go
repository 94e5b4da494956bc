// Package anomaly implements the reconstruction-error anomaly pipeline:
// a bounded history of process snapshots feeds a standard scaler and a small
// dense autoencoder; records that reconstruct poorly under the trained model
// are flagged as anomalous.
package anomaly

import "github.com/vesaa/procsentry/internal/models"

// Feature dimension order is a contract shared by the scaler and the model.
// Train-time and inference-time vectors must use these exact positions.
const (
	FeatCPU = iota
	FeatMemory
	FeatThreads
	FeatConnections
	FeatFiles

	// FeatureDim is the width of every feature vector.
	FeatureDim = 5
)

// Extract converts a process record into its fixed-order feature vector.
// Pure function; zero-valued fields stay 0 so the arithmetic is always defined.
func Extract(r models.ProcessRecord) []float64 {
	v := make([]float64, FeatureDim)
	v[FeatCPU] = r.CPUPercent
	v[FeatMemory] = r.MemoryPercent
	v[FeatThreads] = float64(r.NumThreads)
	v[FeatConnections] = float64(r.NumConnections)
	v[FeatFiles] = float64(r.NumFiles)
	return v
}

// ExtractAll converts a batch of records, preserving input order.
func ExtractAll(records []models.ProcessRecord) [][]float64 {
	rows := make([][]float64, len(records))
	for i, r := range records {
		rows[i] = Extract(r)
	}
	return rows
}
