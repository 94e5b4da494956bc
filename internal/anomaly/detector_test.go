package anomaly

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vesaa/procsentry/internal/models"
)

func testConfig() Config {
	return Config{
		HistorySize: 3,
		Train:       TrainConfig{Epochs: 30, BatchSize: 8, LearningRate: 0.001, Seed: 7},
	}
}

func quietRecord(cpu, mem float64) models.ProcessRecord {
	return models.ProcessRecord{
		PID: 100, Name: "steady",
		CPUPercent: cpu, MemoryPercent: mem,
		NumThreads: 2, NumConnections: 1, NumFiles: 3,
	}
}

// trainedDetector trains on three near-identical low-resource snapshots.
func trainedDetector(t *testing.T) *Detector {
	t.Helper()
	det := NewDetector(testConfig(), zerolog.Nop())
	for _, jitter := range []float64{-0.1, 0, 0.1} {
		det.Observe(models.Snapshot{
			TakenAt:   time.Now(),
			Processes: []models.ProcessRecord{quietRecord(5+jitter, 5+jitter)},
		})
	}
	require.NoError(t, det.Train(context.Background()))
	require.True(t, det.Trained())
	return det
}

func TestDetectUntrained(t *testing.T) {
	det := NewDetector(testConfig(), zerolog.Nop())

	flagged, err := det.Detect([]models.ProcessRecord{quietRecord(5, 5)})
	assert.ErrorIs(t, err, ErrNotTrained)
	assert.Empty(t, flagged)
}

func TestTrainWithEmptyHistory(t *testing.T) {
	det := NewDetector(testConfig(), zerolog.Nop())

	err := det.Train(context.Background())
	assert.ErrorIs(t, err, ErrInsufficientData)
	assert.False(t, det.Trained())
}

func TestTrainRequiresFlattenedCorpusOfHistorySize(t *testing.T) {
	// Two snapshots of one process each: 2 flattened rows < HistorySize 3.
	det := NewDetector(testConfig(), zerolog.Nop())
	det.Observe(models.Snapshot{Processes: []models.ProcessRecord{quietRecord(5, 5)}})
	det.Observe(models.Snapshot{Processes: []models.ProcessRecord{quietRecord(5, 5)}})

	assert.ErrorIs(t, det.Train(context.Background()), ErrInsufficientData)

	// One snapshot with three processes satisfies the row count on its own.
	det2 := NewDetector(testConfig(), zerolog.Nop())
	det2.Observe(models.Snapshot{Processes: []models.ProcessRecord{
		quietRecord(4.9, 4.9), quietRecord(5, 5), quietRecord(5.1, 5.1),
	}})
	assert.NoError(t, det2.Train(context.Background()))
}

func TestDetectNormalProfile(t *testing.T) {
	det := trainedDetector(t)

	flagged, err := det.Detect([]models.ProcessRecord{quietRecord(5, 5)})
	require.NoError(t, err)
	assert.Empty(t, flagged)
}

func TestDetectHighCPUAnomaly(t *testing.T) {
	det := trainedDetector(t)

	rec := quietRecord(95, 10)
	flagged, err := det.Detect([]models.ProcessRecord{rec})
	require.NoError(t, err)
	require.Len(t, flagged, 1)
	assert.Equal(t, rec.PID, flagged[0].PID)
	assert.Contains(t, flagged[0].Reason, "High CPU usage")
}

func TestDetectFlaggedScoresExceedThreshold(t *testing.T) {
	det := trainedDetector(t)
	thr, ok := det.Threshold()
	require.True(t, ok)

	records := []models.ProcessRecord{
		quietRecord(5, 5),   // normal
		quietRecord(95, 90), // anomalous
		quietRecord(5, 5),   // normal
	}
	flagged, err := det.Detect(records)
	require.NoError(t, err)
	require.Len(t, flagged, 1)

	// Every flagged record scores strictly above the threshold; the records
	// absent from the output scored at or below it.
	assert.Greater(t, flagged[0].Score, thr)
	assert.Equal(t, 95.0, flagged[0].CPUPercent)
}

func TestDetectPreservesInputOrder(t *testing.T) {
	det := trainedDetector(t)

	a := quietRecord(95, 10)
	a.PID = 1
	b := quietRecord(10, 95)
	b.PID = 2

	flagged, err := det.Detect([]models.ProcessRecord{a, quietRecord(5, 5), b})
	require.NoError(t, err)
	require.Len(t, flagged, 2)
	assert.Equal(t, int32(1), flagged[0].PID)
	assert.Equal(t, int32(2), flagged[1].PID)
}

func TestDetectIdempotent(t *testing.T) {
	det := trainedDetector(t)
	records := []models.ProcessRecord{quietRecord(5, 5), quietRecord(95, 90)}

	first, err := det.Detect(records)
	require.NoError(t, err)
	second, err := det.Detect(records)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestFailedRetrainPreservesTrainedState(t *testing.T) {
	det := trainedDetector(t)
	thrBefore, _ := det.Threshold()
	atBefore, _ := det.TrainedAt()

	cancelled, cancel := context.WithCancel(context.Background())
	cancel()
	err := det.Train(cancelled)
	require.Error(t, err)

	// The prior model survives the failed attempt untouched.
	assert.True(t, det.Trained())
	thrAfter, _ := det.Threshold()
	atAfter, _ := det.TrainedAt()
	assert.Equal(t, thrBefore, thrAfter)
	assert.Equal(t, atBefore, atAfter)

	flagged, err := det.Detect([]models.ProcessRecord{quietRecord(95, 10)})
	require.NoError(t, err)
	assert.Len(t, flagged, 1)
}

func TestRetrainReplacesModelWholesale(t *testing.T) {
	det := trainedDetector(t)
	atBefore, _ := det.TrainedAt()

	require.NoError(t, det.Train(context.Background()))

	atAfter, ok := det.TrainedAt()
	require.True(t, ok)
	assert.True(t, atAfter.After(atBefore) || atAfter.Equal(atBefore))
	assert.True(t, det.Trained())
}

func TestDetectEmptyInput(t *testing.T) {
	det := trainedDetector(t)

	flagged, err := det.Detect(nil)
	assert.NoError(t, err)
	assert.Empty(t, flagged)
}
