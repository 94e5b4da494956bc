package monitor

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vesaa/procsentry/internal/anomaly"
	"github.com/vesaa/procsentry/internal/config"
	"github.com/vesaa/procsentry/internal/models"
)

// fakeSource replays a fixed snapshot.
type fakeSource struct {
	snap models.Snapshot
	err  error
}

func (f *fakeSource) Collect() (models.Snapshot, error) { return f.snap, f.err }

// memStore records every archived report.
type memStore struct {
	saved []anomaly.Report
}

func (m *memStore) SaveReport(rep anomaly.Report) error {
	m.saved = append(m.saved, rep)
	return nil
}

func quietSnapshot(cpu float64) models.Snapshot {
	return models.Snapshot{
		TakenAt: time.Now(),
		Processes: []models.ProcessRecord{
			{PID: 1, Name: "steady", CPUPercent: cpu, MemoryPercent: cpu, NumThreads: 2, NumConnections: 1, NumFiles: 3},
		},
	}
}

func newTestSession(src Source, store Store) (*Session, *anomaly.Detector) {
	cfg := &config.Config{PollInterval: 1, HistorySize: 3}
	det := anomaly.NewDetector(anomaly.Config{
		HistorySize: 3,
		Train:       anomaly.TrainConfig{Epochs: 30, BatchSize: 8, LearningRate: 0.001, Seed: 7},
	}, zerolog.Nop())
	return New(cfg, src, det, store, zerolog.Nop()), det
}

func TestReportBeforeTrainingDegradesToEmpty(t *testing.T) {
	sess, _ := newTestSession(&fakeSource{snap: quietSnapshot(5)}, nil)

	rep, err := sess.Report()
	require.NoError(t, err)
	assert.Equal(t, 1, rep.TotalProcesses)
	assert.Equal(t, 0, rep.AnomalyCount)
	assert.Empty(t, rep.Anomalies)
}

func TestReportCollectFailurePropagates(t *testing.T) {
	sess, _ := newTestSession(&fakeSource{err: errors.New("walk failed")}, nil)

	_, err := sess.Report()
	assert.Error(t, err)
}

func TestReportArchivesThroughStore(t *testing.T) {
	store := &memStore{}
	sess, _ := newTestSession(&fakeSource{snap: quietSnapshot(5)}, store)

	_, err := sess.Report()
	require.NoError(t, err)
	assert.Len(t, store.saved, 1)
}

func TestIngestFillsHistoryAndStatus(t *testing.T) {
	sess, _ := newTestSession(&fakeSource{snap: quietSnapshot(5)}, nil)

	for i := 0; i < 3; i++ {
		sess.Ingest(quietSnapshot(5))
	}

	st := sess.Status()
	assert.False(t, st.Trained)
	assert.Equal(t, 3, st.HistoryLen)
	assert.Equal(t, 3, st.HistorySize)
	assert.Nil(t, st.LastTrainedAt)

	latest, ok := sess.Latest()
	require.True(t, ok)
	assert.Len(t, latest.Processes, 1)
}

func TestReportAfterTraining(t *testing.T) {
	sess, det := newTestSession(&fakeSource{snap: quietSnapshot(95)}, nil)

	// Seed history with a quiet baseline and train synchronously.
	det.Observe(quietSnapshot(4.9))
	det.Observe(quietSnapshot(5.0))
	det.Observe(quietSnapshot(5.1))
	require.NoError(t, det.Train(context.Background()))

	rep, err := sess.Report()
	require.NoError(t, err)
	assert.Equal(t, 1, rep.AnomalyCount)
	require.Len(t, rep.Anomalies, 1)
	assert.Contains(t, rep.Anomalies[0].Reason, "High CPU usage")

	st := sess.Status()
	assert.True(t, st.Trained)
	assert.NotNil(t, st.LastTrainedAt)
	assert.Greater(t, st.Threshold, 0.0)
}

func TestTrainAsyncSingleFlight(t *testing.T) {
	sess, _ := newTestSession(&fakeSource{snap: quietSnapshot(5)}, nil)

	started := sess.TrainAsync(context.Background())
	assert.True(t, started)

	// Give the goroutine a moment to finish its (insufficient-data) run,
	// then a second kick must be accepted again.
	assert.Eventually(t, func() bool {
		return sess.TrainAsync(context.Background())
	}, time.Second, 10*time.Millisecond)
}
