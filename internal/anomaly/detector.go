package anomaly

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/vesaa/procsentry/internal/metrics"
	"github.com/vesaa/procsentry/internal/models"
)

// Config holds the detector tunables. HistorySize doubles as the rolling
// window capacity and the minimum flattened corpus size required to train.
type Config struct {
	HistorySize int
	Train       TrainConfig
}

// trainedState is the immutable scaler+model+threshold triple produced by one
// training call. The three always originate from the same fit; the detector
// swaps the whole value atomically so readers never see a mixed triple.
type trainedState struct {
	scaler    *Scaler
	model     *Autoencoder
	threshold float64
	trainedAt time.Time
}

// Detector scores process snapshots against a trained reconstruction model.
// It starts untrained; a successful Train call transitions it to trained, and
// later Train calls replace the model wholesale (a failed retrain keeps the
// previous model untouched).
type Detector struct {
	cfg Config
	log zerolog.Logger

	history *History
	trainMu sync.Mutex // serializes training runs
	state   atomic.Pointer[trainedState]
}

// NewDetector creates an untrained detector with an empty history window.
func NewDetector(cfg Config, log zerolog.Logger) *Detector {
	if cfg.HistorySize < 1 {
		cfg.HistorySize = 1
	}
	if cfg.Train.Epochs == 0 {
		cfg.Train = DefaultTrainConfig()
	}
	return &Detector{
		cfg:     cfg,
		log:     log.With().Str("component", "detector").Logger(),
		history: NewHistory(cfg.HistorySize),
	}
}

// Observe appends a snapshot to the history window.
func (d *Detector) Observe(snap models.Snapshot) {
	d.history.Append(snap)
}

// HistoryLen returns the number of retained snapshots.
func (d *Detector) HistoryLen() int { return d.history.Len() }

// Latest returns the most recent observed snapshot.
func (d *Detector) Latest() (models.Snapshot, bool) { return d.history.Latest() }

// Trained reports whether a model is currently available.
func (d *Detector) Trained() bool { return d.state.Load() != nil }

// TrainedAt returns when the current model was fit.
func (d *Detector) TrainedAt() (time.Time, bool) {
	st := d.state.Load()
	if st == nil {
		return time.Time{}, false
	}
	return st.trainedAt, true
}

// Threshold returns the current decision boundary.
func (d *Detector) Threshold() (float64, bool) {
	st := d.state.Load()
	if st == nil {
		return 0, false
	}
	return st.threshold, true
}

// Train fits a fresh scaler, autoencoder and threshold on the flattened
// history and atomically installs them as one unit. Requires the flattened
// corpus to hold at least HistorySize rows. On any failure the previous
// trained state, if any, stays in place. ctx cancels a long optimization run.
func (d *Detector) Train(ctx context.Context) error {
	d.trainMu.Lock()
	defer d.trainMu.Unlock()

	corpus := d.history.Flatten()
	if len(corpus) < d.cfg.HistorySize {
		return fmt.Errorf("%w: have %d samples, need %d", ErrInsufficientData, len(corpus), d.cfg.HistorySize)
	}

	start := time.Now()
	d.log.Info().Int("samples", len(corpus)).Int("epochs", d.cfg.Train.Epochs).Msg("training started")

	scaler, err := FitScaler(corpus)
	if err != nil {
		metrics.TrainingRuns.WithLabelValues("failure").Inc()
		return &TrainingError{Err: err}
	}
	scaled, err := scaler.Transform(corpus)
	if err != nil {
		metrics.TrainingRuns.WithLabelValues("failure").Inc()
		return &TrainingError{Err: err}
	}

	model, err := TrainAutoencoder(ctx, scaled, d.cfg.Train)
	if err != nil {
		metrics.TrainingRuns.WithLabelValues("failure").Inc()
		d.log.Error().Err(err).Msg("training failed")
		return err
	}

	threshold, err := Calibrate(model, scaled)
	if err != nil {
		metrics.TrainingRuns.WithLabelValues("failure").Inc()
		return &TrainingError{Err: err}
	}

	d.state.Store(&trainedState{
		scaler:    scaler,
		model:     model,
		threshold: threshold,
		trainedAt: time.Now(),
	})

	metrics.TrainingRuns.WithLabelValues("success").Inc()
	metrics.TrainingDuration.Observe(time.Since(start).Seconds())
	d.log.Info().Float64("threshold", threshold).Dur("took", time.Since(start)).Msg("training complete")
	return nil
}

// Detect scores the given records against the trained model and returns the
// ones whose reconstruction error strictly exceeds the threshold, in input
// order, each annotated with a reason. Returns ErrNotTrained before the first
// successful Train; scoring failures come back as *DetectionError so callers
// can tell "no anomalies" from a broken detector.
func (d *Detector) Detect(records []models.ProcessRecord) ([]Anomaly, error) {
	st := d.state.Load()
	if st == nil {
		return nil, ErrNotTrained
	}
	if len(records) == 0 {
		return nil, nil
	}

	scaled, err := st.scaler.Transform(ExtractAll(records))
	if err != nil {
		metrics.DetectionFailures.Inc()
		return nil, &DetectionError{Err: err}
	}
	recon := st.model.Predict(scaled)

	var flagged []Anomaly
	for i, rec := range records {
		score := reconstructionError(scaled[i], recon[i])
		if score > st.threshold {
			flagged = append(flagged, Anomaly{
				ProcessRecord: rec,
				Reason:        Explain(rec),
				Score:         score,
			})
		}
	}

	if len(flagged) > 0 {
		metrics.AnomaliesFlagged.Add(float64(len(flagged)))
		d.log.Warn().Int("count", len(flagged)).Msg("anomalous processes detected")
	}
	return flagged, nil
}
