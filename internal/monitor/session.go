// Package monitor runs the ProcSentry monitoring session: it periodically
// collects process snapshots, feeds the detector's history window, trains the
// model once enough history has accumulated, and produces anomaly reports.
package monitor

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/vesaa/procsentry/internal/anomaly"
	"github.com/vesaa/procsentry/internal/config"
	"github.com/vesaa/procsentry/internal/metrics"
	"github.com/vesaa/procsentry/internal/models"
)

// Source produces process snapshots. The built-in gopsutil collector is the
// usual implementation; tests and remote collectors provide their own.
type Source interface {
	Collect() (models.Snapshot, error)
}

// Store archives generated reports. Nil disables persistence.
type Store interface {
	SaveReport(anomaly.Report) error
}

// Status summarizes the session state for the API.
type Status struct {
	Trained       bool       `json:"trained"`
	HistoryLen    int        `json:"history_len"`
	HistorySize   int        `json:"history_size"`
	Threshold     float64    `json:"threshold,omitempty"`
	LastTrainedAt *time.Time `json:"last_trained_at,omitempty"`
}

// Session owns one host's monitoring loop. Training runs on a dedicated
// goroutine so polling and report requests never block on optimization.
type Session struct {
	cfg   *config.Config
	log   zerolog.Logger
	src   Source
	det   *anomaly.Detector
	store Store

	training atomic.Bool
}

// New wires a session. store may be nil.
func New(cfg *config.Config, src Source, det *anomaly.Detector, store Store, log zerolog.Logger) *Session {
	return &Session{
		cfg:   cfg,
		log:   log.With().Str("component", "session").Logger(),
		src:   src,
		det:   det,
		store: store,
	}
}

// Run polls until ctx is cancelled. Each tick appends a snapshot to the
// history window; once the flattened corpus is large enough and no model
// exists yet, a training run is kicked off in the background.
func (s *Session) Run(ctx context.Context) error {
	interval := time.Duration(s.cfg.PollInterval) * time.Second
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.log.Info().Dur("interval", interval).Int("history_size", s.cfg.HistorySize).Msg("monitoring session started")

	for {
		select {
		case <-ctx.Done():
			s.log.Info().Msg("monitoring session stopped")
			return ctx.Err()
		case <-ticker.C:
			s.poll(ctx)
		}
	}
}

func (s *Session) poll(ctx context.Context) {
	snap, err := s.src.Collect()
	if err != nil {
		s.log.Error().Err(err).Msg("snapshot collection failed")
		return
	}
	s.Ingest(snap)

	if !s.det.Trained() {
		s.TrainAsync(ctx)
	}
}

// Ingest appends a snapshot to the history window, whether it came from the
// local collector or was pushed by an external one.
func (s *Session) Ingest(snap models.Snapshot) {
	s.det.Observe(snap)
	metrics.SnapshotsCollected.Inc()
	metrics.ProcessesObserved.Set(float64(len(snap.Processes)))
}

// TrainAsync starts a training run on a dedicated goroutine unless one is
// already in flight. Returns whether a run was started.
func (s *Session) TrainAsync(ctx context.Context) bool {
	if !s.training.CompareAndSwap(false, true) {
		return false
	}
	go func() {
		defer s.training.Store(false)
		if err := s.det.Train(ctx); err != nil {
			if errors.Is(err, anomaly.ErrInsufficientData) {
				s.log.Debug().Err(err).Msg("not enough history to train yet")
			} else {
				s.log.Error().Err(err).Msg("training run failed")
			}
		}
	}()
	return true
}

// Report collects a fresh snapshot, scores it, and assembles a report.
// Detection failures (including "not trained yet") degrade to an empty
// anomaly list after logging, so a monitoring loop never crashes on them.
// The report is archived when a store is configured.
func (s *Session) Report() (anomaly.Report, error) {
	snap, err := s.src.Collect()
	if err != nil {
		return anomaly.Report{}, err
	}
	s.Ingest(snap)

	anomalies, err := s.det.Detect(snap.Processes)
	if err != nil {
		if errors.Is(err, anomaly.ErrNotTrained) {
			s.log.Debug().Msg("report requested before model trained")
		} else {
			s.log.Error().Err(err).Msg("detection failed; reporting no anomalies")
		}
		anomalies = nil
	}

	rep := anomaly.BuildReport(snap, anomalies)
	if s.store != nil {
		if err := s.store.SaveReport(rep); err != nil {
			s.log.Error().Err(err).Msg("archiving report failed")
		}
	}
	return rep, nil
}

// Status reports the detector state for the API.
func (s *Session) Status() Status {
	st := Status{
		Trained:     s.det.Trained(),
		HistoryLen:  s.det.HistoryLen(),
		HistorySize: s.cfg.HistorySize,
	}
	if thr, ok := s.det.Threshold(); ok {
		st.Threshold = thr
	}
	if at, ok := s.det.TrainedAt(); ok {
		st.LastTrainedAt = &at
	}
	return st
}

// Latest returns the most recent observed snapshot.
func (s *Session) Latest() (models.Snapshot, bool) {
	return s.det.Latest()
}
