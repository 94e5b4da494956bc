package anomaly

import (
	"errors"
	"fmt"
)

// Sentinel errors for the recoverable pipeline conditions. Callers match
// with errors.Is and decide whether to keep polling, train first, or give up.
var (
	// ErrInsufficientData: training requested before enough history accumulated.
	ErrInsufficientData = errors.New("anomaly: insufficient training data")

	// ErrNotFitted: scaling requested before Fit.
	ErrNotFitted = errors.New("anomaly: scaler not fitted")

	// ErrNotTrained: detection requested on an untrained detector.
	ErrNotTrained = errors.New("anomaly: model not trained")
)

// TrainingError wraps a numerical failure during model fitting.
// A prior trained state, if any, is preserved untouched when this is returned.
type TrainingError struct {
	Err error
}

func (e *TrainingError) Error() string { return fmt.Sprintf("anomaly: training failed: %v", e.Err) }
func (e *TrainingError) Unwrap() error { return e.Err }

// DetectionError wraps a failure on the scoring path. The monitoring loop
// treats it as "no anomalies" after logging; callers that need to tell a
// quiet system from a broken detector can still match on it.
type DetectionError struct {
	Err error
}

func (e *DetectionError) Error() string { return fmt.Sprintf("anomaly: detection failed: %v", e.Err) }
func (e *DetectionError) Unwrap() error { return e.Err }
