package anomaly

import "math"

// Scaler standardizes feature vectors to zero mean and unit variance using
// statistics learned from one training corpus. A Scaler is fit exactly once;
// retraining builds a fresh one so train-time and inference-time statistics
// can never mix across fits.
type Scaler struct {
	mean  []float64
	scale []float64
}

// FitScaler computes per-dimension mean and scale from the corpus.
// Returns ErrInsufficientData on an empty corpus. Dimensions with zero
// variance get scale 1 so Transform stays total.
func FitScaler(corpus [][]float64) (*Scaler, error) {
	if len(corpus) == 0 {
		return nil, ErrInsufficientData
	}

	dim := len(corpus[0])
	mean := make([]float64, dim)
	scale := make([]float64, dim)
	n := float64(len(corpus))

	for _, row := range corpus {
		for j, v := range row {
			mean[j] += v
		}
	}
	for j := range mean {
		mean[j] /= n
	}

	for _, row := range corpus {
		for j, v := range row {
			d := v - mean[j]
			scale[j] += d * d
		}
	}
	for j := range scale {
		scale[j] = math.Sqrt(scale[j] / n)
		if scale[j] == 0 {
			scale[j] = 1
		}
	}

	return &Scaler{mean: mean, scale: scale}, nil
}

// Transform standardizes each vector with the fitted statistics.
// Returns ErrNotFitted when called on a nil Scaler.
func (s *Scaler) Transform(rows [][]float64) ([][]float64, error) {
	if s == nil {
		return nil, ErrNotFitted
	}

	out := make([][]float64, len(rows))
	for i, row := range rows {
		scaled := make([]float64, len(row))
		for j, v := range row {
			scaled[j] = (v - s.mean[j]) / s.scale[j]
		}
		out[i] = scaled
	}
	return out, nil
}
