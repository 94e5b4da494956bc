package anomaly

import (
	"math"
	"sort"
)

// thresholdPercentile is the slice of the training error distribution used as
// the decision boundary. A fixed tunable, not a false-positive-rate guarantee.
const thresholdPercentile = 95

// Calibrate computes per-row reconstruction error of the model over the
// standardized corpus and returns the 95th percentile as the threshold.
func Calibrate(model *Autoencoder, corpus [][]float64) (float64, error) {
	if len(corpus) == 0 {
		return 0, ErrInsufficientData
	}

	recon := model.Predict(corpus)
	errs := make([]float64, len(corpus))
	for i := range corpus {
		errs[i] = reconstructionError(corpus[i], recon[i])
	}
	return percentile(errs, thresholdPercentile), nil
}

// reconstructionError is the mean squared difference between a vector and its
// reconstruction; the anomaly score.
func reconstructionError(x, recon []float64) float64 {
	var sum float64
	for j := range x {
		d := x[j] - recon[j]
		sum += d * d
	}
	return sum / float64(len(x))
}

// percentile returns the p-th percentile of values using linear interpolation
// between closest ranks (numpy's default method).
func percentile(values []float64, p float64) float64 {
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	if len(sorted) == 1 {
		return sorted[0]
	}
	rank := p / 100 * float64(len(sorted)-1)
	lo := int(math.Floor(rank))
	hi := int(math.Ceil(rank))
	if lo == hi {
		return sorted[lo]
	}
	frac := rank - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}
