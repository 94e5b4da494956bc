package anomaly

import (
	"sync"

	"github.com/vesaa/procsentry/internal/models"
)

// History is a bounded FIFO buffer of system-wide snapshots. When full, the
// oldest snapshot is evicted on append. Append and the readers take the same
// lock so the poll loop may run concurrently with training and detection.
type History struct {
	mu        sync.Mutex
	capacity  int
	snapshots []models.Snapshot
}

// NewHistory creates a history window with the given capacity (min 1).
func NewHistory(capacity int) *History {
	if capacity < 1 {
		capacity = 1
	}
	return &History{
		capacity:  capacity,
		snapshots: make([]models.Snapshot, 0, capacity),
	}
}

// Append adds a snapshot, evicting the oldest if the window is full.
func (h *History) Append(snap models.Snapshot) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if len(h.snapshots) == h.capacity {
		copy(h.snapshots, h.snapshots[1:])
		h.snapshots = h.snapshots[:h.capacity-1]
	}
	h.snapshots = append(h.snapshots, snap)
}

// Len returns the number of retained snapshots.
func (h *History) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.snapshots)
}

// Latest returns the most recent snapshot, or false when the window is empty.
func (h *History) Latest() (models.Snapshot, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.snapshots) == 0 {
		return models.Snapshot{}, false
	}
	return h.snapshots[len(h.snapshots)-1], true
}

// Flatten returns the training corpus: the feature vector of every process
// record across all retained snapshots, in snapshot-then-record order.
// Recomputed fresh on every call.
func (h *History) Flatten() [][]float64 {
	h.mu.Lock()
	defer h.mu.Unlock()

	var rows [][]float64
	for _, snap := range h.snapshots {
		for _, rec := range snap.Processes {
			rows = append(rows, Extract(rec))
		}
	}
	return rows
}
