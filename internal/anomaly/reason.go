package anomaly

import (
	"strings"

	"github.com/vesaa/procsentry/internal/models"
)

// Explain attributes a human-readable cause to a flagged process. Every rule
// is evaluated; multiple matches join with ", " in this fixed order. A record
// flagged purely by reconstruction error, with no individual field over its
// limit, gets the generic fallback.
func Explain(r models.ProcessRecord) string {
	var reasons []string
	if r.CPUPercent > 80 {
		reasons = append(reasons, "High CPU usage")
	}
	if r.MemoryPercent > 80 {
		reasons = append(reasons, "High memory usage")
	}
	if r.NumConnections > 50 {
		reasons = append(reasons, "Unusual network activity")
	}
	if r.NumThreads > 100 {
		reasons = append(reasons, "High thread count")
	}
	if r.NumFiles > 100 {
		reasons = append(reasons, "Many open files")
	}
	if len(reasons) == 0 {
		return "Unusual behavior pattern"
	}
	return strings.Join(reasons, ", ")
}
