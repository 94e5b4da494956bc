// Package collector enumerates running processes into ProcessRecord snapshots.
// It uses gopsutil for cross-platform process telemetry.
package collector

import (
	"time"

	"github.com/rs/zerolog"
	psnet "github.com/shirou/gopsutil/v4/net"
	"github.com/shirou/gopsutil/v4/process"

	"github.com/vesaa/procsentry/internal/models"
)

// Collector walks the OS process table and produces one Snapshot per call.
type Collector struct {
	patterns []string
	log      zerolog.Logger
}

// New creates a collector. patterns is the offensive-tool name list for the
// heuristic classifier; it is independent of the anomaly pipeline.
func New(patterns []string, log zerolog.Logger) *Collector {
	return &Collector{
		patterns: patterns,
		log:      log.With().Str("component", "collector").Logger(),
	}
}

// Collect gathers a snapshot of every visible process. A process that
// disappears mid-walk is skipped; a field we lack permission to read
// degrades to 0 so feature arithmetic stays well-defined.
func (c *Collector) Collect() (models.Snapshot, error) {
	procs, err := process.Processes()
	if err != nil {
		return models.Snapshot{}, err
	}

	snap := models.Snapshot{
		TakenAt:   time.Now(),
		Processes: make([]models.ProcessRecord, 0, len(procs)),
	}

	for _, p := range procs {
		name, err := p.Name()
		if err != nil {
			// process exited between enumeration and inspection
			continue
		}

		rec := models.ProcessRecord{PID: p.Pid, Name: name}

		if cmdline, err := p.Cmdline(); err == nil {
			rec.Cmdline = cmdline
		}
		if cpu, err := p.CPUPercent(); err == nil {
			rec.CPUPercent = cpu
		}
		if mem, err := p.MemoryPercent(); err == nil {
			rec.MemoryPercent = float64(mem)
		}
		if threads, err := p.NumThreads(); err == nil {
			rec.NumThreads = threads
		}
		if conns, err := psnet.ConnectionsPid("inet", p.Pid); err == nil {
			rec.NumConnections = len(conns)
		}
		if files, err := p.OpenFiles(); err == nil {
			rec.NumFiles = len(files)
		}

		rec.Suspicious = Suspect(name, rec.Cmdline, c.patterns)
		snap.Processes = append(snap.Processes, rec)
	}

	c.log.Debug().Int("processes", len(snap.Processes)).Msg("snapshot collected")
	return snap, nil
}
