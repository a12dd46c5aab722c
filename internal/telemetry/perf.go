package telemetry

import (
	"os"
	"runtime"
	"time"

	"github.com/shirou/gopsutil/v3/process"
	"github.com/sirupsen/logrus"
)

// ScanStats is a point-in-time summary of one completed scan: how long
// it ran, how much it found, and what it cost in memory.
type ScanStats struct {
	Duration      time.Duration
	Items         int
	Opportunities int
	HeapAllocMB   float64
	RSSMB         float64
}

// Collect gathers stats for a scan that started at start. The RSS
// sample is best-effort; it stays zero when the process handle cannot
// be read.
func Collect(start time.Time, items, opportunities int) ScanStats {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	stats := ScanStats{
		Duration:      time.Since(start),
		Items:         items,
		Opportunities: opportunities,
		HeapAllocMB:   float64(mem.HeapAlloc) / (1024 * 1024),
	}

	if proc, err := process.NewProcess(int32(os.Getpid())); err == nil {
		if info, err := proc.MemoryInfo(); err == nil && info != nil {
			stats.RSSMB = float64(info.RSS) / (1024 * 1024)
		}
	}
	return stats
}

// Fields renders the stats as structured log fields.
func (s ScanStats) Fields() logrus.Fields {
	return logrus.Fields{
		"duration_ms":   s.Duration.Milliseconds(),
		"items":         s.Items,
		"opportunities": s.Opportunities,
		"heap_alloc_mb": round2(s.HeapAllocMB),
		"rss_mb":        round2(s.RSSMB),
	}
}

func round2(v float64) float64 {
	return float64(int64(v*100+0.5)) / 100
}
