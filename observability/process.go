package observability

import (
	"fmt"
	"log/slog"
	"os"
	"runtime"

	"github.com/shirou/gopsutil/process"
)

// ProcessStats describes the running server process.
type ProcessStats struct {
	PID        int32   `json:"pid"`
	CPUPercent float64 `json:"cpu_percent"`
	RSSBytes   uint64  `json:"rss_bytes"`
	AllocMemMb uint64  `json:"alloc_mem_mb"`
	NumGC      uint32  `json:"num_gc"`
	Goroutines int     `json:"goroutines"`
}

type ProcessProbe struct {
	log  *slog.Logger
	proc *process.Process
}

func NewProcessProbe(log *slog.Logger) (*ProcessProbe, error) {
	p, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return nil, fmt.Errorf("inspect own process: %w", err)
	}
	return &ProcessProbe{log: log, proc: p}, nil
}

// Stats samples memory and CPU of the process together with Go runtime counters.
func (p *ProcessProbe) Stats() (ProcessStats, error) {
	memInfo, err := p.proc.MemoryInfo()
	if err != nil {
		return ProcessStats{}, err
	}
	cpuPercent, err := p.proc.CPUPercent()
	if err != nil {
		return ProcessStats{}, err
	}

	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	stats := ProcessStats{
		PID:        p.proc.Pid,
		CPUPercent: cpuPercent,
		RSSBytes:   memInfo.RSS,
		AllocMemMb: m.Alloc / 1024 / 1024,
		NumGC:      m.NumGC,
		Goroutines: runtime.NumGoroutine(),
	}
	p.log.Debug("Process stats sampled", "rss", stats.RSSBytes, "cpu", stats.CPUPercent, "goroutines", stats.Goroutines)
	return stats, nil
}
