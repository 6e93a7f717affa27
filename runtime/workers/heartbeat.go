package workers

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/shirou/gopsutil/process"
)

// HeartbeatWorker periodically logs process health (CPU, RAM, status) and
// the number of connected live-update channels. This is the single-process
// replacement for reporting to a master node: the log line is what
// operators tail.
type HeartbeatWorker struct {
	log         *slog.Logger
	interval    time.Duration
	broadcaster *Broadcaster
}

func NewHeartbeatWorker(log *slog.Logger, interval time.Duration, broadcaster *Broadcaster) *HeartbeatWorker {
	return &HeartbeatWorker{log: log, interval: interval, broadcaster: broadcaster}
}

func (w *HeartbeatWorker) Run(ctx context.Context) error {
	w.log.Info("Starting board heartbeat worker")
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	p, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			rss, cpu, status, err := selfStats(p)
			if err != nil {
				w.log.Error("Failed to collect self stats", "err", err)
				continue
			}
			w.log.Info("Board heartbeat",
				"pid", os.Getpid(),
				"status", status,
				"cpu_percent", cpu,
				"ram_bytes", rss,
				"subscribers", w.broadcaster.Count(),
			)
		}
	}
}

// selfStats retrieves memory, CPU and OS status for the given process.
func selfStats(p *process.Process) (uint64, float64, string, error) {
	memInfo, err := p.MemoryInfo()
	if err != nil {
		return 0, 0, "", err
	}
	cpuPercent, err := p.CPUPercent()
	if err != nil {
		return 0, 0, "", err
	}
	status, err := p.Status()
	if err != nil {
		return 0, 0, "", err
	}
	return memInfo.RSS, cpuPercent, status, nil
}
