package workers

import (
	"broadcast-relay/contract"
	"broadcast-relay/observability"
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/shirou/gopsutil/process"
)

var _ contract.Worker = (*StatsWorker)(nil)

// QueueGauge reports the current length and capacity of a channel.
// Reading len/cap of a channel is non-blocking.
type QueueGauge func() (length, capacity int)

// StatsWorker periodically samples the relay and the process it runs in.
// A lost sample is harmless: the next tick replaces it.
type StatsWorker struct {
	log                  *slog.Logger
	monitoring           *observability.MonitoringManager
	connections          func() int
	queue                QueueGauge
	metricInterval       time.Duration
	lowCapacityThreshold int
}

func NewStatsWorker(log *slog.Logger,
	monitoring *observability.MonitoringManager,
	connections func() int,
	queue QueueGauge,
	metricInterval time.Duration,
	lowCapacityThreshold int) *StatsWorker {
	return &StatsWorker{
		log:                  log,
		monitoring:           monitoring,
		connections:          connections,
		queue:                queue,
		metricInterval:       metricInterval,
		lowCapacityThreshold: lowCapacityThreshold,
	}
}

func (w *StatsWorker) Run(ctx context.Context) error {
	p, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		w.log.Warn("Process stats unavailable", "error", err)
		p = nil
	}

	ticker := time.NewTicker(w.metricInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Debug("Context done, stopping stats worker")
			return nil
		case <-ticker.C:
			w.Collect(p)
		}
	}
}

// Collect takes one sample and publishes it.
func (w *StatsWorker) Collect(p *process.Process) observability.Sample {
	sample := observability.Sample{ActiveConnections: w.connections()}
	if w.queue != nil {
		sample.QueueLength, sample.QueueCapacity = w.queue()
	}
	if p != nil {
		rss, cpu, err := getSelfStats(p)
		if err != nil {
			w.log.Error("Failed to collect self stats", "error", err)
		} else {
			sample.RSSBytes, sample.CPUPercent = rss, cpu
		}
	}
	w.monitoring.Update(sample)

	w.log.Info("Relay stats",
		"connections", sample.ActiveConnections,
		"queue_length", sample.QueueLength,
		"queue_capacity", sample.QueueCapacity,
		"rss_bytes", sample.RSSBytes,
		"cpu_percent", sample.CPUPercent)

	if sample.QueueCapacity > 0 {
		capacityLeft := sample.QueueCapacity - sample.QueueLength
		if capacityLeft <= w.lowCapacityThreshold {
			w.log.Warn("Inbound queue is running out of capacity", "capacity_left", capacityLeft)
		}
	}
	return sample
}

func getSelfStats(p *process.Process) (uint64, float64, error) {
	memInfo, err := p.MemoryInfo()
	if err != nil {
		return 0, 0, err
	}
	cpuPercent, err := p.CPUPercent()
	if err != nil {
		return 0, 0, err
	}
	return memInfo.RSS, cpuPercent, nil
}
