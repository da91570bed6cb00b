package observability

import (
	"broadcast-relay/domain"
	"log/slog"
	"runtime"
	"sync"
	"sync/atomic"
	"time"
)

// MonitoringStats is the operator view of the relay, served on /stats.
type MonitoringStats struct {
	StartedAt         time.Time `json:"started_at"`
	SampledAt         time.Time `json:"sampled_at"`
	ActiveConnections int       `json:"active_connections"`
	ConnectionsOpened uint64    `json:"connections_opened"`
	ConnectionsClosed uint64    `json:"connections_closed"`
	MessagesReceived  uint64    `json:"messages_received"`
	MessagesRelayed   uint64    `json:"messages_relayed"`
	MessagesDropped   uint64    `json:"messages_dropped"`
	Deliveries        uint64    `json:"deliveries"`
	DeliveryFailures  uint64    `json:"delivery_failures"`
	WorkerRestarts    uint64    `json:"worker_restarts"`

	QueueLength   int `json:"queue_length"`
	QueueCapacity int `json:"queue_capacity"`

	RSSBytes   uint64  `json:"rss_bytes"`
	CPUPercent float64 `json:"cpu_percent"`
	AllocMemMb uint64  `json:"alloc_mem_mb"`
	NumGC      uint32  `json:"num_gc"`
	Goroutines int     `json:"goroutines"`
}

// Sample is what the stats worker measures on each tick.
type Sample struct {
	ActiveConnections int
	QueueLength       int
	QueueCapacity     int
	RSSBytes          uint64
	CPUPercent        float64
}

// MonitoringManager aggregates relay counters.
// Counters are updated lock-free from the hot path; the sampled part is
// guarded by mu.
type MonitoringManager struct {
	log       *slog.Logger
	startedAt time.Time

	connectionsOpened uint64
	connectionsClosed uint64
	messagesReceived  uint64
	messagesRelayed   uint64
	messagesDropped   uint64
	deliveries        uint64
	deliveryFailures  uint64
	workerRestarts    uint64

	mu     sync.RWMutex
	sample Sample
	at     time.Time
}

func NewMonitoringManager(log *slog.Logger) *MonitoringManager {
	return &MonitoringManager{log: log, startedAt: time.Now().UTC()}
}

func (mm *MonitoringManager) IncrConnectionsOpened() { atomic.AddUint64(&mm.connectionsOpened, 1) }
func (mm *MonitoringManager) IncrConnectionsClosed() { atomic.AddUint64(&mm.connectionsClosed, 1) }
func (mm *MonitoringManager) IncrMessagesReceived()  { atomic.AddUint64(&mm.messagesReceived, 1) }
func (mm *MonitoringManager) IncrMessagesDropped()   { atomic.AddUint64(&mm.messagesDropped, 1) }
func (mm *MonitoringManager) IncrWorkerRestarts()    { atomic.AddUint64(&mm.workerRestarts, 1) }

// AddDelivery records the outcome of one broadcast.
func (mm *MonitoringManager) AddDelivery(d domain.Delivery) {
	atomic.AddUint64(&mm.messagesRelayed, 1)
	atomic.AddUint64(&mm.deliveries, uint64(d.Delivered))
	atomic.AddUint64(&mm.deliveryFailures, uint64(d.Failed))
}

// Update stores the latest sample taken by the stats worker.
func (mm *MonitoringManager) Update(s Sample) {
	mm.mu.Lock()
	defer mm.mu.Unlock()
	mm.sample = s
	mm.at = time.Now().UTC()
}

func (mm *MonitoringManager) GetLatest() MonitoringStats {
	mm.mu.RLock()
	sample, at := mm.sample, mm.at
	mm.mu.RUnlock()

	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	return MonitoringStats{
		StartedAt:         mm.startedAt,
		SampledAt:         at,
		ActiveConnections: sample.ActiveConnections,
		ConnectionsOpened: atomic.LoadUint64(&mm.connectionsOpened),
		ConnectionsClosed: atomic.LoadUint64(&mm.connectionsClosed),
		MessagesReceived:  atomic.LoadUint64(&mm.messagesReceived),
		MessagesRelayed:   atomic.LoadUint64(&mm.messagesRelayed),
		MessagesDropped:   atomic.LoadUint64(&mm.messagesDropped),
		Deliveries:        atomic.LoadUint64(&mm.deliveries),
		DeliveryFailures:  atomic.LoadUint64(&mm.deliveryFailures),
		WorkerRestarts:    atomic.LoadUint64(&mm.workerRestarts),
		QueueLength:       sample.QueueLength,
		QueueCapacity:     sample.QueueCapacity,
		RSSBytes:          sample.RSSBytes,
		CPUPercent:        sample.CPUPercent,
		AllocMemMb:        m.Alloc / 1024 / 1024,
		NumGC:             m.NumGC,
		Goroutines:        runtime.NumGoroutine(),
	}
}
