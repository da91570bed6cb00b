// Package runtime hosts the broadcast relay and its connection registry.
// It orchestrates delivery without knowing anything about the transport.
package runtime

import (
	"broadcast-relay/contract"
	"broadcast-relay/domain"
	"broadcast-relay/errors"
	"broadcast-relay/observability"
	"broadcast-relay/runtime/workers"
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/samber/lo"
)

var _ contract.IRelay = (*Relay)(nil)

type RelayConfig struct {
	NumberOfWorkers      int
	BufferSize           int
	SinkTimeout          time.Duration
	MetricInterval       time.Duration
	LowCapacityThreshold int
}

// Relay forwards every inbound message to every open connection,
// the sender included. It keeps no history: a connection only receives
// messages relayed while it is registered.
type Relay struct {
	mu         sync.Mutex
	log        *slog.Logger
	config     RelayConfig
	supervisor contract.ISupervisor
	registry   contract.IRegistry
	monitoring *observability.MonitoringManager
	inbound    chan domain.Message

	cancel   context.CancelFunc
	done     chan struct{}
	stopped  chan struct{}
	stopOnce sync.Once
}

func NewRelay(log *slog.Logger, supervisor contract.ISupervisor,
	registry contract.IRegistry, monitoring *observability.MonitoringManager,
	config RelayConfig) *Relay {
	if config.NumberOfWorkers <= 0 {
		config.NumberOfWorkers = 1
	}
	if config.BufferSize <= 0 {
		config.BufferSize = 1
	}
	if monitoring == nil {
		monitoring = observability.NewMonitoringManager(log)
	}
	return &Relay{
		log:        log,
		config:     config,
		supervisor: supervisor,
		registry:   registry,
		monitoring: monitoring,
		inbound:    make(chan domain.Message, config.BufferSize),
		done:       make(chan struct{}),
		stopped:    make(chan struct{}),
	}
}

// RegisterConnection adds conn to the active set.
// Subsequent messages are delivered to conn until it is unregistered.
// Once the relay is stopped it returns ErrRelayStopped and conn is left alone.
func (o *Relay) RegisterConnection(conn contract.Connection) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	select {
	case <-o.stopped:
		return errors.ErrRelayStopped
	default:
	}
	o.registry.Register(conn)
	o.monitoring.IncrConnectionsOpened()
	o.log.Info("Connection opened", "connection_id", conn.ID())
	return nil
}

// Unregister removes conn from the active set. It is idempotent.
func (o *Relay) Unregister(conn contract.Connection) {
	if !o.registry.Unregister(conn.ID()) {
		return
	}
	o.monitoring.IncrConnectionsClosed()
	o.log.Info("Connection closed", "connection_id", conn.ID())
}

// Relay delivers msg.Content to every connection in a snapshot of the active
// set. A message whose sender is no longer registered is dropped.
// A failing recipient is skipped; nothing is reported back to the sender.
func (o *Relay) Relay(ctx context.Context, msg domain.Message) domain.Delivery {
	recipients := o.registry.Snapshot()
	senderOpen := lo.ContainsBy(recipients, func(c contract.Connection) bool {
		return c.ID() == msg.Sender
	})
	if !senderOpen {
		o.monitoring.IncrMessagesDropped()
		o.log.Debug("Sender is gone, dropping message",
			"connection_id", msg.Sender, "message_id", msg.ID)
		return domain.Delivery{}
	}

	delivery := domain.Delivery{Recipients: len(recipients)}
	for _, conn := range recipients {
		if err := o.send(ctx, conn, msg.Content); err != nil {
			delivery.Failed++
			o.log.Warn("Delivery failed",
				"connection_id", conn.ID(), "message_id", msg.ID, "error", err)
			continue
		}
		delivery.Delivered++
	}
	o.monitoring.AddDelivery(delivery)
	o.log.Debug("Message relayed", "message_id", msg.ID,
		"recipients", delivery.Recipients, "failed", delivery.Failed)
	return delivery
}

// send bounds a single delivery by the sink timeout and isolates panics
// so that one recipient can never prevent delivery to the others.
func (o *Relay) send(ctx context.Context, conn contract.Connection, content string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("send panicked: %v", r)
		}
	}()
	if o.config.SinkTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.config.SinkTimeout)
		defer cancel()
	}
	return conn.Send(ctx, content)
}

// Submit enqueues msg for asynchronous relaying.
// It blocks until the message is queued, ctx is done or the relay stops.
func (o *Relay) Submit(ctx context.Context, msg domain.Message) error {
	select {
	case <-o.stopped:
		return errors.ErrRelayStopped
	default:
	}

	select {
	case o.inbound <- msg:
		o.monitoring.IncrMessagesReceived()
		return nil
	case <-ctx.Done():
		o.monitoring.IncrMessagesDropped()
		return ctx.Err()
	case <-o.stopped:
		o.monitoring.IncrMessagesDropped()
		return errors.ErrRelayStopped
	}
}

func (o *Relay) Connections() int {
	return o.registry.Len()
}

func (o *Relay) Monitoring() *observability.MonitoringManager {
	return o.monitoring
}

// Start launches the supervised worker pool and returns immediately.
func (o *Relay) Start(ctx context.Context) error {
	o.mu.Lock()
	select {
	case <-o.stopped:
		o.mu.Unlock()
		return errors.ErrRelayStopped
	default:
	}
	if o.cancel != nil {
		o.mu.Unlock()
		return errors.ErrRelayAlreadyStarted
	}
	runCtx, cancel := context.WithCancel(ctx)
	o.cancel = cancel

	for i := 0; i < o.config.NumberOfWorkers; i++ {
		o.supervisor.Add(workers.NewRelayWorker(o, o.inbound, o.log))
	}
	if o.config.MetricInterval > 0 {
		o.supervisor.Add(workers.NewStatsWorker(o.log, o.monitoring, o.Connections,
			o.queueUsage, o.config.MetricInterval, o.config.LowCapacityThreshold))
	}
	o.mu.Unlock()

	go func() {
		defer close(o.done)
		o.supervisor.Run(runCtx)
	}()

	o.log.Info("Relay started", "workers", o.config.NumberOfWorkers,
		"buffer_size", o.config.BufferSize)
	return nil
}

func (o *Relay) queueUsage() (int, int) {
	return len(o.inbound), cap(o.inbound)
}

// Stop cancels the workers, waits for them, then closes every open
// connection. Calling Stop more than once is a no-op.
func (o *Relay) Stop() {
	o.stopOnce.Do(func() {
		o.log.Info("Requesting relay shutdown")

		// No registration can slip in between this and the snapshot below.
		o.mu.Lock()
		close(o.stopped)
		cancel := o.cancel
		o.mu.Unlock()
		if cancel != nil {
			cancel()
			o.supervisor.Stop()
			<-o.done
		}

		for _, conn := range o.registry.Snapshot() {
			if err := conn.Close(); err != nil {
				o.log.Debug("Closing connection failed", "connection_id", conn.ID(), "error", err)
			}
			o.Unregister(conn)
		}
		o.log.Info("Relay stopped")
	})
}
