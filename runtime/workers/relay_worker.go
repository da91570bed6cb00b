package workers

import (
	"broadcast-relay/contract"
	"broadcast-relay/domain"
	"context"
	"log/slog"
)

// Ensure *RelayWorker implements the contract.Worker interface at compile time.
var _ contract.Worker = (*RelayWorker)(nil)

// RelayWorker drains the inbound queue and hands every message to the relay.
// Each message is an independent unit of work; with a single worker the
// relay behaves as one logical thread of control.
type RelayWorker struct {
	relay   contract.IRelay
	inbound <-chan domain.Message
	log     *slog.Logger
}

func NewRelayWorker(relay contract.IRelay, inbound <-chan domain.Message, log *slog.Logger) *RelayWorker {
	return &RelayWorker{relay: relay, inbound: inbound, log: log}
}

func (w *RelayWorker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			w.log.Debug("Stopping relay worker")
			return nil
		case msg, ok := <-w.inbound:
			if !ok {
				w.log.Debug("Inbound channel is closed")
				return nil
			}
			w.relay.Relay(ctx, msg)
		}
	}
}
