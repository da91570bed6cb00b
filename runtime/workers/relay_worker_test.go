package workers

import (
	"broadcast-relay/domain"
	"broadcast-relay/mocks"
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func TestRelayWorker_Relays_Inbound_Messages(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	relayMock := mocks.NewMockIRelay(ctrl)

	inbound := make(chan domain.Message, 2)
	msg1 := domain.NewMessage(domain.NewConnectionID(), "one")
	msg2 := domain.NewMessage(domain.NewConnectionID(), "two")

	// Given two queued messages are relayed in order
	gomock.InOrder(
		relayMock.EXPECT().Relay(gomock.Any(), msg1).Return(domain.Delivery{Recipients: 1, Delivered: 1}),
		relayMock.EXPECT().Relay(gomock.Any(), msg2).Return(domain.Delivery{Recipients: 1, Delivered: 1}),
	)
	inbound <- msg1
	inbound <- msg2
	close(inbound)

	// When the worker drains the queue
	err := NewRelayWorker(relayMock, inbound, log).Run(context.Background())

	// Then it returns once the channel is closed
	req.NoError(err)
}

func TestRelayWorker_Stops_On_Context_Done(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	relayMock := mocks.NewMockIRelay(ctrl)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- NewRelayWorker(relayMock, make(chan domain.Message), log).Run(ctx)
	}()

	// When the context is cancelled
	cancel()

	// Then the worker returns without error and never relayed anything
	select {
	case err := <-done:
		req.NoError(err)
	case <-time.After(time.Second):
		req.Fail("Worker did not stop")
	}
}
