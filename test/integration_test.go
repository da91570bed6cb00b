package test

import (
	"broadcast-relay/contract"
	"broadcast-relay/domain"
	"broadcast-relay/mocks"
	"broadcast-relay/runtime"
	"broadcast-relay/runtime/workers"
	"broadcast-relay/services"
	"context"
	"fmt"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/mama165/sdk-go/logs"
	"github.com/samber/lo"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

type recordingConnection struct {
	id       domain.ConnectionID
	mu       sync.Mutex
	received []string
}

func (c *recordingConnection) ID() domain.ConnectionID { return c.id }

func (c *recordingConnection) Send(_ context.Context, content string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.received = append(c.received, content)
	return nil
}

func (c *recordingConnection) Close() error { return nil }

func (c *recordingConnection) Received() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.received...)
}

func newRelay(t *testing.T, numberOfWorkers int) (*runtime.Relay, *services.RelayService) {
	t.Helper()
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	supervisor := workers.NewSupervisor(log, 200*time.Millisecond)
	relay := runtime.NewRelay(log, supervisor, runtime.NewRegistry(), nil, runtime.RelayConfig{
		NumberOfWorkers: numberOfWorkers,
		BufferSize:      1000,
		SinkTimeout:     3 * time.Second,
	})
	require.NoError(t, relay.Start(context.Background()))
	// Clean everything at the end of the test
	t.Cleanup(relay.Stop)
	return relay, services.NewRelayService(relay)
}

func Test_Scenario(t *testing.T) {
	ctx := context.Background()
	req := require.New(t)
	_, service := newRelay(t, 4)

	// 1. Create channel to wait for a signal at the end of process
	done := make(chan struct{})
	ctrl := gomock.NewController(t)
	connection := mocks.NewMockConnection(ctrl)
	connectionID := domain.NewConnectionID()
	content := "this message will self destruct in 5 seconds"

	connection.EXPECT().ID().Return(connectionID).AnyTimes()
	connection.EXPECT().
		Send(gomock.Any(), content).
		Do(func(context.Context, string) {
			close(done) // Signaling the message went back to its sender
		}).
		Return(nil).
		Times(1)

	req.NoError(service.Join(connection))
	defer service.Leave(connection)

	// When a message is posted
	req.NoError(service.Post(ctx, connectionID, content))

	// And wait time for channels & goroutines
	select {
	case <-done:
		// Then the message has reached the connection
	case <-time.After(2 * time.Second):
		req.Fail("Timeout: message has never reached the connection")
	}
}

// Senders that left before posting never reach anybody, whatever the
// interleaving of the workers.
func Test_Scenario_Concurrent_Senders(t *testing.T) {
	ctx := context.Background()
	req := require.New(t)
	relay, service := newRelay(t, 4)
	const perSender = 20

	stayers := lo.Times(5, func(int) *recordingConnection {
		return &recordingConnection{id: domain.NewConnectionID()}
	})
	ghosts := lo.Times(5, func(int) *recordingConnection {
		return &recordingConnection{id: domain.NewConnectionID()}
	})

	// Given five connections that stay and five that already left
	for _, c := range append(stayers, ghosts...) {
		req.NoError(service.Join(c))
	}
	for _, c := range ghosts {
		service.Leave(c)
	}
	req.Equal(len(stayers), relay.Connections())

	// When everybody posts concurrently
	var expected []string
	var wg sync.WaitGroup
	errs := make(chan error, (len(stayers)+len(ghosts))*perSender)
	for _, c := range append(stayers, ghosts...) {
		for i := 0; i < perSender; i++ {
			content := fmt.Sprintf("%s#%d", c.ID(), i)
			if lo.Contains(stayers, c) {
				expected = append(expected, content)
			}
		}
		wg.Add(1)
		go func(c *recordingConnection) {
			defer wg.Done()
			for i := 0; i < perSender; i++ {
				errs <- service.Post(ctx, c.ID(), fmt.Sprintf("%s#%d", c.ID(), i))
			}
		}(c)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		req.NoError(err)
	}

	// Then every remaining connection gets every message from the stayers exactly once
	for _, c := range stayers {
		req.Eventually(func() bool { return len(c.Received()) == len(expected) },
			2*time.Second, 10*time.Millisecond)
		req.ElementsMatch(expected, c.Received())
	}
	// And the ghosts' messages were dropped
	for _, c := range ghosts {
		req.Empty(c.Received())
	}
	req.Eventually(func() bool {
		return relay.Monitoring().GetLatest().MessagesDropped == uint64(len(ghosts)*perSender)
	}, 2*time.Second, 10*time.Millisecond)
}

var _ contract.Connection = (*recordingConnection)(nil)
