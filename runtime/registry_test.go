package runtime

import (
	"broadcast-relay/contract"
	"broadcast-relay/domain"
	"context"
	"math/rand"
	"sync"
	"testing"

	"github.com/samber/lo"
	"github.com/stretchr/testify/require"
)

// stubConnection records every content it is asked to deliver.
type stubConnection struct {
	id       domain.ConnectionID
	mu       sync.Mutex
	received []string
	sendErr  error
	closed   bool
}

func newStubConnection() *stubConnection {
	return &stubConnection{id: domain.NewConnectionID()}
}

func (s *stubConnection) ID() domain.ConnectionID { return s.id }

func (s *stubConnection) Send(_ context.Context, content string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sendErr != nil {
		return s.sendErr
	}
	s.received = append(s.received, content)
	return nil
}

func (s *stubConnection) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *stubConnection) Received() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.received...)
}

func (s *stubConnection) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func TestRegistry_Register_One_Connection(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	conn := newStubConnection()

	// Given no connection is registered
	req.Zero(registry.Len())
	req.Empty(registry.Snapshot())

	// When a connection registers
	registry.Register(conn)

	// Then it is part of the active set
	req.Equal(1, registry.Len())
	req.True(registry.Contains(conn.ID()))
	req.Equal([]contract.Connection{conn}, registry.Snapshot())
}

func TestRegistry_Unregister_Is_Idempotent(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	conn1 := newStubConnection()
	conn2 := newStubConnection()

	// Given two registered connections
	registry.Register(conn1)
	registry.Register(conn2)

	// When the first one unregisters twice
	req.True(registry.Unregister(conn1.ID()))
	req.False(registry.Unregister(conn1.ID()))

	// Then only the second one is left
	req.Equal(1, registry.Len())
	req.False(registry.Contains(conn1.ID()))
	req.True(registry.Contains(conn2.ID()))
}

func TestRegistry_Unregister_Unknown_Connection(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()

	// When an unknown connection unregisters
	removed := registry.Unregister(domain.NewConnectionID())

	// Then nothing happens
	req.False(removed)
	req.Zero(registry.Len())
}

func TestRegistry_Snapshot_Is_Detached(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	conn1 := newStubConnection()
	conn2 := newStubConnection()
	registry.Register(conn1)

	// Given a snapshot taken with one connection
	snapshot := registry.Snapshot()

	// When the active set changes afterwards
	registry.Register(conn2)
	registry.Unregister(conn1.ID())

	// Then the snapshot is unchanged
	req.Len(snapshot, 1)
	req.Equal(conn1.ID(), snapshot[0].ID())
}

// Random register/unregister sequences must leave the registry equal to a
// plain map model of the same operations.
func TestRegistry_Matches_Model(t *testing.T) {
	req := require.New(t)
	rnd := rand.New(rand.NewSource(42))

	for round := 0; round < 50; round++ {
		registry := NewRegistry()
		model := make(map[domain.ConnectionID]bool)
		pool := lo.Times(8, func(int) *stubConnection { return newStubConnection() })

		for step := 0; step < 100; step++ {
			conn := pool[rnd.Intn(len(pool))]
			if rnd.Intn(2) == 0 {
				registry.Register(conn)
				model[conn.ID()] = true
				continue
			}
			removed := registry.Unregister(conn.ID())
			req.Equal(model[conn.ID()], removed)
			delete(model, conn.ID())
		}

		req.Equal(len(model), registry.Len())
		ids := lo.Map(registry.Snapshot(), func(c contract.Connection, _ int) domain.ConnectionID { return c.ID() })
		req.ElementsMatch(lo.Keys(model), ids)
	}
}

func TestRegistry_Concurrent_Access(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	var wg sync.WaitGroup

	// When many goroutines register, snapshot and unregister at once
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			conn := newStubConnection()
			registry.Register(conn)
			_ = registry.Snapshot()
			registry.Unregister(conn.ID())
		}()
	}
	wg.Wait()

	// Then every connection is gone
	req.Zero(registry.Len())
}
