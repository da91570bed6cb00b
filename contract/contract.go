//go:generate go run go.uber.org/mock/mockgen -source=contract.go -destination=../mocks/mock_contract.go -package=mocks
package contract

import (
	"broadcast-relay/domain"
	"context"
	"reflect"
)

type ISupervisor interface {
	Add(worker ...Worker) ISupervisor
	Run(ctx context.Context)
	Start(ctx context.Context, worker Worker)
	Stop()
}

// Worker doesn't protect itself
// Can be silly, focused
type Worker interface {
	Run(ctx context.Context) error
}

// GetWorkerName uses reflection to retrieve the type name of the worker.
// This is used for logging and supervision purposes during worker initialization
// or lifecycle events, avoiding the need for manual naming in the Worker interface.
func GetWorkerName(w Worker) string {
	if w == nil {
		return "NilWorker"
	}
	t := reflect.TypeOf(w)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}

// Connection is one client's live channel as seen by the relay.
// Send is the transport's outbound primitive: it must not wait for the
// recipient to acknowledge anything.
type Connection interface {
	ID() domain.ConnectionID
	Send(ctx context.Context, content string) error
	Close() error
}

type IRegistry interface {
	Register(conn Connection)
	Unregister(id domain.ConnectionID) bool
	Snapshot() []Connection
	Contains(id domain.ConnectionID) bool
	Len() int
}

type IRelay interface {
	RegisterConnection(conn Connection) error
	Unregister(conn Connection)
	Relay(ctx context.Context, msg domain.Message) domain.Delivery
	Submit(ctx context.Context, msg domain.Message) error
	Connections() int
}
