// Package domain contains core concepts of the relay.
// This file defines the Connection identity and its lifecycle.
// No runtime, network, or UI logic should be added here.
package domain

import (
	"broadcast-relay/errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

type ConnectionID string

func NewConnectionID() ConnectionID {
	return ConnectionID(uuid.NewString())
}

type ConnectionState int

const (
	Connecting ConnectionState = iota
	Open
	Closed
)

func (s ConnectionState) String() string {
	switch s {
	case Connecting:
		return "CONNECTING"
	case Open:
		return "OPEN"
	case Closed:
		return "CLOSED"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", int(s))
	}
}

// Lifecycle tracks the state of one connection.
// Connecting -> Open on handshake completion, Open -> Closed on disconnect,
// error or relay shutdown. Closing twice is a no-op.
type Lifecycle struct {
	mu    sync.Mutex
	state ConnectionState
}

func NewLifecycle() *Lifecycle {
	return &Lifecycle{state: Connecting}
}

func (l *Lifecycle) State() ConnectionState {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

// Transition moves the lifecycle to next.
// It returns true when the state actually changed.
func (l *Lifecycle) Transition(next ConnectionState) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	switch {
	case l.state == Connecting && next == Open,
		l.state == Open && next == Closed:
		l.state = next
		return true, nil
	case l.state == Closed && next == Closed:
		return false, nil
	default:
		return false, fmt.Errorf("%w: %s -> %s", errors.ErrInvalidTransition, l.state, next)
	}
}
