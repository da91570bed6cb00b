package errors

import "fmt"

var (
	ErrWorkerPanic         = fmt.Errorf("worker panic")
	ErrConnectionClosed    = fmt.Errorf("connection is closed")
	ErrSendBufferFull      = fmt.Errorf("connection send buffer is full")
	ErrEmptyMessage        = fmt.Errorf("message is empty")
	ErrInvalidTransition   = fmt.Errorf("invalid connection state transition")
	ErrRelayStopped        = fmt.Errorf("relay is stopped")
	ErrRelayAlreadyStarted = fmt.Errorf("relay already started")
	ErrInvalidConfig       = fmt.Errorf("invalid configuration")
)
