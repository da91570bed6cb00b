// Package domain contains core concepts of the relay.
// This file defines Message and the Delivery report produced by a broadcast.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// Message represents an immutable text payload submitted by one connection.
// Content is forwarded verbatim and never stored once relayed.
type Message struct {
	ID         uuid.UUID // unique identifier, for logs only
	Sender     ConnectionID
	Content    string
	ReceivedAt time.Time
}

func NewMessage(sender ConnectionID, content string) Message {
	return Message{
		ID:         uuid.New(),
		Sender:     sender,
		Content:    content,
		ReceivedAt: time.Now().UTC(),
	}
}

// Delivery summarizes one broadcast.
type Delivery struct {
	Recipients int
	Delivered  int
	Failed     int
}
