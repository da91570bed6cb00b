// Package client is a minimal relay client: a connection handle plus the log
// of every message received on it.
package client

import (
	"broadcast-relay/errors"
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	incomingBufferSize = 64
	writeTimeout       = 10 * time.Second
)

type Client struct {
	ws  *websocket.Conn
	log *slog.Logger

	// gorilla/websocket supports one concurrent writer.
	writeMu sync.Mutex

	mu       sync.RWMutex
	messages []string
	incoming chan string

	closeOnce sync.Once
}

// Dial opens a WebSocket channel to the relay at url (ws:// or wss://).
func Dial(ctx context.Context, url string, log *slog.Logger) (*Client, error) {
	ws, resp, err := websocket.DefaultDialer.DialContext(ctx, url, http.Header{})
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", url, err)
	}
	log.Debug("Connected to relay", "url", url)
	return &Client{
		ws:       ws,
		log:      log,
		incoming: make(chan string, incomingBufferSize),
	}, nil
}

// Send writes text as one frame. Empty text is declined before touching the network.
func (c *Client) Send(text string) error {
	if text == "" {
		return errors.ErrEmptyMessage
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = c.ws.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := c.ws.WriteMessage(websocket.TextMessage, []byte(text)); err != nil {
		return fmt.Errorf("send: %w", err)
	}
	return nil
}

// Run reads until the relay closes the channel or ctx is done.
// Every received text is appended to the message log, then offered on
// Incoming; a slow reader of Incoming misses notifications, never log entries.
func (c *Client) Run(ctx context.Context) error {
	defer close(c.incoming)

	stop := context.AfterFunc(ctx, func() { _ = c.Close() })
	defer stop()

	for {
		kind, payload, err := c.ws.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.log.Info("Relay closed the connection")
				return nil
			}
			return fmt.Errorf("%w: %w", errors.ErrConnectionClosed, err)
		}
		if kind != websocket.TextMessage {
			continue
		}

		text := string(payload)
		c.mu.Lock()
		c.messages = append(c.messages, text)
		c.mu.Unlock()

		select {
		case c.incoming <- text:
		default:
			c.log.Debug("Incoming notification skipped, reader is slow")
		}
	}
}

// Incoming is closed when Run returns.
func (c *Client) Incoming() <-chan string {
	return c.incoming
}

// Messages returns a copy of every message received so far, in arrival order.
func (c *Client) Messages() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]string(nil), c.messages...)
}

// Close says goodbye to the relay and releases the socket. Safe to call twice.
func (c *Client) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.writeMu.Lock()
		_ = c.ws.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		c.writeMu.Unlock()
		err = c.ws.Close()
	})
	return err
}
