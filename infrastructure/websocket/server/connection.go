package server

import (
	"broadcast-relay/contract"
	"broadcast-relay/domain"
	"broadcast-relay/errors"
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"
)

var _ contract.Connection = (*Connection)(nil)

type Options struct {
	SendBufferSize     int
	MaxMessageSize     int64
	PingInterval       time.Duration
	PongTimeout        time.Duration
	WriteTimeout       time.Duration
	RateLimitPerSecond int
}

func DefaultOptions() Options {
	return Options{
		SendBufferSize: 64,
		MaxMessageSize: 64 * 1024,
		PingInterval:   25 * time.Second,
		PongTimeout:    60 * time.Second,
		WriteTimeout:   10 * time.Second,
	}
}

// Connection is one WebSocket client registered with the relay.
// Outbound frames go through a buffered queue drained by writePump, which is
// the only goroutine writing to the socket. readPump is the only reader.
type Connection struct {
	id        domain.ConnectionID
	remote    string
	ws        *websocket.Conn
	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once
	// mu orders Send against Close: nothing is queued once done is closed.
	mu        sync.Mutex
	closed    bool
	lifecycle *domain.Lifecycle
	limiter   *rate.Limiter
	opts      Options
	log       *slog.Logger
}

func newConnection(ws *websocket.Conn, remote string, opts Options, log *slog.Logger) *Connection {
	id := domain.NewConnectionID()
	c := &Connection{
		id:        id,
		remote:    remote,
		ws:        ws,
		send:      make(chan []byte, opts.SendBufferSize),
		done:      make(chan struct{}),
		lifecycle: domain.NewLifecycle(),
		opts:      opts,
		log:       log.With("connection_id", id),
	}
	if opts.RateLimitPerSecond > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(opts.RateLimitPerSecond), opts.RateLimitPerSecond)
	}
	return c
}

func (c *Connection) ID() domain.ConnectionID { return c.id }

func (c *Connection) State() domain.ConnectionState { return c.lifecycle.State() }

func (c *Connection) open() error {
	_, err := c.lifecycle.Transition(domain.Open)
	return err
}

// Send queues content as one text frame. It never blocks on the peer:
// a full queue fails this delivery only.
func (c *Connection) Send(ctx context.Context, content string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return errors.ErrConnectionClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	select {
	case c.send <- []byte(content):
		return nil
	default:
		return errors.ErrSendBufferFull
	}
}

// Close moves the connection to Closed and asks writePump to say goodbye.
// It is safe to call from any goroutine, any number of times.
func (c *Connection) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		c.closed = true
		_, err = c.lifecycle.Transition(domain.Closed)
		close(c.done)
	})
	return err
}

func (c *Connection) writePump() {
	ticker := time.NewTicker(c.opts.PingInterval)
	defer func() {
		ticker.Stop()
		_ = c.ws.Close()
	}()

	for {
		select {
		case payload := <-c.send:
			_ = c.ws.SetWriteDeadline(time.Now().Add(c.opts.WriteTimeout))
			if err := c.ws.WriteMessage(websocket.TextMessage, payload); err != nil {
				c.log.Debug("Write failed", "error", err)
				_ = c.Close()
				return
			}
		case <-ticker.C:
			_ = c.ws.SetWriteDeadline(time.Now().Add(c.opts.WriteTimeout))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.log.Debug("Ping failed", "error", err)
				_ = c.Close()
				return
			}
		case <-c.done:
			_ = c.ws.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(c.opts.WriteTimeout))
			return
		}
	}
}

// readPump hands every inbound text frame to onMessage until the peer goes
// away, a read fails or the pong deadline passes. A normal close returns nil.
func (c *Connection) readPump(onMessage func(content string), onDrop func()) error {
	c.ws.SetReadLimit(c.opts.MaxMessageSize)
	_ = c.ws.SetReadDeadline(time.Now().Add(c.opts.PongTimeout))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(c.opts.PongTimeout))
	})

	for {
		kind, payload, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err,
				websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived) {
				return nil
			}
			return err
		}
		_ = c.ws.SetReadDeadline(time.Now().Add(c.opts.PongTimeout))

		if kind != websocket.TextMessage {
			c.log.Debug("Ignoring non-text frame", "kind", kind)
			continue
		}
		if c.limiter != nil && !c.limiter.Allow() {
			c.log.Warn("Rate limit exceeded, dropping message")
			if onDrop != nil {
				onDrop()
			}
			continue
		}
		onMessage(string(payload))
	}
}
