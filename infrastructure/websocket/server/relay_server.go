package server

import (
	"broadcast-relay/observability"
	"broadcast-relay/services"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gorilla/websocket"
	"github.com/samber/lo"
)

// RelayServer is the WebSocket boundary of the relay.
// It turns the socket lifecycle into Join, Post and Leave calls.
type RelayServer struct {
	log            *slog.Logger
	relayService   services.IRelayService
	monitoring     *observability.MonitoringManager
	opts           Options
	allowedOrigins []string
	upgrader       websocket.Upgrader
}

func NewRelayServer(log *slog.Logger, relayService services.IRelayService,
	monitoring *observability.MonitoringManager, opts Options, allowedOrigins []string) *RelayServer {
	s := &RelayServer{
		log:            log,
		relayService:   relayService,
		monitoring:     monitoring,
		opts:           opts,
		allowedOrigins: allowedOrigins,
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     s.checkOrigin,
	}
	return s
}

// Routes mounts the WebSocket endpoint next to the operator endpoints.
func (s *RelayServer) Routes(stats http.Handler) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/up", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	if stats != nil {
		mux.Handle("/stats", stats)
	}
	mux.Handle("/ws", s)
	return mux
}

// ServeHTTP upgrades the request and blocks until the client disconnects.
// Cleanup is deferred so the registry never keeps a dead connection.
func (s *RelayServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already answered the client.
		s.log.Warn("Websocket upgrade failed", "remote", r.RemoteAddr, "error", err)
		return
	}

	conn := newConnection(ws, r.RemoteAddr, s.opts, s.log)
	if err := conn.open(); err != nil {
		s.log.Error("Connection could not be opened", "connection_id", conn.ID(), "error", err)
		_ = ws.Close()
		return
	}
	go conn.writePump()

	s.log.Debug("Websocket handshake completed", "connection_id", conn.ID(), "remote", r.RemoteAddr)
	if err := s.relayService.Join(conn); err != nil {
		s.log.Warn("Connection refused", "connection_id", conn.ID(), "remote", r.RemoteAddr, "error", err)
		_ = conn.Close()
		return
	}
	defer s.relayService.Leave(conn)
	defer func() { _ = conn.Close() }()

	ctx := r.Context()
	err = conn.readPump(func(content string) {
		if err := s.relayService.Post(ctx, conn.ID(), content); err != nil {
			s.log.Warn("Message dropped", "connection_id", conn.ID(), "error", err)
		}
	}, s.countDrop)
	if err != nil {
		s.log.Debug("Connection read ended", "connection_id", conn.ID(), "remote", r.RemoteAddr, "error", err)
	}
}

func (s *RelayServer) countDrop() {
	if s.monitoring != nil {
		s.monitoring.IncrMessagesDropped()
	}
}

// checkOrigin accepts any origin when no allow-list is configured.
// Requests without an Origin header do not come from a browser.
func (s *RelayServer) checkOrigin(r *http.Request) bool {
	if len(s.allowedOrigins) == 0 {
		return true
	}
	origin := strings.TrimSpace(r.Header.Get("Origin"))
	if origin == "" {
		return true
	}
	return lo.Contains(s.allowedOrigins, origin)
}
