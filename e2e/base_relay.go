package e2e

import (
	"broadcast-relay/client"
	"broadcast-relay/infrastructure/websocket/server"
	"broadcast-relay/internal"
	"broadcast-relay/runtime"
	"broadcast-relay/runtime/workers"
	"broadcast-relay/services"
	"context"
	"fmt"
	"log/slog"
	"net/http/httptest"
	"strings"
	"time"

	"github.com/gookit/color"
	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/suite"
)

type BaseRelaySuite struct {
	suite.Suite
	Config  Config
	timeout time.Duration
	log     *slog.Logger

	// Set only when the suite runs its own relay.
	relay  *runtime.Relay
	server *httptest.Server
}

// SetupSuite loads the environment configuration and, unless a relay URL is
// given, boots a relay on a random local port.
func (s *BaseRelaySuite) SetupSuite() {
	var err error
	s.Config, err = LoadConfig()
	s.Require().NoError(err)
	s.timeout, err = time.ParseDuration(s.Config.Timeout)
	s.Require().NoError(err)
	s.log = logs.GetLoggerFromLevel(slog.LevelDebug)

	if s.Config.RelayURL != "" {
		return
	}

	sup := workers.NewSupervisor(s.log, 50*time.Millisecond)
	s.relay = runtime.NewRelay(s.log, sup, runtime.NewRegistry(), nil, runtime.RelayConfig{
		NumberOfWorkers: 1,
		BufferSize:      64,
		SinkTimeout:     time.Second,
	})
	s.Require().NoError(s.relay.Start(context.Background()))

	relayServer := server.NewRelayServer(s.log, services.NewRelayService(s.relay),
		s.relay.Monitoring(), server.DefaultOptions(), nil)
	stats := internal.NewStatsHandler(s.log, s.relay.Monitoring(), s.relay.Connections)
	s.server = httptest.NewServer(relayServer.Routes(stats))
	s.Config.RelayURL = "ws" + strings.TrimPrefix(s.server.URL, "http") + "/ws"
}

func (s *BaseRelaySuite) TearDownSuite() {
	if s.relay != nil {
		s.relay.Stop()
	}
	if s.server != nil {
		s.server.Close()
	}
}

// Connect dials the relay and starts the client's read loop.
// The client is closed when the test ends.
func (s *BaseRelaySuite) Connect(name string) *client.Client {
	header := fmt.Sprintf("  ====== %s connects to %s ======", name, s.Config.RelayURL)
	if s.Config.Colours {
		header = color.New(color.BgBlack, color.FgGreen).Render(header)
	}
	s.T().Log(header)

	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	c, err := client.Dial(ctx, s.Config.RelayURL, s.log.With("client", name))
	s.Require().NoError(err, "Failed to connect to relay at "+s.Config.RelayURL)

	runCtx, stop := context.WithCancel(context.Background())
	go func() { _ = c.Run(runCtx) }()
	s.T().Cleanup(func() {
		stop()
		_ = c.Close()
	})
	return c
}

// Await blocks until c has received want messages, then returns its log.
func (s *BaseRelaySuite) Await(c *client.Client, want int) []string {
	s.Require().Eventually(func() bool { return len(c.Messages()) >= want },
		s.timeout, 10*time.Millisecond)
	return c.Messages()
}

// AwaitConnections waits until the in-process relay has registered n
// connections. Against a remote relay it only gives the handshake a moment.
func (s *BaseRelaySuite) AwaitConnections(n int) {
	if s.relay == nil {
		time.Sleep(200 * time.Millisecond)
		return
	}
	s.Require().Eventually(func() bool { return s.relay.Connections() == n },
		s.timeout, 10*time.Millisecond)
}
