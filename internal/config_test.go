package internal

import (
	"broadcast-relay/errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	req := require.New(t)

	config, err := LoadConfig()

	req.NoError(err)
	req.Equal("0.0.0.0", config.Host)
	req.Equal(3000, config.Port)
	req.Equal("INFO", config.LogLevel)
	req.Equal(256, config.BufferSize)
	req.Equal(64, config.ConnectionBufferSize)
	req.Equal(1, config.NumberOfWorkers)
	req.Equal(2*time.Second, config.SinkTimeout)
	req.Equal(200*time.Millisecond, config.RestartInterval)
	req.Equal(30*time.Second, config.MetricInterval)
	req.Equal(int64(65536), config.MaxMessageSize)
	req.Equal(25*time.Second, config.PingInterval)
	req.Equal(60*time.Second, config.PongTimeout)
	req.Equal(5*time.Second, config.ShutdownTimeout)
	req.Zero(config.RateLimitPerSecond)
	req.Empty(config.AllowedOrigins)
	req.Equal("0.0.0.0:3000", config.Address())
}

func TestLoadConfig_From_Environment(t *testing.T) {
	req := require.New(t)
	t.Setenv("PORT", "8081")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("NUMBER_OF_WORKERS", "4")
	t.Setenv("SINK_TIMEOUT", "150ms")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example  https://b.example")

	config, err := LoadConfig()

	req.NoError(err)
	req.Equal(8081, config.Port)
	req.Equal("DEBUG", config.LogLevel)
	req.Equal(4, config.NumberOfWorkers)
	req.Equal(150*time.Millisecond, config.SinkTimeout)
	req.Equal([]string{"https://a.example", "https://b.example"}, config.AllowedOrigins)
}

func TestLoadConfig_Rejects_Invalid_Values(t *testing.T) {
	cases := map[string][2]string{
		"port out of range":     {"PORT", "70000"},
		"unknown log level":     {"LOG_LEVEL", "LOUD"},
		"no worker":             {"NUMBER_OF_WORKERS", "0"},
		"pong before ping":      {"PONG_TIMEOUT", "1s"},
		"not a duration":        {"SINK_TIMEOUT", "soon"},
		"negative rate limit":   {"RATE_LIMIT_PER_SECOND", "-1"},
		"zero max message size": {"MAX_MESSAGE_SIZE", "0"},
	}
	for name, kv := range cases {
		t.Run(name, func(t *testing.T) {
			t.Setenv(kv[0], kv[1])

			_, err := LoadConfig()

			require.ErrorIs(t, err, errors.ErrInvalidConfig)
		})
	}
}
