package internal

import (
	"broadcast-relay/errors"
	"fmt"
	"strings"
	"time"

	"github.com/Netflix/go-env"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/samber/lo"
)

type Config struct {
	Host                 string        `env:"HOST,default=0.0.0.0"`
	Port                 int           `env:"PORT,default=3000" validate:"min=1,max=65535"`
	LogLevel             string        `env:"LOG_LEVEL,default=INFO" validate:"oneof=DEBUG INFO WARN ERROR"`
	BufferSize           int           `env:"BUFFER_SIZE,default=256" validate:"min=1"`
	ConnectionBufferSize int           `env:"CONNECTION_BUFFER_SIZE,default=64" validate:"min=1"`
	NumberOfWorkers      int           `env:"NUMBER_OF_WORKERS,default=1" validate:"min=1"`
	SinkTimeout          time.Duration `env:"SINK_TIMEOUT,default=2s" validate:"gt=0"`
	RestartInterval      time.Duration `env:"RESTART_INTERVAL,default=200ms" validate:"gt=0"`
	MetricInterval       time.Duration `env:"METRIC_INTERVAL,default=30s" validate:"gt=0"`
	LowCapacityThreshold int           `env:"LOW_CAPACITY_THRESHOLD,default=16" validate:"min=0"`
	MaxMessageSize       int64         `env:"MAX_MESSAGE_SIZE,default=65536" validate:"min=1"`
	PingInterval         time.Duration `env:"PING_INTERVAL,default=25s" validate:"gt=0"`
	PongTimeout          time.Duration `env:"PONG_TIMEOUT,default=60s" validate:"gtfield=PingInterval"`
	WriteTimeout         time.Duration `env:"WRITE_TIMEOUT,default=10s" validate:"gt=0"`
	ShutdownTimeout      time.Duration `env:"SHUTDOWN_TIMEOUT,default=5s" validate:"gt=0"`
	RateLimitPerSecond   int           `env:"RATE_LIMIT_PER_SECOND,default=0" validate:"min=0"`
	// Space separated. Empty accepts any origin.
	AllowedOrigins []string `env:"ALLOWED_ORIGINS,separator= "`
}

var validate = validator.New()

// LoadConfig reads an optional .env file, then the process environment.
// Variables already set in the environment win over the .env file.
func LoadConfig() (Config, error) {
	_ = godotenv.Load()

	var config Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return Config{}, fmt.Errorf("%w: %w", errors.ErrInvalidConfig, err)
	}
	return config.normalize()
}

func (c Config) normalize() (Config, error) {
	c.LogLevel = strings.ToUpper(strings.TrimSpace(c.LogLevel))
	c.AllowedOrigins = lo.Compact(lo.Map(c.AllowedOrigins, func(o string, _ int) string {
		return strings.TrimSpace(o)
	}))
	if err := validate.Struct(c); err != nil {
		return Config{}, fmt.Errorf("%w: %w", errors.ErrInvalidConfig, err)
	}
	return c, nil
}

func (c Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
