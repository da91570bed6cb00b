package e2e

import (
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	// E2E_RELAY_URL targets a running relay. When empty the suite starts one in-process.
	RelayURL string `envconfig:"E2E_RELAY_URL"`
	// E2E_COLOURS enables colorized output for better log readability
	Colours bool `envconfig:"E2E_COLOURS" default:"true"`
	// E2E_TIMEOUT bounds every step of a scenario
	Timeout string `envconfig:"E2E_TIMEOUT" default:"10s"`
}

func LoadConfig() (Config, error) {
	var cfg Config
	err := envconfig.Process("", &cfg)
	return cfg, err
}
