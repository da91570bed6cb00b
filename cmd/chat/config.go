package main

import (
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	RelayURL string `envconfig:"RELAY_URL" default:"ws://localhost:3000/ws"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"INFO"`
	// CHAT_COLOURS enables colorized output of incoming messages
	Colours bool `envconfig:"CHAT_COLOURS" default:"true"`
}

func LoadConfig() (Config, error) {
	var cfg Config
	err := envconfig.Process("", &cfg)
	return cfg, err
}
