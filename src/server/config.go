package server

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Enabled bool   `envconfig:"STATUS_SERVER_ENABLED" default:"true"`
	Port    string `envconfig:"STATUS_SERVER_PORT" default:"8090"`
}

func GetConfig() Config {
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		panic(fmt.Errorf("error processing env config: %w", err))
	}
	return config
}
