package database

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	// Driver selects the journal backend: sqlite (default) or postgres.
	Driver string `envconfig:"DB_DRIVER" default:"sqlite"`
	// DSN is the sqlite file path or the postgres connection string.
	DSN string `envconfig:"DB_DSN" default:"tradebot.db"`
}

func GetConfig() Config {
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		panic(fmt.Errorf("error processing env config: %w", err))
	}
	return config
}
