package bot

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"
)

// Config holds the process credentials. Missing or malformed values are
// fatal at startup; the bot must not start without them.
type Config struct {
	APIKey string `envconfig:"RH_API_KEY" required:"true"`
	// PrivateKey is the base64-encoded 32-byte Ed25519 signing seed.
	PrivateKey string `envconfig:"RH_PRIVATE_KEY" required:"true"`

	JournalEnabled bool `envconfig:"JOURNAL_ENABLED" default:"true"`
}

func GetConfig() (Config, error) {
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		return Config{}, fmt.Errorf("error processing env config: %w", err)
	}
	return config, nil
}
