package e2e

import (
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	// E2E_API_ADDR is the base URL of a running server, e.g. http://localhost:5000.
	// Scenarios are skipped when it is empty.
	APIAddr string `envconfig:"E2E_API_ADDR"`
	// E2E_DEBUG_JSON dumps full request/response bodies
	DebugJSON bool `envconfig:"E2E_DEBUG_JSON" default:"false"`
	// E2E_COLOURS enables colorized output for better log readability
	Colours bool `envconfig:"E2E_COLOURS" default:"true"`
	// E2E_REAP_WAIT must exceed the server inactivity threshold plus one reaper interval
	ReapWait time.Duration `envconfig:"E2E_REAP_WAIT" default:"35s"`
}

func LoadConfig() (Config, error) {
	var cfg Config
	err := envconfig.Process("", &cfg)
	return cfg, err
}
