package e2e

import (
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	// BOARD_ADDR points at a running server, e.g. http://localhost:8080.
	// When empty the e2e suite is skipped.
	BoardAddr string `envconfig:"BOARD_ADDR"`
	// E2E_DEBUG_JSON allows dumping full request/response bodies
	DebugJSON bool `envconfig:"E2E_DEBUG_JSON" default:"false"`
	// E2E_COLOURS enables colorized output for better log readability
	Colours          bool   `envconfig:"E2E_COLOURS" default:"true"`
	DownloadPassword string `envconfig:"DOWNLOAD_PASSWORD"`
}

func LoadConfig() (Config, error) {
	var cfg Config
	err := envconfig.Process("", &cfg)
	return cfg, err
}
