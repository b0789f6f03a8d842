package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// parseEnv overlays values from environment variables. Only variables that
// are present override the current field values.
func parseEnv(cfg *Config) error {
	if err := env.Parse(cfg); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}
