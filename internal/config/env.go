package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// ParseEnv loads configuration from environment variables.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// overrides holds the raw environment values that take precedence over the
// config file.
type overrides struct {
	Dir               string        `env:"RANDVIEW_DIR"`
	LedgerBackend     string        `env:"RANDVIEW_LEDGER_BACKEND"`
	LedgerPath        string        `env:"RANDVIEW_LEDGER_PATH"`
	SlideshowInterval time.Duration `env:"RANDVIEW_SLIDESHOW_INTERVAL"`
	Extensions        []string      `env:"RANDVIEW_EXTENSIONS" envSeparator:","`
}

// ApplyEnv overlays RANDVIEW_* environment variables onto cfg.
func ApplyEnv(cfg *Config) error {
	var o overrides
	if err := ParseEnv(&o); err != nil {
		return err
	}
	if o.Dir != "" {
		cfg.LastDir = o.Dir
	}
	if o.LedgerBackend != "" {
		cfg.Ledger.Backend = o.LedgerBackend
	}
	if o.LedgerPath != "" {
		cfg.Ledger.Path = o.LedgerPath
	}
	if o.SlideshowInterval > 0 {
		cfg.SlideshowInterval = o.SlideshowInterval
	}
	if len(o.Extensions) > 0 {
		cfg.Extensions = o.Extensions
	}
	return cfg.validate()
}
