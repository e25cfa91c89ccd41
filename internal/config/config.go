// Package config loads and saves the viewer's persisted settings.
//
// Settings live in <UserConfigDir>/randview/config.yaml. RANDVIEW_*
// environment variables override the file.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"randview/internal/ledger"
	"randview/internal/scan"
)

const (
	appDir   = "randview"
	fileName = "config.yaml"

	defaultWidth             = 1024
	defaultHeight            = 768
	defaultSlideshowInterval = 5 * time.Second
	defaultHistorySize       = 100
)

// Window is the last main window size.
type Window struct {
	Width  int `yaml:"width"`
	Height int `yaml:"height"`
}

// Ledger selects the ledger backend and file.
type Ledger struct {
	Backend string `yaml:"backend"`
	Path    string `yaml:"path,omitempty"`
}

// Config is the persisted application configuration.
type Config struct {
	LastDir           string        `yaml:"last_dir,omitempty"`
	Window            Window        `yaml:"window"`
	Ledger            Ledger        `yaml:"ledger"`
	Extensions        []string      `yaml:"extensions"`
	SlideshowInterval time.Duration `yaml:"slideshow_interval"`
	HistorySize       int           `yaml:"history_size"`
}

// Default returns the configuration used when no file exists.
func Default() Config {
	return Config{
		Window:            Window{Width: defaultWidth, Height: defaultHeight},
		Ledger:            Ledger{Backend: string(ledger.BackendBolt)},
		Extensions:        append([]string(nil), scan.DefaultExtensions...),
		SlideshowInterval: defaultSlideshowInterval,
		HistorySize:       defaultHistorySize,
	}
}

// DefaultPath returns <UserConfigDir>/randview/config.yaml.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user config directory: %w", err)
	}
	return filepath.Join(dir, appDir, fileName), nil
}

// Load reads the config file at path. A missing file yields Default().
// Fields absent from the file keep their defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Default(), fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	if err := cfg.validate(); err != nil {
		return Default(), fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// LoadWithEnv is Load followed by ApplyEnv.
func LoadWithEnv(path string) (Config, error) {
	cfg, err := Load(path)
	if err != nil {
		return cfg, err
	}
	if err := ApplyEnv(&cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Save writes cfg to path, creating the directory if needed. The file is
// replaced atomically.
func Save(path string, cfg Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return fmt.Errorf("failed to create config directory %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, fileName+".*")
	if err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to save config: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}
	return nil
}

// LedgerBackend returns the parsed ledger backend.
func (c Config) LedgerBackend() ledger.Backend {
	b, err := ledger.ParseBackend(c.Ledger.Backend)
	if err != nil {
		return ledger.BackendBolt
	}
	return b
}

// ExtensionSet returns the configured extensions as a scan set.
func (c Config) ExtensionSet() scan.Extensions {
	return scan.NewExtensions(c.Extensions...)
}

func (c *Config) validate() error {
	if _, err := ledger.ParseBackend(c.Ledger.Backend); err != nil {
		return err
	}
	if c.Window.Width <= 0 || c.Window.Height <= 0 {
		c.Window = Window{Width: defaultWidth, Height: defaultHeight}
	}
	if len(c.ExtensionSet()) == 0 {
		c.Extensions = append([]string(nil), scan.DefaultExtensions...)
	}
	if c.SlideshowInterval <= 0 {
		c.SlideshowInterval = defaultSlideshowInterval
	}
	if c.HistorySize < 0 {
		c.HistorySize = 0
	}
	return nil
}
