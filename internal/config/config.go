package config

import (
	"os"
	"time"

	"gitlab.com/tozd/go/errors"
	"gopkg.in/yaml.v3"

	"github.com/jward/rtview/internal/emit"
)

// DefaultFile is the config file the CLI reads when --config is not given.
const DefaultFile = "rtview.yaml"

// Config represents the rtview.yaml configuration.
type Config struct {
	DB string `yaml:"db"`
	// Scripts is a directory overriding the embedded harvesting script and
	// script libraries.
	Scripts string `yaml:"scripts"`
	// Definitions are the snapshot scripts or directories `load` runs when
	// given no arguments.
	Definitions   []string      `yaml:"definitions"`
	Headers       []string      `yaml:"headers"`
	LookupTimeout time.Duration `yaml:"lookup_timeout"`
	LogLevel      string        `yaml:"log_level"`
	Export        ExportConfig  `yaml:"export"`
	Options       emit.Options  `yaml:"options"`
}

// ExportConfig controls bulk header export.
type ExportConfig struct {
	Dir     string `yaml:"dir"`
	Workers int    `yaml:"workers"` // 0 selects the number of CPUs
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		DB:            "rtview.db",
		LookupTimeout: 5 * time.Second,
		LogLevel:      "info",
		Export: ExportConfig{
			Dir: "headers",
		},
	}
}

// Load reads a configuration file from the given path.
// Missing fields are filled with defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Errorf("reading config %s: %w", path, err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, errors.Errorf("parsing config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// LoadOptional is Load, except that a missing file yields Default.
func LoadOptional(path string) (*Config, error) {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return Default(), nil
	}
	return Load(path)
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	if c.DB == "" {
		return errors.New("db must not be empty")
	}
	if c.LookupTimeout <= 0 {
		return errors.Errorf("lookup_timeout must be positive, got %s", c.LookupTimeout)
	}
	if c.Export.Workers < 0 {
		return errors.Errorf("export.workers must not be negative, got %d", c.Export.Workers)
	}
	return nil
}
