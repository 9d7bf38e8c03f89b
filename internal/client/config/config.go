package config

import (
	"os"
	"time"
)

// Config holds runtime settings for the CLI.
type Config struct {
	BackendURL     string
	RequestTimeout time.Duration
	DatabasePath   string
	KeyringService string
	LogLevel       string

	// OnlineCheckInterval is how often the CLI probes backend reachability.
	OnlineCheckInterval time.Duration
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.BackendURL = "http://127.0.0.1:8000"
	c.RequestTimeout = 30 * time.Second
	c.DatabasePath = "fras.db"
	c.KeyringService = "fras"
	c.LogLevel = "info"
	c.OnlineCheckInterval = 10 * time.Second
}

// Load builds a Config from defaults, then the config file named in args (if
// any), then the flags in args. Later sources take precedence.
func Load(args []string) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()
	if err := parseFile(cfg, args); err != nil {
		return nil, err
	}
	if err := parseFlags(cfg, args); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadConfig is Load over the process arguments.
func LoadConfig() (*Config, error) {
	return Load(os.Args[1:])
}
