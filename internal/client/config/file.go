package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dmitrijs2005/fleetauth/internal/flagx"
	"github.com/dmitrijs2005/fleetauth/internal/timex"
	"gopkg.in/yaml.v3"
)

// FileConfig is a DTO used only for decoding config files. Zero values
// leave the corresponding Config field alone.
type FileConfig struct {
	BackendURL     string         `json:"backend_url" yaml:"backend_url"`
	RequestTimeout timex.Duration `json:"request_timeout" yaml:"request_timeout"`
	DatabasePath   string         `json:"database_path" yaml:"database_path"`
	KeyringService string         `json:"keyring_service" yaml:"keyring_service"`
	LogLevel       string         `json:"log_level" yaml:"log_level"`

	OnlineCheckInterval timex.Duration `json:"online_check_interval" yaml:"online_check_interval"`
}

func parseFile(cfg *Config, args []string) error {
	path := flagx.ConfigFileFlag(args)
	if path == "" {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}

	var fc FileConfig
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &fc)
	default:
		err = json.Unmarshal(data, &fc)
	}
	if err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}

	if fc.BackendURL != "" {
		cfg.BackendURL = fc.BackendURL
	}
	if fc.RequestTimeout.Duration != 0 {
		cfg.RequestTimeout = fc.RequestTimeout.Duration
	}
	if fc.DatabasePath != "" {
		cfg.DatabasePath = fc.DatabasePath
	}
	if fc.KeyringService != "" {
		cfg.KeyringService = fc.KeyringService
	}
	if fc.LogLevel != "" {
		cfg.LogLevel = fc.LogLevel
	}
	if fc.OnlineCheckInterval.Duration != 0 {
		cfg.OnlineCheckInterval = fc.OnlineCheckInterval.Duration
	}
	return nil
}
