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

// FileConfig is the on-disk shape. Durations accept "90s" or integer
// nanoseconds; zero values leave the Config field alone.
type FileConfig struct {
	EndpointAddr                string         `json:"endpoint_addr" yaml:"endpoint_addr"`
	SecretKey                   string         `json:"secret_key" yaml:"secret_key"`
	AccessTokenValidityDuration timex.Duration `json:"access_token_validity_duration" yaml:"access_token_validity_duration"`
	UsersFile                   string         `json:"users_file" yaml:"users_file"`
	DatabaseDSN                 string         `json:"database_dsn" yaml:"database_dsn"`
	RedisAddr                   string         `json:"redis_addr" yaml:"redis_addr"`
	ResetTokenTTL               timex.Duration `json:"reset_token_ttl" yaml:"reset_token_ttl"`
	LogLevel                    string         `json:"log_level" yaml:"log_level"`
	ShutdownTimeout             timex.Duration `json:"shutdown_timeout" yaml:"shutdown_timeout"`
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

	setString(&cfg.EndpointAddr, fc.EndpointAddr)
	setString(&cfg.SecretKey, fc.SecretKey)
	setString(&cfg.UsersFile, fc.UsersFile)
	setString(&cfg.DatabaseDSN, fc.DatabaseDSN)
	setString(&cfg.RedisAddr, fc.RedisAddr)
	setString(&cfg.LogLevel, fc.LogLevel)
	if fc.AccessTokenValidityDuration.Duration != 0 {
		cfg.AccessTokenValidityDuration = fc.AccessTokenValidityDuration.Duration
	}
	if fc.ResetTokenTTL.Duration != 0 {
		cfg.ResetTokenTTL = fc.ResetTokenTTL.Duration
	}
	if fc.ShutdownTimeout.Duration != 0 {
		cfg.ShutdownTimeout = fc.ShutdownTimeout.Duration
	}
	return nil
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
