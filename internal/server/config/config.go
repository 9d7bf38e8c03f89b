// Package config handles configuration for the development backend:
// defaults, then an optional JSON or YAML file, then command-line flags.
package config

import (
	"os"
	"time"
)

// Config holds runtime settings for the dev backend.
//
// SecretKey signs access tokens (HS256); the default is for local use only.
// An empty RedisAddr keeps reset tokens in process memory, and an empty
// DatabaseDSN keeps users there.
type Config struct {
	EndpointAddr                string
	SecretKey                   string
	AccessTokenValidityDuration time.Duration
	UsersFile                   string
	DatabaseDSN                 string
	RedisAddr                   string
	ResetTokenTTL               time.Duration
	LogLevel                    string
	ShutdownTimeout             time.Duration
}

func (c *Config) LoadDefaults() {
	c.EndpointAddr = ":8000"
	c.SecretKey = "secretKey"
	c.AccessTokenValidityDuration = 60 * time.Minute
	c.ResetTokenTTL = 15 * time.Minute
	c.LogLevel = "info"
	c.ShutdownTimeout = 5 * time.Second
}

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

func LoadConfig() (*Config, error) {
	return Load(os.Args[1:])
}
