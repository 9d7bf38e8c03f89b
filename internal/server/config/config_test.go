package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func defaults() *Config {
	c := &Config{}
	c.LoadDefaults()
	return c
}

func writeTemp(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	c := defaults()

	assert.Equal(t, ":8000", c.EndpointAddr)
	assert.Equal(t, "secretKey", c.SecretKey)
	assert.Equal(t, time.Hour, c.AccessTokenValidityDuration)
	assert.Equal(t, 15*time.Minute, c.ResetTokenTTL)
	assert.Equal(t, "info", c.LogLevel)
	assert.Empty(t, c.RedisAddr)
	assert.Empty(t, c.UsersFile)
	assert.Empty(t, c.DatabaseDSN)
}

func TestParseFlags(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		expected *Config
		wantErr  bool
	}{
		{
			name: "all flags",
			args: []string{"-a", ":9000", "-s", "k", "-t", "5", "-u", "users.yaml", "-d", "postgres://db/fras", "-r", "127.0.0.1:6379", "-x", "2", "-l", "debug"},
			expected: &Config{
				EndpointAddr: ":9000", SecretKey: "k", AccessTokenValidityDuration: 5 * time.Minute,
				UsersFile: "users.yaml", DatabaseDSN: "postgres://db/fras", RedisAddr: "127.0.0.1:6379", ResetTokenTTL: 2 * time.Minute,
				LogLevel: "debug", ShutdownTimeout: 5 * time.Second,
			},
		},
		{
			name: "unknown flags are ignored",
			args: []string{"-z", "1", "-a=:1", "-c", "cfg.json"},
			expected: func() *Config {
				c := defaults()
				c.EndpointAddr = ":1"
				return c
			}(),
		},
		{name: "bad minutes", args: []string{"-t", "soon"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaults()
			err := parseFlags(cfg, tt.args)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Empty(t, cmp.Diff(tt.expected, cfg))
		})
	}
}

func TestParseFile_YAML(t *testing.T) {
	path := writeTemp(t, "srv.yaml", `
endpoint_addr: ":8100"
secret_key: from-file
access_token_validity_duration: 90s
users_file: seed.yaml
database_dsn: postgres://u:p@db:5432/fras
redis_addr: redis:6379
reset_token_ttl: 5m
shutdown_timeout: 1s
`)

	cfg := defaults()
	require.NoError(t, parseFile(cfg, []string{"-c", path}))

	want := defaults()
	want.EndpointAddr = ":8100"
	want.SecretKey = "from-file"
	want.AccessTokenValidityDuration = 90 * time.Second
	want.UsersFile = "seed.yaml"
	want.DatabaseDSN = "postgres://u:p@db:5432/fras"
	want.RedisAddr = "redis:6379"
	want.ResetTokenTTL = 5 * time.Minute
	want.ShutdownTimeout = time.Second
	assert.Empty(t, cmp.Diff(want, cfg))
}

func TestParseFile_JSONAndErrors(t *testing.T) {
	path := writeTemp(t, "srv.json", `{"log_level":"warn","reset_token_ttl":60000000000}`)
	cfg := defaults()
	require.NoError(t, parseFile(cfg, []string{"-config", path}))
	assert.Equal(t, "warn", cfg.LogLevel)
	assert.Equal(t, time.Minute, cfg.ResetTokenTTL)

	require.ErrorContains(t, parseFile(cfg, []string{"-c", filepath.Join(t.TempDir(), "none.json")}), "read config")
	bad := writeTemp(t, "bad.json", `{`)
	require.ErrorContains(t, parseFile(cfg, []string{"-c", bad}), "parse config")
}

func TestLoad_Precedence(t *testing.T) {
	path := writeTemp(t, "srv.json", `{"endpoint_addr":":7000","access_token_validity_duration":"90s","secret_key":"file"}`)

	cfg, err := Load([]string{"-c", path, "-s", "flag"})
	require.NoError(t, err)
	assert.Equal(t, ":7000", cfg.EndpointAddr)
	assert.Equal(t, "flag", cfg.SecretKey)
	assert.Equal(t, 90*time.Second, cfg.AccessTokenValidityDuration)

	cfg, err = Load([]string{"-c", path, "-t", "3"})
	require.NoError(t, err)
	assert.Equal(t, 3*time.Minute, cfg.AccessTokenValidityDuration)
}
