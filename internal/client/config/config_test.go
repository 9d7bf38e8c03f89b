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

	assert.Equal(t, "http://127.0.0.1:8000", c.BackendURL)
	assert.Equal(t, 30*time.Second, c.RequestTimeout)
	assert.Equal(t, "fras.db", c.DatabasePath)
	assert.Equal(t, "fras", c.KeyringService)
	assert.Equal(t, "info", c.LogLevel)
	assert.Equal(t, 10*time.Second, c.OnlineCheckInterval)
}

func TestLoad_NoArgs(t *testing.T) {
	cfg, err := Load(nil)
	require.NoError(t, err)
	assert.Empty(t, cmp.Diff(defaults(), cfg))
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
			args: []string{"-a", "https://fras.example", "-t", "5", "-d", "/tmp/x.db", "-k", "fras-dev", "-l", "debug", "-i", "3"},
			expected: &Config{
				BackendURL: "https://fras.example", RequestTimeout: 5 * time.Second,
				DatabasePath: "/tmp/x.db", KeyringService: "fras-dev", LogLevel: "debug",
				OnlineCheckInterval: 3 * time.Second,
			},
		},
		{
			name: "unknown flags are ignored",
			args: []string{"-x", "1", "-a=http://h:1", "-c", "cfg.json"},
			expected: func() *Config {
				c := defaults()
				c.BackendURL = "http://h:1"
				return c
			}(),
		},
		{name: "bad timeout", args: []string{"-t", "abc"}, wantErr: true},
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

func TestParseFile_JSON(t *testing.T) {
	path := writeTemp(t, "cfg.json", `{"backend_url":"http://json:8000","request_timeout":"10s","log_level":"warn","online_check_interval":"1m"}`)

	cfg := defaults()
	require.NoError(t, parseFile(cfg, []string{"-config", path}))

	want := defaults()
	want.BackendURL = "http://json:8000"
	want.RequestTimeout = 10 * time.Second
	want.LogLevel = "warn"
	want.OnlineCheckInterval = time.Minute
	assert.Empty(t, cmp.Diff(want, cfg))
}

func TestParseFile_YAML(t *testing.T) {
	path := writeTemp(t, "cfg.yaml", "backend_url: http://yaml:8000\nrequest_timeout: 2000000000\ndatabase_path: y.db\nkeyring_service: fras-y\n")

	cfg := defaults()
	require.NoError(t, parseFile(cfg, []string{"-c", path}))

	assert.Equal(t, "http://yaml:8000", cfg.BackendURL)
	assert.Equal(t, 2*time.Second, cfg.RequestTimeout)
	assert.Equal(t, "y.db", cfg.DatabasePath)
	assert.Equal(t, "fras-y", cfg.KeyringService)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestParseFile_Errors(t *testing.T) {
	cfg := defaults()
	require.ErrorContains(t, parseFile(cfg, []string{"-c", filepath.Join(t.TempDir(), "missing.json")}), "read config")

	bad := writeTemp(t, "bad.json", `{ this is not valid json`)
	require.ErrorContains(t, parseFile(cfg, []string{"-c", bad}), "parse config")

	badDur := writeTemp(t, "dur.yml", "request_timeout: soon\n")
	require.Error(t, parseFile(cfg, []string{"-c", badDur}))
}

func TestLoad_Precedence(t *testing.T) {
	path := writeTemp(t, "cfg.json", `{"backend_url":"http://file:8000","database_path":"file.db"}`)

	cfg, err := Load([]string{"-c", path, "-a", "http://flag:8000"})
	require.NoError(t, err)

	assert.Equal(t, "http://flag:8000", cfg.BackendURL)
	assert.Equal(t, "file.db", cfg.DatabasePath)
}

func TestLoad_FileDurationSurvivesUnsetFlag(t *testing.T) {
	path := writeTemp(t, "cfg.json", `{"request_timeout":"1500ms"}`)

	cfg, err := Load([]string{"-c", path, "-a", "http://flag:8000"})
	require.NoError(t, err)
	assert.Equal(t, 1500*time.Millisecond, cfg.RequestTimeout)

	cfg, err = Load([]string{"-c", path, "-t", "4"})
	require.NoError(t, err)
	assert.Equal(t, 4*time.Second, cfg.RequestTimeout)
}
