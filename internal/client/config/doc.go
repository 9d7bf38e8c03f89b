// Package config loads runtime configuration for the fleetauth CLI.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional config file selected via -c or -config. Files ending in
//     .yaml or .yml are read as YAML, anything else as JSON.
//  3. Command-line flags, which override earlier values.
//
// Supported flags
//
//	-a string   base URL of the backend (http or https)
//	-t int      per-request timeout (seconds)
//	-d string   path of the local SQLite database
//	-k string   secure storage (keyring) service name
//	-l string   log level: debug, info, warn, error
//	-i int      online status check interval (seconds)
//
// # File schema
//
// Timeouts use timex.Duration, so values can be either strings like "30s"
// or integer nanoseconds:
//
//	{
//	  "backend_url": "http://127.0.0.1:8000",
//	  "request_timeout": "30s",
//	  "database_path": "fras.db",
//	  "keyring_service": "fras",
//	  "log_level": "info",
//	  "online_check_interval": "10s"
//	}
package config
