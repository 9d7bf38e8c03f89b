package config

import (
	"flag"
	"io"
	"time"

	"github.com/dmitrijs2005/fleetauth/internal/flagx"
)

// parseFlags overlays cfg with the flags it knows about. Unknown arguments
// are filtered out with flagx.FilterArgs so other components can share the
// command line.
func parseFlags(cfg *Config, args []string) error {
	args = flagx.FilterArgs(args, []string{"-a", "-t", "-d", "-k", "-l", "-i"})

	fs := flag.NewFlagSet("fras", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&cfg.BackendURL, "a", cfg.BackendURL, "backend base URL")
	timeout := fs.Int("t", int(cfg.RequestTimeout.Seconds()), "request timeout (in seconds)")
	fs.StringVar(&cfg.DatabasePath, "d", cfg.DatabasePath, "local database path")
	fs.StringVar(&cfg.KeyringService, "k", cfg.KeyringService, "keyring service name")
	fs.StringVar(&cfg.LogLevel, "l", cfg.LogLevel, "log level")
	interval := fs.Int("i", int(cfg.OnlineCheckInterval.Seconds()), "online check interval (in seconds)")

	if err := fs.Parse(args); err != nil {
		return err
	}

	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "t":
			cfg.RequestTimeout = time.Duration(*timeout) * time.Second
		case "i":
			cfg.OnlineCheckInterval = time.Duration(*interval) * time.Second
		}
	})
	return nil
}
