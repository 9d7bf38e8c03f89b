package config

import (
	"flag"
	"io"
	"time"

	"github.com/dmitrijs2005/fleetauth/internal/flagx"
)

// parseFlags overlays cfg with:
//
//	-a string   listen address (":8000")
//	-s string   JWT HMAC secret key
//	-t int      access token validity, minutes
//	-u string   YAML users seed file
//	-d string   Postgres DSN for users
//	-r string   redis address for reset tokens
//	-x int      reset token validity, minutes
//	-l string   log level
func parseFlags(cfg *Config, args []string) error {
	args = flagx.FilterArgs(args, []string{"-a", "-s", "-t", "-u", "-d", "-r", "-x", "-l"})

	fs := flag.NewFlagSet("devserver", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&cfg.EndpointAddr, "a", cfg.EndpointAddr, "address and port to run server")
	fs.StringVar(&cfg.SecretKey, "s", cfg.SecretKey, "secret key")
	tokenMinutes := fs.Int("t", int(cfg.AccessTokenValidityDuration.Minutes()), "access token validity (in minutes)")
	fs.StringVar(&cfg.UsersFile, "u", cfg.UsersFile, "users seed file (YAML)")
	fs.StringVar(&cfg.DatabaseDSN, "d", cfg.DatabaseDSN, "postgres DSN for users")
	fs.StringVar(&cfg.RedisAddr, "r", cfg.RedisAddr, "redis address for reset tokens")
	resetMinutes := fs.Int("x", int(cfg.ResetTokenTTL.Minutes()), "reset token validity (in minutes)")
	fs.StringVar(&cfg.LogLevel, "l", cfg.LogLevel, "log level")

	if err := fs.Parse(args); err != nil {
		return err
	}

	// durations from a config file may be finer than a minute, so only
	// flags that were given replace them
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "t":
			cfg.AccessTokenValidityDuration = time.Duration(*tokenMinutes) * time.Minute
		case "x":
			cfg.ResetTokenTTL = time.Duration(*resetMinutes) * time.Minute
		}
	})
	return nil
}
