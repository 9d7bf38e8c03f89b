package main

import (
	"context"
	"fmt"
	"os"

	"github.com/dmitrijs2005/fleetauth/internal/buildinfo"
	"github.com/dmitrijs2005/fleetauth/internal/logging"
	"github.com/dmitrijs2005/fleetauth/internal/server"
	"github.com/dmitrijs2005/fleetauth/internal/server/config"
)

func main() {
	buildinfo.PrintBuildData(os.Stdout)

	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	ctx := context.Background()
	logger := logging.NewJSONSlogLogger(os.Stdout, cfg.LogLevel)

	app, err := server.NewApp(ctx, cfg, logger)
	if err != nil {
		logger.Error(ctx, "cannot start", "error", err)
		os.Exit(1)
	}
	defer func() { _ = app.Close() }()

	if err := app.Run(ctx); err != nil {
		logger.Error(ctx, "server stopped", "error", err)
	}
}
