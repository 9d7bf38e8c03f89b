// Package server wires the development backend: user service, reset token
// store, HTTP API, and graceful shutdown.
package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dmitrijs2005/fleetauth/internal/common"
	"github.com/dmitrijs2005/fleetauth/internal/logging"
	"github.com/dmitrijs2005/fleetauth/internal/server/config"
	"github.com/dmitrijs2005/fleetauth/internal/server/httpapi"
	"github.com/dmitrijs2005/fleetauth/internal/server/resets"
	"github.com/dmitrijs2005/fleetauth/internal/server/users"
	"github.com/redis/go-redis/v9"
)

type App struct {
	config      *config.Config
	logger      logging.Logger
	userService *users.Service
	resetStore  resets.Store
	redis       *redis.Client
	db          *sql.DB
	handler     http.Handler
}

func NewApp(ctx context.Context, c *config.Config, logger logging.Logger) (*App, error) {
	if c.SecretKey == "" {
		secret, err := common.MakeRandHexString(32)
		if err != nil {
			return nil, fmt.Errorf("generate secret key: %w", err)
		}
		c.SecretKey = secret
		logger.Warn(ctx, "no secret key configured, issued tokens will not survive a restart")
	}

	app := &App{config: c, logger: logger}

	var repo users.Repository = users.NewMemoryRepository()
	if c.DatabaseDSN != "" {
		db, err := openDatabase(ctx, c.DatabaseDSN)
		if err != nil {
			return nil, err
		}
		app.db = db
		repo = users.NewPostgresRepository(db)
		logger.Info(ctx, "users in postgres")
	}

	us := users.NewService(repo, []byte(c.SecretKey), c.AccessTokenValidityDuration)
	app.userService = us

	if c.UsersFile != "" {
		n, err := us.SeedFromFile(ctx, c.UsersFile)
		if err != nil {
			_ = app.Close()
			return nil, fmt.Errorf("seed users: %w", err)
		}
		logger.Info(ctx, "users seeded", "count", n, "file", c.UsersFile)
	}

	if c.RedisAddr != "" {
		app.redis = redis.NewClient(&redis.Options{Addr: c.RedisAddr})
		rs := resets.NewRedisStore(app.redis)
		if err := rs.Ping(ctx); err != nil {
			_ = app.Close()
			return nil, err
		}
		app.resetStore = rs
		logger.Info(ctx, "reset tokens in redis", "addr", c.RedisAddr)
	} else {
		app.resetStore = resets.NewMemoryStore()
	}

	app.handler = httpapi.NewRouter(httpapi.NewHandler(us, app.resetStore, c.ResetTokenTTL, logger), logger)
	return app, nil
}

func (app *App) Handler() http.Handler {
	return app.handler
}

func (app *App) initSignalHandler(ctx context.Context, cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		defer signal.Stop(sigs)
		select {
		case <-sigs:
			cancelFunc()
		case <-ctx.Done():
		}
	}()
}

// Run listens on the configured address until ctx is cancelled or a
// termination signal arrives.
func (app *App) Run(ctx context.Context) error {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.initSignalHandler(ctx, cancelFunc)

	ln, err := net.Listen("tcp", app.config.EndpointAddr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", app.config.EndpointAddr, err)
	}
	return app.Serve(ctx, ln)
}

// Serve handles requests on ln and shuts down gracefully when ctx is done.
func (app *App) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           app.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		app.logger.Info(ctx, "Starting server...", "addr", ln.Addr().String())
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	app.logger.Info(ctx, "Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), app.config.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func (app *App) Close() error {
	var errs []error
	if app.redis != nil {
		errs = append(errs, app.redis.Close())
	}
	if app.db != nil {
		errs = append(errs, app.db.Close())
	}
	return errors.Join(errs...)
}
