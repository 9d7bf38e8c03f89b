package cli

import (
	"bufio"
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/fleetauth/internal/client/biometric"
	"github.com/dmitrijs2005/fleetauth/internal/client/client"
	"github.com/dmitrijs2005/fleetauth/internal/client/config"
	"github.com/dmitrijs2005/fleetauth/internal/client/services"
	"github.com/dmitrijs2005/fleetauth/internal/client/session"
	"github.com/dmitrijs2005/fleetauth/internal/client/vault"
	"github.com/dmitrijs2005/fleetauth/internal/logging"
)

type Mode string

const (
	ModeOffline Mode = "offline"
	ModeOnline  Mode = "online"
)

type pinger interface {
	Ping(ctx context.Context) error
}

type passcodeEnroller interface {
	Enroll(ctx context.Context, passcode []byte) error
}

type App struct {
	config      *config.Config
	authService services.AuthService
	backend     pinger
	passcodes   passcodeEnroller
	logger      logging.Logger
	reader      *bufio.Reader
	out         io.Writer
	db          *sql.DB

	mu   sync.RWMutex
	mode Mode
}

// NewApp opens the local database and wires the session controller to the
// backend, the OS keyring and the terminal passcode sensor.
func NewApp(ctx context.Context, c *config.Config, logger logging.Logger) (*App, error) {
	db, err := client.InitDatabase(ctx, c.DatabasePath)
	if err != nil {
		logger.Error(ctx, "error initializing database", "path", c.DatabasePath, "error", err)
		return nil, err
	}

	store := session.NewStore(db)

	apiClient, err := client.NewHTTPClient(c.BackendURL, c.RequestTimeout, store, client.WithLogger(logger))
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	storage := vault.NewKeyringStorage(c.KeyringService)
	sensor := biometric.NewPasscodeSensor(storage, os.Stdout)
	gate := biometric.NewGate(sensor, logger)

	ctrl := services.NewSessionController(apiClient, store, vault.New(storage), gate, logger)
	apiClient.SetUnauthorizedHandler(ctrl.HandleUnauthorized)

	return &App{
		config:      c,
		authService: ctrl,
		backend:     apiClient,
		passcodes:   sensor,
		logger:      logger,
		reader:      bufio.NewReader(os.Stdin),
		out:         os.Stdout,
		db:          db,
	}, nil
}

// Run restores the previous session and blocks in the REPL until the user
// exits or ctx is cancelled.
func (a *App) Run(ctx context.Context) {
	defer a.Close()

	a.authService.RestoreSession(ctx)

	printlnFn("Welcome to FRAS CLI (type 'help' for commands)")
	if !a.isLoggedIn() && a.authService.BiometricEnabled() {
		printlnFn("Biometric login is enabled, type 'biologin' to sign in.")
	}

	watchCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go a.StartOnlineStatusWatcher(watchCtx, a.config.OnlineCheckInterval)

	runREPL(ctx, a, a.getStatus, a.reader)
}

func (a *App) Close() {
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.logger.Warn(context.Background(), "close database", "error", err)
		}
	}
}

func (a *App) isLoggedIn() bool {
	return a.authService.Session().IsAuthenticated
}

func (a *App) getMode() Mode {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.mode
}

func (a *App) setMode(mode Mode) {
	a.mu.Lock()
	changed := a.mode != mode
	a.mode = mode
	a.mu.Unlock()

	if changed {
		a.logger.Info(context.Background(), "switched mode", "mode", mode)
	}
}

func (a *App) getStatus() string {
	s := ""
	if sess := a.authService.Session(); sess.IsAuthenticated && sess.User != nil {
		s = sess.User.Username + " "
	}
	if m := a.getMode(); m != "" {
		s += string(m)
	}
	s = strings.TrimRight(s, " ")
	if s != "" {
		s = fmt.Sprintf("(%s)", s)
	}
	return s
}

// StartOnlineStatusWatcher probes the backend right away and then every
// interval until ctx is done.
func (a *App) StartOnlineStatusWatcher(ctx context.Context, interval time.Duration) {
	a.checkOnline(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			a.checkOnline(ctx)
		case <-ctx.Done():
			return
		}
	}
}

func (a *App) checkOnline(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	if err := a.backend.Ping(ctx); err != nil {
		a.setMode(ModeOffline)
		return
	}
	a.setMode(ModeOnline)
}
