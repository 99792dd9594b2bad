package cli

import (
	"bufio"
	"context"
	"errors"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cryptkeep/cryptkeep/internal/client/client"
	"github.com/cryptkeep/cryptkeep/internal/client/config"
	"github.com/cryptkeep/cryptkeep/internal/client/keystore"
	"github.com/cryptkeep/cryptkeep/internal/client/repositories/metadata"
	"github.com/cryptkeep/cryptkeep/internal/client/repositories/records"
	"github.com/cryptkeep/cryptkeep/internal/client/services"
	"github.com/cryptkeep/cryptkeep/internal/client/session"
	"github.com/cryptkeep/cryptkeep/internal/logging"

	_ "modernc.org/sqlite"
)

type Mode string

const (
	ModeOffline Mode = "offline"
	ModeOnline  Mode = "online"
)

type App struct {
	config        *config.Config
	authService   services.AuthService
	recordService services.RecordService
	session       *session.Manager
	log           logging.Logger
	reader        *bufio.Reader
	lastActivity  atomic.Int64

	// mode is written by the online-status watcher goroutine and read from
	// the REPL loop, so it stays behind its own mutex.
	modeMu sync.Mutex
	mode   Mode
}

func NewApp(c *config.Config, log logging.Logger) (*App, error) {
	ctx := context.Background()

	db, err := client.InitDatabase(ctx, c.DatabasePath)
	if err != nil {
		log.Error(ctx, "error initializing database", "error", err)
		return nil, err
	}

	ks, err := keystore.Open(c.KeyringService)
	if err != nil {
		return nil, err
	}
	deviceID, err := ks.DeviceID()
	if err != nil {
		return nil, err
	}

	apiClient := client.NewHTTPClient(c.ServerEndpointAddr)
	apiClient.SetDeviceID(deviceID)

	sess := session.NewManager(nil, log)
	recordRepo := records.NewSQLiteRepository(db)
	metadataRepo := metadata.NewSQLiteRepository(db)

	rs := services.NewRecordService(apiClient, recordRepo, metadataRepo, sess, log)
	sess.SetProber(rs)
	as := services.NewAuthService(apiClient, ks, metadataRepo, sess, log)

	app := &App{
		config:        c,
		authService:   as,
		recordService: rs,
		session:       sess,
		log:           log,
		mode:          ModeOffline,
		reader:        bufio.NewReader(os.Stdin),
	}
	app.touch()
	return app, nil
}

// Mode reports the current connectivity mode.
func (a *App) Mode() Mode {
	a.modeMu.Lock()
	defer a.modeMu.Unlock()
	return a.mode
}

func (a *App) setMode(mode Mode) {
	a.modeMu.Lock()
	changed := a.mode != mode
	a.mode = mode
	a.modeMu.Unlock()

	if changed {
		a.log.Info(context.Background(), "connectivity changed", "mode", string(mode))
	}
}

func (a *App) Run(ctx context.Context) {
	defer a.authService.Close(ctx)

	if err := a.authService.RestoreSession(ctx); err != nil &&
		!errors.Is(err, client.ErrLocalDataNotAvailable) {
		a.log.Error(ctx, "error restoring session", "error", err)
	}

	a.Root(ctx)
}

func (a *App) isUnlocked() bool {
	return a.session.Status() == session.StatusUnlocked
}

func (a *App) hasAccount() bool {
	_, ok := a.session.Account()
	return ok
}

// touch records user activity for the idle auto-lock watcher.
func (a *App) touch() {
	a.lastActivity.Store(time.Now().UnixNano())
}

// StartAutoLockWatcher locks the vault after AutoLockInterval of inactivity.
// The ticker runs every second so a long interval still locks close to its
// deadline rather than at the next multiple of the interval.
func (a *App) StartAutoLockWatcher(ctx context.Context) {
	if a.config.AutoLockInterval <= 0 {
		return
	}

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if !a.isUnlocked() {
				continue
			}
			idle := time.Since(time.Unix(0, a.lastActivity.Load()))
			if idle >= a.config.AutoLockInterval {
				a.authService.Lock()
			}

		case <-ctx.Done():
			return
		}
	}
}

func (a *App) StartOnlineStatusWatcher(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
			err := a.authService.Ping(pingCtx)
			cancel()

			if err != nil {
				a.setMode(ModeOffline)
			} else {
				a.setMode(ModeOnline)
			}

		case <-ctx.Done():
			return
		}
	}
}
