package cli

import (
	"bufio"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/dmitrijs2005/otpvault/internal/client/backup"
	"github.com/dmitrijs2005/otpvault/internal/client/config"
	"github.com/dmitrijs2005/otpvault/internal/client/database"
	"github.com/dmitrijs2005/otpvault/internal/client/models"
	"github.com/dmitrijs2005/otpvault/internal/client/repositories/kvstore"
	"github.com/dmitrijs2005/otpvault/internal/client/services"
	"github.com/dmitrijs2005/otpvault/internal/client/vault"
	"github.com/dmitrijs2005/otpvault/internal/cryptox"
	"github.com/dmitrijs2005/otpvault/internal/logging"
	"github.com/dmitrijs2005/otpvault/internal/otp"
)

const shutdownTimeout = 5 * time.Second

type App struct {
	config  *config.Config
	log     logging.Logger
	cipher  *cryptox.Service
	vault   *vault.Vault
	tokens  services.TokenService
	backups services.BackupService
	reader  *bufio.Reader
	out     io.Writer
	db      *sql.DB

	closeOnce sync.Once
}

// NewApp opens the database at c.DatabasePath, optionally calibrates the
// key derivation cost and returns a ready App with a locked vault.
func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	log := logging.New(c.LogLevel, logging.Format(c.LogFormat), os.Stderr)

	db, err := database.InitDatabase(ctx, c.DatabasePath)
	if err != nil {
		log.Error(ctx, "error initializing database", "path", c.DatabasePath, "error", err)
		return nil, err
	}

	cipher := cryptox.NewService(cryptox.WithIterations(c.Iterations))
	if c.Calibrate {
		cal, err := cipher.CalibrateIterations(ctx, cryptox.CalibrateOptions{
			Target:        c.CalibrateTarget,
			MaxIterations: c.MaxIterations,
		})
		if err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("calibrate: %w", err)
		}
		log.Info(ctx, "pbkdf2 calibrated", "iterations", cal.Iterations, "duration", cal.Duration)
	}

	sinks := map[string]backup.Sink{"file": backup.NewFileSink(c.BackupDir)}
	if c.S3Enabled() {
		s3, err := backup.NewS3Sink(ctx, backup.S3Config{
			Bucket:   c.S3Bucket,
			Region:   c.S3Region,
			Prefix:   c.S3Prefix,
			Endpoint: c.S3Endpoint,
		})
		if err != nil {
			_ = db.Close()
			return nil, err
		}
		sinks["s3"] = s3
	}

	a := newApp(c, log, cipher, kvstore.NewSQLiteRepository(db), sinks, bufio.NewReader(os.Stdin), os.Stdout, time.Now)
	a.db = db
	return a, nil
}

// newApp wires everything except the database and process streams.
func newApp(c *config.Config, log logging.Logger, cipher *cryptox.Service, storage vault.Storage,
	sinks map[string]backup.Sink, reader *bufio.Reader, out io.Writer, now func() time.Time) *App {

	v := vault.New(storage, cipher,
		vault.WithPersistDelay(c.PersistDelay),
		vault.WithLogger(log.With("component", "vault")),
		vault.WithClock(now),
		vault.WithPersistErrorHandler(func(err error) {
			if !errors.Is(err, context.Canceled) {
				fmt.Fprintf(out, "\nwarning: saving vault failed: %v\n", err)
			}
		}),
		vault.WithPersistStateHandler(func(st models.PersistState) {
			log.Debug(context.Background(), "persist state", "status", st.Status, "pending", st.PendingWrites)
		}),
	)

	return &App{
		config:  c,
		log:     log,
		cipher:  cipher,
		vault:   v,
		tokens:  services.NewTokenService(otp.NewEngine(otp.WithClock(now)), now),
		backups: services.NewBackupService(v, sinks, now),
		reader:  reader,
		out:     out,
	}
}

// Run starts the REPL and blocks until the user exits or input ends.
func (a *App) Run(ctx context.Context) {
	defer a.Close()

	fmt.Fprintln(a.out, "Welcome to otpvault (type 'help' for commands)")
	runREPL(ctx, a.commands(), a.vault.IsUnlocked, a.status, a.reader, a.out)
}

// Close flushes pending writes, locks the vault and closes the database.
// Only the first call does anything.
func (a *App) Close() {
	a.closeOnce.Do(a.close)
}

func (a *App) close() {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := a.vault.FlushPersist(ctx); err != nil {
		a.log.Error(ctx, "final save failed", "error", err)
	}
	a.vault.Lock(ctx)

	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.log.Error(ctx, "close database", "error", err)
		}
	}
}

func (a *App) status() string {
	if !a.vault.IsUnlocked() {
		return "locked"
	}
	st := a.vault.PersistState()
	s := fmt.Sprintf("%d entries", len(a.vault.Entries()))
	if st.Status != models.PersistIdle {
		s += ", " + string(st.Status)
	}
	return s
}
