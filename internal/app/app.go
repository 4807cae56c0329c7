package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"photobak/internal/config"
	"photobak/internal/database"
	"photobak/internal/encryption"
	"photobak/internal/photobak"
	"photobak/internal/storage"
	"photobak/internal/vk"
)

// App is the application layer between the CLI and photobak.Service.
// It constructs all dependencies from config, exposes high-level operations
// and manages the run history lifecycle on Close.
type App struct {
	cfg       *config.Config
	creds     *config.Credentials
	store     photobak.RunStore
	encryptor photobak.Encryptor
	handler   *logHandler
	logger    *slog.Logger
	logFile   *os.File
	clock     photobak.Clock
	ids       photobak.IDGenerator
	progress  func(done, total int, name string)
}

// NewApp creates a fully wired App from the given config.
// Credentials are read once here. The caller must call Close when done.
func NewApp(cfg *config.Config) (*App, error) {
	level, err := parseLevel(cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", photobak.ErrConfiguration, err)
	}

	creds, err := config.LoadCredentials(cfg.Credentials)
	if err != nil {
		return nil, fmt.Errorf("loading credentials: %w", err)
	}

	enc, err := encryption.NewEncryptorFromConfig(cfg.Encryption)
	if err != nil {
		return nil, fmt.Errorf("creating encryptor: %w", err)
	}

	clock := photobak.RealClock{}
	store, err := database.NewDatabaseFromConfig(cfg.Database, clock)
	if err != nil {
		return nil, fmt.Errorf("creating database: %w", err)
	}

	handler, logFile, err := newLogHandler(cfg.LogDir, level)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("creating logger: %w", err)
	}

	return &App{
		cfg:       cfg,
		creds:     creds,
		store:     store,
		encryptor: enc,
		handler:   handler,
		logger:    slog.New(handler),
		logFile:   logFile,
		clock:     clock,
		ids:       photobak.UUIDGenerator{},
	}, nil
}

// OnProgress registers fn to be called after every photo upload of later
// backups. A nil fn turns progress reporting off.
func (a *App) OnProgress(fn func(done, total int, name string)) {
	a.progress = fn
}

// Backup runs one backup pass for handle against the named destination
// (the first configured destination when destName is empty).
// Every configuration problem is reported before any network call.
func (a *App) Backup(ctx context.Context, handle, destName string) (*photobak.BackupResult, error) {
	dest, err := a.cfg.Destination(destName)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", photobak.ErrConfiguration, err)
	}
	if a.cfg.Source.Type != "vk" {
		return nil, fmt.Errorf("%w: unknown source type: %q", photobak.ErrConfiguration, a.cfg.Source.Type)
	}
	token, err := a.creds.Token("vk")
	if err != nil {
		return nil, err
	}
	opts, err := a.serviceOptions()
	if err != nil {
		return nil, err
	}
	if a.encryptor != nil && !a.encryptor.IsConfigured() {
		return nil, fmt.Errorf("%w: encryption keys not found, run 'photobak keys init'", photobak.ErrConfiguration)
	}

	run := newBackupRun(a.ids.New(), handle, dest.Name)
	logger := &slogAdapter{l: slog.New(a.handler.forRun(run.RunID))}

	st, err := storage.NewStorageFromConfig(ctx, dest, a.creds)
	if err != nil {
		return nil, fmt.Errorf("creating destination %s: %w", dest.Name, err)
	}
	if a.encryptor != nil {
		st = storage.NewEncryptedStorage(st, a.encryptor)
	}

	client, err := vk.NewClient(a.cfg.Source, token, logger)
	if err != nil {
		return nil, fmt.Errorf("creating vk client: %w", err)
	}

	if err := a.startRun(run); err != nil {
		return nil, err
	}
	logger.Info("backup started", "handle", handle, "destination", dest.Name, "type", dest.Type)

	res, err := a.backup(ctx, st, client, opts, logger, handle)
	run.complete(res, err)
	if err != nil {
		logger.Error("backup failed", "handle", handle, "error", err)
	} else {
		logger.Info("backup performed", "identity", res.Identity.String(), "path", res.Destination, "photos", len(res.Manifest.Photos))
	}

	if ferr := a.store.FinishRun(run.ID, run.Summary); ferr != nil {
		a.logger.Warn("recording run failed", "run", run.RunID, "error", ferr)
	}
	return res, err
}

func (a *App) backup(ctx context.Context, st photobak.Storage, source photobak.PhotoSource, opts photobak.Options, logger photobak.Logger, handle string) (*photobak.BackupResult, error) {
	if err := st.ValidateSetup(ctx); err != nil {
		return nil, &photobak.BackendError{Op: "validate destination", Err: err}
	}
	svc := photobak.NewService(source, vk.NewHTTPFetcher(nil), st, opts, logger, a.clock)
	return svc.Backup(ctx, handle)
}

func (a *App) serviceOptions() (photobak.Options, error) {
	order, err := photobak.ParseOrder(a.cfg.Source.Order)
	if err != nil {
		return photobak.Options{}, fmt.Errorf("%w: %v", photobak.ErrConfiguration, err)
	}
	collision, err := photobak.ParseCollisionPolicy(a.cfg.Backup.Collision)
	if err != nil {
		return photobak.Options{}, fmt.Errorf("%w: %v", photobak.ErrConfiguration, err)
	}
	return photobak.Options{
		RootFolder:    a.cfg.Backup.RootFolder,
		ArchiveFolder: a.cfg.Backup.ArchiveFolder,
		Order:         order,
		Parallel:      a.cfg.Backup.Parallel,
		Collision:     collision,
		Progress:      a.progress,
	}, nil
}

// startRun persists the run in the history, giving it an ID.
func (a *App) startRun(run *backupRun) error {
	if run.Persisted() {
		return nil
	}
	r, err := a.store.CreateRun(run.RunID, run.Handle, run.Destination)
	if err != nil {
		return fmt.Errorf("recording run: %w", err)
	}
	run.ID = r.ID
	return nil
}

// History returns the most recent runs, newest first.
func (a *App) History(limit int) ([]*photobak.Run, error) {
	return a.store.ListRuns(limit)
}

// InitKeys generates the encryption key pair protected by passphrase.
func (a *App) InitKeys(passphrase string) error {
	if a.encryptor == nil {
		return fmt.Errorf("%w: encryption is disabled (encryption.type = %q)", photobak.ErrConfiguration, a.cfg.Encryption.Type)
	}
	if a.encryptor.IsConfigured() {
		return errors.New("encryption keys already exist")
	}
	if err := a.encryptor.Setup(passphrase); err != nil {
		return fmt.Errorf("setting up encryption: %w", err)
	}
	a.logger.Info("encryption keys created")
	return nil
}

// Decrypt unlocks the private key with passphrase and decrypts a file that
// was uploaded with encryption enabled.
func (a *App) Decrypt(r io.Reader, w io.Writer, passphrase string) error {
	if a.encryptor == nil {
		return fmt.Errorf("%w: encryption is disabled (encryption.type = %q)", photobak.ErrConfiguration, a.cfg.Encryption.Type)
	}
	dc, err := a.encryptor.Unlock(passphrase)
	if err != nil {
		return fmt.Errorf("unlocking private key: %w", err)
	}
	return dc.Decrypt(r, w)
}

// Close closes the run history and the log file.
func (a *App) Close() error {
	var firstErr error
	if err := a.store.Close(); err != nil {
		firstErr = fmt.Errorf("closing database: %w", err)
	}
	if a.logFile != nil {
		if err := a.logFile.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("closing log file: %w", err)
		}
	}
	return firstErr
}
