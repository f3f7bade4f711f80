package database

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/ngenohkevin/libcatalog/internal/config"
	"github.com/ngenohkevin/libcatalog/internal/storage"
)

// Database bundles the catalog and account repositories that share one
// snapshot store and data directory.
type Database struct {
	Catalog  *CatalogRepository
	Accounts *AccountRepository

	store     *storage.Store
	logger    *slog.Logger
	dataDir   string
	backupDir string
}

func New(cfg *config.Config, logger *slog.Logger, matcher CredentialMatcher) (*Database, error) {
	if logger == nil {
		logger = slog.Default()
	}

	settings, err := cfg.Library.Settings()
	if err != nil {
		return nil, fmt.Errorf("failed to read library settings: %w", err)
	}
	if err := os.MkdirAll(cfg.Storage.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	store := storage.NewStore(logger)
	db := &Database{
		Catalog: OpenCatalog(store, cfg.Storage.DataDir, logger,
			WithSettings(settings),
			WithAutoSave(cfg.Storage.AutoSave),
		),
		Accounts: OpenAccounts(store, cfg.Storage.DataDir, logger,
			WithAccountAutoSave(cfg.Storage.AutoSave),
			WithCredentialMatcher(matcher),
		),
		store:     store,
		logger:    logger,
		dataDir:   cfg.Storage.DataDir,
		backupDir: cfg.Storage.BackupDir,
	}

	logger.Info("Data store opened", "data_dir", db.dataDir, "auto_save", cfg.Storage.AutoSave)
	return db, nil
}

// Persist writes both repositories out regardless of auto-save.
func (db *Database) Persist() error {
	return errors.Join(db.Catalog.ForcePersist(), db.Accounts.ForcePersist())
}

func (db *Database) Close() error {
	if err := db.Persist(); err != nil {
		db.logger.Error("Failed to persist on close", "error", err)
		return err
	}
	db.logger.Info("Data store closed")
	return nil
}

// Health reports the most recent persistence failure, if any.
func (db *Database) Health() error {
	return errors.Join(db.Catalog.LastPersistError(), db.Accounts.LastPersistError())
}

func (db *Database) DataDir() string {
	return db.dataDir
}

// Backup copies every snapshot file into the configured backup directory.
func (db *Database) Backup() ([]string, error) {
	targets, ok := db.Catalog.Backup(db.backupDir)
	if target, copied := db.Accounts.Backup(db.backupDir); copied {
		targets = append(targets, target)
	} else {
		ok = false
	}
	if len(targets) == 0 {
		return nil, fmt.Errorf("no snapshot files to back up in %s", db.dataDir)
	}
	if !ok {
		db.logger.Warn("Some snapshot files were not backed up", "copied", len(targets))
	}
	return targets, nil
}

// preserveCorrupt copies an unreadable snapshot aside before the empty
// state that replaces it is written over the original.
func preserveCorrupt(store *storage.Store, path string, logger *slog.Logger) {
	if target, ok := store.Backup(path, ""); ok {
		logger.Warn("Unreadable snapshot preserved", "path", path, "copy", target)
	}
}
