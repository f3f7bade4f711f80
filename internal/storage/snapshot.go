package storage

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	jsoniter "github.com/json-iterator/go"

	"github.com/ngenohkevin/libcatalog/internal/models"
)

// SchemaVersion is written into every snapshot and checked on load.
const SchemaVersion = 1

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// envelope is the on-disk shape of every snapshot file
type envelope struct {
	SchemaVersion int                 `json:"schema_version"`
	Kind          string              `json:"kind"`
	SavedAt       time.Time           `json:"saved_at"`
	Data          jsoniter.RawMessage `json:"data"`
}

// replacer moves a fully written temp file over the target
type replacer struct {
	name    string
	replace func(tmp, target string) error
}

// Store loads and saves whole values as versioned JSON snapshot files.
// One reader/writer lock covers every file the store touches.
type Store struct {
	mu        sync.RWMutex
	logger    *slog.Logger
	now       func() time.Time
	replacers []replacer
}

func NewStore(logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		logger: logger,
		now:    time.Now,
		replacers: []replacer{
			{name: "rename", replace: renameDurable},
			{name: "remove-then-rename", replace: removeThenRename},
			{name: "copy-then-remove", replace: copyThenRemove},
		},
	}
}

// Save serializes value under kind into a temp sibling of path and then
// swaps it into place, falling back through weaker replace strategies.
// The temp file never outlives the call.
func (s *Store) Save(path, kind string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return models.NewPersistenceError(path, fmt.Errorf("failed to encode %s: %w", kind, err))
	}
	payload, err := json.MarshalIndent(envelope{
		SchemaVersion: SchemaVersion,
		Kind:          kind,
		SavedAt:       s.now().UTC(),
		Data:          data,
	}, "", "  ")
	if err != nil {
		return models.NewPersistenceError(path, fmt.Errorf("failed to encode envelope: %w", err))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return models.NewPersistenceError(path, err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return models.NewPersistenceError(path, err)
	}
	tmpName := tmp.Name()
	defer func() {
		if err := os.Remove(tmpName); err != nil && !errors.Is(err, os.ErrNotExist) {
			s.logger.Warn("Failed to remove temp snapshot", "path", tmpName, "error", err)
		}
	}()

	if _, err := tmp.Write(payload); err != nil {
		tmp.Close()
		return models.NewPersistenceError(path, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return models.NewPersistenceError(path, err)
	}
	if err := tmp.Close(); err != nil {
		return models.NewPersistenceError(path, err)
	}

	var errs []error
	for _, r := range s.replacers {
		err := r.replace(tmpName, path)
		if err == nil {
			if len(errs) > 0 {
				s.logger.Warn("Snapshot saved with fallback strategy", "path", path, "strategy", r.name)
			}
			return nil
		}
		errs = append(errs, fmt.Errorf("%s: %w", r.name, err))
	}
	return models.NewPersistenceError(path, errors.Join(errs...))
}

// Load decodes the snapshot at path into out. A missing file reports
// found=false with no error; anything unreadable is a corrupt-state error.
func (s *Store) Load(path, kind string, out any) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	raw, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, models.NewCorruptStateError(path, err)
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return false, models.NewCorruptStateError(path, err)
	}
	if env.Kind != kind {
		return false, models.NewCorruptStateError(path, fmt.Errorf("expected %q snapshot, found %q", kind, env.Kind))
	}
	if env.SchemaVersion < 1 || env.SchemaVersion > SchemaVersion {
		return false, models.NewCorruptStateError(path, fmt.Errorf("unsupported schema version %d", env.SchemaVersion))
	}
	if !json.Valid(env.Data) {
		return false, models.NewCorruptStateError(path, errors.New("snapshot data is not valid json"))
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return false, models.NewCorruptStateError(path, err)
	}
	return true, nil
}

// Backup copies path into dir (the file's own directory when dir is
// empty) under a timestamped name. It reports success and never fails
// the caller.
func (s *Store) Backup(path, dir string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, err := os.Stat(path); err != nil {
		s.logger.Warn("Nothing to back up", "path", path, "error", err)
		return "", false
	}
	if dir == "" {
		dir = filepath.Dir(path)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		s.logger.Error("Failed to create backup directory", "dir", dir, "error", err)
		return "", false
	}

	stamp := strings.ReplaceAll(s.now().Format("20060102_150405.000"), ".", "_")
	target := filepath.Join(dir, fmt.Sprintf("%s.%s.bak", filepath.Base(path), stamp))
	if err := copyFile(path, target); err != nil {
		s.logger.Error("Backup failed", "path", path, "target", target, "error", err)
		return "", false
	}

	s.logger.Info("Backup created", "path", path, "target", target)
	return target, true
}

func renameDurable(tmp, target string) error {
	if err := os.Rename(tmp, target); err != nil {
		return err
	}
	// best effort: make the rename itself durable
	if d, err := os.Open(filepath.Dir(target)); err == nil {
		_ = d.Sync()
		d.Close()
	}
	return nil
}

func removeThenRename(tmp, target string) error {
	if err := os.Remove(target); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return os.Rename(tmp, target)
}

func copyThenRemove(tmp, target string) error {
	if err := copyFile(tmp, target); err != nil {
		return err
	}
	return os.Remove(tmp)
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	if err := out.Sync(); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
