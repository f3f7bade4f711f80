package database

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ngenohkevin/libcatalog/internal/config"
)

func testConfig(dir string) *config.Config {
	return &config.Config{
		Storage: config.StorageConfig{
			DataDir:   dir,
			BackupDir: filepath.Join(dir, "backups"),
			AutoSave:  true,
		},
		Library: config.LibraryConfig{
			MaxBorrow:     5,
			MaxPerRequest: 5,
			LoanDays:      14,
			FinePerDay:    "2.00",
			MaxRenewals:   2,
			DueSoonDays:   3,
		},
	}
}

func TestDatabase_CloseKeepsCopyOfCorruptSnapshots(t *testing.T) {
	dir := t.TempDir()
	catalogBytes := []byte(`{"schema_version":1,"kind":"catalog","data":{"books":{"1234567890":{"code":"1234567890","quantity":"oops"}}}}`)
	accountBytes := []byte("\xff\xfe")
	require.NoError(t, os.WriteFile(filepath.Join(dir, CatalogFile), catalogBytes, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, AccountsFile), accountBytes, 0o644))

	db, err := New(testConfig(dir), discardLogger(), ExactMatcher{})
	require.NoError(t, err)
	assert.Empty(t, db.Catalog.ListBooks())
	assert.Zero(t, db.Accounts.Count())
	require.NoError(t, db.Close())

	for name, original := range map[string][]byte{CatalogFile: catalogBytes, AccountsFile: accountBytes} {
		copies, err := filepath.Glob(filepath.Join(dir, name+".*.bak"))
		require.NoError(t, err)
		require.Len(t, copies, 1, name)

		data, err := os.ReadFile(copies[0])
		require.NoError(t, err)
		assert.Equal(t, original, data, name)

		rewritten, err := os.ReadFile(filepath.Join(dir, name))
		require.NoError(t, err)
		assert.NotEqual(t, original, rewritten, "%s is replaced by the empty state", name)
	}
}

func TestDatabase_MissingSnapshotsMakeNoCopies(t *testing.T) {
	dir := t.TempDir()

	db, err := New(testConfig(dir), discardLogger(), ExactMatcher{})
	require.NoError(t, err)
	require.NoError(t, db.Close())

	copies, err := filepath.Glob(filepath.Join(dir, "*.bak"))
	require.NoError(t, err)
	assert.Empty(t, copies)
}
