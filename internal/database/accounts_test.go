package database

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ngenohkevin/libcatalog/internal/models"
	"github.com/ngenohkevin/libcatalog/internal/storage"
)

func openTestAccounts(t *testing.T, dir string, opts ...AccountOption) *AccountRepository {
	t.Helper()
	clock := newTestClock()
	base := []AccountOption{WithAccountClock(clock.Now)}
	return OpenAccounts(storage.NewStore(discardLogger()), dir, discardLogger(), append(base, opts...)...)
}

func TestAccounts_CreateAndAuthenticate(t *testing.T) {
	repo := openTestAccounts(t, t.TempDir())

	account, err := repo.Create("alice", "s3cret")
	require.NoError(t, err)
	assert.True(t, account.IsActive)
	assert.False(t, account.CreatedAt.IsZero())

	tests := []struct {
		name     string
		userID   string
		password string
		want     bool
	}{
		{name: "correct password", userID: "alice", password: "s3cret", want: true},
		{name: "wrong password", userID: "alice", password: "secret", want: false},
		{name: "unknown user", userID: "bob", password: "s3cret", want: false},
		{name: "blank user", userID: "  ", password: "s3cret", want: false},
		{name: "blank password", userID: "alice", password: "", want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, repo.Authenticate(tt.userID, tt.password))
		})
	}
}

func TestAccounts_CreateErrors(t *testing.T) {
	repo := openTestAccounts(t, t.TempDir())
	_, err := repo.Create("alice", "s3cret")
	require.NoError(t, err)

	_, err = repo.Create("alice", "other")
	assert.ErrorIs(t, err, models.ErrDuplicateKey)

	_, err = repo.Create("", "pw")
	assert.ErrorIs(t, err, models.ErrValidation)

	_, err = repo.Create("bob", "")
	assert.ErrorIs(t, err, models.ErrValidation)

	assert.Equal(t, 1, repo.Count())
}

type prefixMatcher struct{}

func (prefixMatcher) Match(stored, presented string) bool {
	return strings.HasPrefix(stored, "hashed:") && stored == "hashed:"+presented
}

func TestAccounts_CustomMatcher(t *testing.T) {
	repo := openTestAccounts(t, t.TempDir(), WithCredentialMatcher(prefixMatcher{}))
	_, err := repo.Create("alice", "hashed:pw")
	require.NoError(t, err)

	assert.True(t, repo.Authenticate("alice", "pw"))
	assert.False(t, repo.Authenticate("alice", "hashed:pw"))
}

func TestAccounts_GetListUpdate(t *testing.T) {
	repo := openTestAccounts(t, t.TempDir())
	for _, id := range []string{"carol", "alice", "bob"} {
		_, err := repo.Create(id, "pw-"+id)
		require.NoError(t, err)
	}

	list := repo.List()
	require.Len(t, list, 3)
	assert.Equal(t, "alice", list[0].UserID)
	assert.Equal(t, "carol", list[2].UserID)

	before, err := repo.Get("bob")
	require.NoError(t, err)

	err = repo.Update(models.Account{UserID: "bob", Email: "bob@example.com", FirstName: "Bob", IsActive: true})
	assert.ErrorIs(t, err, models.ErrValidation, "a replacement must carry a credential")
	unchanged, err := repo.Get("bob")
	require.NoError(t, err)
	assert.Equal(t, before, unchanged)

	err = repo.Update(models.Account{UserID: "bob", Credential: "pw-bob-2", Email: "bob@example.com", FirstName: "Bob", IsActive: true})
	require.NoError(t, err)

	after, err := repo.Get("bob")
	require.NoError(t, err)
	assert.Equal(t, "bob@example.com", after.Email)
	assert.Equal(t, before.CreatedAt, after.CreatedAt)
	assert.Equal(t, "pw-bob-2", after.Credential)
	assert.Empty(t, after.ContactNumber, "fields left out of the replacement are cleared")

	err = repo.Update(models.Account{UserID: "dave", Credential: "pw-dave"})
	assert.ErrorIs(t, err, models.ErrNotFound)

	_, err = repo.Get("dave")
	assert.ErrorIs(t, err, models.ErrNotFound)
	assert.False(t, repo.Exists("dave"))
	assert.True(t, repo.Exists("bob"))
}

func TestAccounts_RecordLogin(t *testing.T) {
	repo := openTestAccounts(t, t.TempDir())
	_, err := repo.Create("alice", "pw")
	require.NoError(t, err)

	at := time.Date(2026, 3, 5, 8, 15, 0, 0, time.UTC)
	require.NoError(t, repo.RecordLogin("alice", at))

	account, err := repo.Get("alice")
	require.NoError(t, err)
	require.NotNil(t, account.LastLogin)
	assert.Equal(t, at, *account.LastLogin)

	assert.ErrorIs(t, repo.RecordLogin("bob", at), models.ErrNotFound)
}

func TestAccounts_RemoveAndClear(t *testing.T) {
	repo := openTestAccounts(t, t.TempDir())
	for _, id := range []string{"alice", "bob", "carol"} {
		_, err := repo.Create(id, "pw")
		require.NoError(t, err)
	}

	assert.True(t, repo.Remove("alice"))
	assert.False(t, repo.Remove("alice"))

	_, err := repo.Clear("yes please")
	assert.ErrorIs(t, err, models.ErrValidation)
	assert.Equal(t, 2, repo.Count())

	n, err := repo.Clear(ClearAccountsConfirmation)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, 0, repo.Count())
}

func TestAccounts_PersistAndReload(t *testing.T) {
	dir := t.TempDir()
	repo := openTestAccounts(t, dir)
	_, err := repo.CreateAccount(models.Account{
		UserID:     "alice",
		Credential: "pw",
		Email:      "alice@example.com",
		FirstName:  "Alice",
		LastName:   "Liddell",
		IsActive:   true,
	})
	require.NoError(t, err)
	require.NoError(t, repo.LastPersistError())

	reopened := openTestAccounts(t, dir)
	account, err := reopened.Get("alice")
	require.NoError(t, err)
	assert.Equal(t, "Alice Liddell", account.FullName())
	assert.True(t, reopened.Authenticate("alice", "pw"))
}

func TestAccounts_CorruptSnapshotStartsEmpty(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, AccountsFile), []byte("\xff\xfe"), 0o644))

	repo := openTestAccounts(t, dir)
	assert.Equal(t, 0, repo.Count())
}

func TestAccounts_AutoSaveOff(t *testing.T) {
	dir := t.TempDir()
	repo := openTestAccounts(t, dir, WithAccountAutoSave(false))
	_, err := repo.Create("alice", "pw")
	require.NoError(t, err)

	_, err = os.Stat(filepath.Join(dir, AccountsFile))
	assert.True(t, os.IsNotExist(err))

	require.NoError(t, repo.ForcePersist())
	target, ok := repo.Backup(filepath.Join(dir, "backups"))
	assert.True(t, ok)
	assert.FileExists(t, target)
}

func TestAccounts_ConcurrentCreate(t *testing.T) {
	repo := openTestAccounts(t, t.TempDir(), WithAccountAutoSave(false))

	var wg sync.WaitGroup
	errs := make(chan error, 20)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := repo.Create("alice", "pw")
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	created := 0
	for err := range errs {
		if err == nil {
			created++
			continue
		}
		assert.ErrorIs(t, err, models.ErrDuplicateKey)
	}
	assert.Equal(t, 1, created)
}
