package database

import (
	"crypto/subtle"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/ngenohkevin/libcatalog/internal/models"
	"github.com/ngenohkevin/libcatalog/internal/storage"
)

const (
	AccountsFile = "accounts.json"
	kindAccounts = "accounts"

	// ClearAccountsConfirmation must be passed to Clear verbatim.
	ClearAccountsConfirmation = "CLEAR_ALL_USERS"
)

// CredentialMatcher decides whether a presented password matches the
// credential stored for an account.
type CredentialMatcher interface {
	Match(stored, presented string) bool
}

// ExactMatcher compares credentials byte for byte in constant time.
type ExactMatcher struct{}

func (ExactMatcher) Match(stored, presented string) bool {
	return subtle.ConstantTimeCompare([]byte(stored), []byte(presented)) == 1
}

// AccountRepository owns the member accounts. It has its own lock and
// never blocks on the catalog.
type AccountRepository struct {
	mu       sync.RWMutex
	store    *storage.Store
	path     string
	logger   *slog.Logger
	now      func() time.Time
	autoSave bool
	matcher  CredentialMatcher
	accounts map[string]*models.Account

	lastPersistErr error
}

type AccountOption func(*AccountRepository)

func WithAccountClock(now func() time.Time) AccountOption {
	return func(r *AccountRepository) { r.now = now }
}

func WithAccountAutoSave(enabled bool) AccountOption {
	return func(r *AccountRepository) { r.autoSave = enabled }
}

func WithCredentialMatcher(m CredentialMatcher) AccountOption {
	return func(r *AccountRepository) {
		if m != nil {
			r.matcher = m
		}
	}
}

// OpenAccounts loads the account snapshot in dir, starting empty when it
// is missing or unreadable.
func OpenAccounts(store *storage.Store, dir string, logger *slog.Logger, opts ...AccountOption) *AccountRepository {
	if logger == nil {
		logger = slog.Default()
	}
	r := &AccountRepository{
		store:    store,
		path:     filepath.Join(dir, AccountsFile),
		logger:   logger,
		now:      time.Now,
		autoSave: true,
		matcher:  ExactMatcher{},
		accounts: make(map[string]*models.Account),
	}
	for _, opt := range opts {
		opt(r)
	}

	var accounts map[string]*models.Account
	found, err := store.Load(r.path, kindAccounts, &accounts)
	switch {
	case err != nil:
		r.logger.Warn("Ignoring unreadable snapshot", "file", AccountsFile, "error", err)
		preserveCorrupt(store, r.path, r.logger)
	case found && accounts != nil:
		r.accounts = accounts
	}
	return r
}

func (r *AccountRepository) persistLocked() {
	if !r.autoSave {
		return
	}
	if err := r.saveLocked(); err != nil {
		r.logger.Error("Failed to persist accounts", "error", err)
	}
}

func (r *AccountRepository) saveLocked() error {
	r.lastPersistErr = r.store.Save(r.path, kindAccounts, r.accounts)
	return r.lastPersistErr
}

func (r *AccountRepository) ForcePersist() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.saveLocked()
}

func (r *AccountRepository) LastPersistError() error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.lastPersistErr
}

func (r *AccountRepository) SetAutoSave(enabled bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.autoSave = enabled
}

func (r *AccountRepository) Backup(dir string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.store.Backup(r.path, dir)
}

// Authenticate reports whether password matches the stored credential.
// Unknown users and blank input simply fail.
func (r *AccountRepository) Authenticate(userID, password string) bool {
	if strings.TrimSpace(userID) == "" || strings.TrimSpace(password) == "" {
		return false
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.accounts[userID]
	if !ok {
		return false
	}
	return r.matcher.Match(a.Credential, password)
}

// Create registers a bare active account.
func (r *AccountRepository) Create(userID, credential string) (models.Account, error) {
	return r.CreateAccount(models.Account{UserID: userID, Credential: credential, IsActive: true})
}

// CreateAccount registers a fully populated account.
func (r *AccountRepository) CreateAccount(account models.Account) (models.Account, error) {
	if strings.TrimSpace(account.UserID) == "" {
		return models.Account{}, models.NewValidationError("user_id", models.RuleRequired, "user_id is required")
	}
	if account.Credential == "" {
		return models.Account{}, models.NewValidationError("password", models.RuleRequired, "password is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.accounts[account.UserID]; exists {
		return models.Account{}, models.DuplicateKeyf("account %s already exists", account.UserID)
	}

	a := account
	if a.CreatedAt.IsZero() {
		a.CreatedAt = r.now()
	}
	r.accounts[a.UserID] = &a

	r.persistLocked()
	return a, nil
}

func (r *AccountRepository) Get(userID string) (models.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.accounts[userID]
	if !ok {
		return models.Account{}, models.NotFoundf("account %s not found", userID)
	}
	return *a, nil
}

// List returns every account ordered by user id.
func (r *AccountRepository) List() []models.Account {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]models.Account, 0, len(r.accounts))
	for _, a := range r.accounts {
		out = append(out, *a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out
}

func (r *AccountRepository) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.accounts)
}

func (r *AccountRepository) Exists(userID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.accounts[userID]
	return ok
}

// Update replaces an existing account, credential included. Only the
// creation time is carried over when the replacement leaves it unset.
func (r *AccountRepository) Update(account models.Account) error {
	if account.Credential == "" {
		return models.NewValidationError("credential", models.RuleRequired, "credential is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.accounts[account.UserID]
	if !ok {
		return models.NotFoundf("account %s not found", account.UserID)
	}

	a := account
	if a.CreatedAt.IsZero() {
		a.CreatedAt = existing.CreatedAt
	}
	r.accounts[a.UserID] = &a

	r.persistLocked()
	return nil
}

// RecordLogin stamps the account's last login time.
func (r *AccountRepository) RecordLogin(userID string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.accounts[userID]
	if !ok {
		return models.NotFoundf("account %s not found", userID)
	}
	a.LastLogin = &at

	r.persistLocked()
	return nil
}

// Remove deletes an account. Removing an unknown id is a logged no-op.
func (r *AccountRepository) Remove(userID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.accounts[userID]; !ok {
		r.logger.Info("Account to remove does not exist", "user_id", userID)
		return false
	}
	delete(r.accounts, userID)

	r.persistLocked()
	return true
}

// Clear deletes every account when given ClearAccountsConfirmation and
// returns how many were removed.
func (r *AccountRepository) Clear(confirmation string) (int, error) {
	if confirmation != ClearAccountsConfirmation {
		return 0, models.NewValidationError("confirmation", models.RuleFormat,
			"confirmation must be "+ClearAccountsConfirmation)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	n := len(r.accounts)
	r.accounts = make(map[string]*models.Account)
	r.logger.Warn("All accounts cleared", "count", n)

	r.persistLocked()
	return n, nil
}
