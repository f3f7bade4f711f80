package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/ngenohkevin/libcatalog/internal/database"
	"github.com/ngenohkevin/libcatalog/internal/models"
	"github.com/ngenohkevin/libcatalog/internal/storage"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) AddDays(n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.AddDate(0, 0, n)
}

// fixture wires real repositories in a temp dir behind every service.
type fixture struct {
	clock       *fakeClock
	catalog     *database.CatalogRepository
	accounts    *database.AccountRepository
	books       *BookService
	circulation *CirculationService
	members     *AccountService
	reports     *ReportService
	reminders   *ReminderService
	transfers   *ImportExportService
	notifier    *recordingNotifier
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	clock := &fakeClock{now: time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)}
	dir := t.TempDir()
	store := storage.NewStore(quietLogger())
	settings := models.Settings{
		MaxBorrow:     4,
		MaxPerRequest: 3,
		LoanDays:      14,
		FinePerDay:    decimal.NewFromInt(2),
		MaxRenewals:   2,
	}

	f := &fixture{
		clock: clock,
		catalog: database.OpenCatalog(store, dir, quietLogger(),
			database.WithClock(clock.Now),
			database.WithSettings(settings),
		),
		accounts: database.OpenAccounts(store, dir, quietLogger(),
			database.WithAccountClock(clock.Now),
		),
		notifier: &recordingNotifier{},
	}

	coordinator := NewCoordinator()
	f.books = NewBookService(f.catalog, quietLogger())
	f.books.now = clock.Now
	f.circulation = NewCirculationService(f.catalog, f.accounts, coordinator, quietLogger())
	f.members = NewAccountService(f.accounts, f.catalog, PlainCredentials{}, coordinator, quietLogger())
	f.members.now = clock.Now
	f.reports = NewReportService(f.catalog, f.accounts)
	f.reports.now = clock.Now
	f.reminders = NewReminderService(f.catalog, f.accounts, f.notifier, quietLogger())
	f.reminders.now = clock.Now
	f.transfers = NewImportExportService(f.books, f.catalog, quietLogger())
	f.transfers.now = clock.Now
	return f
}

func (f *fixture) addBook(t *testing.T, code, title string, qty int) {
	t.Helper()
	_, err := f.books.CreateBook(context.Background(), models.CreateBookRequest{
		Code:     code,
		Title:    title,
		Author:   "Author",
		Category: "General",
		Quantity: qty,
	})
	require.NoError(t, err)
}

func (f *fixture) register(t *testing.T, userID string) {
	t.Helper()
	_, err := f.members.Register(context.Background(), models.RegisterAccountRequest{
		UserID:    userID,
		Password:  "pw-" + userID,
		Email:     userID + "@example.com",
		FirstName: userID,
		LastName:  "Reader",
	})
	require.NoError(t, err)
}

func (f *fixture) issue(t *testing.T, code, userID string, qty int) models.LoanRecord {
	t.Helper()
	rec, err := f.circulation.Issue(context.Background(), models.IssueRequest{Code: code, UserID: userID, Quantity: qty})
	require.NoError(t, err)
	return *rec
}
