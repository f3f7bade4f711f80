package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ngenohkevin/libcatalog/internal/models"
)

type recordingNotifier struct {
	mu      sync.Mutex
	notices []models.Notice
	fail    map[string]bool
}

func (n *recordingNotifier) Notify(ctx context.Context, notice models.Notice) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.fail[notice.UserID] {
		return errors.New("mailbox unavailable")
	}
	n.notices = append(n.notices, notice)
	return nil
}

func TestReminderService_SendOverdueReminders(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.addBook(t, "1111111111", "Dune", 3)
	f.addBook(t, "2222222222", "Emma", 3)
	f.register(t, "alice")
	f.register(t, "bob")

	f.issue(t, "1111111111", "alice", 1)
	f.issue(t, "2222222222", "alice", 2)
	f.issue(t, "1111111111", "bob", 1)
	f.clock.AddDays(17)

	result, err := f.reminders.SendOverdueReminders(ctx)
	require.NoError(t, err)

	assert.Equal(t, models.NotificationTypeOverdueReminder, result.Type)
	assert.Equal(t, 2, result.Sent)
	assert.Zero(t, result.Failed)
	require.Len(t, f.notifier.notices, 2)

	alice := f.notifier.notices[0]
	assert.Equal(t, "alice", alice.UserID)
	assert.Equal(t, "alice@example.com", alice.Recipient)
	assert.Equal(t, "2 overdue loan(s)", alice.Title)
	assert.Len(t, alice.Loans, 2)
	// 3 days late at 2.00 a day on each of two records
	assert.Equal(t, "12.00", alice.TotalFine.StringFixed(2))
	assert.Contains(t, alice.Message, "Dear alice Reader")
	assert.Contains(t, alice.Message, "Dune (1111111111) x1")
	assert.Contains(t, alice.Message, "3 days late, fine 6.00")
	assert.Contains(t, alice.Message, "Total outstanding fine: 12.00")

	assert.Equal(t, "bob", f.notifier.notices[1].UserID)
	assert.Contains(t, f.notifier.notices[1].Message, "loan is overdue")
}

func TestReminderService_NothingOverdue(t *testing.T) {
	f := newFixture(t)
	f.addBook(t, "1111111111", "Dune", 3)
	f.register(t, "alice")
	f.issue(t, "1111111111", "alice", 1)

	result, err := f.reminders.SendOverdueReminders(context.Background())
	require.NoError(t, err)
	assert.Zero(t, result.Sent)
	assert.Empty(t, f.notifier.notices)
}

func TestReminderService_SendDueSoonReminders(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.addBook(t, "1111111111", "Dune", 3)
	f.register(t, "alice")
	f.issue(t, "1111111111", "alice", 1)

	result, err := f.reminders.SendDueSoonReminders(ctx, 3)
	require.NoError(t, err)
	assert.Zero(t, result.Sent, "due in 14 days")

	f.clock.AddDays(12)
	result, err = f.reminders.SendDueSoonReminders(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Sent)
	require.Len(t, result.Notices, 1)
	assert.Equal(t, "1 loan(s) due soon", result.Notices[0].Title)
	assert.Contains(t, result.Notices[0].Message, "due 2026-04-15")
	assert.Contains(t, result.Notices[0].Message, "a fine of 2.00 per day")

	_, err = f.reminders.SendDueSoonReminders(ctx, -1)
	assert.ErrorIs(t, err, models.ErrValidation)
}

func TestReminderService_NotifyFailureIsCounted(t *testing.T) {
	f := newFixture(t)
	f.addBook(t, "1111111111", "Dune", 3)
	f.register(t, "alice")
	f.register(t, "bob")
	f.issue(t, "1111111111", "alice", 1)
	f.issue(t, "1111111111", "bob", 1)
	f.clock.AddDays(15)
	f.notifier.fail = map[string]bool{"alice": true}

	result, err := f.reminders.SendOverdueReminders(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, result.Sent)
	assert.Equal(t, 1, result.Failed)
	require.Len(t, result.Notices, 1)
	assert.Equal(t, "bob", result.Notices[0].UserID)
}

func TestReminderService_DeletedAccountFallsBackToUserID(t *testing.T) {
	loans := new(MockLoanStore)
	accounts := new(MockAccountLookup)
	rec := models.LoanRecord{ID: "l1", BookCode: "1111111111", BookTitle: "Dune", UserID: "ghost", Quantity: 1,
		DueDate: models.Day(time.Now()).AddDate(0, 0, -3)}
	service := NewReminderService(&stubReminderStore{MockLoanStore: loans, overdue: []models.LoanRecord{rec}}, accounts, nil, quietLogger())

	loans.On("Settings").Return(models.DefaultSettings())
	accounts.On("Get", "ghost").Return(models.Account{}, models.NotFoundf("account ghost not found"))

	result, err := service.SendOverdueReminders(context.Background())
	require.NoError(t, err)
	require.Len(t, result.Notices, 1)
	assert.Empty(t, result.Notices[0].Recipient)
	assert.Contains(t, result.Notices[0].Message, "Dear ghost")
}

func TestReminderService_Cancelled(t *testing.T) {
	f := newFixture(t)
	f.addBook(t, "1111111111", "Dune", 3)
	f.register(t, "alice")
	f.issue(t, "1111111111", "alice", 1)
	f.clock.AddDays(15)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := f.reminders.SendOverdueReminders(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.ErrorIs(t, err, models.ErrCancelled)
	assert.Empty(t, f.notifier.notices)
}

func TestReminderService_UnknownType(t *testing.T) {
	f := newFixture(t)

	result, err := f.reminders.send(context.Background(), models.NotificationType("weekly_digest"), nil)
	assert.Nil(t, result)
	assert.ErrorIs(t, err, models.ErrValidation)
	assert.Empty(t, f.notifier.notices)
}

// stubReminderStore serves a fixed overdue list on top of the loan mock.
type stubReminderStore struct {
	*MockLoanStore
	overdue []models.LoanRecord
}

func (s *stubReminderStore) OverdueLoans() []models.LoanRecord {
	return s.overdue
}
