package services

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"sort"
	"text/template"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ngenohkevin/libcatalog/internal/models"
)

const overdueTemplate = `Dear {{.Name}},

The following {{if eq (len .Loans) 1}}loan is{{else}}loans are{{end}} overdue:
{{range .Loans}}  - {{.BookTitle}} ({{.BookCode}}) x{{.Quantity}}, due {{date .DueDate}}, {{daysOverdue .}} days late, fine {{fine .}}
{{end}}
Total outstanding fine: {{money .TotalFine}}. Please return the books as soon as possible.
`

const dueSoonTemplate = `Dear {{.Name}},

The following {{if eq (len .Loans) 1}}loan falls{{else}}loans fall{{end}} due soon:
{{range .Loans}}  - {{.BookTitle}} ({{.BookCode}}) x{{.Quantity}}, due {{date .DueDate}}
{{end}}
Return or renew them before the due date to avoid a fine of {{money .FinePerDay}} per day.
`

// Notifier delivers a rendered notice
type Notifier interface {
	Notify(ctx context.Context, notice models.Notice) error
}

// LogNotifier records notices in the log instead of sending them anywhere.
type LogNotifier struct {
	Logger *slog.Logger
}

func (n LogNotifier) Notify(ctx context.Context, notice models.Notice) error {
	logger := n.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.InfoContext(ctx, "Reminder sent",
		"type", notice.Type,
		"user_id", notice.UserID,
		"recipient", notice.Recipient,
		"loans", len(notice.Loans),
		"total_fine", notice.TotalFine.StringFixed(2),
	)
	return nil
}

// ReminderStore defines the loan views reminders are built from
type ReminderStore interface {
	Settings() models.Settings
	OverdueLoans() []models.LoanRecord
	DueSoon(days int) []models.LoanRecord
}

// ReminderService renders overdue and due-soon notices and hands them to a Notifier
type ReminderService struct {
	loans     ReminderStore
	accounts  AccountLookup
	notifier  Notifier
	logger    *slog.Logger
	now       func() time.Time
	templates map[models.NotificationType]*template.Template
}

func NewReminderService(loans ReminderStore, accounts AccountLookup, notifier Notifier, logger *slog.Logger) *ReminderService {
	if logger == nil {
		logger = slog.Default()
	}
	if notifier == nil {
		notifier = LogNotifier{Logger: logger}
	}
	s := &ReminderService{
		loans:    loans,
		accounts: accounts,
		notifier: notifier,
		logger:   logger,
		now:      time.Now,
	}
	s.templates = map[models.NotificationType]*template.Template{
		models.NotificationTypeOverdueReminder: template.Must(template.New("overdue").Funcs(s.funcs()).Parse(overdueTemplate)),
		models.NotificationTypeDueSoon:         template.Must(template.New("due_soon").Funcs(s.funcs()).Parse(dueSoonTemplate)),
	}
	return s
}

func (s *ReminderService) funcs() template.FuncMap {
	return template.FuncMap{
		"date":  func(t time.Time) string { return t.Format("2006-01-02") },
		"money": func(d decimal.Decimal) string { return d.StringFixed(2) },
		"daysOverdue": func(rec models.LoanRecord) int {
			return rec.DaysOverdue(models.Day(s.now()))
		},
		"fine": func(rec models.LoanRecord) string {
			return rec.CalculateFine(models.Day(s.now()), s.loans.Settings().FinePerDay).StringFixed(2)
		},
	}
}

type reminderData struct {
	Name       string
	Loans      []models.LoanRecord
	TotalFine  decimal.Decimal
	FinePerDay decimal.Decimal
}

// SendOverdueReminders sends one notice per borrower with overdue loans
func (s *ReminderService) SendOverdueReminders(ctx context.Context) (*models.ReminderResult, error) {
	return s.send(ctx, models.NotificationTypeOverdueReminder, s.loans.OverdueLoans())
}

// SendDueSoonReminders sends one notice per borrower with loans due within days
func (s *ReminderService) SendDueSoonReminders(ctx context.Context, days int) (*models.ReminderResult, error) {
	if days < 0 {
		return nil, models.NewValidationError("days", models.RuleMin, "days cannot be negative")
	}
	return s.send(ctx, models.NotificationTypeDueSoon, s.loans.DueSoon(days))
}

func (s *ReminderService) send(ctx context.Context, kind models.NotificationType, loans []models.LoanRecord) (*models.ReminderResult, error) {
	if !kind.IsValid() || s.templates[kind] == nil {
		return nil, models.NewValidationError("type", models.RuleFormat, fmt.Sprintf("unknown reminder type %q", kind))
	}
	result := &models.ReminderResult{Type: kind}
	byUser := make(map[string][]models.LoanRecord)
	for _, rec := range loans {
		byUser[rec.UserID] = append(byUser[rec.UserID], rec)
	}
	users := make([]string, 0, len(byUser))
	for u := range byUser {
		users = append(users, u)
	}
	sort.Strings(users)

	for _, userID := range users {
		if err := ctx.Err(); err != nil {
			return result, models.NewCancelledError(err)
		}

		notice, err := s.buildNotice(kind, userID, byUser[userID])
		if err != nil {
			return result, err
		}
		if err := s.notifier.Notify(ctx, notice); err != nil {
			s.logger.Error("Failed to send reminder", "type", kind, "user_id", userID, "error", err)
			result.Failed++
			continue
		}
		result.Sent++
		result.Notices = append(result.Notices, notice)
	}

	s.logger.Info("Reminder run finished", "type", kind, "sent", result.Sent, "failed", result.Failed)
	return result, nil
}

func (s *ReminderService) buildNotice(kind models.NotificationType, userID string, loans []models.LoanRecord) (models.Notice, error) {
	now := s.now()
	settings := s.loans.Settings()

	data := reminderData{
		Name:       userID,
		Loans:      loans,
		TotalFine:  decimal.Zero,
		FinePerDay: settings.FinePerDay,
	}
	for _, rec := range loans {
		data.TotalFine = data.TotalFine.Add(rec.CalculateFine(models.Day(now), settings.FinePerDay))
	}

	notice := models.Notice{
		Type:      kind,
		UserID:    userID,
		Loans:     loans,
		TotalFine: data.TotalFine,
		CreatedAt: now,
	}
	if account, err := s.accounts.Get(userID); err == nil {
		data.Name = account.DisplayName()
		notice.Recipient = account.Email
	}

	switch kind {
	case models.NotificationTypeOverdueReminder:
		notice.Title = fmt.Sprintf("%d overdue loan(s)", len(loans))
	default:
		notice.Title = fmt.Sprintf("%d loan(s) due soon", len(loans))
	}

	var buf bytes.Buffer
	if err := s.templates[kind].Execute(&buf, data); err != nil {
		return models.Notice{}, fmt.Errorf("failed to render %s reminder: %w", kind, err)
	}
	notice.Message = buf.String()
	return notice, nil
}
