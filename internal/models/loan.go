package models

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// LoanStatus represents where a loan record is in its lifecycle
type LoanStatus string

const (
	LoanStatusActive   LoanStatus = "active"
	LoanStatusOverdue  LoanStatus = "overdue"
	LoanStatusReturned LoanStatus = "returned"
)

// LoanRecord is one issue of one or more copies of a title to a user.
// Dates are calendar days stored as UTC midnight.
type LoanRecord struct {
	ID           string          `json:"id"`
	BookCode     string          `json:"book_code"`
	BookTitle    string          `json:"book_title"`
	UserID       string          `json:"user_id"`
	IssueDate    time.Time       `json:"issue_date"`
	OriginalDue  time.Time       `json:"original_due_date"`
	DueDate      time.Time       `json:"due_date"`
	Quantity     int             `json:"quantity"`
	Returned     bool            `json:"returned"`
	ReturnDate   *time.Time      `json:"return_date,omitempty"`
	FineAmount   decimal.Decimal `json:"fine_amount"`
	RenewalCount int             `json:"renewal_count"`
	Notes        string          `json:"notes,omitempty"`
}

// Day truncates t to its calendar date, expressed as UTC midnight.
func Day(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// DaysBetween counts calendar days from one date to another; negative
// when to is before from.
func DaysBetween(from, to time.Time) int {
	return int(Day(to).Sub(Day(from)).Hours() / 24)
}

// NewLoanRecord opens a record issued on the given day.
func NewLoanRecord(id string, book Book, userID string, quantity int, issued time.Time, loanDays int, notes string) LoanRecord {
	issueDay := Day(issued)
	due := issueDay.AddDate(0, 0, loanDays)
	return LoanRecord{
		ID:          id,
		BookCode:    book.Code,
		BookTitle:   book.Title,
		UserID:      userID,
		IssueDate:   issueDay,
		OriginalDue: due,
		DueDate:     due,
		Quantity:    quantity,
		FineAmount:  decimal.Zero,
		Notes:       strings.TrimSpace(notes),
	}
}

// SameLoan compares records by book code, user and issue date.
func (r *LoanRecord) SameLoan(other LoanRecord) bool {
	return r.BookCode == other.BookCode && r.UserID == other.UserID && r.IssueDate.Equal(other.IssueDate)
}

func (r *LoanRecord) IsActive() bool {
	return !r.Returned
}

// DaysOverdue is measured to the return date for closed records and to
// today otherwise. Never negative.
func (r *LoanRecord) DaysOverdue(today time.Time) int {
	asOf := today
	if r.Returned && r.ReturnDate != nil {
		asOf = *r.ReturnDate
	}
	days := DaysBetween(r.DueDate, asOf)
	if days < 0 {
		return 0
	}
	return days
}

func (r *LoanRecord) IsOverdue(today time.Time) bool {
	return r.IsActive() && r.DaysOverdue(today) > 0
}

// IsDueSoon reports an active, not yet overdue record due within days.
func (r *LoanRecord) IsDueSoon(today time.Time, days int) bool {
	if !r.IsActive() {
		return false
	}
	left := DaysBetween(today, r.DueDate)
	return left >= 0 && left <= days
}

// CalculateFine is dynamic for active records and frozen once returned.
func (r *LoanRecord) CalculateFine(today time.Time, finePerDay decimal.Decimal) decimal.Decimal {
	if r.Returned {
		return r.FineAmount
	}
	return finePerDay.Mul(decimal.NewFromInt(int64(r.DaysOverdue(today))))
}

func (r *LoanRecord) Status(today time.Time) LoanStatus {
	switch {
	case r.Returned:
		return LoanStatusReturned
	case r.IsOverdue(today):
		return LoanStatusOverdue
	default:
		return LoanStatusActive
	}
}

// Close marks the whole record returned and freezes its fine.
func (r *LoanRecord) Close(day time.Time, finePerDay decimal.Decimal) {
	returned := Day(day)
	r.Returned = true
	r.ReturnDate = &returned
	r.FineAmount = finePerDay.Mul(decimal.NewFromInt(int64(r.DaysOverdue(returned))))
}

// Split removes quantity copies from an active record and returns a
// closed record covering them. The split keeps the issue date, both due
// dates, the renewal count and the notes.
func (r *LoanRecord) Split(id string, quantity int, day time.Time, finePerDay decimal.Decimal) LoanRecord {
	closed := *r
	closed.ID = id
	closed.Quantity = quantity
	closed.ReturnDate = nil
	closed.Close(day, finePerDay)
	r.Quantity -= quantity
	return closed
}

// Renew pushes the current due date out by loanDays. A loan already past
// its due date must be returned, not renewed, even with renewals left.
func (r *LoanRecord) Renew(today time.Time, loanDays, maxRenewals int) error {
	if r.Returned {
		return Conflictf("loan %s has already been returned", r.ID)
	}
	if r.IsOverdue(today) {
		return Conflictf("cannot renew overdue loan of %s", r.BookCode)
	}
	if r.RenewalCount >= maxRenewals {
		return LimitExceededf("loan of %s has reached the maximum of %d renewals", r.BookCode, maxRenewals)
	}
	r.DueDate = r.DueDate.AddDate(0, 0, loanDays)
	r.RenewalCount++
	return nil
}

// IssueRequest represents a request to lend copies of a title
type IssueRequest struct {
	Code     string `json:"code"`
	UserID   string `json:"user_id"`
	Quantity int    `json:"quantity"`
	Notes    string `json:"notes"`
}

func (r *IssueRequest) Validate() error {
	r.Code = NormalizeCode(r.Code)
	r.UserID = strings.TrimSpace(r.UserID)
	if err := ValidateCode(r.Code); err != nil {
		return err
	}
	if err := ValidateUserID(r.UserID); err != nil {
		return err
	}
	if r.Quantity < 1 {
		return NewValidationError("quantity", RuleMin, "quantity must be at least 1")
	}
	return validateText("notes", strings.TrimSpace(r.Notes), false, 500)
}

// ReturnRequest represents a request to bring copies back
type ReturnRequest struct {
	Code     string `json:"code"`
	UserID   string `json:"user_id"`
	Quantity int    `json:"quantity"`
}

func (r *ReturnRequest) Validate() error {
	r.Code = NormalizeCode(r.Code)
	r.UserID = strings.TrimSpace(r.UserID)
	if err := ValidateCode(r.Code); err != nil {
		return err
	}
	if err := ValidateUserID(r.UserID); err != nil {
		return err
	}
	if r.Quantity < 1 {
		return NewValidationError("quantity", RuleMin, "quantity must be at least 1")
	}
	return nil
}

// ReturnReceipt summarizes one return: the records it closed and the
// fines they froze.
type ReturnReceipt struct {
	Code     string          `json:"code"`
	UserID   string          `json:"user_id"`
	Quantity int             `json:"quantity"`
	Fine     decimal.Decimal `json:"fine"`
	Closed   []LoanRecord    `json:"closed"`
}
