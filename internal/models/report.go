package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// LibraryStats is a consistent point-in-time view of the whole catalog
type LibraryStats struct {
	TotalTitles     int             `json:"total_titles"`
	TotalCopies     int             `json:"total_copies"`
	AvailableCopies int             `json:"available_copies"`
	IssuedCopies    int             `json:"issued_copies"`
	ActiveLoans     int             `json:"active_loans"`
	OverdueLoans    int             `json:"overdue_loans"`
	OverdueFines    decimal.Decimal `json:"overdue_fines"`
	Utilization     float64         `json:"utilization_percent"`
	Borrowers       int             `json:"borrowers"`
	GeneratedAt     time.Time       `json:"generated_at"`
}

// Utilization is issued/total as a percentage, 0 for an empty catalog.
func Utilization(issued, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(issued) / float64(total) * 100
}

// OverdueReport groups overdue loans by borrower
type OverdueReport struct {
	Borrowers   []OverdueBorrower `json:"borrowers"`
	Summary     OverdueSummary    `json:"summary"`
	GeneratedAt time.Time         `json:"generated_at"`
}

// OverdueBorrower represents one user's overdue loans
type OverdueBorrower struct {
	UserID    string          `json:"user_id"`
	Name      string          `json:"name"`
	Email     string          `json:"email,omitempty"`
	Loans     []OverdueDetail `json:"loans"`
	TotalFine decimal.Decimal `json:"total_fine"`
}

// OverdueDetail represents details of an overdue loan
type OverdueDetail struct {
	LoanID      string          `json:"loan_id"`
	BookCode    string          `json:"book_code"`
	BookTitle   string          `json:"book_title"`
	Quantity    int             `json:"quantity"`
	DueDate     time.Time       `json:"due_date"`
	DaysOverdue int             `json:"days_overdue"`
	Fine        decimal.Decimal `json:"fine"`
}

// OverdueSummary represents overdue totals
type OverdueSummary struct {
	TotalLoans     int             `json:"total_loans"`
	TotalBorrowers int             `json:"total_borrowers"`
	TotalFines     decimal.Decimal `json:"total_fines"`
}

// UserSummary is one member's current standing
type UserSummary struct {
	Account        AccountResponse `json:"account"`
	BorrowedCount  int             `json:"borrowed_count"`
	ActiveLoans    []LoanRecord    `json:"active_loans"`
	OverdueLoans   int             `json:"overdue_loans"`
	TotalFine      decimal.Decimal `json:"total_fine"`
	RemainingQuota int             `json:"remaining_quota"`
}
