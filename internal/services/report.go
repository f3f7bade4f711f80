package services

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ngenohkevin/libcatalog/internal/models"
)

// ReportStore defines the catalog reads needed for reports
type ReportStore interface {
	Settings() models.Settings
	Statistics() models.LibraryStats
	OverdueLoans() []models.LoanRecord
	ActiveLoansFor(userID string) []models.LoanRecord
	OverdueLoansFor(userID string) []models.LoanRecord
	TotalFine(userID string) decimal.Decimal
	BorrowedCount(userID string) int
}

// ReportService handles reporting over the catalog and accounts
type ReportService struct {
	catalog  ReportStore
	accounts AccountLookup
	now      func() time.Time
}

// NewReportService creates a new report service instance
func NewReportService(catalog ReportStore, accounts AccountLookup) *ReportService {
	return &ReportService{
		catalog:  catalog,
		accounts: accounts,
		now:      time.Now,
	}
}

// GetLibraryStats returns the catalog totals
func (rs *ReportService) GetLibraryStats(ctx context.Context) models.LibraryStats {
	return rs.catalog.Statistics()
}

// GetOverdueReport groups overdue loans by borrower, worst fines first
func (rs *ReportService) GetOverdueReport(ctx context.Context) *models.OverdueReport {
	now := rs.now()
	today := models.Day(now)
	finePerDay := rs.catalog.Settings().FinePerDay

	byUser := make(map[string]*models.OverdueBorrower)
	report := &models.OverdueReport{
		Borrowers:   make([]models.OverdueBorrower, 0),
		Summary:     models.OverdueSummary{TotalFines: decimal.Zero},
		GeneratedAt: now,
	}

	for _, rec := range rs.catalog.OverdueLoans() {
		b, ok := byUser[rec.UserID]
		if !ok {
			b = &models.OverdueBorrower{UserID: rec.UserID, Name: rec.UserID, TotalFine: decimal.Zero}
			if account, err := rs.accounts.Get(rec.UserID); err == nil {
				b.Name = account.DisplayName()
				b.Email = account.Email
			}
			byUser[rec.UserID] = b
		}

		fine := rec.CalculateFine(today, finePerDay)
		b.Loans = append(b.Loans, models.OverdueDetail{
			LoanID:      rec.ID,
			BookCode:    rec.BookCode,
			BookTitle:   rec.BookTitle,
			Quantity:    rec.Quantity,
			DueDate:     rec.DueDate,
			DaysOverdue: rec.DaysOverdue(today),
			Fine:        fine,
		})
		b.TotalFine = b.TotalFine.Add(fine)

		report.Summary.TotalLoans++
		report.Summary.TotalFines = report.Summary.TotalFines.Add(fine)
	}

	for _, b := range byUser {
		report.Borrowers = append(report.Borrowers, *b)
	}
	sort.Slice(report.Borrowers, func(i, j int) bool {
		a, b := report.Borrowers[i], report.Borrowers[j]
		if c := a.TotalFine.Cmp(b.TotalFine); c != 0 {
			return c > 0
		}
		return a.UserID < b.UserID
	})
	report.Summary.TotalBorrowers = len(report.Borrowers)

	return report
}

// GetUserSummary reports a member's loans, fines and remaining quota
func (rs *ReportService) GetUserSummary(ctx context.Context, userID string) (*models.UserSummary, error) {
	userID = strings.TrimSpace(userID)
	account, err := rs.accounts.Get(userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}

	borrowed := rs.catalog.BorrowedCount(userID)
	remaining := rs.catalog.Settings().MaxBorrow - borrowed
	if remaining < 0 {
		remaining = 0
	}

	return &models.UserSummary{
		Account:        account.ToResponse(),
		BorrowedCount:  borrowed,
		ActiveLoans:    rs.catalog.ActiveLoansFor(userID),
		OverdueLoans:   len(rs.catalog.OverdueLoansFor(userID)),
		TotalFine:      rs.catalog.TotalFine(userID),
		RemainingQuota: remaining,
	}, nil
}
