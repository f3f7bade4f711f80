package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/ngenohkevin/libcatalog/internal/models"
)

// LoanStore defines the catalog operations behind issuing and returning
type LoanStore interface {
	Settings() models.Settings
	Issue(code, userID string, quantity int, notes string) (models.LoanRecord, error)
	ReturnCopies(code, userID string, quantity int) (models.ReturnReceipt, error)
	ReturnAll(code, userID string) (models.ReturnReceipt, error)
	Renew(code, userID string) (models.LoanRecord, error)
	ActiveLoansFor(userID string) []models.LoanRecord
	OverdueLoansFor(userID string) []models.LoanRecord
	DueSoon(days int) []models.LoanRecord
	LoanHistory(userID string) []models.LoanRecord
	TotalFine(userID string) decimal.Decimal
	BorrowedCount(userID string) int
}

// AccountLookup resolves borrowers before the catalog is touched
type AccountLookup interface {
	Get(userID string) (models.Account, error)
}

// CirculationService handles issuing, returning and renewing loans
type CirculationService struct {
	loans       LoanStore
	accounts    AccountLookup
	coordinator *Coordinator
	logger      *slog.Logger
}

func NewCirculationService(loans LoanStore, accounts AccountLookup, coordinator *Coordinator, logger *slog.Logger) *CirculationService {
	if coordinator == nil {
		coordinator = NewCoordinator()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &CirculationService{
		loans:       loans,
		accounts:    accounts,
		coordinator: coordinator,
		logger:      logger,
	}
}

// Issue lends copies to an existing, active account
func (s *CirculationService) Issue(ctx context.Context, req models.IssueRequest) (*models.LoanRecord, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if limit := s.loans.Settings().MaxPerRequest; req.Quantity > limit {
		return nil, models.LimitExceededf("at most %d copies may be issued in one request", limit)
	}

	var rec models.LoanRecord
	err := s.coordinator.Do(ctx, func() error {
		account, err := s.accounts.Get(req.UserID)
		if err != nil {
			return fmt.Errorf("failed to resolve borrower: %w", err)
		}
		if !account.IsActive {
			return models.Conflictf("account %s is inactive", req.UserID)
		}

		rec, err = s.loans.Issue(req.Code, req.UserID, req.Quantity, strings.TrimSpace(req.Notes))
		if err != nil {
			return fmt.Errorf("failed to issue book: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Book issued",
		"loan_id", rec.ID,
		"code", rec.BookCode,
		"user_id", rec.UserID,
		"quantity", rec.Quantity,
		"due_date", rec.DueDate.Format("2006-01-02"),
	)
	return &rec, nil
}

// Return takes back copies and reports the fines frozen by the return
func (s *CirculationService) Return(ctx context.Context, req models.ReturnRequest) (*models.ReturnReceipt, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	receipt, err := s.loans.ReturnCopies(req.Code, req.UserID, req.Quantity)
	if err != nil {
		return nil, fmt.Errorf("failed to return book: %w", err)
	}

	s.logReturn(receipt)
	return &receipt, nil
}

func (s *CirculationService) ReturnAll(ctx context.Context, code, userID string) (*models.ReturnReceipt, error) {
	code, userID, err := normalizeLoanKey(code, userID)
	if err != nil {
		return nil, err
	}

	receipt, err := s.loans.ReturnAll(code, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to return book: %w", err)
	}

	s.logReturn(receipt)
	return &receipt, nil
}

func (s *CirculationService) logReturn(receipt models.ReturnReceipt) {
	s.logger.Info("Book returned",
		"code", receipt.Code,
		"user_id", receipt.UserID,
		"quantity", receipt.Quantity,
		"records_closed", len(receipt.Closed),
		"fine", receipt.Fine.StringFixed(2),
	)
}

// Renew extends the user's earliest-due loan of a title
func (s *CirculationService) Renew(ctx context.Context, code, userID string) (*models.LoanRecord, error) {
	code, userID, err := normalizeLoanKey(code, userID)
	if err != nil {
		return nil, err
	}

	rec, err := s.loans.Renew(code, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to renew loan: %w", err)
	}

	s.logger.Info("Loan renewed",
		"loan_id", rec.ID,
		"code", code,
		"user_id", userID,
		"due_date", rec.DueDate.Format("2006-01-02"),
		"renewals", rec.RenewalCount,
	)
	return &rec, nil
}

func normalizeLoanKey(code, userID string) (string, string, error) {
	code = models.NormalizeCode(code)
	userID = strings.TrimSpace(userID)
	if err := models.ValidateCode(code); err != nil {
		return "", "", err
	}
	if err := models.ValidateUserID(userID); err != nil {
		return "", "", err
	}
	return code, userID, nil
}

// ActiveLoans lists open records; an empty user id means every borrower.
func (s *CirculationService) ActiveLoans(ctx context.Context, userID string) []models.LoanRecord {
	return s.loans.ActiveLoansFor(strings.TrimSpace(userID))
}

func (s *CirculationService) OverdueLoans(ctx context.Context, userID string) []models.LoanRecord {
	return s.loans.OverdueLoansFor(strings.TrimSpace(userID))
}

func (s *CirculationService) DueSoon(ctx context.Context, days int) ([]models.LoanRecord, error) {
	if days < 0 {
		return nil, models.NewValidationError("days", models.RuleMin, "days cannot be negative")
	}
	return s.loans.DueSoon(days), nil
}

func (s *CirculationService) History(ctx context.Context, userID string) ([]models.LoanRecord, error) {
	userID = strings.TrimSpace(userID)
	if err := models.ValidateUserID(userID); err != nil {
		return nil, err
	}
	return s.loans.LoanHistory(userID), nil
}

func (s *CirculationService) TotalFine(ctx context.Context, userID string) (decimal.Decimal, error) {
	userID = strings.TrimSpace(userID)
	if err := models.ValidateUserID(userID); err != nil {
		return decimal.Zero, err
	}
	return s.loans.TotalFine(userID), nil
}

func (s *CirculationService) BorrowedCount(ctx context.Context, userID string) int {
	return s.loans.BorrowedCount(strings.TrimSpace(userID))
}
