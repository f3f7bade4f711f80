package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ngenohkevin/libcatalog/internal/models"
)

// AccountStore defines the account repository operations the service uses
type AccountStore interface {
	Authenticate(userID, password string) bool
	CreateAccount(account models.Account) (models.Account, error)
	Get(userID string) (models.Account, error)
	List() []models.Account
	Count() int
	Exists(userID string) bool
	Update(account models.Account) error
	RecordLogin(userID string, at time.Time) error
	Remove(userID string) bool
	Clear(confirmation string) (int, error)
}

// HoldingsStore reports which members still hold copies
type HoldingsStore interface {
	BorrowedCount(userID string) int
	AllBorrowers() map[string]map[string]int
}

// AccountService handles member registration, login and profile upkeep
type AccountService struct {
	accounts    AccountStore
	holdings    HoldingsStore
	credentials Credentials
	coordinator *Coordinator
	logger      *slog.Logger
	now         func() time.Time
}

func NewAccountService(accounts AccountStore, holdings HoldingsStore, credentials Credentials, coordinator *Coordinator, logger *slog.Logger) *AccountService {
	if credentials == nil {
		credentials = PlainCredentials{}
	}
	if coordinator == nil {
		coordinator = NewCoordinator()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &AccountService{
		accounts:    accounts,
		holdings:    holdings,
		credentials: credentials,
		coordinator: coordinator,
		logger:      logger,
		now:         time.Now,
	}
}

// Register creates a new active account
func (s *AccountService) Register(ctx context.Context, req models.RegisterAccountRequest) (*models.AccountResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	credential, err := s.credentials.Encode(req.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to encode password: %w", err)
	}

	account, err := s.accounts.CreateAccount(models.Account{
		UserID:        req.UserID,
		Credential:    credential,
		Email:         req.Email,
		ContactNumber: req.ContactNumber,
		FirstName:     req.FirstName,
		LastName:      req.LastName,
		IsActive:      true,
		CreatedAt:     s.now(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to register account: %w", err)
	}

	s.logger.Info("Account registered", "user_id", account.UserID)
	resp := account.ToResponse()
	return &resp, nil
}

// Login checks the password and stamps the last login time
func (s *AccountService) Login(ctx context.Context, req models.LoginRequest) (*models.AccountResponse, error) {
	userID := strings.TrimSpace(req.UserID)
	if !s.accounts.Authenticate(userID, req.Password) {
		s.logger.Warn("Failed login attempt", "user_id", userID)
		return nil, ErrInvalidCredentials
	}

	account, err := s.accounts.Get(userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load account: %w", err)
	}
	if !account.IsActive {
		return nil, ErrAccountInactive
	}

	at := s.now()
	if err := s.accounts.RecordLogin(userID, at); err != nil {
		return nil, fmt.Errorf("failed to record login: %w", err)
	}
	account.LastLogin = &at

	s.logger.Info("Login successful", "user_id", userID)
	resp := account.ToResponse()
	return &resp, nil
}

func (s *AccountService) GetAccount(ctx context.Context, userID string) (*models.AccountResponse, error) {
	account, err := s.accounts.Get(strings.TrimSpace(userID))
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	resp := account.ToResponse()
	return &resp, nil
}

func (s *AccountService) ListAccounts(ctx context.Context) []models.AccountResponse {
	accounts := s.accounts.List()
	out := make([]models.AccountResponse, 0, len(accounts))
	for i := range accounts {
		out = append(out, accounts[i].ToResponse())
	}
	return out
}

func (s *AccountService) Count(ctx context.Context) int {
	return s.accounts.Count()
}

func (s *AccountService) Exists(ctx context.Context, userID string) bool {
	return s.accounts.Exists(strings.TrimSpace(userID))
}

// UpdateProfile replaces the profile fields, leaving the credential alone
func (s *AccountService) UpdateProfile(ctx context.Context, req models.UpdateProfileRequest) (*models.AccountResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	account, err := s.accounts.Get(req.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}

	account.Email = req.Email
	account.ContactNumber = req.ContactNumber
	account.FirstName = req.FirstName
	account.LastName = req.LastName
	account.IsActive = req.IsActive

	if err := s.accounts.Update(account); err != nil {
		return nil, fmt.Errorf("failed to update account: %w", err)
	}

	s.logger.Info("Account updated", "user_id", account.UserID, "is_active", account.IsActive)
	resp := account.ToResponse()
	return &resp, nil
}

// ChangePassword requires the current password before replacing it
func (s *AccountService) ChangePassword(ctx context.Context, req models.ChangePasswordRequest) error {
	if err := req.Validate(); err != nil {
		return err
	}
	if !s.accounts.Authenticate(req.UserID, req.OldPassword) {
		return ErrInvalidCredentials
	}

	account, err := s.accounts.Get(req.UserID)
	if err != nil {
		return fmt.Errorf("failed to get account: %w", err)
	}

	credential, err := s.credentials.Encode(req.NewPassword)
	if err != nil {
		return fmt.Errorf("failed to encode password: %w", err)
	}
	account.Credential = credential

	if err := s.accounts.Update(account); err != nil {
		return fmt.Errorf("failed to change password: %w", err)
	}

	s.logger.Info("Password changed", "user_id", req.UserID)
	return nil
}

// DeleteAccount removes an account that holds no copies. It reports
// whether anything was removed.
func (s *AccountService) DeleteAccount(ctx context.Context, userID string) (bool, error) {
	userID = strings.TrimSpace(userID)
	if err := models.ValidateUserID(userID); err != nil {
		return false, err
	}

	var removed bool
	err := s.coordinator.Do(ctx, func() error {
		if held := s.holdings.BorrowedCount(userID); held > 0 {
			return models.Conflictf("account %s still holds %d copies", userID, held)
		}
		removed = s.accounts.Remove(userID)
		return nil
	})
	if err != nil {
		return false, err
	}

	if removed {
		s.logger.Info("Account deleted", "user_id", userID)
	}
	return removed, nil
}

// ClearAccounts deletes every account once no copies are on loan.
func (s *AccountService) ClearAccounts(ctx context.Context, confirmation string) (int, error) {
	var n int
	err := s.coordinator.Do(ctx, func() error {
		if outstanding := s.holdings.AllBorrowers(); len(outstanding) > 0 {
			return models.Conflictf("%d titles still have copies on loan", len(outstanding))
		}
		var err error
		n, err = s.accounts.Clear(confirmation)
		return err
	})
	if err != nil {
		return 0, err
	}
	return n, nil
}
