package models

import "github.com/shopspring/decimal"

// Settings are the lending rules stored alongside the catalog
type Settings struct {
	MaxBorrow     int             `json:"max_borrow"`
	MaxPerRequest int             `json:"max_per_request"`
	LoanDays      int             `json:"loan_days"`
	FinePerDay    decimal.Decimal `json:"fine_per_day"`
	MaxRenewals   int             `json:"max_renewals"`
}

func DefaultSettings() Settings {
	return Settings{
		MaxBorrow:     5,
		MaxPerRequest: 5,
		LoanDays:      14,
		FinePerDay:    decimal.NewFromInt(2),
		MaxRenewals:   2,
	}
}

func (s Settings) Validate() error {
	if s.MaxBorrow < 1 {
		return NewValidationError("max_borrow", RuleMin, "max_borrow must be at least 1")
	}
	if s.MaxPerRequest < 1 {
		return NewValidationError("max_per_request", RuleMin, "max_per_request must be at least 1")
	}
	if s.MaxPerRequest > s.MaxBorrow {
		return NewValidationError("max_per_request", RuleMax, "max_per_request cannot exceed max_borrow")
	}
	if s.LoanDays < 1 {
		return NewValidationError("loan_days", RuleMin, "loan_days must be at least 1")
	}
	if s.FinePerDay.IsNegative() {
		return NewValidationError("fine_per_day", RuleMin, "fine_per_day cannot be negative")
	}
	if s.MaxRenewals < 0 {
		return NewValidationError("max_renewals", RuleMin, "max_renewals cannot be negative")
	}
	return nil
}
