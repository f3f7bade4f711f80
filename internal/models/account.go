package models

import (
	"strings"
	"time"
)

// Account is a library member. Equality and lookup are by UserID only.
type Account struct {
	UserID        string     `json:"user_id"`
	Credential    string     `json:"credential"`
	Email         string     `json:"email,omitempty"`
	ContactNumber string     `json:"contact_number,omitempty"`
	FirstName     string     `json:"first_name,omitempty"`
	LastName      string     `json:"last_name,omitempty"`
	IsActive      bool       `json:"is_active"`
	CreatedAt     time.Time  `json:"created_at"`
	LastLogin     *time.Time `json:"last_login,omitempty"`
}

func (a *Account) FullName() string {
	return strings.TrimSpace(a.FirstName + " " + a.LastName)
}

// DisplayName falls back to the user id when no name is on file.
func (a *Account) DisplayName() string {
	if name := a.FullName(); name != "" {
		return name
	}
	return a.UserID
}

func (a *Account) HasCompleteProfile() bool {
	return a.FirstName != "" && a.LastName != "" && a.Email != "" && a.ContactNumber != ""
}

// AccountResponse is an Account without its credential
type AccountResponse struct {
	UserID        string     `json:"user_id"`
	Name          string     `json:"name"`
	Email         string     `json:"email,omitempty"`
	ContactNumber string     `json:"contact_number,omitempty"`
	IsActive      bool       `json:"is_active"`
	CreatedAt     time.Time  `json:"created_at"`
	LastLogin     *time.Time `json:"last_login,omitempty"`
}

func (a *Account) ToResponse() AccountResponse {
	return AccountResponse{
		UserID:        a.UserID,
		Name:          a.DisplayName(),
		Email:         a.Email,
		ContactNumber: a.ContactNumber,
		IsActive:      a.IsActive,
		CreatedAt:     a.CreatedAt,
		LastLogin:     a.LastLogin,
	}
}

type RegisterAccountRequest struct {
	UserID        string `json:"user_id"`
	Password      string `json:"password"`
	Email         string `json:"email"`
	ContactNumber string `json:"contact_number"`
	FirstName     string `json:"first_name"`
	LastName      string `json:"last_name"`
}

func (r *RegisterAccountRequest) Validate() error {
	r.UserID = strings.TrimSpace(r.UserID)
	if err := ValidateUserID(r.UserID); err != nil {
		return err
	}
	if err := ValidatePassword("password", r.Password); err != nil {
		return err
	}
	return validateProfile(&r.Email, &r.ContactNumber, &r.FirstName, &r.LastName)
}

// UpdateProfileRequest replaces the profile fields of an account
type UpdateProfileRequest struct {
	UserID        string `json:"user_id"`
	Email         string `json:"email"`
	ContactNumber string `json:"contact_number"`
	FirstName     string `json:"first_name"`
	LastName      string `json:"last_name"`
	IsActive      bool   `json:"is_active"`
}

func (r *UpdateProfileRequest) Validate() error {
	r.UserID = strings.TrimSpace(r.UserID)
	if err := ValidateUserID(r.UserID); err != nil {
		return err
	}
	return validateProfile(&r.Email, &r.ContactNumber, &r.FirstName, &r.LastName)
}

// ProfileRequestFrom seeds a profile update with an account's current values.
func ProfileRequestFrom(a Account) UpdateProfileRequest {
	return UpdateProfileRequest{
		UserID:        a.UserID,
		Email:         a.Email,
		ContactNumber: a.ContactNumber,
		FirstName:     a.FirstName,
		LastName:      a.LastName,
		IsActive:      a.IsActive,
	}
}

type ChangePasswordRequest struct {
	UserID      string `json:"user_id"`
	OldPassword string `json:"old_password"`
	NewPassword string `json:"new_password"`
}

func (r *ChangePasswordRequest) Validate() error {
	r.UserID = strings.TrimSpace(r.UserID)
	if err := ValidateUserID(r.UserID); err != nil {
		return err
	}
	if r.OldPassword == "" {
		return NewValidationError("old_password", RuleRequired, "old_password is required")
	}
	return ValidatePassword("new_password", r.NewPassword)
}

type LoginRequest struct {
	UserID   string `json:"user_id"`
	Password string `json:"password"`
}

func validateProfile(email, phone, first, last *string) error {
	*email = strings.TrimSpace(*email)
	*phone = NormalizePhone(*phone)
	*first = strings.TrimSpace(*first)
	*last = strings.TrimSpace(*last)

	if err := ValidateEmail(*email); err != nil {
		return err
	}
	if err := ValidatePhone(*phone); err != nil {
		return err
	}
	if err := validateText("first_name", *first, false, 50); err != nil {
		return err
	}
	return validateText("last_name", *last, false, 50)
}
