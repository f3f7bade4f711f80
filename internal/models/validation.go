package models

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	RuleRequired  = "required"
	RuleMinLength = "min_length"
	RuleMaxLength = "max_length"
	RuleFormat    = "format"
	RuleMin       = "min"
	RuleMax       = "max"
)

var (
	userIDPattern = regexp.MustCompile(`^[a-zA-Z0-9._-]{3,50}$`)
	emailPattern  = regexp.MustCompile(`^[A-Za-z0-9+_.-]+@([A-Za-z0-9.-]+\.[A-Za-z]{2,})$`)
	phonePattern  = regexp.MustCompile(`^[+]?[0-9]{10,15}$`)
	codePattern   = regexp.MustCompile(`^[0-9]+[0-9X]?$`)
)

// NormalizeCode strips whitespace and hyphens from a catalog code and
// upper-cases what is left, so a trailing check character x becomes X.
func NormalizeCode(code string) string {
	var b strings.Builder
	for _, r := range code {
		if unicode.IsSpace(r) || r == '-' {
			continue
		}
		b.WriteRune(unicode.ToUpper(r))
	}
	return b.String()
}

// ValidateCode checks an already normalized catalog code.
func ValidateCode(code string) error {
	if code == "" {
		return NewValidationError("code", RuleRequired, "code is required")
	}
	if len(code) < 10 {
		return NewValidationError("code", RuleMinLength, "code must be at least 10 characters")
	}
	if len(code) > 17 {
		return NewValidationError("code", RuleMaxLength, "code cannot exceed 17 characters")
	}
	if !codePattern.MatchString(code) {
		return NewValidationError("code", RuleFormat, "code must contain only digits and an optional trailing X")
	}
	return nil
}

// ValidateUserID checks the account identifier shape.
func ValidateUserID(userID string) error {
	if strings.TrimSpace(userID) == "" {
		return NewValidationError("user_id", RuleRequired, "user_id is required")
	}
	if !userIDPattern.MatchString(userID) {
		return NewValidationError("user_id", RuleFormat,
			"user_id must be 3-50 characters of letters, digits, '.', '_' or '-'")
	}
	return nil
}

// ValidatePassword checks the credential length bounds.
func ValidatePassword(field, password string) error {
	if strings.TrimSpace(password) == "" {
		return NewValidationError(field, RuleRequired, field+" is required")
	}
	n := utf8.RuneCountInString(password)
	if n < 4 {
		return NewValidationError(field, RuleMinLength, field+" must be at least 4 characters")
	}
	if n > 100 {
		return NewValidationError(field, RuleMaxLength, field+" cannot exceed 100 characters")
	}
	return nil
}

// ValidateEmail accepts an empty value.
func ValidateEmail(email string) error {
	if email == "" {
		return nil
	}
	if !emailPattern.MatchString(email) {
		return NewValidationError("email", RuleFormat, "email is not a valid address")
	}
	return nil
}

// NormalizePhone removes all whitespace from a contact number.
func NormalizePhone(phone string) string {
	return strings.Join(strings.Fields(phone), "")
}

// ValidatePhone accepts an empty value.
func ValidatePhone(phone string) error {
	if phone == "" {
		return nil
	}
	if !phonePattern.MatchString(phone) {
		return NewValidationError("contact_number", RuleFormat,
			"contact_number must be 10-15 digits with an optional leading +")
	}
	return nil
}

func validateText(field, value string, required bool, max int) error {
	if value == "" {
		if required {
			return NewValidationError(field, RuleRequired, field+" is required")
		}
		return nil
	}
	if utf8.RuneCountInString(value) > max {
		return NewValidationError(field, RuleMaxLength, fmt.Sprintf("%s cannot exceed %d characters", field, max))
	}
	return nil
}
