package models

import (
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Book represents a catalog title and its on-hand stock
type Book struct {
	Code        string          `json:"code"`
	Title       string          `json:"title"`
	Author      string          `json:"author"`
	Category    string          `json:"category"`
	Quantity    int             `json:"quantity"`
	TotalCopies int             `json:"total_copies"`
	Publisher   string          `json:"publisher,omitempty"`
	Description string          `json:"description,omitempty"`
	Price       decimal.Decimal `json:"price"`
	Location    string          `json:"location,omitempty"`
	IsActive    bool            `json:"is_active"`
	IssuedTo    string          `json:"issued_to,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// BookStatus represents the status of a book
type BookStatus string

const (
	BookStatusAvailable BookStatus = "available"
	BookStatusBorrowed  BookStatus = "borrowed"
	BookStatusInactive  BookStatus = "inactive"
)

// IssuedCount is the number of copies currently out on loan.
func (b *Book) IssuedCount() int {
	return b.TotalCopies - b.Quantity
}

func (b *Book) IsAvailable() bool {
	return b.IsActive && b.Quantity > 0
}

func (b *Book) Status() BookStatus {
	switch {
	case !b.IsActive:
		return BookStatusInactive
	case b.Quantity == 0 && b.TotalCopies > 0:
		return BookStatusBorrowed
	default:
		return BookStatusAvailable
	}
}

// Matches reports whether query is a case-insensitive substring of the
// title, author, category or code. An empty query matches everything.
func (b *Book) Matches(query string) bool {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return true
	}
	for _, field := range []string{b.Title, b.Author, b.Category, b.Code} {
		if strings.Contains(strings.ToLower(field), q) {
			return true
		}
	}
	return false
}

// IssuedToDisplay renders a per-book borrower map as a sorted,
// comma-separated list of user ids.
func IssuedToDisplay(borrowers map[string]int) string {
	if len(borrowers) == 0 {
		return ""
	}
	ids := make([]string, 0, len(borrowers))
	for id, qty := range borrowers {
		if qty > 0 {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return strings.Join(ids, ", ")
}

// CreateBookRequest represents the request to add a new title
type CreateBookRequest struct {
	Code        string          `json:"code"`
	Title       string          `json:"title"`
	Author      string          `json:"author"`
	Category    string          `json:"category"`
	Quantity    int             `json:"quantity"`
	Publisher   string          `json:"publisher"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Location    string          `json:"location"`
}

// UpdateBookRequest replaces every mutable field of an existing title.
// Quantity is the new on-hand count; copies out on loan are unaffected.
type UpdateBookRequest struct {
	Code        string          `json:"code"`
	Title       string          `json:"title"`
	Author      string          `json:"author"`
	Category    string          `json:"category"`
	Quantity    int             `json:"quantity"`
	Publisher   string          `json:"publisher"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Location    string          `json:"location"`
	IsActive    bool            `json:"is_active"`
}

// Validate normalizes and validates the CreateBookRequest
func (r *CreateBookRequest) Validate() error {
	r.Code = NormalizeCode(r.Code)
	r.Title = strings.TrimSpace(r.Title)
	r.Author = strings.TrimSpace(r.Author)
	r.Category = strings.TrimSpace(r.Category)
	r.Publisher = strings.TrimSpace(r.Publisher)
	r.Description = strings.TrimSpace(r.Description)
	r.Location = strings.TrimSpace(r.Location)

	return validateBookFields(r.Code, r.Title, r.Author, r.Category, r.Publisher, r.Description, r.Location, r.Quantity, r.Price)
}

// Validate normalizes and validates the UpdateBookRequest
func (r *UpdateBookRequest) Validate() error {
	r.Code = NormalizeCode(r.Code)
	r.Title = strings.TrimSpace(r.Title)
	r.Author = strings.TrimSpace(r.Author)
	r.Category = strings.TrimSpace(r.Category)
	r.Publisher = strings.TrimSpace(r.Publisher)
	r.Description = strings.TrimSpace(r.Description)
	r.Location = strings.TrimSpace(r.Location)

	return validateBookFields(r.Code, r.Title, r.Author, r.Category, r.Publisher, r.Description, r.Location, r.Quantity, r.Price)
}

func validateBookFields(code, title, author, category, publisher, description, location string, quantity int, price decimal.Decimal) error {
	if err := ValidateCode(code); err != nil {
		return err
	}
	if err := validateText("title", title, true, 200); err != nil {
		return err
	}
	if err := validateText("author", author, true, 100); err != nil {
		return err
	}
	if err := validateText("category", category, true, 50); err != nil {
		return err
	}
	if err := validateText("publisher", publisher, false, 255); err != nil {
		return err
	}
	if err := validateText("description", description, false, 1000); err != nil {
		return err
	}
	if err := validateText("location", location, false, 50); err != nil {
		return err
	}
	if quantity < 0 {
		return NewValidationError("quantity", RuleMin, "quantity cannot be negative")
	}
	if price.IsNegative() {
		return NewValidationError("price", RuleMin, "price cannot be negative")
	}
	return nil
}

// ToBook builds a new active Book from a validated request.
func (r *CreateBookRequest) ToBook(now time.Time) Book {
	return Book{
		Code:        r.Code,
		Title:       r.Title,
		Author:      r.Author,
		Category:    r.Category,
		Quantity:    r.Quantity,
		TotalCopies: r.Quantity,
		Publisher:   r.Publisher,
		Description: r.Description,
		Price:       r.Price,
		Location:    r.Location,
		IsActive:    true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// ToBook builds the replacement Book for a validated update request.
// Stock totals and timestamps are reconciled by the repository.
func (r *UpdateBookRequest) ToBook() Book {
	return Book{
		Code:        r.Code,
		Title:       r.Title,
		Author:      r.Author,
		Category:    r.Category,
		Quantity:    r.Quantity,
		Publisher:   r.Publisher,
		Description: r.Description,
		Price:       r.Price,
		Location:    r.Location,
		IsActive:    r.IsActive,
	}
}

// UpdateRequestFrom seeds an update request with a book's current values.
func UpdateRequestFrom(b Book) UpdateBookRequest {
	return UpdateBookRequest{
		Code:        b.Code,
		Title:       b.Title,
		Author:      b.Author,
		Category:    b.Category,
		Quantity:    b.Quantity,
		Publisher:   b.Publisher,
		Description: b.Description,
		Price:       b.Price,
		Location:    b.Location,
		IsActive:    b.IsActive,
	}
}
