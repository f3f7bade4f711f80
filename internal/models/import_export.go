package models

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// BookImportRow represents one row of a catalog import file
type BookImportRow struct {
	Code        string `json:"code" csv:"code"`
	Title       string `json:"title" csv:"title"`
	Author      string `json:"author" csv:"author"`
	Category    string `json:"category" csv:"category"`
	Quantity    int    `json:"quantity" csv:"quantity"`
	Publisher   string `json:"publisher" csv:"publisher"`
	Description string `json:"description" csv:"description"`
	Price       string `json:"price" csv:"price"`
	Location    string `json:"location" csv:"location"`
}

// ImportHeaders is the column order shared by CSV and XLSX imports.
var ImportHeaders = []string{"code", "title", "author", "category", "quantity", "publisher", "description", "price", "location"}

// ToCreateRequest converts the row; the request still needs Validate.
func (r *BookImportRow) ToCreateRequest() (CreateBookRequest, error) {
	price := decimal.Zero
	if p := strings.TrimSpace(r.Price); p != "" {
		parsed, err := decimal.NewFromString(p)
		if err != nil {
			return CreateBookRequest{}, NewValidationError("price", RuleFormat, "price must be a decimal number")
		}
		price = parsed
	}
	return CreateBookRequest{
		Code:        r.Code,
		Title:       r.Title,
		Author:      r.Author,
		Category:    r.Category,
		Quantity:    r.Quantity,
		Publisher:   r.Publisher,
		Description: r.Description,
		Price:       price,
		Location:    r.Location,
	}, nil
}

// BookExportRow represents the data structure for exporting books
type BookExportRow struct {
	Code        string `json:"code" csv:"code"`
	Title       string `json:"title" csv:"title"`
	Author      string `json:"author" csv:"author"`
	Category    string `json:"category" csv:"category"`
	Quantity    int    `json:"quantity" csv:"quantity"`
	TotalCopies int    `json:"total_copies" csv:"total_copies"`
	Issued      int    `json:"issued" csv:"issued"`
	Publisher   string `json:"publisher" csv:"publisher"`
	Description string `json:"description" csv:"description"`
	Price       string `json:"price" csv:"price"`
	Location    string `json:"location" csv:"location"`
	Status      string `json:"status" csv:"status"`
	IssuedTo    string `json:"issued_to" csv:"issued_to"`
	CreatedAt   string `json:"created_at" csv:"created_at"`
	UpdatedAt   string `json:"updated_at" csv:"updated_at"`
}

func NewBookExportRow(b Book) BookExportRow {
	return BookExportRow{
		Code:        b.Code,
		Title:       b.Title,
		Author:      b.Author,
		Category:    b.Category,
		Quantity:    b.Quantity,
		TotalCopies: b.TotalCopies,
		Issued:      b.IssuedCount(),
		Publisher:   b.Publisher,
		Description: b.Description,
		Price:       b.Price.StringFixed(2),
		Location:    b.Location,
		Status:      string(b.Status()),
		IssuedTo:    b.IssuedTo,
		CreatedAt:   b.CreatedAt.Format("2006-01-02 15:04:05"),
		UpdatedAt:   b.UpdatedAt.Format("2006-01-02 15:04:05"),
	}
}

// ImportResult represents the result of an import operation
type ImportResult struct {
	TotalRecords  int           `json:"total_records"`
	SuccessCount  int           `json:"success_count"`
	FailureCount  int           `json:"failure_count"`
	Errors        []ImportError `json:"errors,omitempty"`
	ImportedBooks []Book        `json:"imported_books,omitempty"`
	Summary       ImportSummary `json:"summary"`
}

// ImportError represents an error that occurred during import
type ImportError struct {
	Row     int       `json:"row"`
	Code    string    `json:"code"`
	Field   string    `json:"field,omitempty"`
	Message string    `json:"message"`
	Kind    ErrorKind `json:"kind"`
}

// ImportSummary provides a summary of the import operation
type ImportSummary struct {
	ProcessedAt     time.Time `json:"processed_at"`
	ProcessingTime  string    `json:"processing_time"`
	FileName        string    `json:"file_name"`
	DuplicatesFound int       `json:"duplicates_found"`
	NewBooks        int       `json:"new_books"`
}

// ExportResult represents the result of an export operation
type ExportResult struct {
	FileName    string    `json:"file_name"`
	RecordCount int       `json:"record_count"`
	Format      string    `json:"format"`
	ExportedAt  time.Time `json:"exported_at"`
}
