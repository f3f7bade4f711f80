package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/gocarina/gocsv"
	"github.com/xuri/excelize/v2"

	"github.com/ngenohkevin/libcatalog/internal/models"
)

const (
	FormatCSV   = "csv"
	FormatExcel = "xlsx"

	booksSheet   = "Books"
	activeSheet  = "Active Loans"
	overdueSheet = "Overdue"
)

// LoanReportStore defines the loan views the XLSX loan report reads
type LoanReportStore interface {
	Settings() models.Settings
	ActiveLoansFor(userID string) []models.LoanRecord
	OverdueLoansFor(userID string) []models.LoanRecord
}

// ImportExportService handles book import and export operations
type ImportExportService struct {
	bookService BookServiceInterface
	loans       LoanReportStore
	logger      *slog.Logger
	now         func() time.Time
}

// NewImportExportService creates a new import/export service
func NewImportExportService(bookService BookServiceInterface, loans LoanReportStore, logger *slog.Logger) *ImportExportService {
	if logger == nil {
		logger = slog.Default()
	}
	return &ImportExportService{
		bookService: bookService,
		loans:       loans,
		logger:      logger,
		now:         time.Now,
	}
}

// importRow is one parsed data row and its 1-based position in the file
type importRow struct {
	line int
	data models.BookImportRow
	err  error
}

// ImportBooksFromCSV imports books from a CSV file with a header row
func (s *ImportExportService) ImportBooksFromCSV(ctx context.Context, reader io.Reader, fileName string) (*models.ImportResult, error) {
	startTime := s.now()

	var data []*models.BookImportRow
	if err := gocsv.Unmarshal(reader, &data); err != nil {
		if errors.Is(err, gocsv.ErrEmptyCSVFile) {
			return nil, models.NewValidationError("file", models.RuleRequired, "CSV file is empty")
		}
		return nil, models.NewValidationError("file", models.RuleFormat, fmt.Sprintf("failed to parse CSV: %v", err))
	}

	rows := make([]importRow, 0, len(data))
	for i, d := range data {
		rows = append(rows, importRow{line: i + 2, data: *d})
	}
	return s.processImport(ctx, rows, fileName, startTime)
}

// ImportBooksFromExcel imports books from the first sheet of an XLSX file
func (s *ImportExportService) ImportBooksFromExcel(ctx context.Context, reader io.Reader, fileName string) (*models.ImportResult, error) {
	startTime := s.now()

	f, err := excelize.OpenReader(reader)
	if err != nil {
		return nil, models.NewValidationError("file", models.RuleFormat, fmt.Sprintf("failed to open Excel file: %v", err))
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	cells, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read Excel rows: %w", err)
	}
	if len(cells) == 0 {
		return nil, models.NewValidationError("file", models.RuleRequired, "Excel file is empty")
	}

	rows, err := s.convertExcelRows(cells)
	if err != nil {
		return nil, err
	}
	return s.processImport(ctx, rows, fileName, startTime)
}

func (s *ImportExportService) convertExcelRows(cells [][]string) ([]importRow, error) {
	columns := make(map[string]int)
	for i, h := range cells[0] {
		columns[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, required := range []string{"code", "title", "author", "category"} {
		if _, ok := columns[required]; !ok {
			return nil, models.NewValidationError("file", models.RuleFormat, fmt.Sprintf("missing column %q", required))
		}
	}

	cell := func(row []string, name string) string {
		i, ok := columns[name]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	rows := make([]importRow, 0, len(cells)-1)
	for i, row := range cells[1:] {
		r := importRow{line: i + 2}
		r.data = models.BookImportRow{
			Code:        cell(row, "code"),
			Title:       cell(row, "title"),
			Author:      cell(row, "author"),
			Category:    cell(row, "category"),
			Publisher:   cell(row, "publisher"),
			Description: cell(row, "description"),
			Price:       cell(row, "price"),
			Location:    cell(row, "location"),
		}
		if q := cell(row, "quantity"); q != "" {
			n, err := strconv.Atoi(q)
			if err != nil {
				r.err = models.NewValidationError("quantity", models.RuleFormat, "quantity must be a whole number")
			}
			r.data.Quantity = n
		}
		if r.err == nil && isBlankRow(r.data) {
			continue
		}
		rows = append(rows, r)
	}
	return rows, nil
}

func isBlankRow(r models.BookImportRow) bool {
	return r.Code == "" && r.Title == "" && r.Author == "" && r.Category == ""
}

// processImport creates each row's book and records per-row failures
func (s *ImportExportService) processImport(ctx context.Context, rows []importRow, fileName string, startTime time.Time) (*models.ImportResult, error) {
	result := &models.ImportResult{
		TotalRecords:  len(rows),
		Errors:        make([]models.ImportError, 0),
		ImportedBooks: make([]models.Book, 0),
		Summary: models.ImportSummary{
			ProcessedAt: startTime,
			FileName:    fileName,
		},
	}

	for _, row := range rows {
		if err := ctx.Err(); err != nil {
			return nil, models.NewCancelledError(err)
		}

		err := row.err
		var book *models.Book
		if err == nil {
			var req models.CreateBookRequest
			req, err = row.data.ToCreateRequest()
			if err == nil {
				book, err = s.bookService.CreateBook(ctx, req)
			}
		}
		if err != nil {
			kind := models.KindOf(err)
			if kind == models.KindDuplicateKey {
				result.Summary.DuplicatesFound++
			}
			importErr := models.ImportError{
				Row:     row.line,
				Code:    row.data.Code,
				Message: err.Error(),
				Kind:    kind,
			}
			var e *models.Error
			if errors.As(err, &e) {
				importErr.Field = e.Field
			}
			result.Errors = append(result.Errors, importErr)
			result.FailureCount++
			continue
		}

		result.ImportedBooks = append(result.ImportedBooks, *book)
		result.SuccessCount++
		result.Summary.NewBooks++
	}

	result.Summary.ProcessingTime = s.now().Sub(startTime).String()
	s.logger.Info("Import finished",
		"file", fileName,
		"total", result.TotalRecords,
		"imported", result.SuccessCount,
		"failed", result.FailureCount,
	)
	return result, nil
}

func (s *ImportExportService) exportRows(ctx context.Context) ([]models.BookExportRow, error) {
	books, err := s.bookService.ListBooks(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get books for export: %w", err)
	}
	rows := make([]models.BookExportRow, 0, len(books))
	for _, b := range books {
		rows = append(rows, models.NewBookExportRow(b))
	}
	return rows, nil
}

// ExportBooksToCSV writes the whole catalog as CSV
func (s *ImportExportService) ExportBooksToCSV(ctx context.Context, w io.Writer, fileName string) (*models.ExportResult, error) {
	rows, err := s.exportRows(ctx)
	if err != nil {
		return nil, err
	}
	if err := gocsv.Marshal(rows, w); err != nil {
		return nil, fmt.Errorf("failed to write CSV data: %w", err)
	}
	return s.exportResult(fileName, FormatCSV, len(rows)), nil
}

// ExportBooksToExcel writes the whole catalog as a single-sheet workbook
func (s *ImportExportService) ExportBooksToExcel(ctx context.Context, w io.Writer, fileName string) (*models.ExportResult, error) {
	rows, err := s.exportRows(ctx)
	if err != nil {
		return nil, err
	}

	f := excelize.NewFile()
	defer f.Close()
	if err := f.SetSheetName("Sheet1", booksSheet); err != nil {
		return nil, fmt.Errorf("failed to name sheet: %w", err)
	}

	header := []interface{}{
		"code", "title", "author", "category", "quantity", "total_copies", "issued",
		"publisher", "description", "price", "location", "status", "issued_to",
		"created_at", "updated_at",
	}
	if err := setRow(f, booksSheet, 1, header); err != nil {
		return nil, err
	}
	for i, b := range rows {
		values := []interface{}{
			b.Code, b.Title, b.Author, b.Category, b.Quantity, b.TotalCopies, b.Issued,
			b.Publisher, b.Description, b.Price, b.Location, b.Status, b.IssuedTo,
			b.CreatedAt, b.UpdatedAt,
		}
		if err := setRow(f, booksSheet, i+2, values); err != nil {
			return nil, err
		}
	}

	if err := f.Write(w); err != nil {
		return nil, fmt.Errorf("failed to write Excel file: %w", err)
	}
	return s.exportResult(fileName, FormatExcel, len(rows)), nil
}

// ExportLoanReport writes active and overdue loans to separate sheets
func (s *ImportExportService) ExportLoanReport(ctx context.Context, w io.Writer, fileName string) (*models.ExportResult, error) {
	today := models.Day(s.now())
	finePerDay := s.loans.Settings().FinePerDay
	active := s.loans.ActiveLoansFor("")
	overdue := s.loans.OverdueLoansFor("")

	f := excelize.NewFile()
	defer f.Close()
	if err := f.SetSheetName("Sheet1", activeSheet); err != nil {
		return nil, fmt.Errorf("failed to name sheet: %w", err)
	}
	if _, err := f.NewSheet(overdueSheet); err != nil {
		return nil, fmt.Errorf("failed to add sheet: %w", err)
	}

	header := []interface{}{"loan_id", "code", "title", "user_id", "quantity", "issue_date", "due_date", "renewals", "days_overdue", "fine"}
	for _, sheet := range []struct {
		name  string
		loans []models.LoanRecord
	}{
		{activeSheet, active},
		{overdueSheet, overdue},
	} {
		if err := setRow(f, sheet.name, 1, header); err != nil {
			return nil, err
		}
		for i, rec := range sheet.loans {
			values := []interface{}{
				rec.ID, rec.BookCode, rec.BookTitle, rec.UserID, rec.Quantity,
				rec.IssueDate.Format("2006-01-02"), rec.DueDate.Format("2006-01-02"),
				rec.RenewalCount, rec.DaysOverdue(today), rec.CalculateFine(today, finePerDay).StringFixed(2),
			}
			if err := setRow(f, sheet.name, i+2, values); err != nil {
				return nil, err
			}
		}
	}

	if err := f.Write(w); err != nil {
		return nil, fmt.Errorf("failed to write Excel file: %w", err)
	}
	return s.exportResult(fileName, FormatExcel, len(active)), nil
}

func setRow(f *excelize.File, sheet string, row int, values []interface{}) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(sheet, cell, &values); err != nil {
		return fmt.Errorf("failed to write row %d of %s: %w", row, sheet, err)
	}
	return nil
}

func (s *ImportExportService) exportResult(fileName, format string, count int) *models.ExportResult {
	s.logger.Info("Export finished", "file", fileName, "format", format, "records", count)
	return &models.ExportResult{
		FileName:    fileName,
		RecordCount: count,
		Format:      format,
		ExportedAt:  s.now(),
	}
}

// DetectFormat maps a file name to an import/export format.
func DetectFormat(fileName string) (string, error) {
	lower := strings.ToLower(fileName)
	switch {
	case strings.HasSuffix(lower, ".csv"):
		return FormatCSV, nil
	case strings.HasSuffix(lower, ".xlsx"):
		return FormatExcel, nil
	default:
		return "", models.NewValidationError("file", models.RuleFormat, "file must end in .csv or .xlsx")
	}
}
