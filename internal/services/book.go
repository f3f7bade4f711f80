package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ngenohkevin/libcatalog/internal/models"
)

// BookStore defines the catalog operations the book service needs
type BookStore interface {
	AddBook(book models.Book) (models.Book, error)
	UpdateBook(book models.Book) (models.Book, error)
	RemoveBook(code string) error
	GetBook(code string) (models.Book, error)
	ListBooks() []models.Book
	Search(query string) []models.Book
	AddCopies(code string, n int) (models.Book, error)
	RemoveCopies(code string, n int) (models.Book, error)
}

// BookServiceInterface defines the interface for book service operations
type BookServiceInterface interface {
	CreateBook(ctx context.Context, req models.CreateBookRequest) (*models.Book, error)
	GetBook(ctx context.Context, code string) (*models.Book, error)
	UpdateBook(ctx context.Context, req models.UpdateBookRequest) (*models.Book, error)
	DeleteBook(ctx context.Context, code string) error
	ListBooks(ctx context.Context) ([]models.Book, error)
	SearchBooks(ctx context.Context, query string) ([]models.Book, error)
	AddCopies(ctx context.Context, code string, n int) (*models.Book, error)
	RemoveCopies(ctx context.Context, code string, n int) (*models.Book, error)
}

// BookService handles book-related business logic
type BookService struct {
	store  BookStore
	logger *slog.Logger
	now    func() time.Time
}

// NewBookService creates a new book service
func NewBookService(store BookStore, logger *slog.Logger) *BookService {
	if logger == nil {
		logger = slog.Default()
	}
	return &BookService{
		store:  store,
		logger: logger,
		now:    time.Now,
	}
}

// CreateBook validates and adds a new title
func (s *BookService) CreateBook(ctx context.Context, req models.CreateBookRequest) (*models.Book, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	book, err := s.store.AddBook(req.ToBook(s.now()))
	if err != nil {
		return nil, fmt.Errorf("failed to create book: %w", err)
	}

	s.logger.Info("Book added", "code", book.Code, "title", book.Title, "quantity", book.Quantity)
	return &book, nil
}

func (s *BookService) GetBook(ctx context.Context, code string) (*models.Book, error) {
	code = models.NormalizeCode(code)
	if err := models.ValidateCode(code); err != nil {
		return nil, err
	}

	book, err := s.store.GetBook(code)
	if err != nil {
		return nil, fmt.Errorf("failed to get book: %w", err)
	}
	return &book, nil
}

// UpdateBook replaces the mutable fields of an existing title
func (s *BookService) UpdateBook(ctx context.Context, req models.UpdateBookRequest) (*models.Book, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	book, err := s.store.UpdateBook(req.ToBook())
	if err != nil {
		return nil, fmt.Errorf("failed to update book: %w", err)
	}

	s.logger.Info("Book updated", "code", book.Code)
	return &book, nil
}

// DeleteBook removes a title with no copies on loan
func (s *BookService) DeleteBook(ctx context.Context, code string) error {
	code = models.NormalizeCode(code)
	if err := models.ValidateCode(code); err != nil {
		return err
	}

	if err := s.store.RemoveBook(code); err != nil {
		return fmt.Errorf("failed to delete book: %w", err)
	}

	s.logger.Info("Book removed", "code", code)
	return nil
}

func (s *BookService) ListBooks(ctx context.Context) ([]models.Book, error) {
	return s.store.ListBooks(), nil
}

// SearchBooks matches the query against title, author, category and code
func (s *BookService) SearchBooks(ctx context.Context, query string) ([]models.Book, error) {
	if len(query) > 200 {
		return nil, models.NewValidationError("query", models.RuleMaxLength, "query must be at most 200 characters")
	}
	return s.store.Search(query), nil
}

func (s *BookService) AddCopies(ctx context.Context, code string, n int) (*models.Book, error) {
	code = models.NormalizeCode(code)
	if err := models.ValidateCode(code); err != nil {
		return nil, err
	}

	book, err := s.store.AddCopies(code, n)
	if err != nil {
		return nil, fmt.Errorf("failed to add copies: %w", err)
	}

	s.logger.Info("Copies added", "code", code, "added", n, "quantity", book.Quantity)
	return &book, nil
}

func (s *BookService) RemoveCopies(ctx context.Context, code string, n int) (*models.Book, error) {
	code = models.NormalizeCode(code)
	if err := models.ValidateCode(code); err != nil {
		return nil, err
	}

	book, err := s.store.RemoveCopies(code, n)
	if err != nil {
		return nil, fmt.Errorf("failed to remove copies: %w", err)
	}

	s.logger.Info("Copies removed", "code", code, "removed", n, "quantity", book.Quantity)
	return &book, nil
}
