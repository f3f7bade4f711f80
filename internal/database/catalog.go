package database

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ngenohkevin/libcatalog/internal/models"
	"github.com/ngenohkevin/libcatalog/internal/storage"
)

const (
	CatalogFile     = "catalog.json"
	OutstandingFile = "outstanding.json"
	BorrowersFile   = "borrowers.json"
	LoansFile       = "loans.json"

	kindCatalog     = "catalog"
	kindOutstanding = "outstanding"
	kindBorrowers   = "borrowers"
	kindLoans       = "loans"
)

type catalogSnapshot struct {
	Settings models.Settings         `json:"settings"`
	Books    map[string]*models.Book `json:"books"`
}

// CatalogRepository owns the books, the per-user outstanding copies, the
// per-book borrower counts and the loan ledger. The four structures are
// only changed together under one write lock.
type CatalogRepository struct {
	mu       sync.RWMutex
	store    *storage.Store
	dir      string
	logger   *slog.Logger
	now      func() time.Time
	newID    func() string
	autoSave bool
	settings models.Settings

	books       map[string]*models.Book
	outstanding map[string][]string
	borrowers   map[string]map[string]int
	loans       map[string][]*models.LoanRecord

	lastPersistErr error
}

type CatalogOption func(*CatalogRepository)

func WithClock(now func() time.Time) CatalogOption {
	return func(r *CatalogRepository) { r.now = now }
}

func WithIDGenerator(newID func() string) CatalogOption {
	return func(r *CatalogRepository) { r.newID = newID }
}

func WithAutoSave(enabled bool) CatalogOption {
	return func(r *CatalogRepository) { r.autoSave = enabled }
}

// WithSettings seeds the lending rules of a catalog that has no snapshot yet.
func WithSettings(s models.Settings) CatalogOption {
	return func(r *CatalogRepository) { r.settings = s }
}

// OpenCatalog loads the catalog snapshots found in dir. Missing files
// start empty; unreadable files are logged and also start empty.
func OpenCatalog(store *storage.Store, dir string, logger *slog.Logger, opts ...CatalogOption) *CatalogRepository {
	if logger == nil {
		logger = slog.Default()
	}
	r := &CatalogRepository{
		store:       store,
		dir:         dir,
		logger:      logger,
		now:         time.Now,
		newID:       uuid.NewString,
		autoSave:    true,
		settings:    models.DefaultSettings(),
		books:       make(map[string]*models.Book),
		outstanding: make(map[string][]string),
		borrowers:   make(map[string]map[string]int),
		loans:       make(map[string][]*models.LoanRecord),
	}
	for _, opt := range opts {
		opt(r)
	}

	r.load()
	for _, issue := range r.CheckConsistency() {
		r.logger.Warn("Catalog snapshot inconsistency", "issue", issue)
	}
	return r
}

func (r *CatalogRepository) path(name string) string {
	return filepath.Join(r.dir, name)
}

func (r *CatalogRepository) load() {
	var snap catalogSnapshot
	if r.loadFile(CatalogFile, kindCatalog, &snap) {
		if snap.Books != nil {
			r.books = snap.Books
		}
		if err := snap.Settings.Validate(); err == nil {
			r.settings = snap.Settings
		} else {
			r.logger.Warn("Stored settings rejected, keeping configured settings", "error", err)
		}
	}

	var outstanding map[string][]string
	if r.loadFile(OutstandingFile, kindOutstanding, &outstanding) && outstanding != nil {
		r.outstanding = outstanding
	}

	var borrowers map[string]map[string]int
	if r.loadFile(BorrowersFile, kindBorrowers, &borrowers) && borrowers != nil {
		r.borrowers = borrowers
	}

	var loans map[string][]*models.LoanRecord
	if r.loadFile(LoansFile, kindLoans, &loans) && loans != nil {
		r.loans = loans
	}

	for code, book := range r.books {
		book.IssuedTo = models.IssuedToDisplay(r.borrowers[code])
	}
}

func (r *CatalogRepository) loadFile(name, kind string, out any) bool {
	found, err := r.store.Load(r.path(name), kind, out)
	if err != nil {
		r.logger.Warn("Ignoring unreadable snapshot", "file", name, "error", err)
		preserveCorrupt(r.store, r.path(name), r.logger)
		return false
	}
	return found
}

// persistLocked writes every catalog snapshot when auto-save is on. A
// failed write is logged and remembered; the in-memory change stands.
func (r *CatalogRepository) persistLocked() {
	if !r.autoSave {
		return
	}
	if err := r.saveLocked(); err != nil {
		r.logger.Error("Failed to persist catalog", "error", err)
	}
}

func (r *CatalogRepository) saveLocked() error {
	files := []struct {
		name, kind string
		value      any
	}{
		{CatalogFile, kindCatalog, catalogSnapshot{Settings: r.settings, Books: r.books}},
		{OutstandingFile, kindOutstanding, r.outstanding},
		{BorrowersFile, kindBorrowers, r.borrowers},
		{LoansFile, kindLoans, r.loans},
	}

	var errs []error
	for _, f := range files {
		if err := r.store.Save(r.path(f.name), f.kind, f.value); err != nil {
			errs = append(errs, err)
		}
	}
	r.lastPersistErr = errors.Join(errs...)
	return r.lastPersistErr
}

// ForcePersist writes all catalog snapshots now, regardless of auto-save.
func (r *CatalogRepository) ForcePersist() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.saveLocked()
}

// LastPersistError returns the outcome of the most recent snapshot write.
func (r *CatalogRepository) LastPersistError() error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.lastPersistErr
}

func (r *CatalogRepository) SetAutoSave(enabled bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.autoSave = enabled
}

func (r *CatalogRepository) AutoSave() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.autoSave
}

// Backup copies each catalog snapshot into dir and returns the copies made.
func (r *CatalogRepository) Backup(dir string) ([]string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var targets []string
	ok := true
	for _, name := range []string{CatalogFile, OutstandingFile, BorrowersFile, LoansFile} {
		target, copied := r.store.Backup(r.path(name), dir)
		if !copied {
			ok = false
			continue
		}
		targets = append(targets, target)
	}
	return targets, ok
}

func (r *CatalogRepository) Settings() models.Settings {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.settings
}

func (r *CatalogRepository) UpdateSettings(s models.Settings) error {
	if err := s.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.settings = s
	r.persistLocked()
	return nil
}

func requireCode(code string) error {
	if code == "" {
		return models.NewValidationError("code", models.RuleRequired, "code is required")
	}
	return nil
}

func requireUser(userID string) error {
	if userID == "" {
		return models.NewValidationError("user_id", models.RuleRequired, "user_id is required")
	}
	return nil
}

func requirePositive(field string, n int) error {
	if n < 1 {
		return models.NewValidationError(field, models.RuleMin, field+" must be at least 1")
	}
	return nil
}

// AddBook stores a new title. Its total copy count starts at its quantity.
func (r *CatalogRepository) AddBook(book models.Book) (models.Book, error) {
	if err := requireCode(book.Code); err != nil {
		return models.Book{}, err
	}
	if book.Quantity < 0 {
		return models.Book{}, models.NewValidationError("quantity", models.RuleMin, "quantity cannot be negative")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.books[book.Code]; exists {
		return models.Book{}, models.DuplicateKeyf("book %s already exists", book.Code)
	}

	now := r.now()
	b := book
	b.TotalCopies = b.Quantity
	b.IssuedTo = models.IssuedToDisplay(r.borrowers[b.Code])
	if b.CreatedAt.IsZero() {
		b.CreatedAt = now
	}
	b.UpdatedAt = now
	r.books[b.Code] = &b

	r.persistLocked()
	return b, nil
}

// UpdateBook replaces every mutable field of an existing title. Copies
// out on loan are added back on top of the new on-hand quantity.
func (r *CatalogRepository) UpdateBook(book models.Book) (models.Book, error) {
	if err := requireCode(book.Code); err != nil {
		return models.Book{}, err
	}
	if book.Quantity < 0 {
		return models.Book{}, models.NewValidationError("quantity", models.RuleMin, "quantity cannot be negative")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.books[book.Code]
	if !ok {
		return models.Book{}, models.NotFoundf("book %s not found", book.Code)
	}

	b := book
	b.TotalCopies = b.Quantity + r.totalIssuedLocked(b.Code)
	b.IssuedTo = models.IssuedToDisplay(r.borrowers[b.Code])
	b.CreatedAt = existing.CreatedAt
	b.UpdatedAt = r.now()
	r.books[b.Code] = &b

	r.persistLocked()
	return b, nil
}

// RemoveBook deletes a title that has no copies on loan.
func (r *CatalogRepository) RemoveBook(code string) error {
	if err := requireCode(code); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.books[code]; !ok {
		return models.NotFoundf("book %s not found", code)
	}
	if holders := r.borrowers[code]; len(holders) > 0 {
		return models.Conflictf("book %s is on loan to %s", code, models.IssuedToDisplay(holders))
	}

	delete(r.books, code)
	r.persistLocked()
	return nil
}

func (r *CatalogRepository) GetBook(code string) (models.Book, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	b, ok := r.books[code]
	if !ok {
		return models.Book{}, models.NotFoundf("book %s not found", code)
	}
	return *b, nil
}

// ListBooks returns every title ordered by code.
func (r *CatalogRepository) ListBooks() []models.Book {
	return r.Search("")
}

// Search matches query against title, author, category and code,
// ignoring case. An empty query returns every title.
func (r *CatalogRepository) Search(query string) []models.Book {
	r.mu.RLock()
	defer r.mu.RUnlock()

	books := make([]models.Book, 0, len(r.books))
	for _, b := range r.books {
		if b.Matches(query) {
			books = append(books, *b)
		}
	}
	sort.Slice(books, func(i, j int) bool { return books[i].Code < books[j].Code })
	return books
}

// AddCopies puts n more copies of a title on the shelf.
func (r *CatalogRepository) AddCopies(code string, n int) (models.Book, error) {
	if err := requireCode(code); err != nil {
		return models.Book{}, err
	}
	if err := requirePositive("copies", n); err != nil {
		return models.Book{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	b, ok := r.books[code]
	if !ok {
		return models.Book{}, models.NotFoundf("book %s not found", code)
	}
	b.Quantity += n
	b.TotalCopies += n
	b.UpdatedAt = r.now()

	r.persistLocked()
	return *b, nil
}

// RemoveCopies withdraws n on-hand copies of a title from circulation.
func (r *CatalogRepository) RemoveCopies(code string, n int) (models.Book, error) {
	if err := requireCode(code); err != nil {
		return models.Book{}, err
	}
	if err := requirePositive("copies", n); err != nil {
		return models.Book{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	b, ok := r.books[code]
	if !ok {
		return models.Book{}, models.NotFoundf("book %s not found", code)
	}
	if n > b.Quantity {
		return models.Book{}, models.Conflictf("only %d copies of %s are on the shelf", b.Quantity, code)
	}
	b.Quantity -= n
	b.TotalCopies -= n
	b.UpdatedAt = r.now()

	r.persistLocked()
	return *b, nil
}

// Issue lends quantity copies of a title to a user. The caller is
// responsible for having resolved the user.
func (r *CatalogRepository) Issue(code, userID string, quantity int, notes string) (models.LoanRecord, error) {
	if err := requireCode(code); err != nil {
		return models.LoanRecord{}, err
	}
	if err := requireUser(userID); err != nil {
		return models.LoanRecord{}, err
	}
	if err := requirePositive("quantity", quantity); err != nil {
		return models.LoanRecord{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	b, ok := r.books[code]
	if !ok {
		return models.LoanRecord{}, models.NotFoundf("book %s not found", code)
	}
	if !b.IsActive {
		return models.LoanRecord{}, models.Conflictf("book %s is withdrawn from circulation", code)
	}
	if b.Quantity < quantity {
		return models.LoanRecord{}, models.OutOfStockf("requested %d copies of %s but only %d available", quantity, code, b.Quantity)
	}
	held := len(r.outstanding[userID])
	if held+quantity > r.settings.MaxBorrow {
		return models.LoanRecord{}, models.LimitExceededf("%s holds %d of %d allowed copies and cannot borrow %d more",
			userID, held, r.settings.MaxBorrow, quantity)
	}

	now := r.now()
	b.Quantity -= quantity
	for i := 0; i < quantity; i++ {
		r.outstanding[userID] = append(r.outstanding[userID], code)
	}
	if r.borrowers[code] == nil {
		r.borrowers[code] = make(map[string]int)
	}
	r.borrowers[code][userID] += quantity

	rec := models.NewLoanRecord(r.newID(), *b, userID, quantity, now, r.settings.LoanDays, notes)
	r.loans[userID] = append(r.loans[userID], &rec)

	b.IssuedTo = models.IssuedToDisplay(r.borrowers[code])
	b.UpdatedAt = now

	r.persistLocked()
	return rec, nil
}

// ReturnCopies takes quantity copies of a title back from a user and
// closes that user's active records for it oldest first, splitting the
// last one touched when it covers more copies than remain.
func (r *CatalogRepository) ReturnCopies(code, userID string, quantity int) (models.ReturnReceipt, error) {
	if err := requireCode(code); err != nil {
		return models.ReturnReceipt{}, err
	}
	if err := requireUser(userID); err != nil {
		return models.ReturnReceipt{}, err
	}
	if err := requirePositive("quantity", quantity); err != nil {
		return models.ReturnReceipt{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	receipt, err := r.returnLocked(code, userID, quantity)
	if err != nil {
		return models.ReturnReceipt{}, err
	}
	r.persistLocked()
	return receipt, nil
}

// ReturnAll takes back every copy of a title the user holds.
func (r *CatalogRepository) ReturnAll(code, userID string) (models.ReturnReceipt, error) {
	if err := requireCode(code); err != nil {
		return models.ReturnReceipt{}, err
	}
	if err := requireUser(userID); err != nil {
		return models.ReturnReceipt{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	held := r.borrowers[code][userID]
	if held == 0 {
		return models.ReturnReceipt{}, models.NotFoundf("%s holds no copies of %s", userID, code)
	}
	receipt, err := r.returnLocked(code, userID, held)
	if err != nil {
		return models.ReturnReceipt{}, err
	}
	r.persistLocked()
	return receipt, nil
}

func (r *CatalogRepository) returnLocked(code, userID string, quantity int) (models.ReturnReceipt, error) {
	held := r.borrowers[code][userID]
	if held < quantity {
		return models.ReturnReceipt{}, models.NotFoundf("%s holds %d copies of %s, cannot return %d", userID, held, code, quantity)
	}

	now := r.now()
	today := models.Day(now)

	r.outstanding[userID] = removeCopies(r.outstanding[userID], code, quantity)
	if len(r.outstanding[userID]) == 0 {
		delete(r.outstanding, userID)
	}

	if b, ok := r.books[code]; ok {
		b.Quantity += quantity
		b.UpdatedAt = now
	} else {
		r.logger.Warn("Returned copies of a book missing from the catalog", "code", code, "user_id", userID)
	}

	if held == quantity {
		delete(r.borrowers[code], userID)
		if len(r.borrowers[code]) == 0 {
			delete(r.borrowers, code)
		}
	} else {
		r.borrowers[code][userID] = held - quantity
	}

	receipt := models.ReturnReceipt{Code: code, UserID: userID, Quantity: quantity, Fine: decimal.Zero}
	remaining := quantity
	var splits []*models.LoanRecord
	for _, rec := range r.loans[userID] {
		if remaining == 0 {
			break
		}
		if rec.BookCode != code || !rec.IsActive() {
			continue
		}
		if rec.Quantity <= remaining {
			rec.Close(today, r.settings.FinePerDay)
			remaining -= rec.Quantity
			receipt.Closed = append(receipt.Closed, *rec)
			continue
		}
		closed := rec.Split(r.newID(), remaining, today, r.settings.FinePerDay)
		splits = append(splits, &closed)
		receipt.Closed = append(receipt.Closed, closed)
		remaining = 0
	}
	r.loans[userID] = append(r.loans[userID], splits...)
	if remaining > 0 {
		r.logger.Warn("Loan ledger covers fewer copies than were returned",
			"code", code, "user_id", userID, "uncovered", remaining)
	}

	for _, rec := range receipt.Closed {
		receipt.Fine = receipt.Fine.Add(rec.FineAmount)
	}
	if b, ok := r.books[code]; ok {
		b.IssuedTo = models.IssuedToDisplay(r.borrowers[code])
	}
	return receipt, nil
}

// removeCopies drops the first n occurrences of code.
func removeCopies(codes []string, code string, n int) []string {
	kept := codes[:0]
	for _, c := range codes {
		if c == code && n > 0 {
			n--
			continue
		}
		kept = append(kept, c)
	}
	return kept
}

// Renew extends the active record for code held by userID that falls due
// first.
func (r *CatalogRepository) Renew(code, userID string) (models.LoanRecord, error) {
	if err := requireCode(code); err != nil {
		return models.LoanRecord{}, err
	}
	if err := requireUser(userID); err != nil {
		return models.LoanRecord{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	var target *models.LoanRecord
	for _, rec := range r.loans[userID] {
		if rec.BookCode != code || !rec.IsActive() {
			continue
		}
		if target == nil || rec.DueDate.Before(target.DueDate) {
			target = rec
		}
	}
	if target == nil {
		return models.LoanRecord{}, models.NotFoundf("%s has no active loan of %s", userID, code)
	}

	if err := target.Renew(models.Day(r.now()), r.settings.LoanDays, r.settings.MaxRenewals); err != nil {
		return models.LoanRecord{}, err
	}

	r.persistLocked()
	return *target, nil
}

func (r *CatalogRepository) totalIssuedLocked(code string) int {
	total := 0
	for _, qty := range r.borrowers[code] {
		total += qty
	}
	return total
}

// TotalIssued is the number of copies of a title currently on loan.
func (r *CatalogRepository) TotalIssued(code string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.totalIssuedLocked(code)
}

func (r *CatalogRepository) AvailableQuantity(code string) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	b, ok := r.books[code]
	if !ok {
		return 0, models.NotFoundf("book %s not found", code)
	}
	return b.Quantity, nil
}

// OriginalQuantity is the number of copies the library owns: on hand
// plus on loan.
func (r *CatalogRepository) OriginalQuantity(code string) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	b, ok := r.books[code]
	if !ok {
		return 0, models.NotFoundf("book %s not found", code)
	}
	return b.TotalCopies, nil
}

// BorrowedCount is the number of copies a user holds across all titles.
func (r *CatalogRepository) BorrowedCount(userID string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.outstanding[userID])
}

// BooksHeldBy lists one code per copy the user holds, in issue order.
func (r *CatalogRepository) BooksHeldBy(userID string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.outstanding[userID]...)
}

// Borrowers returns who holds how many copies of a title.
func (r *CatalogRepository) Borrowers(code string) map[string]int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[string]int, len(r.borrowers[code]))
	for user, qty := range r.borrowers[code] {
		out[user] = qty
	}
	return out
}

func (r *CatalogRepository) AllBorrowers() map[string]map[string]int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[string]map[string]int, len(r.borrowers))
	for code, holders := range r.borrowers {
		out[code] = make(map[string]int, len(holders))
		for user, qty := range holders {
			out[code][user] = qty
		}
	}
	return out
}

// collectLocked walks the ledger user by user in id order.
func (r *CatalogRepository) collectLocked(userID string, keep func(*models.LoanRecord) bool) []models.LoanRecord {
	users := []string{userID}
	if userID == "" {
		users = make([]string, 0, len(r.loans))
		for u := range r.loans {
			users = append(users, u)
		}
		sort.Strings(users)
	}

	var out []models.LoanRecord
	for _, u := range users {
		for _, rec := range r.loans[u] {
			if keep(rec) {
				out = append(out, *rec)
			}
		}
	}
	return out
}

func (r *CatalogRepository) ActiveLoans() []models.LoanRecord {
	return r.ActiveLoansFor("")
}

// ActiveLoansFor lists a user's open records; an empty id means everyone.
func (r *CatalogRepository) ActiveLoansFor(userID string) []models.LoanRecord {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.collectLocked(userID, func(rec *models.LoanRecord) bool { return rec.IsActive() })
}

func (r *CatalogRepository) OverdueLoans() []models.LoanRecord {
	return r.OverdueLoansFor("")
}

// OverdueLoansFor lists open records past their due date as of now.
func (r *CatalogRepository) OverdueLoansFor(userID string) []models.LoanRecord {
	r.mu.RLock()
	defer r.mu.RUnlock()

	today := models.Day(r.now())
	return r.collectLocked(userID, func(rec *models.LoanRecord) bool { return rec.IsOverdue(today) })
}

// DueSoon lists open records falling due within days, overdue ones excluded.
func (r *CatalogRepository) DueSoon(days int) []models.LoanRecord {
	r.mu.RLock()
	defer r.mu.RUnlock()

	today := models.Day(r.now())
	return r.collectLocked("", func(rec *models.LoanRecord) bool { return rec.IsDueSoon(today, days) })
}

// LoanHistory lists every record for a user, open and closed, in ledger order.
func (r *CatalogRepository) LoanHistory(userID string) []models.LoanRecord {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.collectLocked(userID, func(*models.LoanRecord) bool { return true })
}

func (r *CatalogRepository) AllLoans() []models.LoanRecord {
	return r.LoanHistory("")
}

// TotalFine sums the current fines on a user's open records.
func (r *CatalogRepository) TotalFine(userID string) decimal.Decimal {
	r.mu.RLock()
	defer r.mu.RUnlock()

	today := models.Day(r.now())
	total := decimal.Zero
	for _, rec := range r.loans[userID] {
		if rec.IsActive() {
			total = total.Add(rec.CalculateFine(today, r.settings.FinePerDay))
		}
	}
	return total
}

// Statistics computes the library totals under a single read lock.
func (r *CatalogRepository) Statistics() models.LibraryStats {
	r.mu.RLock()
	defer r.mu.RUnlock()

	now := r.now()
	today := models.Day(now)
	stats := models.LibraryStats{
		TotalTitles:  len(r.books),
		OverdueFines: decimal.Zero,
		GeneratedAt:  now,
	}
	for _, b := range r.books {
		stats.AvailableCopies += b.Quantity
	}
	for _, holders := range r.borrowers {
		for _, qty := range holders {
			stats.IssuedCopies += qty
		}
	}
	stats.TotalCopies = stats.AvailableCopies + stats.IssuedCopies

	stats.Borrowers = len(r.outstanding)

	for _, recs := range r.loans {
		for _, rec := range recs {
			if !rec.IsActive() {
				continue
			}
			stats.ActiveLoans++
			if rec.IsOverdue(today) {
				stats.OverdueLoans++
				stats.OverdueFines = stats.OverdueFines.Add(rec.CalculateFine(today, r.settings.FinePerDay))
			}
		}
	}
	stats.Utilization = models.Utilization(stats.IssuedCopies, stats.TotalCopies)
	return stats
}

// CheckConsistency cross-checks the books, outstanding copies, borrower
// counts and open loan records, and describes every disagreement.
func (r *CatalogRepository) CheckConsistency() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var issues []string
	for code, b := range r.books {
		if b.Quantity < 0 {
			issues = append(issues, fmt.Sprintf("book %s has negative quantity %d", code, b.Quantity))
		}
		if issued := r.totalIssuedLocked(code); b.TotalCopies != b.Quantity+issued {
			issues = append(issues, fmt.Sprintf("book %s owns %d copies but has %d on hand and %d on loan",
				code, b.TotalCopies, b.Quantity, issued))
		}
	}

	held := make(map[string]map[string]int)
	for user, codes := range r.outstanding {
		for _, code := range codes {
			if held[code] == nil {
				held[code] = make(map[string]int)
			}
			held[code][user]++
		}
	}
	open := make(map[string]map[string]int)
	for user, recs := range r.loans {
		for _, rec := range recs {
			if !rec.IsActive() {
				continue
			}
			if open[rec.BookCode] == nil {
				open[rec.BookCode] = make(map[string]int)
			}
			open[rec.BookCode][user] += rec.Quantity
		}
	}

	for code, holders := range r.borrowers {
		if _, ok := r.books[code]; !ok {
			issues = append(issues, fmt.Sprintf("borrowers recorded for unknown book %s", code))
		}
		for user, qty := range holders {
			if held[code][user] != qty {
				issues = append(issues, fmt.Sprintf("%s holds %d copies of %s but %d are outstanding",
					user, qty, code, held[code][user]))
			}
			if open[code][user] != qty {
				issues = append(issues, fmt.Sprintf("%s holds %d copies of %s but open loans cover %d",
					user, qty, code, open[code][user]))
			}
		}
	}
	for code, holders := range held {
		for user, qty := range holders {
			if r.borrowers[code][user] == 0 {
				issues = append(issues, fmt.Sprintf("%s has %d outstanding copies of %s with no borrower entry", user, qty, code))
			}
		}
	}
	sort.Strings(issues)
	return issues
}
