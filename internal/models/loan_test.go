package models

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var twoPerDay = decimal.NewFromInt(2)

func testBook() Book {
	return Book{Code: "1234567890", Title: "X", Author: "Y", Category: "Z", Quantity: 2, TotalCopies: 2, IsActive: true}
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestDaysBetween(t *testing.T) {
	tests := []struct {
		name string
		from time.Time
		to   time.Time
		want int
	}{
		{name: "same day", from: date(2026, 3, 1), to: date(2026, 3, 1), want: 0},
		{name: "forward", from: date(2026, 3, 1), to: date(2026, 3, 15), want: 14},
		{name: "backward", from: date(2026, 3, 15), to: date(2026, 3, 1), want: -14},
		{name: "ignores time of day", from: time.Date(2026, 3, 1, 23, 59, 0, 0, time.UTC), to: time.Date(2026, 3, 2, 0, 1, 0, 0, time.UTC), want: 1},
		{name: "across month end", from: date(2026, 2, 27), to: date(2026, 3, 2), want: 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DaysBetween(tt.from, tt.to))
		})
	}
}

func TestNewLoanRecord(t *testing.T) {
	issued := time.Date(2026, 3, 1, 15, 30, 0, 0, time.UTC)
	rec := NewLoanRecord("id-1", testBook(), "alice", 2, issued, 14, "  first loan ")

	assert.Equal(t, "1234567890", rec.BookCode)
	assert.Equal(t, "X", rec.BookTitle)
	assert.Equal(t, date(2026, 3, 1), rec.IssueDate)
	assert.Equal(t, date(2026, 3, 15), rec.OriginalDue)
	assert.Equal(t, date(2026, 3, 15), rec.DueDate)
	assert.Equal(t, 2, rec.Quantity)
	assert.Equal(t, "first loan", rec.Notes)
	assert.True(t, rec.IsActive())
	assert.True(t, rec.FineAmount.IsZero())
}

func TestLoanRecord_CalculateFine(t *testing.T) {
	rec := NewLoanRecord("id-1", testBook(), "alice", 1, date(2026, 3, 1), 14, "")

	t.Run("due date in the future", func(t *testing.T) {
		fine := rec.CalculateFine(date(2026, 3, 10), twoPerDay)
		assert.True(t, fine.IsZero())
		assert.False(t, rec.IsOverdue(date(2026, 3, 10)))
	})

	t.Run("on the due date", func(t *testing.T) {
		assert.True(t, rec.CalculateFine(date(2026, 3, 15), twoPerDay).IsZero())
	})

	t.Run("five days overdue", func(t *testing.T) {
		today := date(2026, 3, 20)
		fine := rec.CalculateFine(today, twoPerDay)
		assert.Equal(t, 5, rec.DaysOverdue(today))
		assert.True(t, fine.Equal(decimal.NewFromInt(10)))
		assert.Equal(t, "10.00", fine.StringFixed(2))
		assert.Equal(t, LoanStatusOverdue, rec.Status(today))
	})
}

func TestLoanRecord_CloseFreezesFine(t *testing.T) {
	rec := NewLoanRecord("id-1", testBook(), "alice", 1, date(2026, 3, 1), 14, "")

	rec.Close(date(2026, 3, 18), twoPerDay)

	require.True(t, rec.Returned)
	require.NotNil(t, rec.ReturnDate)
	assert.True(t, rec.FineAmount.Equal(decimal.NewFromInt(6)))
	// a month later the fine is still measured to the return date
	later := date(2026, 4, 18)
	assert.Equal(t, 3, rec.DaysOverdue(later))
	assert.True(t, rec.CalculateFine(later, twoPerDay).Equal(decimal.NewFromInt(6)))
	assert.False(t, rec.IsOverdue(later))
	assert.Equal(t, LoanStatusReturned, rec.Status(later))
}

func TestLoanRecord_Split(t *testing.T) {
	rec := NewLoanRecord("id-1", testBook(), "alice", 3, date(2026, 3, 1), 14, "class set")
	rec.RenewalCount = 1

	closed := rec.Split("id-2", 1, date(2026, 3, 5), twoPerDay)

	assert.Equal(t, 2, rec.Quantity)
	assert.True(t, rec.IsActive())
	assert.Nil(t, rec.ReturnDate)

	assert.Equal(t, "id-2", closed.ID)
	assert.Equal(t, 1, closed.Quantity)
	assert.True(t, closed.Returned)
	assert.Equal(t, date(2026, 3, 5), *closed.ReturnDate)
	assert.True(t, closed.FineAmount.IsZero())
	assert.Equal(t, rec.DueDate, closed.DueDate)
	assert.Equal(t, 1, closed.RenewalCount)
	assert.Equal(t, "class set", closed.Notes)
	assert.True(t, rec.SameLoan(closed))
}

func TestLoanRecord_Renew(t *testing.T) {
	tests := []struct {
		name      string
		setup     func(r *LoanRecord)
		today     time.Time
		wantKind  ErrorKind
		wantDue   time.Time
		wantCount int
	}{
		{
			name:      "first renewal extends from current due date",
			setup:     func(r *LoanRecord) {},
			today:     date(2026, 3, 10),
			wantDue:   date(2026, 3, 29),
			wantCount: 1,
		},
		{
			name:      "a loan due today can still be renewed",
			setup:     func(r *LoanRecord) {},
			today:     date(2026, 3, 15),
			wantDue:   date(2026, 3, 29),
			wantCount: 1,
		},
		{
			name:     "overdue loans cannot be renewed",
			setup:    func(r *LoanRecord) {},
			today:    date(2026, 3, 16),
			wantKind: KindConflict,
		},
		{
			name:     "overdue refusal applies with renewals left",
			setup:    func(r *LoanRecord) { r.RenewalCount = 1 },
			today:    date(2026, 3, 20),
			wantKind: KindConflict,
		},
		{
			name:     "renewal cap",
			setup:    func(r *LoanRecord) { r.RenewalCount = 2 },
			today:    date(2026, 3, 10),
			wantKind: KindLimitExceeded,
		},
		{
			name:     "returned loans cannot be renewed",
			setup:    func(r *LoanRecord) { r.Close(date(2026, 3, 5), twoPerDay) },
			today:    date(2026, 3, 10),
			wantKind: KindConflict,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := NewLoanRecord("id-1", testBook(), "alice", 1, date(2026, 3, 1), 14, "")
			tt.setup(&rec)

			err := rec.Renew(tt.today, 14, 2)

			if tt.wantKind != "" {
				require.Error(t, err)
				assert.Equal(t, tt.wantKind, KindOf(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantDue, rec.DueDate)
			assert.Equal(t, date(2026, 3, 15), rec.OriginalDue)
			assert.Equal(t, tt.wantCount, rec.RenewalCount)
		})
	}
}

func TestLoanRecord_IsDueSoon(t *testing.T) {
	rec := NewLoanRecord("id-1", testBook(), "alice", 1, date(2026, 3, 1), 14, "")

	assert.False(t, rec.IsDueSoon(date(2026, 3, 5), 3))
	assert.True(t, rec.IsDueSoon(date(2026, 3, 12), 3))
	assert.True(t, rec.IsDueSoon(date(2026, 3, 15), 3))
	assert.False(t, rec.IsDueSoon(date(2026, 3, 16), 3))
}

func TestIssueRequest_Validate(t *testing.T) {
	tests := []struct {
		name      string
		req       IssueRequest
		wantField string
	}{
		{name: "valid with hyphenated code", req: IssueRequest{Code: "123-456-7890", UserID: "alice", Quantity: 1}},
		{name: "short code", req: IssueRequest{Code: "12345", UserID: "alice", Quantity: 1}, wantField: "code"},
		{name: "bad user id", req: IssueRequest{Code: "1234567890", UserID: "a!", Quantity: 1}, wantField: "user_id"},
		{name: "zero quantity", req: IssueRequest{Code: "1234567890", UserID: "alice", Quantity: 0}, wantField: "quantity"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			if tt.wantField == "" {
				require.NoError(t, err)
				assert.Equal(t, "1234567890", tt.req.Code)
				return
			}
			var verr *Error
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, KindValidation, verr.Kind)
			assert.Equal(t, tt.wantField, verr.Field)
		})
	}
}
