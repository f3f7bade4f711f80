package main

import (
	"fmt"
	"text/tabwriter"

	jsoniter "github.com/json-iterator/go"

	"github.com/ngenohkevin/libcatalog/internal/models"
)

var jsonAPI = jsoniter.ConfigCompatibleWithStandardLibrary

// print writes v as indented JSON with --json and runs text otherwise.
func (a *app) print(v any, text func()) error {
	if !a.jsonOutput {
		text()
		return nil
	}
	data, err := jsonAPI.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode output: %w", err)
	}
	_, err = fmt.Fprintln(a.out, string(data))
	return err
}

func (a *app) table(header string, rows func(w *tabwriter.Writer)) {
	w := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, header)
	rows(w)
	w.Flush()
}

func (a *app) printBook(b *models.Book) {
	fmt.Fprintf(a.out, "Code:        %s\n", b.Code)
	fmt.Fprintf(a.out, "Title:       %s\n", b.Title)
	fmt.Fprintf(a.out, "Author:      %s\n", b.Author)
	fmt.Fprintf(a.out, "Category:    %s\n", b.Category)
	fmt.Fprintf(a.out, "On shelf:    %d of %d\n", b.Quantity, b.TotalCopies)
	fmt.Fprintf(a.out, "Status:      %s\n", b.Status())
	if b.Publisher != "" {
		fmt.Fprintf(a.out, "Publisher:   %s\n", b.Publisher)
	}
	if !b.Price.IsZero() {
		fmt.Fprintf(a.out, "Price:       %s\n", b.Price.StringFixed(2))
	}
	if b.Location != "" {
		fmt.Fprintf(a.out, "Location:    %s\n", b.Location)
	}
	if b.IssuedTo != "" {
		fmt.Fprintf(a.out, "Issued to:   %s\n", b.IssuedTo)
	}
}

func (a *app) printBooks(books []models.Book) {
	if len(books) == 0 {
		fmt.Fprintln(a.out, "No books found")
		return
	}
	a.table("CODE\tTITLE\tAUTHOR\tCATEGORY\tON SHELF\tTOTAL\tSTATUS", func(w *tabwriter.Writer) {
		for _, b := range books {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%d\t%s\n",
				b.Code, b.Title, b.Author, b.Category, b.Quantity, b.TotalCopies, b.Status())
		}
	})
}

func (a *app) printLoans(loans []models.LoanRecord) {
	if len(loans) == 0 {
		fmt.Fprintln(a.out, "No loans found")
		return
	}
	today := models.Day(a.now())
	fine := a.db.Catalog.Settings().FinePerDay
	a.table("ID\tCODE\tTITLE\tUSER\tQTY\tISSUED\tDUE\tSTATUS\tFINE", func(w *tabwriter.Writer) {
		for _, rec := range loans {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%s\t%s\t%s\t%s\n",
				rec.ID, rec.BookCode, rec.BookTitle, rec.UserID, rec.Quantity,
				rec.IssueDate.Format("2006-01-02"), rec.DueDate.Format("2006-01-02"),
				rec.Status(today), rec.CalculateFine(today, fine).StringFixed(2))
		}
	})
}

func (a *app) printAccount(acc *models.AccountResponse) {
	fmt.Fprintf(a.out, "User ID:     %s\n", acc.UserID)
	fmt.Fprintf(a.out, "Name:        %s\n", acc.Name)
	if acc.Email != "" {
		fmt.Fprintf(a.out, "Email:       %s\n", acc.Email)
	}
	if acc.ContactNumber != "" {
		fmt.Fprintf(a.out, "Contact:     %s\n", acc.ContactNumber)
	}
	fmt.Fprintf(a.out, "Active:      %t\n", acc.IsActive)
	if acc.LastLogin != nil {
		fmt.Fprintf(a.out, "Last login:  %s\n", acc.LastLogin.Format("2006-01-02 15:04"))
	}
}

func (a *app) printSettings(s models.Settings) {
	fmt.Fprintf(a.out, "max_borrow:       %d\n", s.MaxBorrow)
	fmt.Fprintf(a.out, "max_per_request:  %d\n", s.MaxPerRequest)
	fmt.Fprintf(a.out, "loan_days:        %d\n", s.LoanDays)
	fmt.Fprintf(a.out, "fine_per_day:     %s\n", s.FinePerDay.StringFixed(2))
	fmt.Fprintf(a.out, "max_renewals:     %d\n", s.MaxRenewals)
}
