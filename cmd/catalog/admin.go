package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/ngenohkevin/libcatalog/internal/models"
	"github.com/ngenohkevin/libcatalog/internal/services"
)

func newSettingsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Show or change the lending rules stored with the catalog",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show the lending rules",
		Args:  exactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			s := a.db.Catalog.Settings()
			return a.print(s, func() { a.printSettings(s) })
		},
	})

	var (
		maxBorrow, maxPerRequest, loanDays, maxRenewals int
		fine                                            string
	)
	set := &cobra.Command{
		Use:   "set",
		Short: "Change lending rules; unset flags keep their values",
		Args:  exactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			s := a.db.Catalog.Settings()
			flags := cmd.Flags()
			if flags.Changed("max-borrow") {
				s.MaxBorrow = maxBorrow
			}
			if flags.Changed("max-per-request") {
				s.MaxPerRequest = maxPerRequest
			}
			if flags.Changed("loan-days") {
				s.LoanDays = loanDays
			}
			if flags.Changed("max-renewals") {
				s.MaxRenewals = maxRenewals
			}
			if flags.Changed("fine-per-day") {
				f, err := parsePrice(fine)
				if err != nil {
					return models.NewValidationError("fine_per_day", models.RuleFormat, "fine_per_day must be a decimal number")
				}
				s.FinePerDay = f
			}

			if err := a.db.Catalog.UpdateSettings(s); err != nil {
				return err
			}
			a.logger.Info("Settings updated", "max_borrow", s.MaxBorrow, "loan_days", s.LoanDays,
				"fine_per_day", s.FinePerDay.StringFixed(2))
			return a.print(s, func() { a.printSettings(s) })
		},
	}
	set.Flags().IntVar(&maxBorrow, "max-borrow", 0, "copies a member may hold")
	set.Flags().IntVar(&maxPerRequest, "max-per-request", 0, "copies per issue")
	set.Flags().IntVar(&loanDays, "loan-days", 0, "loan period in days")
	set.Flags().IntVar(&maxRenewals, "max-renewals", 0, "renewals per loan")
	set.Flags().StringVar(&fine, "fine-per-day", "", "fine per overdue day, e.g. 2.00")
	cmd.AddCommand(set)
	return cmd
}

func newImportCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file.csv|file.xlsx>",
		Short: "Add books from a CSV or XLSX file",
		Args:  exactArgs(1, "file"),
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := services.DetectFormat(args[0])
			if err != nil {
				return err
			}
			f, err := os.Open(args[0])
			if err != nil {
				return models.NewValidationError("file", models.RuleRequired, err.Error())
			}
			defer f.Close()

			var result *models.ImportResult
			name := filepath.Base(args[0])
			if format == services.FormatCSV {
				result, err = a.transfers.ImportBooksFromCSV(cmd.Context(), f, name)
			} else {
				result, err = a.transfers.ImportBooksFromExcel(cmd.Context(), f, name)
			}
			if err != nil {
				return err
			}
			return a.print(result, func() {
				for _, e := range result.Errors {
					fmt.Fprintf(a.out, "row %d (%s): %s: %s\n", e.Row, e.Code, e.Kind, e.Message)
				}
				fmt.Fprintf(a.out, "Imported %d of %d rows (%d failed, %d duplicates)\n",
					result.SuccessCount, result.TotalRecords, result.FailureCount, result.Summary.DuplicatesFound)
			})
		},
	}
}

func newExportCmd(a *app) *cobra.Command {
	var loans bool
	cmd := &cobra.Command{
		Use:   "export <file.csv|file.xlsx>",
		Short: "Write the catalog, or with --loans the loan report, to a file",
		Args:  exactArgs(1, "file"),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			format, err := services.DetectFormat(args[0])
			if err != nil {
				return err
			}
			if loans && format != services.FormatExcel {
				return models.NewValidationError("file", models.RuleFormat, "the loan report is only written as .xlsx")
			}

			f, err := os.Create(args[0])
			if err != nil {
				return fmt.Errorf("failed to create %s: %w", args[0], err)
			}
			defer func() {
				if cerr := f.Close(); err == nil && cerr != nil {
					err = fmt.Errorf("failed to close %s: %w", args[0], cerr)
				}
			}()

			var result *models.ExportResult
			name := filepath.Base(args[0])
			switch {
			case loans:
				result, err = a.transfers.ExportLoanReport(cmd.Context(), f, name)
			case format == services.FormatCSV:
				result, err = a.transfers.ExportBooksToCSV(cmd.Context(), f, name)
			default:
				result, err = a.transfers.ExportBooksToExcel(cmd.Context(), f, name)
			}
			if err != nil {
				return err
			}
			return a.print(result, func() {
				fmt.Fprintf(a.out, "Wrote %d records to %s\n", result.RecordCount, args[0])
			})
		},
	}
	cmd.Flags().BoolVar(&loans, "loans", false, "export active and overdue loans instead of books")
	return cmd
}

func newBackupCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "backup",
		Short: "Copy every snapshot file into the backup directory",
		Args:  exactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.db.Persist(); err != nil {
				return err
			}
			files, err := a.db.Backup()
			if err != nil {
				return err
			}
			return a.print(files, func() {
				for _, f := range files {
					fmt.Fprintln(a.out, f)
				}
			})
		},
	}
}

func newPersistCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "persist",
		Short: "Write all snapshots now and report the store's health",
		Args:  exactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.db.Persist(); err != nil {
				return err
			}
			if issues := a.db.Catalog.CheckConsistency(); len(issues) > 0 {
				for _, issue := range issues {
					fmt.Fprintln(a.out, issue)
				}
				return models.NewCorruptStateError(a.db.DataDir(), fmt.Errorf("%d inconsistencies", len(issues)))
			}
			fmt.Fprintf(a.out, "Snapshots written to %s\n", a.db.DataDir())
			return nil
		},
	}
}
