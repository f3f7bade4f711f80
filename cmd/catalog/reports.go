package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ngenohkevin/libcatalog/internal/models"
)

func newStatsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show library totals",
		Args:  exactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			stats := a.reports.GetLibraryStats(cmd.Context())
			return a.print(stats, func() {
				fmt.Fprintf(a.out, "Titles:          %d\n", stats.TotalTitles)
				fmt.Fprintf(a.out, "Copies:          %d (%d on shelf, %d on loan)\n",
					stats.TotalCopies, stats.AvailableCopies, stats.IssuedCopies)
				fmt.Fprintf(a.out, "Utilization:     %.1f%%\n", stats.Utilization)
				fmt.Fprintf(a.out, "Borrowers:       %d\n", stats.Borrowers)
				fmt.Fprintf(a.out, "Active loans:    %d\n", stats.ActiveLoans)
				fmt.Fprintf(a.out, "Overdue loans:   %d\n", stats.OverdueLoans)
				fmt.Fprintf(a.out, "Overdue fines:   %s\n", stats.OverdueFines.StringFixed(2))
			})
		},
	}
}

func newReportCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Circulation reports",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "overdue",
		Short: "Overdue loans grouped by borrower, largest fine first",
		Args:  exactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			report := a.reports.GetOverdueReport(cmd.Context())
			return a.print(report, func() { a.printOverdueReport(report) })
		},
	})
	return cmd
}

func (a *app) printOverdueReport(report *models.OverdueReport) {
	if len(report.Borrowers) == 0 {
		fmt.Fprintln(a.out, "No overdue loans")
		return
	}
	for _, b := range report.Borrowers {
		fmt.Fprintf(a.out, "%s (%s), fine %s\n", b.Name, b.UserID, b.TotalFine.StringFixed(2))
		a.table("  CODE\tTITLE\tQTY\tDUE\tDAYS\tFINE", func(w *tabwriter.Writer) {
			for _, l := range b.Loans {
				fmt.Fprintf(w, "  %s\t%s\t%d\t%s\t%d\t%s\n",
					l.BookCode, l.BookTitle, l.Quantity, l.DueDate.Format("2006-01-02"), l.DaysOverdue, l.Fine.StringFixed(2))
			}
		})
	}
	fmt.Fprintf(a.out, "%d loans, %d borrowers, %s in fines\n",
		report.Summary.TotalLoans, report.Summary.TotalBorrowers, report.Summary.TotalFines.StringFixed(2))
}

func newRemindCmd(a *app) *cobra.Command {
	var (
		dueSoon bool
		days    int
	)
	cmd := &cobra.Command{
		Use:   "remind",
		Short: "Send overdue (default) or due-soon reminders",
		Args:  exactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				result *models.ReminderResult
				err    error
			)
			if dueSoon {
				if !cmd.Flags().Changed("days") {
					days = a.cfg.Library.DueSoonDays
				}
				result, err = a.reminders.SendDueSoonReminders(cmd.Context(), days)
			} else {
				result, err = a.reminders.SendOverdueReminders(cmd.Context())
			}
			if err != nil {
				return err
			}
			return a.print(result, func() {
				for _, n := range result.Notices {
					fmt.Fprintf(a.out, "%s -> %s: %s\n", n.UserID, n.Recipient, n.Title)
				}
				fmt.Fprintf(a.out, "%d sent, %d failed\n", result.Sent, result.Failed)
			})
		},
	}
	cmd.Flags().BoolVar(&dueSoon, "due-soon", false, "remind about loans falling due soon")
	cmd.Flags().IntVar(&days, "days", 0, "due-soon window (default library.due_soon_days)")
	return cmd
}
