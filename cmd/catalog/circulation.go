package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ngenohkevin/libcatalog/internal/models"
)

func newIssueCmd(a *app) *cobra.Command {
	var (
		user     string
		quantity int
		notes    string
	)
	cmd := &cobra.Command{
		Use:   "issue <code>",
		Short: "Lend copies of a title",
		Args:  exactArgs(1, "code"),
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, err := a.userOrSession(user)
			if err != nil {
				return err
			}
			rec, err := a.circulation.Issue(cmd.Context(), models.IssueRequest{
				Code:     args[0],
				UserID:   userID,
				Quantity: quantity,
				Notes:    notes,
			})
			if err != nil {
				return err
			}
			return a.print(rec, func() {
				fmt.Fprintf(a.out, "Issued %d x %s to %s, due %s (loan %s)\n",
					rec.Quantity, rec.BookTitle, rec.UserID, rec.DueDate.Format("2006-01-02"), rec.ID)
			})
		},
	}
	cmd.Flags().StringVar(&user, "user", "", "borrower (defaults to the logged-in member)")
	cmd.Flags().IntVar(&quantity, "quantity", 1, "copies to issue")
	cmd.Flags().StringVar(&notes, "notes", "", "free-text note on the loan")
	return cmd
}

func newReturnCmd(a *app) *cobra.Command {
	var (
		user     string
		quantity int
		all      bool
	)
	cmd := &cobra.Command{
		Use:   "return <code>",
		Short: "Bring copies back",
		Args:  exactArgs(1, "code"),
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, err := a.userOrSession(user)
			if err != nil {
				return err
			}

			var receipt *models.ReturnReceipt
			if all {
				receipt, err = a.circulation.ReturnAll(cmd.Context(), args[0], userID)
			} else {
				receipt, err = a.circulation.Return(cmd.Context(), models.ReturnRequest{
					Code:     args[0],
					UserID:   userID,
					Quantity: quantity,
				})
			}
			if err != nil {
				return err
			}
			return a.print(receipt, func() {
				fmt.Fprintf(a.out, "Returned %d x %s from %s, fine %s\n",
					receipt.Quantity, receipt.Code, receipt.UserID, receipt.Fine.StringFixed(2))
			})
		},
	}
	cmd.Flags().StringVar(&user, "user", "", "borrower (defaults to the logged-in member)")
	cmd.Flags().IntVar(&quantity, "quantity", 1, "copies to return")
	cmd.Flags().BoolVar(&all, "all", false, "return every copy held")
	return cmd
}

func newRenewCmd(a *app) *cobra.Command {
	var user string
	cmd := &cobra.Command{
		Use:   "renew <code>",
		Short: "Extend the loan that falls due first",
		Args:  exactArgs(1, "code"),
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, err := a.userOrSession(user)
			if err != nil {
				return err
			}
			rec, err := a.circulation.Renew(cmd.Context(), args[0], userID)
			if err != nil {
				return err
			}
			return a.print(rec, func() {
				fmt.Fprintf(a.out, "Renewed %s for %s, now due %s (renewal %d)\n",
					rec.BookCode, rec.UserID, rec.DueDate.Format("2006-01-02"), rec.RenewalCount)
			})
		},
	}
	cmd.Flags().StringVar(&user, "user", "", "borrower (defaults to the logged-in member)")
	return cmd
}

func newLoansCmd(a *app) *cobra.Command {
	var (
		user    string
		overdue bool
		dueSoon bool
		history bool
		days    int
	)
	cmd := &cobra.Command{
		Use:   "loans",
		Short: "List loan records",
		Args:  exactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			var (
				loans []models.LoanRecord
				err   error
			)
			switch {
			case history:
				var userID string
				if userID, err = a.userOrSession(user); err != nil {
					return err
				}
				loans, err = a.circulation.History(ctx, userID)
			case dueSoon:
				if !cmd.Flags().Changed("days") {
					days = a.cfg.Library.DueSoonDays
				}
				loans, err = a.circulation.DueSoon(ctx, days)
			case overdue:
				loans = a.circulation.OverdueLoans(ctx, user)
			default:
				loans = a.circulation.ActiveLoans(ctx, user)
			}
			if err != nil {
				return err
			}
			return a.print(loans, func() { a.printLoans(loans) })
		},
	}
	cmd.Flags().StringVar(&user, "user", "", "only this borrower (required with --history unless logged in)")
	cmd.Flags().BoolVar(&overdue, "overdue", false, "only overdue loans")
	cmd.Flags().BoolVar(&dueSoon, "due-soon", false, "loans falling due soon")
	cmd.Flags().BoolVar(&history, "history", false, "returned loans too")
	cmd.Flags().IntVar(&days, "days", 0, "due-soon window (default library.due_soon_days)")
	cmd.MarkFlagsMutuallyExclusive("overdue", "due-soon", "history")
	return cmd
}

func newFineCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "fine [user-id]",
		Short: "Show the outstanding fine on open loans",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var flagUser string
			if len(args) == 1 {
				flagUser = args[0]
			}
			userID, err := a.userOrSession(flagUser)
			if err != nil {
				return err
			}
			fine, err := a.circulation.TotalFine(cmd.Context(), userID)
			if err != nil {
				return err
			}
			return a.print(map[string]string{"user_id": userID, "fine": fine.StringFixed(2)}, func() {
				fmt.Fprintf(a.out, "%s owes %s\n", userID, fine.StringFixed(2))
			})
		},
	}
}
